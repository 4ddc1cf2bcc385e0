package semester

import (
	"github.com/sadopc/coursematrix/internal/model"
	"github.com/sadopc/coursematrix/internal/storage"
)

// saver persists one record key. Requests are coalesced: want counts
// requested saves, done the request generation last attempted. Each attempt
// serializes the state current at the time it starts, so the final attempt
// always carries the latest data.
//
// rejected is set while the last attempt was turned away because the store
// was unavailable; the next successful save of any key retries it.
type saver struct {
	key      string
	kick     chan struct{}
	want     uint64
	done     uint64
	rejected bool
	retried  bool
}

func (e *Engine) scheduleLocked(key string) {
	if e.closed {
		return
	}
	s := e.savers[key]
	s.want++
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (e *Engine) idleLocked() bool {
	for _, s := range e.savers {
		if s.want != s.done {
			return false
		}
	}
	return true
}

func (e *Engine) run(s *saver) {
	defer e.wg.Done()
	for {
		select {
		case <-s.kick:
			e.save(s)
		case <-e.quit:
			e.save(s)
			return
		}
	}
}

func (e *Engine) save(s *saver) {
	e.mu.Lock()
	gen := s.want
	if gen == s.done {
		e.mu.Unlock()
		return
	}
	value := e.recordLocked(s.key)
	e.mu.Unlock()

	res := e.store.Write(s.key, value)

	e.mu.Lock()
	defer e.mu.Unlock()
	s.done = gen
	defer e.idle.Broadcast()

	if res.OK {
		e.lastSaved = e.now()
		e.storageError = ""
		e.unavailable = false
		s.rejected, s.retried = false, false
		e.log.Debug("saved record", "key", s.key)
		for _, other := range e.savers {
			if other.rejected {
				other.rejected = false
				e.scheduleLocked(other.key)
			}
		}
		return
	}

	e.log.Warn("save failed", "key", s.key, "error", res.Error)
	if res.Error == storage.ErrUnavailable.Error() {
		s.rejected = true
		// A concurrent write may have brought the store back since this one
		// was turned away.
		if e.store.Available() && !s.retried {
			s.retried = true
			e.scheduleLocked(s.key)
			return
		}
	}
	if !e.store.Available() {
		// Surface an unusable store once rather than on every edit.
		if e.unavailable {
			return
		}
		e.unavailable = true
	}
	e.storageError = saveErrorMessage(s.key, res.Error)
}

func (e *Engine) recordLocked(key string) any {
	switch key {
	case KeyActiveSemester:
		return string(e.active)
	case KeyEndSemester:
		return e.data[model.End].Clone()
	default:
		return e.data[model.Start].Clone()
	}
}

func saveErrorMessage(key, detail string) string {
	what := "start semester data"
	switch key {
	case KeyActiveSemester:
		what = "active semester"
	case KeyEndSemester:
		what = "end semester data"
	}
	return "Failed to save " + what + ": " + detail
}
