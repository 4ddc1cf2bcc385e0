// Package semester owns the two semester datasets and the active-semester
// selector. It loads them once through the validator, keeps them in memory,
// and saves every change in the background through the storage adapter.
// Storage failures never block the caller; they surface through Status.
package semester

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sadopc/coursematrix/internal/model"
	"github.com/sadopc/coursematrix/internal/storage"
	"github.com/sadopc/coursematrix/internal/validate"
)

// Persisted record keys.
const (
	KeyActiveSemester = "courseMatrix_activeSemester"
	KeyStartSemester  = "courseMatrix_startSemester"
	KeyEndSemester    = "courseMatrix_endSemester"
)

// DataKey returns the record key holding s's data.
func DataKey(s model.Semester) string {
	if s == model.End {
		return KeyEndSemester
	}
	return KeyStartSemester
}

// Keys lists every record the engine writes.
func Keys() []string {
	return []string{KeyActiveSemester, KeyStartSemester, KeyEndSemester}
}

type Phase int

const (
	Uninitialized Phase = iota
	Loading
	Ready
)

func (p Phase) String() string {
	switch p {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Store is the subset of *storage.Manager the engine uses.
type Store interface {
	Write(key string, value any, opts ...storage.Option) storage.Result[struct{}]
	ReadRaw(key string, opts ...storage.Option) storage.Result[json.RawMessage]
	Remove(key string) storage.Result[struct{}]
	Available() bool
}

var _ Store = (*storage.Manager)(nil)

// Defaults holds the task taxonomy each semester starts with.
type Defaults struct {
	Start model.Tasks
	End   model.Tasks
}

// StockDefaults returns the built-in taxonomies.
func StockDefaults() Defaults {
	return Defaults{Start: model.DefaultStartTasks(), End: model.DefaultEndTasks()}
}

func (d Defaults) For(s model.Semester) model.Tasks {
	if s == model.End {
		return d.End.Clone()
	}
	return d.Start.Clone()
}

// SaveStatus is what a view needs to render save state.
type SaveStatus struct {
	IsLoading    bool
	Saving       bool
	StorageError string
	LastSaved    time.Time
}

// LoadReport describes what the load pass had to repair.
type LoadReport struct {
	Reports  map[model.Semester]validate.Report
	Warnings []string
}

func (r LoadReport) Count() int {
	return len(r.Warnings)
}

func (r *LoadReport) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithClock replaces time.Now for save timestamps and course IDs.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine is safe for concurrent use, though it assumes a single logical
// writer: concurrent mutations are serialized, last write wins.
type Engine struct {
	store    Store
	defaults Defaults
	log      *slog.Logger
	now      func() time.Time

	mu           sync.Mutex
	idle         *sync.Cond
	phase        Phase
	active       model.Semester
	data         map[model.Semester]*model.SemesterData
	storageError string
	lastSaved    time.Time
	unavailable  bool
	report       LoadReport
	savers       map[string]*saver
	closed       bool

	quit chan struct{}
	wg   sync.WaitGroup
}

// New builds an engine and runs the load pass before returning, so the
// result is always Ready. Loading never fails; problems are reported through
// Status and LoadReport.
func New(store Store, defaults Defaults, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		defaults: defaults,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
		phase:    Uninitialized,
		active:   model.Start,
		data: map[model.Semester]*model.SemesterData{
			model.Start: ptr(model.NewSemesterData(defaults.Start)),
			model.End:   ptr(model.NewSemesterData(defaults.End)),
		},
		savers: map[string]*saver{},
		quit:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.idle = sync.NewCond(&e.mu)
	for _, key := range Keys() {
		e.savers[key] = &saver{key: key, kick: make(chan struct{}, 1)}
	}

	e.load()

	for _, s := range e.savers {
		e.wg.Add(1)
		go e.run(s)
	}
	return e
}

func ptr[T any](v T) *T { return &v }

func (e *Engine) load() {
	e.mu.Lock()
	e.phase = Loading
	e.mu.Unlock()

	report := LoadReport{Reports: map[model.Semester]validate.Report{}}
	active := model.Start
	loaded := map[model.Semester]model.SemesterData{}
	var repaired []model.Semester

	if !e.store.Available() {
		e.log.Warn("storage unavailable at load, starting with defaults")
		e.mu.Lock()
		e.phase = Ready
		e.unavailable = true
		e.storageError = "Storage is not available. Changes are kept for this session only."
		e.report = report
		e.mu.Unlock()
		return
	}

	if res := e.store.ReadRaw(KeyActiveSemester); !res.OK {
		report.warnf("Could not read active semester: %s", res.Error)
	} else if res.Data != nil {
		if s, ok := validate.SemesterType(res.Data); ok {
			active = s
		} else {
			report.warnf("Invalid active semester %s, using %s", string(res.Data), model.Start)
		}
	}

	for _, s := range model.Semesters {
		res := e.store.ReadRaw(DataKey(s))
		if !res.OK {
			report.warnf("Could not read %s semester data, using defaults: %s", s, res.Error)
			continue
		}
		if res.Data == nil {
			continue
		}
		data, rep := validate.SemesterData(res.Data, e.defaults.For(s))
		report.Reports[s] = rep
		for _, msg := range rep.Errors {
			report.warnf("%s semester: %s", s, msg)
		}
		for _, msg := range rep.Warnings {
			report.warnf("%s semester: %s", s, msg)
		}
		if rep.Repaired() {
			e.log.Warn("data recovery applied fixes", "semester", s,
				"errors", len(rep.Errors), "warnings", len(rep.Warnings))
			repaired = append(repaired, s)
		}
		loaded[s] = data
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = active
	for s, data := range loaded {
		e.data[s] = ptr(data)
	}
	e.report = report
	e.phase = Ready
	for _, s := range repaired {
		e.scheduleLocked(DataKey(s))
	}
	e.log.Info("semester data loaded", "active", active, "repairs", report.Count())
}

func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

func (e *Engine) LoadReport() LoadReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := LoadReport{Reports: make(map[model.Semester]validate.Report, len(e.report.Reports))}
	for s, r := range e.report.Reports {
		out.Reports[s] = r
	}
	out.Warnings = append(out.Warnings, e.report.Warnings...)
	return out
}

func (e *Engine) ActiveSemester() model.Semester {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// SetActiveSemester switches the selector. Selecting the active semester, or
// an invalid one, does nothing.
func (e *Engine) SetActiveSemester(s model.Semester) {
	if !s.Valid() {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == s {
		return
	}
	e.active = s
	e.scheduleLocked(KeyActiveSemester)
}

func (e *Engine) Courses() []model.Course {
	e.mu.Lock()
	defer e.mu.Unlock()
	return model.CloneCourses(e.data[e.active].Courses)
}

func (e *Engine) Tasks() model.Tasks {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.data[e.active].Tasks.Clone()
}

func (e *Engine) TaskStatus() model.TaskStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.data[e.active].TaskStatus.Clone()
}

// OtherSemesterCourses returns the inactive semester's courses.
func (e *Engine) OtherSemesterCourses() []model.Course {
	e.mu.Lock()
	defer e.mu.Unlock()
	return model.CloneCourses(e.data[e.active.Other()].Courses)
}

// Snapshot returns a copy of s's data.
func (e *Engine) Snapshot(s model.Semester) model.SemesterData {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !s.Valid() {
		s = e.active
	}
	return e.data[s].Clone()
}

func (e *Engine) SetCourses(courses []model.Course) {
	e.mutate(func(d *model.SemesterData) {
		d.Courses = model.CloneCourses(courses)
	})
}

func (e *Engine) SetTasks(tasks model.Tasks) {
	e.mutate(func(d *model.SemesterData) {
		d.Tasks = tasks.Clone()
	})
}

func (e *Engine) SetTaskStatus(status model.TaskStatus) {
	e.mutate(func(d *model.SemesterData) {
		d.TaskStatus = status.Clone()
	})
}

// UpdateTaskStatus applies fn to a copy of the latest status map and stores
// the result. fn runs with the engine locked and must not call back into it.
func (e *Engine) UpdateTaskStatus(fn func(model.TaskStatus) model.TaskStatus) {
	e.mutate(func(d *model.SemesterData) {
		next := fn(d.TaskStatus.Clone())
		if next == nil {
			next = model.TaskStatus{}
		}
		d.TaskStatus = next
	})
}

// ReplaceSemester swaps s's data wholesale, whether or not s is active. It is
// used for imports and resets from outside the interactive session.
func (e *Engine) ReplaceSemester(s model.Semester, data model.SemesterData) {
	if !s.Valid() {
		return
	}
	data = data.Clone()
	if data.TaskStatus == nil {
		data.TaskStatus = model.TaskStatus{}
	}
	if data.Courses == nil {
		data.Courses = []model.Course{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.data[s] = &data
	e.scheduleLocked(DataKey(s))
}

func (e *Engine) mutate(fn func(*model.SemesterData)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.data[e.active])
	e.scheduleLocked(DataKey(e.active))
}

// CopyCourses appends the active semester's courses to the other semester
// under fresh IDs. Courses whose code already exists in the target, compared
// case-insensitively, are skipped. Statuses are not copied. It returns how
// many courses were added.
func (e *Engine) CopyCourses() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	src := e.data[e.active]
	dst := e.data[e.active.Other()]
	next := e.nextIDLocked()
	copied := 0
	for _, c := range src.Courses {
		if _, exists := model.FindByCode(dst.Courses, c.Code); exists {
			continue
		}
		dst.Courses = append(dst.Courses, model.Course{ID: next, Code: c.Code})
		next++
		copied++
	}
	if copied > 0 {
		e.scheduleLocked(DataKey(e.active.Other()))
	}
	return copied
}

// nextIDLocked returns a millisecond timestamp, bumped past every course ID
// in either semester.
func (e *Engine) nextIDLocked() int64 {
	id := e.now().UnixMilli()
	if max := model.MaxID(e.data[model.Start].Courses, e.data[model.End].Courses); id <= max {
		id = max + 1
	}
	return id
}

func (e *Engine) Status() SaveStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return SaveStatus{
		IsLoading:    e.phase != Ready,
		Saving:       !e.idleLocked(),
		StorageError: e.storageError,
		LastSaved:    e.lastSaved,
	}
}

func (e *Engine) ClearStorageError() {
	e.mu.Lock()
	e.storageError = ""
	e.mu.Unlock()
}

// Flush blocks until every scheduled save has been attempted.
func (e *Engine) Flush() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for !e.idleLocked() {
		e.idle.Wait()
	}
}

// Close flushes pending saves and stops the save workers. Later mutations
// still change memory but are no longer saved.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	close(e.quit)
	e.wg.Wait()
}

// ClearAll removes every persisted record and resets both semesters to their
// defaults. It reports whether all records were removed.
func (e *Engine) ClearAll() bool {
	e.Flush()

	e.mu.Lock()
	e.active = model.Start
	e.data[model.Start] = ptr(model.NewSemesterData(e.defaults.Start))
	e.data[model.End] = ptr(model.NewSemesterData(e.defaults.End))
	e.report = LoadReport{Reports: map[model.Semester]validate.Report{}}
	e.mu.Unlock()

	ok := true
	for _, key := range Keys() {
		if res := e.store.Remove(key); !res.OK {
			ok = false
			e.log.Error("failed to clear record", "key", key, "error", res.Error)
			e.mu.Lock()
			e.storageError = "Failed to clear data: " + res.Error
			e.mu.Unlock()
		}
	}
	if ok {
		e.log.Info("all data cleared")
	}
	return ok
}
