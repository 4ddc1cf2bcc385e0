package tui

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sadopc/coursematrix/internal/semester"
)

// saveIndicator mirrors the engine's save state between ticks.
type saveIndicator struct {
	status semester.SaveStatus
	now    func() time.Time
}

func newSaveIndicator() saveIndicator {
	return saveIndicator{now: time.Now}
}

func (s *saveIndicator) sync(e *semester.Engine) {
	s.status = e.Status()
}

func (s saveIndicator) hasError() bool {
	return s.status.StorageError != ""
}

func (s saveIndicator) view() string {
	switch {
	case s.status.IsLoading:
		return mutedStyle.Render("Loading...")
	case s.status.Saving:
		return warningStyle.Render("● Saving...")
	case s.hasError():
		return errorStyle.Render("✗ Not saved")
	case s.status.LastSaved.IsZero():
		return ""
	}
	return successStyle.Render("✓ Saved " + humanize.RelTime(s.status.LastSaved, s.now(), "ago", "from now"))
}

func (s saveIndicator) banner(width int) string {
	if !s.hasError() {
		return ""
	}
	text := truncate(s.status.StorageError, max(width-20, 10))
	return bannerStyle.Width(width).Render("⚠ " + text + "   x: dismiss")
}
