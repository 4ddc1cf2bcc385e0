package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Diagnostic is a snapshot of stored state taken when something goes wrong,
// meant to be attached to a bug report.
type Diagnostic struct {
	ID        string            `json:"id"`
	Timestamp string            `json:"timestamp"`
	Error     string            `json:"error,omitempty"`
	GoVersion string            `json:"go_version"`
	Platform  string            `json:"platform"`
	Records   map[string]string `json:"records"`
	Recent    []ErrorEntry      `json:"recent_errors,omitempty"`
}

// WriteDiagnosticReport writes a diagnostic file into dir and returns its path.
// records holds the raw persisted values by key; recent is optional.
func WriteDiagnosticReport(dir string, cause error, records map[string]string, recent []ErrorEntry) (string, error) {
	d := Diagnostic{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Records:   records,
		Recent:    recent,
	}
	if cause != nil {
		d.Error = cause.Error()
	}
	if d.Records == nil {
		d.Records = map[string]string{}
	}

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal diagnostic: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	path := filepath.Join(dir, "coursematrix-diagnostic-"+d.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write diagnostic: %w", err)
	}
	return path, nil
}

type ErrorEntry struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// ErrorLog keeps the most recent storage errors for diagnostics. Record fits
// storage.Manager's error handler.
type ErrorLog struct {
	mu      sync.Mutex
	max     int
	entries []ErrorEntry
}

func NewErrorLog(max int) *ErrorLog {
	if max < 1 {
		max = 1
	}
	return &ErrorLog{max: max}
}

func (l *ErrorLog) Record(err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, ErrorEntry{At: time.Now().UTC(), Message: err.Error()})
	if over := len(l.entries) - l.max; over > 0 {
		l.entries = append(l.entries[:0:0], l.entries[over:]...)
	}
}

// Recent returns the recorded errors, oldest first.
func (l *ErrorLog) Recent() []ErrorEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ErrorEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
