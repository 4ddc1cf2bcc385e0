package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sadopc/coursematrix/internal/config"
	"github.com/sadopc/coursematrix/internal/export"
	"github.com/sadopc/coursematrix/internal/model"
	"github.com/sadopc/coursematrix/internal/semester"
	"github.com/sadopc/coursematrix/internal/storage"
	"github.com/sadopc/coursematrix/internal/store"
)

// recentErrors bounds how many adapter errors a diagnostic report carries.
const recentErrors = 20

// session is one opened database with its engine running on top.
type session struct {
	log     *slog.Logger
	logFile io.Closer
	store   *store.Store // nil when the database could not be opened
	manager *storage.Manager
	engine  *semester.Engine
	errors  *export.ErrorLog
}

// openSession opens the database and loads both semesters. A database that
// cannot be opened is not fatal: the engine runs on a disabled backend and
// reports the storage error like any other.
func openSession(cfg config.Config, stderr io.Writer) (*session, error) {
	logger, closer, err := newLogger(cfg.LogFile, cfg.Debug, stderr)
	if err != nil {
		return nil, err
	}
	s := &session{
		log:     logger,
		logFile: closer,
		errors:  export.NewErrorLog(recentErrors),
	}

	var backend storage.Backend
	st, err := store.New(cfg.DBPath, store.WithQuota(cfg.Quota))
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DBPath, "error", err)
		backend = storage.DisabledBackend{Cause: err}
	} else {
		s.store = st
		backend = st
	}

	s.manager = storage.NewManager(backend, logger.With("component", "storage"), storage.WithRetries(cfg.Retries))
	s.manager.SetErrorHandler(s.errors.Record)
	s.engine = semester.New(s.manager, semester.StockDefaults(),
		semester.WithLogger(logger.With("component", "semester")))
	return s, nil
}

// commit waits for pending saves and turns a surfaced storage error into a
// command error.
func (s *session) commit() error {
	s.engine.Flush()
	if msg := s.engine.Status().StorageError; msg != "" {
		return errors.New(msg)
	}
	return nil
}

func (s *session) quota() int64 {
	if s.store == nil {
		return 0
	}
	return s.store.Quota()
}

// rawRecords returns the stored text of every engine record, bypassing JSON
// parsing so corrupt values are kept as they are.
func (s *session) rawRecords() map[string]string {
	records := map[string]string{}
	if s.store == nil {
		return records
	}
	for _, key := range semester.Keys() {
		if v, ok, err := s.store.GetItem(key); err == nil && ok {
			records[key] = v
		}
	}
	return records
}

func (s *session) Close() error {
	s.engine.Close()
	var errs []error
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if s.logFile != nil {
		errs = append(errs, s.logFile.Close())
	}
	return errors.Join(errs...)
}

// newLogger builds the process logger. The TUI owns the terminal, so logs go
// to a file unless path is "-". An empty path discards everything.
func newLogger(path string, debug bool, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	switch path {
	case "":
		return slog.New(slog.NewTextHandler(io.Discard, opts)), nil, nil
	case "-":
		return slog.New(slog.NewTextHandler(stderr, opts)), nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slog.NewTextHandler(f, opts)), f, nil
}

// parseSemester resolves a --semester flag, falling back to the active one.
func parseSemester(flag string, active model.Semester) (model.Semester, error) {
	if flag == "" {
		return active, nil
	}
	s, ok := model.ParseSemester(flag)
	if !ok {
		return "", fmt.Errorf("invalid semester %q (want %q or %q)", flag, model.Start, model.End)
	}
	return s, nil
}
