// Package config resolves runtime settings from the environment. Command-line
// flags are applied on top by the cli package.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/sadopc/coursematrix/internal/storage"
	"github.com/sadopc/coursematrix/internal/store"
)

// DefaultQuota mirrors the usual per-origin budget of browser local storage.
const DefaultQuota int64 = 5 << 20

type Config struct {
	DBPath  string
	Quota   int64
	LogFile string // "-" logs to stderr
	Debug   bool
	Retries int
}

// Default returns the built-in settings. Paths fall back to the working
// directory when no user config directory exists.
func Default() Config {
	dbPath, err := store.DefaultDBPath()
	if err != nil {
		dbPath = "coursematrix.db"
	}
	return Config{
		DBPath:  dbPath,
		Quota:   DefaultQuota,
		LogFile: filepath.Join(filepath.Dir(dbPath), "coursematrix.log"),
		Retries: storage.DefaultRetries,
	}
}

// Load reads COURSEMATRIX_* variables over the defaults. Unparsable values are
// ignored.
func Load() Config {
	cfg := Default()

	if v := os.Getenv("COURSEMATRIX_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("COURSEMATRIX_QUOTA"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			cfg.Quota = n
		}
	}
	if v := os.Getenv("COURSEMATRIX_LOG"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("COURSEMATRIX_DEBUG"); v != "" {
		cfg.Debug, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("COURSEMATRIX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Retries = n
		}
	}
	return cfg
}

// ReportDir is where diagnostic reports are written.
func (c Config) ReportDir() string {
	if c.DBPath == ":memory:" || c.DBPath == "" {
		return os.TempDir()
	}
	return filepath.Join(filepath.Dir(c.DBPath), "reports")
}
