package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"COURSEMATRIX_DB", "COURSEMATRIX_QUOTA", "COURSEMATRIX_LOG", "COURSEMATRIX_DEBUG", "COURSEMATRIX_RETRIES"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, "coursematrix.db", filepath.Base(cfg.DBPath))
	assert.Equal(t, DefaultQuota, cfg.Quota)
	assert.Equal(t, 2, cfg.Retries)
	assert.False(t, cfg.Debug)
	assert.Equal(t, filepath.Dir(cfg.DBPath), filepath.Dir(cfg.LogFile))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("COURSEMATRIX_DB", ":memory:")
	t.Setenv("COURSEMATRIX_QUOTA", "0")
	t.Setenv("COURSEMATRIX_LOG", "-")
	t.Setenv("COURSEMATRIX_DEBUG", "true")
	t.Setenv("COURSEMATRIX_RETRIES", "5")

	cfg := Load()

	assert.Equal(t, Config{DBPath: ":memory:", Quota: 0, LogFile: "-", Debug: true, Retries: 5}, cfg)
	assert.NotEmpty(t, cfg.ReportDir())
}

func TestLoadIgnoresBadValues(t *testing.T) {
	t.Setenv("COURSEMATRIX_QUOTA", "lots")
	t.Setenv("COURSEMATRIX_RETRIES", "-1")

	cfg := Load()

	assert.Equal(t, DefaultQuota, cfg.Quota)
	assert.Equal(t, 2, cfg.Retries)
}

func TestReportDir(t *testing.T) {
	cfg := Config{DBPath: filepath.Join("data", "cm.db")}
	assert.Equal(t, filepath.Join("data", "reports"), cfg.ReportDir())
}
