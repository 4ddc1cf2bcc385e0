// Package storage is a best-effort adapter over a synchronous key/value
// backend. Values are stored as JSON, writes are verified by reading them
// back, and no operation returns an error or panics on storage failure:
// callers get a Result instead.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultRetries is how many times a failed write is retried.
const DefaultRetries = 2

var (
	// ErrQuotaExceeded marks a write rejected for lack of space.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrSecurity marks a backend that refuses access (read-only, denied).
	ErrSecurity = errors.New("storage access denied")
	// ErrUnavailable marks a backend that cannot be used at all.
	ErrUnavailable = errors.New("storage is not available")

	errVerify = errors.New("data verification failed after storage")
)

// evictable lists key fragments that mark data safe to drop when space runs out.
var evictable = []string{"temp_", "cache_"}

// Backend is the underlying synchronous key/value store.
type Backend interface {
	GetItem(key string) (string, bool, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
	Keys() ([]string, error)
}

// Result reports the outcome of an adapter operation. On failure Data holds
// the caller's fallback, if any.
type Result[T any] struct {
	OK    bool
	Data  T
	Error string
}

// Info describes the backend's current contents.
type Info struct {
	Used      int64
	Available bool
	Keys      []string
}

type options struct {
	retries int
	onError func(error)
}

type Option func(*options)

// WithRetries sets how many times a failed write is retried.
func WithRetries(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.retries = n
		}
	}
}

// WithErrorHandler registers a callback that observes every underlying error.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) { o.onError = fn }
}

// Manager is the storage adapter. It is safe for concurrent use.
type Manager struct {
	backend   Backend
	log       *slog.Logger
	defaults  options
	available atomic.Bool

	mu      sync.Mutex
	onError func(error)
}

// NewManager wraps backend and probes it once. Options given here become the
// defaults for every call.
func NewManager(backend Backend, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m := &Manager{
		backend:  backend,
		log:      logger,
		defaults: options{retries: DefaultRetries},
	}
	for _, opt := range opts {
		opt(&m.defaults)
	}
	if backend == nil {
		m.log.Warn("storage backend missing, running in memory only")
		return m
	}
	if !m.TestAvailability() {
		m.log.Warn("storage is not available, changes will not be persisted")
		return m
	}
	m.available.Store(true)
	return m
}

// SetErrorHandler replaces the manager-wide error observer.
func (m *Manager) SetErrorHandler(fn func(error)) {
	m.mu.Lock()
	m.onError = fn
	m.mu.Unlock()
}

// Available reports whether operations currently reach the backend.
func (m *Manager) Available() bool {
	return m.available.Load()
}

// TestAvailability performs a write/read/delete round trip on a throwaway key.
// It does not change the availability flag.
func (m *Manager) TestAvailability() bool {
	if m.backend == nil {
		return false
	}
	key := "__storage_test_" + uuid.NewString()
	probe, _ := json.Marshal(map[string]any{"test": true, "timestamp": time.Now().UnixMilli()})
	if err := m.backend.SetItem(key, string(probe)); err != nil {
		return false
	}
	got, ok, err := m.backend.GetItem(key)
	if err := m.backend.RemoveItem(key); err != nil {
		return false
	}
	if err != nil || !ok {
		return false
	}
	var back struct {
		Test bool `json:"test"`
	}
	return json.Unmarshal([]byte(got), &back) == nil && back.Test
}

// Write stores value as JSON under key and verifies it by reading it back.
// A quota failure first evicts temporary and cache keys, then retries.
func (m *Manager) Write(key string, value any, opts ...Option) Result[struct{}] {
	o := m.callOptions(opts)
	if !m.available.Load() {
		return Result[struct{}]{Error: ErrUnavailable.Error()}
	}

	serialized, err := json.Marshal(value)
	if err != nil {
		m.handleError(err, "write", o)
		return Result[struct{}]{Error: fmt.Sprintf("Failed to serialize data: %v", err)}
	}

	var lastErr error
	evicted := false
	for attempt := 0; attempt <= o.retries; attempt++ {
		lastErr = m.writeVerified(key, string(serialized))
		if lastErr == nil {
			if evicted {
				m.available.Store(true)
			}
			return Result[struct{}]{OK: true}
		}
		m.handleError(lastErr, "write", o)

		if errors.Is(lastErr, ErrQuotaExceeded) && attempt < o.retries {
			m.evictTemporary()
			evicted = true
			continue
		}
		if errors.Is(lastErr, ErrSecurity) || errors.Is(lastErr, ErrUnavailable) {
			break
		}
	}
	return Result[struct{}]{Error: fmt.Sprintf("Failed to store data: %v", lastErr)}
}

func (m *Manager) writeVerified(key, serialized string) error {
	if err := m.backend.SetItem(key, serialized); err != nil {
		return err
	}
	stored, ok, err := m.backend.GetItem(key)
	if err != nil {
		return err
	}
	if !ok || stored != serialized {
		return errVerify
	}
	return nil
}

// ReadRaw returns the stored JSON for key. A missing key succeeds with nil
// Data; a value that is not valid JSON fails.
func (m *Manager) ReadRaw(key string, opts ...Option) Result[json.RawMessage] {
	o := m.callOptions(opts)
	if !m.available.Load() {
		return Result[json.RawMessage]{Error: ErrUnavailable.Error()}
	}

	item, ok, err := m.backend.GetItem(key)
	if err != nil {
		m.handleError(err, "read", o)
		return Result[json.RawMessage]{Error: fmt.Sprintf("Failed to retrieve data: %v", err)}
	}
	if !ok {
		return Result[json.RawMessage]{OK: true}
	}
	if !json.Valid([]byte(item)) {
		err := fmt.Errorf("value under %q is not valid JSON", key)
		m.handleError(err, "read", o)
		return Result[json.RawMessage]{Error: fmt.Sprintf("Failed to retrieve data: %v", err)}
	}
	return Result[json.RawMessage]{OK: true, Data: json.RawMessage(item)}
}

// Read decodes the value under key into T. Missing keys yield fallback with
// OK set; unreadable or undecodable values yield fallback without it.
func Read[T any](m *Manager, key string, fallback T, opts ...Option) Result[T] {
	raw := m.ReadRaw(key, opts...)
	if !raw.OK {
		return Result[T]{Data: fallback, Error: raw.Error}
	}
	if raw.Data == nil {
		return Result[T]{OK: true, Data: fallback}
	}
	var v T
	if err := json.Unmarshal(raw.Data, &v); err != nil {
		m.handleError(err, "read", m.callOptions(opts))
		return Result[T]{Data: fallback, Error: fmt.Sprintf("Failed to retrieve data: %v", err)}
	}
	return Result[T]{OK: true, Data: v}
}

func (m *Manager) Remove(key string) Result[struct{}] {
	if !m.available.Load() {
		return Result[struct{}]{Error: ErrUnavailable.Error()}
	}
	if err := m.backend.RemoveItem(key); err != nil {
		m.handleError(err, "remove", m.defaults)
		return Result[struct{}]{Error: fmt.Sprintf("Failed to remove data: %v", err)}
	}
	return Result[struct{}]{OK: true}
}

// Info lists stored keys and the bytes they occupy.
func (m *Manager) Info() Info {
	if !m.available.Load() {
		return Info{}
	}
	keys, err := m.backend.Keys()
	if err != nil {
		m.log.Warn("failed to get storage info", "error", err)
		return Info{}
	}
	info := Info{Available: true, Keys: keys}
	if u, ok := m.backend.(interface{ Usage() (int64, error) }); ok {
		if used, err := u.Usage(); err == nil {
			info.Used = used
			return info
		}
	}
	for _, k := range keys {
		if v, ok, err := m.backend.GetItem(k); err == nil && ok {
			info.Used += int64(len(k) + len(v))
		}
	}
	return info
}

func (m *Manager) evictTemporary() {
	keys, err := m.backend.Keys()
	if err != nil {
		m.log.Warn("failed to clear old data", "error", err)
		return
	}
	for _, k := range keys {
		if !isEvictable(k) {
			continue
		}
		if err := m.backend.RemoveItem(k); err == nil {
			m.log.Info("evicted temporary key", "key", k)
		}
	}
}

func isEvictable(key string) bool {
	for _, frag := range evictable {
		if strings.Contains(key, frag) {
			return true
		}
	}
	return false
}

func (m *Manager) handleError(err error, op string, o options) {
	m.log.Error("storage operation failed", "op", op, "error", err)

	m.mu.Lock()
	global := m.onError
	m.mu.Unlock()
	if global != nil {
		global(err)
	}
	if o.onError != nil {
		o.onError(err)
	}

	if errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrSecurity) || errors.Is(err, ErrUnavailable) {
		m.available.Store(false)
	}
}

func (m *Manager) callOptions(opts []Option) options {
	o := m.defaults
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
