package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sadopc/coursematrix/internal/storage"
)

func (s *Store) GetItem(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM items WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get item %q: %w", key, classify(err))
	}
	return value, true, nil
}

// SetItem inserts or replaces key. With a quota configured, a write that would
// push the table past it fails with storage.ErrQuotaExceeded and changes nothing.
func (s *Store) SetItem(key, value string) error {
	if s.quota > 0 {
		var others int64
		err := s.db.QueryRow(
			`SELECT COALESCE(SUM(length(CAST(key AS BLOB)) + length(CAST(value AS BLOB))), 0) FROM items WHERE key <> ?`, key,
		).Scan(&others)
		if err != nil {
			return fmt.Errorf("measure usage: %w", classify(err))
		}
		if others+int64(len(key)+len(value)) > s.quota {
			return fmt.Errorf("set item %q: %w (%d byte limit)", key, storage.ErrQuotaExceeded, s.quota)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT INTO items (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now,
	)
	if err != nil {
		return fmt.Errorf("set item %q: %w", key, classify(err))
	}
	return nil
}

func (s *Store) RemoveItem(key string) error {
	if _, err := s.db.Exec(`DELETE FROM items WHERE key = ?`, key); err != nil {
		return fmt.Errorf("remove item %q: %w", key, classify(err))
	}
	return nil
}

func (s *Store) Keys() ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM items ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", classify(err))
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *Store) ListItems() ([]Item, error) {
	rows, err := s.db.Query(`SELECT key, value, updated_at FROM items ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", classify(err))
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var updatedAt string
		if err := rows.Scan(&it.Key, &it.Value, &updatedAt); err != nil {
			return nil, err
		}
		it.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		items = append(items, it)
	}
	return items, rows.Err()
}

// Usage returns the bytes counted against the quota.
func (s *Store) Usage() (int64, error) {
	var used int64
	err := s.db.QueryRow(`SELECT COALESCE(SUM(length(CAST(key AS BLOB)) + length(CAST(value AS BLOB))), 0) FROM items`).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("measure usage: %w", classify(err))
	}
	return used, nil
}

func (s *Store) Quota() int64 {
	return s.quota
}
