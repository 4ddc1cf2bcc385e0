package store

import "time"

// Item is one stored record.
type Item struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}
