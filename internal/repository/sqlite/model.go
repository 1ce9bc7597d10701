package sqlite

import "time"

// Entry is one row of the device key/value store
type Entry struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}
