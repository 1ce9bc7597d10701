package postgres

import "time"

// UserRecord is a row of the users table
type UserRecord struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLogin    *time.Time
}

// TaskRecord is a row of the tasks table
type TaskRecord struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Completed   bool
	DocumentURL *string
	DocumentID  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskPatch holds the columns an update may change; nil means unchanged
type TaskPatch struct {
	Title       *string
	Description *string
	Completed   *bool
	DocumentURL *string
	DocumentID  *string
}

// DocumentRecord is a row of the documents table
type DocumentRecord struct {
	ID          string
	UserID      string
	Key         string
	Filename    string
	ContentType string
	SizeBytes   int64
	SHA256      string
	Path        string
	CreatedAt   time.Time
}
