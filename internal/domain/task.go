package domain

import (
	"strconv"
	"strings"
	"time"
)

// LocalIDPrefix marks identifiers issued on the device before the backend has
// confirmed the record.
const LocalIDPrefix = "local_"

// IDKind tells whether a TaskID was issued by the backend or by the device.
type IDKind int

const (
	// RemoteKind IDs were assigned by the remote task store
	RemoteKind IDKind = iota
	// LocalKind IDs are placeholders created while offline
	LocalKind
)

// TaskID identifies a task. It is either Local(placeholder) or Remote(id).
type TaskID struct {
	kind  IDKind
	value string
}

// NewRemoteID wraps a backend-issued identifier.
func NewRemoteID(id string) TaskID {
	return TaskID{kind: RemoteKind, value: id}
}

// NewLocalID builds a placeholder from a creation time in unix milliseconds.
func NewLocalID(millis int64) TaskID {
	return TaskID{kind: LocalKind, value: strconv.FormatInt(millis, 10)}
}

// ParseTaskID reads the text form produced by String.
func ParseTaskID(s string) TaskID {
	if strings.HasPrefix(s, LocalIDPrefix) {
		return TaskID{kind: LocalKind, value: strings.TrimPrefix(s, LocalIDPrefix)}
	}
	return NewRemoteID(s)
}

// IsLocal reports whether the ID is a device-issued placeholder.
func (id TaskID) IsLocal() bool {
	return id.kind == LocalKind
}

// IsZero reports whether the ID is unset.
func (id TaskID) IsZero() bool {
	return id.value == ""
}

// Kind returns the issuing side of the ID.
func (id TaskID) Kind() IDKind {
	return id.kind
}

// String returns the storage and wire form of the ID.
func (id TaskID) String() string {
	if id.kind == LocalKind {
		return LocalIDPrefix + id.value
	}
	return id.value
}

// MarshalText implements encoding.TextMarshaler.
func (id TaskID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *TaskID) UnmarshalText(text []byte) error {
	*id = ParseTaskID(string(text))
	return nil
}

// Document references a blob held by the document store.
type Document struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}

// Task represents a todo item in the domain model.
// PendingSync and PendingDocumentURI are device-only bookkeeping and are never
// sent to the backend.
type Task struct {
	ID                 TaskID    `json:"id"`
	Title              string    `json:"title"`
	Description        string    `json:"description,omitempty"`
	Completed          bool      `json:"completed"`
	CreatedAt          time.Time `json:"createdAt"`
	UserID             string    `json:"userId"`
	Document           *Document `json:"document,omitempty"`
	PendingSync        bool      `json:"pendingSync,omitempty"`
	PendingDocumentURI string    `json:"pendingDocumentUri,omitempty"`
}

// NewTask creates a new, not yet identified task owned by userID.
func NewTask(userID, title string, createdAt time.Time) Task {
	return Task{
		Title:     title,
		UserID:    userID,
		CreatedAt: createdAt.UTC(),
	}
}

// IsValid checks if the task has the fields every stored record carries.
func (t Task) IsValid() bool {
	return t.Title != "" && t.UserID != "" && !t.ID.IsZero()
}

// HasDocument reports whether a document is attached.
func (t Task) HasDocument() bool {
	return t.Document != nil && t.Document.ID != ""
}

// Clone returns a deep copy so the caller can mutate it freely.
func (t Task) Clone() Task {
	if t.Document != nil {
		doc := *t.Document
		t.Document = &doc
	}
	return t
}

// String returns the task title for display purposes.
func (t Task) String() string {
	return t.Title
}

// CloneTasks deep-copies a task list.
func CloneTasks(tasks []Task) []Task {
	if tasks == nil {
		return []Task{}
	}
	out := make([]Task, len(tasks))
	for i, task := range tasks {
		out[i] = task.Clone()
	}
	return out
}

// DocumentKey is the owner-scoped key a task's attachment is stored under.
func DocumentKey(userID string, id TaskID) string {
	return "todo_docs/" + userID + "/" + id.String()
}

// TaskUpdate is a partial update; nil fields are left untouched.
type TaskUpdate struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Completed   *bool     `json:"completed,omitempty"`
	Document    *Document `json:"document,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u TaskUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Completed == nil && u.Document == nil
}

// Apply returns a copy of t with the update applied.
func (u TaskUpdate) Apply(t Task) Task {
	t = t.Clone()
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Completed != nil {
		t.Completed = *u.Completed
	}
	if u.Document != nil {
		doc := *u.Document
		t.Document = &doc
	}
	return t
}

// FullUpdate builds an update carrying every mutable field of t.
func FullUpdate(t Task) TaskUpdate {
	title := t.Title
	description := t.Description
	completed := t.Completed
	update := TaskUpdate{
		Title:       &title,
		Description: &description,
		Completed:   &completed,
	}
	if t.Document != nil {
		doc := *t.Document
		update.Document = &doc
	}
	return update
}

// StringPtr is a helper for building updates.
func StringPtr(s string) *string { return &s }

// BoolPtr is a helper for building updates.
func BoolPtr(b bool) *bool { return &b }

// Tombstone records a delete of a backend record made while it could not be
// confirmed remotely. DocumentID names the attachment to remove with it.
type Tombstone struct {
	TaskID     string `json:"taskId"`
	DocumentID string `json:"documentId,omitempty"`
}
