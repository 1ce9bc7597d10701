package server

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "todo-sync/internal/errors"
	"todo-sync/internal/repository/postgres"
)

// memoryUsers mimics the users table
type memoryUsers struct {
	mu    sync.Mutex
	users map[string]postgres.UserRecord
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[string]postgres.UserRecord)}
}

func (m *memoryUsers) Create(ctx context.Context, user *postgres.UserRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.Email = strings.ToLower(user.Email)
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return apperrors.NewConflictError("user", user.Email)
		}
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	m.users[user.ID] = *user
	return nil
}

func (m *memoryUsers) GetByID(ctx context.Context, id string) (*postgres.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("user", id)
	}
	return &user, nil
}

func (m *memoryUsers) GetByEmail(ctx context.Context, email string) (*postgres.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == strings.ToLower(email) {
			return &user, nil
		}
	}
	return nil, apperrors.NewNotFoundError("user", email)
}

func (m *memoryUsers) UpdateName(ctx context.Context, id, name string) (*postgres.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("user", id)
	}
	user.Name = name
	m.users[id] = user
	return &user, nil
}

func (m *memoryUsers) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return apperrors.NewNotFoundError("user", id)
	}
	user.LastLogin = &at
	m.users[id] = user
	return nil
}

// memoryTasks mimics the tasks table
type memoryTasks struct {
	mu    sync.Mutex
	tasks map[string]postgres.TaskRecord
}

func newMemoryTasks() *memoryTasks {
	return &memoryTasks{tasks: make(map[string]postgres.TaskRecord)}
}

func (m *memoryTasks) ListByOwner(ctx context.Context, userID string) ([]*postgres.TaskRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*postgres.TaskRecord{}
	for _, task := range m.tasks {
		if task.UserID == userID {
			task := task
			out = append(out, &task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryTasks) Create(ctx context.Context, task *postgres.TaskRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[task.ID]; ok {
		return apperrors.NewConflictError("task", task.ID)
	}
	task.UpdatedAt = time.Now().UTC()
	m.tasks[task.ID] = *task
	return nil
}

func (m *memoryTasks) GetByID(ctx context.Context, userID, id string) (*postgres.TaskRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok || task.UserID != userID {
		return nil, apperrors.NewNotFoundError("task", id)
	}
	return &task, nil
}

func (m *memoryTasks) Update(ctx context.Context, userID, id string, patch postgres.TaskPatch) (*postgres.TaskRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok || task.UserID != userID {
		return nil, apperrors.NewNotFoundError("task", id)
	}
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Completed != nil {
		task.Completed = *patch.Completed
	}
	if patch.DocumentID != nil {
		task.DocumentID = patch.DocumentID
		task.DocumentURL = patch.DocumentURL
	}
	task.UpdatedAt = time.Now().UTC()
	m.tasks[id] = task
	return &task, nil
}

func (m *memoryTasks) Delete(ctx context.Context, userID, id string) (*postgres.TaskRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok || task.UserID != userID {
		return nil, apperrors.NewNotFoundError("task", id)
	}
	delete(m.tasks, id)
	return &task, nil
}

// memoryDocuments mimics the documents table
type memoryDocuments struct {
	mu        sync.Mutex
	docs      map[string]postgres.DocumentRecord
	upsertErr error
}

func newMemoryDocuments() *memoryDocuments {
	return &memoryDocuments{docs: make(map[string]postgres.DocumentRecord)}
}

func (m *memoryDocuments) Upsert(ctx context.Context, doc *postgres.DocumentRecord) (*postgres.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	var previous *postgres.DocumentRecord
	for id, existing := range m.docs {
		if existing.UserID == doc.UserID && existing.Key == doc.Key {
			existing := existing
			previous = &existing
			delete(m.docs, id)
		}
	}
	doc.CreatedAt = time.Now().UTC()
	m.docs[doc.ID] = *doc
	return previous, nil
}

func (m *memoryDocuments) GetByID(ctx context.Context, userID, id string) (*postgres.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok || doc.UserID != userID {
		return nil, apperrors.NewNotFoundError("document", id)
	}
	return &doc, nil
}

func (m *memoryDocuments) Delete(ctx context.Context, userID, id string) (*postgres.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok || doc.UserID != userID {
		return nil, apperrors.NewNotFoundError("document", id)
	}
	delete(m.docs, id)
	return &doc, nil
}

type readiness struct{ err error }

func (r readiness) CheckReady(ctx context.Context) error { return r.err }

var errDatabaseDown = errors.New("connection refused")
