package api

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"todo-sync/internal/domain"
	"todo-sync/internal/errors"
	"todo-sync/internal/remote"
)

// memoryTaskStore is an in-memory backend task table
type memoryTaskStore struct {
	mu        sync.Mutex
	tasks     map[string]domain.Task
	nextID    int
	createErr error
}

func newMemoryTaskStore() *memoryTaskStore {
	return &memoryTaskStore{tasks: make(map[string]domain.Task)}
}

func (m *memoryTaskStore) ListByOwner(ctx context.Context, userID string) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Task
	for _, task := range m.tasks {
		if task.UserID == userID {
			out = append(out, task.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryTaskStore) Create(ctx context.Context, task domain.Task) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return "", m.createErr
	}
	m.nextID++
	id := fmt.Sprintf("srv-%d", m.nextID)
	task.ID = domain.NewRemoteID(id)
	task.PendingSync = false
	task.PendingDocumentURI = ""
	m.tasks[id] = task.Clone()
	return id, nil
}

func (m *memoryTaskStore) Update(ctx context.Context, id string, update domain.TaskUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return errors.NewRejectedError("update task", 404, "task not found")
	}
	m.tasks[id] = update.Apply(task)
	return nil
}

func (m *memoryTaskStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return errors.NewRejectedError("delete task", 404, "task not found")
	}
	delete(m.tasks, id)
	return nil
}

func (m *memoryTaskStore) get(id string) (domain.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	return task, ok
}

func (m *memoryTaskStore) setCreateErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createErr = err
}

// memoryDocumentStore records uploads by key
type memoryDocumentStore struct {
	mu      sync.Mutex
	uploads map[string][]byte
}

func newMemoryDocumentStore() *memoryDocumentStore {
	return &memoryDocumentStore{uploads: make(map[string][]byte)}
}

func (m *memoryDocumentStore) Upload(ctx context.Context, data []byte, filename, key string) (domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads[key] = data
	return domain.Document{ID: "doc:" + key, URL: "https://docs.example.com/" + key}, nil
}

func (m *memoryDocumentStore) Delete(ctx context.Context, id string) error {
	return nil
}

func (m *memoryDocumentStore) uploaded(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.uploads[key]
	return data, ok
}

// fakeAccounts answers the account endpoints
type fakeAccounts struct {
	calls   int
	err     error
	profile *domain.User
	renamed string
}

func (f *fakeAccounts) respond(email string) (*remote.AuthResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &remote.AuthResponse{
		Token: "token-for-" + email,
		User:  domain.User{ID: "u-" + email, Name: "Ann", Email: email, Role: domain.DefaultRole},
	}, nil
}

func (f *fakeAccounts) Signup(ctx context.Context, name, email, password string) (*remote.AuthResponse, error) {
	return f.respond(email)
}

func (f *fakeAccounts) Login(ctx context.Context, email, password string) (*remote.AuthResponse, error) {
	return f.respond(email)
}

func (f *fakeAccounts) Profile(ctx context.Context) (*domain.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

func (f *fakeAccounts) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (*domain.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	f.renamed = *update.Name
	return &domain.User{ID: "u1", Name: *update.Name, Email: "ann@example.com", Role: domain.DefaultRole}, nil
}
