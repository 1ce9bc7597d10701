package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"todo-sync/internal/cache"
	"todo-sync/internal/connectivity"
	"todo-sync/internal/domain"
	"todo-sync/internal/errors"
	"todo-sync/internal/logging"
	"todo-sync/internal/repository/sqlite"

	"github.com/stretchr/testify/require"
)

// fakeTaskStore is an in-memory backend
type fakeTaskStore struct {
	mu         sync.Mutex
	tasks      map[string]domain.Task
	nextID     int
	listErr    error
	createErr  error
	updateErr  error
	deleteErr  error
	failTitles map[string]error
	calls      []string
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{
		tasks:      make(map[string]domain.Task),
		failTitles: make(map[string]error),
	}
}

func (f *fakeTaskStore) ListByOwner(ctx context.Context, userID string) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Task
	for _, task := range f.tasks {
		if task.UserID == userID {
			out = append(out, task.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeTaskStore) Create(ctx context.Context, task domain.Task) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "create")
	if f.createErr != nil {
		return "", f.createErr
	}
	if err := f.failTitles[task.Title]; err != nil {
		return "", err
	}
	f.nextID++
	id := fmt.Sprintf("srv-%d", f.nextID)
	task.ID = domain.NewRemoteID(id)
	task.PendingSync = false
	task.PendingDocumentURI = ""
	f.tasks[id] = task.Clone()
	return id, nil
}

func (f *fakeTaskStore) Update(ctx context.Context, id string, update domain.TaskUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "update "+id)
	if f.updateErr != nil {
		return f.updateErr
	}
	task, ok := f.tasks[id]
	if !ok {
		return errors.NewRejectedError("update task", 404, "task not found")
	}
	f.tasks[id] = update.Apply(task)
	return nil
}

func (f *fakeTaskStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete "+id)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.tasks[id]; !ok {
		return errors.NewRejectedError("delete task", 404, "task not found")
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeTaskStore) seed(task domain.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[task.ID.String()] = task.Clone()
}

func (f *fakeTaskStore) get(id string) (domain.Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	return task, ok
}

func (f *fakeTaskStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeDocumentStore records uploads by key
type fakeDocumentStore struct {
	mu        sync.Mutex
	uploads   map[string][]byte
	deleted   []string
	uploadErr error
	deleteErr error
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{uploads: make(map[string][]byte)}
}

func (f *fakeDocumentStore) Upload(ctx context.Context, data []byte, filename, key string) (domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return domain.Document{}, f.uploadErr
	}
	f.uploads[key] = data
	id := "doc:" + key
	return domain.Document{ID: id, URL: "https://docs.example.com/" + key}, nil
}

func (f *fakeDocumentStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

// steppingClock advances one millisecond per call
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Millisecond)
		return current
	}
}

func readFakeDocument(uri string) ([]byte, string, error) {
	if uri == "missing.pdf" {
		return nil, "", fmt.Errorf("open %s: no such file", uri)
	}
	return []byte("content of " + uri), uri, nil
}

type syncFixture struct {
	service   SyncService
	store     *cache.Store
	tasks     *fakeTaskStore
	documents *fakeDocumentStore
	network   *connectivity.Static
}

func setupSyncService(t *testing.T, online bool) *syncFixture {
	t.Helper()
	repo, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	store, err := cache.New(repo, 8, logging.Discard())
	require.NoError(t, err)

	f := &syncFixture{
		store:     store,
		tasks:     newFakeTaskStore(),
		documents: newFakeDocumentStore(),
		network:   connectivity.NewStatic(online),
	}
	f.service = NewSyncService(SyncDeps{
		Cache:        store,
		Oracle:       f.network,
		Tasks:        f.tasks,
		Documents:    f.documents,
		Logger:       logging.Discard(),
		Now:          steppingClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)),
		ReadDocument: readFakeDocument,
	})
	return f
}
