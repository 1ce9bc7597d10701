package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"todo-sync/internal/api"
	"todo-sync/internal/auth"
	"todo-sync/internal/domain"
	"todo-sync/internal/errors"
	"todo-sync/internal/services"
)

// mockBusinessAPI implements the BusinessAPI interface for testing
type mockBusinessAPI struct {
	tasks    map[string]*domain.Task
	nextID   int
	online   bool
	autoSync bool
	session  *auth.Session

	// Injected failures
	listErr error
	addErr  error

	syncResult *services.SyncResult
	syncErr    error
	lastSync   *time.Time
}

// newMockBusinessAPI creates a signed-in, online mock
func newMockBusinessAPI() *mockBusinessAPI {
	return &mockBusinessAPI{
		tasks:    make(map[string]*domain.Task),
		nextID:   1,
		online:   true,
		autoSync: true,
		session:  &auth.Session{UserID: "u1", Email: "ann@example.com", Name: "Ann"},
	}
}

var _ api.BusinessAPI = (*mockBusinessAPI)(nil)

func (m *mockBusinessAPI) requireSession() error {
	if m.session == nil {
		return errors.NewPermissionError("not signed in; run 'todo login' first", "session")
	}
	return nil
}

func (m *mockBusinessAPI) Signup(ctx context.Context, name, email, password string) (*auth.Session, error) {
	if password == "" {
		return nil, errors.NewValidationError("password is required", nil)
	}
	m.session = &auth.Session{UserID: "u-" + email, Email: email, Name: name}
	return m.session, nil
}

func (m *mockBusinessAPI) Login(ctx context.Context, email, password string) (*auth.Session, error) {
	if password != "secret1" {
		return nil, errors.NewRejectedError("log in", 401, "invalid email or password")
	}
	m.session = &auth.Session{UserID: "u-" + email, Email: email}
	return m.session, nil
}

func (m *mockBusinessAPI) pending() int {
	count := 0
	for _, task := range m.tasks {
		if task.PendingSync {
			count++
		}
	}
	return count
}

func (m *mockBusinessAPI) Logout(ctx context.Context, force bool) error {
	if pending := m.pending(); pending > 0 && !force {
		return errors.NewPendingChangesError("logout", pending)
	}
	m.session = nil
	m.tasks = make(map[string]*domain.Task)
	return nil
}

func (m *mockBusinessAPI) UpdateProfile(ctx context.Context, name string) (*domain.User, error) {
	if err := m.requireSession(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, errors.NewValidationError("name is required", nil)
	}
	if !m.online {
		return nil, errors.NewUnreachableError("update profile", nil)
	}
	m.session.Name = name
	return &domain.User{ID: m.session.UserID, Email: m.session.Email, Name: name}, nil
}

func (m *mockBusinessAPI) ClearLocalData(ctx context.Context, force bool) (int, error) {
	if pending := m.pending(); pending > 0 && !force {
		return 0, errors.NewPendingChangesError("clear local data", pending)
	}
	cleared := 0
	if len(m.tasks) > 0 {
		cleared = 1
	}
	m.tasks = make(map[string]*domain.Task)
	return cleared, nil
}

func (m *mockBusinessAPI) WhoAmI(ctx context.Context) (*domain.User, error) {
	if err := m.requireSession(); err != nil {
		return nil, err
	}
	return &domain.User{ID: m.session.UserID, Email: m.session.Email, Name: m.session.Name}, nil
}

func (m *mockBusinessAPI) ListTasks(ctx context.Context) ([]domain.Task, error) {
	if err := m.requireSession(); err != nil {
		return nil, err
	}
	if m.listErr != nil {
		return nil, m.listErr
	}
	tasks := make([]domain.Task, 0, len(m.tasks))
	for _, task := range m.tasks {
		tasks = append(tasks, task.Clone())
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.After(tasks[j].CreatedAt) })
	return tasks, nil
}

func (m *mockBusinessAPI) AddTask(ctx context.Context, title, description, documentPath string) (*domain.Task, error) {
	if err := m.requireSession(); err != nil {
		return nil, err
	}
	if m.addErr != nil {
		return nil, m.addErr
	}
	if len(title) < 3 {
		return nil, errors.NewValidationError("title must be between 3 and 50 characters long", nil)
	}

	createdAt := time.Date(2024, 3, 1, 9, 0, m.nextID, 0, time.UTC)
	id := domain.NewRemoteID(fmt.Sprintf("t%d", m.nextID))
	if !m.online {
		id = domain.NewLocalID(createdAt.UnixMilli())
	}
	m.nextID++

	task := &domain.Task{
		ID:          id,
		Title:       title,
		Description: description,
		CreatedAt:   createdAt,
		UserID:      m.session.UserID,
		PendingSync: !m.online,
	}
	if documentPath != "" {
		if m.online {
			task.Document = &domain.Document{ID: "d-" + id.String(), URL: "https://docs.example.com/" + id.String()}
		} else {
			task.PendingDocumentURI = documentPath
		}
	}
	m.tasks[id.String()] = task
	clone := task.Clone()
	return &clone, nil
}

func (m *mockBusinessAPI) lookup(id string) (*domain.Task, error) {
	if err := m.requireSession(); err != nil {
		return nil, err
	}
	task, ok := m.tasks[id]
	if !ok {
		return nil, errors.NewNotFoundError("task", id)
	}
	return task, nil
}

func (m *mockBusinessAPI) EditTask(ctx context.Context, id string, update domain.TaskUpdate) (*domain.Task, error) {
	task, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		return nil, errors.NewValidationError("nothing to update", nil)
	}
	updated := update.Apply(*task)
	updated.PendingSync = task.PendingSync || !m.online
	m.tasks[id] = &updated
	clone := updated.Clone()
	return &clone, nil
}

func (m *mockBusinessAPI) ToggleComplete(ctx context.Context, id string) (*domain.Task, error) {
	task, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return m.EditTask(ctx, id, domain.TaskUpdate{Completed: domain.BoolPtr(!task.Completed)})
}

func (m *mockBusinessAPI) AttachDocument(ctx context.Context, id, documentPath string) (*domain.Task, error) {
	task, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	if m.online {
		task.Document = &domain.Document{ID: "d-" + id, URL: "https://docs.example.com/" + id}
	} else {
		task.PendingDocumentURI = documentPath
		task.PendingSync = true
	}
	clone := task.Clone()
	return &clone, nil
}

func (m *mockBusinessAPI) DeleteTask(ctx context.Context, id string) error {
	if _, err := m.lookup(id); err != nil {
		return err
	}
	delete(m.tasks, id)
	return nil
}

func (m *mockBusinessAPI) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	task, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	clone := task.Clone()
	return &clone, nil
}

func (m *mockBusinessAPI) SyncNow(ctx context.Context) (*services.SyncResult, error) {
	if err := m.requireSession(); err != nil {
		return nil, err
	}
	if !m.online {
		return &services.SyncResult{Offline: true}, errors.NewUnreachableError("sync", nil)
	}
	if m.syncResult != nil {
		return m.syncResult, m.syncErr
	}
	return &services.SyncResult{}, nil
}

func (m *mockBusinessAPI) Status(ctx context.Context) (*api.SyncStatus, error) {
	if err := m.requireSession(); err != nil {
		return nil, err
	}
	pending := m.pending()
	return &api.SyncStatus{
		UserID:   m.session.UserID,
		Email:    m.session.Email,
		Online:   m.online,
		LastSync: m.lastSync,
		Pending:  pending,
		AutoSync: m.autoSync,
	}, nil
}

func (m *mockBusinessAPI) SetAutoSync(ctx context.Context, enabled bool) error {
	m.autoSync = enabled
	return nil
}

func (m *mockBusinessAPI) Statistics(ctx context.Context) (*domain.Statistics, error) {
	tasks, err := m.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	stats := domain.ComputeStatistics(tasks)
	return &stats, nil
}
