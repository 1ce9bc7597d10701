package api

import (
	"context"
	stderrors "errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"todo-sync/internal/auth"
	"todo-sync/internal/cache"
	"todo-sync/internal/connectivity"
	"todo-sync/internal/domain"
	"todo-sync/internal/errors"
	"todo-sync/internal/remote"
	"todo-sync/internal/services"
	"todo-sync/internal/validation"
)

// AccountClient is the part of the backend client the account workflows need
type AccountClient interface {
	Signup(ctx context.Context, name, email, password string) (*remote.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*remote.AuthResponse, error)
	Profile(ctx context.Context) (*domain.User, error)
	UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (*domain.User, error)
}

// SyncStatus describes the device's view of the sync state
type SyncStatus struct {
	UserID   string     `json:"user_id"`
	Email    string     `json:"email"`
	Online   bool       `json:"online"`
	LastSync *time.Time `json:"last_sync,omitempty"`
	Pending  int        `json:"pending"`
	AutoSync bool       `json:"auto_sync"`
}

// BusinessAPI defines the user-facing workflows of the todo client
type BusinessAPI interface {
	// ========== Account Workflows ==========

	// Signup creates an account on the backend and signs the device in
	Signup(ctx context.Context, name, email, password string) (*auth.Session, error)

	// Login signs the device in with existing credentials
	Login(ctx context.Context, email, password string) (*auth.Session, error)

	// Logout forgets the session and the signed-in user's cached tasks.
	// Pending changes are replayed first; if some remain, logout is refused
	// unless force is set.
	Logout(ctx context.Context, force bool) error

	// WhoAmI returns the backend profile when online, the session otherwise
	WhoAmI(ctx context.Context) (*domain.User, error)

	// UpdateProfile renames the signed-in user on the backend
	UpdateProfile(ctx context.Context, name string) (*domain.User, error)

	// ========== Task Workflows ==========

	// ListTasks replays pending changes when online, then lists
	ListTasks(ctx context.Context) ([]domain.Task, error)

	// AddTask validates and adds a task, optionally attaching a local file
	AddTask(ctx context.Context, title, description, documentPath string) (*domain.Task, error)

	// EditTask applies a partial update
	EditTask(ctx context.Context, id string, update domain.TaskUpdate) (*domain.Task, error)

	// ToggleComplete flips the completed flag
	ToggleComplete(ctx context.Context, id string) (*domain.Task, error)

	// AttachDocument attaches or replaces the task's document
	AttachDocument(ctx context.Context, id, documentPath string) (*domain.Task, error)

	// DeleteTask removes a task
	DeleteTask(ctx context.Context, id string) error

	// GetTask returns a single cached task
	GetTask(ctx context.Context, id string) (*domain.Task, error)

	// ========== Sync and Settings ==========

	// SyncNow replays pending changes and reports every failure
	SyncNow(ctx context.Context) (*services.SyncResult, error)

	// Status reports connectivity, last sync and pending work
	Status(ctx context.Context) (*SyncStatus, error)

	// SetAutoSync toggles replay on reconnect
	SetAutoSync(ctx context.Context, enabled bool) error

	// Statistics summarizes the cached task list
	Statistics(ctx context.Context) (*domain.Statistics, error)

	// ClearLocalData removes the cached task data of every user on this
	// device and returns how many users it covered. Tasks are reloaded from
	// the backend on the next online read. Refused while unsynced changes
	// exist unless force is set.
	ClearLocalData(ctx context.Context, force bool) (int, error)
}

// Deps are the collaborators of the business API
type Deps struct {
	Sync        services.SyncService
	Sessions    *auth.SessionStore
	Accounts    AccountClient
	Preferences *cache.Preferences
	Cache       *cache.Store
	Oracle      connectivity.Oracle
	Logger      *slog.Logger
	// Optional, defaults to the built-in limits
	TaskValidator *validation.TaskValidator
}

// businessAPIImpl implements the BusinessAPI interface
type businessAPIImpl struct {
	sync             services.SyncService
	sessions         *auth.SessionStore
	accounts         AccountClient
	preferences      *cache.Preferences
	cache            *cache.Store
	oracle           connectivity.Oracle
	logger           *slog.Logger
	taskValidator    *validation.TaskValidator
	accountValidator *validation.AccountValidator
}

// NewBusinessAPI creates a new BusinessAPI instance
func NewBusinessAPI(deps Deps) BusinessAPI {
	b := &businessAPIImpl{
		sync:             deps.Sync,
		sessions:         deps.Sessions,
		accounts:         deps.Accounts,
		preferences:      deps.Preferences,
		cache:            deps.Cache,
		oracle:           deps.Oracle,
		logger:           deps.Logger,
		taskValidator:    deps.TaskValidator,
		accountValidator: validation.NewAccountValidator(),
	}
	if b.taskValidator == nil {
		b.taskValidator = validation.NewTaskValidator()
	}
	return b
}

// ========== Account Workflows ==========

func (b *businessAPIImpl) Signup(ctx context.Context, name, email, password string) (*auth.Session, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if err := b.accountValidator.ValidateSignup(name, email, password); err != nil {
		return nil, invalid(err)
	}

	resp, err := b.accounts.Signup(ctx, name, email, password)
	if err != nil {
		return nil, err
	}
	return b.startSession(ctx, resp)
}

func (b *businessAPIImpl) Login(ctx context.Context, email, password string) (*auth.Session, error) {
	email = strings.TrimSpace(email)
	if err := b.accountValidator.ValidateLogin(email, password); err != nil {
		return nil, invalid(err)
	}

	resp, err := b.accounts.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return b.startSession(ctx, resp)
}

func (b *businessAPIImpl) startSession(ctx context.Context, resp *remote.AuthResponse) (*auth.Session, error) {
	session := auth.Session{
		UserID:    resp.User.ID,
		Email:     resp.User.Email,
		Name:      resp.User.Name,
		Token:     resp.Token,
		ExpiresAt: resp.ExpiresAt,
	}
	if err := b.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	b.logger.Info("signed in", slog.String("user_id", session.UserID))
	return &session, nil
}

func (b *businessAPIImpl) Logout(ctx context.Context, force bool) error {
	session, err := b.sessions.Current(ctx)
	if err != nil {
		if errors.IsErrorType(err, errors.ErrorTypeNotFound) {
			return nil
		}
		return err
	}

	if err := b.flushPending(ctx, "logout", session.UserID, []string{session.UserID}, force); err != nil {
		return err
	}
	return b.sessions.Logout(ctx)
}

// flushPending replays the signed-in user's changes, then refuses to go on
// while any of users still has unsynced work, unless force is set
func (b *businessAPIImpl) flushPending(ctx context.Context, operation, userID string, users []string, force bool) error {
	if userID != "" && b.sync.PendingCount(ctx, userID) > 0 {
		if result := b.sync.SyncPendingChanges(ctx, userID); result.HasErrors() {
			b.logger.Warn("replay before "+operation+" left failures",
				slog.String("user_id", userID), slog.Int("failed", result.Failed))
		}
	}

	pending := 0
	for _, id := range users {
		pending += b.cache.PendingCount(ctx, id)
	}
	if pending == 0 {
		return nil
	}
	if !force {
		return errors.NewPendingChangesError(operation, pending)
	}
	b.logger.Warn("discarding unsynced changes",
		slog.String("operation", operation), slog.Int("pending", pending))
	return nil
}

func (b *businessAPIImpl) WhoAmI(ctx context.Context) (*domain.User, error) {
	session, err := b.currentSession(ctx)
	if err != nil {
		return nil, err
	}

	if b.oracle.IsOnline(ctx) {
		user, err := b.accounts.Profile(ctx)
		if err == nil {
			return user, nil
		}
		b.logger.Warn("profile fetch failed, using session",
			slog.String("user_id", session.UserID), slog.Any("error", err))
	}

	return &domain.User{ID: session.UserID, Name: session.Name, Email: session.Email, Role: domain.DefaultRole}, nil
}

func (b *businessAPIImpl) UpdateProfile(ctx context.Context, name string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	if err := b.accountValidator.ValidateName(name); err != nil {
		return nil, invalid(err)
	}

	session, err := b.currentSession(ctx)
	if err != nil {
		return nil, err
	}
	if !b.oracle.IsOnline(ctx) {
		return nil, errors.NewUnreachableError("update profile", stderrors.New("device is offline"))
	}

	user, err := b.accounts.UpdateProfile(ctx, domain.ProfileUpdate{Name: &name})
	if err != nil {
		return nil, err
	}

	session.Name = user.Name
	if err := b.sessions.Save(ctx, *session); err != nil {
		b.logger.Warn("profile updated but session not refreshed",
			slog.String("user_id", session.UserID), slog.Any("error", err))
	}
	return user, nil
}

// currentSession fails with a permission error when signed out. An expired
// token still identifies the user so cached work stays reachable offline.
func (b *businessAPIImpl) currentSession(ctx context.Context) (*auth.Session, error) {
	session, err := b.sessions.Current(ctx)
	if err != nil {
		if errors.IsErrorType(err, errors.ErrorTypeNotFound) {
			return nil, errors.NewPermissionError("use tasks", "not signed in; run 'todo login' first")
		}
		return nil, err
	}
	return session, nil
}

// ========== Task Workflows ==========

func (b *businessAPIImpl) ListTasks(ctx context.Context) ([]domain.Task, error) {
	session, err := b.currentSession(ctx)
	if err != nil {
		return nil, err
	}

	// Replay first so the refresh does not resurrect what was just changed.
	if result := b.sync.SyncPendingChanges(ctx, session.UserID); result.HasErrors() {
		b.logger.Warn("replay before list left failures",
			slog.String("user_id", session.UserID), slog.Int("failed", result.Failed))
	}
	return b.sync.ListTasks(ctx, session.UserID), nil
}

func (b *businessAPIImpl) AddTask(ctx context.Context, title, description, documentPath string) (*domain.Task, error) {
	// 1. Validate input at the UI boundary
	validationErr := validation.NewValidationError()
	validationErr.Merge(b.taskValidator.ValidateTaskForCreation(title, documentPath))
	validationErr.Merge(b.taskValidator.ValidateDescription(description))
	if err := validationErr.OrNil(); err != nil {
		return nil, invalid(err)
	}

	cleanedTitle, err := b.taskValidator.GetValidTitle(title)
	if err != nil {
		return nil, invalid(err)
	}

	// 2. Resolve the attachment so a later replay finds it from any directory
	documentURI, err := absolutePath(documentPath)
	if err != nil {
		return nil, err
	}

	// 3. Hand over to the sync engine
	session, err := b.currentSession(ctx)
	if err != nil {
		return nil, err
	}
	return b.sync.AddTask(ctx, session.UserID, services.TaskDraft{
		Title:       cleanedTitle,
		Description: strings.TrimSpace(description),
		DocumentURI: documentURI,
	})
}

func (b *businessAPIImpl) EditTask(ctx context.Context, id string, update domain.TaskUpdate) (*domain.Task, error) {
	if err := b.taskValidator.ValidateTaskForUpdate(id, update, ""); err != nil {
		return nil, invalid(err)
	}
	if update.Title != nil {
		cleaned, err := b.taskValidator.GetValidTitle(*update.Title)
		if err != nil {
			return nil, invalid(err)
		}
		update.Title = &cleaned
	}
	return b.update(ctx, id, update, "")
}

func (b *businessAPIImpl) ToggleComplete(ctx context.Context, id string) (*domain.Task, error) {
	task, err := b.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	return b.update(ctx, id, domain.TaskUpdate{Completed: domain.BoolPtr(!task.Completed)}, "")
}

func (b *businessAPIImpl) AttachDocument(ctx context.Context, id, documentPath string) (*domain.Task, error) {
	if strings.TrimSpace(documentPath) == "" {
		return nil, errors.NewInvalidInputError("document", documentPath, "a file path is required")
	}
	if err := b.taskValidator.ValidateTaskForUpdate(id, domain.TaskUpdate{}, documentPath); err != nil {
		return nil, invalid(err)
	}

	documentURI, err := absolutePath(documentPath)
	if err != nil {
		return nil, err
	}
	return b.update(ctx, id, domain.TaskUpdate{}, documentURI)
}

// update runs an update and returns the updated record from the new list
func (b *businessAPIImpl) update(ctx context.Context, id string, update domain.TaskUpdate, documentURI string) (*domain.Task, error) {
	session, err := b.currentSession(ctx)
	if err != nil {
		return nil, err
	}

	taskID := domain.ParseTaskID(id)
	tasks, err := b.sync.UpdateTask(ctx, session.UserID, taskID, update, documentURI)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		if tasks[i].ID == taskID {
			return &tasks[i], nil
		}
	}
	return nil, errors.NewNotFoundError("task", id)
}

func (b *businessAPIImpl) DeleteTask(ctx context.Context, id string) error {
	if err := b.taskValidator.ValidateTaskID(id); err != nil {
		return invalid(err)
	}

	session, err := b.currentSession(ctx)
	if err != nil {
		return err
	}
	_, err = b.sync.DeleteTask(ctx, session.UserID, domain.ParseTaskID(id))
	return err
}

func (b *businessAPIImpl) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	if err := b.taskValidator.ValidateTaskID(id); err != nil {
		return nil, invalid(err)
	}

	session, err := b.currentSession(ctx)
	if err != nil {
		return nil, err
	}
	task := b.sync.GetTaskByID(ctx, session.UserID, domain.ParseTaskID(id))
	if task == nil {
		return nil, errors.NewNotFoundError("task", id)
	}
	return task, nil
}

// ========== Sync and Settings ==========

func (b *businessAPIImpl) SyncNow(ctx context.Context) (*services.SyncResult, error) {
	session, err := b.currentSession(ctx)
	if err != nil {
		return nil, err
	}

	result := b.sync.SyncPendingChanges(ctx, session.UserID)
	if result.Offline {
		return result, errors.NewUnreachableError("sync", stderrors.New("device is offline"))
	}
	return result, result.Err()
}

func (b *businessAPIImpl) Status(ctx context.Context) (*SyncStatus, error) {
	session, err := b.currentSession(ctx)
	if err != nil {
		return nil, err
	}

	status := &SyncStatus{
		UserID:   session.UserID,
		Email:    session.Email,
		Online:   b.oracle.IsOnline(ctx),
		Pending:  b.sync.PendingCount(ctx, session.UserID),
		AutoSync: b.preferences.AutoSync(ctx),
	}
	if last, ok := b.cache.LastSync(ctx, session.UserID); ok {
		status.LastSync = &last
	}
	return status, nil
}

func (b *businessAPIImpl) SetAutoSync(ctx context.Context, enabled bool) error {
	return b.preferences.SetAutoSync(ctx, enabled)
}

func (b *businessAPIImpl) Statistics(ctx context.Context) (*domain.Statistics, error) {
	session, err := b.currentSession(ctx)
	if err != nil {
		return nil, err
	}
	stats := b.sync.Statistics(ctx, session.UserID)
	return &stats, nil
}

func (b *businessAPIImpl) ClearLocalData(ctx context.Context, force bool) (int, error) {
	users, err := b.cache.Users(ctx)
	if err != nil {
		return 0, err
	}

	userID := b.sessions.CurrentUserID(ctx)
	if err := b.flushPending(ctx, "clear local data", userID, users, force); err != nil {
		return 0, err
	}

	cleared, err := b.cache.ClearAll(ctx)
	if err != nil {
		return 0, err
	}
	b.logger.Info("local data cleared", slog.Int("users", cleared))
	return cleared, nil
}

// invalid lifts validator output into an AppError that records the failing fields
func invalid(err error) error {
	var validationErr *validation.ValidationError
	if stderrors.As(err, &validationErr) {
		return validationErr.ToAppError()
	}
	return errors.NewValidationError("invalid input", err)
}

func absolutePath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	abs, err := filepath.Abs(strings.TrimPrefix(path, "file://"))
	if err != nil {
		return "", errors.NewInvalidInputError("document", path, err.Error())
	}
	return abs, nil
}
