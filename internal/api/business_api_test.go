package api

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"todo-sync/internal/auth"
	"todo-sync/internal/cache"
	"todo-sync/internal/connectivity"
	"todo-sync/internal/domain"
	"todo-sync/internal/errors"
	"todo-sync/internal/logging"
	"todo-sync/internal/repository/sqlite"
	"todo-sync/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserID = "u1"

type apiFixture struct {
	api       BusinessAPI
	tasks     *memoryTaskStore
	documents *memoryDocumentStore
	accounts  *fakeAccounts
	network   *connectivity.Static
	sessions  *auth.SessionStore
}

// setupTestBusinessAPI wires the real sync engine over in-memory SQLite and
// in-memory remote stores
func setupTestBusinessAPI(t *testing.T, online, signedIn bool) *apiFixture {
	t.Helper()
	repo, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	logger := logging.Discard()
	store, err := cache.New(repo, 8, logger)
	require.NoError(t, err)

	f := &apiFixture{
		tasks:     newMemoryTaskStore(),
		documents: newMemoryDocumentStore(),
		accounts:  &fakeAccounts{},
		network:   connectivity.NewStatic(online),
		sessions:  auth.NewSessionStore(repo, store, logger),
	}
	syncService := services.NewSyncService(services.SyncDeps{
		Cache:     store,
		Oracle:    f.network,
		Tasks:     f.tasks,
		Documents: f.documents,
		Logger:    logger,
	})
	f.api = NewBusinessAPI(Deps{
		Sync:        syncService,
		Sessions:    f.sessions,
		Accounts:    f.accounts,
		Preferences: cache.NewPreferences(repo, true, logger),
		Cache:       store,
		Oracle:      f.network,
		Logger:      logger,
	})

	if signedIn {
		require.NoError(t, f.sessions.Save(context.Background(), auth.Session{
			UserID:    testUserID,
			Email:     "ann@example.com",
			Name:      "Ann",
			Token:     "token",
			ExpiresAt: time.Now().Add(time.Hour),
		}))
	}
	return f
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func assertErrorType(t *testing.T, err error, errorType errors.ErrorType) {
	t.Helper()
	require.Error(t, err)
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.True(t, appErr.IsType(errorType), "got %s", appErr.Type)
}

func TestAddTask(t *testing.T) {
	tests := []struct {
		name           string
		title          string
		description    string
		documentPath   string
		signedIn       bool
		expectedTitle  string
		errorAssertion func(t *testing.T, err error)
	}{
		{
			name:          "should create task on the backend when title is valid",
			title:         "Buy milk",
			signedIn:      true,
			expectedTitle: "Buy milk",
		},
		{
			name:          "should trim surrounding whitespace",
			title:         "   Write report  ",
			description:   "  quarterly  ",
			signedIn:      true,
			expectedTitle: "Write report",
		},
		{
			name:     "should reject a title shorter than three characters",
			title:    "ab",
			signedIn: true,
			errorAssertion: func(t *testing.T, err error) {
				assertErrorType(t, err, errors.ErrorTypeValidation)
			},
		},
		{
			name:     "should reject a title longer than fifty characters",
			title:    "this title is definitely longer than fifty characters in total",
			signedIn: true,
			errorAssertion: func(t *testing.T, err error) {
				assertErrorType(t, err, errors.ErrorTypeValidation)
			},
		},
		{
			name:         "should reject a missing attachment",
			title:        "With file",
			documentPath: "/does/not/exist.pdf",
			signedIn:     true,
			errorAssertion: func(t *testing.T, err error) {
				assertErrorType(t, err, errors.ErrorTypeValidation)
			},
		},
		{
			name:  "should require a session",
			title: "Buy milk",
			errorAssertion: func(t *testing.T, err error) {
				assertErrorType(t, err, errors.ErrorTypePermission)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := setupTestBusinessAPI(t, true, tt.signedIn)

			// Act
			task, err := f.api.AddTask(context.Background(), tt.title, tt.description, tt.documentPath)

			// Assert
			if tt.errorAssertion != nil {
				tt.errorAssertion(t, err)
				assert.Nil(t, task)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedTitle, task.Title)
			assert.False(t, task.ID.IsLocal())
			assert.False(t, task.PendingSync)
			stored, ok := f.tasks.get(task.ID.String())
			require.True(t, ok)
			assert.Equal(t, tt.expectedTitle, stored.Title)
			if tt.description != "" {
				assert.Equal(t, "quarterly", stored.Description)
			}
		})
	}
}

func TestAddTask_OfflineThenSyncNow(t *testing.T) {
	f := setupTestBusinessAPI(t, false, true)
	ctx := context.Background()
	path := writeTempFile(t, "notes.txt", "hello")

	task, err := f.api.AddTask(ctx, "Offline task", "", path)
	require.NoError(t, err)
	assert.True(t, task.ID.IsLocal())
	assert.True(t, task.PendingSync)
	assert.True(t, filepath.IsAbs(task.PendingDocumentURI))

	result, err := f.api.SyncNow(ctx)
	assertErrorType(t, err, errors.ErrorTypeUnreachable)
	assert.True(t, result.Offline)

	f.network.Set(true)
	result, err = f.api.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)

	tasks, err := f.api.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.False(t, tasks[0].ID.IsLocal())
	assert.False(t, tasks[0].PendingSync)
	require.NotNil(t, tasks[0].Document)

	data, ok := f.documents.uploaded(domain.DocumentKey(testUserID, tasks[0].ID))
	require.True(t, ok, "document is keyed by the backend ID")
	assert.Equal(t, "hello", string(data))
}

func TestSyncNow_SurfacesFailures(t *testing.T) {
	f := setupTestBusinessAPI(t, false, true)
	ctx := context.Background()

	_, err := f.api.AddTask(ctx, "Will fail", "", "")
	require.NoError(t, err)

	f.network.Set(true)
	f.tasks.setCreateErr(errors.NewRejectedError("create task", 500, "boom"))

	result, err := f.api.SyncNow(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, result.Failed)

	status, err := f.api.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Pending, "failed record stays pending")
}

func TestListTasks_ReplaysBeforeListing(t *testing.T) {
	f := setupTestBusinessAPI(t, false, true)
	ctx := context.Background()

	_, err := f.api.AddTask(ctx, "Queued", "", "")
	require.NoError(t, err)

	f.network.Set(true)
	tasks, err := f.api.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Queued", tasks[0].Title)
	assert.False(t, tasks[0].ID.IsLocal())
}

func TestEditTask(t *testing.T) {
	f := setupTestBusinessAPI(t, true, true)
	ctx := context.Background()
	task, err := f.api.AddTask(ctx, "Original", "", "")
	require.NoError(t, err)

	t.Run("should apply a trimmed title", func(t *testing.T) {
		updated, err := f.api.EditTask(ctx, task.ID.String(), domain.TaskUpdate{Title: domain.StringPtr("  Renamed ")})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Title)
		stored, _ := f.tasks.get(task.ID.String())
		assert.Equal(t, "Renamed", stored.Title)
	})

	t.Run("should reject an empty update", func(t *testing.T) {
		_, err := f.api.EditTask(ctx, task.ID.String(), domain.TaskUpdate{})
		assertErrorType(t, err, errors.ErrorTypeValidation)
	})

	t.Run("should reject an invalid title", func(t *testing.T) {
		_, err := f.api.EditTask(ctx, task.ID.String(), domain.TaskUpdate{Title: domain.StringPtr("x")})
		assertErrorType(t, err, errors.ErrorTypeValidation)
	})

	t.Run("should report unknown tasks", func(t *testing.T) {
		_, err := f.api.EditTask(ctx, "nope", domain.TaskUpdate{Completed: domain.BoolPtr(true)})
		assertErrorType(t, err, errors.ErrorTypeNotFound)
	})
}

func TestToggleComplete(t *testing.T) {
	f := setupTestBusinessAPI(t, true, true)
	ctx := context.Background()
	task, err := f.api.AddTask(ctx, "Toggle me", "", "")
	require.NoError(t, err)

	toggled, err := f.api.ToggleComplete(ctx, task.ID.String())
	require.NoError(t, err)
	assert.True(t, toggled.Completed)

	toggled, err = f.api.ToggleComplete(ctx, task.ID.String())
	require.NoError(t, err)
	assert.False(t, toggled.Completed)

	_, err = f.api.ToggleComplete(ctx, "missing")
	assertErrorType(t, err, errors.ErrorTypeNotFound)
}

func TestAttachDocument(t *testing.T) {
	ctx := context.Background()
	path := writeTempFile(t, "report.pdf", "%PDF")

	t.Run("online attaches under the task key", func(t *testing.T) {
		f := setupTestBusinessAPI(t, true, true)
		task, err := f.api.AddTask(ctx, "Has doc", "", "")
		require.NoError(t, err)

		updated, err := f.api.AttachDocument(ctx, task.ID.String(), path)
		require.NoError(t, err)
		require.NotNil(t, updated.Document)
		assert.Empty(t, updated.PendingDocumentURI)
		_, ok := f.documents.uploaded(domain.DocumentKey(testUserID, task.ID))
		assert.True(t, ok)
	})

	t.Run("offline keeps the path pending", func(t *testing.T) {
		f := setupTestBusinessAPI(t, true, true)
		task, err := f.api.AddTask(ctx, "Has doc", "", "")
		require.NoError(t, err)

		f.network.Set(false)
		updated, err := f.api.AttachDocument(ctx, task.ID.String(), path)
		require.NoError(t, err)
		assert.True(t, updated.PendingSync)
		assert.Equal(t, path, updated.PendingDocumentURI)
	})

	t.Run("requires a path", func(t *testing.T) {
		f := setupTestBusinessAPI(t, true, true)
		_, err := f.api.AttachDocument(ctx, "srv-1", "  ")
		assertErrorType(t, err, errors.ErrorTypeInvalidInput)
	})
}

func TestDeleteAndGetTask(t *testing.T) {
	f := setupTestBusinessAPI(t, true, true)
	ctx := context.Background()
	task, err := f.api.AddTask(ctx, "Short lived", "", "")
	require.NoError(t, err)

	got, err := f.api.GetTask(ctx, task.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Short lived", got.Title)

	require.NoError(t, f.api.DeleteTask(ctx, task.ID.String()))
	_, ok := f.tasks.get(task.ID.String())
	assert.False(t, ok)

	_, err = f.api.GetTask(ctx, task.ID.String())
	assertErrorType(t, err, errors.ErrorTypeNotFound)

	err = f.api.DeleteTask(ctx, "")
	assertErrorType(t, err, errors.ErrorTypeValidation)
}

func TestStatusAndSettings(t *testing.T) {
	f := setupTestBusinessAPI(t, false, true)
	ctx := context.Background()

	_, err := f.api.AddTask(ctx, "Pending one", "", "")
	require.NoError(t, err)

	status, err := f.api.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, testUserID, status.UserID)
	assert.False(t, status.Online)
	assert.Equal(t, 1, status.Pending)
	assert.True(t, status.AutoSync)
	require.NotNil(t, status.LastSync)

	require.NoError(t, f.api.SetAutoSync(ctx, false))
	status, err = f.api.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.AutoSync)

	stats, err := f.api.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.PendingSync)
}

func TestAccountWorkflows(t *testing.T) {
	ctx := context.Background()

	t.Run("signup stores the session", func(t *testing.T) {
		f := setupTestBusinessAPI(t, true, false)
		session, err := f.api.Signup(ctx, " Ann ", "ann@example.com", "secret123")
		require.NoError(t, err)
		assert.Equal(t, "u-ann@example.com", session.UserID)

		current, err := f.sessions.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, "token-for-ann@example.com", current.Token)
	})

	t.Run("invalid input never reaches the backend", func(t *testing.T) {
		f := setupTestBusinessAPI(t, true, false)
		_, err := f.api.Login(ctx, "not-an-email", "")
		assertErrorType(t, err, errors.ErrorTypeValidation)
		assert.Zero(t, f.accounts.calls)
	})

	t.Run("backend failure leaves the device signed out", func(t *testing.T) {
		f := setupTestBusinessAPI(t, true, false)
		f.accounts.err = errors.NewRejectedError("login", 401, "invalid email or password")
		_, err := f.api.Login(ctx, "ann@example.com", "secret123")
		require.Error(t, err)
		_, err = f.sessions.Current(ctx)
		assertErrorType(t, err, errors.ErrorTypeNotFound)
	})

	t.Run("logout clears the session", func(t *testing.T) {
		f := setupTestBusinessAPI(t, true, true)
		require.NoError(t, f.api.Logout(ctx, false))
		_, err := f.api.ListTasks(ctx)
		assertErrorType(t, err, errors.ErrorTypePermission)
	})

	t.Run("logout when signed out is a no-op", func(t *testing.T) {
		f := setupTestBusinessAPI(t, true, false)
		assert.NoError(t, f.api.Logout(ctx, false))
	})
}

func TestLogout_PendingChanges(t *testing.T) {
	ctx := context.Background()

	t.Run("replays pending changes before signing out", func(t *testing.T) {
		f := setupTestBusinessAPI(t, false, true)
		_, err := f.api.AddTask(ctx, "Queued offline", "", "")
		require.NoError(t, err)

		f.network.Set(true)
		require.NoError(t, f.api.Logout(ctx, false))

		stored, err := f.tasks.ListByOwner(ctx, testUserID)
		require.NoError(t, err)
		require.Len(t, stored, 1, "the queued task reached the backend before the cache was cleared")
		assert.Equal(t, "Queued offline", stored[0].Title)
	})

	t.Run("refuses while changes cannot be replayed", func(t *testing.T) {
		f := setupTestBusinessAPI(t, false, true)
		_, err := f.api.AddTask(ctx, "Stuck offline", "", "")
		require.NoError(t, err)

		err = f.api.Logout(ctx, false)
		assertErrorType(t, err, errors.ErrorTypeConflict)
		assert.Equal(t, "PENDING_CHANGES", errors.GetErrorCode(err))

		_, err = f.sessions.Current(ctx)
		require.NoError(t, err, "still signed in")
		status, err := f.api.Status(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, status.Pending)
	})

	t.Run("force discards them", func(t *testing.T) {
		f := setupTestBusinessAPI(t, false, true)
		_, err := f.api.AddTask(ctx, "Stuck offline", "", "")
		require.NoError(t, err)

		require.NoError(t, f.api.Logout(ctx, true))
		_, err = f.sessions.Current(ctx)
		assertErrorType(t, err, errors.ErrorTypeNotFound)
	})
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("renames on the backend and refreshes the session", func(t *testing.T) {
		f := setupTestBusinessAPI(t, true, true)
		user, err := f.api.UpdateProfile(ctx, "  Ann B  ")
		require.NoError(t, err)
		assert.Equal(t, "Ann B", user.Name)
		assert.Equal(t, "Ann B", f.accounts.renamed)

		session, err := f.sessions.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Ann B", session.Name)
	})

	t.Run("rejects an empty name without calling the backend", func(t *testing.T) {
		f := setupTestBusinessAPI(t, true, true)
		_, err := f.api.UpdateProfile(ctx, "   ")
		assertErrorType(t, err, errors.ErrorTypeValidation)
		assert.Zero(t, f.accounts.calls)
	})

	t.Run("needs the backend", func(t *testing.T) {
		f := setupTestBusinessAPI(t, false, true)
		_, err := f.api.UpdateProfile(ctx, "Ann B")
		assertErrorType(t, err, errors.ErrorTypeUnreachable)
		assert.Zero(t, f.accounts.calls)
	})

	t.Run("needs a session", func(t *testing.T) {
		f := setupTestBusinessAPI(t, true, false)
		_, err := f.api.UpdateProfile(ctx, "Ann B")
		assertErrorType(t, err, errors.ErrorTypePermission)
	})
}

func TestClearLocalData(t *testing.T) {
	ctx := context.Background()

	t.Run("clears cached tasks and keeps the session", func(t *testing.T) {
		f := setupTestBusinessAPI(t, true, true)
		_, err := f.api.AddTask(ctx, "Synced already", "", "")
		require.NoError(t, err)

		cleared, err := f.api.ClearLocalData(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, 1, cleared)

		_, err = f.sessions.Current(ctx)
		require.NoError(t, err)

		f.network.Set(false)
		tasks, err := f.api.ListTasks(ctx)
		require.NoError(t, err)
		assert.Empty(t, tasks, "nothing cached until the next online read")

		f.network.Set(true)
		tasks, err = f.api.ListTasks(ctx)
		require.NoError(t, err)
		require.Len(t, tasks, 1, "reloaded from the backend")
	})

	t.Run("refuses while unsynced changes exist", func(t *testing.T) {
		f := setupTestBusinessAPI(t, false, true)
		_, err := f.api.AddTask(ctx, "Only on this device", "", "")
		require.NoError(t, err)

		_, err = f.api.ClearLocalData(ctx, false)
		assertErrorType(t, err, errors.ErrorTypeConflict)

		tasks, err := f.api.ListTasks(ctx)
		require.NoError(t, err)
		assert.Len(t, tasks, 1)
	})

	t.Run("force clears unsynced changes", func(t *testing.T) {
		f := setupTestBusinessAPI(t, false, true)
		_, err := f.api.AddTask(ctx, "Only on this device", "", "")
		require.NoError(t, err)

		cleared, err := f.api.ClearLocalData(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, 1, cleared)

		status, err := f.api.Status(ctx)
		require.NoError(t, err)
		assert.Zero(t, status.Pending)
	})

	t.Run("works when signed out", func(t *testing.T) {
		f := setupTestBusinessAPI(t, true, false)
		cleared, err := f.api.ClearLocalData(ctx, false)
		require.NoError(t, err)
		assert.Zero(t, cleared)
	})
}

func TestWhoAmI(t *testing.T) {
	ctx := context.Background()

	t.Run("online uses the backend profile", func(t *testing.T) {
		f := setupTestBusinessAPI(t, true, true)
		f.accounts.profile = &domain.User{ID: testUserID, Name: "Ann Backend", Email: "ann@example.com"}
		user, err := f.api.WhoAmI(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Ann Backend", user.Name)
	})

	t.Run("offline falls back to the session", func(t *testing.T) {
		f := setupTestBusinessAPI(t, false, true)
		user, err := f.api.WhoAmI(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Ann", user.Name)
		assert.Zero(t, f.accounts.calls)
	})

	t.Run("backend failure falls back to the session", func(t *testing.T) {
		f := setupTestBusinessAPI(t, true, true)
		f.accounts.err = stderrors.New("boom")
		user, err := f.api.WhoAmI(ctx)
		require.NoError(t, err)
		assert.Equal(t, testUserID, user.ID)
	})
}
