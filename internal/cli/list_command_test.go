package cli

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"todo-sync/internal/domain"
	apperrors "todo-sync/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListCommand_Execute(t *testing.T) {
	app, cleanup := setupTestAppWithMockBusinessAPI(t)
	defer cleanup()

	cmd := NewListCommand(app)
	ctx := context.Background()

	t.Run("empty list", func(t *testing.T) {
		require.NoError(t, cmd.Execute(ctx, []string{}))
		assert.Equal(t, "No tasks found\n", output(app))
	})

	t.Run("newest first with markers", func(t *testing.T) {
		_, err := app.businessAPI.AddTask(ctx, "First task", "", "")
		require.NoError(t, err)
		_, err = app.businessAPI.ToggleComplete(ctx, "t1")
		require.NoError(t, err)

		mockAPI(app).online = false
		offline, err := app.businessAPI.AddTask(ctx, "Second task", "", "/tmp/a.pdf")
		require.NoError(t, err)
		mockAPI(app).online = true

		require.NoError(t, cmd.Execute(ctx, []string{}))
		assert.Equal(t,
			"[ ] Second task ("+offline.ID.String()+") +doc *pending\n"+
				"[x] First task (t1)\n",
			output(app))
	})

	t.Run("json format", func(t *testing.T) {
		require.NoError(t, cmd.Execute(ctx, []string{"json"}))

		var tasks []domain.Task
		require.NoError(t, json.Unmarshal([]byte(output(app)), &tasks))
		require.Len(t, tasks, 2)
		assert.True(t, tasks[0].ID.IsLocal())
		assert.Equal(t, "t1", tasks[1].ID.String())
	})

	t.Run("invalid format", func(t *testing.T) {
		err := cmd.List(ctx, "yaml")
		require.Error(t, err)
		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeInvalidInput))
	})

	t.Run("backend failure", func(t *testing.T) {
		mockAPI(app).listErr = apperrors.NewDatabaseError("list", errors.New("locked"))
		defer func() { mockAPI(app).listErr = nil }()

		err := cmd.Execute(ctx, []string{})
		require.Error(t, err)
		assert.Equal(t, "failed to list tasks: A database error occurred. Please try again.", err.Error())
	})
}

func TestFormatTaskLine(t *testing.T) {
	tests := []struct {
		name     string
		task     domain.Task
		expected string
	}{
		{
			name:     "open synced task",
			task:     domain.Task{ID: domain.NewRemoteID("abc"), Title: "Buy milk"},
			expected: "[ ] Buy milk (abc)",
		},
		{
			name: "completed with document",
			task: domain.Task{
				ID:        domain.NewRemoteID("abc"),
				Title:     "Buy milk",
				Completed: true,
				Document:  &domain.Document{ID: "d1", URL: "https://docs.example.com/d1"},
			},
			expected: "[x] Buy milk (abc) +doc",
		},
		{
			name: "local pending task",
			task: domain.Task{
				ID:          domain.NewLocalID(1712345678901),
				Title:       "Buy milk",
				PendingSync: true,
			},
			expected: "[ ] Buy milk (local_1712345678901) *pending",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatTaskLine(tt.task))
		})
	}
}
