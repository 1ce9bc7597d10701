package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"todo-sync/internal/api"
	"todo-sync/internal/errors"
)

// AddCommand handles the add command
type AddCommand struct {
	businessAPI  api.BusinessAPI
	errorHandler *ErrorHandler
	out          io.Writer
}

// NewAddCommand creates a new add command handler
func NewAddCommand(app *App) *AddCommand {
	return &AddCommand{businessAPI: app.businessAPI, errorHandler: NewErrorHandler(), out: app.out}
}

// Execute runs the add command: add <title words...>
func (c *AddCommand) Execute(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.NewInvalidInputError("command", "add", "usage: todo add \"task title\"")
	}
	return c.Add(ctx, strings.Join(args, " "), "", "")
}

// Add creates a task with an optional description and attachment
func (c *AddCommand) Add(ctx context.Context, title, description, documentPath string) error {
	task, err := c.businessAPI.AddTask(ctx, title, description, documentPath)
	if err != nil {
		return c.errorHandler.Handle("add task", err)
	}

	if task.PendingSync {
		fmt.Fprintf(c.out, "Added task: %s (%s), saved offline and will sync later\n", task.Title, task.ID)
		return nil
	}
	fmt.Fprintf(c.out, "Added task: %s (%s)\n", task.Title, task.ID)
	return nil
}
