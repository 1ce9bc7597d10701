package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"todo-sync/internal/api"
	"todo-sync/internal/domain"
	"todo-sync/internal/errors"
)

// EditCommand handles the edit command
type EditCommand struct {
	businessAPI  api.BusinessAPI
	errorHandler *ErrorHandler
	out          io.Writer
}

// NewEditCommand creates a new edit command handler
func NewEditCommand(app *App) *EditCommand {
	return &EditCommand{businessAPI: app.businessAPI, errorHandler: NewErrorHandler(), out: app.out}
}

// Execute runs the edit command: edit <id> <new title words...>
func (c *EditCommand) Execute(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.NewInvalidInputError("command", "edit", "usage: todo edit <id> \"new title\"")
	}
	title := strings.Join(args[1:], " ")
	return c.Edit(ctx, args[0], domain.TaskUpdate{Title: &title})
}

// Edit applies a partial update
func (c *EditCommand) Edit(ctx context.Context, id string, update domain.TaskUpdate) error {
	task, err := c.businessAPI.EditTask(ctx, id, update)
	if err != nil {
		return c.errorHandler.Handle("edit task", err)
	}
	fmt.Fprintf(c.out, "Updated task: %s%s\n", task.Title, pendingSuffix(task))
	return nil
}

// DoneCommand handles the done command
type DoneCommand struct {
	businessAPI  api.BusinessAPI
	errorHandler *ErrorHandler
	out          io.Writer
}

// NewDoneCommand creates a new done command handler
func NewDoneCommand(app *App) *DoneCommand {
	return &DoneCommand{businessAPI: app.businessAPI, errorHandler: NewErrorHandler(), out: app.out}
}

// Execute runs the done command: done <id>. Running it again reopens the task.
func (c *DoneCommand) Execute(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.NewInvalidInputError("command", "done", "usage: todo done <id>")
	}

	task, err := c.businessAPI.ToggleComplete(ctx, args[0])
	if err != nil {
		return c.errorHandler.Handle("toggle task", err)
	}
	state := "reopened"
	if task.Completed {
		state = "completed"
	}
	fmt.Fprintf(c.out, "Task %s: %s%s\n", state, task.Title, pendingSuffix(task))
	return nil
}

// AttachCommand handles the attach command
type AttachCommand struct {
	businessAPI  api.BusinessAPI
	errorHandler *ErrorHandler
	out          io.Writer
}

// NewAttachCommand creates a new attach command handler
func NewAttachCommand(app *App) *AttachCommand {
	return &AttachCommand{businessAPI: app.businessAPI, errorHandler: NewErrorHandler(), out: app.out}
}

// Execute runs the attach command: attach <id> <path>
func (c *AttachCommand) Execute(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.NewInvalidInputError("command", "attach", "usage: todo attach <id> <file>")
	}

	task, err := c.businessAPI.AttachDocument(ctx, args[0], args[1])
	if err != nil {
		return c.errorHandler.Handle("attach document", err)
	}
	if task.PendingDocumentURI != "" {
		fmt.Fprintf(c.out, "Document queued for %s, it will upload on the next sync\n", task.Title)
		return nil
	}
	fmt.Fprintf(c.out, "Document attached to %s\n", task.Title)
	return nil
}

func pendingSuffix(task *domain.Task) string {
	if task.PendingSync {
		return " (pending sync)"
	}
	return ""
}
