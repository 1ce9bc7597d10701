package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"todo-sync/internal/api"
	"todo-sync/internal/domain"
	"todo-sync/internal/errors"
)

// ListCommand handles the list command
type ListCommand struct {
	businessAPI  api.BusinessAPI
	errorHandler *ErrorHandler
	out          io.Writer
}

// NewListCommand creates a new list command handler
func NewListCommand(app *App) *ListCommand {
	return &ListCommand{businessAPI: app.businessAPI, errorHandler: NewErrorHandler(), out: app.out}
}

// Execute runs the list command: list [table|json]
func (c *ListCommand) Execute(ctx context.Context, args []string) error {
	format := "table"
	if len(args) > 0 {
		format = args[0]
	}
	return c.List(ctx, format)
}

// List prints the task list in the given format
func (c *ListCommand) List(ctx context.Context, format string) error {
	if format != "table" && format != "json" {
		return errors.NewInvalidInputError("format", format, "must be table or json")
	}

	tasks, err := c.businessAPI.ListTasks(ctx)
	if err != nil {
		return c.errorHandler.Handle("list tasks", err)
	}

	if format == "json" {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	}

	if len(tasks) == 0 {
		fmt.Fprintln(c.out, "No tasks found")
		return nil
	}
	for _, task := range tasks {
		fmt.Fprintln(c.out, formatTaskLine(task))
	}
	return nil
}

// formatTaskLine renders: [x] title (id) followed by markers
func formatTaskLine(task domain.Task) string {
	check := " "
	if task.Completed {
		check = "x"
	}
	line := fmt.Sprintf("[%s] %s (%s)", check, task.Title, task.ID)
	if task.HasDocument() || task.PendingDocumentURI != "" {
		line += " +doc"
	}
	if task.PendingSync {
		line += " *pending"
	}
	return line
}

// printTask prints every field of one task
func printTask(out io.Writer, task *domain.Task) {
	status := "open"
	if task.Completed {
		status = "done"
	}
	fmt.Fprintf(out, "ID:          %s\n", task.ID)
	fmt.Fprintf(out, "Title:       %s\n", task.Title)
	if task.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", task.Description)
	}
	fmt.Fprintf(out, "Status:      %s\n", status)
	fmt.Fprintf(out, "Created:     %s\n", task.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if task.Document != nil {
		fmt.Fprintf(out, "Document:    %s\n", task.Document.URL)
	}
	if task.PendingDocumentURI != "" {
		fmt.Fprintf(out, "Pending doc: %s\n", task.PendingDocumentURI)
	}
	if task.PendingSync {
		fmt.Fprintln(out, "Sync:        pending")
	}
}
