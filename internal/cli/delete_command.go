package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"todo-sync/internal/api"
	"todo-sync/internal/errors"
)

// DeleteCommand handles the delete command
type DeleteCommand struct {
	businessAPI  api.BusinessAPI
	errorHandler *ErrorHandler
	out          io.Writer
	in           io.Reader
}

// NewDeleteCommand creates a new delete command handler
func NewDeleteCommand(app *App) *DeleteCommand {
	return &DeleteCommand{businessAPI: app.businessAPI, errorHandler: NewErrorHandler(), out: app.out, in: app.in}
}

// Execute runs the delete command: delete <id> [--yes]
func (c *DeleteCommand) Execute(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.NewInvalidInputError("command", "delete", "usage: todo delete <id> [--yes]")
	}
	confirmed := len(args) == 2 && (args[1] == "--yes" || args[1] == "-y")
	return c.Delete(ctx, args[0], confirmed)
}

// Delete removes a task, asking for confirmation unless confirmed is set
func (c *DeleteCommand) Delete(ctx context.Context, id string, confirmed bool) error {
	task, err := c.businessAPI.GetTask(ctx, id)
	if err != nil {
		return c.errorHandler.Handle("delete task", err)
	}

	if !confirmed {
		fmt.Fprintf(c.out, "Delete %q? [y/N]: ", task.Title)
		answer, _ := bufio.NewReader(c.in).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(c.out, "Delete cancelled.")
			return nil
		}
	}

	if err := c.businessAPI.DeleteTask(ctx, id); err != nil {
		return c.errorHandler.Handle("delete task", err)
	}
	fmt.Fprintf(c.out, "Deleted task: %s\n", task.Title)
	return nil
}
