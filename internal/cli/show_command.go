package cli

import (
	"context"
	"fmt"
	"io"

	"todo-sync/internal/api"
	"todo-sync/internal/errors"
)

// ShowCommand handles the show command
type ShowCommand struct {
	businessAPI  api.BusinessAPI
	errorHandler *ErrorHandler
	out          io.Writer
}

// NewShowCommand creates a new show command handler
func NewShowCommand(app *App) *ShowCommand {
	return &ShowCommand{businessAPI: app.businessAPI, errorHandler: NewErrorHandler(), out: app.out}
}

// Execute runs the show command: show <id>
func (c *ShowCommand) Execute(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.NewInvalidInputError("command", "show", "usage: todo show <id>")
	}

	task, err := c.businessAPI.GetTask(ctx, args[0])
	if err != nil {
		if c.errorHandler.IsNotFoundError(err) {
			return fmt.Errorf("no task with id %s; run 'todo list' to see task IDs", args[0])
		}
		return c.errorHandler.HandleSimple(err)
	}
	printTask(c.out, task)
	return nil
}
