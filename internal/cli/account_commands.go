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

// SignupCommand handles the signup command
type SignupCommand struct {
	businessAPI  api.BusinessAPI
	errorHandler *ErrorHandler
	out          io.Writer
	in           io.Reader
}

// NewSignupCommand creates a new signup command handler
func NewSignupCommand(app *App) *SignupCommand {
	return &SignupCommand{
		businessAPI:  app.businessAPI,
		errorHandler: NewErrorHandler(),
		out:          app.out,
		in:           app.in,
	}
}

// Execute runs the signup command: signup <name> <email> [password]
func (c *SignupCommand) Execute(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return errors.NewInvalidInputError("command", "signup", "usage: todo signup <name> <email> [password]")
	}
	password, err := passwordArg(args, 2, c.out, c.in)
	if err != nil {
		return err
	}

	session, err := c.businessAPI.Signup(ctx, args[0], args[1], password)
	if err != nil {
		return c.errorHandler.Handle("sign up", err)
	}
	fmt.Fprintf(c.out, "Welcome, %s! Signed in as %s\n", session.Name, session.Email)
	return nil
}

// LoginCommand handles the login command
type LoginCommand struct {
	businessAPI  api.BusinessAPI
	errorHandler *ErrorHandler
	out          io.Writer
	in           io.Reader
}

// NewLoginCommand creates a new login command handler
func NewLoginCommand(app *App) *LoginCommand {
	return &LoginCommand{
		businessAPI:  app.businessAPI,
		errorHandler: NewErrorHandler(),
		out:          app.out,
		in:           app.in,
	}
}

// Execute runs the login command: login <email> [password]
func (c *LoginCommand) Execute(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.NewInvalidInputError("command", "login", "usage: todo login <email> [password]")
	}
	password, err := passwordArg(args, 1, c.out, c.in)
	if err != nil {
		return err
	}

	session, err := c.businessAPI.Login(ctx, args[0], password)
	if err != nil {
		return c.errorHandler.Handle("log in", err)
	}
	fmt.Fprintf(c.out, "Signed in as %s\n", session.Email)
	return nil
}

// passwordArg returns args[i] or prompts for it on in
func passwordArg(args []string, i int, out io.Writer, in io.Reader) (string, error) {
	if len(args) > i {
		return args[i], nil
	}
	fmt.Fprint(out, "Password: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.NewInvalidInputError("password", nil, "no password given")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// LogoutCommand handles the logout command
type LogoutCommand struct {
	businessAPI  api.BusinessAPI
	errorHandler *ErrorHandler
	out          io.Writer
}

// NewLogoutCommand creates a new logout command handler
func NewLogoutCommand(app *App) *LogoutCommand {
	return &LogoutCommand{businessAPI: app.businessAPI, errorHandler: NewErrorHandler(), out: app.out}
}

// Execute runs the logout command: logout [--force]
func (c *LogoutCommand) Execute(ctx context.Context, args []string) error {
	if len(args) > 1 || (len(args) == 1 && args[0] != "--force") {
		return errors.NewInvalidInputError("command", "logout", "usage: todo logout [--force]")
	}
	return c.Logout(ctx, len(args) == 1)
}

// Logout signs out; force discards changes that could not be synced
func (c *LogoutCommand) Logout(ctx context.Context, force bool) error {
	if err := c.businessAPI.Logout(ctx, force); err != nil {
		return c.errorHandler.Handle("log out", err)
	}
	fmt.Fprintln(c.out, "Signed out")
	return nil
}

// WhoAmICommand handles the whoami command
type WhoAmICommand struct {
	businessAPI  api.BusinessAPI
	errorHandler *ErrorHandler
	out          io.Writer
}

// NewWhoAmICommand creates a new whoami command handler
func NewWhoAmICommand(app *App) *WhoAmICommand {
	return &WhoAmICommand{businessAPI: app.businessAPI, errorHandler: NewErrorHandler(), out: app.out}
}

// Execute runs the whoami command
func (c *WhoAmICommand) Execute(ctx context.Context, args []string) error {
	user, err := c.businessAPI.WhoAmI(ctx)
	if err != nil {
		return c.errorHandler.HandleSimple(err)
	}
	fmt.Fprintf(c.out, "%s <%s>\n", user.Name, user.Email)
	fmt.Fprintf(c.out, "ID: %s\n", user.ID)
	return nil
}

// ProfileCommand handles the profile command
type ProfileCommand struct {
	businessAPI  api.BusinessAPI
	errorHandler *ErrorHandler
	out          io.Writer
}

// NewProfileCommand creates a new profile command handler
func NewProfileCommand(app *App) *ProfileCommand {
	return &ProfileCommand{businessAPI: app.businessAPI, errorHandler: NewErrorHandler(), out: app.out}
}

// Execute runs the profile command: profile <new name words...>
func (c *ProfileCommand) Execute(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.NewInvalidInputError("command", "profile", "usage: todo profile \"new name\"")
	}

	user, err := c.businessAPI.UpdateProfile(ctx, strings.Join(args, " "))
	if err != nil {
		return c.errorHandler.Handle("update profile", err)
	}
	fmt.Fprintf(c.out, "Profile updated: %s <%s>\n", user.Name, user.Email)
	return nil
}
