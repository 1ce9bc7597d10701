package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"todo-sync/internal/api"
	"todo-sync/internal/config"
	"todo-sync/internal/connectivity"
	"todo-sync/internal/services"
)

// App represents the main CLI application
type App struct {
	businessAPI api.BusinessAPI
	config      *config.Config
	out         io.Writer
	in          io.Reader
	registry    *CommandRegistry

	// Only the watch command uses these; nil disables it
	monitor *connectivity.Monitor
	watcher *services.SyncWatcher
}

// AppDeps are the collaborators of the CLI application
type AppDeps struct {
	BusinessAPI api.BusinessAPI
	Config      *config.Config
	Out         io.Writer
	In          io.Reader
	Monitor     *connectivity.Monitor
	Watcher     *services.SyncWatcher
}

// AppFactory builds the application once configuration is final. The
// returned cleanup releases device storage.
type AppFactory func(cfg *config.Config) (app *App, cleanup func(), err error)

// NewApp creates a new CLI application instance with dependency injection
func NewApp(deps AppDeps) *App {
	app := &App{
		businessAPI: deps.BusinessAPI,
		config:      deps.Config,
		out:         deps.Out,
		in:          deps.In,
		monitor:     deps.Monitor,
		watcher:     deps.Watcher,
	}
	if app.config == nil {
		app.config = config.NewConfig()
	}
	if app.out == nil {
		app.out = os.Stdout
	}
	if app.in == nil {
		app.in = os.Stdin
	}
	app.registry = NewCommandRegistry(app)
	return app
}

// Run executes the CLI application with the given arguments
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%s", a.registry.GetUsage())
	}

	commandName := args[0]
	commandArgs := args[1:]

	return a.registry.Execute(ctx, commandName, commandArgs)
}
