package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"todo-sync/internal/api"
	"todo-sync/internal/connectivity"
	"todo-sync/internal/errors"
	"todo-sync/internal/services"
)

// SyncCommand handles the sync command
type SyncCommand struct {
	businessAPI  api.BusinessAPI
	errorHandler *ErrorHandler
	out          io.Writer
}

// NewSyncCommand creates a new sync command handler
func NewSyncCommand(app *App) *SyncCommand {
	return &SyncCommand{businessAPI: app.businessAPI, errorHandler: NewErrorHandler(), out: app.out}
}

// Execute runs the sync command. Unlike background replays it reports
// every record that failed.
func (c *SyncCommand) Execute(ctx context.Context, args []string) error {
	result, err := c.businessAPI.SyncNow(ctx)
	if result != nil && !result.Offline {
		printSyncResult(c.out, result)
	}
	if err == nil {
		return nil
	}
	if result != nil && result.HasErrors() {
		return fmt.Errorf("sync incomplete: %d record(s) failed", result.Failed)
	}
	if c.errorHandler.IsOfflineError(err) {
		return fmt.Errorf("sync skipped: offline. Changes are kept on this device and sync when the server is reachable")
	}
	return c.errorHandler.Handle("sync", err)
}

func printSyncResult(out io.Writer, result *services.SyncResult) {
	if result.Total() == 0 && !result.HasErrors() {
		fmt.Fprintln(out, "Everything is up to date")
		return
	}
	fmt.Fprintf(out, "Synced: %d created, %d updated, %d deleted in %s\n",
		result.Created, result.Pushed, result.Deleted, result.Duration.Round(time.Millisecond))
	for _, recErr := range result.Errors {
		fmt.Fprintf(out, "  failed %s %s: %s\n", recErr.Operation, recErr.TaskID, errors.GetUserMessage(recErr.Err))
	}
}

// StatusCommand handles the status command
type StatusCommand struct {
	businessAPI  api.BusinessAPI
	errorHandler *ErrorHandler
	out          io.Writer
}

// NewStatusCommand creates a new status command handler
func NewStatusCommand(app *App) *StatusCommand {
	return &StatusCommand{businessAPI: app.businessAPI, errorHandler: NewErrorHandler(), out: app.out}
}

// Execute runs the status command
func (c *StatusCommand) Execute(ctx context.Context, args []string) error {
	status, err := c.businessAPI.Status(ctx)
	if err != nil {
		return c.errorHandler.HandleSimple(err)
	}

	network := "offline"
	if status.Online {
		network = "online"
	}
	lastSync := "never"
	if status.LastSync != nil {
		lastSync = status.LastSync.Local().Format("2006-01-02 15:04:05")
	}

	fmt.Fprintf(c.out, "User:      %s\n", status.Email)
	fmt.Fprintf(c.out, "Network:   %s\n", network)
	fmt.Fprintf(c.out, "Last sync: %s\n", lastSync)
	fmt.Fprintf(c.out, "Pending:   %d\n", status.Pending)
	fmt.Fprintf(c.out, "Auto sync: %s\n", onOff(status.AutoSync))
	return nil
}

// AutoSyncCommand handles the autosync command
type AutoSyncCommand struct {
	businessAPI  api.BusinessAPI
	errorHandler *ErrorHandler
	out          io.Writer
}

// NewAutoSyncCommand creates a new autosync command handler
func NewAutoSyncCommand(app *App) *AutoSyncCommand {
	return &AutoSyncCommand{businessAPI: app.businessAPI, errorHandler: NewErrorHandler(), out: app.out}
}

// Execute runs the autosync command: autosync on|off
func (c *AutoSyncCommand) Execute(ctx context.Context, args []string) error {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		return errors.NewInvalidInputError("command", "autosync", "usage: todo autosync on|off")
	}

	enabled := args[0] == "on"
	if err := c.businessAPI.SetAutoSync(ctx, enabled); err != nil {
		return c.errorHandler.Handle("change auto sync", err)
	}
	fmt.Fprintf(c.out, "Auto sync %s\n", onOff(enabled))
	return nil
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}

// StatsCommand handles the stats command
type StatsCommand struct {
	businessAPI  api.BusinessAPI
	errorHandler *ErrorHandler
	out          io.Writer
}

// NewStatsCommand creates a new stats command handler
func NewStatsCommand(app *App) *StatsCommand {
	return &StatsCommand{businessAPI: app.businessAPI, errorHandler: NewErrorHandler(), out: app.out}
}

// Execute runs the stats command
func (c *StatsCommand) Execute(ctx context.Context, args []string) error {
	stats, err := c.businessAPI.Statistics(ctx)
	if err != nil {
		return c.errorHandler.HandleSimple(err)
	}

	fmt.Fprintf(c.out, "Total:      %d\n", stats.Total)
	fmt.Fprintf(c.out, "Completed:  %d\n", stats.Completed)
	fmt.Fprintf(c.out, "Open:       %d\n", stats.Pending)
	fmt.Fprintf(c.out, "Done:       %d%%\n", stats.CompletionRate)
	fmt.Fprintf(c.out, "Unsynced:   %d\n", stats.PendingSync)
	return nil
}

// ClearCommand handles the clear command
type ClearCommand struct {
	businessAPI  api.BusinessAPI
	errorHandler *ErrorHandler
	out          io.Writer
	in           io.Reader
}

// NewClearCommand creates a new clear command handler
func NewClearCommand(app *App) *ClearCommand {
	return &ClearCommand{businessAPI: app.businessAPI, errorHandler: NewErrorHandler(), out: app.out, in: app.in}
}

// Execute runs the clear command: clear [--yes] [--force]
func (c *ClearCommand) Execute(ctx context.Context, args []string) error {
	var confirmed, force bool
	for _, arg := range args {
		switch arg {
		case "--yes", "-y":
			confirmed = true
		case "--force":
			force = true
		default:
			return errors.NewInvalidInputError("command", "clear", "usage: todo clear [--yes] [--force]")
		}
	}
	return c.Clear(ctx, confirmed, force)
}

// Clear removes the cached task data from this device, asking for
// confirmation unless confirmed is set
func (c *ClearCommand) Clear(ctx context.Context, confirmed, force bool) error {
	if !confirmed {
		fmt.Fprint(c.out, "Clear all cached tasks from this device? [y/N]: ")
		answer, _ := bufio.NewReader(c.in).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(c.out, "Clear cancelled.")
			return nil
		}
	}

	cleared, err := c.businessAPI.ClearLocalData(ctx, force)
	if err != nil {
		return c.errorHandler.Handle("clear local data", err)
	}
	fmt.Fprintf(c.out, "Local data has been cleared (%d user(s)). Your tasks will be reloaded from the server when you go back online.\n", cleared)
	return nil
}

// WatchCommand handles the watch command
type WatchCommand struct {
	monitor *connectivity.Monitor
	watcher *services.SyncWatcher
	out     io.Writer
}

// NewWatchCommand creates a new watch command handler
func NewWatchCommand(app *App) *WatchCommand {
	return &WatchCommand{monitor: app.monitor, watcher: app.watcher, out: app.out}
}

// Execute follows connectivity until ctx is cancelled and replays pending
// changes whenever the device comes back online
func (c *WatchCommand) Execute(ctx context.Context, args []string) error {
	if c.monitor == nil || c.watcher == nil {
		return errors.NewInvalidInputError("command", "watch", "connectivity monitoring is not configured")
	}

	unsubscribe := c.monitor.Subscribe(func(online bool) {
		state := "offline"
		if online {
			state = "online"
		}
		fmt.Fprintf(c.out, "%s now %s\n", time.Now().Format("15:04:05"), state)
	})
	defer unsubscribe()

	stop := c.watcher.Watch(ctx, c.monitor)
	defer stop()

	fmt.Fprintln(c.out, "Watching connectivity, press Ctrl+C to stop")
	if c.monitor.Check(ctx) {
		c.watcher.OnReconnect(ctx)
	}
	c.monitor.Run(ctx)
	return nil
}
