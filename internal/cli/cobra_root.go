package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"todo-sync/internal/config"
	"todo-sync/internal/domain"

	"github.com/spf13/cobra"
)

// RootCommand represents the base command when called without any subcommands
type RootCommand struct {
	cmd     *cobra.Command
	loader  *config.Loader
	factory AppFactory

	config  *config.Config
	app     *App
	cleanup func()
}

// NewRootCommand creates the root cobra command with global flags. The
// application is built lazily, after flags have been applied to the
// configuration.
func NewRootCommand(loader *config.Loader, factory AppFactory) *RootCommand {
	root := &RootCommand{
		loader:  loader,
		factory: factory,
	}

	root.cmd = &cobra.Command{
		Use:   "todo",
		Short: "An offline-first todo list",
		Long: `todo keeps your task list on this device and syncs it with the todo
backend whenever the network allows.

Every change works offline. Changes made without a connection are marked
pending and replayed by 'todo sync', by 'todo list' when online, or
automatically by 'todo watch' when connectivity returns.

EXAMPLES:
  todo signup "Ann" ann@example.com        # Create an account
  todo add "Buy milk"                      # Add a task
  todo add "Send report" -a report.pdf     # Add a task with an attachment
  todo list                                # Sync pending work, then list
  todo done local_1712345678901            # Toggle a task's completed flag
  todo sync                                # Replay pending changes now
  todo status                              # Connectivity and pending count

CONFIGURATION:
  Priority: command-line flags > environment variables > config file > defaults

    TODO_CONFIG                            YAML config file
    TODO_CACHE_DIR                         Device storage directory (default: ~/.todo)
    TODO_REMOTE_URL                        Backend URL (default: http://localhost:8080)
    TODO_OFFLINE                           Force offline mode (default: false)
    TODO_AUTO_SYNC                         Default auto-sync preference (default: true)
    TODO_LOG_LEVEL / TODO_LOG_FILE         Logging (default: info, stderr)
    TODO_DEBUG                             Debug logging for the whole run`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return root.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			root.Close()
		},
	}

	root.addGlobalFlags()
	root.addSubcommands()

	return root
}

// Execute runs the root command
func (r *RootCommand) Execute(ctx context.Context) error {
	return r.cmd.ExecuteContext(ctx)
}

// Close releases the application built for the last command. It is safe
// to call more than once.
func (r *RootCommand) Close() {
	if r.cleanup != nil {
		r.cleanup()
	}
	r.app = nil
	r.cleanup = nil
}

// SetArgs replaces the command line, used by tests
func (r *RootCommand) SetArgs(args []string) {
	r.cmd.SetArgs(args)
}

// addGlobalFlags adds global configuration flags
func (r *RootCommand) addGlobalFlags() {
	flags := r.cmd.PersistentFlags()

	flags.String("config", "", "YAML configuration file (overrides TODO_CONFIG)")
	flags.String("cache-dir", "", "Device storage directory (overrides TODO_CACHE_DIR)")
	flags.String("cache-filename", "", "Device storage file name (overrides TODO_CACHE_FILENAME)")
	flags.String("remote-url", "", "Backend URL (overrides TODO_REMOTE_URL)")
	flags.Duration("remote-timeout", 0, "Backend request timeout (overrides TODO_REMOTE_TIMEOUT)")
	flags.Bool("offline", false, "Never contact the backend (overrides TODO_OFFLINE)")
	flags.Bool("auto-sync", true, "Default replay-on-reconnect preference (overrides TODO_AUTO_SYNC)")
	flags.String("log-level", "", "Log level: debug, info, warn, error (overrides TODO_LOG_LEVEL)")
	flags.String("log-file", "", "Log to a rotating file (overrides TODO_LOG_FILE)")
	flags.Duration("timeout", 0, "Command timeout (overrides TODO_APP_TIMEOUT)")
	flags.Bool("verbose", false, "Enable verbose output (overrides TODO_APP_VERBOSE)")
}

// getConfigOverrides collects the flags the user actually set
func (r *RootCommand) getConfigOverrides() *config.ConfigOverrides {
	flags := r.cmd.PersistentFlags()
	overrides := &config.ConfigOverrides{}

	if flags.Changed("cache-dir") {
		v, _ := flags.GetString("cache-dir")
		overrides.CacheDir = &v
	}
	if flags.Changed("cache-filename") {
		v, _ := flags.GetString("cache-filename")
		overrides.CacheFilename = &v
	}
	if flags.Changed("remote-url") {
		v, _ := flags.GetString("remote-url")
		overrides.RemoteURL = &v
	}
	if flags.Changed("remote-timeout") {
		v, _ := flags.GetDuration("remote-timeout")
		overrides.RemoteTimeout = &v
	}
	if flags.Changed("offline") {
		v, _ := flags.GetBool("offline")
		overrides.Offline = &v
	}
	if flags.Changed("auto-sync") {
		v, _ := flags.GetBool("auto-sync")
		overrides.AutoSync = &v
	}
	if flags.Changed("log-level") {
		v, _ := flags.GetString("log-level")
		overrides.LogLevel = &v
	}
	if flags.Changed("log-file") {
		v, _ := flags.GetString("log-file")
		overrides.LogFile = &v
	}
	if flags.Changed("timeout") {
		v, _ := flags.GetDuration("timeout")
		overrides.Timeout = &v
	}
	if flags.Changed("verbose") {
		v, _ := flags.GetBool("verbose")
		overrides.Verbose = &v
	}
	return overrides
}

// setup loads the final configuration and builds the application
func (r *RootCommand) setup() error {
	if r.app != nil {
		return nil
	}

	if path, _ := r.cmd.PersistentFlags().GetString("config"); path != "" {
		r.loader.WithConfigFile(path)
	}
	cfg, err := r.loader.LoadWithOverrides(r.getConfigOverrides())
	if err != nil {
		return err
	}

	app, cleanup, err := r.factory(cfg)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	r.config = cfg
	r.app = app
	r.cleanup = cleanup
	return nil
}

// getAppTimeout returns the configured application timeout
func (r *RootCommand) getAppTimeout() time.Duration {
	if r.config != nil && r.config.Application.Timeout > 0 {
		return r.config.Application.Timeout
	}
	return 60 * time.Second
}

// withTimeout runs fn under the application timeout
func (r *RootCommand) withTimeout(cmd *cobra.Command, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), r.getAppTimeout())
	defer cancel()
	return fn(ctx)
}

// addSubcommands adds all CLI subcommands to the root command
func (r *RootCommand) addSubcommands() {
	// Account commands
	signupCmd := &cobra.Command{
		Use:   "signup <name> <email> [password]",
		Short: "Create an account and sign in",
		Long:  "Create an account on the backend. The password is prompted for when not given.",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withTimeout(cmd, func(ctx context.Context) error {
				return NewSignupCommand(r.app).Execute(ctx, args)
			})
		},
	}

	loginCmd := &cobra.Command{
		Use:   "login <email> [password]",
		Short: "Sign in",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withTimeout(cmd, func(ctx context.Context) error {
				return NewLoginCommand(r.app).Execute(ctx, args)
			})
		},
	}

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget cached tasks",
		Long: `Sign out and remove the signed-in user's cached tasks from this device.
Pending changes are synced first. If some cannot be synced, logout is refused
unless --force is given, which discards them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			return r.withTimeout(cmd, func(ctx context.Context) error {
				return NewLogoutCommand(r.app).Logout(ctx, force)
			})
		},
	}
	logoutCmd.Flags().Bool("force", false, "Discard changes that could not be synced")

	whoamiCmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withTimeout(cmd, func(ctx context.Context) error {
				return NewWhoAmICommand(r.app).Execute(ctx, args)
			})
		},
	}

	profileCmd := &cobra.Command{
		Use:   "profile <name>",
		Short: "Change your display name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withTimeout(cmd, func(ctx context.Context) error {
				return NewProfileCommand(r.app).Execute(ctx, args)
			})
		},
	}

	// Task commands
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Long: `List tasks, newest first. When online, pending changes are replayed
before the list is fetched from the backend; offline, the cached list is shown.

Markers:
  [x]        completed
  +doc       has an attachment
  *pending   not yet synced`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			return r.withTimeout(cmd, func(ctx context.Context) error {
				return NewListCommand(r.app).List(ctx, format)
			})
		},
	}
	listCmd.Flags().StringP("format", "o", "table", "Output format: table or json")

	addCmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Long:  "Add a task. Titles are 3 to 50 characters after trimming.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description, _ := cmd.Flags().GetString("description")
			attach, _ := cmd.Flags().GetString("attach")
			return r.withTimeout(cmd, func(ctx context.Context) error {
				return NewAddCommand(r.app).Add(ctx, strings.Join(args, " "), description, attach)
			})
		},
	}
	addCmd.Flags().StringP("description", "d", "", "Task description")
	addCmd.Flags().StringP("attach", "a", "", "File to attach")

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withTimeout(cmd, func(ctx context.Context) error {
				return NewShowCommand(r.app).Execute(ctx, args)
			})
		},
	}

	editCmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			update := domain.TaskUpdate{}
			if cmd.Flags().Changed("title") {
				v, _ := cmd.Flags().GetString("title")
				update.Title = &v
			}
			if cmd.Flags().Changed("description") {
				v, _ := cmd.Flags().GetString("description")
				update.Description = &v
			}
			if cmd.Flags().Changed("completed") {
				v, _ := cmd.Flags().GetBool("completed")
				update.Completed = &v
			}
			return r.withTimeout(cmd, func(ctx context.Context) error {
				return NewEditCommand(r.app).Edit(ctx, args[0], update)
			})
		},
	}
	editCmd.Flags().String("title", "", "New title")
	editCmd.Flags().String("description", "", "New description")
	editCmd.Flags().Bool("completed", false, "Completed flag")

	doneCmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle a task's completed flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withTimeout(cmd, func(ctx context.Context) error {
				return NewDoneCommand(r.app).Execute(ctx, args)
			})
		},
	}

	attachCmd := &cobra.Command{
		Use:   "attach <id> <file>",
		Short: "Attach or replace a task's document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withTimeout(cmd, func(ctx context.Context) error {
				return NewAttachCommand(r.app).Execute(ctx, args)
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Long: `Delete a task. Offline deletes of synced tasks are remembered and
replayed on the next sync.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			// Confirmation waits for the user, so no timeout here.
			return NewDeleteCommand(r.app).Delete(cmd.Context(), args[0], yes)
		},
	}
	deleteCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	// Sync commands
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Replay pending changes now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withTimeout(cmd, func(ctx context.Context) error {
				return NewSyncCommand(r.app).Execute(ctx, args)
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show connectivity, last sync and pending work",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withTimeout(cmd, func(ctx context.Context) error {
				return NewStatusCommand(r.app).Execute(ctx, args)
			})
		},
	}

	autosyncCmd := &cobra.Command{
		Use:       "autosync on|off",
		Short:     "Turn replay on reconnect on or off",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withTimeout(cmd, func(ctx context.Context) error {
				return NewAutoSyncCommand(r.app).Execute(ctx, args)
			})
		},
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show task statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withTimeout(cmd, func(ctx context.Context) error {
				return NewStatsCommand(r.app).Execute(ctx, args)
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached tasks from this device",
		Long: `Remove the cached task lists of every user on this device. The session and
settings stay; tasks are reloaded from the server on the next online read.
Refused while unsynced changes exist unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			force, _ := cmd.Flags().GetBool("force")
			// Confirmation waits for the user, so no timeout here.
			return NewClearCommand(r.app).Clear(cmd.Context(), yes, force)
		},
	}
	clearCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	clearCmd.Flags().Bool("force", false, "Also discard changes that were never synced")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync automatically whenever the network returns",
		Long: `Poll connectivity and replay pending changes on every offline to online
transition while auto sync is on. Runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewWatchCommand(r.app).Execute(cmd.Context(), args)
		},
	}

	r.cmd.AddCommand(
		signupCmd,
		loginCmd,
		logoutCmd,
		whoamiCmd,
		profileCmd,
		listCmd,
		addCmd,
		showCmd,
		editCmd,
		doneCmd,
		attachCmd,
		deleteCmd,
		syncCmd,
		statusCmd,
		autosyncCmd,
		statsCmd,
		clearCmd,
		watchCmd,
	)
}
