package services

import (
	"context"
	"log/slog"

	"todo-sync/internal/connectivity"
)

// UserSource reports the signed-in user, empty when there is none
type UserSource interface {
	CurrentUserID(ctx context.Context) string
}

// AutoSyncSetting reports whether replay runs when connectivity returns
type AutoSyncSetting interface {
	AutoSync(ctx context.Context) bool
}

// SyncWatcher replays pending changes whenever the device comes back online
type SyncWatcher struct {
	sync     SyncService
	users    UserSource
	settings AutoSyncSetting
	logger   *slog.Logger
	onResult func(*SyncResult)
}

// NewSyncWatcher creates a watcher; onResult may be nil
func NewSyncWatcher(sync SyncService, users UserSource, settings AutoSyncSetting, logger *slog.Logger, onResult func(*SyncResult)) *SyncWatcher {
	return &SyncWatcher{
		sync:     sync,
		users:    users,
		settings: settings,
		logger:   logger.With(slog.String("component", "sync_watcher")),
		onResult: onResult,
	}
}

// Watch subscribes to monitor until the returned stop function is called
func (w *SyncWatcher) Watch(ctx context.Context, monitor *connectivity.Monitor) (stop func()) {
	return monitor.Subscribe(func(online bool) {
		if online {
			w.OnReconnect(ctx)
		}
	})
}

// OnReconnect runs a background replay. Failures are only logged; it returns
// nil when auto-sync is off or nobody is signed in.
func (w *SyncWatcher) OnReconnect(ctx context.Context) *SyncResult {
	if !w.settings.AutoSync(ctx) {
		w.logger.Debug("auto sync disabled, skipping replay")
		return nil
	}
	userID := w.users.CurrentUserID(ctx)
	if userID == "" {
		return nil
	}

	result := w.sync.SyncPendingChanges(ctx, userID)
	if result.HasErrors() {
		w.logger.Warn("background sync incomplete",
			slog.String("user_id", userID), slog.Int("failed", result.Failed), slog.Any("error", result.Err()))
	}
	if w.onResult != nil {
		w.onResult(result)
	}
	return result
}
