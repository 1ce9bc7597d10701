package cache

import (
	"context"
	"log/slog"
	"strconv"
)

const autoSyncKey = "@autoSync"

// Preferences holds device settings that outlive a session
type Preferences struct {
	kv              KeyValue
	defaultAutoSync bool
	logger          *slog.Logger
}

// NewPreferences creates a settings store; defaultAutoSync applies until the
// user changes it
func NewPreferences(kv KeyValue, defaultAutoSync bool, logger *slog.Logger) *Preferences {
	return &Preferences{kv: kv, defaultAutoSync: defaultAutoSync, logger: logger}
}

// AutoSync reports whether pending changes replay when connectivity returns
func (p *Preferences) AutoSync(ctx context.Context) bool {
	raw, err := p.kv.Get(ctx, autoSyncKey)
	if err != nil {
		return p.defaultAutoSync
	}
	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		p.logger.Warn("invalid auto sync preference", slog.String("value", raw))
		return p.defaultAutoSync
	}
	return enabled
}

// SetAutoSync persists the auto-sync preference
func (p *Preferences) SetAutoSync(ctx context.Context, enabled bool) error {
	return p.kv.SetMany(ctx, map[string]string{autoSyncKey: strconv.FormatBool(enabled)})
}
