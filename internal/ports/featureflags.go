package ports

import "context"

// Feature flags read by the application and bootstrap.
const (
	// FlagSyncPush enables POSTing the merged store to the push endpoint after a sync.
	FlagSyncPush = "sync-push-enabled"

	// FlagSyncPolicy overrides the default merge policy ("server-wins" or "manual").
	FlagSyncPolicy = "sync-default-policy"

	// FlagSyncIntervalSeconds overrides sync.interval for the periodic driver.
	// Zero or negative values keep the configured interval.
	FlagSyncIntervalSeconds = "sync-interval-seconds"
)

// FeatureFlags evaluates flags. Unknown or malformed flags yield the default.
//
//	if flags.IsEnabled(ctx, ports.FlagSyncPush, false) {
//	    pushed = s.push(ctx, merged)
//	}
type FeatureFlags interface {
	IsEnabled(ctx context.Context, flag string, defaultValue bool) bool
	GetString(ctx context.Context, flag string, defaultValue string) string
	GetInt(ctx context.Context, flag string, defaultValue int) int
}
