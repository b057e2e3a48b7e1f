package constants

import "time"

// Messaging defaults
const (
	// MessagePageSize is the window size for live subscriptions and the
	// page size for history pagination.
	MessagePageSize = 50

	// EditWindow is how long after the original send a non-broadcast
	// message stays editable by its sender.
	EditWindow = 24 * time.Hour

	// MaxMessageTextLength bounds message bodies.
	MaxMessageTextLength = 4000

	// MaxFileSizeBytes caps attachment uploads.
	MaxFileSizeBytes = 10 * 1024 * 1024

	// SubscriptionSettleWindow is the quiescence period the subscription
	// manager waits after the last view change before opening a new live
	// feed. Replaces the source's ad-hoc per-call-site sleeps.
	SubscriptionSettleWindow = 150 * time.Millisecond
)

// Default server configuration values
const (
	DefaultServerPort          = 8084
	DefaultServerReadTimeout   = 15 * time.Second
	DefaultServerWriteTimeout  = 15 * time.Second
	DefaultServerIdleTimeout   = 60 * time.Second
	DefaultGracefulShutdownSec = 30
)

// Default startup retry values (database open only)
const (
	DefaultInitialBackoffMs      = 500
	DefaultMaxBackoffMs          = 10000
	DefaultDatabaseRetryAttempts = 3
)

// Default auth values
const (
	DefaultTokenTTLHours = 72
)

// Typing presence
const (
	// TypingSweepInterval is how often the realtime hub prunes stale
	// typing entries in the background.
	TypingSweepInterval = 5 * time.Second
)
