package constants

import "time"

const (
	AppName            = "devotional"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/devotional/devotional.db"
	Version            = "v0.1.0"

	// DateFormat is the calendar date format used for "today" comparisons (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the time-of-day format for trigger slots (HH:MM)
	TimeFormat = "15:04"

	// Upstream WordPress REST API
	DefaultBaseURL    = "https://breadandwinedevotional.com/wp-json/wp/v2"
	DevotionalPath    = "devotional"
	DefaultPageSize   = 100
	FetchTimeout      = 30 * time.Second
	UIRetryAttempts   = 3
	UIRetryUnit       = 2 * time.Second
	DefaultTimezone   = "Local"
	DefaultServerAddr = "127.0.0.1:8787"

	// Cache format version stored alongside the entry collection
	EntriesFormatVersion = 1

	// Tray notifier constants
	NotifyMaxRetries       = 3
	NotifyRetryDelay       = 100 * time.Millisecond
	NotifierLockfileName   = "devotional-notifier.lock"
	NotificationDurationMs = 8000
	TrayAppIdentifier      = "com.julianstephens.devotional"
	TrayExecutablePrefix   = "devotional-tray"

	// Alarm runner
	DefaultTickInterval = 30 * time.Second
	DeliveryLogLimit    = 20
)
