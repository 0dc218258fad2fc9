package constants

const (
	// Stable trigger identifiers. Every platform mechanism registered for a
	// trigger uses the same identifier so registrations replace each other.
	MorningTriggerID  = "com.devotionalapp.morningReminder"
	NuggetTriggerID   = "com.devotionalapp.dailyNugget"
	PrefetchTriggerID = "com.devotionalapp.nuggetFetch"

	// Tray notification ids; a second show with the same id overwrites the first
	MorningNotificationID = 100
	NuggetNotificationID  = 101

	// Fixed local wall-clock slots
	DefaultMorningAt  = "06:00"
	DefaultNuggetAt   = "10:00"
	DefaultPrefetchAt = "09:45"

	// Static messages
	MorningTitle   = "Bread and Wine Devotional"
	MorningBody    = "Refresh your spirit—your devotional awaits!"
	NuggetTitle    = "Daily Nugget"
	NuggetFallback = "Reflect on today's devotional message"

	// Preference keys
	PrefNotificationsEnabled = "notifications_enabled"
	PrefMorningEnabled       = "morning_notifications_enabled"
	PrefNuggetEnabled        = "nugget_notifications_enabled"

	// Environment overrides for the fixed slots
	EnvMorningAt  = "DEVOTIONAL_MORNING_AT"
	EnvNuggetAt   = "DEVOTIONAL_NUGGET_AT"
	EnvPrefetchAt = "DEVOTIONAL_PREFETCH_AT"
	EnvDBConn     = "DEVOTIONAL_DB_CONNECTION"
	EnvAppEnv     = "DEVOTIONAL_ENV"
)
