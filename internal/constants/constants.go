package constants

import "time"

const (
	AppName            = "tradertime"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/tradertime/tradertime.db"
	Version            = "v0.1.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// Foreground scheduler constants
	DefaultTickInterval     = 10 * time.Second
	DefaultPlaybackDuration = 10 // seconds

	// Background notification constants
	DefaultPastTolerance   = 3 * time.Second
	MaxNotificationBurst   = 4
	NotificationBurstGap   = 15 * time.Second
	NotificationChannelFmt = "trader_alerts_%s"
	RedeliveryDelay        = time.Second

	// Exact alarm constants
	DefaultSnoozeMinutes = 60
	AlarmMaxSleep        = 60 * time.Second
	LegacyRingTimeout    = 120 * time.Second

	// Market session constants
	SessionOpenHourUTC = 21

	// Sound constants
	DefaultSoundID = "alert-01"

	// Notify constants
	NotifierLockfileName   = "tradertime-notifier.lock"
	NotificationDurationMs = 5000
	TrayAppIdentifier      = "com.julianstephens.tradertime"
	TrayAppExecutable      = "tradertime-tray"

	// Redis notification center constants
	RedisKeyPrefix     = "tradertime:"
	RedisPendingKey    = RedisKeyPrefix + "pending"
	RedisPayloadPrefix = RedisKeyPrefix + "notification:"
	RedisPermissionKey = RedisKeyPrefix + "permission"

	// Control API constants
	DefaultAPIAddr = "127.0.0.1:7717"

	// Backup constants
	MaxBackups    = 14
	BackupDirName = "backups"
)
