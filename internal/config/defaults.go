package config

// Canonical values for the enumerated settings.
const (
	OutputPolicyCoexist = "coexist"
	OutputPolicyReplace = "replace"

	RetireStrategyTrashDir = "trash-dir"
	RetireStrategySystem   = "system"
)

const (
	defaultLocale                = "en"
	defaultRescanIntervalSeconds = 60
	defaultRecursive             = true
	defaultOutputPolicy          = OutputPolicyCoexist
	defaultQuality               = 92
	defaultConvertBinary         = "magick"
	defaultRetireStrategy        = RetireStrategyTrashDir
	defaultTrashBinary           = "gio"
	defaultDataDir               = "~/.local/share/darkroom"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 60

	socketFileName  = "darkroom.sock"
	journalFileName = "journal.db"
	logDirName      = "logs"
	trashDirName    = "trash"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Locale: defaultLocale,
		Watch: Watch{
			Recursive:             defaultRecursive,
			RescanIntervalSeconds: defaultRescanIntervalSeconds,
		},
		Output: Output{
			Policy:  defaultOutputPolicy,
			Quality: defaultQuality,
		},
		Convert: Convert{
			Binary: defaultConvertBinary,
		},
		Retire: Retire{
			Strategy:     defaultRetireStrategy,
			SystemBinary: defaultTrashBinary,
		},
		Daemon: Daemon{
			DataDir:          defaultDataDir,
			LogRetentionDays: defaultLogRetentionDays,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
