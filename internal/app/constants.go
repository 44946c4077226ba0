package app

const (
	Name             = "fccore"
	ConfigFilename   = "config.json"
	SettingsFilename = "settings.bin"
	JournalFilename  = "journal.db"
	LogFilename      = "fcd.log"

	// FCVariant is the four character firmware identifier reported over MSP.
	FCVariant = "FCGO"
	// BoardIdentifier is reported when the target definition does not name one.
	BoardIdentifier = "SITL"
)
