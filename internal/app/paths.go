package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths stores resolved runtime file locations for daemon config, settings
// storage, journal and logs.
type Paths struct {
	RootDir      string
	ConfigFile   string
	SettingsFile string
	JournalFile  string
	LogFile      string
}

func ResolvePaths() (Paths, error) {
	cfgRoot, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("resolve config dir: %w", err)
	}

	root := filepath.Join(cfgRoot, Name)
	if err := os.MkdirAll(root, 0o750); err != nil {
		return Paths{}, fmt.Errorf("create app config dir: %w", err)
	}

	return Paths{
		RootDir:      root,
		ConfigFile:   filepath.Join(root, ConfigFilename),
		SettingsFile: filepath.Join(root, SettingsFilename),
		JournalFile:  filepath.Join(root, JournalFilename),
		LogFile:      filepath.Join(root, LogFilename),
	}, nil
}
