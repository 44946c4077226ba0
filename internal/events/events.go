package events

import "time"

const (
	TopicSettingsLoaded = "settings.loaded"
	TopicSettingsSaved  = "settings.saved"
	TopicProfileChanged = "profile.changed"
	TopicConfigValidity = "config.validity"
	TopicBoxesRebuilt   = "boxes.rebuilt"
	TopicBeep           = "beep"
	TopicStorageReset   = "storage.reset"
)

// ProfileCategory names which profile slot a ProfileChanged event refers to.
type ProfileCategory string

const (
	ProfileCategoryTuning  ProfileCategory = "tuning"
	ProfileCategoryBattery ProfileCategory = "battery"
)

// SettingsLoaded is published after storage has been read and applied.
type SettingsLoaded struct {
	UsedDefaults bool
	Fixes        []string
	Timestamp    time.Time
}

// SettingsSaved is published after a successful write of the settings blob.
type SettingsSaved struct {
	Bytes     int
	Timestamp time.Time
}

// ProfileChanged reports a profile selection, whether or not the index moved.
type ProfileChanged struct {
	Category  ProfileCategory
	Index     uint8
	Changed   bool
	Timestamp time.Time
}

// ConfigValidity is a snapshot of the post-load validation outcome.
type ConfigValidity struct {
	Valid     bool
	Invalid   []string
	Timestamp time.Time
}

// BoxesRebuilt reports the size of the freshly resolved active box set.
type BoxesRebuilt struct {
	Count      int
	Overflowed bool
	Timestamp  time.Time
}

// Beep asks the annunciator for a confirmation beep sequence.
type Beep struct {
	Count     int
	Timestamp time.Time
}

// StorageReset is published when settings storage is wiped back to defaults.
type StorageReset struct {
	Reason    string
	Timestamp time.Time
}
