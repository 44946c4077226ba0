package fc

import (
	"context"
	"fmt"
	"time"

	"fccore/internal/box"
	"fccore/internal/capability"
	"fccore/internal/events"
	"fccore/internal/settings"
)

// SetProfile selects the tuning profile slot. Out-of-range requests reset
// to slot 0 rather than being rejected. The control-rate bank shares the
// index and switches with it. The change verdict compares the raw
// requested index, before the bounds reset.
func (c *Controller) SetProfile(index uint8) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.setProfileLocked(index)
}

func (c *Controller) setProfileLocked(index uint8) bool {
	changed := c.store.System.CurrentProfileIndex != index
	if index >= settings.MaxProfileCount {
		index = 0
	}
	c.store.System.CurrentProfileIndex = index
	c.publish(events.TopicProfileChanged, events.ProfileChanged{
		Category:  events.ProfileCategoryTuning,
		Index:     index,
		Changed:   changed,
		Timestamp: time.Now(),
	})

	return changed
}

// SetProfileAndPersist selects the slot and, when the selection moved,
// persists and reloads so the new bank becomes active everywhere. The
// confirmation beep count is the resolved slot plus one.
func (c *Controller) SetProfileAndPersist(ctx context.Context, index uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.setProfileLocked(index) {
		if err := c.persistLocked(ctx); err != nil {
			return err
		}
		if err := c.loadLocked(ctx); err != nil {
			return err
		}
	}
	c.beep(int(c.store.System.CurrentProfileIndex) + 1)

	return nil
}

// SetBatteryProfile selects the battery profile slot, with the same
// bounds-reset and change-detection contract as SetProfile.
func (c *Controller) SetBatteryProfile(index uint8) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.setBatteryProfileLocked(index)
}

func (c *Controller) setBatteryProfileLocked(index uint8) bool {
	changed := c.store.System.CurrentBatteryProfileIndex != index
	if index >= settings.MaxBatteryProfileCount {
		index = 0
	}
	c.store.System.CurrentBatteryProfileIndex = index
	c.publish(events.TopicProfileChanged, events.ProfileChanged{
		Category:  events.ProfileCategoryBattery,
		Index:     index,
		Changed:   changed,
		Timestamp: time.Now(),
	})

	return changed
}

// SetBatteryProfileAndPersist is the persisting battery counterpart of
// SetProfileAndPersist.
func (c *Controller) SetBatteryProfileAndPersist(ctx context.Context, index uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.setBatteryProfileLocked(index) {
		if err := c.persistLocked(ctx); err != nil {
			return err
		}
		if err := c.loadLocked(ctx); err != nil {
			return err
		}
	}
	c.beep(int(c.store.System.CurrentBatteryProfileIndex) + 1)

	return nil
}

// ProfileIndex reports the selected tuning profile slot.
func (c *Controller) ProfileIndex() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.store.System.CurrentProfileIndex
}

// BatteryProfileIndex reports the selected battery profile slot.
func (c *Controller) BatteryProfileIndex() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.store.System.CurrentBatteryProfileIndex
}

// SetGyroCalibration stores fresh gyro zero offsets and writes them
// through to storage immediately, without confirmation beeps.
func (c *Controller) SetGyroCalibration(ctx context.Context, zero [3]int16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.Gyro.ZeroCal = zero

	return c.writeThroughLocked(ctx)
}

// SetGravityCalibration stores the measured gravity magnitude used by the
// position estimator.
func (c *Controller) SetGravityCalibration(ctx context.Context, cmss float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.Gyro.GravityCMSS = cmss

	return c.writeThroughLocked(ctx)
}

// SetAccCalibration stores accelerometer zero offsets.
func (c *Controller) SetAccCalibration(ctx context.Context, zero [3]int16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.Acc.Zero = zero

	return c.writeThroughLocked(ctx)
}

func (c *Controller) writeThroughLocked(ctx context.Context) error {
	if err := c.persistLocked(ctx); err != nil {
		return err
	}

	return c.loadLocked(ctx)
}

// SetModeRange installs one mode activation condition slot. The permanent
// ID must name a catalog entry.
func (c *Controller) SetModeRange(slot int, permID box.PermanentID, auxChannel, startStep, endStep uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if slot < 0 || slot >= settings.MaxModeActivationConditions {
		return fmt.Errorf("mode range slot %d out of range", slot)
	}
	if _, ok := box.LookupPermanent(permID); !ok {
		return fmt.Errorf("unknown box permanent id %d", permID)
	}

	c.store.Modes.Conditions[slot] = settings.ModeActivationCondition{
		PermanentID:     permID,
		AuxChannelIndex: auxChannel,
		RangeStartStep:  startStep,
		RangeEndStep:    endStep,
	}
	c.subs.UpdateUsedModeActivationFlags()

	return nil
}

// ModeRanges returns a copy of the mode activation condition table.
func (c *Controller) ModeRanges() [settings.MaxModeActivationConditions]settings.ModeActivationCondition {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.store.Modes.Conditions
}

// Features returns the enabled feature word.
func (c *Controller) Features() capability.FeatureMask {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.store.Features.Enabled
}

// SetFeatures replaces the feature word and rebuilds the mode set, since
// feature bits gate mode eligibility.
func (c *Controller) SetFeatures(mask capability.FeatureMask) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.Features.Enabled = mask
	c.rebuildActiveBoxesLocked()
}

// CraftName reports the stored craft name.
func (c *Controller) CraftName() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.store.System.Name()
}

// SetCraftName stores a craft name, truncated to the persisted width.
func (c *Controller) SetCraftName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.System.SetName(name)
}
