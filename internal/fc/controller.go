// Package fc orchestrates the configuration lifecycle of the flight core:
// load, validate-and-fix, activate, persist. It owns the settings store,
// the resolved mode set, and the arming status word, and serializes all
// access behind one mutex so protocol handlers never observe a half
// rebuilt state.
package fc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fccore/internal/box"
	"fccore/internal/bus"
	"fccore/internal/capability"
	"fccore/internal/eeprom"
	"fccore/internal/events"
	"fccore/internal/settings"
	"fccore/internal/target"
)

// ErrStorageFailure marks a structurally unreadable or unwritable settings
// medium. Callers treat it as unrecoverable. Invalid stored content is not
// an error; load falls back to defaults instead.
var ErrStorageFailure = errors.New("fc: settings storage failure")

// State tracks a profile category through the configuration lifecycle.
type State uint8

const (
	StateUnloaded State = iota
	StateLoaded
	StateValidating
	StateActive
	StateInvalid
)

var stateNames = map[State]string{
	StateUnloaded:   "unloaded",
	StateLoaded:     "loaded",
	StateValidating: "validating",
	StateActive:     "active",
	StateInvalid:    "invalid",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Category indexes the profile-partitioned setting banks.
type Category uint8

const (
	CategoryTuning Category = iota
	CategoryBattery
	categoryCount
)

// Deps collects the controller's collaborators. Optional fields left nil
// fall back to inert defaults, so tests can build a controller from a
// medium alone.
type Deps struct {
	Medium     eeprom.Medium
	Target     target.Definition
	Hooks      settings.TargetHooks
	Hardware   Hardware
	Rx         RxSuspender
	Subsystems Subsystems
	Live       LiveSource
	Stats      StatsSource
	Bus        bus.MessageBus
	Logger     *slog.Logger
}

// Controller is the single owner of configuration and mode-set state.
type Controller struct {
	mu  sync.Mutex
	log *slog.Logger
	bus bus.MessageBus

	medium eeprom.Medium
	tgt    target.Definition
	hooks  settings.TargetHooks
	hw     Hardware
	rx     RxSuspender
	subs   Subsystems
	live   LiveSource
	stats  StatsSource

	store     *settings.Store
	active    *box.ActiveSet
	arming    ArmingFlag
	states    [categoryCount]State
	fallbacks int
}

func NewController(deps Deps) *Controller {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Hooks == nil {
		deps.Hooks = settings.NopTargetHooks{}
	}
	if deps.Hardware == nil {
		deps.Hardware = StaticHardware{}
	}
	if deps.Rx == nil {
		deps.Rx = NopRxSuspender{}
	}
	if deps.Subsystems == nil {
		deps.Subsystems = NopSubsystems{}
	}
	if deps.Live == nil {
		deps.Live = StaticLive{}
	}
	if deps.Stats == nil {
		deps.Stats = StaticStats{}
	}

	return &Controller{
		log:    deps.Logger,
		bus:    deps.Bus,
		medium: deps.Medium,
		tgt:    deps.Target,
		hooks:  deps.Hooks,
		hw:     deps.Hardware,
		rx:     deps.Rx,
		subs:   deps.Subsystems,
		live:   deps.Live,
		stats:  deps.Stats,
		store:  settings.Defaults(),
		active: &box.ActiveSet{},
	}
}

// Load reads the settings blob, repairs what it can, and brings the
// configuration online. Unreadable content falls back to compiled-in
// defaults; only medium I/O failures surface as errors.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.loadLocked(ctx)
}

func (c *Controller) loadLocked(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.rx.SuspendRxSignal()
	defer c.rx.ResumeRxSignal()

	usedDefaults := false
	raw, err := c.medium.Load()
	if err != nil {
		return fmt.Errorf("%w: read: %v", ErrStorageFailure, err)
	}

	var st *settings.Store
	switch {
	case len(raw) == 0:
		st = c.freshDefaults()
		usedDefaults = true
		c.log.Info("settings storage empty, using defaults")
	default:
		st, err = settings.Decode(raw)
		if err != nil {
			if !errors.Is(err, settings.ErrContentInvalid) {
				return fmt.Errorf("%w: decode: %v", ErrStorageFailure, err)
			}
			st = c.freshDefaults()
			usedDefaults = true
			c.fallbacks++
			c.log.Warn("stored settings invalid, using defaults", "error", err)
		}
	}

	if st.System.CurrentProfileIndex >= settings.MaxProfileCount {
		st.System.CurrentProfileIndex = 0
	}
	if st.System.CurrentBatteryProfileIndex >= settings.MaxBatteryProfileCount {
		st.System.CurrentBatteryProfileIndex = 0
	}

	c.store = st
	c.setStates(StateLoaded)

	c.setStates(StateValidating)
	res := settings.ValidateAndFix(st, c.tgt.Build, c.hooks)
	for _, fix := range res.Fixes {
		c.log.Info("settings repaired", "fix", fix)
	}
	c.applyValidity(&res)

	c.activateLocked()
	if res.SettingsValid() {
		c.setStates(StateActive)
	} else {
		c.setStates(StateInvalid)
	}

	c.publish(events.TopicSettingsLoaded, events.SettingsLoaded{
		UsedDefaults: usedDefaults,
		Fixes:        res.Fixes,
		Timestamp:    time.Now(),
	})
	c.publish(events.TopicConfigValidity, events.ConfigValidity{
		Valid:     res.SettingsValid(),
		Invalid:   res.Invalid,
		Timestamp: time.Now(),
	})

	return nil
}

// Persist serializes every settings group and writes the blob. The RC
// signal consumer is suspended for the duration of the write.
func (c *Controller) Persist(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.persistLocked(ctx)
}

func (c *Controller) persistLocked(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.rx.SuspendRxSignal()
	defer c.rx.ResumeRxSignal()

	blob, err := settings.Encode(c.store, c.medium.Size())
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := c.medium.Store(blob); err != nil {
		return fmt.Errorf("%w: write: %v", ErrStorageFailure, err)
	}

	c.publish(events.TopicSettingsSaved, events.SettingsSaved{
		Bytes:     len(blob),
		Timestamp: time.Now(),
	})

	return nil
}

// SaveAndNotify persists, reloads so repairs take effect, and requests a
// single confirmation beep.
func (c *Controller) SaveAndNotify(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.persistLocked(ctx); err != nil {
		return err
	}
	if err := c.loadLocked(ctx); err != nil {
		return err
	}
	c.beep(1)

	return nil
}

// EnsureValidStorage verifies the stored blob decodes; if it does not,
// storage is rewritten with factory defaults. Run before Load at startup.
func (c *Controller) EnsureValidStorage(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := c.medium.Load()
	if err != nil {
		return fmt.Errorf("%w: read: %v", ErrStorageFailure, err)
	}
	if len(raw) > 0 {
		if _, err := settings.Decode(raw); err == nil {
			return nil
		}
	}

	return c.resetStorageLocked(ctx, "stored settings unreadable")
}

// ResetStorage rewrites storage with factory defaults. It does not reload;
// callers follow up with Load.
func (c *Controller) ResetStorage(ctx context.Context, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.resetStorageLocked(ctx, reason)
}

func (c *Controller) resetStorageLocked(ctx context.Context, reason string) error {
	c.store = c.freshDefaults()
	if err := c.persistLocked(ctx); err != nil {
		return err
	}
	c.log.Info("settings storage reset", "reason", reason)
	c.publish(events.TopicStorageReset, events.StorageReset{
		Reason:    reason,
		Timestamp: time.Now(),
	})

	return nil
}

// activateLocked applies installed settings to the live subsystems in a
// fixed order, then rebuilds the mode set. Later stages read state put in
// place by earlier ones.
func (c *Controller) activateLocked() {
	c.subs.ActivateControlRates()
	c.subs.ActivateBatteryProfile()
	c.subs.ResetAdjustmentStates()
	c.subs.UpdateUsedModeActivationFlags()
	c.subs.ResetFailsafe()
	c.subs.ApplyAccCalibration()
	c.subs.ConfigureEstimator()
	c.subs.InitControlLoops()
	c.subs.RefreshNavGains()
	c.rebuildActiveBoxesLocked()
}

// RebuildActiveBoxes recomputes the pilot-selectable mode set from the
// current capability snapshot. Published sets are never mutated, so a
// reader holding the previous set keeps a consistent view.
func (c *Controller) RebuildActiveBoxes() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rebuildActiveBoxesLocked()
}

func (c *Controller) rebuildActiveBoxesLocked() {
	set := box.Resolve(c.snapshotLocked())
	c.active = set
	if set.Overflowed() {
		c.log.Warn("active box set overflowed catalog capacity")
	}
	c.publish(events.TopicBoxesRebuilt, events.BoxesRebuilt{
		Count:      set.Len(),
		Overflowed: set.Overflowed(),
		Timestamp:  time.Now(),
	})
}

func (c *Controller) snapshotLocked() capability.Snapshot {
	st := c.store
	return capability.Snapshot{
		Sensors:            c.hw.SensorsPresent(),
		Features:           st.Features.Enabled,
		State:              capability.DeriveStateFlags(st.Mixer.PlatformType, st.Mixer.HasFlaperonServo),
		Platform:           st.Mixer.PlatformType,
		Build:              c.tgt.Build,
		CompassWorking:     c.hw.CompassWorking(),
		UseGPSNoBaro:       st.PosEstimation.UseGPSNoBaro,
		AllowDeadReckoning: st.PosEstimation.AllowDeadReckoning,
		TelemetrySwitch:    st.Telemetry.Switch,
		DshotMotors:        st.Motor.Protocol.IsDshot(),
	}
}

func (c *Controller) freshDefaults() *settings.Store {
	st := settings.Defaults()
	c.hooks.ApplyDefaults(st)
	return st
}

func (c *Controller) applyValidity(res *settings.Result) {
	if res.SettingsValid() {
		c.arming &^= ArmingDisabledInvalidSetting
		return
	}
	c.arming |= ArmingDisabledInvalidSetting
	c.log.Warn("configuration invalid, arming blocked", "problems", res.Invalid)
}

func (c *Controller) setStates(s State) {
	for i := range c.states {
		c.states[i] = s
	}
}

func (c *Controller) publish(topic string, msg any) {
	if c.bus != nil {
		c.bus.Publish(topic, msg)
	}
}

func (c *Controller) beep(count int) {
	c.publish(events.TopicBeep, events.Beep{Count: count, Timestamp: time.Now()})
}

// ActiveBoxes returns the current resolved mode set. Treat it as read-only.
func (c *Controller) ActiveBoxes() *box.ActiveSet {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.active
}

// PackBoxFlags packs the live mode bitmask in active-set order.
func (c *Controller) PackBoxFlags() box.BitSet {
	c.mu.Lock()
	defer c.mu.Unlock()

	return box.PackStates(c.active, c.liveFlagsLocked())
}

func (c *Controller) liveFlagsLocked() box.LiveFlags {
	return box.LiveFlags{
		Modes:            c.live.FlightModes(),
		RCActive:         c.live.RCActiveBoxes(),
		Armed:            c.arming&ArmingArmed != 0,
		TerrainFollowing: c.live.TerrainFollowing(),
	}
}

// FlightModes reports the currently engaged flight mode flags.
func (c *Controller) FlightModes() box.FlightModeMask {
	return c.live.FlightModes()
}

// SensorStatus builds the 16 bit sensor presence and health word.
func (c *Controller) SensorStatus() uint16 {
	return box.SensorStatusWord(c.hw.SensorsPresent(), c.hw.Healthy())
}

// ArmingFlags returns the raw arming status word.
func (c *Controller) ArmingFlags() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return uint32(c.arming)
}

// Armed reports whether the armed bit is raised.
func (c *Controller) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.arming&ArmingArmed != 0
}

// ArmingDisabled reports whether any blocking condition is raised.
func (c *Controller) ArmingDisabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.arming&ArmingDisabledMask != 0
}

// Arm raises the armed bit, refusing while any blocking condition holds.
func (c *Controller) Arm() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.arming&ArmingDisabledMask != 0 {
		return false
	}
	c.arming |= ArmingArmed | ArmingWasEverArmed

	return true
}

// Disarm clears the armed bit.
func (c *Controller) Disarm() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.arming &^= ArmingArmed
}

// SetArmingFlag raises one blocking condition; collaborators report
// hardware failures and the like through this.
func (c *Controller) SetArmingFlag(flag ArmingFlag) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.arming |= flag
}

// ClearArmingFlag lowers one blocking condition.
func (c *Controller) ClearArmingFlag(flag ArmingFlag) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.arming &^= flag
}

// CategoryState reports where one profile category is in its lifecycle.
func (c *Controller) CategoryState(cat Category) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if int(cat) >= len(c.states) {
		return StateUnloaded
	}

	return c.states[cat]
}

// FallbackCount reports how many loads fell back to defaults because the
// stored content was invalid.
func (c *Controller) FallbackCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fallbacks
}

// RuntimeStats returns the numbers surfaced in status replies.
func (c *Controller) RuntimeStats() (cycleUs, i2cErrors, loadPercent uint16) {
	return c.stats.CycleTimeUs(), c.stats.I2CErrorCount(), c.stats.SystemLoadPercent()
}

// Platform reports the configured vehicle class.
func (c *Controller) Platform() capability.PlatformType {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.store.Mixer.PlatformType
}

// Board names the target board.
func (c *Controller) Board() string {
	return c.tgt.Board
}

// Target returns the target definition the controller was built for.
func (c *Controller) Target() target.Definition {
	return c.tgt
}
