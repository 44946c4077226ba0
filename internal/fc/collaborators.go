package fc

import (
	"fccore/internal/box"
	"fccore/internal/capability"
)

// Hardware reports the live sensor inventory. The daemon backs it with the
// target definition; a real board would back it with driver detection.
type Hardware interface {
	SensorsPresent() capability.SensorMask
	CompassWorking() bool
	Healthy() bool
}

// StaticHardware is a fixed Hardware answer set.
type StaticHardware struct {
	Sensors   capability.SensorMask
	CompassOK bool
	AllOK     bool
}

func (h StaticHardware) SensorsPresent() capability.SensorMask { return h.Sensors }

func (h StaticHardware) CompassWorking() bool {
	return h.CompassOK && h.Sensors.Has(capability.SensorMag)
}

func (h StaticHardware) Healthy() bool { return h.AllOK }

// RxSuspender quiesces the RC signal consumer while storage is written.
// Storage writes can outlast the RC frame deadline, so the consumer must
// not treat the stall as a signal loss.
type RxSuspender interface {
	SuspendRxSignal()
	ResumeRxSignal()
}

// NopRxSuspender is the default when no RC consumer is attached.
type NopRxSuspender struct{}

func (NopRxSuspender) SuspendRxSignal() {}

func (NopRxSuspender) ResumeRxSignal() {}

// Subsystems receives the activation fan-out. Each hook reinitializes one
// live subsystem from the settings currently installed in the controller.
type Subsystems interface {
	ActivateControlRates()
	ActivateBatteryProfile()
	ResetAdjustmentStates()
	UpdateUsedModeActivationFlags()
	ResetFailsafe()
	ApplyAccCalibration()
	ConfigureEstimator()
	InitControlLoops()
	RefreshNavGains()
}

// NopSubsystems is the default when no live subsystems are attached.
type NopSubsystems struct{}

func (NopSubsystems) ActivateControlRates()          {}
func (NopSubsystems) ActivateBatteryProfile()        {}
func (NopSubsystems) ResetAdjustmentStates()         {}
func (NopSubsystems) UpdateUsedModeActivationFlags() {}
func (NopSubsystems) ResetFailsafe()                 {}
func (NopSubsystems) ApplyAccCalibration()           {}
func (NopSubsystems) ConfigureEstimator()            {}
func (NopSubsystems) InitControlLoops()              {}
func (NopSubsystems) RefreshNavGains()               {}

// LiveSource supplies the transient flight state read by the box packer.
// The armed bit is not part of it; the controller owns arming.
type LiveSource interface {
	FlightModes() box.FlightModeMask
	RCActiveBoxes() box.Mask
	TerrainFollowing() bool
}

// StaticLive is a fixed LiveSource; its zero value reports nothing active.
type StaticLive struct {
	Modes   box.FlightModeMask
	RC      box.Mask
	Terrain bool
}

func (l StaticLive) FlightModes() box.FlightModeMask { return l.Modes }

func (l StaticLive) RCActiveBoxes() box.Mask { return l.RC }

func (l StaticLive) TerrainFollowing() bool { return l.Terrain }

// StatsSource supplies the runtime numbers surfaced in status replies.
type StatsSource interface {
	CycleTimeUs() uint16
	I2CErrorCount() uint16
	SystemLoadPercent() uint16
}

// StaticStats is a fixed StatsSource.
type StaticStats struct {
	CycleUs  uint16
	I2CFails uint16
	Load     uint16
}

func (s StaticStats) CycleTimeUs() uint16 { return s.CycleUs }

func (s StaticStats) I2CErrorCount() uint16 { return s.I2CFails }

func (s StaticStats) SystemLoadPercent() uint16 { return s.Load }
