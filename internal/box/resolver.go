package box

import "fccore/internal/capability"

// ActiveSet is the ordered list of boxes the current configuration offers.
// The position of a box inside the set is its bit position in the packed
// live-state bitmask, so ground stations rely on set order staying in sync
// between the name/ID listings and the status flags. Rebuild and reads must
// therefore be serialized by the owner.
type ActiveSet struct {
	ids        []ID
	member     Mask
	overflowed bool
}

func (s *ActiveSet) add(id ID) {
	if s.member.Has(id) {
		return
	}
	if len(s.ids) >= Count {
		s.overflowed = true
		return
	}
	s.member = s.member.With(id)
	s.ids = append(s.ids, id)
}

// Len reports how many boxes are active.
func (s *ActiveSet) Len() int { return len(s.ids) }

// IDs returns the active boxes in wire order. The slice is owned by the
// set; callers must not modify it.
func (s *ActiveSet) IDs() []ID { return s.ids }

// Contains reports whether id made it into the set.
func (s *ActiveSet) Contains(id ID) bool { return s.member.Has(id) }

// IndexOf returns the bit position of id in the packed state bitmask.
func (s *ActiveSet) IndexOf(id ID) (int, bool) {
	if !s.member.Has(id) {
		return 0, false
	}
	for i, v := range s.ids {
		if v == id {
			return i, true
		}
	}
	return 0, false
}

// Overflowed reports that at least one box was dropped because the set was
// full. With the current catalog this cannot happen; the guard exists so a
// future catalog growth fails soft instead of corrupting the set.
func (s *ActiveSet) Overflowed() bool { return s.overflowed }

// Resolve computes the active box set for one capability snapshot. The
// append order below is a frozen wire contract: it decides bit positions in
// the packed state bitmask, so new boxes may only be inserted where the
// corresponding capability gate lives, never reordered.
func Resolve(snap capability.Snapshot) *ActiveSet {
	s := &ActiveSet{ids: make([]ID, 0, Count)}

	s.add(Arm)
	s.add(Prearm)

	if snap.Sensors.Has(capability.SensorAcc) && snap.State.Has(capability.StateAltitudeControl) {
		s.add(Angle)
		s.add(Horizon)
		s.add(TurnAssist)
	}

	if !snap.Features.Has(capability.FeatureAirmode) && snap.State.Has(capability.StateAltitudeControl) {
		s.add(AirMode)
	}

	s.add(HeadingHold)
	s.add(CamStab)

	if snap.State.Has(capability.StateMultirotor) {
		if snap.Sensors.Has(capability.SensorAcc) || snap.Sensors.Has(capability.SensorMag) {
			s.add(HeadFree)
			s.add(HeadAdj)
		}
		if snap.Sensors.Has(capability.SensorBaro) &&
			snap.Sensors.Has(capability.SensorRangefinder) &&
			snap.Sensors.Has(capability.SensorOpFlow) {
			s.add(Surface)
		}
		s.add(FPVAngleMix)
	}

	navReadyAltControl := snap.Sensors.Has(capability.SensorBaro)
	if snap.Build.UseGPS {
		navReadyAltControl = navReadyAltControl ||
			(snap.Features.Has(capability.FeatureGPS) &&
				(snap.State.Has(capability.StateAirplane) || snap.UseGPSNoBaro))

		navFlowDeadReckoning := snap.Sensors.Has(capability.SensorOpFlow) &&
			snap.Sensors.Has(capability.SensorAcc) &&
			snap.AllowDeadReckoning

		navReadyPosControl := snap.Sensors.Has(capability.SensorAcc) &&
			snap.Features.Has(capability.FeatureGPS)
		if snap.State.Has(capability.StateMultirotor) {
			navReadyPosControl = navReadyPosControl && snap.CompassWorking
		}

		if snap.State.Has(capability.StateAltitudeControl) && navReadyAltControl &&
			(navReadyPosControl || navFlowDeadReckoning) {
			s.add(NavPosHold)
			if snap.State.Has(capability.StateAirplane) {
				s.add(LoiterDirChange)
			}
		}

		if navReadyPosControl {
			if !snap.State.Has(capability.StateAltitudeControl) || navReadyAltControl {
				s.add(NavRTH)
				s.add(NavWP)
				s.add(HomeReset)
				s.add(GCSNav)
				s.add(WPPlanner)
			}
			if snap.State.Has(capability.StateAirplane) {
				s.add(NavCruise)
				s.add(NavCourseHold)
				s.add(Soaring)
			}
		}

		if snap.Build.UseBrakingMode && snap.Platform == capability.PlatformMultirotor {
			s.add(Braking)
		}
	}

	if snap.State.Has(capability.StateAltitudeControl) && navReadyAltControl {
		s.add(NavAltHold)
	}

	if snap.State.Has(capability.StateAirplane) ||
		snap.State.Has(capability.StateRover) ||
		snap.State.Has(capability.StateBoat) {
		s.add(Manual)
	}

	if snap.State.Has(capability.StateAirplane) {
		// Launch and autotrim boxes are only offered when the permanent
		// feature flag does not force them on already.
		if !snap.Features.Has(capability.FeatureFixedWingLaunch) {
			s.add(NavLaunch)
		}
		if !snap.Features.Has(capability.FeatureFixedWingAutotrim) {
			s.add(ServoAutotrim)
		}
		if snap.Build.UseFixedWingAutotune {
			s.add(AutoTune)
		}
		if snap.Sensors.Has(capability.SensorBaro) {
			s.add(AutoLevel)
		}
	}

	// Flaperon only makes sense on airframes whose mixer exposes it.
	// Activating it on a flying wing misbehaves badly.
	if snap.State.Has(capability.StateFlaperonAvailable) {
		s.add(Flaperon)
	}

	s.add(BeeperOn)

	if snap.Build.UseLights {
		s.add(Lights)
	}
	if snap.Build.UseLEDStrip && snap.Features.Has(capability.FeatureLEDStrip) {
		s.add(LEDLow)
	}

	s.add(OSDOff)

	if snap.Build.UseTelemetry && snap.Features.Has(capability.FeatureTelemetry) && snap.TelemetrySwitch {
		s.add(Telemetry)
	}
	if snap.Build.UseBlackbox && snap.Features.Has(capability.FeatureBlackbox) {
		s.add(Blackbox)
	}

	s.add(KillSwitch)
	s.add(Failsafe)

	if snap.Build.UseRCDevice {
		s.add(Camera1)
		s.add(Camera2)
		s.add(Camera3)
	}

	if snap.Build.UsePinioBox {
		s.add(User1)
		s.add(User2)
	}

	if snap.Build.UseOSD {
		if snap.Build.OSDLayoutCount > 0 {
			s.add(OSDAlt1)
		}
		if snap.Build.OSDLayoutCount > 1 {
			s.add(OSDAlt2)
		}
		if snap.Build.OSDLayoutCount > 2 {
			s.add(OSDAlt3)
		}
	}

	if snap.Build.UseRxMSP && snap.Build.UseMSPRCOverride {
		s.add(MSPRCOverride)
	}

	if snap.Build.UseDshot && snap.State.Has(capability.StateMultirotor) && snap.DshotMotors {
		s.add(Turtle)
	}

	return s
}
