package box

// FlightMode is one annunciator flag of the flight controller core. Bit
// positions form the flight-mode word used in telemetry custom modes.
type FlightMode uint8

const (
	ModeAngle FlightMode = iota
	ModeHorizon
	ModeHeading
	ModeNavAltHold
	ModeNavRTH
	ModeNavPosHold
	ModeHeadFree
	ModeNavLaunch
	ModeManual
	ModeFailsafe
	ModeAutoTune
	ModeNavWP
	ModeNavCourseHold
	ModeFlaperon
	ModeTurnAssist
)

// FlightModeMask is the set of currently engaged flight modes.
type FlightModeMask uint32

func Modes(list ...FlightMode) FlightModeMask {
	var m FlightModeMask
	for _, f := range list {
		m |= 1 << f
	}
	return m
}

func (m FlightModeMask) Has(f FlightMode) bool { return m&(1<<f) != 0 }

// LiveFlags is a point-in-time view of everything the state packer reads:
// which flight modes the core is in, which box switches the pilot holds
// active, and the two conditions reported outside the mode word.
type LiveFlags struct {
	Modes    FlightModeMask
	RCActive Mask

	Armed            bool
	TerrainFollowing bool
}

func (l LiveFlags) rc(id ID) bool { return l.RCActive.Has(id) }

// stateActive reports whether one box should read as engaged. Boxes without
// a case here (PREARM, TURTLE) intentionally never report active; they act
// on edges, not levels.
func stateActive(id ID, l LiveFlags) bool {
	switch id {
	case Angle:
		return l.Modes.Has(ModeAngle)
	case Horizon:
		return l.Modes.Has(ModeHorizon)
	case HeadingHold:
		return l.Modes.Has(ModeHeading)
	case HeadFree:
		return l.Modes.Has(ModeHeadFree)
	case HeadAdj:
		return l.rc(HeadAdj)
	case CamStab:
		return l.rc(CamStab)
	case FPVAngleMix:
		return l.rc(FPVAngleMix)
	case Manual:
		return l.Modes.Has(ModeManual)
	case BeeperOn:
		return l.rc(BeeperOn)
	case LEDLow:
		return l.rc(LEDLow)
	case Lights:
		return l.rc(Lights)
	case OSDOff:
		return l.rc(OSDOff)
	case Telemetry:
		return l.rc(Telemetry)
	case Arm:
		return l.Armed
	case Blackbox:
		return l.rc(Blackbox)
	case Failsafe:
		return l.Modes.Has(ModeFailsafe)
	case NavAltHold:
		return l.Modes.Has(ModeNavAltHold)
	case NavPosHold:
		return l.Modes.Has(ModeNavPosHold)
	case NavCourseHold:
		return l.Modes.Has(ModeNavCourseHold)
	case NavCruise:
		// Cruise is the combination of course hold and altitude hold.
		return l.Modes.Has(ModeNavCourseHold) && l.Modes.Has(ModeNavAltHold)
	case NavRTH:
		return l.Modes.Has(ModeNavRTH)
	case NavWP:
		return l.Modes.Has(ModeNavWP)
	case AirMode:
		return l.rc(AirMode)
	case GCSNav:
		return l.rc(GCSNav)
	case Flaperon:
		return l.Modes.Has(ModeFlaperon)
	case TurnAssist:
		return l.Modes.Has(ModeTurnAssist)
	case NavLaunch:
		return l.Modes.Has(ModeNavLaunch)
	case AutoTune:
		return l.Modes.Has(ModeAutoTune)
	case ServoAutotrim:
		return l.rc(ServoAutotrim)
	case KillSwitch:
		return l.rc(KillSwitch)
	case HomeReset:
		return l.rc(HomeReset)
	case Camera1:
		return l.rc(Camera1)
	case Camera2:
		return l.rc(Camera2)
	case Camera3:
		return l.rc(Camera3)
	case OSDAlt1:
		return l.rc(OSDAlt1)
	case OSDAlt2:
		return l.rc(OSDAlt2)
	case OSDAlt3:
		return l.rc(OSDAlt3)
	case Surface:
		return l.TerrainFollowing
	case Braking:
		return l.rc(Braking)
	case User1:
		return l.rc(User1)
	case User2:
		return l.rc(User2)
	case LoiterDirChange:
		return l.rc(LoiterDirChange)
	case MSPRCOverride:
		return l.rc(MSPRCOverride)
	case AutoLevel:
		return l.rc(AutoLevel)
	case WPPlanner:
		return l.rc(WPPlanner)
	case Soaring:
		return l.rc(Soaring)
	}
	return false
}

// PackStates folds the live flags into a bitmask over the active set: bit i
// carries the state of the box at set position i. The ordering matches the
// box name and permanent-ID listings delivered to the ground station.
func PackStates(set *ActiveSet, live LiveFlags) BitSet {
	bits := NewBitSet(set.Len())
	for i, id := range set.IDs() {
		if stateActive(id, live) {
			bits.Set(i)
		}
	}
	return bits
}

// BitSet is an LSB-first bit array: bit i lives in byte i/8 at bit i%8,
// which matches little-endian word serialization on the wire.
type BitSet []byte

func NewBitSet(n int) BitSet {
	return make(BitSet, (n+7)/8)
}

func (b BitSet) Set(i int) {
	b[i/8] |= 1 << (i % 8)
}

func (b BitSet) Get(i int) bool {
	if i/8 >= len(b) {
		return false
	}
	return b[i/8]&(1<<(i%8)) != 0
}

// Word returns the first 32 bits of the set, for the legacy status replies
// that carry only a single little-endian flag word.
func (b BitSet) Word() uint32 {
	var w uint32
	for i := 0; i < 4 && i < len(b); i++ {
		w |= uint32(b[i]) << (8 * i)
	}
	return w
}
