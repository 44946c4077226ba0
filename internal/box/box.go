// Package box maintains the catalog of activation boxes (flight modes and
// auxiliary switches a transmitter can toggle), decides which subset a given
// firmware configuration actually offers, and packs the live on/off states
// of that subset into the wire bitmask ground stations consume.
package box

import "fmt"

// ID is the dense in-memory identifier of a box. Values are stable within
// one build only; nothing persisted or sent on the wire may contain an ID.
type ID uint8

const (
	Arm ID = iota
	Angle
	Horizon
	NavAltHold
	HeadingHold
	HeadFree
	HeadAdj
	CamStab
	NavRTH
	NavPosHold
	Manual
	BeeperOn
	LEDLow
	Lights
	OSDOff
	Telemetry
	AutoTune
	Blackbox
	Failsafe
	NavWP
	AirMode
	HomeReset
	GCSNav
	FPVAngleMix
	Surface
	Flaperon
	TurnAssist
	NavLaunch
	ServoAutotrim
	KillSwitch
	Camera1
	Camera2
	Camera3
	OSDAlt1
	OSDAlt2
	OSDAlt3
	NavCourseHold
	Braking
	User1
	User2
	LoiterDirChange
	MSPRCOverride
	Prearm
	Turtle
	NavCruise
	AutoLevel
	WPPlanner
	Soaring

	idCount
)

// Count is the total number of boxes this build knows about.
const Count = int(idCount)

// PermanentID is the stable external identifier of a box. Ground stations
// store these in mode-range configuration, so a value assigned once is
// never reused for anything else.
type PermanentID uint8

// PermanentIDNone marks an unassigned permanent ID slot.
const PermanentIDNone PermanentID = 0xFF

// Box couples a box's in-memory ID with its externally visible identity.
type Box struct {
	ID          ID
	Name        string
	PermanentID PermanentID
}

// catalog lists every box this build supports. Order follows ID. Names and
// permanent IDs are frozen wire contract.
var catalog = [Count]Box{
	{Arm, "ARM", 0},
	{Angle, "ANGLE", 1},
	{Horizon, "HORIZON", 2},
	{NavAltHold, "NAV ALTHOLD", 3},
	{HeadingHold, "HEADING HOLD", 5},
	{HeadFree, "HEADFREE", 6},
	{HeadAdj, "HEADADJ", 7},
	{CamStab, "CAMSTAB", 8},
	{NavRTH, "NAV RTH", 10},
	{NavPosHold, "NAV POSHOLD", 11},
	{Manual, "MANUAL", 12},
	{BeeperOn, "BEEPER", 13},
	{LEDLow, "LEDS OFF", 15},
	{Lights, "LIGHTS", 16},
	{OSDOff, "OSD OFF", 19},
	{Telemetry, "TELEMETRY", 20},
	{AutoTune, "AUTO TUNE", 21},
	{Blackbox, "BLACKBOX", 26},
	{Failsafe, "FAILSAFE", 27},
	{NavWP, "NAV WP", 28},
	{AirMode, "AIR MODE", 29},
	{HomeReset, "HOME RESET", 30},
	{GCSNav, "GCS NAV", 31},
	{FPVAngleMix, "FPV ANGLE MIX", 32},
	{Surface, "SURFACE", 33},
	{Flaperon, "FLAPERON", 34},
	{TurnAssist, "TURN ASSIST", 35},
	{NavLaunch, "NAV LAUNCH", 36},
	{ServoAutotrim, "SERVO AUTOTRIM", 37},
	{KillSwitch, "KILLSWITCH", 38},
	{Camera1, "CAMERA CONTROL 1", 39},
	{Camera2, "CAMERA CONTROL 2", 40},
	{Camera3, "CAMERA CONTROL 3", 41},
	{OSDAlt1, "OSD ALT 1", 42},
	{OSDAlt2, "OSD ALT 2", 43},
	{OSDAlt3, "OSD ALT 3", 44},
	{NavCourseHold, "NAV COURSE HOLD", 45},
	{Braking, "MC BRAKING", 46},
	{User1, "USER1", 47},
	{User2, "USER2", 48},
	{LoiterDirChange, "LOITER CHANGE", 49},
	{MSPRCOverride, "MSP RC OVERRIDE", 50},
	{Prearm, "PREARM", 51},
	{Turtle, "TURTLE", 52},
	{NavCruise, "NAV CRUISE", 53},
	{AutoLevel, "AUTO LEVEL", 54},
	{WPPlanner, "WP PLANNER", 55},
	{Soaring, "SOARING", 56},
}

// Lookup returns the catalog entry for id.
func Lookup(id ID) (Box, bool) {
	if id >= idCount {
		return Box{}, false
	}
	return catalog[id], true
}

// LookupPermanent finds the box carrying the given permanent ID. Callers
// that hit the not-found case must skip the entry silently rather than
// guess; an unknown permanent ID usually means configuration written by a
// newer build.
func LookupPermanent(pid PermanentID) (Box, bool) {
	if pid == PermanentIDNone {
		return Box{}, false
	}
	for _, b := range catalog {
		if b.PermanentID == pid {
			return b, true
		}
	}
	return Box{}, false
}

func (id ID) String() string {
	if b, ok := Lookup(id); ok {
		return b.Name
	}
	return fmt.Sprintf("box(%d)", uint8(id))
}

// Mask is a set of boxes keyed by ID.
type Mask uint64

func MaskOf(ids ...ID) Mask {
	var m Mask
	for _, id := range ids {
		m |= 1 << id
	}
	return m
}

func (m Mask) Has(id ID) bool { return m&(1<<id) != 0 }

func (m Mask) With(id ID) Mask { return m | 1<<id }
