package box

import (
	"testing"

	"fccore/internal/capability"
)

func TestPackStatesBitPositionsFollowSetOrder(t *testing.T) {
	set := Resolve(multirotorGPSSnapshot())

	live := LiveFlags{
		Modes:    Modes(ModeAngle, ModeNavAltHold),
		RCActive: MaskOf(BeeperOn),
		Armed:    true,
	}
	bits := PackStates(set, live)

	if len(bits) != (set.Len()+7)/8 {
		t.Fatalf("expected %d bitmask bytes, got %d", (set.Len()+7)/8, len(bits))
	}

	wantSet := map[ID]bool{Arm: true, Angle: true, NavAltHold: true, BeeperOn: true}
	for i, id := range set.IDs() {
		if bits.Get(i) != wantSet[id] {
			t.Fatalf("bit %d (%v): expected %v", i, id, wantSet[id])
		}
	}
}

func TestPackStatesIdleIsAllZero(t *testing.T) {
	set := Resolve(multirotorGPSSnapshot())

	bits := PackStates(set, LiveFlags{})
	for _, b := range bits {
		if b != 0 {
			t.Fatalf("expected all-zero bitmask when nothing is active, got % x", []byte(bits))
		}
	}
	if bits.Word() != 0 {
		t.Fatalf("expected zero legacy word, got %#x", bits.Word())
	}
}

func TestPackStatesCruiseNeedsCourseAndAltHold(t *testing.T) {
	snap := capability.Snapshot{
		Sensors:  capability.Sensors(capability.SensorAcc, capability.SensorBaro, capability.SensorGPS),
		Features: capability.Features(capability.FeatureGPS),
		State:    capability.DeriveStateFlags(capability.PlatformAirplane, false),
		Platform: capability.PlatformAirplane,
		Build:    capability.BuildOptions{UseGPS: true},
	}
	set := Resolve(snap)
	idx, ok := set.IndexOf(NavCruise)
	if !ok {
		t.Fatalf("expected NAV CRUISE in airplane set")
	}

	bits := PackStates(set, LiveFlags{Modes: Modes(ModeNavCourseHold)})
	if bits.Get(idx) {
		t.Fatalf("cruise must not report active on course hold alone")
	}

	bits = PackStates(set, LiveFlags{Modes: Modes(ModeNavCourseHold, ModeNavAltHold)})
	if !bits.Get(idx) {
		t.Fatalf("expected cruise active with course hold and altitude hold")
	}
	if ch, _ := set.IndexOf(NavCourseHold); !bits.Get(ch) {
		t.Fatalf("expected course hold bit alongside cruise")
	}
}

func TestPackStatesEdgeBoxesNeverReport(t *testing.T) {
	set := Resolve(multirotorGPSSnapshot())

	// Claiming the switches makes no difference: PREARM and TURTLE act on
	// edges and have no level state to report.
	live := LiveFlags{RCActive: MaskOf(Prearm, Turtle)}
	bits := PackStates(set, live)

	for _, id := range []ID{Prearm, Turtle} {
		idx, ok := set.IndexOf(id)
		if !ok {
			t.Fatalf("expected %v in set", id)
		}
		if bits.Get(idx) {
			t.Fatalf("%v must never pack as active", id)
		}
	}
}

func TestPackStatesSurfaceFollowsTerrainFlag(t *testing.T) {
	snap := multirotorGPSSnapshot()
	snap.Sensors |= capability.Sensors(capability.SensorRangefinder, capability.SensorOpFlow)
	set := Resolve(snap)

	idx, ok := set.IndexOf(Surface)
	if !ok {
		t.Fatalf("expected SURFACE in set")
	}
	if bits := PackStates(set, LiveFlags{}); bits.Get(idx) {
		t.Fatalf("surface bit must be clear without terrain following")
	}
	if bits := PackStates(set, LiveFlags{TerrainFollowing: true}); !bits.Get(idx) {
		t.Fatalf("expected surface bit with terrain following engaged")
	}
}

func TestBitSetWord(t *testing.T) {
	bits := NewBitSet(40)
	bits.Set(0)
	bits.Set(9)
	bits.Set(31)
	bits.Set(33) // beyond the legacy word

	if got := bits.Word(); got != 1|1<<9|1<<31 {
		t.Fatalf("expected legacy word %#x, got %#x", uint32(1|1<<9|1<<31), got)
	}
	if !bits.Get(33) {
		t.Fatalf("expected bit 33 set in full mask")
	}
	if bits.Get(34) {
		t.Fatalf("did not expect bit 34")
	}
}

func TestSensorStatusWord(t *testing.T) {
	m := capability.Sensors(capability.SensorAcc, capability.SensorBaro, capability.SensorMag)
	if got := SensorStatusWord(m, true); got != 0x0007 {
		t.Fatalf("expected 0x0007, got %#04x", got)
	}
	if got := SensorStatusWord(m, false); got != 0x8007 {
		t.Fatalf("expected failure bit set, got %#04x", got)
	}

	all := capability.Sensors(capability.SensorAcc, capability.SensorBaro, capability.SensorMag,
		capability.SensorGPS, capability.SensorRangefinder, capability.SensorOpFlow,
		capability.SensorPitot, capability.SensorTemp)
	if got := SensorStatusWord(all, true); got != 0x00FF {
		t.Fatalf("expected 0x00ff, got %#04x", got)
	}
}

func TestCatalogPermanentIDsRoundTrip(t *testing.T) {
	seen := map[PermanentID]ID{}
	for _, b := range catalog {
		if prev, dup := seen[b.PermanentID]; dup {
			t.Fatalf("permanent ID %d assigned to both %v and %v", b.PermanentID, prev, b.ID)
		}
		seen[b.PermanentID] = b.ID

		got, ok := LookupPermanent(b.PermanentID)
		if !ok || got.ID != b.ID {
			t.Fatalf("LookupPermanent(%d): expected %v, got %v (ok=%v)", b.PermanentID, b.ID, got.ID, ok)
		}
		if b.Name == "" {
			t.Fatalf("box %v has no display name", b.ID)
		}
	}
	if _, ok := LookupPermanent(PermanentIDNone); ok {
		t.Fatalf("the unassigned marker must never resolve")
	}
	if _, ok := LookupPermanent(200); ok {
		t.Fatalf("unknown permanent ID must not resolve")
	}
}

func TestCatalogKnownPermanentIDs(t *testing.T) {
	// Spot checks against IDs ground stations hardcode.
	checks := map[ID]PermanentID{
		Arm:           0,
		Angle:         1,
		NavRTH:        10,
		Failsafe:      27,
		NavCourseHold: 45,
		User1:         47,
		User2:         48,
		Prearm:        51,
		Soaring:       56,
	}
	for id, want := range checks {
		b, ok := Lookup(id)
		if !ok {
			t.Fatalf("missing catalog entry for %v", id)
		}
		if b.PermanentID != want {
			t.Fatalf("%v: expected permanent ID %d, got %d", id, want, b.PermanentID)
		}
	}
}
