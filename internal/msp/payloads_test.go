package msp

import (
	"bytes"
	"strings"
	"testing"

	"fccore/internal/box"
	"fccore/internal/capability"
)

func benchActiveSet() *box.ActiveSet {
	return box.Resolve(capability.Snapshot{
		Sensors:        capability.Sensors(capability.SensorAcc, capability.SensorBaro, capability.SensorMag, capability.SensorGPS),
		Features:       capability.Features(capability.FeatureGPS, capability.FeatureAirmode),
		State:          capability.DeriveStateFlags(capability.PlatformMultirotor, false),
		Platform:       capability.PlatformMultirotor,
		CompassWorking: true,
		Build: capability.BuildOptions{
			UseGPS: true,
		},
	})
}

func TestSerializeBoxNamesSemicolonListing(t *testing.T) {
	set := benchActiveSet()

	buf := NewBuffer(replyBufferSize)
	if !SerializeBoxNames(buf, set) {
		t.Fatalf("serialize box names failed")
	}

	listing := string(buf.Bytes())
	if !strings.HasSuffix(listing, ";") {
		t.Fatalf("listing must end with a separator, got %q", listing)
	}

	names := strings.Split(strings.TrimSuffix(listing, ";"), ";")
	if len(names) != set.Len() {
		t.Fatalf("expected %d names, got %d", set.Len(), len(names))
	}
	for i, id := range set.IDs() {
		b, ok := box.Lookup(id)
		if !ok {
			t.Fatalf("active box %v missing from catalog", id)
		}
		if names[i] != b.Name {
			t.Fatalf("name %d mismatch: got %q want %q", i, names[i], b.Name)
		}
	}
}

func TestSerializeBoxNamesFailsClosedWhenShort(t *testing.T) {
	set := benchActiveSet()

	buf := NewBuffer(8)
	if SerializeBoxNames(buf, set) {
		t.Fatalf("expected serialization to fail in a short buffer")
	}
	if buf.Len() != 0 {
		t.Fatalf("failed serialization must not write, got %d bytes", buf.Len())
	}
}

func TestSerializeBoxIDsOneByteEach(t *testing.T) {
	set := benchActiveSet()

	buf := NewBuffer(replyBufferSize)
	if !SerializeBoxIDs(buf, set) {
		t.Fatalf("serialize box ids failed")
	}
	if buf.Len() != set.Len() {
		t.Fatalf("expected %d id bytes, got %d", set.Len(), buf.Len())
	}

	want := make([]byte, 0, set.Len())
	for _, id := range set.IDs() {
		b, ok := box.Lookup(id)
		if !ok {
			t.Fatalf("active box %v missing from catalog", id)
		}
		want = append(want, uint8(b.PermanentID))
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("id bytes mismatch: got %x want %x", buf.Bytes(), want)
	}
}

func TestSerializeBoxIDsFailsClosedWhenShort(t *testing.T) {
	set := benchActiveSet()

	buf := NewBuffer(set.Len() - 1)
	if SerializeBoxIDs(buf, set) {
		t.Fatalf("expected serialization to fail in a short buffer")
	}
	if buf.Len() != 0 {
		t.Fatalf("failed serialization must not write, got %d bytes", buf.Len())
	}
}
