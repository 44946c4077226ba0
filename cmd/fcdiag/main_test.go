package main

import (
	"reflect"
	"testing"
)

func TestSplitBoxNames(t *testing.T) {
	got := splitBoxNames([]byte("ARM;ANGLE;NAV POSHOLD;"))
	want := []string{"ARM", "ANGLE", "NAV POSHOLD"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("splitBoxNames = %v, want %v", got, want)
	}

	if got := splitBoxNames(nil); len(got) != 0 {
		t.Fatalf("empty payload should yield no names, got %v", got)
	}
}

func TestDescribeSensors(t *testing.T) {
	if got := describeSensors(0); got != "none" {
		t.Errorf("describeSensors(0) = %q", got)
	}

	got := describeSensors(1<<0 | 1<<3)
	if got != "acc, gps" {
		t.Errorf("describeSensors = %q, want %q", got, "acc, gps")
	}

	got = describeSensors(1<<1 | 1<<15)
	if got != "baro, HARDWARE FAILURE" {
		t.Errorf("describeSensors = %q", got)
	}
}

func TestRunArmflagsRejectsBadInput(t *testing.T) {
	if err := runArmflags([]string{"zzz"}); err == nil {
		t.Error("expected parse error")
	}
	if err := runArmflags(nil); err == nil {
		t.Error("expected usage error")
	}
	if err := runArmflags([]string{"4"}); err != nil {
		t.Errorf("valid word rejected: %v", err)
	}
}
