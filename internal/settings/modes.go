package settings

import "fccore/internal/box"

// Mode-range steps: a step of n maps to 900+25n microseconds, covering the
// usable RC pulse band in 25 us increments.
const (
	ModeStepToPWMBase = 900
	ModeStepToPWMStep = 25
	ModeStepMax       = 48 // 2100 us
)

// StepToPWM converts a range step to its pulse width in microseconds.
func StepToPWM(step uint8) uint16 {
	return uint16(ModeStepToPWMBase + int(step)*ModeStepToPWMStep)
}

// ModeActivationCondition ties one box to an AUX channel band. Conditions
// reference boxes by permanent ID, never by in-memory ID, so stored tables
// survive catalog reshuffles.
type ModeActivationCondition struct {
	PermanentID     box.PermanentID
	AuxChannelIndex uint8
	RangeStartStep  uint8
	RangeEndStep    uint8
}

// Used reports whether the condition describes a non-empty band.
func (c *ModeActivationCondition) Used() bool {
	return c.RangeStartStep < c.RangeEndStep
}

// ModeActivationSettings is the stored mode-range table.
type ModeActivationSettings struct {
	Conditions [MaxModeActivationConditions]ModeActivationCondition
}

// UsedBoxes returns the set of boxes that have at least one usable range,
// resolved through the catalog. Conditions naming unknown permanent IDs
// are skipped: they typically come from configuration written by a newer
// build and must not degrade the rest of the table.
func (m *ModeActivationSettings) UsedBoxes() box.Mask {
	var mask box.Mask
	for i := range m.Conditions {
		c := &m.Conditions[i]
		if !c.Used() {
			continue
		}
		if b, ok := box.LookupPermanent(c.PermanentID); ok {
			mask = mask.With(b.ID)
		}
	}
	return mask
}
