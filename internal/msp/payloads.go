package msp

import "fccore/internal/box"

// SerializeBoxNames writes the semicolon-terminated name listing of the
// active set. The total length is checked up front: a truncated listing
// would desynchronize the ground station's box indexing, so on
// insufficient space nothing is written and false returns. Boxes missing
// from the catalog are skipped silently.
func SerializeBoxNames(dst *Buffer, set *box.ActiveSet) bool {
	total := 0
	for _, id := range set.IDs() {
		b, ok := box.Lookup(id)
		if !ok {
			continue
		}
		total += len(b.Name) + 1
	}
	if dst.Remaining() < total {
		return false
	}

	for _, id := range set.IDs() {
		b, ok := box.Lookup(id)
		if !ok {
			continue
		}
		dst.WriteData([]byte(b.Name))
		dst.WriteU8(';')
	}

	return true
}

// SerializeBoxIDs writes one permanent ID byte per active box, in set
// order.
func SerializeBoxIDs(dst *Buffer, set *box.ActiveSet) bool {
	if dst.Remaining() < set.Len() {
		return false
	}

	for _, id := range set.IDs() {
		b, ok := box.Lookup(id)
		if !ok {
			continue
		}
		dst.WriteU8(uint8(b.PermanentID))
	}

	return true
}
