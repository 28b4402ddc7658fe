package domain

import (
	"fmt"
	"strings"
	"sync/atomic"
)

const (
	// ReservedPrefix marks temporary directories owned by scanmirror. Cleanup
	// refuses to delete anything whose base name does not carry it.
	ReservedPrefix = "csi-"

	// SlotCount is the size of the naming range. Slots run from 0 to
	// SlotCount-1 and the counter wraps back to 0 after the last one.
	SlotCount = 1000

	slotDigits = 3
)

// SlotNamer hands out temporary directory names from a fixed, rotating range.
//
// Next wraps explicitly: after slot SlotCount-1 the following call yields slot
// 0 again. Names are therefore only distinct across SlotCount consecutive
// calls; the materializer resolves reuse by claiming directories exclusively
// and skipping slots that are still live.
type SlotNamer struct {
	next atomic.Uint32
}

// defaultNamer is shared by every materializer in the process.
var defaultNamer = &SlotNamer{}

// NewSlotNamer constructs a namer starting at slot 0.
func NewSlotNamer() *SlotNamer {
	return &SlotNamer{}
}

// Next returns the name for the next slot.
func (n *SlotNamer) Next() string {
	return SlotName(n.acquire())
}

// acquire atomically returns the current slot and advances the counter,
// wrapping to 0 after SlotCount-1.
func (n *SlotNamer) acquire() uint32 {
	for {
		current := n.next.Load()

		following := current + 1
		if following >= SlotCount {
			following = 0
		}

		if n.next.CompareAndSwap(current, following) {
			return current
		}
	}
}

// SlotName formats slot as a reserved directory name.
func SlotName(slot uint32) string {
	return fmt.Sprintf("%s%0*d", ReservedPrefix, slotDigits, slot%SlotCount)
}

// IsReservedName reports whether name was produced by SlotName: the reserved
// prefix followed by exactly three digits.
func IsReservedName(name string) bool {
	suffix, ok := strings.CutPrefix(name, ReservedPrefix)
	if !ok || len(suffix) != slotDigits {
		return false
	}

	for _, r := range suffix {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
