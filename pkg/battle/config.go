package battle

import (
	"github.com/cloudmeowmog/mezastar/pkg/types"
)

// Slots is the number of opponents in a battle.
const Slots = 3

// Mode says where slot effectiveness comes from for a whole battle.
type Mode string

const (
	// Manual uses operator-entered opponent types.
	Manual Mode = "manual"
	// Detected uses advantage icons found by the detector.
	Detected Mode = "detected"
)

// OpponentSlot is one opponent position, read left to right.
type OpponentSlot struct {
	ManualType1 types.Type   `json:"type1"`
	ManualType2 types.Type   `json:"type2"`
	Detected    []types.Type `json:"detected"`
}

// HasManual reports whether the operator set any type on this slot.
func (s OpponentSlot) HasManual() bool {
	return !s.ManualType1.IsNone() || !s.ManualType2.IsNone()
}

// Advantaged reports whether t is among the slot's detected advantage labels.
func (s OpponentSlot) Advantaged(t types.Type) bool {
	if t.IsNone() {
		return false
	}
	for _, d := range s.Detected {
		if d == t {
			return true
		}
	}
	return false
}

// Configuration is the three opponent slots of one battle.
type Configuration [Slots]OpponentSlot

// NewManual builds a configuration from explicit type pairs.
func NewManual(pairs [Slots][2]types.Type) Configuration {
	var c Configuration
	for i, p := range pairs {
		c[i].ManualType1, c[i].ManualType2 = p[0], p[1]
	}
	return c.normalized()
}

// FromDetection builds a configuration from per-zone detector output.
func FromDetection(zones [Slots][]types.Type) Configuration {
	var c Configuration
	for i, z := range zones {
		c[i].Detected = append([]types.Type(nil), z...)
	}
	return c.normalized()
}

// WithManual returns a copy with the manual types of slot i replaced.
func (c Configuration) WithManual(i int, t1, t2 types.Type) Configuration {
	if i < 0 || i >= Slots {
		return c
	}
	c[i].ManualType1, c[i].ManualType2 = t1, t2
	return c.normalized()
}

// Mode is Manual as soon as any slot has a manual type; detection is
// ignored for the whole battle in that case.
func (c Configuration) Mode() Mode {
	for _, s := range c {
		if s.HasManual() {
			return Manual
		}
	}
	return Detected
}

func (c Configuration) normalized() Configuration {
	for i := range c {
		c[i].ManualType1 = types.Normalize(string(c[i].ManualType1))
		c[i].ManualType2 = types.Normalize(string(c[i].ManualType2))
	}
	return c
}
