package types

import "strings"

// Type is one of the 18 elemental labels, or None.
type Type string

const (
	None     Type = "None"
	Normal   Type = "Normal"
	Fire     Type = "Fire"
	Water    Type = "Water"
	Electric Type = "Electric"
	Grass    Type = "Grass"
	Ice      Type = "Ice"
	Fighting Type = "Fighting"
	Poison   Type = "Poison"
	Ground   Type = "Ground"
	Flying   Type = "Flying"
	Psychic  Type = "Psychic"
	Bug      Type = "Bug"
	Rock     Type = "Rock"
	Ghost    Type = "Ghost"
	Dragon   Type = "Dragon"
	Dark     Type = "Dark"
	Steel    Type = "Steel"
	Fairy    Type = "Fairy"
)

var all = []Type{
	Normal, Fire, Water, Electric, Grass, Ice, Fighting, Poison, Ground,
	Flying, Psychic, Bug, Rock, Ghost, Dragon, Dark, Steel, Fairy,
}

// All returns the 18 real types in canonical order. None is not included.
func All() []Type {
	out := make([]Type, len(all))
	copy(out, all)
	return out
}

// Parse resolves a label case-insensitively. Empty input parses as None.
func Parse(s string) (Type, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, string(None)) {
		return None, true
	}
	for _, t := range all {
		if strings.EqualFold(s, string(t)) {
			return t, true
		}
	}
	return None, false
}

// Normalize maps unknown labels to None.
func Normalize(s string) Type {
	t, _ := Parse(s)
	return t
}

func (t Type) Valid() bool {
	_, ok := Parse(string(t))
	return ok
}

func (t Type) IsNone() bool {
	return t == "" || t == None
}

func (t Type) String() string {
	if t == "" {
		return string(None)
	}
	return string(t)
}
