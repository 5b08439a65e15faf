package inventory

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/cloudmeowmog/mezastar/pkg/types"
)

// BaselineStat is substituted for attack / spAttack values missing from older records.
const BaselineStat = 100

// Category selects which stat a move scales with.
type Category string

const (
	Physical Category = "Physical"
	Special  Category = "Special"
)

func ParseCategory(s string) Category {
	if strings.EqualFold(strings.TrimSpace(s), string(Special)) {
		return Special
	}
	return Physical
}

// Ability is a scarce per-card tag; a team may spend each one at most once.
type Ability string

const (
	NoAbility  Ability = "None"
	Mega       Ability = "Mega"
	ZMove      Ability = "Z-Move"
	Dynamax    Ability = "Dynamax"
	Gigantamax Ability = "Gigantamax"
	Terastal   Ability = "Terastal"
)

var abilities = []Ability{Mega, ZMove, Dynamax, Gigantamax, Terastal}

// Abilities lists the closed set of real abilities.
func Abilities() []Ability {
	out := make([]Ability, len(abilities))
	copy(out, abilities)
	return out
}

// ParseAbility is lenient about case and separators ("zmove", "Z Move").
func ParseAbility(s string) Ability {
	key := canonicalAbility(s)
	for _, a := range abilities {
		if canonicalAbility(string(a)) == key {
			return a
		}
	}
	return NoAbility
}

func canonicalAbility(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", " ", "", "_", "").Replace(s)
}

func (a Ability) IsNone() bool {
	return a == "" || a == NoAbility
}

// Move slots on a card.
const (
	StandardSlot  = 0
	SignatureSlot = 1
)

type Move struct {
	Name        string     `json:"name"`
	ElementType types.Type `json:"elementType"`
	Category    Category   `json:"category"`
}

// Usable reports whether the move can be scored; empty-name moves are placeholders.
func (m Move) Usable() bool {
	return strings.TrimSpace(m.Name) != ""
}

// Card is one owned card. Moves always holds exactly two entries.
type Card struct {
	Name           string     `json:"name"`
	Attack         int        `json:"attack"`
	SpAttack       int        `json:"spAttack"`
	PrimaryType    types.Type `json:"primaryType"`
	SecondaryType  types.Type `json:"secondaryType"`
	SpecialAbility Ability    `json:"specialAbility"`
	Moves          [2]Move    `json:"moves"`
}

// BaseStat returns the stat a move of the given category scales with.
func (c Card) BaseStat(cat Category) int {
	if cat == Special {
		return c.SpAttack
	}
	return c.Attack
}

// HasUsableMove reports whether at least one move has a name.
func (c Card) HasUsableMove() bool {
	return c.Moves[StandardSlot].Usable() || c.Moves[SignatureSlot].Usable()
}

// rawMove and rawCard mirror the stored document with every field optional,
// so defaults are applied once at load time.
type rawMove struct {
	Name        string `json:"name"`
	ElementType string `json:"elementType"`
	Category    string `json:"category"`
}

type rawCard struct {
	Name           string    `json:"name"`
	Attack         *int      `json:"attack"`
	SpAttack       *int      `json:"spAttack"`
	PrimaryType    string    `json:"primaryType"`
	SecondaryType  string    `json:"secondaryType"`
	SpecialAbility string    `json:"specialAbility"`
	Moves          []rawMove `json:"moves"`
}

func (r rawCard) toCard() Card {
	c := Card{
		Name:           strings.TrimSpace(r.Name),
		Attack:         statOrBaseline(r.Attack),
		SpAttack:       statOrBaseline(r.SpAttack),
		PrimaryType:    types.Normalize(r.PrimaryType),
		SecondaryType:  types.Normalize(r.SecondaryType),
		SpecialAbility: ParseAbility(r.SpecialAbility),
	}
	for i := 0; i < len(c.Moves) && i < len(r.Moves); i++ {
		c.Moves[i] = Move{
			Name:        strings.TrimSpace(r.Moves[i].Name),
			ElementType: types.Normalize(r.Moves[i].ElementType),
			Category:    ParseCategory(r.Moves[i].Category),
		}
	}
	for i := len(r.Moves); i < len(c.Moves); i++ {
		c.Moves[i] = Move{ElementType: types.None, Category: Physical}
	}
	return c
}

func statOrBaseline(v *int) int {
	if v == nil || *v < 0 {
		return BaselineStat
	}
	return *v
}

// DecodeCard parses a single card document with the defaults used at load
// time, so omitted stats become BaselineStat rather than zero.
func DecodeCard(data []byte) (Card, error) {
	var raw rawCard
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return Card{}, fmt.Errorf("parse card: %w", err)
	}
	return raw.toCard(), nil
}

// Normalize applies the same defaults as loading to a card built in memory.
func Normalize(c Card) Card {
	atk, spa := c.Attack, c.SpAttack
	raw := rawCard{
		Name:           c.Name,
		Attack:         &atk,
		SpAttack:       &spa,
		PrimaryType:    string(c.PrimaryType),
		SecondaryType:  string(c.SecondaryType),
		SpecialAbility: string(c.SpecialAbility),
	}
	for _, m := range c.Moves {
		raw.Moves = append(raw.Moves, rawMove{Name: m.Name, ElementType: string(m.ElementType), Category: string(m.Category)})
	}
	return raw.toCard()
}
