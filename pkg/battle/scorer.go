package battle

import (
	"github.com/rs/zerolog/log"

	"github.com/cloudmeowmog/mezastar/pkg/inventory"
	"github.com/cloudmeowmog/mezastar/pkg/types"
)

// CandidateMode is how a card would be played.
type CandidateMode string

const (
	// FullPower plays the better of both moves and spends the ability, if any.
	FullPower CandidateMode = "full-power"
	// Withheld plays the standard move and keeps the ability for a later battle.
	Withheld CandidateMode = "withheld"
	// Fill is a full-power play with the ability left unused. It is only
	// produced by team selection when the ability is already taken.
	Fill CandidateMode = "fill"
)

// MoveChoice identifies the move a candidate plays.
type MoveChoice struct {
	Slot        int                `json:"slot"`
	Name        string             `json:"name"`
	ElementType types.Type         `json:"elementType"`
	Category    inventory.Category `json:"category"`
	// Effectiveness is the move's effectiveness summed over the opponent slots.
	Effectiveness float64 `json:"effectiveness"`
}

// Candidate is one way of fielding one card.
type Candidate struct {
	CardName           string            `json:"cardName"`
	Mode               CandidateMode     `json:"mode"`
	SpecialAbilityUsed inventory.Ability `json:"specialAbilityUsed"`
	BestMove           MoveChoice        `json:"bestMove"`
	DamageScore        float64           `json:"damageScore"`
	// Damage is the move damage before any ability boost or risk adjustment.
	Damage float64 `json:"damage"`
	Risk   float64 `json:"risk,omitempty"`
	// Order is the card's position in the inventory, used to break ties.
	Order int `json:"-"`

	unboosted float64
}

// Scorer rates cards against a battle configuration.
type Scorer struct {
	Constants Constants
	// UseRisk divides each score by the card's defensive risk.
	UseRisk bool
}

func NewScorer(c Constants) *Scorer {
	return &Scorer{Constants: c}
}

// SlotEffectiveness is the multiplier move type t gets against slot s.
func (sc *Scorer) SlotEffectiveness(t types.Type, s OpponentSlot, mode Mode) float64 {
	if mode == Manual {
		return types.DualEffectiveness(t, s.ManualType1, s.ManualType2)
	}
	if s.Advantaged(t) {
		return sc.Constants.DetectedBonus
	}
	return types.Neutral
}

// MoveDamage scores the move in the given slot of card, summing its
// effectiveness over all opponents. ok is false for an unusable move.
func (sc *Scorer) MoveDamage(card inventory.Card, slot int, cfg Configuration) (MoveChoice, float64, bool) {
	m := card.Moves[slot]
	if !m.Usable() {
		return MoveChoice{}, 0, false
	}
	mode := cfg.Mode()
	var sum float64
	for _, s := range cfg {
		sum += sc.SlotEffectiveness(m.ElementType, s, mode)
	}
	positional := 1.0
	if slot == inventory.SignatureSlot {
		positional = sc.Constants.SignatureMultiplier
	}
	choice := MoveChoice{Slot: slot, Name: m.Name, ElementType: m.ElementType, Category: m.Category, Effectiveness: sum}
	return choice, float64(card.BaseStat(m.Category)) * positional * sum, true
}

// Risk is the worst multiplier any opponent's types deal to card. Detected
// mode knows nothing about opponent types and reports neutral risk.
func (sc *Scorer) Risk(card inventory.Card, cfg Configuration) float64 {
	if cfg.Mode() != Manual {
		return types.Neutral
	}
	risk, seen := 0.0, false
	for _, s := range cfg {
		for _, t := range []types.Type{s.ManualType1, s.ManualType2} {
			if t.IsNone() {
				continue
			}
			seen = true
			if e := types.DualEffectiveness(t, card.PrimaryType, card.SecondaryType); e > risk {
				risk = e
			}
		}
	}
	if !seen {
		return types.Neutral
	}
	return risk
}

func (sc *Scorer) adjust(score, risk float64) float64 {
	if !sc.UseRisk {
		return score
	}
	if risk <= 0 {
		risk = sc.Constants.RiskFloor
	}
	return score / risk
}

// ScoreCard returns the full-power candidate and, for cards holding an
// ability, the withheld candidate. A card without usable moves yields none.
func (sc *Scorer) ScoreCard(card inventory.Card, cfg Configuration) []Candidate {
	var (
		best     MoveChoice
		bestDmg  float64
		haveBest bool
	)
	for slot := range card.Moves {
		choice, dmg, ok := sc.MoveDamage(card, slot, cfg)
		if ok && (!haveBest || dmg > bestDmg) {
			best, bestDmg, haveBest = choice, dmg, true
		}
	}
	if !haveBest {
		log.Debug().Str("card", card.Name).Msg("Card has no usable moves, skipped")
		return nil
	}

	risk := 0.0
	if sc.UseRisk {
		risk = sc.Risk(card, cfg)
	}
	ability := card.SpecialAbility
	if ability.IsNone() {
		ability = inventory.NoAbility
	}
	out := []Candidate{{
		CardName:           card.Name,
		Mode:               FullPower,
		SpecialAbilityUsed: ability,
		BestMove:           best,
		Damage:             bestDmg,
		DamageScore:        sc.adjust(bestDmg*sc.Constants.Boost(ability), risk),
		Risk:               risk,
		unboosted:          sc.adjust(bestDmg, risk),
	}}

	if !ability.IsNone() {
		if choice, dmg, ok := sc.MoveDamage(card, inventory.StandardSlot, cfg); ok {
			out = append(out, Candidate{
				CardName:           card.Name,
				Mode:               Withheld,
				SpecialAbilityUsed: inventory.NoAbility,
				BestMove:           choice,
				Damage:             dmg,
				DamageScore:        sc.adjust(dmg, risk),
				Risk:               risk,
				unboosted:          sc.adjust(dmg, risk),
			})
		}
	}
	return out
}

// Unboosted returns c played with its move unchanged but its ability left unused.
func (c Candidate) Unboosted() Candidate {
	if c.SpecialAbilityUsed.IsNone() {
		return c
	}
	c.Mode = Fill
	c.SpecialAbilityUsed = inventory.NoAbility
	c.DamageScore = c.unboosted
	return c
}

// ScoreInventory scores every card in inventory order.
func (sc *Scorer) ScoreInventory(cards []inventory.Card, cfg Configuration) []Candidate {
	var out []Candidate
	for i, card := range cards {
		for _, c := range sc.ScoreCard(card, cfg) {
			c.Order = i
			out = append(out, c)
		}
	}
	log.Debug().Int("cards", len(cards)).Int("candidates", len(out)).Str("mode", string(cfg.Mode())).Msg("Inventory scored")
	return out
}
