package team

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/cloudmeowmog/mezastar/pkg/battle"
	"github.com/cloudmeowmog/mezastar/pkg/inventory"
)

// Size is the usual team size.
const Size = 3

type Options struct {
	Size int `toml:"size" json:"size"`
	// RelaxedFill lets a second pass field cards whose ability was already
	// taken, playing their best move without spending it.
	RelaxedFill bool `toml:"relaxed_fill" json:"relaxedFill"`
}

func DefaultOptions() Options {
	return Options{Size: Size, RelaxedFill: true}
}

// Team is the selected lineup in pick order. It may hold fewer members than
// requested when the inventory is small or constraints leave slots empty.
type Team struct {
	Members []battle.Candidate `json:"members"`
	Total   float64            `json:"total"`
	Partial bool               `json:"partial"`
}

// Select assembles a team greedily by score. Each card is picked at most
// once and each ability is spent by at most one member. Equal scores keep
// their input order.
func Select(cands []battle.Candidate, opts Options) Team {
	size := opts.Size
	if size <= 0 {
		size = Size
	}

	sorted := make([]battle.Candidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DamageScore > sorted[j].DamageScore
	})

	t := Team{Members: []battle.Candidate{}}
	usedCards := make(map[string]bool)
	usedAbilities := make(map[inventory.Ability]bool)
	accept := func(c battle.Candidate) {
		t.Members = append(t.Members, c)
		t.Total += c.DamageScore
		usedCards[c.CardName] = true
		if !c.SpecialAbilityUsed.IsNone() {
			usedAbilities[c.SpecialAbilityUsed] = true
		}
	}

	// Phase 1: ability constraint enforced.
	for _, c := range sorted {
		if len(t.Members) >= size {
			break
		}
		if usedCards[c.CardName] {
			continue
		}
		if !c.SpecialAbilityUsed.IsNone() && usedAbilities[c.SpecialAbilityUsed] {
			continue
		}
		accept(c)
	}

	// Phase 2: remaining cards play without their ability.
	if opts.RelaxedFill && len(t.Members) < size {
		var fill []battle.Candidate
		for _, c := range sorted {
			if c.Mode == battle.FullPower && !usedCards[c.CardName] {
				fill = append(fill, c.Unboosted())
			}
		}
		sort.SliceStable(fill, func(i, j int) bool {
			return fill[i].DamageScore > fill[j].DamageScore
		})
		for _, c := range fill {
			if len(t.Members) >= size {
				break
			}
			if usedCards[c.CardName] {
				continue
			}
			accept(c)
		}
	}

	t.Partial = len(t.Members) < size
	if t.Partial {
		log.Info().Int("members", len(t.Members)).Int("wanted", size).Msg("Partial team selected")
	}
	return t
}
