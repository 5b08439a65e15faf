package battle

import (
	"errors"

	"github.com/cloudmeowmog/mezastar/pkg/inventory"
)

// Constants are the tuning values of the scorer. They are empirical and
// expected to be rebalanced, so all of them can be overridden from config.
type Constants struct {
	// DetectedBonus is the slot multiplier for a move whose type matches a
	// detected advantage icon.
	DetectedBonus float64 `toml:"detected_bonus" json:"detectedBonus"`
	// SignatureMultiplier favours the slot-1 move over the standard move.
	SignatureMultiplier float64 `toml:"signature_multiplier" json:"signatureMultiplier"`
	// TopTierMultiplier applies when a top-tier ability is spent.
	TopTierMultiplier float64 `toml:"top_tier_multiplier" json:"topTierMultiplier"`
	// AbilityMultiplier applies when any other ability is spent.
	AbilityMultiplier float64             `toml:"ability_multiplier" json:"abilityMultiplier"`
	TopTier           []inventory.Ability `toml:"top_tier" json:"topTier"`
	// RiskFloor replaces a zero risk in the risk-adjusted score.
	RiskFloor float64 `toml:"risk_floor" json:"riskFloor"`
}

func DefaultConstants() Constants {
	return Constants{
		DetectedBonus:       2.5,
		SignatureMultiplier: 1.2,
		TopTierMultiplier:   1.3,
		AbilityMultiplier:   1.15,
		TopTier:             []inventory.Ability{inventory.Mega, inventory.Gigantamax},
		RiskFloor:           0.1,
	}
}

func (c Constants) Validate() error {
	switch {
	case c.DetectedBonus <= 1:
		return errors.New("scoring: detected_bonus must be greater than 1")
	case c.SignatureMultiplier <= 0:
		return errors.New("scoring: signature_multiplier must be positive")
	case c.TopTierMultiplier <= 0 || c.AbilityMultiplier <= 0:
		return errors.New("scoring: ability multipliers must be positive")
	case c.RiskFloor <= 0:
		return errors.New("scoring: risk_floor must be positive")
	}
	return nil
}

// Boost is the score multiplier for spending ability a; 1 for no ability.
func (c Constants) Boost(a inventory.Ability) float64 {
	if a.IsNone() {
		return 1
	}
	for _, t := range c.TopTier {
		if inventory.ParseAbility(string(t)) == a {
			return c.TopTierMultiplier
		}
	}
	return c.AbilityMultiplier
}
