package types

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed chart.yaml
var chartYAML []byte

// Multipliers used by the chart.
const (
	Immune         = 0.0
	Resisted       = 0.5
	Neutral        = 1.0
	SuperEffective = 2.0
)

type chartEntry struct {
	Strong []Type `yaml:"strong"`
	Weak   []Type `yaml:"weak"`
	Immune []Type `yaml:"immune"`
}

var (
	chartOnce sync.Once
	chart     map[Type]map[Type]float64
)

func loadChart() {
	parsed, err := parseChart(chartYAML)
	if err != nil {
		// embedded data is compiled in; a parse failure is a build defect
		panic(err)
	}
	chart = parsed
}

func parseChart(data []byte) (map[Type]map[Type]float64, error) {
	var raw map[Type]chartEntry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse type chart: %w", err)
	}

	out := make(map[Type]map[Type]float64, len(raw))
	for attacker, e := range raw {
		if !attacker.Valid() || attacker.IsNone() {
			return nil, fmt.Errorf("parse type chart: unknown attacker %q", attacker)
		}
		row := make(map[Type]float64)
		set := func(defs []Type, mult float64) error {
			for _, d := range defs {
				if !d.Valid() || d.IsNone() {
					return fmt.Errorf("parse type chart: unknown defender %q for %s", d, attacker)
				}
				row[d] = mult
			}
			return nil
		}
		if err := set(e.Strong, SuperEffective); err != nil {
			return nil, err
		}
		if err := set(e.Weak, Resisted); err != nil {
			return nil, err
		}
		if err := set(e.Immune, Immune); err != nil {
			return nil, err
		}
		out[attacker] = row
	}
	return out, nil
}

// Effectiveness returns the damage multiplier of an attacker type against a
// single defender type. Unlisted pairs and None on either side are neutral.
func Effectiveness(attacker, defender Type) float64 {
	chartOnce.Do(loadChart)
	if attacker.IsNone() || defender.IsNone() {
		return Neutral
	}
	if m, ok := chart[attacker][defender]; ok {
		return m
	}
	return Neutral
}

// DualEffectiveness is the product of the single lookups against both defender types.
func DualEffectiveness(attacker, def1, def2 Type) float64 {
	return Effectiveness(attacker, def1) * Effectiveness(attacker, def2)
}
