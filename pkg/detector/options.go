package detector

import (
	"errors"
	"math"
	"sort"
)

// Options controls resolution normalization, the search band and the
// multi-scale correlation match.
type Options struct {
	// RefWidth is the canonical width scenes are resized to. Templates are
	// resized by the same factor.
	RefWidth int `toml:"ref_width" json:"refWidth"`
	// BandTop and BandBottom bound the rows of a full screenshot that can
	// hold advantage icons, as fractions of the frame height.
	BandTop    float64 `toml:"band_top" json:"bandTop"`
	BandBottom float64 `toml:"band_bottom" json:"bandBottom"`

	MinScale   float64 `toml:"min_scale" json:"minScale"`
	MaxScale   float64 `toml:"max_scale" json:"maxScale"`
	ScaleSteps int     `toml:"scale_steps" json:"scaleSteps"`

	// Threshold is the NCC score a window must reach to count as a match.
	Threshold float64 `toml:"threshold" json:"threshold"`
	// StopOnScore ends the scale sweep for a template once every zone holds
	// a window scoring at least this much. Zero disables it.
	StopOnScore float64 `toml:"stop_on_score" json:"stopOnScore"`
	// Stride is the coarse scan step in pixels; hits are refined at full resolution.
	Stride int `toml:"stride" json:"stride"`
}

func DefaultOptions() Options {
	return Options{
		RefWidth:    1000,
		BandTop:     0.55,
		BandBottom:  0.97,
		MinScale:    0.8,
		MaxScale:    1.2,
		ScaleSteps:  5,
		Threshold:   0.75,
		StopOnScore: 0.85,
		Stride:      2,
	}
}

// Wide widens the scale sweep for photos where normalization cannot be trusted.
func (o Options) Wide() Options {
	o.MinScale = 0.3
	o.MaxScale = 2.0
	o.ScaleSteps = 20
	o.Threshold = 0.65
	return o
}

func (o Options) Validate() error {
	switch {
	case o.RefWidth < 32:
		return errors.New("detector: ref_width must be at least 32")
	case o.BandTop < 0 || o.BandBottom > 1 || o.BandTop >= o.BandBottom:
		return errors.New("detector: band must satisfy 0 <= band_top < band_bottom <= 1")
	case o.MinScale <= 0 || o.MaxScale < o.MinScale:
		return errors.New("detector: scales must satisfy 0 < min_scale <= max_scale")
	case o.ScaleSteps < 1:
		return errors.New("detector: scale_steps must be at least 1")
	case o.Threshold <= 0 || o.Threshold > 1:
		return errors.New("detector: threshold must be in (0, 1]")
	case o.StopOnScore < 0 || o.StopOnScore > 1:
		return errors.New("detector: stop_on_score must be in [0, 1]")
	case o.Stride < 1:
		return errors.New("detector: stride must be at least 1")
	}
	return nil
}

// Scales returns the relative scale factors to try, nearest to 1.0 first so
// the early stop favours the expected icon size.
func (o Options) Scales() []float64 {
	steps := o.ScaleSteps
	if steps < 1 {
		steps = 1
	}
	out := make([]float64, 0, steps)
	if steps == 1 || o.MaxScale == o.MinScale {
		return append(out, (o.MinScale+o.MaxScale)/2)
	}
	step := (o.MaxScale - o.MinScale) / float64(steps-1)
	for i := 0; i < steps; i++ {
		out = append(out, o.MinScale+float64(i)*step)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i]-1) < math.Abs(out[j]-1)
	})
	return out
}
