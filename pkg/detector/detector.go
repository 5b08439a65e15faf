package detector

import (
	"image"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"

	"github.com/cloudmeowmog/mezastar/pkg/templates"
	"github.com/cloudmeowmog/mezastar/pkg/types"
	"github.com/cloudmeowmog/mezastar/pkg/utils"
)

// Zones is the number of opponent slots the search area is split into.
const Zones = 3

// Smallest template side, in pixels, worth correlating after rescaling.
const minTemplateSide = 4

const (
	WarnEmptyLibrary = "template library is empty; add icon templates or enter opponent types manually"
	WarnDecode       = "image could not be decoded"
	WarnEmptyArea    = "search area is empty"
)

// Library is the template source the detector reads from.
type Library interface {
	All() []templates.Template
}

// Box is a rectangle in source-image pixels.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

func boxOf(r image.Rectangle) Box {
	return Box{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H)
}

// Match is one accepted template placement.
type Match struct {
	Label      types.Type `json:"label"`
	TemplateID string     `json:"templateId"`
	Zone       int        `json:"zone"`
	Score      float64    `json:"score"`
	Scale      float64    `json:"scale"`
	Box        Box        `json:"box"`
}

// Result holds, per zone left to right, the set of labels found there.
type Result struct {
	Zones   [Zones][]types.Type `json:"zones"`
	Matches []Match             `json:"matches"`
	Area    Box                 `json:"area"`
	Warning string              `json:"warning,omitempty"`
}

// EmptyResult is a result with no matches and three empty zones, carrying
// warning when one applies.
func EmptyResult(warning string) Result {
	r := Result{Matches: []Match{}, Warning: warning}
	for i := range r.Zones {
		r.Zones[i] = []types.Type{}
	}
	return r
}

// Empty reports whether no label was found in any zone.
func (r Result) Empty() bool {
	for _, z := range r.Zones {
		if len(z) > 0 {
			return false
		}
	}
	return true
}

type Detector struct {
	opts Options
}

func New(opts Options) *Detector {
	return &Detector{opts: opts}
}

func (d *Detector) Options() Options {
	return d.opts
}

// Detect scans a full battle screenshot. The scene is normalized to the
// reference width and only the icon band is searched.
func (d *Detector) Detect(scene image.Image, lib Library) Result {
	work, factor := d.normalize(scene)
	b := work.Bounds()
	area := image.Rect(0, int(math.Round(d.opts.BandTop*float64(b.Dy()))), b.Dx(), int(math.Round(d.opts.BandBottom*float64(b.Dy()))))
	return d.run(work, area, factor, lib)
}

// DetectRegion scans an operator-chosen region given in scene coordinates.
// Band restriction is skipped and zones split the region's own width.
func (d *Detector) DetectRegion(scene image.Image, roi image.Rectangle, lib Library) Result {
	roi = roi.Sub(scene.Bounds().Min).Intersect(image.Rect(0, 0, scene.Bounds().Dx(), scene.Bounds().Dy()))
	if roi.Empty() {
		return EmptyResult(WarnEmptyArea)
	}
	work, factor := d.normalize(scene)
	area := image.Rect(
		int(math.Floor(float64(roi.Min.X)*factor)),
		int(math.Floor(float64(roi.Min.Y)*factor)),
		int(math.Ceil(float64(roi.Max.X)*factor)),
		int(math.Ceil(float64(roi.Max.Y)*factor)),
	).Intersect(work.Bounds())
	return d.run(work, area, factor, lib)
}

// DetectCrop scans an image that is already cropped to the icon area. It is
// matched at its native density.
func (d *Detector) DetectCrop(crop image.Image, lib Library) Result {
	work := imaging.Clone(crop)
	return d.run(work, work.Bounds(), 1, lib)
}

// DetectBytes decodes data and runs Detect, or DetectRegion when roi is set.
// Undecodable input yields an empty result.
func (d *Detector) DetectBytes(data []byte, roi *image.Rectangle, lib Library) Result {
	img, err := utils.DecodeImage(data)
	if err != nil {
		log.Warn().Err(err).Int("bytes", len(data)).Msg("Detection input could not be decoded")
		return EmptyResult(WarnDecode)
	}
	if roi != nil {
		return d.DetectRegion(img, *roi, lib)
	}
	return d.Detect(img, lib)
}

// normalize resizes scene to the reference width and returns the factor applied.
func (d *Detector) normalize(scene image.Image) (*image.NRGBA, float64) {
	w := scene.Bounds().Dx()
	if w == 0 || w == d.opts.RefWidth {
		return imaging.Clone(scene), 1
	}
	factor := float64(d.opts.RefWidth) / float64(w)
	return imaging.Resize(scene, d.opts.RefWidth, 0, imaging.Linear), factor
}

type candidate struct {
	tmpl  templates.Template
	scale float64
	rect  image.Rectangle // relative to the search area
	score float64
}

func (d *Detector) run(work *image.NRGBA, area image.Rectangle, factor float64, lib Library) Result {
	all := lib.All()
	if len(all) == 0 {
		log.Warn().Msg("Detection skipped, template library is empty")
		return EmptyResult(WarnEmptyLibrary)
	}
	if area.Empty() {
		return EmptyResult(WarnEmptyArea)
	}

	start := time.Now()
	scene := toPlane(work, false).crop(area)
	ii := newIntegral(scene)

	var (
		wg  sync.WaitGroup
		sem = make(chan struct{}, runtime.GOMAXPROCS(0))
		out = make(chan []candidate, len(all))
	)
	for _, t := range all {
		wg.Add(1)
		go func(t templates.Template) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			out <- d.matchTemplate(scene, ii, t, factor)
		}(t)
	}
	wg.Wait()
	close(out)

	var cands []candidate
	for c := range out {
		cands = append(cands, c...)
	}

	res := EmptyResult("")
	res.Area = boxOf(toSource(area, factor))
	for _, c := range suppress(cands, area.Dx()) {
		res.Matches = append(res.Matches, Match{
			Label:      c.tmpl.Label,
			TemplateID: c.tmpl.ID,
			Zone:       zoneOf(c.rect, area.Dx()),
			Score:      c.score,
			Scale:      c.scale,
			Box:        boxOf(toSource(c.rect.Add(area.Min), factor)),
		})
	}
	res.Zones = zoneSets(res.Matches)

	log.Debug().
		Int("templates", len(all)).
		Int("candidates", len(cands)).
		Int("matches", len(res.Matches)).
		Dur("took", time.Since(start)).
		Msg("Detection finished")
	return res
}

// matchTemplate sweeps the relative scales for one template. Rectangles are
// relative to the search area. The sweep ends early only once every zone has
// a hit at StopOnScore.
func (d *Detector) matchTemplate(scene *plane, ii *integral, t templates.Template, factor float64) []candidate {
	if t.Image == nil {
		return nil
	}
	var (
		out  []candidate
		best [Zones]float64
	)
	for _, s := range d.opts.Scales() {
		tw := int(math.Round(float64(t.Width) * factor * s))
		th := int(math.Round(float64(t.Height) * factor * s))
		if tw < minTemplateSide || th < minTemplateSide || tw > scene.w || th > scene.h {
			continue
		}
		img := t.Image
		if tw != t.Width || th != t.Height {
			img = imaging.Resize(t.Image, tw, th, imaging.Linear)
		}
		k := newKernel(toPlane(img, true))
		if k == nil {
			log.Debug().Str("template", t.ID).Msg("Template has no contrast, skipped")
			return out
		}

		for _, h := range k.scan(scene, ii, d.opts.Threshold, d.opts.Stride) {
			r := image.Rect(h.x, h.y, h.x+tw, h.y+th)
			out = append(out, candidate{tmpl: t, scale: s, rect: r, score: h.score})
			z := zoneOf(r, scene.w)
			best[z] = math.Max(best[z], h.score)
		}
		if d.opts.StopOnScore > 0 && settled(best, d.opts.StopOnScore) {
			break
		}
	}
	return out
}

// settled reports whether every zone already holds a match at or above stop.
// A strong hit in one zone never cuts the sweep short for the others.
func settled(best [Zones]float64, stop float64) bool {
	for _, b := range best {
		if b < stop {
			return false
		}
	}
	return true
}

// suppress keeps the best-scoring candidate among those of the same label in
// the same zone whose centres lie within half an icon width of each other.
func suppress(cands []candidate, areaWidth int) []candidate {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return cands[i].tmpl.ID < cands[j].tmpl.ID
	})
	var kept []candidate
	for _, c := range cands {
		dup := false
		for _, k := range kept {
			if k.tmpl.Label == c.tmpl.Label && zoneOf(k.rect, areaWidth) == zoneOf(c.rect, areaWidth) && near(k.rect, c.rect) {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, c)
		}
	}
	return kept
}

func near(a, b image.Rectangle) bool {
	ax, ay := centre(a)
	bx, by := centre(b)
	limit := float64(max(a.Dx(), b.Dx())) / 2
	return math.Hypot(ax-bx, ay-by) <= limit
}

func centre(r image.Rectangle) (float64, float64) {
	return float64(r.Min.X+r.Max.X) / 2, float64(r.Min.Y+r.Max.Y) / 2
}

// zoneOf buckets a rectangle by its horizontal centre.
func zoneOf(r image.Rectangle, areaWidth int) int {
	cx, _ := centre(r)
	z := int(cx * Zones / float64(areaWidth))
	return min(max(z, 0), Zones-1)
}

func zoneSets(matches []Match) [Zones][]types.Type {
	var seen [Zones]map[types.Type]bool
	var out [Zones][]types.Type
	for i := range out {
		seen[i] = make(map[types.Type]bool)
		out[i] = []types.Type{}
	}
	for _, m := range matches {
		seen[m.Zone][m.Label] = true
	}
	for i := range out {
		for _, t := range types.All() {
			if seen[i][t] {
				out[i] = append(out[i], t)
			}
		}
	}
	return out
}

func toSource(r image.Rectangle, factor float64) image.Rectangle {
	if factor == 1 {
		return r
	}
	return image.Rect(
		int(math.Round(float64(r.Min.X)/factor)),
		int(math.Round(float64(r.Min.Y)/factor)),
		int(math.Round(float64(r.Max.X)/factor)),
		int(math.Round(float64(r.Max.Y)/factor)),
	)
}
