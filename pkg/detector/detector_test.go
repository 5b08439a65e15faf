package detector

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudmeowmog/mezastar/pkg/templates"
	"github.com/cloudmeowmog/mezastar/pkg/types"
	"github.com/cloudmeowmog/mezastar/pkg/utils"
)

const (
	iconSize = 24
	sceneW   = 300
	sceneH   = 200
)

var (
	light = color.NRGBA{200, 200, 200, 255}
	dark  = color.NRGBA{40, 40, 40, 255}
)

type fakeLib []templates.Template

func (f fakeLib) All() []templates.Template { return f }

type shape func(x, y int) bool

func ring(x, y int) bool {
	d := math.Hypot(float64(x)-11.5, float64(y)-11.5)
	return d >= 7 && d <= 11
}

func cross(x, y int) bool {
	return math.Abs(float64(x)-11.5) <= 3.5 || math.Abs(float64(y)-11.5) <= 3.5
}

func stripes(_, y int) bool {
	return (y/4)%2 == 0
}

func icon(s shape) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			if s(x, y) {
				img.SetNRGBA(x, y, dark)
			} else {
				img.SetNRGBA(x, y, light)
			}
		}
	}
	return img
}

func blank(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func tmpl(id string, label types.Type, img image.Image) templates.Template {
	b := img.Bounds()
	return templates.Template{ID: id, Label: label, Width: b.Dx(), Height: b.Dy(), Image: img}
}

func testLibrary() fakeLib {
	return fakeLib{
		tmpl("Fire_1", types.Fire, icon(ring)),
		tmpl("Water_1", types.Water, icon(cross)),
		tmpl("Electric_1", types.Electric, icon(stripes)),
	}
}

// battleScene places icons inside the band (rows 110..194 of 200) plus a
// decoy cross near the top of the frame.
func battleScene() *image.NRGBA {
	scene := blank(sceneW, sceneH, light)
	scene = imaging.Paste(scene, icon(ring), image.Pt(30, 140))
	scene = imaging.Paste(scene, icon(cross), image.Pt(140, 140))
	scene = imaging.Paste(scene, icon(ring), image.Pt(205, 140))
	scene = imaging.Paste(scene, icon(stripes), image.Pt(250, 140))
	scene = imaging.Paste(scene, icon(cross), image.Pt(30, 20))
	return scene
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.RefWidth = sceneW
	opts.MinScale, opts.MaxScale, opts.ScaleSteps = 1, 1, 1
	opts.Threshold = 0.8
	return opts
}

func expectedZones() [Zones][]types.Type {
	return [Zones][]types.Type{
		{types.Fire},
		{types.Water},
		{types.Fire, types.Electric},
	}
}

func TestDetectFindsIconsPerZone(t *testing.T) {
	res := New(testOptions()).Detect(battleScene(), testLibrary())

	assert.Empty(t, res.Warning)
	assert.Equal(t, expectedZones(), res.Zones)
	// one match per physical icon; the decoy above the band is ignored
	assert.Len(t, res.Matches, 4)
	for _, m := range res.Matches {
		assert.GreaterOrEqual(t, m.Score, 0.8)
		assert.GreaterOrEqual(t, m.Box.Y, 110)
	}
}

func TestDetectEmptyLibrary(t *testing.T) {
	res := New(testOptions()).Detect(battleScene(), fakeLib{})
	assert.True(t, res.Empty())
	assert.Equal(t, WarnEmptyLibrary, res.Warning)

	data, err := sonic.Marshal(res.Zones)
	require.NoError(t, err)
	assert.JSONEq(t, `[[],[],[]]`, string(data))
}

func TestEmptyResultShape(t *testing.T) {
	res := EmptyResult(WarnDecode)
	assert.True(t, res.Empty())
	assert.Equal(t, WarnDecode, res.Warning)

	data, err := sonic.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"zones":[[],[],[]]`)
	assert.Contains(t, string(data), `"matches":[]`)
}

func TestDetectSceneWithoutIcons(t *testing.T) {
	res := New(testOptions()).Detect(blank(sceneW, sceneH, light), testLibrary())
	assert.True(t, res.Empty())
	assert.Empty(t, res.Matches)
	assert.Empty(t, res.Warning)
}

func TestDetectIsInvariantToUniformRescale(t *testing.T) {
	opts := testOptions()
	opts.MinScale, opts.MaxScale, opts.ScaleSteps = 0.9, 1.1, 3
	det := New(opts)

	base := battleScene()
	for _, f := range []float64{0.8, 1.5, 2} {
		w := int(math.Round(sceneW * f))
		scene := imaging.Resize(base, w, 0, imaging.Linear)

		side := int(math.Round(iconSize * f))
		var lib fakeLib
		for _, tp := range testLibrary() {
			lib = append(lib, tmpl(tp.ID, tp.Label, imaging.Resize(tp.Image, side, side, imaging.Linear)))
		}

		res := det.Detect(scene, lib)
		assert.Equal(t, expectedZones(), res.Zones, "factor %.2f", f)
	}
}

func TestStrongHitDoesNotEndSweepForOtherZones(t *testing.T) {
	// the right-hand ring is 0.8x and only matches at the last scale tried
	small := imaging.Resize(icon(ring), 19, 19, imaging.Linear)
	scene := blank(sceneW, sceneH, light)
	scene = imaging.Paste(scene, icon(ring), image.Pt(30, 140))
	scene = imaging.Paste(scene, small, image.Pt(240, 140))

	opts := testOptions()
	opts.MinScale, opts.MaxScale, opts.ScaleSteps = 0.8, 1.2, 5
	require.Equal(t, 0.85, opts.StopOnScore)

	res := New(opts).Detect(scene, fakeLib{tmpl("Fire_1", types.Fire, icon(ring))})
	assert.Equal(t, [Zones][]types.Type{{types.Fire}, {}, {types.Fire}}, res.Zones)
}

func TestSettled(t *testing.T) {
	assert.False(t, settled([Zones]float64{0.99, 0, 0}, 0.85))
	assert.False(t, settled([Zones]float64{0.99, 0.9, 0.84}, 0.85))
	assert.True(t, settled([Zones]float64{0.85, 0.9, 1}, 0.85))
}

func TestDetectRegionSkipsBand(t *testing.T) {
	// the region holds only the decoy cross, centred in its middle third
	res := New(testOptions()).DetectRegion(battleScene(), image.Rect(0, 0, 100, 60), testLibrary())
	assert.Equal(t, [Zones][]types.Type{{}, {types.Water}, {}}, res.Zones)
	assert.Equal(t, Box{X: 0, Y: 0, W: 100, H: 60}, res.Area)
}

func TestDetectRegionOutsideScene(t *testing.T) {
	res := New(testOptions()).DetectRegion(battleScene(), image.Rect(400, 400, 500, 500), testLibrary())
	assert.True(t, res.Empty())
	assert.Equal(t, WarnEmptyArea, res.Warning)
}

func TestDetectCropUsesNativeDensity(t *testing.T) {
	crop := imaging.Crop(battleScene(), image.Rect(0, 110, sceneW, 194))
	opts := testOptions()
	opts.RefWidth = 1000

	res := New(opts).DetectCrop(crop, testLibrary())
	assert.Equal(t, expectedZones(), res.Zones)
}

func TestDetectBytes(t *testing.T) {
	det := New(testOptions())

	res := det.DetectBytes([]byte("not an image"), nil, testLibrary())
	assert.True(t, res.Empty())
	assert.Equal(t, WarnDecode, res.Warning)

	data, err := utils.EncodeImageToBuffer(battleScene())
	require.NoError(t, err)
	res = det.DetectBytes(data, nil, testLibrary())
	assert.Equal(t, expectedZones(), res.Zones)

	roi := image.Rect(0, 0, 100, 60)
	res = det.DetectBytes(data, &roi, testLibrary())
	assert.Equal(t, []types.Type{types.Water}, res.Zones[1])
}

func TestTransparentTemplatePixelsAreIgnored(t *testing.T) {
	inner := color.NRGBA{220, 220, 220, 255}
	scene := blank(150, 60, color.NRGBA{90, 90, 90, 255})
	badge := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			d := math.Hypot(float64(x)-11.5, float64(y)-11.5)
			switch {
			case d < 7:
				badge.SetNRGBA(x, y, inner)
			case d <= 11:
				badge.SetNRGBA(x, y, dark)
			default:
				// outside the badge: white, fully transparent
				badge.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 0})
			}
		}
	}
	scene = imaging.Overlay(scene, badge, image.Pt(110, 18), 1)

	res := New(testOptions()).DetectCrop(scene, fakeLib{tmpl("Ghost_1", types.Ghost, badge)})
	assert.Equal(t, [Zones][]types.Type{{}, {}, {types.Ghost}}, res.Zones)
	require.Len(t, res.Matches, 1)
	assert.InDelta(t, 1.0, res.Matches[0].Score, 0.01)
}

func TestSuppressMergesNearbySameLabel(t *testing.T) {
	fire := tmpl("Fire_1", types.Fire, icon(ring))
	fire2 := tmpl("Fire_2", types.Fire, icon(ring))
	water := tmpl("Water_1", types.Water, icon(cross))
	at := func(x int) image.Rectangle { return image.Rect(x, 10, x+20, 30) }

	kept := suppress([]candidate{
		{tmpl: fire, rect: at(10), score: 0.9},
		{tmpl: fire2, rect: at(14), score: 0.95},
		{tmpl: water, rect: at(12), score: 0.8},
		{tmpl: fire, rect: at(60), score: 0.85},
	}, 90)

	require.Len(t, kept, 3)
	assert.Equal(t, "Fire_2", kept[0].tmpl.ID)
	assert.Equal(t, 60, kept[1].rect.Min.X)
	assert.Equal(t, types.Water, kept[2].tmpl.Label)
}

func TestScalesNearestFirst(t *testing.T) {
	scales := DefaultOptions().Scales()
	require.Len(t, scales, 5)
	assert.InDelta(t, 1.0, scales[0], 1e-9)
	assert.ElementsMatch(t, []float64{0.8, 0.9, 1.0, 1.1, 1.2}, roundAll(scales))

	wide := DefaultOptions().Wide().Scales()
	assert.Len(t, wide, 20)
	assert.InDelta(t, 0.3, minOf(wide), 1e-9)
	assert.InDelta(t, 2.0, maxOf(wide), 1e-9)
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())
	assert.NoError(t, DefaultOptions().Wide().Validate())

	bad := DefaultOptions()
	bad.BandTop, bad.BandBottom = 0.9, 0.5
	assert.Error(t, bad.Validate())

	bad = DefaultOptions()
	bad.Threshold = 0
	assert.Error(t, bad.Validate())

	bad = DefaultOptions()
	bad.Stride = 0
	assert.Error(t, bad.Validate())
}

func TestAnnotateDrawsMatches(t *testing.T) {
	scene := battleScene()
	res := New(testOptions()).Detect(scene, testLibrary())
	require.NotEmpty(t, res.Matches)

	out := Annotate(scene, res)
	assert.Equal(t, scene.Bounds(), out.Bounds())

	b := res.Matches[0].Box
	r, g, bl, _ := out.At(b.X, b.Y+b.H/2).RGBA()
	assert.False(t, r>>8 == 200 && g>>8 == 200 && bl>>8 == 200, "box edge should be drawn over the background")
}

func roundAll(fs []float64) []float64 {
	out := make([]float64, len(fs))
	for i, f := range fs {
		out[i] = math.Round(f*100) / 100
	}
	return out
}

func minOf(fs []float64) float64 {
	m := fs[0]
	for _, f := range fs {
		m = math.Min(m, f)
	}
	return m
}

func maxOf(fs []float64) float64 {
	m := fs[0]
	for _, f := range fs {
		m = math.Max(m, f)
	}
	return m
}
