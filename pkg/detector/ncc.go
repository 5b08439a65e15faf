package detector

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

const (
	// Template pixels with alpha below this are left out of the correlation.
	alphaCutoff = 128
	// Windows whose per-pixel variance falls below this are treated as flat
	// and score 0.
	flatVariance = 0.01
	// Coarse grid points within this distance of the threshold get refined.
	refineSlack = 0.15
)

// plane is a grayscale image as float luminance, with an optional opacity mask.
type plane struct {
	w, h int
	pix  []float64
	mask []bool
}

// toPlane converts img to luminance. When keepMask is set, pixels below the
// alpha cutoff are masked out; a fully opaque image yields a nil mask.
func toPlane(img image.Image, keepMask bool) *plane {
	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	p := &plane{w: b.Dx(), h: b.Dy(), pix: make([]float64, b.Dx()*b.Dy())}
	var mask []bool
	transparent := false
	if keepMask {
		mask = make([]bool, len(p.pix))
	}
	for y := 0; y < p.h; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < p.w; x++ {
			i := y*p.w + x
			p.pix[i] = float64(row[x*4])
			if keepMask {
				mask[i] = row[x*4+3] >= alphaCutoff
				if !mask[i] {
					transparent = true
				}
			}
		}
	}
	if transparent {
		p.mask = mask
	}
	return p
}

// crop returns the sub-plane r, which must lie inside p.
func (p *plane) crop(r image.Rectangle) *plane {
	out := &plane{w: r.Dx(), h: r.Dy(), pix: make([]float64, r.Dx()*r.Dy())}
	for y := 0; y < out.h; y++ {
		copy(out.pix[y*out.w:(y+1)*out.w], p.pix[(r.Min.Y+y)*p.w+r.Min.X:])
	}
	return out
}

// integral holds summed-area tables of the scene and its square, sized (w+1)*(h+1).
type integral struct {
	w       int
	sum, sq []float64
}

func newIntegral(p *plane) *integral {
	stride := p.w + 1
	ii := &integral{w: stride, sum: make([]float64, stride*(p.h+1)), sq: make([]float64, stride*(p.h+1))}
	for y := 0; y < p.h; y++ {
		var rowSum, rowSq float64
		for x := 0; x < p.w; x++ {
			v := p.pix[y*p.w+x]
			rowSum += v
			rowSq += v * v
			i := (y+1)*stride + x + 1
			ii.sum[i] = ii.sum[i-stride] + rowSum
			ii.sq[i] = ii.sq[i-stride] + rowSq
		}
	}
	return ii
}

func (ii *integral) window(x, y, w, h int) (sum, sq float64) {
	a := y*ii.w + x
	b := a + w
	c := (y+h)*ii.w + x
	d := c + w
	return ii.sum[d] - ii.sum[b] - ii.sum[c] + ii.sum[a], ii.sq[d] - ii.sq[b] - ii.sq[c] + ii.sq[a]
}

// kernel is a template prepared for zero-mean NCC: opaque pixels minus their
// mean, zero elsewhere.
type kernel struct {
	w, h   int
	vals   []float64
	opaque []int // offsets y*w+x of opaque pixels, nil when fully opaque
	n      float64
	norm   float64
}

// newKernel returns nil when the template has no contrast to correlate against.
func newKernel(p *plane) *kernel {
	k := &kernel{w: p.w, h: p.h, vals: make([]float64, len(p.pix))}
	var sum float64
	for i, v := range p.pix {
		if p.mask != nil && !p.mask[i] {
			continue
		}
		if p.mask != nil {
			k.opaque = append(k.opaque, i)
		}
		sum += v
		k.n++
	}
	if k.n < 4 {
		return nil
	}
	mean := sum / k.n
	var energy float64
	for i, v := range p.pix {
		if p.mask != nil && !p.mask[i] {
			continue
		}
		d := v - mean
		k.vals[i] = d
		energy += d * d
	}
	if energy < flatVariance*k.n {
		return nil
	}
	k.norm = math.Sqrt(energy)
	return k
}

// score is the zero-mean normalized cross-correlation of k placed at (x, y) on s.
func (k *kernel) score(s *plane, ii *integral, x, y int) float64 {
	var num, sum, sq float64
	if k.opaque == nil {
		for ty := 0; ty < k.h; ty++ {
			row := s.pix[(y+ty)*s.w+x:]
			kr := k.vals[ty*k.w : (ty+1)*k.w]
			for tx, kv := range kr {
				num += kv * row[tx]
			}
		}
		sum, sq = ii.window(x, y, k.w, k.h)
	} else {
		for _, off := range k.opaque {
			v := s.pix[(y+off/k.w)*s.w+x+off%k.w]
			num += k.vals[off] * v
			sum += v
			sq += v * v
		}
	}
	variance := sq - sum*sum/k.n
	if variance < flatVariance*k.n {
		return 0
	}
	return num / (k.norm * math.Sqrt(variance))
}

type hit struct {
	x, y  int
	score float64
}

// scan returns every position on s scoring at least threshold. The scene is
// sampled every stride pixels; promising samples are refined to the local
// maximum in their neighbourhood.
func (k *kernel) scan(s *plane, ii *integral, threshold float64, stride int) []hit {
	maxX, maxY := s.w-k.w, s.h-k.h
	if maxX < 0 || maxY < 0 {
		return nil
	}
	var hits []hit
	for y := 0; y <= maxY; y += stride {
		for x := 0; x <= maxX; x += stride {
			sc := k.score(s, ii, x, y)
			if sc < threshold-refineSlack {
				continue
			}
			best := hit{x, y, sc}
			if stride > 1 {
				for ry := max(0, y-stride+1); ry <= min(maxY, y+stride-1); ry++ {
					for rx := max(0, x-stride+1); rx <= min(maxX, x+stride-1); rx++ {
						if rs := k.score(s, ii, rx, ry); rs > best.score {
							best = hit{rx, ry, rs}
						}
					}
				}
			}
			if best.score >= threshold {
				hits = append(hits, best)
			}
		}
	}
	return hits
}
