package detector

import (
	"fmt"
	"image"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/cloudmeowmog/mezastar/pkg/utils"
)

var (
	AreaColor  = utils.ParseHexColor("#F39C12")
	MatchColor = utils.ParseHexColor("#2ECC71")
	LabelBg    = utils.ParseHexColor("#1B2631")
	LabelFg    = utils.ParseHexColor("#ECF0F1")
)

// Annotate draws the search area, its zone dividers and every match onto a
// copy of scene.
func Annotate(scene image.Image, res Result) image.Image {
	dc := gg.NewContextForImage(scene)
	dc.SetFontFace(basicfont.Face7x13)

	// 1. Search area and zones
	area := res.Area
	if area.W > 0 && area.H > 0 {
		dc.SetColor(AreaColor)
		dc.SetLineWidth(2)
		dc.DrawRectangle(float64(area.X), float64(area.Y), float64(area.W), float64(area.H))
		for i := 1; i < Zones; i++ {
			x := float64(area.X) + float64(area.W)*float64(i)/Zones
			dc.DrawLine(x, float64(area.Y), x, float64(area.Y+area.H))
		}
		dc.Stroke()
	}

	// 2. Matches
	for _, m := range res.Matches {
		b := m.Box
		dc.SetColor(MatchColor)
		dc.SetLineWidth(2)
		dc.DrawRectangle(float64(b.X), float64(b.Y), float64(b.W), float64(b.H))
		dc.Stroke()

		label := fmt.Sprintf("%s %.2f", m.Label, m.Score)
		tw, th := dc.MeasureString(label)
		ty := float64(b.Y) - 2
		if ty-th < 0 {
			ty = float64(b.Y+b.H) + th + 2
		}
		dc.SetColor(LabelBg)
		dc.DrawRectangle(float64(b.X), ty-th-1, tw+4, th+3)
		dc.Fill()
		dc.SetColor(LabelFg)
		dc.DrawString(label, float64(b.X)+2, ty)
	}

	return dc.Image()
}
