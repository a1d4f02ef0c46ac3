package dashboard

import (
	"fmt"
	"io"

	"github.com/fogleman/gg"
)

const (
	ChartWidth  = 800
	ChartHeight = 400

	marginLeft   = 48.0
	marginRight  = 24.0
	marginTop    = 48.0
	marginBottom = 40.0
)

// yRange is 0-100 unless a score falls outside it; scores are never clamped.
func yRange(c Chart) (lo, hi float64) {
	lo, hi = 0, 100
	for _, s := range c.Series {
		for _, v := range s.Values {
			if float64(v) < lo {
				lo = float64(v)
			}
			if float64(v) > hi {
				hi = float64(v)
			}
		}
	}
	return lo, hi
}

// xPositions spreads the points evenly across the plot area, like a category axis.
func xPositions(n int, width float64) []float64 {
	xs := make([]float64, n)
	plot := width - marginLeft - marginRight
	if n == 1 {
		xs[0] = marginLeft + plot/2
		return xs
	}
	for i := range xs {
		xs[i] = marginLeft + plot*float64(i)/float64(n-1)
	}
	return xs
}

// RenderChartPNG draws the trajectory chart and writes it as PNG.
func RenderChartPNG(w io.Writer, c Chart, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid chart size %dx%d", width, height)
	}
	W, H := float64(width), float64(height)
	dc := gg.NewContext(width, height)
	dc.SetHexColor("#0f172a")
	dc.Clear()

	lo, hi := yRange(c)
	plotH := H - marginTop - marginBottom
	y := func(v float64) float64 {
		return marginTop + plotH*(1-(v-lo)/(hi-lo))
	}

	// grid
	dc.SetHexColor("#1e293b")
	dc.SetLineWidth(1)
	dc.SetDash(3, 3)
	for i := 0; i <= 4; i++ {
		v := lo + (hi-lo)*float64(i)/4
		gy := y(v)
		dc.DrawLine(marginLeft, gy, W-marginRight, gy)
		dc.Stroke()
		dc.SetHexColor("#64748b")
		dc.DrawStringAnchored(fmt.Sprintf("%d", int(v)), marginLeft-8, gy, 1, 0.5)
		dc.SetHexColor("#1e293b")
	}
	dc.SetDash()

	xs := xPositions(len(c.Years), W)
	dc.SetHexColor("#64748b")
	for i, label := range c.XLabels() {
		dc.DrawStringAnchored(label, xs[i], H-marginBottom+16, 0.5, 0.5)
	}

	// legend
	lx := marginLeft
	for _, s := range c.Series {
		dc.SetHexColor(s.Color)
		dc.DrawRectangle(lx, 16, 10, 10)
		dc.Fill()
		dc.SetHexColor("#cbd5e1")
		dc.DrawString(s.Name, lx+14, 25)
		tw, _ := dc.MeasureString(s.Name)
		lx += tw + 34
	}

	for _, s := range c.Series {
		if len(s.Values) == 0 {
			continue
		}
		dc.SetHexColor(s.Color)
		dc.SetLineWidth(2)
		if s.Dashed {
			dc.SetDash(5, 5)
		}
		for i, v := range s.Values {
			if i == 0 {
				dc.MoveTo(xs[i], y(float64(v)))
			} else {
				dc.LineTo(xs[i], y(float64(v)))
			}
		}
		dc.Stroke()
		dc.SetDash()
		for i, v := range s.Values {
			dc.DrawCircle(xs[i], y(float64(v)), 3.5)
			dc.Fill()
		}
	}

	return dc.EncodePNG(w)
}
