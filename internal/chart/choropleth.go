package chart

import (
	"fmt"
	"image/color"
	"math"

	"github.com/paulmach/orb"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"pneumodash/internal/dashboard"
)

var (
	edgeColor    = color.RGBA{R: 51, G: 51, B: 51, A: 255}
	outlineColor = color.NRGBA{R: 68, G: 68, B: 68, A: 178}
)

// shade picks the palette color for v on the [lo, hi] scale.
func shade(colors []color.Color, v, lo, hi float64) color.Color {
	if len(colors) == 0 {
		return color.Gray{Y: 200}
	}
	if hi <= lo {
		return colors[len(colors)/2]
	}
	i := int(math.Round((v - lo) / (hi - lo) * float64(len(colors)-1)))
	if i < 0 {
		i = 0
	}
	if i >= len(colors) {
		i = len(colors) - 1
	}
	return colors[i]
}

func ringXYs(r orb.Ring) plotter.XYs {
	xys := make(plotter.XYs, len(r))
	for i, pt := range r {
		xys[i] = plotter.XY{X: pt[0], Y: pt[1]}
	}
	return xys
}

// equalAspect grows the short side of b around its centre so that a degree
// of longitude and a degree of latitude cover the same length on a w by h
// data area.
func equalAspect(b orb.Bound, w, h float64) orb.Bound {
	dx, dy := b.Max[0]-b.Min[0], b.Max[1]-b.Min[1]
	if dx <= 0 || dy <= 0 || w <= 0 || h <= 0 {
		return b
	}
	c := b.Center()
	if dx/dy < w/h {
		dx = dy * w / h
	} else {
		dy = dx * h / w
	}
	return orb.Bound{
		Min: orb.Point{c[0] - dx/2, c[1] - dy/2},
		Max: orb.Point{c[0] + dx/2, c[1] + dy/2},
	}
}

// Choropleth fills every region boundary by its standardized share on a
// sequential orange-red scale, outlines the source provinces and labels
// the region at its label point. Both axes share one scale.
func Choropleth(mv *dashboard.MapView, size Size, path string) error {
	if mv == nil || len(mv.Rows) == 0 {
		return fmt.Errorf("choropleth: no region boundaries")
	}
	pal, err := brewer.GetPalette(brewer.TypeAny, "OrRd", 9)
	if err != nil {
		return fmt.Errorf("choropleth: %w", err)
	}
	colors := pal.Colors()

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range mv.Rows {
		lo = math.Min(lo, row.Percent)
		hi = math.Max(hi, row.Percent)
	}

	p := newPlot("Standardized share by region (%)", "", "")
	p.HideAxes()

	var labelXYs plotter.XYs
	var labels []string
	for _, row := range mv.Rows {
		fill := shade(colors, row.Percent, lo, hi)
		for _, poly := range row.Geometry {
			rings := make([]plotter.XYer, len(poly))
			for i, r := range poly {
				rings[i] = ringXYs(r)
			}
			shape, err := plotter.NewPolygon(rings...)
			if err != nil {
				return fmt.Errorf("choropleth %s: %w", row.Region.Key(), err)
			}
			shape.Color = fill
			shape.LineStyle.Color = edgeColor
			shape.LineStyle.Width = vg.Points(0.6)
			p.Add(shape)
		}
		labelXYs = append(labelXYs, plotter.XY{X: row.LabelPoint[0], Y: row.LabelPoint[1]})
		labels = append(labels, fmt.Sprintf("%.1f%%", row.Percent))
	}

	// province outlines go over the fills and under the labels
	for _, prov := range mv.Provinces {
		for _, poly := range prov.Geometry {
			for _, r := range poly {
				line, err := plotter.NewLine(ringXYs(r))
				if err != nil {
					return fmt.Errorf("choropleth outline %s: %w", prov.ID, err)
				}
				line.Color = outlineColor
				line.Width = vg.Points(0.25)
				p.Add(line)
			}
		}
	}

	l, err := plotter.NewLabels(plotter.XYLabels{XYs: labelXYs, Labels: labels})
	if err != nil {
		return fmt.Errorf("choropleth: %w", err)
	}
	for i := range l.TextStyle {
		l.TextStyle[i].XAlign = draw.XCenter
		l.TextStyle[i].YAlign = draw.YCenter
	}
	p.Add(l)

	p.X.Min, p.X.Max = mv.Bound.Min[0], mv.Bound.Max[0]
	p.Y.Min, p.Y.Max = mv.Bound.Min[1], mv.Bound.Max[1]
	da := p.DataCanvas(draw.Canvas{Rectangle: vg.Rectangle{Max: vg.Point{X: size.Width, Y: size.Height}}})
	frame := equalAspect(mv.Bound, float64(da.Size().X), float64(da.Size().Y))
	p.X.Min, p.X.Max = frame.Min[0], frame.Max[0]
	p.Y.Min, p.Y.Max = frame.Min[1], frame.Max[1]

	if err := p.Save(size.Width, size.Height, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// Correlation draws the elderly ratio against the standardized share with
// the fitted regression line.
func Correlation(ev *dashboard.ElderlyView, size Size, path string) error {
	if ev == nil || len(ev.Points) == 0 {
		return fmt.Errorf("correlation chart: no joined provinces")
	}
	c := ev.Correlation
	p := newPlot(fmt.Sprintf("Elderly ratio %d vs standardized share (r = %.2f)", ev.Year, c.R),
		"Elderly population ratio (%)", "Standardized share (%)")

	xys := make(plotter.XYs, len(ev.Points))
	minX, maxX := math.Inf(1), math.Inf(-1)
	for i, pt := range ev.Points {
		xys[i] = plotter.XY{X: pt.Elderly, Y: pt.Standardized}
		minX = math.Min(minX, pt.Elderly)
		maxX = math.Max(maxX, pt.Elderly)
	}

	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return fmt.Errorf("correlation chart: %w", err)
	}
	scatter.GlyphStyle.Color = pointColor
	scatter.GlyphStyle.Radius = vg.Points(5)
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(scatter)

	if c.Fitted {
		line := plotter.NewFunction(func(x float64) float64 { return c.Intercept + c.Slope*x })
		line.Color = lineColor
		line.Width = vg.Points(2)
		line.XMin, line.XMax = minX, maxX
		p.Add(line)
	}

	labels := make([]string, len(ev.Points))
	for i, pt := range ev.Points {
		labels[i] = shortRegionName(pt.Region)
	}
	l, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return fmt.Errorf("correlation chart: %w", err)
	}
	l.Offset = vg.Point{X: vg.Points(6)}
	p.Add(l)
	p.Add(plotter.NewGrid())

	if err := p.Save(size.Width, size.Height, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
