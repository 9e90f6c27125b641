// Package chart renders the dashboard panels as PNG files with gonum/plot.
package chart

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"pneumodash/internal/aggregate"
	"pneumodash/internal/region"
)

// Size is the output size of a chart.
type Size struct {
	Width  vg.Length
	Height vg.Length
}

// Inches builds a Size from inch dimensions.
func Inches(w, h float64) Size {
	return Size{Width: vg.Length(w) * vg.Inch, Height: vg.Length(h) * vg.Inch}
}

var (
	barColor    = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	maleColor   = color.RGBA{R: 102, G: 194, B: 165, A: 255}
	femaleColor = color.RGBA{R: 252, G: 141, B: 98, A: 255}
	pointColor  = color.RGBA{R: 231, G: 76, B: 60, A: 255}
	lineColor   = color.RGBA{R: 243, G: 156, B: 18, A: 255}
)

// The bundled plot fonts have no Hangul glyphs, so charts label regions in
// romanized form.
var shortRegionNames = map[region.Region]string{
	region.SeoulIncheon:    "Seoul/Incheon",
	region.GyeonggiGangwon: "Gyeonggi/Gangwon",
	region.Chungcheong:     "Chungcheong",
	region.Jeolla:          "Jeolla",
	region.GyeongsangJeju:  "Gyeongsang/Jeju",
}

func shortRegionName(r region.Region) string {
	if name, ok := shortRegionNames[r]; ok {
		return name
	}
	return r.Key()
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	return p
}

// addValueLabels places a formatted label above every bar.
func addValueLabels(p *plot.Plot, values plotter.Values, offset, maxValue float64, format string) error {
	xys := make(plotter.XYs, len(values))
	labels := make([]string, len(values))
	for i, v := range values {
		xys[i] = plotter.XY{X: float64(i) + offset, Y: v + maxValue*0.02}
		labels[i] = fmt.Sprintf(format, v)
	}
	l, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return err
	}
	for i := range l.TextStyle {
		l.TextStyle[i].XAlign = draw.XCenter
	}
	p.Add(l)
	return nil
}

func maxOf(values plotter.Values) float64 {
	m := 0.0
	for _, v := range values {
		m = math.Max(m, v)
	}
	return m
}

// Standardized draws the standardized region distribution.
func Standardized(rows []aggregate.Row, size Size, path string) error {
	p := newPlot("Regional distribution (per-province standardized)", "Region", "Share (%)")

	values := make(plotter.Values, len(rows))
	labels := make([]string, len(rows))
	for i, row := range rows {
		values[i] = row.Percent
		labels[i] = shortRegionName(row.Region)
	}

	bars, err := plotter.NewBarChart(values, vg.Points(40))
	if err != nil {
		return fmt.Errorf("standardized chart: %w", err)
	}
	bars.Color = barColor
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(labels...)

	maxValue := maxOf(values)
	p.Y.Min = 0
	p.Y.Max = math.Max(maxValue*1.15, 1)
	if err := addValueLabels(p, values, 0, maxValue, "%.2f%%"); err != nil {
		return fmt.Errorf("standardized chart: %w", err)
	}
	p.Add(plotter.NewGrid())

	if err := p.Save(size.Width, size.Height, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// Gender draws male and female bars side by side: the overall split first,
// then the within-region split of every region that has labelled records.
func Gender(overall aggregate.GenderSplit, rows []aggregate.RegionSexRow, size Size, path string) error {
	p := newPlot("Sex distribution (overall and within region)", "", "Share (%)")

	labels := []string{"Overall"}
	male := plotter.Values{overall.MalePercent}
	female := plotter.Values{overall.FemalePercent}
	for _, row := range rows {
		switch row.Sex {
		case region.Male:
			labels = append(labels, shortRegionName(row.Region))
			male = append(male, row.Percent)
		case region.Female:
			female = append(female, row.Percent)
		}
	}
	if len(male) != len(female) {
		return fmt.Errorf("gender chart: %d male rows vs %d female rows", len(male), len(female))
	}

	w := vg.Points(18)
	maleBars, err := plotter.NewBarChart(male, w)
	if err != nil {
		return fmt.Errorf("gender chart: %w", err)
	}
	maleBars.Color = maleColor
	maleBars.LineStyle.Width = vg.Length(0)
	maleBars.Offset = -w / 2

	femaleBars, err := plotter.NewBarChart(female, w)
	if err != nil {
		return fmt.Errorf("gender chart: %w", err)
	}
	femaleBars.Color = femaleColor
	femaleBars.LineStyle.Width = vg.Length(0)
	femaleBars.Offset = w / 2

	p.Add(maleBars, femaleBars)
	p.Legend.Add("male", maleBars)
	p.Legend.Add("female", femaleBars)
	p.Legend.Top = true
	p.NominalX(labels...)
	p.Y.Min = 0
	p.Y.Max = 110
	p.X.Tick.Label.Rotation = math.Pi / 8
	p.X.Tick.Label.XAlign = draw.XRight
	p.Add(plotter.NewGrid())

	if err := p.Save(size.Width, size.Height, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// FacilityTypes draws the facility type distribution.
func FacilityTypes(rows []aggregate.TypeRow, size Size, path string) error {
	if len(rows) == 0 {
		return fmt.Errorf("facility chart: no facility types")
	}
	p := newPlot("Facility type distribution", "Facility type", "Share (%)")

	values := make(plotter.Values, len(rows))
	labels := make([]string, len(rows))
	for i, row := range rows {
		values[i] = row.Percent
		labels[i] = row.Type
	}

	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return fmt.Errorf("facility chart: %w", err)
	}
	bars.Color = barColor
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(labels...)
	if len(labels) > 8 {
		p.X.Tick.Label.Rotation = math.Pi / 3
		p.X.Tick.Label.YAlign = draw.YCenter
		p.X.Tick.Label.XAlign = draw.XCenter
	}

	maxValue := maxOf(values)
	p.Y.Min = 0
	p.Y.Max = maxValue * 1.15
	if err := addValueLabels(p, values, 0, maxValue, "%.1f%%"); err != nil {
		return fmt.Errorf("facility chart: %w", err)
	}

	if err := p.Save(size.Width, size.Height, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
