// Package elderly joins the standardized region shares with the per-province
// elderly population ratio and measures their correlation.
package elderly

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/stat"

	"pneumodash/internal/aggregate"
	"pneumodash/internal/region"
)

var (
	// ErrTooFewProvinces is returned when fewer than three provinces join.
	ErrTooFewProvinces = errors.New("elderly: too few joined provinces")
	// ErrNoVariance is returned when either joined column is constant.
	ErrNoVariance = errors.New("elderly: constant column, correlation undefined")
	// ErrNoYearColumn is returned when no header is a year.
	ErrNoYearColumn = errors.New("elderly: no year column")
)

// Ratio is the elderly population ratio of one province.
type Ratio struct {
	Province string
	Percent  float64
}

// Table is the latest-year column of an elderly ratio workbook.
type Table struct {
	Sheet  string
	Year   int
	Ratios []Ratio
}

// Load reads the workbook at path. The sheet whose name contains "데이터" or
// "data" is used, else the first sheet. The province column is the first
// header containing "행정구역", else the first column; the value column is
// the numerically largest year header.
func Load(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open elderly workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("elderly workbook %s has no sheets", path)
	}
	sheet := sheets[0]
	for _, s := range sheets {
		if strings.Contains(s, "데이터") || strings.Contains(strings.ToLower(s), "data") {
			sheet = s
			break
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w", sheet, path, err)
	}
	t, err := parseRows(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	t.Sheet = sheet
	return t, nil
}

func parseRows(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, ErrNoYearColumn
	}
	header := rows[0]

	nameCol := 0
	for i, h := range header {
		if strings.Contains(h, "행정구역") {
			nameCol = i
			break
		}
	}

	yearCol, year := -1, 0
	for i, h := range header {
		if i == nameCol {
			continue
		}
		y, ok := parseYear(h)
		if ok && (yearCol < 0 || y > year) {
			yearCol, year = i, y
		}
	}
	if yearCol < 0 {
		return nil, ErrNoYearColumn
	}

	t := &Table{Year: year}
	for _, row := range rows[1:] {
		if nameCol >= len(row) || yearCol >= len(row) {
			continue
		}
		name := region.CanonicalProvinceName(row[nameCol])
		if name == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[yearCol]), 64)
		if err != nil || math.IsNaN(v) {
			continue
		}
		t.Ratios = append(t.Ratios, Ratio{Province: name, Percent: v})
	}
	return t, nil
}

// parseYear accepts integral headers such as "2024" or "2024.0".
func parseYear(h string) (int, bool) {
	h = strings.TrimSpace(h)
	if h == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(h, 64)
	if err != nil || f != math.Trunc(f) || f < 1900 || f > 2200 {
		return 0, false
	}
	return int(f), true
}

// Point is one joined province.
type Point struct {
	Province string
	Region   region.Region
	// Standardized is the region's standardized share copied to the province.
	Standardized float64
	Elderly      float64
}

// Join expands every region's share to its member provinces and inner-joins
// them with the ratio table. Provinces listed more than once in the table
// are averaged. Points come out in region.All then province order.
func Join(rows []aggregate.Row, t *Table) []Point {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, r := range t.Ratios {
		sums[r.Province] += r.Percent
		counts[r.Province]++
	}

	var out []Point
	for _, r := range region.All {
		share := aggregate.Lookup(rows, r).Share
		for _, p := range r.Provinces() {
			n := counts[p]
			if n == 0 {
				continue
			}
			out = append(out, Point{
				Province:     p,
				Region:       r,
				Standardized: share,
				Elderly:      sums[p] / float64(n),
			})
		}
	}
	return out
}

// Correlation is the Pearson coefficient between the elderly ratio (x) and
// the standardized share (y), with the least-squares line y = Intercept +
// Slope*x.
type Correlation struct {
	N         int
	R         float64
	Slope     float64
	Intercept float64
	// Fitted is false when the correlation could not be computed.
	Fitted bool
}

// Correlate computes the correlation over joined points.
func Correlate(points []Point) (Correlation, error) {
	if len(points) < 3 {
		return Correlation{N: len(points)}, fmt.Errorf("%w: %d", ErrTooFewProvinces, len(points))
	}
	x := make([]float64, len(points))
	y := make([]float64, len(points))
	for i, p := range points {
		x[i], y[i] = p.Elderly, p.Standardized
	}
	if stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return Correlation{N: len(points)}, ErrNoVariance
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)
	return Correlation{
		N:         len(points),
		R:         stat.Correlation(x, y, nil),
		Slope:     beta,
		Intercept: alpha,
		Fitted:    true,
	}, nil
}
