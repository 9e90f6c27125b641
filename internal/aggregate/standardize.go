// Package aggregate computes the region, sex and facility-type distributions
// shown on the dashboard.
package aggregate

import (
	"math"

	"pneumodash/internal/region"
)

// Row is the standardized share of one canonical region.
type Row struct {
	Region region.Region
	// Count is the raw number of records in the region.
	Count int
	// PerProvince is Count divided by the region's sub-region count.
	PerProvince float64
	// Share is the unrounded standardized percentage.
	Share float64
	// Percent is Share rounded to two decimals.
	Percent float64
}

// Standardize counts records per canonical region, divides each count by
// the region's sub-region count and normalizes the results to 100. It always
// returns five rows in region.All order. Unmapped entries are ignored; an
// input without mapped entries yields zero for every region.
func Standardize(regions []region.Region) []Row {
	counts := make(map[region.Region]int, len(region.All))
	for _, r := range regions {
		if r.Valid() {
			counts[r]++
		}
	}

	rows := make([]Row, len(region.All))
	total := 0.0
	for i, r := range region.All {
		rows[i] = Row{
			Region:      r,
			Count:       counts[r],
			PerProvince: float64(counts[r]) / float64(r.SubRegionCount()),
		}
		total += rows[i].PerProvince
	}

	if total == 0 {
		return rows
	}
	for i := range rows {
		rows[i].Share = rows[i].PerProvince / total * 100
		rows[i].Percent = Round(rows[i].Share, 2)
	}
	return rows
}

// Lookup returns a zero Row when r is absent.
func Lookup(rows []Row, r region.Region) Row {
	for _, row := range rows {
		if row.Region == r {
			return row
		}
	}
	return Row{Region: r}
}

// Round rounds x half away from zero to the given number of decimals.
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
