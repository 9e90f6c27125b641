package aggregate

import (
	"sort"
	"strings"

	"pneumodash/internal/region"
)

// GenderSplit is the overall male/female distribution. Percentages are
// rounded to one decimal and exclude records without a sex label.
type GenderSplit struct {
	Male          int
	Female        int
	MalePercent   float64
	FemalePercent float64
}

func Gender(sexes []region.Sex) GenderSplit {
	var g GenderSplit
	for _, s := range sexes {
		switch s {
		case region.Male:
			g.Male++
		case region.Female:
			g.Female++
		}
	}
	total := g.Male + g.Female
	if total == 0 {
		return g
	}
	g.MalePercent = Round(float64(g.Male)/float64(total)*100, 1)
	g.FemalePercent = Round(float64(g.Female)/float64(total)*100, 1)
	return g
}

// RegionSexRow is the share of one sex within one region.
type RegionSexRow struct {
	Region  region.Region
	Sex     region.Sex
	Count   int
	Percent float64
}

// RegionGender splits each region's labelled records by sex. Regions without
// any labelled record are omitted; within a present region both sexes are
// reported, zero included. regions and sexes are parallel slices.
func RegionGender(regions []region.Region, sexes []region.Sex) []RegionSexRow {
	type pair struct{ male, female int }
	counts := make(map[region.Region]*pair)
	for i, r := range regions {
		if !r.Valid() || i >= len(sexes) {
			continue
		}
		p := counts[r]
		if p == nil {
			p = &pair{}
			counts[r] = p
		}
		switch sexes[i] {
		case region.Male:
			p.male++
		case region.Female:
			p.female++
		}
	}

	var rows []RegionSexRow
	for _, r := range region.All {
		p := counts[r]
		if p == nil || p.male+p.female == 0 {
			continue
		}
		total := float64(p.male + p.female)
		rows = append(rows,
			RegionSexRow{Region: r, Sex: region.Male, Count: p.male, Percent: Round(float64(p.male)/total*100, 2)},
			RegionSexRow{Region: r, Sex: region.Female, Count: p.female, Percent: Round(float64(p.female)/total*100, 2)},
		)
	}
	return rows
}

// TypeRow is the share of one facility type.
type TypeRow struct {
	Type    string
	Count   int
	Percent float64
}

// FacilityTypes counts records per facility type code, largest first.
// Empty codes are skipped.
func FacilityTypes(types []string) []TypeRow {
	counts := make(map[string]int)
	total := 0
	for _, t := range types {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		counts[t]++
		total++
	}

	rows := make([]TypeRow, 0, len(counts))
	for t, n := range counts {
		rows = append(rows, TypeRow{
			Type:    t,
			Count:   n,
			Percent: Round(float64(n)/float64(total)*100, 2),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Type < rows[j].Type
	})
	return rows
}
