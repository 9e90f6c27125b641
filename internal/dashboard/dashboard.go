// Package dashboard assembles everything one filter state shows: the
// standardized region table, gender and facility distributions, the
// choropleth join and the elderly correlation.
package dashboard

import (
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"pneumodash/internal/aggregate"
	"pneumodash/internal/dataset"
	"pneumodash/internal/elderly"
	"pneumodash/internal/geo"
	"pneumodash/internal/region"
)

// Filter selects the analysis population. Empty fields do not filter.
type Filter struct {
	FacilityTypes []string
	// MinAge and MaxAge are inclusive bounds. Records without an age are
	// excluded once either bound is set.
	MinAge *int
	MaxAge *int
}

// Match reports whether rec passes the filter.
func (f Filter) Match(rec dataset.Record) bool {
	if len(f.FacilityTypes) > 0 {
		ok := false
		for _, t := range f.FacilityTypes {
			if t == rec.FacilityType {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.MinAge == nil && f.MaxAge == nil {
		return true
	}
	if !rec.HasAge {
		return false
	}
	if f.MinAge != nil && rec.Age < *f.MinAge {
		return false
	}
	if f.MaxAge != nil && rec.Age > *f.MaxAge {
		return false
	}
	return true
}

// MapRow is one choropleth region.
type MapRow struct {
	Region     region.Region
	Percent    float64
	Geometry   orb.MultiPolygon
	LabelPoint orb.Point
}

// MapView is the choropleth join of boundaries and standardized shares.
type MapView struct {
	Rows       []MapRow
	Boundaries []geo.Boundary
	Provinces  []geo.Province
	Coverage   geo.Coverage
	Bound      orb.Bound
}

// ElderlyView is the correlation panel.
type ElderlyView struct {
	Year        int
	Points      []elderly.Point
	Correlation elderly.Correlation
}

// View is the full output for one filter state.
type View struct {
	// Records is the size of the loaded dataset.
	Records int
	// Unmapped counts records with no canonical region, before filtering.
	Unmapped int
	// Population is the number of mapped records passing the filter.
	Population int

	Resolution    region.Resolution
	Rows          []aggregate.Row
	Gender        aggregate.GenderSplit
	RegionGender  []aggregate.RegionSexRow
	FacilityTypes []aggregate.TypeRow

	Map    *MapView
	MapErr error

	Elderly    *ElderlyView
	ElderlyErr error
}

// Options wires the optional panels.
type Options struct {
	Resolver region.Options
	// BoundaryPath enables the map panel.
	BoundaryPath string
	// Elderly enables the correlation panel.
	Elderly *elderly.Table
}

// Service computes views over one loaded dataset.
type Service struct {
	data   *dataset.Dataset
	opts   Options
	cache  *geo.Cache
	logger *zap.Logger
}

func NewService(data *dataset.Dataset, opts Options, cache *geo.Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Resolver == (region.Options{}) {
		opts.Resolver = region.DefaultOptions()
	}
	return &Service{data: data, opts: opts, cache: cache, logger: logger}
}

// FacilityTypeOptions lists the distinct facility types in the dataset, for
// building a filter.
func (s *Service) FacilityTypeOptions() []string {
	types := make([]string, 0, len(s.data.Records))
	for _, r := range s.data.Records {
		types = append(types, r.FacilityType)
	}
	rows := aggregate.FacilityTypes(types)
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Type
	}
	return out
}

// View resolves regions over the whole dataset, applies f and computes every
// panel. The map and correlation panels fail independently: their errors are
// recorded on the view and the aggregates are still returned.
func (s *Service) View(f Filter) *View {
	res := region.Resolve(s.data.Signals(), s.opts.Resolver)
	v := &View{
		Records:    len(s.data.Records),
		Unmapped:   res.Unmapped,
		Resolution: res,
	}
	s.logger.Info("regions resolved",
		zap.String("stage", string(res.Stage)),
		zap.Float64("coverage", res.Coverage),
		zap.String("scheme", res.Scheme.Scheme.String()),
		zap.Int("unmapped", res.Unmapped))

	var (
		regions []region.Region
		sexes   []region.Sex
		types   []string
	)
	for i, rec := range s.data.Records {
		r := res.Regions[i]
		if r == region.None || !f.Match(rec) {
			continue
		}
		regions = append(regions, r)
		sexes = append(sexes, rec.Sex)
		types = append(types, rec.FacilityType)
	}
	v.Population = len(regions)
	v.Rows = aggregate.Standardize(regions)
	v.Gender = aggregate.Gender(sexes)
	v.RegionGender = aggregate.RegionGender(regions, sexes)
	v.FacilityTypes = aggregate.FacilityTypes(types)

	if s.opts.BoundaryPath != "" && s.cache != nil {
		v.Map, v.MapErr = s.mapView(v.Rows)
		if v.MapErr != nil {
			s.logger.Error("map panel failed", zap.String("path", s.opts.BoundaryPath), zap.Error(v.MapErr))
		}
	}
	if s.opts.Elderly != nil {
		v.Elderly, v.ElderlyErr = s.elderlyView(v.Rows)
		if v.ElderlyErr != nil {
			s.logger.Warn("correlation panel failed", zap.Error(v.ElderlyErr))
		}
	}
	return v
}

func (s *Service) mapView(rows []aggregate.Row) (*MapView, error) {
	res, err := s.cache.Get(s.opts.BoundaryPath)
	if err != nil {
		return nil, err
	}
	return JoinMap(res, rows), nil
}

// JoinMap attaches the standardized percentage to every dissolved boundary.
// A region without a boundary gets no row.
func JoinMap(res *geo.Result, rows []aggregate.Row) *MapView {
	mv := &MapView{
		Boundaries: res.Boundaries,
		Provinces:  res.Provinces,
		Coverage:   res.Coverage,
		Bound:      res.Bound,
	}
	for _, b := range res.Boundaries {
		mv.Rows = append(mv.Rows, MapRow{
			Region:     b.Region,
			Percent:    aggregate.Lookup(rows, b.Region).Percent,
			Geometry:   b.Geometry,
			LabelPoint: b.LabelPoint(),
		})
	}
	return mv
}

// Properties returns per-region GeoJSON properties for the joined map.
func (mv *MapView) Properties() map[region.Region]map[string]interface{} {
	out := make(map[region.Region]map[string]interface{}, len(mv.Rows))
	for _, r := range mv.Rows {
		out[r.Region] = map[string]interface{}{"percent": r.Percent}
	}
	return out
}

func (s *Service) elderlyView(rows []aggregate.Row) (*ElderlyView, error) {
	points := elderly.Join(rows, s.opts.Elderly)
	c, err := elderly.Correlate(points)
	return &ElderlyView{Year: s.opts.Elderly.Year, Points: points, Correlation: c}, err
}
