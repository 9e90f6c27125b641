// Package geo reprojects, repairs and dissolves province boundaries into one
// boundary per canonical region.
package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"pneumodash/internal/region"
)

// Options controls boundary decoding and CRS handling.
type Options struct {
	CodeProperties []string
	NameProperties []string
	// AssumedEPSG is used for undeclared data whose coordinates look projected.
	AssumedEPSG        int
	ProjectedThreshold float64
}

// DefaultOptions matches the province boundary files (CTPRVN_CD, CTP_KOR_NM).
func DefaultOptions() Options {
	return Options{
		CodeProperties:     []string{"CTPRVN_CD", "SIDO_CD", "sido_cd", "ADM_CD", "code"},
		NameProperties:     []string{"CTP_KOR_NM", "SIDO_NM", "sido_nm", "CTP_ENG_NM", "name"},
		AssumedEPSG:        EPSGCentralBelt,
		ProjectedThreshold: ProjectedThreshold,
	}
}

// Boundary is the dissolved geometry of one canonical region.
type Boundary struct {
	Region   region.Region
	Geometry orb.MultiPolygon
	// Features is the number of source features merged into the boundary.
	Features int
}

// LabelPoint is the area centroid of the boundary's largest polygon.
func (b Boundary) LabelPoint() orb.Point {
	var best orb.Polygon
	bestArea := -1.0
	for _, p := range b.Geometry {
		if a := math.Abs(planar.Area(p)); a > bestArea {
			best, bestArea = p, a
		}
	}
	if best == nil {
		return orb.Point{}
	}
	c, _ := planar.CentroidArea(best)
	return c
}

// Untagged describes a source feature that matched no region.
type Untagged struct {
	ID   string
	Code string
	Name string
}

// Coverage reports how well the boundary file mapped onto regions.
type Coverage struct {
	SourceFeatures int
	TaggedByCode   int
	TaggedByName   int
	ByCode         float64
	ByName         float64
	Overall        float64
	Untagged       []Untagged
	Scheme         region.SchemeVote
	// SourceCRS is the reference system the data was read in.
	SourceCRS string
	// AssumedCRS is true when SourceCRS was inferred from the coordinates.
	AssumedCRS bool
	// ExcludedParts counts polygon parts dropped because repair failed.
	ExcludedParts  int
	RepairFailures []string
}

// Province is one repaired source feature, kept for drawing the province
// outlines under the dissolved regions.
type Province struct {
	ID       string
	Region   region.Region
	Geometry orb.MultiPolygon
}

// Result is the output of a dissolve: boundaries in region.All order for
// the regions that had at least one valid part.
type Result struct {
	Boundaries []Boundary
	// Provinces lists every source feature with a repaired part, tagged or not.
	Provinces []Province
	Coverage  Coverage
	Bound     orb.Bound
}

// Boundary returns the dissolved boundary of r.
func (res *Result) Boundary(r region.Region) (Boundary, bool) {
	for _, b := range res.Boundaries {
		if b.Region == r {
			return b, true
		}
	}
	return Boundary{}, false
}

type Dissolver struct {
	opts   Options
	logger *zap.Logger
}

func NewDissolver(opts Options, logger *zap.Logger) *Dissolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ProjectedThreshold == 0 {
		opts.ProjectedThreshold = ProjectedThreshold
	}
	if opts.AssumedEPSG == 0 {
		opts.AssumedEPSG = EPSGCentralBelt
	}
	return &Dissolver{opts: opts, logger: logger}
}

// Dissolve reads the boundary file at path and dissolves it. Any read or
// reprojection failure fails the whole call.
func (d *Dissolver) Dissolve(path string) (*Result, error) {
	col, err := ReadCollection(path, d.opts.CodeProperties, d.opts.NameProperties)
	if err != nil {
		return nil, err
	}
	res, err := d.DissolveCollection(col)
	if err != nil {
		return nil, fmt.Errorf("dissolve %s: %w", path, err)
	}
	return res, nil
}

// DissolveCollection runs reprojection, repair, explode, tagging, dissolve
// and re-repair over a decoded collection.
func (d *Dissolver) DissolveCollection(col *Collection) (*Result, error) {
	if col == nil || len(col.Features) == 0 {
		return nil, ErrNoFeatures
	}

	features, srcCRS, assumed, err := d.reproject(col)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	cov := &res.Coverage
	cov.SourceFeatures = len(features)
	cov.SourceCRS = srcCRS
	cov.AssumedCRS = assumed

	var repairErr error
	repaired := make([]orb.MultiPolygon, len(features))
	for i, f := range features {
		for j, p := range explode(f.Geometry) {
			fixed, err := repairPart(p)
			if err != nil {
				cov.ExcludedParts++
				repairErr = multierr.Append(repairErr, fmt.Errorf("feature %s part %d: %w", f.ID, j, err))
				continue
			}
			repaired[i] = append(repaired[i], fixed...)
		}
	}
	for _, e := range multierr.Errors(repairErr) {
		cov.RepairFailures = append(cov.RepairFailures, e.Error())
	}

	tags := d.tag(features, cov)

	byRegion := make(map[region.Region][]orb.Polygon)
	members := make(map[region.Region]int)
	first := true
	for i, mp := range repaired {
		if len(mp) == 0 {
			continue
		}
		r := tags[i]
		res.Provinces = append(res.Provinces, Province{ID: features[i].ID, Region: r, Geometry: mp})
		if r == region.None {
			continue
		}
		byRegion[r] = append(byRegion[r], mp...)
		members[r]++

		if b := mp.Bound(); first {
			res.Bound = b
			first = false
		} else {
			res.Bound = res.Bound.Union(b)
		}
	}

	for _, r := range region.All {
		regionParts := byRegion[r]
		if len(regionParts) == 0 {
			continue
		}
		merged, err := unionAll(regionParts)
		if err != nil {
			d.logger.Warn("union failed, keeping undissolved parts", zap.String("region", r.Key()), zap.Error(err))
			merged = orb.MultiPolygon(regionParts)
		}
		res.Boundaries = append(res.Boundaries, Boundary{
			Region:   r,
			Geometry: d.rerepair(r, merged),
			Features: members[r],
		})
	}

	d.logger.Info("boundaries dissolved",
		zap.Int("source_features", cov.SourceFeatures),
		zap.Float64("coverage_code", cov.ByCode),
		zap.Float64("coverage_name", cov.ByName),
		zap.Float64("coverage_overall", cov.Overall),
		zap.String("scheme", cov.Scheme.Scheme.String()),
		zap.Int("regions", len(res.Boundaries)),
		zap.Int("excluded_parts", cov.ExcludedParts),
	)
	return res, nil
}

// reproject converts every feature to EPSG:4326.
func (d *Dissolver) reproject(col *Collection) ([]Feature, string, bool, error) {
	var fn func(orb.Point) orb.Point
	src := col.CRS
	assumed := false

	if src == "" {
		if looksProjected(collectionBound(col.Features), d.opts.ProjectedThreshold) {
			src = fmt.Sprintf("EPSG:%d", d.opts.AssumedEPSG)
			assumed = true
		} else {
			src = fmt.Sprintf("EPSG:%d", EPSGWGS84)
		}
	}
	epsg, err := ParseEPSG(src)
	if err != nil {
		return nil, "", false, err
	}
	fn, err = toGeographic(epsg)
	if err != nil {
		return nil, "", false, err
	}
	if assumed {
		d.logger.Warn("boundary file declares no CRS, assuming projected", zap.String("crs", src))
	}

	out := make([]Feature, len(col.Features))
	for i, f := range col.Features {
		g := transformGeometry(f.Geometry, fn)
		if g != nil {
			if err := checkGeographic(g.Bound()); err != nil {
				return nil, "", false, fmt.Errorf("reproject feature %s from %s: %w", f.ID, src, err)
			}
		}
		f.Geometry = g
		out[i] = f
	}
	return out, src, assumed, nil
}

func collectionBound(features []Feature) orb.Bound {
	var b orb.Bound
	first := true
	for _, f := range features {
		if f.Geometry == nil {
			continue
		}
		if first {
			b = f.Geometry.Bound()
			first = false
			continue
		}
		b = b.Union(f.Geometry.Bound())
	}
	return b
}

func checkGeographic(b orb.Bound) error {
	for _, v := range []float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite coordinate", ErrUnsupportedCRS)
		}
	}
	if b.Min[0] < -180 || b.Max[0] > 180 || b.Min[1] < -90 || b.Max[1] > 90 {
		return fmt.Errorf("%w: coordinates outside lon/lat range", ErrUnsupportedCRS)
	}
	return nil
}

// explode splits polygonal geometry into single polygons. Other geometry
// types carry no area and yield nothing.
func explode(g orb.Geometry) []orb.Polygon {
	switch g := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{g}
	case orb.MultiPolygon:
		return []orb.Polygon(g)
	default:
		return nil
	}
}

// repairPart prefers MakeValid and falls back to BufferZero, on the cleaned
// polygon when MakeValid produced one and on the input otherwise.
func repairPart(p orb.Polygon) ([]orb.Polygon, error) {
	fixed, err := MakeValid(p)
	if err == nil {
		return []orb.Polygon{fixed}, nil
	}
	if fixed == nil {
		fixed = p
	}
	mp, bufErr := BufferZero(fixed)
	if bufErr != nil {
		return nil, multierr.Append(err, bufErr)
	}
	return []orb.Polygon(mp), nil
}

// tag assigns a region to every source feature: the code first, the name
// for whatever the code missed.
func (d *Dissolver) tag(features []Feature, cov *Coverage) []region.Region {
	codes := make([]string, len(features))
	for i, f := range features {
		codes[i] = region.TwoDigitCode(f.Code)
	}
	cov.Scheme = region.SelectScheme(codes)

	tags := make([]region.Region, len(features))
	for i, f := range features {
		if r := region.LookupCode(f.Code, cov.Scheme.Scheme); r != region.None {
			tags[i] = r
			cov.TaggedByCode++
			continue
		}
		if r := region.LookupName(f.Name); r != region.None {
			tags[i] = r
			cov.TaggedByName++
			continue
		}
		cov.Untagged = append(cov.Untagged, Untagged{ID: f.ID, Code: f.Code, Name: f.Name})
	}

	if n := float64(len(features)); n > 0 {
		cov.ByCode = float64(cov.TaggedByCode) / n
		cov.ByName = float64(cov.TaggedByName) / n
		cov.Overall = float64(cov.TaggedByCode+cov.TaggedByName) / n
	}
	if len(cov.Untagged) > 0 {
		d.logger.Warn("boundary features without region",
			zap.Int("untagged", len(cov.Untagged)),
			zap.String("scheme", cov.Scheme.Scheme.String()))
	}
	return tags
}

// rerepair applies the zero-buffer fix to a dissolved geometry. Shared
// borders can leave slivers or touching rings behind; the rebuilt geometry
// replaces the union only when it is valid and keeps the area.
func (d *Dissolver) rerepair(r region.Region, mp orb.MultiPolygon) orb.MultiPolygon {
	if len(mp) == 0 {
		return mp
	}
	fixed, err := BufferZeroMulti(mp)
	if err != nil {
		d.logger.Debug("re-repair kept dissolved geometry", zap.String("region", r.Key()), zap.Error(err))
		return mp
	}
	before, after := math.Abs(planar.Area(mp)), math.Abs(planar.Area(fixed))
	if before > 0 && math.Abs(after-before)/before > 1e-6 {
		d.logger.Debug("re-repair changed area, kept dissolved geometry",
			zap.String("region", r.Key()), zap.Float64("before", before), zap.Float64("after", after))
		return mp
	}
	return fixed
}
