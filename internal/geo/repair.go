package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/peterstace/simplefeatures/geom"
)

// ErrInvalidGeometry is returned when a polygon cannot be made valid.
var ErrInvalidGeometry = errors.New("geo: invalid geometry")

const areaEpsilon = 1e-14

// MakeValid cleans a polygon's rings: non-finite and repeated points are
// dropped, back-tracking spikes removed, rings closed, degenerate rings
// discarded and orientation fixed (shell counter-clockwise, holes
// clockwise). When the cleaned polygon still breaks the simple feature
// rules it is returned together with the validation error.
func MakeValid(p orb.Polygon) (orb.Polygon, error) {
	if len(p) == 0 {
		return nil, fmt.Errorf("%w: empty polygon", ErrInvalidGeometry)
	}
	shell, ok := cleanRing(p[0])
	if !ok {
		return nil, fmt.Errorf("%w: degenerate shell", ErrInvalidGeometry)
	}
	out := orb.Polygon{orient(shell, true)}
	for _, hole := range p[1:] {
		if h, ok := cleanRing(hole); ok {
			out = append(out, orient(h, false))
		}
	}
	if err := Validate(out); err != nil {
		return out, err
	}
	return out, nil
}

// Validate checks p against the OGC simple feature polygon rules: simple
// closed rings, rings meeting at no more than one point, a connected
// interior and holes inside the shell.
func Validate(p orb.Polygon) error {
	if len(p) == 0 {
		return fmt.Errorf("%w: empty polygon", ErrInvalidGeometry)
	}
	for i, r := range p {
		if len(r) < 4 {
			return fmt.Errorf("%w: ring %d has %d points", ErrInvalidGeometry, i, len(r))
		}
		if r[0] != r[len(r)-1] {
			return fmt.Errorf("%w: ring %d is not closed", ErrInvalidGeometry, i)
		}
		for _, pt := range r {
			if !finite(pt) {
				return fmt.Errorf("%w: ring %d has a non-finite point", ErrInvalidGeometry, i)
			}
		}
	}
	if err := toGeomPolygon(p).Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	return nil
}

// BufferZero rebuilds a polygon with a zero-distance buffer. Crossing rings
// are noded at their intersections and the lobes enclosing the ring's net
// area are kept. Unclosed rings are closed first.
func BufferZero(p orb.Polygon) (orb.MultiPolygon, error) {
	return BufferZeroMulti(orb.MultiPolygon{p})
}

// BufferZeroMulti is BufferZero over all parts of a multipolygon.
func BufferZeroMulti(mp orb.MultiPolygon) (orb.MultiPolygon, error) {
	g, ok := toGeom(mp)
	if !ok {
		return nil, fmt.Errorf("%w: nothing left to rebuild", ErrInvalidGeometry)
	}
	buffered, err := geom.Buffer(g, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: buffer: %v", ErrInvalidGeometry, err)
	}
	return rebuilt(buffered)
}

// unionAll dissolves polygons through the robust overlay.
func unionAll(parts []orb.Polygon) (orb.MultiPolygon, error) {
	gs := make([]geom.Geometry, 0, len(parts))
	for _, p := range parts {
		if g, ok := toGeom(orb.MultiPolygon{p}); ok {
			gs = append(gs, g)
		}
	}
	if len(gs) == 0 {
		return nil, nil
	}
	u, err := geom.UnionMany(gs)
	if err != nil {
		return nil, fmt.Errorf("%w: union: %v", ErrInvalidGeometry, err)
	}
	return fromGeom(u), nil
}

func rebuilt(g geom.Geometry) (orb.MultiPolygon, error) {
	mp := fromGeom(g)
	if len(mp) == 0 {
		return nil, fmt.Errorf("%w: rebuild produced no area", ErrInvalidGeometry)
	}
	for i, p := range mp {
		if err := Validate(p); err != nil {
			return mp, fmt.Errorf("part %d: %w", i, err)
		}
	}
	return mp, nil
}

// toGeom converts polygons without validating them. Non-finite points are
// dropped, rings closed and rings with fewer than three points discarded; a
// polygon whose shell is discarded is skipped.
func toGeom(mp orb.MultiPolygon) (geom.Geometry, bool) {
	polys := make([]geom.Polygon, 0, len(mp))
	for _, p := range mp {
		if len(p) == 0 {
			continue
		}
		if _, ok := toGeomRing(p[0]); !ok {
			continue
		}
		polys = append(polys, toGeomPolygon(p))
	}
	switch len(polys) {
	case 0:
		return geom.Geometry{}, false
	case 1:
		return polys[0].AsGeometry(), true
	default:
		return geom.NewMultiPolygon(polys).AsGeometry(), true
	}
}

func toGeomPolygon(p orb.Polygon) geom.Polygon {
	rings := make([]geom.LineString, 0, len(p))
	for _, r := range p {
		if ls, ok := toGeomRing(r); ok {
			rings = append(rings, ls)
		}
	}
	return geom.NewPolygon(rings)
}

func toGeomRing(r orb.Ring) (geom.LineString, bool) {
	pts := make([]orb.Point, 0, len(r)+1)
	for _, pt := range r {
		if finite(pt) {
			pts = append(pts, pt)
		}
	}
	if n := len(pts); n > 1 && pts[0] == pts[n-1] {
		pts = pts[:n-1]
	}
	if len(pts) < 3 {
		return geom.LineString{}, false
	}
	pts = append(pts, pts[0])
	flat := make([]float64, 0, 2*len(pts))
	for _, pt := range pts {
		flat = append(flat, pt[0], pt[1])
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY)), true
}

func finite(pt orb.Point) bool {
	return !math.IsNaN(pt[0]) && !math.IsNaN(pt[1]) && !math.IsInf(pt[0], 0) && !math.IsInf(pt[1], 0)
}

// fromGeom collects the polygonal parts of g, shells counter-clockwise and
// holes clockwise. Points and lines carry no area and are dropped.
func fromGeom(g geom.Geometry) orb.MultiPolygon {
	var out orb.MultiPolygon
	for _, part := range g.Dump() {
		p, ok := part.AsPolygon()
		if !ok || p.IsEmpty() {
			continue
		}
		rings := p.Coordinates()
		poly := make(orb.Polygon, 0, len(rings))
		for i, seq := range rings {
			ring := make(orb.Ring, seq.Length())
			for j := range ring {
				xy := seq.GetXY(j)
				ring[j] = orb.Point{xy.X, xy.Y}
			}
			poly = append(poly, orient(ring, i == 0))
		}
		out = append(out, poly)
	}
	return out
}

func cleanRing(r orb.Ring) (orb.Ring, bool) {
	pts := make([]orb.Point, 0, len(r))
	for _, pt := range r {
		if finite(pt) {
			pts = append(pts, pt)
		}
	}

	for {
		pts = dedupe(pts)
		spike := -1
		for i := range pts {
			if len(pts) < 3 {
				break
			}
			prev := pts[(i-1+len(pts))%len(pts)]
			next := pts[(i+1)%len(pts)]
			if prev == next {
				spike = i
				break
			}
		}
		if spike < 0 {
			break
		}
		pts = append(pts[:spike], pts[spike+1:]...)
	}

	if len(pts) < 3 {
		return nil, false
	}
	ring := append(orb.Ring(pts), pts[0])
	if math.Abs(signedArea(ring)) < areaEpsilon {
		return nil, false
	}
	return ring, true
}

// dedupe drops repeated points, treating the slice as a cycle.
func dedupe(pts []orb.Point) []orb.Point {
	out := pts[:0]
	for _, pt := range pts {
		if n := len(out); n > 0 && out[n-1] == pt {
			continue
		}
		out = append(out, pt)
	}
	for len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}

// signedArea is positive for counter-clockwise rings.
func signedArea(r orb.Ring) float64 {
	sum := 0.0
	for i := 0; i+1 < len(r); i++ {
		sum += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}
	return sum / 2
}

func orient(r orb.Ring, ccw bool) orb.Ring {
	if (signedArea(r) > 0) == ccw {
		return r
	}
	out := make(orb.Ring, len(r))
	for i, pt := range r {
		out[len(r)-1-i] = pt
	}
	return out
}
