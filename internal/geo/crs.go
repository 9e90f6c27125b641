package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/wroge/wgs84"
)

// ErrUnsupportedCRS is returned when a boundary file declares a reference
// system that cannot be converted to geographic longitude/latitude.
var ErrUnsupportedCRS = errors.New("geo: unsupported coordinate reference system")

const (
	EPSGWGS84        = 4326
	EPSGWebMercator  = 3857
	EPSGKoreaUnified = 5179
	EPSGCentralBelt  = 5186
)

// ProjectedThreshold is the absolute coordinate value above which an
// undeclared dataset is treated as projected.
const ProjectedThreshold = 200.0

// Korea 2000 is GRS80 on ITRF2000 and is taken as coincident with WGS84.
var korea2000 = wgs84.Datum{Spheroid: wgs84.GRS80{}}

var koreaBelts = map[int]wgs84.ProjectedReferenceSystem{
	5179: korea2000.TransverseMercator(127.5, 38, 0.9996, 1000000, 2000000),
	5181: korea2000.TransverseMercator(127, 38, 1, 200000, 500000),
	5185: korea2000.TransverseMercator(125, 38, 1, 200000, 600000),
	5186: korea2000.TransverseMercator(127, 38, 1, 200000, 600000),
	5187: korea2000.TransverseMercator(129, 38, 1, 200000, 600000),
	5188: korea2000.TransverseMercator(131, 38, 1, 200000, 600000),
}

// epsg resolves codes to reference systems: the wgs84 repository (WGS84,
// Web Mercator, UTM and the European systems) plus the Korea 2000 belts.
var epsg = newRepository()

func newRepository() *wgs84.Repository {
	repo := wgs84.EPSG()
	for code, crs := range koreaBelts {
		repo.Add(code, crs)
	}
	return repo
}

var geographic = map[int]bool{4326: true, 4019: true, 4737: true}

// ParseEPSG extracts an EPSG code from the forms used in GeoJSON "crs"
// members and config files: "EPSG:5179", "urn:ogc:def:crs:EPSG::5179",
// "5179" and the OGC CRS84 URN (mapped to 4326).
func ParseEPSG(name string) (int, error) {
	s := strings.TrimSpace(strings.ToUpper(name))
	if s == "" {
		return 0, fmt.Errorf("%w: empty name", ErrUnsupportedCRS)
	}
	if strings.HasSuffix(s, "CRS84") {
		return EPSGWGS84, nil
	}
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	code, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedCRS, name)
	}
	return code, nil
}

// toGeographic returns a point transform from code to lon/lat.
func toGeographic(code int) (func(orb.Point) orb.Point, error) {
	if geographic[code] {
		return func(p orb.Point) orb.Point { return p }, nil
	}
	crs := epsg.Code(code)
	if crs == nil {
		return nil, fmt.Errorf("%w: EPSG:%d", ErrUnsupportedCRS, code)
	}
	fn := wgs84.Transform(crs, wgs84.LonLat())
	return func(p orb.Point) orb.Point {
		lon, lat, _ := fn(p[0], p[1], 0)
		return orb.Point{lon, lat}
	}, nil
}

// looksProjected reports whether any coordinate magnitude exceeds threshold.
func looksProjected(b orb.Bound, threshold float64) bool {
	for _, v := range []float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]} {
		if math.Abs(v) > threshold {
			return true
		}
	}
	return false
}

// transformGeometry applies fn to every point of a polygonal geometry.
func transformGeometry(g orb.Geometry, fn func(orb.Point) orb.Point) orb.Geometry {
	switch g := g.(type) {
	case orb.Polygon:
		return transformPolygon(g, fn)
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(g))
		for i, p := range g {
			out[i] = transformPolygon(p, fn)
		}
		return out
	default:
		return g
	}
}

func transformPolygon(p orb.Polygon, fn func(orb.Point) orb.Point) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, r := range p {
		ring := make(orb.Ring, len(r))
		for j, pt := range r {
			ring[j] = fn(pt)
		}
		out[i] = ring
	}
	return out
}
