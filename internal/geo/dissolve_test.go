package geo

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"pneumodash/internal/region"
)

func feature(code, name string, g orb.Geometry) Feature {
	return Feature{ID: code + name, Code: code, Name: name, Geometry: g}
}

func lonLatSquare(lon, lat, size float64) orb.Polygon {
	return orb.Polygon{square(lon, lat, size)}
}

func lonLatRect(lon, lat, w, h float64) orb.Polygon {
	return orb.Polygon{{{lon, lat}, {lon + w, lat}, {lon + w, lat + h}, {lon, lat + h}, {lon, lat}}}
}

func writeBoundaryFile(t *testing.T, crs string, features ...*geojson.Feature) string {
	t.Helper()
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		fc.Append(f)
	}
	data, err := fc.MarshalJSON()
	require.NoError(t, err)

	if crs != "" {
		var doc map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &doc))
		doc["crs"] = map[string]interface{}{
			"type":       "name",
			"properties": map[string]interface{}{"name": crs},
		}
		data, err = json.Marshal(doc)
		require.NoError(t, err)
	}

	path := filepath.Join(t.TempDir(), "sido.geojson")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func boundaryFeature(code, name string, g orb.Geometry) *geojson.Feature {
	f := geojson.NewFeature(g)
	if code != "" {
		f.Properties["CTPRVN_CD"] = code
	}
	if name != "" {
		f.Properties["CTP_KOR_NM"] = name
	}
	return f
}

func TestDissolve_SeoulAndIncheonMerge(t *testing.T) {
	d := NewDissolver(DefaultOptions(), zaptest.NewLogger(t))
	col := &Collection{Features: []Feature{
		feature("11", "", lonLatSquare(126.8, 37.4, 0.2)),
		feature("28", "", lonLatSquare(126.3, 37.3, 0.3)),
	}}

	res, err := d.DissolveCollection(col)
	require.NoError(t, err)

	require.Len(t, res.Boundaries, 1)
	b := res.Boundaries[0]
	assert.Equal(t, region.SeoulIncheon, b.Region)
	assert.Equal(t, 2, b.Features)
	assert.InDelta(t, 0.04+0.09, math.Abs(planar.Area(b.Geometry)), 1e-9)

	assert.Equal(t, 2, res.Coverage.SourceFeatures)
	assert.InDelta(t, 1.0, res.Coverage.ByCode, 1e-9)
	assert.InDelta(t, 1.0, res.Coverage.Overall, 1e-9)
	assert.Equal(t, region.SchemeB, res.Coverage.Scheme.Scheme)
	assert.Empty(t, res.Coverage.Untagged)
	assert.Equal(t, "EPSG:4326", res.Coverage.SourceCRS)
	assert.False(t, res.Coverage.AssumedCRS)
}

func TestDissolve_OverlappingPartsUnion(t *testing.T) {
	d := NewDissolver(DefaultOptions(), zaptest.NewLogger(t))
	col := &Collection{Features: []Feature{
		feature("41", "", lonLatSquare(127.0, 37.0, 0.2)),
		feature("42", "", lonLatSquare(127.1, 37.1, 0.2)),
	}}

	res, err := d.DissolveCollection(col)
	require.NoError(t, err)

	b, ok := res.Boundary(region.GyeonggiGangwon)
	require.True(t, ok)
	assert.InDelta(t, 0.04+0.04-0.01, math.Abs(planar.Area(b.Geometry)), 1e-9)
}

func TestDissolve_SharedEdgeMergesIntoOnePart(t *testing.T) {
	d := NewDissolver(DefaultOptions(), zaptest.NewLogger(t))
	col := &Collection{Features: []Feature{
		feature("11", "", lonLatSquare(126.8, 37.4, 0.2)),
		feature("28", "", lonLatSquare(127.0, 37.4, 0.2)),
	}}

	res, err := d.DissolveCollection(col)
	require.NoError(t, err)

	b, ok := res.Boundary(region.SeoulIncheon)
	require.True(t, ok)
	require.Len(t, b.Geometry, 1)
	assert.Len(t, b.Geometry[0], 1, "shared edge leaves no hole")
	assert.InDelta(t, 0.08, math.Abs(planar.Area(b.Geometry)), 1e-9)
	assert.NoError(t, Validate(b.Geometry[0]))

	require.Len(t, res.Provinces, 2)
	assert.Equal(t, region.SeoulIncheon, res.Provinces[1].Region)
}

func TestDissolve_TJunctionMergesIntoOnePart(t *testing.T) {
	// the two eastern halves meet at (127.0, 37.5), halfway along the
	// western square's east edge
	d := NewDissolver(DefaultOptions(), zaptest.NewLogger(t))
	col := &Collection{Features: []Feature{
		feature("11", "", lonLatSquare(126.8, 37.4, 0.2)),
		feature("28", "a", lonLatRect(127.0, 37.4, 0.2, 0.1)),
		feature("28", "b", lonLatRect(127.0, 37.5, 0.2, 0.1)),
	}}

	res, err := d.DissolveCollection(col)
	require.NoError(t, err)

	b, ok := res.Boundary(region.SeoulIncheon)
	require.True(t, ok)
	assert.Equal(t, 3, b.Features)
	require.Len(t, b.Geometry, 1)
	assert.Len(t, b.Geometry[0], 1)
	assert.InDelta(t, 0.08, math.Abs(planar.Area(b.Geometry)), 1e-9)
	assert.NoError(t, Validate(b.Geometry[0]))
}

func TestDissolve_SelfCrossingRingRepaired(t *testing.T) {
	// the shell dips below its own south edge between 127.05 and 127.1,
	// closing a reversed loop there and a small lobe in the south-west corner
	loop := orb.Polygon{{
		{127, 37}, {127.3, 37}, {127.3, 37.3}, {127.1, 37.3},
		{127.1, 36.9}, {127.05, 36.9}, {127.05, 37.1}, {127, 37.1}, {127, 37},
	}}
	d := NewDissolver(DefaultOptions(), zaptest.NewLogger(t))
	col := &Collection{Features: []Feature{feature("41", "", loop)}}

	res, err := d.DissolveCollection(col)
	require.NoError(t, err)
	assert.Zero(t, res.Coverage.ExcludedParts)

	b, ok := res.Boundary(region.GyeonggiGangwon)
	require.True(t, ok)
	require.Len(t, b.Geometry, 2, "main body and the south-west lobe")
	assert.InDelta(t, 0.06+0.005, math.Abs(planar.Area(b.Geometry)), 1e-9)
	for _, p := range b.Geometry {
		assert.NoError(t, Validate(p))
	}
}

func TestRerepair_ReplacesTouchingParts(t *testing.T) {
	d := NewDissolver(DefaultOptions(), zaptest.NewLogger(t))
	touching := orb.MultiPolygon{lonLatSquare(127, 37, 0.1), lonLatSquare(127.1, 37, 0.1)}

	got := d.rerepair(region.Chungcheong, touching)
	require.Len(t, got, 1)
	assert.InDelta(t, 0.02, math.Abs(planar.Area(got)), 1e-9)
}

func TestRerepair_KeepsGeometryWhenAreaChanges(t *testing.T) {
	d := NewDissolver(DefaultOptions(), zaptest.NewLogger(t))
	bowTie := orb.MultiPolygon{{{{0, 0}, {4, 4}, {4, 0}, {0, 2}, {0, 0}}}}

	assert.Equal(t, bowTie, d.rerepair(region.Chungcheong, bowTie))
	assert.Empty(t, d.rerepair(region.Chungcheong, nil))
}

func TestDissolve_NameFillsMissingCode(t *testing.T) {
	d := NewDissolver(DefaultOptions(), zaptest.NewLogger(t))
	col := &Collection{Features: []Feature{
		feature("11", "서울특별시", lonLatSquare(126.8, 37.4, 0.2)),
		feature("", "강원특별자치도", lonLatSquare(128.0, 37.5, 0.5)),
		feature("", "Gangwon-do", lonLatSquare(129.0, 37.5, 0.2)),
		feature("99", "Atlantis", lonLatSquare(130.0, 37.5, 0.2)),
	}}

	res, err := d.DissolveCollection(col)
	require.NoError(t, err)

	cov := res.Coverage
	assert.Equal(t, 1, cov.TaggedByCode)
	assert.Equal(t, 2, cov.TaggedByName)
	assert.InDelta(t, 0.25, cov.ByCode, 1e-9)
	assert.InDelta(t, 0.5, cov.ByName, 1e-9)
	assert.InDelta(t, 0.75, cov.Overall, 1e-9)
	require.Len(t, cov.Untagged, 1)
	assert.Equal(t, "Atlantis", cov.Untagged[0].Name)

	b, ok := res.Boundary(region.GyeonggiGangwon)
	require.True(t, ok)
	assert.Equal(t, 2, b.Features)
	assert.Len(t, b.Geometry, 2)
}

func TestDissolve_MultiPolygonExploded(t *testing.T) {
	d := NewDissolver(DefaultOptions(), zaptest.NewLogger(t))
	jeju := orb.MultiPolygon{lonLatSquare(126.2, 33.2, 0.3), lonLatSquare(126.9, 33.9, 0.05)}
	col := &Collection{Features: []Feature{feature("50", "", jeju)}}

	res, err := d.DissolveCollection(col)
	require.NoError(t, err)

	b, ok := res.Boundary(region.GyeongsangJeju)
	require.True(t, ok)
	assert.Equal(t, 1, b.Features)
	assert.Len(t, b.Geometry, 2)

	lp := b.LabelPoint()
	assert.InDelta(t, 126.35, lp[0], 1e-9, "label sits in the larger island")
	assert.InDelta(t, 33.35, lp[1], 1e-9)
}

func TestDissolve_ZeroCoverage(t *testing.T) {
	d := NewDissolver(DefaultOptions(), zaptest.NewLogger(t))
	col := &Collection{Features: []Feature{
		feature("", "Narnia", lonLatSquare(127, 37, 0.1)),
		feature("", "Mordor", lonLatSquare(128, 37, 0.1)),
	}}

	res, err := d.DissolveCollection(col)
	require.NoError(t, err)
	assert.Empty(t, res.Boundaries)
	assert.Equal(t, 0.0, res.Coverage.Overall)
	assert.Len(t, res.Coverage.Untagged, 2)
	assert.Equal(t, region.SchemeNone, res.Coverage.Scheme.Scheme)
}

func TestDissolve_RepairFailureExcludesPart(t *testing.T) {
	d := NewDissolver(DefaultOptions(), zaptest.NewLogger(t))
	col := &Collection{Features: []Feature{
		feature("11", "", lonLatSquare(126.8, 37.4, 0.2)),
		feature("26", "", orb.Polygon{{{129, 35}, {129.1, 35.1}, {129.2, 35.2}, {129, 35}}}),
	}}

	res, err := d.DissolveCollection(col)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Coverage.ExcludedParts)
	require.Len(t, res.Coverage.RepairFailures, 1)
	assert.Len(t, res.Boundaries, 1)
}

func TestDissolve_UndeclaredProjectedAssumesCentralBelt(t *testing.T) {
	ring := project(t, EPSGCentralBelt, square(126.9, 37.4, 0.2))
	path := writeBoundaryFile(t, "", boundaryFeature("11", "서울특별시", orb.Polygon{ring}))

	res, err := NewDissolver(DefaultOptions(), zaptest.NewLogger(t)).Dissolve(path)
	require.NoError(t, err)

	assert.True(t, res.Coverage.AssumedCRS)
	assert.Equal(t, "EPSG:5186", res.Coverage.SourceCRS)
	assert.InDelta(t, 126.9, res.Bound.Min[0], 1e-6)
	assert.InDelta(t, 37.4, res.Bound.Min[1], 1e-6)
	assert.InDelta(t, 127.1, res.Bound.Max[0], 1e-6)
	assert.InDelta(t, 37.6, res.Bound.Max[1], 1e-6)
}

func TestDissolve_DeclaredCRS(t *testing.T) {
	ring := project(t, EPSGKoreaUnified, square(129.0, 35.1, 0.1))
	path := writeBoundaryFile(t, "urn:ogc:def:crs:EPSG::5179", boundaryFeature("26", "", orb.Polygon{ring}))

	res, err := NewDissolver(DefaultOptions(), zaptest.NewLogger(t)).Dissolve(path)
	require.NoError(t, err)

	assert.False(t, res.Coverage.AssumedCRS)
	assert.InDelta(t, 129.0, res.Bound.Min[0], 1e-4)
	_, ok := res.Boundary(region.GyeongsangJeju)
	assert.True(t, ok)
}

func TestDissolve_UnsupportedCRSFails(t *testing.T) {
	path := writeBoundaryFile(t, "EPSG:2097", boundaryFeature("11", "", lonLatSquare(126.8, 37.4, 0.2)))

	res, err := NewDissolver(DefaultOptions(), zaptest.NewLogger(t)).Dissolve(path)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, ErrUnsupportedCRS))
}

func TestDissolve_OutOfRangeAfterReprojectionFails(t *testing.T) {
	// metre-scale values declared as geographic
	col := &Collection{CRS: "EPSG:4326", Features: []Feature{
		feature("11", "", orb.Polygon{square(200000, 550000, 1000)}),
	}}

	_, err := NewDissolver(DefaultOptions(), zaptest.NewLogger(t)).DissolveCollection(col)
	assert.True(t, errors.Is(err, ErrUnsupportedCRS))
}

func TestDissolve_ReadErrors(t *testing.T) {
	d := NewDissolver(DefaultOptions(), zaptest.NewLogger(t))

	_, err := d.Dissolve(filepath.Join(t.TempDir(), "missing.geojson"))
	assert.Error(t, err)

	empty := writeBoundaryFile(t, "")
	_, err = d.Dissolve(empty)
	assert.True(t, errors.Is(err, ErrNoFeatures))

	_, err = d.DissolveCollection(&Collection{})
	assert.True(t, errors.Is(err, ErrNoFeatures))
}

func TestDecodeCollection_Properties(t *testing.T) {
	data := []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","id":"a","properties":{"CTPRVN_CD":11,"CTP_KOR_NM":" 서울특별시 "},
		 "geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}},
		{"type":"Feature","properties":{"SIDO_CD":"41","SIDO_NM":"경기도"},
		 "geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}
	],"crs":{"type":"name","properties":{"name":"EPSG:5186"}}}`)

	opts := DefaultOptions()
	col, err := DecodeCollection(data, opts.CodeProperties, opts.NameProperties)
	require.NoError(t, err)

	assert.Equal(t, "EPSG:5186", col.CRS)
	require.Len(t, col.Features, 2)
	assert.Equal(t, "a", col.Features[0].ID)
	assert.Equal(t, "11", col.Features[0].Code)
	assert.Equal(t, "서울특별시", col.Features[0].Name)
	assert.Equal(t, "1", col.Features[1].ID)
	assert.Equal(t, "41", col.Features[1].Code)
	assert.Equal(t, "경기도", col.Features[1].Name)
}

func TestFeatureCollection_JoinsExtraProperties(t *testing.T) {
	boundaries := []Boundary{{
		Region:   region.Jeolla,
		Geometry: orb.MultiPolygon{lonLatSquare(126.5, 35.0, 0.4)},
		Features: 3,
	}}
	extra := map[region.Region]map[string]interface{}{
		region.Jeolla: {"percent": 12.5},
	}

	fc := FeatureCollection(boundaries, extra)
	require.Len(t, fc.Features, 1)
	f := fc.Features[0]
	assert.Equal(t, "jeolla", f.ID)
	assert.Equal(t, "jeolla", f.Properties["region"])
	assert.Equal(t, region.Jeolla.Label(), f.Properties["label"])
	assert.Equal(t, 12.5, f.Properties["percent"])
	assert.Equal(t, 3, f.Properties["source_features"])

	path := filepath.Join(t.TempDir(), "regions.geojson")
	require.NoError(t, WriteFeatureCollection(path, fc))
	back, err := ReadCollection(path, []string{"region"}, []string{"label"})
	require.NoError(t, err)
	assert.Equal(t, "jeolla", back.Features[0].Code)
}
