package geo

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wroge/wgs84"
)

// project converts a lon/lat ring into the reference system code.
func project(t *testing.T, code int, r orb.Ring) orb.Ring {
	t.Helper()
	crs := epsg.Code(code)
	require.NotNil(t, crs, "EPSG:%d", code)
	fn := wgs84.Transform(wgs84.LonLat(), crs)
	out := make(orb.Ring, len(r))
	for i, p := range r {
		x, y, _ := fn(p[0], p[1], 0)
		out[i] = orb.Point{x, y}
	}
	return out
}

func TestKoreaBelts_FalseOrigin(t *testing.T) {
	got := project(t, EPSGKoreaUnified, orb.Ring{{127.5, 38}})
	assert.InDelta(t, 1000000, got[0][0], 1e-3)
	assert.InDelta(t, 2000000, got[0][1], 1e-3)

	got = project(t, EPSGCentralBelt, orb.Ring{{127, 38}})
	assert.InDelta(t, 200000, got[0][0], 1e-3)
	assert.InDelta(t, 600000, got[0][1], 1e-3)
}

func TestKoreaBelts_RoundTrip(t *testing.T) {
	points := orb.Ring{
		{126.9780, 37.5665}, // Seoul
		{129.0756, 35.1796}, // Busan
		{126.5312, 33.4996}, // Jeju
		{128.8761, 37.7519}, // Gangneung
	}
	for _, code := range []int{5179, 5186} {
		fn, err := toGeographic(code)
		require.NoError(t, err)
		for i, p := range project(t, code, points) {
			back := fn(p)
			// the inverse series is good to a few metres
			assert.InDelta(t, points[i][0], back[0], 1e-4, "EPSG:%d lon", code)
			assert.InDelta(t, points[i][1], back[1], 1e-4, "EPSG:%d lat", code)
		}
	}
}

func TestKoreaBelts_EastingGrowsEastward(t *testing.T) {
	got := project(t, EPSGCentralBelt, orb.Ring{{126.5, 37}, {127.5, 37}})
	assert.Less(t, got[0][0], 200000.0)
	assert.Greater(t, got[1][0], 200000.0)
}

func TestParseEPSG(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"EPSG:5179", 5179},
		{"epsg:5186", 5186},
		{"urn:ogc:def:crs:EPSG::5179", 5179},
		{"urn:ogc:def:crs:OGC:1.3:CRS84", 4326},
		{"4326", 4326},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEPSG(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "EPSG:abc", "Korea 2000"} {
		_, err := ParseEPSG(bad)
		assert.True(t, errors.Is(err, ErrUnsupportedCRS), bad)
	}
}

func TestToGeographic(t *testing.T) {
	fn, err := toGeographic(4326)
	require.NoError(t, err)
	assert.Equal(t, orb.Point{127, 37}, fn(orb.Point{127, 37}))

	fn, err = toGeographic(EPSGWebMercator)
	require.NoError(t, err)
	p := fn(orb.Point{0, 0})
	assert.InDelta(t, 0, p[0], 1e-12)
	assert.InDelta(t, 0, p[1], 1e-12)

	fn, err = toGeographic(32652)
	require.NoError(t, err, "UTM zones come from the wgs84 repository")
	p = fn(orb.Point{500000, 4000000})
	assert.InDelta(t, 129, p[0], 1e-6)

	_, err = toGeographic(2097)
	assert.True(t, errors.Is(err, ErrUnsupportedCRS))
}

func TestLooksProjected(t *testing.T) {
	geo := orb.Bound{Min: orb.Point{124, 33}, Max: orb.Point{132, 39}}
	assert.False(t, looksProjected(geo, ProjectedThreshold))

	tm := orb.Bound{Min: orb.Point{150000, 450000}, Max: orb.Point{250000, 650000}}
	assert.True(t, looksProjected(tm, ProjectedThreshold))
}
