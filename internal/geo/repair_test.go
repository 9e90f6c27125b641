package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(x0, y0, size float64) orb.Ring {
	return orb.Ring{{x0, y0}, {x0 + size, y0}, {x0 + size, y0 + size}, {x0, y0 + size}, {x0, y0}}
}

func TestMakeValid_OrientsAndCloses(t *testing.T) {
	// clockwise, unclosed, with a repeated vertex
	p := orb.Polygon{{{0, 0}, {0, 1}, {0, 1}, {1, 1}, {1, 0}}}

	got, err := MakeValid(p)
	require.NoError(t, err)
	require.Len(t, got, 1)
	ring := got[0]
	assert.Equal(t, ring[0], ring[len(ring)-1])
	assert.Len(t, ring, 5)
	assert.Greater(t, signedArea(ring), 0.0)
}

func TestMakeValid_HolesClockwise(t *testing.T) {
	p := orb.Polygon{square(0, 0, 10), square(2, 2, 2)}

	got, err := MakeValid(p)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Greater(t, signedArea(got[0]), 0.0)
	assert.Less(t, signedArea(got[1]), 0.0)
	assert.InDelta(t, 96, math.Abs(planar.Area(got)), 1e-9)
}

func TestMakeValid_RemovesSpike(t *testing.T) {
	p := orb.Polygon{{{0, 0}, {2, 0}, {3, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}}

	got, err := MakeValid(p)
	require.NoError(t, err)
	assert.NotContains(t, got[0], orb.Point{3, 0})
}

func TestMakeValid_DegenerateShell(t *testing.T) {
	_, err := MakeValid(orb.Polygon{{{0, 0}, {1, 1}, {2, 2}, {0, 0}}})
	assert.True(t, errors.Is(err, ErrInvalidGeometry))

	_, err = MakeValid(orb.Polygon{{{0, 0}, {math.NaN(), 1}, {1, 0}}})
	assert.True(t, errors.Is(err, ErrInvalidGeometry))

	_, err = MakeValid(nil)
	assert.Error(t, err)
}

func TestMakeValid_DropsDegenerateHole(t *testing.T) {
	p := orb.Polygon{square(0, 0, 4), {{1, 1}, {2, 2}, {1, 1}}}

	got, err := MakeValid(p)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMakeValid_BowTieReturnsCleanedGeometry(t *testing.T) {
	bowTie := orb.Polygon{{{0, 0}, {4, 4}, {4, 0}, {0, 2}, {0, 0}}}

	got, err := MakeValid(bowTie)
	assert.True(t, errors.Is(err, ErrInvalidGeometry))
	assert.NotNil(t, got)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(orb.Polygon{square(0, 0, 1)}))
	assert.NoError(t, Validate(orb.Polygon{square(0, 0, 10), square(2, 2, 2)}))

	assert.Error(t, Validate(orb.Polygon{{{0, 0}, {4, 4}, {4, 0}, {0, 2}, {0, 0}}}), "bow tie")
	assert.Error(t, Validate(orb.Polygon{{{0, 0}, {1, 0}, {1, 1}}}), "too short")
	assert.Error(t, Validate(orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}}}), "not closed")
	assert.Error(t, Validate(orb.Polygon{square(0, 0, 4), square(3, 3, 2)}), "hole crosses shell")
	assert.Error(t, Validate(nil))
}

func TestValidate_NonFinite(t *testing.T) {
	err := Validate(orb.Polygon{{{0, 0}, {1, 0}, {math.Inf(1), 1}, {0, 1}, {0, 0}}})
	assert.True(t, errors.Is(err, ErrInvalidGeometry))
}

func TestBufferZero_SimpleSquare(t *testing.T) {
	mp, err := BufferZero(orb.Polygon{square(0, 0, 2)})
	require.NoError(t, err)
	require.Len(t, mp, 1)
	assert.InDelta(t, 4, math.Abs(planar.Area(mp)), 1e-9)
	assert.Greater(t, signedArea(mp[0][0]), 0.0, "shell comes back counter-clockwise")
}

func TestBufferZero_KeepsHole(t *testing.T) {
	mp, err := BufferZero(orb.Polygon{square(0, 0, 10), square(2, 2, 2)})
	require.NoError(t, err)
	require.Len(t, mp, 1)
	require.Len(t, mp[0], 2)
	assert.Less(t, signedArea(mp[0][1]), 0.0)
	assert.InDelta(t, 96, math.Abs(planar.Area(mp)), 1e-9)
}

func TestBufferZero_BowTieKeepsLargerLobe(t *testing.T) {
	// the edges cross at (4/3, 4/3); the right lobe has area 16/3
	bowTie := orb.Polygon{{{0, 0}, {4, 4}, {4, 0}, {0, 2}, {0, 0}}}

	mp, err := BufferZero(bowTie)
	require.NoError(t, err)
	require.Len(t, mp, 1)
	assert.InDelta(t, 16.0/3, math.Abs(planar.Area(mp)), 1e-9)
	assert.NoError(t, Validate(mp[0]))
}

func TestBufferZero_NothingToRebuild(t *testing.T) {
	_, err := BufferZero(orb.Polygon{{{0, 0}, {1, 1}}})
	assert.True(t, errors.Is(err, ErrInvalidGeometry))

	_, err = BufferZero(orb.Polygon{{{0, 0}, {1, 1}, {2, 2}, {0, 0}}})
	assert.True(t, errors.Is(err, ErrInvalidGeometry), "flat ring has no area")
}

func TestRepairPart_ValidPolygonUntouched(t *testing.T) {
	got, err := repairPart(orb.Polygon{square(0, 0, 2)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, orb.Polygon{square(0, 0, 2)}, got[0])
}

func TestRepairPart_FallsBackToBuffer(t *testing.T) {
	bowTie := orb.Polygon{{{0, 0}, {4, 4}, {4, 0}, {0, 2}, {0, 0}}}

	got, err := repairPart(bowTie)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 16.0/3, math.Abs(planar.Area(got[0])), 1e-9)
}

func TestRepairPart_BuffersRawInputWhenCleaningFails(t *testing.T) {
	// equal lobes: the net area is zero, so the cleaner rejects the shell
	bowTie := orb.Polygon{{{0, 0}, {2, 2}, {2, 0}, {0, 2}, {0, 0}}}
	_, err := MakeValid(bowTie)
	require.True(t, errors.Is(err, ErrInvalidGeometry))

	got, err := repairPart(bowTie)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 1, math.Abs(planar.Area(got[0])), 1e-9)
	assert.NoError(t, Validate(got[0]))
}

func TestRepairPart_Unrepairable(t *testing.T) {
	_, err := repairPart(orb.Polygon{{{0, 0}, {1, 1}, {2, 2}, {0, 0}}})
	assert.True(t, errors.Is(err, ErrInvalidGeometry))
}

func TestUnionAll(t *testing.T) {
	mp, err := unionAll([]orb.Polygon{
		{square(0, 0, 2)},
		{square(1, 1, 2)},
		{square(10, 10, 1)},
	})
	require.NoError(t, err)
	assert.Len(t, mp, 2)
	assert.InDelta(t, 8, math.Abs(planar.Area(mp)), 1e-9)

	empty, err := unionAll(nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestUnionAll_SharedEdge(t *testing.T) {
	mp, err := unionAll([]orb.Polygon{{square(0, 0, 1)}, {square(1, 0, 1)}})
	require.NoError(t, err)
	require.Len(t, mp, 1)
	require.Len(t, mp[0], 1, "no sliver hole along the shared edge")
	assert.InDelta(t, 2, math.Abs(planar.Area(mp)), 1e-12)
}
