package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLongitude(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"E124.71", 124.71},
		{"W120.5", -120.5},
		{"w1.25", -1.25},
		{" 133.25 ", 133.25},
		{"-33.5", -33.5},
		{"E 10", 10},
	}
	for _, tt := range tests {
		got, err := ParseLongitude(tt.in)
		require.NoError(t, err, tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, tt.in)
	}
}

func TestParseLatitude(t *testing.T) {
	got, err := ParseLatitude("N52.33")
	require.NoError(t, err)
	assert.InDelta(t, 52.33, got, 1e-9)

	got, err = ParseLatitude("S33.86")
	require.NoError(t, err)
	assert.InDelta(t, -33.86, got, 1e-9)
}

func TestParseRejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "  ", "E", "abc", "N12x"} {
		_, err := ParseLatitude(in)
		assert.Error(t, err, in)
	}

	_, err := ParseLongitude("E181")
	assert.Error(t, err)
	_, err = ParseLatitude("88.5")
	assert.NoError(t, err)
	_, err = ParseLatitude("S91")
	assert.Error(t, err)

	// a latitude prefix is not valid on a longitude
	_, err = ParseLongitude("N10")
	assert.Error(t, err)
}

func TestParseCoord(t *testing.T) {
	c, err := ParseCoord("E124.71", "N52.33")
	require.NoError(t, err)
	assert.Equal(t, []float64{124.71, 52.33}, c.Slice())
	assert.Equal(t, "(124.7100, 52.3300)", c.String())

	_, err = ParseCoord("E124.71", "")
	assert.ErrorIs(t, err, ErrEmptyCoordinate)
}

func TestNear(t *testing.T) {
	a := Coord{Lng: 124.71, Lat: 52.33}
	assert.True(t, a.Near(Coord{Lng: 124.715, Lat: 52.335}, 0.01))
	assert.False(t, a.Near(Coord{Lng: 124.72, Lat: 52.33}, 0.01))
	assert.False(t, a.Near(Coord{Lng: -124.71, Lat: 52.33}, 0.01))
}
