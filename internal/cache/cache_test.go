package cache

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyIsOrderIndependent(t *testing.T) {
	a := url.Values{}
	a.Add("start_date", "2023-01-01")
	a.Add("animal_type", "tiger")

	b, err := url.ParseQuery("animal_type=tiger&start_date=2023-01-01")
	require.NoError(t, err)

	assert.Equal(t, Key("camtrap", 3, "/api/map-data", a), Key("camtrap", 3, "/api/map-data", b))
	assert.Equal(t, "camtrap:v3:/api/map-data?animal_type=tiger&start_date=2023-01-01", Key("camtrap", 3, "/api/map-data", a))
}

func TestKeyChangesWithGeneration(t *testing.T) {
	assert.NotEqual(t, Key("camtrap", 1, "/api/animal-list", nil), Key("camtrap", 2, "/api/animal-list", nil))
	assert.Equal(t, "camtrap:v0:/api/animal-list", Key("camtrap", 0, "/api/animal-list", nil))
}

func TestNopNeverHits(t *testing.T) {
	ctx := context.Background()
	var c Cache = Nop{}

	key, err := c.Key(ctx, "/api/animal-list", nil)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, key, []byte(`[]`)))

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Invalidate(ctx))
}
