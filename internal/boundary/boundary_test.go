package boundary

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoFeatures = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{},"geometry":{"type":"LineString","coordinates":[[0,0],[10,0]]}},
 {"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}
]}`

func TestRead(t *testing.T) {
	g, err := Read(strings.NewReader(twoFeatures))
	require.NoError(t, err)
	c, ok := g.(orb.Collection)
	require.True(t, ok)
	assert.Len(t, c, 2)

	single := `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[1,2]}}]}`
	g, err = Read(strings.NewReader(single))
	require.NoError(t, err)
	assert.Equal(t, orb.Point{1, 2}, g)

	_, err = Read(strings.NewReader(`{"type":"FeatureCollection","features":[]}`))
	assert.Error(t, err)
	_, err = Read(strings.NewReader(`not json`))
	assert.Error(t, err)
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	coast := filepath.Join(dir, "coast.geojson")
	require.NoError(t, os.WriteFile(coast, []byte(twoFeatures), 0o644))

	set, err := FileStore{CoastlinePath: coast}.Boundaries(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, set.Coastline)
	assert.Nil(t, set.Terrestrial)

	_, err = FileStore{TerrestrialPath: filepath.Join(dir, "missing.geojson")}.Boundaries(context.Background())
	assert.Error(t, err)
}
