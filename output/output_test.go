package output

import (
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/forest-guardian/tidalflat-cli/internal/pipeline"
	"github.com/forest-guardian/tidalflat-cli/internal/pixel"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var grid = pixel.Grid{Width: 4, Height: 2, GeoTransform: [6]float64{100, 30, 0, 200, 0, -30}}

func writeAll(t *testing.T, s pipeline.Sink) {
	t.Helper()
	require.NoError(t, s.Open(grid))
	for _, tile := range grid.Tiles(2) {
		labels := make([]pixel.Label, tile.W*tile.H)
		if tile.ID == 1 {
			labels[0] = pixel.LabelOf(2) // (2,0)
			labels[3] = pixel.LabelOf(7) // (3,1)
		}
		require.NoError(t, s.WriteTile(tile, labels))
	}
	require.NoError(t, s.Close())
}

func TestQuicklookSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "quicklook.png")
	writeAll(t, &QuicklookSink{Path: path})

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	img, err := png.Decode(file)
	require.NoError(t, err)

	assert.Equal(t, 4, img.Bounds().Dx())
	r, g, b, _ := img.At(2, 0).RGBA()
	want := ColorMap[2]
	assert.Equal(t, [3]uint32{uint32(want.R), uint32(want.G), uint32(want.B)}, [3]uint32{r >> 8, g >> 8, b >> 8})
	r, _, _, _ = img.At(3, 1).RGBA()
	assert.Equal(t, uint32(Other.R), r>>8)
	r, _, _, _ = img.At(0, 0).RGBA()
	assert.Equal(t, uint32(Background.R), r>>8)
}

func TestGeoJSONSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.geojson")
	writeAll(t, &GeoJSONSink{Path: path})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)

	assert.Equal(t, orb.Point{175, 185}, fc.Features[0].Geometry)
	assert.Equal(t, 2.0, fc.Features[0].Properties["class"])
	assert.Equal(t, 7.0, fc.Features[1].Properties["class"])
}

type failingSink struct {
	openErr error
	closed  bool
}

func (f *failingSink) Open(pixel.Grid) error                     { return f.openErr }
func (f *failingSink) WriteTile(pixel.Tile, []pixel.Label) error { return nil }
func (f *failingSink) Close() error                              { f.closed = true; return errors.New("close failed") }

func TestMultiSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.geojson")
	gj := &GeoJSONSink{Path: path}
	bad := &failingSink{}
	m := MultiSink{gj, bad}

	require.NoError(t, m.Open(grid))
	require.NoError(t, m.WriteTile(grid.Tiles(0)[0], make([]pixel.Label, 8)))
	err := m.Close()
	assert.ErrorContains(t, err, "close failed")
	assert.True(t, bad.closed)
	assert.FileExists(t, path)

	first := &failingSink{}
	m = MultiSink{first, &failingSink{openErr: errors.New("no disk")}}
	assert.Error(t, m.Open(grid))
	assert.True(t, first.closed)
}
