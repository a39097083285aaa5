package pixel

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueOf(t *testing.T) {
	tests := []struct {
		name  string
		in    float64
		valid bool
	}{
		{"number", 0.25, true},
		{"zero", 0, true},
		{"nan", math.NaN(), false},
		{"positive inf", math.Inf(1), false},
		{"negative inf", math.Inf(-1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Of(tt.in).Get()
			assert.Equal(t, tt.valid, ok)
		})
	}
	assert.True(t, Value{}.IsNoData())
}

func TestValueJSON(t *testing.T) {
	data, err := json.Marshal([]Value{Of(1.5), NoData})
	require.NoError(t, err)
	assert.Equal(t, "[1.5,null]", string(data))

	var back []Value
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back, 2)
	v, ok := back[0].Get()
	assert.True(t, ok)
	assert.Equal(t, 1.5, v)
	assert.True(t, back[1].IsNoData())
}

func TestMaskAnd(t *testing.T) {
	tests := []struct {
		a, b, want Mask
	}{
		{MaskTrue, MaskTrue, MaskTrue},
		{MaskTrue, MaskFalse, MaskFalse},
		{MaskFalse, MaskTrue, MaskFalse},
		{MaskTrue, MaskNoData, MaskNoData},
		{MaskFalse, MaskNoData, MaskNoData},
		{MaskNoData, MaskTrue, MaskNoData},
	}
	for _, tt := range tests {
		t.Run(tt.a.String()+"&"+tt.b.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.And(tt.b))
		})
	}
	assert.False(t, Mask(0).Keep())
}

func TestGridTiles(t *testing.T) {
	g := Grid{Width: 5, Height: 3}
	tiles := g.Tiles(2)
	require.Len(t, tiles, 6)
	assert.Equal(t, Tile{ID: 2, X0: 4, Y0: 0, W: 1, H: 2}, tiles[2])
	assert.Equal(t, Tile{ID: 5, X0: 4, Y0: 2, W: 1, H: 1}, tiles[5])

	covered := 0
	for _, tile := range tiles {
		covered += tile.W * tile.H
	}
	assert.Equal(t, 15, covered)
}

func TestGridCenter(t *testing.T) {
	g := Grid{Width: 10, Height: 10, GeoTransform: [6]float64{1000, 30, 0, 5000, 0, -30}}
	p := g.Center(0, 0)
	assert.Equal(t, 1015.0, p.X())
	assert.Equal(t, 4985.0, p.Y())
}

func TestLabelRasterWindow(t *testing.T) {
	r := NewLabelRaster(3, 2)
	r.Set(1, 1, LabelOf(2))
	r.Set(2, 1, LabelOf(1))
	w := r.Window(Tile{X0: 1, Y0: 1, W: 2, H: 1})
	require.Len(t, w, 2)
	assert.True(t, w[0].Is(2))
	assert.True(t, w[1].Is(1))
	assert.Equal(t, 2, r.Count())
}
