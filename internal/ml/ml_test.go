package ml

import (
	"bytes"
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/forest-guardian/tidalflat-cli/internal/dataset"
	"github.com/forest-guardian/tidalflat-cli/internal/pixel"
	"github.com/forest-guardian/tidalflat-cli/internal/properties"
	"github.com/forest-guardian/tidalflat-cli/internal/training"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{NTrees: 10, BagFraction: 0.5, MinLeafPopulation: 1, Seed: 7, Workers: 4}
}

// separable returns samples whose class is 0 below x=5 and 2 above, plus a
// noise feature.
func separable() ([][]float64, []int) {
	rnd := rand.New(rand.NewSource(1))
	var x [][]float64
	var y []int
	for i := 0; i < 100; i++ {
		v := float64(i) / 10
		x = append(x, []float64{v, rnd.Float64()})
		if v < 5 {
			y = append(y, 0)
		} else {
			y = append(y, 2)
		}
	}
	return x, y
}

func TestFitSeparable(t *testing.T) {
	x, y := separable()
	forest, err := Fit(context.Background(), x, y, testConfig())
	require.NoError(t, err)

	assert.Equal(t, []int{0, 2}, forest.Classes)
	assert.Len(t, forest.Trees, 10)
	assert.Equal(t, 0, forest.Predict([]float64{1, 0.5}))
	assert.Equal(t, 2, forest.Predict([]float64{9, 0.5}))
}

func TestFitIsDeterministic(t *testing.T) {
	x, y := separable()
	cfg := testConfig()

	a, err := Fit(context.Background(), x, y, cfg)
	require.NoError(t, err)
	cfg.Workers = 1
	b, err := Fit(context.Background(), x, y, cfg)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	cfg.Seed = 8
	c, err := Fit(context.Background(), x, y, cfg)
	require.NoError(t, err)
	assert.NotEqual(t, a.Trees, c.Trees)
}

func TestFitAdjacentFloatValues(t *testing.T) {
	lo := math.Nextafter(1, 2)
	hi := math.Nextafter(lo, 2)
	x := [][]float64{{lo}, {hi}}
	y := []int{0, 1}
	cfg := Config{NTrees: 1, BagFraction: 1, MinLeafPopulation: 1, Seed: 1, Workers: 1}

	forest, err := Fit(context.Background(), x, y, cfg)
	require.NoError(t, err)
	require.Len(t, forest.Trees, 1)
	assert.Equal(t, 0, forest.Predict([]float64{lo}))
	assert.Equal(t, 1, forest.Predict([]float64{hi}))
	assert.Equal(t, lo, forest.Trees[0].Nodes[0].Threshold)
}

func TestFitConfigErrors(t *testing.T) {
	x, y := separable()
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no trees", func(c *Config) { c.NTrees = 0 }},
		{"bag fraction zero", func(c *Config) { c.BagFraction = 0 }},
		{"bag fraction above one", func(c *Config) { c.BagFraction = 1.5 }},
		{"min leaf zero", func(c *Config) { c.MinLeafPopulation = 0 }},
		{"too many variables", func(c *Config) { c.VariablesPerSplit = 3 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			_, err := Fit(context.Background(), x, y, cfg)
			assert.True(t, errors.Is(err, properties.ErrConfig), "got %v", err)
		})
	}

	_, err := Fit(context.Background(), nil, nil, testConfig())
	assert.Error(t, err)
}

func TestFitCancelled(t *testing.T) {
	x, y := separable()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Fit(ctx, x, y, testConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVoteTieGoesToSmallestClass(t *testing.T) {
	// leaves hold class indexes: 0 is class 1, 1 is class 2
	leaf := func(index int) Tree { return Tree{Nodes: []Node{{Feature: -1, Class: index}}} }
	forest := &Forest{
		Classes:  []int{1, 2, 5},
		Features: 1,
		Trees:    []Tree{leaf(1), leaf(0), leaf(1), leaf(0)},
	}
	assert.Equal(t, 1, forest.Predict([]float64{0}))

	forest.Trees = append(forest.Trees, leaf(1))
	assert.Equal(t, 2, forest.Predict([]float64{0}))
}

func TestMinLeafPopulation(t *testing.T) {
	x := [][]float64{{0}, {1}, {2}, {3}}
	y := []int{0, 1, 1, 1}
	cfg := Config{NTrees: 1, BagFraction: 1, MinLeafPopulation: 2, Seed: 1}
	forest, err := Fit(context.Background(), x, y, cfg)
	require.NoError(t, err)

	for _, n := range forest.Trees[0].Nodes {
		if n.Feature >= 0 {
			assert.Equal(t, 1.5, n.Threshold)
		}
	}
}

func schemaAndPoints(t *testing.T) (*dataset.Schema, []training.Point) {
	t.Helper()
	schema, err := dataset.NewSchema([]string{"ndwi_median", "etopo"})
	require.NoError(t, err)
	x, y := separable()
	points := make([]training.Point, len(x))
	for i := range x {
		fv := dataset.NewFeatureVector(schema)
		require.NoError(t, fv.Set("ndwi_median", pixel.Of(x[i][0])))
		require.NoError(t, fv.Set("etopo", pixel.Of(x[i][1])))
		points[i] = training.Point{Class: y[i], Features: fv}
	}
	return schema, points
}

func TestModelPredict(t *testing.T) {
	schema, points := schemaAndPoints(t)
	model, err := Train(context.Background(), schema, points, testConfig())
	require.NoError(t, err)

	full := dataset.CompositeSchema()
	fv := dataset.NewFeatureVector(full)
	require.NoError(t, fv.Set("ndwi_median", pixel.Of(8)))
	assert.True(t, model.Predict(fv).IsNoData(), "etopo missing")

	require.NoError(t, fv.Set("etopo", pixel.Of(0.3)))
	assert.True(t, model.Predict(fv).Is(2))

	assert.True(t, model.PredictDense([]float64{0.5, 0.3}).Is(0))
	assert.True(t, model.PredictDense([]float64{0.5}).IsNoData())
}

func TestModelSaveLoad(t *testing.T) {
	schema, points := schemaAndPoints(t)
	model, err := Train(context.Background(), schema, points, testConfig())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, model.Save(&buf))
	loaded, err := Load(&buf)
	require.NoError(t, err)

	assert.True(t, loaded.Schema().Equal(schema))
	assert.Equal(t, model.Classes(), loaded.Classes())
	for _, p := range points {
		assert.Equal(t, model.Predict(p.Features), loaded.Predict(p.Features))
	}

	_, err = Load(bytes.NewReader([]byte("not a model")))
	assert.Error(t, err)
}
