package dataset

import (
	"testing"
	"time"

	"github.com/forest-guardian/tidalflat-cli/internal/landsat"
	"github.com/forest-guardian/tidalflat-cli/internal/pixel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obs(green, swir1, swir2, nir, red float64) landsat.Observation {
	return landsat.Observation{
		Date: time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
		Bands: landsat.Bands{
			Green: pixel.Of(green), SWIR1: pixel.Of(swir1), SWIR2: pixel.Of(swir2), NIR: pixel.Of(nir), Red: pixel.Of(red),
		},
	}
}

func TestCompositeSchema(t *testing.T) {
	s := CompositeSchema()
	assert.Equal(t, 3*17+3+2, s.Len())

	names := s.Names()
	assert.Equal(t, "awei_min", names[0])
	assert.Equal(t, "ndwi_min", names[17])
	assert.Equal(t, "mndwi_intMn2575", names[50])
	assert.Equal(t, []string{"ndvi_intMn1090", "nir_intMn1090", "swir1_intMn1090", "etopo", "surfaceWater"}, names[51:])
}

func TestComposeFillsEveryFeature(t *testing.T) {
	s := CompositeSchema()
	observations := []landsat.Observation{
		obs(0.3, 0.1, 0.05, 0.2, 0.1),
		obs(0.25, 0.12, 0.06, 0.22, 0.12),
		obs(0.2, 0.15, 0.08, 0.3, 0.1),
	}
	fv := Compose(s, observations, Covariates{Elevation: pixel.Of(-3), WaterOccurrence: pixel.Of(40)}, 0)

	assert.Empty(t, fv.Missing(s))
	dense, ok := fv.Dense(s)
	require.True(t, ok)
	assert.Len(t, dense, s.Len())

	v, _ := fv.Get("ndwi_max").Get()
	assert.InDelta(t, (0.3-0.2)/(0.3+0.2), v, 1e-12)
	v, _ = fv.Get("nir_intMn1090").Get()
	// p10..p90 of {0.2, 0.22, 0.3} is [0.204, 0.284] which holds only 0.22
	assert.InDelta(t, 0.22, v, 1e-12)
	v, _ = fv.Get(ElevationFeature).Get()
	assert.Equal(t, -3.0, v)
}

func TestComposeWithoutObservations(t *testing.T) {
	s := CompositeSchema()
	fv := Compose(s, nil, Covariates{Elevation: pixel.Of(1)}, 0)

	missing := fv.Missing(s)
	// every spectral feature is no-data, covariates are present
	assert.Len(t, missing, s.Len()-2)
	_, ok := fv.Dense(s)
	assert.False(t, ok)

	water, ok := fv.Get(WaterOccurrenceFeature).Get()
	assert.True(t, ok)
	assert.Equal(t, 0.0, water)
}

func TestComposeSkipsDegenerateIndexValues(t *testing.T) {
	s := CompositeSchema()
	// green + nir == 0 in the first observation
	fv := Compose(s, []landsat.Observation{obs(0, 0.1, 0.1, 0, 0.1), obs(0.3, 0.1, 0.1, 0.1, 0.1)}, Covariates{}, 12)

	v, ok := fv.Get("ndwi_min").Get()
	require.True(t, ok)
	assert.InDelta(t, 0.5, v, 1e-12)
	assert.True(t, fv.Get(ElevationFeature).IsNoData())
	water, _ := fv.Get(WaterOccurrenceFeature).Get()
	assert.Equal(t, 12.0, water)
}

func TestSchemaSubsetAndEqual(t *testing.T) {
	s := CompositeSchema()
	sub, err := s.Subset([]string{"etopo", "ndwi_stdDev"})
	require.NoError(t, err)
	assert.Equal(t, 2, sub.Len())

	_, err = s.Subset([]string{"bogus"})
	assert.Error(t, err)

	reordered, err := NewSchema([]string{"ndwi_stdDev", "etopo"})
	require.NoError(t, err)
	assert.True(t, sub.Equal(reordered))
	assert.False(t, sub.Equal(s))

	_, err = NewSchema([]string{"a", "a"})
	assert.Error(t, err)
}

func TestFeatureVectorJSON(t *testing.T) {
	s, err := NewSchema([]string{"a", "b"})
	require.NoError(t, err)
	fv := NewFeatureVector(s)
	require.NoError(t, fv.Set("a", pixel.Of(2)))
	assert.Error(t, fv.Set("c", pixel.Of(1)))

	data, err := fv.MarshalJSON()
	require.NoError(t, err)
	back, err := Decode(s, data)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, back.Missing(s))
	v, _ := back.Get("a").Get()
	assert.Equal(t, 2.0, v)
}
