package dataset

import (
	"github.com/forest-guardian/tidalflat-cli/internal/landsat"
	"github.com/forest-guardian/tidalflat-cli/internal/pixel"
)

// Covariates are the static layers sampled at one pixel.
type Covariates struct {
	Elevation       pixel.Value
	WaterOccurrence pixel.Value
	// LandSurface is only read when the land mask is enabled.
	LandSurface pixel.Value
}

// Compose reduces the clear observations of one pixel into its composite
// feature vector. No-data index values (zero denominators, missing bands)
// are left out of the series. A missing surface-water occurrence is filled
// with waterFill; a missing elevation stays no-data.
func Compose(schema *Schema, observations []landsat.Observation, cov Covariates, waterFill float64) FeatureVector {
	series := make(map[string][]float64, len(reducers))
	for _, obs := range observations {
		for _, idx := range landsat.Indices {
			if v, ok := idx.Func(obs.Bands).Get(); ok {
				series[idx.Name] = append(series[idx.Name], v)
			}
		}
		for _, band := range bandReduced {
			if v, ok := obs.Bands.Get(band).Get(); ok {
				series[band] = append(series[band], v)
			}
		}
	}

	fv := NewFeatureVector(schema)
	for name, r := range reducers {
		values := r.Reduce(series[name])
		for i, stat := range r.Names() {
			_ = fv.Set(name+"_"+stat, values[i])
		}
	}

	_ = fv.Set(ElevationFeature, cov.Elevation)
	water := cov.WaterOccurrence
	if water.IsNoData() {
		water = pixel.Of(waterFill)
	}
	_ = fv.Set(WaterOccurrenceFeature, water)
	return fv
}
