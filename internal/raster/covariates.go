package raster

import (
	"context"
	"fmt"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/tidalflat-cli/internal/dataset"
	"github.com/forest-guardian/tidalflat-cli/internal/pixel"
)

// CovariateRasters reads the static layers from single-band GeoTIFFs on the
// output grid. LandSurfacePath is optional.
type CovariateRasters struct {
	ElevationPath       string
	WaterOccurrencePath string
	LandSurfacePath     string
}

func (c CovariateRasters) Source() string {
	return fmt.Sprintf("covariates:%s:%s:%s", c.ElevationPath, c.WaterOccurrencePath, c.LandSurfacePath)
}

// Covariates returns the layers over the tile, row-major.
func (c CovariateRasters) Covariates(ctx context.Context, t pixel.Tile) ([]dataset.Covariates, error) {
	elevation, err := readLayer(c.ElevationPath, t)
	if err != nil {
		return nil, fmt.Errorf("failed to read elevation: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	water, err := readLayer(c.WaterOccurrencePath, t)
	if err != nil {
		return nil, fmt.Errorf("failed to read surface water occurrence: %w", err)
	}
	var land []pixel.Value
	if c.LandSurfacePath != "" {
		if land, err = readLayer(c.LandSurfacePath, t); err != nil {
			return nil, fmt.Errorf("failed to read land surface: %w", err)
		}
	}

	out := make([]dataset.Covariates, t.W*t.H)
	for i := range out {
		out[i].Elevation = elevation[i]
		out[i].WaterOccurrence = water[i]
		if land != nil {
			out[i].LandSurface = land[i]
		}
	}
	return out, nil
}

func readLayer(path string, t pixel.Tile) ([]pixel.Value, error) {
	ds, err := godal.Open(path)
	if err != nil {
		return nil, err
	}
	defer ds.Close()
	if err := checkSize(ds, path, t); err != nil {
		return nil, err
	}
	bands := ds.Bands()
	if len(bands) == 0 {
		return nil, fmt.Errorf("%s has no bands", path)
	}
	return readWindow(bands[0], t)
}
