package pipeline

import (
	"context"
	"fmt"

	"github.com/forest-guardian/tidalflat-cli/internal/dataset"
	"github.com/forest-guardian/tidalflat-cli/internal/landsat"
	"github.com/forest-guardian/tidalflat-cli/internal/pixel"
)

// tileComposite is the cached form of a tile's feature vectors and
// covariates, row-major over the tile.
type tileComposite struct {
	Features    []string        `json:"features"`
	Pixels      [][]pixel.Value `json:"pixels"`
	Elevation   []pixel.Value   `json:"elevation"`
	LandSurface []pixel.Value   `json:"landSurface"`
}

type composed struct {
	vectors []dataset.FeatureVector
	cov     []dataset.Covariates
}

func (p *Pipeline) compositeKey(grid pixel.Grid, t pixel.Tile) string {
	return p.cache.GenerateKey("composite",
		grid.Width, grid.Height, grid.GeoTransform,
		t.X0, t.Y0, t.W, t.H,
		p.opts.StartDate.Format("2006-01-02"), p.opts.EndDate.Format("2006-01-02"),
		p.opts.BandSelect, p.opts.Sensors, p.opts.WaterOccurrenceFill, p.schema.Names(),
		p.archive.(Source).Source(), p.covariates.(Source).Source())
}

// compose builds the feature vector of every pixel in the tile, reading it
// from the cache when possible.
func (p *Pipeline) compose(ctx context.Context, grid pixel.Grid, t pixel.Tile) (composed, error) {
	var key string
	if p.cache != nil {
		key = p.compositeKey(grid, t)
		if cached, ok := p.cache.Get(key); ok {
			if c, err := p.fromCache(t, cached); err == nil {
				return c, nil
			}
		}
	}

	cov, err := p.covariates.Covariates(ctx, t)
	if err != nil {
		return composed{}, fmt.Errorf("failed to read covariates: %w", err)
	}
	if len(cov) != t.W*t.H {
		return composed{}, fmt.Errorf("covariates hold %d pixels, want %d", len(cov), t.W*t.H)
	}

	series := make([][]landsat.Observation, t.W*t.H)
	for _, sensor := range p.sensors {
		seq := p.archive.Observations(ctx, sensor, p.opts.StartDate, p.opts.EndDate, t)
		for obs, err := range p.harmonizer.Filter(seq) {
			if err != nil {
				return composed{}, fmt.Errorf("failed to read %s observations: %w", sensor, err)
			}
			if !t.Contains(obs.X, obs.Y) {
				continue
			}
			i := (obs.Y-t.Y0)*t.W + (obs.X - t.X0)
			series[i] = append(series[i], obs)
		}
	}

	c := composed{vectors: make([]dataset.FeatureVector, len(series)), cov: cov}
	for i := range series {
		c.vectors[i] = dataset.Compose(p.schema, series[i], cov[i], p.opts.WaterOccurrenceFill)
	}

	if p.cache != nil {
		if err := p.cache.Set(key, p.toCache(c)); err != nil {
			return composed{}, fmt.Errorf("failed to cache composite: %w", err)
		}
	}
	return c, nil
}

func (p *Pipeline) toCache(c composed) tileComposite {
	tc := tileComposite{
		Features:    p.schema.Names(),
		Pixels:      make([][]pixel.Value, len(c.vectors)),
		Elevation:   make([]pixel.Value, len(c.cov)),
		LandSurface: make([]pixel.Value, len(c.cov)),
	}
	for i, fv := range c.vectors {
		row := make([]pixel.Value, len(tc.Features))
		for j, name := range tc.Features {
			row[j] = fv.Get(name)
		}
		tc.Pixels[i] = row
		tc.Elevation[i] = c.cov[i].Elevation
		tc.LandSurface[i] = c.cov[i].LandSurface
	}
	return tc
}

func (p *Pipeline) fromCache(t pixel.Tile, tc tileComposite) (composed, error) {
	n := t.W * t.H
	if len(tc.Pixels) != n || len(tc.Elevation) != n || len(tc.LandSurface) != n {
		return composed{}, fmt.Errorf("cached composite does not match %s", t)
	}
	schema, err := dataset.NewSchema(tc.Features)
	if err != nil || !schema.Equal(p.schema) {
		return composed{}, fmt.Errorf("cached composite has a different schema")
	}
	c := composed{vectors: make([]dataset.FeatureVector, n), cov: make([]dataset.Covariates, n)}
	for i, row := range tc.Pixels {
		if len(row) != len(tc.Features) {
			return composed{}, fmt.Errorf("cached composite row %d is truncated", i)
		}
		fv := dataset.NewFeatureVector(p.schema)
		for j, name := range tc.Features {
			_ = fv.Set(name, row[j])
		}
		c.vectors[i] = fv
		c.cov[i] = dataset.Covariates{
			Elevation:       tc.Elevation[i],
			LandSurface:     tc.LandSurface[i],
			WaterOccurrence: fv.Get(dataset.WaterOccurrenceFeature),
		}
	}
	return c, nil
}
