package pipeline

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/forest-guardian/tidalflat-cli/internal/boundary"
	"github.com/forest-guardian/tidalflat-cli/internal/dataset"
	"github.com/forest-guardian/tidalflat-cli/internal/landsat"
	"github.com/forest-guardian/tidalflat-cli/internal/pixel"
)

// Archive supplies raw observations of one sensor over a tile. The sequence
// is finite and may be ranged over again.
type Archive interface {
	Observations(ctx context.Context, sensor string, start, end time.Time, t pixel.Tile) iter.Seq2[landsat.RawObservation, error]
}

// Covariates supplies the static layers over a tile, row-major.
type Covariates interface {
	Covariates(ctx context.Context, t pixel.Tile) ([]dataset.Covariates, error)
}

// Source names the inputs behind an Archive or Covariates. Two sources with
// the same name must serve the same pixels; the composite cache is keyed on it.
type Source interface {
	Source() string
}

type Boundaries interface {
	Boundaries(ctx context.Context) (boundary.Set, error)
}

type Classifier interface {
	Predict(fv dataset.FeatureVector) pixel.Label
}

// Sink receives the final raster tile by tile. The pipeline never calls it
// concurrently.
type Sink interface {
	Open(grid pixel.Grid) error
	WriteTile(t pixel.Tile, labels []pixel.Label) error
	Close() error
}

// TileError reports a failed tile so an orchestrator can retry it.
type TileError struct {
	Tile  pixel.Tile
	Phase string
	Err   error
}

func (e *TileError) Error() string {
	return fmt.Sprintf("%s failed during %s: %v", e.Tile, e.Phase, e.Err)
}

func (e *TileError) Unwrap() error {
	return e.Err
}
