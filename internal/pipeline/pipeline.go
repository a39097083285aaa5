package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/forest-guardian/tidalflat-cli/internal/cache"
	"github.com/forest-guardian/tidalflat-cli/internal/dataset"
	"github.com/forest-guardian/tidalflat-cli/internal/landsat"
	"github.com/forest-guardian/tidalflat-cli/internal/log"
	"github.com/forest-guardian/tidalflat-cli/internal/mask"
	"github.com/forest-guardian/tidalflat-cli/internal/pixel"
	"github.com/forest-guardian/tidalflat-cli/internal/properties"
	"github.com/gammazero/workerpool"
	"github.com/schollz/progressbar/v3"
)

// Summary describes a finished run.
type Summary struct {
	Tiles      int
	Pixels     int
	Classified int
	Kept       int
	Duration   time.Duration
}

type Pipeline struct {
	opts       properties.Options
	harmonizer *landsat.Harmonizer
	sensors    []string
	schema     *dataset.Schema

	archive    Archive
	covariates Covariates
	boundaries Boundaries
	classifier Classifier
	sink       Sink
	cache      *cache.FileCache[tileComposite]

	// Progress turns the per-phase progress bars on.
	Progress bool
}

func New(opts properties.Options, archive Archive, covariates Covariates, boundaries Boundaries, classifier Classifier, sink Sink) (*Pipeline, error) {
	harmonizer, err := landsat.NewHarmonizer(opts)
	if err != nil {
		return nil, err
	}
	sensors := harmonizer.Sensors()
	sort.Strings(sensors)

	p := &Pipeline{
		opts:       opts,
		harmonizer: harmonizer,
		sensors:    sensors,
		schema:     dataset.CompositeSchema(),
		archive:    archive,
		covariates: covariates,
		boundaries: boundaries,
		classifier: classifier,
		sink:       sink,
	}
	if opts.CacheDir != "" {
		_, archiveNamed := archive.(Source)
		_, covariatesNamed := covariates.(Source)
		if archiveNamed && covariatesNamed {
			p.cache = cache.NewFileCache[tileComposite](opts.CacheDir)
		} else {
			log.Warnf("composite cache disabled: inputs do not name their source")
		}
	}
	return p, nil
}

// Run classifies and masks the whole grid. Tiles are processed concurrently
// in three phases: composite, classify and per-pixel masks; connected
// components over the whole raster; remaining masks and output. The first
// tile failure stops the run and is returned as a *TileError.
func (p *Pipeline) Run(ctx context.Context, grid pixel.Grid) (Summary, error) {
	started := time.Now()
	tiles := grid.Tiles(p.opts.TileSize)
	summary := Summary{Tiles: len(tiles), Pixels: grid.Width * grid.Height}

	set, err := p.boundaries.Boundaries(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to load boundaries: %w", err)
	}
	composer, err := mask.NewComposer(p.opts, set)
	if err != nil {
		return summary, err
	}

	log.Infow("starting classification",
		"width", grid.Width,
		"height", grid.Height,
		"tiles", len(tiles),
		"sensors", p.sensors,
	)

	masked := pixel.NewLabelRaster(grid.Width, grid.Height)
	var classified atomic.Int64
	err = p.forEachTile(ctx, tiles, "Classifying tiles", "classify", func(ctx context.Context, t pixel.Tile) error {
		c, err := p.compose(ctx, grid, t)
		if err != nil {
			return err
		}
		for i, fv := range c.vectors {
			x, y := t.X0+i%t.W, t.Y0+i/t.W
			label := p.classifier.Predict(fv)
			if label.IsNoData() {
				continue
			}
			classified.Add(1)
			geo := composer.Geographic(mask.Pixel{
				Center:      grid.Center(x, y),
				Elevation:   c.cov[i].Elevation,
				LandSurface: c.cov[i].LandSurface,
			})
			if geo.Keep() {
				masked.Set(x, y, label)
			}
		}
		return nil
	})
	summary.Classified = int(classified.Load())
	if err != nil {
		return summary, err
	}

	sizes := mask.ComponentSizes(masked, p.opts.TileSize, p.opts.Connectivity, p.opts.Workers)

	if err := p.sink.Open(grid); err != nil {
		return summary, fmt.Errorf("failed to open sink: %w", err)
	}
	var sinkMu sync.Mutex
	var kept atomic.Int64
	err = p.forEachTile(ctx, tiles, "Masking tiles", "mask", func(ctx context.Context, t pixel.Tile) error {
		out := make([]pixel.Label, t.W*t.H)
		for i := range out {
			x, y := t.X0+i%t.W, t.Y0+i/t.W
			idx := y*grid.Width + x
			px := mask.Pixel{
				Center:        grid.Center(x, y),
				Label:         masked.Labels[idx],
				ComponentSize: sizes[idx],
			}
			if composer.Remaining(px).Keep() {
				out[i] = px.Label
				kept.Add(1)
			}
		}
		sinkMu.Lock()
		defer sinkMu.Unlock()
		return p.sink.WriteTile(t, out)
	})
	summary.Kept = int(kept.Load())
	if closeErr := p.sink.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close sink: %w", closeErr)
	}
	summary.Duration = time.Since(started)
	if err != nil {
		return summary, err
	}

	log.Infow("classification finished",
		"classified", summary.Classified,
		"kept", summary.Kept,
		"duration", summary.Duration.String(),
	)
	return summary, nil
}

// forEachTile runs fn over the tiles on a worker pool. The first failure
// cancels the tiles not yet started and is returned wrapped in a TileError.
func (p *Pipeline) forEachTile(ctx context.Context, tiles []pixel.Tile, description, phase string, fn func(context.Context, pixel.Tile) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var bar *progressbar.ProgressBar
	if p.Progress {
		bar = progressbar.Default(int64(len(tiles)), description)
	}

	wp := workerpool.New(p.opts.Workers)
	var stopProcessing sync.Once
	var firstErr error
	for _, t := range tiles {
		wp.Submit(func() {
			if bar != nil {
				defer bar.Add(1)
			}
			if ctx.Err() != nil {
				return
			}
			if err := fn(ctx, t); err != nil {
				stopProcessing.Do(func() {
					firstErr = &TileError{Tile: t, Phase: phase, Err: err}
					log.Errorw("tile failed", "tile", t.String(), "phase", phase, "error", err)
					cancel()
				})
			}
		})
	}
	wp.StopWait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
