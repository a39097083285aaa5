package ml

import (
	"context"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/forest-guardian/tidalflat-cli/internal/dataset"
	"github.com/forest-guardian/tidalflat-cli/internal/log"
	"github.com/forest-guardian/tidalflat-cli/internal/pixel"
	"github.com/forest-guardian/tidalflat-cli/internal/training"
)

// Model binds a trained forest to the ordered feature names it was trained on.
type Model struct {
	schema *dataset.Schema
	forest *Forest
}

// Train fits a forest on the points' features over schema. Points missing any
// schema feature are skipped.
func Train(ctx context.Context, schema *dataset.Schema, samples []training.Point, cfg Config) (*Model, error) {
	x := make([][]float64, 0, len(samples))
	y := make([]int, 0, len(samples))
	for _, p := range samples {
		row, ok := p.Features.Dense(schema)
		if !ok {
			continue
		}
		x = append(x, row)
		y = append(y, p.Class)
	}
	if skipped := len(samples) - len(x); skipped > 0 {
		log.Warnf("skipped %d training samples with missing features", skipped)
	}

	forest, err := Fit(ctx, x, y, cfg)
	if err != nil {
		return nil, err
	}
	log.Infow("classifier trained",
		"trees", len(forest.Trees),
		"samples", len(x),
		"features", schema.Len(),
		"classes", forest.Classes,
	)
	return &Model{schema: schema, forest: forest}, nil
}

func (m *Model) Schema() *dataset.Schema {
	return m.schema
}

func (m *Model) Classes() []int {
	return m.forest.Classes
}

// Predict labels a feature vector. A missing required feature gives no-data.
func (m *Model) Predict(fv dataset.FeatureVector) pixel.Label {
	x, ok := fv.Dense(m.schema)
	if !ok {
		return pixel.NoLabel
	}
	return pixel.LabelOf(m.forest.Predict(x))
}

// PredictDense labels a row laid out in schema order.
func (m *Model) PredictDense(x []float64) pixel.Label {
	if len(x) != m.schema.Len() {
		return pixel.NoLabel
	}
	for _, v := range x {
		if pixel.Of(v).IsNoData() {
			return pixel.NoLabel
		}
	}
	return pixel.LabelOf(m.forest.Predict(x))
}

type savedModel struct {
	Features []string
	Forest   Forest
}

func (m *Model) Save(w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(savedModel{Features: m.schema.Names(), Forest: *m.forest}); err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	return nil
}

func Load(r io.Reader) (*Model, error) {
	var saved savedModel
	if err := gob.NewDecoder(r).Decode(&saved); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	schema, err := dataset.NewSchema(saved.Features)
	if err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if saved.Forest.Features != schema.Len() {
		return nil, fmt.Errorf("model forest expects %d features, schema has %d", saved.Forest.Features, schema.Len())
	}
	return &Model{schema: schema, forest: &saved.Forest}, nil
}
