package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"slices"

	"github.com/forest-guardian/tidalflat-cli/internal/properties"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	NTrees            int
	VariablesPerSplit int
	BagFraction       float64
	MinLeafPopulation int
	Seed              int64
	Workers           int
}

func ConfigFrom(o properties.Options) Config {
	return Config{
		NTrees:            o.NTrees,
		VariablesPerSplit: o.VariablesPerSplit,
		BagFraction:       o.BagFraction,
		MinLeafPopulation: o.MinLeafPopulation,
		Seed:              o.Seed,
		Workers:           o.Workers,
	}
}

func (c Config) validate(features int) error {
	switch {
	case c.NTrees <= 0:
		return fmt.Errorf("%w: number of trees must be positive, got %d", properties.ErrConfig, c.NTrees)
	case c.BagFraction <= 0 || c.BagFraction > 1:
		return fmt.Errorf("%w: bag fraction %v outside (0,1]", properties.ErrConfig, c.BagFraction)
	case c.MinLeafPopulation < 1:
		return fmt.Errorf("%w: min leaf population must be at least 1", properties.ErrConfig)
	case c.VariablesPerSplit < 0 || c.VariablesPerSplit > features:
		return fmt.Errorf("%w: variables per split %d outside [0,%d]", properties.ErrConfig, c.VariablesPerSplit, features)
	}
	return nil
}

// Forest is a trained random forest. Classes is sorted ascending.
type Forest struct {
	Classes  []int
	Features int
	Trees    []Tree
}

// Fit trains a forest on x (n rows of p features) and class values y. Tree i
// is grown from a generator seeded with Seed+i, so the result does not
// depend on scheduling.
func Fit(ctx context.Context, x [][]float64, y []int, cfg Config) (*Forest, error) {
	if len(x) == 0 {
		return nil, errors.New("no training samples")
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("samples and classes length mismatch: %d != %d", len(x), len(y))
	}
	p := len(x[0])
	for i, row := range x {
		if len(row) != p {
			return nil, fmt.Errorf("sample %d has %d features, want %d", i, len(row), p)
		}
	}
	if err := cfg.validate(p); err != nil {
		return nil, err
	}

	classes := slices.Clone(y)
	slices.Sort(classes)
	classes = slices.Compact(classes)
	yIdx := make([]int, len(y))
	for i, c := range y {
		yIdx[i], _ = slices.BinarySearch(classes, c)
	}

	mtry := cfg.VariablesPerSplit
	if mtry == 0 {
		mtry = max(1, int(math.Floor(math.Sqrt(float64(p)))))
	}
	bag := max(1, int(math.Floor(cfg.BagFraction*float64(len(x)))))
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	forest := &Forest{Classes: classes, Features: p, Trees: make([]Tree, cfg.NTrees)}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range cfg.NTrees {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rnd := rand.New(rand.NewSource(cfg.Seed + int64(i)))
			gr := &grower{
				x:        x,
				y:        yIdx,
				nClasses: len(classes),
				mtry:     mtry,
				minLeaf:  cfg.MinLeafPopulation,
				rnd:      rnd,
			}
			gr.grow(rnd.Perm(len(x))[:bag])
			forest.Trees[i] = Tree{Nodes: gr.nodes}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to train forest: %w", err)
	}
	return forest, nil
}

// Predict returns the majority vote of the trees. Ties go to the smallest
// class value.
func (f *Forest) Predict(x []float64) int {
	votes := make([]int, len(f.Classes))
	for _, t := range f.Trees {
		votes[t.predict(x)]++
	}
	return f.Classes[majority(votes)]
}
