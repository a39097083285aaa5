package training

import (
	"fmt"
	"math/rand"

	"github.com/forest-guardian/tidalflat-cli/internal/dataset"
	"github.com/forest-guardian/tidalflat-cli/internal/log"
	"github.com/forest-guardian/tidalflat-cli/internal/properties"
)

// Partition is the outcome of Split. Training and Validation are disjoint
// and together hold every point that was not dropped.
type Partition struct {
	Training   []Point
	Validation []Point
	Dropped    int
}

// Split drops points missing any required feature, draws a value in [0,1)
// for each remaining point from a generator seeded with seed, in input
// order, and sends the point to validation when the value is below ratio and
// to training otherwise.
func Split(points []Point, required *dataset.Schema, ratio float64, seed int64) (Partition, error) {
	if ratio < 0 || ratio > 1 {
		return Partition{}, fmt.Errorf("%w: split ratio %v outside [0,1]", properties.ErrConfig, ratio)
	}

	rnd := rand.New(rand.NewSource(seed))
	var part Partition
	for _, p := range points {
		if len(p.Features.Missing(required)) > 0 {
			part.Dropped++
			continue
		}
		if rnd.Float64() < ratio {
			part.Validation = append(part.Validation, p)
		} else {
			part.Training = append(part.Training, p)
		}
	}

	log.Infow("training points split",
		"training", len(part.Training),
		"validation", len(part.Validation),
		"dropped", part.Dropped,
	)
	return part, nil
}
