package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/forest-guardian/tidalflat-cli/internal/dataset"
	"github.com/forest-guardian/tidalflat-cli/internal/log"
	"github.com/forest-guardian/tidalflat-cli/internal/ml"
	"github.com/forest-guardian/tidalflat-cli/internal/properties"
	"github.com/forest-guardian/tidalflat-cli/internal/training"
)

// TrainModel reads the precomputed training points, splits them, trains the
// classifier on the training subset and assesses it on the validation
// subset.
func TrainModel(ctx context.Context, points io.Reader, opts properties.Options) (*ml.Model, training.Report, error) {
	schema := dataset.CompositeSchema()
	all, err := training.ReadPoints(points, schema, opts.ClassColumn)
	if err != nil {
		return nil, training.Report{}, err
	}

	part, err := training.Split(all, schema, opts.TrainingValidationRatio, opts.SplitSeed)
	if err != nil {
		return nil, training.Report{}, err
	}
	if len(part.Training) == 0 {
		return nil, training.Report{}, fmt.Errorf("no complete training points among %d read", len(all))
	}

	model, err := ml.Train(ctx, schema, part.Training, ml.ConfigFrom(opts))
	if err != nil {
		return nil, training.Report{}, fmt.Errorf("failed to train classifier: %w", err)
	}

	report := training.Assess(model, part.Validation)
	log.Infof("validation accuracy %.4f (%d/%d)", report.Accuracy, report.Correct, report.Total)
	return model, report, nil
}
