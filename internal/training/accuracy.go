package training

import (
	"fmt"
	"io"
	"sort"

	"github.com/forest-guardian/tidalflat-cli/internal/dataset"
	"github.com/forest-guardian/tidalflat-cli/internal/pixel"
	"github.com/gocarina/gocsv"
)

// Predictor is anything that labels a feature vector.
type Predictor interface {
	Predict(fv dataset.FeatureVector) pixel.Label
}

// ConfusionRow is one cell of the confusion matrix.
type ConfusionRow struct {
	Actual    int `csv:"actual"`
	Predicted int `csv:"predicted"`
	Count     int `csv:"count"`
}

// Report summarises a classifier on the validation subset.
type Report struct {
	Total     int
	Correct   int
	Accuracy  float64
	Confusion []ConfusionRow
}

// Assess predicts every validation point and tallies the confusion matrix.
// An empty validation set gives an empty report.
func Assess(model Predictor, validation []Point) Report {
	counts := map[[2]int]int{}
	var report Report
	for _, p := range validation {
		predicted, ok := model.Predict(p.Features).Get()
		if !ok {
			continue
		}
		report.Total++
		if predicted == p.Class {
			report.Correct++
		}
		counts[[2]int{p.Class, predicted}]++
	}
	if report.Total > 0 {
		report.Accuracy = float64(report.Correct) / float64(report.Total)
	}

	for k, n := range counts {
		report.Confusion = append(report.Confusion, ConfusionRow{Actual: k[0], Predicted: k[1], Count: n})
	}
	sort.Slice(report.Confusion, func(i, j int) bool {
		if report.Confusion[i].Actual != report.Confusion[j].Actual {
			return report.Confusion[i].Actual < report.Confusion[j].Actual
		}
		return report.Confusion[i].Predicted < report.Confusion[j].Predicted
	})
	return report
}

// WriteReport writes the confusion matrix as CSV.
func (r Report) WriteReport(w io.Writer) error {
	rows := r.Confusion
	if rows == nil {
		rows = []ConfusionRow{}
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("failed to write accuracy report: %w", err)
	}
	return nil
}
