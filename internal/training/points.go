package training

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/forest-guardian/tidalflat-cli/internal/dataset"
	"github.com/forest-guardian/tidalflat-cli/internal/pixel"
	"github.com/gocarina/gocsv"
)

// Point is a labelled location with its precomputed feature vector.
type Point struct {
	ID        string
	Longitude float64
	Latitude  float64
	Class     int
	Features  dataset.FeatureVector
}

func isNoDataCell(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "", "null", "nan", "nodata":
		return true
	}
	return false
}

// ReadPoints loads a training point table. Every schema feature must have a
// column; empty, "null" and "NaN" cells are no-data. Rows keep file order.
func ReadPoints(r io.Reader, schema *dataset.Schema, classColumn string) ([]Point, error) {
	rows, err := gocsv.CSVToMaps(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read training points: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	if _, ok := header[classColumn]; !ok {
		return nil, fmt.Errorf("training points have no %q column", classColumn)
	}
	for _, name := range schema.Names() {
		if _, ok := header[name]; !ok {
			return nil, fmt.Errorf("training points have no %q column", name)
		}
	}

	points := make([]Point, 0, len(rows))
	for i, row := range rows {
		class, err := strconv.Atoi(strings.TrimSpace(row[classColumn]))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid class %q: %w", i+1, row[classColumn], err)
		}
		p := Point{
			ID:        row["id"],
			Class:     class,
			Features:  dataset.NewFeatureVector(schema),
			Longitude: parseCoordinate(row["longitude"]),
			Latitude:  parseCoordinate(row["latitude"]),
		}
		if p.ID == "" {
			p.ID = strconv.Itoa(i)
		}
		for _, name := range schema.Names() {
			cell := row[name]
			if isNoDataCell(cell) {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: feature %s: %w", i+1, name, err)
			}
			_ = p.Features.Set(name, pixel.Of(v))
		}
		points = append(points, p)
	}
	return points, nil
}

func parseCoordinate(cell string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
