package training

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/forest-guardian/tidalflat-cli/internal/dataset"
	"github.com/forest-guardian/tidalflat-cli/internal/pixel"
	"github.com/forest-guardian/tidalflat-cli/internal/properties"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func schema(t *testing.T) *dataset.Schema {
	t.Helper()
	s, err := dataset.NewSchema([]string{"ndwi_stdDev", "etopo"})
	require.NoError(t, err)
	return s
}

func makePoints(t *testing.T, s *dataset.Schema, n int, missingEvery int) []Point {
	t.Helper()
	points := make([]Point, n)
	for i := range points {
		fv := dataset.NewFeatureVector(s)
		require.NoError(t, fv.Set("etopo", pixel.Of(float64(i))))
		if missingEvery == 0 || i%missingEvery != 0 {
			require.NoError(t, fv.Set("ndwi_stdDev", pixel.Of(0.1)))
		}
		points[i] = Point{ID: fmt.Sprint(i), Class: i % 3, Features: fv}
	}
	return points
}

func TestReadPoints(t *testing.T) {
	s := schema(t)
	csv := `id,CLASS,ndwi_stdDev,etopo,longitude,latitude,extra
a,2,0.12,-4,151.2,-33.9,x
b,1,,3,,,y
c,0,null,NaN,1,2,z
`
	points, err := ReadPoints(strings.NewReader(csv), s, "CLASS")
	require.NoError(t, err)
	require.Len(t, points, 3)

	assert.Equal(t, "a", points[0].ID)
	assert.Equal(t, 2, points[0].Class)
	assert.Equal(t, 151.2, points[0].Longitude)
	assert.Empty(t, points[0].Features.Missing(s))
	assert.Equal(t, []string{"ndwi_stdDev"}, points[1].Features.Missing(s))
	assert.Len(t, points[2].Features.Missing(s), 2)
}

func TestReadPointsErrors(t *testing.T) {
	s := schema(t)
	tests := []struct {
		name string
		csv  string
	}{
		{"missing feature column", "CLASS,etopo\n1,2\n"},
		{"missing class column", "ndwi_stdDev,etopo\n1,2\n"},
		{"bad class", "CLASS,ndwi_stdDev,etopo\nx,1,2\n"},
		{"bad feature", "CLASS,ndwi_stdDev,etopo\n1,abc,2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadPoints(strings.NewReader(tt.csv), s, "CLASS")
			assert.Error(t, err)
		})
	}
}

func TestSplitIsCompleteAndDisjoint(t *testing.T) {
	s := schema(t)
	points := makePoints(t, s, 200, 7)

	for _, ratio := range []float64{0, 0.0001, 0.3, 0.5, 1} {
		for _, seed := range []int64{0, 1, 42} {
			t.Run(fmt.Sprintf("ratio=%v seed=%d", ratio, seed), func(t *testing.T) {
				part, err := Split(points, s, ratio, seed)
				require.NoError(t, err)

				kept := len(points) - part.Dropped
				assert.Equal(t, 29, part.Dropped)
				assert.Equal(t, kept, len(part.Training)+len(part.Validation))

				seen := map[string]bool{}
				for _, p := range part.Training {
					seen[p.ID] = true
				}
				for _, p := range part.Validation {
					assert.False(t, seen[p.ID], "point %s in both subsets", p.ID)
				}
			})
		}
	}
}

func TestSplitEdges(t *testing.T) {
	s := schema(t)
	points := makePoints(t, s, 50, 0)

	part, err := Split(points, s, 0, 3)
	require.NoError(t, err)
	assert.Empty(t, part.Validation)
	assert.Len(t, part.Training, 50)

	part, err = Split(points, s, 1, 3)
	require.NoError(t, err)
	assert.Empty(t, part.Training)
	assert.Len(t, part.Validation, 50)

	_, err = Split(points, s, -0.1, 3)
	assert.True(t, errors.Is(err, properties.ErrConfig))
}

func TestSplitIsReproducible(t *testing.T) {
	s := schema(t)
	points := makePoints(t, s, 100, 0)

	a, err := Split(points, s, 0.4, 9)
	require.NoError(t, err)
	b, err := Split(points, s, 0.4, 9)
	require.NoError(t, err)

	ids := func(ps []Point) []string {
		var out []string
		for _, p := range ps {
			out = append(out, p.ID)
		}
		return out
	}
	assert.Equal(t, ids(a.Validation), ids(b.Validation))
	assert.Equal(t, ids(a.Training), ids(b.Training))
}

type classByElevation struct{}

func (classByElevation) Predict(fv dataset.FeatureVector) pixel.Label {
	v, ok := fv.Get("etopo").Get()
	if !ok {
		return pixel.NoLabel
	}
	if v < 2 {
		return pixel.LabelOf(0)
	}
	return pixel.LabelOf(int(v) % 3)
}

func TestAssess(t *testing.T) {
	s := schema(t)
	points := makePoints(t, s, 6, 0)

	report := Assess(classByElevation{}, points)
	assert.Equal(t, 6, report.Total)
	// point 1 has class 1 but is predicted 0
	assert.Equal(t, 5, report.Correct)
	assert.InDelta(t, 5.0/6.0, report.Accuracy, 1e-12)
	assert.Contains(t, report.Confusion, ConfusionRow{Actual: 1, Predicted: 0, Count: 1})

	var buf bytes.Buffer
	require.NoError(t, report.WriteReport(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "actual,predicted,count\n"))

	empty := Assess(classByElevation{}, nil)
	assert.Equal(t, 0, empty.Total)
	assert.Equal(t, 0.0, empty.Accuracy)
}
