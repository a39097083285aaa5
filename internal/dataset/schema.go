package dataset

import (
	"fmt"

	"github.com/forest-guardian/tidalflat-cli/internal/landsat"
	"github.com/forest-guardian/tidalflat-cli/internal/reducer"
)

const (
	ElevationFeature       = "etopo"
	WaterOccurrenceFeature = "surfaceWater"
)

// bandReduced are raw bands summarised by a single statistic.
var bandReduced = []string{"nir", "swir1"}

// reducers says how each index series is summarised.
var reducers = map[string]reducer.Reducer{
	"awei":  reducer.Full,
	"ndwi":  reducer.Full,
	"mndwi": reducer.Full,
	"ndvi":  reducer.Only(reducer.IntMn1090),
	"nir":   reducer.Only(reducer.IntMn1090),
	"swir1": reducer.Only(reducer.IntMn1090),
}

// Schema is the fixed, ordered set of feature names of a composite.
type Schema struct {
	names []string
	index map[string]int
}

func NewSchema(names []string) (*Schema, error) {
	s := &Schema{names: append([]string(nil), names...), index: make(map[string]int, len(names))}
	for i, n := range names {
		if _, dup := s.index[n]; dup {
			return nil, fmt.Errorf("duplicate feature %q", n)
		}
		s.index[n] = i
	}
	return s, nil
}

// CompositeSchema lists every feature produced by Compose: the reduced
// indices, the single-statistic band reductions and the static covariates.
func CompositeSchema() *Schema {
	var names []string
	for _, idx := range landsat.Indices {
		for _, stat := range reducers[idx.Name].Names() {
			names = append(names, idx.Name+"_"+stat)
		}
	}
	for _, band := range bandReduced {
		for _, stat := range reducers[band].Names() {
			names = append(names, band+"_"+stat)
		}
	}
	names = append(names, ElevationFeature, WaterOccurrenceFeature)
	s, err := NewSchema(names)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Names() []string {
	return append([]string(nil), s.names...)
}

func (s *Schema) Len() int {
	return len(s.names)
}

func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Subset returns the schema restricted to names, which must all belong to s.
func (s *Schema) Subset(names []string) (*Schema, error) {
	for _, n := range names {
		if _, ok := s.index[n]; !ok {
			return nil, fmt.Errorf("feature %q is not part of the composite", n)
		}
	}
	return NewSchema(names)
}

// Equal reports whether both schemas hold the same feature names, ignoring
// order.
func (s *Schema) Equal(o *Schema) bool {
	if s.Len() != o.Len() {
		return false
	}
	for _, n := range s.names {
		if _, ok := o.index[n]; !ok {
			return false
		}
	}
	return true
}
