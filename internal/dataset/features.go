package dataset

import (
	"encoding/json"
	"fmt"

	"github.com/forest-guardian/tidalflat-cli/internal/pixel"
)

// FeatureVector is the per-pixel mapping from feature name to value, bound
// to a schema.
type FeatureVector struct {
	schema *Schema
	values []pixel.Value
}

func NewFeatureVector(schema *Schema) FeatureVector {
	return FeatureVector{schema: schema, values: make([]pixel.Value, schema.Len())}
}

func (f FeatureVector) Schema() *Schema {
	return f.schema
}

// Get returns the named feature; unknown names are no-data.
func (f FeatureVector) Get(name string) pixel.Value {
	i, ok := f.schema.Index(name)
	if !ok {
		return pixel.NoData
	}
	return f.values[i]
}

func (f FeatureVector) Set(name string, v pixel.Value) error {
	i, ok := f.schema.Index(name)
	if !ok {
		return fmt.Errorf("feature %q is not part of the schema", name)
	}
	f.values[i] = v
	return nil
}

// Missing lists the required features that are no-data or absent.
func (f FeatureVector) Missing(required *Schema) []string {
	var missing []string
	for _, n := range required.names {
		if f.Get(n).IsNoData() {
			missing = append(missing, n)
		}
	}
	return missing
}

// Dense lays the required features out in the order of required. The
// boolean is false when any of them is no-data.
func (f FeatureVector) Dense(required *Schema) ([]float64, bool) {
	out := make([]float64, required.Len())
	for i, n := range required.names {
		v, ok := f.Get(n).Get()
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func (f FeatureVector) MarshalJSON() ([]byte, error) {
	m := make(map[string]pixel.Value, len(f.values))
	for i, n := range f.schema.names {
		m[n] = f.values[i]
	}
	return json.Marshal(m)
}

// Decode fills a vector of the given schema from a JSON object produced by
// MarshalJSON. Names outside the schema are ignored.
func Decode(schema *Schema, data []byte) (FeatureVector, error) {
	var m map[string]pixel.Value
	if err := json.Unmarshal(data, &m); err != nil {
		return FeatureVector{}, err
	}
	f := NewFeatureVector(schema)
	for name, v := range m {
		if i, ok := schema.Index(name); ok {
			f.values[i] = v
		}
	}
	return f, nil
}
