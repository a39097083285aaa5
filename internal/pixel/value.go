package pixel

import (
	"encoding/json"
	"math"
)

// Value is a real-valued pixel quantity that may be absent. The zero value
// is no-data.
type Value struct {
	v     float64
	valid bool
}

var NoData = Value{}

// Of wraps a number. NaN and infinities are treated as no-data so they can
// never leak into a feature vector as numbers.
func Of(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NoData
	}
	return Value{v: v, valid: true}
}

func (p Value) Get() (float64, bool) {
	return p.v, p.valid
}

func (p Value) IsNoData() bool {
	return !p.valid
}

// OrElse returns the wrapped number or def when the value is no-data.
func (p Value) OrElse(def float64) float64 {
	if !p.valid {
		return def
	}
	return p.v
}

func (p Value) MarshalJSON() ([]byte, error) {
	if !p.valid {
		return []byte("null"), nil
	}
	return json.Marshal(p.v)
}

func (p *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = NoData
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Of(v)
	return nil
}

// Label is a categorical class that may be absent. The zero value is no-data.
type Label struct {
	class int
	valid bool
}

var NoLabel = Label{}

func LabelOf(class int) Label {
	return Label{class: class, valid: true}
}

func (l Label) Get() (int, bool) {
	return l.class, l.valid
}

func (l Label) IsNoData() bool {
	return !l.valid
}

// Is reports whether the label holds class.
func (l Label) Is(class int) bool {
	return l.valid && l.class == class
}
