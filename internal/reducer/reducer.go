// Package reducer collapses a per-pixel index time series into a fixed set
// of named statistics.
//
// Percentiles use linear interpolation between order statistics: for a
// sorted series x[0..n-1] the p-th percentile sits at rank h = (n-1)*p/100
// and equals x[floor(h)] + (h-floor(h))*(x[floor(h)+1]-x[floor(h)]). The
// median is the 50th percentile under the same rule. An interval mean
// intMnLLHH is the arithmetic mean of every value v with P(LL) <= v <= P(HH);
// when no value falls inside the interval the statistic is no-data. The
// standard deviation is the population standard deviation.
package reducer

import (
	"math"
	"slices"

	"github.com/forest-guardian/tidalflat-cli/internal/pixel"
	"gonum.org/v1/gonum/stat"
)

// Statistic is one named summary of a series.
type Statistic struct {
	Name string
	kind statKind
	lo   float64
	hi   float64
}

type statKind uint8

const (
	kindMin statKind = iota
	kindMax
	kindStdDev
	kindPercentile
	kindIntervalMean
)

func percentile(name string, p float64) Statistic {
	return Statistic{Name: name, kind: kindPercentile, lo: p}
}

func intervalMean(name string, lo, hi float64) Statistic {
	return Statistic{Name: name, kind: kindIntervalMean, lo: lo, hi: hi}
}

var (
	Min        = Statistic{Name: "min", kind: kindMin}
	Max        = Statistic{Name: "max", kind: kindMax}
	StdDev     = Statistic{Name: "stdDev", kind: kindStdDev}
	Median     = percentile("median", 50)
	P10        = percentile("p10", 10)
	P25        = percentile("p25", 25)
	P50        = percentile("p50", 50)
	P75        = percentile("p75", 75)
	P90        = percentile("p90", 90)
	IntMn0010  = intervalMean("intMn0010", 0, 10)
	IntMn1025  = intervalMean("intMn1025", 10, 25)
	IntMn2550  = intervalMean("intMn2550", 25, 50)
	IntMn5075  = intervalMean("intMn5075", 50, 75)
	IntMn7590  = intervalMean("intMn7590", 75, 90)
	IntMn90100 = intervalMean("intMn90100", 90, 100)
	IntMn1090  = intervalMean("intMn1090", 10, 90)
	IntMn2575  = intervalMean("intMn2575", 25, 75)
)

// Reducer computes an ordered list of statistics.
type Reducer struct {
	stats []Statistic
}

// Full is the combined reducer applied to the water indices.
var Full = Reducer{stats: []Statistic{
	Min, Max, StdDev, Median,
	P10, P25, P50, P75, P90,
	IntMn0010, IntMn1025, IntMn2550, IntMn5075, IntMn7590, IntMn90100, IntMn1090, IntMn2575,
}}

// Only builds a reducer restricted to the given statistics.
func Only(stats ...Statistic) Reducer {
	return Reducer{stats: append([]Statistic(nil), stats...)}
}

// Names returns the output names in order.
func (r Reducer) Names() []string {
	names := make([]string, len(r.stats))
	for i, s := range r.stats {
		names[i] = s.Name
	}
	return names
}

// Len is the number of outputs.
func (r Reducer) Len() int {
	return len(r.stats)
}

// Reduce returns one value per statistic, in Names order. The input is not
// modified; non-finite values are ignored. An empty series yields no-data
// for every statistic.
func (r Reducer) Reduce(series []float64) []pixel.Value {
	out := make([]pixel.Value, len(r.stats))
	sorted := make([]float64, 0, len(series))
	for _, v := range series {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return out
	}
	slices.Sort(sorted)

	for i, s := range r.stats {
		out[i] = s.compute(sorted)
	}
	return out
}

func (s Statistic) compute(sorted []float64) pixel.Value {
	switch s.kind {
	case kindMin:
		return pixel.Of(sorted[0])
	case kindMax:
		return pixel.Of(sorted[len(sorted)-1])
	case kindStdDev:
		_, std := stat.PopMeanStdDev(sorted, nil)
		return pixel.Of(std)
	case kindPercentile:
		return pixel.Of(Percentile(sorted, s.lo))
	case kindIntervalMean:
		return IntervalMean(sorted, s.lo, s.hi)
	}
	return pixel.NoData
}

// Percentile interpolates linearly between the order statistics of a sorted,
// non-empty series.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p / 100
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	if lo < 0 {
		return sorted[0]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// IntervalMean averages the values of a sorted, non-empty series lying
// between the lo-th and hi-th percentiles, bounds inclusive.
func IntervalMean(sorted []float64, lo, hi float64) pixel.Value {
	pLo, pHi := Percentile(sorted, lo), Percentile(sorted, hi)
	start, _ := slices.BinarySearch(sorted, pLo)
	end := start
	for end < len(sorted) && sorted[end] <= pHi {
		end++
	}
	if end == start {
		return pixel.NoData
	}
	return pixel.Of(stat.Mean(sorted[start:end], nil))
}
