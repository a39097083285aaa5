package landsat

import (
	"fmt"
	"iter"
	"time"

	"github.com/forest-guardian/tidalflat-cli/internal/pixel"
	"github.com/forest-guardian/tidalflat-cli/internal/properties"
)

// RawObservation is one overpass at one pixel as read from the archive, with
// the sensor's native band names.
type RawObservation struct {
	X       int
	Y       int
	Sensor  string
	Date    time.Time
	Bands   map[string]float64
	Quality Quality
}

// Bands holds the canonical reflectance bands of one observation.
type Bands struct {
	Green pixel.Value
	SWIR1 pixel.Value
	SWIR2 pixel.Value
	NIR   pixel.Value
	Red   pixel.Value
}

// Get returns a canonical band by name.
func (b Bands) Get(name string) pixel.Value {
	switch name {
	case "green":
		return b.Green
	case "swir1":
		return b.SWIR1
	case "swir2":
		return b.SWIR2
	case "nir":
		return b.NIR
	case "red":
		return b.Red
	}
	return pixel.NoData
}

func (b *Bands) set(name string, v pixel.Value) {
	switch name {
	case "green":
		b.Green = v
	case "swir1":
		b.SWIR1 = v
	case "swir2":
		b.SWIR2 = v
	case "nir":
		b.NIR = v
	case "red":
		b.Red = v
	}
}

// Observation is a clear, in-range overpass expressed in canonical bands.
type Observation struct {
	X      int
	Y      int
	Sensor string
	Date   time.Time
	Bands  Bands
}

// Harmonizer renames native sensor bands onto the canonical band set and
// drops observations outside [start, end) or not flagged clear.
type Harmonizer struct {
	start      time.Time
	end        time.Time
	bandSelect []string
	sensors    map[string][]string
}

func NewHarmonizer(opts properties.Options) (*Harmonizer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	sensors := make(map[string][]string, len(opts.Sensors))
	for sensor, bands := range opts.Sensors {
		sensors[sensor] = append([]string(nil), bands...)
	}
	return &Harmonizer{
		start:      opts.StartDate,
		end:        opts.EndDate,
		bandSelect: append([]string(nil), opts.BandSelect...),
		sensors:    sensors,
	}, nil
}

// Sensors lists the configured sensor identifiers.
func (h *Harmonizer) Sensors() []string {
	out := make([]string, 0, len(h.sensors))
	for s := range h.sensors {
		out = append(out, s)
	}
	return out
}

// CheckSensor reports an unknown sensor as a configuration error.
func (h *Harmonizer) CheckSensor(sensor string) error {
	if _, ok := h.sensors[sensor]; !ok {
		return fmt.Errorf("%w: unknown sensor %q", properties.ErrConfig, sensor)
	}
	return nil
}

// Harmonize converts one raw observation. The boolean is false when the
// observation is filtered out by date or quality. A native band missing from
// the raw record becomes no-data in the canonical band.
func (h *Harmonizer) Harmonize(raw RawObservation) (Observation, bool, error) {
	native, ok := h.sensors[raw.Sensor]
	if !ok {
		return Observation{}, false, fmt.Errorf("%w: unknown sensor %q", properties.ErrConfig, raw.Sensor)
	}
	if raw.Quality != QualityClear {
		return Observation{}, false, nil
	}
	if raw.Date.Before(h.start) || !raw.Date.Before(h.end) {
		return Observation{}, false, nil
	}

	obs := Observation{X: raw.X, Y: raw.Y, Sensor: raw.Sensor, Date: raw.Date}
	for i, canonical := range h.bandSelect {
		v, ok := raw.Bands[native[i]]
		if !ok {
			continue
		}
		obs.Bands.set(canonical, pixel.Of(v))
	}
	return obs, true, nil
}

// Filter lazily harmonizes a stream of raw observations, yielding only the
// clear, in-range ones. Reader errors and configuration errors are passed
// through and end the stream.
func (h *Harmonizer) Filter(seq iter.Seq2[RawObservation, error]) iter.Seq2[Observation, error] {
	return func(yield func(Observation, error) bool) {
		for raw, err := range seq {
			if err != nil {
				yield(Observation{}, err)
				return
			}
			obs, ok, err := h.Harmonize(raw)
			if err != nil {
				yield(Observation{}, err)
				return
			}
			if !ok {
				continue
			}
			if !yield(obs, nil) {
				return
			}
		}
	}
}
