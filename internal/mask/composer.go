package mask

import (
	"fmt"

	"github.com/forest-guardian/tidalflat-cli/internal/boundary"
	"github.com/forest-guardian/tidalflat-cli/internal/pixel"
	"github.com/forest-guardian/tidalflat-cli/internal/properties"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Stage names one link of the mask chain, in evaluation order.
type Stage int

const (
	StageCoastal Stage = iota
	StageElevation
	StageLand
	StageConnected
	StageTargetClass
	StageTerrestrial
	numStages
)

var stageNames = [...]string{"coastal", "elevation", "land", "connected", "targetClass", "terrestrial"}

func (s Stage) String() string {
	if s < 0 || s >= numStages {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// Pixel carries everything the chain needs to decide one pixel. Label is the
// classified label; ComponentSize is the size of its connected component in
// the geographically masked raster, 0 when it has none.
type Pixel struct {
	Center        orb.Point
	Elevation     pixel.Value
	LandSurface   pixel.Value
	Label         pixel.Label
	ComponentSize int
}

// Composer evaluates the mask chain with a fixed configuration.
type Composer struct {
	maxDistance    float64
	tolerance      float64
	minDepth       float64
	maxAltitude    float64
	applyLand      bool
	landThreshold  float64
	minConnected   int
	tidalFlatClass int
	terrestrial    properties.TerrestrialMode
	buffer         float64

	coastline orb.Geometry
	boundary  orb.Geometry
}

func NewComposer(opts properties.Options, b boundary.Set) (*Composer, error) {
	if opts.MaskDepth > opts.MaskAltitude {
		return nil, fmt.Errorf("%w: minDepth %v is above maxAltitude %v", properties.ErrConfig, opts.MaskDepth, opts.MaskAltitude)
	}
	if opts.ConnectedPixels < 1 {
		return nil, fmt.Errorf("%w: conPixels must be at least 1", properties.ErrConfig)
	}
	return &Composer{
		maxDistance:    opts.MaskDistance,
		tolerance:      opts.CoastTolerance,
		minDepth:       opts.MaskDepth,
		maxAltitude:    opts.MaskAltitude,
		applyLand:      opts.MaskApplySRTM,
		landThreshold:  opts.LandThreshold,
		minConnected:   opts.ConnectedPixels,
		tidalFlatClass: opts.TidalFlatClass,
		terrestrial:    opts.TerrestrialExclude,
		buffer:         opts.TerrestrialBuffer,
		coastline:      b.Coastline,
		boundary:       b.Terrestrial,
	}, nil
}

// Coastal passes pixels whose signed distance to the coastline lies in
// [-tolerance, maxDistance]. Without a coastline nothing passes.
func (c *Composer) Coastal(p orb.Point) pixel.Mask {
	if c.coastline == nil {
		return pixel.MaskNoData
	}
	d := SignedDistance(c.coastline, p)
	return pixel.MaskFrom(d >= -c.tolerance && d <= c.maxDistance)
}

// Elevation passes minDepth <= e <= maxAltitude. Out of range values are
// no-data, never clamped.
func (c *Composer) Elevation(e pixel.Value) pixel.Mask {
	v, ok := e.Get()
	if !ok || v < c.minDepth || v > c.maxAltitude {
		return pixel.MaskNoData
	}
	return pixel.MaskTrue
}

// Land requires the land surface to be at or below the threshold when the
// land mask is enabled, and passes everything otherwise.
func (c *Composer) Land(l pixel.Value) pixel.Mask {
	if !c.applyLand {
		return pixel.MaskTrue
	}
	v, ok := l.Get()
	if !ok {
		return pixel.MaskNoData
	}
	return pixel.MaskFrom(v <= c.landThreshold)
}

func (c *Composer) Connected(size int) pixel.Mask {
	if size <= 0 {
		return pixel.MaskNoData
	}
	return pixel.MaskFrom(size >= c.minConnected)
}

func (c *Composer) TargetClass(l pixel.Label) pixel.Mask {
	if l.IsNoData() {
		return pixel.MaskNoData
	}
	return pixel.MaskFrom(l.Is(c.tidalFlatClass))
}

// Terrestrial removes pixels on the configured side of the terrestrial
// boundary grown by the buffer distance. The boundary is the unbuffered
// one; a boundary file that is already buffered needs a zero buffer. Without
// a boundary it passes everything.
func (c *Composer) Terrestrial(p orb.Point) pixel.Mask {
	if c.boundary == nil {
		return pixel.MaskTrue
	}
	inside := SignedDistance(c.boundary, p) <= c.buffer
	if c.terrestrial == properties.ExcludeOutside {
		return pixel.MaskFrom(inside)
	}
	return pixel.MaskFrom(!inside)
}

// Geographic is the per-pixel part evaluated before classification
// neighbourhoods are known: coastal, elevation and land.
func (c *Composer) Geographic(p Pixel) pixel.Mask {
	return c.Coastal(p.Center).And(c.Elevation(p.Elevation)).And(c.Land(p.LandSurface))
}

// Remaining evaluates connected, target class and terrestrial.
func (c *Composer) Remaining(p Pixel) pixel.Mask {
	return c.Connected(p.ComponentSize).And(c.TargetClass(p.Label)).And(c.Terrestrial(p.Center))
}

// Trace returns the cumulative mask after each stage.
func (c *Composer) Trace(p Pixel) [numStages]pixel.Mask {
	stages := [numStages]pixel.Mask{
		c.Coastal(p.Center),
		c.Elevation(p.Elevation),
		c.Land(p.LandSurface),
		c.Connected(p.ComponentSize),
		c.TargetClass(p.Label),
		c.Terrestrial(p.Center),
	}
	acc := pixel.MaskTrue
	for i, m := range stages {
		acc = acc.And(m)
		stages[i] = acc
	}
	return stages
}

// Apply returns the label when the pixel survives every stage and no-data
// otherwise.
func (c *Composer) Apply(p Pixel) pixel.Label {
	if c.Geographic(p).And(c.Remaining(p)).Keep() {
		return p.Label
	}
	return pixel.NoLabel
}

// SignedDistance is the planar distance from p to the geometry boundary,
// negative when p lies inside a polygonal part.
func SignedDistance(g orb.Geometry, p orb.Point) float64 {
	d := planar.DistanceFrom(g, p)
	if contains(g, p) {
		return -d
	}
	return d
}

func contains(g orb.Geometry, p orb.Point) bool {
	switch g := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, p)
	case orb.Bound:
		return g.Contains(p)
	case orb.Collection:
		for _, part := range g {
			if contains(part, p) {
				return true
			}
		}
	}
	return false
}
