// Package boundary loads the static vector inputs of the mask chain: the
// coastline and the terrestrial boundary. Geometries share the projected
// coordinate system of the raster grid, so planar distances are in grid
// units (metres).
package boundary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Set holds the boundary geometries. A nil geometry means the layer is not
// configured.
type Set struct {
	Coastline   orb.Geometry
	Terrestrial orb.Geometry
}

// Boundaries lets a Set stand in wherever a store is expected.
func (s Set) Boundaries(context.Context) (Set, error) {
	return s, nil
}

// FileStore reads both layers from GeoJSON FeatureCollection files. Empty
// paths leave the layer unset.
type FileStore struct {
	CoastlinePath   string
	TerrestrialPath string
}

func (s FileStore) Boundaries(ctx context.Context) (Set, error) {
	var set Set
	var err error
	if s.CoastlinePath != "" {
		if set.Coastline, err = ReadFile(s.CoastlinePath); err != nil {
			return Set{}, fmt.Errorf("failed to load coastline: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return Set{}, err
	}
	if s.TerrestrialPath != "" {
		if set.Terrestrial, err = ReadFile(s.TerrestrialPath); err != nil {
			return Set{}, fmt.Errorf("failed to load terrestrial boundary: %w", err)
		}
	}
	return set, nil
}

func ReadFile(path string) (orb.Geometry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()
	return Read(file)
}

// Read decodes a FeatureCollection. A single feature yields its geometry,
// several features an orb.Collection.
func Read(r io.Reader) (orb.Geometry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("error decoding GeoJSON: %w", err)
	}

	var geoms orb.Collection
	for _, f := range fc.Features {
		if f.Geometry != nil {
			geoms = append(geoms, f.Geometry)
		}
	}
	switch len(geoms) {
	case 0:
		return nil, errors.New("feature collection has no geometries")
	case 1:
		return geoms[0], nil
	}
	return geoms, nil
}
