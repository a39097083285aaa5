package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/forest-guardian/tidalflat-cli/internal/log"
	"github.com/forest-guardian/tidalflat-cli/internal/pixel"
	"github.com/paulmach/orb/geojson"
)

// GeoJSONSink writes the centre of every labelled pixel as a point feature.
type GeoJSONSink struct {
	Path string

	grid pixel.Grid
	fc   *geojson.FeatureCollection
}

func (s *GeoJSONSink) Open(grid pixel.Grid) error {
	s.grid = grid
	s.fc = geojson.NewFeatureCollection()
	return nil
}

func (s *GeoJSONSink) WriteTile(t pixel.Tile, labels []pixel.Label) error {
	if s.fc == nil {
		return fmt.Errorf("geojson %s is not open", s.Path)
	}
	for i, l := range labels {
		class, ok := l.Get()
		if !ok {
			continue
		}
		x, y := t.X0+i%t.W, t.Y0+i/t.W
		f := geojson.NewFeature(s.grid.Center(x, y))
		f.Properties["class"] = class
		f.Properties["x"] = x
		f.Properties["y"] = y
		s.fc.Append(f)
	}
	return nil
}

func (s *GeoJSONSink) Close() error {
	if s.fc == nil {
		return nil
	}
	defer func() { s.fc = nil }()

	if err := os.MkdirAll(filepath.Dir(s.Path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create GeoJSON folder: %w", err)
	}
	file, err := os.Create(s.Path)
	if err != nil {
		return fmt.Errorf("error creating GeoJSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.fc); err != nil {
		return fmt.Errorf("error encoding GeoJSON: %w", err)
	}
	log.Infof("GeoJSON with %d features written to %s", len(s.fc.Features), s.Path)
	return nil
}
