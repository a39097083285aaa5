package raster

import (
	"fmt"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/tidalflat-cli/internal/log"
	"github.com/forest-guardian/tidalflat-cli/internal/pixel"
)

// NoDataByte marks pixels without a label in the output GeoTIFF.
const NoDataByte = 255

// GeoTIFFSink writes the final raster as a single-band Byte GeoTIFF. Calls
// must not overlap.
type GeoTIFFSink struct {
	Path       string
	Projection string

	ds *godal.Dataset
}

func (s *GeoTIFFSink) Open(grid pixel.Grid) error {
	ds, err := godal.Create(godal.GTiff, s.Path, 1, godal.Byte, grid.Width, grid.Height,
		godal.CreationOption("TILED=YES", "COMPRESS=DEFLATE"))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", s.Path, err)
	}
	if err := ds.SetGeoTransform(grid.GeoTransform); err != nil {
		ds.Close()
		return fmt.Errorf("failed to set geotransform: %w", err)
	}
	if s.Projection != "" {
		if err := ds.SetProjection(s.Projection); err != nil {
			ds.Close()
			return fmt.Errorf("failed to set projection: %w", err)
		}
	}
	if err := ds.Bands()[0].SetNoData(NoDataByte); err != nil {
		ds.Close()
		return fmt.Errorf("failed to set no-data: %w", err)
	}
	s.ds = ds
	return nil
}

func (s *GeoTIFFSink) WriteTile(t pixel.Tile, labels []pixel.Label) error {
	if s.ds == nil {
		return fmt.Errorf("sink %s is not open", s.Path)
	}
	buf := make([]byte, len(labels))
	for i, l := range labels {
		buf[i] = labelByte(l)
	}
	if err := s.ds.Bands()[0].Write(t.X0, t.Y0, buf, t.W, t.H); err != nil {
		return fmt.Errorf("failed to write %s: %w", t, err)
	}
	return nil
}

func (s *GeoTIFFSink) Close() error {
	if s.ds == nil {
		return nil
	}
	err := s.ds.Close()
	s.ds = nil
	if err != nil {
		return fmt.Errorf("failed to close %s: %w", s.Path, err)
	}
	log.Infof("classified raster written to %s", s.Path)
	return nil
}

func labelByte(l pixel.Label) byte {
	c, ok := l.Get()
	if !ok || c < 0 || c >= NoDataByte {
		return NoDataByte
	}
	return byte(c)
}
