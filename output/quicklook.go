package output

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/forest-guardian/tidalflat-cli/internal/log"
	"github.com/forest-guardian/tidalflat-cli/internal/pixel"
)

var (
	Background = color.RGBA{R: 20, G: 24, B: 40, A: 255}
	// ColorMap colours classes in the quicklook; unlisted classes use Other.
	ColorMap = map[int]color.RGBA{
		0: {R: 40, G: 90, B: 200, A: 255},
		1: {R: 60, G: 160, B: 80, A: 255},
		2: {R: 240, G: 200, B: 60, A: 255},
	}
	Other = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// QuicklookSink renders the final raster to a PNG, one image pixel per grid
// pixel.
type QuicklookSink struct {
	Path string

	dc *gg.Context
}

func (s *QuicklookSink) Open(grid pixel.Grid) error {
	if grid.Width <= 0 || grid.Height <= 0 {
		return fmt.Errorf("cannot render an empty %dx%d grid", grid.Width, grid.Height)
	}
	s.dc = gg.NewContext(grid.Width, grid.Height)
	s.dc.SetColor(Background)
	s.dc.Clear()
	return nil
}

func (s *QuicklookSink) WriteTile(t pixel.Tile, labels []pixel.Label) error {
	if s.dc == nil {
		return fmt.Errorf("quicklook %s is not open", s.Path)
	}
	for i, l := range labels {
		class, ok := l.Get()
		if !ok {
			continue
		}
		c, known := ColorMap[class]
		if !known {
			c = Other
		}
		s.dc.SetColor(c)
		s.dc.SetPixel(t.X0+i%t.W, t.Y0+i/t.W)
	}
	return nil
}

func (s *QuicklookSink) Close() error {
	if s.dc == nil {
		return nil
	}
	defer func() { s.dc = nil }()
	if err := os.MkdirAll(filepath.Dir(s.Path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create quicklook folder: %w", err)
	}
	if err := s.dc.SavePNG(s.Path); err != nil {
		return fmt.Errorf("failed to save quicklook: %w", err)
	}
	log.Infof("quicklook written to %s", s.Path)
	return nil
}
