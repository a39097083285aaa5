package pixel

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Grid is the raster geometry shared by the reflectance archive, the
// covariate layers and the output. GeoTransform follows the GDAL convention.
type Grid struct {
	Width        int
	Height       int
	GeoTransform [6]float64
}

// Center returns the map coordinates of the centre of pixel (x, y).
func (g Grid) Center(x, y int) orb.Point {
	gt := g.GeoTransform
	fx, fy := float64(x)+0.5, float64(y)+0.5
	return orb.Point{
		gt[0] + gt[1]*fx + gt[2]*fy,
		gt[3] + gt[4]*fx + gt[5]*fy,
	}
}

// Tile is a rectangular window of the grid in pixel coordinates.
type Tile struct {
	ID int
	X0 int
	Y0 int
	W  int
	H  int
}

func (t Tile) String() string {
	return fmt.Sprintf("tile %d [x=%d..%d, y=%d..%d]", t.ID, t.X0, t.X0+t.W-1, t.Y0, t.Y0+t.H-1)
}

func (t Tile) Contains(x, y int) bool {
	return x >= t.X0 && x < t.X0+t.W && y >= t.Y0 && y < t.Y0+t.H
}

// Tiles partitions the grid into size x size windows, row-major. Edge tiles
// are clipped to the grid.
func (g Grid) Tiles(size int) []Tile {
	if size <= 0 {
		size = max(g.Width, g.Height)
	}
	var tiles []Tile
	for y0 := 0; y0 < g.Height; y0 += size {
		for x0 := 0; x0 < g.Width; x0 += size {
			tiles = append(tiles, Tile{
				ID: len(tiles),
				X0: x0,
				Y0: y0,
				W:  min(size, g.Width-x0),
				H:  min(size, g.Height-y0),
			})
		}
	}
	return tiles
}
