package raster

import (
	"fmt"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/tidalflat-cli/internal/pixel"
)

// GridFromFile takes the output grid from a reference GeoTIFF. The
// projection WKT is returned so sinks can stamp it on their output.
func GridFromFile(path string) (pixel.Grid, string, error) {
	ds, err := godal.Open(path)
	if err != nil {
		return pixel.Grid{}, "", fmt.Errorf("failed to open reference raster: %w", err)
	}
	defer ds.Close()

	gt, err := ds.GeoTransform()
	if err != nil {
		return pixel.Grid{}, "", fmt.Errorf("failed to read geotransform of %s: %w", path, err)
	}
	st := ds.Structure()
	return pixel.Grid{Width: st.SizeX, Height: st.SizeY, GeoTransform: gt}, ds.Projection(), nil
}

// readWindow reads one band over a tile into float64 and marks the band's
// no-data value.
func readWindow(band godal.Band, t pixel.Tile) ([]pixel.Value, error) {
	buf := make([]float64, t.W*t.H)
	if err := band.Read(t.X0, t.Y0, buf, t.W, t.H); err != nil {
		return nil, err
	}
	nodata, hasNoData := band.NoData()
	out := make([]pixel.Value, len(buf))
	for i, v := range buf {
		if hasNoData && v == nodata {
			continue
		}
		out[i] = pixel.Of(v)
	}
	return out, nil
}

func checkSize(ds *godal.Dataset, path string, t pixel.Tile) error {
	st := ds.Structure()
	if t.X0+t.W > st.SizeX || t.Y0+t.H > st.SizeY {
		return fmt.Errorf("%s (%dx%d) does not cover %s", path, st.SizeX, st.SizeY, t)
	}
	return nil
}
