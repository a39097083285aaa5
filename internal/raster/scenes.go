package raster

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/tidalflat-cli/internal/landsat"
	"github.com/forest-guardian/tidalflat-cli/internal/log"
	"github.com/forest-guardian/tidalflat-cli/internal/pixel"
)

var sceneName = regexp.MustCompile(`^([A-Z0-9]+)_(\d{4}-\d{2}-\d{2})\.tiff?$`)

// QualityBand is the band description holding the CFMask code.
const QualityBand = "cfmask"

type scene struct {
	path   string
	sensor string
	date   time.Time
}

// SceneArchive is a directory of surface reflectance scenes named
// <SENSOR>_<YYYY-MM-DD>.tif, all on the output grid. Band descriptions carry
// the native band names and the cfmask band.
type SceneArchive struct {
	dir    string
	scenes []scene
	// Scale multiplies every reflectance value read.
	Scale float64
}

func OpenSceneArchive(dir string) (*SceneArchive, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list scene archive: %w", err)
	}

	archive := &SceneArchive{dir: dir, Scale: 1}
	for _, e := range entries {
		m := sceneName.FindStringSubmatch(e.Name())
		if e.IsDir() || m == nil {
			continue
		}
		date, err := time.Parse("2006-01-02", m[2])
		if err != nil {
			log.Warnf("skipping scene %s: %v", e.Name(), err)
			continue
		}
		archive.scenes = append(archive.scenes, scene{path: filepath.Join(dir, e.Name()), sensor: m[1], date: date})
	}
	sort.Slice(archive.scenes, func(i, j int) bool {
		if !archive.scenes[i].date.Equal(archive.scenes[j].date) {
			return archive.scenes[i].date.Before(archive.scenes[j].date)
		}
		return archive.scenes[i].sensor < archive.scenes[j].sensor
	})
	log.Infof("scene archive %s holds %d scenes", dir, len(archive.scenes))
	return archive, nil
}

// Source names the archive by directory, scene list and scale.
func (a *SceneArchive) Source() string {
	names := make([]string, len(a.scenes))
	for i, s := range a.scenes {
		names[i] = filepath.Base(s.path)
	}
	return fmt.Sprintf("scenes:%s:%v:%s", a.dir, a.Scale, strings.Join(names, ","))
}

// Observations yields every pixel of every scene of sensor dated in
// [start, end) over the tile. The sequence can be ranged over again.
func (a *SceneArchive) Observations(ctx context.Context, sensor string, start, end time.Time, t pixel.Tile) iter.Seq2[landsat.RawObservation, error] {
	return func(yield func(landsat.RawObservation, error) bool) {
		for _, s := range a.scenes {
			if s.sensor != sensor || s.date.Before(start) || !s.date.Before(end) {
				continue
			}
			if err := ctx.Err(); err != nil {
				yield(landsat.RawObservation{}, err)
				return
			}
			observations, err := a.readScene(s, t)
			if err != nil {
				yield(landsat.RawObservation{}, fmt.Errorf("failed to read scene %s: %w", filepath.Base(s.path), err))
				return
			}
			for _, obs := range observations {
				if !yield(obs, nil) {
					return
				}
			}
		}
	}
}

func (a *SceneArchive) readScene(s scene, t pixel.Tile) ([]landsat.RawObservation, error) {
	ds, err := godal.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer ds.Close()
	if err := checkSize(ds, s.path, t); err != nil {
		return nil, err
	}

	bands := map[string][]pixel.Value{}
	for i, band := range ds.Bands() {
		name := strings.TrimSpace(band.Description())
		if name == "" {
			name = fmt.Sprintf("B%d", i+1)
		}
		values, err := readWindow(band, t)
		if err != nil {
			return nil, fmt.Errorf("band %s: %w", name, err)
		}
		bands[name] = values
	}
	quality, ok := bands[QualityBand]
	if !ok {
		return nil, fmt.Errorf("no %s band", QualityBand)
	}
	delete(bands, QualityBand)

	scale := a.Scale
	if scale == 0 {
		scale = 1
	}
	out := make([]landsat.RawObservation, 0, t.W*t.H)
	for i := 0; i < t.W*t.H; i++ {
		obs := landsat.RawObservation{
			X:       t.X0 + i%t.W,
			Y:       t.Y0 + i/t.W,
			Sensor:  s.sensor,
			Date:    s.date,
			Bands:   make(map[string]float64, len(bands)),
			Quality: landsat.QualityFill,
		}
		if code, ok := quality[i].Get(); ok {
			obs.Quality = landsat.QualityFromCFMask(int(code))
		}
		for name, values := range bands {
			if v, ok := values[i].Get(); ok {
				obs.Bands[name] = v * scale
			}
		}
		out = append(out, obs)
	}
	return out, nil
}
