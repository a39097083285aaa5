package properties

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// ErrConfig marks every configuration problem. Configuration errors are fatal
// at startup.
var ErrConfig = errors.New("configuration error")

const dateLayout = "2006-01-02"

func RootPath() string {
	return os.Getenv("ROOT_PATH")
}

// TerrestrialMode selects which side of the buffered terrestrial boundary is
// removed from the output.
type TerrestrialMode string

const (
	ExcludeInside  TerrestrialMode = "inside"
	ExcludeOutside TerrestrialMode = "outside"
)

// Options is the immutable run configuration. Build it with Default, Load or
// LoadFile and pass it by value.
type Options struct {
	StartDate  time.Time
	EndDate    time.Time
	BandSelect []string
	// Sensors maps a sensor identifier to its native band names, in
	// BandSelect order.
	Sensors map[string][]string

	MaskAltitude        float64
	MaskDepth           float64
	MaskDistance        float64
	CoastTolerance      float64
	MaskApplySRTM       bool
	LandThreshold       float64
	ConnectedPixels     int
	Connectivity        int
	TidalFlatClass      int
	TerrestrialExclude  TerrestrialMode
	TerrestrialBuffer   float64
	WaterOccurrenceFill float64

	NTrees            int
	VariablesPerSplit int
	BagFraction       float64
	MinLeafPopulation int
	Seed              int64

	TrainingValidationRatio float64
	SplitSeed               int64
	ClassColumn             string

	OutScale   float64
	TileSize   int
	Workers    int
	CacheDir   string
	WebhookURL string
}

func Default() Options {
	return Options{
		StartDate:  time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2016, 12, 31, 0, 0, 0, 0, time.UTC),
		BandSelect: []string{"green", "swir1", "swir2", "nir", "red"},
		Sensors: map[string][]string{
			"LT4": {"B2", "B5", "B7", "B4", "B3"},
			"LT5": {"B2", "B5", "B7", "B4", "B3"},
			"LE7": {"B2", "B5", "B7", "B4", "B3"},
			"LC8": {"B3", "B6", "B7", "B5", "B4"},
		},
		MaskAltitude:        100,
		MaskDepth:           -100,
		MaskDistance:        50000,
		CoastTolerance:      20,
		MaskApplySRTM:       false,
		LandThreshold:       0,
		ConnectedPixels:     100,
		Connectivity:        8,
		TidalFlatClass:      2,
		TerrestrialExclude:  ExcludeInside,
		TerrestrialBuffer:   5000,
		WaterOccurrenceFill: 0,

		NTrees:            10,
		VariablesPerSplit: 0,
		BagFraction:       0.5,
		MinLeafPopulation: 1,
		Seed:              0,

		TrainingValidationRatio: 0.0001,
		SplitSeed:               0,
		ClassColumn:             "CLASS",

		OutScale: 30,
		TileSize: 256,
		Workers:  8,
	}
}

// fileOptions mirrors Options with YAML-friendly types. Pointer fields keep
// the defaults when a key is absent.
type fileOptions struct {
	StartDate  string              `yaml:"startDate"`
	EndDate    string              `yaml:"endDate"`
	BandSelect []string            `yaml:"bandSelect"`
	Sensors    map[string][]string `yaml:"sensors"`

	MaskAltitude        *float64 `yaml:"maskAltitude"`
	MaskDepth           *float64 `yaml:"maskDepth"`
	MaskDistance        *float64 `yaml:"maskDistance"`
	CoastTolerance      *float64 `yaml:"coastTolerance"`
	MaskApplySRTM       *bool    `yaml:"maskApplySRTM"`
	LandThreshold       *float64 `yaml:"landThreshold"`
	ConnectedPixels     *int     `yaml:"conPixels"`
	Connectivity        *int     `yaml:"connectivity"`
	TidalFlatClass      *int     `yaml:"tidalFlatClass"`
	TerrestrialExclude  string   `yaml:"terrestrialExclude"`
	TerrestrialBuffer   *float64 `yaml:"terrestrialBuffer"`
	WaterOccurrenceFill *float64 `yaml:"waterOccurrenceFill"`

	NTrees            *int     `yaml:"nTrees"`
	VariablesPerSplit *int     `yaml:"variablesPerSplit"`
	BagFraction       *float64 `yaml:"bagFraction"`
	MinLeafPopulation *int     `yaml:"minLeafPopulation"`
	Seed              *int64   `yaml:"seed"`

	TrainingValidationRatio *float64 `yaml:"trainingValidationRatio"`
	SplitSeed               *int64   `yaml:"splitSeed"`
	ClassColumn             string   `yaml:"classColumn"`

	OutScale   *float64 `yaml:"outScale"`
	TileSize   *int     `yaml:"tileSize"`
	Workers    *int     `yaml:"workers"`
	CacheDir   string   `yaml:"cacheDir"`
	WebhookURL string   `yaml:"webhookUrl"`
}

// LoadFile reads a YAML options file on top of the defaults, applies
// environment overrides and validates the result.
func LoadFile(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("failed to read options file %s: %w", path, err)
	}
	return Load(data)
}

func Load(data []byte) (Options, error) {
	var f fileOptions
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return Options{}, fmt.Errorf("%w: malformed options: %v", ErrConfig, err)
	}

	o := Default()
	if err := f.apply(&o); err != nil {
		return Options{}, err
	}
	if err := applyEnv(&o); err != nil {
		return Options{}, err
	}
	if err := o.Validate(); err != nil {
		return Options{}, err
	}
	return o, nil
}

func (f fileOptions) apply(o *Options) error {
	var err error
	if f.StartDate != "" {
		if o.StartDate, err = time.Parse(dateLayout, f.StartDate); err != nil {
			return fmt.Errorf("%w: startDate: %v", ErrConfig, err)
		}
	}
	if f.EndDate != "" {
		if o.EndDate, err = time.Parse(dateLayout, f.EndDate); err != nil {
			return fmt.Errorf("%w: endDate: %v", ErrConfig, err)
		}
	}
	if f.BandSelect != nil {
		o.BandSelect = f.BandSelect
	}
	if f.Sensors != nil {
		o.Sensors = f.Sensors
	}
	setFloat(&o.MaskAltitude, f.MaskAltitude)
	setFloat(&o.MaskDepth, f.MaskDepth)
	setFloat(&o.MaskDistance, f.MaskDistance)
	setFloat(&o.CoastTolerance, f.CoastTolerance)
	if f.MaskApplySRTM != nil {
		o.MaskApplySRTM = *f.MaskApplySRTM
	}
	setFloat(&o.LandThreshold, f.LandThreshold)
	setInt(&o.ConnectedPixels, f.ConnectedPixels)
	setInt(&o.Connectivity, f.Connectivity)
	setInt(&o.TidalFlatClass, f.TidalFlatClass)
	if f.TerrestrialExclude != "" {
		o.TerrestrialExclude = TerrestrialMode(f.TerrestrialExclude)
	}
	setFloat(&o.TerrestrialBuffer, f.TerrestrialBuffer)
	setFloat(&o.WaterOccurrenceFill, f.WaterOccurrenceFill)
	setInt(&o.NTrees, f.NTrees)
	setInt(&o.VariablesPerSplit, f.VariablesPerSplit)
	setFloat(&o.BagFraction, f.BagFraction)
	setInt(&o.MinLeafPopulation, f.MinLeafPopulation)
	if f.Seed != nil {
		o.Seed = *f.Seed
	}
	setFloat(&o.TrainingValidationRatio, f.TrainingValidationRatio)
	if f.SplitSeed != nil {
		o.SplitSeed = *f.SplitSeed
	}
	if f.ClassColumn != "" {
		o.ClassColumn = f.ClassColumn
	}
	setFloat(&o.OutScale, f.OutScale)
	setInt(&o.TileSize, f.TileSize)
	setInt(&o.Workers, f.Workers)
	if f.CacheDir != "" {
		o.CacheDir = f.CacheDir
	}
	if f.WebhookURL != "" {
		o.WebhookURL = f.WebhookURL
	}
	return nil
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// applyEnv lets the deployment override the operational knobs without
// touching the options file.
func applyEnv(o *Options) error {
	if v := os.Getenv("TIDALFLAT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: TIDALFLAT_WORKERS=%q: %v", ErrConfig, v, err)
		}
		o.Workers = n
	}
	if v := os.Getenv("TIDALFLAT_TILE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: TIDALFLAT_TILE_SIZE=%q: %v", ErrConfig, v, err)
		}
		o.TileSize = n
	}
	if v := os.Getenv("TIDALFLAT_CACHE_DIR"); v != "" {
		o.CacheDir = v
	}
	if v := os.Getenv("TIDALFLAT_WEBHOOK_URL"); v != "" {
		o.WebhookURL = v
	}
	return nil
}

var canonicalBands = map[string]bool{
	"green": true, "swir1": true, "swir2": true, "nir": true, "red": true,
}

func (o Options) Validate() error {
	if !o.StartDate.Before(o.EndDate) {
		return fmt.Errorf("%w: start date %s is not before end date %s", ErrConfig,
			o.StartDate.Format(dateLayout), o.EndDate.Format(dateLayout))
	}
	if len(o.BandSelect) != len(canonicalBands) {
		return fmt.Errorf("%w: band select must name %d canonical bands, got %v", ErrConfig, len(canonicalBands), o.BandSelect)
	}
	seen := map[string]bool{}
	for _, b := range o.BandSelect {
		if !canonicalBands[b] {
			return fmt.Errorf("%w: unknown canonical band %q", ErrConfig, b)
		}
		if seen[b] {
			return fmt.Errorf("%w: duplicate canonical band %q", ErrConfig, b)
		}
		seen[b] = true
	}
	if len(o.Sensors) == 0 {
		return fmt.Errorf("%w: no sensors configured", ErrConfig)
	}
	for sensor, bands := range o.Sensors {
		if len(bands) != len(o.BandSelect) {
			return fmt.Errorf("%w: sensor %s maps %d bands, want %d", ErrConfig, sensor, len(bands), len(o.BandSelect))
		}
		native := map[string]bool{}
		for _, b := range bands {
			if b == "" || native[b] {
				return fmt.Errorf("%w: sensor %s has an empty or duplicate native band %q", ErrConfig, sensor, b)
			}
			native[b] = true
		}
	}
	if o.MaskDepth > o.MaskAltitude {
		return fmt.Errorf("%w: minDepth %v is above maxAltitude %v", ErrConfig, o.MaskDepth, o.MaskAltitude)
	}
	if o.MaskDistance < 0 || o.CoastTolerance < 0 || o.TerrestrialBuffer < 0 {
		return fmt.Errorf("%w: coastal distance, tolerance and terrestrial buffer must be non-negative", ErrConfig)
	}
	if o.ConnectedPixels < 1 {
		return fmt.Errorf("%w: conPixels must be at least 1, got %d", ErrConfig, o.ConnectedPixels)
	}
	if o.Connectivity != 4 && o.Connectivity != 8 {
		return fmt.Errorf("%w: connectivity must be 4 or 8, got %d", ErrConfig, o.Connectivity)
	}
	if o.TerrestrialExclude != ExcludeInside && o.TerrestrialExclude != ExcludeOutside {
		return fmt.Errorf("%w: terrestrialExclude must be %q or %q, got %q", ErrConfig, ExcludeInside, ExcludeOutside, o.TerrestrialExclude)
	}
	if o.WaterOccurrenceFill < 0 || o.WaterOccurrenceFill > 100 {
		return fmt.Errorf("%w: waterOccurrenceFill must be within 0..100", ErrConfig)
	}
	if o.NTrees < 1 {
		return fmt.Errorf("%w: nTrees must be at least 1, got %d", ErrConfig, o.NTrees)
	}
	if o.VariablesPerSplit < 0 {
		return fmt.Errorf("%w: variablesPerSplit must not be negative", ErrConfig)
	}
	if o.BagFraction <= 0 || o.BagFraction > 1 {
		return fmt.Errorf("%w: bagFraction must be within (0,1], got %v", ErrConfig, o.BagFraction)
	}
	if o.MinLeafPopulation < 1 {
		return fmt.Errorf("%w: minLeafPopulation must be at least 1", ErrConfig)
	}
	if o.TrainingValidationRatio < 0 || o.TrainingValidationRatio > 1 {
		return fmt.Errorf("%w: trainingValidationRatio must be within [0,1], got %v", ErrConfig, o.TrainingValidationRatio)
	}
	if o.ClassColumn == "" {
		return fmt.Errorf("%w: classColumn must be set", ErrConfig)
	}
	if o.OutScale <= 0 {
		return fmt.Errorf("%w: outScale must be positive", ErrConfig)
	}
	if o.TileSize < 1 || o.Workers < 1 {
		return fmt.Errorf("%w: tileSize and workers must be positive", ErrConfig)
	}
	return nil
}
