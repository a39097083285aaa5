package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"

	"github.com/airbusgeo/godal"
	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
	"github.com/forest-guardian/tidalflat-cli/internal/boundary"
	"github.com/forest-guardian/tidalflat-cli/internal/log"
	"github.com/forest-guardian/tidalflat-cli/internal/ml"
	"github.com/forest-guardian/tidalflat-cli/internal/notification"
	"github.com/forest-guardian/tidalflat-cli/internal/pipeline"
	"github.com/forest-guardian/tidalflat-cli/internal/properties"
	"github.com/forest-guardian/tidalflat-cli/internal/raster"
	"github.com/forest-guardian/tidalflat-cli/output"
	"github.com/joho/godotenv"
)

func printBanner() {
	figure1 := figure.NewFigure("Tidal Flat", "isometric1", true)
	figure2 := figure.NewFigure("CLI", "isometric1", true)
	bannercolor.Cyan(figure1.String())
	bannercolor.Cyan(figure2.String())
	fmt.Println()
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s <train|classify> [flags]\n", filepath.Base(os.Args[0]))
	fmt.Fprintf(os.Stderr, "run '%s <command> -h' for the flags of a command\n", filepath.Base(os.Args[0]))
}

func loadOptions(path string) (properties.Options, error) {
	if path == "" {
		o := properties.Default()
		return o, o.Validate()
	}
	return properties.LoadFile(path)
}

func dataPath(name string) string {
	if filepath.IsAbs(name) || properties.RootPath() == "" {
		return name
	}
	return filepath.Join(properties.RootPath(), "data", name)
}

func runTrain(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML options file")
	pointsPath := fs.String("points", "", "training points CSV with precomputed features")
	modelPath := fs.String("model", "model/tidalflat.gob", "where to write the trained model")
	reportPath := fs.String("report", "", "where to write the validation confusion matrix CSV")
	debugLog := fs.Bool("debug", false, "debug logging")
	fs.Parse(args)

	if err := log.Init(*debugLog); err != nil {
		return err
	}
	if *pointsPath == "" {
		return errors.New("-points is required")
	}
	opts, err := loadOptions(*configPath)
	if err != nil {
		return err
	}

	file, err := os.Open(dataPath(*pointsPath))
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	model, report, err := pipeline.TrainModel(ctx, file, opts)
	if err != nil {
		return err
	}

	out := dataPath(*modelPath)
	if err := os.MkdirAll(filepath.Dir(out), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create model folder: %w", err)
	}
	modelFile, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create model file: %w", err)
	}
	defer modelFile.Close()
	if err := model.Save(modelFile); err != nil {
		return err
	}
	log.Infof("model written to %s", out)

	if *reportPath != "" {
		reportFile, err := os.Create(dataPath(*reportPath))
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer reportFile.Close()
		if err := report.WriteReport(reportFile); err != nil {
			return err
		}
	}
	bannercolor.Green("Validation accuracy: %.2f%% (%d/%d)\n", report.Accuracy*100, report.Correct, report.Total)
	return nil
}

func runClassify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("classify", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML options file")
	modelPath := fs.String("model", "model/tidalflat.gob", "trained model")
	gridPath := fs.String("grid", "", "reference GeoTIFF defining the output grid")
	scenesDir := fs.String("scenes", "scenes", "directory of <SENSOR>_<YYYY-MM-DD>.tif scenes")
	scale := fs.Float64("scale", 1, "reflectance scale factor")
	elevationPath := fs.String("elevation", "", "elevation GeoTIFF")
	waterPath := fs.String("water", "", "surface water occurrence GeoTIFF")
	landPath := fs.String("land", "", "land surface GeoTIFF, required when the land mask is enabled")
	coastlinePath := fs.String("coastline", "", "coastline GeoJSON")
	terrestrialPath := fs.String("terrestrial", "", "unbuffered terrestrial boundary GeoJSON, grown by terrestrialBuffer (use 0 for a pre-buffered file)")
	outPath := fs.String("out", "result/tidalflat.tif", "output GeoTIFF")
	quicklookPath := fs.String("quicklook", "", "optional PNG quicklook")
	geojsonPath := fs.String("geojson", "", "optional GeoJSON of tidal flat pixel centres")
	debugLog := fs.Bool("debug", false, "debug logging")
	fs.Parse(args)

	if err := log.Init(*debugLog); err != nil {
		return err
	}
	if *gridPath == "" || *elevationPath == "" || *waterPath == "" {
		return errors.New("-grid, -elevation and -water are required")
	}
	opts, err := loadOptions(*configPath)
	if err != nil {
		return err
	}
	if opts.MaskApplySRTM && *landPath == "" {
		return fmt.Errorf("%w: the land mask is enabled but -land is not set", properties.ErrConfig)
	}

	modelFile, err := os.Open(dataPath(*modelPath))
	if err != nil {
		return fmt.Errorf("error opening model: %w", err)
	}
	model, err := ml.Load(modelFile)
	modelFile.Close()
	if err != nil {
		return err
	}

	grid, projection, err := raster.GridFromFile(dataPath(*gridPath))
	if err != nil {
		return err
	}
	archive, err := raster.OpenSceneArchive(dataPath(*scenesDir))
	if err != nil {
		return err
	}
	archive.Scale = *scale

	covariates := raster.CovariateRasters{
		ElevationPath:       dataPath(*elevationPath),
		WaterOccurrencePath: dataPath(*waterPath),
	}
	if *landPath != "" {
		covariates.LandSurfacePath = dataPath(*landPath)
	}
	store := boundary.FileStore{}
	if *coastlinePath != "" {
		store.CoastlinePath = dataPath(*coastlinePath)
	}
	if *terrestrialPath != "" {
		store.TerrestrialPath = dataPath(*terrestrialPath)
	}

	out := dataPath(*outPath)
	if err := os.MkdirAll(filepath.Dir(out), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create result folder: %w", err)
	}
	sinks := output.MultiSink{&raster.GeoTIFFSink{Path: out, Projection: projection}}
	if *quicklookPath != "" {
		sinks = append(sinks, &output.QuicklookSink{Path: dataPath(*quicklookPath)})
	}
	if *geojsonPath != "" {
		sinks = append(sinks, &output.GeoJSONSink{Path: dataPath(*geojsonPath)})
	}

	p, err := pipeline.New(opts, archive, covariates, store, model, sinks)
	if err != nil {
		return err
	}
	p.Progress = true

	webhook := notification.Webhook{URL: opts.WebhookURL}
	summary, err := p.Run(ctx, grid)
	if err != nil {
		if notifyErr := webhook.RunFailed(context.Background(), err); notifyErr != nil {
			log.Warnf("failed to send notification: %v", notifyErr)
		}
		return err
	}
	if err := webhook.RunSucceeded(ctx, out, summary); err != nil {
		log.Warnf("failed to send notification: %v", err)
	}
	bannercolor.Green("%d tidal flat pixels written to %s\n", summary.Kept, out)
	return nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			fmt.Println("No .env file found, using the environment as is")
		}
	}
	printBanner()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	defer func() {
		if r := recover(); r != nil {
			bannercolor.Red("PANIC: %v\n", r)
			msg := fmt.Errorf("panic: %v\n\nStack trace:\n%s", r, debug.Stack())
			webhook := notification.Webhook{URL: os.Getenv("TIDALFLAT_WEBHOOK_URL")}
			if err := webhook.RunFailed(context.Background(), msg); err != nil {
				bannercolor.Red("Failed to send notification: %s\n", err)
			}
			os.Exit(1)
		}
	}()

	godal.RegisterAll()

	var err error
	switch os.Args[1] {
	case "train":
		err = runTrain(ctx, os.Args[2:])
	case "classify":
		err = runClassify(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	log.Sync()

	if err != nil {
		bannercolor.Red("Error: %s\n", err)
		if errors.Is(err, properties.ErrConfig) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}
