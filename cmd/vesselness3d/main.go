package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vesselness3d/internal/models"
	"vesselness3d/internal/phantom"
	"vesselness3d/pkg/config"
	"vesselness3d/pkg/diagnostics"
	"vesselness3d/pkg/hessian"
	"vesselness3d/pkg/mhd"
	"vesselness3d/pkg/vesselness"
	"vesselness3d/pkg/visualization"
	"vesselness3d/pkg/volmath"
)

func main() {
	// Parse command line arguments
	inputPath := flag.String("input", "", "MetaImage volume (.mhd or .mha) to filter")
	outputPath := flag.String("output", "vesselness.mhd", "Output MetaImage filename")
	configPath := flag.String("config", "", "YAML configuration file")
	phantomName := flag.String("phantom", "", "Filter a synthetic volume instead of -input (tube, plate or blob)")
	scaleStart := flag.Float64("scale-start", 1, "First Gaussian sigma")
	scaleStop := flag.Float64("scale-stop", 10, "Sigma upper bound (exclusive)")
	scaleStep := flag.Float64("scale-step", 2, "Sigma increment")
	alpha := flag.Float64("alpha", 0.5, "Plate-like suppression constant")
	beta := flag.Float64("beta", 0.5, "Blob-like suppression constant")
	frangiC := flag.Float64("frangi-c", 500, "Fixed background suppression constant")
	blackVessels := flag.Bool("black-vessels", true, "Keep voxels whose two largest eigenvalues are negative")
	estimateC := flag.Bool("estimate-c", true, "Estimate the background constant at every scale")
	numCores := flag.Int("cores", 0, "Number of CPU cores for the Hessian (default: all available)")
	scaleWorkers := flag.Int("scale-workers", 1, "Number of scales filtered concurrently")
	debugDir := flag.String("debug-dir", "", "Directory for intermediate volumes")
	preview := flag.String("preview", "", "Write a heat-map projection of the output to this PNG")
	flag.Parse()

	if *inputPath == "" && *phantomName == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	// Flags given explicitly on the command line override the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "scale-start":
			cfg.Vesselness.ScaleStart = *scaleStart
		case "scale-stop":
			cfg.Vesselness.ScaleStop = *scaleStop
		case "scale-step":
			cfg.Vesselness.ScaleStep = *scaleStep
		case "alpha":
			cfg.Vesselness.Alpha = *alpha
		case "beta":
			cfg.Vesselness.Beta = *beta
		case "frangi-c":
			cfg.Vesselness.FrangiC = *frangiC
		case "black-vessels":
			cfg.Vesselness.BlackVessels = *blackVessels
		case "estimate-c":
			cfg.Vesselness.EstimateFrangiC = *estimateC
		case "cores":
			cfg.Processing.NumCores = *numCores
		case "scale-workers":
			cfg.Processing.ScaleWorkers = *scaleWorkers
		case "debug-dir":
			cfg.Output.DebugDir = *debugDir
		}
	})

	fmt.Println("================================")
	fmt.Println("MULTI-SCALE FRANGI VESSELNESS FILTER")
	fmt.Println("================================")

	volume, source, err := loadVolume(*inputPath, *phantomName)
	if err != nil {
		log.Fatalf("Failed to load volume: %v", err)
	}
	fmt.Printf("Loaded %s with dimensions %v\n", source, volume.Shape)

	params := cfg.Params()
	scales, err := params.Scales()
	if err != nil {
		log.Fatalf("Invalid scale range: %v", err)
	}
	fmt.Printf("Scales: %v\n", scales)
	fmt.Printf("alpha=%.3f beta=%.3f background constant=%s\n", params.Alpha, params.Beta, describeConstant(params))

	filter := vesselness.NewFilter(params)
	filter.SetProvider(hessian.NewProvider(cfg.Processing.NumCores))

	if cfg.Output.DebugDir != "" {
		var logger *log.Logger
		if cfg.Output.Verbose {
			logger = log.New(os.Stdout, "debug: ", 0)
		} else {
			logger = log.New(io.Discard, "", 0)
		}
		sink, err := diagnostics.NewFileSink(cfg.Output.DebugDir, logger)
		if err != nil {
			log.Fatalf("Failed to create debug sink: %v", err)
		}
		sink.SetPreview(cfg.Output.PreviewImages)
		filter.SetSink(sink)
		fmt.Printf("Intermediate volumes will be saved to: %s\n", cfg.Output.DebugDir)
	}

	fmt.Println("Filtering...")
	startTime := time.Now()
	result, err := filter.Apply(volume)
	if err != nil {
		log.Fatalf("Vesselness filter failed: %v", err)
	}
	processingTime := time.Since(startTime)

	if err := mhd.Write(*outputPath, result); err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}

	stats := volmath.Summary(result)
	fmt.Printf("\nFiltering completed successfully in %.2f seconds!\n", processingTime.Seconds())
	fmt.Printf("Output volume saved to: %s\n", *outputPath)
	fmt.Printf("Response range: [%.6g, %.6g], mean %.6g, std %.6g\n", stats.Min, stats.Max, stats.Mean, stats.Std)

	if *preview != "" {
		viewer := visualization.NewViewer(result)
		viewer.AutoWindow()
		img, err := viewer.Heatmap("z")
		if err == nil {
			err = viewer.SaveImage(img, *preview, 4)
		}
		if err != nil {
			log.Printf("Warning: Failed to save preview: %v", err)
		} else {
			fmt.Printf("Preview saved to: %s\n", *preview)
		}
	}
}

// loadVolume reads the input file or builds the requested phantom
func loadVolume(inputPath, phantomName string) (*models.Volume, string, error) {
	if phantomName != "" {
		shape, ok := phantom.ParseShape(strings.ToLower(phantomName))
		if !ok {
			return nil, "", fmt.Errorf("unknown phantom %q", phantomName)
		}
		return phantom.New(shape, 48, 48, 32, 3, true), shape.String() + " phantom", nil
	}
	v, err := mhd.Read(inputPath)
	if err != nil {
		return nil, "", err
	}
	return v, filepath.Base(inputPath), nil
}

func describeConstant(p vesselness.Params) string {
	switch c := p.BackgroundConstant().(type) {
	case vesselness.Fixed:
		return fmt.Sprintf("fixed %.3f", float64(c))
	default:
		return "estimated per scale"
	}
}
