package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"

	"porenet/internal/logger"
	"porenet/pkg/config"
	"porenet/pkg/pipeline"
)

func main() {
	// Parse command line arguments
	input := flag.String("input", "", "Directory of slice images, or a raw voxel file when -shape is set")
	shape := flag.String("shape", "", "Shape of a raw input, e.g. 200,200,200")
	configPath := flag.String("config", "porenet.yaml", "YAML configuration file")
	initConfig := flag.Bool("init-config", false, "Write the default configuration to -config and exit")
	method := flag.String("method", "", "Extraction method: snow or maxball (overrides the configuration)")
	output := flag.String("output", "network.json", "Output network JSON file")
	voxelize := flag.String("voxelize", "", "Also render the network into this raw voxel file")
	numCores := flag.Int("cores", 0, "Number of CPU cores to use (default: configuration or all available)")
	saveIntermediary := flag.Bool("save-intermediary", false, "Save slice previews of each stage")
	intermediaryDir := flag.String("intermediary-dir", "", "Directory for stage previews (overrides the configuration)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn or error (overrides the configuration)")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write configuration: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	// Validate inputs
	if *input == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *method != "" {
		cfg.Extraction.Method = *method
	}
	if *numCores > 0 {
		cfg.Processing.NumCores = *numCores
	}
	if cfg.Processing.NumCores == 0 {
		cfg.Processing.NumCores = runtime.NumCPU()
	}
	if *saveIntermediary {
		cfg.Output.SaveIntermediaryResults = true
	}
	if *intermediaryDir != "" {
		cfg.Output.IntermediaryDir = *intermediaryDir
	}
	if *logLevel != "" {
		cfg.Output.LogLevel = *logLevel
	}

	log := logger.NewConsole(logger.ParseLevel(cfg.Output.LogLevel))

	dims, err := parseShape(*shape)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid -shape")
	}

	params := &pipeline.Params{
		InputPath:      *input,
		Shape:          dims,
		OutputFile:     *output,
		VoxelImageFile: *voxelize,
		Config:         cfg,
		Logger:         &log,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Info().
		Str("method", cfg.Extraction.Method).
		Int("cores", cfg.Processing.NumCores).
		Msg("Starting pore network extraction")
	p := pipeline.NewPipeline(params)
	if err := p.Process(ctx); err != nil {
		log.Fatal().Err(err).Msg("Extraction failed")
	}

	m := p.GetMetrics()
	fmt.Printf("\nExtraction completed successfully in %.2f seconds!\n", m.Elapsed.Seconds())
	fmt.Printf("Network saved to: %s\n\n", *output)

	fmt.Printf("Network Summary:\n")
	fmt.Printf("================\n")
	fmt.Printf("Porosity: %.3f\n", m.Porosity)
	fmt.Printf("Pores: %d (%d on the boundary, %d isolated)\n", m.Network.NumPores, m.Network.BoundaryPores, m.Network.Isolated)
	fmt.Printf("Throats: %d\n", m.Network.NumThroats)
	fmt.Printf("Mean coordination number: %.3f\n", m.Network.MeanCoordination)
	fmt.Printf("Pore diameter: %.4g +/- %.4g\n", m.Network.MeanPoreDiameter, m.Network.StdPoreDiameter)
	fmt.Printf("Throat diameter: %.4g +/- %.4g\n", m.Network.MeanThroatDiameter, m.Network.StdThroatDiameter)
	if *voxelize != "" {
		fmt.Printf("\nVoxel image saved to: %s (porosity %.3f)\n", *voxelize, m.VoxelImagePorosity)
	}

	// Print information about intermediary results if saved
	if previews := p.Previews(); len(previews) > 0 {
		fmt.Println("\nStage previews saved to:")
		for _, dir := range previews {
			fmt.Printf("- %s\n", dir)
		}
	}
}

// parseShape reads a comma separated list of positive axis lengths.
func parseShape(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	dims := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("bad axis length %q", part)
		}
		dims[i] = n
	}
	return dims, nil
}
