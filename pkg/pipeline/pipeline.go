// Package pipeline runs the complete extraction workflow: load a binary image,
// segment it and extract its pore network, summarize the network, write it as
// JSON and optionally render it back into a voxel image.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/spatial/r3"

	"porenet/internal/logger"
	"porenet/internal/models"
	"porenet/pkg/config"
	"porenet/pkg/distance"
	"porenet/pkg/extraction"
	"porenet/pkg/generators"
	"porenet/pkg/imageio"
	"porenet/pkg/maxball"
	"porenet/pkg/network"
	"porenet/pkg/peaks"
	"porenet/pkg/synthesis"
	"porenet/pkg/visualization"
	"porenet/pkg/watershed"
)

// Metrics summarizes a finished run.
type Metrics struct {
	// Porosity is the void fraction of the input image
	Porosity float64 `json:"porosity"`

	// Network holds the counts and size statistics of the extracted network
	Network network.Summary `json:"network"`

	// VoxelImagePorosity is the void fraction of the synthesized image, or
	// zero when no image was synthesized
	VoxelImagePorosity float64 `json:"voxel_image_porosity,omitempty"`

	// Elapsed is the wall time of Process
	Elapsed time.Duration `json:"elapsed"`
}

// Params holds the input, output and processing configuration of a run.
type Params struct {
	// InputPath is a directory of slice images, or a raw voxel file when
	// Shape is set
	InputPath string

	// Shape is the shape of a raw input; empty means InputPath is a slice stack
	Shape []int

	// OutputFile receives the network as JSON; empty skips writing
	OutputFile string

	// VoxelImageFile receives the synthesized voxel image as raw bytes;
	// empty skips synthesis
	VoxelImageFile string

	// Config holds the algorithm settings; nil uses config.DefaultConfig
	Config *config.Config

	// Logger receives stage progress; nil disables logging
	Logger *zerolog.Logger
}

// Pipeline handles one extraction run. The stages are:
// 1. Loading the binary image
// 2. Extracting the network (SNOW or maximal ball)
// 3. Calculating metrics
// 4. Writing the network
// 5. Synthesizing a voxel image, when requested
type Pipeline struct {
	params *Params
	cfg    *config.Config
	log    zerolog.Logger

	// image is the binary input, true = void
	image *models.Binary

	// snow holds the segmentation of a SNOW run
	snow *watershed.SnowResult

	net     *network.Network
	voxels  *models.Binary
	metrics Metrics

	// previews lists the stage directories written so far
	previews []string
}

// NewPipeline creates a pipeline for params.
func NewPipeline(params *Params) *Pipeline {
	cfg := params.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Pipeline{params: params, cfg: cfg, log: logger.OrNop(params.Logger)}
}

// SetImage supplies the input directly and skips the loading stage.
func (p *Pipeline) SetImage(im *models.Binary) {
	p.image = im
}

// Process runs every stage. The context is checked between stages and
// passed to the external extractor.
func (p *Pipeline) Process(ctx context.Context) error {
	start := time.Now()
	if err := p.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	out := p.cfg.Output
	if out.SaveIntermediaryResults {
		if err := os.MkdirAll(out.IntermediaryDir, 0755); err != nil {
			return fmt.Errorf("failed to create intermediary directory: %w", err)
		}
	}

	// Step 1: Load the binary image
	if p.image == nil {
		p.log.Info().Str("input", p.params.InputPath).Msg("Step 1: Loading image")
		if err := p.load(); err != nil {
			return fmt.Errorf("failed to load image: %w", err)
		}
	}
	p.log.Info().Ints("shape", p.image.Shape).Msg("image ready")
	p.savePreview("01_image", visualization.NewBinaryViewer(p.image))
	if err := ctx.Err(); err != nil {
		return err
	}

	// Step 2: Extract the network
	p.log.Info().Str("method", p.cfg.Extraction.Method).Msg("Step 2: Extracting network")
	if err := p.extract(ctx); err != nil {
		return fmt.Errorf("failed to extract network: %w", err)
	}
	if p.snow != nil {
		p.savePreview("02_distance", visualization.NewFieldViewer(p.snow.DistanceField))
		p.savePreview("03_regions", visualization.NewLabelViewer(p.snow.Regions))
		if d := p.net.Pore.Scalars(network.PoreInscribedDiameter); d != nil {
			if f, err := extraction.MapToRegions(p.snow.Regions, d); err == nil {
				p.savePreview("04_inscribed_diameter", visualization.NewFieldViewer(f))
			} else {
				p.log.Warn().Err(err).Msg("failed to map pore sizes to regions")
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Step 3: Calculate metrics
	p.log.Info().Msg("Step 3: Calculating metrics")
	p.metrics.Porosity = generators.Porosity(p.image)
	p.metrics.Network = p.net.Summarize()

	// Step 4: Write the network
	if p.params.OutputFile != "" {
		p.log.Info().Str("output", p.params.OutputFile).Msg("Step 4: Writing network")
		if err := writeNetwork(p.net, p.params.OutputFile); err != nil {
			return fmt.Errorf("failed to write network: %w", err)
		}
	}

	// Step 5: Synthesize a voxel image
	if p.params.VoxelImageFile != "" {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.log.Info().Str("output", p.params.VoxelImageFile).Msg("Step 5: Synthesizing voxel image")
		if err := p.synthesize(); err != nil {
			return fmt.Errorf("failed to synthesize voxel image: %w", err)
		}
		p.savePreview("05_voxel_image", visualization.NewBinaryViewer(p.voxels))
	}

	p.metrics.Elapsed = time.Since(start)
	return nil
}

func (p *Pipeline) load() error {
	spacing := []float64{p.cfg.Processing.VoxelSize}
	var (
		im  *models.Binary
		err error
	)
	if len(p.params.Shape) > 0 {
		im, err = imageio.LoadRaw(p.params.InputPath, p.params.Shape, imageio.RawOptions{Spacing: spacing})
	} else {
		im, err = imageio.LoadStack(p.params.InputPath, imageio.StackOptions{
			Threshold: p.cfg.Processing.VoidThreshold,
			Spacing:   spacing,
		})
	}
	if err != nil {
		return err
	}
	p.image = im
	return nil
}

// Extractor returns the network extractor selected by the configuration.
func (p *Pipeline) Extractor() network.NetworkExtractor {
	if p.cfg.Extraction.Method == config.MethodMaxBall {
		mb := p.cfg.MaxBall
		return &maxball.Adapter{
			Executable:  mb.Executable,
			Prefix:      mb.Prefix,
			KeepOutputs: mb.KeepOutputs,
			OutputDir:   mb.OutputDir,
			Logger:      &p.log,
		}
	}
	return p.snowExtractor()
}

func (p *Pipeline) snowExtractor() *extraction.SnowExtractor {
	proc, snow := p.cfg.Processing, p.cfg.Snow
	ex := extraction.NewSnowExtractor()
	ex.Snow.Distance = distance.Options{Periodic: proc.Periodic, Workers: proc.NumCores}
	ex.Snow.Peaks = peaks.Options{RMax: snow.RMax, RMin: snow.RMin, Sigma: snow.Sigma, Workers: proc.NumCores}
	ex.Snow.Logger = &p.log
	ex.Extraction = extraction.Options{
		SplitPatches:     p.cfg.Extraction.SplitPatches,
		MinConduitLength: p.cfg.Extraction.MinConduitLength,
		Workers:          proc.NumCores,
		Logger:           &p.log,
	}
	return ex
}

func (p *Pipeline) extract(ctx context.Context) error {
	var err error
	if p.cfg.Extraction.Method == config.MethodSnow {
		p.snow, p.net, err = p.snowExtractor().Segment(ctx, p.image)
	} else {
		p.net, err = p.Extractor().Extract(ctx, p.image)
	}
	if err != nil {
		return err
	}
	p.log.Info().
		Int("pores", p.net.NumPores()).
		Int("throats", p.net.NumThroats()).
		Msg("network extracted")
	return nil
}

func (p *Pipeline) synthesize() error {
	s := p.cfg.Synthesis
	opts := synthesis.DefaultOptions()
	opts.PoreShape = s.PoreShape
	opts.ThroatShape = s.ThroatShape
	opts.MaxDim = s.MaxDim
	opts.RTol = s.RTol
	opts.Logger = &p.log
	if p.snow != nil {
		box := imageDomain(p.image)
		opts.Domain = &box
	}
	im, err := synthesis.Generate(p.net, opts)
	if err != nil {
		return err
	}
	if err := imageio.SaveRaw(p.params.VoxelImageFile, im, 0); err != nil {
		return err
	}
	p.voxels = im
	p.metrics.VoxelImagePorosity = generators.Porosity(im)
	return nil
}

// imageDomain is the physical box covered by the voxels of im, matching the
// voxel-centre coordinates of SNOW pores. 2D images have a flat Z extent.
func imageDomain(im *models.Binary) r3.Box {
	var lo, hi [3]float64
	for a, n := range im.Shape {
		lo[a] = -0.5 * im.Spacing[a]
		hi[a] = (float64(n) - 0.5) * im.Spacing[a]
	}
	return r3.Box{
		Min: r3.Vec{X: lo[0], Y: lo[1], Z: lo[2]},
		Max: r3.Vec{X: hi[0], Y: hi[1], Z: hi[2]},
	}
}

// savePreview writes every z slice of v under the intermediary directory.
// Failures are logged and do not stop the run.
func (p *Pipeline) savePreview(stage string, v *visualization.Viewer) {
	out := p.cfg.Output
	if !out.SaveIntermediaryResults {
		return
	}
	if p.image != nil && p.image.Dims() == 2 {
		v.Scale = 4
	}
	dir := filepath.Join(out.IntermediaryDir, stage)
	if err := v.SaveSliceSequence("z", dir, out.PreviewFormat); err != nil {
		p.log.Warn().Err(err).Str("stage", stage).Msg("failed to save preview")
		return
	}
	p.previews = append(p.previews, dir)
}

func writeNetwork(net *network.Network, path string) error {
	data, err := json.Marshal(net)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadNetwork loads a network written by Process.
func ReadNetwork(path string) (*network.Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	net := &network.Network{}
	if err := json.Unmarshal(data, net); err != nil {
		return nil, err
	}
	return net, nil
}

// Image returns the binary input.
func (p *Pipeline) Image() *models.Binary { return p.image }

// Network returns the extracted network.
func (p *Pipeline) Network() *network.Network { return p.net }

// Regions returns the SNOW segmentation, or nil for other methods.
func (p *Pipeline) Regions() *watershed.SnowResult { return p.snow }

// VoxelImage returns the synthesized image, or nil when synthesis was skipped.
func (p *Pipeline) VoxelImage() *models.Binary { return p.voxels }

// Previews returns the directories of the saved stage previews.
func (p *Pipeline) Previews() []string { return p.previews }

// GetMetrics returns the metrics of the last run.
func (p *Pipeline) GetMetrics() Metrics { return p.metrics }
