// Package maxball extracts pore networks with an external maximal-ball
// executable (pnextract style) and reads its Statoil format output.
package maxball

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"porenet/internal/logger"
	"porenet/internal/models"
	"porenet/pkg/errs"
	"porenet/pkg/network"
)

// DefaultPrefix names the intermediate and output files.
const DefaultPrefix = "maxball"

// Adapter runs a maximal-ball network extractor on a binary image.
type Adapter struct {
	// Executable is the path to the extractor binary
	Executable string

	// Prefix names {Prefix}.mhd and the {Prefix}_*.dat outputs
	Prefix string

	// VoxelSize overrides the image spacing when positive
	VoxelSize float64

	// KeepOutputs copies the four .dat files to OutputDir
	KeepOutputs bool

	// OutputDir receives kept outputs; empty means the working directory
	OutputDir string

	Logger *zerolog.Logger
}

var _ network.NetworkExtractor = (*Adapter)(nil)

// Extract writes im to a temporary directory, runs the executable there and
// parses its output. The temporary directory is removed on every path.
func (a *Adapter) Extract(ctx context.Context, im *models.Binary) (*network.Network, error) {
	const op = "maxball.Extract"
	if err := a.checkExecutable(); err != nil {
		return nil, err
	}
	if im == nil || len(im.Data) == 0 {
		return nil, errs.New(errs.InputShape, op, "empty image")
	}
	if im.Dims() != 2 && im.Dims() != 3 {
		return nil, errs.New(errs.InputShape, op, "expected 2 or 3 dimensions, got %d", im.Dims())
	}
	log := logger.OrNop(a.Logger)
	prefix := a.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	dir, err := os.MkdirTemp("", "porenet-maxball-")
	if err != nil {
		return nil, errs.Wrap(errs.Integration, op, err)
	}
	defer os.RemoveAll(dir)

	spacing := im.Spacing
	if a.VoxelSize > 0 {
		spacing = []float64{a.VoxelSize, a.VoxelSize, a.VoxelSize}
	}
	header, err := writeMetaImage(dir, prefix, im, spacing)
	if err != nil {
		return nil, errs.Wrap(errs.Integration, op, err)
	}

	start := time.Now()
	exe, err := filepath.Abs(a.Executable)
	if err != nil {
		return nil, errs.Wrap(errs.Integration, op, err)
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, exe, header)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		return nil, errs.Wrap(errs.Integration, op, fmt.Errorf("%s: %w: %s", filepath.Base(a.Executable), err, msg))
	}
	log.Debug().
		Str("executable", a.Executable).
		Int("stdoutBytes", stdout.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("maximal ball extraction done")

	pores, links, err := parseStatoil(dir, prefix)
	if err != nil {
		return nil, err
	}
	net, err := toNetwork(pores, links)
	if err != nil {
		return nil, err
	}

	if a.KeepOutputs {
		out := a.OutputDir
		if out == "" {
			out = "."
		}
		for _, s := range outputSuffixes {
			if err := copyFile(filepath.Join(dir, prefix+s), filepath.Join(out, prefix+s)); err != nil {
				return nil, errs.Wrap(errs.Integration, op, err)
			}
		}
		log.Info().Str("dir", out).Msg("kept maximal ball outputs")
	}
	return net, nil
}

func (a *Adapter) checkExecutable() error {
	const op = "maxball.checkExecutable"
	if a.Executable == "" {
		return errs.New(errs.Integration, op, "no executable configured")
	}
	if strings.EqualFold(filepath.Ext(a.Executable), ".exe") && runtime.GOOS != "windows" {
		return errs.New(errs.Integration, op, "%s is a Windows binary and cannot run on %s", a.Executable, runtime.GOOS)
	}
	info, err := os.Stat(a.Executable)
	if err != nil {
		return errs.Wrap(errs.Integration, op, err)
	}
	if !info.Mode().IsRegular() {
		return errs.New(errs.Integration, op, "%s is not a regular file", a.Executable)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o111 == 0 {
		return errs.New(errs.Integration, op, "%s is not executable", a.Executable)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
