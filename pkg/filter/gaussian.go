// Package filter provides separable smoothing filters for voxel fields.
package filter

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"

	"porenet/internal/models"
	"porenet/pkg/errs"
)

// Options controls the Gaussian filter
type Options struct {
	// Periodic wraps the kernel across the given axes instead of reflecting
	// at the image faces. Empty means no periodic axis.
	Periodic []bool

	// Workers bounds the goroutines used per axis pass. Zero uses four.
	Workers int
}

// Gaussian smooths f with an isotropic Gaussian of standard deviation sigma
// (in voxels) over its active axes. The kernel is applied per axis in the
// frequency domain. A sigma <= 0 returns a copy of f.
func Gaussian(f *models.Field, sigma float64, opts Options) (*models.Field, error) {
	const op = "filter.Gaussian"
	if f == nil || len(f.Data) == 0 {
		return nil, errs.New(errs.InputShape, op, "empty field")
	}
	if len(opts.Periodic) != 0 && len(opts.Periodic) != f.Dims() {
		return nil, errs.New(errs.InputShape, op, "got %d periodic flags for %d axes", len(opts.Periodic), f.Dims())
	}
	out := f.Clone()
	if !(sigma > 0) {
		return out, nil
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}

	for a, n := range f.Shape {
		if n == 1 {
			continue
		}
		periodic := len(opts.Periodic) > 0 && opts.Periodic[a]
		smoothAxis(out.Data, f.Strides()[a], n, sigma, periodic, workers)
	}
	return out, nil
}

func smoothAxis(data []float64, stride, n int, sigma float64, periodic bool, workers int) {
	pad := 0
	if !periodic {
		pad = int(math.Ceil(4 * sigma))
	}
	m := n + 2*pad
	gain := transfer(m, sigma)

	lines := len(data) / n
	if workers > lines {
		workers = lines
	}
	chunk := (lines + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < lines; start += chunk {
		end := min(start+chunk, lines)
		wg.Add(1)
		go func(first, last int) {
			defer wg.Done()
			fft := fourier.NewFFT(m)
			seq := make([]float64, m)
			coeff := make([]complex128, m/2+1)
			for l := first; l < last; l++ {
				outer, inner := l/stride, l%stride
				base := outer*stride*n + inner
				for i := 0; i < m; i++ {
					seq[i] = data[base+reflect(i-pad, n)*stride]
				}
				fft.Coefficients(coeff, seq)
				for k := range coeff {
					coeff[k] *= complex(gain[k], 0)
				}
				fft.Sequence(seq, coeff)
				for i := 0; i < n; i++ {
					data[base+i*stride] = seq[i+pad] / float64(m)
				}
			}
		}(start, end)
	}
	wg.Wait()
}

// transfer returns the Gaussian frequency response for the real FFT bins of a
// length m sequence.
func transfer(m int, sigma float64) []float64 {
	gain := make([]float64, m/2+1)
	for k := range gain {
		freq := float64(k) / float64(m)
		gain[k] = math.Exp(-2 * math.Pi * math.Pi * sigma * sigma * freq * freq)
	}
	return gain
}

// reflect maps i into [0, n) by mirroring about the image faces.
func reflect(i, n int) int {
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}
