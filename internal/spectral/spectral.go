// Package spectral turns one capture channel into an amplitude spectrum with
// harmonic analysis. The transform is exact for any region length: radix-2
// Cooley-Tukey when the length is a power of two, Bluestein's chirp-z
// otherwise, so a gated region never needs padding that would shift bin
// frequencies.
package spectral

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
)

var (
	// ErrChannelMissing means the channel is not part of the capture.
	ErrChannelMissing = errors.New("channel not in capture")
	// ErrTooShort means the region has fewer than two samples.
	ErrTooShort = errors.New("region too short for a spectrum")
	// ErrBadWindow means the window name is unknown.
	ErrBadWindow = errors.New("unknown window function")
)

// Window selects the taper applied before the transform.
type Window string

const (
	WindowRectangular Window = "rectangular"
	WindowHann        Window = "hann"
	WindowHamming     Window = "hamming"
	WindowBlackman    Window = "blackman"
)

// Bin is one spectral line up to the Nyquist frequency.
type Bin struct {
	Frequency float64 `json:"frequency"`
	Magnitude float64 `json:"magnitude"`
	Phase     float64 `json:"phase"`
}

// Spectrum is the analysis result for one channel region.
type Spectrum struct {
	Bins        []Bin   `json:"bins"`
	Fundamental int     `json:"fundamental"` // bin index of the strongest line, 0 when none
	THD         float64 `json:"thd"`         // ratio of harmonic to fundamental amplitude
}

// Analyzer computes spectra with a fixed window.
type Analyzer struct {
	window Window
}

// New builds an analyzer; the empty window defaults to Hann, matching the
// instrument's display default.
func New(window Window) (*Analyzer, error) {
	if window == "" {
		window = WindowHann
	}
	switch window {
	case WindowRectangular, WindowHann, WindowHamming, WindowBlackman:
	default:
		return nil, fmt.Errorf("%w: %q", ErrBadWindow, window)
	}
	return &Analyzer{window: window}, nil
}

// Analyze computes the amplitude spectrum of one capture channel. The mean is
// removed before windowing so the DC bin does not mask small signals.
func (a *Analyzer) Analyze(c *domain.Capture, channel int) (*Spectrum, error) {
	samples := c.ChannelSamples(channel)
	if samples == nil {
		return nil, fmt.Errorf("%w: channel %d", ErrChannelMissing, channel)
	}
	return a.AnalyzeSamples(samples, c.SampleRate)
}

// AnalyzeSamples is Analyze over a raw sample slice at a given rate.
func (a *Analyzer) AnalyzeSamples(samples []float64, rate float64) (*Spectrum, error) {
	n := len(samples)
	if n < 2 {
		return nil, fmt.Errorf("%w: %d samples", ErrTooShort, n)
	}

	mean := 0.0
	for _, v := range samples {
		mean += v
	}
	mean /= float64(n)

	coeffs := windowCoeffs(a.window, n)
	coherentGain := 0.0
	x := make([]complex128, n)
	for i, v := range samples {
		x[i] = complex((v-mean)*coeffs[i], 0)
		coherentGain += coeffs[i]
	}

	spec := dft(x)

	nyquist := n/2 + 1
	bins := make([]Bin, nyquist)
	for k := 0; k < nyquist; k++ {
		mag := cmplx.Abs(spec[k]) / coherentGain
		if k > 0 && !(n%2 == 0 && k == n/2) {
			mag *= 2 // fold the conjugate half into the one-sided spectrum
		}
		bins[k] = Bin{
			Frequency: float64(k) * rate / float64(n),
			Magnitude: mag,
			Phase:     cmplx.Phase(spec[k]),
		}
	}

	s := &Spectrum{Bins: bins}
	s.Fundamental = fundamentalBin(bins)
	s.THD = thd(bins, s.Fundamental)
	return s, nil
}

// fundamentalBin picks the strongest line above DC.
func fundamentalBin(bins []Bin) int {
	best, bestMag := 0, 0.0
	for k := 1; k < len(bins); k++ {
		if bins[k].Magnitude > bestMag {
			best, bestMag = k, bins[k].Magnitude
		}
	}
	return best
}

// thd is the root-sum-square of the harmonic amplitudes over the fundamental
// amplitude.
func thd(bins []Bin, fundamental int) float64 {
	if fundamental == 0 || bins[fundamental].Magnitude == 0 {
		return 0
	}
	sum := 0.0
	for k := 2 * fundamental; k < len(bins); k += fundamental {
		sum += bins[k].Magnitude * bins[k].Magnitude
	}
	return math.Sqrt(sum) / bins[fundamental].Magnitude
}

func windowCoeffs(window Window, n int) []float64 {
	coeffs := make([]float64, n)
	if n == 1 {
		coeffs[0] = 1
		return coeffs
	}
	for i := range coeffs {
		t := 2 * math.Pi * float64(i) / float64(n-1)
		switch window {
		case WindowHann:
			coeffs[i] = 0.5 * (1 - math.Cos(t))
		case WindowHamming:
			coeffs[i] = 0.54 - 0.46*math.Cos(t)
		case WindowBlackman:
			coeffs[i] = 0.42 - 0.5*math.Cos(t) + 0.08*math.Cos(2*t)
		default:
			coeffs[i] = 1
		}
	}
	return coeffs
}

// dft dispatches on the input length.
func dft(x []complex128) []complex128 {
	if n := len(x); n&(n-1) == 0 {
		out := make([]complex128, len(x))
		copy(out, x)
		fftPow2(out)
		return out
	}
	return bluestein(x)
}

// fftPow2 is an in-place iterative radix-2 Cooley-Tukey transform.
func fftPow2(x []complex128) {
	n := len(x)
	if n < 2 {
		return
	}

	// Bit-reversal permutation.
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			x[i], x[j] = x[j], x[i]
		}
	}

	for size := 2; size <= n; size <<= 1 {
		step := -2 * math.Pi / float64(size)
		wn := cmplx.Rect(1, step)
		for start := 0; start < n; start += size {
			w := complex(1, 0)
			for k := 0; k < size/2; k++ {
				a := x[start+k]
				b := x[start+k+size/2] * w
				x[start+k] = a + b
				x[start+k+size/2] = a - b
				w *= wn
			}
		}
	}
}

// bluestein evaluates the length-N DFT as a convolution, using a power-of-two
// transform of length >= 2N-1. Exact for arbitrary N.
func bluestein(x []complex128) []complex128 {
	n := len(x)
	m := 1
	for m < 2*n-1 {
		m <<= 1
	}

	// Chirp: w_k = exp(-i*pi*k^2/n). k^2 mod 2n keeps the argument bounded.
	chirp := make([]complex128, n)
	for k := 0; k < n; k++ {
		kk := (int64(k) * int64(k)) % int64(2*n)
		chirp[k] = cmplx.Rect(1, -math.Pi*float64(kk)/float64(n))
	}

	a := make([]complex128, m)
	for k := 0; k < n; k++ {
		a[k] = x[k] * chirp[k]
	}
	b := make([]complex128, m)
	b[0] = cmplx.Conj(chirp[0])
	for k := 1; k < n; k++ {
		b[k] = cmplx.Conj(chirp[k])
		b[m-k] = b[k]
	}

	fftPow2(a)
	fftPow2(b)
	for i := range a {
		a[i] *= b[i]
	}
	inverseFFTPow2(a)

	out := make([]complex128, n)
	for k := 0; k < n; k++ {
		out[k] = a[k] * chirp[k]
	}
	return out
}

// inverseFFTPow2 computes the unscaled-then-normalized inverse transform via
// conjugation.
func inverseFFTPow2(x []complex128) {
	for i := range x {
		x[i] = cmplx.Conj(x[i])
	}
	fftPow2(x)
	scale := complex(1/float64(len(x)), 0)
	for i := range x {
		x[i] = cmplx.Conj(x[i]) * scale
	}
}
