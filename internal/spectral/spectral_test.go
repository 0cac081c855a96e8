package spectral

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"
	"time"

	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
)

func sine(n int, cycles float64, amplitude, offset float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = offset + amplitude*math.Sin(2*math.Pi*cycles*float64(i)/float64(n))
	}
	return s
}

func TestSineSpectrumPowerOfTwo(t *testing.T) {
	const (
		n    = 256
		rate = 25600.0
		bin  = 16
	)
	a, err := New(WindowRectangular)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	s, err := a.AnalyzeSamples(sine(n, bin, 2, 0), rate)
	if err != nil {
		t.Fatalf("AnalyzeSamples failed: %v", err)
	}
	if len(s.Bins) != n/2+1 {
		t.Fatalf("got %d bins, want %d", len(s.Bins), n/2+1)
	}
	if s.Fundamental != bin {
		t.Fatalf("fundamental bin = %d, want %d", s.Fundamental, bin)
	}
	f := s.Bins[bin]
	if want := float64(bin) * rate / n; math.Abs(f.Frequency-want) > 1e-9 {
		t.Fatalf("fundamental frequency = %v, want %v", f.Frequency, want)
	}
	if math.Abs(f.Magnitude-2) > 1e-9 {
		t.Fatalf("fundamental magnitude = %v, want 2", f.Magnitude)
	}
	if math.Abs(f.Phase+math.Pi/2) > 1e-6 {
		t.Fatalf("fundamental phase = %v, want -pi/2", f.Phase)
	}
	if s.THD > 1e-9 {
		t.Fatalf("pure sine THD = %v, want ~0", s.THD)
	}
}

func TestArbitraryLengthSpectrum(t *testing.T) {
	// 150 samples exercises the chirp-z path with an exact-bin sine.
	a, err := New(WindowRectangular)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	s, err := a.AnalyzeSamples(sine(150, 15, 1, 0), 15000)
	if err != nil {
		t.Fatalf("AnalyzeSamples failed: %v", err)
	}
	if s.Fundamental != 15 {
		t.Fatalf("fundamental bin = %d, want 15", s.Fundamental)
	}
	if math.Abs(s.Bins[15].Magnitude-1) > 1e-6 {
		t.Fatalf("fundamental magnitude = %v, want 1", s.Bins[15].Magnitude)
	}
	if math.Abs(s.Bins[15].Frequency-1500) > 1e-6 {
		t.Fatalf("fundamental frequency = %v, want 1500", s.Bins[15].Frequency)
	}
}

func naiveDFT(x []complex128) []complex128 {
	n := len(x)
	out := make([]complex128, n)
	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			out[k] += x[i] * cmplx.Rect(1, -2*math.Pi*float64(k)*float64(i)/float64(n))
		}
	}
	return out
}

func TestBluesteinMatchesNaiveDFT(t *testing.T) {
	for _, n := range []int{3, 7, 100, 129} {
		x := make([]complex128, n)
		for i := range x {
			fi := float64(i)
			x[i] = complex(math.Sin(fi/3)+0.2*fi, math.Cos(fi/5))
		}
		got := dft(x)
		want := naiveDFT(x)
		for k := range want {
			if cmplx.Abs(got[k]-want[k]) > 1e-6*(1+cmplx.Abs(want[k])) {
				t.Fatalf("n=%d bin %d: dft = %v, naive = %v", n, k, got[k], want[k])
			}
		}
	}
}

func TestDCOffsetRemovedBeforeWindowing(t *testing.T) {
	a, err := New(WindowHann)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	s, err := a.AnalyzeSamples(sine(256, 16, 1, 5), 25600)
	if err != nil {
		t.Fatalf("AnalyzeSamples failed: %v", err)
	}
	if s.Bins[0].Magnitude > 1e-9 {
		t.Fatalf("DC bin magnitude = %v, want ~0 despite 5 V offset", s.Bins[0].Magnitude)
	}
	if s.Fundamental != 16 {
		t.Fatalf("fundamental bin = %d, want 16", s.Fundamental)
	}
	if math.Abs(s.Bins[16].Magnitude-1) > 1e-3 {
		t.Fatalf("windowed fundamental magnitude = %v, want ~1", s.Bins[16].Magnitude)
	}
}

func TestTHDOfDistortedSine(t *testing.T) {
	const (
		n   = 256
		bin = 8
	)
	samples := make([]float64, n)
	for i := range samples {
		phase := 2 * math.Pi * float64(i) / n
		samples[i] = math.Sin(float64(bin)*phase) + 0.1*math.Sin(3*float64(bin)*phase)
	}
	a, err := New(WindowRectangular)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	s, err := a.AnalyzeSamples(samples, 25600)
	if err != nil {
		t.Fatalf("AnalyzeSamples failed: %v", err)
	}
	if s.Fundamental != bin {
		t.Fatalf("fundamental bin = %d, want %d", s.Fundamental, bin)
	}
	if math.Abs(s.THD-0.1) > 1e-6 {
		t.Fatalf("THD = %v, want 0.1", s.THD)
	}
}

func TestWindowCoefficientsAreSymmetric(t *testing.T) {
	for _, w := range []Window{WindowRectangular, WindowHann, WindowHamming, WindowBlackman} {
		coeffs := windowCoeffs(w, 63)
		for i := 0; i < len(coeffs)/2; i++ {
			if math.Abs(coeffs[i]-coeffs[len(coeffs)-1-i]) > 1e-12 {
				t.Fatalf("%s window asymmetric at %d: %v vs %v", w, i, coeffs[i], coeffs[len(coeffs)-1-i])
			}
		}
	}
}

func TestNewWindowValidation(t *testing.T) {
	if _, err := New(Window("kaiser")); !errors.Is(err, ErrBadWindow) {
		t.Fatalf("New(kaiser) error = %v, want ErrBadWindow", err)
	}
	a, err := New("")
	if err != nil {
		t.Fatalf("New with default window failed: %v", err)
	}
	if a.window != WindowHann {
		t.Fatalf("default window = %s, want hann", a.window)
	}
}

func TestAnalyzeCaptureChannel(t *testing.T) {
	samples := sine(128, 4, 1, 0)
	c := &domain.Capture{
		SampleRate: 12800,
		End:        uint64(len(samples)),
		Channels:   []domain.Channel{{Index: 2, Type: domain.SignalAnalog, Enabled: true}},
		Samples:    map[int][]float64{2: samples},
		CreatedAt:  time.Now(),
	}
	a, err := New(WindowRectangular)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	s, err := a.Analyze(c, 2)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if s.Fundamental != 4 {
		t.Fatalf("fundamental bin = %d, want 4", s.Fundamental)
	}
	if _, err := a.Analyze(c, 0); !errors.Is(err, ErrChannelMissing) {
		t.Fatalf("Analyze(missing) error = %v, want ErrChannelMissing", err)
	}
}

func TestAnalyzeRejectsTooShort(t *testing.T) {
	a, err := New(WindowRectangular)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := a.AnalyzeSamples([]float64{1}, 1000); !errors.Is(err, ErrTooShort) {
		t.Fatalf("error = %v, want ErrTooShort", err)
	}
}
