package measure

import (
	"errors"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
)

func analogCapture(rate, threshold float64, samples []float64) *domain.Capture {
	return &domain.Capture{
		SampleRate: rate,
		Start:      0,
		End:        uint64(len(samples)),
		Channels: []domain.Channel{{
			Index:     0,
			Type:      domain.SignalAnalog,
			Coupling:  domain.CouplingDC,
			Threshold: threshold,
			Enabled:   true,
		}},
		Samples:   map[int][]float64{0: samples},
		CreatedAt: time.Now(),
	}
}

func resultByKind(t *testing.T, results []domain.MeasurementResult, kind domain.MeasurementKind) domain.MeasurementResult {
	t.Helper()
	for _, r := range results {
		if r.Kind == kind {
			return r
		}
	}
	t.Fatalf("no %s result in %+v", kind, results)
	return domain.MeasurementResult{}
}

func squareWave(high, low float64, halfPeriod, cycles int) []float64 {
	var s []float64
	for c := 0; c < cycles; c++ {
		for i := 0; i < halfPeriod; i++ {
			s = append(s, low)
		}
		for i := 0; i < halfPeriod; i++ {
			s = append(s, high)
		}
	}
	return s
}

func TestSquareWaveMeasurements(t *testing.T) {
	// 50 Hz square wave: 20 samples per period at 1 kHz.
	c := analogCapture(1000, 1.5, squareWave(3, 0, 10, 5))

	results, err := New().Run(c, 0, Gate{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(results) != len(AllKinds) {
		t.Fatalf("got %d results, want %d", len(results), len(AllKinds))
	}

	checks := []struct {
		kind domain.MeasurementKind
		want float64
		unit string
	}{
		{domain.MeasureMin, 0, "V"},
		{domain.MeasureMax, 3, "V"},
		{domain.MeasureMean, 1.5, "V"},
		{domain.MeasureVpp, 3, "V"},
		{domain.MeasureRMS, 3 / math.Sqrt2, "V"},
		{domain.MeasureStdDev, 1.5, "V"},
		{domain.MeasureMedian, 1.5, "V"},
		{domain.MeasureFrequency, 50, "Hz"},
		{domain.MeasurePeriod, 0.02, "s"},
		{domain.MeasureDutyCycle, 50, "%"},
	}
	for _, tc := range checks {
		r := resultByKind(t, results, tc.kind)
		if !r.OK() {
			t.Fatalf("%s failed: %s", tc.kind, r.Err)
		}
		if math.Abs(r.Value-tc.want) > 1e-9 {
			t.Fatalf("%s = %g, want %g", tc.kind, r.Value, tc.want)
		}
		if r.Unit != tc.unit {
			t.Fatalf("%s unit = %q, want %q", tc.kind, r.Unit, tc.unit)
		}
	}
}

func TestStatsMatchNaiveReference(t *testing.T) {
	samples := make([]float64, 257) // odd length exercises the median middle
	for i := range samples {
		x := float64(i)
		samples[i] = 1.7*math.Sin(x/9) + 0.4*math.Cos(x/3) + 0.01*x
	}
	c := analogCapture(48000, 0, samples)

	results, err := New(
		domain.MeasureMin, domain.MeasureMax, domain.MeasureMean,
		domain.MeasureRMS, domain.MeasureStdDev, domain.MeasureMedian,
		domain.MeasureVpp,
	).Run(c, 0, Gate{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	min, max := samples[0], samples[0]
	sum, sumSq := 0.0, 0.0
	for _, v := range samples {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
		sumSq += v * v
	}
	n := float64(len(samples))
	mean := sum / n
	variance := 0.0
	for _, v := range samples {
		variance += (v - mean) * (v - mean)
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	want := map[domain.MeasurementKind]float64{
		domain.MeasureMin:    min,
		domain.MeasureMax:    max,
		domain.MeasureMean:   mean,
		domain.MeasureRMS:    math.Sqrt(sumSq / n),
		domain.MeasureStdDev: math.Sqrt(variance / n),
		domain.MeasureMedian: sorted[len(sorted)/2],
		domain.MeasureVpp:    max - min,
	}
	for kind, w := range want {
		r := resultByKind(t, results, kind)
		if !r.OK() || math.Abs(r.Value-w) > 1e-12 {
			t.Fatalf("%s = %v (err %q), want %v", kind, r.Value, r.Err, w)
		}
	}
}

func TestRiseAndFallTime(t *testing.T) {
	// Ramp 0..3 V in 0.3 V steps, hold, ramp back down.
	var samples []float64
	for i := 0; i <= 10; i++ {
		samples = append(samples, 0.3*float64(i))
	}
	for i := 0; i < 10; i++ {
		samples = append(samples, 3)
	}
	for i := 10; i >= 0; i-- {
		samples = append(samples, 0.3*float64(i))
	}
	c := analogCapture(1000, 1.5, samples)

	results, err := New(domain.MeasureRiseTime, domain.MeasureFallTime).Run(c, 0, Gate{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	rise := resultByKind(t, results, domain.MeasureRiseTime)
	if !rise.OK() || math.Abs(rise.Value-0.008) > 1e-9 {
		t.Fatalf("rise time = %v (err %q), want 0.008", rise.Value, rise.Err)
	}
	fall := resultByKind(t, results, domain.MeasureFallTime)
	if !fall.OK() || math.Abs(fall.Value-0.008) > 1e-9 {
		t.Fatalf("fall time = %v (err %q), want 0.008", fall.Value, fall.Err)
	}
}

func TestOvershootAgainstSettledValue(t *testing.T) {
	var samples []float64
	samples = append(samples, make([]float64, 10)...) // 0 V
	samples = append(samples, 3.6, 3.3, 3.1)
	for i := 0; i < 20; i++ {
		samples = append(samples, 3)
	}
	c := analogCapture(1000, 1.5, samples)

	results, err := New(domain.MeasureOvershoot, domain.MeasureUndershoot).Run(c, 0, Gate{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	over := resultByKind(t, results, domain.MeasureOvershoot)
	if !over.OK() || math.Abs(over.Value-0.6) > 1e-9 {
		t.Fatalf("overshoot = %v (err %q), want 0.6", over.Value, over.Err)
	}
	under := resultByKind(t, results, domain.MeasureUndershoot)
	if !under.OK() || math.Abs(under.Value-3.0) > 1e-9 {
		t.Fatalf("undershoot = %v (err %q), want 3.0", under.Value, under.Err)
	}
}

func TestTimingErrorsDoNotAbortRun(t *testing.T) {
	flat := make([]float64, 64)
	for i := range flat {
		flat[i] = 2.5
	}
	c := analogCapture(1000, 1.5, flat)

	results, err := New().Run(c, 0, Gate{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	freq := resultByKind(t, results, domain.MeasureFrequency)
	if freq.OK() || freq.Err != ErrNoEdges.Error() {
		t.Fatalf("frequency on flat line = %+v, want ErrNoEdges", freq)
	}
	duty := resultByKind(t, results, domain.MeasureDutyCycle)
	if duty.OK() || duty.Err != ErrInsufficientData.Error() {
		t.Fatalf("duty cycle on flat line = %+v, want ErrInsufficientData", duty)
	}
	mean := resultByKind(t, results, domain.MeasureMean)
	if !mean.OK() || mean.Value != 2.5 {
		t.Fatalf("mean = %+v, want 2.5", mean)
	}
}

func TestGateSelectsSubRegion(t *testing.T) {
	samples := append(make([]float64, 50), squareWave(3, 0, 5, 4)...)
	c := analogCapture(1000, 1.5, samples)

	results, err := New(domain.MeasureMax, domain.MeasureMin).Run(c, 0, Gate{Start: 0, End: 50})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	max := resultByKind(t, results, domain.MeasureMax)
	if max.Value != 0 {
		t.Fatalf("gated max = %v, want 0 (flat head only)", max.Value)
	}
	if max.RegionStart != 0 || max.RegionEnd != 50 {
		t.Fatalf("region = [%d,%d), want [0,50)", max.RegionStart, max.RegionEnd)
	}

	results, err = New(domain.MeasureMax).Run(c, 0, Gate{Start: 50})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := resultByKind(t, results, domain.MeasureMax); got.Value != 3 {
		t.Fatalf("tail max = %v, want 3", got.Value)
	}
}

func TestGateClampsAndRejectsEmpty(t *testing.T) {
	c := analogCapture(1000, 1.5, squareWave(3, 0, 5, 2))

	results, err := New(domain.MeasureMax).Run(c, 0, Gate{Start: 0, End: 10_000})
	if err != nil {
		t.Fatalf("Run with oversized gate failed: %v", err)
	}
	if got := resultByKind(t, results, domain.MeasureMax); got.RegionEnd != c.End {
		t.Fatalf("clamped region end = %d, want %d", got.RegionEnd, c.End)
	}

	if _, err := New().Run(c, 0, Gate{Start: 30, End: 10}); !errors.Is(err, ErrEmptyGate) {
		t.Fatalf("empty gate error = %v, want ErrEmptyGate", err)
	}
}

func TestRunRejectsMissingChannel(t *testing.T) {
	c := analogCapture(1000, 1.5, squareWave(3, 0, 5, 2))
	if _, err := New().Run(c, 7, Gate{}); !errors.Is(err, ErrChannelMissing) {
		t.Fatalf("missing channel error = %v, want ErrChannelMissing", err)
	}
}
