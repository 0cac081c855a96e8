// Package measure computes scalar measurements over a gated region of a
// finalized capture. A run computes every requested measurement and reports
// per-measurement failures in the result rather than aborting the pass, so a
// region with no edges still yields its amplitude statistics.
package measure

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
)

var (
	// ErrNoEdges means the region has too few threshold crossings for a
	// timing measurement.
	ErrNoEdges = errors.New("no threshold crossings in region")
	// ErrInsufficientData means the region is too short for the measurement.
	ErrInsufficientData = errors.New("region too short for measurement")
	// ErrChannelMissing means the channel is not part of the capture.
	ErrChannelMissing = errors.New("channel not in capture")
	// ErrEmptyGate means the gate clamps to an empty region.
	ErrEmptyGate = errors.New("gate selects an empty region")
)

// Gate bounds a measurement region in capture-global sample indices. The zero
// value selects the whole capture; bounds outside the capture clamp to it.
type Gate struct {
	Start uint64
	End   uint64 // exclusive, 0 = capture end
}

// AllKinds lists every measurement the engine knows, in report order.
var AllKinds = []domain.MeasurementKind{
	domain.MeasureMin, domain.MeasureMax, domain.MeasureMean,
	domain.MeasureRMS, domain.MeasureVpp, domain.MeasureStdDev,
	domain.MeasureMedian, domain.MeasureFrequency, domain.MeasurePeriod,
	domain.MeasureDutyCycle, domain.MeasureRiseTime, domain.MeasureFallTime,
	domain.MeasureOvershoot, domain.MeasureUndershoot,
}

// Engine computes a fixed set of measurement kinds.
type Engine struct {
	kinds []domain.MeasurementKind
}

// New builds an engine for the given kinds; with none it computes all of them.
func New(kinds ...domain.MeasurementKind) *Engine {
	if len(kinds) == 0 {
		kinds = AllKinds
	}
	return &Engine{kinds: kinds}
}

// Run computes the engine's measurements for one channel over the gated
// region. The returned slice replaces any previous results wholesale.
func (e *Engine) Run(c *domain.Capture, channel int, gate Gate) ([]domain.MeasurementResult, error) {
	samples := c.ChannelSamples(channel)
	if samples == nil {
		return nil, fmt.Errorf("%w: channel %d", ErrChannelMissing, channel)
	}
	ch, ok := c.Channel(channel)
	if !ok {
		return nil, fmt.Errorf("%w: channel %d", ErrChannelMissing, channel)
	}

	lo, hi := gate.Start, gate.End
	if hi == 0 || hi > c.End {
		hi = c.End
	}
	if lo < c.Start {
		lo = c.Start
	}
	if hi <= lo {
		return nil, fmt.Errorf("%w: [%d,%d) within [%d,%d)", ErrEmptyGate, gate.Start, gate.End, c.Start, c.End)
	}
	region := samples[lo-c.Start : hi-c.Start]

	r := &regionStats{
		samples:   region,
		rate:      c.SampleRate,
		threshold: ch.Threshold,
	}

	results := make([]domain.MeasurementResult, 0, len(e.kinds))
	for _, kind := range e.kinds {
		value, unit, err := r.compute(kind)
		res := domain.MeasurementResult{
			Kind:        kind,
			Channel:     channel,
			Value:       value,
			Unit:        unit,
			RegionStart: lo,
			RegionEnd:   hi,
		}
		if err != nil {
			res.Err = err.Error()
			res.Value = 0
		}
		results = append(results, res)
	}
	return results, nil
}

// regionStats evaluates measurements over one sample region, memoizing the
// min/max scan shared by several of them.
type regionStats struct {
	samples   []float64
	rate      float64
	threshold float64

	scanned  bool
	min, max float64
}

func (r *regionStats) compute(kind domain.MeasurementKind) (float64, string, error) {
	switch kind {
	case domain.MeasureMin:
		min, _ := r.extrema()
		return min, "V", nil
	case domain.MeasureMax:
		_, max := r.extrema()
		return max, "V", nil
	case domain.MeasureMean:
		return r.mean(), "V", nil
	case domain.MeasureRMS:
		return r.rms(), "V", nil
	case domain.MeasureVpp:
		min, max := r.extrema()
		return max - min, "V", nil
	case domain.MeasureStdDev:
		return r.stdDev(), "V", nil
	case domain.MeasureMedian:
		return r.median(), "V", nil
	case domain.MeasureFrequency:
		period, err := r.period()
		if err != nil {
			return 0, "Hz", err
		}
		return 1 / period, "Hz", nil
	case domain.MeasurePeriod:
		period, err := r.period()
		if err != nil {
			return 0, "s", err
		}
		return period, "s", nil
	case domain.MeasureDutyCycle:
		return r.dutyCycle()
	case domain.MeasureRiseTime:
		return r.edgeTime(true)
	case domain.MeasureFallTime:
		return r.edgeTime(false)
	case domain.MeasureOvershoot:
		_, max := r.extrema()
		return max - r.settled(), "V", nil
	case domain.MeasureUndershoot:
		min, _ := r.extrema()
		return r.settled() - min, "V", nil
	default:
		return 0, "", fmt.Errorf("unknown measurement kind %q", kind)
	}
}

func (r *regionStats) extrema() (float64, float64) {
	if !r.scanned {
		r.min, r.max = r.samples[0], r.samples[0]
		for _, v := range r.samples[1:] {
			if v < r.min {
				r.min = v
			}
			if v > r.max {
				r.max = v
			}
		}
		r.scanned = true
	}
	return r.min, r.max
}

func (r *regionStats) mean() float64 {
	sum := 0.0
	for _, v := range r.samples {
		sum += v
	}
	return sum / float64(len(r.samples))
}

func (r *regionStats) rms() float64 {
	sum := 0.0
	for _, v := range r.samples {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(r.samples)))
}

func (r *regionStats) stdDev() float64 {
	mean := r.mean()
	sum := 0.0
	for _, v := range r.samples {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(r.samples)))
}

func (r *regionStats) median() float64 {
	sorted := make([]float64, len(r.samples))
	copy(sorted, r.samples)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// risingCrossings returns the indices where the signal crosses the logic
// threshold upward, with the same comparison the trigger engine uses.
func (r *regionStats) risingCrossings() []int {
	var idx []int
	for i := 1; i < len(r.samples); i++ {
		if r.samples[i-1] < r.threshold && r.samples[i] >= r.threshold {
			idx = append(idx, i)
		}
	}
	return idx
}

// period averages the spacing of consecutive rising threshold crossings.
func (r *regionStats) period() (float64, error) {
	idx := r.risingCrossings()
	if len(idx) < 2 {
		return 0, ErrNoEdges
	}
	spacing := float64(idx[len(idx)-1]-idx[0]) / float64(len(idx)-1)
	return spacing / r.rate, nil
}

// dutyCycle is the high-time fraction over the whole periods between the
// first and last rising crossing, as a percentage.
func (r *regionStats) dutyCycle() (float64, string, error) {
	idx := r.risingCrossings()
	if len(idx) < 2 {
		return 0, "%", ErrInsufficientData
	}
	high, total := 0, 0
	for i := idx[0]; i < idx[len(idx)-1]; i++ {
		total++
		if r.samples[i] >= r.threshold {
			high++
		}
	}
	return 100 * float64(high) / float64(total), "%", nil
}

// edgeTime measures the first 10%..90% transition of the region's amplitude
// span, in seconds.
func (r *regionStats) edgeTime(rising bool) (float64, string, error) {
	min, max := r.extrema()
	span := max - min
	if span == 0 {
		return 0, "s", ErrNoEdges
	}
	lo := min + 0.1*span
	hi := min + 0.9*span

	if rising {
		for i := 1; i < len(r.samples); i++ {
			if !(r.samples[i-1] < lo && r.samples[i] >= lo) {
				continue
			}
			for j := i; j < len(r.samples); j++ {
				if r.samples[j] >= hi {
					return float64(j-i) / r.rate, "s", nil
				}
				if r.samples[j] < lo {
					break // fell back below before completing the edge
				}
			}
		}
		return 0, "s", ErrNoEdges
	}
	for i := 1; i < len(r.samples); i++ {
		if !(r.samples[i-1] > hi && r.samples[i] <= hi) {
			continue
		}
		for j := i; j < len(r.samples); j++ {
			if r.samples[j] <= lo {
				return float64(j-i) / r.rate, "s", nil
			}
			if r.samples[j] > hi {
				break
			}
		}
	}
	return 0, "s", ErrNoEdges
}

// settled is the mean of the last tenth of the region, or the last sample
// when the region is shorter than ten samples.
func (r *regionStats) settled() float64 {
	n := len(r.samples) / 10
	if n == 0 {
		n = 1
	}
	tail := r.samples[len(r.samples)-n:]
	sum := 0.0
	for _, v := range tail {
		sum += v
	}
	return sum / float64(n)
}
