package filter

import (
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/ports"
)

// FrontEnd applies each channel's analog front-end settings to a raw batch:
// GND coupling grounds the channel, AC coupling removes the batch DC
// component, and the bandwidth limit runs a three-tap moving average. Sample
// counts and start indices pass through untouched.
type FrontEnd struct{}

func NewFrontEnd() *FrontEnd { return &FrontEnd{} }

func (f *FrontEnd) Version() uint16 { return 1 }

func (f *FrontEnd) Apply(b *domain.SampleBatch, channels []domain.Channel) (*domain.SampleBatch, error) {
	for _, ch := range channels {
		values, ok := b.Samples[ch.Index]
		if !ok {
			continue
		}
		switch {
		case ch.Coupling == domain.CouplingGND:
			for i := range values {
				values[i] = 0
			}
			continue
		case ch.Coupling == domain.CouplingAC:
			removeDC(values)
		}
		if ch.BandwidthLimit {
			b.Samples[ch.Index] = smooth(values)
		}
	}
	return b, nil
}

func removeDC(values []float64) {
	if len(values) == 0 {
		return
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	for i := range values {
		values[i] -= mean
	}
}

// smooth is a three-tap moving average, clamping at the batch edges.
func smooth(values []float64) []float64 {
	if len(values) < 3 {
		return values
	}
	out := make([]float64, len(values))
	out[0] = (values[0] + values[1]) / 2
	for i := 1; i < len(values)-1; i++ {
		out[i] = (values[i-1] + values[i] + values[i+1]) / 3
	}
	out[len(values)-1] = (values[len(values)-2] + values[len(values)-1]) / 2
	return out
}

var _ ports.BatchFilter = (*FrontEnd)(nil)
