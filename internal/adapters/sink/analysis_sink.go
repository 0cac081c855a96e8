package sink

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/decode"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/measure"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/ports"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/spectral"
)

// AnalysisResult is the full analysis pass over one capture: scalar
// measurements and an amplitude spectrum per enabled channel, plus every frame
// the configured decoders recovered.
type AnalysisResult struct {
	Capture      *domain.Capture
	Measurements map[int][]domain.MeasurementResult
	Spectra      map[int]*spectral.Spectrum
	Frames       []domain.DecodedFrame
}

// AnalysisSink runs the built-in analysis pass over every consumed capture and
// retains the most recent result for inspection. A decoder whose assigned
// channel is absent from a capture is skipped; a region too short for a
// spectrum skips only that channel's spectrum.
type AnalysisSink struct {
	engine   *measure.Engine
	spectra  *spectral.Analyzer
	decoders []decode.Decoder
	obs      ports.Observability

	mu     sync.Mutex
	latest *AnalysisResult
}

// NewAnalysisSink builds the sink around a spectral window and an optional
// decoder set. obs may be nil; metrics are then skipped.
func NewAnalysisSink(window spectral.Window, obs ports.Observability, decoders ...decode.Decoder) (*AnalysisSink, error) {
	analyzer, err := spectral.New(window)
	if err != nil {
		return nil, err
	}
	return &AnalysisSink{
		engine:   measure.New(),
		spectra:  analyzer,
		decoders: decoders,
		obs:      obs,
	}, nil
}

func (s *AnalysisSink) Name() string { return "analysis" }

// Latest returns the result of the most recent Consume, or nil before the
// first capture lands.
func (s *AnalysisSink) Latest() *AnalysisResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

func (s *AnalysisSink) Consume(c *domain.Capture) error {
	res := &AnalysisResult{
		Capture:      c,
		Measurements: make(map[int][]domain.MeasurementResult),
		Spectra:      make(map[int]*spectral.Spectrum),
	}

	for _, ch := range c.Channels {
		if !ch.Enabled {
			continue
		}
		m, err := s.engine.Run(c, ch.Index, measure.Gate{})
		if err != nil {
			return fmt.Errorf("measure channel %d: %w", ch.Index, err)
		}
		res.Measurements[ch.Index] = m

		sp, err := s.spectra.Analyze(c, ch.Index)
		if errors.Is(err, spectral.ErrTooShort) {
			continue
		}
		if err != nil {
			return fmt.Errorf("spectrum channel %d: %w", ch.Index, err)
		}
		res.Spectra[ch.Index] = sp
	}

	start := time.Now()
	for _, d := range s.decoders {
		frames, err := d.Decode(c)
		if errors.Is(err, decode.ErrChannelMissing) {
			continue
		}
		if err != nil {
			return fmt.Errorf("decode %s: %w", d.Protocol(), err)
		}
		res.Frames = append(res.Frames, frames...)
	}
	if s.obs != nil {
		s.obs.IncCounter("acs_frames_decoded_total", float64(len(res.Frames)))
		s.obs.ObserveLatency("acs_decode_latency_seconds", time.Since(start).Seconds())
	}

	s.mu.Lock()
	s.latest = res
	s.mu.Unlock()
	return nil
}

var _ ports.CaptureSink = (*AnalysisSink)(nil)
