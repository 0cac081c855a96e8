package analyzer

import (
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/adapters/sink"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/decode"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/measure"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/spectral"
)

// AnalysisSink is the built-in per-capture analysis pass (measurements,
// spectra, protocol decode). Every Runtime carries one; see Runtime.Analysis.
type AnalysisSink = sink.AnalysisSink

// AnalysisResult is one capture's analysis output.
type AnalysisResult = sink.AnalysisResult

// MeasurementKind names one scalar measurement.
type MeasurementKind = domain.MeasurementKind

// MeasureGate bounds a measurement region in capture-global sample indices.
type MeasureGate = measure.Gate

// MeasureEngine computes scalar measurements over gated capture regions.
type MeasureEngine = measure.Engine

// SpectralWindow selects the taper applied before a spectral transform.
type SpectralWindow = spectral.Window

// Spectrum is the amplitude spectrum of one channel region.
type Spectrum = spectral.Spectrum

// SpectralAnalyzer computes spectra with a fixed window.
type SpectralAnalyzer = spectral.Analyzer

// DecoderConfig selects a protocol decoder and its parameters.
type DecoderConfig = decode.Config

// Decoder is the uniform protocol decode contract.
type Decoder = decode.Decoder

// Spectral window functions.
const (
	WindowRectangular = spectral.WindowRectangular
	WindowHann        = spectral.WindowHann
	WindowHamming     = spectral.WindowHamming
	WindowBlackman    = spectral.WindowBlackman
)

// NewMeasureEngine builds a measurement engine for the given kinds; with none
// it computes every known measurement.
func NewMeasureEngine(kinds ...MeasurementKind) *MeasureEngine {
	return measure.New(kinds...)
}

// NewSpectralAnalyzer builds a spectral analyzer; the empty window defaults to
// Hann.
func NewSpectralAnalyzer(window SpectralWindow) (*SpectralAnalyzer, error) {
	return spectral.New(window)
}

// NewDecoder builds the protocol decoder for a config.
func NewDecoder(cfg DecoderConfig) (Decoder, error) {
	return decode.New(cfg)
}

// NewAnalysisSink builds a standalone analysis sink, for callers running the
// pass outside a Runtime (replayed archives, ad-hoc captures).
func NewAnalysisSink(window SpectralWindow, obs Observability, decoders ...Decoder) (*AnalysisSink, error) {
	return sink.NewAnalysisSink(window, obs, decoders...)
}
