// Package acs re-exports the analyzer facade so consumers can import
// github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer directly.
package acs

import (
	base "github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/pkg/analyzer"
)

// Re-exported errors for convenience.
var ErrChannelSinkClosed = base.ErrChannelSinkClosed

// Type aliases so consumers never need the pkg/analyzer import path.
type (
	Config            = base.Config
	Policy            = base.Policy
	DeviceConfig      = base.DeviceConfig
	OPCUAConfig       = base.OPCUAConfig
	OPCUANodeBinding  = base.OPCUANodeBinding
	PostgresConfig    = base.PostgresConfig
	MetricsConfig     = base.MetricsConfig
	ArchiveConfig     = base.ArchiveConfig
	SpectralConfig    = base.SpectralConfig
	Runtime           = base.Runtime
	RuntimeOption     = base.RuntimeOption
	Capture           = base.Capture
	SampleBatch       = base.SampleBatch
	Channel           = base.Channel
	TriggerSpec       = base.TriggerSpec
	DecodedFrame      = base.DecodedFrame
	MeasurementResult = base.MeasurementResult
	CaptureFunc       = base.CaptureFunc
	AnalysisSink      = base.AnalysisSink
	AnalysisResult    = base.AnalysisResult
	MeasurementKind   = base.MeasurementKind
	MeasureGate       = base.MeasureGate
	MeasureEngine     = base.MeasureEngine
	SpectralWindow    = base.SpectralWindow
	Spectrum          = base.Spectrum
	SpectralAnalyzer  = base.SpectralAnalyzer
	DecoderConfig     = base.DecoderConfig
	Decoder           = base.Decoder
	DeviceAdapter     = base.DeviceAdapter
	CaptureSink       = base.CaptureSink
	CaptureQueue      = base.CaptureQueue
	BatchFilter       = base.BatchFilter
	CaptureArchive    = base.CaptureArchive
	CaptureID         = base.CaptureID
	ArchiveStats      = base.ArchiveStats
	Observability     = base.Observability
	Field             = base.Field
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithDeviceAdapter(d DeviceAdapter) RuntimeOption {
	return base.WithDeviceAdapter(d)
}

func WithCaptureQueue(q CaptureQueue) RuntimeOption {
	return base.WithCaptureQueue(q)
}

func WithArchive(a CaptureArchive) RuntimeOption {
	return base.WithArchive(a)
}

func WithBatchFilter(f BatchFilter) RuntimeOption {
	return base.WithBatchFilter(f)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

func WithCaptureSink(s CaptureSink) RuntimeOption {
	return base.WithCaptureSink(s)
}

// Spectral window functions.
const (
	WindowRectangular = base.WindowRectangular
	WindowHann        = base.WindowHann
	WindowHamming     = base.WindowHamming
	WindowBlackman    = base.WindowBlackman
)

// Analysis entry points.
func NewMeasureEngine(kinds ...MeasurementKind) *MeasureEngine {
	return base.NewMeasureEngine(kinds...)
}

func NewSpectralAnalyzer(window SpectralWindow) (*SpectralAnalyzer, error) {
	return base.NewSpectralAnalyzer(window)
}

func NewDecoder(cfg DecoderConfig) (Decoder, error) {
	return base.NewDecoder(cfg)
}

func NewAnalysisSink(window SpectralWindow, obs Observability, decoders ...Decoder) (*AnalysisSink, error) {
	return base.NewAnalysisSink(window, obs, decoders...)
}

// Sink adapters.
func NewCallbackSink(name string, fn CaptureFunc) CaptureSink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (CaptureSink, <-chan *Capture, func()) {
	return base.NewChannelSink(name, buffer)
}
