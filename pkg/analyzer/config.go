package analyzer

import (
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/adapters/device"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/app/config"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// Policy carries the explicit acquisition constants of the engine.
	Policy = ports.Policy
	// DeviceConfig selects and configures the sample source.
	DeviceConfig = config.DeviceConfig
	// OPCUAConfig holds connection and node-binding details.
	OPCUAConfig = device.OPCUAConfig
	// OPCUANodeBinding maps one monitored node to a channel index.
	OPCUANodeBinding = device.NodeBinding
	// PostgresConfig configures the measurement/frame results sink.
	PostgresConfig = config.PostgresConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// ArchiveConfig configures on-disk capture persistence.
	ArchiveConfig = config.ArchiveConfig
	// SpectralConfig selects the analysis window.
	SpectralConfig = config.SpectralConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
