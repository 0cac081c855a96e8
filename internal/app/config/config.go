package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/adapters/device"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/decode"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/ports"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/spectral"
)

type Config struct {
	SampleRate float64            `yaml:"sample_rate"`
	Channels   []domain.Channel   `yaml:"channels"`
	Trigger    domain.TriggerSpec `yaml:"trigger"`
	Policy     ports.Policy       `yaml:"policy"`
	Device     DeviceConfig       `yaml:"device"`
	Decoders   []decode.Config    `yaml:"decoders"`
	Spectral   SpectralConfig     `yaml:"spectral"`
	Postgres   PostgresConfig     `yaml:"postgres"`
	Metrics    MetricsConfig      `yaml:"metrics"`
	Archive    ArchiveConfig      `yaml:"archive"`
}

type DeviceConfig struct {
	Kind  string             `yaml:"kind"` // simulator | opcua
	Seed  int64              `yaml:"seed"`
	OPCUA device.OPCUAConfig `yaml:"opcua"`
}

type SpectralConfig struct {
	Window spectral.Window `yaml:"window"`
}

// PostgresConfig enables the results sink when a connection string is set.
type PostgresConfig struct {
	ConnString        string `yaml:"conn_string"`
	MeasurementsTable string `yaml:"measurements_table"`
	FramesTable       string `yaml:"frames_table"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type ArchiveConfig struct {
	Dir string `yaml:"dir"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.SampleRate == 0 {
		c.SampleRate = 100_000
	}
	if len(c.Channels) == 0 {
		c.Channels = []domain.Channel{{
			Index:     0,
			Type:      domain.SignalDigital,
			Coupling:  domain.CouplingDC,
			Threshold: 1.5,
			Enabled:   true,
		}}
	}
	for i := range c.Channels {
		if c.Channels[i].Type == "" {
			c.Channels[i].Type = domain.SignalDigital
		}
		if c.Channels[i].Coupling == "" {
			c.Channels[i].Coupling = domain.CouplingDC
		}
	}
	if c.Trigger.Edge == "" {
		c.Trigger.Edge = domain.EdgeRising
	}
	if c.Trigger.Mode == "" {
		c.Trigger.Mode = domain.ModeAuto
	}
	if c.Trigger.Level == 0 {
		c.Trigger.Level = 1.5
	}

	if c.Policy.BatchSize == 0 {
		c.Policy.BatchSize = 512
	}
	if c.Policy.BufferCapacity == 0 {
		c.Policy.BufferCapacity = 1 << 20
	}
	if c.Policy.PostTriggerSamples == 0 {
		c.Policy.PostTriggerSamples = 4096
	}
	if c.Policy.AutoTimeoutSamples == 0 {
		c.Policy.AutoTimeoutSamples = 100_000
	}
	if c.Policy.CaptureQueueLen == 0 {
		c.Policy.CaptureQueueLen = 16
	}
	if c.Policy.IdleSleep == 0 {
		c.Policy.IdleSleep = 2 * time.Millisecond
	}

	if c.Device.Kind == "" {
		c.Device.Kind = "simulator"
	}
	if c.Device.Kind == "opcua" {
		c.Device.OPCUA.ApplyDefaults()
	}

	if c.Spectral.Window == "" {
		c.Spectral.Window = spectral.WindowHann
	}
	if c.Postgres.MeasurementsTable == "" {
		c.Postgres.MeasurementsTable = "measurements"
	}
	if c.Postgres.FramesTable == "" {
		c.Postgres.FramesTable = "frames"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Archive.Dir == "" {
		c.Archive.Dir = "./data/captures"
	}
}

func (c *Config) validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %v", c.SampleRate)
	}
	seen := make(map[int]bool, len(c.Channels))
	enabled := false
	for _, ch := range c.Channels {
		if err := ch.Validate(); err != nil {
			return fmt.Errorf("channel config: %w", err)
		}
		if seen[ch.Index] {
			return fmt.Errorf("channel %d configured twice", ch.Index)
		}
		seen[ch.Index] = true
		if ch.Enabled {
			enabled = true
		}
	}
	if !enabled {
		return fmt.Errorf("at least one channel must be enabled")
	}
	if err := c.Trigger.Validate(); err != nil {
		return fmt.Errorf("trigger config: %w", err)
	}

	switch c.Device.Kind {
	case "simulator":
	case "opcua":
		if err := c.Device.OPCUA.Validate(); err != nil {
			return fmt.Errorf("opcua config: %w", err)
		}
	default:
		return fmt.Errorf("unknown device kind %q", c.Device.Kind)
	}

	for i, dc := range c.Decoders {
		if _, err := decode.New(dc); err != nil {
			return fmt.Errorf("decoder %d: %w", i, err)
		}
	}
	if _, err := spectral.New(c.Spectral.Window); err != nil {
		return fmt.Errorf("spectral config: %w", err)
	}
	return nil
}
