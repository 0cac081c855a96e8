package domain

import "fmt"

// SignalType selects how a channel's samples are interpreted downstream.
type SignalType string

const (
	SignalDigital SignalType = "digital"
	SignalAnalog  SignalType = "analog"
	SignalPWM     SignalType = "pwm"
	SignalI2C     SignalType = "i2c"
	SignalSPI     SignalType = "spi"
	SignalUART    SignalType = "uart"
	SignalOneWire SignalType = "1wire"
	SignalCAN     SignalType = "can"
	SignalLIN     SignalType = "lin"
	SignalPS2     SignalType = "ps2"
)

// Coupling is the analog front-end coupling mode of a channel.
type Coupling string

const (
	CouplingDC  Coupling = "dc"
	CouplingAC  Coupling = "ac"
	CouplingGND Coupling = "gnd"
)

const (
	// NumChannels is the pod width of the supported hardware.
	NumChannels = 8

	// MaxThresholdVolts bounds the logic threshold of any channel.
	MaxThresholdVolts = 30.0
)

// Channel is the per-input configuration active during a capture. It is
// immutable while an acquisition runs and snapshotted into each Capture.
type Channel struct {
	Index          int        `json:"index" yaml:"index"`
	Type           SignalType `json:"type" yaml:"type"`
	Coupling       Coupling   `json:"coupling" yaml:"coupling"`
	Range          float64    `json:"range_volts" yaml:"range_volts"` // 0 means auto
	Threshold      float64    `json:"threshold_volts" yaml:"threshold_volts"`
	BandwidthLimit bool       `json:"bandwidth_limit" yaml:"bandwidth_limit"`
	Invert         bool       `json:"invert" yaml:"invert"`
	Enabled        bool       `json:"enabled" yaml:"enabled"`
}

// Validate reports whether the channel configuration is usable.
func (c Channel) Validate() error {
	if c.Index < 0 || c.Index >= NumChannels {
		return fmt.Errorf("channel index %d out of range 0..%d", c.Index, NumChannels-1)
	}
	if c.Threshold < 0 || c.Threshold > MaxThresholdVolts {
		return fmt.Errorf("channel %d threshold %.3fV out of range 0..%.0fV", c.Index, c.Threshold, MaxThresholdVolts)
	}
	if c.Range < 0 {
		return fmt.Errorf("channel %d negative voltage range", c.Index)
	}
	return nil
}
