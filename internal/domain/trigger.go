package domain

import "fmt"

// Edge is the transition polarity a trigger watches for.
type Edge string

const (
	EdgeRising  Edge = "rising"
	EdgeFalling Edge = "falling"
	EdgeEither  Edge = "either"
)

// TriggerMode controls how acquisition cycles recycle after completion.
type TriggerMode string

const (
	// ModeAuto force-triggers at the buffer tail after a timeout so the
	// display free-runs even without a qualifying edge.
	ModeAuto TriggerMode = "auto"
	// ModeNormal only completes on a real edge and rearms immediately.
	ModeNormal TriggerMode = "normal"
	// ModeSingle completes once and stays complete until rearmed.
	ModeSingle TriggerMode = "single"
)

// TriggerSpec is the trigger condition for one capture run. Immutable per run.
type TriggerSpec struct {
	Source int         `json:"source" yaml:"source"`
	Edge   Edge        `json:"edge" yaml:"edge"`
	Level  float64     `json:"level_volts" yaml:"level_volts"`
	Mode   TriggerMode `json:"mode" yaml:"mode"`
}

// Validate checks the spec against the configuration invariants.
func (s TriggerSpec) Validate() error {
	if s.Source < 0 || s.Source >= NumChannels {
		return fmt.Errorf("trigger source %d out of range 0..%d", s.Source, NumChannels-1)
	}
	if s.Level < 0 || s.Level > MaxThresholdVolts {
		return fmt.Errorf("trigger level %.3fV out of range 0..%.0fV", s.Level, MaxThresholdVolts)
	}
	switch s.Edge {
	case EdgeRising, EdgeFalling, EdgeEither:
	default:
		return fmt.Errorf("unknown trigger edge %q", s.Edge)
	}
	switch s.Mode {
	case ModeAuto, ModeNormal, ModeSingle:
	default:
		return fmt.Errorf("unknown trigger mode %q", s.Mode)
	}
	return nil
}
