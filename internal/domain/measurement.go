package domain

// MeasurementKind identifies one scalar measurement the engine computes.
type MeasurementKind string

const (
	MeasureMin        MeasurementKind = "min"
	MeasureMax        MeasurementKind = "max"
	MeasureMean       MeasurementKind = "mean"
	MeasureRMS        MeasurementKind = "rms"
	MeasureVpp        MeasurementKind = "vpp"
	MeasureStdDev     MeasurementKind = "std_dev"
	MeasureMedian     MeasurementKind = "median"
	MeasureFrequency  MeasurementKind = "frequency"
	MeasurePeriod     MeasurementKind = "period"
	MeasureDutyCycle  MeasurementKind = "duty_cycle"
	MeasureRiseTime   MeasurementKind = "rise_time"
	MeasureFallTime   MeasurementKind = "fall_time"
	MeasureOvershoot  MeasurementKind = "overshoot"
	MeasureUndershoot MeasurementKind = "undershoot"
)

// MeasurementResult is one computed value over a capture region. Results are
// replaced wholesale when the capture, gate or channel changes, never patched.
type MeasurementResult struct {
	Kind        MeasurementKind `json:"kind"`
	Channel     int             `json:"channel"`
	Value       float64         `json:"value"`
	Unit        string          `json:"unit"`
	RegionStart uint64          `json:"region_start"`
	RegionEnd   uint64          `json:"region_end"`
	Err         string          `json:"err,omitempty"`
}

// OK reports whether the measurement produced a usable value.
func (r MeasurementResult) OK() bool { return r.Err == "" }
