package domain

// DecodedFrame is one protocol-level unit recovered from a capture: an I2C
// transaction, a UART byte, a CAN frame. Frames that fail framing, parity or
// checksum checks are kept with Valid=false so the packet view can surface
// errors instead of dropping data.
type DecodedFrame struct {
	Protocol   SignalType `json:"protocol"`
	Start      uint64     `json:"start"`
	End        uint64     `json:"end"`
	Payload    []byte     `json:"payload"`
	Valid      bool       `json:"valid"`
	Annotation string     `json:"annotation,omitempty"`
	Err        string     `json:"err,omitempty"`
}
