package decode

import (
	"fmt"

	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
)

// PS2Params assigns the clock and data lines.
type PS2Params struct {
	Clock int `yaml:"clock"`
	Data  int `yaml:"data"`
}

// PS2 samples the data line on falling clock edges and assembles 11-bit
// device frames: start(0), 8 data bits LSB-first, odd parity, stop(1).
// Parity and framing failures are kept as invalid frames.
type PS2 struct {
	p PS2Params
}

func NewPS2(p PS2Params) (*PS2, error) {
	if p.Clock == p.Data {
		return nil, fmt.Errorf("%w: ps2 clock and data on the same channel", ErrBadParams)
	}
	return &PS2{p: p}, nil
}

func (d *PS2) Protocol() domain.SignalType { return domain.SignalPS2 }

func (d *PS2) Decode(c *domain.Capture) ([]domain.DecodedFrame, error) {
	clock, err := channelLevels(c, d.p.Clock)
	if err != nil {
		return nil, err
	}
	data, err := channelLevels(c, d.p.Data)
	if err != nil {
		return nil, err
	}
	n := len(clock)
	if len(data) < n {
		n = len(data)
	}

	var frames []domain.DecodedFrame
	var (
		bits       []bool
		frameStart int
	)
	for i := 1; i < n; i++ {
		if !fallingAt(clock, i) {
			continue
		}
		if len(bits) == 0 {
			if data[i] {
				continue // waiting for a start bit
			}
			frameStart = i
		}
		bits = append(bits, data[i])
		if len(bits) == 11 {
			frames = append(frames, d.frame(c, bits, frameStart, i+1))
			bits = nil
		}
	}
	if len(bits) > 0 {
		frames = append(frames, domain.DecodedFrame{
			Protocol:   domain.SignalPS2,
			Start:      c.Start + uint64(frameStart),
			End:        c.Start + uint64(n),
			Valid:      false,
			Annotation: fmt.Sprintf("partial frame, %d bits", len(bits)),
			Err:        "frame cut short by capture end",
		})
	}
	return frames, nil
}

func (d *PS2) frame(c *domain.Capture, bits []bool, start, end int) domain.DecodedFrame {
	var v byte
	ones := 0
	for k := 0; k < 8; k++ {
		if bits[1+k] {
			v |= 1 << k
			ones++
		}
	}
	parity := bits[9]
	stop := bits[10]

	// Odd parity: data bits plus the parity bit hold an odd number of ones.
	parityOK := (ones+boolInt(parity))%2 == 1

	valid := true
	var errDetail string
	switch {
	case !stop:
		valid = false
		errDetail = "stop bit not high"
	case !parityOK:
		valid = false
		errDetail = "parity error"
	}

	return domain.DecodedFrame{
		Protocol:   domain.SignalPS2,
		Start:      c.Start + uint64(start),
		End:        c.Start + uint64(end),
		Payload:    []byte{v},
		Valid:      valid,
		Annotation: fmt.Sprintf("0x%02X", v),
		Err:        errDetail,
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ Decoder = (*PS2)(nil)
