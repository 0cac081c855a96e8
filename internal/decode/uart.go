package decode

import (
	"fmt"
	"math"

	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
)

// Parity is the UART parity mode.
type Parity string

const (
	ParityNone Parity = "none"
	ParityEven Parity = "even"
	ParityOdd  Parity = "odd"
)

// UARTParams parameterizes the UART byte-recovery state machine.
type UARTParams struct {
	RX       int     `yaml:"rx"`
	BaudRate float64 `yaml:"baud_rate"` // 0 = auto-estimate from shortest bit interval
	DataBits int     `yaml:"data_bits"` // 5..9, default 8
	Parity   Parity  `yaml:"parity"`    // default none
	StopBits int     `yaml:"stop_bits"` // 1..2, default 1
}

// UART decodes start bit → N data bits (LSB first) → optional parity →
// stop bit(s) frames from one channel. The line idles high.
type UART struct {
	p UARTParams
}

func NewUART(p UARTParams) (*UART, error) {
	if p.DataBits == 0 {
		p.DataBits = 8
	}
	if p.StopBits == 0 {
		p.StopBits = 1
	}
	if p.Parity == "" {
		p.Parity = ParityNone
	}
	if p.DataBits < 5 || p.DataBits > 9 {
		return nil, fmt.Errorf("%w: uart data bits %d out of range 5..9", ErrBadParams, p.DataBits)
	}
	if p.StopBits < 1 || p.StopBits > 2 {
		return nil, fmt.Errorf("%w: uart stop bits %d out of range 1..2", ErrBadParams, p.StopBits)
	}
	switch p.Parity {
	case ParityNone, ParityEven, ParityOdd:
	default:
		return nil, fmt.Errorf("%w: uart parity %q", ErrBadParams, p.Parity)
	}
	if p.BaudRate < 0 {
		return nil, fmt.Errorf("%w: negative baud rate", ErrBadParams)
	}
	return &UART{p: p}, nil
}

func (u *UART) Protocol() domain.SignalType { return domain.SignalUART }

func (u *UART) Decode(c *domain.Capture) ([]domain.DecodedFrame, error) {
	levels, err := channelLevels(c, u.p.RX)
	if err != nil {
		return nil, err
	}

	bitW := 0.0
	if u.p.BaudRate > 0 {
		bitW = c.SampleRate / u.p.BaudRate
	} else if sr := shortestRun(levels); sr > 0 {
		bitW = float64(sr)
	}
	if bitW == 0 {
		return nil, nil // no activity to estimate from, nothing to decode
	}
	if bitW < 2 {
		return nil, fmt.Errorf("%w: sample rate too low for baud rate (%.1f samples per bit)", ErrBadParams, bitW)
	}

	parityBits := 0
	if u.p.Parity != ParityNone {
		parityBits = 1
	}
	frameBits := 1 + u.p.DataBits + parityBits + u.p.StopBits

	var frames []domain.DecodedFrame

	// Skip a partial frame at the region head: wait for the line to idle.
	i := 0
	for i < len(levels) && !levels[i] {
		i++
	}

	for i < len(levels) {
		if !fallingAt(levels, i) {
			i++
			continue
		}
		s := i
		if levelAt(levels, float64(s)+0.5*bitW) {
			// Glitch shorter than half a bit; not a start bit.
			i++
			continue
		}

		end := int(math.Round(float64(s) + float64(frameBits)*bitW))
		if end > len(levels) {
			frames = append(frames, domain.DecodedFrame{
				Protocol:   domain.SignalUART,
				Start:      c.Start + uint64(s),
				End:        c.Start + uint64(len(levels)),
				Valid:      false,
				Annotation: "truncated",
				Err:        "frame extends past capture end",
			})
			break
		}

		var value uint16
		ones := 0
		for k := 0; k < u.p.DataBits; k++ {
			if levelAt(levels, float64(s)+(1.5+float64(k))*bitW) {
				value |= 1 << k
				ones++
			}
		}

		valid := true
		var errDetail string

		if parityBits == 1 {
			pbit := levelAt(levels, float64(s)+(1.5+float64(u.p.DataBits))*bitW)
			if pbit {
				ones++
			}
			even := ones%2 == 0
			if (u.p.Parity == ParityEven && !even) || (u.p.Parity == ParityOdd && even) {
				valid = false
				errDetail = "parity error"
			}
		}

		for j := 0; j < u.p.StopBits; j++ {
			pos := float64(s) + (1.5+float64(u.p.DataBits+parityBits+j))*bitW
			if !levelAt(levels, pos) {
				valid = false
				if errDetail == "" {
					errDetail = "framing error: stop bit low"
				}
				break
			}
		}

		payload := []byte{byte(value)}
		if u.p.DataBits > 8 {
			payload = []byte{byte(value), byte(value >> 8)}
		}
		frames = append(frames, domain.DecodedFrame{
			Protocol:   domain.SignalUART,
			Start:      c.Start + uint64(s),
			End:        c.Start + uint64(end),
			Payload:    payload,
			Valid:      valid,
			Annotation: fmt.Sprintf("0x%02X", value),
			Err:        errDetail,
		})
		i = end
	}
	return frames, nil
}

var _ Decoder = (*UART)(nil)
