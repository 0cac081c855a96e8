package decode

import (
	"fmt"

	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
)

// Standard-speed 1-Wire timing boundaries in microseconds.
const (
	onewireOneMaxUS   = 15.0  // low pulse up to this long reads as a 1
	onewireResetMinUS = 480.0 // low pulse at least this long is a reset
	onewirePresenceUS = 75.0  // presence pulse must begin within this after reset release
)

// OneWireParams assigns the single data line.
type OneWireParams struct {
	Data int `yaml:"data"`
}

// OneWire classifies low pulses into reset pulses and bit time slots (short
// low = 1, long low = 0) and assembles bits LSB-first into byte frames. A
// reset flushes any partial byte as an invalid frame.
type OneWire struct {
	p OneWireParams
}

func NewOneWire(p OneWireParams) (*OneWire, error) {
	return &OneWire{p: p}, nil
}

func (d *OneWire) Protocol() domain.SignalType { return domain.SignalOneWire }

func (d *OneWire) Decode(c *domain.Capture) ([]domain.DecodedFrame, error) {
	levels, err := channelLevels(c, d.p.Data)
	if err != nil {
		return nil, err
	}
	perUS := c.SampleRate / 1e6
	if onewireOneMaxUS*perUS < 1 {
		return nil, fmt.Errorf("%w: sample rate %.0f too low for 1-wire slot timing", ErrBadParams, c.SampleRate)
	}
	oneMax := int(onewireOneMaxUS * perUS)
	resetMin := int(onewireResetMinUS * perUS)
	presenceMax := int(onewirePresenceUS * perUS)

	runs := runLengths(levels)

	var frames []domain.DecodedFrame
	var (
		cur       byte
		bits      int
		byteStart int
	)

	flushPartial := func(end int) {
		if bits == 0 {
			return
		}
		frames = append(frames, domain.DecodedFrame{
			Protocol:   domain.SignalOneWire,
			Start:      c.Start + uint64(byteStart),
			End:        c.Start + uint64(end),
			Payload:    []byte{cur},
			Valid:      false,
			Annotation: fmt.Sprintf("partial byte, %d bits", bits),
			Err:        "byte interrupted",
		})
		cur, bits = 0, 0
	}

	for ri := 0; ri < len(runs); ri++ {
		r := runs[ri]
		if r.high {
			continue
		}
		end := r.start + r.n
		switch {
		case r.n >= resetMin:
			flushPartial(r.start)
			annotation := "reset, no presence"
			// Presence: the next low pulse shortly after the reset release.
			if ri+2 < len(runs) && runs[ri+1].high && runs[ri+1].n <= presenceMax && !runs[ri+2].high {
				p := runs[ri+2]
				if p.n < resetMin && p.n > oneMax {
					annotation = "reset, presence"
					end = p.start + p.n
					ri += 2
				}
			}
			frames = append(frames, domain.DecodedFrame{
				Protocol:   domain.SignalOneWire,
				Start:      c.Start + uint64(r.start),
				End:        c.Start + uint64(end),
				Valid:      true,
				Annotation: annotation,
			})
		case r.n <= oneMax:
			if bits == 0 {
				byteStart = r.start
			}
			cur |= 1 << bits
			bits++
		default:
			if bits == 0 {
				byteStart = r.start
			}
			bits++
		}
		if bits == 8 {
			frames = append(frames, domain.DecodedFrame{
				Protocol:   domain.SignalOneWire,
				Start:      c.Start + uint64(byteStart),
				End:        c.Start + uint64(end),
				Payload:    []byte{cur},
				Valid:      true,
				Annotation: fmt.Sprintf("0x%02X", cur),
			})
			cur, bits = 0, 0
		}
	}
	flushPartial(len(levels))
	return frames, nil
}

var _ Decoder = (*OneWire)(nil)
