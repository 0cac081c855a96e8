package decode

import (
	"fmt"

	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
)

// I2CParams assigns the two bus lines.
type I2CParams struct {
	SCL int `yaml:"scl"`
	SDA int `yaml:"sda"`
}

// I2C decodes transactions: START, address byte + R/W + ACK, data bytes with
// ACKs, STOP. One frame per transaction; the payload is the address byte
// followed by the data bytes. Unterminated or NACK-addressed transactions are
// kept as invalid frames.
type I2C struct {
	p I2CParams
}

func NewI2C(p I2CParams) (*I2C, error) {
	if p.SCL == p.SDA {
		return nil, fmt.Errorf("%w: i2c scl and sda on the same channel", ErrBadParams)
	}
	return &I2C{p: p}, nil
}

func (d *I2C) Protocol() domain.SignalType { return domain.SignalI2C }

func (d *I2C) Decode(c *domain.Capture) ([]domain.DecodedFrame, error) {
	scl, err := channelLevels(c, d.p.SCL)
	if err != nil {
		return nil, err
	}
	sda, err := channelLevels(c, d.p.SDA)
	if err != nil {
		return nil, err
	}
	n := len(scl)
	if len(sda) < n {
		n = len(sda)
	}

	var frames []domain.DecodedFrame
	i := 1
	for i < n {
		// START: SDA falls while SCL is high.
		if !(scl[i] && scl[i-1] && fallingAt(sda, i)) {
			i++
			continue
		}
		start := i
		frame, next := d.transaction(c, scl, sda, start, n)
		frames = append(frames, frame)
		i = next
	}
	return frames, nil
}

// transaction consumes one transaction starting at the START condition index
// and returns the frame plus the index to resume scanning from.
func (d *I2C) transaction(c *domain.Capture, scl, sda []bool, start, n int) (domain.DecodedFrame, int) {
	var (
		payload []byte
		bits    int
		cur     byte
		acks    []bool
		sawStop bool
		stopIdx = n
		restart = false
	)

	i := start + 1
	for i < n {
		if scl[i] && scl[i-1] {
			// The clock pulse that sets up a STOP or repeated START registers
			// as one pending bit; it is not payload.
			if fallingAt(sda, i) && bits <= 1 {
				// Repeated START: terminate this transaction, resume here.
				restart = true
				stopIdx = i
				break
			}
			if risingAt(sda, i) {
				sawStop = true
				stopIdx = i
				break
			}
		}
		if risingAt(scl, i) {
			bits++
			if bits <= 8 {
				cur = cur<<1 | boolBit(sda[i])
				if bits == 8 {
					payload = append(payload, cur)
				}
			} else {
				acks = append(acks, !sda[i]) // SDA low on the 9th clock = ACK
				bits = 0
				cur = 0
			}
		}
		i++
	}

	valid := true
	var errDetail string
	switch {
	case len(payload) == 0:
		valid = false
		errDetail = "no address byte before stop"
	case !sawStop && !restart:
		valid = false
		errDetail = "unterminated transaction"
	case len(acks) == 0 || !acks[0]:
		valid = false
		errDetail = "address not acknowledged"
	case bits > 1:
		valid = false
		errDetail = "partial byte"
	}

	annotation := ""
	if len(payload) > 0 {
		dir := "W"
		if payload[0]&1 == 1 {
			dir = "R"
		}
		ack := "nak"
		if len(acks) > 0 && acks[0] {
			ack = "ack"
		}
		annotation = fmt.Sprintf("addr 0x%02X %s %s, %d data", payload[0]>>1, dir, ack, len(payload)-1)
	}

	end := stopIdx
	resume := stopIdx
	if sawStop {
		resume = stopIdx + 1
		end = stopIdx + 1
	}
	if !sawStop && !restart {
		resume = n
	}

	return domain.DecodedFrame{
		Protocol:   domain.SignalI2C,
		Start:      c.Start + uint64(start),
		End:        c.Start + uint64(end),
		Payload:    payload,
		Valid:      valid,
		Annotation: annotation,
		Err:        errDetail,
	}, resume
}

func boolBit(b bool) byte {
	if b {
		return 1
	}
	return 0
}

var _ Decoder = (*I2C)(nil)
