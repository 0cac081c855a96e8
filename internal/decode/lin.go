package decode

import (
	"fmt"
	"math"

	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
)

// LINChecksum selects the checksum model of the bus revision.
type LINChecksum string

const (
	// LINChecksumClassic covers the data bytes only (LIN 1.x).
	LINChecksumClassic LINChecksum = "classic"
	// LINChecksumEnhanced also covers the protected identifier (LIN 2.x).
	LINChecksumEnhanced LINChecksum = "enhanced"
)

// LINParams assigns the bus line and framing.
type LINParams struct {
	Data     int         `yaml:"data"`
	BaudRate float64     `yaml:"baud_rate"` // 0 = auto-estimate
	Checksum LINChecksum `yaml:"checksum"`  // default classic
}

// LIN decodes break / sync / protected-identifier / data / checksum frames.
// One frame per break; identifier parity and checksum failures are kept as
// invalid frames.
type LIN struct {
	p LINParams
}

func NewLIN(p LINParams) (*LIN, error) {
	if p.Checksum == "" {
		p.Checksum = LINChecksumClassic
	}
	switch p.Checksum {
	case LINChecksumClassic, LINChecksumEnhanced:
	default:
		return nil, fmt.Errorf("%w: lin checksum model %q", ErrBadParams, p.Checksum)
	}
	if p.BaudRate < 0 {
		return nil, fmt.Errorf("%w: negative baud rate", ErrBadParams)
	}
	return &LIN{p: p}, nil
}

func (d *LIN) Protocol() domain.SignalType { return domain.SignalLIN }

func (d *LIN) Decode(c *domain.Capture) ([]domain.DecodedFrame, error) {
	levels, err := channelLevels(c, d.p.Data)
	if err != nil {
		return nil, err
	}

	bitW := 0.0
	if d.p.BaudRate > 0 {
		bitW = c.SampleRate / d.p.BaudRate
	} else if sr := shortestRun(levels); sr > 0 {
		bitW = float64(sr)
	}
	if bitW == 0 {
		return nil, nil
	}
	if bitW < 2 {
		return nil, fmt.Errorf("%w: sample rate too low for baud rate (%.1f samples per bit)", ErrBadParams, bitW)
	}
	breakMin := int(10 * bitW) // break detection threshold, nominal is >= 13 bits
	idleMax := int(10 * bitW)  // max gap between response bytes

	runs := runLengths(levels)

	var frames []domain.DecodedFrame
	for ri, r := range runs {
		if r.high || r.n < breakMin {
			continue
		}
		frame := d.frame(c, levels, runs, ri, bitW, breakMin, idleMax)
		frames = append(frames, frame)
	}
	return frames, nil
}

func (d *LIN) frame(c *domain.Capture, levels []bool, runs []run, breakRun int, bitW float64, breakMin, idleMax int) domain.DecodedFrame {
	start := runs[breakRun].start
	afterBreak := start + runs[breakRun].n

	invalid := func(end int, errDetail string) domain.DecodedFrame {
		return domain.DecodedFrame{
			Protocol: domain.SignalLIN,
			Start:    c.Start + uint64(start),
			End:      c.Start + uint64(end),
			Valid:    false,
			Err:      errDetail,
		}
	}

	sync, ok, end := readByte8N1(levels, afterBreak, bitW, idleMax)
	if !ok {
		return invalid(afterBreak, "no sync byte after break")
	}
	if sync != 0x55 {
		return invalid(end, fmt.Sprintf("bad sync byte 0x%02X", sync))
	}

	pid, ok, end := readByte8N1(levels, end, bitW, idleMax)
	if !ok {
		return invalid(end, "no identifier after sync")
	}
	id := pid & 0x3F
	parityOK := linPID(id) == pid

	var resp []byte
	for {
		b, ok, next := readByte8N1(levels, end, bitW, idleMax)
		if !ok {
			break
		}
		if isBreakAt(levels, next, breakMin) {
			// The byte ran into the next frame's break; discard it.
			break
		}
		resp = append(resp, b)
		end = next
	}

	valid := parityOK
	var errDetail string
	if !parityOK {
		errDetail = "identifier parity error"
	}

	annotation := fmt.Sprintf("id=0x%02X", id)
	var data []byte
	if len(resp) == 0 {
		annotation += " header only"
	} else {
		data = resp[:len(resp)-1]
		cksum := resp[len(resp)-1]
		want := linChecksum(data, pid, d.p.Checksum)
		if cksum != want {
			valid = false
			if errDetail == "" {
				errDetail = fmt.Sprintf("checksum mismatch: got 0x%02X want 0x%02X", cksum, want)
			}
		}
		annotation += fmt.Sprintf(" %d data", len(data))
	}

	return domain.DecodedFrame{
		Protocol:   domain.SignalLIN,
		Start:      c.Start + uint64(start),
		End:        c.Start + uint64(end),
		Payload:    data,
		Valid:      valid,
		Annotation: annotation,
		Err:        errDetail,
	}
}

// readByte8N1 reads one 8N1 byte whose start-bit falling edge occurs within
// maxGap samples of from. Returns the byte, whether a byte was found, and the
// index one past its stop bit.
func readByte8N1(levels []bool, from int, bitW float64, maxGap int) (byte, bool, int) {
	s := -1
	limit := from + maxGap
	if limit > len(levels) {
		limit = len(levels)
	}
	for i := from; i < limit; i++ {
		if i == 0 && len(levels) > 0 && !levels[0] {
			s = 0
			break
		}
		if fallingAt(levels, i) {
			s = i
			break
		}
	}
	if s < 0 {
		return 0, false, from
	}
	end := int(math.Round(float64(s) + 10*bitW))
	if end > len(levels) {
		return 0, false, from
	}
	if levelAt(levels, float64(s)+0.5*bitW) {
		return 0, false, from
	}
	var v byte
	for k := 0; k < 8; k++ {
		if levelAt(levels, float64(s)+(1.5+float64(k))*bitW) {
			v |= 1 << k
		}
	}
	if !levelAt(levels, float64(s)+9.5*bitW) {
		return 0, false, from // stop bit low: not a byte (likely a break)
	}
	return v, true, end
}

// isBreakAt reports whether a dominant run of break length begins at or
// shortly before index i.
func isBreakAt(levels []bool, i int, breakMin int) bool {
	if i >= len(levels) || levels[i] {
		return false
	}
	n := 0
	for j := i; j < len(levels) && !levels[j]; j++ {
		n++
		if n >= breakMin {
			return true
		}
	}
	return false
}

// linPID computes the protected identifier for a 6-bit id: P0 is the even
// parity of bits 0,1,2,4 and P1 the inverted even parity of bits 1,3,4,5.
func linPID(id byte) byte {
	bit := func(n uint) byte { return (id >> n) & 1 }
	p0 := bit(0) ^ bit(1) ^ bit(2) ^ bit(4)
	p1 := (bit(1) ^ bit(3) ^ bit(4) ^ bit(5) ^ 1) & 1
	return id&0x3F | p0<<6 | p1<<7
}

// linChecksum is the inverted modulo-256 sum with carry wrap-around over the
// data bytes, including the protected identifier in the enhanced model.
func linChecksum(data []byte, pid byte, model LINChecksum) byte {
	sum := 0
	if model == LINChecksumEnhanced {
		sum = int(pid)
	}
	for _, b := range data {
		sum += int(b)
		if sum > 0xFF {
			sum -= 0xFF
		}
	}
	return ^byte(sum)
}

var _ Decoder = (*LIN)(nil)
