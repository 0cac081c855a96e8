package decode

import (
	"fmt"
	"math"

	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
)

// CANParams assigns the RX line and bit rate. The line is recessive high,
// dominant low.
type CANParams struct {
	Data    int     `yaml:"data"`
	BitRate float64 `yaml:"bit_rate"` // 0 = auto-estimate from shortest bit interval
}

// CAN decodes base-format (11-bit identifier) frames: bit destuffing,
// arbitration and control fields, data, and CRC-15 verification. Stuff, CRC
// and form errors produce invalid frames rather than aborting the pass.
type CAN struct {
	p CANParams
}

func NewCAN(p CANParams) (*CAN, error) {
	if p.BitRate < 0 {
		return nil, fmt.Errorf("%w: negative bit rate", ErrBadParams)
	}
	return &CAN{p: p}, nil
}

func (d *CAN) Protocol() domain.SignalType { return domain.SignalCAN }

func (d *CAN) Decode(c *domain.Capture) ([]domain.DecodedFrame, error) {
	levels, err := channelLevels(c, d.p.Data)
	if err != nil {
		return nil, err
	}

	bitW := 0.0
	if d.p.BitRate > 0 {
		bitW = c.SampleRate / d.p.BitRate
	} else if sr := shortestRun(levels); sr > 0 {
		bitW = float64(sr)
	}
	if bitW == 0 {
		return nil, nil
	}
	if bitW < 2 {
		return nil, fmt.Errorf("%w: sample rate too low for bit rate (%.1f samples per bit)", ErrBadParams, bitW)
	}

	var frames []domain.DecodedFrame
	i := 0
	for i < len(levels) && !levels[i] {
		i++ // skip a partial frame at the region head
	}
	for i < len(levels) {
		if !fallingAt(levels, i) {
			i++
			continue
		}
		frame, consumed := d.frame(c, levels, i, bitW)
		frames = append(frames, frame)
		end := i + consumed
		if end <= i {
			end = i + 1
		}
		i = end
	}
	return frames, nil
}

// canReader reads raw and destuffed bits at bit centers from a start index.
type canReader struct {
	levels  []bool
	start   int
	bitW    float64
	raw     int // raw bits consumed
	lastRaw bool
	runLen  int
	stuff   bool // stuff error seen
	short   bool // ran past the capture end
}

func (r *canReader) rawBit() bool {
	pos := float64(r.start) + (0.5+float64(r.raw))*r.bitW
	if int(pos) >= len(r.levels) {
		r.short = true
		return true // recessive past the end
	}
	r.raw++
	return levelAt(r.levels, pos)
}

// bit returns the next destuffed bit, consuming stuff bits after five
// identical raw bits. Stuff bits join the run counting for later stuffing.
func (r *canReader) bit() bool {
	b := r.rawBit()
	if r.raw > 1 && b == r.lastRaw {
		r.runLen++
	} else {
		r.runLen = 1
	}
	r.lastRaw = b
	if r.runLen == 5 {
		sb := r.rawBit()
		if sb == b && !r.short {
			r.stuff = true
		}
		r.runLen = 1
		r.lastRaw = sb
	}
	return b
}

func (d *CAN) frame(c *domain.Capture, levels []bool, sof int, bitW float64) (domain.DecodedFrame, int) {
	r := &canReader{levels: levels, start: sof, bitW: bitW}

	var crcBits []bool
	readField := func(n int) uint32 {
		var v uint32
		for k := 0; k < n; k++ {
			b := r.bit()
			crcBits = append(crcBits, b)
			v = v<<1 | uint32(boolBit(b))
		}
		return v
	}

	sofBit := r.bit() // dominant by construction of the falling-edge scan
	crcBits = append(crcBits, sofBit)

	id := readField(11)
	rtr := readField(1) == 1
	ide := readField(1) == 1
	readField(1) // r0, covered by CRC

	dlc := int(readField(4))
	nData := dlc
	if nData > 8 {
		nData = 8
	}
	if rtr {
		nData = 0 // remote frames carry no data field
	}

	data := make([]byte, 0, nData)
	for k := 0; k < nData; k++ {
		data = append(data, byte(readField(8)))
	}

	wantCRC := crc15(crcBits)
	gotCRC := uint16(readField(15))

	// Stuffing ends after the CRC sequence; the tail is read raw.
	crcDelim := r.rawBit()
	ackSlot := r.rawBit()
	ackDelim := r.rawBit()
	eofOK := true
	for k := 0; k < 7; k++ {
		if !r.rawBit() {
			eofOK = false
		}
	}

	valid := true
	var errDetail string
	switch {
	case r.stuff:
		valid = false
		errDetail = "bit stuffing error"
	case r.short:
		valid = false
		errDetail = "frame extends past capture end"
	case ide:
		valid = false
		errDetail = "extended identifier not supported"
	case gotCRC != wantCRC:
		valid = false
		errDetail = fmt.Sprintf("crc mismatch: got 0x%04X want 0x%04X", gotCRC, wantCRC)
	case !crcDelim || !ackDelim || !eofOK:
		valid = false
		errDetail = "form error: delimiter or eof not recessive"
	}

	ack := "nak"
	if !ackSlot {
		ack = "ack"
	}
	kind := "data"
	if rtr {
		kind = "remote"
	}
	annotation := fmt.Sprintf("id=0x%03X %s dlc=%d %s", id, kind, dlc, ack)

	consumed := int(math.Round(float64(r.raw) * bitW))
	end := sof + consumed
	if end > len(levels) {
		end = len(levels)
	}
	return domain.DecodedFrame{
		Protocol:   domain.SignalCAN,
		Start:      c.Start + uint64(sof),
		End:        c.Start + uint64(end),
		Payload:    data,
		Valid:      valid,
		Annotation: annotation,
		Err:        errDetail,
	}, consumed
}

// crc15 is the CAN CRC (polynomial 0x4599) over the destuffed bit sequence
// from SOF through the end of the data field.
func crc15(bits []bool) uint16 {
	var crc uint16
	for _, b := range bits {
		crcnxt := boolBit(b) ^ byte(crc>>14)&1
		crc = (crc << 1) & 0x7FFF
		if crcnxt == 1 {
			crc ^= 0x4599
		}
	}
	return crc & 0x7FFF
}

var _ Decoder = (*CAN)(nil)
