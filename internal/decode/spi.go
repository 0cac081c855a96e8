package decode

import (
	"fmt"

	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
)

// SPIParams assigns the bus lines and clocking mode. MISO and CS are
// optional (-1 disables them); without CS, words are framed purely by clock
// edges from the start of the capture.
type SPIParams struct {
	SCLK     int `yaml:"sclk"`
	MOSI     int `yaml:"mosi"`
	MISO     int `yaml:"miso"` // -1 = not connected
	CS       int `yaml:"cs"`   // -1 = not connected, otherwise active low
	Mode     int `yaml:"mode"` // 0..3 (CPOL<<1 | CPHA)
	WordSize int `yaml:"word_size"` // 1..32, default 8
}

// SPI shifts words MSB-first on the mode's sampling edge. One frame per
// word: payload holds the MOSI word bytes, then the MISO word bytes when a
// MISO line is assigned. Words cut short by CS deassertion are invalid.
type SPI struct {
	p SPIParams
}

func NewSPI(p SPIParams) (*SPI, error) {
	if p.WordSize == 0 {
		p.WordSize = 8
	}
	if p.WordSize < 1 || p.WordSize > 32 {
		return nil, fmt.Errorf("%w: spi word size %d out of range 1..32", ErrBadParams, p.WordSize)
	}
	if p.Mode < 0 || p.Mode > 3 {
		return nil, fmt.Errorf("%w: spi mode %d out of range 0..3", ErrBadParams, p.Mode)
	}
	if p.SCLK == p.MOSI {
		return nil, fmt.Errorf("%w: spi sclk and mosi on the same channel", ErrBadParams)
	}
	return &SPI{p: p}, nil
}

func (d *SPI) Protocol() domain.SignalType { return domain.SignalSPI }

// sampleOnRising reports whether the mode samples on the rising clock edge.
// CPHA=0 samples on the leading edge (rising for CPOL=0, falling for CPOL=1);
// CPHA=1 samples on the trailing edge.
func (d *SPI) sampleOnRising() bool {
	switch d.p.Mode {
	case 0, 3:
		return true
	default:
		return false
	}
}

func (d *SPI) Decode(c *domain.Capture) ([]domain.DecodedFrame, error) {
	sclk, err := channelLevels(c, d.p.SCLK)
	if err != nil {
		return nil, err
	}
	mosi, err := channelLevels(c, d.p.MOSI)
	if err != nil {
		return nil, err
	}
	var miso []bool
	if d.p.MISO >= 0 {
		if miso, err = channelLevels(c, d.p.MISO); err != nil {
			return nil, err
		}
	}
	var cs []bool
	if d.p.CS >= 0 {
		if cs, err = channelLevels(c, d.p.CS); err != nil {
			return nil, err
		}
	}

	n := len(sclk)
	rising := d.sampleOnRising()

	var frames []domain.DecodedFrame
	var (
		mosiWord, misoWord uint32
		bits               int
		wordStart          int
	)

	flush := func(end int, valid bool, errDetail string) {
		if bits == 0 {
			return
		}
		frames = append(frames, d.frame(c, wordStart, end, mosiWord, misoWord, bits, valid, errDetail))
		mosiWord, misoWord, bits = 0, 0, 0
	}

	for i := 1; i < n; i++ {
		if cs != nil && cs[i] && !cs[i-1] {
			// CS deasserted: a partial word is a framing error.
			flush(i, false, "word cut short by cs")
			continue
		}
		if cs != nil && cs[i] {
			continue
		}

		edge := (rising && risingAt(sclk, i)) || (!rising && fallingAt(sclk, i))
		if !edge {
			continue
		}
		if bits == 0 {
			wordStart = i
		}
		mosiWord = mosiWord<<1 | uint32(boolBit(mosi[i]))
		if miso != nil {
			misoWord = misoWord<<1 | uint32(boolBit(miso[i]))
		}
		bits++
		if bits == d.p.WordSize {
			frames = append(frames, d.frame(c, wordStart, i+1, mosiWord, misoWord, bits, true, ""))
			mosiWord, misoWord, bits = 0, 0, 0
		}
	}
	flush(n, false, "word cut short by capture end")
	return frames, nil
}

func (d *SPI) frame(c *domain.Capture, start, end int, mosiWord, misoWord uint32, bits int, valid bool, errDetail string) domain.DecodedFrame {
	nbytes := (d.p.WordSize + 7) / 8
	payload := make([]byte, 0, nbytes*2)
	for b := nbytes - 1; b >= 0; b-- {
		payload = append(payload, byte(mosiWord>>(8*b)))
	}
	annotation := fmt.Sprintf("mosi=0x%0*X", nbytes*2, mosiWord)
	if d.p.MISO >= 0 {
		for b := nbytes - 1; b >= 0; b-- {
			payload = append(payload, byte(misoWord>>(8*b)))
		}
		annotation += fmt.Sprintf(" miso=0x%0*X", nbytes*2, misoWord)
	}
	if !valid {
		annotation += fmt.Sprintf(" (%d/%d bits)", bits, d.p.WordSize)
	}
	return domain.DecodedFrame{
		Protocol:   domain.SignalSPI,
		Start:      c.Start + uint64(start),
		End:        c.Start + uint64(end),
		Payload:    payload,
		Valid:      valid,
		Annotation: annotation,
		Err:        errDetail,
	}
}

var _ Decoder = (*SPI)(nil)
