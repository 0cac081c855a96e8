package decode

import (
	"bytes"
	"errors"
	"testing"
)

// spiWave renders the four bus lines, three samples per clock phase.
type spiWave struct {
	sclk, mosi, miso, cs []bool
}

func (w *spiWave) emit(sclk, mosi, miso, cs bool) {
	for i := 0; i < 3; i++ {
		w.sclk = append(w.sclk, sclk)
		w.mosi = append(w.mosi, mosi)
		w.miso = append(w.miso, miso)
		w.cs = append(w.cs, cs)
	}
}

func (w *spiWave) idle()      { w.emit(false, false, false, true) }
func (w *spiWave) selectLow() { w.emit(false, false, false, false) }
func (w *spiWave) deselect()  { w.emit(false, false, false, true) }

// mode0Bits clocks bits with data valid across the rising edge.
func (w *spiWave) mode0Bits(mo, mi byte, n int) {
	for k := n - 1; k >= 0; k-- {
		mob, mib := mo>>k&1 == 1, mi>>k&1 == 1
		w.emit(false, mob, mib, false)
		w.emit(true, mob, mib, false)
	}
}

func spiChans(w *spiWave) map[int][]bool {
	return map[int][]bool{0: w.sclk, 1: w.mosi, 2: w.miso, 3: w.cs}
}

func TestSPIMode0TwoBytes(t *testing.T) {
	w := &spiWave{}
	w.idle()
	w.selectLow()
	w.mode0Bits(0xDE, 0xBE, 8)
	w.mode0Bits(0xAD, 0xEF, 8)
	w.deselect()
	w.idle()

	c := levelCapture(t, testSampleRate, spiChans(w))
	d, err := NewSPI(SPIParams{SCLK: 0, MOSI: 1, MISO: 2, CS: 3})
	if err != nil {
		t.Fatalf("NewSPI failed: %v", err)
	}
	frames, err := d.Decode(c)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("decoded %d frames, want 2", len(frames))
	}
	if !frames[0].Valid || !bytes.Equal(frames[0].Payload, []byte{0xDE, 0xBE}) {
		t.Fatalf("first frame = %+v, want valid mosi DE miso BE", frames[0])
	}
	if frames[0].Annotation != "mosi=0xDE miso=0xBE" {
		t.Fatalf("annotation = %q", frames[0].Annotation)
	}
	if !frames[1].Valid || !bytes.Equal(frames[1].Payload, []byte{0xAD, 0xEF}) {
		t.Fatalf("second frame = %+v, want valid mosi AD miso EF", frames[1])
	}
}

func TestSPIWordCutByChipSelect(t *testing.T) {
	w := &spiWave{}
	w.idle()
	w.selectLow()
	w.mode0Bits(0xF0, 0x00, 8)
	w.mode0Bits(0x0A, 0x00, 4) // only four bits before CS rises
	w.deselect()
	w.idle()

	c := levelCapture(t, testSampleRate, spiChans(w))
	d, err := NewSPI(SPIParams{SCLK: 0, MOSI: 1, MISO: 2, CS: 3})
	if err != nil {
		t.Fatalf("NewSPI failed: %v", err)
	}
	frames, err := d.Decode(c)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("decoded %d frames, want 2", len(frames))
	}
	if !frames[0].Valid {
		t.Fatalf("first frame = %+v, want valid", frames[0])
	}
	if frames[1].Valid || frames[1].Err != "word cut short by cs" {
		t.Fatalf("second frame = %+v, want invalid cut-short word", frames[1])
	}
}

func TestSPIMode1SamplesFallingEdge(t *testing.T) {
	w := &spiWave{}
	w.idle()
	w.selectLow()
	for k := 7; k >= 0; k-- {
		b := byte(0x5C)>>k&1 == 1
		w.emit(true, b, false, false)
		w.emit(false, b, false, false)
	}
	w.deselect()

	c := levelCapture(t, testSampleRate, spiChans(w))
	d, err := NewSPI(SPIParams{SCLK: 0, MOSI: 1, MISO: -1, CS: 3, Mode: 1})
	if err != nil {
		t.Fatalf("NewSPI failed: %v", err)
	}
	frames, err := d.Decode(c)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(frames) != 1 || !frames[0].Valid || !bytes.Equal(frames[0].Payload, []byte{0x5C}) {
		t.Fatalf("frames = %+v, want one valid 0x5C word", frames)
	}
}

func TestSPISixteenBitWordsWithoutChipSelect(t *testing.T) {
	w := &spiWave{}
	w.selectLow() // lines at rest, no CS assigned
	for k := 15; k >= 0; k-- {
		b := uint16(0xBEEF)>>k&1 == 1
		w.emit(false, b, false, false)
		w.emit(true, b, false, false)
	}
	w.selectLow()

	c := levelCapture(t, testSampleRate, map[int][]bool{0: w.sclk, 1: w.mosi})
	d, err := NewSPI(SPIParams{SCLK: 0, MOSI: 1, MISO: -1, CS: -1, WordSize: 16})
	if err != nil {
		t.Fatalf("NewSPI failed: %v", err)
	}
	frames, err := d.Decode(c)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(frames) != 1 || !frames[0].Valid {
		t.Fatalf("frames = %+v, want one valid word", frames)
	}
	if !bytes.Equal(frames[0].Payload, []byte{0xBE, 0xEF}) {
		t.Fatalf("payload = %x, want beef", frames[0].Payload)
	}
}

func TestSPIRejectsBadParams(t *testing.T) {
	cases := []SPIParams{
		{SCLK: 0, MOSI: 1, WordSize: 33},
		{SCLK: 0, MOSI: 1, Mode: 4},
		{SCLK: 0, MOSI: 0},
	}
	for _, p := range cases {
		if _, err := NewSPI(p); !errors.Is(err, ErrBadParams) {
			t.Fatalf("NewSPI(%+v) error = %v, want ErrBadParams", p, err)
		}
	}
}
