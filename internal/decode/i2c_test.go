package decode

import (
	"bytes"
	"testing"
)

// i2cWave renders bus events sample by sample, four samples per phase.
type i2cWave struct {
	scl, sda []bool
}

func (w *i2cWave) emit(scl, sda bool) {
	for i := 0; i < 4; i++ {
		w.scl = append(w.scl, scl)
		w.sda = append(w.sda, sda)
	}
}

func (w *i2cWave) idle()  { w.emit(true, true) }
func (w *i2cWave) start() { w.emit(true, false) }

// bit clocks one bit: data set while the clock is low, sampled on the rise.
func (w *i2cWave) bit(b bool) {
	w.emit(false, b)
	w.emit(true, b)
}

func (w *i2cWave) byte(v byte, ack bool) {
	for k := 7; k >= 0; k-- {
		w.bit(v>>k&1 == 1)
	}
	w.bit(!ack) // SDA low on the ninth clock acknowledges
}

func (w *i2cWave) stop() {
	w.emit(false, false)
	w.emit(true, false)
	w.emit(true, true)
}

func (w *i2cWave) restart() {
	w.emit(false, true)
	w.emit(true, true)
	w.emit(true, false)
}

func TestI2CWriteTransaction(t *testing.T) {
	w := &i2cWave{}
	w.idle()
	w.start()
	w.byte(0xA0, true) // address 0x50, write
	w.byte(0x12, true)
	w.byte(0x34, true)
	w.stop()
	w.idle()

	c := levelCapture(t, testSampleRate, map[int][]bool{0: w.scl, 1: w.sda})
	d, err := NewI2C(I2CParams{SCL: 0, SDA: 1})
	if err != nil {
		t.Fatalf("NewI2C failed: %v", err)
	}
	frames, err := d.Decode(c)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("decoded %d frames, want 1", len(frames))
	}
	f := frames[0]
	if !f.Valid {
		t.Fatalf("frame invalid: %+v", f)
	}
	if !bytes.Equal(f.Payload, []byte{0xA0, 0x12, 0x34}) {
		t.Fatalf("payload = %x, want a01234", f.Payload)
	}
	if f.Annotation != "addr 0x50 W ack, 2 data" {
		t.Fatalf("annotation = %q", f.Annotation)
	}
}

func TestI2CAddressNack(t *testing.T) {
	w := &i2cWave{}
	w.idle()
	w.start()
	w.byte(0xA1, false) // address 0x50, read, no acknowledge
	w.stop()
	w.idle()

	c := levelCapture(t, testSampleRate, map[int][]bool{0: w.scl, 1: w.sda})
	d, err := NewI2C(I2CParams{SCL: 0, SDA: 1})
	if err != nil {
		t.Fatalf("NewI2C failed: %v", err)
	}
	frames, err := d.Decode(c)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("decoded %d frames, want 1", len(frames))
	}
	f := frames[0]
	if f.Valid || f.Err != "address not acknowledged" {
		t.Fatalf("frame = %+v, want invalid address nack", f)
	}
	if f.Annotation != "addr 0x50 R nak, 0 data" {
		t.Fatalf("annotation = %q", f.Annotation)
	}
}

func TestI2CRepeatedStart(t *testing.T) {
	w := &i2cWave{}
	w.idle()
	w.start()
	w.byte(0xA0, true)
	w.byte(0x00, true)
	w.restart()
	w.byte(0xA1, true)
	w.byte(0xFF, false)
	w.stop()
	w.idle()

	c := levelCapture(t, testSampleRate, map[int][]bool{0: w.scl, 1: w.sda})
	d, err := NewI2C(I2CParams{SCL: 0, SDA: 1})
	if err != nil {
		t.Fatalf("NewI2C failed: %v", err)
	}
	frames, err := d.Decode(c)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("decoded %d frames, want 2", len(frames))
	}
	if !frames[0].Valid || !bytes.Equal(frames[0].Payload, []byte{0xA0, 0x00}) {
		t.Fatalf("first frame = %+v, want valid write a000", frames[0])
	}
	if !frames[1].Valid || !bytes.Equal(frames[1].Payload, []byte{0xA1, 0xFF}) {
		t.Fatalf("second frame = %+v, want valid read a1ff", frames[1])
	}
	if frames[1].Start <= frames[0].Start {
		t.Fatalf("frame starts not ordered: %d then %d", frames[0].Start, frames[1].Start)
	}
}

func TestI2CUnterminatedTransaction(t *testing.T) {
	w := &i2cWave{}
	w.idle()
	w.start()
	w.byte(0xA0, true)
	// Capture ends before any STOP.

	c := levelCapture(t, testSampleRate, map[int][]bool{0: w.scl, 1: w.sda})
	d, err := NewI2C(I2CParams{SCL: 0, SDA: 1})
	if err != nil {
		t.Fatalf("NewI2C failed: %v", err)
	}
	frames, err := d.Decode(c)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(frames) != 1 || frames[0].Valid || frames[0].Err != "unterminated transaction" {
		t.Fatalf("frames = %+v, want one unterminated frame", frames)
	}
}

func TestI2CRejectsSharedChannel(t *testing.T) {
	if _, err := NewI2C(I2CParams{SCL: 2, SDA: 2}); err == nil {
		t.Fatal("NewI2C accepted scl == sda")
	}
}
