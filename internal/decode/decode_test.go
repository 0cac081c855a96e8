package decode

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
)

const (
	testHighVolts  = 3.3
	testThreshold  = 1.5
	testSampleRate = 96000.0
)

// levelCapture builds a finalized capture from per-channel logic levels,
// rendered as voltages around a common threshold.
func levelCapture(t *testing.T, rate float64, chans map[int][]bool) *domain.Capture {
	t.Helper()
	n := 0
	c := &domain.Capture{
		SampleRate: rate,
		Samples:    make(map[int][]float64, len(chans)),
		CreatedAt:  time.Now(),
	}
	for idx, levels := range chans {
		if n == 0 {
			n = len(levels)
		}
		if len(levels) != n {
			t.Fatalf("channel %d has %d samples, want %d", idx, len(levels), n)
		}
		samples := make([]float64, len(levels))
		for i, high := range levels {
			if high {
				samples[i] = testHighVolts
			}
		}
		c.Samples[idx] = samples
		c.Channels = append(c.Channels, domain.Channel{
			Index:     idx,
			Type:      domain.SignalDigital,
			Coupling:  domain.CouplingDC,
			Threshold: testThreshold,
			Enabled:   true,
		})
	}
	c.End = uint64(n)
	return c
}

// rep appends n copies of a level.
func rep(w []bool, level bool, n int) []bool {
	for i := 0; i < n; i++ {
		w = append(w, level)
	}
	return w
}

func TestNewRejectsUnknownProtocol(t *testing.T) {
	_, err := New(Config{Protocol: domain.SignalType("morse")})
	if !errors.Is(err, ErrBadParams) {
		t.Fatalf("New(morse) error = %v, want ErrBadParams", err)
	}
}

func TestNewRejectsMissingParams(t *testing.T) {
	for _, proto := range []domain.SignalType{
		domain.SignalUART, domain.SignalI2C, domain.SignalSPI,
		domain.SignalOneWire, domain.SignalCAN, domain.SignalLIN, domain.SignalPS2,
	} {
		if _, err := New(Config{Protocol: proto}); !errors.Is(err, ErrBadParams) {
			t.Fatalf("New(%s) without params error = %v, want ErrBadParams", proto, err)
		}
	}
}

func TestNewDispatch(t *testing.T) {
	d, err := New(Config{Protocol: domain.SignalUART, UART: &UARTParams{RX: 0}})
	if err != nil {
		t.Fatalf("New(uart) failed: %v", err)
	}
	if got := d.Protocol(); got != domain.SignalUART {
		t.Fatalf("Protocol() = %s, want uart", got)
	}
}

func TestDecodeMissingChannel(t *testing.T) {
	c := levelCapture(t, testSampleRate, map[int][]bool{0: rep(nil, true, 32)})
	d, err := NewUART(UARTParams{RX: 5, BaudRate: 9600})
	if err != nil {
		t.Fatalf("NewUART failed: %v", err)
	}
	if _, err := d.Decode(c); !errors.Is(err, ErrChannelMissing) {
		t.Fatalf("Decode error = %v, want ErrChannelMissing", err)
	}
}

func TestDecodeIsDeterministic(t *testing.T) {
	w := rep(nil, true, 20)
	w = appendUARTByte(w, 0x5A, 10)
	w = appendUARTByte(w, 0xC3, 10)
	w = rep(w, true, 20)
	c := levelCapture(t, testSampleRate, map[int][]bool{0: w})

	d, err := NewUART(UARTParams{RX: 0, BaudRate: 9600})
	if err != nil {
		t.Fatalf("NewUART failed: %v", err)
	}
	first, err := d.Decode(c)
	if err != nil {
		t.Fatalf("first Decode failed: %v", err)
	}
	second, err := d.Decode(c)
	if err != nil {
		t.Fatalf("second Decode failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated decode diverged:\nfirst  %+v\nsecond %+v", first, second)
	}
	if len(first) != 2 {
		t.Fatalf("decoded %d frames, want 2", len(first))
	}
}

func TestDecodeHonorsInvert(t *testing.T) {
	w := rep(nil, true, 20)
	w = appendUARTByte(w, 0x41, 10)
	w = rep(w, true, 20)
	inverted := make([]bool, len(w))
	for i, high := range w {
		inverted[i] = !high
	}
	c := levelCapture(t, testSampleRate, map[int][]bool{0: inverted})
	c.Channels[0].Invert = true

	d, err := NewUART(UARTParams{RX: 0, BaudRate: 9600})
	if err != nil {
		t.Fatalf("NewUART failed: %v", err)
	}
	frames, err := d.Decode(c)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(frames) != 1 || !frames[0].Valid || frames[0].Payload[0] != 0x41 {
		t.Fatalf("inverted line decode = %+v, want one valid 0x41 frame", frames)
	}
}
