package analyzer

import (
	"errors"
	"fmt"
	"sync"
)

// ErrChannelSinkClosed is returned when a channel sink receives a capture
// after being closed.
var ErrChannelSinkClosed = errors.New("analyzer: channel sink closed")

// CaptureFunc is invoked with each finalized capture.
type CaptureFunc func(*Capture) error

// NewCallbackSink adapts a CaptureFunc into a full CaptureSink implementation
// so callers can plug arbitrary functions without defining structs.
func NewCallbackSink(name string, fn CaptureFunc) CaptureSink {
	if name == "" {
		name = "callback"
	}
	return &callbackSink{name: name, fn: fn}
}

// NewChannelSink exposes captures via a channel; it returns the sink, the
// read-only channel, and a close function the caller should invoke during
// shutdown.
func NewChannelSink(name string, buffer int) (CaptureSink, <-chan *Capture, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan *Capture, buffer)
	s := &channelSink{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

type callbackSink struct {
	name string
	fn   CaptureFunc
}

func (s *callbackSink) Consume(c *Capture) error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	return s.fn(c)
}

func (s *callbackSink) Name() string { return s.name }

type channelSink struct {
	name   string
	ch     chan *Capture
	closed chan struct{}
	once   sync.Once
}

func (s *channelSink) Consume(c *Capture) error {
	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	default:
	}

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	case s.ch <- c:
		return nil
	}
}

func (s *channelSink) Name() string { return s.name }

func (s *channelSink) close() {
	s.once.Do(func() {
		close(s.closed)
		close(s.ch)
	})
}
