package analyzer

import (
	"errors"
	"testing"
	"time"
)

func TestNewCallbackSink(t *testing.T) {
	var received []*Capture
	sink := NewCallbackSink("cb", func(c *Capture) error {
		received = append(received, c)
		return nil
	})

	input := &Capture{SampleRate: 100_000, Start: 0, End: 64, TriggerIndex: 16}

	if err := sink.Consume(input); err != nil {
		t.Fatalf("Consume returned error: %v", err)
	}
	if len(received) != 1 || received[0] != input {
		t.Fatalf("expected the capture to be delivered, got %v", received)
	}
	if sink.Name() != "cb" {
		t.Fatalf("unexpected sink name %q", sink.Name())
	}
}

func TestNewCallbackSinkNilHandler(t *testing.T) {
	sink := NewCallbackSink("", nil)
	if sink.Name() != "callback" {
		t.Fatalf("expected default name, got %q", sink.Name())
	}
	if err := sink.Consume(&Capture{}); err == nil {
		t.Fatalf("expected error when callback is nil")
	}
}

func TestNewChannelSink(t *testing.T) {
	sink, ch, closeFn := NewChannelSink("chan", 1)
	defer closeFn()

	input := &Capture{SampleRate: 100_000, Start: 0, End: 64}
	errCh := make(chan error, 1)

	go func() {
		errCh <- sink.Consume(input)
	}()

	var got *Capture
	select {
	case got = <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for capture")
	}

	if err := <-errCh; err != nil {
		t.Fatalf("Consume returned error: %v", err)
	}
	if got != input {
		t.Fatalf("unexpected capture: %+v", got)
	}

	closeFn()
	if err := sink.Consume(input); !errors.Is(err, ErrChannelSinkClosed) {
		t.Fatalf("expected ErrChannelSinkClosed, got %v", err)
	}
}
