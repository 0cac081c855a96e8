// Package acquire orchestrates one acquisition pipeline: it pulls batches
// from the bound device adapter, ingests them into the sample buffer,
// advances the trigger engine, and fans finalized captures out to sinks
// without ever blocking the acquisition goroutine on analysis work.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/buffer"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/ports"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/trigger"
)

var (
	// ErrNotConnected means Start was called with no device adapter bound.
	ErrNotConnected = errors.New("no device adapter bound")
	// ErrAlreadyRunning means Start was called during an active acquisition.
	ErrAlreadyRunning = errors.New("acquisition already running")
	// ErrUnsupportedConfig means the channel set or trigger spec was rejected
	// before acquisition started.
	ErrUnsupportedConfig = errors.New("unsupported configuration")
)

// Controller owns the sample buffer and trigger engine lifecycle across
// acquisition cycles.
type Controller struct {
	adapter ports.DeviceAdapter
	filter  ports.BatchFilter
	queue   ports.CaptureQueue
	pol     ports.Policy
	obs     ports.Observability

	mu       sync.Mutex
	running  bool
	emitted  bool
	cycleLo  uint64
	channels []domain.Channel
	buf      *buffer.Buffer
	eng      *trigger.Engine
	rate     float64
	cancel   context.CancelFunc

	sinkMu sync.Mutex
	sinks  []ports.CaptureSink

	acqDone  chan struct{}
	dispDone chan struct{}
}

// New builds a controller around an adapter and dispatch queue. The adapter
// may be nil; Start will then fail with ErrNotConnected.
func New(adapter ports.DeviceAdapter, queue ports.CaptureQueue, pol ports.Policy, obs ports.Observability) *Controller {
	return &Controller{
		adapter: adapter,
		queue:   queue,
		pol:     pol,
		obs:     obs,
	}
}

// SetFilter installs an optional batch preprocessor.
func (c *Controller) SetFilter(f ports.BatchFilter) { c.filter = f }

// AddSink registers a capture consumer. Each finalized capture is delivered
// to every registered sink exactly once per cycle.
func (c *Controller) AddSink(s ports.CaptureSink) {
	c.sinkMu.Lock()
	c.sinks = append(c.sinks, s)
	c.sinkMu.Unlock()
}

// Buffer exposes the live sample buffer for read-only inspection.
func (c *Controller) Buffer() *buffer.Buffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf
}

// TriggerState reports the engine's current cycle state, or Idle when no
// acquisition has been configured yet.
func (c *Controller) TriggerState() trigger.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.eng == nil {
		return trigger.StateIdle
	}
	return c.eng.State()
}

// Running reports whether an acquisition is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Start validates the configuration, connects the adapter and launches the
// acquisition and dispatch goroutines. Configuration is passed in explicitly
// so cycles stay independently testable.
func (c *Controller) Start(ctx context.Context, channels []domain.Channel, spec domain.TriggerSpec, sampleRate float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.adapter == nil {
		return ErrNotConnected
	}
	if c.running {
		return ErrAlreadyRunning
	}
	if err := validateConfig(channels, spec, sampleRate); err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedConfig, err)
	}
	if err := c.adapter.Configure(channels, sampleRate); err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedConfig, err)
	}

	eng, err := trigger.New(spec, c.pol)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedConfig, err)
	}
	if err := eng.Arm(); err != nil {
		return err
	}

	snapshot := make([]domain.Channel, len(channels))
	copy(snapshot, channels)

	c.channels = snapshot
	c.rate = sampleRate
	c.buf = buffer.New(snapshot, c.pol.BufferCapacity, sampleRate)
	c.buf.SetBusy(true)
	c.eng = eng
	c.cycleLo = 0
	c.emitted = false
	c.running = true

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.acqDone = make(chan struct{})
	c.dispDone = make(chan struct{})

	go c.acquisitionLoop(runCtx)
	go c.dispatchLoop(runCtx)

	c.obs.LogInfo("acquisition_started",
		ports.Field{Key: "mode", Value: string(spec.Mode)},
		ports.Field{Key: "source", Value: spec.Source})
	return nil
}

// Stop force-completes the current cycle, emitting whatever has been captured
// as a possibly-short capture. Always succeeds; callable at any time without
// deadlocking acquisition, even while sinks still chew on a prior capture.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	if c.eng.Stop(c.buf.Len()) {
		c.emitLocked()
	}
	c.buf.SetBusy(false)
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.obs.LogInfo("acquisition_stopped")
}

// Wait blocks until the acquisition and dispatch goroutines have exited.
func (c *Controller) Wait() {
	c.mu.Lock()
	acqDone, dispDone := c.acqDone, c.dispDone
	c.mu.Unlock()

	if acqDone != nil {
		<-acqDone
	}
	if dispDone != nil {
		<-dispDone
	}
}

func (c *Controller) acquisitionLoop(ctx context.Context) {
	defer close(c.acqDone)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		batch, err := c.adapter.ReadBatch()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.fatal("device_read_failed", err)
			return
		}
		if !c.ingest(batch) {
			return
		}
	}
}

// ingest runs one batch through the buffer and trigger engine. Returns false
// when the acquisition cycle is over and the loop should exit.
func (c *Controller) ingest(batch *domain.SampleBatch) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		// Stopped while ReadBatch was blocked; discard the stale batch.
		return false
	}

	if c.filter != nil {
		filtered, err := c.filter.Apply(batch, c.channels)
		if err != nil {
			c.obs.LogError("batch_filter_failed", err)
		} else {
			batch = filtered
		}
	}

	c.makeRoomLocked(batch.Len())

	if err := c.buf.Ingest(batch); err != nil {
		c.fatalLocked("ingest_failed", err)
		return false
	}
	c.obs.IncCounter("acs_batches_ingested_total", 1)

	src := batch.Samples[c.eng.Spec().Source]
	start := batch.StartIndex
	for {
		if !c.eng.Advance(start, src) {
			if c.eng.Spec().Mode == domain.ModeNormal && c.pol.NormalTimeoutSamples > 0 &&
				c.eng.State() == trigger.StateSearching && c.eng.Searched() >= c.pol.NormalTimeoutSamples {
				// Normal mode never synthesizes a trigger; just note the stall.
				c.obs.IncCounter("acs_normal_search_stalled_total", 1)
			}
			return true
		}

		_, end, _, err := c.eng.Result()
		if err != nil {
			c.fatalLocked("trigger_result_failed", err)
			return false
		}
		c.emitLocked()

		if c.eng.Spec().Mode == domain.ModeSingle {
			c.running = false
			c.buf.SetBusy(false)
			return false
		}

		// Normal and Auto rearm immediately; the next cycle's region starts
		// where the completed one ended, so a trigger edge in the tail of the
		// same batch is searched without waiting for the next transfer.
		if err := c.eng.Arm(); err != nil {
			c.fatalLocked("rearm_failed", err)
			return false
		}
		c.cycleLo = end
		c.emitted = false

		tail := start + uint64(len(src))
		if end >= tail {
			return true
		}
		src = src[end-start:]
		start = end
	}
}

// makeRoomLocked evicts stale buffer regions so sustained Normal and Auto
// acquisition never trips the capacity limit. While the engine still searches,
// eviction may run up to the buffer tail (pre-trigger depth is bounded by
// capacity) and headroom for the post-trigger fill is reserved; once a trigger
// fired, the active capture region is protected and only older samples go.
func (c *Controller) makeRoomLocked(n int) {
	keepFrom := c.buf.Len()
	room := n
	switch c.eng.State() {
	case trigger.StateTriggered, trigger.StateCapturing:
		keepFrom = c.cycleLo
	default:
		room += c.pol.PostTriggerSamples + c.pol.BatchSize
	}
	if base := c.buf.EnsureRoom(room, keepFrom); base > c.cycleLo {
		c.cycleLo = base
	}
}

// emitLocked finalizes the completed cycle into an immutable capture and
// hands it to the dispatch queue. Guarded so a cycle emits at most once even
// when Stop races the acquisition loop.
func (c *Controller) emitLocked() {
	if c.emitted {
		return
	}
	trigIdx, end, forced, err := c.eng.Result()
	if err != nil {
		return
	}
	if end <= c.cycleLo {
		// Nothing captured this cycle (stop before any sample).
		c.emitted = true
		return
	}

	samples, err := c.buf.Snapshot(c.cycleLo, end)
	if err != nil {
		c.obs.LogCritical("capture_snapshot_failed", err)
		return
	}
	cap := &domain.Capture{
		SampleRate:   c.rate,
		Start:        c.cycleLo,
		End:          end,
		TriggerIndex: trigIdx,
		Forced:       forced,
		Trigger:      c.eng.Spec(),
		Channels:     c.channels,
		Samples:      samples,
		CreatedAt:    time.Now().UTC(),
	}
	c.emitted = true

	if !c.queue.Enqueue(cap) {
		c.obs.RecordDroppedCapture(cap, errors.New("capture queue full"))
		return
	}
	c.obs.IncCounter("acs_captures_total", 1)
}

func (c *Controller) dispatchLoop(ctx context.Context) {
	defer close(c.dispDone)

	sleep := c.pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	for {
		cap, ok := c.queue.Dequeue()
		if !ok {
			select {
			case <-ctx.Done():
				// Drain whatever Stop emitted before exiting.
				for {
					cap, ok = c.queue.Dequeue()
					if !ok {
						return
					}
					c.deliver(cap)
				}
			case <-time.After(sleep):
			}
			continue
		}
		c.deliver(cap)
	}
}

func (c *Controller) deliver(cap *domain.Capture) {
	c.sinkMu.Lock()
	sinks := make([]ports.CaptureSink, len(c.sinks))
	copy(sinks, c.sinks)
	c.sinkMu.Unlock()

	for _, s := range sinks {
		start := time.Now()
		if err := s.Consume(cap); err != nil {
			c.obs.LogError("capture_sink_failed", err, ports.Field{Key: "sink", Value: s.Name()})
			continue
		}
		c.obs.ObserveLatency("acs_sink_latency_seconds", time.Since(start).Seconds())
	}
}

func (c *Controller) fatal(msg string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fatalLocked(msg, err)
}

func (c *Controller) fatalLocked(msg string, err error) {
	c.obs.LogCritical(msg, err)
	if errors.Is(err, buffer.ErrSequenceGap) {
		c.obs.IncCounter("acs_sequence_gap_total", 1)
	}
	c.running = false
	if c.buf != nil {
		c.buf.SetBusy(false)
	}
	if c.cancel != nil {
		c.cancel()
	}
}

func validateConfig(channels []domain.Channel, spec domain.TriggerSpec, sampleRate float64) error {
	if sampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive")
	}
	enabled := 0
	var sourceEnabled bool
	seen := make(map[int]bool, len(channels))
	for _, ch := range channels {
		if err := ch.Validate(); err != nil {
			return err
		}
		if seen[ch.Index] {
			return fmt.Errorf("duplicate channel index %d", ch.Index)
		}
		seen[ch.Index] = true
		if ch.Enabled {
			enabled++
			if ch.Index == spec.Source {
				sourceEnabled = true
			}
		}
	}
	if enabled == 0 {
		return fmt.Errorf("no channels enabled")
	}
	if err := spec.Validate(); err != nil {
		return err
	}
	if !sourceEnabled {
		return fmt.Errorf("trigger source channel %d not enabled", spec.Source)
	}
	return nil
}
