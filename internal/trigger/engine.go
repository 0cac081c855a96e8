// Package trigger implements the streaming trigger state machine. It scans
// ingested batches sample-by-sample for the configured edge, carrying the last
// sample of the previous batch so edges spanning a batch boundary are caught.
package trigger

import (
	"fmt"

	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/ports"
)

// State is the engine's position in one acquisition cycle.
type State string

const (
	StateIdle      State = "idle"
	StateArmed     State = "armed"
	StateSearching State = "searching"
	StateTriggered State = "triggered"
	StateCapturing State = "capturing"
	StateComplete  State = "complete"
)

// Engine runs one trigger cycle Idle → Armed → Searching → Triggered →
// Capturing → Complete. Timeouts are counted in samples scanned so a given
// input stream always produces the same cycle.
type Engine struct {
	spec domain.TriggerSpec
	pol  ports.Policy

	state        State
	carry        float64
	hasCarry     bool
	scanned      int
	triggerIndex uint64
	postRemain   int
	forced       bool
	end          uint64
}

// New validates the spec and returns an engine in Idle.
func New(spec domain.TriggerSpec, pol ports.Policy) (*Engine, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("trigger spec: %w", err)
	}
	if pol.PostTriggerSamples <= 0 {
		return nil, fmt.Errorf("trigger: post-trigger sample count must be positive")
	}
	if spec.Mode == domain.ModeAuto && pol.AutoTimeoutSamples <= 0 {
		return nil, fmt.Errorf("trigger: auto mode needs a positive timeout")
	}
	return &Engine{spec: spec, pol: pol, state: StateIdle}, nil
}

// State returns the current cycle state.
func (e *Engine) State() State { return e.state }

// Spec returns the immutable trigger spec for this cycle.
func (e *Engine) Spec() domain.TriggerSpec { return e.spec }

// Arm starts a cycle from Idle or Complete. The one-sample carry and timeout
// counter reset; the trigger search begins fresh.
func (e *Engine) Arm() error {
	if e.state != StateIdle && e.state != StateComplete {
		return fmt.Errorf("trigger: cannot arm from %s", e.state)
	}
	e.state = StateArmed
	e.hasCarry = false
	e.scanned = 0
	e.triggerIndex = 0
	e.postRemain = 0
	e.forced = false
	e.end = 0
	return nil
}

// Advance feeds the trigger-source samples of one ingested batch through the
// state machine. startIndex is the buffer index of samples[0]. It returns true
// once the cycle reached Complete.
func (e *Engine) Advance(startIndex uint64, samples []float64) bool {
	if len(samples) == 0 || e.state == StateComplete || e.state == StateIdle {
		return e.state == StateComplete
	}

	if e.state == StateArmed {
		e.state = StateSearching
	}

	i := 0
	if e.state == StateSearching {
		i = e.search(startIndex, samples)
	}
	if e.state == StateCapturing {
		e.capture(startIndex+uint64(i), len(samples)-i)
	}
	return e.state == StateComplete
}

// search scans for the configured edge. It returns the offset into samples at
// which capturing should continue (one past the trigger sample).
func (e *Engine) search(startIndex uint64, samples []float64) int {
	for i, cur := range samples {
		if e.hasCarry && e.matches(e.carry, cur) {
			e.trigger(startIndex+uint64(i), false)
			return i + 1
		}
		e.carry = cur
		e.hasCarry = true
		e.scanned++

		if e.spec.Mode == domain.ModeAuto && e.scanned >= e.pol.AutoTimeoutSamples {
			// Free-run: synthesize a trigger at the buffer tail so the
			// display never stalls on an absent edge.
			e.trigger(startIndex+uint64(i), true)
			return i + 1
		}
	}
	return len(samples)
}

func (e *Engine) trigger(index uint64, forced bool) {
	e.triggerIndex = index
	e.forced = forced
	e.state = StateTriggered
	e.postRemain = e.pol.PostTriggerSamples
	e.state = StateCapturing
	e.end = index + 1
}

func (e *Engine) capture(startIndex uint64, n int) {
	if n > e.postRemain {
		n = e.postRemain
	}
	e.postRemain -= n
	e.end = startIndex + uint64(n)
	if e.postRemain == 0 {
		e.state = StateComplete
	}
}

// Searched reports how many samples have been scanned in the current search.
func (e *Engine) Searched() int { return e.scanned }

// Stop force-completes the cycle with whatever has been captured so far. The
// trigger point falls back to the stream tail when no edge was found. Always
// succeeds; stopping an idle engine is a no-op returning false.
func (e *Engine) Stop(bufferLen uint64) bool {
	switch e.state {
	case StateIdle, StateComplete:
		return e.state == StateComplete
	case StateArmed, StateSearching:
		e.forced = true
		if bufferLen > 0 {
			e.triggerIndex = bufferLen - 1
		}
	default:
		e.forced = true
	}
	e.end = bufferLen
	e.state = StateComplete
	return true
}

// Result returns the trigger sample index, the exclusive end of the captured
// region and whether the trigger was synthetic. Valid only in Complete.
func (e *Engine) Result() (triggerIndex, end uint64, forced bool, err error) {
	if e.state != StateComplete {
		return 0, 0, false, fmt.Errorf("trigger: no result in state %s", e.state)
	}
	return e.triggerIndex, e.end, e.forced, nil
}

func (e *Engine) matches(prev, cur float64) bool {
	level := e.spec.Level
	rising := prev < level && cur >= level
	falling := prev >= level && cur < level
	switch e.spec.Edge {
	case domain.EdgeRising:
		return rising
	case domain.EdgeFalling:
		return falling
	default:
		return rising || falling
	}
}
