// Package buffer holds the per-channel sample store shared by the acquisition
// goroutine and all analysis readers. Sample indices are global and strictly
// increasing; the store retains a bounded window of the stream and the owner
// evicts the oldest region explicitly between capture cycles. Ingest of a
// batch is atomic with respect to readers: a batch is either fully visible or
// not at all.
package buffer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
)

var (
	// ErrSequenceGap means a batch arrived whose start index does not match
	// the buffer length, i.e. transfers were dropped. Fatal to the acquisition
	// cycle; timing integrity cannot be patched after the fact.
	ErrSequenceGap = errors.New("sample sequence gap")
	// ErrOutOfRange means a slice request exceeded the buffer bounds.
	ErrOutOfRange = errors.New("slice out of range")
	// ErrBufferBusy means Clear was called during an active acquisition.
	ErrBufferBusy = errors.New("buffer busy")
	// ErrCapacity means an ingest would exceed the configured capacity.
	ErrCapacity = errors.New("buffer capacity exceeded")
)

// Buffer is the bounded sample store. Sample indices strictly increase and
// never gap once acquisition begins; indices below base have been evicted and
// are no longer readable.
type Buffer struct {
	mu       sync.RWMutex
	capacity int
	base     uint64
	length   uint64
	rate     float64
	data     map[int][]float64
	busy     bool
}

// New creates a buffer for the given enabled channels, capacity (samples per
// channel) and sample rate.
func New(channels []domain.Channel, capacity int, sampleRate float64) *Buffer {
	data := make(map[int][]float64, len(channels))
	for _, ch := range channels {
		if ch.Enabled {
			data[ch.Index] = make([]float64, 0, capacity)
		}
	}
	return &Buffer{
		capacity: capacity,
		rate:     sampleRate,
		data:     data,
	}
}

// SampleRate returns the timebase of the buffer.
func (b *Buffer) SampleRate() float64 { return b.rate }

// Len returns the global index one past the newest ingested sample.
func (b *Buffer) Len() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.length
}

// Base returns the global index of the oldest sample still held.
func (b *Buffer) Base() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.base
}

// SetBusy marks the buffer as owned by a running acquisition. While busy,
// Clear is rejected.
func (b *Buffer) SetBusy(busy bool) {
	b.mu.Lock()
	b.busy = busy
	b.mu.Unlock()
}

// Ingest appends one batch for every enabled channel and advances the
// timebase. The batch's start index must equal the current buffer length.
func (b *Buffer) Ingest(batch *domain.SampleBatch) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if batch.StartIndex != b.length {
		return fmt.Errorf("%w: batch starts at %d, buffer length %d", ErrSequenceGap, batch.StartIndex, b.length)
	}
	n := batch.Len()
	if n == 0 {
		return nil
	}
	if b.capacity > 0 && int(b.length-b.base)+n > b.capacity {
		return fmt.Errorf("%w: %d+%d > %d", ErrCapacity, b.length-b.base, n, b.capacity)
	}
	for idx := range b.data {
		vals, ok := batch.Samples[idx]
		if !ok || len(vals) != n {
			return fmt.Errorf("%w: channel %d missing or short in batch at %d", ErrSequenceGap, idx, batch.StartIndex)
		}
		b.data[idx] = append(b.data[idx], vals...)
	}
	b.length += uint64(n)
	return nil
}

// Slice returns a copy of one channel's samples over [start, end). Copying
// keeps the region stable for readers while ingest continues.
func (b *Buffer) Slice(channel int, start, end uint64) ([]float64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, ok := b.data[channel]
	if !ok {
		return nil, fmt.Errorf("%w: channel %d not captured", ErrOutOfRange, channel)
	}
	if start < b.base || start > end || end > b.length {
		return nil, fmt.Errorf("%w: [%d,%d) of [%d,%d)", ErrOutOfRange, start, end, b.base, b.length)
	}
	out := make([]float64, end-start)
	copy(out, data[start-b.base:end-b.base])
	return out, nil
}

// Snapshot copies [start, end) for every enabled channel in one atomic read.
func (b *Buffer) Snapshot(start, end uint64) (map[int][]float64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if start < b.base || start > end || end > b.length {
		return nil, fmt.Errorf("%w: [%d,%d) of [%d,%d)", ErrOutOfRange, start, end, b.base, b.length)
	}
	out := make(map[int][]float64, len(b.data))
	for idx, data := range b.data {
		region := make([]float64, end-start)
		copy(region, data[start-b.base:end-b.base])
		out[idx] = region
	}
	return out, nil
}

// EnsureRoom evicts the oldest held samples until room more samples fit within
// capacity. Eviction never crosses keepFrom, so a region still needed by an
// in-flight capture stays readable; if the protected region alone exceeds
// capacity the following Ingest reports ErrCapacity as usual. Returns the new
// base.
func (b *Buffer) EnsureRoom(room int, keepFrom uint64) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.capacity <= 0 {
		return b.base
	}
	overflow := int(b.length-b.base) + room - b.capacity
	if overflow <= 0 {
		return b.base
	}
	target := b.base + uint64(overflow)
	if target > keepFrom {
		target = keepFrom
	}
	if target > b.length {
		target = b.length
	}
	b.evictLocked(target)
	return b.base
}

func (b *Buffer) evictLocked(before uint64) {
	if before <= b.base {
		return
	}
	drop := int(before - b.base)
	for idx := range b.data {
		data := b.data[idx]
		n := copy(data, data[drop:])
		b.data[idx] = data[:n]
	}
	b.base = before
}

// Clear resets the buffer for a new session. Rejected while an acquisition is
// in progress; samples are never evicted silently mid-capture.
func (b *Buffer) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.busy {
		return ErrBufferBusy
	}
	for idx := range b.data {
		b.data[idx] = b.data[idx][:0]
	}
	b.base = 0
	b.length = 0
	return nil
}
