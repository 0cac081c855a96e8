package domain

import "time"

// SampleBatch is one timestamped block of raw per-channel values delivered by
// a device adapter. Ownership moves to the sample buffer on ingest; the
// adapter must not retain or mutate it afterwards.
type SampleBatch struct {
	StartIndex uint64
	Timestamp  time.Time
	Samples    map[int][]float64 // channel index -> values, equal lengths
}

// Len returns the number of samples per channel in the batch.
func (b *SampleBatch) Len() int {
	for _, v := range b.Samples {
		return len(v)
	}
	return 0
}
