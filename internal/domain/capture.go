package domain

import "time"

// Capture is one finalized acquisition: a contiguous buffer region, the
// trigger spec that produced it, and the channel set active at capture time.
// It is immutable once emitted; analysis passes share it freely.
type Capture struct {
	SampleRate   float64             `json:"sample_rate"`
	Start        uint64              `json:"start"`
	End          uint64              `json:"end"` // exclusive
	TriggerIndex uint64              `json:"trigger_index"`
	Forced       bool                `json:"forced"` // auto timeout or manual stop
	Trigger      TriggerSpec         `json:"trigger"`
	Channels     []Channel           `json:"channels"`
	Samples      map[int][]float64   `json:"samples"`
	CreatedAt    time.Time           `json:"created_at"`
}

// Len returns the number of samples in the capture region.
func (c *Capture) Len() int {
	return int(c.End - c.Start)
}

// Duration is the capture length in seconds at its sample rate.
func (c *Capture) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(c.End-c.Start) / c.SampleRate
}

// Channel returns the configuration snapshot for a channel index.
func (c *Capture) Channel(index int) (Channel, bool) {
	for _, ch := range c.Channels {
		if ch.Index == index {
			return ch, true
		}
	}
	return Channel{}, false
}

// ChannelSamples returns the sample slice recorded for a channel, or nil if
// the channel was not part of the capture.
func (c *Capture) ChannelSamples(index int) []float64 {
	return c.Samples[index]
}
