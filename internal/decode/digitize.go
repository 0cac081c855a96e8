package decode

import (
	"fmt"

	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
)

// channelLevels digitizes one capture channel against its configured logic
// threshold, honoring the invert flag. A sample exactly at the threshold
// counts as high, matching the trigger engine's comparison.
func channelLevels(c *domain.Capture, index int) ([]bool, error) {
	samples := c.ChannelSamples(index)
	if samples == nil {
		return nil, fmt.Errorf("%w: channel %d", ErrChannelMissing, index)
	}
	ch, ok := c.Channel(index)
	if !ok {
		return nil, fmt.Errorf("%w: channel %d", ErrChannelMissing, index)
	}
	threshold := ch.Threshold
	levels := make([]bool, len(samples))
	for i, v := range samples {
		high := v >= threshold
		if ch.Invert {
			high = !high
		}
		levels[i] = high
	}
	return levels, nil
}

// run is one maximal stretch of a constant logic level.
type run struct {
	start int
	n     int
	high  bool
}

// runLengths splits a level stream into constant runs.
func runLengths(levels []bool) []run {
	if len(levels) == 0 {
		return nil
	}
	var runs []run
	cur := run{start: 0, n: 1, high: levels[0]}
	for i := 1; i < len(levels); i++ {
		if levels[i] == cur.high {
			cur.n++
			continue
		}
		runs = append(runs, cur)
		cur = run{start: i, n: 1, high: levels[i]}
	}
	return append(runs, cur)
}

// shortestRun estimates one bit interval in samples from the shortest stable
// run, ignoring the partial runs at both ends of the stream. Returns 0 when
// the stream has no complete run.
func shortestRun(levels []bool) int {
	runs := runLengths(levels)
	if len(runs) < 3 {
		return 0
	}
	min := 0
	for _, r := range runs[1 : len(runs)-1] {
		if min == 0 || r.n < min {
			min = r.n
		}
	}
	return min
}

// fallingAt reports a high→low transition into index i.
func fallingAt(levels []bool, i int) bool {
	return i > 0 && levels[i-1] && !levels[i]
}

// risingAt reports a low→high transition into index i.
func risingAt(levels []bool, i int) bool {
	return i > 0 && !levels[i-1] && levels[i]
}

// levelAt samples a level at a fractional index, clamping to the stream end.
func levelAt(levels []bool, pos float64) bool {
	i := int(pos)
	if i < 0 {
		i = 0
	}
	if i >= len(levels) {
		i = len(levels) - 1
	}
	return levels[i]
}
