package novel

import "fmt"

const (
	// WindowSize is the number of inter-contribution intervals averaged.
	WindowSize = 5
	// BaselineInterval seeds every sample at genesis, modelling a slow start.
	BaselineInterval int64 = 1000
)

// Cadence is a rolling window of the intervals between accepted contributions.
// Samples live in a ring; next points at the oldest sample, which the next
// Record overwrites.
type Cadence struct {
	previous int64
	samples  [WindowSize]int64
	next     int
}

// NewCadence returns a window anchored at genesis with every sample at the baseline.
func NewCadence(genesis int64) *Cadence {
	c := &Cadence{previous: genesis}
	for i := range c.samples {
		c.samples[i] = BaselineInterval
	}
	return c
}

// RestoreCadence rebuilds a window from samples ordered oldest first.
func RestoreCadence(previous int64, samples []int64) (*Cadence, error) {
	if len(samples) != WindowSize {
		return nil, fmt.Errorf("cadence window needs %d samples, got %d", WindowSize, len(samples))
	}
	c := &Cadence{previous: previous}
	for i, s := range samples {
		if s < 0 {
			return nil, fmt.Errorf("cadence sample %d is negative: %d", i, s)
		}
		c.samples[i] = s
	}
	return c, nil
}

// Record pushes the interval since the previous contribution and returns it.
// A clock that runs backwards yields a zero interval.
func (c *Cadence) Record(now int64) int64 {
	delta := max(now-c.previous, 0)
	c.samples[c.next] = delta
	c.next = (c.next + 1) % WindowSize
	c.previous = max(now, c.previous)
	return delta
}

// Average is the truncated mean of the window. An all-zero window averages to 1.
func (c *Cadence) Average() int64 {
	var sum int64
	for _, s := range c.samples {
		sum += s
	}
	if sum == 0 {
		return 1
	}
	return sum / WindowSize
}

// Previous is the time of the last accepted contribution (or genesis).
func (c *Cadence) Previous() int64 {
	return c.previous
}

// Samples returns a copy of the window ordered oldest first.
func (c *Cadence) Samples() []int64 {
	out := make([]int64, 0, WindowSize)
	for i := range WindowSize {
		out = append(out, c.samples[(c.next+i)%WindowSize])
	}
	return out
}
