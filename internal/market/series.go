package market

import "swapscope/internal/model"

// Series keeps the most recent tick samples up to a fixed capacity, backing
// the dashboard chart. Not safe for concurrent use; callers synchronize.
type Series struct {
	capacity int
	samples  []model.TickSample
}

func NewSeries(capacity int) *Series {
	if capacity <= 0 {
		capacity = 1
	}
	return &Series{capacity: capacity, samples: make([]model.TickSample, 0, capacity)}
}

func (s *Series) Add(sample model.TickSample) {
	if len(s.samples) == s.capacity {
		copy(s.samples, s.samples[1:])
		s.samples = s.samples[:len(s.samples)-1]
	}
	s.samples = append(s.samples, sample)
}

func (s *Series) Len() int {
	return len(s.samples)
}

// Samples returns a copy, oldest first.
func (s *Series) Samples() []model.TickSample {
	out := make([]model.TickSample, len(s.samples))
	copy(out, s.samples)
	return out
}
