package adc

import "sync"

// Sequence replays a fixed list of samples. Every read returns the next value; once the
// list is exhausted the last value repeats. An empty Sequence always reads 0.
type Sequence struct {
	mu     sync.Mutex
	values []Sample
	pos    int
}

// NewSequence creates a sequence source over values.
func NewSequence(values ...Sample) *Sequence {
	v := make([]Sample, len(values))
	copy(v, values)
	return &Sequence{values: v}
}

// Latest returns the next sample in the sequence.
func (s *Sequence) Latest() Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.pos]
	if s.pos < len(s.values)-1 {
		s.pos++
	}
	return v
}

// Convert is Latest, so a Sequence can also feed a Continuous converter.
func (s *Sequence) Convert() Sample {
	return s.Latest()
}
