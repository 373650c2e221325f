package ops

import (
	"math/rand"
	"sync"
)

// Sampler decides which operational events are worth persisting. Rates are
// per action with a default; 1.0 keeps everything, 0.0 drops everything.
type Sampler struct {
	mu           sync.RWMutex
	defaultRate  float64
	rateByAction map[string]float64
}

// NewSampler constructs a sampler with the given default rate.
func NewSampler(defaultRate float64) *Sampler {
	return &Sampler{
		defaultRate:  clampRate(defaultRate),
		rateByAction: make(map[string]float64),
	}
}

// Keep reports whether an event with this action should be persisted.
func (s *Sampler) Keep(action string) bool {
	rate := s.rateFor(action)
	switch rate {
	case 0:
		return false
	case 1:
		return true
	}
	return rand.Float64() < rate //nolint:gosec // sampling does not need crypto rand
}

// SetRate overrides the rate for one action. Used to thin out high-volume
// actions such as per-finding events without touching the rest.
func (s *Sampler) SetRate(action string, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateByAction[action] = clampRate(rate)
}

func (s *Sampler) rateFor(action string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rate, ok := s.rateByAction[action]; ok {
		return rate
	}
	return s.defaultRate
}

func clampRate(rate float64) float64 {
	if rate < 0 {
		return 0
	}
	if rate > 1 {
		return 1
	}
	return rate
}
