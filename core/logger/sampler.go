package logger

import (
	"strconv"
	"strings"
	"sync"
)

// maxSampledKeys bounds the per-key counters; the map is reset when full.
const maxSampledKeys = 4096

// keyedSampler passes num of every den events per key. Counting per chat
// keeps a quiet operator's updates visible while a noisy one is thinned.
// The first event of every key always passes.
type keyedSampler struct {
	mu       sync.Mutex
	num, den int
	seen     map[string]int
}

func newKeyedSampler(num, den int) *keyedSampler {
	s := &keyedSampler{}
	s.Set(num, den)
	return s
}

// Set changes the ratio and forgets all counters. A zero ratio disables
// sampling so that every event passes.
func (s *keyedSampler) Set(num, den int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if num <= 0 || den <= 0 {
		num, den = 0, 0
	}
	s.num, s.den = min(num, den), den
	s.seen = make(map[string]int)
}

// Allow reports whether the next event for key should be logged.
func (s *keyedSampler) Allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.den == 0 {
		return true
	}
	if len(s.seen) >= maxSampledKeys {
		s.seen = make(map[string]int)
	}
	n := s.seen[key]
	s.seen[key] = (n + 1) % s.den
	return n < s.num
}

// parseRatioSpec reads "num/den" or a bare "den" meaning 1/den.
// Anything unparsable or non-positive yields 0/0.
func parseRatioSpec(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	numPart, denPart, isRatio := strings.Cut(spec, "/")
	if !isRatio {
		numPart, denPart = "1", spec
	}
	num, err := strconv.Atoi(strings.TrimSpace(numPart))
	if err != nil {
		return 0, 0
	}
	den, err := strconv.Atoi(strings.TrimSpace(denPart))
	if err != nil || num <= 0 || den <= 0 {
		return 0, 0
	}
	return num, den
}
