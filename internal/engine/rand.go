package engine

import "math/rand"

// Random streams are derived from the session seed and the game clock
// rather than carried between calls, so a restored session draws the same
// numbers as one that never stopped.
const (
	streamRace = iota + 1
	streamStrategy
	streamAging
	streamResearch
	// AI picks made while the grid is built, before the first week runs
	// on the same clock
	streamResearchOpening
)

// mix folds values into a seed with the splitmix64 finalizer.
func mix(vals ...int64) int64 {
	h := uint64(0x9E3779B97F4A7C15)
	for _, v := range vals {
		h ^= uint64(v)
		h *= 0xBF58476D1CE4E5B9
		h ^= h >> 31
		h *= 0x94D049BB133111EB
		h ^= h >> 29
	}
	return int64(h)
}

func (s *Season) rand(stream, index int) *rand.Rand {
	src := mix(s.seed, int64(s.season), int64(s.week), int64(s.round), int64(stream), int64(index))
	return rand.New(rand.NewSource(src))
}
