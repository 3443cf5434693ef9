package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// Subsystem names for the partitioned random streams. Each concern draws
// from its own stream so that adding draws to one subsystem cannot shift
// the sequence seen by another.
const (
	// StreamDemand feeds the k-factor demand model: SRN/MRN/PRN draws and
	// the per-demand realization noise.
	StreamDemand = "demand"

	// StreamTimeframe feeds booking-curve allocation noise and arrival-time
	// placement within a timeframe.
	StreamTimeframe = "timeframe"

	// StreamChoice feeds per-passenger willingness-to-pay and airline
	// preference draws in the choice model.
	StreamChoice = "choice"
)

// Generator provides deterministic, isolated random streams for one trial.
//
// Derivation: each (trial, sample, subsystem) tuple hashes to an independent
// seed via FNV-1a over the tuple rendered as a string, XORed with the base
// seed. Two runs with the same base seed and coordinates produce identical
// draws, which is what makes burn-period replay and regression tests work.
//
// Thread-safety: NOT thread-safe. Each trial owns its own Generator and
// must use it from a single goroutine.
type Generator struct {
	baseSeed int64
	trial    int
	sample   int
	streams  map[string]*rand.Rand
}

// NewGenerator creates a Generator for one trial of a run.
func NewGenerator(baseSeed int64, trial int) *Generator {
	return &Generator{
		baseSeed: baseSeed,
		trial:    trial,
		streams:  make(map[string]*rand.Rand),
	}
}

// StartSample re-derives every stream for the given sample index. Called by
// the controller at the top of each sample so that a sample's draws depend
// only on (seed, trial, sample), never on how much randomness earlier
// samples consumed.
func (g *Generator) StartSample(sample int) {
	g.sample = sample
	g.streams = make(map[string]*rand.Rand)
}

// Stream returns the deterministically-seeded stream for the named
// subsystem at the current (trial, sample) coordinates. The same name
// always returns the same *rand.Rand instance within a sample (cached).
// Never returns nil.
func (g *Generator) Stream(name string) *rand.Rand {
	if r, ok := g.streams[name]; ok {
		return r
	}
	seed := g.baseSeed ^ fnv1a64(fmt.Sprintf("%s/%d/%d", name, g.trial, g.sample))
	r := rand.New(rand.NewSource(seed))
	g.streams[name] = r
	return r
}

// Trial returns the trial index this Generator was created for.
func (g *Generator) Trial() int {
	return g.trial
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
