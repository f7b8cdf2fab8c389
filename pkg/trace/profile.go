package trace

import (
	"math"
	"math/rand"
	"time"

	"github.com/tracesmith/tracesmith/pkg/topology"
)

// Tuning constants for the randomization profile. At level 0 every call
// succeeds, every connection is followed and durations carry no jitter;
// at level 1 the rates below apply in full.
const (
	maxErrorRate       = 0.12 // base per-record error probability at level 1
	maxGroupErrorBias  = 0.06 // extra error probability for the slowest group at level 1
	maxSkipProbability = 0.35 // per-connection skip probability at level 1
	childErrorBoost    = 0.25 // added error probability per failed child
	errorRateCeiling   = 0.95
)

// Base durations per service tier. Group factor and jitter scale these.
var baseDurations = map[topology.ServiceType]time.Duration{
	topology.ServiceProxy:    500 * time.Millisecond,
	topology.ServiceWeb:      200 * time.Millisecond,
	topology.ServiceDatabase: 80 * time.Millisecond,
}

// Profile controls how much randomness the synthesizer injects: the error
// rate, the duration variance, the probability a connection is skipped in a
// given trace, and how many performance groups traces are drawn from.
// It is configuration, not persisted state.
type Profile struct {
	RandomizationLevel float64
	NumGroups          int
}

// NewProfile clamps level into [0,1] and numGroups to at least 1.
func NewProfile(level float64, numGroups int) Profile {
	if numGroups < 1 {
		numGroups = 1
	}
	return Profile{
		RandomizationLevel: math.Max(0, math.Min(1, level)),
		NumGroups:          numGroups,
	}
}

// errorRate is the probability a record is drawn as an error before any
// child failures are taken into account. Higher groups are slightly less
// reliable, mirroring their slower durations.
func (p Profile) errorRate(group int) float64 {
	groupBias := 0.0
	if p.NumGroups > 1 {
		groupBias = maxGroupErrorBias * float64(group) / float64(p.NumGroups-1)
	}
	return p.RandomizationLevel * (maxErrorRate + groupBias)
}

// skipProbability is the chance any one connection is not followed.
func (p Profile) skipProbability() float64 {
	return p.RandomizationLevel * maxSkipProbability
}

// drawDuration draws a call duration for the given tier and group.
// Group g scales the base by up to +50%; jitter widens with the
// randomization level.
func (p Profile) drawDuration(rng *rand.Rand, typ topology.ServiceType, group int) time.Duration {
	base := baseDurations[typ]
	groupFactor := 1.0
	if p.NumGroups > 1 {
		groupFactor += 0.5 * float64(group) / float64(p.NumGroups-1)
	}
	jitter := 1.0 + (rng.Float64()-0.5)*p.RandomizationLevel
	d := time.Duration(float64(base) * groupFactor * jitter)
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}

// drawStatus draws the record status. failedChildren raises the error
// probability by a fixed increment per failing child so failures propagate
// upward instead of being independent per node.
func (p Profile) drawStatus(rng *rand.Rand, group, failedChildren int) Status {
	rate := p.errorRate(group) + childErrorBoost*float64(failedChildren)
	if rate > errorRateCeiling {
		rate = errorRateCeiling
	}
	if rate > 0 && rng.Float64() < rate {
		return StatusError
	}
	return StatusSuccess
}
