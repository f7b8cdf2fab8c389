package client

import (
	"math/rand"
	"time"
)

// RetryPolicy decides how long to wait before re-attempting a failed
// daemon call.
type RetryPolicy interface {
	Delay(attempt int) time.Duration
}

// PollBackoff spaces retries with doubling, fully jittered delays. The delay
// for attempt n is drawn uniformly from [Floor, min(Floor<<n, Ceiling)], so
// a burst of clients recovering from a daemon restart spreads out instead of
// retrying in lockstep.
type PollBackoff struct {
	Floor   time.Duration
	Ceiling time.Duration
}

// DefaultBackoff matches the dashboard poll cadence: the first retry waits
// 250ms and no retry waits longer than one 2s poll interval.
func DefaultBackoff() *PollBackoff {
	return &PollBackoff{
		Floor:   250 * time.Millisecond,
		Ceiling: 2 * time.Second,
	}
}

// Delay returns the wait before the given attempt (0-based). Attempt 0
// always waits exactly Floor.
func (b *PollBackoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	ceiling := b.Ceiling
	// A left shift past 62 bits overflows; treat it as uncapped doubling.
	if attempt < 62 {
		if shifted := b.Floor << uint(attempt); shifted > 0 && shifted < ceiling {
			ceiling = shifted
		}
	}
	if ceiling <= b.Floor {
		return b.Floor
	}
	return b.Floor + time.Duration(rand.Int63n(int64(ceiling-b.Floor)+1))
}
