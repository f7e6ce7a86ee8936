package economy

import (
	"math/rand"
	"sync"
	"time"
)

// Range is an inclusive integer interval.
type Range struct {
	Min int
	Max int
}

// Roller draws randomized task rewards. It is safe for concurrent use.
type Roller struct {
	mu   sync.Mutex
	rng  *rand.Rand
	xp   Range
	gold Range
}

// RollerOption configures a Roller.
type RollerOption func(*Roller)

// WithSeed makes the draws deterministic.
func WithSeed(seed int64) RollerOption {
	return func(r *Roller) {
		r.rng = rand.New(rand.NewSource(seed)) // #nosec G404 -- game rewards, not security
	}
}

// NewRoller returns a roller drawing xp and gold uniformly from the given ranges.
func NewRoller(xp, gold Range, opts ...RollerOption) *Roller {
	r := &Roller{
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- game rewards, not security
		xp:   xp,
		gold: gold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Roll draws one reward.
func (r *Roller) Roll() Reward {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Reward{XP: r.draw(r.xp), Gold: r.draw(r.gold)}
}

func (r *Roller) draw(rg Range) int {
	if rg.Max <= rg.Min {
		return rg.Min
	}
	return rg.Min + r.rng.Intn(rg.Max-rg.Min+1)
}
