// Package economy applies experience, gold and health changes to the player
// and implements the reward shop.
package economy

import (
	"github.com/okian/anchor/internal/domain/model"
	"github.com/okian/anchor/internal/domain/progression"
)

// Reward is an experience and gold grant.
type Reward struct {
	XP   int `json:"xp"`
	Gold int `json:"gold"`
}

// Change reports the effect of a player mutation.
type Change struct {
	Before       model.Player `json:"-"`
	After        model.Player `json:"player"`
	LevelsGained int          `json:"levels_gained"`
}

// LevelUp reports whether the change crossed at least one level.
func (c Change) LevelUp() bool { return c.LevelsGained > 0 }

// Normalize clamps the player's fields to their invariants and refreshes the
// cached level.
func Normalize(p model.Player) model.Player {
	if p.MaxHealth <= 0 {
		p.MaxHealth = 1
	}
	if p.Experience < 0 {
		p.Experience = 0
	}
	if p.Gold < 0 {
		p.Gold = 0
	}
	p.Health = clamp(p.Health, 0, p.MaxHealth)
	p.Level = progression.LevelFor(p.Experience).Level
	return p
}

// Grant adds r to the player.
func Grant(p model.Player, r Reward) Change {
	after := p
	after.Experience += r.XP
	after.Gold += r.Gold
	return change(p, after)
}

// Revoke subtracts r from the player, flooring at zero.
func Revoke(p model.Player, r Reward) Change {
	after := p
	after.Experience -= r.XP
	after.Gold -= r.Gold
	return change(p, after)
}

// Damage removes health, floored at zero.
func Damage(p model.Player, amount int) Change {
	after := p
	if amount > 0 {
		after.Health -= amount
	}
	return change(p, after)
}

// Spend deducts cost gold. It fails with ErrInsufficientFunds, leaving the
// player unchanged, when gold < cost.
func Spend(p model.Player, cost int) (Change, error) {
	if cost < 0 {
		return Change{Before: p, After: p}, ErrInvalidCost
	}
	if p.Gold < cost {
		return Change{Before: p, After: p}, ErrInsufficientFunds
	}
	after := p
	after.Gold -= cost
	return change(p, after), nil
}

func change(before, after model.Player) Change {
	before = Normalize(before)
	after = Normalize(after)
	return Change{
		Before:       before,
		After:        after,
		LevelsGained: progression.LevelsGained(before.Experience, after.Experience),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
