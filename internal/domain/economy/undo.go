package economy

import (
	"fmt"

	"github.com/okian/anchor/internal/domain/model"
)

// UndoPolicy decides what happens to a granted reward when a task or habit
// completion is undone.
type UndoPolicy string

const (
	// KeepReward leaves the reward with the player.
	KeepReward UndoPolicy = "keep_reward"
	// RevokeReward takes the reward back, flooring at zero.
	RevokeReward UndoPolicy = "revoke_reward"
)

// ParseUndoPolicy validates s.
func ParseUndoPolicy(s string) (UndoPolicy, error) {
	switch p := UndoPolicy(s); p {
	case KeepReward, RevokeReward:
		return p, nil
	default:
		return "", fmt.Errorf("%w: undo policy %q", ErrInvalidPolicy, s)
	}
}

// Undo applies the policy to p for a previously granted reward r. The bool
// reports whether the reward was taken back.
func (u UndoPolicy) Undo(p model.Player, r Reward) (Change, bool) {
	if u != RevokeReward {
		return change(p, p), false
	}
	return Revoke(p, r), true
}
