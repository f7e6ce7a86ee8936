// Package streak evaluates habit streaks and the missed-day penalty sweep.
package streak

import (
	"github.com/okian/anchor/internal/domain/model"
)

// SweepResult is the outcome of a penalty sweep.
type SweepResult struct {
	Habits    []model.Habit
	Damage    int
	Penalized []string
	// Reset lists habits whose completed-today flag was cleared for the new day.
	Reset []string
}

// Sweep penalizes every habit whose last completion is neither today nor
// yesterday and which has not already been penalized for yesterday. Each
// such habit loses its streak and adds penalty to the damage total; it is
// then marked penalized for yesterday so repeated sweeps on the same day
// are no-ops. Habits not completed today have CompletedToday cleared.
//
// The input slice is not modified.
func Sweep(habits []model.Habit, today, yesterday string, penalty int) SweepResult {
	res := SweepResult{Habits: make([]model.Habit, len(habits))}
	for i, h := range habits {
		if h.CompletedToday && h.LastCompletedDate != today {
			h.CompletedToday = false
			res.Reset = append(res.Reset, h.ID)
		}
		if Missed(h, today, yesterday) {
			h.CurrentStreak = 0
			h.LastPenalizedDate = yesterday
			res.Damage += penalty
			res.Penalized = append(res.Penalized, h.ID)
		}
		res.Habits[i] = h
	}
	return res
}

// Missed reports whether h is due a penalty for yesterday.
func Missed(h model.Habit, today, yesterday string) bool {
	if h.LastCompletedDate == today || h.LastCompletedDate == yesterday {
		return false
	}
	return h.LastPenalizedDate != yesterday
}

// ToggleResult describes a habit toggle.
type ToggleResult struct {
	Habit model.Habit
	// Completed is true when the toggle marked the habit done for today.
	Completed bool
}

// Toggle flips h's completion for today. Completing increments the streak,
// raises the best streak and stamps today; undoing decrements the streak
// (floored at zero) and clears the flag. Rewards are the caller's concern.
func Toggle(h model.Habit, today string) ToggleResult {
	if !h.CompletedToday {
		h.CompletedToday = true
		h.CurrentStreak++
		if h.CurrentStreak > h.BestStreak {
			h.BestStreak = h.CurrentStreak
		}
		h.LastCompletedDate = today
		return ToggleResult{Habit: h, Completed: true}
	}
	h.CompletedToday = false
	if h.CurrentStreak > 0 {
		h.CurrentStreak--
	}
	return ToggleResult{Habit: h}
}
