package service

import (
	"context"
	"fmt"

	"github.com/okian/anchor/internal/adapters/repository"
	"github.com/okian/anchor/internal/domain/economy"
	"github.com/okian/anchor/internal/domain/model"
	"github.com/okian/anchor/internal/domain/streak"
	"github.com/okian/anchor/pkg/logger"
	"github.com/okian/anchor/pkg/metrics"
)

// HabitOutcome describes a habit toggle.
type HabitOutcome struct {
	Habit         model.Habit  `json:"habit"`
	Player        model.Player `json:"player"`
	Completed     bool         `json:"completed"`
	LevelUp       bool         `json:"level_up"`
	RewardRevoked bool         `json:"reward_revoked,omitempty"`
}

// SweepOutcome describes a penalty sweep.
type SweepOutcome struct {
	Today     string       `json:"today"`
	Damage    int          `json:"damage"`
	Penalized []string     `json:"penalized"`
	Reset     []string     `json:"reset"`
	Player    model.Player `json:"player"`
}

// Habits returns the habit list.
func (s *Service) Habits(context.Context) []model.Habit {
	return s.store.Snapshot().Habits
}

// ToggleHabit flips today's completion of a habit. Completing pays the habit
// reward; undoing follows the undo policy.
func (s *Service) ToggleHabit(ctx context.Context, id string) (HabitOutcome, error) {
	today := s.calendar.Today()
	var (
		out    HabitOutcome
		change economy.Change
	)
	st, err := s.store.Update(ctx, func(st *repository.State) error {
		i := habitIndex(st.Habits, id)
		if i < 0 {
			return fmt.Errorf("%w: habit %q", ErrNotFound, id)
		}
		res := streak.Toggle(st.Habits[i], today)
		st.Habits[i] = res.Habit
		out.Habit = res.Habit
		out.Completed = res.Completed

		if res.Completed {
			change = economy.Grant(st.Player, s.habitReward)
			st.Player = change.After
			return nil
		}
		var revoked bool
		change, revoked = s.undo.Undo(st.Player, s.habitReward)
		if revoked {
			st.Player = change.After
			out.RewardRevoked = true
		}
		return nil
	})
	if err != nil {
		return HabitOutcome{}, err
	}

	out.Player = st.Player
	out.LevelUp = change.LevelUp()
	metrics.RecordHabitToggle(out.Completed)
	if out.RewardRevoked {
		metrics.RecordRewardRevoked()
	}
	s.afterPlayerChange(ctx, change)
	return out, nil
}

// SweepHabits penalizes habits missed yesterday and resets today's flags.
// Health loss and habit changes are written together. Repeating the sweep on
// the same day does nothing.
func (s *Service) SweepHabits(ctx context.Context) (SweepOutcome, error) {
	today, yesterday := s.calendar.Days()
	out := SweepOutcome{Today: today}
	st, err := s.store.Update(ctx, func(st *repository.State) error {
		res := streak.Sweep(st.Habits, today, yesterday, s.habitPenalty)
		st.Habits = res.Habits
		st.Player = economy.Damage(st.Player, res.Damage).After
		out.Damage = res.Damage
		out.Penalized = res.Penalized
		out.Reset = res.Reset
		return nil
	})
	if err != nil {
		return SweepOutcome{}, err
	}
	if out.Penalized == nil {
		out.Penalized = []string{}
	}
	if out.Reset == nil {
		out.Reset = []string{}
	}
	out.Player = st.Player

	metrics.RecordPenaltySweep(len(out.Penalized), out.Damage, s.calendar.Now().Unix())
	s.publishPlayer(st.Player)
	if out.Damage > 0 {
		s.logger.Info(ctx, "habit penalty applied",
			logger.Int("damage", out.Damage),
			logger.Int("habits", len(out.Penalized)),
			logger.Int("health", st.Player.Health))
	}
	return out, nil
}

// RunSweep runs SweepHabits for the scheduler.
func (s *Service) RunSweep(ctx context.Context) error {
	_, err := s.SweepHabits(ctx)
	return err
}

func habitIndex(habits []model.Habit, id string) int {
	for i := range habits {
		if habits[i].ID == id {
			return i
		}
	}
	return -1
}
