package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/anchor/internal/adapters/repository"
	"github.com/okian/anchor/internal/domain/economy"
	"github.com/okian/anchor/internal/domain/model"
	"github.com/okian/anchor/internal/domain/progression"
	"github.com/okian/anchor/pkg/logger"
	"github.com/okian/anchor/pkg/metrics"
)

// PlayerStats is the player record with its level progress.
type PlayerStats struct {
	Player   model.Player         `json:"player"`
	Progress progression.Progress `json:"progress"`
}

// TaskOutcome describes the effect of a task operation.
type TaskOutcome struct {
	Task             model.Task     `json:"task"`
	Player           model.Player   `json:"player"`
	Change           economy.Change `json:"-"`
	LevelUp          bool           `json:"level_up"`
	AlreadyCompleted bool           `json:"already_completed,omitempty"`
	RewardRevoked    bool           `json:"reward_revoked,omitempty"`
}

// Player returns the current player record.
func (s *Service) Player(context.Context) PlayerStats {
	p := s.store.Snapshot().Player
	return PlayerStats{Player: p, Progress: progression.LevelFor(p.Experience)}
}

// Tasks returns every task in creation order.
func (s *Service) Tasks(context.Context) []model.Task {
	return s.store.Snapshot().Tasks
}

// CreateTask adds a task with a freshly rolled reward.
func (s *Service) CreateTask(ctx context.Context, title string) (model.Task, error) {
	tasks, err := s.createTasks(ctx, []string{title}, model.SourceManual, s.taskRoller)
	if err != nil {
		return model.Task{}, err
	}
	return tasks[0], nil
}

// createTasks appends one task per title in a single store update. Every
// title must be non-empty after trimming.
func (s *Service) createTasks(ctx context.Context, titles []string, source string, roller *economy.Roller) ([]model.Task, error) {
	if len(titles) == 0 {
		return nil, fmt.Errorf("%w: no titles", ErrInvalidInput)
	}
	now := s.calendar.Now()
	created := make([]model.Task, 0, len(titles))
	for _, title := range titles {
		title = strings.TrimSpace(title)
		if title == "" {
			return nil, fmt.Errorf("%w: task title must not be empty", ErrInvalidInput)
		}
		r := roller.Roll()
		created = append(created, model.Task{
			ID:         s.newID(),
			Title:      title,
			XPReward:   r.XP,
			GoldReward: r.Gold,
			CreatedAt:  now,
			Source:     source,
		})
	}

	if _, err := s.store.Update(ctx, func(st *repository.State) error {
		st.Tasks = append(st.Tasks, created...)
		return nil
	}); err != nil {
		return nil, err
	}
	metrics.RecordTaskCreated(len(created))
	s.logger.Debug(ctx, "tasks created", logger.Int("count", len(created)), logger.String("source", source))
	return model.CloneTasks(created), nil
}

// CompleteTask marks a task done and grants its reward once. Completing a
// completed task changes nothing and reports AlreadyCompleted.
func (s *Service) CompleteTask(ctx context.Context, id string) (TaskOutcome, error) {
	var out TaskOutcome
	st, err := s.store.Update(ctx, func(st *repository.State) error {
		i := taskIndex(st.Tasks, id)
		if i < 0 {
			return fmt.Errorf("%w: task %q", ErrNotFound, id)
		}
		t := st.Tasks[i]
		if t.Completed {
			out.AlreadyCompleted = true
			out.Task = t
			return nil
		}

		at := s.calendar.Now()
		t.Completed = true
		t.CompletedAt = &at
		if !t.RewardGranted {
			out.Change = economy.Grant(st.Player, economy.Reward{XP: t.XPReward, Gold: t.GoldReward})
			st.Player = out.Change.After
			t.RewardGranted = true
		}
		st.Tasks[i] = t
		out.Task = t
		return nil
	})
	if err != nil {
		return TaskOutcome{}, err
	}

	out.Player = st.Player
	out.LevelUp = out.Change.LevelUp()
	if !out.AlreadyCompleted {
		metrics.RecordTaskCompleted()
		s.afterPlayerChange(ctx, out.Change)
	}
	return out, nil
}

// UncompleteTask reopens a completed task. The undo policy decides whether
// the granted reward is taken back.
func (s *Service) UncompleteTask(ctx context.Context, id string) (TaskOutcome, error) {
	var out TaskOutcome
	st, err := s.store.Update(ctx, func(st *repository.State) error {
		i := taskIndex(st.Tasks, id)
		if i < 0 {
			return fmt.Errorf("%w: task %q", ErrNotFound, id)
		}
		t := st.Tasks[i]
		if !t.Completed {
			out.Task = t
			return nil
		}
		t.Completed = false
		t.CompletedAt = nil
		if t.RewardGranted {
			var revoked bool
			out.Change, revoked = s.undo.Undo(st.Player, economy.Reward{XP: t.XPReward, Gold: t.GoldReward})
			if revoked {
				st.Player = out.Change.After
				t.RewardGranted = false
				out.RewardRevoked = true
			}
		}
		st.Tasks[i] = t
		out.Task = t
		return nil
	})
	if err != nil {
		return TaskOutcome{}, err
	}
	out.Player = st.Player
	if out.RewardRevoked {
		metrics.RecordRewardRevoked()
		s.publishPlayer(st.Player)
	}
	return out, nil
}

// DeleteTask removes a task. The player is never touched.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	_, err := s.store.Update(ctx, func(st *repository.State) error {
		i := taskIndex(st.Tasks, id)
		if i < 0 {
			return fmt.Errorf("%w: task %q", ErrNotFound, id)
		}
		st.Tasks = append(st.Tasks[:i], st.Tasks[i+1:]...)
		return nil
	})
	if err != nil {
		return err
	}
	metrics.RecordTaskDeleted()
	return nil
}

// afterPlayerChange records level-ups and refreshes the player gauges.
func (s *Service) afterPlayerChange(ctx context.Context, c economy.Change) {
	if c.LevelUp() {
		metrics.RecordLevelUp(c.LevelsGained)
		s.logger.Info(ctx, "level up", logger.Int("level", c.After.Level))
	}
	s.publishPlayer(c.After)
}

func taskIndex(tasks []model.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}
