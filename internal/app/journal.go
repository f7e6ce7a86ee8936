package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/anchor/internal/adapters/repository"
	"github.com/okian/anchor/internal/domain/model"
	"github.com/okian/anchor/internal/domain/planner"
	"github.com/okian/anchor/pkg/metrics"
)

// Capture logs.
const (
	LogQuickCapture = "quick_capture"
	LogBrainDump    = "brain_dump"
)

// Goals returns the three North Star goals.
func (s *Service) Goals(context.Context) []model.Goal {
	return s.store.Snapshot().Goals
}

// SetGoal replaces the text of goal slot id (1..3).
func (s *Service) SetGoal(ctx context.Context, id int, text string) (model.Goal, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Goal{}, fmt.Errorf("%w: goal text must not be empty", ErrInvalidInput)
	}
	if id < 1 || id > model.GoalSlots {
		return model.Goal{}, fmt.Errorf("%w: goal %d", ErrNotFound, id)
	}
	var goal model.Goal
	_, err := s.store.Update(ctx, func(st *repository.State) error {
		for i := range st.Goals {
			if st.Goals[i].ID == id {
				st.Goals[i].Text = text
				goal = st.Goals[i]
				return nil
			}
		}
		return fmt.Errorf("%w: goal %d", ErrNotFound, id)
	})
	return goal, err
}

// BigThree returns the big three list.
func (s *Service) BigThree(context.Context) []model.BigThreeItem {
	return s.store.Snapshot().BigThree
}

// AddBigThree appends an item; the list holds at most three.
func (s *Service) AddBigThree(ctx context.Context, text string) (model.BigThreeItem, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.BigThreeItem{}, fmt.Errorf("%w: text must not be empty", ErrInvalidInput)
	}
	item := model.BigThreeItem{ID: s.newID(), Text: text}
	_, err := s.store.Update(ctx, func(st *repository.State) error {
		if len(st.BigThree) >= model.BigThreeLimit {
			return ErrBigThreeFull
		}
		st.BigThree = append(st.BigThree, item)
		return nil
	})
	if err != nil {
		return model.BigThreeItem{}, err
	}
	return item, nil
}

// ToggleBigThree flips an item's completion.
func (s *Service) ToggleBigThree(ctx context.Context, id string) (model.BigThreeItem, error) {
	var item model.BigThreeItem
	_, err := s.store.Update(ctx, func(st *repository.State) error {
		for i := range st.BigThree {
			if st.BigThree[i].ID == id {
				st.BigThree[i].Completed = !st.BigThree[i].Completed
				item = st.BigThree[i]
				return nil
			}
		}
		return fmt.Errorf("%w: big three item %q", ErrNotFound, id)
	})
	return item, err
}

// DeleteBigThree removes an item.
func (s *Service) DeleteBigThree(ctx context.Context, id string) error {
	_, err := s.store.Update(ctx, func(st *repository.State) error {
		for i := range st.BigThree {
			if st.BigThree[i].ID == id {
				st.BigThree = append(st.BigThree[:i], st.BigThree[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: big three item %q", ErrNotFound, id)
	})
	return err
}

// QuickCaptures returns the quick-capture log, newest first.
func (s *Service) QuickCaptures(context.Context) []model.Entry {
	return s.store.Snapshot().QuickCaptures
}

// AddQuickCapture prepends an entry to the quick-capture log.
func (s *Service) AddQuickCapture(ctx context.Context, text string) (model.Entry, error) {
	return s.addEntry(ctx, LogQuickCapture, text)
}

// BrainDump returns the brain-dump log, newest first.
func (s *Service) BrainDump(context.Context) []model.Entry {
	return s.store.Snapshot().BrainDump
}

// AddBrainDump prepends an entry to the brain-dump log.
func (s *Service) AddBrainDump(ctx context.Context, text string) (model.Entry, error) {
	return s.addEntry(ctx, LogBrainDump, text)
}

// ClearBrainDump empties the brain-dump log.
func (s *Service) ClearBrainDump(ctx context.Context) error {
	_, err := s.store.Update(ctx, func(st *repository.State) error {
		st.BrainDump = []model.Entry{}
		return nil
	})
	return err
}

func (s *Service) addEntry(ctx context.Context, log, text string) (model.Entry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Entry{}, fmt.Errorf("%w: entry must not be empty", ErrInvalidInput)
	}
	entry := model.Entry{ID: s.newID(), Text: text, Timestamp: s.calendar.Now()}
	_, err := s.store.Update(ctx, func(st *repository.State) error {
		switch log {
		case LogQuickCapture:
			st.QuickCaptures = append([]model.Entry{entry}, st.QuickCaptures...)
		case LogBrainDump:
			st.BrainDump = append([]model.Entry{entry}, st.BrainDump...)
		}
		return nil
	})
	if err != nil {
		return model.Entry{}, err
	}
	metrics.RecordCaptureEntry(log)
	return entry, nil
}

// DailyFocus returns the focus statement for the day.
func (s *Service) DailyFocus(context.Context) string {
	return s.store.Snapshot().DailyFocus
}

// SetDailyFocus stores the focus statement. An empty statement clears it.
func (s *Service) SetDailyFocus(ctx context.Context, focus string) (string, error) {
	focus = strings.TrimSpace(focus)
	_, err := s.store.Update(ctx, func(st *repository.State) error {
		st.DailyFocus = focus
		return nil
	})
	return focus, err
}

// MorningBrief summarises the open workload for planning the day.
func (s *Service) MorningBrief(context.Context) planner.Brief {
	st := s.store.Snapshot()
	return s.planner.Brief(st.Tasks, st.DailyFocus)
}
