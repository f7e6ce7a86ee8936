package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/anchor/internal/adapters/repository"
	"github.com/okian/anchor/internal/domain/economy"
	"github.com/okian/anchor/internal/domain/focus"
	"github.com/okian/anchor/internal/domain/model"
	"github.com/okian/anchor/pkg/logger"
	"github.com/okian/anchor/pkg/metrics"
)

// RoutineView is the active session and what the last call paid out.
type RoutineView struct {
	Session *focus.State  `json:"session"`
	Events  []focus.Event `json:"events"`
	Player  *model.Player `json:"player,omitempty"`
	LevelUp bool          `json:"level_up"`
}

// Routines returns the available focus routines.
func (s *Service) Routines(context.Context) []model.Routine {
	out := make([]model.Routine, len(s.routines))
	for i, r := range s.routines {
		out[i] = r.Clone()
	}
	return out
}

// StartRoutine replaces any active session with a new one, paused on the
// first step.
func (s *Service) StartRoutine(ctx context.Context, key string) (RoutineView, error) {
	routine, ok := focus.Find(s.routines, key)
	if !ok {
		return RoutineView{}, fmt.Errorf("%w: routine %q", ErrNotFound, key)
	}
	session, err := focus.NewSession(routine, s.routineRewards, s.calendar.Now())
	if err != nil {
		return RoutineView{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	s.focusMu.Lock()
	defer s.focusMu.Unlock()
	s.stopTickerLocked()
	s.session = session
	s.logger.Debug(ctx, "routine started", logger.String("routine", key))
	return s.viewLocked(nil, nil), nil
}

// RoutineSession returns the active session.
func (s *Service) RoutineSession(context.Context) (RoutineView, error) {
	s.focusMu.Lock()
	defer s.focusMu.Unlock()
	if s.session == nil {
		return RoutineView{}, ErrNoSession
	}
	return s.viewLocked(nil, nil), nil
}

// ResumeRoutine starts the countdown of the active session.
func (s *Service) ResumeRoutine(ctx context.Context) (RoutineView, error) {
	s.focusMu.Lock()
	defer s.focusMu.Unlock()
	if s.session == nil {
		return RoutineView{}, ErrNoSession
	}
	if err := s.session.Resume(); err != nil {
		return RoutineView{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	s.startTickerLocked(ctx)
	return s.viewLocked(nil, nil), nil
}

// PauseRoutine stops the countdown of the active session.
func (s *Service) PauseRoutine(context.Context) (RoutineView, error) {
	s.focusMu.Lock()
	defer s.focusMu.Unlock()
	if s.session == nil {
		return RoutineView{}, ErrNoSession
	}
	s.stopTickerLocked()
	s.session.Pause()
	return s.viewLocked(nil, nil), nil
}

// SkipRoutineStep finishes the current step now and pays for it.
func (s *Service) SkipRoutineStep(ctx context.Context) (RoutineView, error) {
	s.focusMu.Lock()
	defer s.focusMu.Unlock()
	if s.session == nil {
		return RoutineView{}, ErrNoSession
	}
	events, err := s.session.Skip()
	if err != nil {
		return RoutineView{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	change, err := s.credit(ctx, events)
	if err != nil {
		return RoutineView{}, err
	}
	if s.session.Finished() {
		s.stopTickerLocked()
	} else {
		s.startTickerLocked(ctx)
	}
	return s.viewLocked(events, &change), nil
}

// ResetRoutine abandons the active session. Rewards already paid stay.
func (s *Service) ResetRoutine(context.Context) error {
	s.focusMu.Lock()
	defer s.focusMu.Unlock()
	if s.session == nil {
		return ErrNoSession
	}
	s.stopTickerLocked()
	s.session = nil
	return nil
}

// TickRoutine advances a running session by elapsed and pays for every step
// that ran out.
func (s *Service) TickRoutine(ctx context.Context, elapsed time.Duration) (RoutineView, error) {
	s.focusMu.Lock()
	defer s.focusMu.Unlock()
	if s.session == nil {
		return RoutineView{}, ErrNoSession
	}
	return s.tickLocked(ctx, elapsed)
}

func (s *Service) tickLocked(ctx context.Context, elapsed time.Duration) (RoutineView, error) {
	events := s.session.Tick(elapsed)
	if len(events) == 0 {
		return s.viewLocked(nil, nil), nil
	}
	change, err := s.credit(ctx, events)
	if err != nil {
		return RoutineView{}, err
	}
	if s.session.Finished() {
		s.stopTickerLocked()
	}
	return s.viewLocked(events, &change), nil
}

// credit pays the rewards of events in one store update.
func (s *Service) credit(ctx context.Context, events []focus.Event) (economy.Change, error) {
	var total economy.Reward
	for _, e := range events {
		total.XP += e.Reward.XP
		total.Gold += e.Reward.Gold
	}
	var change economy.Change
	if _, err := s.store.Update(ctx, func(st *repository.State) error {
		change = economy.Grant(st.Player, total)
		st.Player = change.After
		return nil
	}); err != nil {
		return economy.Change{}, err
	}
	for _, e := range events {
		switch e.Kind {
		case focus.StepFinished:
			metrics.RecordRoutineStep()
		case focus.RoutineFinished:
			metrics.RecordRoutineCompleted()
			s.logger.Info(ctx, "routine finished", logger.String("routine", s.session.State().Routine))
		}
	}
	s.afterPlayerChange(ctx, change)
	return change, nil
}

func (s *Service) viewLocked(events []focus.Event, change *economy.Change) RoutineView {
	st := s.session.State()
	v := RoutineView{Session: &st, Events: events}
	if v.Events == nil {
		v.Events = []focus.Event{}
	}
	if change != nil {
		p := change.After
		v.Player = &p
		v.LevelUp = change.LevelUp()
	}
	return v
}

// startTickerLocked drives the running session from a background ticker.
func (s *Service) startTickerLocked(ctx context.Context) {
	if s.tickStop != nil {
		return
	}
	tickCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.tickStop = cancel
	s.lastTick = s.calendar.Now()
	session := s.session

	go func() {
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-tickCtx.Done():
				return
			case <-ticker.C:
				s.focusMu.Lock()
				if s.session != session || tickCtx.Err() != nil {
					s.focusMu.Unlock()
					return
				}
				now := s.calendar.Now()
				elapsed := now.Sub(s.lastTick)
				s.lastTick = now
				if _, err := s.tickLocked(tickCtx, elapsed); err != nil {
					s.logger.Error(tickCtx, "routine tick", logger.Error(err))
				}
				s.focusMu.Unlock()
			}
		}
	}()
}

func (s *Service) stopTickerLocked() {
	if s.tickStop != nil {
		s.tickStop()
		s.tickStop = nil
	}
}

func (s *Service) stopTicker() {
	s.focusMu.Lock()
	defer s.focusMu.Unlock()
	s.stopTickerLocked()
}
