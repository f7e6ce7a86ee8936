// Package focus runs timed focus routines: a sequence of countdown steps that
// grant a small reward per step and a bonus when the routine is finished.
package focus

import (
	"errors"
	"time"

	"github.com/okian/anchor/internal/domain/economy"
	"github.com/okian/anchor/internal/domain/model"
)

// Sentinel errors for sessions.
var (
	ErrEmptyRoutine = errors.New("routine has no steps")
	ErrFinished     = errors.New("routine already finished")
)

// Rewards configures what finishing steps and routines pays.
type Rewards struct {
	Step     economy.Reward
	Complete economy.Reward
}

// EventKind distinguishes session events.
type EventKind string

// Event kinds.
const (
	StepFinished    EventKind = "step_finished"
	RoutineFinished EventKind = "routine_finished"
)

// Event is emitted when a step or the whole routine is finished. The caller
// credits Reward to the player.
type Event struct {
	Kind   EventKind         `json:"kind"`
	Step   model.RoutineStep `json:"step"`
	Reward economy.Reward    `json:"reward"`
}

// State is a read-only view of a session.
type State struct {
	Routine   string            `json:"routine"`
	Name      string            `json:"name"`
	StepIndex int               `json:"step_index"`
	StepCount int               `json:"step_count"`
	Step      model.RoutineStep `json:"step"`
	Remaining int               `json:"remaining_seconds"`
	Running   bool              `json:"running"`
	Finished  bool              `json:"finished"`
	StartedAt time.Time         `json:"started_at"`
	StepsDone int               `json:"steps_done"`
}

// Session is one run through a routine. It is not safe for concurrent use.
type Session struct {
	routine   model.Routine
	rewards   Rewards
	index     int
	remaining time.Duration
	running   bool
	finished  bool
	startedAt time.Time
	stepsDone int
}

// NewSession starts routine paused at its first step.
func NewSession(routine model.Routine, rewards Rewards, now time.Time) (*Session, error) {
	if len(routine.Steps) == 0 {
		return nil, ErrEmptyRoutine
	}
	return &Session{
		routine:   routine.Clone(),
		rewards:   rewards,
		remaining: routine.Steps[0].Duration(),
		startedAt: now,
	}, nil
}

// Resume starts or continues the countdown.
func (s *Session) Resume() error {
	if s.finished {
		return ErrFinished
	}
	s.running = true
	return nil
}

// Pause stops the countdown.
func (s *Session) Pause() {
	s.running = false
}

// Running reports whether the countdown is active.
func (s *Session) Running() bool { return s.running }

// Finished reports whether every step is done.
func (s *Session) Finished() bool { return s.finished }

// Tick advances a running countdown by elapsed and finishes any steps whose
// time ran out. Leftover time carries into the next step.
func (s *Session) Tick(elapsed time.Duration) []Event {
	if !s.running || s.finished || elapsed <= 0 {
		return nil
	}
	s.remaining -= elapsed
	var events []Event
	for !s.finished && s.remaining <= 0 {
		carry := -s.remaining
		events = append(events, s.finishStep()...)
		if !s.finished {
			s.remaining -= carry
		}
	}
	return events
}

// Skip finishes the current step immediately, paying its reward, and keeps
// the countdown running on the next step.
func (s *Session) Skip() ([]Event, error) {
	if s.finished {
		return nil, ErrFinished
	}
	events := s.finishStep()
	if !s.finished {
		s.running = true
	}
	return events, nil
}

func (s *Session) finishStep() []Event {
	step := s.routine.Steps[s.index]
	s.stepsDone++
	events := []Event{{Kind: StepFinished, Step: step, Reward: s.rewards.Step}}
	if s.index == len(s.routine.Steps)-1 {
		s.finished = true
		s.running = false
		s.remaining = 0
		return append(events, Event{Kind: RoutineFinished, Step: step, Reward: s.rewards.Complete})
	}
	s.index++
	s.remaining = s.routine.Steps[s.index].Duration()
	return events
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	remaining := s.remaining
	if remaining < 0 {
		remaining = 0
	}
	return State{
		Routine:   s.routine.Key,
		Name:      s.routine.Name,
		StepIndex: s.index,
		StepCount: len(s.routine.Steps),
		Step:      s.routine.Steps[s.index],
		Remaining: int((remaining + time.Second - 1) / time.Second),
		Running:   s.running,
		Finished:  s.finished,
		StartedAt: s.startedAt,
		StepsDone: s.stepsDone,
	}
}

// Find returns the routine named key.
func Find(routines []model.Routine, key string) (model.Routine, bool) {
	for _, r := range routines {
		if r.Key == key {
			return r.Clone(), true
		}
	}
	return model.Routine{}, false
}
