package repository

import (
	"encoding/json"
	"fmt"

	"github.com/okian/anchor/internal/domain/model"
)

// Persisted keys. Each is an independent JSON entry in the backend.
const (
	KeyPlayer        = "player-stats"
	KeyTasks         = "tasks"
	KeyHabits        = "habits"
	KeyGoals         = "northstar-goals"
	KeyQuickCaptures = "quick-captures"
	KeyBrainDump     = "brain-dump-entries"
	KeyDailyFocus    = "daily-focus"
	KeyBigThree      = "big-three-tasks"
	KeySchemaVersion = "schema-version"
)

// SchemaVersion is the layout written by this build.
const SchemaVersion = 1

// stateKeys lists the entries in load order.
var stateKeys = []string{
	KeyPlayer, KeyTasks, KeyHabits, KeyGoals,
	KeyQuickCaptures, KeyBrainDump, KeyDailyFocus, KeyBigThree,
}

// State is the whole persisted application state.
type State struct {
	Player        model.Player
	Tasks         []model.Task
	Habits        []model.Habit
	Goals         []model.Goal
	QuickCaptures []model.Entry
	BrainDump     []model.Entry
	DailyFocus    string
	BigThree      []model.BigThreeItem
}

// DefaultState is the state of a first run.
func DefaultState(maxHealth int) State {
	return State{
		Player:        model.DefaultPlayer(maxHealth),
		Tasks:         []model.Task{},
		Habits:        model.DefaultHabits(),
		Goals:         model.DefaultGoals(),
		QuickCaptures: []model.Entry{},
		BrainDump:     []model.Entry{},
		BigThree:      []model.BigThreeItem{},
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	s.Tasks = model.CloneTasks(s.Tasks)
	s.Habits = append([]model.Habit(nil), s.Habits...)
	s.Goals = append([]model.Goal(nil), s.Goals...)
	s.QuickCaptures = append([]model.Entry(nil), s.QuickCaptures...)
	s.BrainDump = append([]model.Entry(nil), s.BrainDump...)
	s.BigThree = append([]model.BigThreeItem(nil), s.BigThree...)
	return s
}

// encode marshals every key of s.
func (s State) encode() (map[string][]byte, error) {
	values := map[string]any{
		KeyPlayer:        s.Player,
		KeyTasks:         nonNil(s.Tasks),
		KeyHabits:        nonNil(s.Habits),
		KeyGoals:         nonNil(s.Goals),
		KeyQuickCaptures: nonNil(s.QuickCaptures),
		KeyBrainDump:     nonNil(s.BrainDump),
		KeyDailyFocus:    s.DailyFocus,
		KeyBigThree:      nonNil(s.BigThree),
	}
	out := make(map[string][]byte, len(values))
	for k, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
		out[k] = b
	}
	return out, nil
}

// decodeKey unmarshals raw into the field of s named by key.
func (s *State) decodeKey(key string, raw []byte) error {
	var target any
	switch key {
	case KeyPlayer:
		target = &s.Player
	case KeyTasks:
		target = &s.Tasks
	case KeyHabits:
		target = &s.Habits
	case KeyGoals:
		target = &s.Goals
	case KeyQuickCaptures:
		target = &s.QuickCaptures
	case KeyBrainDump:
		target = &s.BrainDump
	case KeyDailyFocus:
		target = &s.DailyFocus
	case KeyBigThree:
		target = &s.BigThree
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	return json.Unmarshal(raw, target)
}

// normalizeGoals returns exactly model.GoalSlots goals with ids 1..n,
// keeping stored text where present.
func normalizeGoals(in []model.Goal) []model.Goal {
	out := model.DefaultGoals()
	for _, g := range in {
		if g.ID >= 1 && g.ID <= model.GoalSlots {
			out[g.ID-1].Text = g.Text
		}
	}
	return out
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
