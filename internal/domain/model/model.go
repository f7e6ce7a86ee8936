// Package model contains the domain records persisted by the store and
// passed between layers.
package model

import "time"

// Player is the single player's resource record. Level is a cache of the
// value derived from Experience and is rewritten on every change.
type Player struct {
	Experience int `json:"xp"`
	Health     int `json:"hp"`
	MaxHealth  int `json:"max_hp"`
	Gold       int `json:"gold"`
	Level      int `json:"level"`
}

// Task sources.
const (
	SourceManual     = "manual"
	SourceVoice      = "voice"
	SourceDecomposer = "decomposer"
)

// Task is a to-do item carrying a reward fixed at creation time.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Completed   bool       `json:"completed"`
	XPReward    int        `json:"xp_reward"`
	GoldReward  int        `json:"gold_reward"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// RewardGranted is true while the completion reward is held by the player.
	RewardGranted bool   `json:"reward_granted"`
	Source        string `json:"source,omitempty"`
}

// Habit is a daily habit with streak bookkeeping. Dates are YYYY-MM-DD
// calendar days or empty.
type Habit struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Icon              string `json:"icon"`
	CurrentStreak     int    `json:"current_streak"`
	BestStreak        int    `json:"best_streak"`
	LastCompletedDate string `json:"last_completed_date"`
	LastPenalizedDate string `json:"last_penalized_date"`
	CompletedToday    bool   `json:"completed_today"`
}

// Goal is one of the three North Star slots.
type Goal struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// BigThreeItem is an entry of the daily "big three" focus list.
type BigThreeItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Entry is a timestamped line in the quick-capture or brain-dump log.
type Entry struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Reward is an item of the shop catalog.
type Reward struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Cost        int    `json:"cost"`
	Icon        string `json:"icon"`
}

// Purchase records a successful shop purchase.
type Purchase struct {
	RewardID    string    `json:"reward_id"`
	Name        string    `json:"name"`
	Cost        int       `json:"cost"`
	PurchasedAt time.Time `json:"purchased_at"`
}

// Routine is a named sequence of timed steps.
type Routine struct {
	Key   string        `json:"key"`
	Name  string        `json:"name"`
	Steps []RoutineStep `json:"steps"`
}

// RoutineStep is one countdown step of a routine.
type RoutineStep struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Seconds int    `json:"seconds"`
}

// Duration returns the step length.
func (s RoutineStep) Duration() time.Duration {
	return time.Duration(s.Seconds) * time.Second
}

// CloneTasks returns a deep copy of tasks.
func CloneTasks(in []Task) []Task {
	if in == nil {
		return nil
	}
	out := make([]Task, len(in))
	for i, t := range in {
		if t.CompletedAt != nil {
			at := *t.CompletedAt
			t.CompletedAt = &at
		}
		out[i] = t
	}
	return out
}

// Clone returns a copy of r with its own step slice.
func (r Routine) Clone() Routine {
	r.Steps = append([]RoutineStep(nil), r.Steps...)
	return r
}

// Voice job states.
const (
	JobPending = "pending"
	JobDone    = "done"
	JobFailed  = "failed"
)

// VoiceJob is a recorded voice note waiting to be turned into tasks.
type VoiceJob struct {
	ID          string
	RequestID   string
	Audio       []byte
	Spiciness   int
	SubmittedAt time.Time
}

// JobResult is the observable outcome of a VoiceJob.
type JobResult struct {
	ID          string     `json:"id"`
	RequestID   string     `json:"request_id"`
	Status      string     `json:"status"`
	Transcript  string     `json:"transcript,omitempty"`
	TaskIDs     []string   `json:"task_ids,omitempty"`
	Error       string     `json:"error,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}
