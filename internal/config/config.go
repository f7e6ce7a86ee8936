// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and ANCHOR_* environment variables on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Undo policies for un-completing a task or habit.
const (
	UndoKeepReward   = "keep_reward"
	UndoRevokeReward = "revoke_reward"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StorageBackend selects where state is persisted: memory or sqlite.
	StorageBackend string `koanf:"storage_backend"`
	// SQLitePath is the database file used by the sqlite backend.
	SQLitePath string `koanf:"sqlite_path"`

	// Timezone names the IANA zone that defines calendar days.
	Timezone string `koanf:"timezone"`

	MaxHealth    int `koanf:"max_health"`
	HabitPenalty int `koanf:"habit_penalty"`

	HabitRewardXP   int `koanf:"habit_reward_xp"`
	HabitRewardGold int `koanf:"habit_reward_gold"`

	// Task rewards are drawn uniformly from [min, max].
	TaskXPMin   int `koanf:"task_xp_min"`
	TaskXPMax   int `koanf:"task_xp_max"`
	TaskGoldMin int `koanf:"task_gold_min"`
	TaskGoldMax int `koanf:"task_gold_max"`

	// Rewards for tasks produced by the decomposer.
	SubtaskXPMin   int `koanf:"subtask_xp_min"`
	SubtaskXPMax   int `koanf:"subtask_xp_max"`
	SubtaskGoldMin int `koanf:"subtask_gold_min"`
	SubtaskGoldMax int `koanf:"subtask_gold_max"`

	RoutineStepXP    int `koanf:"routine_step_xp"`
	RoutineStepGold  int `koanf:"routine_step_gold"`
	RoutineBonusXP   int `koanf:"routine_bonus_xp"`
	RoutineBonusGold int `koanf:"routine_bonus_gold"`

	// UndoPolicy is keep_reward or revoke_reward.
	UndoPolicy string `koanf:"undo_policy"`

	// SweepSchedule is a cron expression for the daily penalty sweep.
	SweepSchedule string `koanf:"sweep_schedule"`

	// PlannerTaskMinutes and PlannerDayMinutes drive the morning brief estimate.
	PlannerTaskMinutes int `koanf:"planner_task_minutes"`
	PlannerDayMinutes  int `koanf:"planner_day_minutes"`

	// QueueSize bounds the voice capture queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of voice pipeline workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize bounds the remembered voice request ids.
	DedupeSize int `koanf:"dedupe_size"`
	// MaxAudioBytes caps uploaded audio.
	MaxAudioBytes int64 `koanf:"max_audio_bytes"`

	// AssistantLatencyMinMS and AssistantLatencyMaxMS bound the simulated assistant latency.
	AssistantLatencyMinMS int `koanf:"assistant_latency_min_ms"`
	AssistantLatencyMaxMS int `koanf:"assistant_latency_max_ms"`
}

// New creates a Config holding the defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		StorageBackend:        BackendMemory,
		SQLitePath:            "anchor.db",
		Timezone:              "Local",
		MaxHealth:             100,
		HabitPenalty:          5,
		HabitRewardXP:         10,
		HabitRewardGold:       3,
		TaskXPMin:             15,
		TaskXPMax:             24,
		TaskGoldMin:           5,
		TaskGoldMax:           9,
		SubtaskXPMin:          10,
		SubtaskXPMax:          24,
		SubtaskGoldMin:        3,
		SubtaskGoldMax:        9,
		RoutineStepXP:         5,
		RoutineStepGold:       2,
		RoutineBonusXP:        50,
		RoutineBonusGold:      20,
		UndoPolicy:            UndoKeepReward,
		SweepSchedule:         "0 0 * * *",
		PlannerTaskMinutes:    30,
		PlannerDayMinutes:     480,
		QueueSize:             64,
		WorkerCount:           2,
		DedupeSize:            10_000,
		MaxAudioBytes:         10 << 20,
		AssistantLatencyMinMS: 1500,
		AssistantLatencyMaxMS: 2000,
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %w %q: %v", ErrInvalidConfig, ErrUnknownTimezone, c.Timezone, err)
	}
	return loc, nil
}

// Validate checks the invariants the service relies on.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.StorageBackend != BackendMemory && c.StorageBackend != BackendSQLite:
		return fmt.Errorf("%w: unknown storage_backend %q", ErrInvalidConfig, c.StorageBackend)
	case c.StorageBackend == BackendSQLite && strings.TrimSpace(c.SQLitePath) == "":
		return fmt.Errorf("%w: sqlite_path is required for the sqlite backend", ErrInvalidConfig)
	case c.UndoPolicy != UndoKeepReward && c.UndoPolicy != UndoRevokeReward:
		return fmt.Errorf("%w: unknown undo_policy %q", ErrInvalidConfig, c.UndoPolicy)
	case c.MaxHealth <= 0:
		return fmt.Errorf("%w: max_health must be positive", ErrInvalidConfig)
	case c.HabitPenalty < 0:
		return fmt.Errorf("%w: habit_penalty must not be negative", ErrInvalidConfig)
	case c.TaskXPMin <= 0 || c.TaskXPMax < c.TaskXPMin || c.TaskGoldMin <= 0 || c.TaskGoldMax < c.TaskGoldMin:
		return fmt.Errorf("%w: task reward ranges must be positive and ordered", ErrInvalidConfig)
	case c.SubtaskXPMin <= 0 || c.SubtaskXPMax < c.SubtaskXPMin || c.SubtaskGoldMin <= 0 || c.SubtaskGoldMax < c.SubtaskGoldMin:
		return fmt.Errorf("%w: subtask reward ranges must be positive and ordered", ErrInvalidConfig)
	case c.PlannerTaskMinutes <= 0 || c.PlannerDayMinutes <= 0:
		return fmt.Errorf("%w: planner minutes must be positive", ErrInvalidConfig)
	case c.QueueSize <= 0 || c.WorkerCount <= 0 || c.DedupeSize <= 0:
		return fmt.Errorf("%w: queue_size, worker_count and dedupe_size must be positive", ErrInvalidConfig)
	case c.AssistantLatencyMinMS < 0 || c.AssistantLatencyMaxMS < c.AssistantLatencyMinMS:
		return fmt.Errorf("%w: assistant latency bounds are invalid", ErrInvalidConfig)
	case strings.TrimSpace(c.SweepSchedule) == "":
		return fmt.Errorf("%w: sweep_schedule must not be empty", ErrInvalidConfig)
	}
	if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
		return fmt.Errorf("%w: %w %q: %v", ErrInvalidConfig, ErrBadSchedule, c.SweepSchedule, err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
