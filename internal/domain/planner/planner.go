// Package planner builds the morning planning brief from the open task list.
package planner

import (
	"time"

	"github.com/okian/anchor/internal/domain/model"
)

const (
	defaultPerTask   = 30 * time.Minute
	defaultAvailable = 8 * time.Hour
	defaultPreview   = 5
)

// Planner estimates the day's load.
type Planner struct {
	perTask   time.Duration
	available time.Duration
	preview   int
}

// Option configures a Planner.
type Option func(*Planner)

// WithEstimate sets the assumed time per task.
func WithEstimate(perTask time.Duration) Option {
	return func(p *Planner) {
		if perTask > 0 {
			p.perTask = perTask
		}
	}
}

// WithAvailable sets the working time in a day.
func WithAvailable(available time.Duration) Option {
	return func(p *Planner) {
		if available > 0 {
			p.available = available
		}
	}
}

// New returns a planner with the given options.
func New(opts ...Option) *Planner {
	p := &Planner{perTask: defaultPerTask, available: defaultAvailable, preview: defaultPreview}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Brief summarises the open workload.
type Brief struct {
	OpenTasks        int          `json:"open_tasks"`
	EstimatedMinutes int          `json:"estimated_minutes"`
	AvailableMinutes int          `json:"available_minutes"`
	Overloaded       bool         `json:"overloaded"`
	Preview          []model.Task `json:"preview"`
	DailyFocus       string       `json:"daily_focus"`
}

// Brief computes the load for tasks. focus is echoed back for display.
func (p *Planner) Brief(tasks []model.Task, focus string) Brief {
	b := Brief{
		AvailableMinutes: int(p.available / time.Minute),
		DailyFocus:       focus,
		Preview:          []model.Task{},
	}
	for _, t := range tasks {
		if t.Completed {
			continue
		}
		b.OpenTasks++
		if len(b.Preview) < p.preview {
			b.Preview = append(b.Preview, t)
		}
	}
	b.EstimatedMinutes = b.OpenTasks * int(p.perTask/time.Minute)
	b.Overloaded = b.EstimatedMinutes > b.AvailableMinutes
	return b
}
