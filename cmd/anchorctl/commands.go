package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	service "github.com/okian/anchor/internal/app"
	"github.com/okian/anchor/internal/domain/model"
	"github.com/okian/anchor/internal/domain/planner"
)

const jobPollInterval = 200 * time.Millisecond

func statusCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the player and service status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c := g.client()
			p, err := c.Player(ctx)
			if err != nil {
				return err
			}
			stats, err := c.Stats(ctx)
			if err != nil {
				return err
			}
			out := struct {
				Player service.PlayerStats `json:"player"`
				Stats  service.Stats       `json:"stats"`
			}{p, stats}
			return g.print(cmd.OutOrStdout(), out, func(w io.Writer) {
				fprintf(w, "Level %d  XP %d  HP %d/%d  Gold %d\n",
					p.Player.Level, p.Player.Experience, p.Player.Health, p.Player.MaxHealth, p.Player.Gold)
				fprintf(w, "Next level: %d/%d xp\n", p.Progress.Current, p.Progress.Required)
				fprintf(w, "Tasks %d open / %d done  Habits %d  Queue %d/%d\n",
					stats.OpenTasks, stats.CompletedTasks, stats.Habits, stats.QueueLength, stats.QueueCapacity)
			})
		},
	}
}

func taskCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tasks, err := g.client().Tasks(cmd.Context())
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), tasks, func(w io.Writer) { printTasks(w, tasks) })
		},
	}

	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := g.client().CreateTask(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), task, func(w io.Writer) {
				fprintf(w, "Added %s: %s (+%d xp, +%d gold)\n", task.ID, task.Title, task.XPReward, task.GoldReward)
			})
		},
	}

	done := &cobra.Command{
		Use:   "done <id>",
		Short: "Complete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := g.client().CompleteTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), out, func(w io.Writer) { printTaskOutcome(w, out) })
		},
	}

	undo := &cobra.Command{
		Use:   "undo <id>",
		Short: "Reopen a completed task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := g.client().UncompleteTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), out, func(w io.Writer) { printTaskOutcome(w, out) })
		},
	}

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := g.client().DeleteTask(cmd.Context(), args[0]); err != nil {
				return err
			}
			fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, add, done, undo, rm)
	return cmd
}

func printTasks(w io.Writer, tasks []model.Task) {
	if len(tasks) == 0 {
		fprintf(w, "No tasks.\n")
		return
	}
	for _, t := range tasks {
		fprintf(w, "[%s] %s  %s  (+%d xp, +%d gold)\n", check(t.Completed), t.ID, t.Title, t.XPReward, t.GoldReward)
	}
}

func printTaskOutcome(w io.Writer, out service.TaskOutcome) {
	fprintf(w, "[%s] %s\n", check(out.Task.Completed), out.Task.Title)
	fprintf(w, "Level %d  XP %d  Gold %d\n", out.Player.Level, out.Player.Experience, out.Player.Gold)
	if out.LevelUp {
		fprintf(w, "Level up!\n")
	}
	if out.RewardRevoked {
		fprintf(w, "Reward revoked.\n")
	}
}

func habitCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "habit",
		Short: "Track daily habits",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List habits and streaks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			habits, err := g.client().Habits(cmd.Context())
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), habits, func(w io.Writer) {
				for _, h := range habits {
					fprintf(w, "[%s] %s  %-10s streak %d (best %d)\n", check(h.CompletedToday), h.ID, h.Name, h.CurrentStreak, h.BestStreak)
				}
			})
		},
	}

	toggle := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Toggle today's completion of a habit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := g.client().ToggleHabit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), out, func(w io.Writer) {
				fprintf(w, "[%s] %s  streak %d\n", check(out.Habit.CompletedToday), out.Habit.Name, out.Habit.CurrentStreak)
				if out.LevelUp {
					fprintf(w, "Level up!\n")
				}
			})
		},
	}

	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Apply missed-habit damage for previous days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := g.client().SweepHabits(cmd.Context())
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), out, func(w io.Writer) {
				fprintf(w, "Damage %d  HP %d/%d  (%d habits penalized)\n",
					out.Damage, out.Player.Health, out.Player.MaxHealth, len(out.Penalized))
			})
		},
	}

	cmd.AddCommand(list, toggle, sweep)
	return cmd
}

func goalCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goal",
		Short: "Show or edit the North Star goals",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List goals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			goals, err := g.client().Goals(cmd.Context())
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), goals, func(w io.Writer) {
				for _, goal := range goals {
					fprintf(w, "%d. %s\n", goal.ID, goal.Text)
				}
			})
		},
	}

	set := &cobra.Command{
		Use:   "set <1-3> <text>",
		Short: "Replace a goal",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("goal id %q: %w", args[0], err)
			}
			goal, err := g.client().SetGoal(cmd.Context(), id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), goal, func(w io.Writer) {
				fprintf(w, "%d. %s\n", goal.ID, goal.Text)
			})
		},
	}

	cmd.AddCommand(list, set)
	return cmd
}

func focusCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "focus [statement]",
		Short: "Show the daily focus, or set it when a statement is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c := g.client()
			if len(args) > 0 {
				if err := c.SetDailyFocus(ctx, strings.Join(args, " ")); err != nil {
					return err
				}
			}
			focus, err := c.DailyFocus(ctx)
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), map[string]string{"focus": focus}, func(w io.Writer) {
				if focus == "" {
					fprintf(w, "No focus set.\n")
					return
				}
				fprintf(w, "Focus: %s\n", focus)
			})
		},
	}
}

func briefCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "brief",
		Short: "Show the morning planning brief",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			brief, err := g.client().MorningBrief(cmd.Context())
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), brief, func(w io.Writer) { printBrief(w, brief) })
		},
	}
}

func printBrief(w io.Writer, b planner.Brief) {
	if b.DailyFocus != "" {
		fprintf(w, "Focus: %s\n", b.DailyFocus)
	}
	fprintf(w, "%d open tasks, about %d of %d minutes\n", b.OpenTasks, b.EstimatedMinutes, b.AvailableMinutes)
	if b.Overloaded {
		fprintf(w, "Overloaded: consider dropping something.\n")
	}
	for _, t := range b.Preview {
		fprintf(w, "  - %s\n", t.Title)
	}
}

func captureCmd(g *globals) *cobra.Command {
	var dump bool
	cmd := &cobra.Command{
		Use:   "capture <text>",
		Short: "Log a quick capture, or a brain-dump entry with --dump",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			text := strings.Join(args, " ")
			c := g.client()
			var (
				entry model.Entry
				err   error
			)
			if dump {
				entry, err = c.AddBrainDump(ctx, text)
			} else {
				entry, err = c.AddQuickCapture(ctx, text)
			}
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), entry, func(w io.Writer) {
				fprintf(w, "Captured %s at %s\n", entry.ID, entry.Timestamp.Format(time.Kitchen))
			})
		},
	}
	cmd.Flags().BoolVarP(&dump, "dump", "d", false, "Write to the brain dump")
	return cmd
}

func shopCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shop",
		Short: "Browse and buy rewards",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List rewards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rewards, err := g.client().Shop(cmd.Context())
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), rewards, func(w io.Writer) {
				for _, r := range rewards {
					fprintf(w, "%-8s %4d gold  %s\n", r.ID, r.Cost, r.Name)
				}
			})
		},
	}

	buy := &cobra.Command{
		Use:   "buy <reward-id>",
		Short: "Buy a reward",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := g.client().Purchase(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), out, func(w io.Writer) {
				fprintf(w, "Bought %s for %d gold, %d left\n", out.Purchase.Name, out.Purchase.Cost, out.Player.Gold)
			})
		},
	}

	cmd.AddCommand(list, buy)
	return cmd
}

func voiceCmd(g *globals) *cobra.Command {
	var (
		wait      bool
		spiciness int
		requestID string
	)
	cmd := &cobra.Command{
		Use:   "voice <audio-file>",
		Short: "Upload a voice note and turn it into tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			audio, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read audio: %w", err)
			}
			if requestID == "" {
				requestID = uuid.NewString()
			}
			ctx := cmd.Context()
			c := g.client()
			sub, err := c.SubmitVoice(ctx, requestID, audio, spiciness)
			if err != nil {
				return err
			}
			job := sub.Job
			if wait {
				if job, err = c.WaitJob(ctx, job.ID, jobPollInterval); err != nil {
					return err
				}
			}
			return g.print(cmd.OutOrStdout(), job, func(w io.Writer) {
				fprintf(w, "Job %s: %s\n", job.ID, job.Status)
				if job.Transcript != "" {
					fprintf(w, "Transcript: %s\n", job.Transcript)
				}
				if len(job.TaskIDs) > 0 {
					fprintf(w, "Created %d tasks\n", len(job.TaskIDs))
				}
				if job.Error != "" {
					fprintf(w, "Error: %s\n", job.Error)
				}
			})
		},
	}
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the job to finish")
	cmd.Flags().IntVarP(&spiciness, "spiciness", "s", 0, "Decomposition granularity (1-5, 0 for the server default)")
	cmd.Flags().StringVar(&requestID, "request-id", "", "Idempotency key (random when empty)")
	return cmd
}

func seedCmd(g *globals) *cobra.Command {
	var (
		count   int
		workers int
		prefix  string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create many tasks concurrently",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count <= 0 {
				return errors.New("count must be positive")
			}
			titles := make([]string, count)
			for i := range titles {
				titles[i] = fmt.Sprintf("%s %d", prefix, i+1)
			}
			start := time.Now()
			res := g.client().CreateTasks(cmd.Context(), titles, workers)
			elapsed := time.Since(start)

			out := struct {
				Submitted  int     `json:"submitted"`
				Successful int     `json:"successful"`
				Failed     int     `json:"failed"`
				Seconds    float64 `json:"seconds"`
			}{res.Submitted, res.Successful, res.Failed, elapsed.Seconds()}
			if err := g.print(cmd.OutOrStdout(), out, func(w io.Writer) {
				fprintf(w, "Created %d/%d tasks in %s (%d failed)\n", res.Successful, res.Submitted, elapsed.Round(time.Millisecond), res.Failed)
			}); err != nil {
				return err
			}
			if res.FirstError != nil {
				return fmt.Errorf("%d tasks failed: %w", res.Failed, res.FirstError)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 100, "Number of tasks to create")
	cmd.Flags().IntVarP(&workers, "workers", "w", runtime.NumCPU(), "Concurrent requests")
	cmd.Flags().StringVar(&prefix, "prefix", "Seed task", "Title prefix")
	return cmd
}
