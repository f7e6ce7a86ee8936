package client_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/anchor/internal/adapters/http/api"
	service "github.com/okian/anchor/internal/app"
	"github.com/okian/anchor/internal/client"
	"github.com/okian/anchor/internal/domain/assistant"
	"github.com/okian/anchor/internal/domain/economy"
	"github.com/okian/anchor/internal/domain/model"
	"github.com/okian/anchor/internal/domain/streak"
	. "github.com/smartystreets/goconvey/convey"
)

func newServer(t *testing.T) (*client.Client, *service.Service) {
	t.Helper()
	var n atomic.Int64
	clock := func() time.Time { return time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC) }
	svc := service.New(
		service.WithCalendar(streak.NewCalendar(time.UTC, clock)),
		service.WithAssistant(assistant.NewSuite(assistant.NewStub(assistant.WithLatencyRange(0, 0)))),
		service.WithTaskRoller(economy.NewRoller(economy.Range{Min: 20, Max: 20}, economy.Range{Min: 5, Max: 5})),
		service.WithHabitPenalty(0),
		service.WithSweepSchedule(""),
		service.WithIDGenerator(func() string { return fmt.Sprintf("id-%d", n.Add(1)) }),
	)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		_ = svc.Close()
	})
	return client.New(srv.URL+"/", client.WithTimeout(5*time.Second)), svc
}

func TestClientOptions(t *testing.T) {
	Convey("Given a shared http.Client and a slow server", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(500 * time.Millisecond):
			case <-r.Context().Done():
			}
			w.WriteHeader(http.StatusOK)
		}))
		Reset(srv.Close)
		shared := &http.Client{Timeout: time.Minute}

		Convey("When a client is built with it and a shorter timeout", func() {
			c := client.New(srv.URL, client.WithHTTPClient(shared), client.WithTimeout(50*time.Millisecond))

			Convey("Then the shared client keeps its own timeout", func() {
				So(shared.Timeout, ShouldEqual, time.Minute)
			})

			Convey("And the shorter timeout applies to requests", func() {
				_, err := c.Player(context.Background())
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestClientTasks(t *testing.T) {
	Convey("Given a client against a running server", t, func() {
		ctx := context.Background()
		c, _ := newServer(t)

		Convey("When a task is created and completed", func() {
			task, err := c.CreateTask(ctx, "Write report")
			So(err, ShouldBeNil)
			So(task.Title, ShouldEqual, "Write report")

			out, err := c.CompleteTask(ctx, task.ID)
			So(err, ShouldBeNil)
			So(out.Task.Completed, ShouldBeTrue)

			Convey("Then the player holds the reward", func() {
				p, err := c.Player(ctx)
				So(err, ShouldBeNil)
				So(p.Player.Experience, ShouldEqual, 20)
				So(p.Player.Gold, ShouldEqual, 5)
			})

			Convey("Then undo and delete work", func() {
				_, err := c.UncompleteTask(ctx, task.ID)
				So(err, ShouldBeNil)
				So(c.DeleteTask(ctx, task.ID), ShouldBeNil)
				tasks, err := c.Tasks(ctx)
				So(err, ShouldBeNil)
				So(tasks, ShouldBeEmpty)
			})
		})

		Convey("When the server rejects a request", func() {
			_, err := c.CreateTask(ctx, "   ")
			var apiErr *client.APIError
			So(errors.As(err, &apiErr), ShouldBeTrue)
			So(apiErr.Status, ShouldEqual, http.StatusBadRequest)
			So(apiErr.Code, ShouldEqual, "bad_request")

			err = c.DeleteTask(ctx, "missing")
			So(errors.As(err, &apiErr), ShouldBeTrue)
			So(apiErr.Status, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the shop is used without gold", func() {
			shop, err := c.Shop(ctx)
			So(err, ShouldBeNil)
			So(shop, ShouldNotBeEmpty)

			_, err = c.Purchase(ctx, shop[0].ID)
			var apiErr *client.APIError
			So(errors.As(err, &apiErr), ShouldBeTrue)
			So(apiErr.Status, ShouldEqual, http.StatusPaymentRequired)
		})
	})
}

func TestClientJournal(t *testing.T) {
	Convey("Given a client against a running server", t, func() {
		ctx := context.Background()
		c, _ := newServer(t)

		Convey("Goals, focus and captures round-trip", func() {
			g, err := c.SetGoal(ctx, 2, "Ship it")
			So(err, ShouldBeNil)
			So(g.ID, ShouldEqual, 2)

			goals, err := c.Goals(ctx)
			So(err, ShouldBeNil)
			So(goals[1].Text, ShouldEqual, "Ship it")

			So(c.SetDailyFocus(ctx, "Deep work"), ShouldBeNil)
			focus, err := c.DailyFocus(ctx)
			So(err, ShouldBeNil)
			So(focus, ShouldEqual, "Deep work")

			e, err := c.AddQuickCapture(ctx, "buy milk")
			So(err, ShouldBeNil)
			So(e.Text, ShouldEqual, "buy milk")
			_, err = c.AddBrainDump(ctx, "worry")
			So(err, ShouldBeNil)

			brief, err := c.MorningBrief(ctx)
			So(err, ShouldBeNil)
			So(brief.DailyFocus, ShouldEqual, "Deep work")
		})

		Convey("Habits can be toggled and swept", func() {
			habits, err := c.Habits(ctx)
			So(err, ShouldBeNil)
			So(habits, ShouldNotBeEmpty)

			out, err := c.ToggleHabit(ctx, habits[0].ID)
			So(err, ShouldBeNil)
			So(out.Habit.CompletedToday, ShouldBeTrue)

			_, err = c.SweepHabits(ctx)
			So(err, ShouldBeNil)
		})
	})
}

func TestClientVoice(t *testing.T) {
	Convey("Given a client against a running server", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c, _ := newServer(t)

		Convey("When a voice note is submitted twice", func() {
			first, err := c.SubmitVoice(ctx, "req-1", []byte("audio"), 3)
			So(err, ShouldBeNil)
			So(first.Duplicate, ShouldBeFalse)

			again, err := c.SubmitVoice(ctx, "req-1", []byte("audio"), 3)
			So(err, ShouldBeNil)
			So(again.Duplicate, ShouldBeTrue)
			So(again.Job.ID, ShouldEqual, first.Job.ID)

			Convey("Then the job finishes with tasks", func() {
				job, err := c.WaitJob(ctx, first.Job.ID, 10*time.Millisecond)
				So(err, ShouldBeNil)
				So(job.Status, ShouldEqual, model.JobDone)
				So(job.TaskIDs, ShouldNotBeEmpty)
			})
		})
	})
}

func TestCreateTasks(t *testing.T) {
	Convey("Given a client against a running server", t, func() {
		ctx := context.Background()
		c, _ := newServer(t)

		Convey("When a batch of tasks is created concurrently", func() {
			titles := make([]string, 20)
			for i := range titles {
				titles[i] = fmt.Sprintf("task %d", i)
			}
			titles[7] = ""

			res := c.CreateTasks(ctx, titles, 4)

			Convey("Then every title is accounted for", func() {
				So(res.Submitted, ShouldEqual, 20)
				So(res.Successful, ShouldEqual, 19)
				So(res.Failed, ShouldEqual, 1)
				So(res.FirstError, ShouldNotBeNil)

				tasks, err := c.Tasks(ctx)
				So(err, ShouldBeNil)
				So(tasks, ShouldHaveLength, 19)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			res := c.CreateTasks(cctx, []string{"a", "b"}, 0)
			So(res.Successful, ShouldEqual, 0)
		})
	})
}

func TestUnexpectedStatus(t *testing.T) {
	Convey("Given a server answering without an error body", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := client.New(srv.URL).Player(context.Background())
		So(errors.Is(err, client.ErrUnexpectedStatus), ShouldBeTrue)
	})
}
