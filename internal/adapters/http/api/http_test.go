package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/anchor/internal/adapters/http/api"
	service "github.com/okian/anchor/internal/app"
	"github.com/okian/anchor/internal/domain/assistant"
	"github.com/okian/anchor/internal/domain/economy"
	"github.com/okian/anchor/internal/domain/model"
	"github.com/okian/anchor/internal/domain/streak"
	. "github.com/smartystreets/goconvey/convey"
)

func newService() *service.Service {
	clock := func() time.Time { return time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC) }
	var n atomic.Int64
	return service.New(
		service.WithCalendar(streak.NewCalendar(time.UTC, clock)),
		service.WithAssistant(assistant.NewSuite(assistant.NewStub(assistant.WithLatencyRange(0, 0)))),
		service.WithTaskRoller(economy.NewRoller(economy.Range{Min: 20, Max: 20}, economy.Range{Min: 5, Max: 5})),
		service.WithHabitPenalty(0),
		service.WithSweepSchedule(""),
		service.WithIDGenerator(func() string { return fmt.Sprintf("id-%d", n.Add(1)) }),
	)
}

func newMux(svc *service.Service, opts ...api.Option) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(svc, svc, opts...).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder, v any) {
	So(json.Unmarshal(w.Body.Bytes(), v), ShouldBeNil)
}

func errorCode(w *httptest.ResponseRecorder) string {
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	decode(w, &body)
	return body.Code
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		svc := newService()
		So(svc.Start(context.Background()), ShouldBeNil)
		Reset(svc.Stop)
		mux := newMux(svc)

		Convey("Then the health endpoint serves metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "anchor_")
		})

		Convey("And the stats endpoint reports the service", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var stats service.Stats
			decode(w, &stats)
			So(stats.Started, ShouldBeTrue)
			So(stats.Habits, ShouldEqual, 6)
		})

		Convey("And the player starts at level 1 with full health", func() {
			w := do(mux, http.MethodGet, "/player", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var stats service.PlayerStats
			decode(w, &stats)
			So(stats.Player.Level, ShouldEqual, 1)
			So(stats.Player.Health, ShouldEqual, 100)
			So(stats.Progress.Required, ShouldEqual, 100)
		})

		Convey("And a wrong method is rejected", func() {
			w := do(mux, http.MethodPatch, "/tasks", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestTaskEndpoints(t *testing.T) {
	Convey("Given a running API", t, func() {
		svc := newService()
		So(svc.Start(context.Background()), ShouldBeNil)
		Reset(svc.Stop)
		mux := newMux(svc)

		Convey("When a task is posted", func() {
			w := do(mux, http.MethodPost, "/tasks", `{"title":"Write tests"}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
			var task model.Task
			decode(w, &task)

			Convey("Then it is listed", func() {
				var tasks []model.Task
				decode(do(mux, http.MethodGet, "/tasks", ""), &tasks)
				So(tasks, ShouldHaveLength, 1)
				So(tasks[0].Title, ShouldEqual, "Write tests")
			})

			Convey("And completing it pays the reward", func() {
				w := do(mux, http.MethodPost, "/tasks/"+task.ID+"/complete", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var out service.TaskOutcome
				decode(w, &out)
				So(out.Player.Experience, ShouldEqual, 20)
				So(out.Player.Gold, ShouldEqual, 5)

				again := do(mux, http.MethodPost, "/tasks/"+task.ID+"/complete", "")
				decode(again, &out)
				So(out.AlreadyCompleted, ShouldBeTrue)
				So(out.Player.Experience, ShouldEqual, 20)
			})

			Convey("And un-completing reopens it", func() {
				do(mux, http.MethodPost, "/tasks/"+task.ID+"/complete", "")
				w := do(mux, http.MethodPost, "/tasks/"+task.ID+"/uncomplete", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var out service.TaskOutcome
				decode(w, &out)
				So(out.Task.Completed, ShouldBeFalse)
			})

			Convey("And deleting it answers 204", func() {
				w := do(mux, http.MethodDelete, "/tasks/"+task.ID, "")
				So(w.Code, ShouldEqual, http.StatusNoContent)
				So(do(mux, http.MethodDelete, "/tasks/"+task.ID, "").Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When a task has no title", func() {
			w := do(mux, http.MethodPost, "/tasks", `{"title":"  "}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(w), ShouldEqual, "bad_request")
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/tasks", `not json`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When completing an unknown task", func() {
			w := do(mux, http.MethodPost, "/tasks/nope/complete", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(errorCode(w), ShouldEqual, "not_found")
		})
	})
}

func TestHabitEndpoints(t *testing.T) {
	Convey("Given a running API", t, func() {
		svc := newService()
		So(svc.Start(context.Background()), ShouldBeNil)
		Reset(svc.Stop)
		mux := newMux(svc)

		Convey("When a habit is toggled", func() {
			w := do(mux, http.MethodPost, "/habits/3/toggle", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var out service.HabitOutcome
			decode(w, &out)
			So(out.Completed, ShouldBeTrue)
			So(out.Habit.CurrentStreak, ShouldEqual, 1)
		})

		Convey("When the sweep is run on the start-up day", func() {
			first := do(mux, http.MethodPost, "/habits/sweep", "")
			So(first.Code, ShouldEqual, http.StatusOK)
			var out service.SweepOutcome
			decode(first, &out)
			So(out.Damage, ShouldEqual, 0)
			So(out.Today, ShouldEqual, "2024-06-01")
		})

		Convey("When toggling an unknown habit", func() {
			So(do(mux, http.MethodPost, "/habits/42/toggle", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestJournalEndpoints(t *testing.T) {
	Convey("Given a running API", t, func() {
		svc := newService()
		So(svc.Start(context.Background()), ShouldBeNil)
		Reset(svc.Stop)
		mux := newMux(svc)

		Convey("When a goal is updated", func() {
			w := do(mux, http.MethodPut, "/goals/1", `{"text":"Learn Go"}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			var goals []model.Goal
			decode(do(mux, http.MethodGet, "/goals", ""), &goals)
			So(goals, ShouldHaveLength, 3)
			So(goals[0].Text, ShouldEqual, "Learn Go")
		})

		Convey("When a goal id is invalid", func() {
			So(do(mux, http.MethodPut, "/goals/x", `{"text":"a"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPut, "/goals/7", `{"text":"a"}`).Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the big three overflows", func() {
			for i := 0; i < 3; i++ {
				So(do(mux, http.MethodPost, "/bigthree", fmt.Sprintf(`{"text":"item %d"}`, i)).Code, ShouldEqual, http.StatusCreated)
			}
			w := do(mux, http.MethodPost, "/bigthree", `{"text":"one too many"}`)
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(errorCode(w), ShouldEqual, "big_three_full")
		})

		Convey("When entries are captured", func() {
			So(do(mux, http.MethodPost, "/captures", `{"text":"buy milk"}`).Code, ShouldEqual, http.StatusCreated)
			So(do(mux, http.MethodPost, "/braindump", `{"text":"worry"}`).Code, ShouldEqual, http.StatusCreated)
			So(do(mux, http.MethodDelete, "/braindump", "").Code, ShouldEqual, http.StatusNoContent)

			var captures, dump []model.Entry
			decode(do(mux, http.MethodGet, "/captures", ""), &captures)
			decode(do(mux, http.MethodGet, "/braindump", ""), &dump)
			So(captures, ShouldHaveLength, 1)
			So(dump, ShouldBeEmpty)
		})

		Convey("When the daily focus is set", func() {
			So(do(mux, http.MethodPut, "/focus", `{"focus":"Deep work"}`).Code, ShouldEqual, http.StatusOK)
			var brief struct {
				DailyFocus string `json:"daily_focus"`
				OpenTasks  int    `json:"open_tasks"`
			}
			decode(do(mux, http.MethodGet, "/planner/brief", ""), &brief)
			So(brief.DailyFocus, ShouldEqual, "Deep work")
			So(brief.OpenTasks, ShouldEqual, 0)
		})
	})
}

func TestShopEndpoints(t *testing.T) {
	Convey("Given a running API with a broke player", t, func() {
		svc := newService()
		So(svc.Start(context.Background()), ShouldBeNil)
		Reset(svc.Stop)
		mux := newMux(svc)

		Convey("When buying a reward", func() {
			w := do(mux, http.MethodPost, "/shop/purchase", `{"reward_id":"break"}`)

			Convey("Then it answers 402", func() {
				So(w.Code, ShouldEqual, http.StatusPaymentRequired)
				So(errorCode(w), ShouldEqual, "insufficient_funds")
			})
		})

		Convey("When buying without a reward id", func() {
			So(do(mux, http.MethodPost, "/shop/purchase", `{}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the catalog is listed", func() {
			var items []model.Reward
			decode(do(mux, http.MethodGet, "/shop", ""), &items)
			So(items, ShouldHaveLength, 6)
			var history []model.Purchase
			decode(do(mux, http.MethodGet, "/shop/history", ""), &history)
			So(history, ShouldBeEmpty)
		})
	})
}

func TestRoutineEndpoints(t *testing.T) {
	Convey("Given a running API", t, func() {
		svc := newService()
		So(svc.Start(context.Background()), ShouldBeNil)
		Reset(svc.Stop)
		mux := newMux(svc)

		Convey("When there is no session", func() {
			w := do(mux, http.MethodGet, "/routines/session", "")
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(errorCode(w), ShouldEqual, "no_session")
		})

		Convey("When a routine is started and a step skipped", func() {
			So(do(mux, http.MethodPost, "/routines/session", `{"routine":"morning"}`).Code, ShouldEqual, http.StatusCreated)
			w := do(mux, http.MethodPost, "/routines/session/skip", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var view service.RoutineView
			decode(w, &view)
			So(view.Session.StepIndex, ShouldEqual, 1)
			So(view.Player, ShouldNotBeNil)
			So(view.Player.Experience, ShouldEqual, 5)

			So(do(mux, http.MethodPost, "/routines/session/pause", "").Code, ShouldEqual, http.StatusOK)
			So(do(mux, http.MethodPost, "/routines/session/reset", "").Code, ShouldEqual, http.StatusNoContent)
		})

		Convey("When an unknown routine is started", func() {
			So(do(mux, http.MethodPost, "/routines/session", `{"routine":"nap"}`).Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestAssistantEndpoints(t *testing.T) {
	Convey("Given a running API", t, func() {
		svc := newService()
		So(svc.Start(context.Background()), ShouldBeNil)
		Reset(svc.Stop)
		mux := newMux(svc, api.WithMaxAudioBytes(16))

		Convey("When tone is adjusted", func() {
			w := do(mux, http.MethodPost, "/assistant/tone", `{"text":"send the report","tone":"friendly"}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "Hey!")
		})

		Convey("When the tone is unknown", func() {
			So(do(mux, http.MethodPost, "/assistant/tone", `{"text":"x","tone":"rude"}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When text is decomposed into tasks", func() {
			w := do(mux, http.MethodPost, "/assistant/decompose", `{"text":"wash the car and pay rent","create_tasks":true}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
			var out service.DecomposeOutcome
			decode(w, &out)
			So(out.Tasks, ShouldHaveLength, len(out.Steps))
		})

		Convey("When empty audio is transcribed", func() {
			So(do(mux, http.MethodPost, "/assistant/transcribe", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When audio exceeds the limit", func() {
			req := httptest.NewRequest(http.MethodPost, "/capture/voice", bytes.NewReader(make([]byte, 64)))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
		})

		Convey("When a voice note is submitted twice with one key", func() {
			submit := func() *httptest.ResponseRecorder {
				req := httptest.NewRequest(http.MethodPost, "/capture/voice?spiciness=3", bytes.NewReader([]byte("audio")))
				req.Header.Set("Idempotency-Key", "abc")
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				return w
			}
			first := submit()
			So(first.Code, ShouldEqual, http.StatusAccepted)
			second := submit()
			So(second.Code, ShouldEqual, http.StatusOK)

			var a, b struct {
				Job       model.JobResult `json:"job"`
				Duplicate bool            `json:"duplicate"`
			}
			decode(first, &a)
			decode(second, &b)
			So(b.Duplicate, ShouldBeTrue)
			So(b.Job.ID, ShouldEqual, a.Job.ID)

			Convey("Then the job can be polled", func() {
				w := do(mux, http.MethodGet, "/capture/jobs/"+a.Job.ID, "")
				So(w.Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When an unknown job is polled", func() {
			So(do(mux, http.MethodGet, "/capture/jobs/missing", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})

	Convey("Given a service that was never started", t, func() {
		svc := newService()
		mux := newMux(svc)

		Convey("When a voice note is submitted", func() {
			req := httptest.NewRequest(http.MethodPost, "/capture/voice", bytes.NewReader([]byte("audio")))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it answers 503", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})
	})
}

func TestErrors(t *testing.T) {
	Convey("Given an op-tagged error", t, func() {
		err := api.WrapKind("api.test", api.ErrBadRequest, fmt.Errorf("boom"))

		Convey("Then it matches its kind and reads naturally", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.test: bad request: boom")
		})

		Convey("And Wrap keeps nil as nil", func() {
			So(api.Wrap("api.test", nil), ShouldBeNil)
		})

		Convey("And NewKind carries no cause", func() {
			So(api.NewKind("api.test", api.ErrBackpressure).Error(), ShouldEqual, "api.test: backpressure")
		})
	})
}
