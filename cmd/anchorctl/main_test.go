package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/anchor/internal/adapters/http/api"
	service "github.com/okian/anchor/internal/app"
	"github.com/okian/anchor/internal/domain/assistant"
	"github.com/okian/anchor/internal/domain/economy"
	"github.com/okian/anchor/internal/domain/model"
	"github.com/okian/anchor/internal/domain/streak"
	"github.com/smartystreets/goconvey/convey"
)

func startServer(t *testing.T) string {
	t.Helper()
	clock := func() time.Time { return time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC) }
	svc := service.New(
		service.WithCalendar(streak.NewCalendar(time.UTC, clock)),
		service.WithAssistant(assistant.NewSuite(assistant.NewStub(assistant.WithLatencyRange(0, 0)))),
		service.WithTaskRoller(economy.NewRoller(economy.Range{Min: 20, Max: 20}, economy.Range{Min: 5, Max: 5})),
		service.WithHabitPenalty(0),
		service.WithSweepSchedule(""),
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
	return srv.URL
}

func run(url string, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--url", url, "--timeout", "5s"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	convey.Convey("Given anchorctl against a running server", t, func() {
		url := startServer(t)

		convey.Convey("When a task is added and completed", func() {
			out, err := run(url, "--json", "task", "add", "Write", "the", "report")
			convey.So(err, convey.ShouldBeNil)
			var task model.Task
			convey.So(json.Unmarshal([]byte(out), &task), convey.ShouldBeNil)
			convey.So(task.Title, convey.ShouldEqual, "Write the report")

			out, err = run(url, "task", "done", task.ID)
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "[x] Write the report")

			out, err = run(url, "status")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "XP 20")
			convey.So(out, convey.ShouldContainSubstring, "Gold 5")

			out, err = run(url, "task", "list")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, task.ID)
		})

		convey.Convey("When the server returns an error", func() {
			_, err := run(url, "task", "done", "missing")
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "not_found")
		})

		convey.Convey("When the goal id is not a number", func() {
			_, err := run(url, "goal", "set", "one", "Ship")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When journal commands are used", func() {
			out, err := run(url, "goal", "set", "1", "Run", "a", "marathon")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "1. Run a marathon")

			out, err = run(url, "focus", "Deep", "work")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "Focus: Deep work")

			_, err = run(url, "capture", "--dump", "too", "many", "tabs")
			convey.So(err, convey.ShouldBeNil)

			out, err = run(url, "brief")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "0 open tasks")
		})

		convey.Convey("When habits and the shop are listed", func() {
			out, err := run(url, "habit", "list")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "Hydrate")

			out, err = run(url, "habit", "toggle", "1")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "[x] Hydrate")

			out, err = run(url, "shop", "list")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "gold")

			_, err = run(url, "shop", "buy", "nope")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When a voice note is uploaded and awaited", func() {
			path := filepath.Join(t.TempDir(), "note.wav")
			convey.So(os.WriteFile(path, []byte("RIFF"), 0o600), convey.ShouldBeNil)

			out, err := run(url, "voice", "--wait", "--request-id", "r-1", path)
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "done")
			convey.So(out, convey.ShouldContainSubstring, "Created")
		})

		convey.Convey("When tasks are seeded", func() {
			out, err := run(url, "seed", "--count", "12", "--workers", "3")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "Created 12/12 tasks")

			_, err = run(url, "seed", "--count", "0")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
