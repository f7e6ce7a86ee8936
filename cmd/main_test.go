package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/anchor/internal/adapters/repository"
	"github.com/okian/anchor/internal/config"
	"github.com/okian/anchor/pkg/logger"
	"github.com/okian/anchor/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.New(context.Background())
	cfg.Timezone = "UTC"
	cfg.AssistantLatencyMinMS = 0
	cfg.AssistantLatencyMaxMS = 0
	cfg.SQLitePath = filepath.Join(t.TempDir(), "anchor.db")
	return cfg
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			t.Setenv("ANCHOR_ADDR", ":8080")
			t.Setenv("ANCHOR_QUEUE_SIZE", "1000")
			t.Setenv("ANCHOR_WORKER_COUNT", "4")

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When building the service from defaults", func() {
			svc, err := buildService(context.Background(), testConfig(t), logger.Nop())
			convey.So(err, convey.ShouldBeNil)
			convey.So(svc, convey.ShouldNotBeNil)
		})

		convey.Convey("When the undo policy is unknown", func() {
			cfg := testConfig(t)
			cfg.UndoPolicy = "refund"
			_, err := buildService(context.Background(), cfg, logger.Nop())
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the timezone is unknown", func() {
			cfg := testConfig(t)
			cfg.Timezone = "Mars/Olympus"
			_, err := buildService(context.Background(), cfg, logger.Nop())
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given a service on the sqlite backend", t, func() {
		ctx := context.Background()
		cfg := testConfig(t)
		cfg.StorageBackend = config.BackendSQLite

		svc, err := buildService(ctx, cfg, logger.Nop())
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		mux := newMux(ctx, svc, cfg)

		convey.Convey("When a task is created over HTTP", func() {
			req := httptest.NewRequest(http.MethodPost, "/tasks", strings.NewReader(`{"title":"Survive a restart"}`))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusCreated)
			convey.So(svc.Close(), convey.ShouldBeNil)

			convey.Convey("Then a new process sees it", func() {
				again, err := startService(ctx, cfg, logger.Nop())
				convey.So(err, convey.ShouldBeNil)
				defer func() { _ = again.Close() }()

				tasks := again.Tasks(ctx)
				convey.So(tasks, convey.ShouldHaveLength, 1)
				convey.So(tasks[0].Title, convey.ShouldEqual, "Survive a restart")
			})
		})

		convey.Convey("When the docs and the dashboard are requested", func() {
			defer func() { _ = svc.Close() }()
			for _, path := range []string{"/", "/api-docs", "/openapi.yaml", "/healthz", "/stats", "/player"} {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})
	})
}

func TestStartServiceFailure(t *testing.T) {
	convey.Convey("Given a sqlite file written by a newer schema", t, func() {
		ctx := context.Background()
		cfg := testConfig(t)
		cfg.StorageBackend = config.BackendSQLite

		db, err := repository.OpenSQLite(ctx, cfg.SQLitePath)
		convey.So(err, convey.ShouldBeNil)
		convey.So(db.PutMany(ctx, map[string][]byte{repository.KeySchemaVersion: []byte("2")}), convey.ShouldBeNil)
		convey.So(db.Close(), convey.ShouldBeNil)

		convey.Convey("When the service is started", func() {
			svc, err := startService(ctx, cfg, logger.Nop())

			convey.Convey("Then the schema error is returned without a service", func() {
				convey.So(errors.Is(err, repository.ErrUnsupportedSchema), convey.ShouldBeTrue)
				convey.So(svc, convey.ShouldBeNil)
			})

			convey.Convey("And the file can be repaired and opened again", func() {
				db, err := repository.OpenSQLite(ctx, cfg.SQLitePath)
				convey.So(err, convey.ShouldBeNil)
				convey.So(db.PutMany(ctx, map[string][]byte{repository.KeySchemaVersion: []byte("1")}), convey.ShouldBeNil)
				convey.So(db.Close(), convey.ShouldBeNil)

				again, err := startService(ctx, cfg, logger.Nop())
				convey.So(err, convey.ShouldBeNil)
				convey.So(again.Close(), convey.ShouldBeNil)
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing system metrics updater", func() {
			convey.Convey("Then it should return when the context ends", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startSystemMetricsUpdater(ctx)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing service metrics update", func() {
			svc, err := buildService(context.Background(), testConfig(t), logger.Nop())
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then it should update metrics without panicking", func() {
				convey.So(func() {
					updateSystemMetrics()
					updateServiceMetrics(svc)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When creating a metrics manager on its own registry", func() {
			manager := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
			convey.So(manager, convey.ShouldNotBeNil)
		})
	})
}
