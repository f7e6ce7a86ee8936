package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/anchor/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.StorageBackend, convey.ShouldEqual, config.BackendMemory)
				convey.So(cfg.UndoPolicy, convey.ShouldEqual, config.UndoKeepReward)
				convey.So(cfg.HabitPenalty, convey.ShouldEqual, 5)
				convey.So(cfg.MaxHealth, convey.ShouldEqual, 100)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("ANCHOR_ADDR", ":8080")
			_ = os.Setenv("ANCHOR_QUEUE_SIZE", "8")
			_ = os.Setenv("ANCHOR_UNDO_POLICY", "REVOKE_REWARD")
			_ = os.Setenv("ANCHOR_TASK_XP_MAX", "40")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 8)
				convey.So(cfg.UndoPolicy, convey.ShouldEqual, config.UndoRevokeReward)
				convey.So(cfg.TaskXPMax, convey.ShouldEqual, 40)
			})
		})

		convey.Convey("When loading config with a YAML file and env overrides", func() {
			tmpFile := createTempConfigFile(t, `
addr: ":9090"
storage_backend: sqlite
sqlite_path: /tmp/anchor-test.db
worker_count: 4
timezone: UTC
`)
			_ = os.Setenv("ANCHOR_CONFIG", tmpFile)
			_ = os.Setenv("ANCHOR_WORKER_COUNT", "6")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then env wins over file and file wins over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.StorageBackend, convey.ShouldEqual, config.BackendSQLite)
				convey.So(cfg.SQLitePath, convey.ShouldEqual, "/tmp/anchor-test.db")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 6)
				convey.So(cfg.Timezone, convey.ShouldEqual, "UTC")
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 10_000)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(t, `invalid: yaml: content: [`)
			_ = os.Setenv("ANCHOR_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("ANCHOR_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("ANCHOR_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an unknown undo policy", func() {
			_ = os.Setenv("ANCHOR_UNDO_POLICY", "sometimes")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then validation rejects it", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func createTempConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "anchor.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearConfigEnvVars() {
	for _, k := range []string{
		"ANCHOR_CONFIG", "ANCHOR_ADDR", "ANCHOR_QUEUE_SIZE", "ANCHOR_UNDO_POLICY",
		"ANCHOR_TASK_XP_MAX", "ANCHOR_WORKER_COUNT",
	} {
		_ = os.Unsetenv(k)
	}
}
