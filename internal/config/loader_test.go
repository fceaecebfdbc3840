package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/seoscore/internal/config"
	"github.com/okian/seoscore/internal/domain/model"
)

var configEnvVars = []string{
	"SEOSCORE_CONFIG",
	"SEOSCORE_ADDR",
	"SEOSCORE_LOG_LEVEL",
	"SEOSCORE_LOG_FORMAT",
	"SEOSCORE_DATABASE_PATH",
	"SEOSCORE_NOTIFY_QUEUE_SIZE",
	"SEOSCORE_NOTIFY_WORKER_COUNT",
	"SEOSCORE_KAFKA_BROKERS",
	"SEOSCORE_KAFKA_TOPIC",
	"SEOSCORE_MAX_LIST_LIMIT",
	"SEOSCORE_SHUTDOWN_TIMEOUT",
}

func clearConfigEnvVars() {
	for _, k := range configEnvVars {
		_ = os.Unsetenv(k)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "seoscore.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.NotifyQueueSize, convey.ShouldEqual, 1024)
				convey.So(cfg.Scoring.ClientWeights[model.ClientPremium], convey.ShouldEqual, 1.5)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SEOSCORE_ADDR", ":8080")
			_ = os.Setenv("SEOSCORE_DATABASE_PATH", "/var/lib/seoscore.db")
			_ = os.Setenv("SEOSCORE_NOTIFY_WORKER_COUNT", "4")
			_ = os.Setenv("SEOSCORE_KAFKA_BROKERS", "k1:9092,k2:9092")
			_ = os.Setenv("SEOSCORE_SHUTDOWN_TIMEOUT", "3s")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DatabasePath, convey.ShouldEqual, "/var/lib/seoscore.db")
				convey.So(cfg.NotifyWorkerCount, convey.ShouldEqual, 4)
				convey.So(cfg.KafkaBrokers, convey.ShouldEqual, "k1:9092,k2:9092")
				convey.So(cfg.ShutdownTimeout, convey.ShouldEqual, 3*time.Second)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			path := createTempConfigFile(t, `
addr: ":9090"
log_format: json
max_list_limit: 25
scoring:
  ranking_targets:
    Premium:
      serp_target: 30
      gmb_target: 12
  client_weights:
    Premium: 2
`)
			_ = os.Setenv("SEOSCORE_CONFIG", path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values replace defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.MaxListLimit, convey.ShouldEqual, 25)
				convey.So(cfg.Scoring.RankingTargets[model.ClientPremium].SERPTarget, convey.ShouldEqual, 30)
				convey.So(cfg.Scoring.ClientWeights[model.ClientPremium], convey.ShouldEqual, 2)
			})

			convey.Convey("Then untouched tiers keep their defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Scoring.RankingTargets[model.ClientStandard].SERPTarget, convey.ShouldEqual, 10)
				convey.So(cfg.Scoring.AppraisalBands["A"].MinScore, convey.ShouldEqual, 85)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			path := createTempConfigFile(t, "addr: \":9090\"\nnotify_queue_size: 64\n")
			_ = os.Setenv("SEOSCORE_CONFIG", path)
			_ = os.Setenv("SEOSCORE_ADDR", ":8080")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.NotifyQueueSize, convey.ShouldEqual, 64)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			_ = os.Setenv("SEOSCORE_CONFIG", createTempConfigFile(t, `invalid: yaml: content: [`))

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("SEOSCORE_CONFIG", "/nonexistent/seoscore.yaml")

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("SEOSCORE_ADDR", "")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("SEOSCORE_NOTIFY_QUEUE_SIZE", "invalid")

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When a scoring table is unusable", func() {
			path := createTempConfigFile(t, `
scoring:
  delivery_targets:
    Standard:
      videos: 3
`)
			cfg, err := config.LoadFile(path)

			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}
