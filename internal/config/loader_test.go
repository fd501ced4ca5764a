package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/pitwall/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
				convey.So(cfg.DBBackend, convey.ShouldEqual, "sqlite")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("PITWALL_ADDR", ":8080")
			_ = os.Setenv("PITWALL_QUEUE_SIZE", "500")
			_ = os.Setenv("PITWALL_WORKER_COUNT", "16")
			_ = os.Setenv("PITWALL_DB_BACKEND", "postgres")
			_ = os.Setenv("PITWALL_DB_DSN", "postgres://pitwall@localhost/pitwall")
			_ = os.Setenv("PITWALL_ADMIN_TOKEN", "s3cret")
			_ = os.Setenv("PITWALL_TELEGRAM_CHAT_ID", "-1001234")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.DBBackend, convey.ShouldEqual, "postgres")
				convey.So(cfg.DBDSN, convey.ShouldEqual, "postgres://pitwall@localhost/pitwall")
				convey.So(cfg.AdminToken, convey.ShouldEqual, "s3cret")
				convey.So(cfg.TelegramChatID, convey.ShouldEqual, int64(-1001234))
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
# race weekend settings
addr: ":9090"
queue_size: 3000
worker_count: 24
min_predicted_positions: 5
log_format: json
seed_on_start: true
seed_file: grid.yaml
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("PITWALL_CONFIG", tmpFile)
			_ = os.Setenv("PITWALL_WORKER_COUNT", "32")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 3000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 32)
				convey.So(cfg.MinPredictedPositions, convey.ShouldEqual, 5)
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 100_000)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.SeedOnStart, convey.ShouldBeTrue)
				convey.So(cfg.SeedFile, convey.ShouldEqual, "grid.yaml")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("PITWALL_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("PITWALL_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the file empties addr", func() {
			tmpFile := createTempConfigFile("addr: \"\"\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("PITWALL_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("PITWALL_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func clearConfigEnvVars() {
	envVars := []string{
		"PITWALL_CONFIG",
		"PITWALL_ADDR",
		"PITWALL_QUEUE_SIZE",
		"PITWALL_WORKER_COUNT",
		"PITWALL_DB_BACKEND",
		"PITWALL_DB_DSN",
		"PITWALL_ADMIN_TOKEN",
		"PITWALL_TELEGRAM_CHAT_ID",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "pitwall-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
