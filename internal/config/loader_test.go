package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/ringside/internal/config"
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
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.PageSize, convey.ShouldEqual, 500)
				convey.So(cfg.MaxBatchOps, convey.ShouldEqual, 500)
				convey.So(cfg.HistoryPeriod, convey.ShouldEqual, "history")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("RINGSIDE_ADDR", ":8080")
			_ = os.Setenv("RINGSIDE_PAGE_SIZE", "250")
			_ = os.Setenv("RINGSIDE_FETCH_CONCURRENCY", "4")
			_ = os.Setenv("RINGSIDE_DATABASE_URL", "postgres://u:p@localhost/ringside")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.PageSize, convey.ShouldEqual, 250)
				convey.So(cfg.FetchConcurrency, convey.ShouldEqual, 4)
				convey.So(cfg.DatabaseURL, convey.ShouldEqual, "postgres://u:p@localhost/ringside")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
max_batch_ops: 400
result_store_url: "http://results.local"
archive_dir: "/var/lib/ringside"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("RINGSIDE_CONFIG", tmpFile)
			_ = os.Setenv("RINGSIDE_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.MaxBatchOps, convey.ShouldEqual, 400)
				convey.So(cfg.ResultStoreURL, convey.ShouldEqual, "http://results.local")
				convey.So(cfg.ArchiveDir, convey.ShouldEqual, "/var/lib/ringside")
				convey.So(cfg.PageSize, convey.ShouldEqual, 500)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("RINGSIDE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			cfg, err := config.LoadFile(ctx, "/non/existent/file.yaml")

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("RINGSIDE_PAGE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestConfigValidation(t *testing.T) {
	convey.Convey("Given config validation", t, func() {
		ctx := context.Background()

		convey.Convey("When the batch limit is zero", func() {
			_ = os.Setenv("RINGSIDE_MAX_BATCH_OPS", "0")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then it should be rejected as invalid", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When both archive periods share a name", func() {
			cfg := config.New(ctx)
			cfg.CurrentPeriod = cfg.HistoryPeriod

			convey.Convey("Then it should be rejected", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the log level is unknown", func() {
			cfg := config.New(ctx)
			cfg.LogLevel = "chatty"

			convey.Convey("Then it should be rejected", func() {
				convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the result store url is malformed", func() {
			cfg := config.New(ctx)
			cfg.ResultStoreURL = "::not a url"

			convey.Convey("Then it should be rejected", func() {
				convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			})
		})
	})
}

func clearConfigEnvVars() {
	envVars := []string{
		"RINGSIDE_CONFIG",
		"RINGSIDE_ADDR",
		"RINGSIDE_PAGE_SIZE",
		"RINGSIDE_FETCH_CONCURRENCY",
		"RINGSIDE_DATABASE_URL",
		"RINGSIDE_MAX_BATCH_OPS",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "ringside-config-*.yaml")
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
