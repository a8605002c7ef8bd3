package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/urfave/cli/v2"
)

// loadAppConfig loads configuration using the global CLI flags and installs
// the application logger.
func loadAppConfig(c *cli.Context) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadWithOptions(config.Options{
		ConfigFile: c.String(flagConfig),
		EnvFile:    c.String(flagEnvFile),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("database_driver", cfg.Database.Driver))
	if cfg.Database.URL != "" {
		log.Debug("database configuration", slog.Bool("url_present", true))
	}

	return cfg, log, nil
}
