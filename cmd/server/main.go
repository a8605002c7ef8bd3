// Package main implements the taskflow API server binary. It serves the
// task, notification and user APIs and runs schema migrations.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"
)

const (
	flagConfig      = "config"
	flagEnvFile     = "env-file"
	flagAutoMigrate = "auto-migrate"
)

func main() {
	if err := newCLI().Run(os.Args); err != nil {
		slog.Error("command failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:  "taskflow",
		Usage: "task tracking API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				EnvVars: []string{"TASKFLOW_CONFIG"},
				Usage:   "YAML configuration file",
			},
			&cli.StringFlag{
				Name:    flagEnvFile,
				EnvVars: []string{"TASKFLOW_ENV_FILE"},
				Usage:   "dotenv file loaded before configuration",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API and reminder scheduler",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagAutoMigrate,
				EnvVars: []string{"TASKFLOW_AUTO_MIGRATE"},
				Usage:   "apply pending postgres migrations before serving",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, log, err := loadAppConfig(c)
			if err != nil {
				return err
			}

			stores, err := openStores(c.Context, cfg, log)
			if err != nil {
				return err
			}

			if c.Bool(flagAutoMigrate) {
				if stores.db == nil {
					log.Warn("auto-migrate ignored for non-postgres driver",
						slog.String("driver", cfg.Database.Driver))
				} else if err := runMigrations(c.Context, stores.db, "up", log); err != nil {
					stores.close(c.Context, log)
					return err
				}
			}

			app, err := newApplication(cfg, log, stores)
			if err != nil {
				stores.close(c.Context, log)
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return app.Run(c.Context)
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:      "migrate",
		Usage:     "run postgres schema migrations",
		ArgsUsage: "<up|down|status|reset|version>",
		Action: func(c *cli.Context) error {
			command := c.Args().First()
			if command == "" {
				return cli.Exit("migration command required (up, down, status, reset, version)", 2)
			}

			cfg, log, err := loadAppConfig(c)
			if err != nil {
				return err
			}
			return handleMigrations(c.Context, cfg, command, log)
		},
	}
}
