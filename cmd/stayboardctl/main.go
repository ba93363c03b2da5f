package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/kotor-apartments/stayboard/cmd/stayboardctl/cli"
	"github.com/kotor-apartments/stayboard/internal/app"
	"github.com/kotor-apartments/stayboard/internal/platform/db"
	"github.com/kotor-apartments/stayboard/internal/property"
)

func main() {
	var cfg *app.Config
	loadConfig := func() (*app.Config, error) {
		if cfg != nil {
			return cfg, nil
		}
		loaded, err := app.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		return cfg, nil
	}

	env := cli.Env{
		Snapshot: func(cmd *cobra.Command) (*cli.SnapshotCLI, func(), error) {
			cfg, err := loadConfig()
			if err != nil {
				return nil, nil, err
			}
			logger := app.NewLogger(cfg)
			closeFn := func() {}
			var source property.Lister
			if cfg.RecordSource == app.RecordSourcePostgres {
				pool, err := db.New(cmd.Context(), cfg.PGDSN, db.Options{AppName: "stayboardctl"})
				if err != nil {
					return nil, nil, err
				}
				closeFn = pool.Close
				source, err = app.NewRecordSource(cfg, pool)
				if err != nil {
					pool.Close()
					return nil, nil, err
				}
			} else {
				source, err = app.NewRecordSource(cfg, nil)
				if err != nil {
					return nil, nil, err
				}
			}
			svc := app.NewSnapshotService(cfg, source, nil, logger, prometheus.NewRegistry())
			helper, err := cli.NewSnapshotCLI(svc, cfg.Location())
			if err != nil {
				closeFn()
				return nil, nil, err
			}
			return helper, closeFn, nil
		},
		Jobs: func(cmd *cobra.Command) (*cli.JobsCLI, error) {
			cfg, err := loadConfig()
			if err != nil {
				return nil, err
			}
			return cli.NewJobsCLI(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		},
	}

	if err := cli.NewRootCommand(env).Execute(); err != nil {
		code, reported := cli.ExitCode(err)
		if !reported {
			slog.Default().Error("stayboardctl", slog.Any("error", err))
		}
		os.Exit(code)
	}
}
