// Command server runs the site content API.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	_ "modernc.org/sqlite"

	"github.com/matthewbaird/sitecontent/internal/activity"
	"github.com/matthewbaird/sitecontent/internal/event"
	"github.com/matthewbaird/sitecontent/internal/eventbus"
	"github.com/matthewbaird/sitecontent/internal/feed"
	"github.com/matthewbaird/sitecontent/internal/seed"
	"github.com/matthewbaird/sitecontent/internal/server"
	"github.com/matthewbaird/sitecontent/internal/store/sqlite"
	"github.com/matthewbaird/sitecontent/internal/validate"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	setDefaults(v)
	var configFile string

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Serve the site content API",
		Long: `Serve the REST API used by the dashboard to manage statistics, pillars,
policies, services and projects, plus the activity log and live change feed.

Configuration comes from flags, SITECONTENT_* environment variables and an
optional sitecontent.yaml in the working directory.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, configFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file (default: ./sitecontent.yaml)")
	f.Int(cfgPort, 8080, "listen port")
	f.String("database-url", "file:sitecontent.db", "SQLite DSN")
	f.String("seed-file", "", `YAML seed applied to empty kinds ("default" for the demo content)`)
	f.String("log-level", "info", "log level (debug, info, warn, error)")
	f.String("log-format", "text", "log format (text, json)")
	f.StringSlice("allowed-origins", nil, "CORS origins allowed to call the API (default: any)")
	f.Int("event-buffer", 256, "event bus and feed buffer size")
	for key, flag := range map[string]string{
		cfgPort:           cfgPort,
		cfgDatabaseURL:    "database-url",
		cfgSeedFile:       "seed-file",
		cfgLogLevel:       "log-level",
		cfgLogFormat:      "log-format",
		cfgAllowedOrigins: "allowed-origins",
		cfgEventBuffer:    "event-buffer",
	} {
		_ = v.BindPFlag(key, f.Lookup(flag))
	}
	return cmd
}

func run(ctx context.Context, cfg config) error {
	logger, err := newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	validator, err := validate.Default()
	if err != nil {
		return fmt.Errorf("loading registry: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	backend := sqlite.Open(db)
	defer backend.Close()
	if err := backend.Migrate(ctx); err != nil {
		return fmt.Errorf("running schema migration: %w", err)
	}
	activityStore := activity.NewSQLStore(backend.Driver())
	if err := activityStore.CreateTable(ctx); err != nil {
		return fmt.Errorf("running activity migration: %w", err)
	}
	logger.Info("database migrated", "dsn", cfg.DatabaseURL)

	if err := seedIfConfigured(ctx, cfg.SeedFile, backend, validator, logger); err != nil {
		return err
	}

	bus := eventbus.New(cfg.EventBuffer, logger)
	hub := feed.NewHub(cfg.EventBuffer, feed.WithLogger(logger), feed.WithOriginPatterns(originPatterns(cfg.AllowedOrigins)...))
	bus.Subscribe("log", eventbus.NewLogConsumer(logger))
	bus.Subscribe("feed", hub)
	bus.Start(ctx)
	defer bus.Stop()

	recorder := event.NewActivityRecorder(activityStore)
	recorder.SetPublisher(bus)

	return server.Run(ctx, server.Config{
		Port:           cfg.Port,
		AllowedOrigins: cfg.AllowedOrigins,
		Backend:        backend,
		Activity:       activityStore,
		Validator:      validator,
		Recorder:       recorder,
		Feed:           hub,
		Logger:         logger,
	})
}

func seedIfConfigured(ctx context.Context, file string, b *sqlite.Backend, v *validate.Validator, logger *slog.Logger) error {
	if file == "" {
		return nil
	}
	var (
		f   seed.File
		err error
	)
	if file == "default" {
		f, err = seed.Default()
	} else {
		f, err = seed.LoadFile(file)
	}
	if err != nil {
		return err
	}
	if _, err := seed.Elements(ctx, b, v, f, logger); err != nil {
		return fmt.Errorf("seeding: %w", err)
	}
	return nil
}

// originPatterns converts CORS origins into websocket origin patterns, which
// match on host only.
func originPatterns(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		out = append(out, o)
	}
	return out
}
