package cli

import (
	"fmt"
	"time"

	"pg_exporter/collector"
	"pg_exporter/log"
	"pg_exporter/server"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// Version is stamped by the build.
var Version = "dev"

// NewRootCommand builds the pg_exporter command with the full flag surface,
// including one enable/disable flag pair per manifest entry.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "pg_exporter",
		Short:        "PostgreSQL metric exporter for Prometheus",
		Version:      Version,
		SilenceUsage: true,
		RunE:         run,
	}

	flags := cmd.Flags()
	flags.String("web.listen-address", ":9432", "network address on which the exporter listens")
	flags.String("dsn", "postgresql://postgres@localhost:5432/postgres", "database connection string")
	flags.StringSlice("exclude-databases", nil, "databases to exclude, repeatable or comma-joined")
	flags.String("log.level", "info", "log level (debug, info, warn, error)")
	flags.String("log.path", "", "log file path, console when empty")
	flags.Duration("scrape.timeout", 30*time.Second, "per-scrape timeout covering all collectors")

	cobra.CheckErr(AddCollectorFlags(flags))
	return cmd
}

func Execute() {
	cobra.CheckErr(NewRootCommand().Execute())
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return err
	}

	if err := log.InitLogger(cfg.LogPath, cfg.LogLevel); err != nil {
		return err
	}

	collector.SetExcludedDatabases(cfg.ExcludeDatabases)

	enabled := EnabledCollectors(cmd.Flags())
	if len(enabled) == 0 {
		log.Logger.Warn("no collectors enabled; only exporter self-metrics will be served")
	}
	log.Logger.Infof("enabled collectors: %v", enabled)

	db, err := openDB(cfg.DSN)
	if err != nil {
		return err
	}

	if err := collector.SetConnectionDSN(cfg.DSN); err != nil {
		return err
	}

	exporter := collector.New(db, prometheus.NewRegistry())
	if err := exporter.Register(collector.NewConfig(enabled)); err != nil {
		return err
	}

	srv := server.New(cfg.ListenAddress, cfg.ScrapeTimeout, exporter, exporter.Registry(), db.DB, Version)
	return srv.Run()
}

func openDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("dsn is not valid: err=%w", err)
	}

	// One shared pool across all collectors; connections are acquired per
	// query and released immediately, never held across calls.
	db.SetMaxOpenConns(3)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connection failed: err=%w", err)
	}

	return db, nil
}
