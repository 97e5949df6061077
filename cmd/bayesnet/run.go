package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cognicore/bayesnet/internal/debuglog"
	"github.com/cognicore/bayesnet/pkg/bayesnet"
	"github.com/cognicore/bayesnet/pkg/bayesnet/config"
	"github.com/cognicore/bayesnet/pkg/bayesnet/metrics"
	"github.com/cognicore/bayesnet/pkg/bayesnet/netfile"
	"github.com/cognicore/bayesnet/pkg/bayesnet/store"
	"github.com/cognicore/bayesnet/pkg/bayesnet/store/memstore"
	"github.com/cognicore/bayesnet/pkg/bayesnet/store/sqlite"
)

type runFlags struct {
	configPath string
	output     string
	workers    int
	ledger     string
	ledgerDSN  string
	textfile   string
	logLevel   string
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run <input>",
		Short: "Answer every query of an input file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, args[0])
		},
	}
	cmd.Flags().StringVar(&f.configPath, "config", "", "YAML configuration file")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output file (default output.txt)")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Queries evaluated in parallel (default 1)")
	cmd.Flags().StringVar(&f.ledger, "ledger", "", "Ledger driver: memory or sqlite")
	cmd.Flags().StringVar(&f.ledgerDSN, "ledger-dsn", "", "SQLite DSN for the ledger")
	cmd.Flags().StringVar(&f.textfile, "metrics-textfile", "", "Write Prometheus metrics to this file")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	return cmd
}

// loadConfig reads the config file and applies the flags that were set
func loadConfig(cmd *cobra.Command, f runFlags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output = f.output
	}
	if flags.Changed("workers") {
		cfg.Workers = f.workers
	}
	if flags.Changed("ledger") {
		cfg.Ledger.Driver = f.ledger
	}
	if flags.Changed("ledger-dsn") {
		cfg.Ledger.DSN = f.ledgerDSN
	}
	if flags.Changed("metrics-textfile") {
		cfg.Metrics.Textfile = f.textfile
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg config.Config, input string) error {
	logger, err := debuglog.Configure(debuglog.Options{Level: cfg.Log.Level})
	if err != nil {
		return err
	}

	file, err := netfile.ParseFile(input)
	if err != nil {
		return fmt.Errorf("parse %s: %w", input, err)
	}
	logger.WithFields(logrus.Fields{
		"input":     input,
		"variables": file.Network.Len(),
		"queries":   len(file.Queries),
	}).Info("Loaded network")

	ledger, err := openLedger(ctx, cfg.Ledger)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}

	var reg *metrics.Registry
	if cfg.Metrics.Textfile != "" {
		reg = metrics.NewRegistry()
	}

	engine := bayesnet.New(bayesnet.Options{
		Ledger:  ledger,
		Metrics: reg,
		Logger:  logger,
		Workers: cfg.Workers,
	})
	defer engine.Close()

	results, err := engine.Run(ctx, file.Network, file.Queries)
	if err != nil {
		return err
	}
	if err := netfile.WriteResultsFile(cfg.Output, results); err != nil {
		return fmt.Errorf("write %s: %w", cfg.Output, err)
	}
	if reg != nil {
		if err := reg.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	logger.WithFields(logrus.Fields{
		"output": cfg.Output,
		"run":    engine.RunID(),
	}).Info("Wrote results")
	return nil
}

func openLedger(ctx context.Context, cfg config.Ledger) (store.Ledger, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return sqlite.Open(ctx, cfg.DSN)
	default:
		return memstore.New(), nil
	}
}
