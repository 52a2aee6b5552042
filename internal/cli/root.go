// Package cli implements insightctl, an offline front end to the engine
// that keeps player progress in a local SQLite file.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	service "github.com/riftcoach/insight/internal/app"
	"github.com/riftcoach/insight/internal/config"
	"github.com/riftcoach/insight/pkg/logger"
)

type rootOptions struct {
	dbPath     string
	configPath string
	verbose    bool
}

// NewRootCommand builds the insightctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "insightctl",
		Short:         "Match insight tool",
		Long:          "Analyse League of Legends match timelines and follow a player's progress.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			if err := logger.Init(logger.WithOutput(cmd.ErrOrStderr())); err != nil {
				return err
			}
			return logger.SetLevelString(level)
		},
	}

	defaultDB := filepath.Join(mustUserHome(), ".insight", "progress.db")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", defaultDB, "path to SQLite database")
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "optional YAML config file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log engine activity to stderr")

	root.AddCommand(newAnalyzeCommand(opts))
	root.AddCommand(newProgressCommand(opts))
	root.AddCommand(newTrendCommand(opts))
	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openEngine starts an engine backed by the SQLite file at opts.dbPath.
func openEngine(ctx context.Context, opts *rootOptions) (*service.Engine, error) {
	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		return nil, err
	}
	engineOpts, err := service.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(opts.dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	engineOpts = append(engineOpts,
		service.WithSQLite(opts.dbPath),
		service.WithWorkerCount(1),
		service.WithLogger(logger.Get().Named("insightctl")),
	)

	engine := service.New(engineOpts...)
	if err := engine.Start(ctx); err != nil {
		return nil, err
	}
	return engine, nil
}

func mustUserHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
