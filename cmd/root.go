// Package cmd wires the quickchat commands onto a cobra command tree.
package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/dhcgn/quickchat/config"
	"github.com/dhcgn/quickchat/engine"
	"github.com/dhcgn/quickchat/stats"
	"github.com/dhcgn/quickchat/store"
)

// LoggerSetup builds the process logger from the resolved config. The
// returned cleanup func is called once the command finishes.
type LoggerSetup func(cfg config.Config) (*slog.Logger, func() error, error)

// app is the state shared by every sub-command of one invocation.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	engine    *engine.Engine
	collector *stats.Collector
	events    *relay
	cleanup   func() error
	started   time.Time
}

// NewRootCmd returns the quickchat command tree.
func NewRootCmd(setup LoggerSetup) (*cobra.Command, error) {
	a := &app{}

	root := &cobra.Command{
		Use:           "quickchat",
		Short:         "Send, store and search short messages kept as JSON files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd, setup)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	if err := config.RegisterFlags(root); err != nil {
		return nil, fmt.Errorf("register flags: %w", err)
	}

	root.AddCommand(
		newSendCmd(a),
		newDraftCmd(a),
		newDeleteCmd(a),
		newResetCmd(a),
		newListCmd(a),
		newFindCmd(a),
		newReportCmd(a),
		newLongestCmd(a),
		newSendersCmd(a),
		newStatsCmd(a),
		newBatchCmd(a),
		newImportCmd(a),
		newExportCmd(a),
	)
	return root, nil
}

func (a *app) open(cmd *cobra.Command, setup LoggerSetup) error {
	cfg, err := config.LoadConfig(cmd)
	if err != nil {
		return err
	}

	logger, cleanup, err := setup(cfg)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	slog.SetDefault(logger)

	fs, err := store.NewFileStore(cfg.WorkDir, !cfg.DryRun, logger)
	if err != nil {
		_ = cleanup()
		return fmt.Errorf("open store: %w", err)
	}

	collector := stats.NewCollector()
	events := &relay{sinks: stats.Fanout{collector}}
	e, err := engine.New(engine.Options{Store: fs, Logger: logger, Sink: events})
	if err != nil {
		_ = cleanup()
		return err
	}
	if err := e.Reload(); err != nil {
		_ = cleanup()
		return fmt.Errorf("reload messages: %w", err)
	}
	e.SetDisplayName(cfg.DisplayName)

	a.cfg = cfg
	a.logger = logger
	a.engine = e
	a.collector = collector
	a.events = events
	a.cleanup = cleanup
	a.started = time.Now()

	logger.Debug("starting quickchat", "command", cmd.Name(), "workDir", cfg.WorkDir, "dryRun", cfg.DryRun)
	return nil
}

func (a *app) close() error {
	if a.logger != nil {
		attrs := append(a.collector.Snapshot().LogAttrs(), "duration", time.Since(a.started))
		a.logger.Debug("quickchat finished", attrs...)
	}
	if a.cleanup == nil {
		return nil
	}
	return a.cleanup()
}

// relay forwards events to a sink list that can grow after the engine is built.
type relay struct {
	sinks stats.Fanout
}

func (r *relay) Emit(evt stats.Event) {
	r.sinks.Emit(evt)
}

func (r *relay) attach(s stats.Sink) {
	r.sinks = append(r.sinks, s)
}
