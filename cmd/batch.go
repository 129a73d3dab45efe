package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dhcgn/quickchat/mbox"
	"github.com/dhcgn/quickchat/progress"
	"github.com/dhcgn/quickchat/runner"
)

func newBatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "batch <file.yaml>",
		Short: "Process a YAML batch of messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := runner.LoadBatch(args[0])
			if err != nil {
				return err
			}
			return a.runBatch(cmd, b.Entries)
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	var (
		action string
		ff     filterFlags
	)
	cmd := &cobra.Command{
		Use:   "import <file.mbox>",
		Short: "Process every message of an mbox archive as a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := runner.ParseAction(action)
			if err != nil {
				return err
			}
			flt, err := ff.build()
			if err != nil {
				return err
			}

			total, err := mbox.CountMessages(args[0])
			if err != nil {
				return err
			}
			a.logger.Info("importing mbox", "path", args[0], "messages", total)

			entries, err := mbox.ImportFile(args[0], mbox.ImportOptions{
				Action: act,
				Filter: flt,
				Sink:   a.events,
				Logger: a.logger,
			})
			if err != nil {
				return err
			}
			return a.runBatch(cmd, entries)
		},
	}
	cmd.Flags().StringVar(&action, "action", "", "Action for every imported message: send, store or disregard (default: from X-Quickchat-Status)")
	ff.register(cmd)
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "export <file.mbox>",
		Short: "Export messages to an mbox archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flt, err := ff.build()
			if err != nil {
				return err
			}

			n, err := mbox.ExportFile(args[0], flt.Apply(a.engine.Records()), a.engine.DisplayName())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d messages to %s\n", n, args[0])
			return nil
		},
	}
	ff.register(cmd)
	return cmd
}

func (a *app) runBatch(cmd *cobra.Command, entries []runner.Entry) error {
	bar := progress.New(len(entries), a.cfg.LogLevel)
	a.events.attach(bar)
	r, err := runner.New(a.engine, a.logger, a.events)
	if err != nil {
		return err
	}

	started := time.Now()
	res, err := r.Run(cmd.Context(), entries)
	bar.Stop()

	fmt.Fprintln(cmd.OutOrStdout(), res.Summary)
	progress.PrintSummary(a.collector.Snapshot(), time.Since(started))
	return err
}
