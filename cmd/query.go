package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dhcgn/quickchat/engine"
	"github.com/dhcgn/quickchat/filter"
	"github.com/dhcgn/quickchat/progress"
	"github.com/dhcgn/quickchat/stats"
)

// filterFlags holds the record filter options shared by list and export.
type filterFlags struct {
	opts filter.Options
}

func (f *filterFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringArrayVar(&f.opts.IncludeRecipient, "include-recipient", nil, "Regex allow-list applied to recipients (mutually exclusive with exclude flags)")
	flags.StringArrayVar(&f.opts.IncludePayload, "include-payload", nil, "Regex allow-list applied to message text (mutually exclusive with exclude flags)")
	flags.StringArrayVar(&f.opts.ExcludeRecipient, "exclude-recipient", nil, "Regex block-list applied to recipients (mutually exclusive with include flags)")
	flags.StringArrayVar(&f.opts.ExcludePayload, "exclude-payload", nil, "Regex block-list applied to message text (mutually exclusive with include flags)")
	flags.StringSliceVar(&f.opts.Statuses, "status", nil, "Only messages with these statuses: sent, stored, disregarded")
}

func (f *filterFlags) build() (*filter.Filter, error) {
	flt, err := filter.New(f.opts)
	if err != nil {
		return nil, fmt.Errorf("create filter: %w", err)
	}
	return flt, nil
}

func newListCmd(a *app) *cobra.Command {
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known messages as a table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flt, err := ff.build()
			if err != nil {
				return err
			}
			return progress.PrintRecords(flt.Apply(a.engine.Records()))
		},
	}
	ff.register(cmd)
	return cmd
}

func newFindCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Search messages by id or recipient",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "id <message id>",
			Short: "Find a sent or stored message by its id",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprintln(cmd.OutOrStdout(), a.engine.FindByID(firstArg(args)))
				return nil
			},
		},
		&cobra.Command{
			Use:   "recipient <number>",
			Short: "List every sent or stored message for a recipient",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprint(cmd.OutOrStdout(), withNewline(a.engine.FindByRecipient(firstArg(args))))
				return nil
			},
		},
	)
	return cmd
}

func newReportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the sent messages report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), withNewline(a.engine.SentReport()))
			return nil
		},
	}
}

func newLongestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "longest",
		Short: "Print the longest sent or stored message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			longest := a.engine.LongestMessage()
			if longest == engine.MsgNoLongest {
				fmt.Fprintln(cmd.OutOrStdout(), longest)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Longest Sent Message:\n\"%s\"\n", longest)
			return nil
		},
	}
}

func newSendersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "senders",
		Short: "Print sender and recipient of every sent message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), withNewline(a.engine.AllSentInfo()))
			return nil
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	var (
		topN      int
		reportDir string
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show collection counts and the most messaged recipients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv := a.engine.Inventory()
			a.logger.Debug("inventory", inv.LogAttrs()...)

			if err := progress.PrintInventory(inv, topN); err != nil {
				return err
			}
			if reportDir == "" {
				return nil
			}

			path, err := saveCSVReport(inv.Recipients, reportDir)
			if err != nil {
				return fmt.Errorf("error saving CSV report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nReport saved to: %s\n", path)
			return nil
		},
	}
	cmd.Flags().IntVarP(&topN, "top", "t", 10, "Number of top recipients to display")
	cmd.Flags().StringVarP(&reportDir, "output", "o", "", "Write the recipient counts as CSV into this directory")
	return cmd
}

// saveCSVReport writes every recipient with its message count, most frequent
// first, and returns the file path.
func saveCSVReport(counts map[string]int, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, "report_recipients.csv")
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"Recipient", "Count"}); err != nil {
		return "", err
	}
	for _, c := range stats.Top(counts, -1) {
		if err := writer.Write([]string{c.Key, strconv.Itoa(c.Value)}); err != nil {
			return "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return path, file.Close()
}

func withNewline(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\n' {
		return s
	}
	return s + "\n"
}
