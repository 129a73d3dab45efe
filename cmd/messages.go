package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dhcgn/quickchat/engine"
)

var errResetNotConfirmed = errors.New("reset deletes every message file; pass --yes to confirm")

func newSendCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "send <recipient> <message>",
		Short: "Send a message and store it",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			rec := a.engine.NewRecord(args[0], strings.Join(args[1:], " "))
			fmt.Fprintln(out, rec.IDNotification())

			result := a.engine.Send(rec)
			fmt.Fprintln(out, result)
			if result != engine.MsgSent {
				return nil
			}
			fmt.Fprintln(out, a.engine.Store(rec))
			fmt.Fprintln(out, "Message hash: "+rec.Hash)
			return nil
		},
	}
}

func newDraftCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "draft <recipient> <message>",
		Short: "Store a message without sending it",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			rec := a.engine.NewRecord(args[0], strings.Join(args[1:], " "))
			fmt.Fprintln(out, rec.IDNotification())
			fmt.Fprintln(out, a.engine.Store(rec))
			fmt.Fprintln(out, "Message hash: "+rec.Hash)
			return nil
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <hash>",
		Short: "Delete a message by its hash",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), a.engine.DeleteByHash(firstArg(args)))
			return nil
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every message file and clear all state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errResetNotConfirmed
			}
			if err := a.engine.Reset(); err != nil {
				return fmt.Errorf("reset: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All messages deleted.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion of every message file")
	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
