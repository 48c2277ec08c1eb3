package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func NewHistoryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <item>",
		Short: "Print the transactions recorded for an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd, args[0])
		},
	}
}

func runHistory(opts *RootOptions, cmd *cobra.Command, item string) error {
	a, err := opts.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	items, err := a.Catalog.ListItems(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "list items", err)
	}

	var itemID int64
	for id, description := range items {
		if description == item {
			itemID = id
			break
		}
	}
	if itemID == 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("unknown item %q", item))
	}

	history, err := a.Ledger.History(cmd.Context(), itemID)
	if err != nil {
		return WrapExitError(ExitFailure, "read history", err)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROCESSED\tDELTA\tUSER\tTRANSACTION")
	for _, h := range history {
		fmt.Fprintf(tw, "%s\t%+d\t%s\t%s\n", h.ProcessedAtUTC, h.Delta, h.SubmittingUser, h.TransactionID)
	}
	return tw.Flush()
}
