package cli

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rl1809/shopping-list/internal/core/domain"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	User          string
	TransactionID string
}

func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply <item> <delta>",
		Short: "Record a change to the count of an item",
		Long: `Record a change to the count of an item, creating the item if needed.

Passing the same --txid twice applies the change once. Negative deltas must
follow --, for example: slistctl apply --user joe -- Milk -1`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, cmd, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&opts.User, "user", "", "submitting user")
	cmd.Flags().StringVar(&opts.TransactionID, "txid", "", "transaction id (default: a new random UUID)")
	cmd.MarkFlagRequired("user")

	return cmd
}

func runApply(opts *ApplyOptions, cmd *cobra.Command, item, deltaArg string) error {
	delta, err := strconv.Atoi(deltaArg)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid delta", err)
	}

	txID := opts.TransactionID
	if txID == "" {
		txID = uuid.NewString()
	}

	a, err := opts.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	itemID, err := a.Catalog.EnsureItem(cmd.Context(), item)
	if err != nil {
		return WrapExitError(ExitFailure, "create item", err)
	}

	outcome, err := a.Ledger.Apply(cmd.Context(), domain.TransactionRequest{
		TransactionID:  txID,
		ItemID:         itemID,
		Delta:          delta,
		SubmittingUser: opts.User,
	})
	if err != nil {
		return WrapExitError(ExitFailure, "apply transaction", err)
	}

	out := cmd.OutOrStdout()
	if outcome.Status == domain.OutcomeApplied {
		fmt.Fprintf(out, "Transaction %s applied: %s count is %d\n", outcome.TransactionID, item, outcome.Count)
	} else {
		fmt.Fprintf(out, "Transaction %s discarded: %s\n", outcome.TransactionID, outcome.Reason)
	}
	return nil
}
