package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rl1809/shopping-list/internal/core/service"
)

func NewImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <storename> <itemlist>",
		Short: "Replace a store's item order from a list file",
		Long: `Replace the item order of a store with the order of an item list.

The item list names one item per line, in the order the items appear in the
store. Items after a line of '=' characters are known to the store but have no
position. Unknown items and stores are created.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, cmd, args[0], args[1])
		},
	}
}

func runImport(opts *RootOptions, cmd *cobra.Command, storeName, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "open item list", err)
	}
	defer f.Close()

	entries, warnings, err := service.ParseOrderList(f)
	if err != nil {
		return WrapExitError(ExitCommandError, "read item list", err)
	}
	for _, w := range warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
	}

	a, err := opts.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	storeID, err := a.Catalog.ImportStoreOrder(cmd.Context(), storeName, entries)
	if err != nil {
		return WrapExitError(ExitFailure, "import item list", err)
	}

	slog.Debug("imported item list", "store", storeName, "store_id", storeID, "items", len(entries))
	return nil
}
