package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func NewDumpCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print items, the shopping list and store orders as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(opts, cmd)
		},
	}
}

func runDump(opts *RootOptions, cmd *cobra.Command) error {
	a, err := opts.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	snapshot, err := a.Query.Snapshot(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "read snapshot", err)
	}

	data, err := json.MarshalIndent(snapshot, "", "    ")
	if err != nil {
		return WrapExitError(ExitFailure, "encode snapshot", err)
	}

	out := cmd.OutOrStdout()
	out.Write(data)
	out.Write([]byte("\n"))
	return nil
}
