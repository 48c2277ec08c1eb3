package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rl1809/shopping-list/internal/adapter/handler"
)

// TokenOptions holds flags for the token command.
type TokenOptions struct {
	*RootOptions
	User string
	TTL  time.Duration
}

func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a user",
		Long:  `Issue a bearer token signed with auth.jwt_secret from the configuration.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.User, "user", "", "user named by the token")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 30*24*time.Hour, "token lifetime")
	cmd.MarkFlagRequired("user")

	return cmd
}

func runToken(opts *TokenOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}

	token, err := handler.GenerateToken(cfg.Auth.JWTSecret, opts.User, opts.TTL)
	if err != nil {
		return WrapExitError(ExitCommandError, "issue token", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
