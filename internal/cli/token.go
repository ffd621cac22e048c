package cli

import (
	"time"

	goVault "github.com/MrEthical07/goVault"
	"github.com/spf13/cobra"
)

func newTokenCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue and verify access tokens",
		Long: `Issue and verify tokens signed with the configured secrets. Refresh records
live in the process that issued them, so only access tokens can be verified by a
later invocation.`,
	}
	cmd.AddCommand(newTokenIssueCmd(cfg), newTokenVerifyCmd(cfg))
	return cmd
}

func newTokenIssueCmd(cfg *Config) *cobra.Command {
	var device string

	cmd := &cobra.Command{
		Use:   "issue <principal-id>",
		Short: "Issue an access/refresh token pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := cfg.BuildEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			pair, err := engine.IssuePair(cmd.Context(), args[0], goVault.SessionMeta{DeviceID: device})
			if err != nil {
				return err
			}
			return NewPrinter(cfg.OutputFormat, cmd.OutOrStdout()).PrintFields(map[string]any{
				"access_token":       pair.Access,
				"access_expires_at":  pair.AccessExpiresAt.UTC().Format(time.RFC3339),
				"refresh_token":      pair.Refresh,
				"refresh_expires_at": pair.RefreshExpiresAt.UTC().Format(time.RFC3339),
				"token_id":           pair.TokenID,
			})
		},
	}
	cmd.Flags().StringVar(&device, "device", "", "device identifier recorded on the refresh record")
	return cmd
}

func newTokenVerifyCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <access-token>",
		Short: "Verify an access token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := cfg.BuildEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			claims, err := engine.VerifyAccess(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return NewPrinter(cfg.OutputFormat, cmd.OutOrStdout()).PrintFields(map[string]any{
				"subject":    claims.Subject,
				"issuer":     claims.Issuer,
				"expires_at": claims.ExpiresAt.UTC().Format(time.RFC3339),
			})
		},
	}
}
