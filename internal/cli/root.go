package cli

import (
	"github.com/spf13/cobra"
)

// Execute runs the govault command tree against os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the command tree. Every call returns an independent tree
// with its own configuration.
func NewRootCommand() *cobra.Command {
	cfg := NewConfig()

	rootCmd := &cobra.Command{
		Use:   "govault",
		Short: "goVault CLI - credential and secret-protection toolkit",
		Long: `govault exposes the goVault engine from the command line:

  - hash, verify:        argon2id password hashing and verification
  - split, combine:      Shamir secret sharing over GF(256)
  - commit, open, prove: Poseidon commitments and balance proofs
  - token:               access/refresh token issuance and verification

Settings are read from flags, GOVAULT_* environment variables, an optional
.env file and an optional YAML/TOML/JSON config file, in that precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.Load(cmd.Flags())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.ConfigFile, "config", "", "config file (yaml, toml or json)")
	flags.StringVar(&cfg.EnvFile, "env-file", ".env", "dotenv file loaded before reading GOVAULT_* variables")
	flags.StringVarP(&cfg.OutputFormat, "output", "o", "text", "output format (text, json)")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "verbose output")
	flags.String("access-secret", "", "access token signing secret (GOVAULT_TOKEN_ACCESS_SECRET)")
	flags.String("refresh-secret", "", "refresh token signing secret (GOVAULT_TOKEN_REFRESH_SECRET)")

	rootCmd.AddCommand(
		newVersionCmd(cfg),
		newHashCmd(cfg),
		newVerifyCmd(cfg),
		newSplitCmd(cfg),
		newCombineCmd(cfg),
		newCommitCmd(cfg),
		newOpenCmd(cfg),
		newProveCmd(cfg),
		newVerifyProofCmd(cfg),
		newPoseidonCmd(cfg),
		newTokenCmd(cfg),
	)
	return rootCmd
}
