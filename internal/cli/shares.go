package cli

import (
	"fmt"

	"github.com/MrEthical07/goVault/shamir"
	"github.com/spf13/cobra"
)

func newSplitCmd(cfg *Config) *cobra.Command {
	var (
		n         int
		k         int
		guardians []string
	)

	cmd := &cobra.Command{
		Use:   "split [secret|-]",
		Short: "Split a secret into Shamir shares",
		Long: `Split a secret into n shares over GF(256), any k of which reconstruct it.
With --guardian the shares are assigned to named guardians in order and n is the
number of guardians; k then defaults to 60% of them, rounded up.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := passwordArg(cmd, args, 0)
			if err != nil {
				return err
			}
			printer := NewPrinter(cfg.OutputFormat, cmd.OutOrStdout())

			if len(guardians) > 0 {
				gs := make([]shamir.Guardian, len(guardians))
				for i, name := range guardians {
					gs[i] = shamir.Guardian{Name: name}
				}
				threshold := 0
				if cmd.Flags().Changed("threshold") {
					threshold = k
				}
				recovery, err := shamir.CreateSocial([]byte(secret), gs, threshold)
				if err != nil {
					return err
				}
				printVerbose(cfg, "social recovery %s: %d-of-%d (%s)", recovery.ID, recovery.Threshold, recovery.TotalShares, recovery.SecurityLevel)
				return printer.PrintDocument(recovery)
			}

			shares, err := shamir.Split([]byte(secret), n, k)
			if err != nil {
				return err
			}
			printVerbose(cfg, "split into %d shares, threshold %d", n, k)
			return printer.PrintDocument(shares)
		},
	}

	cmd.Flags().IntVarP(&n, "shares", "n", 5, "number of shares")
	cmd.Flags().IntVarP(&k, "threshold", "k", 3, "shares required to reconstruct")
	cmd.Flags().StringArrayVar(&guardians, "guardian", nil, "guardian name (repeatable)")
	return cmd
}

func newCombineCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "combine <share-payload>...",
		Short: "Reconstruct a secret from share payloads",
		Long: `Reconstruct a secret from at least threshold share payloads. A set below
the threshold yields unrelated bytes; it is not detected.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := shamir.Combine(args)
			if err != nil {
				return err
			}
			printVerbose(cfg, "combined %d shares", len(args))
			return NewPrinter(cfg.OutputFormat, cmd.OutOrStdout()).PrintValue(string(secret))
		},
	}
}

// printVerbose logs a debug line when --verbose is set.
func printVerbose(cfg *Config, format string, args ...any) {
	cfg.Logger().Debug(fmt.Sprintf(format, args...))
}
