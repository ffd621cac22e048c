package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"

	goVault "github.com/MrEthical07/goVault"
	"github.com/MrEthical07/goVault/commitment"
	"github.com/spf13/cobra"
)

// commitmentEngine returns an initialised engine honouring commitment.max_age.
func commitmentEngine(cmd *cobra.Command, cfg *Config) (*commitment.Engine, error) {
	engine := commitment.New(commitment.Options{MaxAge: cfg.EngineConfig().Commitment.MaxAge})
	if err := engine.Init(cmd.Context()); err != nil {
		return nil, fmt.Errorf("failed to initialise commitments: %w", err)
	}
	return engine, nil
}

func parseElement(name, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a decimal integer", goVault.ErrInvalidInput, name)
	}
	return v, nil
}

func newCommitCmd(cfg *Config) *cobra.Command {
	var blinding string

	cmd := &cobra.Command{
		Use:   "commit <amount>",
		Short: "Commit to an amount with Poseidon",
		Long: `Print Poseidon(amount, blinding) and the blinding factor. A fresh blinding is
drawn unless --blinding is given. Keep the blinding; it is required to open.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseElement("amount", args[0])
			if err != nil {
				return err
			}
			var r *big.Int
			if blinding != "" {
				if r, err = parseElement("blinding", blinding); err != nil {
					return err
				}
			}

			engine, err := commitmentEngine(cmd, cfg)
			if err != nil {
				return err
			}
			c, err := engine.Commit(amount, r)
			if err != nil {
				return err
			}
			return NewPrinter(cfg.OutputFormat, cmd.OutOrStdout()).PrintFields(map[string]any{
				"commitment": c.Commitment.String(),
				"blinding":   c.Blinding.String(),
			})
		},
	}
	cmd.Flags().StringVar(&blinding, "blinding", "", "decimal blinding factor (default: random)")
	return cmd
}

func newOpenCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "open <commitment> <amount> <blinding>",
		Short: "Check that a commitment hides an amount",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := make([]*big.Int, 3)
			for i, name := range []string{"commitment", "amount", "blinding"} {
				v, err := parseElement(name, args[i])
				if err != nil {
					return err
				}
				values[i] = v
			}

			engine, err := commitmentEngine(cmd, cfg)
			if err != nil {
				return err
			}
			ok, err := engine.Open(values[0], values[1], values[2])
			if err != nil {
				return err
			}
			if err := NewPrinter(cfg.OutputFormat, cmd.OutOrStdout()).PrintFields(map[string]any{"valid": ok}); err != nil {
				return err
			}
			if !ok {
				return goVault.ErrVerificationFailed
			}
			return nil
		},
	}
}

func newProveCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "prove <balance> <threshold>",
		Short: "Produce a balance-above-threshold proof",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			balance, err := parseElement("balance", args[0])
			if err != nil {
				return err
			}
			threshold, err := parseElement("threshold", args[1])
			if err != nil {
				return err
			}

			engine, err := commitmentEngine(cmd, cfg)
			if err != nil {
				return err
			}
			proof, err := engine.ProveAboveThreshold(balance, threshold)
			if err != nil {
				return err
			}
			return NewPrinter(cfg.OutputFormat, cmd.OutOrStdout()).PrintDocument(proof)
		},
	}
}

func newVerifyProofCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-proof [file|-]",
		Short: "Verify a balance proof produced by prove",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open proof: %w", err)
				}
				defer f.Close()
				in = f
			}

			var proof commitment.BalanceProof
			if err := json.NewDecoder(in).Decode(&proof); err != nil {
				return fmt.Errorf("%w: decode proof: %v", goVault.ErrInvalidInput, err)
			}

			engine, err := commitmentEngine(cmd, cfg)
			if err != nil {
				return err
			}
			ok := engine.VerifyBalanceProof(&proof)
			if err := NewPrinter(cfg.OutputFormat, cmd.OutOrStdout()).PrintFields(map[string]any{"valid": ok}); err != nil {
				return err
			}
			if !ok {
				return goVault.ErrVerificationFailed
			}
			return nil
		},
	}
}

func newPoseidonCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "poseidon <element>...",
		Short: "Poseidon-hash 1 to 16 field elements",
		Args:  cobra.RangeArgs(1, commitment.MaxInputs),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs := make([]*big.Int, len(args))
			for i, a := range args {
				v, err := parseElement(fmt.Sprintf("input %d", i), a)
				if err != nil {
					return err
				}
				inputs[i] = v
			}

			engine, err := commitmentEngine(cmd, cfg)
			if err != nil {
				return err
			}
			digest, err := engine.PoseidonHash(inputs)
			if err != nil {
				return err
			}
			return NewPrinter(cfg.OutputFormat, cmd.OutOrStdout()).PrintValue(digest.String())
		},
	}
}
