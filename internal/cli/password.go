package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	goVault "github.com/MrEthical07/goVault"
	"github.com/MrEthical07/goVault/password"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newHashCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "hash [password|-]",
		Short: "Hash a password with argon2id",
		Long: `Hash a password with the configured argon2id parameters and print the PHC
encoding. With "-" or no argument the password is read from the first line of stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordArg(cmd, args, 0)
			if err != nil {
				return err
			}

			hasher, err := password.NewArgon2(cfg.PasswordConfig())
			if err != nil {
				return fmt.Errorf("failed to create hasher: %w", err)
			}
			encoded, err := hasher.HashContext(cmd.Context(), pw)
			if err != nil {
				return err
			}

			cfg.Logger().Debug("password hashed", zap.String("algorithm", string(password.AlgorithmOf(encoded))))
			return NewPrinter(cfg.OutputFormat, cmd.OutOrStdout()).PrintValue(encoded)
		},
	}
}

func newVerifyCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <encoded-hash> [password|-]",
		Short: "Verify a password against an argon2 or bcrypt hash",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			encoded := args[0]
			pw, err := passwordArg(cmd, args, 1)
			if err != nil {
				return err
			}

			hasher, err := password.NewArgon2(cfg.PasswordConfig())
			if err != nil {
				return fmt.Errorf("failed to create hasher: %w", err)
			}

			alg := password.AlgorithmOf(encoded)
			var ok, rehash bool
			switch alg {
			case password.AlgorithmArgon2id, password.AlgorithmArgon2i, password.AlgorithmArgon2d:
				ok, err = hasher.VerifyContext(cmd.Context(), pw, encoded)
				if err != nil {
					return err
				}
				rehash = ok && hasher.NeedsRehash(encoded)
			case password.AlgorithmBcrypt:
				ok = password.Bcrypt{}.Verify(pw, encoded)
				rehash = ok
			default:
				return fmt.Errorf("%w: unrecognised hash encoding", goVault.ErrInvalidInput)
			}

			if err := NewPrinter(cfg.OutputFormat, cmd.OutOrStdout()).PrintFields(map[string]any{
				"algorithm":    string(alg),
				"match":        ok,
				"needs_rehash": rehash,
			}); err != nil {
				return err
			}
			if !ok {
				return goVault.ErrVerificationFailed
			}
			return nil
		},
	}
}

// passwordArg returns args[i], or the first stdin line when it is absent or "-".
func passwordArg(cmd *cobra.Command, args []string, i int) (string, error) {
	if len(args) > i && args[i] != "-" {
		return args[i], nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("%w: empty password", goVault.ErrInvalidInput)
	}
	return line, nil
}
