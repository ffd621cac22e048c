package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	goVault "github.com/MrEthical07/goVault"
	"github.com/MrEthical07/goVault/shamir"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// run executes a fresh command tree and returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func fastArgon(t *testing.T) {
	t.Helper()
	t.Setenv("GOVAULT_PASSWORD_MEMORY", "8192")
	t.Setenv("GOVAULT_PASSWORD_TIME", "1")
	t.Setenv("GOVAULT_PASSWORD_PARALLELISM", "1")
}

func decodeFields(t *testing.T, out string) map[string]any {
	t.Helper()
	var fields map[string]any
	if err := json.Unmarshal([]byte(out), &fields); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	return fields
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()
	if cfg.OutputFormat != "text" {
		t.Errorf("OutputFormat = %v, want text", cfg.OutputFormat)
	}
	if cfg.EnvFile != ".env" {
		t.Errorf("EnvFile = %v, want .env", cfg.EnvFile)
	}
	if cfg.Verbose {
		t.Error("Verbose should be false by default")
	}
}

func TestEngineConfigFromEnvironment(t *testing.T) {
	fastArgon(t)
	t.Setenv("GOVAULT_TOKEN_ACCESS_SECRET", testSecret)
	t.Setenv("GOVAULT_TOKEN_ACCESS_TTL", "5m")
	t.Setenv("GOVAULT_TOKEN_ROTATE_REFRESH", "true")

	cfg := NewConfig()
	cfg.EnvFile = ""
	if err := cfg.Load(nil); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ec := cfg.EngineConfig()
	if string(ec.Token.AccessSecret) != testSecret {
		t.Fatalf("access secret not read from environment")
	}
	if ec.Token.AccessTTL.String() != "5m0s" || !ec.Token.RotateRefresh {
		t.Fatalf("unexpected token config: ttl=%s rotate=%v", ec.Token.AccessTTL, ec.Token.RotateRefresh)
	}
	if ec.Password.Memory != 8192 || ec.Password.Parallelism != 1 {
		t.Fatalf("unexpected password config: %+v", ec.Password)
	}
	if err := ec.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestEngineConfigFromOptionAliases(t *testing.T) {
	t.Setenv("ACCESS_SECRET", testSecret)
	t.Setenv("ARGON2_MEM", "16384")
	t.Setenv("SMS_TTL", "2m")
	t.Setenv("BACKUP_CODE_COUNT", "12")
	t.Setenv("REFRESH_TTL", "48h")
	t.Setenv("GOVAULT_TOKEN_REFRESH_TTL", "72h")

	cfg := NewConfig()
	cfg.EnvFile = ""
	if err := cfg.Load(nil); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ec := cfg.EngineConfig()
	if string(ec.Token.AccessSecret) != testSecret {
		t.Fatalf("access secret not read from ACCESS_SECRET")
	}
	if ec.Password.Memory != 16384 {
		t.Fatalf("Memory = %d, want 16384", ec.Password.Memory)
	}
	if ec.TwoFactor.SMSTTL.String() != "2m0s" || ec.TwoFactor.BackupCodeCount != 12 {
		t.Fatalf("unexpected two-factor config: %+v", ec.TwoFactor)
	}
	if ec.Token.RefreshTTL.String() != "72h0m0s" {
		t.Fatalf("RefreshTTL = %s, prefixed variable should win", ec.Token.RefreshTTL)
	}
}

func TestHashAndVerify(t *testing.T) {
	fastArgon(t)

	out, err := run(t, "", "hash", "correct-horse-battery")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	encoded := strings.TrimSpace(out)
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected encoding %q", encoded)
	}

	out, err = run(t, "", "verify", encoded, "correct-horse-battery")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !strings.Contains(out, "match: true") || !strings.Contains(out, "needs_rehash: false") {
		t.Fatalf("unexpected verify output %q", out)
	}

	out, err = run(t, "", "verify", encoded, "wrong-horse-battery")
	if !errors.Is(err, goVault.ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
	if !strings.Contains(out, "match: false") {
		t.Fatalf("unexpected verify output %q", out)
	}
}

func TestHashReadsStdin(t *testing.T) {
	fastArgon(t)

	out, err := run(t, "from-stdin-pass\n", "hash", "-")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	encoded := strings.TrimSpace(out)

	if _, err := run(t, "from-stdin-pass\n", "verify", encoded); err != nil {
		t.Fatalf("verify from stdin: %v", err)
	}
	if _, err := run(t, "", "hash"); !errors.Is(err, goVault.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty stdin, got %v", err)
	}
}

func TestVerifyRejectsUnknownEncoding(t *testing.T) {
	fastArgon(t)
	if _, err := run(t, "", "verify", "plaintext", "whatever"); !errors.Is(err, goVault.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSplitAndCombine(t *testing.T) {
	out, err := run(t, "", "split", "-n", "3", "-k", "2", "launch codes")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	var shares []shamir.Share
	if err := json.Unmarshal([]byte(out), &shares); err != nil {
		t.Fatalf("decode shares: %v", err)
	}
	if len(shares) != 3 || shares[0].Threshold != 2 {
		t.Fatalf("unexpected shares %+v", shares)
	}

	out, err = run(t, "", "combine", shares[2].Payload, shares[0].Payload)
	if err != nil {
		t.Fatalf("combine: %v", err)
	}
	if strings.TrimSpace(out) != "launch codes" {
		t.Fatalf("combine = %q", out)
	}
}

func TestSplitRejectsBadThreshold(t *testing.T) {
	if _, err := run(t, "", "split", "-n", "3", "-k", "4", "secret"); !errors.Is(err, goVault.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSplitToGuardians(t *testing.T) {
	out, err := run(t, "", "split",
		"--guardian", "ana", "--guardian", "ben", "--guardian", "cy",
		"--guardian", "dee", "--guardian", "eli", "vault key")
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	var recovery shamir.SocialRecovery
	if err := json.Unmarshal([]byte(out), &recovery); err != nil {
		t.Fatalf("decode recovery: %v", err)
	}
	if recovery.Threshold != 3 || recovery.TotalShares != 5 || recovery.SecurityLevel != shamir.SecurityMedium {
		t.Fatalf("unexpected recovery %+v", recovery)
	}
	if recovery.Assignments[1].Guardian.Name != "ben" {
		t.Fatalf("guardians out of order: %+v", recovery.Assignments)
	}
}

func TestCommitAndOpen(t *testing.T) {
	out, err := run(t, "", "-o", "json", "commit", "1000", "--blinding", "42")
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	fields := decodeFields(t, out)
	c, _ := fields["commitment"].(string)
	if fields["blinding"] != "42" || c == "" {
		t.Fatalf("unexpected commit output %v", fields)
	}

	out, err = run(t, "", "open", c, "1000", "42")
	if err != nil || !strings.Contains(out, "valid: true") {
		t.Fatalf("open: %q %v", out, err)
	}

	if _, err := run(t, "", "open", c, "1001", "42"); !errors.Is(err, goVault.ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed for wrong amount, got %v", err)
	}
	if _, err := run(t, "", "commit", "ten"); !errors.Is(err, goVault.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for non-decimal amount, got %v", err)
	}
}

func TestProveAndVerifyProof(t *testing.T) {
	proof, err := run(t, "", "prove", "1500", "1000")
	if err != nil {
		t.Fatalf("prove: %v", err)
	}

	out, err := run(t, proof, "verify-proof", "-")
	if err != nil || !strings.Contains(out, "valid: true") {
		t.Fatalf("verify-proof: %q %v", out, err)
	}

	path := filepath.Join(t.TempDir(), "proof.json")
	if err := os.WriteFile(path, []byte(proof), 0o600); err != nil {
		t.Fatalf("write proof: %v", err)
	}
	if _, err := run(t, "", "verify-proof", path); err != nil {
		t.Fatalf("verify-proof from file: %v", err)
	}

	if _, err := run(t, "", "prove", "10", "1000"); !errors.Is(err, goVault.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput below threshold, got %v", err)
	}
}

func TestPoseidonKnownAnswer(t *testing.T) {
	out, err := run(t, "", "poseidon", "1", "2")
	if err != nil {
		t.Fatalf("poseidon: %v", err)
	}
	want := "7853200120776062878684798364095072458815029376092732009249414926327459813530"
	if strings.TrimSpace(out) != want {
		t.Fatalf("poseidon(1, 2) = %q, want %s", out, want)
	}
}

func TestTokenIssueAndVerify(t *testing.T) {
	fastArgon(t)
	t.Setenv("GOVAULT_TOKEN_ACCESS_SECRET", testSecret)

	out, err := run(t, "", "-o", "json", "token", "issue", "user-7", "--device", "laptop")
	if err != nil {
		t.Fatalf("token issue: %v", err)
	}
	fields := decodeFields(t, out)
	access, _ := fields["access_token"].(string)
	if access == "" || fields["refresh_token"] == "" {
		t.Fatalf("unexpected issue output %v", fields)
	}
	if id, _ := fields["token_id"].(string); len(id) != 32 {
		t.Fatalf("token_id = %q, want 32 hex characters", id)
	}

	out, err = run(t, "", "token", "verify", access)
	if err != nil {
		t.Fatalf("token verify: %v", err)
	}
	if !strings.Contains(out, "subject: user-7") || !strings.Contains(out, "issuer: govault") {
		t.Fatalf("unexpected verify output %q", out)
	}

	t.Setenv("GOVAULT_TOKEN_ACCESS_SECRET", strings.Repeat("z", 32))
	if _, err := run(t, "", "token", "verify", access); !errors.Is(err, goVault.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid under another secret, got %v", err)
	}
}

func TestTokenRequiresSecret(t *testing.T) {
	fastArgon(t)
	t.Setenv("GOVAULT_TOKEN_ACCESS_SECRET", "")
	if _, err := run(t, "", "token", "issue", "user-7"); err == nil {
		t.Fatal("expected build failure without an access secret")
	}
}

func TestAccessSecretFlag(t *testing.T) {
	fastArgon(t)
	t.Setenv("GOVAULT_TOKEN_ACCESS_SECRET", "")
	if _, err := run(t, "", "--access-secret", testSecret, "token", "issue", "user-7"); err != nil {
		t.Fatalf("token issue with flag secret: %v", err)
	}
}

func TestConfigFile(t *testing.T) {
	fastArgon(t)
	t.Setenv("GOVAULT_TOKEN_ACCESS_SECRET", testSecret)

	path := filepath.Join(t.TempDir(), "govault.yaml")
	if err := os.WriteFile(path, []byte("token:\n  issuer: vault-from-file\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := run(t, "", "--config", path, "-o", "json", "token", "issue", "user-7")
	if err != nil {
		t.Fatalf("token issue: %v", err)
	}
	access, _ := decodeFields(t, out)["access_token"].(string)

	out, err = run(t, "", "--config", path, "token", "verify", access)
	if err != nil || !strings.Contains(out, "issuer: vault-from-file") {
		t.Fatalf("verify: %q %v", out, err)
	}
}

func TestEnvFile(t *testing.T) {
	fastArgon(t)
	const key = "GOVAULT_TOKEN_ACCESS_SECRET"
	prev, had := os.LookupEnv(key)
	_ = os.Unsetenv(key)
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, prev)
		} else {
			_ = os.Unsetenv(key)
		}
	})

	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte(key+"="+testSecret+"\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	if _, err := run(t, "", "--env-file", path, "token", "issue", "user-7"); err != nil {
		t.Fatalf("token issue with env file: %v", err)
	}

	missing := filepath.Join(t.TempDir(), "missing.env")
	if _, err := run(t, "", "--env-file", missing, "version"); err == nil {
		t.Fatal("expected an error for an explicit missing env file")
	}
}

func TestVersionJSON(t *testing.T) {
	out, err := run(t, "", "-o", "json", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if decodeFields(t, out)["version"] != Version {
		t.Fatalf("unexpected version output %q", out)
	}
}
