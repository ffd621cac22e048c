package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	goVault "github.com/MrEthical07/goVault"
	"github.com/MrEthical07/goVault/password"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EnvPrefix prefixes every environment variable the CLI reads. Nested keys use
// underscores: token.access_ttl is GOVAULT_TOKEN_ACCESS_TTL.
const EnvPrefix = "GOVAULT"

// envAliases are the unprefixed option names also accepted for common keys. The
// prefixed form wins when both are set.
var envAliases = map[string]string{
	"token.access_ttl":            "ACCESS_TTL",
	"token.refresh_ttl":           "REFRESH_TTL",
	"token.max_sessions":          "MAX_CONCURRENT_SESSIONS",
	"token.access_secret":         "ACCESS_SECRET",
	"token.refresh_secret":        "REFRESH_SECRET",
	"token.issuer":                "ISSUER",
	"token.audience":              "AUDIENCE",
	"token.rotate_refresh":        "REFRESH_ROTATION",
	"password.memory":             "ARGON2_MEM",
	"password.time":               "ARGON2_TIME",
	"password.parallelism":        "ARGON2_PARALLEL",
	"password.key_length":         "ARGON2_TAG_LEN",
	"twofactor.backup_code_count": "BACKUP_CODE_COUNT",
	"twofactor.sms_max_attempts":  "SMS_MAX_ATTEMPTS",
	"twofactor.sms_ttl":           "SMS_TTL",
	"commitment.max_age":          "COMMITMENT_MAX_AGE",
}

// Config holds global CLI configuration
type Config struct {
	// ConfigFile is an optional viper-readable file.
	ConfigFile string

	// EnvFile is loaded into the process environment before viper reads it.
	// A missing file is ignored unless the flag was set explicitly.
	EnvFile string

	// OutputFormat controls output formatting (json, text)
	OutputFormat string

	// Verbose enables development logging to stderr
	Verbose bool

	v      *viper.Viper
	logger *zap.Logger
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		EnvFile:      ".env",
		OutputFormat: "text",
	}
}

// Load resolves settings from the dotenv file, the environment, the config file
// and flags. It must run before any accessor.
func (c *Config) Load(flags *pflag.FlagSet) error {
	if c.EnvFile != "" {
		if err := godotenv.Load(c.EnvFile); err != nil {
			explicit := flags != nil && flags.Changed("env-file")
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to load env file %s: %w", c.EnvFile, err)
			}
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, alias); err != nil {
			return fmt.Errorf("failed to bind %s: %w", alias, err)
		}
	}

	if flags != nil {
		for key, name := range map[string]string{
			"token.access_secret":  "access-secret",
			"token.refresh_secret": "refresh-secret",
		} {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	if c.ConfigFile != "" {
		v.SetConfigFile(c.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", c.ConfigFile, err)
		}
	}

	c.v = v
	if c.Verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		c.logger = logger
	} else {
		c.logger = zap.NewNop()
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := goVault.DefaultConfig()

	v.SetDefault("token.access_secret", "")
	v.SetDefault("token.refresh_secret", "")
	v.SetDefault("token.issuer", d.Token.Issuer)
	v.SetDefault("token.audience", d.Token.Audience)
	v.SetDefault("token.access_ttl", d.Token.AccessTTL)
	v.SetDefault("token.refresh_ttl", d.Token.RefreshTTL)
	v.SetDefault("token.max_sessions", d.Token.MaxConcurrentSessions)
	v.SetDefault("token.rotate_refresh", d.Token.RotateRefresh)

	v.SetDefault("password.memory", d.Password.Memory)
	v.SetDefault("password.time", d.Password.Time)
	v.SetDefault("password.parallelism", d.Password.Parallelism)
	v.SetDefault("password.key_length", d.Password.KeyLength)
	v.SetDefault("password.min_length", d.Password.MinLength)

	v.SetDefault("twofactor.issuer", d.TwoFactor.Issuer)
	v.SetDefault("twofactor.backup_code_count", d.TwoFactor.BackupCodeCount)
	v.SetDefault("twofactor.sms_max_attempts", d.TwoFactor.SMSMaxAttempts)
	v.SetDefault("twofactor.sms_ttl", d.TwoFactor.SMSTTL)
	v.SetDefault("twofactor.enforce_replay", d.TwoFactor.EnforceReplayProtection)
	v.SetDefault("commitment.max_age", d.Commitment.MaxAge)
	v.SetDefault("audit.enabled", false)
}

// Logger returns the logger selected by --verbose.
func (c *Config) Logger() *zap.Logger {
	if c.logger == nil {
		return zap.NewNop()
	}
	return c.logger
}

// PasswordConfig returns the argon2id parameters new hashes are produced with.
func (c *Config) PasswordConfig() password.Config {
	d := goVault.DefaultConfig().Password
	return password.Config{
		Memory:           c.v.GetUint32("password.memory"),
		Time:             c.v.GetUint32("password.time"),
		Parallelism:      uint8(c.v.GetUint("password.parallelism")),
		SaltLength:       d.SaltLength,
		KeyLength:        c.v.GetUint32("password.key_length"),
		MinLength:        c.v.GetInt("password.min_length"),
		MaxPasswordBytes: d.MaxPasswordBytes,
	}
}

// EngineConfig maps the resolved settings onto an engine configuration. The
// result is validated by the engine builder.
func (c *Config) EngineConfig() goVault.Config {
	cfg := goVault.DefaultConfig()

	cfg.Token.AccessSecret = []byte(c.v.GetString("token.access_secret"))
	if refresh := c.v.GetString("token.refresh_secret"); refresh != "" {
		cfg.Token.RefreshSecret = []byte(refresh)
	}
	cfg.Token.Issuer = c.v.GetString("token.issuer")
	cfg.Token.Audience = c.v.GetString("token.audience")
	cfg.Token.AccessTTL = c.v.GetDuration("token.access_ttl")
	cfg.Token.RefreshTTL = c.v.GetDuration("token.refresh_ttl")
	cfg.Token.MaxConcurrentSessions = c.v.GetInt("token.max_sessions")
	cfg.Token.RotateRefresh = c.v.GetBool("token.rotate_refresh")

	pw := c.PasswordConfig()
	cfg.Password.Memory = pw.Memory
	cfg.Password.Time = pw.Time
	cfg.Password.Parallelism = pw.Parallelism
	cfg.Password.KeyLength = pw.KeyLength
	cfg.Password.MinLength = pw.MinLength

	cfg.TwoFactor.Issuer = c.v.GetString("twofactor.issuer")
	cfg.TwoFactor.BackupCodeCount = c.v.GetInt("twofactor.backup_code_count")
	cfg.TwoFactor.SMSMaxAttempts = c.v.GetInt("twofactor.sms_max_attempts")
	cfg.TwoFactor.SMSTTL = c.v.GetDuration("twofactor.sms_ttl")
	cfg.TwoFactor.EnforceReplayProtection = c.v.GetBool("twofactor.enforce_replay")
	cfg.Commitment.MaxAge = c.v.GetDuration("commitment.max_age")
	cfg.Audit.Enabled = c.v.GetBool("audit.enabled")
	return cfg
}

// BuildEngine builds an engine from [Config.EngineConfig]. Audit events go to the
// CLI logger when auditing is enabled.
func (c *Config) BuildEngine() (*goVault.Engine, error) {
	logger := c.Logger()
	engine, err := goVault.New().
		WithConfig(c.EngineConfig()).
		WithLogger(logger).
		WithAuditSink(goVault.NewZapSink(logger.Named("audit"))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build engine: %w", err)
	}
	return engine, nil
}
