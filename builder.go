package goVault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/MrEthical07/goVault/commitment"
	"github.com/MrEthical07/goVault/internal"
	internalaudit "github.com/MrEthical07/goVault/internal/audit"
	"github.com/MrEthical07/goVault/internal/keylock"
	"github.com/MrEthical07/goVault/internal/rate"
	"github.com/MrEthical07/goVault/jwt"
	"github.com/MrEthical07/goVault/password"
	"github.com/MrEthical07/goVault/session"
	"github.com/MrEthical07/goVault/store"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an [Engine]. A Builder is single use.
type Builder struct {
	config Config
	store  store.Store
	redis  redis.UniversalClient

	registry  session.Registry
	blacklist session.Blacklist

	auditSink AuditSink
	clock     Clock
	random    io.Reader
	logger    *zap.Logger

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The Builder keeps its own copy of
// the secrets, so later mutation of cfg has no effect.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the credential and second-factor backend. Without one the engine
// keeps everything in process memory.
func (b *Builder) WithStore(s store.Store) *Builder {
	b.store = s
	return b
}

// WithRedis moves the refresh registry, the access blacklist and the verification
// limiters into Redis so several processes can share them.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRegistry overrides the refresh registry chosen by WithRedis.
func (b *Builder) WithRegistry(r session.Registry) *Builder {
	b.registry = r
	return b
}

// WithBlacklist overrides the access blacklist chosen by WithRedis.
func (b *Builder) WithBlacklist(bl session.Blacklist) *Builder {
	b.blacklist = bl
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock injects the time source used by every component.
func (b *Builder) WithClock(c Clock) *Builder {
	b.clock = c
	return b
}

// WithRandom injects the entropy source. Nil means crypto/rand.
func (b *Builder) WithRandom(r io.Reader) *Builder {
	b.random = r
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires every component and starts the
// background sweeper. The returned Engine must be released with Close.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Token.RefreshSecret) == 0 {
		cfg.Token.RefreshSecret = cloneBytes(cfg.Token.AccessSecret)
	}

	clock := b.clock
	if clock == nil {
		clock = systemClock{}
	}
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	backend := b.store
	if backend == nil {
		backend = store.NewMemory()
	}

	// -------- PASSWORD HASHER --------
	hasher, err := password.NewArgon2WithRandom(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MinLength:        cfg.Password.MinLength,
		MaxPasswordBytes: cfg.Password.MaxPasswordBytes,
		MaxConcurrent:    cfg.Password.MaxConcurrentHashes,
	}, b.random)
	if err != nil {
		return nil, err
	}
	dummySeed, err := internal.NewTokenID(b.random)
	if err != nil {
		return nil, fmt.Errorf("dummy hash seed: %w", err)
	}
	dummyHash, err := hasher.Hash(dummySeed)
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}

	// -------- TOKENS --------
	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:  cfg.Token.AccessTTL,
		RefreshTTL: cfg.Token.RefreshTTL,
		AccessKey:  cloneBytes(cfg.Token.AccessSecret),
		RefreshKey: cloneBytes(cfg.Token.RefreshSecret),
		Issuer:     cfg.Token.Issuer,
		Audience:   cfg.Token.Audience,
		Leeway:     cfg.Token.Leeway,
		Now:        clock.Now,
	})
	if err != nil {
		return nil, err
	}

	registry := b.registry
	if registry == nil {
		if b.redis != nil {
			registry = session.NewRedisRegistry(b.redis, cfg.Token.RedisPrefix)
		} else {
			registry = session.NewMemoryRegistry()
		}
	}
	blacklist := b.blacklist
	if blacklist == nil {
		if b.redis != nil {
			blacklist = session.NewRedisBlacklist(b.redis, cfg.Token.RedisPrefix)
		} else {
			blacklist = session.NewCacheBlacklist(cfg.Token.AccessTTL, time.Minute)
		}
	}

	// -------- LIMITERS --------
	var totpLimiter, backupLimiter rate.Limiter
	if cfg.TwoFactor.MaxVerifyAttempts > 0 {
		totpCfg := rate.Config{
			MaxAttempts: cfg.TwoFactor.MaxVerifyAttempts,
			Cooldown:    cfg.TwoFactor.VerifyCooldown,
			Prefix:      cfg.Token.RedisPrefix + ":totp",
		}
		backupCfg := totpCfg
		backupCfg.Prefix = cfg.Token.RedisPrefix + ":bc"
		if b.redis != nil {
			totpLimiter = rate.NewRedis(b.redis, totpCfg)
			backupLimiter = rate.NewRedis(b.redis, backupCfg)
		} else {
			totpLimiter = rate.NewLocal(totpCfg, clock.Now)
			backupLimiter = rate.NewLocal(backupCfg, clock.Now)
		}
	}

	// -------- COMMITMENTS --------
	commitments := commitment.New(commitment.Options{
		Now:    clock.Now,
		Random: b.random,
		MaxAge: cfg.Commitment.MaxAge,
	})
	if err := commitments.Init(context.Background()); err != nil {
		return nil, err
	}

	engine := &Engine{
		config:        cloneConfig(cfg),
		clock:         clock,
		random:        b.random,
		logger:        logger,
		store:         backend,
		registry:      registry,
		blacklist:     blacklist,
		jwtManager:    jm,
		passwordHash:  hasher,
		dummyHash:     dummyHash,
		locks:         keylock.New(),
		totpLimiter:   totpLimiter,
		backupLimiter: backupLimiter,
		commitments:   commitments,
		metrics:       NewMetrics(cfg.Metrics),
		totp:          newTOTPManager(cfg.TwoFactor, b.random),
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Logger:     logger.Named("audit"),
	}, b.auditSink)
	engine.flows = engine.buildFlowDeps()
	engine.startSweeper(cfg.Token.SweepInterval)

	b.built = true

	return engine, nil
}
