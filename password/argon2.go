package password

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/MrEthical07/goVault/internal/kinds"
	"github.com/awnumar/memguard"
	"golang.org/x/crypto/argon2"
	"golang.org/x/sync/semaphore"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16

	// DefaultMinLength is the minimum password length in Unicode code points.
	DefaultMinLength = 8
	// DefaultMaxPasswordBytes bounds the input fed to argon2.
	DefaultMaxPasswordBytes = 1024
)

// Config holds Argon2 parameters. The hasher is the only parameter authority:
// callers never choose parameters per call.
type Config struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	MinLength        int
	MaxPasswordBytes int

	// MaxConcurrent bounds simultaneous argon2 evaluations through HashContext and
	// VerifyContext. Zero means GOMAXPROCS.
	MaxConcurrent int
}

// DefaultConfig returns argon2id m=64MiB, t=3, p=4 with a 32-byte tag and 16-byte salt.
func DefaultConfig() Config {
	return Config{
		Memory:           64 * 1024,
		Time:             3,
		Parallelism:      4,
		SaltLength:       16,
		KeyLength:        32,
		MinLength:        DefaultMinLength,
		MaxPasswordBytes: DefaultMaxPasswordBytes,
	}
}

// Argon2 hashes and verifies passwords in PHC string format.
//
// Argon2 is safe for concurrent use.
type Argon2 struct {
	config Config
	random io.Reader
	slots  *semaphore.Weighted
}

type parsedPHC struct {
	algorithm   Algorithm
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
	keyLength   uint32
}

// NewArgon2 validates cfg and returns a hasher drawing salts from crypto/rand.
func NewArgon2(cfg Config) (*Argon2, error) {
	return NewArgon2WithRandom(cfg, rand.Reader)
}

// NewArgon2WithRandom is NewArgon2 with an explicit randomness source.
func NewArgon2WithRandom(cfg Config, random io.Reader) (*Argon2, error) {
	if cfg.MinLength == 0 {
		cfg.MinLength = DefaultMinLength
	}
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = runtime.GOMAXPROCS(0)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if random == nil {
		random = rand.Reader
	}

	return &Argon2{
		config: cfg,
		random: random,
		slots:  semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}, nil
}

// Config returns the active parameters.
func (a *Argon2) Config() Config {
	return a.config
}

// Hash derives an argon2id tag with a fresh random salt.
//
// Passwords shorter than MinLength code points (or empty) fail with INVALID_INPUT.
func (a *Argon2) Hash(password string) (string, error) {
	if err := a.checkLength(password); err != nil {
		return "", err
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(a.random, salt); err != nil {
		return "", fmt.Errorf("%w: salt generation failed", kinds.ErrInternal)
	}

	raw := []byte(password)
	hash := argon2.IDKey(
		raw,
		salt,
		a.config.Time,
		a.config.Memory,
		a.config.Parallelism,
		a.config.KeyLength,
	)
	memguard.WipeBytes(raw)

	return encodePHC(AlgorithmArgon2id, a.config.Memory, a.config.Time, a.config.Parallelism, salt, hash), nil
}

// HashContext is Hash bounded by the concurrency limit; it gives up when ctx ends
// before a slot frees.
func (a *Argon2) HashContext(ctx context.Context, password string) (string, error) {
	if err := a.slots.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("%w: hashing cancelled: %v", kinds.ErrInternal, err)
	}
	defer a.slots.Release(1)
	return a.Hash(password)
}

// Verify reports whether password matches encodedHash. It never errors: malformed
// hashes, unsupported variants and oversized inputs all verify false.
func (a *Argon2) Verify(password string, encodedHash string) bool {
	if len(password) > a.config.MaxPasswordBytes {
		return false
	}
	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false
	}

	raw := []byte(password)
	defer memguard.WipeBytes(raw)

	var computed []byte
	switch parsed.algorithm {
	case AlgorithmArgon2id:
		computed = argon2.IDKey(raw, parsed.salt, parsed.time, parsed.memory, parsed.parallelism, parsed.keyLength)
	case AlgorithmArgon2i:
		computed = argon2.Key(raw, parsed.salt, parsed.time, parsed.memory, parsed.parallelism, parsed.keyLength)
	default:
		// argon2d has no implementation in x/crypto.
		return false
	}

	return subtle.ConstantTimeCompare(computed, parsed.hash) == 1
}

// VerifyContext is Verify bounded by the concurrency limit.
func (a *Argon2) VerifyContext(ctx context.Context, password string, encodedHash string) (bool, error) {
	if err := a.slots.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("%w: verification cancelled: %v", kinds.ErrInternal, err)
	}
	defer a.slots.Release(1)
	return a.Verify(password, encodedHash), nil
}

// NeedsRehash reports whether encodedHash should be replaced: the algorithm is not
// argon2id, the hash is unparseable, or any encoded parameter differs from the
// current configuration.
func (a *Argon2) NeedsRehash(encodedHash string) bool {
	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return true
	}
	if parsed.algorithm != AlgorithmArgon2id {
		return true
	}

	return parsed.memory != a.config.Memory ||
		parsed.time != a.config.Time ||
		parsed.parallelism != a.config.Parallelism ||
		parsed.keyLength != a.config.KeyLength ||
		uint32(len(parsed.salt)) != a.config.SaltLength
}

func (a *Argon2) checkLength(password string) error {
	if password == "" {
		return fmt.Errorf("%w: password must not be empty", kinds.ErrInvalidInput)
	}
	if len(password) > a.config.MaxPasswordBytes {
		return fmt.Errorf("%w: password exceeds %d bytes", kinds.ErrInvalidInput, a.config.MaxPasswordBytes)
	}
	if utf8.RuneCountInString(password) < a.config.MinLength {
		return fmt.Errorf("%w: password must be at least %d characters", kinds.ErrInvalidInput, a.config.MinLength)
	}
	return nil
}

func encodePHC(alg Algorithm, memory, time uint32, parallelism uint8, salt, hash []byte) string {
	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		alg,
		argon2.Version,
		memory,
		time,
		parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
}

func parsePHC(encodedHash string) (*parsedPHC, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, fmt.Errorf("%w: invalid PHC format", kinds.ErrInvalidInput)
	}

	alg := Algorithm(parts[1])
	switch alg {
	case AlgorithmArgon2id, AlgorithmArgon2i, AlgorithmArgon2d:
	default:
		return nil, fmt.Errorf("%w: unsupported algorithm", kinds.ErrInvalidInput)
	}

	versionPart := parts[2]
	if !strings.HasPrefix(versionPart, "v=") {
		return nil, fmt.Errorf("%w: missing argon2 version", kinds.ErrInvalidInput)
	}
	version, err := strconv.Atoi(strings.TrimPrefix(versionPart, "v="))
	if err != nil || version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported argon2 version", kinds.ErrInvalidInput)
	}

	params, err := parseParams(parts[3])
	if err != nil {
		return nil, err
	}

	salt, err := decodeB64(parts[4])
	if err != nil || len(salt) < int(minSaltLength) {
		return nil, fmt.Errorf("%w: invalid salt", kinds.ErrInvalidInput)
	}

	hash, err := decodeB64(parts[5])
	if err != nil || len(hash) == 0 {
		return nil, fmt.Errorf("%w: invalid hash", kinds.ErrInvalidInput)
	}

	return &parsedPHC{
		algorithm:   alg,
		memory:      params.memory,
		time:        params.time,
		parallelism: params.parallelism,
		salt:        salt,
		hash:        hash,
		keyLength:   uint32(len(hash)),
	}, nil
}

// decodeB64 accepts both the unpadded PHC alphabet and legacy padded encodings.
func decodeB64(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

type parsedParams struct {
	memory      uint32
	time        uint32
	parallelism uint8
}

func parseParams(part string) (*parsedParams, error) {
	pairs := strings.Split(part, ",")
	if len(pairs) != 3 {
		return nil, fmt.Errorf("%w: invalid parameter format", kinds.ErrInvalidInput)
	}

	var (
		memorySet, timeSet, parallelismSet bool
		params                             parsedParams
	)

	for _, pair := range pairs {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("%w: invalid parameter entry", kinds.ErrInvalidInput)
		}

		switch kv[0] {
		case "m":
			v, err := strconv.ParseUint(kv[1], 10, 32)
			if err != nil || v < uint64(minMemoryKB) {
				return nil, fmt.Errorf("%w: invalid memory parameter", kinds.ErrInvalidInput)
			}
			params.memory = uint32(v)
			memorySet = true
		case "t":
			v, err := strconv.ParseUint(kv[1], 10, 32)
			if err != nil || v < uint64(minTimeCost) {
				return nil, fmt.Errorf("%w: invalid time parameter", kinds.ErrInvalidInput)
			}
			params.time = uint32(v)
			timeSet = true
		case "p":
			v, err := strconv.ParseUint(kv[1], 10, 8)
			if err != nil || v < uint64(minParallelism) {
				return nil, fmt.Errorf("%w: invalid parallelism parameter", kinds.ErrInvalidInput)
			}
			params.parallelism = uint8(v)
			parallelismSet = true
		default:
			return nil, fmt.Errorf("%w: unsupported parameter", kinds.ErrInvalidInput)
		}
	}

	if !memorySet || !timeSet || !parallelismSet {
		return nil, fmt.Errorf("%w: missing parameters", kinds.ErrInvalidInput)
	}

	return &params, nil
}

func validateConfig(cfg Config) error {
	if cfg.Memory < minMemoryKB {
		return fmt.Errorf("%w: password memory must be >= 8192 KiB", kinds.ErrInvalidInput)
	}
	if cfg.Time < minTimeCost {
		return fmt.Errorf("%w: password time must be >= 1", kinds.ErrInvalidInput)
	}
	if cfg.Parallelism < minParallelism {
		return fmt.Errorf("%w: password parallelism must be >= 1", kinds.ErrInvalidInput)
	}
	if cfg.SaltLength < minSaltLength {
		return fmt.Errorf("%w: password salt length must be >= 16", kinds.ErrInvalidInput)
	}
	if cfg.KeyLength < minKeyLength {
		return fmt.Errorf("%w: password key length must be >= 16", kinds.ErrInvalidInput)
	}
	if cfg.MinLength < 1 {
		return fmt.Errorf("%w: password minimum length must be >= 1", kinds.ErrInvalidInput)
	}
	if cfg.MaxPasswordBytes < cfg.MinLength {
		return fmt.Errorf("%w: password max bytes below minimum length", kinds.ErrInvalidInput)
	}

	return nil
}
