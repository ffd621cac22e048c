package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goVault/internal/kinds"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// TypeAccess is the typ claim carried by access tokens.
	TypeAccess = "access"
	// TypeRefresh is the type claim carried by refresh tokens.
	TypeRefresh = "refresh"

	// MinKeyLength is the minimum HMAC key size in bytes.
	MinKeyLength = 32
)

// Config defines the signing keys, lifetimes and required claims.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// AccessKey signs access tokens. RefreshKey signs refresh tokens and falls back
	// to AccessKey when empty.
	AccessKey  []byte
	RefreshKey []byte

	Issuer   string
	Audience string
	Leeway   time.Duration

	// MaxFutureIAT rejects tokens whose iat lies further ahead than this. Zero means 10 minutes.
	MaxFutureIAT time.Duration

	// Now supplies the current time for both signing and parsing. Nil means time.Now.
	Now func() time.Time
}

// Manager signs and parses HS256 access and refresh tokens.
//
// Manager is safe for concurrent use.
type Manager struct {
	config Config
}

// AccessClaims are the claims of a short-lived access token.
type AccessClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshClaims are the claims of a refresh token. TokenID keys the refresh record.
type RefreshClaims struct {
	Type    string `json:"type"`
	TokenID string `json:"tokenId"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("%w: invalid TTL configuration", kinds.ErrInvalidInput)
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, fmt.Errorf("%w: invalid leeway configuration", kinds.ErrInvalidInput)
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, fmt.Errorf("%w: invalid MaxFutureIAT configuration", kinds.ErrInvalidInput)
	}
	if len(cfg.AccessKey) < MinKeyLength {
		return nil, fmt.Errorf("%w: access key must be at least %d bytes", kinds.ErrInvalidInput, MinKeyLength)
	}
	if len(cfg.RefreshKey) == 0 {
		cfg.RefreshKey = cfg.AccessKey
	}
	if len(cfg.RefreshKey) < MinKeyLength {
		return nil, fmt.Errorf("%w: refresh key must be at least %d bytes", kinds.ErrInvalidInput, MinKeyLength)
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	cfg.Audience = strings.TrimSpace(cfg.Audience)
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, fmt.Errorf("%w: issuer and audience are required", kinds.ErrInvalidInput)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Manager{config: cfg}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (j *Manager) AccessTTL() time.Duration { return j.config.AccessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (j *Manager) RefreshTTL() time.Duration { return j.config.RefreshTTL }

// CreateAccess signs an access token for principalID valid from now for AccessTTL.
func (j *Manager) CreateAccess(principalID string) (string, *AccessClaims, error) {
	if principalID == "" {
		return "", nil, fmt.Errorf("%w: empty principal", kinds.ErrInvalidInput)
	}
	now := j.config.Now()
	claims := &AccessClaims{
		Type:             TypeAccess,
		RegisteredClaims: j.registered(principalID, now, j.config.AccessTTL),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.config.AccessKey)
	if err != nil {
		return "", nil, fmt.Errorf("%w: sign access token: %v", kinds.ErrInternal, err)
	}
	return signed, claims, nil
}

// CreateRefresh signs a refresh token bound to tokenID.
func (j *Manager) CreateRefresh(principalID, tokenID string) (string, *RefreshClaims, error) {
	if principalID == "" || tokenID == "" {
		return "", nil, fmt.Errorf("%w: empty principal or token id", kinds.ErrInvalidInput)
	}
	now := j.config.Now()
	claims := &RefreshClaims{
		Type:             TypeRefresh,
		TokenID:          tokenID,
		RegisteredClaims: j.registered(principalID, now, j.config.RefreshTTL),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.config.RefreshKey)
	if err != nil {
		return "", nil, fmt.Errorf("%w: sign refresh token: %v", kinds.ErrInternal, err)
	}
	return signed, claims, nil
}

// ParseAccess verifies signature, iss, aud and exp of an access token. Errors wrap
// kinds.ErrTokenMalformed, kinds.ErrTokenExpired or kinds.ErrTokenInvalid.
func (j *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := j.parse(tokenStr, claims, j.config.AccessKey); err != nil {
		return nil, err
	}
	if claims.Type != TypeAccess {
		return nil, fmt.Errorf("%w: not an access token", kinds.ErrTokenInvalid)
	}
	if err := j.checkIssuedAt(claims.IssuedAt); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseRefresh verifies a refresh token. It checks only the token itself; the
// refresh record is the caller's concern.
func (j *Manager) ParseRefresh(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := j.parse(tokenStr, claims, j.config.RefreshKey); err != nil {
		return nil, err
	}
	if claims.Type != TypeRefresh {
		return nil, fmt.Errorf("%w: not a refresh token", kinds.ErrTokenInvalid)
	}
	if claims.TokenID == "" {
		return nil, fmt.Errorf("%w: missing tokenId", kinds.ErrTokenMalformed)
	}
	if err := j.checkIssuedAt(claims.IssuedAt); err != nil {
		return nil, err
	}
	return claims, nil
}

func (j *Manager) registered(principalID string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   principalID,
		Issuer:    j.config.Issuer,
		Audience:  jwt.ClaimStrings{j.config.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (j *Manager) parse(tokenStr string, claims jwt.Claims, key []byte) error {
	if tokenStr == "" {
		return fmt.Errorf("%w: empty token", kinds.ErrTokenMalformed)
	}
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.config.Issuer),
		jwt.WithAudience(j.config.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.config.Now),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return key, nil
	})
	if err != nil {
		return Classify(err)
	}
	if !token.Valid {
		return fmt.Errorf("%w: token not valid", kinds.ErrTokenInvalid)
	}
	return nil
}

func (j *Manager) checkIssuedAt(iat *jwt.NumericDate) error {
	if iat == nil {
		return fmt.Errorf("%w: missing iat", kinds.ErrTokenMalformed)
	}
	if iat.Time.After(j.config.Now().Add(j.config.MaxFutureIAT)) {
		return fmt.Errorf("%w: iat too far in the future", kinds.ErrTokenInvalid)
	}
	return nil
}

// Classify maps golang-jwt errors onto the token error kinds: expiry to
// TOKEN_EXPIRED, undecodable input to TOKEN_MALFORMED, everything else to
// TOKEN_INVALID.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", kinds.ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", kinds.ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", kinds.ErrTokenInvalid, err)
	}
}
