package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goVault/internal/kinds"
	gjwt "github.com/golang-jwt/jwt/v5"
)

var (
	accessKey  = []byte("access-secret-access-secret-0123")
	refreshKey = []byte("refresh-secret-refresh-secret-01")
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestManager(t *testing.T, clock *fakeClock) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		AccessKey:  accessKey,
		RefreshKey: refreshKey,
		Issuer:     "govault",
		Audience:   "wallet-api",
		Now:        clock.Now,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestAccessClaimsRoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)

	token, _, err := m.CreateAccess("u1")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	if len(strings.Split(token, ".")) != 3 {
		t.Fatalf("expected three dot-separated parts: %s", token)
	}

	claims, err := m.ParseAccess(token)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.Subject != "u1" || claims.Issuer != "govault" || len(claims.Audience) != 1 || claims.Audience[0] != "wallet-api" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if span := claims.ExpiresAt.Sub(claims.IssuedAt.Time); span > 15*time.Minute+time.Second {
		t.Fatalf("exp - iat too large: %s", span)
	}
}

func TestAccessExpiresOnInjectedClock(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)

	token, _, err := m.CreateAccess("u1")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	clock.Advance(20 * time.Minute)

	if _, err := m.ParseAccess(token); !errors.Is(err, kinds.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestRefreshClaimsCarryTokenID(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)

	token, _, err := m.CreateRefresh("u1", "00112233445566778899aabbccddeeff")
	if err != nil {
		t.Fatalf("create refresh: %v", err)
	}
	claims, err := m.ParseRefresh(token)
	if err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
	if claims.Type != TypeRefresh || claims.TokenID != "00112233445566778899aabbccddeeff" {
		t.Fatalf("unexpected refresh claims: %+v", claims)
	}
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m, err := NewManager(Config{
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		AccessKey:  accessKey,
		Issuer:     "govault",
		Audience:   "wallet-api",
		Now:        clock.Now,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	access, _, _ := m.CreateAccess("u1")
	refresh, _, _ := m.CreateRefresh("u1", "aa")

	if _, err := m.ParseRefresh(access); !errors.Is(err, kinds.ErrTokenInvalid) && !errors.Is(err, kinds.ErrTokenMalformed) {
		t.Fatalf("expected access token to be rejected as refresh, got %v", err)
	}
	if _, err := m.ParseAccess(refresh); !errors.Is(err, kinds.ErrTokenInvalid) {
		t.Fatalf("expected refresh token to be rejected as access, got %v", err)
	}
}

func TestParseAccessRejectsWrongAlgorithm(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)

	claims := AccessClaims{Type: TypeAccess, RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "u1",
		Issuer:    "govault",
		Audience:  gjwt.ClaimStrings{"wallet-api"},
		IssuedAt:  gjwt.NewNumericDate(clock.now),
		ExpiresAt: gjwt.NewNumericDate(clock.now.Add(time.Minute)),
	}}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS512, claims).SignedString(accessKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.ParseAccess(token); !errors.Is(err, kinds.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestParseAccessIssuerAudienceAndSignature(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)

	sign := func(iss, aud string, key []byte) string {
		claims := AccessClaims{Type: TypeAccess, RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   "u1",
			Issuer:    iss,
			Audience:  gjwt.ClaimStrings{aud},
			IssuedAt:  gjwt.NewNumericDate(clock.now),
			ExpiresAt: gjwt.NewNumericDate(clock.now.Add(time.Minute)),
		}}
		token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(key)
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		return token
	}

	if _, err := m.ParseAccess(sign("govault", "wallet-api", accessKey)); err != nil {
		t.Fatalf("expected valid token to parse: %v", err)
	}
	cases := map[string]string{
		"issuer":    sign("other", "wallet-api", accessKey),
		"audience":  sign("govault", "other-api", accessKey),
		"signature": sign("govault", "wallet-api", refreshKey),
	}
	for name, token := range cases {
		if _, err := m.ParseAccess(token); !errors.Is(err, kinds.ErrTokenInvalid) {
			t.Fatalf("%s: expected ErrTokenInvalid, got %v", name, err)
		}
	}
}

func TestParseAccessMalformed(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)

	for _, input := range []string{"", "not.a.jwt", "abc", "a.b"} {
		if _, err := m.ParseAccess(input); !errors.Is(err, kinds.ErrTokenMalformed) {
			t.Fatalf("%q: expected ErrTokenMalformed, got %v", input, err)
		}
	}
}

func TestNewManagerValidation(t *testing.T) {
	base := Config{
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		AccessKey:  accessKey,
		Issuer:     "govault",
		Audience:   "wallet-api",
	}
	cases := map[string]func(*Config){
		"short key":         func(c *Config) { c.AccessKey = []byte("short") },
		"short refresh key": func(c *Config) { c.RefreshKey = []byte("short") },
		"zero ttl":          func(c *Config) { c.AccessTTL = 0 },
		"no issuer":         func(c *Config) { c.Issuer = " " },
		"bad leeway":        func(c *Config) { c.Leeway = time.Hour },
	}
	for name, mutate := range cases {
		cfg := base
		mutate(&cfg)
		if _, err := NewManager(cfg); !errors.Is(err, kinds.ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", name, err)
		}
	}
}
