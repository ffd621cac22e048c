package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goVault/internal/kinds"
	"github.com/MrEthical07/goVault/password"
	"github.com/MrEthical07/goVault/store"
	"go.uber.org/zap"
)

// Failure reasons attached to login_failed events.
const (
	ReasonUnknownPrincipal = "unknown_principal"
	ReasonInvalidPassword  = "invalid_password"
)

type CredentialResult struct {
	Valid    bool
	Upgraded bool
}

type CredentialMetrics struct {
	RegisterSuccess       int
	RegisterDuplicate     int
	LoginSuccess          int
	LoginFailure          int
	HashUpgraded          int
	HashUpgradeFailed     int
	PasswordChangeSuccess int
	PasswordChangeFailure int
}

type CredentialEvents struct {
	Registered           string
	LoginSuccess         string
	LoginFailed          string
	HashUpgraded         string
	PasswordChanged      string
	PasswordChangeFailed string
	CredentialDeleted    string
}

type CredentialDeps struct {
	UpgradeOnLogin bool
	DummyHash      string

	Now        func() time.Time
	LoginEmail func(context.Context) string
	ClientIP   func(context.Context) string

	GetCredential    func(context.Context, string) (*store.Credential, error)
	CreateCredential func(context.Context, *store.Credential) error
	PutCredential    func(context.Context, *store.Credential) error
	DeleteCredential func(context.Context, string) error

	HashPassword func(context.Context, string) (string, error)
	VerifyArgon2 func(context.Context, string, string) (bool, error)
	VerifyBcrypt func(string, string) bool
	NeedsRehash  func(string) bool

	RevokeAll          func(context.Context, string) (int, error)
	DeleteSecondFactor func(context.Context, string) error

	Logger    *zap.Logger
	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, string, error, func() map[string]string)

	Metrics CredentialMetrics
	Events  CredentialEvents
}

func RunRegister(ctx context.Context, principalID, pw string, deps CredentialDeps) error {
	normalizeCredentialDeps(&deps)

	if principalID == "" {
		return fmt.Errorf("%w: empty principal", kinds.ErrInvalidInput)
	}
	if deps.HashPassword == nil || deps.CreateCredential == nil {
		return fmt.Errorf("%w: credential flow not configured", kinds.ErrInternal)
	}

	hash, err := deps.HashPassword(ctx, pw)
	if err != nil {
		return err
	}

	now := deps.Now()
	err = deps.CreateCredential(ctx, &store.Credential{
		PrincipalID: principalID,
		Hash:        hash,
		Algorithm:   password.AlgorithmArgon2id,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		if errors.Is(err, kinds.ErrAlreadyExists) {
			deps.MetricInc(deps.Metrics.RegisterDuplicate)
		}
		return err
	}

	deps.MetricInc(deps.Metrics.RegisterSuccess)
	deps.EmitAudit(ctx, deps.Events.Registered, true, principalID, "", nil, nil)
	return nil
}

// RunVerifyAndUpgrade checks pw against the stored credential and migrates legacy or
// outdated hashes to the current argon2id parameters on success.
//
// An unknown principal still costs one argon2 evaluation against DummyHash so the
// response time does not reveal whether the principal exists.
func RunVerifyAndUpgrade(ctx context.Context, principalID, pw string, deps CredentialDeps) (CredentialResult, error) {
	normalizeCredentialDeps(&deps)

	if principalID == "" {
		return CredentialResult{}, fmt.Errorf("%w: empty principal", kinds.ErrInvalidInput)
	}
	if deps.GetCredential == nil || deps.VerifyArgon2 == nil {
		return CredentialResult{}, fmt.Errorf("%w: credential flow not configured", kinds.ErrInternal)
	}

	cred, err := deps.GetCredential(ctx, principalID)
	if err != nil {
		if !errors.Is(err, kinds.ErrNotFound) {
			return CredentialResult{}, err
		}
		if deps.DummyHash != "" {
			_, _ = deps.VerifyArgon2(ctx, pw, deps.DummyHash)
		}
		deps.MetricInc(deps.Metrics.LoginFailure)
		emitLoginFailed(ctx, deps, principalID, ReasonUnknownPrincipal, err)
		return CredentialResult{}, err
	}

	ok, err := verifyStored(ctx, cred, pw, deps)
	if err != nil {
		return CredentialResult{}, err
	}
	if !ok {
		deps.MetricInc(deps.Metrics.LoginFailure)
		emitLoginFailed(ctx, deps, principalID, ReasonInvalidPassword, kinds.ErrVerificationFailed)
		return CredentialResult{}, nil
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	result := CredentialResult{Valid: true}
	if !deps.UpgradeOnLogin || !needsUpgrade(cred, deps) {
		return result, nil
	}

	from := algorithmOf(cred)
	if err := upgradeCredential(ctx, cred, pw, deps); err != nil {
		deps.MetricInc(deps.Metrics.HashUpgradeFailed)
		deps.Logger.Warn("password hash upgrade failed",
			zap.String("principal_id", principalID),
			zap.String("from", string(from)),
			zap.Error(err),
		)
		return result, nil
	}

	result.Upgraded = true
	deps.MetricInc(deps.Metrics.HashUpgraded)
	deps.EmitAudit(ctx, deps.Events.HashUpgraded, true, principalID, "", nil, func() map[string]string {
		return map[string]string{"from": string(from), "to": string(password.AlgorithmArgon2id)}
	})
	return result, nil
}

// RunChangePassword replaces the credential after verifying oldPassword with the
// stored algorithm, then revokes every refresh token of the principal.
func RunChangePassword(ctx context.Context, principalID, oldPassword, newPassword string, deps CredentialDeps) error {
	normalizeCredentialDeps(&deps)

	if principalID == "" || oldPassword == "" {
		return fmt.Errorf("%w: empty principal or password", kinds.ErrInvalidInput)
	}
	if deps.GetCredential == nil || deps.PutCredential == nil || deps.HashPassword == nil || deps.VerifyArgon2 == nil {
		return fmt.Errorf("%w: credential flow not configured", kinds.ErrInternal)
	}

	fail := func(reason string, cause error) error {
		deps.MetricInc(deps.Metrics.PasswordChangeFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordChangeFailed, false, principalID, "", cause, func() map[string]string {
			return map[string]string{"reason": reason, "ip": deps.ClientIP(ctx)}
		})
		return fmt.Errorf("%w: password change rejected", kinds.ErrVerificationFailed)
	}

	cred, err := deps.GetCredential(ctx, principalID)
	if err != nil {
		if errors.Is(err, kinds.ErrNotFound) {
			if deps.DummyHash != "" {
				_, _ = deps.VerifyArgon2(ctx, oldPassword, deps.DummyHash)
			}
			return fail(ReasonUnknownPrincipal, err)
		}
		return err
	}

	ok, err := verifyStored(ctx, cred, oldPassword, deps)
	if err != nil {
		return err
	}
	if !ok {
		return fail(ReasonInvalidPassword, kinds.ErrVerificationFailed)
	}

	hash, err := deps.HashPassword(ctx, newPassword)
	if err != nil {
		return err
	}
	if err := deps.PutCredential(ctx, &store.Credential{
		PrincipalID: principalID,
		Hash:        hash,
		Algorithm:   password.AlgorithmArgon2id,
		CreatedAt:   cred.CreatedAt,
		UpdatedAt:   deps.Now(),
	}); err != nil {
		return err
	}

	revoked := 0
	if deps.RevokeAll != nil {
		n, err := deps.RevokeAll(ctx, principalID)
		if err != nil {
			deps.Logger.Warn("session revocation after password change failed",
				zap.String("principal_id", principalID),
				zap.Error(err),
			)
		}
		revoked = n
	}

	deps.MetricInc(deps.Metrics.PasswordChangeSuccess)
	deps.EmitAudit(ctx, deps.Events.PasswordChanged, true, principalID, "", nil, func() map[string]string {
		return map[string]string{"sessions_revoked": fmt.Sprint(revoked)}
	})
	return nil
}

// RunDeleteCredential destroys the credential together with every session and
// second-factor record of the principal.
func RunDeleteCredential(ctx context.Context, principalID string, deps CredentialDeps) error {
	normalizeCredentialDeps(&deps)

	if principalID == "" {
		return fmt.Errorf("%w: empty principal", kinds.ErrInvalidInput)
	}
	if deps.DeleteCredential == nil {
		return fmt.Errorf("%w: credential flow not configured", kinds.ErrInternal)
	}

	if deps.RevokeAll != nil {
		if _, err := deps.RevokeAll(ctx, principalID); err != nil {
			return err
		}
	}
	if deps.DeleteSecondFactor != nil {
		if err := deps.DeleteSecondFactor(ctx, principalID); err != nil {
			return err
		}
	}
	if err := deps.DeleteCredential(ctx, principalID); err != nil {
		return err
	}

	deps.EmitAudit(ctx, deps.Events.CredentialDeleted, true, principalID, "", nil, nil)
	return nil
}

func verifyStored(ctx context.Context, cred *store.Credential, pw string, deps CredentialDeps) (bool, error) {
	switch algorithmOf(cred) {
	case password.AlgorithmBcrypt:
		if deps.VerifyBcrypt == nil {
			return false, nil
		}
		return deps.VerifyBcrypt(pw, cred.Hash), nil
	case password.AlgorithmArgon2id, password.AlgorithmArgon2i, password.AlgorithmArgon2d:
		return deps.VerifyArgon2(ctx, pw, cred.Hash)
	default:
		return false, nil
	}
}

func needsUpgrade(cred *store.Credential, deps CredentialDeps) bool {
	if algorithmOf(cred) != password.AlgorithmArgon2id {
		return true
	}
	return deps.NeedsRehash != nil && deps.NeedsRehash(cred.Hash)
}

func upgradeCredential(ctx context.Context, cred *store.Credential, pw string, deps CredentialDeps) error {
	if deps.HashPassword == nil || deps.PutCredential == nil {
		return errors.New("upgrade dependencies missing")
	}
	hash, err := deps.HashPassword(ctx, pw)
	if err != nil {
		return err
	}
	return deps.PutCredential(ctx, &store.Credential{
		PrincipalID: cred.PrincipalID,
		Hash:        hash,
		Algorithm:   password.AlgorithmArgon2id,
		CreatedAt:   cred.CreatedAt,
		UpdatedAt:   deps.Now(),
	})
}

// algorithmOf trusts the stored algorithm column and falls back to the hash prefix
// for records written without one.
func algorithmOf(cred *store.Credential) password.Algorithm {
	if cred.Algorithm != "" && cred.Algorithm != password.AlgorithmUnknown {
		return cred.Algorithm
	}
	return password.AlgorithmOf(cred.Hash)
}

func emitLoginFailed(ctx context.Context, deps CredentialDeps, principalID, reason string, err error) {
	deps.EmitAudit(ctx, deps.Events.LoginFailed, false, principalID, "", err, func() map[string]string {
		return map[string]string{
			"email":  deps.LoginEmail(ctx),
			"reason": reason,
			"ip":     deps.ClientIP(ctx),
		}
	})
}

func normalizeCredentialDeps(deps *CredentialDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.LoginEmail == nil {
		deps.LoginEmail = func(context.Context) string { return "" }
	}
	if deps.ClientIP == nil {
		deps.ClientIP = func(context.Context) string { return "" }
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
}
