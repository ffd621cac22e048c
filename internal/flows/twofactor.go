package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goVault/internal/kinds"
	"github.com/MrEthical07/goVault/store"
)

type TwoFactorEvents struct {
	TwoFactorDisabled string
}

type TwoFactorDeps struct {
	Now func() time.Time

	GetTwoFactorState  func(context.Context, string) (*store.TwoFactorState, error)
	PutTwoFactorState  func(context.Context, *store.TwoFactorState) error
	DeleteTOTP         func(context.Context, string) error
	DeleteBackupCodes  func(context.Context, string) error
	DeleteSMSChallenge func(context.Context, string) error
	ResetLimiters      func(context.Context, string)

	EmitAudit func(context.Context, string, bool, string, string, error, func() map[string]string)

	Events TwoFactorEvents
}

// RunTwoFactorEnabled reports whether the principal's last second-factor change was
// an enablement.
func RunTwoFactorEnabled(ctx context.Context, principalID string, deps TwoFactorDeps) (bool, error) {
	if principalID == "" {
		return false, fmt.Errorf("%w: empty principal", kinds.ErrInvalidInput)
	}
	if deps.GetTwoFactorState == nil {
		return false, fmt.Errorf("%w: two-factor flow not configured", kinds.ErrInternal)
	}

	state, err := deps.GetTwoFactorState(ctx, principalID)
	if err != nil {
		if errors.Is(err, kinds.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return stateEnabled(state), nil
}

// RunMarkTwoFactorEnabled records method as the principal's active second factor.
func RunMarkTwoFactorEnabled(ctx context.Context, principalID, method string, at time.Time, deps TwoFactorDeps) error {
	if deps.GetTwoFactorState == nil || deps.PutTwoFactorState == nil {
		return fmt.Errorf("%w: two-factor flow not configured", kinds.ErrInternal)
	}
	state, err := deps.GetTwoFactorState(ctx, principalID)
	if err != nil {
		if !errors.Is(err, kinds.ErrNotFound) {
			return err
		}
		state = &store.TwoFactorState{PrincipalID: principalID}
	}
	state.Method = method
	state.EnabledAt = at
	return deps.PutTwoFactorState(ctx, state)
}

// RunDisableTwoFactor removes every second-factor secret of the principal and
// stamps DisabledAt. Disabling a principal with nothing enrolled still succeeds.
func RunDisableTwoFactor(ctx context.Context, principalID string, deps TwoFactorDeps) error {
	if principalID == "" {
		return fmt.Errorf("%w: empty principal", kinds.ErrInvalidInput)
	}
	if deps.DeleteTOTP == nil || deps.DeleteBackupCodes == nil || deps.DeleteSMSChallenge == nil || deps.PutTwoFactorState == nil || deps.GetTwoFactorState == nil {
		return fmt.Errorf("%w: two-factor flow not configured", kinds.ErrInternal)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	if err := deps.DeleteTOTP(ctx, principalID); err != nil {
		return err
	}
	if err := deps.DeleteBackupCodes(ctx, principalID); err != nil {
		return err
	}
	if err := deps.DeleteSMSChallenge(ctx, principalID); err != nil {
		return err
	}

	state, err := deps.GetTwoFactorState(ctx, principalID)
	if err != nil {
		if !errors.Is(err, kinds.ErrNotFound) {
			return err
		}
		state = &store.TwoFactorState{PrincipalID: principalID}
	}
	state.DisabledAt = deps.Now()
	if err := deps.PutTwoFactorState(ctx, state); err != nil {
		return err
	}

	if deps.ResetLimiters != nil {
		deps.ResetLimiters(ctx, principalID)
	}
	if deps.EmitAudit != nil {
		deps.EmitAudit(ctx, deps.Events.TwoFactorDisabled, true, principalID, "", nil, nil)
	}
	return nil
}

func stateEnabled(state *store.TwoFactorState) bool {
	if state == nil || state.EnabledAt.IsZero() {
		return false
	}
	return state.DisabledAt.IsZero() || state.EnabledAt.After(state.DisabledAt)
}
