package goVault

import (
	"github.com/MrEthical07/goVault/shamir"
)

// SplitSecret divides secret into n shares with threshold k. See [shamir.Split].
func (e *Engine) SplitSecret(secret []byte, n, k int) ([]shamir.Share, error) {
	shares, err := shamir.Split(secret, n, k)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricSecretSplit)
	return shares, nil
}

// CombineSecret reconstructs a secret from share payloads. See [shamir.Combine].
func (e *Engine) CombineSecret(payloads []string) ([]byte, error) {
	secret, err := shamir.Combine(payloads)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricSecretCombined)
	return secret, nil
}

// CreateSocialRecovery splits secret across guardians. A zero k picks ⌈0.6·n⌉.
func (e *Engine) CreateSocialRecovery(secret []byte, guardians []shamir.Guardian, k int) (*shamir.SocialRecovery, error) {
	rec, err := shamir.CreateSocial(secret, guardians, k)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricSecretSplit)
	return rec, nil
}
