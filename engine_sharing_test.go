package goVault

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"github.com/MrEthical07/goVault/shamir"
)

func TestSplitAndCombineSecret(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	secret := []byte("correct horse battery staple")

	shares, err := engine.SplitSecret(secret, 5, 3)
	if err != nil {
		t.Fatalf("SplitSecret: %v", err)
	}
	got, err := engine.CombineSecret([]string{shares[4].Payload, shares[0].Payload, shares[2].Payload})
	if err != nil {
		t.Fatalf("CombineSecret: %v", err)
	}
	if !bytes.Equal(got, secret) {
		t.Fatalf("expected %q, got %q", secret, got)
	}

	if _, err := engine.SplitSecret(secret, 3, 4); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for k > n, got %v", err)
	}
	if _, err := engine.CombineSecret([]string{shares[0].Payload}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for one share, got %v", err)
	}
	if n := engine.MetricsSnapshot().Counters[MetricSecretSplit]; n != 1 {
		t.Fatalf("expected one split counted, got %d", n)
	}
}

func TestCreateSocialRecovery(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	guardians := []shamir.Guardian{
		{Name: "ana"}, {Name: "ben"}, {Name: "cy"}, {Name: "dee"}, {Name: "eli"},
	}

	rec, err := engine.CreateSocialRecovery([]byte("seed"), guardians, 0)
	if err != nil {
		t.Fatalf("CreateSocialRecovery: %v", err)
	}
	if rec.Threshold != 3 || rec.SecurityLevel != shamir.SecurityMedium {
		t.Fatalf("expected default 3-of-5 medium, got %d %s", rec.Threshold, rec.SecurityLevel)
	}

	payloads := []string{rec.Assignments[1].Share.Payload, rec.Assignments[3].Share.Payload, rec.Assignments[4].Share.Payload}
	got, err := engine.CombineSecret(payloads)
	if err != nil || string(got) != "seed" {
		t.Fatalf("expected guardians to recover the seed, got %q err=%v", got, err)
	}
}

func TestEngineCommitmentsAreReady(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ce := engine.Commitments()
	if ce == nil || !ce.Ready() {
		t.Fatal("expected an initialised commitment engine")
	}

	proof, err := ce.ProveAboveThreshold(big.NewInt(1500), big.NewInt(1000))
	if err != nil {
		t.Fatalf("ProveAboveThreshold: %v", err)
	}
	if !ce.VerifyBalanceProof(proof) {
		t.Fatal("expected proof to verify")
	}
}
