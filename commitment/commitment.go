package commitment

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goVault/internal"
	"github.com/MrEthical07/goVault/internal/kinds"
	"github.com/awnumar/memguard"
	"github.com/iden3/go-iden3-crypto/poseidon"
)

const (
	// MaxInputs is the widest Poseidon instance in the circomlib parameter set.
	MaxInputs = 16

	DefaultMaxAge = time.Hour

	blindingBytes = 32
	elementBytes  = 32
)

// FieldModulus is the order p of the BN254 scalar field.
var FieldModulus, _ = new(big.Int).SetString("21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)

var (
	katInputs    = []*big.Int{big.NewInt(1), big.NewInt(2)}
	katDigest, _ = new(big.Int).SetString("7853200120776062878684798364095072458815029376092732009249414926327459813530", 10)
)

// Options configures an [Engine]. Zero values pick time.Now, crypto/rand and
// [DefaultMaxAge].
type Options struct {
	Now    func() time.Time
	Random io.Reader
	MaxAge time.Duration
}

// Engine computes and checks commitments. It is safe for concurrent use.
type Engine struct {
	now    func() time.Time
	random io.Reader
	maxAge time.Duration

	mu    sync.Mutex
	ready atomic.Bool
}

// Commitment hides an amount behind Blinding. The amount is not retained.
type Commitment struct {
	Commitment *big.Int
	Blinding   *big.Int
	CreatedAt  time.Time
}

// Proof is the prover's half of a [BalanceProof].
type Proof struct {
	Commitment *big.Int
	Blinding   *big.Int
	Threshold  *big.Int
	Timestamp  time.Time
}

// PublicSignals is what the prover asserts publicly.
type PublicSignals struct {
	AboveThreshold bool
	Threshold      *big.Int
	CommitmentHash *big.Int
}

// BalanceProof claims that a committed balance is at least Threshold.
type BalanceProof struct {
	Proof         *Proof
	PublicSignals *PublicSignals
}

func New(opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Random == nil {
		opts.Random = rand.Reader
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	return &Engine{
		now:    opts.Now,
		random: opts.Random,
		maxAge: opts.MaxAge,
	}
}

// Init checks the Poseidon implementation against a known answer. Repeated calls
// after success return nil immediately.
func (e *Engine) Init(ctx context.Context) error {
	if e.ready.Load() {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ready.Load() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	got, err := poseidon.Hash(katInputs)
	if err != nil {
		return fmt.Errorf("%w: poseidon self test: %v", kinds.ErrInternal, err)
	}
	if got.Cmp(katDigest) != 0 {
		return fmt.Errorf("%w: poseidon self test digest mismatch", kinds.ErrInternal)
	}
	e.ready.Store(true)
	return nil
}

// Ready reports whether [Engine.Init] has succeeded.
func (e *Engine) Ready() bool {
	return e != nil && e.ready.Load()
}

// ProveAboveThreshold commits to balance under a fresh blinding factor and asserts
// balance >= threshold. Both values must be field elements.
func (e *Engine) ProveAboveThreshold(balance, threshold *big.Int) (*BalanceProof, error) {
	if !e.Ready() {
		return nil, kinds.ErrNotInitialized
	}
	if err := checkElement("balance", balance); err != nil {
		return nil, err
	}
	if err := checkElement("threshold", threshold); err != nil {
		return nil, err
	}
	if balance.Cmp(threshold) < 0 {
		return nil, fmt.Errorf("%w: balance below threshold", kinds.ErrInvalidInput)
	}

	blinding, err := e.newBlinding()
	if err != nil {
		return nil, err
	}
	c, err := hash2(balance, blinding)
	if err != nil {
		return nil, err
	}

	return &BalanceProof{
		Proof: &Proof{
			Commitment: c,
			Blinding:   blinding,
			Threshold:  new(big.Int).Set(threshold),
			Timestamp:  e.now(),
		},
		PublicSignals: &PublicSignals{
			AboveThreshold: true,
			Threshold:      new(big.Int).Set(threshold),
			CommitmentHash: new(big.Int).Set(c),
		},
	}, nil
}

// VerifyBalanceProof accepts a proof whose public commitment hash matches its
// commitment, that asserts AboveThreshold, and that is no older than MaxAge.
func (e *Engine) VerifyBalanceProof(p *BalanceProof) bool {
	if !e.Ready() || p == nil || p.Proof == nil || p.PublicSignals == nil {
		return false
	}
	if !p.PublicSignals.AboveThreshold {
		return false
	}
	if p.Proof.Commitment == nil || p.PublicSignals.CommitmentHash == nil {
		return false
	}
	if p.PublicSignals.CommitmentHash.Cmp(p.Proof.Commitment) != 0 {
		return false
	}
	return e.now().Sub(p.Proof.Timestamp) <= e.maxAge
}

// Commit hides amount. A nil blinding draws a fresh one.
func (e *Engine) Commit(amount, blinding *big.Int) (*Commitment, error) {
	if !e.Ready() {
		return nil, kinds.ErrNotInitialized
	}
	if err := checkElement("amount", amount); err != nil {
		return nil, err
	}
	if blinding == nil {
		b, err := e.newBlinding()
		if err != nil {
			return nil, err
		}
		blinding = b
	} else {
		if err := checkElement("blinding", blinding); err != nil {
			return nil, err
		}
		blinding = new(big.Int).Set(blinding)
	}

	c, err := hash2(amount, blinding)
	if err != nil {
		return nil, err
	}
	return &Commitment{Commitment: c, Blinding: blinding, CreatedAt: e.now()}, nil
}

// Open reports whether commitment hides amount under blinding. The digests are
// compared in constant time. Out-of-range values open to false.
func (e *Engine) Open(commitment, amount, blinding *big.Int) (bool, error) {
	if !e.Ready() {
		return false, kinds.ErrNotInitialized
	}
	if checkElement("commitment", commitment) != nil || checkElement("amount", amount) != nil || checkElement("blinding", blinding) != nil {
		return false, nil
	}

	want, err := hash2(amount, blinding)
	if err != nil {
		return false, err
	}
	var a, b [elementBytes]byte
	want.FillBytes(a[:])
	commitment.FillBytes(b[:])
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1, nil
}

// PoseidonHash digests 1 to [MaxInputs] field elements.
func (e *Engine) PoseidonHash(inputs []*big.Int) (*big.Int, error) {
	if !e.Ready() {
		return nil, kinds.ErrNotInitialized
	}
	if len(inputs) == 0 || len(inputs) > MaxInputs {
		return nil, fmt.Errorf("%w: poseidon takes 1 to %d inputs, got %d", kinds.ErrInvalidInput, MaxInputs, len(inputs))
	}
	for i, in := range inputs {
		if err := checkElement(fmt.Sprintf("input %d", i), in); err != nil {
			return nil, err
		}
	}
	out, err := poseidon.Hash(inputs)
	if err != nil {
		return nil, fmt.Errorf("%w: poseidon: %v", kinds.ErrInternal, err)
	}
	return out, nil
}

// newBlinding draws 256 random bits and reduces them mod p.
func (e *Engine) newBlinding() (*big.Int, error) {
	raw, err := internal.RandomBytes(e.random, blindingBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kinds.ErrInternal, err)
	}
	defer memguard.WipeBytes(raw)

	b := new(big.Int).SetBytes(raw)
	return b.Mod(b, FieldModulus), nil
}

func hash2(a, b *big.Int) (*big.Int, error) {
	out, err := poseidon.Hash([]*big.Int{a, b})
	if err != nil {
		return nil, fmt.Errorf("%w: poseidon: %v", kinds.ErrInternal, err)
	}
	return out, nil
}

func checkElement(name string, v *big.Int) error {
	if v == nil {
		return fmt.Errorf("%w: %s missing", kinds.ErrInvalidInput, name)
	}
	if v.Sign() < 0 {
		return fmt.Errorf("%w: %s negative", kinds.ErrInvalidInput, name)
	}
	if v.Cmp(FieldModulus) >= 0 {
		return fmt.Errorf("%w: %s outside the field", kinds.ErrInvalidInput, name)
	}
	return nil
}
