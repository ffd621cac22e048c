package shamir

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/MrEthical07/goVault/internal"
	"github.com/MrEthical07/goVault/internal/kinds"
	"github.com/awnumar/memguard"
)

const (
	MinShares = 2
	MaxShares = 255
)

// Share is one of the n pieces produced by [Split].
type Share struct {
	Index       int    `json:"index"`
	Payload     string `json:"payload"`
	Threshold   int    `json:"threshold"`
	TotalShares int    `json:"totalShares"`
}

// Split divides secret into n shares, any k of which reconstruct it. Coefficients
// come from crypto/rand.
func Split(secret []byte, n, k int) ([]Share, error) {
	return SplitWithRandom(secret, n, k, rand.Reader)
}

// SplitWithRandom is [Split] with an explicit randomness source.
func SplitWithRandom(secret []byte, n, k int, random io.Reader) ([]Share, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: empty secret", kinds.ErrInvalidInput)
	}
	if n < MinShares || n > MaxShares {
		return nil, fmt.Errorf("%w: share count %d outside [%d, %d]", kinds.ErrInvalidInput, n, MinShares, MaxShares)
	}
	if k < MinShares || k > n {
		return nil, fmt.Errorf("%w: threshold %d outside [%d, %d]", kinds.ErrInvalidInput, k, MinShares, n)
	}

	// Row b of coeffs holds the k-1 random higher-order coefficients for secret byte b.
	degree := k - 1
	coeffs, err := internal.RandomBytes(random, len(secret)*degree)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kinds.ErrInternal, err)
	}
	defer memguard.WipeBytes(coeffs)

	poly := make([]byte, k)
	defer memguard.WipeBytes(poly)

	raw := make([][]byte, n)
	for i := range raw {
		raw[i] = make([]byte, 1+len(secret))
		raw[i][0] = byte(i + 1)
	}

	for b, s := range secret {
		poly[0] = s
		copy(poly[1:], coeffs[b*degree:(b+1)*degree])
		for i := 0; i < n; i++ {
			raw[i][1+b] = evaluate(poly, byte(i+1))
		}
	}

	shares := make([]Share, n)
	for i := range raw {
		shares[i] = Share{
			Index:       i + 1,
			Payload:     base64.StdEncoding.EncodeToString(raw[i]),
			Threshold:   k,
			TotalShares: n,
		}
		memguard.WipeBytes(raw[i])
	}
	return shares, nil
}

// Combine interpolates the secret at x = 0 from share payloads. It requires at
// least two payloads of equal length with distinct indices. It cannot tell whether
// enough shares were supplied.
func Combine(payloads []string) ([]byte, error) {
	if len(payloads) < MinShares {
		return nil, fmt.Errorf("%w: need at least %d shares, got %d", kinds.ErrInvalidInput, MinShares, len(payloads))
	}

	decoded := make([][]byte, len(payloads))
	defer func() {
		for _, d := range decoded {
			memguard.WipeBytes(d)
		}
	}()

	xs := make([]byte, len(payloads))
	seen := make(map[byte]struct{}, len(payloads))
	for i, p := range payloads {
		raw, err := base64.StdEncoding.DecodeString(p)
		if err != nil {
			return nil, fmt.Errorf("%w: share %d is not base64", kinds.ErrInvalidInput, i)
		}
		decoded[i] = raw
		if len(raw) < 2 {
			return nil, fmt.Errorf("%w: share %d too short", kinds.ErrInvalidInput, i)
		}
		if len(raw) != len(decoded[0]) {
			return nil, fmt.Errorf("%w: share %d length differs", kinds.ErrInvalidInput, i)
		}
		x := raw[0]
		if x == 0 {
			return nil, fmt.Errorf("%w: share %d has index 0", kinds.ErrInvalidInput, i)
		}
		if _, dup := seen[x]; dup {
			return nil, fmt.Errorf("%w: duplicate share index %d", kinds.ErrInvalidInput, x)
		}
		seen[x] = struct{}{}
		xs[i] = x
	}

	// basis[i] is the Lagrange basis polynomial of share i evaluated at 0.
	basis := make([]byte, len(xs))
	for i, xi := range xs {
		l := byte(1)
		for j, xj := range xs {
			if i == j {
				continue
			}
			l = gfMul(l, gfDiv(xj, gfAdd(xj, xi)))
		}
		basis[i] = l
	}

	secret := make([]byte, len(decoded[0])-1)
	for b := range secret {
		var acc byte
		for i, raw := range decoded {
			acc = gfAdd(acc, gfMul(raw[1+b], basis[i]))
		}
		secret[b] = acc
	}
	return secret, nil
}

// CombineShares is [Combine] over Share values.
func CombineShares(shares []Share) ([]byte, error) {
	payloads := make([]string, len(shares))
	for i, s := range shares {
		payloads[i] = s.Payload
	}
	return Combine(payloads)
}

// SplitString splits a UTF-8 secret such as a mnemonic phrase.
func SplitString(secret string, n, k int) ([]Share, error) {
	raw := []byte(secret)
	defer memguard.WipeBytes(raw)
	return Split(raw, n, k)
}

// CombineString reverses [SplitString].
func CombineString(payloads []string) (string, error) {
	raw, err := Combine(payloads)
	if err != nil {
		return "", err
	}
	defer memguard.WipeBytes(raw)
	return string(raw), nil
}
