package internal

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
)

const tokenIDSize = 16

// RandomBytes reads n bytes from r, falling back to crypto/rand when r is nil.
func RandomBytes(r io.Reader, n int) ([]byte, error) {
	if n <= 0 {
		return nil, errors.New("invalid random length")
	}
	if r == nil {
		r = rand.Reader
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("read random: %w", err)
	}
	return buf, nil
}

// NewTokenID returns a 128-bit identifier encoded as 32 lowercase hex characters.
func NewTokenID(r io.Reader) (string, error) {
	raw, err := RandomBytes(r, tokenIDSize)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// NewDigits returns a uniformly distributed decimal code of the given length,
// zero padded. Sampling is rejection based so no digit is favoured.
func NewDigits(r io.Reader, digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}
	if r == nil {
		r = rand.Reader
	}

	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(r, max)
	if err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}

	code := n.String()
	if len(code) < digits {
		code = strings.Repeat("0", digits-len(code)) + code
	}
	return code, nil
}

// NewUpperHex returns chars uppercase hexadecimal characters.
func NewUpperHex(r io.Reader, chars int) (string, error) {
	if chars <= 0 || chars%2 != 0 {
		return "", errors.New("invalid hex length")
	}
	raw, err := RandomBytes(r, chars/2)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(raw)), nil
}
