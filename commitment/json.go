package commitment

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/MrEthical07/goVault/internal/kinds"
)

type proofJSON struct {
	Commitment string    `json:"commitment"`
	Blinding   string    `json:"blinding"`
	Threshold  string    `json:"threshold"`
	Timestamp  time.Time `json:"timestamp"`
}

type publicSignalsJSON struct {
	AboveThreshold bool   `json:"aboveThreshold"`
	Threshold      string `json:"threshold"`
	CommitmentHash string `json:"commitmentHash"`
}

type commitmentJSON struct {
	Commitment string    `json:"commitment"`
	Blinding   string    `json:"blinding"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (p Proof) MarshalJSON() ([]byte, error) {
	return json.Marshal(proofJSON{
		Commitment: decimal(p.Commitment),
		Blinding:   decimal(p.Blinding),
		Threshold:  decimal(p.Threshold),
		Timestamp:  p.Timestamp,
	})
}

func (p *Proof) UnmarshalJSON(data []byte) error {
	var raw proofJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var err error
	if p.Commitment, err = parseDecimal("commitment", raw.Commitment); err != nil {
		return err
	}
	if p.Blinding, err = parseDecimal("blinding", raw.Blinding); err != nil {
		return err
	}
	if p.Threshold, err = parseDecimal("threshold", raw.Threshold); err != nil {
		return err
	}
	p.Timestamp = raw.Timestamp
	return nil
}

func (s PublicSignals) MarshalJSON() ([]byte, error) {
	return json.Marshal(publicSignalsJSON{
		AboveThreshold: s.AboveThreshold,
		Threshold:      decimal(s.Threshold),
		CommitmentHash: decimal(s.CommitmentHash),
	})
}

func (s *PublicSignals) UnmarshalJSON(data []byte) error {
	var raw publicSignalsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var err error
	if s.Threshold, err = parseDecimal("threshold", raw.Threshold); err != nil {
		return err
	}
	if s.CommitmentHash, err = parseDecimal("commitmentHash", raw.CommitmentHash); err != nil {
		return err
	}
	s.AboveThreshold = raw.AboveThreshold
	return nil
}

// BalanceProof uses the default struct encoding with lower-case keys.
func (b BalanceProof) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Proof         *Proof         `json:"proof"`
		PublicSignals *PublicSignals `json:"publicSignals"`
	}{b.Proof, b.PublicSignals})
}

func (b *BalanceProof) UnmarshalJSON(data []byte) error {
	var raw struct {
		Proof         *Proof         `json:"proof"`
		PublicSignals *PublicSignals `json:"publicSignals"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.Proof = raw.Proof
	b.PublicSignals = raw.PublicSignals
	return nil
}

func (c Commitment) MarshalJSON() ([]byte, error) {
	return json.Marshal(commitmentJSON{
		Commitment: decimal(c.Commitment),
		Blinding:   decimal(c.Blinding),
		CreatedAt:  c.CreatedAt,
	})
}

func (c *Commitment) UnmarshalJSON(data []byte) error {
	var raw commitmentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var err error
	if c.Commitment, err = parseDecimal("commitment", raw.Commitment); err != nil {
		return err
	}
	if c.Blinding, err = parseDecimal("blinding", raw.Blinding); err != nil {
		return err
	}
	c.CreatedAt = raw.CreatedAt
	return nil
}

func decimal(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}

// parseDecimal maps "" to nil so a missing field stays missing.
func parseDecimal(name, s string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a decimal integer", kinds.ErrInvalidInput, name)
	}
	return v, nil
}

// ParseElement parses a decimal field element and checks its range.
func ParseElement(s string) (*big.Int, error) {
	v, err := parseDecimal("value", s)
	if err != nil {
		return nil, err
	}
	if err := checkElement("value", v); err != nil {
		return nil, err
	}
	return v, nil
}
