package model

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// Amount is an exact minor-unit token amount. It serializes as a decimal
// string so arbitrary-precision values survive JSON round trips; a bare JSON
// number would go through float64 and corrupt anything above 2^53.
type Amount struct {
	big.Int
}

// NewAmount copies v into a fresh Amount. A nil v yields zero.
func NewAmount(v *big.Int) *Amount {
	a := &Amount{}
	if v != nil {
		a.Set(v)
	}
	return a
}

// NewAmountFromUint64 builds an Amount from a uint64.
func NewAmountFromUint64(v uint64) *Amount {
	a := &Amount{}
	a.SetUint64(v)
	return a
}

// BigInt returns a copy of the underlying integer.
func (a *Amount) BigInt() *big.Int {
	if a == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(&a.Int)
}

// MarshalJSON encodes the amount as a quoted decimal string.
func (a *Amount) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte(`"0"`), nil
	}
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a quoted decimal string. Bare JSON integers are
// accepted for hand-edited snapshots but are never produced.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if err := json.Unmarshal(data, &s); err != nil {
		s = string(data)
	}
	if _, ok := a.SetString(s, 10); !ok {
		return fmt.Errorf("invalid amount %q", s)
	}
	return nil
}
