// Package address validates destination account addresses against the two
// checksum-prefix families a network accepts: the network's own prefix and
// the generic Substrate prefix.
package address

import "strings"

// Kind labels which accepted prefix family an address belongs to.
type Kind string

const (
	KindPrimary Kind = "primary"
	KindLegacy  Kind = "legacy"
)

// Codec decodes an address into a raw public key and re-encodes a key under a
// network prefix. Implemented by internal/ss58.
type Codec interface {
	Decode(address string) (prefix uint16, pubkey []byte, err error)
	Encode(pubkey []byte, prefix uint16) (string, error)
}

// Result is the outcome of a single address validation.
type Result struct {
	Valid bool
	Kind  Kind
	Err   string
}

// Validator checks addresses against a primary and a legacy prefix.
type Validator struct {
	codec   Codec
	primary uint16
	legacy  uint16
}

func NewValidator(codec Codec, primaryPrefix, legacyPrefix uint16) *Validator {
	return &Validator{codec: codec, primary: primaryPrefix, legacy: legacyPrefix}
}

// Validate reports whether the address is a correctly checksummed encoding
// under either accepted prefix. Surrounding whitespace is tolerated. This
// never panics on malformed input.
func (v *Validator) Validate(addr string) Result {
	if addr == "" {
		return Result{Err: "address is required"}
	}
	trimmed := strings.TrimSpace(addr)
	if trimmed == "" {
		return Result{Err: "address cannot be empty"}
	}

	_, pubkey, err := v.codec.Decode(trimmed)
	if err != nil {
		return Result{Err: "invalid address format"}
	}

	// Accept only exact re-encodings: a checksum that verifies under some
	// third prefix is not a valid address for this network.
	for _, candidate := range []struct {
		prefix uint16
		kind   Kind
	}{
		{v.primary, KindPrimary},
		{v.legacy, KindLegacy},
	} {
		encoded, err := v.codec.Encode(pubkey, candidate.prefix)
		if err == nil && encoded == trimmed {
			return Result{Valid: true, Kind: candidate.kind}
		}
	}

	return Result{Err: "invalid address format"}
}

// Classify returns the matched prefix and kind for a valid address, used for
// ingest statistics. The second return is false when the address does not
// validate.
func (v *Validator) Classify(addr string) (uint16, Kind, bool) {
	res := v.Validate(addr)
	if !res.Valid {
		return 0, "", false
	}
	if res.Kind == KindPrimary {
		return v.primary, KindPrimary, true
	}
	return v.legacy, KindLegacy, true
}
