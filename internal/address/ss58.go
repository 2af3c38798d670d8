package address

import "tokendrip/internal/ss58"

type ss58Codec struct{}

func (ss58Codec) Decode(address string) (uint16, []byte, error) {
	return ss58.Decode(address)
}

func (ss58Codec) Encode(pubkey []byte, prefix uint16) (string, error) {
	return ss58.Encode(pubkey, prefix)
}

// NewSS58Validator builds a Validator backed by the SS58 codec.
func NewSS58Validator(primaryPrefix, legacyPrefix uint16) *Validator {
	return NewValidator(ss58Codec{}, primaryPrefix, legacyPrefix)
}
