// Package ss58 implements the SS58 address codec used by Substrate chains:
// base58(prefix || pubkey || checksum) where the checksum is the first two
// bytes of blake2b-512 over "SS58PRE" || prefix || pubkey.
package ss58

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

const (
	// AccountIDLength is the raw public key length for AccountId32 addresses.
	AccountIDLength = 32

	checksumLength = 2
	maxPrefix      = 16383
)

var checksumPreamble = []byte("SS58PRE")

var (
	ErrInvalidAddress  = errors.New("invalid ss58 address")
	ErrInvalidChecksum = errors.New("invalid ss58 checksum")
)

// Encode renders a 32-byte public key as an SS58 address under the given
// network prefix.
func Encode(pubkey []byte, prefix uint16) (string, error) {
	if len(pubkey) != AccountIDLength {
		return "", fmt.Errorf("%w: public key must be %d bytes, got %d", ErrInvalidAddress, AccountIDLength, len(pubkey))
	}
	if prefix > maxPrefix {
		return "", fmt.Errorf("%w: prefix %d out of range", ErrInvalidAddress, prefix)
	}

	var payload []byte
	if prefix < 64 {
		payload = append(payload, byte(prefix))
	} else {
		// Two-byte prefix form per the SS58 registry.
		first := byte((prefix&0b0000_0000_1111_1100)>>2) | 0b0100_0000
		second := byte(prefix>>8) | byte(prefix&0b11)<<6
		payload = append(payload, first, second)
	}
	payload = append(payload, pubkey...)
	payload = append(payload, checksum(payload)...)

	return base58.Encode(payload), nil
}

// Decode parses an SS58 address, verifies its checksum, and returns the
// network prefix and the 32-byte public key.
func Decode(address string) (uint16, []byte, error) {
	data, err := base58.Decode(address)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(data) < 1 {
		return 0, nil, fmt.Errorf("%w: empty payload", ErrInvalidAddress)
	}

	var prefix uint16
	var prefixLen int
	switch {
	case data[0] < 64:
		prefix = uint16(data[0])
		prefixLen = 1
	case data[0] < 128:
		if len(data) < 2 {
			return 0, nil, fmt.Errorf("%w: truncated prefix", ErrInvalidAddress)
		}
		lower := data[0]<<2 | data[1]>>6
		upper := data[1] & 0b0011_1111
		prefix = uint16(lower) | uint16(upper)<<8
		prefixLen = 2
	default:
		return 0, nil, fmt.Errorf("%w: reserved prefix byte %d", ErrInvalidAddress, data[0])
	}

	if len(data) != prefixLen+AccountIDLength+checksumLength {
		return 0, nil, fmt.Errorf("%w: unexpected payload length %d", ErrInvalidAddress, len(data))
	}

	body := data[:len(data)-checksumLength]
	want := data[len(data)-checksumLength:]
	if !bytes.Equal(checksum(body), want) {
		return 0, nil, ErrInvalidChecksum
	}

	pubkey := make([]byte, AccountIDLength)
	copy(pubkey, data[prefixLen:prefixLen+AccountIDLength])
	return prefix, pubkey, nil
}

func checksum(body []byte) []byte {
	h := blake2b.Sum512(append(append([]byte{}, checksumPreamble...), body...))
	return h[:checksumLength]
}
