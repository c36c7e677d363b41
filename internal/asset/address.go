package asset

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// XRPL uses its own base58 dictionary; classic addresses start with 'r'.
var rippleAlphabet = base58.NewAlphabet("rpshnaf39wBUDNEGHJKLM4PQRST7VWXYZ2bcdeCg65jkm8oFqi1tuvAxyz")

// accountIDPrefix is the type byte for account addresses.
const accountIDPrefix = 0x00

// DecodeAccountID decodes a classic address to its 20-byte account ID,
// verifying the double-sha256 checksum.
func DecodeAccountID(address string) ([]byte, error) {
	decoded, err := base58.DecodeAlphabet(address, rippleAlphabet)
	if err != nil {
		return nil, fmt.Errorf("address %q: %w", address, err)
	}
	// type byte + 20-byte account ID + 4-byte checksum
	if len(decoded) != 25 {
		return nil, fmt.Errorf("address %q: unexpected payload length %d", address, len(decoded))
	}
	if decoded[0] != accountIDPrefix {
		return nil, fmt.Errorf("address %q: not an account address", address)
	}

	payload, checksum := decoded[:21], decoded[21:]
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	if !bytes.Equal(second[:4], checksum) {
		return nil, fmt.Errorf("address %q: checksum mismatch", address)
	}

	return payload[1:], nil
}

// IsValidAddress reports whether address is a well-formed classic account
// address.
func IsValidAddress(address string) bool {
	_, err := DecodeAccountID(address)
	return err == nil
}
