// Package asset decodes XRPL currency codes and validates account
// addresses.
package asset

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"
)

// XRP is the symbol used for the native asset.
const XRP = "XRP"

// hexCurrencyLen is the length of a 160-bit currency code in hex.
const hexCurrencyLen = 40

// DecodeCurrencySymbol turns an XRPL currency code into a display symbol.
// Standard three-character codes pass through unchanged; 160-bit codes are
// hex-decoded with trailing NUL padding stripped. Malformed hex, interior
// NUL bytes, or invalid UTF-8 are data-quality errors.
func DecodeCurrencySymbol(currency string) (string, error) {
	if len(currency) != hexCurrencyLen {
		return currency, nil
	}

	raw, err := hex.DecodeString(currency)
	if err != nil {
		return "", fmt.Errorf("currency %q: %w", currency, err)
	}

	symbol := strings.TrimRight(string(raw), "\x00")
	if symbol == "" {
		return "", fmt.Errorf("currency %q: empty after padding strip", currency)
	}
	if strings.ContainsRune(symbol, 0) {
		return "", fmt.Errorf("currency %q: interior NUL byte", currency)
	}
	if !utf8.ValidString(symbol) {
		return "", fmt.Errorf("currency %q: invalid UTF-8", currency)
	}
	return symbol, nil
}
