// Package crypto provides the cryptographic primitives of the HiveCash
// transfer protocol.
package crypto

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// Key-stretching parameters. These are fixed protocol constants: the mint
// derives the same digests, so they must never change.
const (
	stretchSalt = "HiveCash"
	stretchN    = 16384
	stretchR    = 8
	stretchP    = 1
	stretchLen  = 32
)

// Stretch derives a hex digest from the input using scrypt with the fixed
// application salt. It is deterministic: the same input always yields the
// same digest. Used both for secret-hash derivation and as the compact
// envelope checksum primitive.
func Stretch(input string) (string, error) {
	dk, err := scrypt.Key([]byte(input), []byte(stretchSalt), stretchN, stretchR, stretchP, stretchLen)
	if err != nil {
		return "", fmt.Errorf("scrypt: %w", err)
	}
	return hex.EncodeToString(dk), nil
}
