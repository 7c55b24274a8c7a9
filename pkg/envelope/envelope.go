// Package envelope implements the compact HiveCash transport encoding used
// for single-shot QR/NFC payloads.
//
// Wire format: "HiveCash" + base64url(JSON, no padding) + 5-hex-char checksum.
// The checksum is the tail of the scrypt digest of the base64 payload. It
// detects corruption in transit; it is not a MAC and carries no authenticity
// guarantee, since no secret key is involved.
package envelope

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hivecuba/hivecash/pkg/crypto"
)

// Prefix is the fixed ASCII marker every envelope starts with.
const Prefix = "HiveCash"

const checksumLen = 5

// ErrCorrupt is returned when an envelope fails prefix, checksum, or
// payload validation.
var ErrCorrupt = errors.New("envelope corrupt")

// checksum returns the last 5 hex characters of the stretch digest of the
// encoded payload.
func checksum(payload string) (string, error) {
	digest, err := crypto.Stretch(payload)
	if err != nil {
		return "", fmt.Errorf("checksum: %w", err)
	}
	return digest[len(digest)-checksumLen:], nil
}

// Serialize encodes v into a checksummed transport envelope.
func Serialize(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(data)
	sum, err := checksum(payload)
	if err != nil {
		return "", err
	}
	return Prefix + payload + sum, nil
}

// Deserialize verifies and decodes an envelope into v. The payload JSON is
// decoded strictly: unknown fields are rejected, so a malformed or
// mislabeled payload fails loudly instead of being half-accepted.
func Deserialize(s string, v interface{}) error {
	body, ok := cutPrefix(s)
	if !ok {
		return fmt.Errorf("%w: missing %q prefix", ErrCorrupt, Prefix)
	}
	if len(body) <= checksumLen {
		return fmt.Errorf("%w: truncated payload", ErrCorrupt)
	}

	payload := body[:len(body)-checksumLen]
	sum := body[len(body)-checksumLen:]

	want, err := checksum(payload)
	if err != nil {
		return err
	}
	if sum != want {
		return fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	data, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("%w: invalid base64 payload", ErrCorrupt)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid payload: %v", ErrCorrupt, err)
	}
	return nil
}

func cutPrefix(s string) (string, bool) {
	if len(s) < len(Prefix) || s[:len(Prefix)] != Prefix {
		return "", false
	}
	return s[len(Prefix):], true
}
