package wallet

import (
	"encoding/hex"
	"fmt"

	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"

	"github.com/hivecuba/hivecash/pkg/crypto"
)

// Derivation path constants. Full path: m/44'/0'/0'/0/<index> — only the
// leaf index varies, so a fixed phrase maps each index to exactly one
// secret.
const (
	purposeBIP44 = bip32.FirstHardenedChild + 44
	coinType     = bip32.FirstHardenedChild + 0
	account      = bip32.FirstHardenedChild + 0
	external     = 0
)

// Deriver maps derivation indices to secret hashes for one recovery
// phrase. The phrase is validated once at construction; derivation itself
// is pure and performs no I/O.
type Deriver struct {
	chain *bip32.Key // parent of all leaf keys: m/44'/0'/0'/0
}

// NewDeriver validates the phrase and precomputes the external chain key.
func NewDeriver(phrase string) (*Deriver, error) {
	if !ValidateMnemonic(phrase) {
		return nil, ErrInvalidPhrase
	}
	seed := bip39.NewSeed(phrase, "")
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}

	chain := master
	for _, idx := range []uint32{purposeBIP44, coinType, account, external} {
		chain, err = chain.NewChildKey(idx)
		if err != nil {
			return nil, fmt.Errorf("derive chain key: %w", err)
		}
	}
	return &Deriver{chain: chain}, nil
}

// PrivateKeyHex returns the hex-encoded 32-byte private key at the given
// leaf index. This encoded form is the spend secret revealed to the mint
// inside a transfer envelope.
func (d *Deriver) PrivateKeyHex(index uint32) (string, error) {
	leaf, err := d.chain.NewChildKey(index)
	if err != nil {
		return "", fmt.Errorf("derive index %d: %w", index, err)
	}
	raw := leaf.Key
	// bip32 private keys may carry a leading 0x00 pad byte.
	if len(raw) == 33 && raw[0] == 0 {
		raw = raw[1:]
	}
	return hex.EncodeToString(raw), nil
}

// SecretHash returns the stretched secret hash at the given index: the
// public coin-slot identifier registered with the mint.
func (d *Deriver) SecretHash(index uint32) (string, error) {
	key, err := d.PrivateKeyHex(index)
	if err != nil {
		return "", err
	}
	hash, err := crypto.Stretch(key)
	if err != nil {
		return "", fmt.Errorf("stretch index %d: %w", index, err)
	}
	return hash, nil
}
