package wallet

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Phrase encryption constants.
// Encrypted format: [salt(32)][memory(4)][iterations(4)][parallelism(1)][nonce(24)][ciphertext...]
const (
	phraseSaltSize   = 32
	phraseHeaderSize = phraseSaltSize + 4 + 4 + 1
)

// phraseKDFParams holds the Argon2id parameters stored alongside each
// encrypted phrase, so old records stay decryptable if defaults change.
type phraseKDFParams struct {
	memory      uint32 // in KiB
	iterations  uint32
	parallelism uint8
}

func defaultPhraseKDFParams() phraseKDFParams {
	return phraseKDFParams{
		memory:      64 * 1024, // 64 MB
		iterations:  3,
		parallelism: 4,
	}
}

func derivePhraseKey(password, salt []byte, params phraseKDFParams) []byte {
	return argon2.IDKey(
		password,
		salt,
		params.iterations,
		params.memory,
		params.parallelism,
		chacha20poly1305.KeySize,
	)
}

// EncryptPhrase encrypts a recovery phrase with a password using
// Argon2id + XChaCha20-Poly1305, for storage at rest.
func EncryptPhrase(phrase, password string) ([]byte, error) {
	params := defaultPhraseKDFParams()

	salt := make([]byte, phraseSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	key := derivePhraseKey([]byte(password), salt, params)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, []byte(phrase), nil)

	out := make([]byte, 0, phraseHeaderSize+len(nonce)+len(ciphertext))
	out = append(out, salt...)
	out = binary.LittleEndian.AppendUint32(out, params.memory)
	out = binary.LittleEndian.AppendUint32(out, params.iterations)
	out = append(out, params.parallelism)
	out = append(out, nonce...)
	out = append(out, ciphertext...)

	for i := range key {
		key[i] = 0
	}

	return out, nil
}

// DecryptPhrase decrypts a phrase record produced by EncryptPhrase. A
// wrong password fails the AEAD open.
func DecryptPhrase(encrypted []byte, password string) (string, error) {
	nonceSize := chacha20poly1305.NonceSizeX
	minSize := phraseHeaderSize + nonceSize + chacha20poly1305.Overhead
	if len(encrypted) < minSize {
		return "", fmt.Errorf("encrypted phrase too short: %d bytes, need at least %d", len(encrypted), minSize)
	}

	salt := encrypted[:phraseSaltSize]
	params := phraseKDFParams{
		memory:      binary.LittleEndian.Uint32(encrypted[phraseSaltSize:]),
		iterations:  binary.LittleEndian.Uint32(encrypted[phraseSaltSize+4:]),
		parallelism: encrypted[phraseSaltSize+8],
	}

	nonce := encrypted[phraseHeaderSize : phraseHeaderSize+nonceSize]
	ciphertext := encrypted[phraseHeaderSize+nonceSize:]

	key := derivePhraseKey([]byte(password), salt, params)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		for i := range key {
			key[i] = 0
		}
		return "", fmt.Errorf("create cipher: %w", err)
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)

	for i := range key {
		key[i] = 0
	}

	if err != nil {
		return "", fmt.Errorf("decrypt phrase: %w", err)
	}

	return string(plaintext), nil
}
