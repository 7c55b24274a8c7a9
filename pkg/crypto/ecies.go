package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/hkdf"
)

// hkdfInfo is the fixed context label for symmetric key derivation.
// Protocol constant shared with the mint.
const hkdfInfo = "ecdh-encryption"

const gcmTagSize = 16

// cipherBlob is the self-contained encrypted payload structure.
// Field names are part of the wire format the mint decodes.
type cipherBlob struct {
	EphemeralPublic string `json:"ephemeral_public"`
	IV              string `json:"iv"`
	Ciphertext      string `json:"ciphertext"`
	Tag             string `json:"tag"`
}

// sharedSecret performs ECDH between priv and pub and returns the affine
// point coordinates X||Y (64 bytes). The uncompressed point without its
// format prefix is the HKDF input keying material the mint expects.
func sharedSecret(priv *secp256k1.PrivateKey, pub *secp256k1.PublicKey) []byte {
	var point, result secp256k1.JacobianPoint
	pub.AsJacobian(&point)
	secp256k1.ScalarMultNonConst(&priv.Key, &point, &result)
	result.ToAffine()

	x := result.X.Bytes()
	y := result.Y.Bytes()
	secret := make([]byte, 64)
	copy(secret[:32], x[:])
	copy(secret[32:], y[:])
	return secret
}

// deriveAESKey derives a 256-bit AES key from an ECDH shared secret using
// HKDF-SHA256 with the fixed context label and no salt.
func deriveAESKey(secret []byte) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("hkdf expand: %w", err)
	}
	return key, nil
}

// EncryptToMint encrypts plaintext to the holder of the given compressed
// secp256k1 public key (hex). A fresh ephemeral key pair is generated per
// call and discarded afterwards, giving per-message forward secrecy.
//
// Output: Base64(JSON{ephemeral_public, iv, ciphertext, tag}) with each
// inner field itself Base64-encoded.
func EncryptToMint(plaintext, recipientPubHex string) (string, error) {
	pubBytes, err := hex.DecodeString(recipientPubHex)
	if err != nil {
		return "", fmt.Errorf("decode recipient key: %w", err)
	}
	recipientPub, err := secp256k1.ParsePubKey(pubBytes)
	if err != nil {
		return "", fmt.Errorf("parse recipient key: %w", err)
	}

	ephemeral, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return "", fmt.Errorf("generate ephemeral key: %w", err)
	}

	key, err := deriveAESKey(sharedSecret(ephemeral, recipientPub))
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("create gcm: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	ciphertext := sealed[:len(sealed)-gcmTagSize]
	tag := sealed[len(sealed)-gcmTagSize:]

	blob := cipherBlob{
		EphemeralPublic: base64.StdEncoding.EncodeToString(ephemeral.PubKey().SerializeCompressed()),
		IV:              base64.StdEncoding.EncodeToString(nonce),
		Ciphertext:      base64.StdEncoding.EncodeToString(ciphertext),
		Tag:             base64.StdEncoding.EncodeToString(tag),
	}

	data, err := json.Marshal(blob)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Decrypt reverses EncryptToMint using the recipient's private key. In
// production this runs mint-side; the wallet carries it for tests and
// diagnostics. Any tamper with the ciphertext or tag fails closed.
func Decrypt(blob string, recipientPriv *secp256k1.PrivateKey) (string, error) {
	data, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("decode blob: %w", err)
	}
	var cb cipherBlob
	if err := json.Unmarshal(data, &cb); err != nil {
		return "", fmt.Errorf("parse blob: %w", err)
	}

	ephPubBytes, err := base64.StdEncoding.DecodeString(cb.EphemeralPublic)
	if err != nil {
		return "", fmt.Errorf("decode ephemeral key: %w", err)
	}
	ephPub, err := secp256k1.ParsePubKey(ephPubBytes)
	if err != nil {
		return "", fmt.Errorf("parse ephemeral key: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(cb.IV)
	if err != nil {
		return "", fmt.Errorf("decode iv: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(cb.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	tag, err := base64.StdEncoding.DecodeString(cb.Tag)
	if err != nil {
		return "", fmt.Errorf("decode tag: %w", err)
	}

	key, err := deriveAESKey(sharedSecret(recipientPriv, ephPub))
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("create gcm: %w", err)
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plain), nil
}
