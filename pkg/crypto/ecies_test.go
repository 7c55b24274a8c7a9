package crypto

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

func newRecipient(t *testing.T) (*secp256k1.PrivateKey, string) {
	t.Helper()
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey() error: %v", err)
	}
	return priv, hex.EncodeToString(priv.PubKey().SerializeCompressed())
}

func TestEncryptToMint_RoundTrip(t *testing.T) {
	priv, pubHex := newRecipient(t)

	plaintext := `{"in":[["c2VjcmV0"]],"ch":["Y2hhbmdl"],"payamount":2000,"version":1}`
	blob, err := EncryptToMint(plaintext, pubHex)
	if err != nil {
		t.Fatalf("EncryptToMint() error: %v", err)
	}

	got, err := Decrypt(blob, priv)
	if err != nil {
		t.Fatalf("Decrypt() error: %v", err)
	}
	if got != plaintext {
		t.Errorf("Decrypt() = %q, want %q", got, plaintext)
	}
}

func TestEncryptToMint_EphemeralPerCall(t *testing.T) {
	_, pubHex := newRecipient(t)

	b1, err := EncryptToMint("same message", pubHex)
	if err != nil {
		t.Fatalf("EncryptToMint() error: %v", err)
	}
	b2, err := EncryptToMint("same message", pubHex)
	if err != nil {
		t.Fatalf("EncryptToMint() error: %v", err)
	}
	if b1 == b2 {
		t.Error("two encryptions of the same plaintext must differ (fresh ephemeral key and nonce)")
	}
}

func TestEncryptToMint_BlobStructure(t *testing.T) {
	_, pubHex := newRecipient(t)

	blob, err := EncryptToMint("hello", pubHex)
	if err != nil {
		t.Fatalf("EncryptToMint() error: %v", err)
	}

	data, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		t.Fatalf("blob is not valid base64: %v", err)
	}
	var fields map[string]string
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("blob does not wrap JSON: %v", err)
	}
	for _, name := range []string{"ephemeral_public", "iv", "ciphertext", "tag"} {
		if _, ok := fields[name]; !ok {
			t.Errorf("blob missing field %q", name)
		}
	}

	eph, err := base64.StdEncoding.DecodeString(fields["ephemeral_public"])
	if err != nil || len(eph) != 33 {
		t.Errorf("ephemeral_public should be a 33-byte compressed point, got %d bytes (err %v)", len(eph), err)
	}
	iv, _ := base64.StdEncoding.DecodeString(fields["iv"])
	if len(iv) != 12 {
		t.Errorf("iv length = %d, want 12", len(iv))
	}
	tag, _ := base64.StdEncoding.DecodeString(fields["tag"])
	if len(tag) != 16 {
		t.Errorf("tag length = %d, want 16", len(tag))
	}
}

func TestDecrypt_TamperFailsClosed(t *testing.T) {
	priv, pubHex := newRecipient(t)

	blob, err := EncryptToMint("untampered payload", pubHex)
	if err != nil {
		t.Fatalf("EncryptToMint() error: %v", err)
	}

	data, _ := base64.StdEncoding.DecodeString(blob)
	var cb map[string]string
	json.Unmarshal(data, &cb)

	tamper := func(field string) string {
		raw, _ := base64.StdEncoding.DecodeString(cb[field])
		raw[0] ^= 0x01
		mutated := map[string]string{}
		for k, v := range cb {
			mutated[k] = v
		}
		mutated[field] = base64.StdEncoding.EncodeToString(raw)
		out, _ := json.Marshal(mutated)
		return base64.StdEncoding.EncodeToString(out)
	}

	for _, field := range []string{"ciphertext", "tag", "iv"} {
		if _, err := Decrypt(tamper(field), priv); err == nil {
			t.Errorf("Decrypt() accepted tampered %s", field)
		}
	}
}

func TestEncryptToMint_BadRecipientKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"not hex", "zz133ffe"},
		{"truncated point", "0213"},
		{"invalid point", strings.Repeat("00", 33)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EncryptToMint("x", tt.key); err == nil {
				t.Error("EncryptToMint() should reject bad recipient key")
			}
		})
	}
}
