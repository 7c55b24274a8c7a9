package wallet

import (
	"bytes"
	"testing"
)

func TestPhraseEncryptDecryptRoundTrip(t *testing.T) {
	encrypted, err := EncryptPhrase(testPhraseA, "correct horse")
	if err != nil {
		t.Fatalf("EncryptPhrase: %v", err)
	}

	got, err := DecryptPhrase(encrypted, "correct horse")
	if err != nil {
		t.Fatalf("DecryptPhrase: %v", err)
	}
	if got != testPhraseA {
		t.Fatalf("round trip = %q, want %q", got, testPhraseA)
	}
}

func TestPhraseWrongPasswordFails(t *testing.T) {
	encrypted, err := EncryptPhrase(testPhraseA, "correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecryptPhrase(encrypted, "battery staple"); err == nil {
		t.Fatal("wrong password accepted")
	}
}

func TestPhraseEncryptionIsSalted(t *testing.T) {
	a, err := EncryptPhrase(testPhraseA, "pw")
	if err != nil {
		t.Fatal(err)
	}
	b, err := EncryptPhrase(testPhraseA, "pw")
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("two encryptions of the same phrase are identical")
	}
}

func TestPhraseDecryptRejectsTruncated(t *testing.T) {
	encrypted, err := EncryptPhrase(testPhraseA, "pw")
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range []int{0, 10, phraseHeaderSize, len(encrypted) - 1} {
		if _, err := DecryptPhrase(encrypted[:n], "pw"); err == nil {
			t.Fatalf("accepted %d-byte record", n)
		}
	}
}

func TestPhraseDecryptRejectsTampered(t *testing.T) {
	encrypted, err := EncryptPhrase(testPhraseA, "pw")
	if err != nil {
		t.Fatal(err)
	}
	tampered := append([]byte(nil), encrypted...)
	tampered[len(tampered)-1] ^= 0x01
	if _, err := DecryptPhrase(tampered, "pw"); err == nil {
		t.Fatal("accepted tampered ciphertext")
	}
}
