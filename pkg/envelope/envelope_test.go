package envelope

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

type testToken struct {
	Tx     string `json:"tx"`
	Amount int64  `json:"amount"`
}

func TestSerialize_Format(t *testing.T) {
	s, err := Serialize(testToken{Tx: "blob", Amount: 2000})
	if err != nil {
		t.Fatalf("Serialize() error: %v", err)
	}
	if !strings.HasPrefix(s, Prefix) {
		t.Errorf("envelope %q missing prefix %q", s, Prefix)
	}
	body := s[len(Prefix):]
	sum := body[len(body)-5:]
	for _, c := range sum {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Errorf("checksum %q contains non-hex char %q", sum, c)
		}
	}
	if strings.ContainsAny(body[:len(body)-5], "+/=") {
		t.Error("payload must be base64url without padding")
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   testToken
	}{
		{"simple", testToken{Tx: "abc", Amount: 1}},
		{"empty tx", testToken{Tx: "", Amount: 0}},
		{"large amount", testToken{Tx: strings.Repeat("x", 512), Amount: 1 << 40}},
		{"unicode", testToken{Tx: "pago en la habana ñ", Amount: 5000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Serialize(tt.in)
			if err != nil {
				t.Fatalf("Serialize() error: %v", err)
			}
			var out testToken
			if err := Deserialize(s, &out); err != nil {
				t.Fatalf("Deserialize() error: %v", err)
			}
			if !reflect.DeepEqual(out, tt.in) {
				t.Errorf("round trip = %+v, want %+v", out, tt.in)
			}
		})
	}
}

func TestRoundTrip_GenericObject(t *testing.T) {
	in := map[string]interface{}{
		"tx":     "payload",
		"amount": float64(2000),
	}
	s, err := Serialize(in)
	if err != nil {
		t.Fatalf("Serialize() error: %v", err)
	}
	var out map[string]interface{}
	if err := Deserialize(s, &out); err != nil {
		t.Fatalf("Deserialize() error: %v", err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Errorf("round trip = %v, want %v", out, in)
	}
}

// mutate flips the character at position i to a different envelope-legal
// character, preserving length.
func mutate(s string, i int) string {
	replacement := byte('A')
	if s[i] == 'A' {
		replacement = 'B'
	}
	return s[:i] + string(replacement) + s[i+1:]
}

func TestDeserialize_TamperDetection(t *testing.T) {
	s, err := Serialize(testToken{Tx: "tamper-me", Amount: 1234})
	if err != nil {
		t.Fatalf("Serialize() error: %v", err)
	}

	// Sample positions across the payload and checksum segments. Every
	// position after the prefix is covered by the checksum.
	positions := []int{len(Prefix), len(Prefix) + 1, len(s) - 6, len(s) - 5, len(s) - 1}
	for i := len(Prefix) + 2; i < len(s)-6; i += 7 {
		positions = append(positions, i)
	}

	for _, i := range positions {
		var out testToken
		err := Deserialize(mutate(s, i), &out)
		if err == nil {
			t.Errorf("Deserialize() accepted envelope tampered at position %d", i)
			continue
		}
		if !errors.Is(err, ErrCorrupt) {
			t.Errorf("tamper at %d: error = %v, want ErrCorrupt", i, err)
		}
	}
}

func TestDeserialize_BadInput(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"wrong prefix", "HiveDash" + strings.Repeat("a", 20)},
		{"prefix only", Prefix},
		{"too short for checksum", Prefix + "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out testToken
			err := Deserialize(tt.in, &out)
			if !errors.Is(err, ErrCorrupt) {
				t.Errorf("Deserialize(%q) error = %v, want ErrCorrupt", tt.in, err)
			}
		})
	}
}

func TestDeserialize_StrictFields(t *testing.T) {
	s, err := Serialize(map[string]interface{}{"tx": "x", "amount": 1, "extra": true})
	if err != nil {
		t.Fatalf("Serialize() error: %v", err)
	}
	var out testToken
	if err := Deserialize(s, &out); !errors.Is(err, ErrCorrupt) {
		t.Errorf("unknown field should be rejected, got %v", err)
	}
}
