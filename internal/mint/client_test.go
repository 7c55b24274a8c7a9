package mint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestMint(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestGetSign(t *testing.T) {
	c := newTestMint(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/get_sign/abc123" {
			t.Errorf("path = %q", r.URL.Path)
		}
		writeJSON(w, SignResult{
			Signature: "sig",
			Amount:    5000,
			Status:    StatusPayed,
		})
	})

	res, err := c.GetSign(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("GetSign() error: %v", err)
	}
	if res.Signature != "sig" || res.Amount != 5000 || res.Status != StatusPayed {
		t.Errorf("GetSign() = %+v", res)
	}
}

func TestCheckDeposit(t *testing.T) {
	c := newTestMint(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]bool{"deposit_valid": true})
	})

	ok, err := c.CheckDeposit(context.Background(), "abc")
	if err != nil {
		t.Fatalf("CheckDeposit() error: %v", err)
	}
	if !ok {
		t.Error("CheckDeposit() = false, want true")
	}
}

func TestMintTokens(t *testing.T) {
	c := newTestMint(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["secret_hash"] != "hash1" || body["amount"] != float64(2500) {
			t.Errorf("request body = %v", body)
		}
		writeJSON(w, MintResult{
			Signature:  "sig",
			DepositURI: "hive://deposit",
			Memo:       "memo-xyz",
		})
	})

	res, err := c.MintTokens(context.Background(), "hash1", 2500)
	if err != nil {
		t.Fatalf("MintTokens() error: %v", err)
	}
	if res.DepositURI != "hive://deposit" || res.Memo != "memo-xyz" {
		t.Errorf("MintTokens() = %+v", res)
	}
}

func TestInternalTransfer_Success(t *testing.T) {
	c := newTestMint(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["tx"] == "" || body["payhash"] == "" {
			t.Errorf("request body missing fields: %v", body)
		}
		writeJSON(w, TransferResult{Status: "success", Message: "ok"})
	})

	res, err := c.InternalTransfer(context.Background(), "blob", "payhash1")
	if err != nil {
		t.Fatalf("InternalTransfer() error: %v", err)
	}
	if res.Status != "success" {
		t.Errorf("status = %q", res.Status)
	}
}

func TestInternalTransfer_LogicalRejection(t *testing.T) {
	// A 200 response with status "error" is a definitive rejection,
	// distinct from a transport failure.
	c := newTestMint(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, TransferResult{Status: "error", Message: "double spend"})
	})

	res, err := c.InternalTransfer(context.Background(), "blob", "payhash1")
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("error = %v, want ErrRejected", err)
	}
	if errors.Is(err, ErrUnavailable) {
		t.Error("rejection must not look like unavailability")
	}
	if res == nil || res.Message != "double spend" {
		t.Errorf("result = %+v, want rejection message preserved", res)
	}
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	c := New("http://127.0.0.1:1", 500*time.Millisecond) // nothing listening

	if _, err := c.GetSign(context.Background(), "x"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestHTTPErrorIsUnavailable(t *testing.T) {
	c := newTestMint(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
	})

	_, err := c.ExternalTransfer(context.Background(), "blob")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
	if errors.Is(err, ErrRejected) {
		t.Error("http failure must not look like a logical rejection")
	}
}

func TestNonJSONResponseIsUnavailable(t *testing.T) {
	// A captive portal or proxy answering 200 with an HTML page must not
	// be mistaken for a zero-valued mint answer: a recovery scan reading
	// amount 0 for every index would wrongly conclude the wallet is empty.
	c := newTestMint(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html>upstream unavailable</html>")
	})

	_, err := c.GetSign(context.Background(), "abc")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
	if _, err := c.CheckDeposit(context.Background(), "abc"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("CheckDeposit error = %v, want ErrUnavailable", err)
	}
}
