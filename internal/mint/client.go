// Package mint is the HTTP client for the HiveCash mint service. The mint
// is consumed as a black box: it attests to, signs, and redeems
// secret-hash-identified value units.
package mint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/hivecuba/hivecash/internal/log"
)

// Client errors. Transport and HTTP-level failures are retryable
// (ErrUnavailable); a logical error status in a successful response body is
// a definitive rejection (ErrRejected).
var (
	ErrUnavailable = errors.New("mint unavailable")
	ErrRejected    = errors.New("mint rejected request")
)

// Coin status values reported by the mint for a secret hash.
const (
	StatusNew    = "new"
	StatusUnmint = "unmint"
	StatusPayed  = "payed"
	StatusUsed   = "used"
)

// SignResult is the mint's attestation for a secret hash.
type SignResult struct {
	Signature string `json:"signature"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
	Msg       string `json:"msg"`
}

// MintResult is the response to a token mint request.
type MintResult struct {
	Signature  string `json:"signature"`
	DepositURI string `json:"deposit_uri"`
	Memo       string `json:"memo"`
}

// TransferResult is the outcome of an internal or external transfer.
type TransferResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Client talks to the mint over HTTP+JSON.
type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

// New creates a mint client for the given base URL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	cli := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{http: cli, log: log.Mint}
}

// PublicKey fetches the mint's static compressed public key (hex).
func (c *Client) PublicKey(ctx context.Context) (string, error) {
	var out struct {
		PublicKeyHex string `json:"public_key_hex"`
	}
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).Get("/public_key")
	if err := c.check(resp, err, "public_key"); err != nil {
		return "", err
	}
	return out.PublicKeyHex, nil
}

// CheckDeposit asks whether the on-chain deposit backing a secret hash has
// been observed by the mint.
func (c *Client) CheckDeposit(ctx context.Context, secretHash string) (bool, error) {
	var out struct {
		DepositValid bool `json:"deposit_valid"`
	}
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).
		Get("/check_deposit/" + secretHash)
	if err := c.check(resp, err, "check_deposit"); err != nil {
		return false, err
	}
	return out.DepositValid, nil
}

// GetSign fetches the mint's signature, amount, and status for a secret hash.
func (c *Client) GetSign(ctx context.Context, secretHash string) (*SignResult, error) {
	var out SignResult
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).
		Get("/get_sign/" + secretHash)
	if err := c.check(resp, err, "get_sign"); err != nil {
		return nil, err
	}
	return &out, nil
}

// MintTokens requests issuance of new tokens against an on-chain deposit
// identified by secretHash. Amount is in milli-HBD.
func (c *Client) MintTokens(ctx context.Context, secretHash string, amount int64) (*MintResult, error) {
	var out MintResult
	resp, err := c.http.R().SetContext(ctx).
		SetBody(map[string]interface{}{
			"secret_hash": secretHash,
			"amount":      amount,
		}).
		SetResult(&out).
		Post("/tokens")
	if err := c.check(resp, err, "tokens"); err != nil {
		return nil, err
	}
	return &out, nil
}

// InternalTransfer redeems an encrypted offline token, re-minting its value
// under payhash. A status of "error" in a successful response is returned
// as ErrRejected alongside the result so callers can record the message.
func (c *Client) InternalTransfer(ctx context.Context, tx, payhash string) (*TransferResult, error) {
	var out TransferResult
	resp, err := c.http.R().SetContext(ctx).
		SetBody(map[string]string{"tx": tx, "payhash": payhash}).
		SetResult(&out).
		Post("/internal_transfer")
	if err := c.check(resp, err, "internal_transfer"); err != nil {
		return nil, err
	}
	if out.Status == "error" {
		return &out, fmt.Errorf("%w: %s", ErrRejected, out.Message)
	}
	return &out, nil
}

// ExternalTransfer submits an encrypted on-chain withdrawal transaction.
func (c *Client) ExternalTransfer(ctx context.Context, tx string) (*TransferResult, error) {
	var out TransferResult
	resp, err := c.http.R().SetContext(ctx).
		SetBody(map[string]string{"tx": tx}).
		SetResult(&out).
		Post("/external_transfer")
	if err := c.check(resp, err, "external_transfer"); err != nil {
		return nil, err
	}
	if out.Status == "error" {
		return &out, fmt.Errorf("%w: %s", ErrRejected, out.Message)
	}
	return &out, nil
}

// check maps transport and HTTP errors onto ErrUnavailable.
func (c *Client) check(resp *resty.Response, err error, op string) error {
	if err != nil {
		c.log.Debug().Err(err).Str("op", op).Msg("mint request failed")
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
	}
	if resp.IsError() {
		c.log.Debug().Int("status", resp.StatusCode()).Str("op", op).Msg("mint returned http error")
		return fmt.Errorf("%w: %s: http %d", ErrUnavailable, op, resp.StatusCode())
	}
	// A 200 whose body was not JSON leaves the typed result zero-valued;
	// treating that as a real answer would make callers misread every
	// field. A proxy error page is an outage, not data.
	if ct := resp.Header().Get("Content-Type"); !strings.Contains(ct, "json") {
		c.log.Debug().Str("content_type", ct).Str("op", op).Msg("mint returned non-json body")
		return fmt.Errorf("%w: %s: unexpected content type %q", ErrUnavailable, op, ct)
	}
	return nil
}
