package wallet

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hivecuba/hivecash/internal/log"
	"github.com/hivecuba/hivecash/internal/mint"
)

// Params configures a Wallet.
type Params struct {
	Store   *Store
	Deriver *Deriver
	Mint    *mint.Client

	// MintPublicKey is the mint's static compressed public key (hex);
	// all transfer envelopes are encrypted to it.
	MintPublicKey string

	// GapLimit is the consecutive-miss tolerance of the initial
	// recovery scan. Zero selects the default of 10.
	GapLimit int

	// SyncCooldown collapses sync triggers arriving within the window
	// into the previous result. Zero selects the default of 3s.
	SyncCooldown time.Duration

	// Online probes connectivity. Nil means always attempt the network.
	Online func() bool

	Logger *zerolog.Logger
}

// Wallet ties the ledger, the deriver, and the mint client together and
// implements the offline value-transfer protocol.
type Wallet struct {
	store    *Store
	deriver  *Deriver
	mint     *mint.Client
	mintPub  string
	gapLimit int
	cooldown time.Duration
	online   func() bool
	log      zerolog.Logger

	// allocMu serializes derivation-index allocation: two concurrent
	// sends must never build on the same change index.
	allocMu sync.Mutex

	// syncMu guards the single-slot in-flight sync state.
	syncMu   sync.Mutex
	inflight *syncRun
	lastDone time.Time
	lastRes  *SyncResult
	lastErr  error
}

// New creates a wallet from its collaborators.
func New(p Params) (*Wallet, error) {
	if p.Store == nil {
		return nil, fmt.Errorf("wallet: store is required")
	}
	if p.Deriver == nil {
		return nil, fmt.Errorf("wallet: deriver is required")
	}
	if p.Mint == nil {
		return nil, fmt.Errorf("wallet: mint client is required")
	}
	if p.MintPublicKey == "" {
		return nil, fmt.Errorf("wallet: mint public key is required")
	}
	if p.GapLimit <= 0 {
		p.GapLimit = 10
	}
	if p.SyncCooldown <= 0 {
		p.SyncCooldown = 3 * time.Second
	}
	if p.Online == nil {
		p.Online = func() bool { return true }
	}
	logger := log.Wallet
	if p.Logger != nil {
		logger = *p.Logger
	}
	return &Wallet{
		store:    p.Store,
		deriver:  p.Deriver,
		mint:     p.Mint,
		mintPub:  p.MintPublicKey,
		gapLimit: p.GapLimit,
		cooldown: p.SyncCooldown,
		online:   p.Online,
		log:      logger,
	}, nil
}

// Store exposes the underlying ledger for read access.
func (w *Wallet) Store() *Store {
	return w.store
}

// hexToBase64url re-encodes a hex string as unpadded base64url, the
// version-1 secret encoding.
func hexToBase64url(h string) (string, error) {
	raw, err := hex.DecodeString(h)
	if err != nil {
		return "", fmt.Errorf("decode hex secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// statusToTxStatus maps a mint coin status onto a history record status.
func statusToTxStatus(s Status) string {
	switch s {
	case StatusUsed:
		return TxUsed
	case StatusPayed:
		return TxConfirmed
	default:
		return TxPending
	}
}
