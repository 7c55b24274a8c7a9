// Package wallet implements the HiveCash ledger and the offline
// value-transfer protocol around it.
package wallet

import (
	"fmt"
	"time"
)

// Status is the mint-reported lifecycle state of a coin slot.
type Status string

const (
	// StatusNew: minted but the backing deposit is not yet confirmed.
	StatusNew Status = "new"
	// StatusUnmint: the mint has never issued this hash.
	StatusUnmint Status = "unmint"
	// StatusPayed: backed by a confirmed deposit, spendable.
	StatusPayed Status = "payed"
	// StatusUsed: spent, terminal.
	StatusUsed Status = "used"
)

// UTXO is a wallet-local record of one derivation-index coin slot and its
// last-known mint status. Records are never deleted, only
// status-transitioned, so the full history survives for recovery.
type UTXO struct {
	Index     uint32    `json:"index"`
	Hash      string    `json:"hash"`
	Sign      string    `json:"sign"`
	Amount    int64     `json:"amount"` // milli-HBD
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Used      bool      `json:"used"`
}

// OfflineToken is an encrypted transfer blob received out-of-band and held
// until it can be redeemed against the mint. Tx doubles as the dedup key.
type OfflineToken struct {
	Tx     string `json:"tx"`
	Amount int64  `json:"amount"` // milli-HBD
}

// Transaction kinds and origins.
const (
	TxSend    = "send"
	TxReceive = "receive"

	OriginOnchain = "onchain"
	OriginOffline = "offline"
)

// Transaction statuses.
const (
	TxPending   = "pending"
	TxConfirmed = "confirmed"
	TxUsed      = "used"
	TxRejected  = "rejected"
)

// Transaction is a derived history record, upserted by ID (the relevant
// secret hash). Not authoritative: the UTXO set is.
type Transaction struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Origin    string    `json:"origin"`
	Amount    int64     `json:"amount"` // milli-HBD
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Recipient string    `json:"recipient,omitempty"`
	Memo      string    `json:"memo,omitempty"`
}

// TransferEnvelope is the pre-encryption payload of a send. Two distinct
// secret encodings coexist, keyed by Version: the offline path (Version 1)
// base64url-encodes secrets, the on-chain path (Version 0, field omitted
// on the wire) carries raw hex. The mint's decoder expects both, so they
// are deliberately not unified.
type TransferEnvelope struct {
	In        [][]string    `json:"in"`
	Ch        []string      `json:"ch"`
	PayAmount int64         `json:"payamount,omitempty"`
	Out       []interface{} `json:"out,omitempty"`
	Version   int           `json:"version,omitempty"`
}

// Envelope versions.
const (
	VersionOnchain = 0 // hex-encoded secrets, out triple present
	VersionOffline = 1 // base64url-encoded secrets, payamount present
)

// Validate checks structural invariants before encryption.
func (e *TransferEnvelope) Validate() error {
	if len(e.In) == 0 {
		return fmt.Errorf("transfer envelope: no input secrets")
	}
	for i, in := range e.In {
		if len(in) != 1 || in[0] == "" {
			return fmt.Errorf("transfer envelope: input %d malformed", i)
		}
	}
	if len(e.Ch) != 1 || e.Ch[0] == "" {
		return fmt.Errorf("transfer envelope: exactly one change secret required")
	}
	switch e.Version {
	case VersionOffline:
		if e.PayAmount <= 0 {
			return fmt.Errorf("transfer envelope: payamount must be positive")
		}
	case VersionOnchain:
		if len(e.Out) != 3 {
			return fmt.Errorf("transfer envelope: out must be [recipient, amount, memo]")
		}
	default:
		return fmt.Errorf("transfer envelope: unknown version %d", e.Version)
	}
	return nil
}
