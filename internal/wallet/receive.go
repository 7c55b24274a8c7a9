package wallet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hivecuba/hivecash/internal/mint"
	"github.com/hivecuba/hivecash/pkg/envelope"
)

// ReceiveOffline ingests an offline payment token produced by another
// wallet's SendOffline. The token is stored for later redemption during
// sync; it reports whether the token was new. Duplicate tokens are a
// no-op so a re-scanned QR code cannot double-credit.
func (w *Wallet) ReceiveOffline(blob string) (bool, error) {
	var token OfflineToken
	if err := envelope.Deserialize(blob, &token); err != nil {
		return false, fmt.Errorf("read token: %w", err)
	}
	if token.Tx == "" {
		return false, fmt.Errorf("token has no transfer payload")
	}
	if token.Amount <= 0 {
		return false, fmt.Errorf("token amount must be positive")
	}

	added, err := w.store.AddToken(token)
	if err != nil {
		return false, err
	}
	if !added {
		w.log.Debug().Int64("amount", token.Amount).Msg("duplicate offline token ignored")
		return false, nil
	}
	w.log.Info().Int64("amount", token.Amount).Msg("offline token stored")
	return true, nil
}

// RequestMint asks the mint to issue new value against the wallet's next
// derivation index. The resulting payment hash is recorded as a pending
// deposit; sync settles it once the mint marks it payed.
func (w *Wallet) RequestMint(ctx context.Context, amount int64) (*mint.MintResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("mint amount must be positive")
	}
	if !w.online() {
		return nil, ErrOffline
	}

	w.allocMu.Lock()
	defer w.allocMu.Unlock()

	index := w.store.Cursor()
	hash, err := w.deriver.SecretHash(index)
	if err != nil {
		return nil, err
	}

	res, err := w.mint.MintTokens(ctx, hash, amount)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	u := UTXO{
		Index:     index,
		Hash:      hash,
		Amount:    amount,
		Status:    StatusNew,
		Timestamp: now,
	}
	if err := w.store.UpsertUTXO(u); err != nil {
		return nil, err
	}
	rec := Transaction{
		ID:        hash,
		Type:      TxReceive,
		Origin:    OriginOnchain,
		Amount:    amount,
		Status:    TxPending,
		Timestamp: now,
		Memo:      res.Memo,
	}
	if err := w.store.UpsertTransaction(rec); err != nil {
		return nil, err
	}
	if err := w.store.AdvanceCursor(index + 1); err != nil {
		return nil, err
	}

	w.log.Info().Int64("amount", amount).Uint32("index", index).Msg("mint requested")
	return res, nil
}

// ReceiveOnchain checks a known derivation slot against the mint and, if
// the deposit settled, records the coin. Slots that are still unpaid, or
// that the mint does not know, are skipped without error so callers can
// probe freely.
func (w *Wallet) ReceiveOnchain(ctx context.Context, index uint32) (bool, error) {
	if !w.online() {
		return false, ErrOffline
	}

	hash, err := w.deriver.SecretHash(index)
	if err != nil {
		return false, err
	}
	sign, err := w.mint.GetSign(ctx, hash)
	if err != nil {
		return false, err
	}
	if sign.Amount == 0 || sign.Status == mint.StatusUnmint || strings.EqualFold(sign.Msg, "error") {
		return false, nil
	}
	valid, err := w.mint.CheckDeposit(ctx, hash)
	if err != nil {
		return false, err
	}
	if !valid {
		return false, nil
	}

	now := time.Now().UTC()
	status := Status(sign.Status)
	u := UTXO{
		Index:     index,
		Hash:      hash,
		Sign:      sign.Signature,
		Amount:    sign.Amount,
		Status:    status,
		Timestamp: now,
		Used:      status == StatusUsed,
	}
	if err := w.store.UpsertUTXO(u); err != nil {
		return false, err
	}
	rec := Transaction{
		ID:        hash,
		Type:      TxReceive,
		Origin:    OriginOnchain,
		Amount:    sign.Amount,
		Status:    statusToTxStatus(status),
		Timestamp: now,
	}
	if err := w.store.UpsertTransaction(rec); err != nil {
		return false, err
	}
	if err := w.store.AdvanceCursor(index + 1); err != nil {
		return false, err
	}

	w.log.Info().Uint32("index", index).Int64("amount", sign.Amount).Str("status", sign.Status).Msg("onchain deposit recorded")
	return true, nil
}
