package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hivecuba/hivecash/pkg/crypto"
	"github.com/hivecuba/hivecash/pkg/envelope"
)

// SendOffline builds a transportable offline payment token for the given
// amount (milli-HBD). It consumes spendable UTXOs, allocates one change
// slot, and returns the compact envelope string to carry over QR/NFC. No
// network access: the receiver reconciles with the mint later.
func (w *Wallet) SendOffline(amount int64) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("send amount must be positive")
	}

	w.allocMu.Lock()
	defer w.allocMu.Unlock()

	sel, err := SelectCoins(w.store.UTXOs(), amount)
	if err != nil {
		return "", err
	}

	index := w.store.Cursor()
	changeHash, err := w.deriver.SecretHash(index)
	if err != nil {
		return "", err
	}

	env := TransferEnvelope{
		Version:   VersionOffline,
		PayAmount: amount,
	}
	for _, u := range sel.Inputs {
		keyHex, err := w.deriver.PrivateKeyHex(u.Index)
		if err != nil {
			return "", err
		}
		secret, err := hexToBase64url(keyHex)
		if err != nil {
			return "", err
		}
		env.In = append(env.In, []string{secret})
	}
	change, err := hexToBase64url(changeHash)
	if err != nil {
		return "", err
	}
	env.Ch = []string{change}

	if err := env.Validate(); err != nil {
		return "", err
	}

	plain, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}
	blob, err := crypto.EncryptToMint(string(plain), w.mintPub)
	if err != nil {
		return "", fmt.Errorf("encrypt envelope: %w", err)
	}

	now := time.Now().UTC()
	spent := make([]string, 0, len(sel.Inputs))
	for _, u := range sel.Inputs {
		spent = append(spent, u.Hash)
	}

	changeUTXO := UTXO{
		Index:     index,
		Hash:      changeHash,
		Amount:    sel.Total - amount,
		Status:    StatusUnmint,
		Timestamp: now,
	}
	rec := Transaction{
		ID:        changeHash,
		Type:      TxSend,
		Origin:    OriginOffline,
		Amount:    amount,
		Status:    TxPending,
		Timestamp: now,
	}
	if err := w.store.ApplySend(spent, changeUTXO, rec, false); err != nil {
		return "", fmt.Errorf("commit send: %w", err)
	}

	token := OfflineToken{Tx: blob, Amount: amount}
	out, err := envelope.Serialize(token)
	if err != nil {
		return "", fmt.Errorf("serialize token: %w", err)
	}

	w.log.Info().
		Int64("amount", amount).
		Int("inputs", len(sel.Inputs)).
		Int64("change", sel.Total-amount).
		Uint32("change_index", index).
		Msg("offline send prepared")
	return out, nil
}

// SendOnchain spends UTXOs into an on-chain transfer to recipient,
// submitted to the mint immediately. Secrets travel hex-encoded in a
// version-0 envelope; the mint keys its decoder off the absent version
// field, so this path must not adopt the offline encoding.
func (w *Wallet) SendOnchain(ctx context.Context, recipient string, amount int64, memo string) error {
	if amount <= 0 {
		return fmt.Errorf("send amount must be positive")
	}
	if recipient == "" {
		return fmt.Errorf("recipient is required")
	}
	if !w.online() {
		return ErrOffline
	}

	w.allocMu.Lock()
	defer w.allocMu.Unlock()

	sel, err := SelectCoins(w.store.UTXOs(), amount)
	if err != nil {
		return err
	}

	index := w.store.Cursor()
	changeHash, err := w.deriver.SecretHash(index)
	if err != nil {
		return err
	}

	env := TransferEnvelope{
		Version: VersionOnchain,
		Ch:      []string{changeHash},
		Out:     []interface{}{recipient, amount, memo},
	}
	for _, u := range sel.Inputs {
		keyHex, err := w.deriver.PrivateKeyHex(u.Index)
		if err != nil {
			return err
		}
		env.In = append(env.In, []string{keyHex})
	}
	if err := env.Validate(); err != nil {
		return err
	}

	plain, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	blob, err := crypto.EncryptToMint(string(plain), w.mintPub)
	if err != nil {
		return fmt.Errorf("encrypt envelope: %w", err)
	}

	if _, err := w.mint.ExternalTransfer(ctx, blob); err != nil {
		return fmt.Errorf("external transfer: %w", err)
	}

	// Commit only after the mint accepted the transfer.
	now := time.Now().UTC()
	spent := make([]string, 0, len(sel.Inputs))
	for _, u := range sel.Inputs {
		spent = append(spent, u.Hash)
	}
	changeUTXO := UTXO{
		Index:     index,
		Hash:      changeHash,
		Amount:    sel.Total - amount,
		Status:    StatusNew,
		Timestamp: now,
	}
	rec := Transaction{
		ID:        changeHash,
		Type:      TxSend,
		Origin:    OriginOnchain,
		Amount:    amount,
		Status:    TxConfirmed,
		Timestamp: now,
		Recipient: recipient,
		Memo:      memo,
	}
	if err := w.store.ApplySend(spent, changeUTXO, rec, true); err != nil {
		return fmt.Errorf("commit send: %w", err)
	}

	w.log.Info().
		Str("recipient", recipient).
		Int64("amount", amount).
		Msg("onchain send submitted")
	return nil
}
