package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/hivecuba/hivecash/internal/log"
	"github.com/hivecuba/hivecash/internal/mint"
)

// SyncResult summarizes one reconciliation pass.
type SyncResult struct {
	// Balance is the spendable balance after the pass, in milli-HBD.
	Balance int64
	// Recovered counts coin slots found by the initial recovery scan.
	Recovered int
	// Drained counts offline tokens definitively resolved this pass.
	Drained int
	// Refreshed counts UTXOs whose mint status changed this pass.
	Refreshed int
}

// syncRun is the single in-flight sync slot. Callers arriving while a run
// is active attach to it instead of starting another.
type syncRun struct {
	done chan struct{}
	res  *SyncResult
	err  error
}

// Sync reconciles local state with the mint: the one-time recovery scan,
// draining held offline tokens, and refreshing UTXO statuses. At most one
// pass runs at a time; concurrent callers share the in-flight pass, and a
// trigger landing inside the cooldown window after a completed pass gets
// that pass's result without touching the network.
func (w *Wallet) Sync(ctx context.Context) (*SyncResult, error) {
	if !w.online() {
		return nil, ErrOffline
	}

	w.syncMu.Lock()
	if run := w.inflight; run != nil {
		w.syncMu.Unlock()
		select {
		case <-run.done:
			return run.res, run.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if !w.lastDone.IsZero() && time.Since(w.lastDone) < w.cooldown {
		res, err := w.lastRes, w.lastErr
		w.syncMu.Unlock()
		return res, err
	}
	run := &syncRun{done: make(chan struct{})}
	w.inflight = run
	w.syncMu.Unlock()

	run.res, run.err = w.syncOnce(ctx)

	w.syncMu.Lock()
	w.inflight = nil
	w.lastDone = time.Now()
	w.lastRes, w.lastErr = run.res, run.err
	w.syncMu.Unlock()
	close(run.done)

	return run.res, run.err
}

// syncOnce executes one full pass. Phases are independent: a failure in
// one aborts the pass but keeps everything already committed.
func (w *Wallet) syncOnce(ctx context.Context) (*SyncResult, error) {
	res := &SyncResult{}

	if !w.store.Synced() {
		recovered, err := w.recoveryScan(ctx)
		res.Recovered = recovered
		if err != nil {
			res.Balance = w.Balance()
			return res, err
		}
	}

	// Drain and refresh are independent phases: a stuck token must not
	// keep confirmed deposits from being recognized.
	drained, drainErr := w.drainTokens(ctx)
	res.Drained = drained

	refreshed, refreshErr := w.refreshUTXOs(ctx)
	res.Refreshed = refreshed
	res.Balance = w.Balance()
	if err := errors.Join(drainErr, refreshErr); err != nil {
		return res, err
	}

	log.Sync.Info().
		Int64("balance", res.Balance).
		Int("recovered", res.Recovered).
		Int("drained", res.Drained).
		Int("refreshed", res.Refreshed).
		Msg("sync completed")
	return res, nil
}

// recoveryScan walks derivation indices from zero, asking the mint about
// each secret hash, until gapLimit consecutive indices come back unknown.
// The scan only marks the wallet synced when it terminates normally; an
// interrupted scan keeps its partial findings and resumes next pass.
func (w *Wallet) recoveryScan(ctx context.Context) (int, error) {
	log.Sync.Info().Int("gap_limit", w.gapLimit).Msg("recovery scan started")

	found := 0
	misses := 0
	for index := uint32(0); misses < w.gapLimit; index++ {
		hash, err := w.deriver.SecretHash(index)
		if err != nil {
			return found, err
		}
		sign, err := w.mint.GetSign(ctx, hash)
		if err != nil {
			return found, err
		}

		// Any status the mint knows resets the miss run, even for a
		// zero-amount slot; only an unissued hash counts as a miss.
		status := Status(sign.Status)
		if status == StatusUnmint {
			misses++
			continue
		}
		misses = 0
		found++

		now := time.Now().UTC()
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
			return found, err
		}
		rec := Transaction{
			ID:        hash,
			Type:      TxReceive,
			Origin:    OriginOffline,
			Amount:    sign.Amount,
			Status:    statusToTxStatus(status),
			Timestamp: now,
		}
		if err := w.store.UpsertTransaction(rec); err != nil {
			return found, err
		}
		if err := w.store.AdvanceCursor(index + 1); err != nil {
			return found, err
		}
	}

	if err := w.store.SetSynced(true); err != nil {
		return found, err
	}
	log.Sync.Info().Int("found", found).Msg("recovery scan finished")
	return found, nil
}

// drainTokens redeems every held offline token against the mint. A token
// leaves the held set only on a definitive outcome: acceptance mints a new
// UTXO, a logical rejection records a rejected receive. Ambiguous failures
// (mint unreachable) keep the token for the next pass; one token's failure
// never blocks the others.
func (w *Wallet) drainTokens(ctx context.Context) (int, error) {
	drained := 0
	var firstErr error
	for _, tok := range w.store.Tokens() {
		ok, err := w.drainOne(ctx, tok)
		if ok {
			drained++
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return drained, firstErr
}

func (w *Wallet) drainOne(ctx context.Context, tok OfflineToken) (bool, error) {
	w.allocMu.Lock()
	defer w.allocMu.Unlock()

	index := w.store.Cursor()
	payhash, err := w.deriver.SecretHash(index)
	if err != nil {
		return false, err
	}

	res, err := w.mint.InternalTransfer(ctx, tok.Tx, payhash)
	now := time.Now().UTC()

	switch {
	case err == nil:
		u := UTXO{
			Index:     index,
			Hash:      payhash,
			Amount:    tok.Amount,
			Status:    StatusNew,
			Timestamp: now,
		}
		rec := Transaction{
			ID:        payhash,
			Type:      TxReceive,
			Origin:    OriginOffline,
			Amount:    tok.Amount,
			Status:    TxConfirmed,
			Timestamp: now,
		}
		if err := w.store.ApplyRedeem(tok.Tx, u, rec); err != nil {
			return false, err
		}
		log.Sync.Info().Int64("amount", tok.Amount).Uint32("index", index).Msg("offline token redeemed")
		return true, nil

	case errors.Is(err, mint.ErrRejected):
		// Definitive: the token is worthless (double spend, bad
		// envelope). Record the rejection and stop carrying it.
		u := UTXO{
			Index:     index,
			Hash:      payhash,
			Amount:    tok.Amount,
			Status:    StatusUnmint,
			Timestamp: now,
		}
		rec := Transaction{
			ID:        payhash,
			Type:      TxReceive,
			Origin:    OriginOffline,
			Amount:    tok.Amount,
			Status:    TxRejected,
			Timestamp: now,
		}
		if res != nil && res.Message != "" {
			rec.Memo = res.Message
		}
		if err := w.store.ApplyRedeem(tok.Tx, u, rec); err != nil {
			return false, err
		}
		log.Sync.Warn().Int64("amount", tok.Amount).Msg("offline token rejected by mint")
		return true, nil

	default:
		// Ambiguous: the mint may or may not have processed the
		// transfer. Keep the token; redemption is idempotent on the
		// mint side.
		log.Sync.Debug().Err(err).Msg("token redemption deferred")
		return false, err
	}
}

// refreshUTXOs re-queries the mint status of every live (non-used) UTXO
// and folds changes into the ledger and history. Per-item failures are
// skipped so one bad coin cannot stall the rest.
func (w *Wallet) refreshUTXOs(ctx context.Context) (int, error) {
	refreshed := 0
	var firstErr error
	for _, u := range w.store.UTXOs() {
		if u.Used || u.Status == StatusUsed {
			continue
		}
		// The deposit check nudges the mint to validate the backing
		// deposit; without it a freshly minted coin can sit in "new"
		// indefinitely. The answer itself does not gate the refresh.
		if _, err := w.mint.CheckDeposit(ctx, u.Hash); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		sign, err := w.mint.GetSign(ctx, u.Hash)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		status := Status(sign.Status)
		// A hash the mint does not recognize carries no new information;
		// redeemed-but-unconfirmed coins stay as they are locally.
		if status == StatusUnmint || sign.Amount == 0 {
			continue
		}
		if status == u.Status && sign.Amount == u.Amount {
			continue
		}

		upd := UTXO{
			Index:  u.Index,
			Hash:   u.Hash,
			Sign:   sign.Signature,
			Amount: sign.Amount,
			Status: status,
			Used:   status == StatusUsed,
		}
		if err := w.store.UpsertUTXO(upd); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := w.store.UpdateTransactionStatus(u.Hash, statusToTxStatus(status)); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		refreshed++
	}
	return refreshed, firstErr
}
