package wallet

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hivecuba/hivecash/internal/log"
	"github.com/hivecuba/hivecash/internal/storage"
)

// Record keys within the store's namespace.
var (
	keyUTXOs  = []byte("utxos")
	keyTokens = []byte("tokens")
	keyTxs    = []byte("transactions")
	keyCursor = []byte("cursor")
	keySynced = []byte("synced")
	keyPhrase = []byte("phrase")
)

// Store is the wallet's single-writer ledger: UTXOs, held offline tokens,
// transaction history, and the derivation cursor, backed by a key-value
// database. Every mutation persists the full updated collection before the
// call returns (write-through), so an abrupt termination between two
// operations never loses a record. A skipped derivation index is the worst
// case, and skipped indices are just unused coin slots.
type Store struct {
	mu  sync.Mutex
	db  *storage.PrefixDB
	log zerolog.Logger

	utxos  []UTXO
	tokens []OfflineToken
	txs    []Transaction
	cursor uint32
	synced bool
}

// walletPrefix namespaces wallet records inside the shared database, so a
// reset can wipe them without touching anything else stored alongside.
var walletPrefix = []byte("wallet/")

// OpenStore loads wallet state from the database, starting empty when no
// records exist yet.
func OpenStore(db storage.DB) (*Store, error) {
	s := &Store{db: storage.NewPrefixDB(db, walletPrefix), log: log.Store}

	if err := s.loadJSON(keyUTXOs, &s.utxos); err != nil {
		return nil, fmt.Errorf("load utxos: %w", err)
	}
	if err := s.loadJSON(keyTokens, &s.tokens); err != nil {
		return nil, fmt.Errorf("load tokens: %w", err)
	}
	if err := s.loadJSON(keyTxs, &s.txs); err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	if err := s.loadJSON(keyCursor, &s.cursor); err != nil {
		return nil, fmt.Errorf("load cursor: %w", err)
	}
	if err := s.loadJSON(keySynced, &s.synced); err != nil {
		return nil, fmt.Errorf("load sync flag: %w", err)
	}
	return s, nil
}

// loadJSON reads a record into out, leaving out untouched if absent.
func (s *Store) loadJSON(key []byte, out interface{}) error {
	ok, err := s.db.Has(key)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	data, err := s.db.Get(key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// putJSON persists one record.
func (s *Store) putJSON(key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", key, err)
	}
	if err := s.db.Put(key, data); err != nil {
		return fmt.Errorf("persist record %s: %w", key, err)
	}
	return nil
}

// UTXOs returns a copy of the UTXO collection.
func (s *Store) UTXOs() []UTXO {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]UTXO, len(s.utxos))
	copy(out, s.utxos)
	return out
}

// Tokens returns a copy of the held offline tokens.
func (s *Store) Tokens() []OfflineToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]OfflineToken, len(s.tokens))
	copy(out, s.tokens)
	return out
}

// Transactions returns a copy of the transaction history.
func (s *Store) Transactions() []Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Transaction, len(s.txs))
	copy(out, s.txs)
	return out
}

// Cursor returns the next derivation index to allocate.
func (s *Store) Cursor() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Synced reports whether the initial recovery scan has completed.
func (s *Store) Synced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.synced
}

// SetSynced persists the first-sync-completed flag.
func (s *Store) SetSynced(v bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synced = v
	return s.putJSON(keySynced, s.synced)
}

// AdvanceCursor raises the cursor to next. The cursor never decrements:
// lowering it would re-derive secrets already revealed in past transfers.
func (s *Store) AdvanceCursor(next uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advanceCursorLocked(next)
}

func (s *Store) advanceCursorLocked(next uint32) error {
	if next <= s.cursor {
		return nil
	}
	s.cursor = next
	return s.putJSON(keyCursor, s.cursor)
}

// mergeUTXO folds an update into an existing record, preserving fields the
// update leaves unset.
func mergeUTXO(old, in UTXO) UTXO {
	if in.Sign == "" {
		in.Sign = old.Sign
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = old.Timestamp
	}
	return in
}

// UpsertUTXO inserts or merges a UTXO record, matched by hash.
func (s *Store) UpsertUTXO(u UTXO) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertUTXOLocked(u)
}

func (s *Store) upsertUTXOLocked(u UTXO) error {
	for i := range s.utxos {
		if s.utxos[i].Hash == u.Hash {
			s.utxos[i] = mergeUTXO(s.utxos[i], u)
			return s.putJSON(keyUTXOs, s.utxos)
		}
	}
	s.utxos = append(s.utxos, u)
	return s.putJSON(keyUTXOs, s.utxos)
}

// mergeTransaction preserves recipient, memo, and timestamp when the
// update leaves them unset.
func mergeTransaction(old, in Transaction) Transaction {
	if in.Recipient == "" {
		in.Recipient = old.Recipient
	}
	if in.Memo == "" {
		in.Memo = old.Memo
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = old.Timestamp
	}
	return in
}

// UpsertTransaction inserts or merges a history record, matched by ID.
func (s *Store) UpsertTransaction(t Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertTransactionLocked(t)
}

func (s *Store) upsertTransactionLocked(t Transaction) error {
	for i := range s.txs {
		if s.txs[i].ID == t.ID {
			s.txs[i] = mergeTransaction(s.txs[i], t)
			return s.putJSON(keyTxs, s.txs)
		}
	}
	s.txs = append(s.txs, t)
	return s.putJSON(keyTxs, s.txs)
}

// UpdateTransactionStatus changes the status of an existing history
// record. Unknown IDs are ignored: history is derived state and a missing
// record is not worth failing a sync over.
func (s *Store) UpdateTransactionStatus(id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.txs {
		if s.txs[i].ID == id {
			if s.txs[i].Status == status {
				return nil
			}
			s.txs[i].Status = status
			return s.putJSON(keyTxs, s.txs)
		}
	}
	return nil
}

// AddToken holds a received offline token. Re-receiving an identical blob
// is a no-op; returns whether the token was actually added.
func (s *Store) AddToken(tok OfflineToken) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.Tx == tok.Tx {
			return false, nil
		}
	}
	s.tokens = append(s.tokens, tok)
	if err := s.putJSON(keyTokens, s.tokens); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveToken drops a held token by its blob. Called only once the mint
// has definitively resolved the token.
func (s *Store) RemoveToken(tx string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.tokens[:0]
	for _, t := range s.tokens {
		if t.Tx != tx {
			kept = append(kept, t)
		}
	}
	s.tokens = kept
	return s.putJSON(keyTokens, s.tokens)
}

// ApplySend commits a send as one atomic ledger step: consumed UTXOs are
// marked used, their send-history records get usedStatus, the change UTXO
// and new history record are inserted, and the cursor advances exactly
// once past the change index.
func (s *Store) ApplySend(spentHashes []string, change UTXO, rec Transaction, markTxUsed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.utxos {
		for _, h := range spentHashes {
			if s.utxos[i].Hash == h {
				s.utxos[i].Status = StatusUsed
				s.utxos[i].Used = true
			}
		}
	}
	if markTxUsed {
		for i := range s.txs {
			for _, h := range spentHashes {
				if s.txs[i].ID == h {
					s.txs[i].Status = TxUsed
				}
			}
		}
	}

	s.utxos = append(s.utxos, change)
	if err := s.putJSON(keyUTXOs, s.utxos); err != nil {
		return err
	}
	if err := s.upsertTransactionLocked(rec); err != nil {
		return err
	}
	return s.advanceCursorLocked(change.Index + 1)
}

// ApplyRedeem commits the outcome of draining one offline token: the new
// UTXO and history record are recorded, the token leaves the held set, and
// the cursor advances past the allocated index.
func (s *Store) ApplyRedeem(tokenTx string, u UTXO, rec Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.upsertUTXOLocked(u); err != nil {
		return err
	}
	if err := s.upsertTransactionLocked(rec); err != nil {
		return err
	}

	kept := s.tokens[:0]
	for _, t := range s.tokens {
		if t.Tx != tokenTx {
			kept = append(kept, t)
		}
	}
	s.tokens = kept
	if err := s.putJSON(keyTokens, s.tokens); err != nil {
		return err
	}
	return s.advanceCursorLocked(u.Index + 1)
}

// SavePhrase persists the password-encrypted recovery phrase.
func (s *Store) SavePhrase(encrypted []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Put(keyPhrase, encrypted); err != nil {
		return fmt.Errorf("persist phrase: %w", err)
	}
	return nil
}

// LoadPhrase returns the password-encrypted recovery phrase record.
func (s *Store) LoadPhrase() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.db.Get(keyPhrase)
	if err != nil {
		return nil, fmt.Errorf("load phrase: %w", err)
	}
	return data, nil
}

// HasPhrase reports whether an encrypted recovery phrase is stored.
func (s *Store) HasPhrase() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok, err := s.db.Has(keyPhrase)
	return err == nil && ok
}

// Reset wipes all wallet state. The encrypted phrase record is removed
// too: reset means forget this wallet entirely.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.utxos = nil
	s.tokens = nil
	s.txs = nil
	s.cursor = 0
	s.synced = false

	if err := s.db.DeleteAll(); err != nil {
		return fmt.Errorf("reset wallet namespace: %w", err)
	}
	s.log.Info().Msg("wallet state reset")
	return nil
}
