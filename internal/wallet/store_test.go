package wallet

import (
	"testing"
	"time"

	"github.com/hivecuba/hivecash/internal/storage"
)

func newTestStore(t *testing.T) (*Store, storage.DB) {
	t.Helper()
	db := storage.NewMemory()
	s, err := OpenStore(db)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s, db
}

func TestStoreWriteThroughSurvivesReopen(t *testing.T) {
	s, db := newTestStore(t)

	u := UTXO{Index: 3, Hash: "h3", Amount: 500, Status: StatusPayed, Timestamp: time.Now().UTC()}
	if err := s.UpsertUTXO(u); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddToken(OfflineToken{Tx: "tok", Amount: 200}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertTransaction(Transaction{ID: "h3", Type: TxReceive, Amount: 500, Status: TxConfirmed}); err != nil {
		t.Fatal(err)
	}
	if err := s.AdvanceCursor(4); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSynced(true); err != nil {
		t.Fatal(err)
	}

	// Reopen over the same database: every mutation above must already
	// be on disk, with no explicit save step.
	reopened, err := OpenStore(db)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reopened.UTXOs(); len(got) != 1 || got[0].Hash != "h3" {
		t.Fatalf("utxos after reopen = %+v", got)
	}
	if got := reopened.Tokens(); len(got) != 1 || got[0].Tx != "tok" {
		t.Fatalf("tokens after reopen = %+v", got)
	}
	if got := reopened.Transactions(); len(got) != 1 || got[0].ID != "h3" {
		t.Fatalf("transactions after reopen = %+v", got)
	}
	if got := reopened.Cursor(); got != 4 {
		t.Fatalf("cursor after reopen = %d, want 4", got)
	}
	if !reopened.Synced() {
		t.Fatal("synced flag lost on reopen")
	}
}

func TestStoreUpsertUTXOMergePreservesFields(t *testing.T) {
	s, _ := newTestStore(t)

	ts := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	if err := s.UpsertUTXO(UTXO{Index: 0, Hash: "h", Amount: 100, Sign: "sig-1", Status: StatusNew, Timestamp: ts}); err != nil {
		t.Fatal(err)
	}
	// Status update without signature or timestamp keeps both.
	if err := s.UpsertUTXO(UTXO{Index: 0, Hash: "h", Amount: 100, Status: StatusPayed}); err != nil {
		t.Fatal(err)
	}

	got := s.UTXOs()
	if len(got) != 1 {
		t.Fatalf("utxo count = %d", len(got))
	}
	if got[0].Sign != "sig-1" {
		t.Fatalf("signature lost on merge: %+v", got[0])
	}
	if !got[0].Timestamp.Equal(ts) {
		t.Fatalf("timestamp lost on merge: %+v", got[0])
	}
	if got[0].Status != StatusPayed {
		t.Fatalf("status not updated: %+v", got[0])
	}
}

func TestStoreUpsertTransactionMerge(t *testing.T) {
	s, _ := newTestStore(t)

	ts := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	first := Transaction{ID: "id1", Type: TxSend, Amount: 100, Status: TxPending, Recipient: "bob", Memo: "m", Timestamp: ts}
	if err := s.UpsertTransaction(first); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertTransaction(Transaction{ID: "id1", Type: TxSend, Amount: 100, Status: TxConfirmed}); err != nil {
		t.Fatal(err)
	}

	got := s.Transactions()
	if len(got) != 1 {
		t.Fatalf("tx count = %d", len(got))
	}
	if got[0].Status != TxConfirmed || got[0].Recipient != "bob" || got[0].Memo != "m" || !got[0].Timestamp.Equal(ts) {
		t.Fatalf("merge result = %+v", got[0])
	}
}

func TestStoreUpdateTransactionStatus(t *testing.T) {
	s, _ := newTestStore(t)

	if err := s.UpsertTransaction(Transaction{ID: "id1", Status: TxPending}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateTransactionStatus("id1", TxConfirmed); err != nil {
		t.Fatal(err)
	}
	if got := s.Transactions(); got[0].Status != TxConfirmed {
		t.Fatalf("status = %q", got[0].Status)
	}
	// Unknown IDs are ignored.
	if err := s.UpdateTransactionStatus("missing", TxUsed); err != nil {
		t.Fatal(err)
	}
}

func TestStoreTokenDedup(t *testing.T) {
	s, _ := newTestStore(t)

	added, err := s.AddToken(OfflineToken{Tx: "blob", Amount: 100})
	if err != nil || !added {
		t.Fatalf("first add: added=%v err=%v", added, err)
	}
	added, err = s.AddToken(OfflineToken{Tx: "blob", Amount: 100})
	if err != nil || added {
		t.Fatalf("duplicate add: added=%v err=%v", added, err)
	}
	if n := len(s.Tokens()); n != 1 {
		t.Fatalf("token count = %d", n)
	}

	if err := s.RemoveToken("blob"); err != nil {
		t.Fatal(err)
	}
	if n := len(s.Tokens()); n != 0 {
		t.Fatalf("token count after remove = %d", n)
	}
}

func TestStoreCursorNeverDecrements(t *testing.T) {
	s, _ := newTestStore(t)

	if err := s.AdvanceCursor(5); err != nil {
		t.Fatal(err)
	}
	if err := s.AdvanceCursor(3); err != nil {
		t.Fatal(err)
	}
	if got := s.Cursor(); got != 5 {
		t.Fatalf("cursor = %d, want 5", got)
	}
	if err := s.AdvanceCursor(5); err != nil {
		t.Fatal(err)
	}
	if got := s.Cursor(); got != 5 {
		t.Fatalf("cursor = %d, want 5", got)
	}
}

func TestStoreApplySend(t *testing.T) {
	s, _ := newTestStore(t)

	if err := s.UpsertUTXO(UTXO{Index: 0, Hash: "a", Amount: 300, Status: StatusPayed}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertUTXO(UTXO{Index: 1, Hash: "b", Amount: 200, Status: StatusPayed}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertTransaction(Transaction{ID: "a", Type: TxReceive, Status: TxConfirmed}); err != nil {
		t.Fatal(err)
	}
	if err := s.AdvanceCursor(2); err != nil {
		t.Fatal(err)
	}

	change := UTXO{Index: 2, Hash: "c", Amount: 100, Status: StatusNew}
	rec := Transaction{ID: "c", Type: TxSend, Amount: 400, Status: TxConfirmed}
	if err := s.ApplySend([]string{"a", "b"}, change, rec, true); err != nil {
		t.Fatal(err)
	}

	for _, u := range s.UTXOs() {
		switch u.Hash {
		case "a", "b":
			if !u.Used || u.Status != StatusUsed {
				t.Fatalf("input %q not marked used: %+v", u.Hash, u)
			}
		case "c":
			if u.Used || u.Amount != 100 {
				t.Fatalf("change = %+v", u)
			}
		}
	}
	if got := s.Cursor(); got != 3 {
		t.Fatalf("cursor = %d, want 3", got)
	}
	for _, tx := range s.Transactions() {
		if tx.ID == "a" && tx.Status != TxUsed {
			t.Fatalf("source record not marked used: %+v", tx)
		}
	}
}

func TestStoreApplyRedeem(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.AddToken(OfflineToken{Tx: "blob", Amount: 100}); err != nil {
		t.Fatal(err)
	}

	u := UTXO{Index: 0, Hash: "h", Amount: 100, Status: StatusNew}
	rec := Transaction{ID: "h", Type: TxReceive, Origin: OriginOffline, Amount: 100, Status: TxConfirmed}
	if err := s.ApplyRedeem("blob", u, rec); err != nil {
		t.Fatal(err)
	}

	if n := len(s.Tokens()); n != 0 {
		t.Fatalf("token count = %d", n)
	}
	if got := s.UTXOs(); len(got) != 1 || got[0].Hash != "h" {
		t.Fatalf("utxos = %+v", got)
	}
	if got := s.Cursor(); got != 1 {
		t.Fatalf("cursor = %d, want 1", got)
	}
}

func TestStorePhraseAndReset(t *testing.T) {
	s, db := newTestStore(t)

	if s.HasPhrase() {
		t.Fatal("fresh store claims to have a phrase")
	}
	if err := s.SavePhrase([]byte("encrypted-bytes")); err != nil {
		t.Fatal(err)
	}
	if !s.HasPhrase() {
		t.Fatal("phrase not stored")
	}
	got, err := s.LoadPhrase()
	if err != nil || string(got) != "encrypted-bytes" {
		t.Fatalf("load phrase: %q %v", got, err)
	}

	if err := s.UpsertUTXO(UTXO{Hash: "h", Amount: 10, Status: StatusPayed}); err != nil {
		t.Fatal(err)
	}
	if err := s.Reset(); err != nil {
		t.Fatal(err)
	}
	if len(s.UTXOs()) != 0 || s.Cursor() != 0 || s.Synced() || s.HasPhrase() {
		t.Fatal("reset left state behind")
	}

	reopened, err := OpenStore(db)
	if err != nil {
		t.Fatal(err)
	}
	if len(reopened.UTXOs()) != 0 || reopened.HasPhrase() {
		t.Fatal("reset not persisted")
	}
}

func TestStoreResetSparesForeignRecords(t *testing.T) {
	s, db := newTestStore(t)

	// A record outside the wallet namespace, sharing the database.
	if err := db.Put([]byte("meta/version"), []byte("1")); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertUTXO(UTXO{Hash: "h", Amount: 10, Status: StatusPayed}); err != nil {
		t.Fatal(err)
	}

	if err := s.Reset(); err != nil {
		t.Fatal(err)
	}

	ok, err := db.Has([]byte("meta/version"))
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("reset wiped a record outside the wallet namespace")
	}
	if len(s.UTXOs()) != 0 {
		t.Fatal("reset left wallet state behind")
	}
}
