package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"salesdesk_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeStore emulates the idempotency_keys table with the same semantics the
// ledger relies on: unique key insert, conditional update/delete, lookup.
// Begin hands out a transaction that buffers writes until Commit, so the
// tests can observe whether the completion write really rides the
// operation's transaction.
type fakeStore struct {
	records    map[string]*fakeRecord
	failCommit bool
}

type fakeRecord struct {
	status    string
	payload   json.RawMessage
	createdAt time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*fakeRecord)}
}

func (s *fakeStore) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	key := args[0].(string)

	switch {
	case strings.Contains(sql, "INSERT INTO idempotency_keys"):
		if _, exists := s.records[key]; exists {
			return pgconn.NewCommandTag("INSERT 0 0"), nil
		}
		s.records[key] = &fakeRecord{status: "in_flight", createdAt: time.Now()}
		return pgconn.NewCommandTag("INSERT 0 1"), nil

	case strings.Contains(sql, "SET status = 'completed'"):
		rec, exists := s.records[key]
		if !exists || rec.status != "in_flight" {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		}
		rec.status = "completed"
		rec.payload = args[1].(json.RawMessage)
		return pgconn.NewCommandTag("UPDATE 1"), nil

	case strings.Contains(sql, "DELETE FROM idempotency_keys"):
		rec, exists := s.records[key]
		if !exists || rec.status != "in_flight" {
			return pgconn.NewCommandTag("DELETE 0"), nil
		}
		delete(s.records, key)
		return pgconn.NewCommandTag("DELETE 1"), nil
	}

	return pgconn.CommandTag{}, errors.New("unexpected sql: " + sql)
}

func (s *fakeStore) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	key := args[0].(string)
	rec, exists := s.records[key]
	if !exists {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{rec: rec}
}

// fakeRow answers the ledger's lookup query with the fields of a fakeRecord,
// or with a stored error.
type fakeRow struct {
	rec *fakeRecord
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.rec.status
	*dest[1].(*json.RawMessage) = r.rec.payload
	*dest[2].(*time.Time) = r.rec.createdAt
	return nil
}

func (s *fakeStore) Begin(context.Context) (pgx.Tx, error) {
	return &fakeTx{store: s}, nil
}

type bufferedExec struct {
	sql  string
	args []any
}

// fakeTx buffers writes and applies them on Commit. Rollback discards them,
// which is exactly the isolation the ledger's completion step depends on.
type fakeTx struct {
	pgx.Tx
	store    *fakeStore
	buffered []bufferedExec
	done     bool
}

func (t *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if t.done {
		return pgconn.CommandTag{}, pgx.ErrTxClosed
	}
	t.buffered = append(t.buffered, bufferedExec{sql: sql, args: args})
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	if t.store.failCommit {
		return errors.New("connection reset during commit")
	}
	for _, b := range t.buffered {
		if _, err := t.store.Exec(ctx, b.sql, b.args...); err != nil {
			return err
		}
	}
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.done = true
	t.buffered = nil
	return nil
}

func payloadOf(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func TestExecuteOnceRunsOperationOnFreshKey(t *testing.T) {
	ledger := NewLedger(newFakeStore())

	calls := 0
	result, err := ledger.ExecuteOnce(context.Background(), "k1", func(context.Context, pgx.Tx) (json.RawMessage, error) {
		calls++
		return payloadOf(t, map[string]string{"leadId": "L1"}), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one execution, got %d", calls)
	}
	if result.Replayed {
		t.Fatal("fresh key must not be reported as replayed")
	}
}

func TestExecuteOnceReplaysCompletedKey(t *testing.T) {
	store := newFakeStore()
	ledger := NewLedger(store)
	ctx := context.Background()

	first, err := ledger.ExecuteOnce(ctx, "k1", func(context.Context, pgx.Tx) (json.RawMessage, error) {
		return payloadOf(t, map[string]int{"version": 1}), nil
	})
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}

	calls := 0
	second, err := ledger.ExecuteOnce(ctx, "k1", func(context.Context, pgx.Tx) (json.RawMessage, error) {
		calls++
		return payloadOf(t, map[string]int{"version": 2}), nil
	})
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if calls != 0 {
		t.Fatal("replay must not invoke the operation again")
	}
	if !second.Replayed {
		t.Fatal("expected replayed result")
	}
	if string(second.Payload) != string(first.Payload) {
		t.Fatalf("replayed payload %s differs from original %s", second.Payload, first.Payload)
	}
}

func TestExecuteOnceReleasesKeyOnFailure(t *testing.T) {
	store := newFakeStore()
	ledger := NewLedger(store)
	ctx := context.Background()

	opErr := errors.New("downstream unavailable")
	if _, err := ledger.ExecuteOnce(ctx, "k1", func(context.Context, pgx.Tx) (json.RawMessage, error) {
		return nil, opErr
	}); !errors.Is(err, opErr) {
		t.Fatalf("expected operation error surfaced, got %v", err)
	}

	// The key was consumed by failure? No: retry must execute again.
	calls := 0
	if _, err := ledger.ExecuteOnce(ctx, "k1", func(context.Context, pgx.Tx) (json.RawMessage, error) {
		calls++
		return payloadOf(t, "ok"), nil
	}); err != nil {
		t.Fatalf("retry after failure should succeed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected retry to execute the operation, got %d calls", calls)
	}
}

func TestExecuteOnceCompletionCommitsWithOperation(t *testing.T) {
	store := newFakeStore()
	ledger := NewLedger(store)
	ctx := context.Background()

	// While the operation runs, the key must still read in_flight: the
	// completion write is buffered in the operation's transaction, not
	// applied ahead of it.
	_, err := ledger.ExecuteOnce(ctx, "k1", func(_ context.Context, tx pgx.Tx) (json.RawMessage, error) {
		if status := store.records["k1"].status; status != "in_flight" {
			t.Fatalf("key flipped to %q before the operation committed", status)
		}
		return payloadOf(t, "ok"), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status := store.records["k1"].status; status != "completed" {
		t.Fatalf("expected completed after commit, got %q", status)
	}
}

func TestExecuteOnceCommitFailureLeavesNoCompletedKey(t *testing.T) {
	store := newFakeStore()
	ledger := NewLedger(store)
	ctx := context.Background()

	// A commit that dies takes the effects and the completion down together,
	// so a retry of the same key must run the operation again rather than
	// replay a result whose effects never landed.
	store.failCommit = true
	if _, err := ledger.ExecuteOnce(ctx, "k1", func(context.Context, pgx.Tx) (json.RawMessage, error) {
		return payloadOf(t, map[string]int{"version": 1}), nil
	}); err == nil {
		t.Fatal("expected commit failure to surface")
	}
	if _, exists := store.records["k1"]; exists {
		t.Fatal("key must be released when the unit fails to commit")
	}

	store.failCommit = false
	calls := 0
	result, err := ledger.ExecuteOnce(ctx, "k1", func(context.Context, pgx.Tx) (json.RawMessage, error) {
		calls++
		return payloadOf(t, map[string]int{"version": 1}), nil
	})
	if err != nil {
		t.Fatalf("retry after commit failure should succeed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one execution on retry, got %d", calls)
	}
	if result.Replayed {
		t.Fatal("retry after a failed commit must not be a replay")
	}
}

func TestExecuteOnceConflictsWhileInFlight(t *testing.T) {
	store := newFakeStore()
	ledger := NewLedger(store)
	ctx := context.Background()

	// Simulate another caller holding the reservation.
	store.records["k1"] = &fakeRecord{status: "in_flight", createdAt: time.Now()}

	_, err := ledger.ExecuteOnce(ctx, "k1", func(context.Context, pgx.Tx) (json.RawMessage, error) {
		t.Fatal("operation must not run while the key is in flight")
		return nil, nil
	})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestExecuteOnceRequiresKey(t *testing.T) {
	ledger := NewLedger(newFakeStore())
	_, err := ledger.ExecuteOnce(context.Background(), "", func(context.Context, pgx.Tx) (json.RawMessage, error) {
		return nil, nil
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestKeyDerivation(t *testing.T) {
	key := Key("ClaimLead", "next", "sales-42", "nonce-1")
	if key != "ClaimLead:next:sales-42:nonce-1" {
		t.Fatalf("unexpected key %q", key)
	}
}
