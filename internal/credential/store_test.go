package credential

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMemoryCredentialLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore()

	if _, found, err := store.PasswordHash(ctx, "15551234567"); err != nil || found {
		t.Fatalf("expected no row, got found=%v err=%v", found, err)
	}

	if err := store.Ensure(ctx, "15551234567", "acc-1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	hash, found, err := store.PasswordHash(ctx, "15551234567")
	if err != nil || !found || hash != "" {
		t.Fatalf("expected row with null hash, got %q found=%v err=%v", hash, found, err)
	}

	if err := store.SetPasswordHash(ctx, "15551234567", "acc-1", "$2a$hash"); err != nil {
		t.Fatalf("set: %v", err)
	}
	// Re-verification must not clear an existing hash.
	if err := store.Ensure(ctx, "15551234567", "acc-1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	hash, _, _ = store.PasswordHash(ctx, "15551234567")
	if hash != "$2a$hash" {
		t.Fatalf("hash lost after ensure: %q", hash)
	}
}

func TestMemoryProfileLookup(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryProfileStore()

	st, err := store.Lookup(ctx, "15551234567")
	if err != nil || st != (Status{}) {
		t.Fatalf("expected zero status for unknown phone, got %+v err=%v", st, err)
	}

	_ = store.Ensure(ctx, "15551234567", "acc-1")
	st, _ = store.Lookup(ctx, "15551234567")
	if st != (Status{Exists: true}) {
		t.Fatalf("unexpected status %+v", st)
	}

	_ = store.MarkPassword(ctx, "15551234567", "acc-1")
	_ = store.Ensure(ctx, "15551234567", "acc-1")
	st, _ = store.Lookup(ctx, "15551234567")
	if st != (Status{Exists: true, HasPassword: true}) {
		t.Fatalf("has_password must survive ensure, got %+v", st)
	}
}

type fakeRow struct {
	value *string
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	switch d := dest[0].(type) {
	case **string:
		*d = r.value
	case *bool:
		*d = r.value != nil
	}
	return nil
}

type fakeDB struct {
	row   fakeRow
	execs []string
}

func (f *fakeDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row { return f.row }

func TestPostgresPasswordHashNullability(t *testing.T) {
	ctx := context.Background()
	hash := "$2a$12$abc"

	cases := []struct {
		name      string
		row       fakeRow
		wantHash  string
		wantFound bool
		wantErr   bool
	}{
		{name: "no row", row: fakeRow{err: pgx.ErrNoRows}},
		{name: "null hash", row: fakeRow{}, wantFound: true},
		{name: "hash", row: fakeRow{value: &hash}, wantHash: hash, wantFound: true},
		{name: "db error", row: fakeRow{err: errors.New("conn reset")}, wantErr: true},
	}
	for _, tc := range cases {
		store := NewPostgresCredentialStore(&fakeDB{row: tc.row})
		got, found, err := store.PasswordHash(ctx, "15551234567")
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: unexpected err %v", tc.name, err)
		}
		if got != tc.wantHash || found != tc.wantFound {
			t.Fatalf("%s: got %q found=%v", tc.name, got, found)
		}
	}
}

func TestPostgresProfileLookupMissingRow(t *testing.T) {
	store := NewPostgresProfileStore(&fakeDB{row: fakeRow{err: pgx.ErrNoRows}})
	st, err := store.Lookup(context.Background(), "15551234567")
	if err != nil || st != (Status{}) {
		t.Fatalf("expected zero status, got %+v err=%v", st, err)
	}
}

func TestPostgresSetPasswordHashUpserts(t *testing.T) {
	db := &fakeDB{}
	store := NewPostgresCredentialStore(db)
	if err := store.SetPasswordHash(context.Background(), "15551234567", "acc-1", "$2a$hash"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if len(db.execs) != 1 || !strings.Contains(db.execs[0], "ON CONFLICT (phone_number) DO UPDATE") {
		t.Fatalf("expected an upsert, got %v", db.execs)
	}
}
