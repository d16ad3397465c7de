package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountRecord is the stored form of a LocalBackend account.
type AccountRecord struct {
	ID           string
	Email        string
	SecretDigest []byte
	Metadata     Metadata
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (r AccountRecord) account() Account {
	return Account{ID: r.ID, Email: r.Email, Metadata: r.Metadata, CreatedAt: r.CreatedAt}
}

// AccountRepository persists LocalBackend accounts.
type AccountRepository interface {
	// Create returns ErrAlreadyRegistered when the email is taken.
	Create(ctx context.Context, rec AccountRecord) error
	FindByEmail(ctx context.Context, email string) (AccountRecord, error)
	FindByID(ctx context.Context, id string) (AccountRecord, error)
	Update(ctx context.Context, rec AccountRecord) error
}

// PostgresAccountRepository implements AccountRepository using PostgreSQL.
type PostgresAccountRepository struct {
	db *pgxpool.Pool
}

// NewPostgresAccountRepository builds a Postgres-backed account repository.
func NewPostgresAccountRepository(db *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

// Create inserts a new account.
func (r *PostgresAccountRepository) Create(ctx context.Context, rec AccountRecord) error {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO identity_accounts (id, email, secret_digest, phone_number, jid, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $6)`, id, rec.Email, rec.SecretDigest, rec.Metadata.PhoneNumber, rec.Metadata.JID, rec.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyRegistered
	}
	return err
}

// FindByEmail fetches an account by its synthetic email.
func (r *PostgresAccountRepository) FindByEmail(ctx context.Context, email string) (AccountRecord, error) {
	return r.findOne(ctx, `WHERE email = $1`, email)
}

// FindByID fetches an account by id.
func (r *PostgresAccountRepository) FindByID(ctx context.Context, id string) (AccountRecord, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return AccountRecord{}, ErrAccountNotFound
	}
	return r.findOne(ctx, `WHERE id = $1`, uid)
}

func (r *PostgresAccountRepository) findOne(ctx context.Context, where string, arg any) (AccountRecord, error) {
	row := r.db.QueryRow(ctx, `SELECT id, email, secret_digest, phone_number, jid, created_at, updated_at
        FROM identity_accounts `+where, arg)
	var (
		id  uuid.UUID
		rec AccountRecord
	)
	err := row.Scan(&id, &rec.Email, &rec.SecretDigest, &rec.Metadata.PhoneNumber, &rec.Metadata.JID, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return AccountRecord{}, ErrAccountNotFound
	}
	if err != nil {
		return AccountRecord{}, err
	}
	rec.ID = id.String()
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return rec, nil
}

// Update stores a new secret digest and metadata.
func (r *PostgresAccountRepository) Update(ctx context.Context, rec AccountRecord) error {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return ErrAccountNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE identity_accounts SET secret_digest = $1, phone_number = $2, jid = $3, updated_at = $4 WHERE id = $5`,
		rec.SecretDigest, rec.Metadata.PhoneNumber, rec.Metadata.JID, rec.UpdatedAt.UTC(), id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}
