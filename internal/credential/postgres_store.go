package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the stores use.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresCredentialStore implements CredentialStore on user_credentials.
type PostgresCredentialStore struct {
	db DB
}

func NewPostgresCredentialStore(db DB) *PostgresCredentialStore {
	return &PostgresCredentialStore{db: db}
}

func (s *PostgresCredentialStore) Ensure(ctx context.Context, phone, accountID string) error {
	_, err := s.db.Exec(ctx, `INSERT INTO user_credentials (phone_number, account_id, password_hash, updated_at)
        VALUES ($1, $2, NULL, now())
        ON CONFLICT (phone_number) DO NOTHING`, phone, accountID)
	if err != nil {
		return fmt.Errorf("ensure credential: %w", err)
	}
	return nil
}

func (s *PostgresCredentialStore) SetPasswordHash(ctx context.Context, phone, accountID, hash string) error {
	_, err := s.db.Exec(ctx, `INSERT INTO user_credentials (phone_number, account_id, password_hash, updated_at)
        VALUES ($1, $2, $3, now())
        ON CONFLICT (phone_number) DO UPDATE
        SET account_id = EXCLUDED.account_id, password_hash = EXCLUDED.password_hash, updated_at = now()`,
		phone, accountID, hash)
	if err != nil {
		return fmt.Errorf("set password hash: %w", err)
	}
	return nil
}

func (s *PostgresCredentialStore) PasswordHash(ctx context.Context, phone string) (string, bool, error) {
	var hash *string
	err := s.db.QueryRow(ctx, `SELECT password_hash FROM user_credentials WHERE phone_number = $1`, phone).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load password hash: %w", err)
	}
	if hash == nil {
		return "", true, nil
	}
	return *hash, true, nil
}

// PostgresProfileStore implements ProfileStore on user_profiles.
type PostgresProfileStore struct {
	db DB
}

func NewPostgresProfileStore(db DB) *PostgresProfileStore {
	return &PostgresProfileStore{db: db}
}

func (s *PostgresProfileStore) Lookup(ctx context.Context, phone string) (Status, error) {
	var hasPassword bool
	err := s.db.QueryRow(ctx, `SELECT has_password FROM user_profiles WHERE phone_number = $1`, phone).Scan(&hasPassword)
	if errors.Is(err, pgx.ErrNoRows) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("lookup profile: %w", err)
	}
	return Status{Exists: true, HasPassword: hasPassword}, nil
}

func (s *PostgresProfileStore) Ensure(ctx context.Context, phone, accountID string) error {
	_, err := s.db.Exec(ctx, `INSERT INTO user_profiles (phone_number, account_id, has_password, updated_at)
        VALUES ($1, $2, false, now())
        ON CONFLICT (phone_number) DO UPDATE SET account_id = EXCLUDED.account_id`, phone, accountID)
	if err != nil {
		return fmt.Errorf("ensure profile: %w", err)
	}
	return nil
}

func (s *PostgresProfileStore) MarkPassword(ctx context.Context, phone, accountID string) error {
	_, err := s.db.Exec(ctx, `INSERT INTO user_profiles (phone_number, account_id, has_password, updated_at)
        VALUES ($1, $2, true, now())
        ON CONFLICT (phone_number) DO UPDATE
        SET account_id = EXCLUDED.account_id, has_password = true, updated_at = now()`, phone, accountID)
	if err != nil {
		return fmt.Errorf("mark password: %w", err)
	}
	return nil
}
