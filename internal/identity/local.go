package identity

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
	localIssuer      = "moovi_auth"
)

// LocalBackend is a self-hosted identity provider: accounts live in an
// AccountRepository and sessions are HS256 JWTs.
type LocalBackend struct {
	repo       AccountRepository
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewLocalBackend creates a LocalBackend. Zero TTLs default to 1h and 30d.
func NewLocalBackend(repo AccountRepository, jwtSecret string, accessTTL, refreshTTL time.Duration) (*LocalBackend, error) {
	if len(jwtSecret) < 16 {
		return nil, errors.New("local identity backend: jwt secret must be at least 16 bytes")
	}
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &LocalBackend{repo: repo, secret: []byte(jwtSecret), accessTTL: accessTTL, refreshTTL: refreshTTL, now: time.Now}, nil
}

func digest(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

func (b *LocalBackend) CreateUser(ctx context.Context, email, secret string, meta Metadata) (Account, error) {
	now := b.now().UTC()
	rec := AccountRecord{
		ID:           uuid.New().String(),
		Email:        email,
		SecretDigest: digest(secret),
		Metadata:     meta,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := b.repo.Create(ctx, rec); err != nil {
		return Account{}, err
	}
	return rec.account(), nil
}

func (b *LocalBackend) FindUserByEmail(ctx context.Context, email string) (Account, error) {
	rec, err := b.repo.FindByEmail(ctx, email)
	if err != nil {
		return Account{}, err
	}
	return rec.account(), nil
}

func (b *LocalBackend) UpdateUser(ctx context.Context, id, secret string, meta Metadata) (Account, error) {
	rec, err := b.repo.FindByID(ctx, id)
	if err != nil {
		return Account{}, err
	}
	rec.SecretDigest = digest(secret)
	rec.Metadata = meta
	rec.UpdatedAt = b.now().UTC()
	if err := b.repo.Update(ctx, rec); err != nil {
		return Account{}, err
	}
	return rec.account(), nil
}

func (b *LocalBackend) SignIn(ctx context.Context, email, secret string) (Session, error) {
	rec, err := b.repo.FindByEmail(ctx, email)
	if err != nil {
		return Session{}, err
	}
	if subtle.ConstantTimeCompare(rec.SecretDigest, digest(secret)) != 1 {
		return Session{}, ErrInvalidSecret
	}
	access, err := b.sign(rec, tokenTypeAccess, b.accessTTL)
	if err != nil {
		return Session{}, err
	}
	refresh, err := b.sign(rec, tokenTypeRefresh, b.refreshTTL)
	if err != nil {
		return Session{}, err
	}
	return Session{AccessToken: access, RefreshToken: refresh}, nil
}

func (b *LocalBackend) sign(rec AccountRecord, typ string, ttl time.Duration) (string, error) {
	now := b.now()
	claims := jwt.MapClaims{
		"sub":   rec.ID,
		"email": rec.Email,
		"typ":   typ,
		"iss":   localIssuer,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
		"jti":   uuid.NewString(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return token, nil
}

func (b *LocalBackend) UserFromToken(ctx context.Context, token string) (Account, error) {
	parsed, err := jwt.Parse(token, func(*jwt.Token) (any, error) { return b.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(localIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(b.now),
	)
	if err != nil || !parsed.Valid {
		return Account{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Account{}, ErrInvalidToken
	}
	if typ, _ := claims["typ"].(string); typ != tokenTypeAccess {
		return Account{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	rec, err := b.repo.FindByID(ctx, sub)
	if errors.Is(err, ErrAccountNotFound) {
		return Account{}, ErrInvalidToken
	}
	if err != nil {
		return Account{}, err
	}
	return rec.account(), nil
}
