package credential

import (
	"context"
	"sync"
	"time"
)

// MemoryCredentialStore keeps credential rows in memory for dev and tests.
type MemoryCredentialStore struct {
	mu   sync.RWMutex
	rows map[string]Record
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{rows: make(map[string]Record)}
}

func (s *MemoryCredentialStore) Ensure(_ context.Context, phone, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[phone]; ok {
		return nil
	}
	s.rows[phone] = Record{Phone: phone, AccountID: accountID, UpdatedAt: time.Now().UTC()}
	return nil
}

func (s *MemoryCredentialStore) SetPasswordHash(_ context.Context, phone, accountID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[phone] = Record{Phone: phone, AccountID: accountID, PasswordHash: hash, UpdatedAt: time.Now().UTC()}
	return nil
}

func (s *MemoryCredentialStore) PasswordHash(_ context.Context, phone string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.rows[phone]
	if !ok {
		return "", false, nil
	}
	return rec.PasswordHash, true, nil
}

// MemoryProfileStore keeps profile rows in memory for dev and tests.
type MemoryProfileStore struct {
	mu   sync.RWMutex
	rows map[string]Profile
}

func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{rows: make(map[string]Profile)}
}

func (s *MemoryProfileStore) Lookup(_ context.Context, phone string) (Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.rows[phone]
	if !ok {
		return Status{}, nil
	}
	return Status{Exists: true, HasPassword: p.HasPassword}, nil
}

func (s *MemoryProfileStore) Ensure(_ context.Context, phone, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.rows[phone]; ok {
		p.AccountID = accountID
		s.rows[phone] = p
		return nil
	}
	s.rows[phone] = Profile{Phone: phone, AccountID: accountID, UpdatedAt: time.Now().UTC()}
	return nil
}

func (s *MemoryProfileStore) MarkPassword(_ context.Context, phone, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[phone] = Profile{Phone: phone, AccountID: accountID, HasPassword: true, UpdatedAt: time.Now().UTC()}
	return nil
}
