package identity

import (
	"context"
	"sync"
)

type memoryAccountRepository struct {
	mu      sync.RWMutex
	byEmail map[string]AccountRecord
	emails  map[string]string
}

// NewMemoryAccountRepository builds an in-memory account store for dev and tests.
func NewMemoryAccountRepository() AccountRepository {
	return &memoryAccountRepository{
		byEmail: make(map[string]AccountRecord),
		emails:  make(map[string]string),
	}
}

func (r *memoryAccountRepository) Create(_ context.Context, rec AccountRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[rec.Email]; exists {
		return ErrAlreadyRegistered
	}
	r.byEmail[rec.Email] = rec
	r.emails[rec.ID] = rec.Email
	return nil
}

func (r *memoryAccountRepository) FindByEmail(_ context.Context, email string) (AccountRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byEmail[email]
	if !ok {
		return AccountRecord{}, ErrAccountNotFound
	}
	return rec, nil
}

func (r *memoryAccountRepository) FindByID(_ context.Context, id string) (AccountRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	email, ok := r.emails[id]
	if !ok {
		return AccountRecord{}, ErrAccountNotFound
	}
	return r.byEmail[email], nil
}

func (r *memoryAccountRepository) Update(_ context.Context, rec AccountRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	email, ok := r.emails[rec.ID]
	if !ok {
		return ErrAccountNotFound
	}
	rec.Email = email
	r.byEmail[email] = rec
	return nil
}
