// Package session keeps the credential pair of the signed-in user.
package session

import (
	"context"
	"sync"

	"ticketbooth/entity"
)

// Store is the only mutation surface of the credential pair.
type Store interface {
	Get(ctx context.Context) (entity.Credentials, error)
	Set(ctx context.Context, credentials entity.Credentials) error
	Clear(ctx context.Context) error
}

type MemoryStore struct {
	lock        sync.RWMutex
	credentials entity.Credentials
}

func NewMemoryStore(credentials entity.Credentials) *MemoryStore {
	return &MemoryStore{credentials: credentials}
}

func (s *MemoryStore) Get(_ context.Context) (entity.Credentials, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.credentials, nil
}

func (s *MemoryStore) Set(_ context.Context, credentials entity.Credentials) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.credentials = credentials

	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.credentials = entity.Credentials{}

	return nil
}
