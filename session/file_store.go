package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"ticketbooth/entity"
)

// FileStore persists the pair as JSON in a user-private file.
type FileStore struct {
	lock sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultFilePath is credentials.json under the user's config directory.
func DefaultFilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not resolve config dir: %w", err)
	}

	return filepath.Join(dir, "ticketbooth", "credentials.json"), nil
}

func (s *FileStore) Get(_ context.Context) (entity.Credentials, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return entity.Credentials{}, nil
	}
	if err != nil {
		return entity.Credentials{}, fmt.Errorf("could not read %s: %w", s.path, err)
	}

	var credentials entity.Credentials
	if err := json.Unmarshal(data, &credentials); err != nil {
		return entity.Credentials{}, fmt.Errorf("could not decode %s: %w", s.path, err)
	}

	return credentials, nil
}

func (s *FileStore) Set(_ context.Context, credentials entity.Credentials) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	data, err := json.Marshal(credentials)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("could not create session dir: %w", err)
	}

	// write and rename, a reader never sees a half written pair
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("could not write %s: %w", tmp, err)
	}

	return os.Rename(tmp, s.path)
}

func (s *FileStore) Clear(_ context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("could not remove %s: %w", s.path, err)
	}

	return nil
}
