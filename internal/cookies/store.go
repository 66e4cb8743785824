// Package cookies persists the authentication cookie set as a JSON file.
//
// The store is deliberately dumb: it moves an opaque blob between disk and
// the browser layer. A missing or corrupt file is reported as an error and
// the caller falls back to interactive login.
package cookies

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/plexy44/doplen/internal/domain"
)

// FileStore reads and writes the cookie set at a fixed path.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads and parses the persisted cookie set.
func (s *FileStore) Load() ([]domain.Cookie, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read cookie file: %w", err)
	}

	var cookies []domain.Cookie
	if err := json.Unmarshal(raw, &cookies); err != nil {
		return nil, fmt.Errorf("parse cookie file %s: %w", s.path, err)
	}
	return cookies, nil
}

// Save rewrites the cookie file after a fresh login.
func (s *FileStore) Save(cookies []domain.Cookie) error {
	raw, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize cookies: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("write cookie file: %w", err)
	}
	return nil
}
