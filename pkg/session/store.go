package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/entrhq/headline/pkg/logging"
)

// Store persists a Session.
type Store interface {
	// Load returns the stored session, or an empty one when nothing usable is stored.
	Load() Session

	// Save replaces the stored session.
	Save(Session) error

	// Clear removes the stored session. Clearing an empty store succeeds.
	Clear() error

	// Present reports whether a backing file exists.
	Present() bool
}

// fileFormat is the on-disk JSON document.
type fileFormat struct {
	Cookies    []Cookie `json:"cookies"`
	CapturedAt int64    `json:"capturedAt"`
	// Timestamp is the capture key written by older releases.
	Timestamp int64 `json:"timestamp,omitempty"`
}

// FileStore implements Store using a JSON file.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger *logging.Logger
}

// NewFileStore creates a file-backed session store.
// If path is empty, defaults to ~/.headline/cookies.json
func NewFileStore(path string, logger *logging.Logger) (*FileStore, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".headline", "cookies.json")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &FileStore{path: path, logger: logger}, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Present reports whether the backing file exists.
func (s *FileStore) Present() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads the session. Missing, unreadable and corrupt files all yield an
// empty session; the latter two are logged.
func (s *FileStore) Load() Session {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Session{}
	}
	if err != nil {
		s.logger.Warnf("failed to read session file %s: %v", s.path, err)
		return Session{}
	}

	var doc fileFormat
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warnf("failed to parse session file %s: %v", s.path, err)
		return Session{}
	}

	captured := doc.CapturedAt
	if captured == 0 {
		captured = doc.Timestamp
	}
	sess := Session{Cookies: doc.Cookies}
	if captured > 0 {
		sess.CapturedAt = time.Unix(captured, 0)
	}
	s.logger.Infof("loaded %d cookies from %s", len(sess.Cookies), s.path)
	return sess
}

// Save writes the session through a temporary file and an atomic rename so a
// concurrent Load never observes a torn document.
func (s *FileStore) Save(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("session: create directory: %w", err)
	}

	captured := sess.CapturedAt
	if captured.IsZero() {
		captured = time.Now()
	}
	cookies := sess.Cookies
	if cookies == nil {
		cookies = []Cookie{}
	}
	data, err := json.MarshalIndent(fileFormat{Cookies: cookies, CapturedAt: captured.Unix()}, "", "  ")
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("session: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("session: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("session: close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("session: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("session: atomic rename %s: %w", s.path, err)
	}

	s.logger.Infof("saved %d cookies to %s", len(cookies), s.path)
	return nil
}

// Clear deletes the backing file.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("session: remove %s: %w", s.path, err)
	}
	s.logger.Infof("cleared session file %s", s.path)
	return nil
}
