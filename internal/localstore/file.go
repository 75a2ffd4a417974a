package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists all keys as one JSON object on disk. Other processes may
// write the same file, so it is read again whenever it changes underneath.
type FileStore struct {
	path string
	mu   sync.Mutex
	data map[string]string
	info os.FileInfo // file as last read or written, nil when absent
	read bool
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func sameVersion(a, b os.FileInfo) bool {
	return os.SameFile(a, b) && a.ModTime().Equal(b.ModTime()) && a.Size() == b.Size()
}

// load refreshes the cached keys when the file differs from the last version seen
func (s *FileStore) load() error {
	info, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		if !s.read || s.info != nil {
			s.data = make(map[string]string)
			s.info = nil
			s.read = true
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot read store: %w", err)
	}
	if s.read && s.info != nil && sameVersion(info, s.info) {
		return nil
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("cannot read store: %w", err)
	}
	data := make(map[string]string)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("corrupt store %s: %w", s.path, err)
		}
	}
	s.data = data
	s.info = info
	s.read = true
	return nil
}

func (s *FileStore) flush() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".crm-store-*")
	if err != nil {
		return fmt.Errorf("cannot write store: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("cannot write store: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("cannot write store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cannot write store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("cannot write store: %w", err)
	}

	info, err := os.Stat(s.path)
	if err != nil {
		// next access rereads the file
		s.info = nil
		s.read = false
		return nil
	}
	s.info = info
	return nil
}

func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return "", false, err
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *FileStore) Set(key, value string) error {
	return s.SetMany(map[string]string{key: value})
}

// SetMany merges values into the latest file contents and writes once
func (s *FileStore) SetMany(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	for k, v := range values {
		s.data[k] = v
	}
	return s.flush()
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.flush()
}

func (s *FileStore) Keys(prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return nil, err
	}
	return matchKeys(s.data, prefix), nil
}
