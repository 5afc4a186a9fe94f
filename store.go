package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// ItemStore loads and saves the whole shopping list. Implementations never
// report failures to the caller: Load degrades to an empty list and Save
// drops the change.
type ItemStore interface {
	Load() []ShoppingItem
	Save(items []ShoppingItem)
}

// FileStore keeps the list as one pretty-printed JSON array in a file.
// No locking across Load/Save; concurrent writers race and the last one wins.
type FileStore struct {
	mu   sync.Mutex
	path string
	log  *logrus.Logger

	readFile  func(name string) ([]byte, error)
	writeFile func(name string, data []byte, perm os.FileMode) error
	rename    func(oldpath, newpath string) error
}

// NewFileStore returns a store backed by path, creating its parent
// directory when missing.
func NewFileStore(path string, log *logrus.Logger) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{
		path:      path,
		log:       log,
		readFile:  os.ReadFile,
		writeFile: os.WriteFile,
		rename:    os.Rename,
	}, nil
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the persisted items, or an empty list when the file is
// missing or unreadable.
func (s *FileStore) Load() []ShoppingItem {
	items, err := s.read()
	if err != nil {
		s.log.WithError(err).WithField("path", s.path).Error("error loading shopping list")
		return []ShoppingItem{}
	}
	return items
}

// Save overwrites the file with items. Failures are logged only.
func (s *FileStore) Save(items []ShoppingItem) {
	if err := s.write(items); err != nil {
		s.log.WithError(err).WithField("path", s.path).Error("error saving shopping list")
	}
}

func (s *FileStore) read() ([]ShoppingItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.readFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []ShoppingItem{}, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	var items []ShoppingItem
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	if items == nil {
		items = []ShoppingItem{}
	}
	return items, nil
}

func (s *FileStore) write(items []ShoppingItem) error {
	b, err := encodeItems(items)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path + ".tmp"
	if err := s.writeFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	if err := s.rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}
	return nil
}

// encodeItems renders items with 2-space indentation and without escaping
// non-ASCII or HTML characters.
func encodeItems(items []ShoppingItem) ([]byte, error) {
	if items == nil {
		items = []ShoppingItem{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return nil, fmt.Errorf("json marshal: %w", err)
	}
	return buf.Bytes(), nil
}
