// Package activity keeps a local journal of every deposit, swap and
// withdraw divvy performed.
package activity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

const (
	DefaultStorageFileName = ".divvy-activity.json"
)

// Storage persists journal entries in a JSON file
type Storage struct {
	filePath string
	mu       sync.RWMutex
	entries  map[string]*Entry
}

// journalFile is the on-disk layout
type journalFile struct {
	Entries map[string]*Entry `json:"entries"`
}

// NewStorage opens the journal at filePath, or in the home directory when
// filePath is empty
func NewStorage(filePath string) (*Storage, error) {
	if filePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultStorageFileName)
	}

	storage := &Storage{
		filePath: filePath,
		entries:  make(map[string]*Entry),
	}

	if err := storage.load(); err != nil {
		// A missing file is created on first save
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load activity: %w", err)
		}
	}

	return storage, nil
}

func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var file journalFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal activity: %w", err)
	}

	s.entries = file.Entries
	if s.entries == nil {
		s.entries = make(map[string]*Entry)
	}
	return nil
}

// saveLocked writes the journal; callers hold mu
func (s *Storage) saveLocked() error {
	data, err := json.MarshalIndent(journalFile{Entries: s.entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal activity: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to a temporary file first, then rename for an atomic write
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write activity: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Put inserts or replaces an entry
func (s *Storage) Put(entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[entry.ID] = entry
	return s.saveLocked()
}

// Get returns a copy of the entry with the given id
func (s *Storage) Get(id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.entries[id]
	if !exists {
		return nil, fmt.Errorf("activity '%s' not found", id)
	}
	copied := *entry
	return &copied, nil
}

// List returns entries oldest first, optionally filtered
func (s *Storage) List(keep func(*Entry) bool) []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		if keep != nil && !keep(entry) {
			continue
		}
		copied := *entry
		entries = append(entries, &copied)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Created.Equal(entries[j].Created) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].Created.Before(entries[j].Created)
	})
	return entries
}

// Count returns the number of entries
func (s *Storage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// GetFilePath returns the journal file path
func (s *Storage) GetFilePath() string {
	return s.filePath
}
