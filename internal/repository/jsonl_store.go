package repository

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when inserting a record whose id is taken
	ErrAlreadyExists = errors.New("record already exists")
)

const maxLineSize = 4 * 1024 * 1024

// Record is anything stored in a JSONLStore
type Record interface {
	RecordID() string
}

// JSONLStore keeps records in a line-delimited JSON file.
// Inserts append a line; updates and deletes rewrite the whole file through a temp file.
// There is no transactional guarantee across processes.
type JSONLStore[T Record] struct {
	mu   sync.RWMutex
	path string
}

// NewJSONLStore creates a store backed by path; the file is created lazily
func NewJSONLStore[T Record](path string) *JSONLStore[T] {
	return &JSONLStore[T]{path: path}
}

// Path returns the backing file path
func (s *JSONLStore[T]) Path() string {
	return s.path
}

// List returns all records in file order
func (s *JSONLStore[T]) List() ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()
}

// Get returns the record with the given id
func (s *JSONLStore[T]) Get(id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var zero T
	records, err := s.load()
	if err != nil {
		return zero, err
	}
	for _, r := range records {
		if r.RecordID() == id {
			return r, nil
		}
	}
	return zero, fmt.Errorf("%s: %w", id, ErrNotFound)
}

// Count returns the number of records
func (s *JSONLStore[T]) Count() (int, error) {
	records, err := s.List()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Insert appends a record
func (s *JSONLStore[T]) Insert(record T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.RecordID() == record.RecordID() {
			return fmt.Errorf("%s: %w", record.RecordID(), ErrAlreadyExists)
		}
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}
	return nil
}

// Update replaces the record with the same id
func (s *JSONLStore[T]) Update(record T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	found := false
	for i, r := range records {
		if r.RecordID() == record.RecordID() {
			records[i] = record
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%s: %w", record.RecordID(), ErrNotFound)
	}
	return s.rewrite(records)
}

// Delete removes the record with the given id and returns it
func (s *JSONLStore[T]) Delete(id string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	records, err := s.load()
	if err != nil {
		return zero, err
	}
	for i, r := range records {
		if r.RecordID() == id {
			records = append(records[:i], records[i+1:]...)
			return r, s.rewrite(records)
		}
	}
	return zero, fmt.Errorf("%s: %w", id, ErrNotFound)
}

// ReplaceAll overwrites the store with records
func (s *JSONLStore[T]) ReplaceAll(records []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rewrite(records)
}

func (s *JSONLStore[T]) load() ([]T, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer f.Close()

	records := []T{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 || allSpace(line) {
			continue
		}
		var r T
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", s.path, lineNo, err)
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read store: %w", err)
	}
	return records, nil
}

func (s *JSONLStore[T]) rewrite(records []T) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, r := range records {
		line, err := json.Marshal(r)
		if err != nil {
			tmp.Close()
			return fmt.Errorf("failed to marshal record %s: %w", r.RecordID(), err)
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace store: %w", err)
	}
	return nil
}

func allSpace(b []byte) bool {
	for _, c := range b {
		if c != ' ' && c != '\t' && c != '\r' {
			return false
		}
	}
	return true
}
