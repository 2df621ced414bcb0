package mappingstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/nightlyone/lockfile"

	"github.com/santaclaude2025/flowsync/pkg/logger"
	"github.com/santaclaude2025/flowsync/pkg/placeholder"
	"github.com/santaclaude2025/flowsync/pkg/utils"
)

// ErrNotExtracted is returned when a file has no recorded mapping,
// i.e. it was never pulled (or redacted) by this tool
var ErrNotExtracted = errors.New("no secret mapping recorded for file")

// corruptSuffix is appended to a store file that could not be parsed
const corruptSuffix = ".corrupt"

// Lock acquisition parameters
const (
	lockRetries    = 50
	lockRetryDelay = 20 * time.Millisecond
)

// The lockfile only excludes other processes; a lock held by our own pid
// counts as acquired, so goroutines serialise here first.
var processMu sync.Mutex

// Entries maps canonical document paths to their secret mappings
type Entries map[string]placeholder.Mapping

// Entry summarises one stored document
type Entry struct {
	Path         string
	Placeholders int
}

// errCorrupt marks a store file that exists but does not parse
var errCorrupt = errors.New("secret store is corrupt")

// Load reads the store at path for lookups. A missing or unreadable store
// is treated as empty. Writers go through read instead.
func Load(path string) Entries {
	entries, err := read(path)
	if err != nil {
		logger.Warn("Failed to load secret store %s, treating as empty: %v", path, err)
		return Entries{}
	}
	return entries
}

// read is the strict form of Load: only a missing file counts as empty
func read(path string) (Entries, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Entries{}, nil
		}
		return nil, fmt.Errorf("failed to read secret store: %w", err)
	}

	var entries Entries
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorrupt, err)
	}
	if entries == nil {
		return Entries{}, nil
	}

	return entries, nil
}

// Save writes entries to path atomically: a reader sees either the old
// file or the new one, never a partial write.
func Save(path string, entries Entries) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create secret store directory: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal secret store: %w", err)
	}

	if err := utils.WriteFileAtomic(path, data, 0600); err != nil {
		return fmt.Errorf("failed to save secret store: %w", err)
	}

	return nil
}

// CanonicalPath turns a document path into the key used in the store
func CanonicalPath(docPath string) (string, error) {
	abs, err := filepath.Abs(docPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %s: %w", docPath, err)
	}

	// Resolve symlinks on the longest existing prefix so two spellings of
	// the same file share one entry, even before the file is created.
	var missing []string
	dir := abs
	for {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(append([]string{resolved}, missing...)...), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		missing = append([]string{filepath.Base(dir)}, missing...)
		dir = parent
	}
}

// Store is a mapping store file shared by many documents
type Store struct {
	path string
}

// New returns a store backed by the file at path
func New(path string) (*Store, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store path: %w", err)
	}
	return &Store{path: abs}, nil
}

// Path returns the store file location
func (s *Store) Path() string {
	return s.path
}

// Get returns the mapping recorded for docPath
func (s *Store) Get(docPath string) (placeholder.Mapping, error) {
	key, err := CanonicalPath(docPath)
	if err != nil {
		return nil, err
	}

	m, ok := Load(s.path)[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotExtracted, key)
	}
	return m, nil
}

// Put records m as the mapping for docPath, replacing any previous one.
// Entries of other documents are left untouched.
func (s *Store) Put(docPath string, m placeholder.Mapping) error {
	key, err := CanonicalPath(docPath)
	if err != nil {
		return err
	}

	return s.update(func(entries Entries) (bool, error) {
		entries[key] = m.Clone()
		return true, nil
	})
}

// Forget removes the mapping for docPath. It reports whether an entry existed.
func (s *Store) Forget(docPath string) (bool, error) {
	key, err := CanonicalPath(docPath)
	if err != nil {
		return false, err
	}

	var existed bool
	err = s.update(func(entries Entries) (bool, error) {
		if _, existed = entries[key]; !existed {
			return false, nil
		}
		delete(entries, key)
		return true, nil
	})
	return existed, err
}

// List returns every stored document, sorted by path
func (s *Store) List() []Entry {
	entries := Load(s.path)

	out := make([]Entry, 0, len(entries))
	for path, m := range entries {
		out = append(out, Entry{Path: path, Placeholders: len(m)})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Path < out[j].Path
	})
	return out
}

// update runs a read-modify-write cycle under the store lock.
// fn reports whether it changed anything worth saving.
func (s *Store) update(fn func(Entries) (bool, error)) error {
	processMu.Lock()
	defer processMu.Unlock()

	lock, err := s.lock()
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("Failed to release secret store lock: %v", err)
		}
	}()

	entries, err := read(s.path)
	if errors.Is(err, errCorrupt) {
		// Keep the unparseable file for manual recovery
		aside := s.path + corruptSuffix
		if renameErr := os.Rename(s.path, aside); renameErr != nil {
			return fmt.Errorf("failed to move corrupt secret store aside: %w", renameErr)
		}
		logger.Warn("Secret store %s was corrupt (%v), moved to %s", s.path, err, aside)
		entries = Entries{}
	} else if err != nil {
		return err
	}

	changed, err := fn(entries)
	if err != nil || !changed {
		return err
	}

	return Save(s.path, entries)
}

func (s *Store) lock() (lockfile.Lockfile, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return "", fmt.Errorf("failed to create secret store directory: %w", err)
	}

	lock, err := lockfile.New(s.path + ".lock")
	if err != nil {
		return "", fmt.Errorf("failed to create secret store lock: %w", err)
	}

	for attempt := 0; attempt < lockRetries; attempt++ {
		err = lock.TryLock()
		if err == nil {
			return lock, nil
		}

		var temporary interface{ Temporary() bool }
		if !errors.As(err, &temporary) || !temporary.Temporary() {
			return "", fmt.Errorf("failed to lock secret store: %w", err)
		}
		time.Sleep(lockRetryDelay)
	}

	return "", fmt.Errorf("secret store is locked by another flowsync process: %w", err)
}
