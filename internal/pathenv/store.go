// Package pathenv reads and mutates the executable search path for the
// current process and the user's persistent environment.
package pathenv

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// Store is the shared search-path resource. Implementations must be safe for
// concurrent use; Append never introduces duplicates.
type Store interface {
	List() []string
	// Append adds the directories that are not already present and returns
	// the ones it added.
	Append(dirs ...string) ([]string, error)
	// Remove drops the directories and returns the ones it removed.
	Remove(dirs ...string) ([]string, error)
}

// Persister writes search-path changes to the user's persistent environment.
type Persister interface {
	Add(dirs []string) error
	Remove(dirs []string) error
}

// SystemStore mutates the PATH of the running process and forwards every
// change to a Persister.
type SystemStore struct {
	mu        sync.Mutex
	persister Persister
}

var _ Store = (*SystemStore)(nil)

// NewSystemStore returns a store over the process PATH. A nil persister keeps
// changes process-local.
func NewSystemStore(p Persister) *SystemStore {
	return &SystemStore{persister: p}
}

func (s *SystemStore) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Split(os.Getenv("PATH"))
}

func (s *SystemStore) Append(dirs ...string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := Split(os.Getenv("PATH"))
	next, added := appendMissing(current, dirs)
	if len(added) == 0 {
		return nil, nil
	}
	if err := os.Setenv("PATH", Join(next)); err != nil {
		return nil, fmt.Errorf("update process PATH: %w", err)
	}
	if s.persister != nil {
		if err := s.persister.Add(added); err != nil {
			return added, fmt.Errorf("persist PATH: %w", err)
		}
	}
	return added, nil
}

func (s *SystemStore) Remove(dirs ...string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, removed := removeAll(Split(os.Getenv("PATH")), dirs)
	if len(removed) > 0 {
		if err := os.Setenv("PATH", Join(next)); err != nil {
			return nil, fmt.Errorf("update process PATH: %w", err)
		}
	}
	if s.persister != nil {
		// The persistent entry may exist even when this process never saw it.
		if err := s.persister.Remove(dirs); err != nil {
			return removed, fmt.Errorf("persist PATH: %w", err)
		}
	}
	return removed, nil
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu   sync.Mutex
	dirs []string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(dirs ...string) *MemoryStore {
	return &MemoryStore{dirs: append([]string(nil), dirs...)}
}

func (m *MemoryStore) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.dirs...)
}

func (m *MemoryStore) Append(dirs ...string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var added []string
	m.dirs, added = appendMissing(m.dirs, dirs)
	return added, nil
}

func (m *MemoryStore) Remove(dirs ...string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed []string
	m.dirs, removed = removeAll(m.dirs, dirs)
	return removed, nil
}

// Split parses a PATH-style list, dropping empty entries.
func Split(value string) []string {
	var out []string
	for _, entry := range filepath.SplitList(value) {
		if strings.TrimSpace(entry) != "" {
			out = append(out, entry)
		}
	}
	return out
}

// Join renders entries as a PATH-style list.
func Join(entries []string) string {
	return strings.Join(entries, string(os.PathListSeparator))
}

// Key normalises a directory for comparison: variables are expanded, the
// path is cleaned, trailing separators are dropped, and case is folded on
// Windows.
func Key(dir string) string {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return ""
	}
	dir = filepath.Clean(expandVars(dir))
	if len(dir) > 1 {
		dir = strings.TrimRight(dir, `/\`)
		if dir == "" {
			dir = string(filepath.Separator)
		}
	}
	if runtime.GOOS == "windows" {
		dir = strings.ToLower(dir)
	}
	return dir
}

func indexOf(entries []string, dir string) int {
	key := Key(dir)
	for i, entry := range entries {
		if Key(entry) == key {
			return i
		}
	}
	return -1
}

func appendMissing(current, dirs []string) ([]string, []string) {
	next := append([]string(nil), current...)
	var added []string
	for _, dir := range dirs {
		if Key(dir) == "" || indexOf(next, dir) >= 0 {
			continue
		}
		next = append(next, dir)
		added = append(added, dir)
	}
	return next, added
}

func removeAll(current, dirs []string) ([]string, []string) {
	drop := make(map[string]struct{}, len(dirs))
	for _, dir := range dirs {
		drop[Key(dir)] = struct{}{}
	}
	var next, removed []string
	for _, entry := range current {
		if _, ok := drop[Key(entry)]; ok {
			removed = append(removed, entry)
			continue
		}
		next = append(next, entry)
	}
	return next, removed
}
