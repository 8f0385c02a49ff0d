package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// OfflineSet is the set of station names currently believed offline,
// i.e. stations for which an offline alert has been sent and no matching
// online alert has been sent since. Names are trimmed and case-preserving.
type OfflineSet map[string]struct{}

// NewOfflineSet builds a set from the given names, trimming each and
// dropping empties.
func NewOfflineSet(names ...string) OfflineSet {
	s := make(OfflineSet, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

func (s OfflineSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s OfflineSet) Add(name string)    { s[name] = struct{}{} }
func (s OfflineSet) Remove(name string) { delete(s, name) }
func (s OfflineSet) Len() int           { return len(s) }

// Names returns the members sorted, for stable persistence and display.
func (s OfflineSet) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy.
func (s OfflineSet) Clone() OfflineSet {
	cp := make(OfflineSet, len(s))
	for n := range s {
		cp[n] = struct{}{}
	}
	return cp
}

// Store persists an OfflineSet as a JSON array of strings at a fixed path.
type Store struct {
	filePath string
}

// NewStore creates a Store for the given file path.
func NewStore(filePath string) *Store {
	return &Store{filePath: filePath}
}

// Load reads the persisted set. A missing or malformed file yields an
// empty set, never an error: the daemon must start with "no prior
// knowledge" rather than refuse to run. Entries are trimmed to normalize
// historical data.
func (st *Store) Load() OfflineSet {
	data, err := os.ReadFile(st.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("state file not found, starting fresh", "path", st.filePath)
		} else {
			slog.Warn("state file unreadable, starting fresh", "path", st.filePath, "error", err)
		}
		return NewOfflineSet()
	}

	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		slog.Warn("state file malformed, starting fresh", "path", st.filePath, "error", err)
		return NewOfflineSet()
	}

	return NewOfflineSet(names...)
}

// Save atomically replaces the persisted set with the given one. A reader
// never observes a partially written file: the set is written to a temp
// file in the same directory, synced, then renamed over the target.
func (st *Store) Save(set OfflineSet) error {
	data, err := json.MarshalIndent(set.Names(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(st.filePath)
	tmp, err := os.CreateTemp(dir, filepath.Base(st.filePath)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	tmp = nil

	if err := os.Rename(tmpName, st.filePath); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
