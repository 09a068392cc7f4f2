package mask

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/epictree/codec"
	"github.com/hupe1980/epictree/internal/fs"
	"github.com/hupe1980/epictree/model"
	"github.com/hupe1980/epictree/store"
)

// Store reads and writes mask files. Writes are atomic (temp file, fsync,
// rename) so a crash never leaves a truncated mask behind.
type Store struct {
	fs    fs.FileSystem
	codec codec.Codec
}

// NewStore creates a mask store. A nil filesystem defaults to the local
// disk; a nil codec defaults to codec.Default.
func NewStore(fsys fs.FileSystem, c codec.Codec) *Store {
	if fsys == nil {
		fsys = fs.Default
	}
	if c == nil {
		c = codec.Default
	}
	return &Store{fs: fsys, codec: c}
}

// Save snapshots the store's selection state and writes it to path.
// I/O failures (permissions, disk full) surface to the caller.
func (s *Store) Save(st *store.Store, basename, path string, now time.Time) error {
	return s.Write(Snapshot(st, basename, now), path)
}

// Write persists an already built mask to path.
func (s *Store) Write(m *Mask, path string) error {
	data, err := s.codec.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode mask: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("write mask %s: %w", path, err)
		}
	}

	tmp := path + ".tmp"
	f, err := s.fs.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("write mask %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		s.fs.Remove(tmp)
		return fmt.Errorf("write mask %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		s.fs.Remove(tmp)
		return fmt.Errorf("sync mask %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		s.fs.Remove(tmp)
		return fmt.Errorf("close mask %s: %w", path, err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		s.fs.Remove(tmp)
		return fmt.Errorf("rename mask %s: %w", path, err)
	}
	return nil
}

// Read parses and structurally validates a mask file without applying it.
func (s *Store) Read(path string) (*Mask, error) {
	f, err := s.fs.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("mask %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("read mask %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read mask %s: %w", path, err)
	}

	var m Mask
	if err := s.codec.Unmarshal(data, &m); err != nil {
		return nil, &ErrMalformed{Path: path, cause: err}
	}
	if m.FormatVersion == "" || m.Selected == nil {
		return nil, &ErrMalformed{Path: path, cause: fmt.Errorf("missing required fields")}
	}
	if len(m.Selected) != m.TotalEpochCount || (m.StableIDs != nil && len(m.StableIDs) != m.TotalEpochCount) {
		return nil, &ErrMalformed{
			Path:  path,
			cause: fmt.Errorf("parallel sequences disagree: epoch_count=%d mask=%d ids=%d", m.TotalEpochCount, len(m.Selected), len(m.StableIDs)),
		}
	}
	return &m, nil
}

// Load reads the mask at path and applies it to the store by stable id.
//
// The load refuses (leaving current selection untouched) when the epoch
// count differs from the store, or when the mask carries no usable stable
// ids. Epochs the mask does not cover default to selected and are counted
// in the summary so the caller can judge how trustworthy the applied mask
// is. Callers must refresh the tree's selection cache afterwards.
func (s *Store) Load(st *store.Store, path string) (Summary, error) {
	m, err := s.Read(path)
	if err != nil {
		return Summary{}, err
	}

	if m.TotalEpochCount != st.Len() {
		return Summary{}, &ErrCountMismatch{Path: path, Expected: st.Len(), Actual: m.TotalEpochCount}
	}
	if m.StableIDs == nil || !m.usableIDs() {
		return Summary{}, &ErrNoStableIDs{Path: path, Version: m.FormatVersion}
	}

	byID := make(map[model.StableID]bool, len(m.StableIDs))
	for i, id := range m.StableIDs {
		if !id.IsZero() {
			byID[id] = m.Selected[i]
		}
	}

	var sum Summary
	for i := 0; i < st.Len(); i++ {
		idx := model.EpochIndex(i)
		id := st.Record(idx).StableID()
		selected, ok := byID[id]
		if id.IsZero() || !ok {
			// No stable identity to match on: default to included rather
			// than silently dropping data.
			st.SetSelected(idx, true)
			sum.Unmatched++
			continue
		}
		st.SetSelected(idx, selected)
		sum.Matched++
		if !selected {
			sum.Excluded++
		}
	}
	return sum, nil
}

// Filename builds the timestamped mask filename for a source dataset:
// {basename}_{YYYYMMDD_HHMMSS}.ugm. Multiple masks per dataset coexist;
// the newest wins FindLatest.
func Filename(basename string, now time.Time) string {
	return fmt.Sprintf("%s_%s%s", basename, now.Format(timestampLayout), Ext)
}

// FindLatest returns the most recent mask file for the given source
// basename in dir, or ok=false when none exists. Latest is the
// lexicographically greatest matching name, which the timestamp layout
// makes chronologically latest.
func (s *Store) FindLatest(dir, basename string) (string, bool, error) {
	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("list masks in %s: %w", dir, err)
	}

	prefix := basename + "_"
	var matches []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, Ext) {
			continue
		}
		matches = append(matches, name)
	}
	if len(matches) == 0 {
		return "", false, nil
	}
	sort.Strings(matches)
	return filepath.Join(dir, matches[len(matches)-1]), true, nil
}
