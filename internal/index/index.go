// Package index implements the staging area: a durable, atomic map of
// pending cell changes keyed by their full cell coordinate.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"cellvcs/internal/cellpath"
	"cellvcs/internal/errors"
	"cellvcs/internal/hashing"
	shared "cellvcs/shared/types"
)

// Entry is one staged cell change, the closed record schema resolving the
// "dynamic map values" open question: every entry round-trips through
// this exact struct.
type Entry struct {
	WorkbookID     string `json:"workbook_id"`
	SheetNumber    int    `json:"sheet_number"`
	RowLetters     string `json:"row_letters"`
	ColNumber      int    `json:"col_number"`
	BlobHash       string `json:"blob_hash"`
	Timestamp      int64  `json:"timestamp"`
	OriginalSize   int    `json:"original_size"`
	CompressedSize int    `json:"compressed_size"`
}

func (e Entry) key() string {
	return fmt.Sprintf("%s:%d:%s:%d", e.WorkbookID, e.SheetNumber, strings.ToUpper(e.RowLetters), e.ColNumber)
}

// StageOutcome is the result of a single stage call.
type StageOutcome string

const (
	Added     StageOutcome = "added"
	Updated   StageOutcome = "updated"
	Unchanged StageOutcome = "unchanged"
)

// Index is the staging area. All mutating operations take out a
// process-wide write lock for the whole load-modify-save cycle; reads
// take a read lock.
type Index struct {
	path string
	mu   sync.RWMutex
}

// Open prepares an Index backed by the file at <vcsRoot>/index. The file
// need not exist yet; a missing, empty, or unparseable index loads as
// empty (lenient recovery), per the staging index's error policy.
func Open(vcsRoot string) *Index {
	return &Index{path: filepath.Join(vcsRoot, "index")}
}

func (ix *Index) load() (map[string]Entry, error) {
	b, err := os.ReadFile(ix.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Entry{}, nil
		}
		return map[string]Entry{}, nil // lenient: treat unreadable index as empty
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return map[string]Entry{}, nil
	}
	var m map[string]Entry
	if err := json.Unmarshal(b, &m); err != nil {
		return map[string]Entry{}, nil // lenient: malformed index is loaded as empty; nothing is logged
	}
	return m, nil
}

func (ix *Index) save(m map[string]Entry) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.IoFailure("encoding index: " + err.Error())
	}
	tmp, err := os.CreateTemp(filepath.Dir(ix.path), ".tmp-index-*")
	if err != nil {
		return errors.IoFailure("creating temp index file: " + err.Error())
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.IoFailure("writing index: " + err.Error())
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.IoFailure("closing index: " + err.Error())
	}
	if err := os.Rename(tmpName, ix.path); err != nil {
		os.Remove(tmpName)
		return errors.IoFailure("finalizing index: " + err.Error())
	}
	return nil
}

// Stage records addr's current blob hash in the index, returning whether
// it was newly added, replaced an existing entry, or matched the already
// -staged hash (a no-op).
func (ix *Index) Stage(addr cellpath.Address, blobHash hashing.Hash, originalSize, compressedSize int) (StageOutcome, error) {
	if err := addr.Validate(); err != nil {
		return "", errors.InvalidInput(err.Error())
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	m, err := ix.load()
	if err != nil {
		return "", err
	}

	entry := Entry{
		WorkbookID:     addr.WorkbookID,
		SheetNumber:    addr.SheetNumber,
		RowLetters:     strings.ToUpper(addr.Letters),
		ColNumber:      addr.Number,
		BlobHash:       blobHash.String(),
		Timestamp:      time.Now().Unix(),
		OriginalSize:   originalSize,
		CompressedSize: compressedSize,
	}
	key := entry.key()

	existing, had := m[key]
	if had && existing.BlobHash == entry.BlobHash {
		return Unchanged, nil
	}

	m[key] = entry
	if err := ix.save(m); err != nil {
		return "", err
	}
	if had {
		return Updated, nil
	}
	return Added, nil
}

// Unstage removes the entry for key (as produced by Entry.key or
// cellpath.Address.IndexKey), reporting whether an entry was removed.
func (ix *Index) Unstage(key string) (bool, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	m, err := ix.load()
	if err != nil {
		return false, err
	}
	if _, ok := m[key]; !ok {
		return false, nil
	}
	delete(m, key)
	if err := ix.save(m); err != nil {
		return false, err
	}
	return true, nil
}

// List returns every staged entry, sorted by ascending timestamp.
func (ix *Index) List() ([]Entry, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	m, err := ix.load()
	if err != nil {
		return nil, err
	}
	return sortedByTimestamp(m), nil
}

// ListForWorkbook returns staged entries for one workbook, sorted
// lexicographically by key.
func (ix *Index) ListForWorkbook(workbookID string) ([]Entry, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	m, err := ix.load()
	if err != nil {
		return nil, err
	}
	return filterSorted(m, func(e Entry) bool { return e.WorkbookID == workbookID }), nil
}

// ListForSheet returns staged entries for one workbook+sheet, sorted
// lexicographically by key.
func (ix *Index) ListForSheet(workbookID string, sheet int) ([]Entry, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	m, err := ix.load()
	if err != nil {
		return nil, err
	}
	return filterSorted(m, func(e Entry) bool {
		return e.WorkbookID == workbookID && e.SheetNumber == sheet
	}), nil
}

// Clear replaces the index with an empty map.
func (ix *Index) Clear() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.save(map[string]Entry{})
}

// Stats aggregates counts and sizes across the staged set.
func (ix *Index) Stats() (shared.IndexStats, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	m, err := ix.load()
	if err != nil {
		return shared.IndexStats{}, err
	}

	stats := shared.IndexStats{EntriesByWorkbook: map[string]int{}}
	for _, e := range m {
		stats.TotalEntries++
		stats.EntriesByWorkbook[e.WorkbookID]++
		stats.TotalOriginalSize += int64(e.OriginalSize)
		stats.TotalCompressedSize += int64(e.CompressedSize)
	}
	if stats.TotalOriginalSize > 0 {
		stats.CompressionRatio = float64(stats.TotalCompressedSize) / float64(stats.TotalOriginalSize)
	}
	return stats, nil
}

func sortedByTimestamp(m map[string]Entry) []Entry {
	out := make([]Entry, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

func filterSorted(m map[string]Entry, keep func(Entry) bool) []Entry {
	keys := make([]string, 0, len(m))
	for k, e := range m {
		if keep(e) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}
