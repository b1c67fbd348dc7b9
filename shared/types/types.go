// Package shared holds the data-transfer types passed across the core's
// API surface — stage/commit results, commit summaries, and status
// reports — independent of how a caller (CLI, HTTP) renders them.
package shared

import "time"

// StageResult reports the outcome of staging a single cell.
type StageResult struct {
	BlobHash       string `json:"blob_hash"`
	CellAddress    string `json:"cell_address"`
	OriginalSize   int    `json:"original_size"`
	CompressedSize int    `json:"compressed_size"`
	Staged         bool   `json:"staged"`
	State          string `json:"state"` // "added" | "updated" | "unchanged"
}

// CommitResult reports the outcome of a successful commit.
type CommitResult struct {
	CommitHash  string    `json:"commit_hash"`
	TreeHash    string    `json:"tree_hash"`
	ParentHash  string    `json:"parent_hash,omitempty"`
	Branch      string    `json:"branch"`
	StagedFiles int       `json:"staged_files"`
	Timestamp   time.Time `json:"timestamp"`
}

// CommitInfo summarizes one commit for history listings.
type CommitInfo struct {
	Hash      string    `json:"hash"`
	TreeHash  string    `json:"tree_hash"`
	Parent    string    `json:"parent,omitempty"`
	Author    string    `json:"author"`
	Committer string    `json:"committer"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusReport summarizes the repository's current staging state.
type StatusReport struct {
	Staged      int          `json:"staged"`
	Clean       bool         `json:"clean"`
	StagedFiles []string     `json:"staged_files"`
	LastCommit  *CommitInfo  `json:"last_commit,omitempty"`
}

// RollbackPreview describes what a reset/revert/cherry-pick would touch,
// without performing it.
type RollbackPreview struct {
	Kind         string            `json:"kind"`
	Current      *CommitInfo       `json:"current,omitempty"`
	Target       *CommitInfo       `json:"target"`
	TouchedPaths []string          `json:"touched_paths"`
	Destructive  bool              `json:"destructive"`
	Warning      string            `json:"warning,omitempty"`
	CellDiffs    map[string]string `json:"cell_diffs,omitempty"`
}

// IndexStats summarizes the staging index for the `stats` operation.
type IndexStats struct {
	TotalEntries       int            `json:"total_entries"`
	EntriesByWorkbook  map[string]int `json:"entries_by_workbook"`
	TotalOriginalSize  int64          `json:"total_original_size"`
	TotalCompressedSize int64         `json:"total_compressed_size"`
	CompressionRatio   float64        `json:"compression_ratio"`
}
