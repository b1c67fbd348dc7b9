package vcs

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cellvcs/internal/workbook"
)

func setupTestRepo(t *testing.T) (*Repo, *workbook.MemStore, func()) {
	dir, err := os.MkdirTemp("", "cellvcs-repo-test")
	require.NoError(t, err)

	wb := workbook.NewMemStore()
	repo, err := Init(dir, wb, nil)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		os.RemoveAll(dir)
	}
	return repo, wb, cleanup
}

// TestFullLifecycle walks the repository through every scenario in order:
// an initial commit, a no-op stage, a second commit, a soft reset, a hard
// reset, and a revert.
func TestFullLifecycle(t *testing.T) {
	repo, wb, cleanup := setupTestRepo(t)
	defer cleanup()

	require.NoError(t, wb.WriteCell("wb1", 1, "A", 1, "Hello"))

	stageRes, err := repo.Stage("wb1", 1, "A", 1)
	require.NoError(t, err)
	assert.True(t, stageRes.Staged)
	assert.Equal(t, "added", stageRes.State)

	// Staging the same value again is a no-op.
	stageRes2, err := repo.Stage("wb1", 1, "A", 1)
	require.NoError(t, err)
	assert.False(t, stageRes2.Staged)
	assert.Equal(t, "unchanged", stageRes2.State)

	first, err := repo.Commit("initial commit", "Alice", "alice@x")
	require.NoError(t, err)
	assert.Empty(t, first.ParentHash)
	assert.Equal(t, "main", first.Branch)

	status, err := repo.Status()
	require.NoError(t, err)
	assert.True(t, status.Clean)
	require.NotNil(t, status.LastCommit)
	assert.Equal(t, first.CommitHash, status.LastCommit.Hash)

	require.NoError(t, wb.WriteCell("wb1", 1, "A", 1, "World"))
	_, err = repo.Stage("wb1", 1, "A", 1)
	require.NoError(t, err)
	second, err := repo.Commit("second commit", "Alice", "alice@x")
	require.NoError(t, err)
	assert.Equal(t, first.CommitHash, second.ParentHash)

	hist, err := repo.History(10)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, second.CommitHash, hist[0].Hash)
	assert.Equal(t, first.CommitHash, hist[1].Hash)

	// Soft reset: branch rewinds, workbook and index untouched.
	_, err = repo.SoftReset(first.CommitHash)
	require.NoError(t, err)
	value, err := wb.ReadCell("wb1", 1, "A", 1)
	require.NoError(t, err)
	assert.Equal(t, "World", value)

	statusAfterSoft, err := repo.Status()
	require.NoError(t, err)
	require.NotNil(t, statusAfterSoft.LastCommit)
	assert.Equal(t, first.CommitHash, statusAfterSoft.LastCommit.Hash)

	// Move back to second, then hard reset to first: workbook reverts too.
	_, err = repo.SoftReset(second.CommitHash)
	require.NoError(t, err)
	_, err = repo.HardReset(first.CommitHash)
	require.NoError(t, err)

	value, err = wb.ReadCell("wb1", 1, "A", 1)
	require.NoError(t, err)
	assert.Equal(t, "Hello", value)

	// Revert the second commit on top of history once more.
	_, err = repo.SoftReset(second.CommitHash)
	require.NoError(t, err)
	revertRes, err := repo.Revert(second.CommitHash, "Bob", "bob@x")
	require.NoError(t, err)
	assert.Equal(t, second.CommitHash, revertRes.ParentHash)

	histAfterRevert, err := repo.History(10)
	require.NoError(t, err)
	assert.Len(t, histAfterRevert, 3)
}

func TestPreviewRollbackReportsDestructive(t *testing.T) {
	repo, wb, cleanup := setupTestRepo(t)
	defer cleanup()

	require.NoError(t, wb.WriteCell("wb1", 1, "A", 1, "Hello"))
	_, err := repo.Stage("wb1", 1, "A", 1)
	require.NoError(t, err)
	first, err := repo.Commit("initial commit", "Alice", "alice@x")
	require.NoError(t, err)

	preview, err := repo.PreviewRollback(first.CommitHash, "hard_reset")
	require.NoError(t, err)
	assert.True(t, preview.Destructive)
	require.NotNil(t, preview.Target)
	assert.Equal(t, first.CommitHash, preview.Target.Hash)
}

func TestPreviewRollbackIncludesCellDiffs(t *testing.T) {
	repo, wb, cleanup := setupTestRepo(t)
	defer cleanup()

	require.NoError(t, wb.WriteCell("wb1", 1, "A", 1, "Hello"))
	_, err := repo.Stage("wb1", 1, "A", 1)
	require.NoError(t, err)
	first, err := repo.Commit("initial commit", "Alice", "alice@x")
	require.NoError(t, err)

	require.NoError(t, wb.WriteCell("wb1", 1, "A", 1, "World"))
	_, err = repo.Stage("wb1", 1, "A", 1)
	require.NoError(t, err)
	_, err = repo.Commit("second commit", "Alice", "alice@x")
	require.NoError(t, err)

	preview, err := repo.PreviewRollback(first.CommitHash, "hard_reset")
	require.NoError(t, err)
	assert.NotEmpty(t, preview.CellDiffs)
	diffText, ok := preview.CellDiffs["wb1/1/A1"]
	require.True(t, ok)
	assert.Contains(t, diffText, "Hello")
	assert.Contains(t, diffText, "World")
}

// TestRevertRespectsParentTree pins the bug where Revert passed a commit
// hash (not its tree hash) to EntriesAt when enumerating the parent's
// snapshot — it must succeed and restore the parent's cell value.
func TestRevertRespectsParentTree(t *testing.T) {
	repo, wb, cleanup := setupTestRepo(t)
	defer cleanup()

	require.NoError(t, wb.WriteCell("wb1", 1, "A", 1, "Hello"))
	_, err := repo.Stage("wb1", 1, "A", 1)
	require.NoError(t, err)
	first, err := repo.Commit("initial commit", "Alice", "alice@x")
	require.NoError(t, err)

	require.NoError(t, wb.WriteCell("wb1", 1, "A", 1, "World"))
	_, err = repo.Stage("wb1", 1, "A", 1)
	require.NoError(t, err)
	second, err := repo.Commit("second commit", "Alice", "alice@x")
	require.NoError(t, err)

	revertRes, err := repo.Revert(second.CommitHash, "Bob", "bob@x")
	require.NoError(t, err)
	assert.Equal(t, second.CommitHash, revertRes.ParentHash)
	assert.Equal(t, first.TreeHash, revertRes.TreeHash)
}

func TestCherryPickOntoDivergedBranch(t *testing.T) {
	repo, wb, cleanup := setupTestRepo(t)
	defer cleanup()

	require.NoError(t, wb.WriteCell("wb1", 1, "A", 1, "Hello"))
	_, err := repo.Stage("wb1", 1, "A", 1)
	require.NoError(t, err)
	first, err := repo.Commit("initial commit", "Alice", "alice@x")
	require.NoError(t, err)

	require.NoError(t, wb.WriteCell("wb1", 1, "B", 2, "World"))
	_, err = repo.Stage("wb1", 1, "B", 2)
	require.NoError(t, err)
	second, err := repo.Commit("add B2", "Alice", "alice@x")
	require.NoError(t, err)

	_, err = repo.SoftReset(first.CommitHash)
	require.NoError(t, err)

	picked, err := repo.CherryPick(second.CommitHash, "Carol", "carol@x")
	require.NoError(t, err)
	assert.Equal(t, first.CommitHash, picked.ParentHash)
}

func TestStageValidatesAddress(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	_, err := repo.Stage("", 1, "A", 1)
	assert.Error(t, err)
}

func TestIndexStatsReflectsStagedEntries(t *testing.T) {
	repo, wb, cleanup := setupTestRepo(t)
	defer cleanup()

	require.NoError(t, wb.WriteCell("wb1", 1, "A", 1, "Hello"))
	_, err := repo.Stage("wb1", 1, "A", 1)
	require.NoError(t, err)

	stats, err := repo.IndexStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalEntries)
}

func TestAuditLogRecordsCommits(t *testing.T) {
	repo, wb, cleanup := setupTestRepo(t)
	defer cleanup()

	require.NoError(t, wb.WriteCell("wb1", 1, "A", 1, "Hello"))
	_, err := repo.Stage("wb1", 1, "A", 1)
	require.NoError(t, err)
	_, err = repo.Commit("initial commit", "Alice", "alice@x")
	require.NoError(t, err)

	records, err := repo.AuditLog(10)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Equal(t, "commit", records[0].Kind)
}
