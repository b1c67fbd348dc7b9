package history

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cellvcs/internal/cellpath"
	"cellvcs/internal/commit"
	"cellvcs/internal/hashing"
	"cellvcs/internal/index"
	"cellvcs/internal/objstore"
	"cellvcs/internal/refstore"
	"cellvcs/internal/workbook"
)

type testEnv struct {
	store *objstore.Store
	refs  *refstore.RefStore
	index *index.Index
	wb    *workbook.MemStore
}

func setupTestEnv(t *testing.T) (*testEnv, func()) {
	dir, err := os.MkdirTemp("", "cellvcs-history-test")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(dir+"/refs/heads", 0o755))
	require.NoError(t, os.WriteFile(dir+"/HEAD", []byte("ref: refs/heads/main\n"), 0o644))

	store, err := objstore.Open(dir, nil)
	require.NoError(t, err)
	refs, err := refstore.Open(dir)
	require.NoError(t, err)

	cleanup := func() { os.RemoveAll(dir) }
	return &testEnv{store: store, refs: refs, index: index.Open(dir), wb: workbook.NewMemStore()}, cleanup
}

func stageCell(t *testing.T, e *testEnv, workbookID string, sheet int, letters string, col int, value string) {
	require.NoError(t, e.wb.WriteCell(workbookID, sheet, letters, col, value))
	_, h, err := hashing.FrameAndHash("blob", []byte(value))
	require.NoError(t, err)
	_, err = e.store.Put(objstore.KindBlob, []byte(value))
	require.NoError(t, err)
	addr := cellpath.Address{WorkbookID: workbookID, SheetNumber: sheet, Letters: letters, Number: col}
	_, err = e.index.Stage(addr, h, len(value), len(value))
	require.NoError(t, err)
}

// TestScenario1InitialCommit exercises the "Initial commit" end-to-end
// scenario: write a cell, stage it, commit, and confirm the history shows
// exactly one parentless commit.
func TestScenario1InitialCommit(t *testing.T) {
	e, cleanup := setupTestEnv(t)
	defer cleanup()

	stageCell(t, e, "wb1", 1, "A", 1, "Hello")

	_, wantHash, err := hashing.FrameAndHash("blob", []byte("Hello"))
	require.NoError(t, err)

	entries, err := e.index.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, wantHash.String(), entries[0].BlobHash)

	res, err := commit.Commit(e.store, e.refs, e.index, commit.Request{Message: "init", Author: "Alice", Email: "alice@x"})
	require.NoError(t, err)

	hist, err := History(e.store, res.CommitHash, 10)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.False(t, hist[0].HasParent)
}

// TestScenario3SecondCommit exercises "Second commit": changing the cell
// produces a new commit whose parent is the first, with a different tree.
func TestScenario3SecondCommit(t *testing.T) {
	e, cleanup := setupTestEnv(t)
	defer cleanup()

	stageCell(t, e, "wb1", 1, "A", 1, "Hello")
	first, err := commit.Commit(e.store, e.refs, e.index, commit.Request{Message: "init", Author: "Alice", Email: "alice@x"})
	require.NoError(t, err)

	stageCell(t, e, "wb1", 1, "A", 1, "World")
	second, err := commit.Commit(e.store, e.refs, e.index, commit.Request{Message: "update", Author: "Alice", Email: "alice@x"})
	require.NoError(t, err)

	assert.Equal(t, first.CommitHash, second.ParentHash)
	assert.NotEqual(t, first.TreeHash, second.TreeHash)
}

// TestScenario4SoftReset exercises "Soft reset": the workbook store and
// index are untouched, only the branch ref moves.
func TestScenario4SoftReset(t *testing.T) {
	e, cleanup := setupTestEnv(t)
	defer cleanup()

	stageCell(t, e, "wb1", 1, "A", 1, "Hello")
	first, err := commit.Commit(e.store, e.refs, e.index, commit.Request{Message: "init", Author: "Alice", Email: "alice@x"})
	require.NoError(t, err)

	stageCell(t, e, "wb1", 1, "A", 1, "World")
	_, err = commit.Commit(e.store, e.refs, e.index, commit.Request{Message: "update", Author: "Alice", Email: "alice@x"})
	require.NoError(t, err)

	_, err = SoftReset(e.store, e.refs, first.CommitHash)
	require.NoError(t, err)

	value, err := e.wb.ReadCell("wb1", 1, "A", 1)
	require.NoError(t, err)
	assert.Equal(t, "World", value)

	entries, err := e.index.List()
	require.NoError(t, err)
	assert.Empty(t, entries)

	head, ok, err := e.refs.ReadHead()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.CommitHash, head)
}

// TestScenario5HardReset exercises "Hard reset": the cell value and
// branch ref both revert to the target commit.
func TestScenario5HardReset(t *testing.T) {
	e, cleanup := setupTestEnv(t)
	defer cleanup()

	stageCell(t, e, "wb1", 1, "A", 1, "Hello")
	first, err := commit.Commit(e.store, e.refs, e.index, commit.Request{Message: "init", Author: "Alice", Email: "alice@x"})
	require.NoError(t, err)

	stageCell(t, e, "wb1", 1, "A", 1, "World")
	_, err = commit.Commit(e.store, e.refs, e.index, commit.Request{Message: "update", Author: "Alice", Email: "alice@x"})
	require.NoError(t, err)

	_, err = HardReset(nil, e.store, e.refs, e.index, e.wb, first.CommitHash)
	require.NoError(t, err)

	value, err := e.wb.ReadCell("wb1", 1, "A", 1)
	require.NoError(t, err)
	assert.Equal(t, "Hello", value)

	head, ok, err := e.refs.ReadHead()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.CommitHash, head)

	hist, err := History(e.store, head, 10)
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}

// TestScenario6Revert exercises "Revert": reverting the second commit
// produces a tree identical to the first commit's, and the cell's
// staged blob hash matches the "Hello" blob hash.
func TestScenario6Revert(t *testing.T) {
	e, cleanup := setupTestEnv(t)
	defer cleanup()

	stageCell(t, e, "wb1", 1, "A", 1, "Hello")
	first, err := commit.Commit(e.store, e.refs, e.index, commit.Request{Message: "init", Author: "Alice", Email: "alice@x"})
	require.NoError(t, err)

	stageCell(t, e, "wb1", 1, "A", 1, "World")
	second, err := commit.Commit(e.store, e.refs, e.index, commit.Request{Message: "update", Author: "Alice", Email: "alice@x"})
	require.NoError(t, err)

	revertRes, err := Revert(e.store, e.refs, e.index, second.CommitHash, "Bob", "bob@x")
	require.NoError(t, err)

	assert.Equal(t, first.TreeHash, revertRes.TreeHash)

	_, wantHash, err := hashing.FrameAndHash("blob", []byte("Hello"))
	require.NoError(t, err)

	entries, err := EntriesAt(e.store, revertRes.TreeHash)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, wantHash.String(), entries[0].BlobHash)
}

func TestRevertOfInitialCommitFails(t *testing.T) {
	e, cleanup := setupTestEnv(t)
	defer cleanup()

	stageCell(t, e, "wb1", 1, "A", 1, "Hello")
	first, err := commit.Commit(e.store, e.refs, e.index, commit.Request{Message: "init", Author: "Alice", Email: "alice@x"})
	require.NoError(t, err)

	_, err = Revert(e.store, e.refs, e.index, first.CommitHash, "Bob", "bob@x")
	assert.Error(t, err)
}

func TestCherryPick(t *testing.T) {
	e, cleanup := setupTestEnv(t)
	defer cleanup()

	stageCell(t, e, "wb1", 1, "A", 1, "Hello")
	first, err := commit.Commit(e.store, e.refs, e.index, commit.Request{Message: "init", Author: "Alice", Email: "alice@x"})
	require.NoError(t, err)

	stageCell(t, e, "wb1", 1, "B", 2, "World")
	second, err := commit.Commit(e.store, e.refs, e.index, commit.Request{Message: "add B2", Author: "Alice", Email: "alice@x"})
	require.NoError(t, err)

	// Reset to the first commit, then cherry-pick the second on top.
	_, err = SoftReset(e.store, e.refs, first.CommitHash)
	require.NoError(t, err)

	picked, err := CherryPick(e.store, e.refs, e.index, second.CommitHash, "Carol", "carol@x")
	require.NoError(t, err)
	assert.Equal(t, second.TreeHash, picked.TreeHash)
}

func TestPreviewRollbackFlagsDestructive(t *testing.T) {
	e, cleanup := setupTestEnv(t)
	defer cleanup()

	stageCell(t, e, "wb1", 1, "A", 1, "Hello")
	first, err := commit.Commit(e.store, e.refs, e.index, commit.Request{Message: "init", Author: "Alice", Email: "alice@x"})
	require.NoError(t, err)

	p, err := PreviewRollback(e.store, e.refs, "hard_reset", first.CommitHash)
	require.NoError(t, err)
	assert.True(t, p.Destructive)

	p, err = PreviewRollback(e.store, e.refs, "soft_reset", first.CommitHash)
	require.NoError(t, err)
	assert.False(t, p.Destructive)
}

func TestEntriesAtReconstructsCellCoordinates(t *testing.T) {
	e, cleanup := setupTestEnv(t)
	defer cleanup()

	stageCell(t, e, "wb1", 2, "AA", 107, "value")
	res, err := commit.Commit(e.store, e.refs, e.index, commit.Request{Message: "init", Author: "Alice", Email: "alice@x"})
	require.NoError(t, err)

	entries, err := EntriesAt(e.store, res.TreeHash)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "wb1", entries[0].WorkbookID)
	assert.Equal(t, 2, entries[0].SheetNumber)
	assert.Equal(t, "AA", entries[0].RowLetters)
	assert.Equal(t, 107, entries[0].ColNumber)
}
