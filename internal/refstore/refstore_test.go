package refstore

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cellvcs/internal/hashing"
)

func setupTestRefStore(t *testing.T) (*RefStore, func()) {
	dir, err := os.MkdirTemp("", "cellvcs-refstore-test")
	require.NoError(t, err)

	rs, err := Open(dir)
	require.NoError(t, err)

	cleanup := func() { os.RemoveAll(dir) }
	return rs, cleanup
}

func someHash(b byte) hashing.Hash {
	var h hashing.Hash
	h[0] = b
	return h
}

func TestFreshRepoDefaultsToAttachedMain(t *testing.T) {
	rs, cleanup := setupTestRefStore(t)
	defer cleanup()

	ref, err := rs.ReadHeadRef()
	require.NoError(t, err)
	assert.True(t, ref.Attached)
	assert.Equal(t, "main", ref.Branch)

	_, ok, err := rs.ReadHead()
	require.NoError(t, err)
	assert.False(t, ok, "a branch with no commits has no resolvable HEAD")
}

func TestAdvanceHeadUpdatesAttachedBranch(t *testing.T) {
	rs, cleanup := setupTestRefStore(t)
	defer cleanup()

	h := someHash(1)
	require.NoError(t, rs.AdvanceHead(h))

	head, ok, err := rs.ReadHead()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, h, head)

	branchHash, ok, err := rs.ReadBranch("main")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, h, branchHash)
}

func TestAdvanceHeadUpdatesDetachedHead(t *testing.T) {
	rs, cleanup := setupTestRefStore(t)
	defer cleanup()

	first := someHash(1)
	require.NoError(t, rs.AdvanceHead(first))
	require.NoError(t, rs.SetHeadDetached(first))

	second := someHash(2)
	require.NoError(t, rs.AdvanceHead(second))

	head, ok, err := rs.ReadHead()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second, head)

	// The branch ref itself must not have moved.
	branchHash, ok, err := rs.ReadBranch("main")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first, branchHash)
}

func TestCurrentBranchReportsDetachedState(t *testing.T) {
	rs, cleanup := setupTestRefStore(t)
	defer cleanup()

	_, ok, err := rs.CurrentBranch()
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, rs.SetHeadDetached(someHash(9)))
	_, ok, err = rs.CurrentBranch()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadBranchMissingIsNotAnError(t *testing.T) {
	rs, cleanup := setupTestRefStore(t)
	defer cleanup()

	_, ok, err := rs.ReadBranch("feature")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadHeadRefMalformedIsCorrupt(t *testing.T) {
	rs, cleanup := setupTestRefStore(t)
	defer cleanup()

	require.NoError(t, os.WriteFile(rs.headPath(), []byte("garbage\n"), 0o644))

	_, err := rs.ReadHeadRef()
	assert.Error(t, err)
}
