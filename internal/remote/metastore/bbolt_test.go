package metastore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/fvc/internal/models"
)

func newTestStore(t *testing.T) *BboltStore {
	t.Helper()
	s, err := NewBboltStore(filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func commit(id, parent string, files map[string]string) *models.Commit {
	return &models.Commit{
		ID:        id,
		ParentID:  parent,
		Message:   "msg " + id,
		Timestamp: time.Now().UTC(),
		Files:     files,
	}
}

func TestCommitInsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := commit("c1", "", map[string]string{"a.txt": "hash-a"})
	require.NoError(t, s.InsertCommit(ctx, c))

	has, err := s.HasCommit(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, has)

	got, err := s.GetCommit(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, c.Files, got.Files)

	_, err = s.GetCommit(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	count, err := s.GetCommitCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestInsertCommitIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := commit("c1", "", nil)
	require.NoError(t, s.InsertCommit(ctx, c))
	require.NoError(t, s.InsertCommit(ctx, c))

	count, err := s.GetCommitCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGetAncestorsWalksChain(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertCommit(ctx, commit("c1", "", nil)))
	require.NoError(t, s.InsertCommit(ctx, commit("c2", "c1", nil)))
	require.NoError(t, s.InsertCommit(ctx, commit("c3", "c2", nil)))

	ancestors, err := s.GetAncestors(ctx, "c3")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"c1": true, "c2": true, "c3": true}, ancestors)

	ancestors, err = s.GetAncestors(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"c1": true}, ancestors)
}

func TestBranchLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateBranch(ctx, "main", "c1"))

	b, err := s.GetBranch(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, "c1", b.CommitID)

	// Duplicate create fails.
	assert.Error(t, s.CreateBranch(ctx, "main", "c2"))

	require.NoError(t, s.CreateBranch(ctx, "feature", "c1"))
	branches, err := s.ListBranches(ctx)
	require.NoError(t, err)
	require.Len(t, branches, 2)
	assert.Equal(t, "feature", branches[0].Name) // sorted
	assert.Equal(t, "main", branches[1].Name)

	require.NoError(t, s.DeleteBranch(ctx, "feature"))
	assert.ErrorIs(t, s.DeleteBranch(ctx, "feature"), ErrNotFound)

	_, err = s.GetBranch(ctx, "feature")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateBranchCAS(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Creating via CAS requires an empty expected tip.
	assert.ErrorIs(t, s.UpdateBranchCAS(ctx, "main", "c1", "stale"), ErrConflict)
	require.NoError(t, s.UpdateBranchCAS(ctx, "main", "c1", ""))

	// Matching expected tip advances the branch.
	require.NoError(t, s.UpdateBranchCAS(ctx, "main", "c2", "c1"))

	// Stale expected tip is rejected and the branch is unchanged.
	assert.ErrorIs(t, s.UpdateBranchCAS(ctx, "main", "c3", "c1"), ErrConflict)

	b, err := s.GetBranch(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, "c2", b.CommitID)

	// Empty expected tip on an existing branch force-updates.
	require.NoError(t, s.UpdateBranchCAS(ctx, "main", "c9", ""))
	b, err = s.GetBranch(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, "c9", b.CommitID)
}

func TestGetAllBlobHashes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertCommit(ctx, commit("c1", "", map[string]string{
		"a.txt": "hash-a",
		"b.txt": "hash-b",
	})))
	require.NoError(t, s.InsertCommit(ctx, commit("c2", "c1", map[string]string{
		"a.txt": "hash-a2",
		"b.txt": "hash-b", // unchanged
	})))

	hashes, err := s.GetAllBlobHashes(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{
		"hash-a":  true,
		"hash-b":  true,
		"hash-a2": true,
	}, hashes)
}
