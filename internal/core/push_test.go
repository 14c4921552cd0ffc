package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/fvc/internal/models"
)

func TestPush_NewBranch(t *testing.T) {
	st, ws, bus, _ := newTestEnv(t)
	cfg := newTestConfig()
	ctx := context.Background()

	commitFiles(t, cfg, st, ws, bus, "first", map[string]string{
		"a.txt": "one",
		"b.txt": "two",
	})
	tip := commitFiles(t, cfg, st, ws, bus, "second", map[string]string{"a.txt": "changed"})

	f := newFakeRemote()
	result, err := Push(ctx, st, f, bus, PushOptions{RemoteName: "origin", Branch: "main"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.CommitsPushed)
	assert.Equal(t, 3, result.BlobsPushed)
	assert.True(t, result.BranchCreated)
	assert.False(t, result.UpToDate)

	assert.Equal(t, tip.ID, f.branches["main"])
	assert.Len(t, f.commits, 2)
	assert.Len(t, f.blobs, 3)

	rb, err := st.GetRemoteBranch("origin", "main")
	require.NoError(t, err)
	require.NotNil(t, rb)
	assert.Equal(t, tip.ID, rb.CommitID)
}

func TestPush_UpToDate(t *testing.T) {
	st, ws, bus, rec := newTestEnv(t)
	cfg := newTestConfig()
	ctx := context.Background()

	commitFiles(t, cfg, st, ws, bus, "first", map[string]string{"a.txt": "one"})

	f := newFakeRemote()
	_, err := Push(ctx, st, f, bus, PushOptions{RemoteName: "origin", Branch: "main"}, nil)
	require.NoError(t, err)

	result, err := Push(ctx, st, f, bus, PushOptions{RemoteName: "origin", Branch: "main"}, nil)
	require.NoError(t, err)
	assert.True(t, result.UpToDate)
	assert.Zero(t, result.CommitsPushed)
	assert.Contains(t, rec.Messages(), "Everything up-to-date")
}

func TestPush_OnlyNewCommitsAndBlobs(t *testing.T) {
	st, ws, bus, _ := newTestEnv(t)
	cfg := newTestConfig()
	ctx := context.Background()

	commitFiles(t, cfg, st, ws, bus, "first", map[string]string{
		"a.txt": "one",
		"b.txt": "two",
	})

	f := newFakeRemote()
	_, err := Push(ctx, st, f, bus, PushOptions{RemoteName: "origin", Branch: "main"}, nil)
	require.NoError(t, err)

	tip := commitFiles(t, cfg, st, ws, bus, "third", map[string]string{"c.txt": "three"})

	result, err := Push(ctx, st, f, bus, PushOptions{RemoteName: "origin", Branch: "main"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CommitsPushed)
	assert.Equal(t, 1, result.BlobsPushed, "only the new blob travels")
	assert.False(t, result.BranchCreated)
	assert.Equal(t, tip.ID, f.branches["main"])
}

func TestPush_RejectsDivergedRemote(t *testing.T) {
	st, ws, bus, _ := newTestEnv(t)
	cfg := newTestConfig()
	ctx := context.Background()

	commitFiles(t, cfg, st, ws, bus, "first", map[string]string{"a.txt": "one"})

	f := newFakeRemote()
	f.commits["stranger"] = &models.Commit{ID: "stranger", Message: "someone else"}
	f.branches["main"] = "stranger"

	_, err := Push(ctx, st, f, bus, PushOptions{RemoteName: "origin", Branch: "main"}, nil)
	assert.ErrorIs(t, err, ErrState)
	assert.ErrorContains(t, err, "push rejected")
	assert.Equal(t, "stranger", f.branches["main"], "a rejected push must not move the remote branch")
}

func TestPush_ForceOverridesDivergence(t *testing.T) {
	st, ws, bus, _ := newTestEnv(t)
	cfg := newTestConfig()
	ctx := context.Background()

	tip := commitFiles(t, cfg, st, ws, bus, "first", map[string]string{"a.txt": "one"})

	f := newFakeRemote()
	f.commits["stranger"] = &models.Commit{ID: "stranger", Message: "someone else"}
	f.branches["main"] = "stranger"

	result, err := Push(ctx, st, f, bus, PushOptions{RemoteName: "origin", Branch: "main", Force: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CommitsPushed)
	assert.Equal(t, tip.ID, f.branches["main"])
}

func TestPush_UnbornBranch(t *testing.T) {
	st, _, bus, _ := newTestEnv(t)
	ctx := context.Background()

	_, err := Push(ctx, st, newFakeRemote(), bus, PushOptions{RemoteName: "origin", Branch: "main"}, nil)
	assert.ErrorIs(t, err, ErrState)
	assert.ErrorContains(t, err, "no commits to push")
}

func TestPush_UnknownBranch(t *testing.T) {
	st, _, bus, _ := newTestEnv(t)
	ctx := context.Background()

	_, err := Push(ctx, st, newFakeRemote(), bus, PushOptions{RemoteName: "origin", Branch: "ghost"}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPush_ReportsProgressPhases(t *testing.T) {
	st, ws, bus, _ := newTestEnv(t)
	cfg := newTestConfig()
	ctx := context.Background()

	commitFiles(t, cfg, st, ws, bus, "first", map[string]string{"a.txt": "one"})

	var phases []string
	progress := func(phase string, current, total int) {
		if len(phases) == 0 || phases[len(phases)-1] != phase {
			phases = append(phases, phase)
		}
	}

	_, err := Push(ctx, st, newFakeRemote(), bus, PushOptions{RemoteName: "origin", Branch: "main"}, progress)
	require.NoError(t, err)
	assert.Equal(t, []string{"negotiating", "checking blobs", "uploading blobs", "uploading commits", "updating branch"}, phases)
}

func TestDeleteRemoteBranch(t *testing.T) {
	st, ws, bus, _ := newTestEnv(t)
	cfg := newTestConfig()
	ctx := context.Background()

	commitFiles(t, cfg, st, ws, bus, "first", map[string]string{"a.txt": "one"})

	f := newFakeRemote()
	_, err := Push(ctx, st, f, bus, PushOptions{RemoteName: "origin", Branch: "main"}, nil)
	require.NoError(t, err)

	require.NoError(t, DeleteRemoteBranch(ctx, st, f, "origin", "main"))
	assert.NotContains(t, f.branches, "main")

	rb, err := st.GetRemoteBranch("origin", "main")
	require.NoError(t, err)
	assert.Nil(t, rb, "tracking ref should be dropped")
}
