package core

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/fvc/internal/models"
)

func TestFetch_DownloadsCommitsAndBlobs(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig()

	stA, wsA, busA, _ := newTestEnv(t)
	commitFiles(t, cfg, stA, wsA, busA, "first", map[string]string{"a.txt": "one"})
	tip := commitFiles(t, cfg, stA, wsA, busA, "second", map[string]string{"b.txt": "two"})

	f := newFakeRemote()
	_, err := Push(ctx, stA, f, busA, PushOptions{RemoteName: "origin", Branch: "main"}, nil)
	require.NoError(t, err)

	stB, _, busB, _ := newTestEnv(t)
	result, err := Fetch(ctx, stB, f, busB, FetchOptions{RemoteName: "origin", Branch: "main"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.CommitsFetched)
	assert.Equal(t, 2, result.BlobsFetched)
	assert.Equal(t, tip.ID, result.RemoteTip)
	assert.False(t, result.UpToDate)

	// Commits and content are readable from the local store.
	commit, err := stB.GetCommit(tip.ID)
	require.NoError(t, err)
	require.NotNil(t, commit)
	content, err := stB.GetFileContent(tip.ID, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "one", content)

	// Fetch moves only the tracking ref, never the local branch.
	head, _, err := stB.GetBranchHead("main")
	require.NoError(t, err)
	assert.Empty(t, head)

	rb, err := stB.GetRemoteBranch("origin", "main")
	require.NoError(t, err)
	require.NotNil(t, rb)
	assert.Equal(t, tip.ID, rb.CommitID)
}

func TestFetch_UpToDate(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig()

	stA, wsA, busA, _ := newTestEnv(t)
	commitFiles(t, cfg, stA, wsA, busA, "first", map[string]string{"a.txt": "one"})

	f := newFakeRemote()
	_, err := Push(ctx, stA, f, busA, PushOptions{RemoteName: "origin", Branch: "main"}, nil)
	require.NoError(t, err)

	stB, _, busB, _ := newTestEnv(t)
	_, err = Fetch(ctx, stB, f, busB, FetchOptions{RemoteName: "origin", Branch: "main"}, nil)
	require.NoError(t, err)

	result, err := Fetch(ctx, stB, f, busB, FetchOptions{RemoteName: "origin", Branch: "main"}, nil)
	require.NoError(t, err)
	assert.True(t, result.UpToDate)
	assert.Zero(t, result.CommitsFetched)
}

func TestPull_IntoUnbornBranch(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig()

	stA, wsA, busA, _ := newTestEnv(t)
	commitFiles(t, cfg, stA, wsA, busA, "first", map[string]string{"a.txt": "one"})
	tip := commitFiles(t, cfg, stA, wsA, busA, "second", map[string]string{"b.txt": "two"})

	f := newFakeRemote()
	_, err := Push(ctx, stA, f, busA, PushOptions{RemoteName: "origin", Branch: "main"}, nil)
	require.NoError(t, err)

	stB, wsB, busB, _ := newTestEnv(t)
	result, err := Pull(ctx, stB, wsB, f, busB, PullOptions{RemoteName: "origin", Branch: "main"}, nil)
	require.NoError(t, err)
	assert.True(t, result.FastForward)
	assert.False(t, result.Diverged)

	head, _, err := stB.GetBranchHead("main")
	require.NoError(t, err)
	assert.Equal(t, tip.ID, head)

	// The checked-out branch was materialized into the working tree.
	content, _, err := wsB.ReadFile("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "one", content)
	content, _, err = wsB.ReadFile("b.txt")
	require.NoError(t, err)
	assert.Equal(t, "two", content)
}

func TestPull_FastForward(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig()

	stA, wsA, busA, _ := newTestEnv(t)
	commitFiles(t, cfg, stA, wsA, busA, "first", map[string]string{"a.txt": "one"})

	f := newFakeRemote()
	_, err := Push(ctx, stA, f, busA, PushOptions{RemoteName: "origin", Branch: "main"}, nil)
	require.NoError(t, err)

	stB, wsB, busB, _ := newTestEnv(t)
	_, err = Pull(ctx, stB, wsB, f, busB, PullOptions{RemoteName: "origin", Branch: "main"}, nil)
	require.NoError(t, err)

	// The other side moves ahead.
	newTip := commitFiles(t, cfg, stA, wsA, busA, "second", map[string]string{"a.txt": "updated"})
	_, err = Push(ctx, stA, f, busA, PushOptions{RemoteName: "origin", Branch: "main"}, nil)
	require.NoError(t, err)

	result, err := Pull(ctx, stB, wsB, f, busB, PullOptions{RemoteName: "origin", Branch: "main"}, nil)
	require.NoError(t, err)
	assert.True(t, result.FastForward)
	assert.Equal(t, 1, result.CommitsFetched)

	head, _, err := stB.GetBranchHead("main")
	require.NoError(t, err)
	assert.Equal(t, newTip.ID, head)

	content, _, err := wsB.ReadFile("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "updated", content)
}

func TestPull_LocalAhead(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig()

	stA, wsA, busA, _ := newTestEnv(t)
	first := commitFiles(t, cfg, stA, wsA, busA, "first", map[string]string{"a.txt": "one"})
	commitFiles(t, cfg, stA, wsA, busA, "second", map[string]string{"a.txt": "two"})

	f := newFakeRemote()
	_, err := Push(ctx, stA, f, busA, PushOptions{RemoteName: "origin", Branch: "main"}, nil)
	require.NoError(t, err)

	stB, wsB, busB, _ := newTestEnv(t)
	_, err = Pull(ctx, stB, wsB, f, busB, PullOptions{RemoteName: "origin", Branch: "main"}, nil)
	require.NoError(t, err)

	// Local work goes past the remote tip; stale tracking forces a
	// fresh negotiation.
	localTip := commitFiles(t, cfg, stB, wsB, busB, "local third", map[string]string{"a.txt": "three"})
	require.NoError(t, stB.SetRemoteBranch("origin", "main", first.ID))

	result, err := Pull(ctx, stB, wsB, f, busB, PullOptions{RemoteName: "origin", Branch: "main"}, nil)
	require.NoError(t, err)
	assert.True(t, result.UpToDate)
	assert.False(t, result.FastForward)
	assert.False(t, result.Diverged)

	head, _, err := stB.GetBranchHead("main")
	require.NoError(t, err)
	assert.Equal(t, localTip.ID, head, "a branch ahead of the remote stays put")
}

func TestPull_Diverged(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig()

	stA, wsA, busA, _ := newTestEnv(t)
	commitFiles(t, cfg, stA, wsA, busA, "first", map[string]string{"a.txt": "one"})

	f := newFakeRemote()
	_, err := Push(ctx, stA, f, busA, PushOptions{RemoteName: "origin", Branch: "main"}, nil)
	require.NoError(t, err)

	stB, wsB, busB, rec := newTestEnv(t)
	_, err = Pull(ctx, stB, wsB, f, busB, PullOptions{RemoteName: "origin", Branch: "main"}, nil)
	require.NoError(t, err)

	// Both sides commit independently.
	localTip := commitFiles(t, cfg, stB, wsB, busB, "local work", map[string]string{"local.txt": "mine"})
	commitFiles(t, cfg, stA, wsA, busA, "remote work", map[string]string{"remote.txt": "theirs"})
	_, err = Push(ctx, stA, f, busA, PushOptions{RemoteName: "origin", Branch: "main"}, nil)
	require.NoError(t, err)

	result, err := Pull(ctx, stB, wsB, f, busB, PullOptions{RemoteName: "origin", Branch: "main"}, nil)
	require.NoError(t, err)
	assert.True(t, result.Diverged)
	assert.False(t, result.FastForward)

	head, _, err := stB.GetBranchHead("main")
	require.NoError(t, err)
	assert.Equal(t, localTip.ID, head, "a diverged pull must not move the local branch")

	var warned bool
	for _, msg := range rec.Messages() {
		if strings.Contains(msg, "diverged") {
			warned = true
		}
	}
	assert.True(t, warned, "divergence should be reported")
}

func TestPull_BlockedByStagedChanges(t *testing.T) {
	ctx := context.Background()
	st, ws, bus, _ := newTestEnv(t)

	ws.AddFile("a.txt", "one")
	require.NoError(t, StageFile(st, ws, bus, "a.txt"))

	_, err := Pull(ctx, st, ws, newFakeRemote(), bus, PullOptions{RemoteName: "origin", Branch: "main"}, nil)
	assert.ErrorIs(t, err, ErrState)
	assert.ErrorContains(t, err, "staged changes")
}

func TestPull_BlockedDuringMerge(t *testing.T) {
	ctx := context.Background()
	st, ws, bus, _ := newTestEnv(t)

	require.NoError(t, st.SetMergeState(&models.MergeState{InProgress: true, TargetBranch: "feature"}))

	_, err := Pull(ctx, st, ws, newFakeRemote(), bus, PullOptions{RemoteName: "origin", Branch: "main"}, nil)
	assert.ErrorIs(t, err, ErrState)
	assert.ErrorContains(t, err, "during a merge")
}
