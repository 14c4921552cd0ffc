package core

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBranchAndMergeWorkflow drives a whole local session: commits on
// main, a feature branch, a conflicting change on both sides, conflict
// resolution, and the concluding merge commit.
func TestBranchAndMergeWorkflow(t *testing.T) {
	st, ws, bus, _ := newTestEnv(t)
	cfg := newTestConfig()

	commitFiles(t, cfg, st, ws, bus, "initial layout", map[string]string{
		"readme.md":  "# Project\n",
		"config.yml": "version: 1\n",
	})

	// Branch off and change config.yml there.
	require.NoError(t, CreateBranch(st, bus, "feature"))
	_, err := Checkout(st, ws, bus, "feature", CheckoutOptions{})
	require.NoError(t, err)
	commitFiles(t, cfg, st, ws, bus, "bump version", map[string]string{
		"config.yml": "version: 2\n",
	})

	// Back on main, change the same file differently.
	_, err = Checkout(st, ws, bus, "main", CheckoutOptions{})
	require.NoError(t, err)
	commitFiles(t, cfg, st, ws, bus, "add environment", map[string]string{
		"config.yml": "version: 1\nenv: prod\n",
	})

	result, err := MergeBranch(st, ws, bus, "feature")
	require.ErrorIs(t, err, ErrConflict)
	require.NotNil(t, result)
	require.False(t, result.Success)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "config.yml", result.Conflicts[0].Path)

	// The conflicted file carries both sides between markers.
	content, _, err := ws.ReadFile("config.yml")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(content, "<<<<<<< Current\n"))
	assert.Contains(t, content, "version: 1\nenv: prod\n")
	assert.Contains(t, content, "version: 2\n")
	assert.Contains(t, content, ">>>>>>> Other\n")

	// Resolve, stage, and conclude the merge with a commit.
	require.NoError(t, ws.WriteFile("config.yml", "version: 2\nenv: prod\n"))
	require.NoError(t, StageFile(st, ws, bus, "config.yml"))
	mergeCommit, err := CreateCommit(cfg, st, bus, "merge feature")
	require.NoError(t, err)

	inProgress, err := IsMergeInProgress(st)
	require.NoError(t, err)
	assert.False(t, inProgress)

	files, err := st.GetCommitFiles(mergeCommit.ID)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	content, _, err = ws.ReadFile("config.yml")
	require.NoError(t, err)
	assert.Equal(t, "version: 2\nenv: prod\n", content)

	// History on main: initial, environment, merge.
	commits, err := Log(st, 0)
	require.NoError(t, err)
	require.Len(t, commits, 3)
	assert.Equal(t, "merge feature", commits[0].Message)
}

// TestPushPullRoundTrip syncs two repositories through one remote: the
// first pushes, the second pulls from scratch, extends the history, and
// the first pulls the result back.
func TestPushPullRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig()
	rem := newFakeRemote()

	stA, wsA, busA, _ := newTestEnv(t)
	stB, wsB, busB, _ := newTestEnv(t)

	commitFiles(t, cfg, stA, wsA, busA, "first", map[string]string{"a.txt": "one\n"})
	commitFiles(t, cfg, stA, wsA, busA, "second", map[string]string{"b.txt": "two\n"})

	pushRes, err := Push(ctx, stA, rem, busA, PushOptions{RemoteName: "origin", Branch: "main"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, pushRes.CommitsPushed)
	assert.True(t, pushRes.BranchCreated)

	// A fresh repository pulls the full history and working tree.
	pullRes, err := Pull(ctx, stB, wsB, rem, busB, PullOptions{RemoteName: "origin", Branch: "main"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, pullRes.CommitsFetched)
	assert.False(t, pullRes.Diverged)

	content, _, err := wsB.ReadFile("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "one\n", content)
	content, _, err = wsB.ReadFile("b.txt")
	require.NoError(t, err)
	assert.Equal(t, "two\n", content)

	headA, err := stA.GetHeadCommit()
	require.NoError(t, err)
	headB, err := stB.GetHeadCommit()
	require.NoError(t, err)
	assert.Equal(t, headA, headB)

	// The second repository extends the history and pushes it back.
	commitFiles(t, cfg, stB, wsB, busB, "third", map[string]string{"a.txt": "one more\n"})
	pushRes, err = Push(ctx, stB, rem, busB, PushOptions{RemoteName: "origin", Branch: "main"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, pushRes.CommitsPushed)
	assert.False(t, pushRes.BranchCreated)

	pullRes, err = Pull(ctx, stA, wsA, rem, busA, PullOptions{RemoteName: "origin", Branch: "main"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, pullRes.CommitsFetched)
	assert.True(t, pullRes.FastForward)

	content, _, err = wsA.ReadFile("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "one more\n", content)

	// Both sides now agree with the remote tip.
	info, err := rem.GetRepoInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, info.CommitCount)
	headA, err = stA.GetHeadCommit()
	require.NoError(t, err)
	headB, err = stB.GetHeadCommit()
	require.NoError(t, err)
	assert.Equal(t, headA, headB)
}
