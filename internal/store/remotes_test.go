package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Initialize())
	t.Cleanup(func() { st.Close() })
	return st
}

func TestRemoteLifecycle(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.AddRemote("origin", "https://fvc.example.com/repo"))
	require.NoError(t, st.AddRemote("backup", "https://backup.example.com/repo"))

	r, err := st.GetRemote("origin")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "https://fvc.example.com/repo", r.URL)
	assert.False(t, r.CreatedAt.IsZero())

	missing, err := st.GetRemote("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	// Duplicate names are rejected.
	err = st.AddRemote("origin", "https://elsewhere.example.com/repo")
	assert.ErrorContains(t, err, "already exists")

	// Listing comes back sorted by name.
	remotes, err := st.ListRemotes()
	require.NoError(t, err)
	require.Len(t, remotes, 2)
	assert.Equal(t, "backup", remotes[0].Name)
	assert.Equal(t, "origin", remotes[1].Name)

	require.NoError(t, st.UpdateRemoteURL("origin", "https://moved.example.com/repo"))
	r, err = st.GetRemote("origin")
	require.NoError(t, err)
	assert.Equal(t, "https://moved.example.com/repo", r.URL)

	err = st.UpdateRemoteURL("nope", "https://x.example.com/r")
	assert.ErrorContains(t, err, "does not exist")
}

func TestRemoteTokenRoundTrip(t *testing.T) {
	st := newTestStore(t)

	token, err := st.GetRemoteToken("origin")
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, st.SetRemoteToken("origin", "fvc_secret"))
	token, err = st.GetRemoteToken("origin")
	require.NoError(t, err)
	assert.Equal(t, "fvc_secret", token)

	require.NoError(t, st.DeleteRemoteToken("origin"))
	token, err = st.GetRemoteToken("origin")
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestRemoteBranchTracking(t *testing.T) {
	st := newTestStore(t)

	rb, err := st.GetRemoteBranch("origin", "main")
	require.NoError(t, err)
	assert.Nil(t, rb)

	require.NoError(t, st.SetRemoteBranch("origin", "main", "commit-1"))
	require.NoError(t, st.SetRemoteBranch("origin", "feature", "commit-2"))
	require.NoError(t, st.SetRemoteBranch("backup", "main", "commit-3"))

	rb, err = st.GetRemoteBranch("origin", "main")
	require.NoError(t, err)
	require.NotNil(t, rb)
	assert.Equal(t, "commit-1", rb.CommitID)

	// Moving the tip replaces the record.
	require.NoError(t, st.SetRemoteBranch("origin", "main", "commit-9"))
	rb, err = st.GetRemoteBranch("origin", "main")
	require.NoError(t, err)
	assert.Equal(t, "commit-9", rb.CommitID)

	// Listing is scoped to one remote and sorted by branch name.
	branches, err := st.ListRemoteBranches("origin")
	require.NoError(t, err)
	require.Len(t, branches, 2)
	assert.Equal(t, "feature", branches[0].BranchName)
	assert.Equal(t, "main", branches[1].BranchName)

	require.NoError(t, st.DeleteRemoteBranch("origin", "feature"))
	branches, err = st.ListRemoteBranches("origin")
	require.NoError(t, err)
	require.Len(t, branches, 1)
	assert.Equal(t, "main", branches[0].BranchName)
}

func TestRemoveRemoteCascades(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.AddRemote("origin", "https://fvc.example.com/repo"))
	require.NoError(t, st.AddRemote("backup", "https://backup.example.com/repo"))
	require.NoError(t, st.SetRemoteToken("origin", "fvc_secret"))
	require.NoError(t, st.SetRemoteBranch("origin", "main", "commit-1"))
	require.NoError(t, st.SetRemoteBranch("origin", "feature", "commit-2"))
	require.NoError(t, st.SetRemoteBranch("backup", "main", "commit-3"))

	require.NoError(t, st.RemoveRemote("origin"))

	r, err := st.GetRemote("origin")
	require.NoError(t, err)
	assert.Nil(t, r)

	token, err := st.GetRemoteToken("origin")
	require.NoError(t, err)
	assert.Empty(t, token)

	branches, err := st.ListRemoteBranches("origin")
	require.NoError(t, err)
	assert.Empty(t, branches)

	// The other remote's tracking state is untouched.
	branches, err = st.ListRemoteBranches("backup")
	require.NoError(t, err)
	require.Len(t, branches, 1)
	assert.Equal(t, "commit-3", branches[0].CommitID)

	err = st.RemoveRemote("origin")
	assert.ErrorContains(t, err, "does not exist")
}
