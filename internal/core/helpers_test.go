package core

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/fvc/internal/config"
	"github.com/kilupskalvis/fvc/internal/events"
	"github.com/kilupskalvis/fvc/internal/models"
	"github.com/kilupskalvis/fvc/internal/store"
	"github.com/kilupskalvis/fvc/internal/workspace"
)

// newTestStore creates a bbolt store in a temp directory.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.New(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Initialize())
	t.Cleanup(func() { st.Close() })
	return st
}

// newTestConfig returns a config with a fixed author.
func newTestConfig() *config.Config {
	return &config.Config{
		Author: config.Author{Name: "Test", Email: "test@example.com"},
	}
}

// newTestEnv bundles the dependencies most operations take: a store, an
// in-memory workspace, and a bus recording everything it sees.
func newTestEnv(t *testing.T) (*store.Store, *workspace.Mock, *events.Bus, *events.Recorder) {
	t.Helper()
	st := newTestStore(t)
	ws := workspace.NewMock()
	rec := &events.Recorder{}
	bus := events.NewBus(rec)
	return st, ws, bus, rec
}

// writeCommit stores a commit tracking the given path contents, blobs
// included, without going through staging.
func writeCommit(t *testing.T, st *store.Store, id, parent string, files map[string]string) {
	t.Helper()
	manifest := make(map[string]string, len(files))
	for path, content := range files {
		hash, err := st.PutBlob([]byte(content))
		require.NoError(t, err)
		manifest[path] = hash
	}
	require.NoError(t, st.CreateCommit(&models.Commit{
		ID:        id,
		ParentID:  parent,
		Message:   "commit " + id,
		Author:    "Test <test@example.com>",
		Timestamp: time.Now(),
		Files:     manifest,
	}))
}

// commitFiles writes the given files to the workspace, stages them, and
// commits, returning the new commit.
func commitFiles(t *testing.T, cfg *config.Config, st *store.Store, ws *workspace.Mock, bus *events.Bus, message string, files map[string]string) *models.Commit {
	t.Helper()
	for path, content := range files {
		require.NoError(t, ws.WriteFile(path, content))
		require.NoError(t, StageFile(st, ws, bus, path))
	}
	commit, err := CreateCommit(cfg, st, bus, message)
	require.NoError(t, err)
	return commit
}

// fakeGraph is a CommitGraph built from a parent map, for ancestor-walk
// tests that do not need a real store.
type fakeGraph struct {
	parents map[string]string
}

func (g *fakeGraph) GetParentCommit(id string) (string, error) {
	return g.parents[id], nil
}

func (g *fakeGraph) GetCommitFiles(id string) (map[string]string, error) {
	return map[string]string{}, nil
}

func (g *fakeGraph) GetFileContent(id, path string) (string, error) {
	return "", nil
}
