package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/fvc/internal/models"
)

func TestStageFile_Untracked(t *testing.T) {
	st, ws, bus, _ := newTestEnv(t)

	ws.AddFile("new.txt", "hello")
	require.NoError(t, StageFile(st, ws, bus, "new.txt"))

	staged, err := st.GetAllStagedFiles()
	require.NoError(t, err)
	require.Len(t, staged, 1)
	assert.Equal(t, "new.txt", staged[0].Path)
	assert.Equal(t, models.ChangeAdd, staged[0].ChangeType)
	assert.NotEmpty(t, staged[0].BlobHash)
}

func TestStageFile_Modified(t *testing.T) {
	st, ws, bus, _ := newTestEnv(t)
	cfg := newTestConfig()
	commitFiles(t, cfg, st, ws, bus, "first", map[string]string{"a.txt": "one"})

	require.NoError(t, ws.WriteFile("a.txt", "changed"))
	require.NoError(t, StageFile(st, ws, bus, "a.txt"))

	staged, err := st.GetAllStagedFiles()
	require.NoError(t, err)
	require.Len(t, staged, 1)
	assert.Equal(t, models.ChangeModify, staged[0].ChangeType)
}

func TestStageFile_Deletion(t *testing.T) {
	st, ws, bus, _ := newTestEnv(t)
	cfg := newTestConfig()
	commitFiles(t, cfg, st, ws, bus, "first", map[string]string{"a.txt": "one"})

	require.NoError(t, ws.RemoveFile("a.txt"))
	require.NoError(t, StageFile(st, ws, bus, "a.txt"))

	staged, err := st.GetAllStagedFiles()
	require.NoError(t, err)
	require.Len(t, staged, 1)
	assert.Equal(t, models.ChangeDelete, staged[0].ChangeType)
	assert.Empty(t, staged[0].BlobHash)
}

func TestStageFile_Missing(t *testing.T) {
	st, ws, bus, _ := newTestEnv(t)

	err := StageFile(st, ws, bus, "ghost.txt")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorContains(t, err, "did not match any files")
}

func TestStageFile_RevertedToHead(t *testing.T) {
	st, ws, bus, _ := newTestEnv(t)
	cfg := newTestConfig()
	commitFiles(t, cfg, st, ws, bus, "first", map[string]string{"a.txt": "one"})

	require.NoError(t, ws.WriteFile("a.txt", "changed"))
	require.NoError(t, StageFile(st, ws, bus, "a.txt"))
	count, err := st.GetStagedFilesCount()
	require.NoError(t, err)
	require.Equal(t, 1, count)

	// Putting the original content back and re-staging clears the
	// stale staged entry instead of recording a no-op change.
	require.NoError(t, ws.WriteFile("a.txt", "one"))
	require.NoError(t, StageFile(st, ws, bus, "a.txt"))

	count, err = st.GetStagedFilesCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStageAll(t *testing.T) {
	st, ws, bus, _ := newTestEnv(t)
	cfg := newTestConfig()
	commitFiles(t, cfg, st, ws, bus, "first", map[string]string{
		"a.txt": "one",
		"b.txt": "two",
	})

	require.NoError(t, ws.WriteFile("a.txt", "edited"))
	require.NoError(t, ws.RemoveFile("b.txt"))
	ws.AddFile("c.txt", "new")

	n, err := StageAll(st, ws, bus)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	staged, err := st.GetAllStagedFiles()
	require.NoError(t, err)
	byPath := make(map[string]models.ChangeType, len(staged))
	for _, sf := range staged {
		byPath[sf.Path] = sf.ChangeType
	}
	assert.Equal(t, models.ChangeModify, byPath["a.txt"])
	assert.Equal(t, models.ChangeDelete, byPath["b.txt"])
	assert.Equal(t, models.ChangeAdd, byPath["c.txt"])
}

func TestStageAll_NothingToStage(t *testing.T) {
	st, ws, bus, rec := newTestEnv(t)
	cfg := newTestConfig()
	commitFiles(t, cfg, st, ws, bus, "first", map[string]string{"a.txt": "one"})

	n, err := StageAll(st, ws, bus)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Contains(t, rec.Messages(), "nothing to stage")
}

func TestUnstage(t *testing.T) {
	st, ws, bus, _ := newTestEnv(t)

	ws.AddFile("a.txt", "one")
	require.NoError(t, StageFile(st, ws, bus, "a.txt"))
	require.NoError(t, Unstage(st, bus, "a.txt"))

	count, err := st.GetStagedFilesCount()
	require.NoError(t, err)
	assert.Zero(t, count)

	// Unstaging an unstaged path is a quiet no-op.
	require.NoError(t, Unstage(st, bus, "a.txt"))
}

func TestUnstageAll(t *testing.T) {
	st, ws, bus, _ := newTestEnv(t)

	ws.AddFile("a.txt", "one")
	ws.AddFile("b.txt", "two")
	require.NoError(t, StageFile(st, ws, bus, "a.txt"))
	require.NoError(t, StageFile(st, ws, bus, "b.txt"))

	require.NoError(t, UnstageAll(st, bus))

	count, err := st.GetStagedFilesCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCreateCommit_First(t *testing.T) {
	st, ws, bus, _ := newTestEnv(t)
	cfg := newTestConfig()

	ws.AddFile("a.txt", "one")
	require.NoError(t, StageFile(st, ws, bus, "a.txt"))

	commit, err := CreateCommit(cfg, st, bus, "initial commit")
	require.NoError(t, err)
	assert.NotEmpty(t, commit.ID)
	assert.Empty(t, commit.ParentID)
	assert.Equal(t, "initial commit", commit.Message)
	assert.Equal(t, "Test <test@example.com>", commit.Author)

	head, _, err := st.GetBranchHead("main")
	require.NoError(t, err)
	assert.Equal(t, commit.ID, head)

	content, err := st.GetFileContent(commit.ID, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "one", content)

	count, err := st.GetStagedFilesCount()
	require.NoError(t, err)
	assert.Zero(t, count, "commit should clear the staging area")
}

func TestCreateCommit_Chain(t *testing.T) {
	st, ws, bus, _ := newTestEnv(t)
	cfg := newTestConfig()

	first := commitFiles(t, cfg, st, ws, bus, "first", map[string]string{"a.txt": "one"})
	second := commitFiles(t, cfg, st, ws, bus, "second", map[string]string{"b.txt": "two"})

	assert.Equal(t, first.ID, second.ParentID)

	// The manifest carries forward untouched paths.
	files, err := st.GetCommitFiles(second.ID)
	require.NoError(t, err)
	assert.Contains(t, files, "a.txt")
	assert.Contains(t, files, "b.txt")
}

func TestCreateCommit_EmptyMessage(t *testing.T) {
	st, ws, bus, _ := newTestEnv(t)
	cfg := newTestConfig()

	ws.AddFile("a.txt", "one")
	require.NoError(t, StageFile(st, ws, bus, "a.txt"))

	_, err := CreateCommit(cfg, st, bus, "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = CreateCommit(cfg, st, bus, "   \n")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateCommit_NothingStaged(t *testing.T) {
	st, _, bus, _ := newTestEnv(t)
	cfg := newTestConfig()

	_, err := CreateCommit(cfg, st, bus, "empty")
	assert.ErrorIs(t, err, ErrState)
	assert.ErrorContains(t, err, "nothing to commit")
}

func TestStatus_FreshRepo(t *testing.T) {
	st, ws, _, _ := newTestEnv(t)

	report, err := Status(st, ws)
	require.NoError(t, err)
	assert.Equal(t, "main", report.Branch)
	assert.Empty(t, report.HeadCommit)
	assert.True(t, report.Clean())
	assert.False(t, report.HasUncommittedChanges())
}

func TestStatus_Buckets(t *testing.T) {
	st, ws, bus, _ := newTestEnv(t)
	cfg := newTestConfig()
	commitFiles(t, cfg, st, ws, bus, "first", map[string]string{
		"modified.txt": "one",
		"deleted.txt":  "two",
		"staged.txt":   "three",
	})

	require.NoError(t, ws.WriteFile("modified.txt", "edited"))
	require.NoError(t, ws.RemoveFile("deleted.txt"))
	ws.AddFile("untracked.txt", "new")
	require.NoError(t, ws.WriteFile("staged.txt", "staged edit"))
	require.NoError(t, StageFile(st, ws, bus, "staged.txt"))

	report, err := Status(st, ws)
	require.NoError(t, err)
	assert.Equal(t, []string{"modified.txt"}, report.Modified)
	assert.Equal(t, []string{"deleted.txt"}, report.Deleted)
	assert.Equal(t, []string{"untracked.txt"}, report.Untracked)
	require.Len(t, report.Staged, 1)
	assert.Equal(t, "staged.txt", report.Staged[0].Path)
	assert.True(t, report.HasUncommittedChanges())
}

func TestStatus_CleanAfterCommit(t *testing.T) {
	st, ws, bus, _ := newTestEnv(t)
	cfg := newTestConfig()
	commitFiles(t, cfg, st, ws, bus, "first", map[string]string{"a.txt": "one"})

	report, err := Status(st, ws)
	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.NotEmpty(t, report.HeadCommit)
}

func TestStatus_ReportsMerge(t *testing.T) {
	st, ws, bus, _ := newTestEnv(t)
	cfg := newTestConfig()

	commitFiles(t, cfg, st, ws, bus, "base", map[string]string{"f.txt": "base"})
	require.NoError(t, CreateBranch(st, bus, "feature"))
	require.NoError(t, SwitchBranch(st, bus, "feature"))
	commitFiles(t, cfg, st, ws, bus, "feature", map[string]string{"f.txt": "feature"})
	_, err := Checkout(st, ws, bus, "main", CheckoutOptions{})
	require.NoError(t, err)
	commitFiles(t, cfg, st, ws, bus, "main", map[string]string{"f.txt": "main"})

	_, err = MergeBranch(st, ws, bus, "feature")
	require.ErrorIs(t, err, ErrConflict)

	report, err := Status(st, ws)
	require.NoError(t, err)
	assert.True(t, report.MergeInProgress)
	assert.Equal(t, "feature", report.MergeBranch)
}

func TestLog(t *testing.T) {
	st, ws, bus, _ := newTestEnv(t)
	cfg := newTestConfig()

	first := commitFiles(t, cfg, st, ws, bus, "first", map[string]string{"a.txt": "one"})
	second := commitFiles(t, cfg, st, ws, bus, "second", map[string]string{"a.txt": "two"})
	third := commitFiles(t, cfg, st, ws, bus, "third", map[string]string{"a.txt": "three"})

	commits, err := Log(st, 0)
	require.NoError(t, err)
	require.Len(t, commits, 3)
	assert.Equal(t, third.ID, commits[0].ID)
	assert.Equal(t, second.ID, commits[1].ID)
	assert.Equal(t, first.ID, commits[2].ID)

	limited, err := Log(st, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, third.ID, limited[0].ID)
}

func TestLog_EmptyRepo(t *testing.T) {
	st := newTestStore(t)

	commits, err := Log(st, 0)
	require.NoError(t, err)
	assert.Empty(t, commits)
}

func TestShowCommit(t *testing.T) {
	st, ws, bus, _ := newTestEnv(t)
	cfg := newTestConfig()
	first := commitFiles(t, cfg, st, ws, bus, "first", map[string]string{"a.txt": "one"})

	commit, err := ShowCommit(st, first.ID[:7])
	require.NoError(t, err)
	assert.Equal(t, first.ID, commit.ID)

	_, err = ShowCommit(st, "beefbeef")
	assert.ErrorIs(t, err, ErrNotFound)
}
