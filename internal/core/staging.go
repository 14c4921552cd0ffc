package core

import (
	"fmt"
	"time"

	"github.com/kilupskalvis/fvc/internal/events"
	"github.com/kilupskalvis/fvc/internal/models"
	"github.com/kilupskalvis/fvc/internal/store"
	"github.com/kilupskalvis/fvc/internal/workspace"
)

// StageFile stages the working copy of path for the next commit. A path
// missing from the working tree but tracked by HEAD is staged as a
// deletion. Staging a file whose content matches HEAD clears any stale
// staged entry instead of recording a no-op change.
func StageFile(st *store.Store, ws workspace.Workspace, bus *events.Bus, path string) error {
	head, err := st.GetHeadCommit()
	if err != nil {
		return fail(bus, srcStage, wrapIO(err))
	}
	headFiles, err := st.GetCommitFiles(head)
	if err != nil {
		return fail(bus, srcStage, wrapIO(err))
	}

	content, exists, err := ws.ReadFile(path)
	if err != nil {
		return fail(bus, srcStage, wrapIO(err))
	}

	if !exists {
		if _, tracked := headFiles[path]; tracked {
			err := st.AddStagedFile(&models.StagedFile{
				Path:       path,
				ChangeType: models.ChangeDelete,
				StagedAt:   time.Now(),
			})
			if err != nil {
				return fail(bus, srcStage, wrapIO(err))
			}
			bus.Info(srcStage, "staged deletion of '%s'", path)
			return nil
		}

		staged, err := st.GetStagedFile(path)
		if err != nil {
			return fail(bus, srcStage, wrapIO(err))
		}
		if staged != nil {
			// Staged earlier, gone now, never committed: forget it.
			if err := st.RemoveStagedFile(path); err != nil {
				return fail(bus, srcStage, wrapIO(err))
			}
			bus.Info(srcStage, "unstaged '%s'", path)
			return nil
		}

		return fail(bus, srcStage, fmt.Errorf("%w: pathspec '%s' did not match any files", ErrNotFound, path))
	}

	blobHash, err := st.PutBlob([]byte(content))
	if err != nil {
		return fail(bus, srcStage, wrapIO(err))
	}

	headBlob, tracked := headFiles[path]
	if tracked && headBlob == blobHash {
		if err := st.RemoveStagedFile(path); err != nil {
			return fail(bus, srcStage, wrapIO(err))
		}
		return nil
	}

	changeType := models.ChangeAdd
	if tracked {
		changeType = models.ChangeModify
	}

	err = st.AddStagedFile(&models.StagedFile{
		Path:       path,
		BlobHash:   blobHash,
		ChangeType: changeType,
		StagedAt:   time.Now(),
	})
	if err != nil {
		return fail(bus, srcStage, wrapIO(err))
	}

	bus.Info(srcStage, "staged '%s'", path)
	return nil
}

// StageAll stages every modified, untracked, and deleted path in one
// sweep, returning how many entries were staged.
func StageAll(st *store.Store, ws workspace.Workspace, bus *events.Bus) (int, error) {
	report, err := Status(st, ws)
	if err != nil {
		return 0, fail(bus, srcStage, err)
	}

	count := 0
	for _, group := range [][]string{report.Modified, report.Untracked, report.Deleted} {
		for _, path := range group {
			if err := StageFile(st, ws, bus, path); err != nil {
				return count, err
			}
			count++
		}
	}

	if count == 0 {
		bus.Info(srcStage, "nothing to stage")
	}
	return count, nil
}

// Unstage removes a path from the staging area. Unstaging something that
// was never staged is a quiet no-op, matching how reset behaves.
func Unstage(st *store.Store, bus *events.Bus, path string) error {
	if err := st.RemoveStagedFile(path); err != nil {
		return fail(bus, srcStage, wrapIO(err))
	}
	bus.Info(srcStage, "unstaged '%s'", path)
	return nil
}

// UnstageAll clears the whole staging area.
func UnstageAll(st *store.Store, bus *events.Bus) error {
	if err := st.ClearStagedFiles(); err != nil {
		return fail(bus, srcStage, wrapIO(err))
	}
	bus.Info(srcStage, "staging area cleared")
	return nil
}
