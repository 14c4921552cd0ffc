package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/kilupskalvis/fvc/internal/config"
	"github.com/kilupskalvis/fvc/internal/events"
	"github.com/kilupskalvis/fvc/internal/models"
	"github.com/kilupskalvis/fvc/internal/store"
)

// CreateCommit records the staged changes as a new commit on the current
// branch. The commit's file manifest is the parent's manifest with the
// staged additions, modifications, and deletions applied. Committing
// while a merge is in progress concludes that merge.
func CreateCommit(cfg *config.Config, st *store.Store, bus *events.Bus, message string) (*models.Commit, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fail(bus, srcCommit, fmt.Errorf("%w: commit message cannot be empty", ErrValidation))
	}

	staged, err := st.GetAllStagedFiles()
	if err != nil {
		return nil, fail(bus, srcCommit, wrapIO(err))
	}
	if len(staged) == 0 {
		return nil, fail(bus, srcCommit, fmt.Errorf("%w: nothing to commit (use \"fvc add\" to stage changes)", ErrState))
	}

	current, err := st.GetCurrentBranch()
	if err != nil {
		return nil, fail(bus, srcCommit, wrapIO(err))
	}

	parentID, _, err := st.GetBranchHead(current)
	if err != nil {
		return nil, fail(bus, srcCommit, wrapIO(err))
	}

	parentFiles, err := st.GetCommitFiles(parentID)
	if err != nil {
		return nil, fail(bus, srcCommit, wrapIO(err))
	}

	manifest := make(map[string]string, len(parentFiles)+len(staged))
	for path, blobHash := range parentFiles {
		manifest[path] = blobHash
	}
	for _, sf := range staged {
		if sf.ChangeType == models.ChangeDelete {
			delete(manifest, sf.Path)
		} else {
			manifest[sf.Path] = sf.BlobHash
		}
	}

	now := time.Now()
	commit := &models.Commit{
		ID:        models.GenerateCommitID(message, now, parentID, manifest),
		ParentID:  parentID,
		Message:   message,
		Author:    cfg.AuthorString(),
		Timestamp: now,
		Files:     manifest,
	}

	if err := st.CreateCommit(commit); err != nil {
		return nil, fail(bus, srcCommit, wrapIO(err))
	}

	exists, err := st.BranchExists(current)
	if err != nil {
		return nil, fail(bus, srcCommit, wrapIO(err))
	}
	if exists {
		if err := st.UpdateBranch(current, commit.ID); err != nil {
			return nil, fail(bus, srcCommit, wrapIO(err))
		}
	} else {
		// HEAD names a branch that was never written; create it.
		if err := st.CreateBranch(current, commit.ID); err != nil {
			return nil, fail(bus, srcCommit, wrapIO(err))
		}
	}

	if err := st.ClearStagedFiles(); err != nil {
		return nil, fail(bus, srcCommit, wrapIO(err))
	}

	mergeState, err := st.GetMergeState()
	if err != nil {
		return nil, fail(bus, srcCommit, wrapIO(err))
	}
	if mergeState.InProgress {
		if err := st.ClearMergeState(); err != nil {
			return nil, fail(bus, srcCommit, wrapIO(err))
		}
		bus.Info(srcMerge, "merge of branch '%s' concluded", mergeState.TargetBranch)
	}

	bus.Info(srcCommit, "[%s %s] %s", current, commit.ShortID(), message)
	return commit, nil
}
