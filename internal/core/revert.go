package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/kilupskalvis/fvc/internal/config"
	"github.com/kilupskalvis/fvc/internal/events"
	"github.com/kilupskalvis/fvc/internal/models"
	"github.com/kilupskalvis/fvc/internal/store"
	"github.com/kilupskalvis/fvc/internal/workspace"
)

const srcRevert = "revert"

// Revert creates a new commit that undoes the changes introduced by the
// given revision. History is never rewritten; the reverted commit stays
// in the chain. The working tree must be clean, and every path the
// revision touched must be unchanged since, otherwise the revert is
// rejected with ErrConflict.
func Revert(cfg *config.Config, st *store.Store, ws workspace.Workspace, bus *events.Bus, ref string) (*models.Commit, error) {
	inProgress, err := IsMergeInProgress(st)
	if err != nil {
		return nil, fail(bus, srcRevert, err)
	}
	if inProgress {
		return nil, fail(bus, srcRevert, fmt.Errorf("%w: cannot revert during a merge", ErrState))
	}

	report, err := Status(st, ws)
	if err != nil {
		return nil, fail(bus, srcRevert, err)
	}
	if report.HasUncommittedChanges() {
		return nil, fail(bus, srcRevert, fmt.Errorf("%w: you have uncommitted changes; commit or stash them first", ErrState))
	}

	commitID, err := ResolveRef(st, ref)
	if err != nil {
		return nil, fail(bus, srcRevert, err)
	}
	target, err := st.GetCommit(commitID)
	if err != nil {
		return nil, fail(bus, srcRevert, wrapIO(err))
	}
	if target == nil {
		return nil, fail(bus, srcRevert, fmt.Errorf("%w: commit %s", ErrNotFound, commitID))
	}

	parentFiles, err := st.GetCommitFiles(target.ParentID)
	if err != nil {
		return nil, fail(bus, srcRevert, wrapIO(err))
	}

	head, err := st.GetHeadCommit()
	if err != nil {
		return nil, fail(bus, srcRevert, wrapIO(err))
	}
	headFiles, err := st.GetCommitFiles(head)
	if err != nil {
		return nil, fail(bus, srcRevert, wrapIO(err))
	}

	changes, err := invertCommit(target, parentFiles, headFiles)
	if err != nil {
		return nil, fail(bus, srcRevert, err)
	}
	if len(changes) == 0 {
		return nil, fail(bus, srcRevert, fmt.Errorf("%w: commit %s changed nothing to revert", ErrState, shortHash(commitID)))
	}

	for _, ch := range changes {
		switch ch.ChangeType {
		case models.ChangeDelete:
			if err := ws.RemoveFile(ch.Path); err != nil {
				return nil, fail(bus, srcRevert, wrapIO(err))
			}
		default:
			content, err := st.GetFileContent(target.ParentID, ch.Path)
			if err != nil {
				return nil, fail(bus, srcRevert, wrapIO(err))
			}
			if err := ws.WriteFile(ch.Path, content); err != nil {
				return nil, fail(bus, srcRevert, wrapIO(err))
			}
		}
		ch.StagedAt = time.Now()
		if err := st.AddStagedFile(ch); err != nil {
			return nil, fail(bus, srcRevert, wrapIO(err))
		}
	}

	summary := target.Message
	if idx := strings.IndexByte(summary, '\n'); idx >= 0 {
		summary = summary[:idx]
	}
	message := fmt.Sprintf("Revert %q\n\nThis reverts commit %s.", summary, target.ID)

	commit, err := CreateCommit(cfg, st, bus, message)
	if err != nil {
		return nil, err
	}

	bus.Info(srcRevert, "reverted commit %s as %s", shortHash(target.ID), commit.ShortID())
	return commit, nil
}

// invertCommit computes the staged changes that undo one commit, checking
// each touched path against HEAD so a revert never silently clobbers
// later work.
func invertCommit(target *models.Commit, parentFiles, headFiles map[string]string) ([]*models.StagedFile, error) {
	var changes []*models.StagedFile

	for path, hash := range target.Files {
		parentHash, inParent := parentFiles[path]
		if inParent && parentHash == hash {
			continue // untouched by this commit
		}

		headHash, inHead := headFiles[path]
		if !inHead || headHash != hash {
			return nil, fmt.Errorf("%w: '%s' was changed after %s; revert it manually", ErrConflict, path, shortHash(target.ID))
		}

		if !inParent {
			// Added by the commit: undo is a deletion.
			changes = append(changes, &models.StagedFile{Path: path, ChangeType: models.ChangeDelete})
			continue
		}
		changes = append(changes, &models.StagedFile{
			Path:       path,
			BlobHash:   parentHash,
			ChangeType: models.ChangeModify,
		})
	}

	for path, parentHash := range parentFiles {
		if _, inTarget := target.Files[path]; inTarget {
			continue
		}
		// Deleted by the commit: undo restores the parent's version.
		if _, inHead := headFiles[path]; inHead {
			return nil, fmt.Errorf("%w: '%s' was re-added after %s; revert it manually", ErrConflict, path, shortHash(target.ID))
		}
		changes = append(changes, &models.StagedFile{
			Path:       path,
			BlobHash:   parentHash,
			ChangeType: models.ChangeAdd,
		})
	}

	return changes, nil
}
