package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilupskalvis/fvc/internal/events"
	"github.com/kilupskalvis/fvc/internal/models"
	"github.com/kilupskalvis/fvc/internal/store"
	"github.com/kilupskalvis/fvc/internal/workspace"
)

const srcStash = "stash"

// StashPush saves all uncommitted changes (staged and unstaged) to the
// stash and restores the working tree to HEAD. Untracked files are left
// alone.
func StashPush(st *store.Store, ws workspace.Workspace, bus *events.Bus, message string) (*models.StashEntry, error) {
	inProgress, err := IsMergeInProgress(st)
	if err != nil {
		return nil, fail(bus, srcStash, err)
	}
	if inProgress {
		return nil, fail(bus, srcStash, fmt.Errorf("%w: cannot stash during a merge", ErrState))
	}

	report, err := Status(st, ws)
	if err != nil {
		return nil, fail(bus, srcStash, err)
	}
	if !report.HasUncommittedChanges() {
		return nil, fail(bus, srcStash, fmt.Errorf("%w: no local changes to stash", ErrState))
	}

	head, err := st.GetHeadCommit()
	if err != nil {
		return nil, fail(bus, srcStash, wrapIO(err))
	}
	headFiles, err := st.GetCommitFiles(head)
	if err != nil {
		return nil, fail(bus, srcStash, wrapIO(err))
	}

	staged, err := st.GetAllStagedFiles()
	if err != nil {
		return nil, fail(bus, srcStash, wrapIO(err))
	}

	if message == "" {
		message = fmt.Sprintf("WIP on %s", report.Branch)
	}

	entry := &models.StashEntry{
		ID:         uuid.NewString(),
		Message:    message,
		Branch:     report.Branch,
		BaseCommit: head,
		CreatedAt:  time.Now().UTC(),
		Files:      make(map[string]string),
		Staged:     staged,
	}

	// Snapshot the current working-tree content of every changed path.
	changed := make(map[string]bool)
	for _, sf := range staged {
		if sf.ChangeType == models.ChangeDelete {
			entry.Deleted = append(entry.Deleted, sf.Path)
		} else {
			changed[sf.Path] = true
		}
	}
	for _, path := range report.Modified {
		changed[path] = true
	}
	entry.Deleted = append(entry.Deleted, report.Deleted...)

	for path := range changed {
		content, exists, err := ws.ReadFile(path)
		if err != nil {
			return nil, fail(bus, srcStash, wrapIO(err))
		}
		if !exists {
			// Staged but since removed from the tree.
			entry.Deleted = append(entry.Deleted, path)
			continue
		}
		hash, err := st.PutBlob([]byte(content))
		if err != nil {
			return nil, fail(bus, srcStash, wrapIO(err))
		}
		entry.Files[path] = hash
	}

	if err := st.PushStash(entry); err != nil {
		return nil, fail(bus, srcStash, wrapIO(err))
	}

	// Roll the working tree back to HEAD.
	if err := st.ClearStagedFiles(); err != nil {
		return nil, fail(bus, srcStash, wrapIO(err))
	}
	for path := range entry.Files {
		if _, tracked := headFiles[path]; !tracked {
			if err := ws.RemoveFile(path); err != nil {
				bus.Warn(srcStash, "cannot remove %s: %v", path, err)
			}
			continue
		}
		content, err := st.GetFileContent(head, path)
		if err != nil {
			return nil, fail(bus, srcStash, wrapIO(err))
		}
		if err := ws.WriteFile(path, content); err != nil {
			return nil, fail(bus, srcStash, wrapIO(err))
		}
	}
	for _, path := range entry.Deleted {
		if _, tracked := headFiles[path]; !tracked {
			continue
		}
		content, err := st.GetFileContent(head, path)
		if err != nil {
			return nil, fail(bus, srcStash, wrapIO(err))
		}
		if err := ws.WriteFile(path, content); err != nil {
			return nil, fail(bus, srcStash, wrapIO(err))
		}
	}

	bus.Info(srcStash, "saved working tree state: %s", message)
	return entry, nil
}

// StashApply restores a stash entry's changes into the working tree and
// staging area. An empty id selects the most recent entry. When pop is
// set the entry is dropped after a successful apply.
func StashApply(st *store.Store, ws workspace.Workspace, bus *events.Bus, id string, pop bool) (*models.StashEntry, error) {
	inProgress, err := IsMergeInProgress(st)
	if err != nil {
		return nil, fail(bus, srcStash, err)
	}
	if inProgress {
		return nil, fail(bus, srcStash, fmt.Errorf("%w: cannot apply a stash during a merge", ErrState))
	}

	entry, err := findStash(st, id)
	if err != nil {
		return nil, fail(bus, srcStash, err)
	}

	for path, hash := range entry.Files {
		content, found, err := st.GetBlob(hash)
		if err != nil {
			return nil, fail(bus, srcStash, wrapIO(err))
		}
		if !found {
			return nil, fail(bus, srcStash, fmt.Errorf("%w: stash blob %s missing", ErrIO, shortHash(hash)))
		}
		if err := ws.WriteFile(path, string(content)); err != nil {
			return nil, fail(bus, srcStash, wrapIO(err))
		}
	}
	for _, path := range entry.Deleted {
		if err := ws.RemoveFile(path); err != nil {
			bus.Warn(srcStash, "cannot remove %s: %v", path, err)
		}
	}
	for _, sf := range entry.Staged {
		if err := st.AddStagedFile(sf); err != nil {
			return nil, fail(bus, srcStash, wrapIO(err))
		}
	}

	if pop {
		if err := st.DropStash(entry.ID); err != nil {
			return nil, fail(bus, srcStash, wrapIO(err))
		}
	}

	bus.Info(srcStash, "applied stash: %s", entry.Message)
	return entry, nil
}

// StashList returns all stash entries, newest first.
func StashList(st *store.Store) ([]*models.StashEntry, error) {
	entries, err := st.ListStash()
	if err != nil {
		return nil, wrapIO(err)
	}
	return entries, nil
}

// StashDrop discards a stash entry without applying it. An empty id
// selects the most recent entry.
func StashDrop(st *store.Store, bus *events.Bus, id string) (*models.StashEntry, error) {
	entry, err := findStash(st, id)
	if err != nil {
		return nil, fail(bus, srcStash, err)
	}
	if err := st.DropStash(entry.ID); err != nil {
		return nil, fail(bus, srcStash, wrapIO(err))
	}
	bus.Info(srcStash, "dropped stash: %s", entry.Message)
	return entry, nil
}

func findStash(st *store.Store, id string) (*models.StashEntry, error) {
	if id == "" {
		entry, err := st.LatestStash()
		if err != nil {
			return nil, wrapIO(err)
		}
		if entry == nil {
			return nil, fmt.Errorf("%w: the stash is empty", ErrNotFound)
		}
		return entry, nil
	}

	entry, err := st.GetStash(id)
	if err != nil {
		return nil, wrapIO(err)
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: stash entry '%s'", ErrNotFound, id)
	}
	return entry, nil
}
