package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/kilupskalvis/fvc/internal/events"
	"github.com/kilupskalvis/fvc/internal/models"
	"github.com/kilupskalvis/fvc/internal/store"
	"github.com/kilupskalvis/fvc/internal/workspace"
)

// ancestorWalkLimit bounds how far FindCommonAncestor walks each parent
// chain. Histories deeper than this merge as unrelated.
const ancestorWalkLimit = 100

// FindCommonAncestor locates the merge base of two commits: the first
// commit on b's parent chain that also appears on a's parent chain.
//
// The walk is asymmetric. First a's chain is recorded, a included, up to
// ancestorWalkLimit commits. Then b's chain is walked under the same
// bound, b included, and the first recorded hash found is returned. ""
// means the chains never met within the bound.
func FindCommonAncestor(graph CommitGraph, commitA, commitB string) (string, error) {
	if commitA == "" || commitB == "" {
		return "", nil
	}
	if commitA == commitB {
		return commitA, nil
	}

	visitedA := make(map[string]bool)
	current := commitA
	for steps := 0; current != "" && steps < ancestorWalkLimit; steps++ {
		visitedA[current] = true
		parent, err := graph.GetParentCommit(current)
		if err != nil {
			return "", wrapIO(err)
		}
		current = parent
	}

	current = commitB
	for steps := 0; current != "" && steps < ancestorWalkLimit; steps++ {
		if visitedA[current] {
			return current, nil
		}
		parent, err := graph.GetParentCommit(current)
		if err != nil {
			return "", wrapIO(err)
		}
		current = parent
	}

	return "", nil
}

// mergeFileContent merges one file's content three ways. clean is false
// when neither side can win automatically, in which case merged carries
// conflict markers with the current branch's content on top.
//
// A side that does not track the file contributes empty content, so
// deletions flow through the same four rules as edits.
func mergeFileContent(ancestorContent, currentContent, otherContent string) (merged string, clean bool) {
	if currentContent == otherContent {
		return currentContent, true
	}
	if ancestorContent == currentContent {
		return otherContent, true
	}
	if ancestorContent == otherContent {
		return currentContent, true
	}

	merged = "<<<<<<< Current\n" + currentContent + "\n=======\n" + otherContent + "\n>>>>>>> Other\n"
	return merged, false
}

// classifyConflict names the shape of a conflict from which sides track
// the file.
func classifyConflict(ancestorContent, currentContent, otherContent string) models.ConflictType {
	switch {
	case ancestorContent == "":
		return models.ConflictAddAdd
	case currentContent == "":
		return models.ConflictDeleteModify
	case otherContent == "":
		return models.ConflictModifyDelete
	default:
		return models.ConflictModifyModify
	}
}

// MergeBranch merges branchName into the current branch.
//
// Fast-forward and already-up-to-date cases finish immediately. A true
// three-way merge records merge state first, then merges every file
// known to any of the three commits: clean results are written to the
// working tree and staged, conflicting results are written with markers
// and left unstaged while the merge stays in progress. A clean three-way
// merge clears the merge state but creates no commit; committing the
// staged result is the caller's move.
func MergeBranch(st *store.Store, ws workspace.Workspace, bus *events.Bus, branchName string) (*models.MergeResult, error) {
	state, err := st.GetMergeState()
	if err != nil {
		return nil, fail(bus, srcMerge, wrapIO(err))
	}
	if state.InProgress {
		return nil, fail(bus, srcMerge, fmt.Errorf("%w: a merge of branch '%s' is already in progress; commit or abort it first", ErrState, state.TargetBranch))
	}

	current, err := st.GetCurrentBranch()
	if err != nil {
		return nil, fail(bus, srcMerge, wrapIO(err))
	}
	if branchName == current {
		return nil, fail(bus, srcMerge, fmt.Errorf("%w: cannot merge branch '%s' into itself", ErrValidation, branchName))
	}

	exists, err := st.BranchExists(branchName)
	if err != nil {
		return nil, fail(bus, srcMerge, wrapIO(err))
	}
	if !exists {
		return nil, fail(bus, srcMerge, fmt.Errorf("%w: branch '%s' not found", ErrNotFound, branchName))
	}

	currentHead, _, err := st.GetBranchHead(current)
	if err != nil {
		return nil, fail(bus, srcMerge, wrapIO(err))
	}
	if currentHead == "" {
		return nil, fail(bus, srcMerge, fmt.Errorf("%w: current branch '%s' has no commits", ErrState, current))
	}

	branchHead, _, err := st.GetBranchHead(branchName)
	if err != nil {
		return nil, fail(bus, srcMerge, wrapIO(err))
	}
	if branchHead == "" {
		return nil, fail(bus, srcMerge, fmt.Errorf("%w: branch '%s' has no commits", ErrState, branchName))
	}

	stagedCount, err := st.GetStagedFilesCount()
	if err != nil {
		return nil, fail(bus, srcMerge, wrapIO(err))
	}
	if stagedCount > 0 {
		return nil, fail(bus, srcMerge, fmt.Errorf("%w: cannot merge: you have staged changes; commit or reset them first", ErrState))
	}

	ancestor, err := FindCommonAncestor(st, currentHead, branchHead)
	if err != nil {
		return nil, fail(bus, srcMerge, err)
	}
	if ancestor == "" {
		return nil, fail(bus, srcMerge, fmt.Errorf("%w: cannot merge: no common ancestor found", ErrNotFound))
	}

	result := &models.MergeResult{Ancestor: ancestor}

	// The current branch is strictly behind: move its head forward.
	if ancestor == currentHead {
		warnings, err := materializeCommit(st, ws, currentHead, branchHead)
		if err != nil {
			return nil, fail(bus, srcMerge, err)
		}
		if err := st.UpdateBranch(current, branchHead); err != nil {
			return nil, fail(bus, srcMerge, wrapIO(err))
		}
		result.Success = true
		result.FastForward = true
		result.Warnings = warnings
		bus.Info(srcMerge, "fast-forwarded '%s' to %s", current, shortHash(branchHead))
		return result, nil
	}

	// The other branch is strictly behind: nothing to do.
	if ancestor == branchHead {
		result.Success = true
		result.UpToDate = true
		bus.Info(srcMerge, "Already up to date.")
		return result, nil
	}

	newState := &models.MergeState{
		InProgress:   true,
		TargetBranch: branchName,
		TargetCommit: branchHead,
		StartedAt:    time.Now(),
	}
	if err := st.SetMergeState(newState); err != nil {
		return nil, fail(bus, srcMerge, wrapIO(err))
	}

	mergedFiles, conflicts, err := performThreeWayMerge(st, ws, ancestor, currentHead, branchHead)
	if err != nil {
		return nil, fail(bus, srcMerge, err)
	}
	result.MergedFiles = mergedFiles
	result.Conflicts = conflicts

	if len(conflicts) > 0 {
		for _, c := range conflicts {
			bus.Conflict(srcMerge, "CONFLICT (%s): merge conflict in %s", c.Type, c.Path)
		}
		return result, fmt.Errorf("%w: automatic merge failed: %d conflicting file(s)", ErrConflict, len(conflicts))
	}

	if err := st.ClearMergeState(); err != nil {
		return nil, fail(bus, srcMerge, wrapIO(err))
	}

	result.Success = true
	bus.Info(srcMerge, "merged branch '%s' into '%s' (%d file(s) changed)", branchName, current, len(mergedFiles))
	return result, nil
}

// performThreeWayMerge merges every path tracked by any of the three
// commits. Paths are processed in sorted order so output and staging are
// deterministic.
func performThreeWayMerge(st *store.Store, ws workspace.Workspace, ancestor, currentHead, branchHead string) ([]string, []*models.FileConflict, error) {
	ancestorFiles, err := st.GetCommitFiles(ancestor)
	if err != nil {
		return nil, nil, wrapIO(err)
	}
	currentFiles, err := st.GetCommitFiles(currentHead)
	if err != nil {
		return nil, nil, wrapIO(err)
	}
	otherFiles, err := st.GetCommitFiles(branchHead)
	if err != nil {
		return nil, nil, wrapIO(err)
	}

	paths := make(map[string]bool)
	for path := range ancestorFiles {
		paths[path] = true
	}
	for path := range currentFiles {
		paths[path] = true
	}
	for path := range otherFiles {
		paths[path] = true
	}

	sorted := make([]string, 0, len(paths))
	for path := range paths {
		sorted = append(sorted, path)
	}
	sort.Strings(sorted)

	var mergedFiles []string
	var conflicts []*models.FileConflict

	for _, path := range sorted {
		ancestorContent, err := st.GetFileContent(ancestor, path)
		if err != nil {
			return nil, nil, wrapIO(err)
		}
		currentContent, err := st.GetFileContent(currentHead, path)
		if err != nil {
			return nil, nil, wrapIO(err)
		}
		otherContent, err := st.GetFileContent(branchHead, path)
		if err != nil {
			return nil, nil, wrapIO(err)
		}

		merged, clean := mergeFileContent(ancestorContent, currentContent, otherContent)

		if !clean {
			if err := ws.WriteFile(path, merged); err != nil {
				return nil, nil, wrapIO(err)
			}
			conflicts = append(conflicts, &models.FileConflict{
				Path: path,
				Type: classifyConflict(ancestorContent, currentContent, otherContent),
			})
			continue
		}

		// The current branch already has this outcome; leave the path
		// alone rather than clobbering the working copy.
		if merged == currentContent {
			continue
		}

		if merged == "" {
			if err := ws.RemoveFile(path); err != nil {
				return nil, nil, wrapIO(err)
			}
			if err := stageMergedDeletion(st, path); err != nil {
				return nil, nil, wrapIO(err)
			}
		} else {
			if err := ws.WriteFile(path, merged); err != nil {
				return nil, nil, wrapIO(err)
			}
			if err := stageMergedFile(st, currentFiles, path, merged); err != nil {
				return nil, nil, wrapIO(err)
			}
		}
		mergedFiles = append(mergedFiles, path)
	}

	return mergedFiles, conflicts, nil
}

func stageMergedFile(st *store.Store, currentFiles map[string]string, path, content string) error {
	blobHash, err := st.PutBlob([]byte(content))
	if err != nil {
		return err
	}

	changeType := models.ChangeAdd
	if _, tracked := currentFiles[path]; tracked {
		changeType = models.ChangeModify
	}

	return st.AddStagedFile(&models.StagedFile{
		Path:       path,
		BlobHash:   blobHash,
		ChangeType: changeType,
		StagedAt:   time.Now(),
	})
}

func stageMergedDeletion(st *store.Store, path string) error {
	return st.AddStagedFile(&models.StagedFile{
		Path:       path,
		ChangeType: models.ChangeDelete,
		StagedAt:   time.Now(),
	})
}

// AbortMerge abandons an in-progress merge, clearing the merge state and
// anything the merge staged. Conflict markers written to the working
// tree are left for the caller to clean up or overwrite. Returns the
// name of the branch whose merge was abandoned.
func AbortMerge(st *store.Store, bus *events.Bus) (string, error) {
	state, err := st.GetMergeState()
	if err != nil {
		return "", fail(bus, srcMerge, wrapIO(err))
	}
	if !state.InProgress {
		return "", fail(bus, srcMerge, fmt.Errorf("%w: no merge in progress", ErrState))
	}

	branch := state.TargetBranch

	if err := st.ClearMergeState(); err != nil {
		return "", fail(bus, srcMerge, wrapIO(err))
	}
	if err := st.ClearStagedFiles(); err != nil {
		return "", fail(bus, srcMerge, wrapIO(err))
	}

	bus.Info(srcMerge, "merge of branch '%s' aborted", branch)
	return branch, nil
}

// IsMergeInProgress reports whether a merge is waiting on conflict
// resolution.
func IsMergeInProgress(st *store.Store) (bool, error) {
	state, err := st.GetMergeState()
	if err != nil {
		return false, wrapIO(err)
	}
	return state.InProgress, nil
}

// GetMergeBranch returns the branch being merged, or "" when no merge is
// in progress.
func GetMergeBranch(st *store.Store) (string, error) {
	state, err := st.GetMergeState()
	if err != nil {
		return "", wrapIO(err)
	}
	if !state.InProgress {
		return "", nil
	}
	return state.TargetBranch, nil
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
