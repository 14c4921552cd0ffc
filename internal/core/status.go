package core

import (
	"sort"

	"github.com/kilupskalvis/fvc/internal/models"
	"github.com/kilupskalvis/fvc/internal/objects"
	"github.com/kilupskalvis/fvc/internal/store"
	"github.com/kilupskalvis/fvc/internal/workspace"
)

// Status compares the working tree and staging area against HEAD. Paths
// with a staged entry are reported only under Staged; the Modified,
// Deleted, and Untracked lists cover unstaged differences.
func Status(st *store.Store, ws workspace.Workspace) (*models.StatusReport, error) {
	branch, err := st.GetCurrentBranch()
	if err != nil {
		return nil, wrapIO(err)
	}

	head, err := st.GetHeadCommit()
	if err != nil {
		return nil, wrapIO(err)
	}

	mergeState, err := st.GetMergeState()
	if err != nil {
		return nil, wrapIO(err)
	}

	staged, err := st.GetAllStagedFiles()
	if err != nil {
		return nil, wrapIO(err)
	}
	stagedSet := make(map[string]bool, len(staged))
	for _, sf := range staged {
		stagedSet[sf.Path] = true
	}

	headFiles, err := st.GetCommitFiles(head)
	if err != nil {
		return nil, wrapIO(err)
	}

	workingPaths, err := ws.ListFiles()
	if err != nil {
		return nil, wrapIO(err)
	}
	workingSet := make(map[string]bool, len(workingPaths))
	for _, path := range workingPaths {
		workingSet[path] = true
	}

	report := &models.StatusReport{
		Branch:          branch,
		HeadCommit:      head,
		MergeInProgress: mergeState.InProgress,
		MergeBranch:     mergeState.TargetBranch,
		Staged:          staged,
	}

	for _, path := range workingPaths {
		if stagedSet[path] {
			continue
		}

		headBlob, tracked := headFiles[path]
		if !tracked {
			report.Untracked = append(report.Untracked, path)
			continue
		}

		content, _, err := ws.ReadFile(path)
		if err != nil {
			return nil, wrapIO(err)
		}
		if objects.HashBlob([]byte(content)) != headBlob {
			report.Modified = append(report.Modified, path)
		}
	}

	for path := range headFiles {
		if !workingSet[path] && !stagedSet[path] {
			report.Deleted = append(report.Deleted, path)
		}
	}

	sort.Strings(report.Modified)
	sort.Strings(report.Deleted)
	sort.Strings(report.Untracked)

	return report, nil
}
