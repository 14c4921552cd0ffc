package models

// StatusReport summarizes the repository state for display: the current
// branch, any merge in progress, plus staged and unstaged changes.
type StatusReport struct {
	Branch          string
	HeadCommit      string
	MergeInProgress bool
	MergeBranch     string
	Staged          []*StagedFile
	Modified        []string // tracked, changed in working tree, not staged
	Deleted         []string // tracked, missing from working tree, not staged
	Untracked       []string
}

// Clean reports whether there are no staged or unstaged changes.
func (s *StatusReport) Clean() bool {
	return len(s.Staged) == 0 && len(s.Modified) == 0 &&
		len(s.Deleted) == 0 && len(s.Untracked) == 0
}

// HasUncommittedChanges reports whether any tracked content differs from
// HEAD, either staged or in the working tree. Untracked files do not count.
func (s *StatusReport) HasUncommittedChanges() bool {
	return len(s.Staged) > 0 || len(s.Modified) > 0 || len(s.Deleted) > 0
}
