package models

import "time"

// MergeState tracks an in-progress merge. It is persisted as a single
// record so that a half-finished merge survives a process restart.
type MergeState struct {
	InProgress   bool      `json:"in_progress"`
	TargetBranch string    `json:"target_branch"`
	TargetCommit string    `json:"target_commit"`
	StartedAt    time.Time `json:"started_at,omitempty"`
}

// ConflictType identifies the type of merge conflict
type ConflictType string

const (
	ConflictModifyModify ConflictType = "modify-modify" // Both sides modified differently
	ConflictDeleteModify ConflictType = "delete-modify" // We deleted, they modified
	ConflictModifyDelete ConflictType = "modify-delete" // We modified, they deleted
	ConflictAddAdd       ConflictType = "add-add"       // Both added with different content
)

// FileConflict represents a single conflicted path during a merge.
// The conflicted content (with markers) has already been written to the
// working tree by the time the conflict is reported.
type FileConflict struct {
	Path string       `json:"path"`
	Type ConflictType `json:"type"`
}

// MergeResult contains the outcome of a merge operation
type MergeResult struct {
	Success     bool            // Whether merge succeeded
	FastForward bool            // Whether this was a fast-forward merge
	UpToDate    bool            // Whether there was nothing to merge
	Ancestor    string          // Common ancestor commit used for the three-way merge
	MergedFiles []string        // Paths merged cleanly and re-staged
	Conflicts   []*FileConflict // Conflicted paths (if any)
	Warnings    []string        // Non-fatal warnings
}
