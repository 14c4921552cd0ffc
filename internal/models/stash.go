package models

import "time"

// StashEntry captures uncommitted work so the working tree can be
// restored to HEAD and the changes reapplied later. Content lives in the
// blob store; the entry only records hashes.
type StashEntry struct {
	ID         string    `json:"id"`
	Seq        uint64    `json:"seq"`
	Message    string    `json:"message"`
	Branch     string    `json:"branch"`
	BaseCommit string    `json:"base_commit"`
	CreatedAt  time.Time `json:"created_at"`

	// Files maps changed or added paths to their stashed blob hashes.
	Files map[string]string `json:"files"`
	// Deleted lists tracked paths removed from the working tree.
	Deleted []string `json:"deleted,omitempty"`
	// Staged preserves the staging area as it was when stashed.
	Staged []*StagedFile `json:"staged,omitempty"`
}
