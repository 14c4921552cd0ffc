package models

import "time"

// ChangeType represents the kind of change a staged file records
type ChangeType string

const (
	ChangeAdd    ChangeType = "add"
	ChangeModify ChangeType = "modify"
	ChangeDelete ChangeType = "delete"
)

// StagedFile represents a single file entry in the staging area.
// BlobHash is empty for deletions.
type StagedFile struct {
	Path       string     `json:"path"`
	BlobHash   string     `json:"blob_hash,omitempty"`
	ChangeType ChangeType `json:"change_type"`
	StagedAt   time.Time  `json:"staged_at"`
}
