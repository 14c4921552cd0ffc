package models

// Branch represents a named reference to a commit.
// CommitID is empty for an unborn branch (no commits yet).
type Branch struct {
	Name     string `json:"name"`
	CommitID string `json:"commit_id"`

	// IsCurrent marks the branch HEAD points at. It is derived at read
	// time, never persisted.
	IsCurrent bool `json:"is_current,omitempty"`
}
