// Package models defines the core data structures used throughout FVC
// including commits, branches, staged files, and merge state.
package models

import "time"

// Commit represents a version control commit. Commits form a
// single-parent chain; ParentID is empty for the initial commit.
type Commit struct {
	ID        string            `json:"id"`
	ParentID  string            `json:"parent_id,omitempty"`
	Message   string            `json:"message"`
	Author    string            `json:"author,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Files     map[string]string `json:"files"` // path -> blob hash
}

// ShortID returns a shortened commit ID (first 7 characters)
func (c *Commit) ShortID() string {
	if len(c.ID) > 7 {
		return c.ID[:7]
	}
	return c.ID
}

// FileCount returns the number of files tracked by this commit.
func (c *Commit) FileCount() int {
	return len(c.Files)
}
