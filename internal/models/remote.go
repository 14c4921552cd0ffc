package models

import "time"

// Remote is a named fvc-server this repository can sync with. The
// access token is stored separately and never serialized here.
type Remote struct {
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// RemoteBranch records where a branch on a remote was last seen. It
// moves on fetch and push, never on local commits.
type RemoteBranch struct {
	RemoteName string    `json:"remote_name"`
	BranchName string    `json:"branch_name"`
	CommitID   string    `json:"commit_id"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RemoteBranchKey returns the bbolt key for a remote branch: "remote:branch".
func RemoteBranchKey(remoteName, branchName string) string {
	return remoteName + ":" + branchName
}
