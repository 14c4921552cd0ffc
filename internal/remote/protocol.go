// Package remote defines the protocol types and client for fvc-server
// communication.
package remote

import (
	"github.com/kilupskalvis/fvc/internal/models"
)

// NegotiatePushRequest is sent by the client to discover which commits the
// server needs.
type NegotiatePushRequest struct {
	Branch  string   `json:"branch"`
	Commits []string `json:"commits"`
}

// NegotiatePushResponse tells the client which commits are missing on the
// server.
type NegotiatePushResponse struct {
	MissingCommits []string `json:"missing_commits"`
	RemoteTip      string   `json:"remote_tip"`
}

// NegotiatePullRequest is sent by the client to discover which commits it
// needs.
type NegotiatePullRequest struct {
	Branch   string `json:"branch"`
	LocalTip string `json:"local_tip"`
}

// NegotiatePullResponse tells the client which commits to download,
// oldest first.
type NegotiatePullResponse struct {
	MissingCommits []string `json:"missing_commits"`
	RemoteTip      string   `json:"remote_tip"`
}

// BlobCheckRequest asks the server which file blobs it already has.
type BlobCheckRequest struct {
	Hashes []string `json:"hashes"`
}

// BlobCheckResponse splits the queried hashes into those the server has
// and those it is missing.
type BlobCheckResponse struct {
	Have    []string `json:"have"`
	Missing []string `json:"missing"`
}

// CommitBundle carries one commit together with the encoded blobs its
// manifest references, serialized as a unit for transfer. Blobs already
// present on the receiving side may be omitted.
type CommitBundle struct {
	Commit *models.Commit    `json:"commit"`
	Blobs  map[string][]byte `json:"blobs,omitempty"`
}

// BranchUpdateRequest is a compare-and-swap update for a branch pointer.
type BranchUpdateRequest struct {
	CommitID string `json:"commit_id"`
	Expected string `json:"expected"`
}

// RepoInfo contains summary information about a remote repository.
type RepoInfo struct {
	BranchCount int `json:"branch_count"`
	CommitCount int `json:"commit_count"`
	TotalBlobs  int `json:"total_blobs"`
}

// ErrorResponse is the structured error format returned by the server.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Detail  map[string]string `json:"detail,omitempty"`
}
