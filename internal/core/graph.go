package core

import "github.com/kilupskalvis/fvc/internal/store"

// CommitGraph is the read-side view of commit history that the merge
// machinery walks. *store.Store satisfies it; tests substitute small
// in-memory graphs.
type CommitGraph interface {
	// GetParentCommit returns the parent hash of a commit, or "" when the
	// commit has no parent or is unknown.
	GetParentCommit(commitID string) (string, error)

	// GetCommitFiles returns the path-to-blob manifest of a commit. An
	// unknown commit yields an empty manifest.
	GetCommitFiles(commitID string) (map[string]string, error)

	// GetFileContent returns the content of path as recorded by a commit,
	// or "" when the commit does not track the path.
	GetFileContent(commitID, path string) (string, error)
}

var _ CommitGraph = (*store.Store)(nil)
