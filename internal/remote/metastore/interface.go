// Package metastore provides the server-side metadata storage abstraction:
// the commit graph and branch pointers of one hosted repository.
package metastore

import (
	"context"
	"errors"

	"github.com/kilupskalvis/fvc/internal/models"
)

// Sentinel errors for expected conditions.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// MetaStore defines the contract for server-side metadata persistence.
type MetaStore interface {
	// Commits
	HasCommit(ctx context.Context, id string) (bool, error)
	GetCommit(ctx context.Context, id string) (*models.Commit, error)
	InsertCommit(ctx context.Context, c *models.Commit) error
	GetAncestors(ctx context.Context, id string) (map[string]bool, error)
	GetCommitCount(ctx context.Context) (int, error)

	// Branches
	ListBranches(ctx context.Context) ([]*models.Branch, error)
	GetBranch(ctx context.Context, name string) (*models.Branch, error)
	CreateBranch(ctx context.Context, name, commitID string) error
	UpdateBranchCAS(ctx context.Context, name, newCommitID, expectedCommitID string) error
	DeleteBranch(ctx context.Context, name string) error

	// GetAllBlobHashes returns every blob hash referenced by a commit
	// manifest. Garbage collection treats these as live.
	GetAllBlobHashes(ctx context.Context) (map[string]bool, error)

	// Close releases resources.
	Close() error
}
