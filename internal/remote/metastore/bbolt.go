package metastore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/kilupskalvis/fvc/internal/models"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketCommits  = []byte("commits")
	bucketBranches = []byte("branches")
)

// BboltStore implements MetaStore using bbolt.
type BboltStore struct {
	db *bolt.DB
}

// NewBboltStore opens or creates a bbolt database at the given path.
func NewBboltStore(dbPath string) (*BboltStore, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create meta directory: %w", err)
		}
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open meta database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketCommits, bucketBranches} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &BboltStore{db: db}, nil
}

// Close releases the bbolt database.
func (s *BboltStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// HasCommit checks if a commit exists.
func (s *BboltStore) HasCommit(_ context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCommits)
		exists = b.Get([]byte(id)) != nil
		return nil
	})
	return exists, err
}

// GetCommit retrieves a commit by ID. Returns ErrNotFound if missing.
func (s *BboltStore) GetCommit(_ context.Context, id string) (*models.Commit, error) {
	var commit *models.Commit
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketCommits).Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		commit = &models.Commit{}
		return json.Unmarshal(data, commit)
	})
	if err != nil {
		return nil, err
	}
	return commit, nil
}

// InsertCommit stores a commit. Idempotent: re-inserting an existing
// commit is a no-op.
func (s *BboltStore) InsertCommit(_ context.Context, c *models.Commit) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCommits)

		if b.Get([]byte(c.ID)) != nil {
			return nil
		}

		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal commit: %w", err)
		}
		return b.Put([]byte(c.ID), data)
	})
}

// GetAncestors returns all commit IDs reachable from the given commit,
// itself included, by walking the single-parent chain.
func (s *BboltStore) GetAncestors(_ context.Context, id string) (map[string]bool, error) {
	ancestors := make(map[string]bool)

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCommits)
		current := id

		for current != "" && !ancestors[current] {
			ancestors[current] = true

			data := b.Get([]byte(current))
			if data == nil {
				break
			}

			var commit models.Commit
			if err := json.Unmarshal(data, &commit); err != nil {
				return fmt.Errorf("unmarshal commit %s: %w", current, err)
			}
			current = commit.ParentID
		}

		return nil
	})

	return ancestors, err
}

// GetCommitCount returns the total number of commits.
func (s *BboltStore) GetCommitCount(_ context.Context) (int, error) {
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(bucketCommits).Stats().KeyN
		return nil
	})
	return count, err
}

// ListBranches returns all branches sorted by name.
func (s *BboltStore) ListBranches(_ context.Context) ([]*models.Branch, error) {
	var branches []*models.Branch

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBranches).ForEach(func(k, v []byte) error {
			var branch models.Branch
			if err := json.Unmarshal(v, &branch); err != nil {
				return fmt.Errorf("unmarshal branch: %w", err)
			}
			branches = append(branches, &branch)
			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	sort.Slice(branches, func(i, j int) bool {
		return branches[i].Name < branches[j].Name
	})

	return branches, nil
}

// GetBranch retrieves a branch by name. Returns ErrNotFound if missing.
func (s *BboltStore) GetBranch(_ context.Context, name string) (*models.Branch, error) {
	var branch *models.Branch

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketBranches).Get([]byte(name))
		if data == nil {
			return ErrNotFound
		}
		branch = &models.Branch{}
		return json.Unmarshal(data, branch)
	})

	if err != nil {
		return nil, err
	}
	return branch, nil
}

// CreateBranch creates a new branch pointing to the given commit.
func (s *BboltStore) CreateBranch(_ context.Context, name, commitID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBranches)

		if b.Get([]byte(name)) != nil {
			return fmt.Errorf("branch '%s' already exists", name)
		}

		data, err := json.Marshal(&models.Branch{Name: name, CommitID: commitID})
		if err != nil {
			return fmt.Errorf("marshal branch: %w", err)
		}
		return b.Put([]byte(name), data)
	})
}

// UpdateBranchCAS performs a compare-and-swap update on a branch pointer.
// If the branch doesn't exist and expectedCommitID is empty, it creates
// the branch. Returns ErrConflict if the current tip doesn't match
// expectedCommitID.
func (s *BboltStore) UpdateBranchCAS(_ context.Context, name, newCommitID, expectedCommitID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBranches)

		data := b.Get([]byte(name))

		if data == nil {
			if expectedCommitID != "" {
				return ErrConflict
			}
			newData, err := json.Marshal(&models.Branch{Name: name, CommitID: newCommitID})
			if err != nil {
				return fmt.Errorf("marshal branch: %w", err)
			}
			return b.Put([]byte(name), newData)
		}

		var branch models.Branch
		if err := json.Unmarshal(data, &branch); err != nil {
			return fmt.Errorf("unmarshal branch: %w", err)
		}

		if expectedCommitID != "" && branch.CommitID != expectedCommitID {
			return ErrConflict
		}

		branch.CommitID = newCommitID

		newData, err := json.Marshal(&branch)
		if err != nil {
			return fmt.Errorf("marshal branch: %w", err)
		}
		return b.Put([]byte(name), newData)
	})
}

// DeleteBranch removes a branch. Returns ErrNotFound if it doesn't exist.
func (s *BboltStore) DeleteBranch(_ context.Context, name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBranches)

		if b.Get([]byte(name)) == nil {
			return ErrNotFound
		}

		return b.Delete([]byte(name))
	})
}

// GetAllBlobHashes scans every commit manifest and returns the union of
// referenced blob hashes.
func (s *BboltStore) GetAllBlobHashes(_ context.Context) (map[string]bool, error) {
	hashes := make(map[string]bool)

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCommits).ForEach(func(_, v []byte) error {
			var commit models.Commit
			if err := json.Unmarshal(v, &commit); err != nil {
				return nil // skip malformed entries
			}
			for _, h := range commit.Files {
				hashes[h] = true
			}
			return nil
		})
	})

	return hashes, err
}
