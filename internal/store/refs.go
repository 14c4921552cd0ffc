package store

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/kilupskalvis/fvc/internal/models"
	bolt "go.etcd.io/bbolt"
)

// Refs are persisted in the layout a Git user would expect: one record per
// branch keyed "refs/heads/<name>" holding the raw commit hash as text
// (empty for an unborn branch), plus a "HEAD" record holding
// "ref: refs/heads/<branch>".
const (
	headKey         = "HEAD"
	headRefPrefix   = "ref: "
	branchRefPrefix = "refs/heads/"

	// DefaultBranch is auto-created when a repository has no branches.
	DefaultBranch = "main"
)

func branchRefKey(name string) []byte {
	return []byte(branchRefPrefix + name)
}

// refExists reports whether a key is present in the refs bucket. A cursor
// seek is used so that branches with an empty head value are still seen.
func refExists(b *bolt.Bucket, key []byte) bool {
	k, _ := b.Cursor().Seek(key)
	return k != nil && bytes.Equal(k, key)
}

// seedDefaultBranch creates the default branch and points HEAD at it when
// the refs bucket holds no branches at all.
func seedDefaultBranch(tx *bolt.Tx) error {
	b := tx.Bucket(bucketRefs)
	if b == nil {
		return fmt.Errorf("refs bucket not found")
	}

	c := b.Cursor()
	prefix := []byte(branchRefPrefix)
	if k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix) {
		return nil // at least one branch exists
	}

	if err := b.Put(branchRefKey(DefaultBranch), []byte("")); err != nil {
		return fmt.Errorf("seed default branch: %w", err)
	}
	return b.Put([]byte(headKey), []byte(headRefPrefix+branchRefPrefix+DefaultBranch))
}

// CreateBranch stores a new branch ref pointing at the given commit ID.
// commitID may be empty for an unborn branch.
func (s *Store) CreateBranch(name, commitID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRefs)
		if b == nil {
			return fmt.Errorf("refs bucket not found")
		}
		return b.Put(branchRefKey(name), []byte(commitID))
	})
}

// GetBranchHead returns the commit hash a branch points at, plus whether
// the branch exists. An unborn branch yields ("", true, nil).
func (s *Store) GetBranchHead(name string) (string, bool, error) {
	var head string
	var exists bool

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRefs)
		if b == nil {
			return nil
		}
		key := branchRefKey(name)
		if !refExists(b, key) {
			return nil
		}
		exists = true
		head = string(b.Get(key))
		return nil
	})

	if err != nil {
		return "", false, err
	}
	return head, exists, nil
}

// BranchExists checks if a branch with the given name exists.
func (s *Store) BranchExists(name string) (bool, error) {
	_, exists, err := s.GetBranchHead(name)
	return exists, err
}

// UpdateBranch updates an existing branch's commit ID.
func (s *Store) UpdateBranch(name, commitID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRefs)
		if b == nil {
			return fmt.Errorf("refs bucket not found")
		}
		key := branchRefKey(name)
		if !refExists(b, key) {
			return fmt.Errorf("branch not found: %s", name)
		}
		return b.Put(key, []byte(commitID))
	})
}

// DeleteBranch removes a branch ref by name.
func (s *Store) DeleteBranch(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRefs)
		if b == nil {
			return fmt.Errorf("refs bucket not found")
		}
		key := branchRefKey(name)
		if !refExists(b, key) {
			return fmt.Errorf("branch not found: %s", name)
		}
		return b.Delete(key)
	})
}

// ListBranches returns all branches sorted by name. An empty repository
// gains its default branch on this access.
func (s *Store) ListBranches() ([]*models.Branch, error) {
	if err := s.ensureDefaultBranch(); err != nil {
		return nil, err
	}

	var branches []*models.Branch
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRefs)
		if b == nil {
			return nil
		}
		prefix := []byte(branchRefPrefix)
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			branches = append(branches, &models.Branch{
				Name:     string(k[len(branchRefPrefix):]),
				CommitID: string(v),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(branches, func(i, j int) bool {
		return branches[i].Name < branches[j].Name
	})
	return branches, nil
}

// GetCurrentBranch returns the branch HEAD points at. An empty repository
// gains its default branch on this access.
func (s *Store) GetCurrentBranch() (string, error) {
	if err := s.ensureDefaultBranch(); err != nil {
		return "", err
	}

	var raw string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRefs)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(headKey)); v != nil {
			raw = string(v)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	name, ok := parseHeadRecord(raw)
	if !ok {
		return "", fmt.Errorf("malformed HEAD record: %q", raw)
	}
	return name, nil
}

// SetCurrentBranch points the HEAD record at the given branch.
func (s *Store) SetCurrentBranch(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRefs)
		if b == nil {
			return fmt.Errorf("refs bucket not found")
		}
		return b.Put([]byte(headKey), []byte(headRefPrefix+branchRefPrefix+name))
	})
}

// GetHeadCommit resolves HEAD to a commit hash. Returns "" on an unborn
// branch.
func (s *Store) GetHeadCommit() (string, error) {
	current, err := s.GetCurrentBranch()
	if err != nil {
		return "", err
	}
	head, _, err := s.GetBranchHead(current)
	return head, err
}

// RenameBranch renames a branch in place, preserving its head. If the
// branch is current, HEAD is retargeted in the same transaction.
func (s *Store) RenameBranch(oldName, newName string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRefs)
		if b == nil {
			return fmt.Errorf("refs bucket not found")
		}

		oldKey := branchRefKey(oldName)
		if !refExists(b, oldKey) {
			return fmt.Errorf("branch not found: %s", oldName)
		}
		newKey := branchRefKey(newName)
		if refExists(b, newKey) {
			return fmt.Errorf("branch already exists: %s", newName)
		}

		head := append([]byte(nil), b.Get(oldKey)...)
		if err := b.Put(newKey, head); err != nil {
			return fmt.Errorf("write renamed branch: %w", err)
		}
		if err := b.Delete(oldKey); err != nil {
			return fmt.Errorf("delete old branch: %w", err)
		}

		if v := b.Get([]byte(headKey)); v != nil {
			if name, ok := parseHeadRecord(string(v)); ok && name == oldName {
				return b.Put([]byte(headKey), []byte(headRefPrefix+branchRefPrefix+newName))
			}
		}
		return nil
	})
}

// ensureDefaultBranch seeds the default branch if no branches exist yet.
// Reads go through a cheap View first so the common case takes no write
// transaction.
func (s *Store) ensureDefaultBranch() error {
	var empty bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRefs)
		if b == nil {
			return fmt.Errorf("refs bucket not found")
		}
		prefix := []byte(branchRefPrefix)
		k, _ := b.Cursor().Seek(prefix)
		empty = k == nil || !bytes.HasPrefix(k, prefix)
		return nil
	})
	if err != nil {
		return err
	}
	if !empty {
		return nil
	}
	return s.db.Update(seedDefaultBranch)
}

// parseHeadRecord extracts the branch name from a "ref: refs/heads/x"
// record. Trailing whitespace is tolerated.
func parseHeadRecord(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, headRefPrefix+branchRefPrefix) {
		return "", false
	}
	name := strings.TrimPrefix(raw, headRefPrefix+branchRefPrefix)
	if name == "" {
		return "", false
	}
	return name, true
}
