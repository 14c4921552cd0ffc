package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kilupskalvis/fvc/internal/models"
	bolt "go.etcd.io/bbolt"
)

// Remote configuration spans three record families: the remote records
// themselves (remotes bucket, keyed by name), remote-tracking branch
// records (remote_branches bucket, keyed "remote:branch"), and access
// tokens (kv bucket, keyed by remoteTokenKey). Bucket keys iterate in
// byte order, so listings come back sorted without an extra pass.

func remoteTokenKey(remoteName string) string {
	return "remote." + remoteName + ".token"
}

func remoteBranchPrefix(remoteName string) []byte {
	return []byte(remoteName + ":")
}

// putJSON marshals a record and stores it under key.
func putJSON(b *bolt.Bucket, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return b.Put([]byte(key), data)
}

// AddRemote stores a new remote record. The name must be unused.
func (s *Store) AddRemote(name, url string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRemotes)
		if b == nil {
			return fmt.Errorf("remotes bucket not found")
		}
		if b.Get([]byte(name)) != nil {
			return fmt.Errorf("remote '%s' already exists", name)
		}
		return putJSON(b, name, &models.Remote{
			Name:      name,
			URL:       url,
			CreatedAt: time.Now(),
		})
	})
}

// GetRemote retrieves a remote by name. Returns (nil, nil) if not found.
func (s *Store) GetRemote(name string) (*models.Remote, error) {
	var r *models.Remote
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRemotes)
		if b == nil {
			return nil
		}
		data := b.Get([]byte(name))
		if data == nil {
			return nil
		}
		r = &models.Remote{}
		return json.Unmarshal(data, r)
	})
	return r, err
}

// ListRemotes returns all remote records, sorted by name.
func (s *Store) ListRemotes() ([]*models.Remote, error) {
	var remotes []*models.Remote
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRemotes)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var r models.Remote
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("unmarshal remote %s: %w", k, err)
			}
			remotes = append(remotes, &r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return remotes, nil
}

// UpdateRemoteURL replaces the URL of an existing remote.
func (s *Store) UpdateRemoteURL(name, url string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRemotes)
		if b == nil {
			return fmt.Errorf("remotes bucket not found")
		}
		data := b.Get([]byte(name))
		if data == nil {
			return fmt.Errorf("remote '%s' does not exist", name)
		}

		var r models.Remote
		if err := json.Unmarshal(data, &r); err != nil {
			return fmt.Errorf("unmarshal remote %s: %w", name, err)
		}
		r.URL = url
		return putJSON(b, name, &r)
	})
}

// RemoveRemote deletes a remote together with its remote-tracking
// branches and its stored token, all in one transaction.
func (s *Store) RemoveRemote(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRemotes)
		if b == nil {
			return fmt.Errorf("remotes bucket not found")
		}
		if b.Get([]byte(name)) == nil {
			return fmt.Errorf("remote '%s' does not exist", name)
		}
		if err := b.Delete([]byte(name)); err != nil {
			return fmt.Errorf("delete remote: %w", err)
		}

		if rb := tx.Bucket(bucketRemoteBranch); rb != nil {
			if err := deletePrefix(rb, remoteBranchPrefix(name)); err != nil {
				return fmt.Errorf("delete remote branches: %w", err)
			}
		}
		if kv := tx.Bucket(bucketKV); kv != nil {
			if err := kv.Delete([]byte(remoteTokenKey(name))); err != nil {
				return fmt.Errorf("delete remote token: %w", err)
			}
		}
		return nil
	})
}

// deletePrefix removes every key in a bucket that starts with prefix.
// The cursor stays valid across Delete, so a single pass suffices.
func deletePrefix(b *bolt.Bucket, prefix []byte) error {
	c := b.Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		if err := c.Delete(); err != nil {
			return err
		}
	}
	return nil
}

// SetRemoteToken stores the access token for a remote.
func (s *Store) SetRemoteToken(remoteName, token string) error {
	return s.SetValue(remoteTokenKey(remoteName), token)
}

// GetRemoteToken returns the stored token for a remote, "" if none.
func (s *Store) GetRemoteToken(remoteName string) (string, error) {
	return s.GetValue(remoteTokenKey(remoteName))
}

// DeleteRemoteToken discards the stored token for a remote.
func (s *Store) DeleteRemoteToken(remoteName string) error {
	return s.SetValue(remoteTokenKey(remoteName), "")
}

// SetRemoteBranch records where a branch on a remote was last seen.
func (s *Store) SetRemoteBranch(remoteName, branchName, commitID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRemoteBranch)
		if b == nil {
			return fmt.Errorf("remote branches bucket not found")
		}
		return putJSON(b, models.RemoteBranchKey(remoteName, branchName), &models.RemoteBranch{
			RemoteName: remoteName,
			BranchName: branchName,
			CommitID:   commitID,
			UpdatedAt:  time.Now(),
		})
	})
}

// GetRemoteBranch retrieves a remote-tracking branch. Returns (nil, nil)
// if the branch was never fetched or pushed.
func (s *Store) GetRemoteBranch(remoteName, branchName string) (*models.RemoteBranch, error) {
	var rb *models.RemoteBranch
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRemoteBranch)
		if b == nil {
			return nil
		}
		data := b.Get([]byte(models.RemoteBranchKey(remoteName, branchName)))
		if data == nil {
			return nil
		}
		rb = &models.RemoteBranch{}
		return json.Unmarshal(data, rb)
	})
	return rb, err
}

// ListRemoteBranches returns one remote's tracking branches, sorted by
// branch name.
func (s *Store) ListRemoteBranches(remoteName string) ([]*models.RemoteBranch, error) {
	var branches []*models.RemoteBranch
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRemoteBranch)
		if b == nil {
			return nil
		}
		prefix := remoteBranchPrefix(remoteName)
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var rb models.RemoteBranch
			if err := json.Unmarshal(v, &rb); err != nil {
				return fmt.Errorf("unmarshal remote branch %s: %w", k, err)
			}
			branches = append(branches, &rb)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return branches, nil
}

// DeleteRemoteBranch removes a remote-tracking branch record.
func (s *Store) DeleteRemoteBranch(remoteName, branchName string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRemoteBranch)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(models.RemoteBranchKey(remoteName, branchName)))
	})
}
