package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/kilupskalvis/fvc/internal/models"
	bolt "go.etcd.io/bbolt"
)

// stashKey orders entries by insertion sequence; big-endian so bbolt's
// byte ordering matches numeric ordering.
func stashKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

// PushStash appends a stash entry and assigns its sequence number.
func (s *Store) PushStash(entry *models.StashEntry) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketStash)
		if err != nil {
			return fmt.Errorf("create stash bucket: %w", err)
		}

		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("stash sequence: %w", err)
		}
		entry.Seq = seq

		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal stash entry: %w", err)
		}
		return b.Put(stashKey(seq), data)
	})
}

// ListStash returns all stash entries, newest first.
func (s *Store) ListStash() ([]*models.StashEntry, error) {
	var entries []*models.StashEntry

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketStash)
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var entry models.StashEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("unmarshal stash entry: %w", err)
			}
			entries = append(entries, &entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Seq > entries[j].Seq
	})
	return entries, nil
}

// LatestStash returns the most recent stash entry, or nil when the stash
// is empty.
func (s *Store) LatestStash() (*models.StashEntry, error) {
	var entry *models.StashEntry

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketStash)
		if b == nil {
			return nil
		}
		_, v := b.Cursor().Last()
		if v == nil {
			return nil
		}
		entry = &models.StashEntry{}
		return json.Unmarshal(v, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// GetStash retrieves a stash entry by ID. Returns nil when not found.
func (s *Store) GetStash(id string) (*models.StashEntry, error) {
	entries, err := s.ListStash()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, nil
}

// DropStash removes a stash entry by ID.
func (s *Store) DropStash(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketStash)
		if b == nil {
			return fmt.Errorf("stash entry '%s' not found", id)
		}

		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var entry models.StashEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				continue
			}
			if entry.ID == id {
				return b.Delete(k)
			}
		}
		return fmt.Errorf("stash entry '%s' not found", id)
	})
}
