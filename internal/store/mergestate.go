package store

import (
	"encoding/json"
	"fmt"

	"github.com/kilupskalvis/fvc/internal/models"
)

// mergeStateKey is the kv key holding the persisted merge state record.
const mergeStateKey = "MERGE_STATE"

// GetMergeState returns the persisted merge state. A repository with no
// record yields a zero-value (not in progress) state.
func (s *Store) GetMergeState() (*models.MergeState, error) {
	raw, err := s.GetValue(mergeStateKey)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return &models.MergeState{}, nil
	}

	state := &models.MergeState{}
	if err := json.Unmarshal([]byte(raw), state); err != nil {
		return nil, fmt.Errorf("unmarshal merge state: %w", err)
	}
	return state, nil
}

// SetMergeState persists the merge state record, replacing any previous one.
func (s *Store) SetMergeState(state *models.MergeState) error {
	if state == nil {
		return fmt.Errorf("nil merge state")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal merge state: %w", err)
	}
	return s.SetValue(mergeStateKey, string(data))
}

// ClearMergeState removes the merge state record.
func (s *Store) ClearMergeState() error {
	return s.SetValue(mergeStateKey, "")
}
