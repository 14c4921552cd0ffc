package core

import (
	"fmt"

	"github.com/kilupskalvis/fvc/internal/models"
	"github.com/kilupskalvis/fvc/internal/store"
)

// Log returns the commits reachable from HEAD by first parents, newest
// first. limit <= 0 returns the whole chain.
func Log(st *store.Store, limit int) ([]*models.Commit, error) {
	head, err := st.GetHeadCommit()
	if err != nil {
		return nil, wrapIO(err)
	}
	if head == "" {
		return nil, nil
	}

	commits, err := st.GetCommitLog(head, limit)
	if err != nil {
		return nil, wrapIO(err)
	}
	return commits, nil
}

// ShowCommit resolves a revision and returns the commit it names.
func ShowCommit(st *store.Store, ref string) (*models.Commit, error) {
	commitID, err := ResolveRef(st, ref)
	if err != nil {
		return nil, err
	}

	commit, err := st.GetCommit(commitID)
	if err != nil {
		return nil, wrapIO(err)
	}
	if commit == nil {
		return nil, fmt.Errorf("%w: commit %s", ErrNotFound, commitID)
	}
	return commit, nil
}
