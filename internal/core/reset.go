package core

import (
	"fmt"

	"github.com/kilupskalvis/fvc/internal/events"
	"github.com/kilupskalvis/fvc/internal/store"
	"github.com/kilupskalvis/fvc/internal/workspace"
)

const srcReset = "reset"

// ResetMode selects how much state a reset rewinds.
type ResetMode int

const (
	// ResetSoft moves the branch pointer only.
	ResetSoft ResetMode = iota
	// ResetMixed moves the branch pointer and clears the staging area.
	ResetMixed
	// ResetHard additionally rewrites the working tree to the target
	// commit.
	ResetHard
)

func (m ResetMode) String() string {
	switch m {
	case ResetSoft:
		return "soft"
	case ResetHard:
		return "hard"
	default:
		return "mixed"
	}
}

// ResetResult describes what a reset did.
type ResetResult struct {
	Branch         string
	PreviousCommit string
	TargetCommit   string
	Mode           ResetMode
	Warnings       []string
}

// Reset moves the current branch to the given revision. The reflog-less
// history model makes this destructive for commits after the target, so
// callers should confirm before a hard reset.
func Reset(st *store.Store, ws workspace.Workspace, bus *events.Bus, ref string, mode ResetMode) (*ResetResult, error) {
	inProgress, err := IsMergeInProgress(st)
	if err != nil {
		return nil, fail(bus, srcReset, err)
	}
	if inProgress {
		return nil, fail(bus, srcReset, fmt.Errorf("%w: cannot reset during a merge; abort it first", ErrState))
	}

	current, err := st.GetCurrentBranch()
	if err != nil {
		return nil, fail(bus, srcReset, wrapIO(err))
	}

	previous, err := st.GetHeadCommit()
	if err != nil {
		return nil, fail(bus, srcReset, wrapIO(err))
	}
	if previous == "" {
		return nil, fail(bus, srcReset, fmt.Errorf("%w: branch '%s' has no commits to reset", ErrState, current))
	}

	target, err := ResolveRef(st, ref)
	if err != nil {
		return nil, fail(bus, srcReset, err)
	}

	result := &ResetResult{
		Branch:         current,
		PreviousCommit: previous,
		TargetCommit:   target,
		Mode:           mode,
	}

	if err := st.UpdateBranch(current, target); err != nil {
		return nil, fail(bus, srcReset, wrapIO(err))
	}

	if mode == ResetMixed || mode == ResetHard {
		if err := st.ClearStagedFiles(); err != nil {
			return nil, fail(bus, srcReset, wrapIO(err))
		}
	}

	if mode == ResetHard {
		warnings, err := materializeCommit(st, ws, previous, target)
		if err != nil {
			return nil, fail(bus, srcReset, err)
		}
		result.Warnings = warnings
	}

	bus.Info(srcReset, "reset branch '%s' to %s (%s)", current, shortHash(target), mode)
	return result, nil
}
