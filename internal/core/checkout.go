package core

import (
	"fmt"
	"sort"

	"github.com/kilupskalvis/fvc/internal/events"
	"github.com/kilupskalvis/fvc/internal/store"
	"github.com/kilupskalvis/fvc/internal/workspace"
)

// CheckoutOptions configures checkout behavior.
type CheckoutOptions struct {
	Force        bool // proceed even with uncommitted changes
	CreateBranch bool // create the branch at the current HEAD first
}

// CheckoutResult describes what a checkout did.
type CheckoutResult struct {
	PreviousCommit string
	TargetCommit   string
	Branch         string
	Warnings       []string
}

// Checkout switches to a branch and rewrites the working tree to match
// its head commit. HEAD is always symbolic, so the target must be a
// branch name; use CheckoutFile to restore individual paths from
// arbitrary commits.
func Checkout(st *store.Store, ws workspace.Workspace, bus *events.Bus, name string, opts CheckoutOptions) (*CheckoutResult, error) {
	if !opts.Force {
		inProgress, err := IsMergeInProgress(st)
		if err != nil {
			return nil, fail(bus, srcCheckout, err)
		}
		if inProgress {
			return nil, fail(bus, srcCheckout, fmt.Errorf("%w: cannot switch branches during a merge; commit or abort it first", ErrState))
		}

		report, err := Status(st, ws)
		if err != nil {
			return nil, fail(bus, srcCheckout, err)
		}
		if report.HasUncommittedChanges() {
			return nil, fail(bus, srcCheckout, fmt.Errorf("%w: you have uncommitted changes; commit them or use --force to discard", ErrState))
		}
	}

	if opts.CreateBranch {
		if err := CreateBranch(st, bus, name); err != nil {
			return nil, err
		}
	}

	exists, err := st.BranchExists(name)
	if err != nil {
		return nil, fail(bus, srcCheckout, wrapIO(err))
	}
	if !exists {
		return nil, fail(bus, srcCheckout, fmt.Errorf("%w: branch '%s' not found", ErrNotFound, name))
	}

	previous, err := st.GetHeadCommit()
	if err != nil {
		return nil, fail(bus, srcCheckout, wrapIO(err))
	}

	target, _, err := st.GetBranchHead(name)
	if err != nil {
		return nil, fail(bus, srcCheckout, wrapIO(err))
	}

	warnings, err := materializeCommit(st, ws, previous, target)
	if err != nil {
		return nil, fail(bus, srcCheckout, err)
	}

	if err := st.SetCurrentBranch(name); err != nil {
		return nil, fail(bus, srcCheckout, wrapIO(err))
	}

	bus.Info(srcCheckout, "switched to branch '%s'", name)
	return &CheckoutResult{
		PreviousCommit: previous,
		TargetCommit:   target,
		Branch:         name,
		Warnings:       warnings,
	}, nil
}

// CheckoutFile restores a single path in the working tree to its content
// at the given revision (HEAD when ref is empty).
func CheckoutFile(st *store.Store, ws workspace.Workspace, bus *events.Bus, ref, path string) error {
	commitID, err := ResolveRef(st, ref)
	if err != nil {
		return fail(bus, srcCheckout, err)
	}

	files, err := st.GetCommitFiles(commitID)
	if err != nil {
		return fail(bus, srcCheckout, wrapIO(err))
	}
	if _, tracked := files[path]; !tracked {
		return fail(bus, srcCheckout, fmt.Errorf("%w: pathspec '%s' did not match any file in %s", ErrNotFound, path, shortHash(commitID)))
	}

	content, err := st.GetFileContent(commitID, path)
	if err != nil {
		return fail(bus, srcCheckout, wrapIO(err))
	}
	if err := ws.WriteFile(path, content); err != nil {
		return fail(bus, srcCheckout, wrapIO(err))
	}

	bus.Info(srcCheckout, "restored '%s' from %s", path, shortHash(commitID))
	return nil
}

// materializeCommit rewrites the working tree from one commit's file set
// to another's: every file of the target commit is written out, and
// files tracked only by the source commit are removed. Either commit ID
// may be "" (an unborn branch), which behaves as an empty file set.
// Per-file failures are collected as warnings rather than aborting
// partway through.
func materializeCommit(st *store.Store, ws workspace.Workspace, fromID, toID string) ([]string, error) {
	oldFiles, err := st.GetCommitFiles(fromID)
	if err != nil {
		return nil, wrapIO(err)
	}
	newFiles, err := st.GetCommitFiles(toID)
	if err != nil {
		return nil, wrapIO(err)
	}

	var warnings []string

	paths := make([]string, 0, len(newFiles))
	for path := range newFiles {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		content, err := st.GetFileContent(toID, path)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("cannot restore %s: %v", path, err))
			continue
		}
		if err := ws.WriteFile(path, content); err != nil {
			warnings = append(warnings, fmt.Sprintf("cannot write %s: %v", path, err))
		}
	}

	removals := make([]string, 0)
	for path := range oldFiles {
		if _, keep := newFiles[path]; !keep {
			removals = append(removals, path)
		}
	}
	sort.Strings(removals)

	for _, path := range removals {
		if err := ws.RemoveFile(path); err != nil {
			warnings = append(warnings, fmt.Sprintf("cannot remove %s: %v", path, err))
		}
	}

	return warnings, nil
}
