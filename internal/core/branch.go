package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kilupskalvis/fvc/internal/events"
	"github.com/kilupskalvis/fvc/internal/models"
	"github.com/kilupskalvis/fvc/internal/store"
)

// Event sources used on the notification bus.
const (
	srcBranch   = "branch"
	srcCommit   = "commit"
	srcMerge    = "merge"
	srcCheckout = "checkout"
	srcStage    = "stage"
	srcRemote   = "remote"
	srcPush     = "push"
	srcPull     = "pull"
)

// Characters that may not appear anywhere in a branch name.
const branchNameBadChars = "~^:?*[]\\"

// IsValidBranchName reports whether name is acceptable as a branch name.
// Rejected: the empty string, names containing any of ~ ^ : ? * [ ] \,
// names ending in "/", names containing "//", and the path names "."
// and "..".
func IsValidBranchName(name string) bool {
	if name == "" {
		return false
	}
	if strings.ContainsAny(name, branchNameBadChars) {
		return false
	}
	if strings.HasSuffix(name, "/") {
		return false
	}
	if strings.Contains(name, "//") {
		return false
	}
	if name == "." || name == ".." {
		return false
	}
	return true
}

// CreateBranch creates a new branch pointing at the current HEAD commit.
func CreateBranch(st *store.Store, bus *events.Bus, name string) error {
	head, err := st.GetHeadCommit()
	if err != nil {
		return fail(bus, srcBranch, wrapIO(err))
	}
	if head == "" {
		return fail(bus, srcBranch, fmt.Errorf("%w: cannot create branch: no commits yet", ErrNotFound))
	}
	return CreateBranchFromCommit(st, bus, name, head)
}

// CreateBranchFromCommit creates a new branch pointing at an arbitrary
// commit hash. The hash is recorded as given; callers are expected to
// pass hashes they already resolved.
func CreateBranchFromCommit(st *store.Store, bus *events.Bus, name, commitHash string) error {
	if !IsValidBranchName(name) {
		return fail(bus, srcBranch, fmt.Errorf("%w: invalid branch name '%s'", ErrValidation, name))
	}

	exists, err := st.BranchExists(name)
	if err != nil {
		return fail(bus, srcBranch, wrapIO(err))
	}
	if exists {
		return fail(bus, srcBranch, fmt.Errorf("%w: branch '%s' already exists", ErrValidation, name))
	}

	if err := st.CreateBranch(name, commitHash); err != nil {
		return fail(bus, srcBranch, wrapIO(err))
	}

	bus.Info(srcBranch, "created branch '%s'", name)
	return nil
}

// DeleteBranch removes a branch ref. The checked-out branch can never be
// deleted. The force flag is accepted for CLI compatibility but performs
// no additional checks today.
func DeleteBranch(st *store.Store, bus *events.Bus, name string, force bool) error {
	exists, err := st.BranchExists(name)
	if err != nil {
		return fail(bus, srcBranch, wrapIO(err))
	}
	if !exists {
		return fail(bus, srcBranch, fmt.Errorf("%w: branch '%s' not found", ErrNotFound, name))
	}

	current, err := st.GetCurrentBranch()
	if err != nil {
		return fail(bus, srcBranch, wrapIO(err))
	}
	if name == current {
		return fail(bus, srcBranch, fmt.Errorf("%w: cannot delete branch '%s' while it is checked out", ErrState, name))
	}

	if err := st.DeleteBranch(name); err != nil {
		return fail(bus, srcBranch, wrapIO(err))
	}

	bus.Info(srcBranch, "deleted branch '%s'", name)
	return nil
}

// RenameBranch renames a branch, retargeting HEAD when the checked-out
// branch is the one being renamed. The ref rewrite is atomic.
func RenameBranch(st *store.Store, bus *events.Bus, oldName, newName string) error {
	exists, err := st.BranchExists(oldName)
	if err != nil {
		return fail(bus, srcBranch, wrapIO(err))
	}
	if !exists {
		return fail(bus, srcBranch, fmt.Errorf("%w: branch '%s' not found", ErrNotFound, oldName))
	}

	if !IsValidBranchName(newName) {
		return fail(bus, srcBranch, fmt.Errorf("%w: invalid branch name '%s'", ErrValidation, newName))
	}

	taken, err := st.BranchExists(newName)
	if err != nil {
		return fail(bus, srcBranch, wrapIO(err))
	}
	if taken {
		return fail(bus, srcBranch, fmt.Errorf("%w: branch '%s' already exists", ErrValidation, newName))
	}

	if err := st.RenameBranch(oldName, newName); err != nil {
		return fail(bus, srcBranch, wrapIO(err))
	}

	bus.Info(srcBranch, "renamed branch '%s' to '%s'", oldName, newName)
	return nil
}

// SwitchBranch repoints HEAD at another branch without touching the
// working tree. Checkout layers tree materialization on top of this.
func SwitchBranch(st *store.Store, bus *events.Bus, name string) error {
	exists, err := st.BranchExists(name)
	if err != nil {
		return fail(bus, srcBranch, wrapIO(err))
	}
	if !exists {
		return fail(bus, srcBranch, fmt.Errorf("%w: branch '%s' not found", ErrNotFound, name))
	}

	if err := st.SetCurrentBranch(name); err != nil {
		return fail(bus, srcBranch, wrapIO(err))
	}

	bus.Info(srcBranch, "switched to branch '%s'", name)
	return nil
}

// ListBranches returns all branches sorted by name, each annotated with
// whether it is the checked-out branch, plus the current branch name.
func ListBranches(st *store.Store) ([]*models.Branch, string, error) {
	branches, err := st.ListBranches()
	if err != nil {
		return nil, "", wrapIO(err)
	}

	current, err := st.GetCurrentBranch()
	if err != nil {
		return nil, "", wrapIO(err)
	}

	for _, b := range branches {
		b.IsCurrent = b.Name == current
	}
	return branches, current, nil
}

// GetBranchHead returns the head commit hash of a branch. A branch that
// does not exist yields "" without an error, indistinguishable from an
// unborn branch; use BranchExists to tell the two apart.
func GetBranchHead(st *store.Store, name string) (string, error) {
	head, _, err := st.GetBranchHead(name)
	if err != nil {
		return "", wrapIO(err)
	}
	return head, nil
}

// BranchExists reports whether a branch ref exists.
func BranchExists(st *store.Store, name string) (bool, error) {
	exists, err := st.BranchExists(name)
	if err != nil {
		return false, wrapIO(err)
	}
	return exists, nil
}

// GetCurrentBranch returns the branch HEAD points at.
func GetCurrentBranch(st *store.Store) (string, error) {
	current, err := st.GetCurrentBranch()
	if err != nil {
		return "", wrapIO(err)
	}
	return current, nil
}

// ResolveRef resolves a user-supplied revision to a commit hash. It
// accepts "HEAD", "HEAD~N", a branch name, a full commit hash, or an
// unambiguous short hash prefix.
func ResolveRef(st *store.Store, ref string) (string, error) {
	if ref == "" || ref == "HEAD" {
		head, err := st.GetHeadCommit()
		if err != nil {
			return "", wrapIO(err)
		}
		if head == "" {
			return "", fmt.Errorf("%w: no commits yet", ErrNotFound)
		}
		return head, nil
	}

	// HEAD~N walks N first parents back from HEAD.
	if rest, ok := strings.CutPrefix(ref, "HEAD~"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 {
			return "", fmt.Errorf("%w: invalid revision '%s'", ErrValidation, ref)
		}
		current, err := ResolveRef(st, "HEAD")
		if err != nil {
			return "", err
		}
		for i := 0; i < n; i++ {
			parent, err := st.GetParentCommit(current)
			if err != nil {
				return "", wrapIO(err)
			}
			if parent == "" {
				return "", fmt.Errorf("%w: revision '%s' walks past the root commit", ErrNotFound, ref)
			}
			current = parent
		}
		return current, nil
	}

	head, exists, err := st.GetBranchHead(ref)
	if err != nil {
		return "", wrapIO(err)
	}
	if exists {
		if head == "" {
			return "", fmt.Errorf("%w: branch '%s' has no commits yet", ErrNotFound, ref)
		}
		return head, nil
	}

	if commit, err := st.GetCommit(ref); err == nil && commit != nil {
		return commit.ID, nil
	}

	commit, err := st.GetCommitByShortID(ref)
	if err != nil {
		if errors.Is(err, store.ErrAmbiguousCommit) {
			return "", fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return "", wrapIO(err)
	}
	if commit == nil {
		return "", fmt.Errorf("%w: '%s' is not a branch or commit", ErrNotFound, ref)
	}
	return commit.ID, nil
}
