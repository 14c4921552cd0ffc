// Package core contains the version control logic for FVC: branching,
// staging, commits, merges, and remote synchronization.
package core

import (
	"errors"
	"fmt"

	"github.com/kilupskalvis/fvc/internal/events"
)

// Operation failures are classified by sentinel so callers can react by
// category with errors.Is instead of matching message text.
var (
	// ErrValidation marks rejected input: malformed branch names,
	// duplicate names, empty commit messages.
	ErrValidation = errors.New("invalid argument")

	// ErrNotFound marks references to things that do not exist: unknown
	// branches, commits, or paths.
	ErrNotFound = errors.New("not found")

	// ErrState marks operations that are legal in general but not right
	// now: merging while a merge is in progress, deleting the checked-out
	// branch, merging with staged changes.
	ErrState = errors.New("invalid state")

	// ErrConflict marks a merge that stopped on conflicting file content.
	// It is non-fatal: conflict markers are in the working tree and the
	// merge stays in progress until resolved or aborted.
	ErrConflict = errors.New("conflict")

	// ErrIO marks failures of the underlying database or working tree.
	ErrIO = errors.New("io failure")
)

// wrapIO tags a storage or filesystem error with ErrIO while keeping the
// original error inspectable.
func wrapIO(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrIO, err)
}

// fail pushes an operation failure onto the bus and returns the error
// unchanged, so call sites stay one line.
func fail(bus *events.Bus, source string, err error) error {
	bus.Error(source, "%v", err)
	return err
}
