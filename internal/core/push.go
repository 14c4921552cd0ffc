package core

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kilupskalvis/fvc/internal/events"
	"github.com/kilupskalvis/fvc/internal/remote"
	"github.com/kilupskalvis/fvc/internal/store"
)

// PushOptions configures a push operation.
type PushOptions struct {
	RemoteName string
	Branch     string
	Force      bool
}

// PushResult contains the outcome of a push operation.
type PushResult struct {
	CommitsPushed int
	BlobsPushed   int
	UpToDate      bool
	BranchCreated bool
}

// PushProgress is called during push to report progress.
type PushProgress func(phase string, current, total int)

// Push transfers local commits and their blobs to a remote server, then
// moves the remote branch pointer with a compare-and-swap. Blobs travel
// separately from commit bundles so the server only receives content it
// is missing.
func Push(ctx context.Context, st *store.Store, client remote.Client, bus *events.Bus, opts PushOptions, progress PushProgress) (*PushResult, error) {
	if progress == nil {
		progress = func(string, int, int) {}
	}

	exists, err := st.BranchExists(opts.Branch)
	if err != nil {
		return nil, fail(bus, srcPush, wrapIO(err))
	}
	if !exists {
		return nil, fail(bus, srcPush, fmt.Errorf("%w: branch '%s' not found", ErrNotFound, opts.Branch))
	}

	localTip, _, err := st.GetBranchHead(opts.Branch)
	if err != nil {
		return nil, fail(bus, srcPush, wrapIO(err))
	}
	if localTip == "" {
		return nil, fail(bus, srcPush, fmt.Errorf("%w: branch '%s' has no commits to push", ErrState, opts.Branch))
	}

	commitIDs, err := collectCommitChain(st, localTip)
	if err != nil {
		return nil, fail(bus, srcPush, wrapIO(err))
	}

	progress("negotiating", 0, 0)
	negotiation, err := client.NegotiatePush(ctx, opts.Branch, commitIDs)
	if err != nil {
		return nil, fail(bus, srcPush, err)
	}

	if len(negotiation.MissingCommits) == 0 && negotiation.RemoteTip == localTip {
		bus.Info(srcPush, "Everything up-to-date")
		return &PushResult{UpToDate: true}, nil
	}

	missingSet := make(map[string]bool, len(negotiation.MissingCommits))
	for _, id := range negotiation.MissingCommits {
		missingSet[id] = true
	}

	// Gather the blob hashes referenced by the commits the server lacks.
	blobHashes := make(map[string]bool)
	var orderedMissing []string
	for _, id := range commitIDs {
		if !missingSet[id] {
			continue
		}
		orderedMissing = append(orderedMissing, id)

		files, err := st.GetCommitFiles(id)
		if err != nil {
			return nil, fail(bus, srcPush, wrapIO(err))
		}
		for _, hash := range files {
			blobHashes[hash] = true
		}
	}

	var blobsPushed int
	if len(blobHashes) > 0 {
		hashes := make([]string, 0, len(blobHashes))
		for h := range blobHashes {
			hashes = append(hashes, h)
		}

		progress("checking blobs", 0, len(hashes))
		blobCheck, err := client.CheckBlobs(ctx, hashes)
		if err != nil {
			return nil, fail(bus, srcPush, err)
		}

		if len(blobCheck.Missing) > 0 {
			blobsPushed, err = uploadMissingBlobs(ctx, st, client, blobCheck.Missing, progress)
			if err != nil {
				return nil, fail(bus, srcPush, err)
			}
		}
	}

	// Reverse to topological order: parents before children.
	for i, j := 0, len(orderedMissing)-1; i < j; i, j = i+1, j-1 {
		orderedMissing[i], orderedMissing[j] = orderedMissing[j], orderedMissing[i]
	}

	// All referenced blobs are on the server now, so bundles go up bare.
	progress("uploading commits", 0, len(orderedMissing))
	for i, commitID := range orderedMissing {
		progress("uploading commits", i+1, len(orderedMissing))

		bundle, err := st.BuildCommitBundle(commitID, blobHashes)
		if err != nil {
			return nil, fail(bus, srcPush, wrapIO(err))
		}

		if err := client.UploadCommitBundle(ctx, bundle); err != nil {
			return nil, fail(bus, srcPush, err)
		}
	}

	expectedTip := negotiation.RemoteTip
	if negotiation.RemoteTip != "" && !opts.Force {
		remoteIsAncestor := false
		for _, id := range commitIDs {
			if id == negotiation.RemoteTip {
				remoteIsAncestor = true
				break
			}
		}
		if !remoteIsAncestor {
			return nil, fail(bus, srcPush, fmt.Errorf("%w: push rejected: remote has diverged (tip %s not in local history); pull first or use --force", ErrState, shortHash(negotiation.RemoteTip)))
		}
	}

	progress("updating branch", 0, 0)
	branchCreated := negotiation.RemoteTip == ""
	if err := client.UpdateBranch(ctx, opts.Branch, localTip, expectedTip); err != nil {
		return nil, fail(bus, srcPush, err)
	}

	if err := st.SetRemoteBranch(opts.RemoteName, opts.Branch, localTip); err != nil {
		return nil, fail(bus, srcPush, wrapIO(err))
	}

	bus.Info(srcPush, "pushed %d commit(s) and %d blob(s) to '%s'", len(orderedMissing), blobsPushed, opts.RemoteName)
	return &PushResult{
		CommitsPushed: len(orderedMissing),
		BlobsPushed:   blobsPushed,
		BranchCreated: branchCreated,
	}, nil
}

// collectCommitChain walks first parents from tip to root and returns
// the commit IDs tip-first. The walk stops at commits not present
// locally.
func collectCommitChain(st *store.Store, tipID string) ([]string, error) {
	var chain []string
	current := tipID

	for current != "" {
		commit, err := st.GetCommit(current)
		if err != nil {
			return nil, fmt.Errorf("get commit %s: %w", current, err)
		}
		if commit == nil {
			break
		}
		chain = append(chain, current)
		current = commit.ParentID
	}

	return chain, nil
}

// uploadMissingBlobs uploads encoded blobs in parallel with bounded
// concurrency.
func uploadMissingBlobs(ctx context.Context, st *store.Store, client remote.Client, missingHashes []string, progress PushProgress) (int, error) {
	const maxWorkers = 4

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for i, hash := range missingHashes {
		progress("uploading blobs", i+1, len(missingHashes))
		h := hash
		g.Go(func() error {
			data, found, err := st.GetBlobEncoded(h)
			if err != nil {
				return fmt.Errorf("get local blob %s: %w", h, err)
			}
			if !found {
				return fmt.Errorf("blob %s missing from local store", h)
			}

			if err := client.UploadBlob(ctx, h, data); err != nil {
				return fmt.Errorf("upload blob %s: %w", h, err)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	return len(missingHashes), nil
}

// DeleteRemoteBranch deletes a branch on the remote server and drops the
// local remote-tracking ref.
func DeleteRemoteBranch(ctx context.Context, st *store.Store, client remote.Client, remoteName, branch string) error {
	if err := client.DeleteBranch(ctx, branch); err != nil {
		return fmt.Errorf("delete remote branch: %w", err)
	}

	return wrapIO(st.DeleteRemoteBranch(remoteName, branch))
}
