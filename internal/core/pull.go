package core

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kilupskalvis/fvc/internal/events"
	"github.com/kilupskalvis/fvc/internal/remote"
	"github.com/kilupskalvis/fvc/internal/store"
	"github.com/kilupskalvis/fvc/internal/workspace"
)

// FetchOptions configures a fetch operation.
type FetchOptions struct {
	RemoteName string
	Branch     string
}

// FetchResult contains the outcome of a fetch operation.
type FetchResult struct {
	CommitsFetched int
	BlobsFetched   int
	UpToDate       bool
	RemoteTip      string
	LocalTip       string
}

// PullOptions configures a pull operation.
type PullOptions struct {
	RemoteName string
	Branch     string
}

// PullResult contains the outcome of a pull operation.
type PullResult struct {
	FetchResult
	FastForward bool
	Diverged    bool
}

// FetchProgress is called during fetch to report progress.
type FetchProgress func(phase string, current, total int)

// Fetch downloads commits and blobs from a remote without touching local
// branches; only the remote-tracking ref moves. Blobs land before any
// commit is inserted, so an interrupted fetch never leaves a commit
// whose content cannot be read back.
func Fetch(ctx context.Context, st *store.Store, client remote.Client, bus *events.Bus, opts FetchOptions, progress FetchProgress) (*FetchResult, error) {
	if progress == nil {
		progress = func(string, int, int) {}
	}

	localTip := ""
	rb, err := st.GetRemoteBranch(opts.RemoteName, opts.Branch)
	if err != nil {
		return nil, fail(bus, srcPull, wrapIO(err))
	}
	if rb != nil {
		localTip = rb.CommitID
	}

	progress("negotiating", 0, 0)
	negotiation, err := client.NegotiatePull(ctx, opts.Branch, localTip)
	if err != nil {
		return nil, fail(bus, srcPull, err)
	}

	if len(negotiation.MissingCommits) == 0 {
		return &FetchResult{
			UpToDate:  true,
			RemoteTip: negotiation.RemoteTip,
			LocalTip:  localTip,
		}, nil
	}

	// Phase 1: download all commit bundles into memory. Nothing is
	// persisted yet, so a failed download leaves the store untouched.
	progress("downloading commits", 0, len(negotiation.MissingCommits))
	bundles := make([]*remote.CommitBundle, 0, len(negotiation.MissingCommits))
	var allBlobHashes []string
	for i, commitID := range negotiation.MissingCommits {
		progress("downloading commits", i+1, len(negotiation.MissingCommits))

		bundle, err := client.DownloadCommitBundle(ctx, commitID)
		if err != nil {
			return nil, fail(bus, srcPull, fmt.Errorf("download commit %s: %w", commitID, err))
		}
		bundles = append(bundles, bundle)

		if bundle.Commit != nil {
			for _, hash := range bundle.Commit.Files {
				allBlobHashes = append(allBlobHashes, hash)
			}
		}
	}

	// Phase 2: download missing blobs before inserting any commit. Blobs
	// are content-addressed, so anything stored by an attempt that later
	// fails is simply reused next time.
	var blobsFetched int
	if len(allBlobHashes) > 0 {
		missingBlobs, err := st.FilterMissingBlobs(allBlobHashes)
		if err != nil {
			return nil, fail(bus, srcPull, wrapIO(err))
		}

		if len(missingBlobs) > 0 {
			progress("downloading blobs", 0, len(missingBlobs))
			blobsFetched, err = downloadMissingBlobs(ctx, st, client, missingBlobs, progress)
			if err != nil {
				return nil, fail(bus, srcPull, err)
			}
		}
	}

	// Phase 3: insert commit bundles, each one atomically.
	progress("storing commits", 0, len(bundles))
	for i, bundle := range bundles {
		progress("storing commits", i+1, len(bundles))
		if err := st.InsertCommitBundle(bundle); err != nil {
			return nil, fail(bus, srcPull, wrapIO(err))
		}
	}

	if err := st.SetRemoteBranch(opts.RemoteName, opts.Branch, negotiation.RemoteTip); err != nil {
		return nil, fail(bus, srcPull, wrapIO(err))
	}

	bus.Info(srcPull, "fetched %d commit(s) and %d blob(s) from '%s'", len(negotiation.MissingCommits), blobsFetched, opts.RemoteName)
	return &FetchResult{
		CommitsFetched: len(negotiation.MissingCommits),
		BlobsFetched:   blobsFetched,
		RemoteTip:      negotiation.RemoteTip,
		LocalTip:       localTip,
	}, nil
}

// Pull fetches from a remote and fast-forwards the local branch when
// history allows it. Diverged histories are reported, never merged; the
// caller decides whether to run a merge against the fetched tip.
func Pull(ctx context.Context, st *store.Store, ws workspace.Workspace, client remote.Client, bus *events.Bus, opts PullOptions, progress FetchProgress) (*PullResult, error) {
	stagedCount, err := st.GetStagedFilesCount()
	if err != nil {
		return nil, fail(bus, srcPull, wrapIO(err))
	}
	if stagedCount > 0 {
		return nil, fail(bus, srcPull, fmt.Errorf("%w: cannot pull with staged changes; commit or reset them first", ErrState))
	}

	inProgress, err := IsMergeInProgress(st)
	if err != nil {
		return nil, fail(bus, srcPull, err)
	}
	if inProgress {
		return nil, fail(bus, srcPull, fmt.Errorf("%w: cannot pull during a merge; commit or abort it first", ErrState))
	}

	fetchResult, err := Fetch(ctx, st, client, bus, FetchOptions(opts), progress)
	if err != nil {
		return nil, err
	}

	result := &PullResult{FetchResult: *fetchResult}
	if fetchResult.UpToDate {
		return result, nil
	}

	current, err := st.GetCurrentBranch()
	if err != nil {
		return nil, fail(bus, srcPull, wrapIO(err))
	}

	exists, err := st.BranchExists(opts.Branch)
	if err != nil {
		return nil, fail(bus, srcPull, wrapIO(err))
	}
	if !exists {
		// No local counterpart yet: start it at the remote tip.
		if err := st.CreateBranch(opts.Branch, fetchResult.RemoteTip); err != nil {
			return nil, fail(bus, srcPull, wrapIO(err))
		}
		result.FastForward = true
		bus.Info(srcPull, "created branch '%s' at %s", opts.Branch, shortHash(fetchResult.RemoteTip))
		return result, nil
	}

	localTip, _, err := st.GetBranchHead(opts.Branch)
	if err != nil {
		return nil, fail(bus, srcPull, wrapIO(err))
	}

	if localTip == fetchResult.RemoteTip {
		result.UpToDate = true
		return result, nil
	}

	if localTip == "" {
		if err := fastForwardLocal(st, ws, opts.Branch, current, localTip, fetchResult.RemoteTip); err != nil {
			return nil, fail(bus, srcPull, err)
		}
		result.FastForward = true
		bus.Info(srcPull, "fast-forwarded '%s' to %s", opts.Branch, shortHash(fetchResult.RemoteTip))
		return result, nil
	}

	ancestor, err := FindCommonAncestor(st, localTip, fetchResult.RemoteTip)
	if err != nil {
		return nil, fail(bus, srcPull, err)
	}

	switch ancestor {
	case localTip:
		// Remote is strictly ahead.
		if err := fastForwardLocal(st, ws, opts.Branch, current, localTip, fetchResult.RemoteTip); err != nil {
			return nil, fail(bus, srcPull, err)
		}
		result.FastForward = true
		bus.Info(srcPull, "fast-forwarded '%s' to %s", opts.Branch, shortHash(fetchResult.RemoteTip))
	case fetchResult.RemoteTip:
		// Local is strictly ahead; the branch stays put.
		result.UpToDate = true
	default:
		result.Diverged = true
		bus.Warn(srcPull, "branch '%s' has diverged from the remote; merge the fetched tip to reconcile", opts.Branch)
	}

	return result, nil
}

// fastForwardLocal moves a local branch to the fetched tip, rewriting
// the working tree when that branch is checked out.
func fastForwardLocal(st *store.Store, ws workspace.Workspace, branch, current, fromTip, toTip string) error {
	if branch == current && ws != nil {
		if _, err := materializeCommit(st, ws, fromTip, toTip); err != nil {
			return err
		}
	}
	if err := st.UpdateBranch(branch, toTip); err != nil {
		return wrapIO(err)
	}
	return nil
}

// downloadMissingBlobs downloads encoded blobs in parallel with bounded
// concurrency. Hash verification happens on store, inside
// PutBlobEncoded.
func downloadMissingBlobs(ctx context.Context, st *store.Store, client remote.Client, missingHashes []string, progress FetchProgress) (int, error) {
	const maxWorkers = 4

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for i, hash := range missingHashes {
		progress("downloading blobs", i+1, len(missingHashes))
		h := hash
		g.Go(func() error {
			data, err := client.DownloadBlob(ctx, h)
			if err != nil {
				return fmt.Errorf("download blob %s: %w", h, err)
			}

			if err := st.PutBlobEncoded(h, data); err != nil {
				return fmt.Errorf("store blob %s: %w", h, err)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	return len(missingHashes), nil
}
