package core

import (
	"context"
	"net/http"
	"sort"
	"sync"

	"github.com/kilupskalvis/fvc/internal/models"
	"github.com/kilupskalvis/fvc/internal/remote"
)

// fakeRemote is an in-memory remote.Client that behaves like a server:
// it tracks commits, encoded blobs, and branch tips, and enforces
// compare-and-swap on branch updates.
type fakeRemote struct {
	mu       sync.Mutex
	commits  map[string]*models.Commit
	blobs    map[string][]byte
	branches map[string]string
}

var _ remote.Client = (*fakeRemote)(nil)

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		commits:  make(map[string]*models.Commit),
		blobs:    make(map[string][]byte),
		branches: make(map[string]string),
	}
}

func (f *fakeRemote) NegotiatePush(ctx context.Context, branch string, commitIDs []string) (*remote.NegotiatePushResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	resp := &remote.NegotiatePushResponse{RemoteTip: f.branches[branch]}
	for _, id := range commitIDs {
		if _, ok := f.commits[id]; !ok {
			resp.MissingCommits = append(resp.MissingCommits, id)
		}
	}
	return resp, nil
}

func (f *fakeRemote) NegotiatePull(ctx context.Context, branch, localTip string) (*remote.NegotiatePullResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tip := f.branches[branch]
	resp := &remote.NegotiatePullResponse{RemoteTip: tip}
	if tip == "" || tip == localTip {
		return resp, nil
	}

	var chain []string
	for id := tip; id != "" && id != localTip; {
		commit, ok := f.commits[id]
		if !ok {
			break
		}
		chain = append(chain, id)
		id = commit.ParentID
	}

	// Oldest first, so the client can insert parents before children.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	resp.MissingCommits = chain
	return resp, nil
}

func (f *fakeRemote) CheckBlobs(ctx context.Context, hashes []string) (*remote.BlobCheckResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	resp := &remote.BlobCheckResponse{}
	for _, h := range hashes {
		if _, ok := f.blobs[h]; ok {
			resp.Have = append(resp.Have, h)
		} else {
			resp.Missing = append(resp.Missing, h)
		}
	}
	return resp, nil
}

func (f *fakeRemote) UploadBlob(ctx context.Context, hash string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[hash] = append([]byte(nil), data...)
	return nil
}

func (f *fakeRemote) DownloadBlob(ctx context.Context, hash string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.blobs[hash]
	if !ok {
		return nil, &remote.RemoteError{Code: "not_found", Message: "blob " + hash, Status: http.StatusNotFound}
	}
	return append([]byte(nil), data...), nil
}

func (f *fakeRemote) UploadCommitBundle(ctx context.Context, bundle *remote.CommitBundle) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.commits[bundle.Commit.ID] = bundle.Commit
	for hash, data := range bundle.Blobs {
		f.blobs[hash] = append([]byte(nil), data...)
	}
	return nil
}

func (f *fakeRemote) DownloadCommitBundle(ctx context.Context, commitID string) (*remote.CommitBundle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	commit, ok := f.commits[commitID]
	if !ok {
		return nil, &remote.RemoteError{Code: "not_found", Message: "commit " + commitID, Status: http.StatusNotFound}
	}
	return &remote.CommitBundle{Commit: commit}, nil
}

func (f *fakeRemote) UpdateBranch(ctx context.Context, branch, newTip, expectedTip string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.branches[branch] != expectedTip {
		return &remote.RemoteError{Code: "cas_conflict", Message: "branch moved", Status: http.StatusConflict}
	}
	f.branches[branch] = newTip
	return nil
}

func (f *fakeRemote) DeleteBranch(ctx context.Context, branch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.branches[branch]; !ok {
		return &remote.RemoteError{Code: "not_found", Message: "branch " + branch, Status: http.StatusNotFound}
	}
	delete(f.branches, branch)
	return nil
}

func (f *fakeRemote) ListBranches(ctx context.Context) ([]*models.Branch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	names := make([]string, 0, len(f.branches))
	for name := range f.branches {
		names = append(names, name)
	}
	sort.Strings(names)

	branches := make([]*models.Branch, 0, len(names))
	for _, name := range names {
		branches = append(branches, &models.Branch{Name: name, CommitID: f.branches[name]})
	}
	return branches, nil
}

func (f *fakeRemote) GetBranch(ctx context.Context, branch string) (*models.Branch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tip, ok := f.branches[branch]
	if !ok {
		return nil, &remote.RemoteError{Code: "not_found", Message: "branch " + branch, Status: http.StatusNotFound}
	}
	return &models.Branch{Name: branch, CommitID: tip}, nil
}

func (f *fakeRemote) GetRepoInfo(ctx context.Context) (*remote.RepoInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return &remote.RepoInfo{
		BranchCount: len(f.branches),
		CommitCount: len(f.commits),
		TotalBlobs:  len(f.blobs),
	}, nil
}
