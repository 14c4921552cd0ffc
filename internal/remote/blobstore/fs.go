package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kilupskalvis/fvc/internal/objects"
)

// FSStore implements BlobStore using the local filesystem.
// Blobs are stored in a two-level directory structure using the first two
// characters of the hash as a prefix directory.
type FSStore struct {
	root string
}

// NewFSStore creates a filesystem-backed blob store rooted at the given
// directory.
func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) blobPath(hash string) string {
	return filepath.Join(s.root, hash[:2], hash[2:])
}

// Has checks whether a blob exists.
func (s *FSStore) Has(_ context.Context, hash string) (bool, error) {
	if !objects.ValidHash(hash) {
		return false, nil
	}
	_, err := os.Stat(s.blobPath(hash))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat blob %s: %w", hash, err)
	}
	return true, nil
}

// Get opens a blob for reading. Returns ErrBlobNotFound if the blob does
// not exist.
func (s *FSStore) Get(_ context.Context, hash string) (io.ReadCloser, error) {
	if !objects.ValidHash(hash) {
		return nil, ErrBlobNotFound
	}
	f, err := os.Open(s.blobPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("open blob %s: %w", hash, err)
	}
	return f, nil
}

// Put stores an encoded blob after verifying that its decoded content
// hashes to the claimed address. The write goes to a temp file first and
// is renamed into place so a crash never leaves a partial blob visible.
func (s *FSStore) Put(_ context.Context, hash string, r io.Reader) error {
	if !objects.ValidHash(hash) {
		return fmt.Errorf("invalid blob hash: %q", hash)
	}

	path := s.blobPath(hash)
	if _, err := os.Stat(path); err == nil {
		io.Copy(io.Discard, r) // drain so HTTP keep-alive survives
		return nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read blob %s: %w", hash, err)
	}
	if _, err := objects.DecodeVerify(data, hash); err != nil {
		return fmt.Errorf("%w: %v", ErrHashMismatch, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp blob: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write blob %s: %w", hash, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close blob %s: %w", hash, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("finalize blob %s: %w", hash, err)
	}
	return nil
}

// Delete removes a blob. Missing blobs are not an error.
func (s *FSStore) Delete(_ context.Context, hash string) error {
	if !objects.ValidHash(hash) {
		return nil
	}
	err := os.Remove(s.blobPath(hash))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob %s: %w", hash, err)
	}
	// Best effort: drop the prefix directory when it empties out.
	os.Remove(filepath.Dir(s.blobPath(hash)))
	return nil
}

// TotalCount returns the number of stored blobs.
func (s *FSStore) TotalCount(ctx context.Context) (int, error) {
	hashes, err := s.ListHashes(ctx)
	if err != nil {
		return 0, err
	}
	return len(hashes), nil
}

// ListHashes walks the two-level layout and returns every stored hash.
func (s *FSStore) ListHashes(_ context.Context) ([]string, error) {
	var hashes []string

	prefixes, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read blob root: %w", err)
	}

	for _, p := range prefixes {
		if !p.IsDir() || len(p.Name()) != 2 {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(s.root, p.Name()))
		if err != nil {
			return nil, fmt.Errorf("read blob dir %s: %w", p.Name(), err)
		}
		for _, e := range entries {
			if e.IsDir() || strings.HasPrefix(e.Name(), ".tmp-") {
				continue
			}
			hash := p.Name() + e.Name()
			if objects.ValidHash(hash) {
				hashes = append(hashes, hash)
			}
		}
	}

	return hashes, nil
}
