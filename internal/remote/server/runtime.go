package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/kilupskalvis/fvc/internal/remote/blobstore"
	"github.com/kilupskalvis/fvc/internal/remote/metastore"
)

// FileTokenStore persists access tokens as a JSON file. Suitable for a
// single-instance server; all methods are safe for concurrent use.
type FileTokenStore struct {
	mu   sync.Mutex
	path string
}

// tokenRecord is the on-disk token shape. LastUsedAt is informational.
type tokenRecord struct {
	TokenInfo
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
}

// NewFileTokenStore creates a token store backed by the JSON file at
// path. The file is created on first write.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

func (s *FileTokenStore) load() ([]*tokenRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read token file: %w", err)
	}

	var records []*tokenRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}
	return records, nil
}

func (s *FileTokenStore) save(records []*tokenRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create token directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// GetByHash looks up a token by its SHA256 hash.
func (s *FileTokenStore) GetByHash(hash string) (*TokenInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.TokenHash == hash {
			info := rec.TokenInfo
			return &info, nil
		}
	}
	return nil, nil
}

// UpdateLastUsed records the current time on a token.
func (s *FileTokenStore) UpdateLastUsed(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	for _, rec := range records {
		if rec.ID == id {
			rec.LastUsedAt = time.Now().UTC()
			return s.save(records)
		}
	}
	return fmt.Errorf("token '%s' not found", id)
}

// ListTokens returns all token metadata.
func (s *FileTokenStore) ListTokens() ([]*TokenInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	infos := make([]*TokenInfo, 0, len(records))
	for _, rec := range records {
		info := rec.TokenInfo
		infos = append(infos, &info)
	}
	return infos, nil
}

// DeleteToken removes a token by ID.
func (s *FileTokenStore) DeleteToken(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	for i, rec := range records {
		if rec.ID == id {
			records = append(records[:i], records[i+1:]...)
			return s.save(records)
		}
	}
	return fmt.Errorf("token '%s' not found", id)
}

// CreateToken generates a new token. The raw value is returned once and
// only its hash is stored.
func (s *FileTokenStore) CreateToken(desc string, repos []string, permission string) (string, *TokenInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}
	rawToken := "fvc_" + hex.EncodeToString(raw)

	idBytes := make([]byte, 8)
	if _, err := rand.Read(idBytes); err != nil {
		return "", nil, fmt.Errorf("generate token id: %w", err)
	}

	info := TokenInfo{
		ID:         hex.EncodeToString(idBytes),
		TokenHash:  HashToken(rawToken),
		Desc:       desc,
		Repos:      repos,
		Permission: permission,
	}

	records, err := s.load()
	if err != nil {
		return "", nil, err
	}
	records = append(records, &tokenRecord{TokenInfo: info, CreatedAt: time.Now().UTC()})
	if err := s.save(records); err != nil {
		return "", nil, err
	}

	return rawToken, &info, nil
}

var repoNameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// DiskRepos hosts repositories under a root directory. Each repo gets a
// subdirectory holding a bbolt metadata database and a blob tree. Opened
// repos are cached for the server's lifetime.
type DiskRepos struct {
	mu   sync.Mutex
	root string
	open map[string]*Repo
}

// NewDiskRepos creates a repository host rooted at dir.
func NewDiskRepos(dir string) (*DiskRepos, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &DiskRepos{root: dir, open: make(map[string]*Repo)}, nil
}

func validRepoName(name string) error {
	if name == "" || len(name) > 100 || !repoNameRe.MatchString(name) {
		return fmt.Errorf("invalid repository name: %q", name)
	}
	return nil
}

// Open returns the stores for an existing repository. The repository
// must have been created through the admin API first.
func (d *DiskRepos) Open(name string) (*Repo, error) {
	if err := validRepoName(name); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if repo, ok := d.open[name]; ok {
		return repo, nil
	}

	dir := filepath.Join(d.root, name)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("repository '%s' does not exist", name)
		}
		return nil, fmt.Errorf("stat repository: %w", err)
	}

	meta, err := metastore.NewBboltStore(filepath.Join(dir, "meta.db"))
	if err != nil {
		return nil, fmt.Errorf("open repository '%s': %w", name, err)
	}
	blobs, err := blobstore.NewFSStore(filepath.Join(dir, "blobs"))
	if err != nil {
		meta.Close()
		return nil, fmt.Errorf("open repository '%s': %w", name, err)
	}

	repo := &Repo{Meta: meta, Blobs: blobs}
	d.open[name] = repo
	return repo, nil
}

// CreateRepo initializes a new empty repository.
func (d *DiskRepos) CreateRepo(name string) error {
	if err := validRepoName(name); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	dir := filepath.Join(d.root, name)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("repository '%s' already exists", name)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create repository: %w", err)
	}

	// Initialize the stores so the repo is immediately usable.
	meta, err := metastore.NewBboltStore(filepath.Join(dir, "meta.db"))
	if err != nil {
		os.RemoveAll(dir)
		return fmt.Errorf("initialize repository: %w", err)
	}
	blobs, err := blobstore.NewFSStore(filepath.Join(dir, "blobs"))
	if err != nil {
		meta.Close()
		os.RemoveAll(dir)
		return fmt.Errorf("initialize repository: %w", err)
	}

	d.open[name] = &Repo{Meta: meta, Blobs: blobs}
	return nil
}

// DeleteRepo removes a repository and all its data.
func (d *DiskRepos) DeleteRepo(name string) error {
	if err := validRepoName(name); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	dir := filepath.Join(d.root, name)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("repository '%s' does not exist", name)
		}
		return fmt.Errorf("stat repository: %w", err)
	}

	if repo, ok := d.open[name]; ok {
		repo.Meta.Close()
		delete(d.open, name)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete repository: %w", err)
	}
	return nil
}

// ListRepos returns the names of all hosted repositories.
func (d *DiskRepos) ListRepos() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("read data directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() && validRepoName(e.Name()) == nil {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Close releases every open repository.
func (d *DiskRepos) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var firstErr error
	for name, repo := range d.open {
		if err := repo.Meta.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(d.open, name)
	}
	return firstErr
}
