package server

import (
	"bytes"
	"compress/gzip"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/kilupskalvis/fvc/internal/remote"
	"github.com/kilupskalvis/fvc/internal/remote/blobstore"
	"github.com/kilupskalvis/fvc/internal/remote/metastore"
)

// ServerConfig holds fvc-server tunables.
type ServerConfig struct {
	// MaxRequestBody caps JSON request bodies (negotiate, branch updates).
	MaxRequestBody int64
	// MaxBlobSize caps a single blob upload.
	MaxBlobSize int64
	// RequestsPerMinute is the per-token rate limit. 0 disables limiting.
	RequestsPerMinute int
	// AdminToken guards the /admin endpoints. Empty disables them.
	AdminToken string
	// Webhooks receive push notifications.
	Webhooks []string
	// WebhookSecret, when set, signs webhook payloads with HMAC-SHA256.
	WebhookSecret string
}

// DefaultServerConfig returns production defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		MaxRequestBody:    64 << 20,  // 64 MB
		MaxBlobSize:       512 << 20, // 512 MB
		RequestsPerMinute: 300,
	}
}

// Repo bundles the two stores backing one hosted repository.
type Repo struct {
	Meta  metastore.MetaStore
	Blobs blobstore.BlobStore
}

// RepoOpener resolves a repository name to its stores.
type RepoOpener interface {
	Open(name string) (*Repo, error)
}

// RepoAdmin manages the set of hosted repositories.
type RepoAdmin interface {
	CreateRepo(name string) error
	DeleteRepo(name string) error
	ListRepos() ([]string, error)
}

// Handler builds the fvc-server HTTP handler. The returned stop function
// releases background resources (the rate limiter) and must be called on
// shutdown.
func Handler(repos RepoOpener, admin RepoAdmin, tokens TokenStore, cfg *ServerConfig, logger *slog.Logger) (http.Handler, func()) {
	if cfg == nil {
		cfg = DefaultServerConfig()
	}

	mux := http.NewServeMux()
	limiter := newRateLimiter(cfg.RequestsPerMinute)
	notifier := NewWebhookNotifier(cfg.Webhooks, cfg.WebhookSecret, logger)

	h := &handlers{repos: repos, admin: admin, cfg: cfg, logger: logger, notifier: notifier}

	// Health endpoints are unauthenticated.
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	authed := func(handler http.HandlerFunc, wrappers ...func(http.Handler) http.Handler) http.Handler {
		chain := []func(http.Handler) http.Handler{
			requestIDMiddleware,
			loggingMiddleware(logger),
			recoveryMiddleware(logger),
			authMiddleware(tokens, logger),
			limiter.middleware,
		}
		chain = append(chain, wrappers...)
		return applyMiddleware(handler, chain...)
	}

	repoRead := func(handler http.HandlerFunc) http.Handler {
		return authed(handler, requireRepo)
	}
	repoWrite := func(handler http.HandlerFunc) http.Handler {
		return authed(handler, requireRepo, requireWrite)
	}

	mux.Handle("POST /api/v1/repos/{repo}/negotiate/push", repoWrite(h.negotiatePush))
	mux.Handle("POST /api/v1/repos/{repo}/negotiate/pull", repoRead(h.negotiatePull))
	mux.Handle("POST /api/v1/repos/{repo}/blobs/have", repoRead(h.checkBlobs))
	mux.Handle("GET /api/v1/repos/{repo}/blobs/{hash}", repoRead(h.downloadBlob))
	mux.Handle("POST /api/v1/repos/{repo}/blobs/{hash}", repoWrite(h.uploadBlob))
	mux.Handle("POST /api/v1/repos/{repo}/commits", repoWrite(h.uploadCommit))
	mux.Handle("GET /api/v1/repos/{repo}/commits/{id}/bundle", repoRead(h.downloadCommitBundle))
	mux.Handle("GET /api/v1/repos/{repo}/branches", repoRead(h.listBranches))
	mux.Handle("GET /api/v1/repos/{repo}/branches/{name}", repoRead(h.getBranch))
	mux.Handle("PUT /api/v1/repos/{repo}/branches/{name}", repoWrite(h.updateBranch))
	mux.Handle("DELETE /api/v1/repos/{repo}/branches/{name}", repoWrite(h.deleteBranch))
	mux.Handle("GET /api/v1/repos/{repo}/info", repoRead(h.repoInfo))

	// Admin endpoints use a dedicated token, not the token store.
	adminChain := func(handler http.HandlerFunc) http.Handler {
		return applyMiddleware(
			h.adminAuth(handler),
			requestIDMiddleware,
			loggingMiddleware(logger),
			recoveryMiddleware(logger),
		)
	}

	mux.Handle("POST /admin/tokens", adminChain(h.adminCreateToken(tokens)))
	mux.Handle("GET /admin/tokens", adminChain(h.adminListTokens(tokens)))
	mux.Handle("DELETE /admin/tokens/{id}", adminChain(h.adminDeleteToken(tokens)))
	mux.Handle("POST /admin/repos", adminChain(h.adminCreateRepo))
	mux.Handle("GET /admin/repos", adminChain(h.adminListRepos))
	mux.Handle("DELETE /admin/repos/{name}", adminChain(h.adminDeleteRepo))
	mux.Handle("POST /admin/repos/{name}/gc", adminChain(h.adminGC))

	return mux, limiter.Stop
}

// applyMiddleware wraps handler with the given middlewares. The first
// middleware in the list becomes the outermost wrapper.
func applyMiddleware(handler http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

type handlers struct {
	repos    RepoOpener
	admin    RepoAdmin
	cfg      *ServerConfig
	logger   *slog.Logger
	notifier *WebhookNotifier
}

func (h *handlers) openRepo(w http.ResponseWriter, r *http.Request) (*Repo, bool) {
	repo, err := h.repos.Open(r.PathValue("repo"))
	if err != nil {
		writeError(w, http.StatusNotFound, "repo_not_found", err.Error())
		return nil, false
	}
	return repo, true
}

// negotiatePush reports which of the offered commits the server is
// missing, plus its current branch tip.
func (h *handlers) negotiatePush(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.openRepo(w, r)
	if !ok {
		return
	}

	var req remote.NegotiatePushRequest
	if !readJSON(w, r, h.cfg.MaxRequestBody, &req) {
		return
	}

	resp := remote.NegotiatePushResponse{MissingCommits: []string{}}
	for _, id := range req.Commits {
		has, err := repo.Meta.HasCommit(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if !has {
			resp.MissingCommits = append(resp.MissingCommits, id)
		}
	}

	branch, err := repo.Meta.GetBranch(r.Context(), req.Branch)
	if err == nil {
		resp.RemoteTip = branch.CommitID
	} else if !errors.Is(err, metastore.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// negotiatePull lists the commits between the client's tip and the
// server's tip, oldest first. An empty local tip means a full history
// download.
func (h *handlers) negotiatePull(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.openRepo(w, r)
	if !ok {
		return
	}

	var req remote.NegotiatePullRequest
	if !readJSON(w, r, h.cfg.MaxRequestBody, &req) {
		return
	}

	branch, err := repo.Meta.GetBranch(r.Context(), req.Branch)
	if err != nil {
		if errors.Is(err, metastore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "branch_not_found", fmt.Sprintf("branch '%s' does not exist", req.Branch))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	resp := remote.NegotiatePullResponse{
		MissingCommits: []string{},
		RemoteTip:      branch.CommitID,
	}

	// Walk the single-parent chain from the remote tip until the client's
	// tip (or the root) and reverse so the client applies oldest first.
	var chain []string
	current := branch.CommitID
	for current != "" && current != req.LocalTip {
		commit, err := repo.Meta.GetCommit(r.Context(), current)
		if err != nil {
			if errors.Is(err, metastore.ErrNotFound) {
				break
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		chain = append(chain, current)
		current = commit.ParentID
	}

	for i := len(chain) - 1; i >= 0; i-- {
		resp.MissingCommits = append(resp.MissingCommits, chain[i])
	}

	writeJSON(w, http.StatusOK, resp)
}

// checkBlobs splits the queried hashes into have and missing sets.
func (h *handlers) checkBlobs(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.openRepo(w, r)
	if !ok {
		return
	}

	var req remote.BlobCheckRequest
	if !readJSON(w, r, h.cfg.MaxRequestBody, &req) {
		return
	}

	resp := remote.BlobCheckResponse{Have: []string{}, Missing: []string{}}
	for _, hash := range req.Hashes {
		has, err := repo.Blobs.Has(r.Context(), hash)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if has {
			resp.Have = append(resp.Have, hash)
		} else {
			resp.Missing = append(resp.Missing, hash)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) uploadBlob(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.openRepo(w, r)
	if !ok {
		return
	}

	hash := r.PathValue("hash")
	body := http.MaxBytesReader(w, r.Body, h.cfg.MaxBlobSize)

	if err := repo.Blobs.Put(r.Context(), hash, body); err != nil {
		if errors.Is(err, blobstore.ErrHashMismatch) {
			writeError(w, http.StatusBadRequest, "hash_mismatch", err.Error())
			return
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "blob_too_large", "blob exceeds maximum size")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"hash": hash})
}

func (h *handlers) downloadBlob(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.openRepo(w, r)
	if !ok {
		return
	}

	hash := r.PathValue("hash")
	rc, err := repo.Blobs.Get(r.Context(), hash)
	if err != nil {
		if errors.Is(err, blobstore.ErrBlobNotFound) {
			writeError(w, http.StatusNotFound, "blob_not_found", fmt.Sprintf("blob %s does not exist", hash))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("blob download interrupted", "hash", hash, "error", err)
	}
}

// uploadCommit accepts a gzip-compressed commit bundle. Any blobs carried
// in the bundle are stored first, then the commit record itself. The
// commit's parent must already exist on the server.
func (h *handlers) uploadCommit(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.openRepo(w, r)
	if !ok {
		return
	}

	var reader io.Reader = http.MaxBytesReader(w, r.Body, h.cfg.MaxRequestBody)
	if r.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(reader)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid gzip body")
			return
		}
		defer gz.Close()
		reader = gz
	}

	var bundle remote.CommitBundle
	if err := json.NewDecoder(reader).Decode(&bundle); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid commit bundle: "+err.Error())
		return
	}
	if bundle.Commit == nil || bundle.Commit.ID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "commit bundle missing commit")
		return
	}

	if bundle.Commit.ParentID != "" {
		has, err := repo.Meta.HasCommit(r.Context(), bundle.Commit.ParentID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if !has {
			writeError(w, http.StatusConflict, "missing_parent",
				fmt.Sprintf("parent commit %s not found; push commits oldest first", bundle.Commit.ParentID))
			return
		}
	}

	for hash, data := range bundle.Blobs {
		if err := repo.Blobs.Put(r.Context(), hash, bytes.NewReader(data)); err != nil {
			if errors.Is(err, blobstore.ErrHashMismatch) {
				writeError(w, http.StatusBadRequest, "hash_mismatch", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
	}

	// Manifest blobs not carried in the bundle must have been uploaded
	// separately before the commit is accepted.
	for path, hash := range bundle.Commit.Files {
		has, err := repo.Blobs.Has(r.Context(), hash)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if !has {
			writeError(w, http.StatusConflict, "missing_blob",
				fmt.Sprintf("blob %s for file '%s' not found; upload blobs first", hash, path))
			return
		}
	}

	if err := repo.Meta.InsertCommit(r.Context(), bundle.Commit); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": bundle.Commit.ID})
}

// downloadCommitBundle returns the commit record alone; clients fetch the
// blobs they are missing through the blob endpoint.
func (h *handlers) downloadCommitBundle(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.openRepo(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	commit, err := repo.Meta.GetCommit(r.Context(), id)
	if err != nil {
		if errors.Is(err, metastore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "commit_not_found", fmt.Sprintf("commit %s does not exist", id))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	bundle := remote.CommitBundle{Commit: commit}

	if strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Encoding", "gzip")
		w.WriteHeader(http.StatusOK)
		gz := gzip.NewWriter(w)
		defer gz.Close()
		if err := json.NewEncoder(gz).Encode(&bundle); err != nil {
			h.logger.Warn("bundle download interrupted", "commit", id, "error", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, bundle)
}

func (h *handlers) listBranches(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.openRepo(w, r)
	if !ok {
		return
	}

	branches, err := repo.Meta.ListBranches(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, branches)
}

func (h *handlers) getBranch(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.openRepo(w, r)
	if !ok {
		return
	}

	name := r.PathValue("name")
	branch, err := repo.Meta.GetBranch(r.Context(), name)
	if err != nil {
		if errors.Is(err, metastore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "branch_not_found", fmt.Sprintf("branch '%s' does not exist", name))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, branch)
}

// updateBranch performs a compare-and-swap branch update. A stale
// expected tip yields 409 so the client knows to pull first.
func (h *handlers) updateBranch(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.openRepo(w, r)
	if !ok {
		return
	}

	name := r.PathValue("name")
	var req remote.BranchUpdateRequest
	if !readJSON(w, r, h.cfg.MaxRequestBody, &req) {
		return
	}
	if req.CommitID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "commit_id is required")
		return
	}

	has, err := repo.Meta.HasCommit(r.Context(), req.CommitID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	if !has {
		writeError(w, http.StatusConflict, "missing_commit",
			fmt.Sprintf("commit %s not found; push commits before updating the branch", req.CommitID))
		return
	}

	if err := repo.Meta.UpdateBranchCAS(r.Context(), name, req.CommitID, req.Expected); err != nil {
		if errors.Is(err, metastore.ErrConflict) {
			writeError(w, http.StatusConflict, "branch_conflict",
				fmt.Sprintf("branch '%s' has moved; expected tip %s is stale", name, req.Expected))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	h.notifier.NotifyPush(r.PathValue("repo"), name, req.CommitID)

	writeJSON(w, http.StatusOK, map[string]string{"branch": name, "commit_id": req.CommitID})
}

func (h *handlers) deleteBranch(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.openRepo(w, r)
	if !ok {
		return
	}

	name := r.PathValue("name")
	if err := repo.Meta.DeleteBranch(r.Context(), name); err != nil {
		if errors.Is(err, metastore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "branch_not_found", fmt.Sprintf("branch '%s' does not exist", name))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) repoInfo(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.openRepo(w, r)
	if !ok {
		return
	}

	branches, err := repo.Meta.ListBranches(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	commitCount, err := repo.Meta.GetCommitCount(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	blobCount, err := repo.Blobs.TotalCount(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, remote.RepoInfo{
		BranchCount: len(branches),
		CommitCount: commitCount,
		TotalBlobs:  blobCount,
	})
}

// adminAuth guards the admin endpoints with the configured admin token.
func (h *handlers) adminAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.cfg.AdminToken == "" {
			writeError(w, http.StatusForbidden, "admin_disabled", "admin API is not enabled")
			return
		}

		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "auth_failed", "missing or invalid Authorization header")
			return
		}

		provided := strings.TrimPrefix(auth, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(h.cfg.AdminToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "auth_failed", "invalid admin token")
			return
		}

		next(w, r)
	}
}

func (h *handlers) adminCreateToken(tokens TokenStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Description string   `json:"description"`
			Repos       []string `json:"repos"`
			Permission  string   `json:"permission"`
		}
		if !readJSON(w, r, h.cfg.MaxRequestBody, &req) {
			return
		}

		if req.Permission != "ro" && req.Permission != "rw" {
			writeError(w, http.StatusBadRequest, "bad_request", "permission must be 'ro' or 'rw'")
			return
		}
		if len(req.Repos) == 0 {
			writeError(w, http.StatusBadRequest, "bad_request", "at least one repo is required ('*' for all)")
			return
		}

		rawToken, info, err := tokens.CreateToken(req.Description, req.Repos, req.Permission)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"token":       rawToken,
			"id":          info.ID,
			"description": info.Desc,
			"repos":       info.Repos,
			"permission":  info.Permission,
		})
	}
}

func (h *handlers) adminListTokens(tokens TokenStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		infos, err := tokens.ListTokens()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		out := make([]map[string]interface{}, 0, len(infos))
		for _, info := range infos {
			out = append(out, map[string]interface{}{
				"id":          info.ID,
				"description": info.Desc,
				"repos":       info.Repos,
				"permission":  info.Permission,
			})
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func (h *handlers) adminDeleteToken(tokens TokenStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := tokens.DeleteToken(id); err != nil {
			writeError(w, http.StatusNotFound, "token_not_found", err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *handlers) adminCreateRepo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !readJSON(w, r, h.cfg.MaxRequestBody, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "repo name is required")
		return
	}

	if err := h.admin.CreateRepo(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
}

func (h *handlers) adminListRepos(w http.ResponseWriter, r *http.Request) {
	names, err := h.admin.ListRepos()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	sort.Strings(names)
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"repos": names})
}

func (h *handlers) adminDeleteRepo(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := h.admin.DeleteRepo(name); err != nil {
		writeError(w, http.StatusNotFound, "repo_not_found", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) adminGC(w http.ResponseWriter, r *http.Request) {
	repo, err := h.repos.Open(r.PathValue("name"))
	if err != nil {
		writeError(w, http.StatusNotFound, "repo_not_found", err.Error())
		return
	}

	result, err := GarbageCollect(r.Context(), repo.Meta, repo.Blobs, h.logger)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent; nothing more to do.
		_ = err
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, remote.ErrorResponse{Error: code, Message: message})
}

// readJSON decodes a JSON request body with a size cap. Writes the error
// response itself and returns false on failure.
func readJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, v interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, maxBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request_too_large", "request body exceeds maximum size")
			return false
		}
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
