// Package server implements the fvc-server HTTP handlers and middleware.
package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TokenInfo holds the metadata for an authenticated token.
type TokenInfo struct {
	ID         string   `json:"id"`
	TokenHash  string   `json:"token_hash"`
	Desc       string   `json:"description"`
	Repos      []string `json:"repos"`
	Permission string   `json:"permission"` // "ro" or "rw"
}

// TokenStore is the interface for managing authentication tokens.
type TokenStore interface {
	GetByHash(hash string) (*TokenInfo, error)
	UpdateLastUsed(id string) error
	ListTokens() ([]*TokenInfo, error)
	DeleteToken(id string) error
	CreateToken(desc string, repos []string, permission string) (rawToken string, info *TokenInfo, err error)
}

// HashToken returns the SHA256 hex digest of a raw token string. Only
// the digest is ever persisted; the raw token is shown once at creation.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

type contextKey int

const (
	ctxRequestID contextKey = iota
	ctxCaller
)

// caller is what authMiddleware learned about the request's token. The
// repo and write checks downstream read it instead of re-hitting the
// token store.
type caller struct {
	tokenID string
	repos   []string
	perm    string
}

func (c *caller) canAccess(repo string) bool {
	for _, r := range c.repos {
		if r == "*" || r == repo {
			return true
		}
	}
	return false
}

func (c *caller) canWrite() bool {
	return c.perm == "rw"
}

func callerFrom(ctx context.Context) *caller {
	c, _ := ctx.Value(ctxCaller).(*caller)
	return c
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxRequestID).(string)
	return id
}

// requestIDMiddleware tags each request with a UUID, echoed back in the
// X-Request-ID header so clients can quote it in bug reports.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxRequestID, id)))
	})
}

// loggingMiddleware emits one structured line per request once the
// handler returns.
func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"latency_ms", time.Since(start).Milliseconds(),
				"request_id", requestIDFrom(r.Context()),
			)
		})
	}
}

// recoveryMiddleware turns a handler panic into a 500 instead of
// killing the connection. If the handler already wrote a status the
// response is left alone.
func recoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			defer func() {
				if v := recover(); v != nil {
					logger.Error("panic recovered",
						"error", v,
						"request_id", requestIDFrom(r.Context()),
					)
					if rec.status == 0 {
						writeError(rec, http.StatusInternalServerError, "internal_error", "internal server error")
					}
				}
			}()
			next.ServeHTTP(rec, r)
		})
	}
}

// lastUsedLimit bounds in-flight last_used_at updates. Updates beyond
// the bound are dropped rather than queued; the timestamp is advisory.
const lastUsedLimit = 20

// authMiddleware resolves the bearer token against the token store and
// stashes the resulting caller in the request context.
func authMiddleware(tokens TokenStore, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		inflight := make(chan struct{}, lastUsedLimit)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				writeError(w, http.StatusUnauthorized, "auth_failed", "missing or invalid Authorization header")
				return
			}

			info, err := tokens.GetByHash(HashToken(raw))
			if err != nil || info == nil {
				writeError(w, http.StatusUnauthorized, "auth_failed", "invalid token")
				return
			}

			select {
			case inflight <- struct{}{}:
				go func() {
					defer func() { <-inflight }()
					if err := tokens.UpdateLastUsed(info.ID); err != nil {
						logger.Warn("failed to update token last_used_at", "error", err, "token_id", info.ID)
					}
				}()
			default:
			}

			ctx := context.WithValue(r.Context(), ctxCaller, &caller{
				tokenID: info.ID,
				repos:   info.Repos,
				perm:    info.Permission,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireRepo rejects requests whose token does not cover the {repo}
// path segment. A "*" entry in the token's repo list covers everything.
func requireRepo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		repo := r.PathValue("repo")
		if repo == "" {
			writeError(w, http.StatusBadRequest, "bad_request", "missing repository name in path")
			return
		}
		c := callerFrom(r.Context())
		if c == nil || !c.canAccess(repo) {
			writeError(w, http.StatusForbidden, "forbidden", "token does not have access to repository '"+repo+"'")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireWrite rejects read-only tokens.
func requireWrite(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := callerFrom(r.Context())
		if c == nil || !c.canWrite() {
			writeError(w, http.StatusForbidden, "forbidden", "read-only token cannot perform write operations")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimiter counts requests per caller in fixed one-minute windows.
// Keys are token IDs when authenticated, client IPs otherwise.
type rateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	limit   int
	done    chan struct{}
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

func newRateLimiter(requestsPerMinute int) *rateLimiter {
	rl := &rateLimiter{
		windows: make(map[string]*rateWindow),
		limit:   requestsPerMinute,
		done:    make(chan struct{}),
	}
	go rl.pruneLoop()
	return rl
}

// take records one request against key and reports whether it fits the
// current window.
func (rl *rateLimiter) take(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	win := rl.windows[key]
	if win == nil || now.After(win.resetAt) {
		win = &rateWindow{resetAt: now.Add(time.Minute)}
		rl.windows[key] = win
	}
	win.count++
	return win.count <= rl.limit
}

// pruneLoop drops expired windows so idle callers do not accumulate.
func (rl *rateLimiter) pruneLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for k, win := range rl.windows {
				if now.After(win.resetAt) {
					delete(rl.windows, k)
				}
			}
			rl.mu.Unlock()
		case <-rl.done:
			return
		}
	}
}

func (rl *rateLimiter) Stop() {
	close(rl.done)
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		key := ""
		if c := callerFrom(r.Context()); c != nil {
			key = c.tokenID
		}
		if key == "" {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			key = host
		}

		if !rl.take(key) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by the wrapped
// handler for the logging and recovery middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
