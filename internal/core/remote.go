package core

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/kilupskalvis/fvc/internal/events"
	"github.com/kilupskalvis/fvc/internal/models"
	"github.com/kilupskalvis/fvc/internal/store"
)

// AddRemote validates and stores a new remote configuration.
func AddRemote(st *store.Store, bus *events.Bus, name, rawURL string) error {
	if err := validateRemoteName(name); err != nil {
		return fail(bus, srcRemote, fmt.Errorf("%w: %v", ErrValidation, err))
	}

	if err := validateRemoteURL(rawURL); err != nil {
		return fail(bus, srcRemote, fmt.Errorf("%w: %v", ErrValidation, err))
	}

	if err := st.AddRemote(name, rawURL); err != nil {
		return fail(bus, srcRemote, wrapIO(err))
	}

	bus.Info(srcRemote, "added remote '%s' (%s)", name, rawURL)
	return nil
}

// RemoveRemote removes a remote and all its associated data, including
// remote-tracking branches and any stored token.
func RemoveRemote(st *store.Store, bus *events.Bus, name string) error {
	r, err := st.GetRemote(name)
	if err != nil {
		return fail(bus, srcRemote, wrapIO(err))
	}
	if r == nil {
		return fail(bus, srcRemote, fmt.Errorf("%w: remote '%s' does not exist", ErrNotFound, name))
	}

	if err := st.RemoveRemote(name); err != nil {
		return fail(bus, srcRemote, wrapIO(err))
	}

	bus.Info(srcRemote, "removed remote '%s'", name)
	return nil
}

// ListRemotes returns all configured remotes.
func ListRemotes(st *store.Store) ([]*models.Remote, error) {
	remotes, err := st.ListRemotes()
	if err != nil {
		return nil, wrapIO(err)
	}
	return remotes, nil
}

// GetRemote returns a single remote by name.
func GetRemote(st *store.Store, name string) (*models.Remote, error) {
	remote, err := st.GetRemote(name)
	if err != nil {
		return nil, wrapIO(err)
	}
	if remote == nil {
		return nil, fmt.Errorf("%w: remote '%s' does not exist", ErrNotFound, name)
	}
	return remote, nil
}

// SetRemoteToken stores an authentication token for a remote. An empty
// token deletes the stored token.
func SetRemoteToken(st *store.Store, remoteName, token string) error {
	remote, err := st.GetRemote(remoteName)
	if err != nil {
		return wrapIO(err)
	}
	if remote == nil {
		return fmt.Errorf("%w: remote '%s' does not exist", ErrNotFound, remoteName)
	}

	if token == "" {
		return wrapIO(st.DeleteRemoteToken(remoteName))
	}

	return wrapIO(st.SetRemoteToken(remoteName, token))
}

// nonAlphanumeric matches characters replaced when deriving env var names.
var nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]`)

// GetRemoteToken retrieves the token for a remote. Precedence:
// the per-remote env var FVC_REMOTE_TOKEN_<UPPER_NAME>, then the global
// FVC_REMOTE_TOKEN, then the stored token.
func GetRemoteToken(st *store.Store, remoteName string) (string, error) {
	sanitized := nonAlphanumeric.ReplaceAllString(strings.ToUpper(remoteName), "_")
	if envToken := os.Getenv("FVC_REMOTE_TOKEN_" + sanitized); envToken != "" {
		return envToken, nil
	}

	if envToken := os.Getenv("FVC_REMOTE_TOKEN"); envToken != "" {
		return envToken, nil
	}

	token, err := st.GetRemoteToken(remoteName)
	if err != nil {
		return "", wrapIO(err)
	}
	return token, nil
}

// SetRemoteURL updates the URL of an existing remote.
func SetRemoteURL(st *store.Store, name, rawURL string) error {
	if err := validateRemoteURL(rawURL); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return wrapIO(st.UpdateRemoteURL(name, rawURL))
}

// ResolveRemoteAndBranch fills in default remote and branch names for
// push, pull, and fetch.
func ResolveRemoteAndBranch(st *store.Store, remoteName, branch string) (string, string, error) {
	if remoteName == "" {
		remotes, err := st.ListRemotes()
		if err != nil {
			return "", "", wrapIO(err)
		}
		if len(remotes) == 0 {
			return "", "", fmt.Errorf("%w: no remotes configured; add one with 'fvc remote add'", ErrNotFound)
		}
		if len(remotes) > 1 {
			return "", "", fmt.Errorf("%w: multiple remotes configured; specify which with 'fvc push <remote>'", ErrValidation)
		}
		remoteName = remotes[0].Name
	}

	r, err := st.GetRemote(remoteName)
	if err != nil {
		return "", "", wrapIO(err)
	}
	if r == nil {
		return "", "", fmt.Errorf("%w: remote '%s' does not exist", ErrNotFound, remoteName)
	}

	if branch == "" {
		branch, err = st.GetCurrentBranch()
		if err != nil {
			return "", "", wrapIO(err)
		}
	}

	return remoteName, branch, nil
}

// validateRemoteName checks that a remote name is usable.
func validateRemoteName(name string) error {
	if name == "" {
		return fmt.Errorf("remote name cannot be empty")
	}

	if strings.ContainsAny(name, " \t\n:/\\") {
		return fmt.Errorf("remote name '%s' contains invalid characters", name)
	}

	// Prevent names that collide with built-in refs.
	reserved := []string{"HEAD", "MERGE_STATE", "FETCH_HEAD"}
	for _, r := range reserved {
		if strings.EqualFold(name, r) {
			return fmt.Errorf("remote name '%s' is reserved", name)
		}
	}

	return nil
}

// ParseRemoteURL splits a remote URL like "http://host:port/reponame"
// into the base server URL and the repository name.
func ParseRemoteURL(rawURL string) (baseURL, repoName string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid remote URL: %w", err)
	}

	path := strings.TrimSuffix(u.Path, "/")
	if path == "" {
		return "", "", fmt.Errorf("remote URL must include a repository name (e.g., https://host/myrepo)")
	}

	lastSlash := strings.LastIndex(path, "/")
	repoName = path[lastSlash+1:]
	if repoName == "" {
		return "", "", fmt.Errorf("remote URL must include a repository name (e.g., https://host/myrepo)")
	}

	u.Path = path[:lastSlash]
	baseURL = u.String()
	return baseURL, repoName, nil
}

// validateRemoteURL checks that a remote URL is syntactically valid.
func validateRemoteURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("remote URL cannot be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid remote URL: %w", err)
	}

	if u.Scheme == "" {
		return fmt.Errorf("remote URL must include a scheme (e.g., https://)")
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("remote URL scheme must be http or https, got '%s'", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("remote URL must include a host")
	}

	// Must have a repo name in the path.
	path := strings.TrimSuffix(u.Path, "/")
	if path == "" || strings.LastIndex(path, "/") == len(path)-1 {
		return fmt.Errorf("remote URL must include a repository name (e.g., https://host/myrepo)")
	}

	return nil
}
