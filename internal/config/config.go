// Package config manages FVC configuration and the .fvc directory structure.
// It handles loading, saving, and initializing the repository configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const (
	FVCDir       = ".fvc"
	ConfigFile   = "config"
	DatabaseFile = "fvc.db"
)

// Author identifies who creates commits.
type Author struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

// Config represents the FVC repository configuration
type Config struct {
	Author Author `toml:"author"`
	path   string // path to .fvc directory
}

// FindFVCRoot finds the .fvc directory by walking up from current directory
func FindFVCRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		fvcPath := filepath.Join(dir, FVCDir)
		if info, err := os.Stat(fvcPath); err == nil && info.IsDir() {
			return fvcPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not an fvc repository (or any parent up to root)")
		}
		dir = parent
	}
}

// Load loads the configuration from the .fvc directory
func Load() (*Config, error) {
	fvcPath, err := FindFVCRoot()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(fvcPath, ConfigFile)
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.path = fvcPath
	return &cfg, nil
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	configPath := filepath.Join(c.path, ConfigFile)
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// FVCPath returns the path to the .fvc directory
func (c *Config) FVCPath() string {
	return c.path
}

// RepoRoot returns the working-tree root (the parent of the .fvc directory)
func (c *Config) RepoRoot() string {
	return filepath.Dir(c.path)
}

// DatabasePath returns the path to the bbolt database
func (c *Config) DatabasePath() string {
	return filepath.Join(c.path, DatabaseFile)
}

// AuthorString renders the configured author as "Name <email>".
// Falls back to "unknown" when nothing is configured.
func (c *Config) AuthorString() string {
	switch {
	case c.Author.Name != "" && c.Author.Email != "":
		return fmt.Sprintf("%s <%s>", c.Author.Name, c.Author.Email)
	case c.Author.Name != "":
		return c.Author.Name
	default:
		return "unknown"
	}
}

// Initialize creates a new .fvc directory with initial configuration
func Initialize(author Author) (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	fvcPath := filepath.Join(cwd, FVCDir)

	// Check if already initialized
	if _, err := os.Stat(fvcPath); err == nil {
		return nil, fmt.Errorf("fvc repository already exists")
	}

	if err := os.MkdirAll(fvcPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .fvc directory: %w", err)
	}

	cfg := &Config{
		Author: author,
		path:   fvcPath,
	}

	if err := cfg.Save(); err != nil {
		// Cleanup on failure
		os.RemoveAll(fvcPath)
		return nil, err
	}

	return cfg, nil
}
