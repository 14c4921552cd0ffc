// Package cli implements the command-line interface for FVC.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilupskalvis/fvc/internal/config"
	"github.com/kilupskalvis/fvc/internal/events"
	"github.com/kilupskalvis/fvc/internal/store"
	"github.com/kilupskalvis/fvc/internal/workspace"
)

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config    *config.Config
	Store     *store.Store
	Workspace workspace.Workspace
	Bus       *events.Bus
}

// Close releases resources held by cmdContext
func (c *cmdContext) Close() {
	if c.Store != nil {
		c.Store.Close()
	}
}

// cliSink forwards warning and conflict events to the terminal. Info and
// error events are suppressed because commands render their own output
// and report their own failures.
type cliSink struct {
	inner events.Notifier
}

func (s cliSink) Notify(e events.Event) {
	if e.Kind == events.KindWarn || e.Kind == events.KindConflict {
		s.inner.Notify(e)
	}
}

// initContext initializes config, store, and workspace
func initContext() *cmdContext {
	cfg, err := config.Load()
	if err != nil {
		exitError("%v", err)
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		exitError("failed to open store: %v", err)
	}

	return &cmdContext{
		Config:    cfg,
		Store:     st,
		Workspace: workspace.NewDir(cfg.RepoRoot(), config.FVCDir),
		Bus:       events.NewBus(cliSink{inner: events.NewConsoleNotifier(os.Stderr)}),
	}
}

// initContextWithMigrations initializes the context and runs store migrations
func initContextWithMigrations() *cmdContext {
	ctx := initContext()

	if err := ctx.Store.RunMigrations(); err != nil {
		ctx.Close()
		exitError("failed to run migrations: %v", err)
	}

	return ctx
}

var rootCmd = &cobra.Command{
	Use:   "fvc",
	Short: "File Version Control",
	Long: `FVC (File Version Control) is a git-like tool for versioning a directory
of files. Stage changes, commit snapshots, branch and merge histories,
and sync with an fvc-server over HTTP.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(revertCmd)
	rootCmd.AddCommand(stashCmd)
	rootCmd.AddCommand(branchCmd)
	rootCmd.AddCommand(checkoutCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(mergeBaseCmd)
	rootCmd.AddCommand(remoteCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(completionCmd)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// shortID returns first 8 characters of an ID
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
