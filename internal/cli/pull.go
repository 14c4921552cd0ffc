package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilupskalvis/fvc/internal/core"
)

var pullCmd = &cobra.Command{
	Use:   "pull [remote] [branch]",
	Short: "Fetch from a remote and fast-forward the local branch",
	Long: `Download new commits from a remote and advance the matching local
branch. Only fast-forward updates are applied; when histories have
diverged the fetch still completes and the merge is left to you.

Examples:
  fvc pull               # Current branch from the only remote
  fvc pull origin main   # Explicit remote and branch`,
	Args: cobra.MaximumNArgs(2),
	Run:  runPull,
}

func runPull(cmd *cobra.Command, args []string) {
	c := initContextWithMigrations()
	defer c.Close()

	remoteName, branch := "", ""
	if len(args) > 0 {
		remoteName = args[0]
	}
	if len(args) > 1 {
		branch = args[1]
	}

	client, remoteName, branch := resolveRemoteClient(c, remoteName, branch)

	result, err := core.Pull(context.Background(), c.Store, c.Workspace, client, c.Bus, core.PullOptions{
		RemoteName: remoteName,
		Branch:     branch,
	}, transferProgress)
	if err != nil {
		exitError("%v", err)
	}

	if result.UpToDate {
		fmt.Println("Already up to date.")
		return
	}

	fmt.Printf("Fetched %d commit(s), %d blob(s) from '%s'\n", result.CommitsFetched, result.BlobsFetched, remoteName)
	switch {
	case result.Diverged:
		fmt.Printf("Local branch '%s' has diverged from the remote.\n", branch)
		fmt.Println("Merge the changes by hand, or reset to the remote tip.")
	case result.FastForward:
		fmt.Printf("Fast-forwarded '%s' to %s\n", branch, shortID(result.RemoteTip))
	}
}
