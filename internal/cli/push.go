package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilupskalvis/fvc/internal/core"
	"github.com/kilupskalvis/fvc/internal/remote"
)

var pushCmd = &cobra.Command{
	Use:   "push [remote] [branch]",
	Short: "Push commits to a remote",
	Long: `Upload local commits and their content to a remote, then move the
remote branch pointer. The remote rejects non-fast-forward updates
unless --force is given.

With a single remote configured and no arguments, pushes the current
branch to that remote.

Examples:
  fvc push                    # Current branch to the only remote
  fvc push origin feature     # Explicit remote and branch
  fvc push --force origin f   # Overwrite the remote branch
  fvc push --delete origin f  # Delete the remote branch`,
	Args: cobra.MaximumNArgs(2),
	Run:  runPush,
}

var (
	pushForce  bool
	pushDelete bool
)

func init() {
	pushCmd.Flags().BoolVarP(&pushForce, "force", "f", false, "Move the remote branch even when it is not an ancestor")
	pushCmd.Flags().BoolVar(&pushDelete, "delete", false, "Delete the branch on the remote")
}

// resolveRemoteClient builds an authenticated client for a remote,
// defaulting the remote to the only one configured and the branch to the
// current branch. Exits with a hint when no token is stored.
func resolveRemoteClient(c *cmdContext, remoteName, branch string) (remote.Client, string, string) {
	remoteName, branch, err := core.ResolveRemoteAndBranch(c.Store, remoteName, branch)
	if err != nil {
		exitError("%v", err)
	}

	r, err := core.GetRemote(c.Store, remoteName)
	if err != nil {
		exitError("%v", err)
	}

	token, err := core.GetRemoteToken(c.Store, remoteName)
	if err != nil {
		exitError("%v", err)
	}
	if token == "" {
		exitError("no token stored for remote '%s'; run 'fvc remote set-token %s'", remoteName, remoteName)
	}

	baseURL, repoName, err := core.ParseRemoteURL(r.URL)
	if err != nil {
		exitError("%v", err)
	}

	client := remote.NewRetryClient(remote.NewHTTPClient(baseURL, repoName, token), nil)
	return client, remoteName, branch
}

// transferProgress renders a single updating progress line.
func transferProgress(phase string, current, total int) {
	if total == 0 {
		return
	}
	fmt.Printf("\r  %s %d/%d", phase, current, total)
	if current == total {
		fmt.Println()
	}
}

func runPush(cmd *cobra.Command, args []string) {
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
	ctx := context.Background()

	if pushDelete {
		if err := core.DeleteRemoteBranch(ctx, c.Store, client, remoteName, branch); err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Deleted branch '%s' on '%s'\n", branch, remoteName)
		return
	}

	result, err := core.Push(ctx, c.Store, client, c.Bus, core.PushOptions{
		RemoteName: remoteName,
		Branch:     branch,
		Force:      pushForce,
	}, transferProgress)
	if err != nil {
		exitError("%v", err)
	}

	if result.UpToDate {
		fmt.Println("Everything up-to-date")
		return
	}
	if result.BranchCreated {
		fmt.Printf("* [new branch] %s\n", branch)
	}
	fmt.Printf("Pushed %d commit(s), %d blob(s) to '%s'\n", result.CommitsPushed, result.BlobsPushed, remoteName)
}
