package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilupskalvis/fvc/internal/core"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [remote] [branch]",
	Short: "Download commits from a remote without touching local branches",
	Long: `Download new commits and their content from a remote. Only the
remote-tracking reference moves; local branches are left alone. Use
'fvc pull' to also fast-forward the local branch.`,
	Args: cobra.MaximumNArgs(2),
	Run:  runFetch,
}

func runFetch(cmd *cobra.Command, args []string) {
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

	result, err := core.Fetch(context.Background(), c.Store, client, c.Bus, core.FetchOptions{
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
	fmt.Printf("%s/%s is now at %s\n", remoteName, branch, shortID(result.RemoteTip))
}
