package cli

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/fvc/internal/core"
)

var showCmd = &cobra.Command{
	Use:   "show [revision]",
	Short: "Show details of a commit",
	Long: `Show a commit's metadata and the files it tracks. The revision may be
a commit ID (full or abbreviated), a branch name, HEAD, or HEAD~N.
Defaults to HEAD.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runShow,
}

func runShow(cmd *cobra.Command, args []string) {
	c := initContextWithMigrations()
	defer c.Close()

	ref := "HEAD"
	if len(args) == 1 {
		ref = args[0]
	}

	commit, err := core.ShowCommit(c.Store, ref)
	if err != nil {
		exitError("%v", err)
	}

	yellow := color.New(color.FgYellow)
	yellow.Printf("commit %s\n", commit.ID)
	if commit.ParentID != "" {
		fmt.Printf("Parent: %s\n", shortID(commit.ParentID))
	}
	if commit.Author != "" {
		fmt.Printf("Author: %s\n", commit.Author)
	}
	fmt.Printf("Date:   %s\n", commit.Timestamp.Local().Format("Mon Jan 2 15:04:05 2006 -0700"))
	fmt.Printf("\n    %s\n\n", commit.Message)

	paths := make([]string, 0, len(commit.Files))
	for path := range commit.Files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	fmt.Printf("Files (%d):\n", len(paths))
	for _, path := range paths {
		fmt.Printf("  %s  %s\n", shortID(commit.Files[path]), path)
	}
}
