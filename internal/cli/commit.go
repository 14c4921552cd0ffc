package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilupskalvis/fvc/internal/core"
)

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Record staged changes as a new commit",
	Long: `Create a commit from the staging area on the current branch.

Examples:
  fvc commit -m "Fix typo in README"
  fvc commit -a -m "Checkpoint"   # Stage all changes first`,
	Run: runCommit,
}

var (
	commitMessage string
	commitAll     bool
)

func init() {
	commitCmd.Flags().StringVarP(&commitMessage, "message", "m", "", "Commit message (required)")
	commitCmd.Flags().BoolVarP(&commitAll, "all", "a", false, "Stage all changes before committing")
	commitCmd.MarkFlagRequired("message")
}

func runCommit(cmd *cobra.Command, args []string) {
	c := initContextWithMigrations()
	defer c.Close()

	if commitAll {
		if _, err := core.StageAll(c.Store, c.Workspace, c.Bus); err != nil {
			exitError("%v", err)
		}
	}

	commit, err := core.CreateCommit(c.Config, c.Store, c.Bus, commitMessage)
	if err != nil {
		exitError("%v", err)
	}

	branch, _ := c.Store.GetCurrentBranch()
	fmt.Printf("[%s %s] %s\n", branch, commit.ShortID(), firstLine(commit.Message))
	fmt.Printf(" %d file(s) tracked\n", commit.FileCount())
}

// firstLine returns the summary line of a commit message.
func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
