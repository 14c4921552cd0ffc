package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilupskalvis/fvc/internal/core"
)

var revertCmd = &cobra.Command{
	Use:   "revert <revision>",
	Short: "Create a commit that undoes an earlier commit",
	Long: `Create a new commit that reverses the changes introduced by the given
revision. History is never rewritten. The working tree must be clean,
and the revert is refused when any affected file was changed again
after the reverted commit.

Examples:
  fvc revert HEAD      # Undo the last commit
  fvc revert abc123    # Undo a specific commit`,
	Args: cobra.ExactArgs(1),
	Run:  runRevert,
}

func runRevert(cmd *cobra.Command, args []string) {
	c := initContextWithMigrations()
	defer c.Close()

	commit, err := core.Revert(c.Config, c.Store, c.Workspace, c.Bus, args[0])
	if err != nil {
		exitError("%v", err)
	}

	branch, _ := c.Store.GetCurrentBranch()
	fmt.Printf("[%s %s] %s\n", branch, commit.ShortID(), firstLine(commit.Message))
}
