package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilupskalvis/fvc/internal/core"
)

var addCmd = &cobra.Command{
	Use:   "add <path>...",
	Short: "Stage file changes for the next commit",
	Long: `Stage additions, modifications, and deletions for the next commit.

Examples:
  fvc add notes.txt      # Stage a single file
  fvc add docs/a.md b.md # Stage several files
  fvc add .              # Stage everything that changed`,
	Args: cobra.MinimumNArgs(1),
	Run:  runAdd,
}

func runAdd(cmd *cobra.Command, args []string) {
	c := initContextWithMigrations()
	defer c.Close()

	for _, arg := range args {
		if arg == "." {
			count, err := core.StageAll(c.Store, c.Workspace, c.Bus)
			if err != nil {
				exitError("%v", err)
			}
			if count == 0 {
				fmt.Println("Nothing to stage")
			} else {
				fmt.Printf("Staged %d change(s)\n", count)
			}
			return
		}
	}

	for _, path := range args {
		if err := core.StageFile(c.Store, c.Workspace, c.Bus, path); err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Staged '%s'\n", path)
	}
}
