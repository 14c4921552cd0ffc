package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/fvc/internal/core"
)

var branchCmd = &cobra.Command{
	Use:   "branch [name] [start-point]",
	Short: "List, create, rename, or delete branches",
	Long: `Manage branches in the FVC repository.

Without arguments, lists all branches.
With a name argument, creates a new branch at HEAD.

Examples:
  fvc branch                 # List all branches
  fvc branch feature         # Create 'feature' branch at HEAD
  fvc branch feature abc123  # Create 'feature' branch at commit abc123
  fvc branch -m old new      # Rename 'old' to 'new'
  fvc branch -d feature      # Delete 'feature' branch`,
	Run: runBranch,
}

var (
	branchDelete      bool
	branchForceDelete bool
	branchRename      bool
)

func init() {
	branchCmd.Flags().BoolVarP(&branchDelete, "delete", "d", false, "Delete a branch")
	branchCmd.Flags().BoolVarP(&branchForceDelete, "force", "D", false, "Force delete a branch")
	branchCmd.Flags().BoolVarP(&branchRename, "move", "m", false, "Rename a branch")
}

func runBranch(cmd *cobra.Command, args []string) {
	c := initContextWithMigrations()
	defer c.Close()

	st := c.Store

	// Rename branch
	if branchRename {
		if len(args) != 2 {
			exitError("branch rename takes exactly two names: old and new")
		}
		if err := core.RenameBranch(st, c.Bus, args[0], args[1]); err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Renamed branch '%s' to '%s'\n", args[0], args[1])
		return
	}

	// Delete branch
	if branchDelete || branchForceDelete {
		if len(args) == 0 {
			exitError("branch name required for deletion")
		}
		if err := core.DeleteBranch(st, c.Bus, args[0], branchForceDelete); err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Deleted branch '%s'\n", args[0])
		return
	}

	// Create branch
	if len(args) > 0 {
		name := args[0]

		if len(args) > 1 {
			commitID, err := core.ResolveRef(st, args[1])
			if err != nil {
				exitError("%v", err)
			}
			if err := core.CreateBranchFromCommit(st, c.Bus, name, commitID); err != nil {
				exitError("%v", err)
			}
			fmt.Printf("Created branch '%s' at %s\n", name, shortID(commitID))
			return
		}

		if err := core.CreateBranch(st, c.Bus, name); err != nil {
			exitError("%v", err)
		}
		head, _ := core.GetBranchHead(st, name)
		if head != "" {
			fmt.Printf("Created branch '%s' at %s\n", name, shortID(head))
		} else {
			fmt.Printf("Created branch '%s'\n", name)
		}
		return
	}

	// List branches
	branches, currentBranch, err := core.ListBranches(st)
	if err != nil {
		exitError("failed to list branches: %v", err)
	}

	if len(branches) == 0 {
		fmt.Println("No branches yet")
		return
	}

	green := color.New(color.FgGreen)
	for _, branch := range branches {
		if branch.Name == currentBranch {
			green.Printf("* %s\n", branch.Name)
		} else {
			fmt.Printf("  %s\n", branch.Name)
		}
	}
}
