package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilupskalvis/fvc/internal/core"
)

var resetCmd = &cobra.Command{
	Use:   "reset [flags] [<revision> | <path>...]",
	Short: "Unstage changes or move the current branch",
	Long: `Without a mode flag, remove paths from the staging area. The working
tree is never touched in this form.

With --soft, --mixed, or --hard, move the current branch to the given
revision. Soft keeps the staging area and working tree, mixed clears the
staging area, and hard also rewrites the working tree to match the
target commit.

Examples:
  fvc reset                  # Unstage everything
  fvc reset notes.txt        # Unstage one file
  fvc reset --soft HEAD~1    # Undo the last commit, keep its changes staged
  fvc reset --hard HEAD~2    # Discard the last two commits entirely`,
	Run: runReset,
}

var (
	resetSoft  bool
	resetMixed bool
	resetHard  bool
)

func init() {
	resetCmd.Flags().BoolVar(&resetSoft, "soft", false, "Move the branch, keep staging area and working tree")
	resetCmd.Flags().BoolVar(&resetMixed, "mixed", false, "Move the branch and clear the staging area")
	resetCmd.Flags().BoolVar(&resetHard, "hard", false, "Move the branch and rewrite the working tree")
}

func runReset(cmd *cobra.Command, args []string) {
	c := initContextWithMigrations()
	defer c.Close()

	modeFlags := 0
	mode := core.ResetMixed
	if resetSoft {
		modeFlags++
		mode = core.ResetSoft
	}
	if resetMixed {
		modeFlags++
		mode = core.ResetMixed
	}
	if resetHard {
		modeFlags++
		mode = core.ResetHard
	}
	if modeFlags > 1 {
		exitError("--soft, --mixed, and --hard are mutually exclusive")
	}

	// Branch-moving form.
	if modeFlags == 1 {
		if len(args) > 1 {
			exitError("reset takes a single revision with --soft/--mixed/--hard")
		}
		ref := "HEAD"
		if len(args) == 1 {
			ref = args[0]
		}

		result, err := core.Reset(c.Store, c.Workspace, c.Bus, ref, mode)
		if err != nil {
			exitError("%v", err)
		}

		fmt.Printf("Branch '%s' is now at %s (%s reset)\n", result.Branch, shortID(result.TargetCommit), result.Mode)
		for _, w := range result.Warnings {
			fmt.Printf("  warning: %s\n", w)
		}
		return
	}

	// Unstage form.
	if len(args) == 0 {
		if err := core.UnstageAll(c.Store, c.Bus); err != nil {
			exitError("%v", err)
		}
		fmt.Println("Unstaged all changes")
		return
	}

	for _, path := range args {
		if err := core.Unstage(c.Store, c.Bus, path); err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Unstaged '%s'\n", path)
	}
}
