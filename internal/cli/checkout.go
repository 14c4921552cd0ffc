package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilupskalvis/fvc/internal/core"
)

var checkoutCmd = &cobra.Command{
	Use:     "checkout <branch> | <revision> <path>",
	Aliases: []string{"switch"},
	Short:   "Switch branches or restore a file",
	Long: `Switch to a branch and rewrite the working tree to match its head
commit, or restore a single file from an arbitrary revision.

Examples:
  fvc checkout feature           # Switch to 'feature'
  fvc checkout -b feature        # Create 'feature' at HEAD and switch to it
  fvc checkout --force main      # Switch even with uncommitted changes
  fvc checkout HEAD~1 notes.txt  # Restore notes.txt from the previous commit`,
	Args: cobra.RangeArgs(1, 2),
	Run:  runCheckout,
}

var (
	checkoutCreate bool
	checkoutForce  bool
)

func init() {
	checkoutCmd.Flags().BoolVarP(&checkoutCreate, "branch", "b", false, "Create the branch before switching")
	checkoutCmd.Flags().BoolVarP(&checkoutForce, "force", "f", false, "Discard uncommitted changes")
}

func runCheckout(cmd *cobra.Command, args []string) {
	c := initContextWithMigrations()
	defer c.Close()

	// File-restore form.
	if len(args) == 2 {
		if checkoutCreate {
			exitError("-b cannot be combined with a file restore")
		}
		if err := core.CheckoutFile(c.Store, c.Workspace, c.Bus, args[0], args[1]); err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Restored '%s' from %s\n", args[1], args[0])
		return
	}

	result, err := core.Checkout(c.Store, c.Workspace, c.Bus, args[0], core.CheckoutOptions{
		Force:        checkoutForce,
		CreateBranch: checkoutCreate,
	})
	if err != nil {
		exitError("%v", err)
	}

	fmt.Printf("Switched to branch '%s'\n", result.Branch)
	for _, w := range result.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
}
