package cli

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/fvc/internal/core"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <branch>",
	Short: "Merge a branch into the current branch",
	Long: `Merge the named branch into the current branch.

When the current branch is an ancestor of the target the merge
fast-forwards. Otherwise a three-way merge runs against the common
ancestor; conflicting files are written to the working tree with
conflict markers and the merge stays open until resolved.

Examples:
  fvc merge feature        # Merge 'feature' into the current branch
  fvc merge --abort        # Abandon an in-progress merge`,
	Run: runMerge,
}

var mergeAbort bool

func init() {
	mergeCmd.Flags().BoolVar(&mergeAbort, "abort", false, "Abort the merge in progress")
}

func runMerge(cmd *cobra.Command, args []string) {
	c := initContextWithMigrations()
	defer c.Close()

	if mergeAbort {
		branch, err := core.AbortMerge(c.Store, c.Bus)
		if err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Merge of branch '%s' aborted\n", branch)
		return
	}

	if len(args) != 1 {
		exitError("merge takes exactly one branch name")
	}

	// A conflicted merge returns ErrConflict alongside its result; the
	// command still renders the summary and resolution guidance.
	result, err := core.MergeBranch(c.Store, c.Workspace, c.Bus, args[0])
	if mergeFatal(err) {
		exitError("%v", err)
	}

	switch {
	case result.UpToDate:
		fmt.Println("Already up to date.")
	case result.FastForward:
		head, _ := c.Store.GetHeadCommit()
		fmt.Printf("Fast-forwarded to %s\n", shortID(head))
	case result.Success:
		fmt.Printf("Merged branch '%s' (%d file(s) changed)\n", args[0], len(result.MergedFiles))
		fmt.Println("Run 'fvc commit' to conclude the merge.")
	default:
		// Conflict details were already printed as they were found.
		red := color.New(color.FgRed)
		red.Printf("\nAutomatic merge failed: %d conflict(s)\n", len(result.Conflicts))
		fmt.Println("Fix the conflicted files, 'fvc add' them, then 'fvc commit'.")
		fmt.Println("Use 'fvc merge --abort' to abandon the merge.")
	}

	for _, w := range result.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
}

// mergeFatal reports whether a merge error should abort the command.
// Conflicts do not: the merge stays open and the result still renders.
func mergeFatal(err error) bool {
	return err != nil && !errors.Is(err, core.ErrConflict)
}

var mergeBaseCmd = &cobra.Command{
	Use:   "merge-base <revision> <revision>",
	Short: "Find the common ancestor of two revisions",
	Args:  cobra.ExactArgs(2),
	Run:   runMergeBase,
}

func runMergeBase(cmd *cobra.Command, args []string) {
	c := initContextWithMigrations()
	defer c.Close()

	a, err := core.ResolveRef(c.Store, args[0])
	if err != nil {
		exitError("%v", err)
	}
	b, err := core.ResolveRef(c.Store, args[1])
	if err != nil {
		exitError("%v", err)
	}

	ancestor, err := core.FindCommonAncestor(c.Store, a, b)
	if err != nil {
		exitError("%v", err)
	}
	if ancestor == "" {
		exitError("no common ancestor between %s and %s", shortID(a), shortID(b))
	}
	fmt.Println(ancestor)
}
