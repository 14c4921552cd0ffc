package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/fvc/internal/core"
	"github.com/kilupskalvis/fvc/internal/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the working tree status",
	Long:  `Show staged changes, unstaged changes, and untracked files compared to HEAD.`,
	Run:   runStatus,
}

func runStatus(cmd *cobra.Command, args []string) {
	c := initContextWithMigrations()
	defer c.Close()

	report, err := core.Status(c.Store, c.Workspace)
	if err != nil {
		exitError("%v", err)
	}

	fmt.Printf("On branch %s\n", report.Branch)
	if report.HeadCommit == "" {
		fmt.Println("\nNo commits yet")
	}
	if report.MergeInProgress {
		fmt.Printf("\nYou are merging branch '%s'.\n", report.MergeBranch)
		fmt.Println("  (resolve conflicts and run \"fvc commit\" to conclude the merge)")
		fmt.Println("  (use \"fvc merge --abort\" to abandon it)")
	}

	if report.Clean() {
		fmt.Println("\nNothing to commit, working tree clean")
		return
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	cyan := color.New(color.FgCyan)

	if len(report.Staged) > 0 {
		fmt.Println("\nChanges to be committed:")
		cyan.Println("  (use \"fvc reset <file>\" to unstage)")
		fmt.Println()
		for _, sf := range report.Staged {
			green.Printf("        %s %s\n", changeLabel(sf.ChangeType), sf.Path)
		}
	}

	if len(report.Modified) > 0 || len(report.Deleted) > 0 {
		fmt.Println("\nChanges not staged for commit:")
		cyan.Println("  (use \"fvc add <file>\" to stage)")
		fmt.Println()
		for _, path := range report.Modified {
			red.Printf("        modified: %s\n", path)
		}
		for _, path := range report.Deleted {
			red.Printf("        deleted:  %s\n", path)
		}
	}

	if len(report.Untracked) > 0 {
		fmt.Println("\nUntracked files:")
		cyan.Println("  (use \"fvc add <file>\" to include in what will be committed)")
		fmt.Println()
		for _, path := range report.Untracked {
			red.Printf("        %s\n", path)
		}
	}

	fmt.Println()
	parts := []string{}
	if n := len(report.Staged); n > 0 {
		parts = append(parts, fmt.Sprintf("%d staged", n))
	}
	if n := len(report.Modified) + len(report.Deleted); n > 0 {
		parts = append(parts, fmt.Sprintf("%d unstaged", n))
	}
	if n := len(report.Untracked); n > 0 {
		parts = append(parts, fmt.Sprintf("%d untracked", n))
	}
	if len(parts) > 0 {
		fmt.Println(strings.Join(parts, ", "))
	}
}

// changeLabel renders a staged change type the way git status does.
func changeLabel(t models.ChangeType) string {
	switch t {
	case models.ChangeAdd:
		return "new file:"
	case models.ChangeDelete:
		return "deleted: "
	default:
		return "modified:"
	}
}
