package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/fvc/internal/core"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show commit history",
	Long: `Show the commit history of the current branch, newest first.

Examples:
  fvc log            # Full history
  fvc log -n 5       # Last five commits
  fvc log --oneline  # One line per commit`,
	Run: runLog,
}

var (
	logLimit   int
	logOneline bool
)

func init() {
	logCmd.Flags().IntVarP(&logLimit, "max-count", "n", 0, "Limit the number of commits shown (0 = all)")
	logCmd.Flags().BoolVar(&logOneline, "oneline", false, "Show one commit per line")
}

func runLog(cmd *cobra.Command, args []string) {
	c := initContextWithMigrations()
	defer c.Close()

	commits, err := core.Log(c.Store, logLimit)
	if err != nil {
		exitError("%v", err)
	}

	if len(commits) == 0 {
		fmt.Println("No commits yet")
		return
	}

	yellow := color.New(color.FgYellow)

	for i, commit := range commits {
		if logOneline {
			yellow.Printf("%s", commit.ShortID())
			fmt.Printf(" %s\n", firstLine(commit.Message))
			continue
		}

		yellow.Printf("commit %s\n", commit.ID)
		if commit.Author != "" {
			fmt.Printf("Author: %s\n", commit.Author)
		}
		fmt.Printf("Date:   %s\n", commit.Timestamp.Local().Format("Mon Jan 2 15:04:05 2006 -0700"))
		fmt.Printf("\n    %s\n", commit.Message)
		if i < len(commits)-1 {
			fmt.Println()
		}
	}
}
