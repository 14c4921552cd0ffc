package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilupskalvis/fvc/internal/core"
)

var stashCmd = &cobra.Command{
	Use:   "stash",
	Short: "Set aside uncommitted changes",
	Long: `Save staged and unstaged changes away and restore the working tree to
HEAD. Stashed changes can be reapplied later, on the same branch or
another one.

Examples:
  fvc stash push -m "half-done"  # Save changes with a message
  fvc stash                      # Same as 'fvc stash push'
  fvc stash list                 # Show saved stashes
  fvc stash pop                  # Reapply and drop the latest stash
  fvc stash apply <id>           # Reapply a specific stash, keep it
  fvc stash drop                 # Discard the latest stash`,
	Args: cobra.NoArgs,
	Run:  runStashPush,
}

var stashMessage string

func init() {
	stashPushCmd.Flags().StringVarP(&stashMessage, "message", "m", "", "Description for the stash entry")
	stashCmd.Flags().StringVarP(&stashMessage, "message", "m", "", "Description for the stash entry")

	stashCmd.AddCommand(stashPushCmd)
	stashCmd.AddCommand(stashApplyCmd)
	stashCmd.AddCommand(stashPopCmd)
	stashCmd.AddCommand(stashListCmd)
	stashCmd.AddCommand(stashDropCmd)
}

var stashPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Save uncommitted changes to the stash",
	Args:  cobra.NoArgs,
	Run:   runStashPush,
}

func runStashPush(cmd *cobra.Command, args []string) {
	c := initContextWithMigrations()
	defer c.Close()

	entry, err := core.StashPush(c.Store, c.Workspace, c.Bus, stashMessage)
	if err != nil {
		exitError("%v", err)
	}
	fmt.Printf("Saved working tree state on %s: %s\n", entry.Branch, entry.Message)
}

var stashApplyCmd = &cobra.Command{
	Use:   "apply [id]",
	Short: "Reapply a stash entry, keeping it in the stash",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runStashApply(args, false)
	},
}

var stashPopCmd = &cobra.Command{
	Use:   "pop [id]",
	Short: "Reapply a stash entry and drop it",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runStashApply(args, true)
	},
}

func runStashApply(args []string, pop bool) {
	c := initContextWithMigrations()
	defer c.Close()

	id := ""
	if len(args) == 1 {
		id = args[0]
	}

	entry, err := core.StashApply(c.Store, c.Workspace, c.Bus, id, pop)
	if err != nil {
		exitError("%v", err)
	}
	fmt.Printf("Applied stash: %s\n", entry.Message)
	if pop {
		fmt.Printf("Dropped stash entry %s\n", shortID(entry.ID))
	}
}

var stashListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stash entries, newest first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		c := initContextWithMigrations()
		defer c.Close()

		entries, err := core.StashList(c.Store)
		if err != nil {
			exitError("%v", err)
		}

		for _, e := range entries {
			extra := []string{}
			if len(e.Files) > 0 {
				extra = append(extra, fmt.Sprintf("%d file(s)", len(e.Files)))
			}
			if len(e.Deleted) > 0 {
				extra = append(extra, fmt.Sprintf("%d deletion(s)", len(e.Deleted)))
			}
			fmt.Printf("%s  on %s: %s (%s)\n", shortID(e.ID), e.Branch, e.Message, strings.Join(extra, ", "))
		}
	},
}

var stashDropCmd = &cobra.Command{
	Use:   "drop [id]",
	Short: "Discard a stash entry without applying it",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := initContextWithMigrations()
		defer c.Close()

		id := ""
		if len(args) == 1 {
			id = args[0]
		}

		entry, err := core.StashDrop(c.Store, c.Bus, id)
		if err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Dropped stash: %s\n", entry.Message)
	},
}
