package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilupskalvis/fvc/internal/core"
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Manage remote servers",
	Long: `Manage the set of fvc-server remotes this repository syncs with.

Remote URLs have the form http(s)://host[:port]/<repo-name>. Access
tokens are stored locally and sent as bearer credentials.

Examples:
  fvc remote add origin https://fvc.example.com/myrepo
  fvc remote set-token origin
  fvc remote -v
  fvc remote info origin`,
	Run: runRemoteList,
}

var remoteVerbose bool

func init() {
	remoteCmd.Flags().BoolVarP(&remoteVerbose, "verbose", "v", false, "Show remote URLs")

	remoteCmd.AddCommand(remoteAddCmd)
	remoteCmd.AddCommand(remoteRemoveCmd)
	remoteCmd.AddCommand(remoteSetURLCmd)
	remoteCmd.AddCommand(remoteSetTokenCmd)
	remoteCmd.AddCommand(remoteInfoCmd)
}

func runRemoteList(cmd *cobra.Command, args []string) {
	c := initContextWithMigrations()
	defer c.Close()

	remotes, err := core.ListRemotes(c.Store)
	if err != nil {
		exitError("%v", err)
	}

	for _, r := range remotes {
		if remoteVerbose {
			fmt.Printf("%s\t%s\n", r.Name, r.URL)
		} else {
			fmt.Println(r.Name)
		}
	}
}

var remoteAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add a remote",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		c := initContextWithMigrations()
		defer c.Close()

		if err := core.AddRemote(c.Store, c.Bus, args[0], args[1]); err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Added remote '%s'\n", args[0])
	},
}

var remoteRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a remote",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := initContextWithMigrations()
		defer c.Close()

		if err := core.RemoveRemote(c.Store, c.Bus, args[0]); err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Removed remote '%s'\n", args[0])
	},
}

var remoteSetURLCmd = &cobra.Command{
	Use:   "set-url <name> <url>",
	Short: "Change a remote's URL",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		c := initContextWithMigrations()
		defer c.Close()

		if err := core.SetRemoteURL(c.Store, args[0], args[1]); err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Updated URL for remote '%s'\n", args[0])
	},
}

var remoteSetTokenCmd = &cobra.Command{
	Use:   "set-token <name> [token]",
	Short: "Store an access token for a remote",
	Long: `Store the bearer token used to authenticate against a remote. When the
token is not given as an argument it is read from standard input, so it
never lands in shell history.`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		c := initContextWithMigrations()
		defer c.Close()

		token := ""
		if len(args) == 2 {
			token = args[1]
		} else {
			fmt.Fprint(os.Stderr, "Token: ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				exitError("failed to read token: %v", err)
			}
			token = strings.TrimSpace(line)
		}
		if token == "" {
			exitError("token must not be empty")
		}

		if err := core.SetRemoteToken(c.Store, args[0], token); err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Stored token for remote '%s'\n", args[0])
	},
}

var remoteInfoCmd = &cobra.Command{
	Use:   "info [name]",
	Short: "Show repository statistics from a remote",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := initContextWithMigrations()
		defer c.Close()

		remoteName := ""
		if len(args) == 1 {
			remoteName = args[0]
		}

		client, remoteName, _ := resolveRemoteClient(c, remoteName, "")

		info, err := client.GetRepoInfo(context.Background())
		if err != nil {
			exitError("%v", err)
		}

		fmt.Printf("Remote '%s':\n", remoteName)
		fmt.Printf("  branches: %d\n", info.BranchCount)
		fmt.Printf("  commits:  %d\n", info.CommitCount)
		fmt.Printf("  blobs:    %d\n", info.TotalBlobs)
	},
}
