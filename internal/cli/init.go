package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilupskalvis/fvc/internal/config"
	"github.com/kilupskalvis/fvc/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new FVC repository",
	Long: `Create an empty FVC repository in the current directory.

A .fvc directory is created holding the configuration and the commit
database. The author name and email are recorded in every commit.

Examples:
  fvc init --name "Ada Lovelace" --email ada@example.com
  fvc init`,
	Run: runInit,
}

var (
	initAuthorName  string
	initAuthorEmail string
)

func init() {
	initCmd.Flags().StringVar(&initAuthorName, "name", "", "Author name recorded in commits")
	initCmd.Flags().StringVar(&initAuthorEmail, "email", "", "Author email recorded in commits")
}

func runInit(cmd *cobra.Command, args []string) {
	cfg, err := config.Initialize(config.Author{
		Name:  initAuthorName,
		Email: initAuthorEmail,
	})
	if err != nil {
		exitError("%v", err)
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		exitError("failed to create store: %v", err)
	}
	defer st.Close()

	if err := st.Initialize(); err != nil {
		exitError("failed to initialize store: %v", err)
	}

	fmt.Printf("Initialized empty FVC repository in %s\n", cfg.FVCPath())
	if initAuthorName == "" {
		fmt.Println("Hint: no author configured; edit .fvc/config to set one")
	}
}
