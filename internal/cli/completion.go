package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for fvc.

To load completions:

Bash:
  $ source <(fvc completion bash)
  # Or add to ~/.bashrc:
  $ echo 'source <(fvc completion bash)' >> ~/.bashrc

Zsh:
  $ source <(fvc completion zsh)
  # Or add to ~/.zshrc:
  $ echo 'source <(fvc completion zsh)' >> ~/.zshrc

Fish:
  $ fvc completion fish | source
  # Or add to config:
  $ fvc completion fish > ~/.config/fish/completions/fvc.fish
`,
	ValidArgs:             []string{"bash", "zsh", "fish"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	DisableFlagsInUseLine: true,
	Run: func(cmd *cobra.Command, args []string) {
		switch args[0] {
		case "bash":
			rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			rootCmd.GenFishCompletion(os.Stdout, true)
		}
	},
}
