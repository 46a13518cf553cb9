package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion <shell>",
	Short: "Print shell completions for sonata-verify",
	Long: `Print the shell tab-completion script for sonata-verify commands and flags.

Supported shells: bash, zsh, fish, powershell

Load completions in the current session:

  eval "$(sonata-verify completion bash)"
  eval "$(sonata-verify completion zsh)"
  sonata-verify completion fish | source
  sonata-verify completion powershell | Out-String | Invoke-Expression`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MaximumNArgs(1),
	RunE:      runCompletion,
}

func init() {
	// Remove Cobra's default completion command and add ours.
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(completionCmd)
}

func runCompletion(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}

	// Hints go to stderr so they don't interfere with piping the script.
	out := cmd.OutOrStdout()
	switch shell := args[0]; shell {
	case "bash":
		printHints(cmd, `#   eval "$(sonata-verify completion bash)"`)
		return rootCmd.GenBashCompletionV2(out, true)
	case "zsh":
		printHints(cmd, `#   eval "$(sonata-verify completion zsh)"`)
		return rootCmd.GenZshCompletion(out)
	case "fish":
		printHints(cmd, "#   sonata-verify completion fish | source")
		return rootCmd.GenFishCompletion(out, true)
	case "powershell":
		printHints(cmd, "#   sonata-verify completion powershell | Out-String | Invoke-Expression")
		return rootCmd.GenPowerShellCompletionWithDesc(out)
	default:
		return fmt.Errorf("unsupported shell %q (supported: bash, zsh, fish, powershell)", shell)
	}
}

func printHints(cmd *cobra.Command, load string) {
	w := cmd.ErrOrStderr()
	_, _ = fmt.Fprintln(w, "# To load completions in your current session:")
	_, _ = fmt.Fprintln(w, load)
}
