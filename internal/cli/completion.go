package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for geoedit.

Bash:
  $ source <(geoedit completion bash)

Zsh:
  $ geoedit completion zsh > "${fpath[1]}/_geoedit"

Fish:
  $ geoedit completion fish > ~/.config/fish/completions/geoedit.fish

PowerShell:
  PS> geoedit completion powershell | Out-String | Invoke-Expression
`,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		DisableFlagsInUseLine: true,
		Run: func(cmd *cobra.Command, args []string) {
			var err error
			switch args[0] {
			case "bash":
				err = rootCmd.GenBashCompletionV2(os.Stdout, true)
			case "zsh":
				err = rootCmd.GenZshCompletion(os.Stdout)
			case "fish":
				err = rootCmd.GenFishCompletion(os.Stdout, true)
			case "powershell":
				err = rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
			}
			if err != nil {
				exitError("%v", err)
			}
		},
	})
}
