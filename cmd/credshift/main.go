// credshift — credential profile switcher for AI CLI tools.
package main

import (
	"fmt"
	"os"

	"github.com/credshift/credshift/cmd/credshift/cli"
	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "credshift",
		Short: "credshift — credential profile switcher for AI CLI tools",
		Long: `credshift keeps named credential profiles for AI coding tools (Claude Code,
Codex CLI, Gemini CLI) and switches each tool between them. Activating a
profile writes its credentials into the tool's real configuration surface;
one profile per tool family is active at a time.`,
		Version:      version,
		SilenceUsage: true,
	}

	// Register command groups
	cli.RegisterProfileCommands(rootCmd)
	cli.RegisterActivationCommands(rootCmd)
	cli.RegisterFamilyCommands(rootCmd)
	cli.RegisterMergeCommands(rootCmd)
	cli.RegisterStatusCommands(rootCmd)
	cli.RegisterAuditCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
