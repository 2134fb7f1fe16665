package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	apiKeyFlag string
	rootCmd    = &cobra.Command{
		Use:   "repo-migrator",
		Short: "Bulk repository migration orchestrator",
		Long: `repo-migrator drives repositories from their 0.x release line to the 1.x
API. It assembles a token-budgeted context from each repository, asks an
LLM for a migration plan, commits the plan to a fixed migration branch,
hands the repository to an external executor, and pushes the result.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&apiKeyFlag, "api-key", "", "LLM API key (overrides OPENAI_API_KEY)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
