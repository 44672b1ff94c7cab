package main

import (
	"fmt"
	"os"

	"github.com/brizzai/searchkit/internal/config"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func main() {
	Execute()
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "searchkit",
	Short: "Search API client, secured key signer and MCP server",
	Long: `searchkit talks to a hosted search REST API.
It can send raw requests, derive secured API keys locally and serve both
operations as MCP tools over stdio, SSE or streamable HTTP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// Place version check in PreRun to ensure flags are parsed first
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			pterm.Info.Println(config.GetVersionInfo())
			os.Exit(0)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.WithWriter(os.Stderr).Println(err)
		os.Exit(1)
	}
}

func init() {
	config.InitFlags(rootCmd.PersistentFlags())
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")

	rootCmd.AddCommand(
		newRequestCmd(),
		newSecuredKeyCmd(),
		newServeCmd(),
		newToolsCmd(),
		newVersionCmd(),
	)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), config.GetVersionInfo())
		},
	}
}
