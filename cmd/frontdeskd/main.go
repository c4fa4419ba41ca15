// Frontdeskd is the human-in-the-loop front desk daemon: an AI agent
// answers calls from learned knowledge, escalates what it cannot answer
// to a human supervisor, and learns from every resolution.
//
// Usage:
//
//	# Start the daemon (dashboard API, notification fan-out, sweeper)
//	frontdeskd serve
//
//	# Seed starter knowledge and a sample help request
//	frontdeskd seed
//
//	# Talk to the agent on stdin (one utterance per line)
//	frontdeskd agent --contact "+1-555-0001"
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "frontdeskd",
	Short: "Human-in-the-loop AI front desk daemon",
	Long: `frontdeskd runs an AI receptionist that answers what it knows,
escalates what it doesn't to a human supervisor, and learns from every
supervisor answer.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("frontdeskd by Fyrsmith Labs\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (YAML)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(versionCmd)
}
