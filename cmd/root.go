package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// configFile is the optional YAML config path shared by all subcommands.
var configFile string

// rootCmd represents the base command for the mailai application
var rootCmd = &cobra.Command{
	Use:   "mailai",
	Short: "Gmail and LLM assistant backend for the Mail AI web client",
	Long: `mailai is the HTTP backend of the Mail AI web client.

It completes the Google OAuth sign-in, proxies Gmail read, send and modify
operations, and turns chat messages into structured assistant actions using an
OpenAI-compatible chat-completion provider such as OpenRouter.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mailai version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newAuthURLCmd())
}
