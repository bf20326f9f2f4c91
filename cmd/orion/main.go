package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	ephemeral  bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "orion",
	Short: "Orion is a chat workspace for analysing tabular data",
	Long: `Orion uploads CSV and Excel files to an analysis backend and lets you
ask questions about them in natural language. Conversations are kept as
chat threads and survive restarts for a limited time.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "Keep state in memory only")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at info level")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
