package handlers

import (
	"fmt"
	"os"

	"newsbrief/internal/config"

	"github.com/spf13/cobra"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "newsbrief",
		Short: "Newsbrief turns newsletter emails into ranked per-topic article digests.",
		Long: `Newsbrief fetches newsletter emails from your inbox, extracts the
articles they mention, removes near-duplicates across the batch, scores every
article against your configured topics and writes a ranked digest per topic.`,
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.newsbrief.yaml)")

	rootCmd.AddCommand(NewRunCmd())
	rootCmd.AddCommand(NewArticlesCmd())
	rootCmd.AddCommand(NewExpandCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if _, err := config.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
}
