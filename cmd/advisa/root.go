package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "advisa",
	Short: "Advisa is a conversational process-analysis assistant",
	Long: `Advisa analyzes documented business processes: it answers questions,
finds documentation gaps, computes metrics and generates improvement
recommendations, keeping a durable per-thread conversation state.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to the YAML configuration file")
}
