package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petrijr/advisa"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of advisa",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("advisa version %s\n", advisa.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
