package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the rex version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("rex " + version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
