package main

import (
	"fmt"

	"github.com/sigreer/ardenthat/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ardenthat %s\n", version.Version)
	},
}
