package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sigreer/ardenthat/internal/report"
	"github.com/spf13/cobra"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect all hardware components",
	Long: `Scan PCI, USB and CPU information and show every detected component
with the driver state ArdentHAT derives for it. Nothing is changed.`,
	Run: runDetect,
}

func init() {
	detectCmd.Flags().Bool("json", false, "Output as JSON")
}

func runDetect(cmd *cobra.Command, args []string) {
	jsonOut, _ := cmd.Flags().GetBool("json")

	a := newApp(false)
	defer a.Close()

	inv := a.pipeline.Detect(context.Background())

	if jsonOut {
		if err := report.Write(os.Stdout, inv, report.FormatJSON); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
			os.Exit(1)
		}
		return
	}
	report.PrintTable(os.Stdout, inv)
}
