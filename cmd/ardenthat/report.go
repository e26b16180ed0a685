package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sigreer/ardenthat/internal/config"
	"github.com/sigreer/ardenthat/internal/pipeline"
	"github.com/sigreer/ardenthat/internal/report"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a hardware report",
	Long: `Detect hardware and write the inventory to a file.

Examples:
  ardenthat report                         # ahd-report.txt, JSON
  ardenthat report -o hw.yaml --format yaml`,
	Run: runReport,
}

func init() {
	reportCmd.Flags().StringP("output", "o", "", "Output file (default: ahd-report.txt)")
	reportCmd.Flags().String("format", "", "Output format: json, yaml (default from config)")
}

func runReport(cmd *cobra.Command, args []string) {
	output, _ := cmd.Flags().GetString("output")
	formatName, _ := cmd.Flags().GetString("format")

	a := newApp(false)
	path, err := writeReport(context.Background(), a.pipeline, a.cfg.Report, output, formatName)
	a.Close()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Report generated at: %s\n", path)
}

// writeReport fills output and format from defaults when the flags are
// empty and writes the report
func writeReport(ctx context.Context, p *pipeline.Pipeline, defaults config.Report, output, formatName string) (string, error) {
	if output == "" {
		output = defaults.Path
	}
	if formatName == "" {
		formatName = defaults.Format
	}
	format, err := report.ParseFormat(formatName)
	if err != nil {
		return "", err
	}
	return p.Report(ctx, output, format)
}
