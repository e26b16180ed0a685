package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sigreer/ardenthat/internal/history"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent setup runs",
	Long: `List the setup runs recorded in the install journal, newest first.
Dry runs are not recorded.`,
	Run: runHistory,
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 10, "Number of runs to show")
	historyCmd.Flags().Bool("json", false, "Output as JSON")
}

func runHistory(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOut, _ := cmd.Flags().GetBool("json")

	cfg := loadConfig()
	j, err := history.Open(cfg.History.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening install journal: %v\n", err)
		os.Exit(1)
	}
	defer j.Close()

	runs, err := j.RecentRuns(limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading install journal: %v\n", err)
		j.Close()
		os.Exit(1)
	}

	if jsonOut {
		if runs == nil {
			runs = []*history.Run{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(runs); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
			j.Close()
			os.Exit(1)
		}
		return
	}

	if len(runs) == 0 {
		fmt.Printf("No setup runs recorded in %s\n", j.Path())
		return
	}

	fmt.Printf("%-10s %-16s %-10s %-9s %s\n", "RUN", "STARTED", "STATUS", "FINALIZED", "DRIVERS")
	fmt.Println(strings.Repeat("-", 80))
	for _, r := range runs {
		drivers := make([]string, 0, len(r.Steps))
		for _, s := range r.Steps {
			drivers = append(drivers, s.Driver+":"+s.Action)
		}
		finalized := "no"
		if r.Finalized {
			finalized = "yes"
		}
		fmt.Printf("%-10s %-16s %-10s %-9s %s\n",
			r.ID[:8], humanize.Time(r.StartedAt), r.Status, finalized, strings.Join(drivers, ", "))
		if r.Error != "" {
			fmt.Printf("           error: %s\n", r.Error)
		}
	}
}
