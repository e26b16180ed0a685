package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sigreer/ardenthat/internal/errors"
	"github.com/sigreer/ardenthat/internal/pipeline"
	"github.com/sigreer/ardenthat/internal/report"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Automatically set up required drivers",
	Long: `Detect hardware, plan the drivers that are missing and install them.
Kernel modules are loaded with modprobe and persisted for boot; anything
else is installed with pacman. The initramfs is rebuilt once if at least
one driver was actually installed.

Use --dry-run to print the plan without touching the system.`,
	Run: runSetup,
}

func init() {
	setupCmd.Flags().BoolP("dry-run", "d", false, "Run without making actual changes")
}

func runSetup(cmd *cobra.Command, args []string) {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	a := newApp(!dryRun)
	err := setup(context.Background(), a.pipeline, dryRun, os.Stdout)
	a.Close()

	if err != nil {
		fmt.Fprintln(os.Stderr, setupErrorMessage(err))
		os.Exit(1)
	}
}

// setup runs the pipeline and prints what it did to w. A failed run still
// prints the outcomes that were reached.
func setup(ctx context.Context, p *pipeline.Pipeline, dryRun bool, w io.Writer) error {
	rep, err := p.Setup(ctx, dryRun)
	if rep != nil {
		report.PrintPlan(w, rep.Result, rep.Finalized)
	}
	return err
}

// setupErrorMessage names the step a failed setup stopped at
func setupErrorMessage(err error) string {
	switch errors.GetErrorCode(err) {
	case errors.ErrInstall:
		driver, _ := errors.GetDetail(err, "driver")
		return fmt.Sprintf("Error installing driver %v: %v", driver, err)
	case errors.ErrFinalize:
		return fmt.Sprintf("Error regenerating boot image: %v", err)
	case errors.ErrBusy:
		return fmt.Sprintf("Error: %v", err)
	default:
		return fmt.Sprintf("Error running setup: %v", err)
	}
}
