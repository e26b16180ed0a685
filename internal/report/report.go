// Package report renders inventories and setup results for people and
// for machines
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/sigreer/ardenthat/internal/errors"
	"github.com/sigreer/ardenthat/internal/hardware"
	"github.com/sigreer/ardenthat/internal/installer"
	"github.com/sigreer/ardenthat/internal/inventory"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where report writes when no output is given
const DefaultPath = "ahd-report.txt"

// Format selects the serialization of a written report
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name. Empty selects JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", errors.Newf(errors.ErrReport, "unsupported report format %q", s)
	}
}

// Write serializes inv to w
func Write(w io.Writer, inv inventory.Inventory, format Format) error {
	if inv == nil {
		inv = inventory.Inventory{}
	}

	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(inv); err != nil {
			return errors.Wrap(err, errors.ErrReport, "failed to encode report")
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(inv); err != nil {
			return errors.Wrap(err, errors.ErrReport, "failed to encode report")
		}
		if err := enc.Close(); err != nil {
			return errors.Wrap(err, errors.ErrReport, "failed to encode report")
		}
	default:
		return errors.Newf(errors.ErrReport, "unsupported report format %q", format)
	}
	return nil
}

// WriteFile writes the report to path, creating parent directories, and
// returns the path written. An empty path selects DefaultPath.
func WriteFile(path string, inv inventory.Inventory, format Format) (string, error) {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", errors.Wrap(err, errors.ErrReport, "failed to create report directory").
				WithDetail("path", path)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrReport, "failed to create report file").
			WithDetail("path", path)
	}
	if err := Write(f, inv, format); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrap(err, errors.ErrReport, "failed to write report file").
			WithDetail("path", path)
	}
	return path, nil
}

var statusColors = map[hardware.DriverStatus]*color.Color{
	hardware.StatusInstalled:    color.New(color.FgGreen),
	hardware.StatusAvailable:    color.New(color.FgCyan),
	hardware.StatusNotInstalled: color.New(color.FgYellow),
	hardware.StatusUnknown:      color.New(color.Faint),
}

// PrintTable outputs the inventory as a formatted table
func PrintTable(w io.Writer, inv inventory.Inventory) {
	if len(inv) == 0 {
		fmt.Fprintln(w, "No hardware detected")
		return
	}

	fmt.Fprintf(w, "%-5s %-28s %-40s %-14s %s\n", "TYPE", "VENDOR", "MODEL", "STATUS", "DRIVER")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, c := range inv {
		driver := c.DriverName()
		if driver == "" {
			driver = "-"
		}
		// pad before coloring so escape codes do not break alignment
		status := fmt.Sprintf("%-14s", c.Status)
		if col, ok := statusColors[c.Status]; ok {
			status = col.Sprint(status)
		}
		fmt.Fprintf(w, "%-5s %-28s %-40s %s %s\n",
			c.DeviceType, truncate(c.Vendor, 28), truncate(c.Model, 40), status, driver)
	}

	counts := inv.Count()
	var parts []string
	for _, t := range []hardware.DeviceType{hardware.TypePCI, hardware.TypeUSB, hardware.TypeCPU} {
		if n := counts[t]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, t))
		}
	}
	fmt.Fprintf(w, "\n%d components (%s)\n", len(inv), strings.Join(parts, ", "))
}

// PrintPlan outputs the outcome of a setup run. Dry runs print one
// preview line per planned driver.
func PrintPlan(w io.Writer, res *installer.Result, finalized bool) {
	if res == nil || len(res.Outcomes) == 0 {
		fmt.Fprintln(w, "No driver changes required")
		return
	}

	if res.DryRun {
		for _, o := range res.Outcomes {
			fmt.Fprintf(w, "[Dry Run] Would install driver: %s (%s)\n", o.Driver, o.Kind)
		}
		return
	}

	for _, o := range res.Outcomes {
		switch o.State {
		case installer.StateSucceeded:
			fmt.Fprintf(w, "%s %s (%s): %s [%s]\n", color.GreenString("✓"), o.Driver, o.Kind, o.Action, o.Duration.Round(time.Millisecond))
		case installer.StateFailed:
			fmt.Fprintf(w, "%s %s (%s): %v\n", color.RedString("✗"), o.Driver, o.Kind, o.Err)
		default:
			fmt.Fprintf(w, "%s %s (%s): skipped\n", color.YellowString("-"), o.Driver, o.Kind)
		}
	}

	if finalized {
		fmt.Fprintln(w, "Boot image regenerated")
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
