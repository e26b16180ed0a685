// Package inventory merges parsed source output into the canonical,
// deduplicated list of hardware components.
package inventory

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sigreer/ardenthat/internal/errors"
	"github.com/sigreer/ardenthat/internal/hardware"
	"github.com/sigreer/ardenthat/internal/logging"
	"github.com/sigreer/ardenthat/internal/probe"
	"github.com/sigreer/ardenthat/internal/sources"
	"github.com/sigreer/ardenthat/internal/system"
)

// Inventory is an ordered list of unique components
type Inventory []hardware.Component

// Count returns the number of components of each device type
func (inv Inventory) Count() map[hardware.DeviceType]int {
	counts := make(map[hardware.DeviceType]int)
	for _, c := range inv {
		counts[c.DeviceType]++
	}
	return counts
}

// Aggregate parses each successful probe result with its source parser and
// merges the components in probe order. Components sharing an identity
// collapse into one entry kept at the position of the first occurrence,
// holding whichever record has the higher status rank; ties keep the
// first. Failed results are skipped.
func Aggregate(results []probe.Result, logger zerolog.Logger) Inventory {
	out := Inventory{}
	index := make(map[hardware.Identity]int)

	for _, res := range results {
		if res.Err != nil {
			logger.Warn().
				Err(res.Err).
				Str("code", string(errors.ErrProbe)).
				Str("source", res.Source.Name()).
				Msg("Skipping source")
			continue
		}
		if res.Source.Parser == nil {
			continue
		}

		for _, c := range res.Source.Parser.Parse(res.Raw) {
			id := c.Identity()
			pos, seen := index[id]
			if !seen {
				index[id] = len(out)
				out = append(out, c)
				continue
			}
			if c.Status.Rank() > out[pos].Status.Rank() {
				out[pos] = c
			}
		}
	}
	return out
}

// Scanner runs the detection half of the pipeline
type Scanner struct {
	Runner  system.Runner
	Sources []sources.Source
	Timeout time.Duration
	Logger  zerolog.Logger
}

// Scan probes every source and returns the aggregated inventory. Probe
// failures are logged and never returned.
func (s *Scanner) Scan(ctx context.Context) Inventory {
	defer logging.LogDuration(s.Logger, time.Now(), "scan")

	results := probe.Run(ctx, s.Runner, s.Sources, s.Timeout, s.Logger)
	inv := Aggregate(results, s.Logger)

	s.Logger.Info().
		Int("components", len(inv)).
		Int("sources", len(s.Sources)).
		Msg("Hardware scan complete")
	return inv
}
