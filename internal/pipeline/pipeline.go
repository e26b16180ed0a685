// Package pipeline wires detection, resolution, planning, installation
// and finalization into the three user-facing operations. A Pipeline
// carries everything one invocation needs; there is no package state.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sigreer/ardenthat/internal/errors"
	"github.com/sigreer/ardenthat/internal/finalizer"
	"github.com/sigreer/ardenthat/internal/history"
	"github.com/sigreer/ardenthat/internal/installer"
	"github.com/sigreer/ardenthat/internal/inventory"
	"github.com/sigreer/ardenthat/internal/planner"
	"github.com/sigreer/ardenthat/internal/report"
	"github.com/sigreer/ardenthat/internal/resolver"
)

// Scanner produces a fresh inventory
type Scanner interface {
	Scan(ctx context.Context) inventory.Inventory
}

// Executor applies a plan, or only previews it when dryRun is set
type Executor interface {
	Execute(ctx context.Context, plan *planner.Plan, dryRun bool) (*installer.Result, error)
}

// Finalizer rebuilds the boot image
type Finalizer interface {
	Finalize(ctx context.Context) error
}

// Journal records setup runs
type Journal interface {
	RecordRun(run *history.Run) error
}

// Pipeline holds the components of one invocation. Installer, Finalizer
// and Journal may be nil for read-only use; Journal is optional for
// setup too.
type Pipeline struct {
	Scanner   Scanner
	Resolver  *resolver.Resolver
	Installer Executor
	Finalizer Finalizer
	Journal   Journal
	Logger    zerolog.Logger
}

// SetupReport describes what a setup run saw and did
type SetupReport struct {
	Inventory inventory.Inventory
	Plan      *planner.Plan
	Result    *installer.Result
	Finalized bool
	DryRun    bool
}

// Detect scans the hardware and annotates each component with what is
// known about its driver. It never changes the system.
func (p *Pipeline) Detect(ctx context.Context) inventory.Inventory {
	return p.Resolver.Annotate(p.Scanner.Scan(ctx))
}

// Setup detects hardware, plans the missing drivers and applies them.
// The boot image is rebuilt once, only when a real run changed the
// system and every step succeeded. Real runs are journaled.
func (p *Pipeline) Setup(ctx context.Context, dryRun bool) (*SetupReport, error) {
	start := time.Now()

	inv := p.Scanner.Scan(ctx)
	reqs := p.Resolver.ResolveAll(inv)
	plan := planner.Build(reqs)

	p.Logger.Info().
		Int("components", len(inv)).
		Int("requirements", len(reqs)).
		Strs("drivers", plan.Drivers()).
		Bool("dryRun", dryRun).
		Msg("Installation plan built")

	rep := &SetupReport{Inventory: inv, Plan: plan, DryRun: dryRun}

	res, err := p.Installer.Execute(ctx, plan, dryRun)
	rep.Result = res
	if err != nil {
		if !errors.IsErrorCode(err, errors.ErrBusy) {
			p.record(start, res, err, false, dryRun)
		}
		return rep, err
	}

	if finalizer.ShouldRun(res, dryRun) {
		if err := p.Finalizer.Finalize(ctx); err != nil {
			p.record(start, res, err, false, dryRun)
			return rep, err
		}
		rep.Finalized = true
	} else {
		p.Logger.Debug().Int("applied", res.Applied).Msg("Skipping boot image regeneration")
	}

	p.record(start, res, nil, rep.Finalized, dryRun)
	return rep, nil
}

// Report detects hardware and writes the annotated inventory to path,
// returning the path written
func (p *Pipeline) Report(ctx context.Context, path string, format report.Format) (string, error) {
	inv := p.Detect(ctx)
	written, err := report.WriteFile(path, inv, format)
	if err != nil {
		return "", err
	}
	p.Logger.Info().Str("path", written).Int("components", len(inv)).Msg("Report written")
	return written, nil
}

func (p *Pipeline) record(start time.Time, res *installer.Result, runErr error, finalized, dryRun bool) {
	if p.Journal == nil || dryRun {
		return
	}
	run := history.NewRun(start, res, runErr, finalized)
	if err := p.Journal.RecordRun(run); err != nil {
		p.Logger.Warn().
			Err(err).
			Str("code", string(errors.ErrHistory)).
			Msg("Failed to record setup run")
	}
}
