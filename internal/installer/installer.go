// Package installer executes an installation plan against the host
package installer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
	"github.com/sigreer/ardenthat/internal/errors"
	"github.com/sigreer/ardenthat/internal/knowledge"
	"github.com/sigreer/ardenthat/internal/planner"
)

// State is the lifecycle position of a step
type State string

const (
	StatePending   State = "Pending"
	StateSucceeded State = "Succeeded"
	StateFailed    State = "Failed"
)

// Action records what a step did to the system
type Action string

const (
	ActionNone             Action = "none"
	ActionPreviewed        Action = "previewed"
	ActionModuleEnabled    Action = "module-enabled"
	ActionPackageInstalled Action = "package-installed"
	ActionAlreadyPresent   Action = "already-present"
)

// Outcome is the result of one plan step
type Outcome struct {
	Driver   string         `json:"driver" yaml:"driver"`
	Kind     knowledge.Kind `json:"kind" yaml:"kind"`
	State    State          `json:"state" yaml:"state"`
	Action   Action         `json:"action" yaml:"action"`
	Err      error          `json:"-" yaml:"-"`
	Duration time.Duration  `json:"duration" yaml:"duration"`
}

// Result aggregates the outcomes of a plan execution in plan order
type Result struct {
	Outcomes []Outcome
	// Applied counts steps that changed the system
	Applied int
	DryRun  bool
}

// Failed returns the failed outcome, or nil
func (r *Result) Failed() *Outcome {
	for i := range r.Outcomes {
		if r.Outcomes[i].State == StateFailed {
			return &r.Outcomes[i]
		}
	}
	return nil
}

// Succeeded reports whether every step succeeded
func (r *Result) Succeeded() bool {
	for _, o := range r.Outcomes {
		if o.State != StateSucceeded {
			return false
		}
	}
	return true
}

// Installer runs plan steps one at a time. Only one Execute may run per
// Installer, and non-dry runs also hold a machine-wide file lock.
type Installer struct {
	Modules  ModuleRegistry
	Packages PackageManager
	LockPath string
	Logger   zerolog.Logger

	mu sync.Mutex
}

// Execute applies plan in order. The first failing step stops the run:
// it is marked Failed, later steps stay Pending and are never attempted,
// and an INSTALL error naming the driver is returned with the partial
// result. Nothing already applied is rolled back. A dry run records a
// preview for every step and never touches the registry or packages.
func (in *Installer) Execute(ctx context.Context, plan *planner.Plan, dryRun bool) (*Result, error) {
	if !in.mu.TryLock() {
		return nil, errors.New(errors.ErrBusy, "an installation is already running")
	}
	defer in.mu.Unlock()

	if !dryRun && in.LockPath != "" {
		unlock, err := in.acquire()
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	if plan == nil {
		plan = &planner.Plan{}
	}
	res := &Result{Outcomes: make([]Outcome, plan.Len()), DryRun: dryRun}
	for i, step := range plan.Steps {
		res.Outcomes[i] = Outcome{Driver: step.Driver, Kind: step.Kind, State: StatePending, Action: ActionNone}
	}

	for i, step := range plan.Steps {
		out := &res.Outcomes[i]
		logger := in.Logger.With().Str("driver", step.Driver).Str("kind", string(step.Kind)).Logger()

		if dryRun {
			out.State = StateSucceeded
			out.Action = ActionPreviewed
			logger.Info().Msg("Would install driver")
			continue
		}

		start := time.Now()
		action, err := in.apply(ctx, step.Driver)
		out.Duration = time.Since(start)

		if err != nil {
			out.State = StateFailed
			out.Err = err
			logger.Error().Err(err).Msg("Driver installation failed")
			return res, errors.Wrapf(err, errors.ErrInstall, "failed to install driver %s", step.Driver).
				WithDetail("driver", step.Driver).
				WithDetail("step", i+1)
		}

		out.State = StateSucceeded
		out.Action = action
		if action != ActionAlreadyPresent {
			res.Applied++
		}
		logger.Info().Str("action", string(action)).Dur("duration", out.Duration).Msg("Driver step complete")
	}

	return res, nil
}

// apply brings one driver onto the system. Whether a driver is a kernel
// module is decided by the live module registry, not the plan's kind.
func (in *Installer) apply(ctx context.Context, driver string) (Action, error) {
	isModule, err := in.Modules.IsModule(ctx, driver)
	if err != nil {
		return ActionNone, err
	}

	if isModule {
		loaded, err := in.Modules.IsLoaded(ctx, driver)
		if err != nil {
			return ActionNone, err
		}
		if loaded {
			return ActionAlreadyPresent, nil
		}
		if err := in.Modules.Enable(ctx, driver); err != nil {
			return ActionNone, err
		}
		return ActionModuleEnabled, nil
	}

	installed, err := in.Packages.IsInstalled(ctx, driver)
	if err != nil {
		return ActionNone, err
	}
	if installed {
		return ActionAlreadyPresent, nil
	}
	if err := in.Packages.Install(ctx, driver); err != nil {
		return ActionNone, err
	}
	return ActionPackageInstalled, nil
}

func (in *Installer) acquire() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(in.LockPath), 0755); err != nil {
		return nil, errors.Wrap(err, errors.ErrBusy, "failed to create lock directory").
			WithDetail("path", in.LockPath)
	}

	fl := flock.New(in.LockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrBusy, "failed to acquire install lock").
			WithDetail("path", in.LockPath)
	}
	if !locked {
		return nil, errors.New(errors.ErrBusy, "another ardenthat setup is running").
			WithDetail("path", in.LockPath)
	}

	return func() {
		if err := fl.Unlock(); err != nil {
			in.Logger.Warn().Err(err).Str("path", in.LockPath).Msg("Failed to release install lock")
		}
	}, nil
}
