// Package finalizer regenerates the boot image after drivers were applied
package finalizer

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sigreer/ardenthat/internal/errors"
	"github.com/sigreer/ardenthat/internal/installer"
	"github.com/sigreer/ardenthat/internal/system"
)

// DefaultCommand rebuilds every initramfs preset
var DefaultCommand = []string{"sudo", "mkinitcpio", "-P"}

// Finalizer runs the boot-image builder
type Finalizer struct {
	Runner  system.Runner
	Command []string
	Logger  zerolog.Logger
}

// ShouldRun reports whether the boot image must be rebuilt: a real run in
// which every step succeeded and at least one changed the system.
func ShouldRun(res *installer.Result, dryRun bool) bool {
	if dryRun || res == nil || res.DryRun {
		return false
	}
	return len(res.Outcomes) > 0 && res.Succeeded() && res.Applied > 0
}

// Finalize invokes the boot-image command once
func (f *Finalizer) Finalize(ctx context.Context) error {
	cmd := f.Command
	if len(cmd) == 0 {
		cmd = DefaultCommand
	}

	start := time.Now()
	f.Logger.Info().Strs("command", cmd).Msg("Regenerating boot image")

	if _, err := system.RunArgv(ctx, f.Runner, cmd); err != nil {
		return errors.Wrap(err, errors.ErrFinalize, "failed to regenerate boot image").
			WithDetail("command", cmd)
	}

	f.Logger.Info().Dur("duration", time.Since(start)).Msg("Boot image regenerated")
	return nil
}
