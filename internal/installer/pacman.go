package installer

import (
	"context"
	stderrors "errors"

	"github.com/rs/zerolog"
	"github.com/sigreer/ardenthat/internal/system"
)

// PackageManager queries and installs distribution packages
type PackageManager interface {
	IsInstalled(ctx context.Context, name string) (bool, error)
	Install(ctx context.Context, name string) error
}

// Pacman is the PackageManager for Arch Linux
type Pacman struct {
	Runner         system.Runner
	QueryCommand   []string
	InstallCommand []string
	Logger         zerolog.Logger
}

// IsInstalled implements PackageManager. pacman -Q exits non-zero for a
// package that is not installed.
func (p *Pacman) IsInstalled(ctx context.Context, name string) (bool, error) {
	query := p.QueryCommand
	if len(query) == 0 {
		query = []string{"pacman", "-Q"}
	}

	_, err := system.RunArgv(ctx, p.Runner, query, name)
	if err == nil {
		return true, nil
	}
	var cmdErr *system.CommandError
	if stderrors.As(err, &cmdErr) && cmdErr.ExitCode > 0 {
		return false, nil
	}
	return false, err
}

// Install implements PackageManager
func (p *Pacman) Install(ctx context.Context, name string) error {
	install := p.InstallCommand
	if len(install) == 0 {
		install = []string{"sudo", "pacman", "-S", "--noconfirm"}
	}

	p.Logger.Info().Str("package", name).Msg("Installing package")
	_, err := system.RunArgv(ctx, p.Runner, install, name)
	return err
}
