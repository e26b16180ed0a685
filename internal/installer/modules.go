package installer

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sigreer/ardenthat/internal/system"
	"golang.org/x/sys/unix"
)

// ModuleRegistry answers questions about kernel modules and loads them
type ModuleRegistry interface {
	// IsModule reports whether name is a kernel module known to the running
	// kernel, either loadable or built in.
	IsModule(ctx context.Context, name string) (bool, error)
	IsLoaded(ctx context.Context, name string) (bool, error)
	// Enable loads the module now and arranges for it to load at boot
	Enable(ctx context.Context, name string) error
}

// KernelModules is the ModuleRegistry backed by the live module tree of
// the running kernel. PersistCommand receives the boot config on stdin
// and the target path as its last argument.
type KernelModules struct {
	Runner         system.Runner
	Release        string // defaults to uname -r
	ModulesDir     string // defaults to /lib/modules
	ProcModules    string // defaults to /proc/modules
	LoadCommand    []string
	PersistDir     string
	PersistCommand []string // defaults to sudo tee
	Logger         zerolog.Logger

	once     sync.Once
	known    map[string]bool
	builtin  map[string]bool
	indexErr error
}

// KernelRelease returns the running kernel release via uname(2)
func KernelRelease() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", fmt.Errorf("uname failed: %w", err)
	}
	return unix.ByteSliceToString(uts.Release[:]), nil
}

// NormalizeModule maps a module or file name to the kernel's canonical
// form: no directory, no .ko suffix, dashes as underscores.
func NormalizeModule(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if i := strings.Index(name, ".ko"); i >= 0 {
		name = name[:i]
	}
	return strings.ReplaceAll(name, "-", "_")
}

// IsModule implements ModuleRegistry
func (k *KernelModules) IsModule(ctx context.Context, name string) (bool, error) {
	k.once.Do(k.loadIndex)
	if k.indexErr != nil {
		return false, k.indexErr
	}
	n := NormalizeModule(name)
	return k.known[n] || k.builtin[n], nil
}

// IsLoaded implements ModuleRegistry. Built-in modules are always loaded.
func (k *KernelModules) IsLoaded(ctx context.Context, name string) (bool, error) {
	k.once.Do(k.loadIndex)
	n := NormalizeModule(name)
	if k.builtin[n] {
		return true, nil
	}

	data, err := k.Runner.ReadFile(k.procModules())
	if err != nil {
		return false, fmt.Errorf("failed to read loaded modules: %w", err)
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 && fields[0] == n {
			return true, nil
		}
	}
	return false, nil
}

// Enable implements ModuleRegistry. The boot config is written with the
// same privileges as the load. If that write fails the module stays
// loaded and the error says so.
func (k *KernelModules) Enable(ctx context.Context, name string) error {
	if _, err := system.RunArgv(ctx, k.Runner, k.loadCommand(), name); err != nil {
		return err
	}
	if k.PersistDir == "" {
		return nil
	}

	path := filepath.Join(k.PersistDir, name+".conf")
	if _, err := system.RunArgvInput(ctx, k.Runner, []byte(name+"\n"), k.persistCommand(), path); err != nil {
		return fmt.Errorf("module %s loaded but not persisted to %s: %w", name, path, err)
	}
	k.Logger.Info().Str("module", name).Str("path", path).Msg("Persisted module for boot")
	return nil
}

func (k *KernelModules) loadIndex() {
	k.known = make(map[string]bool)
	k.builtin = make(map[string]bool)

	release := k.Release
	if release == "" {
		r, err := KernelRelease()
		if err != nil {
			k.indexErr = err
			return
		}
		release = r
	}

	dir := k.ModulesDir
	if dir == "" {
		dir = "/lib/modules"
	}
	dir = filepath.Join(dir, release)

	for _, f := range []struct {
		name string
		into map[string]bool
	}{
		{"modules.dep", k.known},
		{"modules.builtin", k.builtin},
	} {
		path := filepath.Join(dir, f.name)
		data, err := k.Runner.ReadFile(path)
		if stderrors.Is(err, fs.ErrNotExist) {
			// Common right after a kernel upgrade, before reboot
			k.Logger.Warn().Str("path", path).Msg("Module index missing, treating drivers as packages")
			continue
		}
		if err != nil {
			k.indexErr = fmt.Errorf("failed to read %s: %w", path, err)
			return
		}
		parseModuleIndex(data, f.into)
	}

	k.Logger.Debug().
		Str("release", release).
		Int("modules", len(k.known)).
		Int("builtin", len(k.builtin)).
		Msg("Loaded module index")
}

// parseModuleIndex reads modules.dep or modules.builtin lines, taking the
// module path before any colon
func parseModuleIndex(data []byte, into map[string]bool) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		path, _, _ := strings.Cut(scanner.Text(), ":")
		if path = strings.TrimSpace(path); path != "" {
			into[NormalizeModule(path)] = true
		}
	}
}

func (k *KernelModules) procModules() string {
	if k.ProcModules != "" {
		return k.ProcModules
	}
	return "/proc/modules"
}

func (k *KernelModules) persistCommand() []string {
	if len(k.PersistCommand) > 0 {
		return k.PersistCommand
	}
	return []string{"sudo", "tee"}
}

func (k *KernelModules) loadCommand() []string {
	if len(k.LoadCommand) > 0 {
		return k.LoadCommand
	}
	return []string{"sudo", "modprobe"}
}
