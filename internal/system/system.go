// Package system is the boundary between ardenthat and the host: running
// external programs and reading files. Everything above this package
// talks to the machine through the Runner interface so the pipeline can
// be exercised without privileged operations. Writes to privileged
// locations go through a command (sudo tee) fed on stdin.
package system

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Runner executes commands and touches files on the host
type Runner interface {
	// Run executes name with args and returns its stdout. A non-zero exit
	// is reported as a *CommandError carrying the captured stderr.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	// RunInput is Run with input connected to the command's stdin
	RunInput(ctx context.Context, input []byte, name string, args ...string) ([]byte, error)
	ReadFile(path string) ([]byte, error)
}

// CommandError describes a failed external command
type CommandError struct {
	Command  string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

// Error implements the error interface
func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s failed: %s: %v", e.Command, e.Stderr, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Command, e.Err)
}

// Unwrap returns the underlying exec error
func (e *CommandError) Unwrap() error {
	return e.Err
}

// CommandLine renders the command and arguments as a single string
func (e *CommandError) CommandLine() string {
	return strings.Join(append([]string{e.Command}, e.Args...), " ")
}

// Exec is the Runner backed by os/exec and the real filesystem
type Exec struct {
	Logger zerolog.Logger
}

// NewExec returns an Exec runner logging through logger
func NewExec(logger zerolog.Logger) *Exec {
	return &Exec{Logger: logger}
}

// Run implements Runner
func (x *Exec) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return x.run(ctx, nil, name, args)
}

// RunInput implements Runner
func (x *Exec) RunInput(ctx context.Context, input []byte, name string, args ...string) ([]byte, error) {
	return x.run(ctx, input, name, args)
}

func (x *Exec) run(ctx context.Context, input []byte, name string, args []string) ([]byte, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)
	if input != nil {
		cmd.Stdin = bytes.NewReader(input)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	x.Logger.Debug().
		Str("command", name).
		Strs("args", args).
		Dur("duration", time.Since(start)).
		Err(err).
		Msg("Executed command")

	if err != nil {
		cmdErr := &CommandError{
			Command:  name,
			Args:     args,
			ExitCode: -1,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cmdErr.ExitCode = exitErr.ExitCode()
		}
		x.Logger.Debug().
			Str("commandLine", cmdErr.CommandLine()).
			Int("exitCode", cmdErr.ExitCode).
			Str("stderr", cmdErr.Stderr).
			Msg("Command failed")
		return stdout.Bytes(), cmdErr
	}
	return stdout.Bytes(), nil
}

// ReadFile implements Runner
func (x *Exec) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// SplitCommand separates a configured argv into program and arguments.
// An empty argv yields an empty program name.
func SplitCommand(argv []string) (string, []string) {
	if len(argv) == 0 {
		return "", nil
	}
	return argv[0], argv[1:]
}

// RunArgv runs a configured argv with extra trailing arguments appended
func RunArgv(ctx context.Context, r Runner, argv []string, extra ...string) ([]byte, error) {
	name, full, err := buildArgv(argv, extra)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, name, full...)
}

// RunArgvInput is RunArgv with input on the command's stdin
func RunArgvInput(ctx context.Context, r Runner, input []byte, argv []string, extra ...string) ([]byte, error) {
	name, full, err := buildArgv(argv, extra)
	if err != nil {
		return nil, err
	}
	return r.RunInput(ctx, input, name, full...)
}

func buildArgv(argv, extra []string) (string, []string, error) {
	name, args := SplitCommand(argv)
	if name == "" {
		return "", nil, errors.New("empty command")
	}
	full := make([]string, 0, len(args)+len(extra))
	full = append(full, args...)
	full = append(full, extra...)
	return name, full, nil
}
