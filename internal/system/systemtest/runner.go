// Package systemtest provides a testify mock of system.Runner
package systemtest

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Runner is a mock system.Runner. Expectations on Run match the program
// name and the argument slice; use OnRun for brevity.
type Runner struct {
	mock.Mock
}

// Run implements system.Runner
func (r *Runner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if args == nil {
		args = []string{}
	}
	ret := r.Called(ctx, name, args)
	var out []byte
	if v := ret.Get(0); v != nil {
		out = v.([]byte)
	}
	return out, ret.Error(1)
}

// ReadFile implements system.Runner
func (r *Runner) ReadFile(path string) ([]byte, error) {
	ret := r.Called(path)
	var out []byte
	if v := ret.Get(0); v != nil {
		out = v.([]byte)
	}
	return out, ret.Error(1)
}

// RunInput implements system.Runner. Expectations match the input bytes
// too; use OnRunInput.
func (r *Runner) RunInput(ctx context.Context, input []byte, name string, args ...string) ([]byte, error) {
	if args == nil {
		args = []string{}
	}
	ret := r.Called(ctx, input, name, args)
	var out []byte
	if v := ret.Get(0); v != nil {
		out = v.([]byte)
	}
	return out, ret.Error(1)
}

// OnRun sets an expectation for Run with any context
func (r *Runner) OnRun(name string, args []string) *mock.Call {
	if args == nil {
		args = []string{}
	}
	return r.On("Run", mock.Anything, name, args)
}

// OnRunInput sets an expectation for RunInput with any context
func (r *Runner) OnRunInput(input []byte, name string, args []string) *mock.Call {
	if args == nil {
		args = []string{}
	}
	return r.On("RunInput", mock.Anything, input, name, args)
}

// OnReadFile sets an expectation for ReadFile
func (r *Runner) OnReadFile(path string) *mock.Call {
	return r.On("ReadFile", path)
}
