package finalizer

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sigreer/ardenthat/internal/errors"
	"github.com/sigreer/ardenthat/internal/installer"
	"github.com/sigreer/ardenthat/internal/system"
	"github.com/sigreer/ardenthat/internal/system/systemtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func outcome(state installer.State, action installer.Action) installer.Outcome {
	return installer.Outcome{Driver: "d", State: state, Action: action}
}

func TestShouldRun(t *testing.T) {
	applied := &installer.Result{
		Outcomes: []installer.Outcome{
			outcome(installer.StateSucceeded, installer.ActionPackageInstalled),
			outcome(installer.StateSucceeded, installer.ActionAlreadyPresent),
		},
		Applied: 1,
	}
	nothingChanged := &installer.Result{
		Outcomes: []installer.Outcome{outcome(installer.StateSucceeded, installer.ActionAlreadyPresent)},
	}
	failed := &installer.Result{
		Outcomes: []installer.Outcome{
			outcome(installer.StateSucceeded, installer.ActionModuleEnabled),
			outcome(installer.StateFailed, installer.ActionNone),
			outcome(installer.StatePending, installer.ActionNone),
		},
		Applied: 1,
	}
	preview := &installer.Result{
		Outcomes: []installer.Outcome{outcome(installer.StateSucceeded, installer.ActionPreviewed)},
		DryRun:   true,
	}

	tests := []struct {
		name   string
		res    *installer.Result
		dryRun bool
		want   bool
	}{
		{"applied changes", applied, false, true},
		{"dry run flag", applied, true, false},
		{"dry run result", preview, false, false},
		{"everything already present", nothingChanged, false, false},
		{"a step failed", failed, false, false},
		{"empty plan", &installer.Result{}, false, false},
		{"no result", nil, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldRun(tt.res, tt.dryRun))
		})
	}
}

func TestFinalize(t *testing.T) {
	r := &systemtest.Runner{}
	r.OnRun("sudo", []string{"mkinitcpio", "-P"}).Return([]byte("==> Image generation successful"), nil).Once()

	f := &Finalizer{Runner: r, Logger: zerolog.Nop()}
	require.NoError(t, f.Finalize(context.Background()))
	r.AssertExpectations(t)
}

func TestFinalizeFailure(t *testing.T) {
	r := &systemtest.Runner{}
	r.OnRun("dracut", []string{"--regenerate-all"}).Return(nil, &system.CommandError{
		Command: "dracut", ExitCode: 1, Stderr: "dracut: cannot write", Err: stderrors.New("exit status 1"),
	})

	f := &Finalizer{Runner: r, Command: []string{"dracut", "--regenerate-all"}}
	err := f.Finalize(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFinalize))
	assert.False(t, errors.IsErrorCode(err, errors.ErrInstall))
	assert.Contains(t, err.Error(), "dracut: cannot write")
}
