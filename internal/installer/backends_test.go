package installer

import (
	"context"
	stderrors "errors"
	"io/fs"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sigreer/ardenthat/internal/system"
	"github.com/sigreer/ardenthat/internal/system/systemtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const modulesDep = `kernel/drivers/net/wireless/intel/iwlwifi/iwlwifi.ko.zst: kernel/net/wireless/cfg80211.ko.zst
kernel/drivers/bluetooth/btusb.ko.zst: kernel/drivers/bluetooth/btintel.ko.zst
kernel/drivers/net/wireless/realtek/rtw88/rtw88_8822be.ko.zst:
`

const modulesBuiltin = `kernel/drivers/usb/host/xhci-hcd.ko
`

const procModules = `btusb 81920 0 - Live 0x0000000000000000
iwlwifi 598016 1 iwlmvm, Live 0x0000000000000000
`

func newKernelModules(r system.Runner) *KernelModules {
	return &KernelModules{
		Runner:     r,
		Release:    "6.9.1-arch1-1",
		PersistDir: "/etc/modules-load.d",
		Logger:     zerolog.Nop(),
	}
}

func TestNormalizeModule(t *testing.T) {
	assert.Equal(t, "iwlwifi", NormalizeModule("kernel/drivers/net/wireless/intel/iwlwifi/iwlwifi.ko.zst"))
	assert.Equal(t, "xhci_hcd", NormalizeModule("kernel/drivers/usb/host/xhci-hcd.ko"))
	assert.Equal(t, "snd_hda_intel", NormalizeModule("snd-hda-intel"))
}

func TestKernelModulesRegistry(t *testing.T) {
	r := &systemtest.Runner{}
	r.OnReadFile("/lib/modules/6.9.1-arch1-1/modules.dep").Return([]byte(modulesDep), nil).Once()
	r.OnReadFile("/lib/modules/6.9.1-arch1-1/modules.builtin").Return([]byte(modulesBuiltin), nil).Once()
	r.OnReadFile("/proc/modules").Return([]byte(procModules), nil)

	k := newKernelModules(r)
	ctx := context.Background()

	for _, tt := range []struct {
		name     string
		isModule bool
		loaded   bool
	}{
		{"iwlwifi", true, true},
		{"rtw88_8822be", true, false},
		{"xhci-hcd", true, true},
		{"nvidia", false, false},
	} {
		isModule, err := k.IsModule(ctx, tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.isModule, isModule, tt.name)

		loaded, err := k.IsLoaded(ctx, tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.loaded, loaded, tt.name)
	}
	r.AssertExpectations(t)
}

func TestKernelModulesMissingIndex(t *testing.T) {
	r := &systemtest.Runner{}
	r.OnReadFile(mock.Anything).Return(nil, fs.ErrNotExist)

	isModule, err := newKernelModules(r).IsModule(context.Background(), "iwlwifi")
	require.NoError(t, err)
	assert.False(t, isModule)
}

func TestKernelModulesUnreadableIndex(t *testing.T) {
	r := &systemtest.Runner{}
	r.OnReadFile(mock.Anything).Return(nil, fs.ErrPermission)

	_, err := newKernelModules(r).IsModule(context.Background(), "iwlwifi")
	assert.Error(t, err)
}

func TestKernelModulesEnable(t *testing.T) {
	r := &systemtest.Runner{}
	r.OnRun("sudo", []string{"modprobe", "rtw88_8822be"}).Return([]byte{}, nil)
	r.OnRunInput([]byte("rtw88_8822be\n"), "sudo", []string{"tee", "/etc/modules-load.d/rtw88_8822be.conf"}).Return([]byte("rtw88_8822be\n"), nil)

	require.NoError(t, newKernelModules(r).Enable(context.Background(), "rtw88_8822be"))
	r.AssertExpectations(t)
}

func TestKernelModulesEnableCustomPersistCommand(t *testing.T) {
	r := &systemtest.Runner{}
	r.OnRun("modprobe", []string{"btusb"}).Return([]byte{}, nil)
	r.OnRunInput([]byte("btusb\n"), "tee", []string{"/etc/modules-load.d/btusb.conf"}).Return([]byte{}, nil)

	k := newKernelModules(r)
	k.LoadCommand = []string{"modprobe"}
	k.PersistCommand = []string{"tee"}
	require.NoError(t, k.Enable(context.Background(), "btusb"))
	r.AssertExpectations(t)
}

// A module that loads but cannot be persisted fails its step. It stays
// loaded; the error names both facts.
func TestKernelModulesEnablePersistFailure(t *testing.T) {
	r := &systemtest.Runner{}
	r.OnRun("sudo", []string{"modprobe", "rtw88_8822be"}).Return([]byte{}, nil)
	r.On("RunInput", mock.Anything, mock.Anything, "sudo", []string{"tee", "/etc/modules-load.d/rtw88_8822be.conf"}).Return(nil, &system.CommandError{
		Command: "sudo", ExitCode: 1, Stderr: "tee: /etc/modules-load.d/rtw88_8822be.conf: Read-only file system", Err: stderrors.New("exit status 1"),
	})

	err := newKernelModules(r).Enable(context.Background(), "rtw88_8822be")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "module rtw88_8822be loaded but not persisted")
	assert.Contains(t, err.Error(), "Read-only file system")
	r.AssertExpectations(t)
}

func TestKernelModulesEnableFailure(t *testing.T) {
	r := &systemtest.Runner{}
	r.OnRun("sudo", []string{"modprobe", "bogus"}).Return(nil, &system.CommandError{
		Command: "sudo", ExitCode: 1, Stderr: "modprobe: FATAL: Module bogus not found", Err: stderrors.New("exit status 1"),
	})

	err := newKernelModules(r).Enable(context.Background(), "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Module bogus not found")
	r.AssertNotCalled(t, "RunInput", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestKernelRelease(t *testing.T) {
	release, err := KernelRelease()
	require.NoError(t, err)
	assert.NotEmpty(t, release)
}

func TestPacman(t *testing.T) {
	notFound := &system.CommandError{Command: "pacman", ExitCode: 1, Stderr: "error: package 'nvidia' was not found", Err: stderrors.New("exit status 1")}

	r := &systemtest.Runner{}
	r.OnRun("pacman", []string{"-Q", "intel-ucode"}).Return([]byte("intel-ucode 20240531-1\n"), nil)
	r.OnRun("pacman", []string{"-Q", "nvidia"}).Return(nil, notFound)
	r.OnRun("pacman", []string{"-Q", "broken"}).Return(nil, &system.CommandError{Command: "pacman", ExitCode: -1, Err: stderrors.New("executable file not found")})
	r.OnRun("sudo", []string{"pacman", "-S", "--noconfirm", "nvidia"}).Return([]byte{}, nil)

	p := &Pacman{Runner: r, Logger: zerolog.Nop()}
	ctx := context.Background()

	ok, err := p.IsInstalled(ctx, "intel-ucode")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.IsInstalled(ctx, "nvidia")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = p.IsInstalled(ctx, "broken")
	assert.Error(t, err)

	require.NoError(t, p.Install(ctx, "nvidia"))
	r.AssertExpectations(t)
}
