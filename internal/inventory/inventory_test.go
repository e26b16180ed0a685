package inventory

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sigreer/ardenthat/internal/errors"
	"github.com/sigreer/ardenthat/internal/hardware"
	"github.com/sigreer/ardenthat/internal/probe"
	"github.com/sigreer/ardenthat/internal/sources"
	"github.com/sigreer/ardenthat/internal/system/systemtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedParser returns canned components regardless of input
type fixedParser []hardware.Component

func (p fixedParser) Parse([]byte) []hardware.Component { return p }

func comp(t hardware.DeviceType, vendor, model string, status hardware.DriverStatus) hardware.Component {
	return hardware.Component{DeviceType: t, Vendor: vendor, Model: model, Status: status}
}

func result(components ...hardware.Component) probe.Result {
	return probe.Result{Source: sources.Source{Parser: fixedParser(components)}}
}

func TestAggregateDedupKeepsHigherRank(t *testing.T) {
	statuses := []hardware.DriverStatus{
		hardware.StatusUnknown,
		hardware.StatusNotInstalled,
		hardware.StatusAvailable,
		hardware.StatusInstalled,
	}

	for _, first := range statuses {
		for _, second := range statuses {
			t.Run(string(first)+"_"+string(second), func(t *testing.T) {
				a := comp(hardware.TypePCI, "Intel", "GPU", first)
				a.Slot = "first"
				b := comp(hardware.TypePCI, "Intel", "GPU", second)
				b.Slot = "second"

				inv := Aggregate([]probe.Result{result(a, b)}, zerolog.Nop())
				require.Len(t, inv, 1)

				want := "first"
				if second.Rank() > first.Rank() {
					want = "second"
				}
				assert.Equal(t, want, inv[0].Slot)
			})
		}
	}
}

func TestAggregateOrderAndPosition(t *testing.T) {
	cpu := comp(hardware.TypeCPU, "Intel", "i5", hardware.StatusUnknown)
	gpu := comp(hardware.TypePCI, "Intel", "GPU", hardware.StatusUnknown)
	nic := comp(hardware.TypePCI, "Intel", "NIC", hardware.StatusAvailable)
	gpuBound := comp(hardware.TypePCI, "Intel", "GPU", hardware.StatusInstalled)
	usb := comp(hardware.TypeUSB, "Intel", "GPU", hardware.StatusUnknown)

	inv := Aggregate([]probe.Result{
		result(gpu, nic),
		result(usb),
		result(cpu, cpu, gpuBound),
	}, zerolog.Nop())

	require.Len(t, inv, 4)
	assert.Equal(t, gpuBound, inv[0], "upgraded in place")
	assert.Equal(t, nic, inv[1])
	assert.Equal(t, usb, inv[2], "device type is part of identity")
	assert.Equal(t, cpu, inv[3])

	assert.Equal(t, map[hardware.DeviceType]int{
		hardware.TypePCI: 2, hardware.TypeUSB: 1, hardware.TypeCPU: 1,
	}, inv.Count())
}

func TestAggregateSkipsFailedSources(t *testing.T) {
	failed := result(comp(hardware.TypePCI, "x", "y", hardware.StatusInstalled))
	failed.Err = errors.New(errors.ErrProbe, "lspci missing")

	inv := Aggregate([]probe.Result{failed, result(comp(hardware.TypeCPU, "AMD", "Ryzen", hardware.StatusUnknown))}, zerolog.Nop())
	require.Len(t, inv, 1)
	assert.Equal(t, "AMD", inv[0].Vendor)
}

func TestAggregateEmpty(t *testing.T) {
	inv := Aggregate(nil, zerolog.Nop())
	assert.NotNil(t, inv)
	assert.Empty(t, inv)
}

func TestAggregateDeterministic(t *testing.T) {
	results := []probe.Result{
		result(comp(hardware.TypePCI, "A", "1", hardware.StatusUnknown), comp(hardware.TypePCI, "B", "2", hardware.StatusAvailable)),
		result(comp(hardware.TypePCI, "A", "1", hardware.StatusAvailable)),
	}

	first, err := json.Marshal(Aggregate(results, zerolog.Nop()))
	require.NoError(t, err)
	second, err := json.Marshal(Aggregate(results, zerolog.Nop()))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestScannerScan(t *testing.T) {
	r := &systemtest.Runner{}
	r.OnRun("lspci", []string{"-vmmnnk"}).Return([]byte("Slot:\t00:1f.3\nClass:\tAudio device [0403]\nVendor:\tIntel Corporation [8086]\nDevice:\tSunrise Point-LP HD Audio [9d71]\nDriver:\tsnd_hda_intel\n"), nil)
	r.OnRun("lsusb", nil).Return(nil, stderrors.New("lsusb: not found"))
	r.OnReadFile("/proc/cpuinfo").Return([]byte("processor\t: 0\nvendor_id\t: AuthenticAMD\nmodel name\t: AMD Ryzen 7 5800X\n\nprocessor\t: 1\nvendor_id\t: AuthenticAMD\nmodel name\t: AMD Ryzen 7 5800X\n"), nil)

	s := &Scanner{
		Runner:  r,
		Sources: sources.Default(sources.DefaultConfig(), zerolog.Nop()),
		Timeout: time.Second,
	}

	first := s.Scan(context.Background())
	require.Len(t, first, 2)
	assert.Equal(t, hardware.StatusInstalled, first[0].Status)
	assert.Equal(t, "snd_hda_intel", first[0].DriverName())
	assert.Equal(t, "AMD", first[1].Vendor)

	second := s.Scan(context.Background())
	assert.Equal(t, first, second, "detect is idempotent")
}
