package resolver

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/sigreer/ardenthat/internal/hardware"
	"github.com/sigreer/ardenthat/internal/inventory"
	"github.com/sigreer/ardenthat/internal/knowledge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKB(t *testing.T) *knowledge.Base {
	t.Helper()
	kb, err := knowledge.Parse([]byte(`
module_classes: ["Network controller"]
drivers:
  - name: nvidia
    kind: package
    match: {device_type: PCI, vendor_id: "10de"}
  - name: iwlwifi
    match: {device_type: PCI, class: Network controller}
`))
	require.NoError(t, err)
	return kb
}

var (
	gpu = hardware.Component{
		DeviceType: hardware.TypePCI, Vendor: "NVIDIA Corporation", Model: "GP108M",
		VendorID: "10de", Status: hardware.StatusUnknown,
	}
	wifi = hardware.Component{
		DeviceType: hardware.TypePCI, Vendor: "Intel Corporation", Model: "Wireless 8265",
		Class: "Network controller", Status: hardware.StatusUnknown,
	}
	bound = hardware.Component{
		DeviceType: hardware.TypePCI, Vendor: "NVIDIA Corporation", Model: "TU116",
		VendorID: "10de", Status: hardware.StatusInstalled, Driver: hardware.Ptr("nouveau"),
	}
	candidate = hardware.Component{
		DeviceType: hardware.TypePCI, Vendor: "Realtek", Model: "RTL8822BE",
		Status: hardware.StatusAvailable, Driver: hardware.Ptr("rtw88_8822be"),
	}
	unmapped = hardware.Component{
		DeviceType: hardware.TypeUSB, Vendor: "0x1234", Model: "0xabcd", Status: hardware.StatusUnknown,
	}
)

func TestResolve(t *testing.T) {
	r := New(testKB(t), zerolog.Nop())

	tests := []struct {
		name      string
		component hardware.Component
		want      *Requirement
	}{
		{"installed needs nothing", bound, nil},
		{"rule with explicit kind", gpu, &Requirement{Component: gpu, Driver: "nvidia", Kind: knowledge.KindPackage}},
		{"rule with class derived kind", wifi, &Requirement{Component: wifi, Driver: "iwlwifi", Kind: knowledge.KindKernelModule}},
		{"candidate module without rule", candidate, &Requirement{Component: candidate, Driver: "rtw88_8822be", Kind: knowledge.KindKernelModule}},
		{"resolution gap", unmapped, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.component)
			if tt.want == nil {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, *tt.want, got)
		})
	}
}

func TestResolveAllOrder(t *testing.T) {
	r := New(testKB(t), zerolog.Nop())

	reqs := r.ResolveAll(inventory.Inventory{wifi, bound, unmapped, gpu, candidate})
	require.Len(t, reqs, 3)
	assert.Equal(t, "iwlwifi", reqs[0].Driver)
	assert.Equal(t, "nvidia", reqs[1].Driver)
	assert.Equal(t, "rtw88_8822be", reqs[2].Driver)
}

func TestResolveWithoutKB(t *testing.T) {
	r := New(nil, zerolog.Nop())

	_, ok := r.Resolve(gpu)
	assert.False(t, ok)

	req, ok := r.Resolve(candidate)
	require.True(t, ok)
	assert.Equal(t, "rtw88_8822be", req.Driver)
}

func TestAnnotate(t *testing.T) {
	r := New(testKB(t), zerolog.Nop())
	inv := inventory.Inventory{gpu, bound, unmapped, candidate}

	got := r.Annotate(inv)
	require.Len(t, got, 4)

	assert.Equal(t, hardware.StatusNotInstalled, got[0].Status)
	assert.Equal(t, "nvidia", got[0].DriverName())
	assert.Equal(t, bound, got[1], "installed untouched")
	assert.Equal(t, unmapped, got[2], "gap stays Unknown")
	assert.Equal(t, candidate, got[3], "available untouched")

	assert.Equal(t, hardware.StatusUnknown, inv[0].Status, "input not mutated")
	assert.Nil(t, inv[0].Driver)
}
