package sources

import (
	"github.com/rs/zerolog"
	"github.com/sigreer/ardenthat/internal/errors"
	"github.com/sigreer/ardenthat/internal/hardware"
)

var cpuVendors = map[string]string{
	"GenuineIntel": "Intel",
	"AuthenticAMD": "AMD",
}

// armImplementers maps /proc/cpuinfo "CPU implementer" codes
var armImplementers = map[string]string{
	"0x41": "ARM",
	"0x42": "Broadcom",
	"0x48": "HiSilicon",
	"0x4e": "NVIDIA",
	"0x51": "Qualcomm",
	"0x61": "Apple",
}

// CPUParser parses /proc/cpuinfo
type CPUParser struct {
	Logger zerolog.Logger
}

// Parse implements Parser. One component is emitted per processor block;
// duplicates are collapsed by the aggregator.
func (p *CPUParser) Parse(raw []byte) []hardware.Component {
	var out []hardware.Component

	for _, rec := range splitRecords(raw) {
		if _, ok := rec["processor"]; !ok {
			continue
		}

		vendor, model := x86Identity(rec)
		if vendor == "" || model == "" {
			vendor, model = armIdentity(rec)
		}
		if vendor == "" || model == "" {
			p.Logger.Debug().
				Str("code", string(errors.ErrParse)).
				Str("processor", rec["processor"]).
				Msg("Dropping processor block without vendor or model")
			continue
		}

		out = append(out, hardware.Component{
			DeviceType: hardware.TypeCPU,
			Vendor:     vendor,
			Model:      model,
			Status:     hardware.StatusUnknown,
		})
	}
	return out
}

func x86Identity(rec map[string]string) (string, string) {
	raw := rec["vendor_id"]
	vendor, ok := cpuVendors[raw]
	if !ok {
		vendor = raw
	}
	return vendor, rec["model name"]
}

func armIdentity(rec map[string]string) (string, string) {
	impl := rec["CPU implementer"]
	part := rec["CPU part"]
	if impl == "" || part == "" {
		return "", ""
	}
	vendor, ok := armImplementers[impl]
	if !ok {
		vendor = impl
	}
	return vendor, "part " + part
}
