package sources

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/sigreer/ardenthat/internal/errors"
	"github.com/sigreer/ardenthat/internal/hardware"
)

// PCIParser parses `lspci -vmmnnk` output
type PCIParser struct {
	Logger zerolog.Logger
}

// Parse implements Parser
func (p *PCIParser) Parse(raw []byte) []hardware.Component {
	var out []hardware.Component

	for _, rec := range splitRecords(raw) {
		slot := rec["Slot"]
		vendor, vendorID := splitNameID(rec["Vendor"])
		model, deviceID := splitNameID(rec["Device"])
		class, _ := splitNameID(rec["Class"])

		if slot == "" || vendor == "" || model == "" {
			p.Logger.Debug().
				Str("code", string(errors.ErrParse)).
				Str("slot", slot).
				Msg("Dropping incomplete PCI record")
			continue
		}

		c := hardware.Component{
			DeviceType: hardware.TypePCI,
			Vendor:     vendor,
			Model:      model,
			Status:     hardware.StatusUnknown,
			VendorID:   strings.ToLower(vendorID),
			DeviceID:   strings.ToLower(deviceID),
			Class:      class,
			Slot:       slot,
		}

		if drv := rec["Driver"]; drv != "" {
			c = c.WithDriver(drv, hardware.StatusInstalled)
		} else if mod := rec["Module"]; mod != "" {
			c = c.WithDriver(mod, hardware.StatusAvailable)
		}
		out = append(out, c)
	}
	return out
}

// splitNameID splits "Intel Corporation [8086]" into name and id. A value
// with no bracketed suffix is returned whole with an empty id.
func splitNameID(v string) (string, string) {
	v = strings.TrimSpace(v)
	if !strings.HasSuffix(v, "]") {
		return v, ""
	}
	open := strings.LastIndex(v, "[")
	if open < 0 {
		return v, ""
	}
	return strings.TrimSpace(v[:open]), v[open+1 : len(v)-1]
}
