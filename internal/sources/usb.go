package sources

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sigreer/ardenthat/internal/errors"
	"github.com/sigreer/ardenthat/internal/hardware"
)

var lsusbLine = regexp.MustCompile(`^Bus (\d{3}) Device (\d{3}): ID ([0-9a-fA-F]{4}):([0-9a-fA-F]{4})\s*(.*)$`)

// usbVendors maps common USB vendor ids to display names
var usbVendors = map[string]string{
	"046d": "Logitech",
	"04f2": "Chicony",
	"054c": "Sony",
	"0a5c": "Broadcom",
	"0bda": "Realtek",
	"0cf3": "Qualcomm Atheros",
	"1050": "Yubico",
	"13d3": "IMC Networks",
	"148f": "Ralink",
	"1d6b": "Linux Foundation",
	"2357": "TP-Link",
	"27c6": "Goodix",
	"0489": "Foxconn",
	"04ca": "Lite-On",
	"05ac": "Apple",
	"06cb": "Synaptics",
	"8087": "Intel",
	"0e8d": "MediaTek",
}

// USBParser parses plain `lsusb` output
type USBParser struct {
	Logger zerolog.Logger
}

// Parse implements Parser
func (p *USBParser) Parse(raw []byte) []hardware.Component {
	var out []hardware.Component

	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := lsusbLine.FindStringSubmatch(line)
		if m == nil {
			p.Logger.Debug().
				Str("code", string(errors.ErrParse)).
				Str("line", line).
				Msg("Dropping unrecognised lsusb line")
			continue
		}

		vendorID := strings.ToLower(m[3])
		productID := strings.ToLower(m[4])

		vendor, ok := usbVendors[vendorID]
		if !ok {
			vendor = "0x" + vendorID
		}
		model := strings.TrimSpace(m[5])
		if model == "" {
			model = "0x" + productID
		}

		out = append(out, hardware.Component{
			DeviceType: hardware.TypeUSB,
			Vendor:     vendor,
			Model:      model,
			Status:     hardware.StatusUnknown,
			VendorID:   vendorID,
			DeviceID:   productID,
			Slot:       m[1] + ":" + m[2],
		})
	}
	return out
}
