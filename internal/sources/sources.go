// Package sources holds the per-source parsers that turn raw probe output
// into hardware components, and the default set of probe sources.
package sources

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/sigreer/ardenthat/internal/hardware"
)

// Parser converts the raw output of one source into components. Parsers
// are total: malformed records are dropped, never returned as errors.
// Output order follows the order of records in raw.
type Parser interface {
	Parse(raw []byte) []hardware.Component
}

// Source describes where one kind of hardware information comes from.
// Exactly one of Command and File is set.
type Source struct {
	Type    hardware.DeviceType
	Command []string
	File    string
	Parser  Parser
}

// Name returns a printable description of the source origin
func (s Source) Name() string {
	if s.File != "" {
		return s.File
	}
	return strings.Join(s.Command, " ")
}

// Config selects and locates the built-in sources
type Config struct {
	PCI SourceConfig
	USB SourceConfig
	CPU SourceConfig
}

// SourceConfig configures a single source
type SourceConfig struct {
	Enabled bool
	Command []string
	File    string
}

// DefaultConfig returns the stock commands and files
func DefaultConfig() Config {
	return Config{
		PCI: SourceConfig{Enabled: true, Command: []string{"lspci", "-vmmnnk"}},
		USB: SourceConfig{Enabled: true, Command: []string{"lsusb"}},
		CPU: SourceConfig{Enabled: true, File: "/proc/cpuinfo"},
	}
}

// Default returns the enabled sources in probe order: PCI, USB, CPU
func Default(cfg Config, logger zerolog.Logger) []Source {
	var out []Source
	add := func(t hardware.DeviceType, sc SourceConfig, p Parser) {
		if !sc.Enabled {
			logger.Debug().Str("source", string(t)).Msg("Source disabled")
			return
		}
		out = append(out, Source{Type: t, Command: sc.Command, File: sc.File, Parser: p})
	}
	add(hardware.TypePCI, cfg.PCI, &PCIParser{Logger: logger})
	add(hardware.TypeUSB, cfg.USB, &USBParser{Logger: logger})
	add(hardware.TypeCPU, cfg.CPU, &CPUParser{Logger: logger})
	return out
}

// splitRecords splits blank-line separated key/value blocks. Keys and
// values are trimmed; lines without a colon are ignored.
func splitRecords(raw []byte) []map[string]string {
	var records []map[string]string
	current := map[string]string{}

	flush := func() {
		if len(current) > 0 {
			records = append(records, current)
			current = map[string]string{}
		}
	}

	for _, line := range strings.Split(string(raw), "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if _, seen := current[key]; seen {
			// Keep the first occurrence (e.g. several Module: lines)
			continue
		}
		current[key] = strings.TrimSpace(value)
	}
	flush()
	return records
}
