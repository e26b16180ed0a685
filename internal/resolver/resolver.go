// Package resolver decides which driver action, if any, each detected
// component requires.
package resolver

import (
	"github.com/rs/zerolog"
	"github.com/sigreer/ardenthat/internal/hardware"
	"github.com/sigreer/ardenthat/internal/inventory"
	"github.com/sigreer/ardenthat/internal/knowledge"
)

// Requirement is a driver that must be present for a component to work
type Requirement struct {
	Component hardware.Component `json:"component" yaml:"component"`
	Driver    string             `json:"driver" yaml:"driver"`
	Kind      knowledge.Kind     `json:"kind" yaml:"kind"`
}

// Resolver maps components to requirements using a knowledge base. It
// holds no state between calls.
type Resolver struct {
	KB     *knowledge.Base
	Logger zerolog.Logger
}

// New creates a resolver over kb
func New(kb *knowledge.Base, logger zerolog.Logger) *Resolver {
	return &Resolver{KB: kb, Logger: logger}
}

// Resolve returns the requirement for c. Components with a bound driver
// need nothing. A component with no knowledge base rule still resolves
// when the system already offers a candidate kernel module for it; any
// other unmapped component is a resolution gap and yields no requirement.
func (r *Resolver) Resolve(c hardware.Component) (Requirement, bool) {
	if c.Status == hardware.StatusInstalled {
		return Requirement{}, false
	}

	if r.KB != nil {
		if rule, ok := r.KB.Lookup(c); ok {
			return Requirement{Component: c, Driver: rule.Name, Kind: r.KB.Kind(rule, c)}, true
		}
	}

	if c.Status == hardware.StatusAvailable && c.DriverName() != "" {
		return Requirement{Component: c, Driver: c.DriverName(), Kind: knowledge.KindKernelModule}, true
	}

	r.Logger.Debug().
		Str("component", c.Identity().String()).
		Str("status", string(c.Status)).
		Msg("No driver mapping for component")
	return Requirement{}, false
}

// ResolveAll resolves every component, preserving inventory order
func (r *Resolver) ResolveAll(inv inventory.Inventory) []Requirement {
	var reqs []Requirement
	for _, c := range inv {
		if req, ok := r.Resolve(c); ok {
			reqs = append(reqs, req)
		}
	}
	return reqs
}

// Annotate returns a copy of inv in which Unknown components that the
// knowledge base maps to a driver are marked NotInstalled with that
// driver. Every other component is returned unchanged.
func (r *Resolver) Annotate(inv inventory.Inventory) inventory.Inventory {
	out := make(inventory.Inventory, len(inv))
	for i, c := range inv {
		out[i] = c
		if c.Status != hardware.StatusUnknown || r.KB == nil {
			continue
		}
		if rule, ok := r.KB.Lookup(c); ok {
			out[i] = c.WithDriver(rule.Name, hardware.StatusNotInstalled)
		}
	}
	return out
}
