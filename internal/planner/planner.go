// Package planner turns driver requirements into an ordered, duplicate
// free installation plan.
package planner

import (
	"github.com/sigreer/ardenthat/internal/hardware"
	"github.com/sigreer/ardenthat/internal/knowledge"
	"github.com/sigreer/ardenthat/internal/resolver"
)

// Step installs one driver on behalf of every component that needs it
type Step struct {
	Driver     string               `json:"driver" yaml:"driver"`
	Kind       knowledge.Kind       `json:"kind" yaml:"kind"`
	Components []hardware.Component `json:"components" yaml:"components"`
}

// Plan is the ordered list of steps for one setup run
type Plan struct {
	Steps []Step `json:"steps" yaml:"steps"`
}

// Build collapses requirements to one step per driver name. The first
// requirement for a driver fixes the step's position and kind; later
// requirements only add their component.
func Build(reqs []resolver.Requirement) *Plan {
	p := &Plan{Steps: []Step{}}
	index := make(map[string]int)

	for _, req := range reqs {
		if i, ok := index[req.Driver]; ok {
			p.Steps[i].Components = append(p.Steps[i].Components, req.Component)
			continue
		}
		index[req.Driver] = len(p.Steps)
		p.Steps = append(p.Steps, Step{
			Driver:     req.Driver,
			Kind:       req.Kind,
			Components: []hardware.Component{req.Component},
		})
	}
	return p
}

// Drivers returns the driver names in plan order
func (p *Plan) Drivers() []string {
	out := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = s.Driver
	}
	return out
}

// Len returns the number of steps
func (p *Plan) Len() int {
	return len(p.Steps)
}

// Empty reports whether the plan has nothing to do
func (p *Plan) Empty() bool {
	return len(p.Steps) == 0
}
