// Package knowledge maps detected components to the driver each one
// needs. The mapping is a YAML data asset so it can be replaced without
// rebuilding; an Arch Linux oriented default is embedded.
package knowledge

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/sigreer/ardenthat/internal/errors"
	"github.com/sigreer/ardenthat/internal/hardware"
	"gopkg.in/yaml.v3"
)

//go:embed drivers.yaml
var defaultData []byte

// Kind is how a driver is brought onto the system
type Kind string

const (
	KindKernelModule Kind = "kernel_module"
	KindPackage      Kind = "package"
)

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	return k == KindKernelModule || k == KindPackage
}

// Match holds the conditions of a rule. Empty fields match anything.
type Match struct {
	DeviceType string `yaml:"device_type,omitempty"`
	Vendor     string `yaml:"vendor,omitempty"`
	Model      string `yaml:"model,omitempty"`
	VendorID   string `yaml:"vendor_id,omitempty"`
	DeviceID   string `yaml:"device_id,omitempty"`
	Class      string `yaml:"class,omitempty"`
}

// Empty reports whether no matcher is set
func (m Match) Empty() bool {
	return m == Match{}
}

// Matches reports whether every set matcher holds for c
func (m Match) Matches(c hardware.Component) bool {
	if m.DeviceType != "" && m.DeviceType != string(c.DeviceType) {
		return false
	}
	if m.VendorID != "" && !strings.EqualFold(m.VendorID, c.VendorID) {
		return false
	}
	if m.DeviceID != "" && !strings.EqualFold(m.DeviceID, c.DeviceID) {
		return false
	}
	return containsFold(c.Vendor, m.Vendor) &&
		containsFold(c.Model, m.Model) &&
		containsFold(c.Class, m.Class)
}

// Rule maps matching components to a driver
type Rule struct {
	Name  string `yaml:"name"`
	Kind  Kind   `yaml:"kind,omitempty"`
	Match Match  `yaml:"match"`
}

// Base is a loaded knowledge base
type Base struct {
	ModuleClasses []string `yaml:"module_classes"`
	Drivers       []Rule   `yaml:"drivers"`
}

// Default returns the embedded knowledge base
func Default() (*Base, error) {
	return Parse(defaultData)
}

// Load reads a knowledge base from path, or the embedded default when
// path is empty.
func Load(path string) (*Base, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrKnowledgeBase, "failed to read knowledge base").
			WithDetail("path", path)
	}
	kb, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrKnowledgeBase, "invalid knowledge base").
			WithDetail("path", path)
	}
	return kb, nil
}

// Parse decodes and validates knowledge base YAML
func Parse(data []byte) (*Base, error) {
	var kb Base
	if err := yaml.Unmarshal(data, &kb); err != nil {
		return nil, errors.Wrap(err, errors.ErrKnowledgeBase, "failed to parse knowledge base")
	}
	if err := kb.Validate(); err != nil {
		return nil, err
	}
	return &kb, nil
}

// Validate checks every rule has a name, a matcher and a known kind
func (kb *Base) Validate() error {
	for i, r := range kb.Drivers {
		switch {
		case strings.TrimSpace(r.Name) == "":
			return errors.Newf(errors.ErrKnowledgeBase, "rule %d has no driver name", i)
		case r.Match.Empty():
			return errors.Newf(errors.ErrKnowledgeBase, "rule %d (%s) has no matcher", i, r.Name)
		case r.Kind != "" && !r.Kind.Valid():
			return errors.Newf(errors.ErrKnowledgeBase, "rule %d (%s) has unknown kind %q", i, r.Name, r.Kind)
		}
	}
	return nil
}

// Lookup returns the first rule matching c
func (kb *Base) Lookup(c hardware.Component) (Rule, bool) {
	for _, r := range kb.Drivers {
		if r.Match.Matches(c) {
			return r, true
		}
	}
	return Rule{}, false
}

// Kind returns the installation kind rule implies for c
func (kb *Base) Kind(r Rule, c hardware.Component) Kind {
	if r.Kind != "" {
		return r.Kind
	}
	for _, mc := range kb.ModuleClasses {
		if mc != "" && containsFold(c.Class, mc) {
			return KindKernelModule
		}
	}
	return KindPackage
}

// String summarises the knowledge base for logging
func (kb *Base) String() string {
	return fmt.Sprintf("%d rules, %d module classes", len(kb.Drivers), len(kb.ModuleClasses))
}

func containsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
