// Package hardware defines the canonical inventory record shared by every
// stage of the detection pipeline.
package hardware

import "strings"

// DeviceType categorizes the bus or source a component was discovered on
type DeviceType string

const (
	TypePCI DeviceType = "PCI"
	TypeUSB DeviceType = "USB"
	TypeCPU DeviceType = "CPU"
)

// DriverStatus describes what is known about a component's driver
type DriverStatus string

const (
	// StatusInstalled requires positive evidence that a driver is bound.
	StatusInstalled    DriverStatus = "Installed"
	StatusAvailable    DriverStatus = "Available"
	StatusNotInstalled DriverStatus = "NotInstalled"
	StatusUnknown      DriverStatus = "Unknown"
)

// Rank orders statuses by specificity: Installed > Available >
// NotInstalled > Unknown. Unrecognised values rank with Unknown.
func (s DriverStatus) Rank() int {
	switch s {
	case StatusInstalled:
		return 3
	case StatusAvailable:
		return 2
	case StatusNotInstalled:
		return 1
	default:
		return 0
	}
}

// Identity is the deduplication key of a component
type Identity struct {
	DeviceType DeviceType
	Vendor     string
	Model      string
}

// String renders the identity as TYPE/vendor/model
func (id Identity) String() string {
	return string(id.DeviceType) + "/" + id.Vendor + "/" + id.Model
}

// Component is a single detected hardware device. Values are treated as
// immutable once a parser has produced them; stages that need to change a
// field work on a copy.
type Component struct {
	DeviceType DeviceType   `json:"device_type" yaml:"device_type"`
	Vendor     string       `json:"vendor" yaml:"vendor"`
	Model      string       `json:"model" yaml:"model"`
	Driver     *string      `json:"driver" yaml:"driver"`
	Status     DriverStatus `json:"status" yaml:"status"`

	// Matching hints, not part of identity
	VendorID string `json:"vendor_id,omitempty" yaml:"vendor_id,omitempty"`
	DeviceID string `json:"device_id,omitempty" yaml:"device_id,omitempty"`
	Class    string `json:"class,omitempty" yaml:"class,omitempty"`
	Slot     string `json:"slot,omitempty" yaml:"slot,omitempty"`
}

// Identity returns the (device_type, vendor, model) key
func (c Component) Identity() Identity {
	return Identity{DeviceType: c.DeviceType, Vendor: c.Vendor, Model: c.Model}
}

// DriverName returns the driver or "" when none is recorded
func (c Component) DriverName() string {
	if c.Driver == nil {
		return ""
	}
	return *c.Driver
}

// WithDriver returns a copy of c carrying the given driver and status
func (c Component) WithDriver(driver string, status DriverStatus) Component {
	c.Driver = Ptr(driver)
	c.Status = status
	return c
}

// Ptr returns a pointer to a trimmed copy of s, or nil if s is blank
func Ptr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
