package opencl

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/Amr-9/AddressFinder/pkg/secret"
)

// DeviceType selects which devices of a platform are considered.
type DeviceType string

const (
	DeviceTypeGPU DeviceType = "gpu"
	DeviceTypeCPU DeviceType = "cpu"
	DeviceTypeAll DeviceType = "all"
)

// Config selects a device and the shape of the kernel launch.
type Config struct {
	PlatformIndex int        `json:"platformIndex"`
	DeviceType    DeviceType `json:"deviceType"`
	DeviceIndex   int        `json:"deviceIndex"`

	// GridBits is log2 of the number of keys per call.
	GridBits int `json:"gridBits"`

	// LoopCount is the number of consecutive keys each work-item
	// computes.
	LoopCount int `json:"loopCount"`
}

// WorkSize returns the number of keys per call.
func (c *Config) WorkSize() int {
	return secret.WorkSize(c.GridBits)
}

// WorkItems returns the global work size of a launch.
func (c *Config) WorkItems() int {
	return c.WorkSize() / c.LoopCount
}

// Validate checks the launch shape.
func (c *Config) Validate() error {
	if c.GridBits < 0 || c.GridBits > secret.MaxGridBits {
		return fmt.Errorf("grid bits %d outside [0, %d]", c.GridBits, secret.MaxGridBits)
	}
	if c.LoopCount < 1 || c.LoopCount&(c.LoopCount-1) != 0 {
		return fmt.Errorf("loop count %d is not a power of two", c.LoopCount)
	}
	if c.LoopCount > c.WorkSize() {
		return fmt.Errorf("loop count %d exceeds work size %d", c.LoopCount, c.WorkSize())
	}
	switch c.DeviceType {
	case DeviceTypeGPU, DeviceTypeCPU, DeviceTypeAll:
	default:
		return fmt.Errorf("unknown device type %q", c.DeviceType)
	}
	if c.PlatformIndex < 0 || c.DeviceIndex < 0 {
		return fmt.Errorf("negative platform or device index")
	}
	return nil
}

// DeviceInfo describes an OpenCL device.
type DeviceInfo struct {
	Platform     string
	Name         string
	Vendor       string
	ComputeUnits int
	GlobalMem    uint64
	LittleEndian bool
}

// Runner computes keys on a device. *Context is the device implementation.
type Runner interface {
	// Run computes the grid at base.
	Run(base *uint256.Int) (*GridResult, error)

	// RunSecrets computes one key per secret. len(secrets) must equal
	// WorkSize.
	RunSecrets(secrets []*uint256.Int) (*GridResult, error)

	WorkSize() int
}
