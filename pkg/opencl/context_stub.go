//go:build !opencl
// +build !opencl

package opencl

import "github.com/holiman/uint256"

// Context is a stub for builds without OpenCL.
// Build with -tags opencl to enable device support.
type Context struct{}

// NewContext returns ErrNotCompiled.
func NewContext(cfg Config) (*Context, error) {
	return nil, ErrNotCompiled
}

// Run returns ErrNotCompiled.
func (c *Context) Run(base *uint256.Int) (*GridResult, error) {
	return nil, ErrNotCompiled
}

// RunSecrets returns ErrNotCompiled.
func (c *Context) RunSecrets(secrets []*uint256.Int) (*GridResult, error) {
	return nil, ErrNotCompiled
}

// WorkSize returns zero.
func (c *Context) WorkSize() int { return 0 }

// Info returns an empty description.
func (c *Context) Info() DeviceInfo { return DeviceInfo{} }

// Release does nothing.
func (c *Context) Release() {}

// ListDevices returns ErrNotCompiled.
func ListDevices() ([]DeviceInfo, error) {
	return nil, ErrNotCompiled
}

// Available reports false when OpenCL is not compiled.
func Available() bool {
	return false
}
