//go:build opencl
// +build opencl

package opencl

/*
#cgo CFLAGS: -DCL_TARGET_OPENCL_VERSION=120
#cgo windows LDFLAGS: -lOpenCL
#cgo linux LDFLAGS: -lOpenCL
#cgo darwin LDFLAGS: -framework OpenCL

#ifdef __APPLE__
#include <OpenCL/opencl.h>
#else
#include <CL/cl.h>
#endif

#include <stdlib.h>
*/
import "C"

import (
	"embed"
	"fmt"
	"sync"
	"unsafe"

	"github.com/holiman/uint256"
)

//go:embed kernels/addressfinder.cl
var kernelSource embed.FS

const (
	kernelFile     = "kernels/addressfinder.cl"
	gridKernelName = "generate_keys"
	listKernelName = "generate_keys_list"
)

// Context owns one device with its command queue, program and kernel.
// Buffers live only for the duration of a Run.
type Context struct {
	cfg  Config
	info DeviceInfo

	platform C.cl_platform_id
	device   C.cl_device_id
	context  C.cl_context
	queue    C.cl_command_queue
	program  C.cl_program
	grid     C.cl_kernel
	list     C.cl_kernel

	mu sync.Mutex
}

// NewContext selects the configured device and builds the kernel on it.
func NewContext(cfg Config) (*Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Context{cfg: cfg}
	if err := c.init(); err != nil {
		c.Release()
		return nil, fmt.Errorf("failed to initialize OpenCL: %w", err)
	}
	log.Infof("Using %s (%s) on %s, %d compute units, little endian %v",
		c.info.Name, c.info.Vendor, c.info.Platform, c.info.ComputeUnits, c.info.LittleEndian)
	return c, nil
}

func deviceTypeFlag(t DeviceType) C.cl_device_type {
	switch t {
	case DeviceTypeCPU:
		return C.CL_DEVICE_TYPE_CPU
	case DeviceTypeAll:
		return C.CL_DEVICE_TYPE_ALL
	default:
		return C.CL_DEVICE_TYPE_GPU
	}
}

func platformIDs() ([]C.cl_platform_id, error) {
	var n C.cl_uint
	if C.clGetPlatformIDs(0, nil, &n) != C.CL_SUCCESS || n == 0 {
		return nil, fmt.Errorf("no OpenCL platforms")
	}
	platforms := make([]C.cl_platform_id, n)
	if ret := C.clGetPlatformIDs(n, &platforms[0], nil); ret != C.CL_SUCCESS {
		return nil, fmt.Errorf("clGetPlatformIDs failed: %d", ret)
	}
	return platforms, nil
}

func deviceIDs(platform C.cl_platform_id, t C.cl_device_type) ([]C.cl_device_id, error) {
	var n C.cl_uint
	if C.clGetDeviceIDs(platform, t, 0, nil, &n) != C.CL_SUCCESS || n == 0 {
		return nil, fmt.Errorf("no matching devices")
	}
	devices := make([]C.cl_device_id, n)
	if ret := C.clGetDeviceIDs(platform, t, n, &devices[0], nil); ret != C.CL_SUCCESS {
		return nil, fmt.Errorf("clGetDeviceIDs failed: %d", ret)
	}
	return devices, nil
}

func platformString(p C.cl_platform_id, param C.cl_platform_info) string {
	var size C.size_t
	if C.clGetPlatformInfo(p, param, 0, nil, &size) != C.CL_SUCCESS || size == 0 {
		return ""
	}
	buf := make([]byte, size)
	C.clGetPlatformInfo(p, param, size, unsafe.Pointer(&buf[0]), nil)
	return C.GoString((*C.char)(unsafe.Pointer(&buf[0])))
}

func deviceString(d C.cl_device_id, param C.cl_device_info) string {
	var size C.size_t
	if C.clGetDeviceInfo(d, param, 0, nil, &size) != C.CL_SUCCESS || size == 0 {
		return ""
	}
	buf := make([]byte, size)
	C.clGetDeviceInfo(d, param, size, unsafe.Pointer(&buf[0]), nil)
	return C.GoString((*C.char)(unsafe.Pointer(&buf[0])))
}

func describe(p C.cl_platform_id, d C.cl_device_id) DeviceInfo {
	var units C.cl_uint
	C.clGetDeviceInfo(d, C.CL_DEVICE_MAX_COMPUTE_UNITS, C.size_t(unsafe.Sizeof(units)), unsafe.Pointer(&units), nil)
	var mem C.cl_ulong
	C.clGetDeviceInfo(d, C.CL_DEVICE_GLOBAL_MEM_SIZE, C.size_t(unsafe.Sizeof(mem)), unsafe.Pointer(&mem), nil)
	var little C.cl_bool
	C.clGetDeviceInfo(d, C.CL_DEVICE_ENDIAN_LITTLE, C.size_t(unsafe.Sizeof(little)), unsafe.Pointer(&little), nil)

	return DeviceInfo{
		Platform:     platformString(p, C.CL_PLATFORM_NAME),
		Name:         deviceString(d, C.CL_DEVICE_NAME),
		Vendor:       deviceString(d, C.CL_DEVICE_VENDOR),
		ComputeUnits: int(units),
		GlobalMem:    uint64(mem),
		LittleEndian: little == C.CL_TRUE,
	}
}

// ListDevices describes every device of every platform.
func ListDevices() ([]DeviceInfo, error) {
	platforms, err := platformIDs()
	if err != nil {
		return nil, err
	}
	var infos []DeviceInfo
	for _, p := range platforms {
		devices, err := deviceIDs(p, C.CL_DEVICE_TYPE_ALL)
		if err != nil {
			continue
		}
		for _, d := range devices {
			infos = append(infos, describe(p, d))
		}
	}
	return infos, nil
}

// Available reports whether at least one device is present.
func Available() bool {
	infos, err := ListDevices()
	return err == nil && len(infos) > 0
}

func (c *Context) init() error {
	platforms, err := platformIDs()
	if err != nil {
		return err
	}
	if c.cfg.PlatformIndex >= len(platforms) {
		return fmt.Errorf("platform index %d out of range, %d platforms", c.cfg.PlatformIndex, len(platforms))
	}
	c.platform = platforms[c.cfg.PlatformIndex]

	devices, err := deviceIDs(c.platform, deviceTypeFlag(c.cfg.DeviceType))
	if err != nil {
		return fmt.Errorf("platform %d: %w", c.cfg.PlatformIndex, err)
	}
	if c.cfg.DeviceIndex >= len(devices) {
		return fmt.Errorf("device index %d out of range, %d devices", c.cfg.DeviceIndex, len(devices))
	}
	c.device = devices[c.cfg.DeviceIndex]
	c.info = describe(c.platform, c.device)

	var ret C.cl_int
	c.context = C.clCreateContext(nil, 1, &c.device, nil, nil, &ret)
	if ret != C.CL_SUCCESS {
		return fmt.Errorf("context failed: %d", ret)
	}

	c.queue = C.clCreateCommandQueue(c.context, c.device, 0, &ret)
	if ret != C.CL_SUCCESS {
		return fmt.Errorf("queue failed: %d", ret)
	}

	kernelData, err := kernelSource.ReadFile(kernelFile)
	if err != nil {
		return fmt.Errorf("failed to read kernel: %w", err)
	}
	src := C.CString(string(kernelData))
	defer C.free(unsafe.Pointer(src))

	length := C.size_t(len(kernelData))
	c.program = C.clCreateProgramWithSource(c.context, 1, &src, &length, &ret)
	if ret != C.CL_SUCCESS {
		return fmt.Errorf("program creation failed: %d", ret)
	}

	ret = C.clBuildProgram(c.program, 1, &c.device, nil, nil, nil)
	if ret != C.CL_SUCCESS {
		var logSize C.size_t
		C.clGetProgramBuildInfo(c.program, c.device, C.CL_PROGRAM_BUILD_LOG, 0, nil, &logSize)
		if logSize == 0 {
			return fmt.Errorf("program build failed: %d", ret)
		}
		buildLog := make([]byte, logSize)
		C.clGetProgramBuildInfo(c.program, c.device, C.CL_PROGRAM_BUILD_LOG, logSize, unsafe.Pointer(&buildLog[0]), nil)
		return fmt.Errorf("program build failed: %s", string(buildLog))
	}

	if c.grid, err = c.createKernel(gridKernelName); err != nil {
		return err
	}
	if c.list, err = c.createKernel(listKernelName); err != nil {
		return err
	}
	return nil
}

func (c *Context) createKernel(name string) (C.cl_kernel, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	var ret C.cl_int
	k := C.clCreateKernel(c.program, cname, &ret)
	if ret != C.CL_SUCCESS {
		return nil, fmt.Errorf("kernel %s creation failed: %d", name, ret)
	}
	return k, nil
}

// WorkSize returns the number of keys per Run.
func (c *Context) WorkSize() int {
	return c.cfg.WorkSize()
}

// Info describes the selected device.
func (c *Context) Info() DeviceInfo {
	return c.info
}

// Run computes the grid at base. It blocks until the device has finished
// and the output has been copied to host memory.
func (c *Context) Run(base *uint256.Int) (*GridResult, error) {
	input := EncodeSecret(base)
	output, err := c.launch(c.grid, input[:])
	if err != nil {
		return nil, err
	}

	r := &GridResult{
		WorkSize:     c.cfg.WorkSize(),
		LittleEndian: c.info.LittleEndian,
		Data:         output,
	}
	r.Base.Set(base)
	return r, nil
}

// RunSecrets computes one key per secret, blocking like Run.
func (c *Context) RunSecrets(secrets []*uint256.Int) (*GridResult, error) {
	if len(secrets) != c.cfg.WorkSize() {
		return nil, fmt.Errorf("got %d secrets for work size %d", len(secrets), c.cfg.WorkSize())
	}

	output, err := c.launch(c.list, EncodeSecrets(secrets))
	if err != nil {
		return nil, err
	}

	owned := make([]*uint256.Int, len(secrets))
	for i, s := range secrets {
		owned[i] = new(uint256.Int).Set(s)
	}
	return &GridResult{
		Secrets:      owned,
		WorkSize:     c.cfg.WorkSize(),
		LittleEndian: c.info.LittleEndian,
		Data:         output,
	}, nil
}

// launch writes input, runs kernel over the configured work-items and reads
// the output back. Both buffers are released before it returns.
func (c *Context) launch(kernel C.cl_kernel, input []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	output := make([]byte, c.cfg.WorkSize()*ChunkSize)

	var ret C.cl_int
	bufIn := C.clCreateBuffer(c.context, C.CL_MEM_READ_ONLY, C.size_t(len(input)), nil, &ret)
	if ret != C.CL_SUCCESS {
		return nil, fmt.Errorf("input buffer failed: %d", ret)
	}
	defer C.clReleaseMemObject(bufIn)

	bufOut := C.clCreateBuffer(c.context, C.CL_MEM_WRITE_ONLY, C.size_t(len(output)), nil, &ret)
	if ret != C.CL_SUCCESS {
		return nil, fmt.Errorf("output buffer failed: %d", ret)
	}
	defer C.clReleaseMemObject(bufOut)

	ret = C.clEnqueueWriteBuffer(c.queue, bufIn, C.CL_TRUE, 0, C.size_t(len(input)),
		unsafe.Pointer(&input[0]), 0, nil, nil)
	if ret != C.CL_SUCCESS {
		return nil, fmt.Errorf("failed to write input: %d", ret)
	}

	loopCount := C.cl_uint(c.cfg.LoopCount)
	if ret = C.clSetKernelArg(kernel, 0, C.size_t(unsafe.Sizeof(bufOut)), unsafe.Pointer(&bufOut)); ret != C.CL_SUCCESS {
		return nil, fmt.Errorf("failed to set output argument: %d", ret)
	}
	if ret = C.clSetKernelArg(kernel, 1, C.size_t(unsafe.Sizeof(bufIn)), unsafe.Pointer(&bufIn)); ret != C.CL_SUCCESS {
		return nil, fmt.Errorf("failed to set input argument: %d", ret)
	}
	if ret = C.clSetKernelArg(kernel, 2, C.size_t(unsafe.Sizeof(loopCount)), unsafe.Pointer(&loopCount)); ret != C.CL_SUCCESS {
		return nil, fmt.Errorf("failed to set loop count argument: %d", ret)
	}

	globalSize := C.size_t(c.cfg.WorkItems())
	ret = C.clEnqueueNDRangeKernel(c.queue, kernel, 1, nil, &globalSize, nil, 0, nil, nil)
	if ret != C.CL_SUCCESS {
		return nil, fmt.Errorf("kernel execution failed: %d", ret)
	}
	if ret = C.clFinish(c.queue); ret != C.CL_SUCCESS {
		return nil, fmt.Errorf("clFinish failed: %d", ret)
	}

	ret = C.clEnqueueReadBuffer(c.queue, bufOut, C.CL_TRUE, 0, C.size_t(len(output)),
		unsafe.Pointer(&output[0]), 0, nil, nil)
	if ret != C.CL_SUCCESS {
		return nil, fmt.Errorf("read buffer failed: %d", ret)
	}
	return output, nil
}

// Release frees the kernels, program, queue and context. It is safe to call
// on a partially initialized Context.
func (c *Context) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.grid != nil {
		C.clReleaseKernel(c.grid)
		c.grid = nil
	}
	if c.list != nil {
		C.clReleaseKernel(c.list)
		c.list = nil
	}
	if c.program != nil {
		C.clReleaseProgram(c.program)
		c.program = nil
	}
	if c.queue != nil {
		C.clReleaseCommandQueue(c.queue)
		c.queue = nil
	}
	if c.context != nil {
		C.clReleaseContext(c.context)
		c.context = nil
	}
}
