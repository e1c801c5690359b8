//go:build windows

package main

import (
	"syscall"
	"unsafe"
)

const (
	highPriorityClass        = 0x00000080
	aboveNormalPriorityClass = 0x00008000

	processPowerThrottling               = 4
	processPowerThrottlingExecutionSpeed = 0x1
	processPowerThrottlingStateVersion   = 1
)

var (
	kernel32                  = syscall.NewLazyDLL("kernel32.dll")
	procGetCurrentProcess     = kernel32.NewProc("GetCurrentProcess")
	procSetPriorityClass      = kernel32.NewProc("SetPriorityClass")
	procSetProcessInformation = kernel32.NewProc("SetProcessInformation")
)

func setPriorityClass(class uintptr) error {
	handle, _, _ := procGetCurrentProcess.Call()
	if ret, _, err := procSetPriorityClass.Call(handle, class); ret == 0 {
		return err
	}
	return nil
}

// disablePowerThrottling leaves Efficiency Mode. Windows 10 1709 and later.
func disablePowerThrottling() error {
	type powerThrottlingState struct {
		Version     uint32
		ControlMask uint32
		StateMask   uint32
	}
	state := powerThrottlingState{
		Version:     processPowerThrottlingStateVersion,
		ControlMask: processPowerThrottlingExecutionSpeed,
	}

	handle, _, _ := procGetCurrentProcess.Call()
	ret, _, err := procSetProcessInformation.Call(handle, processPowerThrottling,
		uintptr(unsafe.Pointer(&state)), unsafe.Sizeof(state))
	if ret == 0 {
		return err
	}
	return nil
}

// raisePriority moves the process to the high priority class, falling back
// to above normal, and disables power throttling.
func raisePriority() error {
	if err := setPriorityClass(highPriorityClass); err != nil {
		if err := setPriorityClass(aboveNormalPriorityClass); err != nil {
			return err
		}
	}
	if err := disablePowerThrottling(); err != nil {
		log.Debugf("Power throttling left enabled: %v", err)
	}
	return nil
}
