package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Amr-9/AddressFinder/internal/ui"
	"github.com/Amr-9/AddressFinder/pkg/opencl"
	"github.com/Amr-9/AddressFinder/pkg/secret"
)

var (
	verifyCfg = verifyCmd{
		DeviceType: string(opencl.DeviceTypeGPU),
		GridBits:   8,
		LoopCount:  4,
		Base:       "1",
	}

	devicesCfg = devicesCmd{}
)

// verifyCmd defines the configuration options for the verify command.
type verifyCmd struct {
	PlatformIndex int    `long:"platform" description:"Index of the OpenCL platform"`
	DeviceType    string `long:"devicetype" description:"Device type {gpu, cpu, all}"`
	DeviceIndex   int    `long:"device" description:"Index of the device within the platform"`
	GridBits      int    `long:"gridbits" description:"log2 of the keys computed per launch"`
	LoopCount     int    `long:"loopcount" description:"Keys computed by one work item"`
	Base          string `long:"base" description:"Hex secret the grid is derived from, its low bits are cleared"`
}

// Execute is the main entry point for the command.  It's invoked by the parser.
func (cmd *verifyCmd) Execute(args []string) error {
	if err := setupGlobalConfig(); err != nil {
		return err
	}

	base, err := secret.FromHex(cmd.Base)
	if err != nil {
		return err
	}
	base = secret.KillBits(base, cmd.GridBits)

	devCfg := opencl.Config{
		PlatformIndex: cmd.PlatformIndex,
		DeviceType:    opencl.DeviceType(cmd.DeviceType),
		DeviceIndex:   cmd.DeviceIndex,
		GridBits:      cmd.GridBits,
		LoopCount:     cmd.LoopCount,
	}
	if err := devCfg.Validate(); err != nil {
		return err
	}

	ctx, err := opencl.NewContext(devCfg)
	if err != nil {
		return err
	}
	defer ctx.Release()
	ui.PrintDevices(os.Stdout, []opencl.DeviceInfo{ctx.Info()})

	passed, results, err := opencl.Verify(ctx, base)
	if err != nil {
		return err
	}
	ui.PrintVerifyResults(os.Stdout, passed, results)
	if !passed {
		return errors.New("device results differ from the CPU")
	}
	return nil
}

// devicesCmd lists the devices.
type devicesCmd struct{}

// Execute is the main entry point for the command.  It's invoked by the parser.
func (cmd *devicesCmd) Execute(args []string) error {
	if err := setupGlobalConfig(); err != nil {
		return err
	}
	if !opencl.Available() {
		return fmt.Errorf("%w: rebuild with -tags opencl", opencl.ErrNotCompiled)
	}

	devices, err := opencl.ListDevices()
	if err != nil {
		return err
	}
	ui.PrintDevices(os.Stdout, devices)
	return nil
}
