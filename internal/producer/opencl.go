package producer

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"

	"github.com/Amr-9/AddressFinder/pkg/keyproducer"
	"github.com/Amr-9/AddressFinder/pkg/opencl"
	"github.com/Amr-9/AddressFinder/pkg/secret"
)

const (
	DefaultMaxResultReaderThreads = 4
	DefaultDelayEnqueueMillis     = 10
	DefaultLoopCount              = 8
)

// OpenCLConfig configures an OpenCL producer. BatchSizeInBits is the grid
// size of every kernel launch.
type OpenCLConfig struct {
	Config

	PlatformIndex int               `json:"platformIndex"`
	DeviceType    opencl.DeviceType `json:"deviceType"`
	DeviceIndex   int               `json:"deviceIndex"`
	LoopCount     int               `json:"loopCount"`

	// MaxResultReaderThreads bounds the device results being converted
	// and enqueued at the same time.
	MaxResultReaderThreads int `json:"maxResultReaderThreads"`

	// DelayEnqueueMillis is the wait between polls for a free reader.
	DelayEnqueueMillis int `json:"delayEnqueueMillis"`
}

// SetDefaults fills unset fields.
func (c *OpenCLConfig) SetDefaults() {
	if c.DeviceType == "" {
		c.DeviceType = opencl.DeviceTypeGPU
	}
	if c.LoopCount == 0 {
		c.LoopCount = DefaultLoopCount
		if ws := c.WorkSize(); ws < c.LoopCount {
			c.LoopCount = ws
		}
	}
	if c.MaxResultReaderThreads == 0 {
		c.MaxResultReaderThreads = DefaultMaxResultReaderThreads
	}
	if c.DelayEnqueueMillis == 0 {
		c.DelayEnqueueMillis = DefaultDelayEnqueueMillis
	}
}

// Validate checks the configuration after SetDefaults.
func (c *OpenCLConfig) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if c.MaxResultReaderThreads < 1 {
		return fmt.Errorf("result reader threads must be positive, got %d", c.MaxResultReaderThreads)
	}
	if c.DelayEnqueueMillis < 1 {
		return fmt.Errorf("enqueue delay must be positive, got %d", c.DelayEnqueueMillis)
	}
	dev := c.Device()
	return dev.Validate()
}

// Device returns the device selection and launch shape.
func (c *OpenCLConfig) Device() opencl.Config {
	return opencl.Config{
		PlatformIndex: c.PlatformIndex,
		DeviceType:    c.DeviceType,
		DeviceIndex:   c.DeviceIndex,
		GridBits:      c.BatchSizeInBits,
		LoopCount:     c.LoopCount,
	}
}

// Device is an opened OpenCL device.
type Device interface {
	opencl.Runner
	Release()
}

// DeviceFactory opens a device. NewContextDevice is the production factory.
type DeviceFactory func(cfg opencl.Config) (Device, error)

// NewContextDevice opens cfg with opencl.NewContext.
func NewContextDevice(cfg opencl.Config) (Device, error) {
	c, err := opencl.NewContext(cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// OpenCL materializes keys on an OpenCL device. The device call runs on the
// producer goroutine; converting and enqueueing the result runs on a bounded
// pool of readers.
type OpenCL struct {
	*lifecycle

	cfg       OpenCLConfig
	newDevice DeviceFactory
	device    Device
	delay     time.Duration
	readers   errgroup.Group
}

// NewOpenCL returns an uninitialized OpenCL producer. A nil factory means
// NewContextDevice.
func NewOpenCL(name string, cfg OpenCLConfig, source keyproducer.KeyProducer, sink Sink, newDevice DeviceFactory) (*OpenCL, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if newDevice == nil {
		newDevice = NewContextDevice
	}

	p := &OpenCL{
		lifecycle: newLifecycle(name, cfg.Config, source, sink),
		cfg:       cfg,
		newDevice: newDevice,
		delay:     time.Duration(cfg.DelayEnqueueMillis) * time.Millisecond,
	}
	p.proc = p
	p.readers.SetLimit(cfg.MaxResultReaderThreads)
	return p, nil
}

func (p *OpenCL) init() error {
	device, err := p.newDevice(p.cfg.Device())
	if err != nil {
		return fmt.Errorf("failed to initialize OpenCL: %w", err)
	}
	if device.WorkSize() != p.cfg.WorkSize() {
		device.Release()
		return fmt.Errorf("device work size %d, expected %d", device.WorkSize(), p.cfg.WorkSize())
	}
	p.device = device
	return nil
}

func (p *OpenCL) processSecrets(secrets []*uint256.Int) error {
	results := make(chan *opencl.GridResult, 1)
	defer close(results)

	// Reserve a reader before the device call so that finished results
	// never pile up in memory.
	for !p.readers.TryGo(func() error {
		if r := <-results; r != nil {
			p.read(r)
		}
		return nil
	}) {
		if !p.shouldRun.Load() {
			return nil
		}
		time.Sleep(p.delay)
	}

	var (
		r   *opencl.GridResult
		err error
	)
	if p.cfg.BatchUsePrivateKeyIncrement {
		base := secret.KillBits(secrets[0], p.cfg.BatchSizeInBits)
		if r, err = p.device.Run(base); err != nil {
			log.Errorf("%s: device call at base %s failed, batch abandoned: %v", p.name, secret.Hex(base), err)
			return nil
		}
	} else {
		if r, err = p.device.RunSecrets(secrets); err != nil {
			log.Errorf("%s: device call for %d secrets starting at %s failed, batch abandoned: %v",
				p.name, len(secrets), secret.Hex(secrets[0]), err)
			return nil
		}
	}
	results <- r
	return nil
}

// read converts r and enqueues the keys.
func (p *OpenCL) read(r *opencl.GridResult) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("%s: recovered from panic reading device result: %v", p.name, rec)
		}
	}()

	keys, err := r.PublicKeyBytes()
	if err != nil {
		log.Errorf("%s: bad device result at base %s: %v", p.name, secret.Hex(&r.Base), err)
		return
	}
	p.sink.Put(keys)
}

func (p *OpenCL) drain() {
	p.readers.Wait()
}

func (p *OpenCL) release() {
	if p.device != nil {
		p.device.Release()
		p.device = nil
	}
}
