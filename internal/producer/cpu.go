package producer

import (
	"fmt"
	"runtime"

	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"

	"github.com/Amr-9/AddressFinder/internal/consumer"
	"github.com/Amr-9/AddressFinder/pkg/keyproducer"
	"github.com/Amr-9/AddressFinder/pkg/publickey"
	"github.com/Amr-9/AddressFinder/pkg/secret"
)

// CPUConfig configures a CPU producer.
type CPUConfig struct {
	Config

	// Threads is the number of goroutines a batch is split across. Zero
	// means one per CPU.
	Threads int `json:"threads"`
}

// SetDefaults fills unset fields.
func (c *CPUConfig) SetDefaults() {
	if c.Threads == 0 {
		c.Threads = runtime.NumCPU()
	}
}

// Validate checks the configuration after SetDefaults.
func (c *CPUConfig) Validate() error {
	if c.Threads < 1 {
		return fmt.Errorf("cpu producer threads must be positive, got %d", c.Threads)
	}
	return c.Config.Validate()
}

// CPU materializes keys with btcec on the calling machine.
type CPU struct {
	*lifecycle
	threads int
}

// NewCPU returns an uninitialized CPU producer.
func NewCPU(name string, cfg CPUConfig, source keyproducer.KeyProducer, sink Sink) (*CPU, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	p := &CPU{
		lifecycle: newLifecycle(name, cfg.Config, source, sink),
		threads:   cfg.Threads,
	}
	p.proc = p
	return p, nil
}

func (p *CPU) init() error { return nil }
func (p *CPU) drain()      {}
func (p *CPU) release()    {}

func (p *CPU) processSecrets(secrets []*uint256.Int) error {
	var keys consumer.Batch
	if p.cfg.BatchUsePrivateKeyIncrement {
		base := secret.KillBits(secrets[0], p.cfg.BatchSizeInBits)
		grid, err := secret.DeriveGrid(base, p.cfg.WorkSize())
		if err != nil {
			return err
		}
		keys = p.materialize(len(grid), func(i int) *uint256.Int { return &grid[i] })
	} else {
		keys = p.materialize(len(secrets), func(i int) *uint256.Int { return secrets[i] })
	}

	p.sink.Put(keys)
	return nil
}

// materialize computes n keys, splitting the range across the threads.
// Invalid secrets become publickey.Invalid.
func (p *CPU) materialize(n int, secretAt func(i int) *uint256.Int) consumer.Batch {
	keys := make(consumer.Batch, n)

	chunk := (n + p.threads - 1) / p.threads
	var g errgroup.Group
	for start := 0; start < n; start += chunk {
		start, end := start, start+chunk
		if end > n {
			end = n
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				keys[i] = publickey.FromSecretOrInvalid(secretAt(i))
			}
			return nil
		})
	}
	g.Wait()
	return keys
}
