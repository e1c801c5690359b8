// Package finder wires a topology into a running search: key producers feed
// producers, producers fill the consumer queue and the consumer checks every
// key against the address database.
package finder

import (
	"fmt"
	"sync"

	"github.com/Amr-9/AddressFinder/internal/config"
	"github.com/Amr-9/AddressFinder/internal/consumer"
	"github.com/Amr-9/AddressFinder/internal/producer"
	"github.com/Amr-9/AddressFinder/pkg/keyproducer"
)

// Finder owns every runtime object of one search.
type Finder struct {
	keyProducers   []keyproducer.KeyProducer
	keyProducerIDs []string
	consumer       *consumer.Consumer
	producers      []producer.Producer

	startOnce    sync.Once
	shutdownOnce sync.Once
	done         chan struct{}
}

// New builds the finder described by cfg. Nothing runs until Start. A nil
// device factory opens real OpenCL devices.
func New(cfg *config.Finder, db consumer.AddressDB, newDevice producer.DeviceFactory) (_ *Finder, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	f := &Finder{done: make(chan struct{})}
	defer func() {
		if err != nil {
			f.closeKeyProducers()
		}
	}()

	sources := make(map[string]keyproducer.KeyProducer, len(cfg.KeyProducers))
	for _, kc := range cfg.KeyProducers {
		kp, err := keyproducer.New(kc)
		if err != nil {
			return nil, fmt.Errorf("key producer %s: %w", kc.ID, err)
		}
		sources[kc.ID] = kp
		f.keyProducers = append(f.keyProducers, kp)
		f.keyProducerIDs = append(f.keyProducerIDs, kc.ID)
	}

	c, err := consumer.New(cfg.Consumer, db)
	if err != nil {
		return nil, err
	}
	f.consumer = c
	sink := f.consumer.Queue()

	for i, pc := range cfg.CPUProducers {
		p, err := producer.NewCPU(fmt.Sprintf("cpu-%d", i), pc, sources[pc.KeyProducerID], sink)
		if err != nil {
			return nil, err
		}
		f.producers = append(f.producers, p)
	}
	for i, pc := range cfg.OpenCLProducers {
		p, err := producer.NewOpenCL(fmt.Sprintf("opencl-%d", i), pc, sources[pc.KeyProducerID], sink, newDevice)
		if err != nil {
			return nil, err
		}
		f.producers = append(f.producers, p)
	}
	return f, nil
}

// OnHit registers a callback run after a hit was logged.
func (f *Finder) OnHit(fn func(consumer.Hit)) {
	f.consumer.OnHit(fn)
}

// Consumer returns the consumer, mostly for its statistics.
func (f *Finder) Consumer() *consumer.Consumer {
	return f.consumer
}

// Producers returns the producers in configuration order, CPU first.
func (f *Finder) Producers() []producer.Producer {
	return f.producers
}

// Start starts the consumer, initializes every producer and runs the ones
// that initialized. A producer failing Init is logged and skipped.
func (f *Finder) Start() {
	f.startOnce.Do(func() {
		f.consumer.Start()

		started := 0
		for _, p := range f.producers {
			if err := p.Init(); err != nil {
				log.Errorf("Producer %s failed to initialize: %v", p.Name(), err)
				continue
			}
			started++
			go p.Run()
		}
		log.Infof("Started %d of %d producers", started, len(f.producers))

		go func() {
			for _, p := range f.producers {
				p.WaitTillNotRunning()
			}
			log.Infof("All producers stopped")
			close(f.done)
		}()
	})
}

// Done is closed once every producer is NOT_RUNNING, on exhaustion, failure
// or Shutdown.
func (f *Finder) Done() <-chan struct{} {
	return f.done
}

// Shutdown stops the producers, lets the consumer drain the queue and
// releases every resource. It blocks until done and can be called more
// than once.
func (f *Finder) Shutdown() error {
	var err error
	f.shutdownOnce.Do(func() {
		log.Infof("Shutting down")
		for _, p := range f.producers {
			p.Interrupt()
		}
		// Unblocks sources waiting on the network.
		for _, kp := range f.keyProducers {
			kp.Interrupt()
		}
		for _, p := range f.producers {
			p.WaitTillNotRunning()
			p.Release()
			log.Debugf("Producer %s released", p.Name())
		}

		f.consumer.Interrupt()
		f.consumer.WaitTillNotRunning()
		log.Infof("Consumer stopped: %v", f.consumer.Statistics().Snapshot(f.consumer.Queue()))

		err = f.closeKeyProducers()
	})
	return err
}

func (f *Finder) closeKeyProducers() error {
	var first error
	for i, kp := range f.keyProducers {
		if err := kp.Close(); err != nil {
			log.Warnf("Key producer %s close: %v", f.keyProducerIDs[i], err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}
