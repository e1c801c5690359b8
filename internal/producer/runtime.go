package producer

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/holiman/uint256"

	"github.com/Amr-9/AddressFinder/pkg/keyproducer"
)

// batchProcessor is the part that differs between CPU and OpenCL producers.
type batchProcessor interface {
	// init acquires resources. It runs once, from Init.
	init() error

	// processSecrets turns the secrets of one iteration into keys and
	// hands them to the sink. In grid mode secrets holds the base only.
	processSecrets(secrets []*uint256.Int) error

	// drain waits for keys still in flight.
	drain()

	release()
}

// lifecycle runs the loop shared by all producers.
type lifecycle struct {
	name   string
	cfg    Config
	source keyproducer.KeyProducer
	sink   Sink
	proc   batchProcessor

	state     atomic.Int32
	shouldRun atomic.Bool

	done        chan struct{}
	doneOnce    sync.Once
	releaseOnce sync.Once
}

func newLifecycle(name string, cfg Config, source keyproducer.KeyProducer, sink Sink) *lifecycle {
	return &lifecycle{
		name:   name,
		cfg:    cfg,
		source: source,
		sink:   sink,
		done:   make(chan struct{}),
	}
}

func (l *lifecycle) Name() string {
	return l.name
}

func (l *lifecycle) State() State {
	return State(l.state.Load())
}

func (l *lifecycle) setState(s State) {
	l.state.Store(int32(s))
}

func (l *lifecycle) stop() {
	l.setState(StateNotRunning)
	l.doneOnce.Do(func() { close(l.done) })
}

func (l *lifecycle) Init() error {
	if l.State() != StateUninitialized {
		return fmt.Errorf("%s: init in state %s", l.name, l.State())
	}
	if err := l.proc.init(); err != nil {
		l.stop()
		return fmt.Errorf("%s: %w", l.name, err)
	}

	l.shouldRun.Store(true)
	l.setState(StateInitialized)
	log.Infof("%s: initialized, %d keys per batch, grid mode %t",
		l.name, l.cfg.WorkSize(), l.cfg.BatchUsePrivateKeyIncrement)
	return nil
}

func (l *lifecycle) Run() {
	if !l.state.CompareAndSwap(int32(StateInitialized), int32(StateRunning)) {
		log.Warnf("%s: not started from state %s", l.name, l.State())
		return
	}
	defer l.stop()
	defer l.proc.drain()

	log.Infof("%s: running", l.name)
	for l.shouldRun.Load() {
		err := l.iteration()
		switch {
		case errors.Is(err, keyproducer.ErrNoMoreSecrets):
			log.Infof("%s: %v", l.name, err)
			return
		case err != nil:
			log.Errorf("%s: stopped: %v", l.name, err)
			return
		}
		if l.cfg.RunOnce {
			log.Infof("%s: single batch done", l.name)
			return
		}
	}
	log.Infof("%s: interrupted", l.name)
}

// iteration runs one batch. Panics are turned into errors.
func (l *lifecycle) iteration() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	workSize := l.cfg.WorkSize()
	secrets, err := l.source.CreateSecrets(workSize, l.cfg.BatchUsePrivateKeyIncrement)
	if err != nil {
		return err
	}

	want := workSize
	if l.cfg.BatchUsePrivateKeyIncrement {
		want = 1
	}
	if len(secrets) != want {
		return fmt.Errorf("%w: got %d, expected %d", ErrSecretsLength, len(secrets), want)
	}
	return l.proc.processSecrets(secrets)
}

func (l *lifecycle) Interrupt() {
	l.shouldRun.Store(false)
	if l.state.CompareAndSwap(int32(StateInitialized), int32(StateNotRunning)) ||
		l.state.CompareAndSwap(int32(StateUninitialized), int32(StateNotRunning)) {
		l.stop()
	}
}

func (l *lifecycle) WaitTillNotRunning() {
	<-l.done
}

func (l *lifecycle) Release() {
	l.releaseOnce.Do(l.proc.release)
}
