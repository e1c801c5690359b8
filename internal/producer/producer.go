// Package producer drives the key producers: every producer pulls secrets
// from its source, turns them into public keys on the CPU or on an OpenCL
// device, and puts the keys into the consumer queue.
package producer

import (
	"errors"
	"fmt"

	"github.com/Amr-9/AddressFinder/internal/consumer"
	"github.com/Amr-9/AddressFinder/pkg/secret"
)

// State is the lifecycle of a producer. It only moves forward.
type State int32

const (
	StateUninitialized State = iota
	StateInitialized
	StateRunning
	StateNotRunning
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateInitialized:
		return "INITIALIZED"
	case StateRunning:
		return "RUNNING"
	case StateNotRunning:
		return "NOT_RUNNING"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ErrSecretsLength is returned when a key producer answers with the wrong
// number of secrets. It stops the producer.
var ErrSecretsLength = errors.New("key producer returned the wrong number of secrets")

// Producer is one independently running pipeline from a key producer to the
// consumer queue.
type Producer interface {
	// Init acquires the resources of the producer. A failure leaves it
	// NOT_RUNNING.
	Init() error

	// Run loops until interrupted, exhausted or failed. It blocks.
	Run()

	// Interrupt asks Run to stop after the current iteration.
	Interrupt()

	// WaitTillNotRunning blocks until the producer reached NOT_RUNNING.
	WaitTillNotRunning()

	State() State

	// Release frees the resources acquired by Init. Call it after
	// WaitTillNotRunning.
	Release()

	Name() string
}

// Sink receives the key batches. *consumer.Queue is the production sink.
type Sink interface {
	Put(b consumer.Batch)
}

// Config is shared by all producers.
type Config struct {
	// KeyProducerID names the source of secrets.
	KeyProducerID string `json:"keyProducerId"`

	// BatchSizeInBits is log2 of the number of keys per batch.
	BatchSizeInBits int `json:"batchSizeInBits"`

	// BatchUsePrivateKeyIncrement asks the source for one secret per
	// batch and derives the grid around it. Otherwise every key of the
	// batch comes from the source.
	BatchUsePrivateKeyIncrement bool `json:"batchUsePrivateKeyIncrement"`

	// RunOnce stops after the first batch.
	RunOnce bool `json:"runOnce"`
}

// WorkSize returns the number of keys per batch.
func (c *Config) WorkSize() int {
	return secret.WorkSize(c.BatchSizeInBits)
}

// Validate checks the batch size and the key producer reference.
func (c *Config) Validate() error {
	if c.KeyProducerID == "" {
		return errors.New("producer without key producer id")
	}
	if c.BatchSizeInBits < 0 || c.BatchSizeInBits > secret.MaxGridBits {
		return fmt.Errorf("batch size bits %d outside [0, %d]", c.BatchSizeInBits, secret.MaxGridBits)
	}
	return nil
}
