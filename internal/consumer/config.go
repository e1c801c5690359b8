package consumer

import (
	"fmt"
	"regexp"
	"runtime"
	"time"
)

const (
	DefaultDelayEmptyConsumerMillis    = 10
	DefaultQueueSize                   = 4
	DefaultPrintStatisticsEverySeconds = 60
)

// Config of the consumer pool.
type Config struct {
	// Threads is the number of workers. Zero means one per CPU.
	Threads int `json:"threads"`

	// DelayEmptyConsumerMillis is how long a worker waits on an empty
	// queue before counting an empty poll.
	DelayEmptyConsumerMillis int `json:"delayEmptyConsumerMillis"`

	// QueueSize is the capacity of the queue in batches.
	QueueSize int `json:"queueSize"`

	// RuntimePublicKeyCalculationCheck recomputes every key with an
	// independent implementation and logs any difference.
	RuntimePublicKeyCalculationCheck bool `json:"runtimePublicKeyCalculationCheck"`

	EnableVanity  bool   `json:"enableVanity"`
	VanityPattern string `json:"vanityPattern"`

	// PrintStatisticsEverySeconds is the statistics interval. Negative
	// disables the statistics line.
	PrintStatisticsEverySeconds int `json:"printStatisticsEverySeconds"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Threads == 0 {
		c.Threads = runtime.NumCPU()
	}
	if c.DelayEmptyConsumerMillis == 0 {
		c.DelayEmptyConsumerMillis = DefaultDelayEmptyConsumerMillis
	}
	if c.QueueSize == 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.PrintStatisticsEverySeconds == 0 {
		c.PrintStatisticsEverySeconds = DefaultPrintStatisticsEverySeconds
	}
}

// Validate checks the configuration after SetDefaults.
func (c *Config) Validate() error {
	if c.Threads < 1 {
		return fmt.Errorf("consumer threads must be positive, got %d", c.Threads)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("queue size must be positive, got %d", c.QueueSize)
	}
	if c.DelayEmptyConsumerMillis < 1 {
		return fmt.Errorf("empty consumer delay must be positive, got %d", c.DelayEmptyConsumerMillis)
	}
	if c.EnableVanity {
		if c.VanityPattern == "" {
			return fmt.Errorf("vanity enabled without a pattern")
		}
		if _, err := regexp.Compile(c.VanityPattern); err != nil {
			return fmt.Errorf("invalid vanity pattern: %w", err)
		}
	}
	return nil
}

func (c *Config) delayEmptyConsumer() time.Duration {
	return time.Duration(c.DelayEmptyConsumerMillis) * time.Millisecond
}

func (c *Config) printStatisticsEvery() time.Duration {
	if c.PrintStatisticsEverySeconds <= 0 {
		return 0
	}
	return time.Duration(c.PrintStatisticsEverySeconds) * time.Second
}
