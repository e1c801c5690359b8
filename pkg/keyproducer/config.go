package keyproducer

import (
	"fmt"
	"time"
)

// Type selects the KeyProducer implementation.
type Type string

const (
	TypeRandom      Type = "random"
	TypeIncremental Type = "incremental"
	TypeBIP39       Type = "bip39"
	TypeSocket      Type = "socket"
)

// RandomSource selects the generator behind a Random producer.
type RandomSource string

const (
	// SourceSecure draws from crypto/rand.
	SourceSecure RandomSource = "secure"

	// SourceSeeded draws from a PRNG with a fixed seed. Runs are
	// reproducible.
	SourceSeeded RandomSource = "seeded"

	// SourceTime draws from a PRNG seeded with the start time.
	SourceTime RandomSource = "time"
)

// SocketMode selects which side of the TCP connection a Socket producer is.
type SocketMode string

const (
	ModeClient SocketMode = "client"
	ModeServer SocketMode = "server"
)

// Config describes one key producer. Only the section matching Type is read.
type Config struct {
	ID   string `json:"id"`
	Type Type   `json:"type"`

	Random      RandomConfig      `json:"random"`
	Incremental IncrementalConfig `json:"incremental"`
	BIP39       BIP39Config       `json:"bip39"`
	Socket      SocketConfig      `json:"socket"`
}

type RandomConfig struct {
	Source       RandomSource `json:"source"`
	Seed         uint64       `json:"seed"`
	MaxBitLength int          `json:"maxBitLength"`
}

// IncrementalConfig bounds a sequential run. Both ends are inclusive hex
// values.
type IncrementalConfig struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// BIP39Config describes the derivation of secrets from a mnemonic. Path
// names the parent key; every secret is a new child index below it.
type BIP39Config struct {
	Mnemonic   string `json:"mnemonic"`
	Passphrase string `json:"passphrase"`
	Path       string `json:"path"`
	Hardened   bool   `json:"hardened"`
}

type SocketConfig struct {
	Mode                 SocketMode `json:"mode"`
	Host                 string     `json:"host"`
	Port                 int        `json:"port"`
	TimeoutMillis        int        `json:"timeoutMillis"`
	ConnectionRetryCount int        `json:"connectionRetryCount"`
	RetryDelayMillis     int        `json:"retryDelayMillis"`
	ReadRetryCount       int        `json:"readRetryCount"`
}

const (
	DefaultMaxBitLength         = 256
	DefaultBIP39Path            = "m/44'/0'/0'/0"
	DefaultSocketHost           = "localhost"
	DefaultSocketPort           = 12345
	DefaultSocketTimeout        = 3 * time.Second
	DefaultConnectionRetryCount = 5
	DefaultRetryDelay           = time.Second
	DefaultReadRetryCount       = 3
)

// SetDefaults fills in every zero field that has a default.
func (c *Config) SetDefaults() {
	if c.Random.Source == "" {
		c.Random.Source = SourceSecure
	}
	if c.Random.MaxBitLength == 0 {
		c.Random.MaxBitLength = DefaultMaxBitLength
	}
	if c.BIP39.Path == "" {
		c.BIP39.Path = DefaultBIP39Path
	}

	s := &c.Socket
	if s.Mode == "" {
		s.Mode = ModeClient
	}
	if s.Host == "" {
		s.Host = DefaultSocketHost
	}
	if s.Port == 0 {
		s.Port = DefaultSocketPort
	}
	if s.TimeoutMillis == 0 {
		s.TimeoutMillis = int(DefaultSocketTimeout / time.Millisecond)
	}
	if s.ConnectionRetryCount == 0 {
		s.ConnectionRetryCount = DefaultConnectionRetryCount
	}
	if s.RetryDelayMillis == 0 {
		s.RetryDelayMillis = int(DefaultRetryDelay / time.Millisecond)
	}
	if s.ReadRetryCount == 0 {
		s.ReadRetryCount = DefaultReadRetryCount
	}
}

// New builds the producer selected by cfg.Type.
func New(cfg Config) (KeyProducer, error) {
	switch cfg.Type {
	case TypeRandom:
		return NewRandom(cfg.Random)
	case TypeIncremental:
		return NewIncremental(cfg.Incremental)
	case TypeBIP39:
		return NewBIP39(cfg.BIP39)
	case TypeSocket:
		return NewSocket(cfg.Socket)
	default:
		return nil, fmt.Errorf("unknown key producer type %q", cfg.Type)
	}
}
