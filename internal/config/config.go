// Package config holds the finder topology: which key producers exist,
// which producers consume them and how the consumer is tuned. It is read
// from a JSON file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Amr-9/AddressFinder/internal/addressdb"
	"github.com/Amr-9/AddressFinder/internal/consumer"
	"github.com/Amr-9/AddressFinder/internal/producer"
	"github.com/Amr-9/AddressFinder/pkg/keyproducer"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid finder configuration")

// Finder is the whole topology of one run.
type Finder struct {
	Consumer        consumer.Config         `json:"consumer"`
	AddressDB       addressdb.Options       `json:"addressDb"`
	KeyProducers    []keyproducer.Config    `json:"keyProducers"`
	CPUProducers    []producer.CPUConfig    `json:"cpuProducers"`
	OpenCLProducers []producer.OpenCLConfig `json:"openclProducers"`
}

// Default returns a topology with one secure random key producer feeding a
// single CPU producer.
func Default() *Finder {
	f := &Finder{
		KeyProducers: []keyproducer.Config{{ID: "random", Type: keyproducer.TypeRandom}},
		CPUProducers: []producer.CPUConfig{{
			Config: producer.Config{
				KeyProducerID:               "random",
				BatchSizeInBits:             DefaultBatchSizeInBits,
				BatchUsePrivateKeyIncrement: true,
			},
		}},
	}
	f.SetDefaults()
	return f
}

// DefaultBatchSizeInBits is the batch size of the default CPU producer.
const DefaultBatchSizeInBits = 8

// Load reads a topology from path. Unknown fields are rejected.
func Load(path string) (*Finder, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	f, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Decode reads a topology from r, applies the defaults and validates it.
func Decode(r io.Reader) (*Finder, error) {
	var f Finder
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	f.SetDefaults()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// SetDefaults fills the unset fields of every section.
func (f *Finder) SetDefaults() {
	f.Consumer.SetDefaults()
	f.AddressDB.SetDefaults()
	for i := range f.KeyProducers {
		f.KeyProducers[i].SetDefaults()
	}
	for i := range f.CPUProducers {
		f.CPUProducers[i].SetDefaults()
	}
	for i := range f.OpenCLProducers {
		f.OpenCLProducers[i].SetDefaults()
	}
}

// Validate checks every section and the references between them.
func (f *Finder) Validate() error {
	if err := f.Consumer.Validate(); err != nil {
		return fmt.Errorf("%w: consumer: %v", ErrInvalidConfig, err)
	}
	if err := f.AddressDB.Validate(); err != nil {
		return fmt.Errorf("%w: address db: %v", ErrInvalidConfig, err)
	}

	ids := make(map[string]struct{}, len(f.KeyProducers))
	for i, kp := range f.KeyProducers {
		if kp.ID == "" {
			return fmt.Errorf("%w: key producer %d without id", ErrInvalidConfig, i)
		}
		if _, dup := ids[kp.ID]; dup {
			return fmt.Errorf("%w: duplicate key producer id %q", ErrInvalidConfig, kp.ID)
		}
		ids[kp.ID] = struct{}{}
	}

	if len(f.CPUProducers)+len(f.OpenCLProducers) == 0 {
		return fmt.Errorf("%w: no producer configured", ErrInvalidConfig)
	}
	checkRef := func(kind string, i int, id string) error {
		if _, ok := ids[id]; !ok {
			return fmt.Errorf("%w: %s producer %d references unknown key producer %q",
				ErrInvalidConfig, kind, i, id)
		}
		return nil
	}
	for i := range f.CPUProducers {
		p := &f.CPUProducers[i]
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: cpu producer %d: %v", ErrInvalidConfig, i, err)
		}
		if err := checkRef("cpu", i, p.KeyProducerID); err != nil {
			return err
		}
	}
	for i := range f.OpenCLProducers {
		p := &f.OpenCLProducers[i]
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: opencl producer %d: %v", ErrInvalidConfig, i, err)
		}
		if err := checkRef("opencl", i, p.KeyProducerID); err != nil {
			return err
		}
	}
	return nil
}

// Write encodes f as indented JSON.
func (f *Finder) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(f)
}
