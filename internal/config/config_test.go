package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Amr-9/AddressFinder/internal/addressdb"
	"github.com/Amr-9/AddressFinder/internal/consumer"
	"github.com/Amr-9/AddressFinder/internal/producer"
	"github.com/Amr-9/AddressFinder/pkg/keyproducer"
	"github.com/Amr-9/AddressFinder/pkg/opencl"
)

const topology = `{
  "consumer": {"threads": 2, "enableVanity": true, "vanityPattern": "^1Bg"},
  "keyProducers": [
    {"id": "seq", "type": "incremental", "incremental": {"start": "0x1", "end": "0xffff"}},
    {"id": "rnd", "type": "random", "random": {"source": "seeded", "seed": 7}}
  ],
  "cpuProducers": [
    {"keyProducerId": "seq", "batchSizeInBits": 4, "batchUsePrivateKeyIncrement": true}
  ],
  "openclProducers": [
    {"keyProducerId": "rnd", "batchSizeInBits": 10, "loopCount": 4, "deviceType": "all"}
  ]
}`

func TestDecode(t *testing.T) {
	f, err := Decode(strings.NewReader(topology))
	require.NoError(t, err)

	require.Equal(t, 2, f.Consumer.Threads)
	require.Equal(t, consumer.DefaultQueueSize, f.Consumer.QueueSize)
	require.Equal(t, addressdb.DefaultCachePercent, f.AddressDB.CachePercent)

	require.Len(t, f.KeyProducers, 2)
	require.Equal(t, keyproducer.TypeIncremental, f.KeyProducers[0].Type)
	require.Equal(t, keyproducer.SourceSeeded, f.KeyProducers[1].Random.Source)
	require.Equal(t, keyproducer.DefaultMaxBitLength, f.KeyProducers[1].Random.MaxBitLength)

	require.Len(t, f.CPUProducers, 1)
	require.Equal(t, 16, f.CPUProducers[0].WorkSize())
	require.Positive(t, f.CPUProducers[0].Threads)

	require.Len(t, f.OpenCLProducers, 1)
	p := f.OpenCLProducers[0]
	require.Equal(t, opencl.DeviceTypeAll, p.DeviceType)
	dev := p.Device()
	require.Equal(t, 256, dev.WorkItems())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finder.json")
	require.NoError(t, os.WriteFile(path, []byte(topology), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	require.Len(t, f.KeyProducers, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestDefaultRoundTrip(t *testing.T) {
	f := Default()
	require.NoError(t, f.Validate())

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	again, err := Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, f, again)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *Finder)
	}{
		{"no producers", func(f *Finder) { f.CPUProducers = nil }},
		{"unknown reference", func(f *Finder) { f.CPUProducers[0].KeyProducerID = "nope" }},
		{"duplicate id", func(f *Finder) { f.KeyProducers = append(f.KeyProducers, f.KeyProducers[0]) }},
		{"empty id", func(f *Finder) { f.KeyProducers[0].ID = "" }},
		{"batch too wide", func(f *Finder) { f.CPUProducers[0].BatchSizeInBits = 33 }},
		{"bad vanity", func(f *Finder) {
			f.Consumer.EnableVanity = true
			f.Consumer.VanityPattern = "("
		}},
		{"bad loop count", func(f *Finder) {
			f.OpenCLProducers = append(f.OpenCLProducers, opencl0())
			f.OpenCLProducers[0].LoopCount = 3
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := Default()
			tc.mutate(f)
			err := f.Validate()
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func opencl0() producer.OpenCLConfig {
	p := producer.OpenCLConfig{Config: producer.Config{KeyProducerID: "random", BatchSizeInBits: 4}}
	p.SetDefaults()
	return p
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"consumer": {"thread": 2}}`))
	require.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = Decode(strings.NewReader(`{"cpuProducers": [`))
	require.True(t, errors.Is(err, ErrInvalidConfig))
}
