package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"

	"github.com/Amr-9/AddressFinder/internal/consumer"
	alog "github.com/Amr-9/AddressFinder/internal/log"
)

func TestParseAndSetDebugLevels(t *testing.T) {
	defer alog.SetLogLevels(defaultLogLevel)

	require.NoError(t, parseAndSetDebugLevels("debug"))
	require.Equal(t, btclog.LevelDebug, alog.SubsystemLoggers["CONS"].Level())

	require.NoError(t, parseAndSetDebugLevels("CONS=warn,HITS=trace"))
	require.Equal(t, btclog.LevelWarn, alog.SubsystemLoggers["CONS"].Level())
	require.Equal(t, btclog.LevelTrace, alog.SubsystemLoggers["HITS"].Level())

	require.Error(t, parseAndSetDebugLevels("loud"))
	require.Error(t, parseAndSetDebugLevels("NOPE=info"))
	require.Error(t, parseAndSetDebugLevels("CONS=loud"))
	require.Error(t, parseAndSetDebugLevels("CONS=info,HITS"))
}

func TestCleanAndExpandPath(t *testing.T) {
	require.Equal(t, "", cleanAndExpandPath(""))

	t.Setenv("ADDRESSFINDER_TEST_DIR", "/tmp/af")
	require.Equal(t, filepath.Clean("/tmp/af/db"), cleanAndExpandPath("$ADDRESSFINDER_TEST_DIR/./db"))

	home := filepath.Dir(appHomeDir)
	require.Equal(t, filepath.Join(home, "logs"), cleanAndExpandPath("~/logs"))
}

func TestFindApply(t *testing.T) {
	cmd := findCmd{VanityPrefix: "1Bg", RuntimeCheck: true, StatsInterval: -1}
	var c consumer.Config
	require.NoError(t, cmd.apply(&c))
	require.True(t, c.EnableVanity)
	require.Equal(t, "^1Bg", c.VanityPattern)
	require.True(t, c.RuntimePublicKeyCalculationCheck)
	require.Equal(t, -1, c.PrintStatisticsEverySeconds)

	cmd = findCmd{VanityPrefix: "0x"}
	require.Error(t, cmd.apply(&c))
}

func TestLoadTopology(t *testing.T) {
	saved := *cfg
	defer func() { *cfg = saved }()

	cfg.ConfigFile = ""
	f, err := loadTopology()
	require.NoError(t, err)
	require.Len(t, f.CPUProducers, 1)

	cfg.ConfigFile = filepath.Join(t.TempDir(), "finder.json")
	require.NoError(t, os.WriteFile(cfg.ConfigFile, []byte(`{"keyProducers": []}`), 0o600))
	_, err = loadTopology()
	require.Error(t, err)
}
