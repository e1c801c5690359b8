package log

import (
	"path/filepath"
	"testing"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"
)

func TestSupportedSubsystems(t *testing.T) {
	require.Equal(t, []string{"ADDB", "CONS", "FIND", "HITS", "KEYP", "OPCL", "PROD", "STAT"},
		SupportedSubsystems())
}

func TestSetLogLevels(t *testing.T) {
	SetLogLevels("debug")
	for id, l := range SubsystemLoggers {
		require.Equal(t, btclog.LevelDebug, l.Level(), id)
	}

	SetLogLevel("HITS", "warn")
	require.Equal(t, btclog.LevelWarn, SubsystemLoggers["HITS"].Level())

	SetLogLevel("NOPE", "trace")
	SetLogLevels("info")
	require.Equal(t, btclog.LevelInfo, FindLog.Level())
}

func TestValidLogLevel(t *testing.T) {
	require.True(t, ValidLogLevel("trace"))
	require.True(t, ValidLogLevel("critical"))
	require.False(t, ValidLogLevel("loud"))
}

func TestInitLogRotator(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "finder.log")
	require.NoError(t, InitLogRotator(file))
	defer func() {
		LogRotator.Close()
		LogRotator = nil
	}()

	FindLog.Info("rotator test")
	require.FileExists(t, file)
}
