// Package log owns the logging backend of the finder. Every library package
// logs through a subsystem logger handed to it here and stays silent until
// then.
package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"

	"github.com/Amr-9/AddressFinder/internal/addressdb"
	"github.com/Amr-9/AddressFinder/internal/consumer"
	"github.com/Amr-9/AddressFinder/internal/finder"
	"github.com/Amr-9/AddressFinder/internal/producer"
	"github.com/Amr-9/AddressFinder/pkg/keyproducer"
	"github.com/Amr-9/AddressFinder/pkg/opencl"
)

// logWriter implements an io.Writer that outputs to both standard output and
// the log rotator, once one has been initialized.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)
	if LogRotator != nil {
		LogRotator.Write(p)
	}
	return len(p), nil
}

var (
	// backendLog is the logging backend used to create all subsystem
	// loggers.
	backendLog = btclog.NewBackend(logWriter{})

	// LogRotator is the file output. It is nil until InitLogRotator is
	// called and should be closed on shutdown.
	LogRotator *rotator.Rotator

	FindLog = backendLog.Logger("FIND")
	prodLog = backendLog.Logger("PROD")
	consLog = backendLog.Logger("CONS")
	statLog = backendLog.Logger("STAT")
	hitsLog = backendLog.Logger("HITS")
	addbLog = backendLog.Logger("ADDB")
	opclLog = backendLog.Logger("OPCL")
	keypLog = backendLog.Logger("KEYP")
)

func init() {
	finder.UseLogger(FindLog)
	producer.UseLogger(prodLog)
	consumer.UseLogger(consLog)
	consumer.UseStatsLogger(statLog)
	consumer.UseHitLogger(hitsLog)
	addressdb.UseLogger(addbLog)
	opencl.UseLogger(opclLog)
	keyproducer.UseLogger(keypLog)
}

// SubsystemLoggers maps each subsystem identifier to its logger.
var SubsystemLoggers = map[string]btclog.Logger{
	"FIND": FindLog,
	"PROD": prodLog,
	"CONS": consLog,
	"STAT": statLog,
	"HITS": hitsLog,
	"ADDB": addbLog,
	"OPCL": opclLog,
	"KEYP": keypLog,
}

// InitLogRotator makes the backend also write to logFile, rolling it over
// into the same directory.
func InitLogRotator(logFile string) error {
	logDir, _ := filepath.Split(logFile)
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0700); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %w", err)
	}

	LogRotator = r
	return nil
}

// SetLogLevel sets the logging level for the given subsystem. Unknown
// subsystems are ignored and an unknown level means info.
func SetLogLevel(subsystemID string, logLevel string) {
	logger, ok := SubsystemLoggers[subsystemID]
	if !ok {
		return
	}

	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// SetLogLevels sets the level of every subsystem.
func SetLogLevels(logLevel string) {
	for subsystemID := range SubsystemLoggers {
		SetLogLevel(subsystemID, logLevel)
	}
}

// SupportedSubsystems returns the sorted subsystem identifiers.
func SupportedSubsystems() []string {
	subsystems := make([]string, 0, len(SubsystemLoggers))
	for id := range SubsystemLoggers {
		subsystems = append(subsystems, id)
	}
	sort.Strings(subsystems)
	return subsystems
}

// ValidLogLevel reports whether logLevel names a btclog level.
func ValidLogLevel(logLevel string) bool {
	_, ok := btclog.LevelFromString(logLevel)
	return ok
}
