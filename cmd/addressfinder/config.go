package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/Amr-9/AddressFinder/internal/config"
	alog "github.com/Amr-9/AddressFinder/internal/log"
)

const (
	defaultLogFilename = "addressfinder.log"
	defaultDbDirname   = "addresses"
	defaultLogLevel    = "info"
)

var (
	appHomeDir = btcutil.AppDataDir("addressfinder", false)

	// Default global config.
	cfg = &globalConfig{
		LogDir:     filepath.Join(appHomeDir, "logs"),
		DbDir:      filepath.Join(appHomeDir, defaultDbDirname),
		DebugLevel: defaultLogLevel,
	}
)

// globalConfig defines the global configuration options.
type globalConfig struct {
	ConfigFile string `short:"C" long:"configfile" description:"Path to the JSON finder topology"`
	LogDir     string `long:"logdir" description:"Directory to log output"`
	DbDir      string `short:"b" long:"dbdir" description:"Location of the address database"`
	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`
}

// setupGlobalConfig validates the global options and starts the file log.
// Every command calls it first.
func setupGlobalConfig() error {
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return err
	}

	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	cfg.DbDir = cleanAndExpandPath(cfg.DbDir)
	cfg.ConfigFile = cleanAndExpandPath(cfg.ConfigFile)

	return alog.InitLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))
}

// loadTopology reads the finder topology, falling back to the default when
// no file was given.
func loadTopology() (*config.Finder, error) {
	if cfg.ConfigFile == "" {
		return config.Default(), nil
	}
	return config.Load(cfg.ConfigFile)
}

// cleanAndExpandPath expands environment variables and a leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(appHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	return filepath.Clean(os.ExpandEnv(path))
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		if !alog.ValidLogLevel(debugLevel) {
			return fmt.Errorf("the specified debug level [%v] is invalid", debugLevel)
		}
		alog.SetLogLevels(debugLevel)
		return nil
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			return fmt.Errorf("the specified debug level contains an invalid "+
				"subsystem/level pair [%v]", logLevelPair)
		}

		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		if _, exists := alog.SubsystemLoggers[subsysID]; !exists {
			return fmt.Errorf("the specified subsystem [%v] is invalid -- "+
				"supported subsystems %v", subsysID, alog.SupportedSubsystems())
		}
		if !alog.ValidLogLevel(logLevel) {
			return fmt.Errorf("the specified debug level [%v] is invalid", logLevel)
		}

		alog.SetLogLevel(subsysID, logLevel)
	}
	return nil
}
