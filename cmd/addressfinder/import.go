package main

import (
	"errors"
	"os"
	"time"

	"github.com/Amr-9/AddressFinder/internal/addressdb"
	"github.com/Amr-9/AddressFinder/internal/ui"
)

var importCfg = importCmd{}

// importCmd defines the configuration options for the import command.
type importCmd struct {
	CachePercent float64 `long:"cachepercent" description:"Share of the total memory used as LevelDB block cache"`
}

// Execute is the main entry point for the command.  It's invoked by the parser.
func (cmd *importCmd) Execute(args []string) error {
	if err := setupGlobalConfig(); err != nil {
		return err
	}
	if len(args) == 0 {
		return errors.New("no address files given")
	}

	if err := os.MkdirAll(cfg.DbDir, 0700); err != nil {
		return err
	}
	db, err := addressdb.Open(cfg.DbDir, addressdb.Options{CachePercent: cmd.CachePercent})
	if err != nil {
		return err
	}
	defer db.Close()

	interrupt := interruptListener()
	start := time.Now()
	for _, path := range args {
		if interruptRequested(interrupt) {
			log.Warnf("Import interrupted before %s", path)
			break
		}

		stats, err := db.ImportFile(path)
		if err != nil {
			return err
		}
		log.Infof("Imported %s: %s lines, %s addresses, %s skipped", path,
			ui.FormatNumber(stats.Lines), ui.FormatNumber(stats.Imported),
			ui.FormatNumber(stats.Skipped))
	}

	n, err := db.Count()
	if err != nil {
		return err
	}
	log.Infof("Database holds %s addresses, import took %s", ui.FormatNumber(n),
		ui.FormatDuration(time.Since(start)))
	return nil
}

// Usage overrides the usage display for the command.
func (cmd *importCmd) Usage() string {
	return "<file> [<file>...]"
}
