package main

import (
	"os"
	"sync"

	"github.com/Amr-9/AddressFinder/internal/addressdb"
	"github.com/Amr-9/AddressFinder/internal/consumer"
	"github.com/Amr-9/AddressFinder/internal/finder"
	"github.com/Amr-9/AddressFinder/internal/ui"
)

var findCfg = findCmd{}

// findCmd defines the configuration options for the find command.
type findCmd struct {
	VanityPrefix  string `long:"vanityprefix" description:"Also report every P2PKH address starting with this prefix"`
	RuntimeCheck  bool   `long:"runtimecheck" description:"Recompute every key with an independent implementation"`
	HighPriority  bool   `long:"highpriority" description:"Raise the scheduling priority of the process"`
	StatsInterval int    `long:"statsinterval" description:"Seconds between statistics lines, negative to disable"`
	Bloom         bool   `long:"bloom" description:"Load every address into an in-memory Bloom filter first"`
}

// Execute is the main entry point for the command.  It's invoked by the parser.
func (cmd *findCmd) Execute(args []string) error {
	if err := setupGlobalConfig(); err != nil {
		return err
	}
	ui.PrintWelcomeBanner(os.Stdout, version)

	topology, err := loadTopology()
	if err != nil {
		return err
	}
	if err := cmd.apply(&topology.Consumer); err != nil {
		return err
	}
	if cmd.Bloom {
		topology.AddressDB.BloomFilter = true
	}
	topology.SetDefaults()
	if err := topology.Validate(); err != nil {
		return err
	}

	if cmd.HighPriority {
		if err := raisePriority(); err != nil {
			log.Warnf("Unable to raise process priority: %v", err)
		}
	}

	opts := topology.AddressDB
	opts.ReadOnly = true
	db, err := addressdb.Open(cfg.DbDir, opts)
	if err != nil {
		return err
	}
	defer db.Close()
	if n, err := db.Count(); err == nil {
		log.Infof("Address database %s holds %s addresses", cfg.DbDir, ui.FormatNumber(n))
	}

	f, err := finder.New(topology, db, nil)
	if err != nil {
		return err
	}
	log.Info(f.Consumer())

	var printMu sync.Mutex
	f.OnHit(func(h consumer.Hit) {
		printMu.Lock()
		defer printMu.Unlock()
		ui.PrintHit(os.Stdout, h.Key)
	})

	interrupt := interruptListener()
	f.Start()
	select {
	case <-interrupt:
	case <-f.Done():
	}
	return f.Shutdown()
}

// apply copies the command line overrides into the consumer configuration.
func (cmd *findCmd) apply(c *consumer.Config) error {
	if cmd.VanityPrefix != "" {
		pattern, err := consumer.VanityPrefixPattern(cmd.VanityPrefix)
		if err != nil {
			return err
		}
		c.EnableVanity = true
		c.VanityPattern = pattern
	}
	if cmd.RuntimeCheck {
		c.RuntimePublicKeyCalculationCheck = true
	}
	if cmd.StatsInterval != 0 {
		c.PrintStatisticsEverySeconds = cmd.StatsInterval
	}
	return nil
}
