package consumer

import "github.com/btcsuite/btclog"

var (
	// log is disabled until the caller requests output with UseLogger.
	log = btclog.Disabled

	// statsLog receives the periodic statistics line.
	statsLog = btclog.Disabled

	// hitLog receives every hit and vanity hit.
	hitLog = btclog.Disabled
)

// DisableLog disables all library log output.
func DisableLog() {
	log = btclog.Disabled
	statsLog = btclog.Disabled
	hitLog = btclog.Disabled
}

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// UseStatsLogger sets the logger of the statistics ticker.
func UseStatsLogger(logger btclog.Logger) {
	statsLog = logger
}

// UseHitLogger sets the logger hits are written to.
func UseHitLogger(logger btclog.Logger) {
	hitLog = logger
}
