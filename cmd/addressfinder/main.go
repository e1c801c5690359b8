// Command addressfinder searches the secp256k1 key space for keys whose
// addresses are in a LevelDB address database.
package main

import (
	"os"
	"path/filepath"
	"strings"

	flags "github.com/jessevdk/go-flags"

	alog "github.com/Amr-9/AddressFinder/internal/log"
)

const version = "0.1.0"

var log = alog.FindLog

// realMain is the real main function for the utility.  It is necessary to work
// around the fact that deferred functions do not run when os.Exit() is called.
func realMain() error {
	defer func() {
		if alog.LogRotator != nil {
			alog.LogRotator.Close()
		}
	}()

	// Setup the parser options and commands.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	parserFlags := flags.Options(flags.HelpFlag | flags.PassDoubleDash)
	parser := flags.NewNamedParser(appName, parserFlags)
	parser.AddGroup("Global Options", "", cfg)
	parser.AddCommand("find",
		"Search for keys of the addresses in the database",
		"Search for keys of the addresses in the database.  The "+
			"producers are described by the JSON file given with "+
			"--configfile; without one a single CPU producer draws "+
			"random secrets.", &findCfg)
	parser.AddCommand("import",
		"Import address lists into the database",
		"Import address lists into the database.  Every line holds a "+
			"P2PKH or P2WPKH address or a hex hash-160, optionally "+
			"followed by a comma and an amount.  Files ending in .gz "+
			"are decompressed.", &importCfg)
	parser.AddCommand("verify",
		"Compare the OpenCL kernel against the CPU implementation",
		"", &verifyCfg)
	parser.AddCommand("devices",
		"List the OpenCL platforms and devices", "", &devicesCfg)

	// Parse command line and invoke the Execute function for the specified
	// command.
	if _, err := parser.Parse(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		} else {
			log.Error(err)
		}

		return err
	}

	return nil
}

func main() {
	// Work around defer not working after os.Exit()
	if err := realMain(); err != nil {
		os.Exit(1)
	}
}
