package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/stegkeeper/internal/flagx"
)

// FlagNames lists every flag this package reads from os.Args, including the
// config file flags. Subcommand parsers must accept them.
var FlagNames = []string{"a", "t", "i", "d", "audit", "audit-dsn", "o", "store", "l", "c", "config"}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string          base URL of the steganography service
//	-t int             request timeout (seconds)
//	-i int             history poll interval (seconds)
//	-d string          local SQLite database path
//	-audit string      audit sink driver: sqlite or postgres
//	-audit-dsn string  audit sink DSN
//	-o string          directory for encoded results and keys
//	-store string      result store: local or s3
//	-l string          log level: debug, info, warn, error
//
// The function filters os.Args down to the flags it knows about, using
// flagx.FilterArgs, so subcommands and their own flags do not interfere.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], flagx.Names("a", "t", "i", "d", "audit", "audit-dsn", "o", "store", "l"))

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServiceURL, "a", cfg.ServiceURL, "base URL of the steganography service")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	poll := fs.Int("i", int(cfg.HistoryPollInterval.Seconds()), "history poll interval (in seconds)")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "local database path")
	fs.StringVar(&cfg.AuditDriver, "audit", cfg.AuditDriver, "audit sink driver (sqlite or postgres)")
	fs.StringVar(&cfg.AuditDSN, "audit-dsn", cfg.AuditDSN, "audit sink DSN")
	fs.StringVar(&cfg.OutputDir, "o", cfg.OutputDir, "output directory")
	fs.StringVar(&cfg.ResultStore, "store", cfg.ResultStore, "result store (local or s3)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	cfg.HistoryPollInterval = time.Duration(*poll) * time.Second
}
