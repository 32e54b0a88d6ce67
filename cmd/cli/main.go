package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	clientcli "github.com/dmitrijs2005/stegkeeper/internal/client/cli"
	"github.com/dmitrijs2005/stegkeeper/internal/client/config"
	"github.com/dmitrijs2005/stegkeeper/internal/client/models"
	"github.com/dmitrijs2005/stegkeeper/internal/flagx"
	"github.com/dmitrijs2005/stegkeeper/internal/logging"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains the one-shot subcommands. Anything else starts the
// interactive shell.
var cliCommands = map[string]bool{
	"encode": true, "decode": true, "capacity": true, "keys": true,
	"history": true, "verify": true, "status": true,
	"login": true, "logout": true, "help": true,
}

// commandName returns the first argument that is neither a config flag nor
// a config flag's value.
func commandName(args []string) string {
	known := make(map[string]bool)
	for _, n := range flagx.Names(config.FlagNames...) {
		known[n] = true
	}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			return arg
		}
		if strings.Contains(arg, "=") || !known[arg] {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
		}
	}
	return ""
}

// isCLIMode reports whether args ask for a one-shot command rather than
// the interactive shell.
func isCLIMode(args []string) bool {
	if cliCommands[commandName(args)] {
		return true
	}
	for _, a := range args {
		switch a {
		case "--help", "-h", "--version", "-v":
			return true
		}
	}
	return false
}

// exitCode distinguishes how an operation failed, so scripts can react to
// a destroyed file without parsing messages.
func exitCode(err error) int {
	var oe *clientcli.OutcomeError
	if errors.As(err, &oe) {
		switch oe.Outcome.Kind {
		case models.OutcomeAuthFailure:
			return 2
		case models.OutcomeDestroyed:
			return 3
		case models.OutcomeLocalValidation:
			return 4
		}
	}
	return 1
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	log := logging.NewTextLogger(os.Stderr, cfg.LogLevel)

	e := &env{ctx: ctx, cfg: cfg, log: log}
	defer e.close()

	if isCLIMode(os.Args[1:]) {
		if err := newCLIApp(e).RunContext(ctx, os.Args); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			e.close()
			os.Exit(exitCode(err))
		}
		return
	}

	app, err := e.open()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	app.Root(ctx)
}
