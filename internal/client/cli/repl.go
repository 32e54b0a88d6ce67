package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Status(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	SelectTab(ctx context.Context, kind string) error
	SetDirection(ctx context.Context, direction string) error
	LoadFile(ctx context.Context, path string) error
	LoadKey(ctx context.Context, path string) error
	PasteKey(ctx context.Context) error
	ToggleKeyMode(ctx context.Context) error
	EnterSecret(ctx context.Context, text string) error
	Capacity(ctx context.Context) error
	Submit(ctx context.Context) error
	Reset(ctx context.Context) error
	Show(ctx context.Context) error
	GenerateKeys(ctx context.Context) error
	History(ctx context.Context) error
	Verify(ctx context.Context) error
}

const helpText = `Available commands:
  tab <image|audio|video>   switch media tab (starts a new session)
  mode <encode|decode>      switch direction (starts a new session)
  file <path>               select the cover or encoded file
  key <path>                select a key file
  keytext                   paste a PEM key
  keymode                   toggle between key file and pasted key
  secret [text]             set the message to embed
  capacity                  show how much the cover file can carry
  submit                    run the operation
  reset                     clear the session
  show                      show the session
  keys                      generate a key pair
  history | verify          show or check your audit trail
  status | login | logout   service and identity
  exit                      leave the program`

// runREPL starts a simple read–eval–print loop for the stegkeeper CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Arguments are the rest of the line, so paths
// and messages may contain spaces. Command errors are printed and the loop
// goes on. The loop exits on EOF or when the user types "exit" or "quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("sk %s> ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		var cmdErr error
		switch cmd {
		case "help":
			printlnFn(helpText)

		case "status":
			cmdErr = a.Status(ctx)

		case "login":
			cmdErr = a.Login(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "tab":
			if arg == "" {
				printlnFn("Usage: tab <image|audio|video>")
				continue
			}
			cmdErr = a.SelectTab(ctx, arg)

		case "mode":
			if arg == "" {
				printlnFn("Usage: mode <encode|decode>")
				continue
			}
			cmdErr = a.SetDirection(ctx, arg)

		case "file":
			if arg == "" {
				printlnFn("Usage: file <path>")
				continue
			}
			cmdErr = a.LoadFile(ctx, arg)

		case "key":
			if arg == "" {
				printlnFn("Usage: key <path>")
				continue
			}
			cmdErr = a.LoadKey(ctx, arg)

		case "keytext":
			cmdErr = a.PasteKey(ctx)

		case "keymode":
			cmdErr = a.ToggleKeyMode(ctx)

		case "secret":
			cmdErr = a.EnterSecret(ctx, arg)

		case "capacity":
			cmdErr = a.Capacity(ctx)

		case "submit":
			cmdErr = a.Submit(ctx)

		case "reset":
			cmdErr = a.Reset(ctx)

		case "show":
			cmdErr = a.Show(ctx)

		case "keys":
			cmdErr = a.GenerateKeys(ctx)

		case "history":
			cmdErr = a.History(ctx)

		case "verify":
			cmdErr = a.Verify(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
	}
}
