package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	clientcli "github.com/dmitrijs2005/stegkeeper/internal/client/cli"
	"github.com/dmitrijs2005/stegkeeper/internal/client/config"
	"github.com/dmitrijs2005/stegkeeper/internal/client/models"
	"github.com/dmitrijs2005/stegkeeper/internal/logging"
)

// env opens the client lazily, so help and usage errors never touch the
// databases.
type env struct {
	ctx     context.Context
	cfg     *config.Config
	log     logging.Logger
	app     *clientcli.App
	cleanup func()
}

func (e *env) open() (*clientcli.App, error) {
	if e.app != nil {
		return e.app, nil
	}
	app, cleanup, err := clientcli.Build(e.ctx, e.cfg, e.log)
	if err != nil {
		return nil, err
	}
	e.app, e.cleanup = app, cleanup
	return app, nil
}

func (e *env) close() {
	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(e *env) *cli.App {
	app := &cli.App{
		Name:    "stegkeeper",
		Usage:   "Hide and recover secrets in images, audio and video",
		Version: Version,
		Flags:   configFlags(),
		Commands: []*cli.Command{
			operationCmd(e, models.DirectionEncode),
			operationCmd(e, models.DirectionDecode),
			capacityCmd(e),
			keysCmd(e),
			historyCmd(e),
			verifyCmd(e),
			statusCmd(e),
			loginCmd(e),
			logoutCmd(e),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// configFlags declares the config package's flags so they are accepted
// before the subcommand. Their values are read by config.LoadConfig.
func configFlags() []cli.Flag {
	flags := make([]cli.Flag, 0, len(config.FlagNames))
	for _, n := range config.FlagNames {
		flags = append(flags, &cli.StringFlag{Name: n, Hidden: true})
	}
	return flags
}

func kindFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "kind",
		Aliases: []string{"m"},
		Value:   string(models.MediaImage),
		Usage:   "Media kind: image|audio|video",
	}
}

// operationCmd creates the encode or decode command.
func operationCmd(e *env, direction models.Direction) *cli.Command {
	flags := []cli.Flag{
		kindFlag(),
		&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "Cover file (encode) or encoded file (decode)"},
		&cli.StringFlag{Name: "key", Aliases: []string{"k"}, Usage: "Key file"},
		&cli.StringFlag{Name: "key-text", Usage: "PEM key text, or - to read it from stdin"},
	}
	usage := "Recover the secret hidden in a file"
	if direction == models.DirectionEncode {
		usage = "Hide a secret in a cover file"
		flags = append(flags, &cli.StringFlag{Name: "secret", Aliases: []string{"s"}, Usage: "Secret message, or - to read it from stdin"})
	}

	return &cli.Command{
		Name:  string(direction),
		Usage: usage,
		Flags: flags,
		Action: func(c *cli.Context) error {
			if c.String("key") == "" && c.String("key-text") == "" {
				return errors.New("one of --key or --key-text is required")
			}
			if c.String("key-text") == "-" && c.String("secret") == "-" {
				return errors.New("only one of --key-text and --secret can be read from stdin")
			}

			app, err := e.open()
			if err != nil {
				return err
			}
			ctx := c.Context

			if err := app.SelectTab(ctx, c.String("kind")); err != nil {
				return err
			}
			if err := app.SetDirection(ctx, string(direction)); err != nil {
				return err
			}
			if err := app.LoadFile(ctx, c.String("file")); err != nil {
				return err
			}
			if err := loadKey(ctx, app, c); err != nil {
				return err
			}

			if direction == models.DirectionEncode {
				secret, err := valueOrStdin(c.String("secret"), c.App.Reader)
				if err != nil {
					return err
				}
				if secret == "" {
					return errors.New(models.MsgMissingSecret)
				}
				if err := app.EnterSecret(ctx, secret); err != nil {
					return err
				}
				if err := app.Capacity(ctx); err != nil {
					return err
				}
			}
			return app.Submit(ctx)
		},
	}
}

func loadKey(ctx context.Context, app *clientcli.App, c *cli.Context) error {
	if path := c.String("key"); path != "" {
		if err := app.LoadKey(ctx, path); err != nil {
			return err
		}
	}
	if c.String("key-text") == "" {
		return nil
	}
	text, err := valueOrStdin(c.String("key-text"), c.App.Reader)
	if err != nil {
		return err
	}
	return app.SetKeyText(ctx, text)
}

// valueOrStdin returns v, or everything on r when v is "-".
func valueOrStdin(v string, r io.Reader) (string, error) {
	if v != "-" {
		return v, nil
	}
	if r == nil {
		r = os.Stdin
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

// capacityCmd creates the capacity command.
func capacityCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "capacity",
		Usage: "Show how many bytes a cover file can carry",
		Flags: []cli.Flag{
			kindFlag(),
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "Cover file"},
		},
		Action: func(c *cli.Context) error {
			app, err := e.open()
			if err != nil {
				return err
			}
			if err := app.SelectTab(c.Context, c.String("kind")); err != nil {
				return err
			}
			if err := app.LoadFile(c.Context, c.String("file")); err != nil {
				return err
			}
			return app.Capacity(c.Context)
		},
	}
}

// keysCmd creates the keys command.
func keysCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "keys",
		Usage: "Generate a key pair",
		Action: func(c *cli.Context) error {
			app, err := e.open()
			if err != nil {
				return err
			}
			return app.GenerateKeys(c.Context)
		},
	}
}

// historyCmd creates the history command.
func historyCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List your operations, newest first",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "follow", Aliases: []string{"F"}, Usage: "Keep printing as new operations are recorded"},
		},
		Action: func(c *cli.Context) error {
			app, err := e.open()
			if err != nil {
				return err
			}
			if c.Bool("follow") {
				return app.FollowHistory(c.Context)
			}
			return app.History(c.Context)
		},
	}
}

// verifyCmd creates the verify command.
func verifyCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Check the integrity of your audit trail",
		Action: func(c *cli.Context) error {
			app, err := e.open()
			if err != nil {
				return err
			}
			return app.Verify(c.Context)
		},
	}
}

// statusCmd creates the status command.
func statusCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Check the service and show the current identity",
		Action: func(c *cli.Context) error {
			app, err := e.open()
			if err != nil {
				return err
			}
			return app.Status(c.Context)
		},
	}
}

// loginCmd creates the login command.
func loginCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Remember a bearer token (prompts when --token is absent)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "token", Usage: "Bearer token, or - to read it from stdin"},
		},
		Action: func(c *cli.Context) error {
			app, err := e.open()
			if err != nil {
				return err
			}
			if c.String("token") == "" {
				return app.Login(c.Context)
			}
			token, err := valueOrStdin(c.String("token"), c.App.Reader)
			if err != nil {
				return err
			}
			return app.LoginToken(c.Context, token)
		},
	}
}

// logoutCmd creates the logout command.
func logoutCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Forget the saved bearer token",
		Action: func(c *cli.Context) error {
			app, err := e.open()
			if err != nil {
				return err
			}
			return app.Logout(c.Context)
		},
	}
}
