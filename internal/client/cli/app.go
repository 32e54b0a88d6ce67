package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/stegkeeper/internal/auth"
	"github.com/dmitrijs2005/stegkeeper/internal/client/config"
	"github.com/dmitrijs2005/stegkeeper/internal/client/models"
	"github.com/dmitrijs2005/stegkeeper/internal/client/services"
	"github.com/dmitrijs2005/stegkeeper/internal/client/session"
	"github.com/dmitrijs2005/stegkeeper/internal/logging"
)

type Mode string

const onlineCheckInterval = 30 * time.Second

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// historySource is the part of services.AuditRecorder the CLI reads.
type historySource interface {
	History(ctx context.Context, owner string) ([]models.OperationRecord, error)
	StreamHistory(ctx context.Context, owner string) (<-chan []models.OperationRecord, error)
	Verify(ctx context.Context, owner string) (int, error)
}

type keyGenerator interface {
	Generate(ctx context.Context) (*services.KeyPair, error)
}

// Deps are the collaborators of an App. In and Out default to the
// process's stdin and stdout.
type Deps struct {
	Config   *config.Config
	Auth     services.AuthService
	Identity auth.Provider
	Session  *session.Session
	Audit    historySource
	Keys     keyGenerator
	Log      logging.Logger
	In       io.Reader
	Out      io.Writer
}

type App struct {
	config      *config.Config
	authService services.AuthService
	identity    auth.Provider
	session     *session.Session
	audit       historySource
	keys        keyGenerator
	log         logging.Logger

	modeMu sync.Mutex
	Mode   Mode

	reader *bufio.Reader
	out    io.Writer
}

func NewApp(d Deps) *App {
	in, out := d.In, d.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	identity := d.Identity
	if identity == nil {
		identity = auth.Anonymous{}
	}
	log := d.Log
	if log == nil {
		log = logging.Discard()
	}
	return &App{
		config:      d.Config,
		authService: d.Auth,
		identity:    identity,
		session:     d.Session,
		audit:       d.Audit,
		keys:        d.Keys,
		log:         log,
		reader:      bufio.NewReader(in),
		out:         out,
	}
}

func (a *App) setMode(mode Mode) {
	a.modeMu.Lock()
	changed := a.Mode != mode
	a.Mode = mode
	a.modeMu.Unlock()
	if changed {
		a.log.Info(context.Background(), "connectivity changed", "mode", mode)
	}
}

func (a *App) mode() Mode {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	return a.Mode
}

// probe pings the service once and updates Mode.
func (a *App) probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err := a.authService.Ping(ctx)
	if err != nil {
		a.setMode(ModeOffline)
	} else {
		a.setMode(ModeOnline)
	}
	return err
}

// StartOnlineStatusWatcher pings the service every interval until ctx is
// done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = a.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// getStatus renders the REPL prompt context, e.g. "(alice online image/encode)".
func (a *App) getStatus() string {
	var parts []string
	if id, ok := a.identity.Current(context.Background()); ok {
		parts = append(parts, id.OwnerID)
	}
	if m := a.mode(); m != "" {
		parts = append(parts, string(m))
	}
	if a.session != nil {
		st := a.session.Snapshot()
		parts = append(parts, fmt.Sprintf("%s/%s", st.MediaKind, st.Direction))
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Root runs the interactive shell until the user exits or input ends.
func (a *App) Root(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprintln(a.out, "Welcome to stegkeeper (type 'help' for commands)")
	_ = a.probe(ctx)

	go a.StartOnlineStatusWatcher(ctx, onlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}
