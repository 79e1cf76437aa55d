package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/tokenrefresh/internal/client/client"
	"github.com/dmitrijs2005/tokenrefresh/internal/client/config"
	"github.com/dmitrijs2005/tokenrefresh/internal/client/storage"
	"github.com/dmitrijs2005/tokenrefresh/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// sessionAPI is client.API plus the session hook the App subscribes to.
type sessionAPI interface {
	client.API
	OnSessionEnded(fn func(ctx context.Context))
}

type App struct {
	config *config.Config
	api    sessionAPI
	log    logging.Logger
	out    io.Writer

	mu       sync.RWMutex
	mode     Mode
	userName string
	loggedIn bool
}

// NewApp opens the token store selected by c.StoreDSN and builds the API
// client on top of it.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	backend, err := storage.Open(ctx, c.StoreDSN, storage.Options{Passphrase: c.StorePassphrase})
	if err != nil {
		return nil, fmt.Errorf("open token store: %w", err)
	}

	apiClient, err := client.New(c, backend, log)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	return newApp(c, apiClient, log, os.Stdout), nil
}

func newApp(c *config.Config, api sessionAPI, log logging.Logger, out io.Writer) *App {
	a := &App{config: c, api: api, log: logging.OrNop(log), out: out}
	api.OnSessionEnded(a.sessionEnded)
	return a
}

func (a *App) Mode() Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.log.Info(context.Background(), "switched mode", "mode", string(mode))
	}
}

func (a *App) isLoggedIn() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loggedIn
}

func (a *App) setSession(user string, loggedIn bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.userName = user
	a.loggedIn = loggedIn
}

// sessionEnded runs when a refresh fails for good or the user logs out.
func (a *App) sessionEnded(ctx context.Context) {
	if !a.isLoggedIn() {
		return
	}
	a.setSession("", false)
	a.log.Warn(ctx, "session ended, import a new token pair to continue")
}

// restoreSession picks up tokens persisted by an earlier run.
func (a *App) restoreSession(ctx context.Context) {
	st, err := a.api.Status(ctx)
	if err != nil {
		a.log.Warn(ctx, "cannot read stored session", "error", err)
		return
	}
	a.setSession(st.User, st.HasAccessToken || st.HasRefreshToken)
}

// Run restores the stored session, starts the connectivity watcher and serves
// the REPL on stdin until exit or EOF.
func (a *App) Run(ctx context.Context) {
	defer a.api.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.restoreSession(ctx)

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	printlnFn("tokenrefresh client (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, newScanner(os.Stdin))
}

// StartOnlineStatusWatcher pings the server every interval and flips Mode.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.api.Ping(pctx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}

func (a *App) getStatus() string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := ""
	if a.userName != "" {
		s = a.userName + " "
	}
	if a.mode != "" {
		s = s + string(a.mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}
