package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/satriojati/storymap/internal/client/api"
	"github.com/satriojati/storymap/internal/client/config"
	"github.com/satriojati/storymap/internal/client/gateway"
	"github.com/satriojati/storymap/internal/client/repositories/metadata"
	"github.com/satriojati/storymap/internal/client/repositories/stories"
	"github.com/satriojati/storymap/internal/client/services"
	"github.com/satriojati/storymap/internal/client/storage"
	"github.com/satriojati/storymap/internal/client/syncer"
	"github.com/satriojati/storymap/internal/events"
	"github.com/satriojati/storymap/internal/logging"
	"github.com/satriojati/storymap/internal/netmon"
)

// App is the composition root of the story client. NewApp wires every layer;
// Run drives the REPL until the user exits.
type App struct {
	cfg     *config.Config
	log     logging.Logger
	db      *sql.DB
	meta    metadata.Repository
	auth    *services.AuthService
	gw      *gateway.Gateway
	syncer  *syncer.Syncer
	monitor *netmon.Monitor
	reader  *bufio.Reader
}

func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	if log == nil {
		log = logging.Nop()
	}

	db, repos, err := storage.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	auth := services.NewAuthService(repos.Metadata, log)
	apiClient := api.New(cfg.BaseURL, auth, log)
	auth.BindAPI(apiClient)
	if err := auth.LoadSession(ctx); err != nil {
		log.Warn(ctx, "session restore failed", "err", err)
	}

	store := stories.NewStore(repos.Stories, log)
	bus := events.NewBus()
	gw := gateway.New(apiClient, store, bus, log)

	monitor := netmon.New(netmon.Options{
		ProbeURL:      cfg.ProbeURL,
		APIBaseURL:    cfg.BaseURL,
		ProbeTimeout:  cfg.ProbeTimeout,
		CheckInterval: cfg.OnlineCheckInterval,
		Tokens:        auth,
		Logger:        log,
	})

	sc := syncer.New(gw, store, repos.Blobs, apiClient, monitor, bus, cfg, log)
	sc.UseRemover(func(ctx context.Context, id string) error {
		return storage.RemoveStory(ctx, db, id)
	})

	return &App{
		cfg:     cfg,
		log:     log,
		db:      db,
		meta:    repos.Metadata,
		auth:    auth,
		gw:      gw,
		syncer:  sc,
		monitor: monitor,
		reader:  bufio.NewReader(os.Stdin),
	}, nil
}

// Run starts the background machinery and enters the REPL. It returns when
// the user exits; background tasks are torn down before returning.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.monitor.Start(ctx)
	a.syncer.Start(ctx)
	defer a.syncer.Stop()
	defer a.db.Close()

	runREPL(ctx, a, a.status, bufio.NewScanner(os.Stdin))
	return nil
}

func (a *App) isLoggedIn() bool {
	return a.auth.IsLoggedIn()
}

func (a *App) status() string {
	s := ""
	if u := a.auth.User(); u != nil {
		s = u.Name + " "
	}
	if a.monitor.IsOnline() {
		s += "online"
	} else {
		s += "offline"
	}
	return "(" + s + ")"
}
