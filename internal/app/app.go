package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sharetube/camwall/internal/catalog"
	"github.com/sharetube/camwall/internal/controller"
	"github.com/sharetube/camwall/internal/platform/metrics"
	"github.com/sharetube/camwall/internal/protocol"
	"github.com/sharetube/camwall/internal/repository/bus"
	businmemory "github.com/sharetube/camwall/internal/repository/bus/inmemory"
	busredis "github.com/sharetube/camwall/internal/repository/bus/redis"
	conninmemory "github.com/sharetube/camwall/internal/repository/connection/inmemory"
	"github.com/sharetube/camwall/internal/repository/player"
	"github.com/sharetube/camwall/internal/repository/store"
	storeredis "github.com/sharetube/camwall/internal/repository/store/redis"
	"github.com/sharetube/camwall/internal/repository/store/sqlite"
	"github.com/sharetube/camwall/internal/service/cooldown"
	"github.com/sharetube/camwall/internal/service/display"
	"github.com/sharetube/camwall/internal/service/publisher"
	"github.com/sharetube/camwall/internal/service/receiver"
	"github.com/sharetube/camwall/internal/service/scheduler"
	"github.com/sharetube/camwall/pkg/clock"
	"github.com/sharetube/camwall/pkg/ctxlogger"
	"github.com/sharetube/camwall/pkg/redisclient"
	"github.com/sharetube/camwall/pkg/ytvideodata"
	"golang.org/x/sync/errgroup"
)

const (
	KeyPrefix = "camwall"

	StoreRedis  = "redis"
	StoreSQLite = "sqlite"

	wsWriteTimeout  = 5 * time.Second
	shutdownTimeout = 30 * time.Second
	localBusBuffer  = 64
)

type AppConfig struct {
	Host          string  `json:"host"`
	Port          int     `json:"port"`
	LogLevel      string  `json:"log_level"`
	Secret        string  `json:"-"`
	Catalog       string  `json:"catalog"`
	EnrichYouTube bool    `json:"enrich_youtube"`
	CmdRateLimit  int     `json:"cmd_rate_limit"`
	Mins          float64 `json:"mins"`
	Fit           string  `json:"fit"`
	HUDHidden     bool    `json:"hud_hidden"`
	Seed          uint64  `json:"seed"`
	Autoskip      bool    `json:"autoskip"`
	AdFree        bool    `json:"adfree"`
	CooldownMins  float64 `json:"cooldown_mins"`

	WatchdogYouTube time.Duration `json:"watchdog_youtube"`
	WatchdogHLS     time.Duration `json:"watchdog_hls"`
	SwitchGuard     time.Duration `json:"switch_guard"`
	FailureDelay    time.Duration `json:"failure_delay"`
	Heartbeat       time.Duration `json:"heartbeat"`
	PollInterval    time.Duration `json:"poll_interval"`

	Store         string `json:"store"`
	SQLitePath    string `json:"sqlite_path"`
	RedisHost     string `json:"redis_host"`
	RedisPort     int    `json:"redis_port"`
	RedisPassword string `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535")
	}
	if cfg.Catalog == "" {
		return fmt.Errorf("catalog path must be set")
	}
	if !protocol.ValidMinutes(cfg.Mins) {
		return fmt.Errorf("mins must be greater than 0 and at most %d", protocol.MaxMinutes)
	}
	if !(cfg.CooldownMins >= 0 && cfg.CooldownMins <= protocol.MaxMinutes) {
		return fmt.Errorf("cooldown mins must be between 0 and %d", protocol.MaxMinutes)
	}
	if cfg.CmdRateLimit < 0 {
		return fmt.Errorf("cmd rate limit must not be negative")
	}
	if cfg.Heartbeat <= 0 || cfg.PollInterval <= 0 {
		return fmt.Errorf("heartbeat and poll interval must be greater than 0")
	}
	if cfg.SwitchGuard < 0 || cfg.FailureDelay < 0 || cfg.WatchdogYouTube < 0 || cfg.WatchdogHLS < 0 {
		return fmt.Errorf("durations must not be negative")
	}

	switch cfg.Store {
	case StoreRedis:
	case StoreSQLite:
		if cfg.SQLitePath == "" {
			return fmt.Errorf("sqlite path must be set")
		}
	default:
		return fmt.Errorf("store must be %q or %q", StoreRedis, StoreSQLite)
	}

	return nil
}

func (cfg *AppConfig) schedulerConfig() scheduler.Config {
	sc := scheduler.DefaultConfig()
	sc.Mins = cfg.Mins
	sc.Fit = cfg.Fit
	sc.HUDHidden = cfg.HUDHidden
	sc.Seed = cfg.Seed
	sc.Autoskip = cfg.Autoskip
	sc.AdFree = cfg.AdFree
	sc.CooldownMins = cfg.CooldownMins
	sc.WatchdogYouTube = cfg.WatchdogYouTube
	sc.WatchdogHLS = cfg.WatchdogHLS
	sc.SwitchGuard = cfg.SwitchGuard
	sc.FailureDelay = cfg.FailureDelay
	sc.Heartbeat = cfg.Heartbeat
	if sc.Fit == "" {
		sc.Fit = scheduler.DefaultConfig().Fit
	}

	return sc
}

type iStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, keys ...string) error
	Watch(ctx context.Context, keys ...string) (<-chan store.Change, error)
}

type iBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channels ...string) (<-chan bus.Message, error)
}

type iScheduler interface {
	Run(context.Context) error
	UpdateCatalog(context.Context, []catalog.Cam) error
}

type iReceiver interface {
	Run(context.Context) error
}

// App is a wired player process: scheduler, receiver, catalog watcher and the HTTP gateway.
type App struct {
	cfg       *AppConfig
	logger    *slog.Logger
	scheduler iScheduler
	receiver  iReceiver
	watcher   *catalog.Watcher
	handler   http.Handler
	closers   []func() error
}

func NewLogger(level string) (*slog.Logger, error) {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	return slog.New(h), nil
}

// New wires every component and restores the player. The returned App owns the
// store and bus connections until Close.
func New(ctx context.Context, cfg *AppConfig, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger = logger.With("instance_id", uuid.NewString())
	ns := protocol.NewNamespace(KeyPrefix, cfg.Secret)
	m := metrics.New()
	a := &App{cfg: cfg, logger: logger}

	st, b, err := a.openBackends(ctx, ns)
	if err != nil {
		a.Close()
		return nil, err
	}

	players := player.NewRepo(st, ns)
	tracker := cooldown.NewTracker(players, clock.Real{}, logger)
	disp := display.NewService(conninmemory.NewRepo(), wsWriteTimeout, m, logger)

	sinks := append(publisher.BusSinks(b, ns), publisher.StoreSinks(st, ns)...)
	sinks = append(sinks, disp)
	pub := publisher.NewService(&publisher.Params{
		Namespace: ns,
		Sinks:     sinks,
		Clock:     clock.Real{},
		Metrics:   m,
		Logger:    logger,
	})

	sched := scheduler.NewService(&scheduler.Params{
		Config:    cfg.schedulerConfig(),
		Tracker:   tracker,
		Players:   players,
		Publisher: pub,
		Renderer:  disp,
		Metrics:   m,
		Clock:     clock.Real{},
		Logger:    logger,
	})

	if err := sched.Init(ctx, a.loadCatalog(ctx)); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to init scheduler: %w", err)
	}

	recv := receiver.NewService(&receiver.Params{
		Namespace:    ns,
		Scheduler:    sched,
		Bus:          b,
		Store:        st,
		PollInterval: cfg.PollInterval,
		Clock:        clock.Real{},
		Metrics:      m,
		Logger:       logger,
	})

	ctrl := controller.NewController(&controller.Params{
		Scheduler:    sched,
		Receiver:     recv,
		Publisher:    pub,
		Display:      disp,
		Metrics:      m,
		CmdRateLimit: cfg.CmdRateLimit,
		Logger:       logger,
	})

	a.scheduler = sched
	a.receiver = recv
	a.handler = ctrl.GetMux()
	a.watcher = catalog.NewWatcher(cfg.Catalog, a.onCatalogChange, logger)

	return a, nil
}

func (a *App) openBackends(ctx context.Context, ns protocol.Namespace) (iStore, iBus, error) {
	switch a.cfg.Store {
	case StoreSQLite:
		st, err := sqlite.NewRepo(ctx, a.cfg.SQLitePath, a.cfg.PollInterval, a.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		a.closers = append(a.closers, st.Close)
		a.logger.Info("using sqlite store, bus is process local", "path", a.cfg.SQLitePath)

		return st, businmemory.NewRepo(localBusBuffer), nil
	default:
		rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
			Host:     a.cfg.RedisHost,
			Port:     a.cfg.RedisPort,
			Password: a.cfg.RedisPassword,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create redis client: %w", err)
		}
		a.closers = append(a.closers, rc.Close)

		return storeredis.NewRepo(rc, ns.Prefix()+":store-events", a.logger), busredis.NewRepo(rc, a.logger), nil
	}
}

// loadCatalog reads the catalog at startup. A missing or broken file starts the
// player stopped; the watcher picks up a fixed file later.
func (a *App) loadCatalog(ctx context.Context) []catalog.Cam {
	cams, err := catalog.Load(a.cfg.Catalog)
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to load catalog", "path", a.cfg.Catalog, "error", err)
		return nil
	}

	_, rejected := catalog.Valid(cams)
	for _, r := range rejected {
		a.logger.WarnContext(ctx, "dropping invalid cam", "index", r.Index, "id", r.ID, "errors", r.Errors)
	}

	return a.enrich(ctx, cams)
}

func (a *App) enrich(ctx context.Context, cams []catalog.Cam) []catalog.Cam {
	if !a.cfg.EnrichYouTube {
		return cams
	}

	return catalog.Enrich(ctx, cams, ytvideodata.New(), a.logger)
}

func (a *App) onCatalogChange(cams []catalog.Cam) {
	ctx := context.Background()
	if err := a.scheduler.UpdateCatalog(ctx, a.enrich(ctx, cams)); err != nil {
		a.logger.WarnContext(ctx, "failed to apply reloaded catalog", "error", err)
	}
}

func (a *App) Handler() http.Handler {
	return a.handler
}

// Serve runs every component and the HTTP server on ln until ctx is done, then
// shuts the server down gracefully.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{Handler: a.handler}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.scheduler.Run(gctx)
	})
	g.Go(func() error {
		return a.receiver.Run(gctx)
	})
	g.Go(func() error {
		if err := a.watcher.Run(gctx); err != nil {
			a.logger.WarnContext(gctx, "catalog watcher stopped, hot reload disabled", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		a.logger.InfoContext(gctx, "starting server", "address", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil

	return errors.Join(errs...)
}

func Run(ctx context.Context, cfg *AppConfig) error {
	logger, err := NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	a, err := New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	return a.Serve(ctx, ln)
}
