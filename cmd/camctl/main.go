package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/camwall/internal/app"
	"github.com/sharetube/camwall/internal/protocol"
	"github.com/sharetube/camwall/internal/repository/bus"
	busredis "github.com/sharetube/camwall/internal/repository/bus/redis"
	"github.com/sharetube/camwall/internal/repository/store"
	storeredis "github.com/sharetube/camwall/internal/repository/store/redis"
	"github.com/sharetube/camwall/internal/repository/store/sqlite"
	"github.com/sharetube/camwall/internal/service/observer"
	"github.com/sharetube/camwall/pkg/clock"
	"github.com/sharetube/camwall/pkg/redisclient"
)

const usage = `usage: camctl [flags] <command>

commands:
  send <cmd> [payload]   send a command, payload is JSON or a bare string
  watch                  print every snapshot the player publishes
  state                  print the stored snapshot once
`

type config struct {
	Secret        string
	Store         string
	SQLitePath    string
	RedisHost     string
	RedisPort     int
	RedisPassword string
	PollInterval  time.Duration
}

type iStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

type iBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channels ...string) (<-chan bus.Message, error)
}

func loadConfig() *config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	pflag.String("secret", "", "Shared secret namespacing channels and keys")
	pflag.String("store", app.StoreRedis, "Durable store backend (redis|sqlite)")
	pflag.String("sqlite-path", "camwall.db", "SQLite database file")
	pflag.String("redis-host", "localhost", "Redis host")
	pflag.Int("redis-port", 6379, "Redis port")
	pflag.String("redis-password", "", "Redis password")
	pflag.Duration("poll-interval", time.Second, "Store polling interval for watch")
	pflag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		pflag.PrintDefaults()
	}
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)
	viper.BindEnv("secret", "CAMWALL_KEY")
	viper.BindEnv("store", "CAMWALL_STORE")
	viper.BindEnv("sqlite-path", "CAMWALL_SQLITE_PATH")
	viper.BindEnv("redis-host", "REDIS_HOST")
	viper.BindEnv("redis-port", "REDIS_PORT")
	viper.BindEnv("redis-password", "REDIS_PASSWORD")
	viper.BindEnv("poll-interval", "CAMWALL_POLL_INTERVAL")

	return &config{
		Secret:        viper.GetString("secret"),
		Store:         viper.GetString("store"),
		SQLitePath:    viper.GetString("sqlite-path"),
		RedisHost:     viper.GetString("redis-host"),
		RedisPort:     viper.GetInt("redis-port"),
		RedisPassword: viper.GetString("redis-password"),
		PollInterval:  viper.GetDuration("poll-interval"),
	}
}

// connect opens the store and, for redis, the bus. Without a bus the player is
// reached through the store keys only.
func connect(ctx context.Context, cfg *config, logger *slog.Logger) (iStore, iBus, func(), error) {
	switch cfg.Store {
	case app.StoreSQLite:
		st, err := sqlite.NewRepo(ctx, cfg.SQLitePath, cfg.PollInterval, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return st, nil, func() { st.Close() }, nil
	case app.StoreRedis:
		rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create redis client: %w", err)
		}
		st := storeredis.NewRepo(rc, app.KeyPrefix+":store-events", logger)
		return st, busredis.NewRepo(rc, logger), func() { rc.Close() }, nil
	}

	return nil, nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
}

func main() {
	cfg := loadConfig()
	args := pflag.Args()
	if len(args) == 0 {
		pflag.Usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, b, closeFn, err := connect(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer closeFn()

	ns := protocol.NewNamespace(app.KeyPrefix, cfg.Secret)

	switch args[0] {
	case "send":
		err = send(ctx, ns, st, b, args[1:])
	case "watch":
		err = watch(ctx, ns, st, b, cfg.PollInterval, logger)
	case "state":
		err = state(ctx, ns, st)
	default:
		pflag.Usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func send(ctx context.Context, ns protocol.Namespace, st iStore, b iBus, args []string) error {
	if len(args) == 0 {
		return errors.New("send needs a command")
	}

	kind, err := protocol.ParseCommandKind(args[0])
	if err != nil {
		return err
	}

	var payload any
	if len(args) > 1 {
		payload = parsePayload(args[1])
	}

	cmd, err := observer.NewSender(ns, b, st, clock.Real{}).Send(ctx, kind, payload)
	if err != nil {
		return err
	}

	fmt.Printf("sent %s ts=%d\n", cmd.Kind, cmd.TS)
	return nil
}

// parsePayload accepts JSON and falls back to the raw string, so `goto harbour`
// works without quoting.
func parsePayload(arg string) any {
	var v any
	if err := json.Unmarshal([]byte(arg), &v); err == nil {
		return v
	}

	return arg
}

func watch(ctx context.Context, ns protocol.Namespace, st iStore, b iBus, pollInterval time.Duration, logger *slog.Logger) error {
	return observer.NewMirror(&observer.MirrorParams{
		Namespace:    ns,
		Bus:          b,
		Store:        st,
		PollInterval: pollInterval,
		OnState:      printState,
		Logger:       logger,
	}).Run(ctx)
}

func state(ctx context.Context, ns protocol.Namespace, st iStore) error {
	for _, ch := range ns.Names(protocol.KeyState) {
		data, err := st.Get(ctx, ch.Name)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", ch.Name, err)
		}

		s, err := protocol.DecodeState(data)
		if err != nil || !ns.Trust(ch, s.Key) {
			continue
		}

		printState(s)
		return nil
	}

	return errors.New("no state stored yet")
}

func printState(s protocol.State) {
	out, err := json.Marshal(s)
	if err != nil {
		return
	}

	fmt.Println(string(out))
}
