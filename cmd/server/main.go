package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/camwall/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
	usage        string
}

func (v configVar[T]) register() {
	switch d := any(v.defaultValue).(type) {
	case string:
		pflag.String(v.flagKey, d, v.usage)
	case int:
		pflag.Int(v.flagKey, d, v.usage)
	case uint64:
		pflag.Uint64(v.flagKey, d, v.usage)
	case float64:
		pflag.Float64(v.flagKey, d, v.usage)
	case bool:
		pflag.Bool(v.flagKey, d, v.usage)
	case time.Duration:
		pflag.Duration(v.flagKey, d, v.usage)
	default:
		panic(fmt.Sprintf("unsupported config type %T for %s", d, v.flagKey))
	}

	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

var (
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
		usage:        "Server host",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 8080,
		usage:        "Server port",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
		usage:        "Logging level",
	}
	secret = configVar[string]{
		envKey:       "CAMWALL_KEY",
		flagKey:      "secret",
		defaultValue: "",
		usage:        "Shared secret namespacing channels and keys",
	}
	catalogPath = configVar[string]{
		envKey:       "CAMWALL_CATALOG",
		flagKey:      "catalog",
		defaultValue: "cams.yaml",
		usage:        "Cam catalog file (yaml or json)",
	}
	enrichYouTube = configVar[bool]{
		envKey:       "CAMWALL_ENRICH_YOUTUBE",
		flagKey:      "enrich-youtube",
		defaultValue: false,
		usage:        "Fill missing youtube titles and sources from video metadata",
	}
	cmdRateLimit = configVar[int]{
		envKey:       "CAMWALL_CMD_RATE_LIMIT",
		flagKey:      "cmd-rate-limit",
		defaultValue: 120,
		usage:        "HTTP commands per client per minute, 0 disables the limit",
	}
	mins = configVar[float64]{
		envKey:       "CAMWALL_MINS",
		flagKey:      "mins",
		defaultValue: 5,
		usage:        "Round length in minutes",
	}
	fit = configVar[string]{
		envKey:       "CAMWALL_FIT",
		flagKey:      "fit",
		defaultValue: "cover",
		usage:        "Display fit hint passed to renderers",
	}
	hudHidden = configVar[bool]{
		envKey:       "CAMWALL_HUD_HIDDEN",
		flagKey:      "hud-hidden",
		defaultValue: false,
		usage:        "Start with the HUD hidden",
	}
	seed = configVar[uint64]{
		envKey:       "CAMWALL_SEED",
		flagKey:      "seed",
		defaultValue: 0,
		usage:        "Shuffle seed, 0 keeps catalog order",
	}
	autoskip = configVar[bool]{
		envKey:       "CAMWALL_AUTOSKIP",
		flagKey:      "autoskip",
		defaultValue: true,
		usage:        "Skip cams that fail to play",
	}
	adFree = configVar[bool]{
		envKey:       "CAMWALL_ADFREE",
		flagKey:      "adfree",
		defaultValue: false,
		usage:        "Only rotate through ad-free cam kinds",
	}
	cooldownMins = configVar[float64]{
		envKey:       "CAMWALL_COOLDOWN_MINS",
		flagKey:      "cooldown-mins",
		defaultValue: 10,
		usage:        "Minutes a failed cam is skipped",
	}
	watchdogYouTube = configVar[time.Duration]{
		envKey:       "CAMWALL_WATCHDOG_YOUTUBE",
		flagKey:      "watchdog-youtube",
		defaultValue: 15 * time.Second,
		usage:        "Time a youtube cam has to report ready",
	}
	watchdogHLS = configVar[time.Duration]{
		envKey:       "CAMWALL_WATCHDOG_HLS",
		flagKey:      "watchdog-hls",
		defaultValue: 20 * time.Second,
		usage:        "Time an hls cam has to report ready",
	}
	switchGuard = configVar[time.Duration]{
		envKey:       "CAMWALL_SWITCH_GUARD",
		flagKey:      "switch-guard",
		defaultValue: 500 * time.Millisecond,
		usage:        "Window after a switch in which further switches are dropped",
	}
	failureDelay = configVar[time.Duration]{
		envKey:       "CAMWALL_FAILURE_DELAY",
		flagKey:      "failure-delay",
		defaultValue: 800 * time.Millisecond,
		usage:        "Delay between a failure and the skip",
	}
	heartbeat = configVar[time.Duration]{
		envKey:       "CAMWALL_HEARTBEAT",
		flagKey:      "heartbeat",
		defaultValue: 3 * time.Second,
		usage:        "Interval between unconditional snapshots",
	}
	pollInterval = configVar[time.Duration]{
		envKey:       "CAMWALL_POLL_INTERVAL",
		flagKey:      "poll-interval",
		defaultValue: time.Second,
		usage:        "Store polling interval for commands",
	}
	storeKind = configVar[string]{
		envKey:       "CAMWALL_STORE",
		flagKey:      "store",
		defaultValue: app.StoreRedis,
		usage:        "Durable store backend (redis|sqlite)",
	}
	sqlitePath = configVar[string]{
		envKey:       "CAMWALL_SQLITE_PATH",
		flagKey:      "sqlite-path",
		defaultValue: "camwall.db",
		usage:        "SQLite database file",
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
		usage:        "Redis host",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
		usage:        "Redis port",
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
		usage:        "Redis password",
	}
)

func loadAppConfig() *app.AppConfig {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	host.register()
	port.register()
	logLevel.register()
	secret.register()
	catalogPath.register()
	enrichYouTube.register()
	cmdRateLimit.register()
	mins.register()
	fit.register()
	hudHidden.register()
	seed.register()
	autoskip.register()
	adFree.register()
	cooldownMins.register()
	watchdogYouTube.register()
	watchdogHLS.register()
	switchGuard.register()
	failureDelay.register()
	heartbeat.register()
	pollInterval.register()
	storeKind.register()
	sqlitePath.register()
	redisHost.register()
	redisPort.register()
	redisPassword.register()
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	return &app.AppConfig{
		Host:            viper.GetString(host.flagKey),
		Port:            viper.GetInt(port.flagKey),
		LogLevel:        viper.GetString(logLevel.flagKey),
		Secret:          viper.GetString(secret.flagKey),
		Catalog:         viper.GetString(catalogPath.flagKey),
		EnrichYouTube:   viper.GetBool(enrichYouTube.flagKey),
		CmdRateLimit:    viper.GetInt(cmdRateLimit.flagKey),
		Mins:            viper.GetFloat64(mins.flagKey),
		Fit:             viper.GetString(fit.flagKey),
		HUDHidden:       viper.GetBool(hudHidden.flagKey),
		Seed:            viper.GetUint64(seed.flagKey),
		Autoskip:        viper.GetBool(autoskip.flagKey),
		AdFree:          viper.GetBool(adFree.flagKey),
		CooldownMins:    viper.GetFloat64(cooldownMins.flagKey),
		WatchdogYouTube: viper.GetDuration(watchdogYouTube.flagKey),
		WatchdogHLS:     viper.GetDuration(watchdogHLS.flagKey),
		SwitchGuard:     viper.GetDuration(switchGuard.flagKey),
		FailureDelay:    viper.GetDuration(failureDelay.flagKey),
		Heartbeat:       viper.GetDuration(heartbeat.flagKey),
		PollInterval:    viper.GetDuration(pollInterval.flagKey),
		Store:           viper.GetString(storeKind.flagKey),
		SQLitePath:      viper.GetString(sqlitePath.flagKey),
		RedisHost:       viper.GetString(redisHost.flagKey),
		RedisPort:       viper.GetInt(redisPort.flagKey),
		RedisPassword:   viper.GetString(redisPassword.flagKey),
	}
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	if err := app.Run(ctx, appConfig); err != nil {
		log.Fatal(err)
	}
}
