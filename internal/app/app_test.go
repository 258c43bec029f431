package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/camwall/internal/protocol"
	busredis "github.com/sharetube/camwall/internal/repository/bus/redis"
	storeredis "github.com/sharetube/camwall/internal/repository/store/redis"
	"github.com/sharetube/camwall/internal/service/observer"
	"github.com/sharetube/camwall/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `cams:
  - id: A
    kind: hls
    title: Harbour
    url: https://example.com/a.m3u8
  - id: B
    kind: hls
    url: https://example.com/b.m3u8
  - id: C
    kind: image
    url: https://example.com/c.jpg
  - id: broken
    kind: hls
`

func writeCatalog(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func testConfig(t *testing.T) *AppConfig {
	t.Helper()

	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "cams.yaml")
	writeCatalog(t, catalogPath, testCatalog)

	return &AppConfig{
		Host:            "127.0.0.1",
		LogLevel:        "DEBUG",
		Secret:          "s3cret",
		Catalog:         catalogPath,
		Mins:            5,
		Fit:             "cover",
		Autoskip:        true,
		CooldownMins:    10,
		WatchdogYouTube: 15 * time.Second,
		WatchdogHLS:     20 * time.Second,
		SwitchGuard:     10 * time.Millisecond,
		FailureDelay:    10 * time.Millisecond,
		Heartbeat:       time.Second,
		PollInterval:    50 * time.Millisecond,
		Store:           StoreSQLite,
		SQLitePath:      filepath.Join(dir, "camwall.db"),
	}
}

func getState(t *testing.T, base string) protocol.State {
	t.Helper()

	resp, err := http.Get(base + "/api/v1/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st protocol.State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	return st
}

func postCommand(t *testing.T, base, body string) int {
	t.Helper()

	resp, err := http.Post(base+"/api/v1/cmd", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()

	return resp.StatusCode
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{name: "valid", mutate: func(*AppConfig) {}},
		{name: "redis", mutate: func(c *AppConfig) { c.Store = StoreRedis }},
		{name: "bad port", mutate: func(c *AppConfig) { c.Port = 70000 }, wantErr: true},
		{name: "no catalog", mutate: func(c *AppConfig) { c.Catalog = "" }, wantErr: true},
		{name: "zero mins", mutate: func(c *AppConfig) { c.Mins = 0 }, wantErr: true},
		{name: "mins past one day", mutate: func(c *AppConfig) { c.Mins = 1e12 }, wantErr: true},
		{name: "mins of one day", mutate: func(c *AppConfig) { c.Mins = 1440 }},
		{name: "negative cooldown", mutate: func(c *AppConfig) { c.CooldownMins = -1 }, wantErr: true},
		{name: "cooldown past one day", mutate: func(c *AppConfig) { c.CooldownMins = 1e12 }, wantErr: true},
		{name: "no cooldown", mutate: func(c *AppConfig) { c.CooldownMins = 0 }},
		{name: "zero heartbeat", mutate: func(c *AppConfig) { c.Heartbeat = 0 }, wantErr: true},
		{name: "negative guard", mutate: func(c *AppConfig) { c.SwitchGuard = -time.Second }, wantErr: true},
		{name: "unknown store", mutate: func(c *AppConfig) { c.Store = "etcd" }, wantErr: true},
		{name: "sqlite without path", mutate: func(c *AppConfig) { c.SQLitePath = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewRestoresFromSQLite(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	a, err := New(ctx, cfg, slog.Default())
	require.NoError(t, err)

	srv := httptest.NewServer(a.Handler())
	st := getState(t, srv.URL)
	srv.Close()

	want := &protocol.CamInfo{ID: "A", Title: "Harbour", Kind: "hls"}
	if diff := cmp.Diff(want, st.Cam); diff != "" {
		t.Fatalf("unexpected cam (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, st.Total, "the invalid entry is dropped")
	assert.Empty(t, st.Key, "the secret stays on the bus and store")
	require.NoError(t, a.Close())

	// a second process on the same file resumes the persisted cam
	a, err = New(ctx, cfg, slog.Default())
	require.NoError(t, err)
	defer a.Close()

	srv = httptest.NewServer(a.Handler())
	defer srv.Close()
	assert.Equal(t, "A", getState(t, srv.URL).CamID())
}

func TestNewWithoutCatalogStops(t *testing.T) {
	cfg := testConfig(t)
	cfg.Catalog = filepath.Join(t.TempDir(), "missing.yaml")

	a, err := New(context.Background(), cfg, slog.Default())
	require.NoError(t, err)
	defer a.Close()

	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	st := getState(t, srv.URL)
	assert.Equal(t, protocol.ErrorNoPlayableSources, st.Error)
	assert.Equal(t, -1, st.Index)
	assert.Nil(t, st.Cam)
}

func TestServeWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := testConfig(t)
	cfg.Store = StoreRedis
	cfg.RedisHost = mr.Host()
	cfg.RedisPort = port

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := New(ctx, cfg, slog.Default())
	require.NoError(t, err)
	defer a.Close()

	stored, err := mr.Get("camwall:state:s3cret")
	require.NoError(t, err)
	st, err := protocol.DecodeState([]byte(stored))
	require.NoError(t, err)
	assert.Equal(t, "A", st.CamID())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- a.Serve(ctx, ln)
	}()
	base := "http://" + ln.Addr().String()

	// commands over HTTP must carry the secret
	assert.Equal(t, http.StatusForbidden, postCommand(t, base, `{"cmd":"next"}`))
	require.Eventually(t, func() bool {
		return postCommand(t, base, `{"cmd":"next","key":"s3cret"}`) == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, "B", getState(t, base).CamID())

	// commands from another process arrive over the redis bus and command keys
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rc.Close()

	ns := protocol.NewNamespace(KeyPrefix, cfg.Secret)
	sender := observer.NewSender(ns,
		busredis.NewRepo(rc, slog.Default()),
		storeredis.NewRepo(rc, KeyPrefix+":store-events", slog.Default()),
		clock.Real{},
	)

	require.Eventually(t, func() bool {
		if _, err := sender.Send(ctx, protocol.CmdGoto, "C"); err != nil {
			return false
		}
		return getState(t, base).CamID() == "C"
	}, 3*time.Second, 100*time.Millisecond)

	// catalog edits are picked up without a restart
	writeCatalog(t, cfg.Catalog, "- id: D\n  kind: video\n  url: https://example.com/d.mp4\n")
	require.Eventually(t, func() bool {
		return getState(t, base).CamID() == "D"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}
