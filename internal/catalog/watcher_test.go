package catalog

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := filepath.Join(t.TempDir(), "cams.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- id: a\n  kind: hls\n  url: u\n"), 0o644))

	changes := make(chan []Cam, 4)
	w := NewWatcher(path, func(cams []Cam) { changes <- cams }, slog.Default())
	w.SetDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("- id: invalid\n  kind: hls\n"), 0o644))
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("- id: b\n  kind: hls\n  url: u\n- id: c\n  kind: image\n  url: v\n"), 0o644))

	select {
	case cams := <-changes:
		assert.Equal(t, []string{"b", "c"}, ids(cams))
	case <-time.After(3 * time.Second):
		t.Fatal("catalog change not observed")
	}

	cancel()
	require.NoError(t, <-done)
}
