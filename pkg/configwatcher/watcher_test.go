package configwatcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"course_platform_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTTL(t *testing.T, dir, ttl string) {
	t.Helper()
	body := []byte("server:\n  mode: debug\ncache:\n  structure_ttl_seconds: " + ttl + "\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), body, 0o644))
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	writeTTL(t, dir, "60")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *config.Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, dir, func(cfg *config.Config) { reloaded <- cfg })
	}()

	// give the watcher time to register the directory
	time.Sleep(200 * time.Millisecond)
	writeTTL(t, dir, "90")

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 90*time.Second, cfg.Cache.StructureTTL())
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatch_InvalidConfigIsSkipped(t *testing.T) {
	dir := t.TempDir()
	writeTTL(t, dir, "60")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *config.Config, 4)
	go func() { _ = Watch(ctx, dir, func(cfg *config.Config) { reloaded <- cfg }) }()

	time.Sleep(200 * time.Millisecond)
	writeTTL(t, dir, "0")

	select {
	case <-reloaded:
		t.Fatal("invalid config must not reach the reloader")
	case <-time.After(2 * time.Second):
	}
}

func TestWatch_MissingDir(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope"), func(*config.Config) {})
	assert.Error(t, err)
}
