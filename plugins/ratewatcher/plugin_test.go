package ratewatcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/rtcd/pkg/rtc"
	"github.com/bft-labs/rtcd/pkg/rtcd"
)

// fakeContext records SetRate calls.
type fakeContext struct {
	mu    sync.Mutex
	rate  float64
	calls int
}

func (f *fakeContext) Rate() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rate
}

func (f *fakeContext) SetRate(rate float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if !(rate > 0) {
		return rtc.ErrBadParameter
	}
	f.rate = rate
	return nil
}

func (f *fakeContext) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}

func TestPlugin_ReloadsRate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, "rate = 10.0\n")

	target := &fakeContext{rate: 10}
	p := New(Config{Path: path, DebounceDelay: 10 * time.Millisecond})

	if err := p.Watch(context.Background(), target, nil); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer p.Shutdown(context.Background())

	writeConfig(t, path, "rate = 25.0\n")
	waitFor(t, func() bool { return target.Rate() == 25 }, "rate 25")
}

func TestPlugin_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rtcd.yaml")
	writeConfig(t, path, "rate: 10\n")

	target := &fakeContext{rate: 10}
	p := New(Config{Path: path, DebounceDelay: 10 * time.Millisecond})
	if err := p.Watch(context.Background(), target, nil); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer p.Shutdown(context.Background())

	writeConfig(t, path, "rate: 40\n")
	waitFor(t, func() bool { return target.Rate() == 40 }, "rate 40")
}

func TestPlugin_IgnoresOtherFilesAndUnchangedRate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, "rate = 10.0\n")

	target := &fakeContext{rate: 10}
	p := New(Config{Path: path, DebounceDelay: 10 * time.Millisecond})
	if err := p.Watch(context.Background(), target, nil); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer p.Shutdown(context.Background())

	writeConfig(t, filepath.Join(dir, "other.toml"), "rate = 99.0\n")
	writeConfig(t, path, "rate = 10.0\nname = \"same\"\n")
	writeConfig(t, path, "name = \"no rate\"\n")
	time.Sleep(200 * time.Millisecond)

	if target.Calls() != 0 {
		t.Errorf("SetRate called %d times, want 0", target.Calls())
	}
	if target.Rate() != 10 {
		t.Errorf("Rate() = %v, want 10", target.Rate())
	}
}

func TestPlugin_RejectedRateKeepsWatching(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, "rate = 10.0\n")

	target := &fakeContext{rate: 10}
	p := New(Config{Path: path, DebounceDelay: 10 * time.Millisecond})
	if err := p.Watch(context.Background(), target, nil); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer p.Shutdown(context.Background())

	writeConfig(t, path, "rate = 0.0\n")
	waitFor(t, func() bool { return target.Calls() >= 1 }, "rejected SetRate")
	if target.Rate() != 10 {
		t.Errorf("Rate() = %v, want 10 after rejected update", target.Rate())
	}

	writeConfig(t, path, "rate = 30.0\n")
	waitFor(t, func() bool { return target.Rate() == 30 }, "rate 30")
}

func TestPlugin_InvalidFileIsIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, "rate = 10.0\n")

	target := &fakeContext{rate: 10}
	p := New(Config{Path: path, DebounceDelay: 10 * time.Millisecond})
	if err := p.Watch(context.Background(), target, nil); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer p.Shutdown(context.Background())

	writeConfig(t, path, "this is not toml")
	time.Sleep(150 * time.Millisecond)
	writeConfig(t, path, "rate = 12.5\n")
	waitFor(t, func() bool { return target.Rate() == 12.5 }, "rate 12.5")
}

func TestPlugin_ShutdownStopsWatching(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, "rate = 10.0\n")

	target := &fakeContext{rate: 10}
	p := New(Config{Path: path, DebounceDelay: 10 * time.Millisecond})
	if err := p.Watch(context.Background(), target, nil); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	writeConfig(t, path, "rate = 50.0\n")
	time.Sleep(150 * time.Millisecond)
	if target.Calls() != 0 {
		t.Errorf("SetRate called %d times after Shutdown", target.Calls())
	}
}

func TestPlugin_Errors(t *testing.T) {
	p := New(Config{})
	if err := p.Watch(context.Background(), &fakeContext{}, nil); !errors.Is(err, ErrNoPath) {
		t.Errorf("Watch() error = %v, want ErrNoPath", err)
	}

	p = New(Config{Path: filepath.Join(t.TempDir(), "missing", "config.toml")})
	if err := p.Watch(context.Background(), &fakeContext{}, nil); err == nil {
		t.Error("Watch() on missing directory expected error")
	}

	if err := p.Initialize(context.Background(), rtcd.PluginConfig{}); err == nil {
		t.Error("Initialize() without context expected error")
	}

	// Shutdown before start is a no-op.
	if err := New(Config{}).Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestPlugin_WithDaemon(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, "rate = 20.0\n")

	d, err := rtcd.New(rtcd.Config{Rate: 20},
		WithRateWatcher(Config{Path: path, DebounceDelay: 10 * time.Millisecond}),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer d.Close()

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	writeConfig(t, path, "rate = 80.0\n")
	waitFor(t, func() bool { return d.Context().Rate() == 80 }, "daemon rate 80")

	if err := d.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.DebounceDelay != 100*time.Millisecond {
		t.Errorf("DebounceDelay = %v, want 100ms", cfg.DebounceDelay)
	}
	if New(Config{}).Name() != "ratewatcher" {
		t.Error("unexpected plugin name")
	}
}
