package rtcd_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/rtcd/internal/demo"
	"github.com/bft-labs/rtcd/internal/domain"
	"github.com/bft-labs/rtcd/pkg/ec"
	"github.com/bft-labs/rtcd/pkg/rtc"
	"github.com/bft-labs/rtcd/pkg/rtcd"
)

// =============================================================================
// Test Utilities
// =============================================================================

// recordingHandler records daemon state changes.
type recordingHandler struct {
	mu     sync.Mutex
	states []rtcd.State
}

func (h *recordingHandler) OnStateChange(_, current rtcd.State, _ string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, current)
}

func (h *recordingHandler) States() []rtcd.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]rtcd.State(nil), h.states...)
}

// trackingPlugin tracks initialization and shutdown calls for testing.
type trackingPlugin struct {
	name      string
	order     *[]string
	mu        *sync.Mutex
	initError error
	cfg       rtcd.PluginConfig
}

func (p *trackingPlugin) Name() string { return p.name }

func (p *trackingPlugin) Initialize(ctx context.Context, cfg rtcd.PluginConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initError != nil {
		return p.initError
	}
	p.cfg = cfg
	*p.order = append(*p.order, "init:"+p.name)
	return nil
}

func (p *trackingPlugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	*p.order = append(*p.order, "shutdown:"+p.name)
	return nil
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}

// =============================================================================
// Tests
// =============================================================================

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  rtcd.Config
	}{
		{"unknown kind", rtcd.Config{Kind: "sporadic"}},
		{"negative rate", rtcd.Config{Rate: -1}},
		{"tick interval on periodic", rtcd.Config{TickInterval: time.Millisecond}},
		{"negative tick interval", rtcd.Config{Kind: rtcd.KindExtTrig, TickInterval: -time.Millisecond}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rtcd.New(tt.cfg)
			if !errors.Is(err, domain.ErrInvalidConfig) {
				t.Fatalf("New() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestNew_DuplicateComponent(t *testing.T) {
	c := demo.NewCounter("c", 0, nil)
	_, err := rtcd.New(rtcd.Config{}, rtcd.WithComponents(c, c))
	if !errors.Is(err, rtc.ErrBadParameter) {
		t.Fatalf("New() error = %v, want ErrBadParameter", err)
	}
}

func TestDaemon_PeriodicLifecycle(t *testing.T) {
	handler := &recordingHandler{}
	c := demo.NewCounter("counter", 0, nil)

	d, err := rtcd.New(rtcd.Config{Name: "arm", Rate: 200, ActivateOnStart: true},
		rtcd.WithComponents(c),
		rtcd.WithEventHandler(handler),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer d.Close()

	if d.State() != rtcd.StateStopped {
		t.Fatalf("State() = %v, want Stopped", d.State())
	}
	if got := d.Context().Kind(); got != rtc.Periodic {
		t.Errorf("Kind() = %v, want PERIODIC", got)
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := d.Start(context.Background()); !errors.Is(err, domain.ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}

	waitFor(t, 2*time.Second, func() bool { return c.Count() >= 5 }, "counter executions")
	if st := d.Status(); !st.Running || st.CountIn(rtc.ActiveState) != 1 {
		t.Errorf("Status() = %+v, want running with one active participant", st)
	}

	if err := d.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := d.Stop(); !errors.Is(err, domain.ErrNotRunning) {
		t.Errorf("second Stop() error = %v, want ErrNotRunning", err)
	}

	n := c.Count()
	time.Sleep(50 * time.Millisecond)
	if c.Count() != n {
		t.Errorf("counter advanced after Stop: %d -> %d", n, c.Count())
	}

	want := []rtcd.State{rtcd.StateStarting, rtcd.StateRunning, rtcd.StateStopping, rtcd.StateStopped}
	got := handler.States()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("states = %v, want %v", got, want)
	}
}

func TestDaemon_Restart(t *testing.T) {
	c := demo.NewCounter("counter", 0, nil)
	d, err := rtcd.New(rtcd.Config{Rate: 500, ActivateOnStart: true}, rtcd.WithComponents(c))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer d.Close()

	for i := 0; i < 2; i++ {
		if err := d.Start(context.Background()); err != nil {
			t.Fatalf("Start() #%d error = %v", i, err)
		}
		before := c.Count()
		waitFor(t, 2*time.Second, func() bool { return c.Count() > before }, "executions after start")
		if err := d.Stop(); err != nil {
			t.Fatalf("Stop() #%d error = %v", i, err)
		}
	}
}

func TestDaemon_ExtTrigTick(t *testing.T) {
	c := demo.NewCounter("counter", 0, nil)
	d, err := rtcd.New(rtcd.Config{Kind: rtcd.KindExtTrig}, rtcd.WithComponents(c))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer d.Close()

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := d.Context().ActivateComponent(c); err != nil {
		t.Fatalf("ActivateComponent() error = %v", err)
	}
	// Activation is applied by the next cycle.
	if err := d.Tick(); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if err := d.Context().WaitComponentState(ctx, c, rtc.ActiveState); err != nil {
		t.Fatalf("WaitComponentState() error = %v", err)
	}

	before := c.Count()
	for i := 0; i < 3; i++ {
		_ = d.Tick()
		target := before + uint64(i) + 1
		waitFor(t, time.Second, func() bool { return c.Count() >= target }, "tick executes")
	}

	if err := d.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestDaemon_ExtTrigSelfTicking(t *testing.T) {
	c := demo.NewCounter("counter", 0, nil)
	d, err := rtcd.New(rtcd.Config{
		Kind:            rtcd.KindExtTrig,
		TickInterval:    2 * time.Millisecond,
		ActivateOnStart: true,
	}, rtcd.WithComponents(c))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer d.Close()

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return c.Count() >= 5 }, "self-ticked executions")
	if err := d.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestDaemon_TickOnPeriodic(t *testing.T) {
	d, err := rtcd.New(rtcd.Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer d.Close()

	if err := d.Tick(); !errors.Is(err, rtc.ErrUnsupported) {
		t.Errorf("Tick() error = %v, want ErrUnsupported", err)
	}
}

func TestDaemon_PluginOrder(t *testing.T) {
	var (
		mu    sync.Mutex
		order []string
	)
	p1 := &trackingPlugin{name: "a", order: &order, mu: &mu}
	p2 := &trackingPlugin{name: "b", order: &order, mu: &mu}

	d, err := rtcd.New(rtcd.Config{Name: "ctx", Rate: 100},
		rtcd.WithPlugin(p1),
		rtcd.WithPlugin(p2),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer d.Close()

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := d.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := "init:a init:b shutdown:b shutdown:a"
	if got := strings.Join(order, " "); got != want {
		t.Errorf("order = %q, want %q", got, want)
	}
	if p1.cfg.Name != "ctx" || p1.cfg.Context == nil || p1.cfg.Kind != rtcd.KindPeriodic {
		t.Errorf("PluginConfig = %+v", p1.cfg)
	}
}

func TestDaemon_PluginInitFailure(t *testing.T) {
	var (
		mu    sync.Mutex
		order []string
	)
	boom := errors.New("boom")
	p1 := &trackingPlugin{name: "a", order: &order, mu: &mu}
	p2 := &trackingPlugin{name: "b", order: &order, mu: &mu, initError: boom}

	d, err := rtcd.New(rtcd.Config{Rate: 100}, rtcd.WithPlugin(p1), rtcd.WithPlugin(p2))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer d.Close()

	if err := d.Start(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Start() error = %v, want boom", err)
	}
	if d.State() != rtcd.StateCrashed {
		t.Errorf("State() = %v, want Crashed", d.State())
	}
	if d.Context().IsRunning() {
		t.Error("execution context running after failed start")
	}

	mu.Lock()
	got := strings.Join(order, " ")
	mu.Unlock()
	if got != "init:a shutdown:a" {
		t.Errorf("order = %q, want %q", got, "init:a shutdown:a")
	}
}

func TestDaemon_StatusFile(t *testing.T) {
	dir := t.TempDir()
	c := demo.NewCounter("counter", 0, nil)
	owner := demo.NewCounter("owner", 0, nil)

	d, err := rtcd.New(rtcd.Config{
		Name:           "arm",
		Rate:           100,
		StateDir:       dir,
		StatusInterval: 10 * time.Millisecond,
	}, rtcd.WithComponents(c), rtcd.WithOwner(owner))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer d.Close()

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		_, err := os.Stat(filepath.Join(dir, "status.json"))
		return err == nil
	}, "status.json")
	if err := d.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "status.json"))
	if err != nil {
		t.Fatalf("read status: %v", err)
	}
	var st []rtcd.Status
	if err := json.Unmarshal(b, &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if len(st) != 1 {
		t.Fatalf("len(status) = %d, want 1", len(st))
	}
	if st[0].Name != "arm" || st[0].Running || st[0].Owner != "owner" {
		t.Errorf("status = %+v, want stopped arm owned by owner", st[0])
	}
	if len(st[0].Participants) != 2 {
		t.Errorf("participants = %+v, want owner and counter", st[0].Participants)
	}
}

func TestDaemon_Metrics(t *testing.T) {
	c := demo.NewCounter("counter", 0, nil)
	d, err := rtcd.New(rtcd.Config{
		Name:            "arm",
		Rate:            200,
		ActivateOnStart: true,
		MetricsAddr:     "127.0.0.1:0",
	}, rtcd.WithComponents(c))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer d.Close()

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return d.Context().Cycles() >= 3 }, "cycles")

	addr := d.MetricsAddr()
	if addr == "" {
		t.Fatal("MetricsAddr() is empty while running")
	}
	resp, err := http.Get("http://" + addr + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	for _, name := range []string{
		`rtcd_cycles_total{ec="arm"}`,
		"rtcd_participant_transitions_total",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics missing %s", name)
		}
	}

	if err := d.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if d.MetricsAddr() != "" {
		t.Error("MetricsAddr() not cleared after Stop")
	}
	if d.Gatherer() == nil {
		t.Error("Gatherer() = nil with metrics enabled")
	}
}

func TestDaemon_Run(t *testing.T) {
	c := demo.NewCounter("counter", 0, nil)
	d, err := rtcd.New(rtcd.Config{Rate: 500, ActivateOnStart: true}, rtcd.WithComponents(c))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := d.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if d.State() != rtcd.StateStopped {
		t.Errorf("State() = %v, want Stopped", d.State())
	}
	if c.Count() == 0 {
		t.Error("no executions during Run")
	}
}

func TestDaemon_StopAfterContextStopped(t *testing.T) {
	d, err := rtcd.New(rtcd.Config{Rate: 100})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer d.Close()

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	var ctx ec.ExecutionContext = d.Context()
	if err := ctx.Stop(); err != nil {
		t.Fatalf("Context().Stop() error = %v", err)
	}
	if err := d.Stop(); err != nil {
		t.Errorf("Stop() error = %v, want nil", err)
	}
}
