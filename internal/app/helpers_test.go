package app

import (
	"sync"

	"github.com/bft-labs/rtcd/internal/ports"
	"github.com/bft-labs/rtcd/pkg/rtc"
	"go.uber.org/atomic"
)

// mockLogger discards everything.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

// ecID shortens the callback signatures below.
type ecID = rtc.ExecutionContextHandle

// stubEC stands in for the execution context a worker attaches components to.
type stubEC struct{ rtc.ExecutionContextService }

// testComp records every callback and fails those configured to fail.
type testComp struct {
	*rtc.Base

	mu    sync.Mutex
	calls []string
	fail  map[string]error
	hooks map[string]func()

	executes atomic.Int64
}

func newTestComp(name string) *testComp {
	return &testComp{
		Base:  rtc.NewBase(name),
		fail:  make(map[string]error),
		hooks: make(map[string]func()),
	}
}

func (c *testComp) setFail(callback string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.fail, callback)
		return
	}
	c.fail[callback] = err
}

func (c *testComp) onCall(callback string, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks[callback] = fn
}

func (c *testComp) record(callback string) error {
	c.mu.Lock()
	c.calls = append(c.calls, callback)
	err := c.fail[callback]
	hook := c.hooks[callback]
	c.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}

func (c *testComp) takeCalls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.calls
	c.calls = nil
	return out
}

func (c *testComp) OnStartup(ecID) error     { return c.record("on_startup") }
func (c *testComp) OnShutdown(ecID) error    { return c.record("on_shutdown") }
func (c *testComp) OnActivated(ecID) error   { return c.record("on_activated") }
func (c *testComp) OnDeactivated(ecID) error { return c.record("on_deactivated") }
func (c *testComp) OnAborting(ecID) error    { return c.record("on_aborting") }
func (c *testComp) OnError(ecID) error       { return c.record("on_error") }
func (c *testComp) OnReset(ecID) error       { return c.record("on_reset") }
func (c *testComp) OnStateUpdate(ecID) error { return c.record("on_state_update") }
func (c *testComp) OnRateChanged(ecID) error { return c.record("on_rate_changed") }
func (c *testComp) OnAction(ecID) error      { return c.record("on_action") }
func (c *testComp) OnModeChanged(ecID) error { return c.record("on_mode_changed") }

func (c *testComp) OnExecute(ecID) error {
	c.executes.Inc()
	return c.record("on_execute")
}

// bareComp implements no optional capability.
type bareComp struct{ *rtc.Base }

// fixedIDComp hands out a fixed context id on attach and bind.
type fixedIDComp struct {
	*testComp
	id  rtc.ExecutionContextHandle
	err error
}

func (c *fixedIDComp) AttachContext(rtc.ExecutionContextService) (rtc.ExecutionContextHandle, error) {
	return c.id, c.err
}

func (c *fixedIDComp) BindContext(rtc.ExecutionContextService) (rtc.ExecutionContextHandle, error) {
	return c.id, c.err
}

func (c *fixedIDComp) DetachContext(rtc.ExecutionContextHandle) error { return nil }
