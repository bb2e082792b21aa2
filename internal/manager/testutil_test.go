package manager

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeRunner is an in-memory Runner used for tests.
type fakeRunner struct {
	mu      sync.Mutex
	running map[string]RunSpec
	runErr  error
	stopErr error
	pingErr error
	state   string
	logs    string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{running: make(map[string]RunSpec), state: "running", logs: "model ready\n"}
}

func (f *fakeRunner) Run(ctx context.Context, spec RunSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.runErr != nil {
		return "", f.runErr
	}
	f.running[spec.Name] = spec
	return "cid-" + spec.Name, nil
}

func (f *fakeRunner) Stop(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopErr != nil {
		return f.stopErr
	}
	if _, ok := f.running[name]; !ok {
		return ErrDeploymentNotFound(name)
	}
	delete(f.running, name)
	return nil
}

func (f *fakeRunner) Status(ctx context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.running[name]; !ok {
		return "", ErrDeploymentNotFound(name)
	}
	return f.state, nil
}

func (f *fakeRunner) Logs(ctx context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.running[name]; !ok {
		return "", ErrDeploymentNotFound(name)
	}
	return f.logs, nil
}

func (f *fakeRunner) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeRunner) spec(name string) (RunSpec, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.running[name]
	return s, ok
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}
