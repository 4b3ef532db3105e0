package probe

import (
	"context"
	"sync"
)

// MockProbe is a scripted Probe for tests: fixed result or error, plus call
// recording.
type MockProbe struct {
	ProbeName string
	Desc      string
	Result    map[string]any
	Err       error

	mu    sync.Mutex
	calls []map[string]any
}

// Name implements Probe.
func (m *MockProbe) Name() string { return m.ProbeName }

// Description implements Probe.
func (m *MockProbe) Description() string { return m.Desc }

// Call implements Probe.
func (m *MockProbe) Call(ctx context.Context, input map[string]any) (map[string]any, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	m.mu.Lock()
	m.calls = append(m.calls, input)
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

// Calls returns the recorded inputs, one per invocation.
func (m *MockProbe) Calls() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]map[string]any, len(m.calls))
	copy(out, m.calls)
	return out
}
