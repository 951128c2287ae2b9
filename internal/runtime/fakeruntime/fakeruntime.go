// Package fakeruntime is an in-process NodeRuntime fake for tests and for
// running the control plane without Docker installed (--runtime=fake). It
// stands in for a real container backend the same way an in-memory fake
// client stands in for a real API server in unit tests: deterministic,
// no external process, good enough to exercise every code path that calls
// through the NodeRuntime interface.
package fakeruntime

import (
	"context"
	"fmt"
	"sync"

	"kubesim/internal/runtime"
)

// Runtime is a thread-safe, in-memory NodeRuntime. Tests can force Launch,
// Stop, or Inspect to fail for a given node id via the Fail* fields, to
// exercise the control plane's error paths. Remove always succeeds.
type Runtime struct {
	mu      sync.Mutex
	running map[string]bool

	// FailLaunch, if set, returns an error from Launch for this node id.
	FailLaunch map[string]bool
	// FailStop, if set, returns an error from Stop for this node id.
	FailStop map[string]bool
	// FailInspect, if set, returns an error from Inspect for this node id.
	FailInspect map[string]bool
	// ForceNotRunning, if set, makes Inspect report Running=false for this
	// node id regardless of Launch/Stop history — simulates a crashed
	// container that never called Stop.
	ForceNotRunning map[string]bool
}

// New creates an empty fake runtime.
func New() *Runtime {
	return &Runtime{
		running:         make(map[string]bool),
		FailLaunch:      make(map[string]bool),
		FailStop:        make(map[string]bool),
		FailInspect:     make(map[string]bool),
		ForceNotRunning: make(map[string]bool),
	}
}

func (r *Runtime) Launch(_ context.Context, nodeID string, _ int, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailLaunch[nodeID] {
		return fmt.Errorf("fakeruntime: launch failed for %s", nodeID)
	}
	r.running[nodeID] = true
	return nil
}

func (r *Runtime) Stop(_ context.Context, nodeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailStop[nodeID] {
		return fmt.Errorf("fakeruntime: stop failed for %s", nodeID)
	}
	r.running[nodeID] = false
	return nil
}

func (r *Runtime) Remove(_ context.Context, nodeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, nodeID)
	return nil
}

func (r *Runtime) Inspect(_ context.Context, nodeID string) (runtime.InspectResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailInspect[nodeID] {
		return runtime.InspectResult{}, fmt.Errorf("fakeruntime: inspect failed for %s", nodeID)
	}
	if r.ForceNotRunning[nodeID] {
		return runtime.InspectResult{Running: false, Status: "exited"}, nil
	}
	running := r.running[nodeID]
	status := "exited"
	if running {
		status = "running"
	}
	return runtime.InspectResult{Running: running, Status: status}, nil
}
