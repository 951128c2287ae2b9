// Package runtime defines the NodeRuntime boundary: the abstraction over
// whatever actually launches, stops, removes, and inspects a worker
// process. The control plane core depends only on this interface; the
// container tool or fake backing it is an external collaborator.
package runtime

import "context"

// InspectResult reports a worker container's observed state.
type InspectResult struct {
	Running bool
	Status  string
}

// NodeRuntime abstracts the worker process lifecycle.
type NodeRuntime interface {
	// Launch starts a worker process for nodeID with the declared CPU
	// capacity, pointed at apiEndpoint for its heartbeat loop.
	Launch(ctx context.Context, nodeID string, cpuCores int, apiEndpoint string) error
	// Stop gracefully stops the worker process for nodeID.
	Stop(ctx context.Context, nodeID string) error
	// Remove force-removes any remaining trace of the worker process.
	Remove(ctx context.Context, nodeID string) error
	// Inspect reports whether the worker process for nodeID is running.
	Inspect(ctx context.Context, nodeID string) (InspectResult, error)
}
