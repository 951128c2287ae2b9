// Package healthmonitor implements the periodic failure detector: it scans
// nodes for heartbeat timeout, consults the NodeRuntime to distinguish a
// silent-but-alive worker from a crashed one, and hands orphaned pods to
// the Scheduler.
package healthmonitor

import (
	"context"
	"time"

	"k8s.io/klog/v2"

	"kubesim/internal/clock"
	"kubesim/internal/clusterstore"
	"kubesim/internal/runtime"
	"kubesim/internal/scheduler"
)

// DefaultTickInterval is how often the monitor wakes to scan nodes.
const DefaultTickInterval = 5 * time.Second

// DefaultHeartbeatTimeout is how long a node may go without a heartbeat
// before the monitor investigates it.
const DefaultHeartbeatTimeout = 15 * time.Second

// Monitor is the single cooperative task that periodically scans nodes for
// heartbeat timeout.
type Monitor struct {
	store            *clusterstore.Store
	runtime          runtime.NodeRuntime
	scheduler        *scheduler.Scheduler
	clk              clock.Clock
	tickInterval     time.Duration
	heartbeatTimeout time.Duration
}

// New creates a Monitor. tickInterval and heartbeatTimeout default to
// DefaultTickInterval/DefaultHeartbeatTimeout when zero.
func New(store *clusterstore.Store, nodeRuntime runtime.NodeRuntime, sched *scheduler.Scheduler, clk clock.Clock, tickInterval, heartbeatTimeout time.Duration) *Monitor {
	if tickInterval <= 0 {
		tickInterval = DefaultTickInterval
	}
	if heartbeatTimeout <= 0 {
		heartbeatTimeout = DefaultHeartbeatTimeout
	}
	return &Monitor{
		store:            store,
		runtime:          nodeRuntime,
		scheduler:        sched,
		clk:              clk,
		tickInterval:     tickInterval,
		heartbeatTimeout: heartbeatTimeout,
	}
}

// Run blocks, ticking until ctx is cancelled. Intended to be started with
// `go monitor.Run(ctx)` from the process entrypoint.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// tick snapshots candidate nodes under the store's lock, then calls
// NodeRuntime.Inspect with the lock released for each one, so a slow
// runtime never blocks request handlers.
func (m *Monitor) tick(ctx context.Context) {
	now := m.clk.Now()
	candidates := m.store.NodesWithTimedOutHeartbeat(now, m.heartbeatTimeout)

	for _, nodeID := range candidates {
		result, err := m.runtime.Inspect(ctx, nodeID)
		if err != nil || !result.Running {
			if err != nil {
				klog.ErrorS(err, "health monitor: inspect failed, treating node as failed", "node", nodeID)
			} else {
				klog.InfoS("health monitor: container not running, marking node failed", "node", nodeID, "status", result.Status)
			}

			orphans, failErr := m.store.FailNode(nodeID)
			if failErr != nil {
				// Node may have been deleted/stopped concurrently between
				// the snapshot and this Inspect; nothing left to do.
				continue
			}
			m.scheduler.Reschedule(nodeID, orphans)
			continue
		}

		klog.Warningf("health monitor: node %s has not sent a heartbeat in over %s but its container is running; leaving it Healthy", nodeID, m.heartbeatTimeout)
	}
}
