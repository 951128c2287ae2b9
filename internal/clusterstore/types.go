package clusterstore

import (
	"sort"
	"time"
)

// NodeHealth is a node's sticky health state. Failed and Stopped are
// terminal: nothing implicitly revives a node back to Healthy on a later
// heartbeat, it has to go through CreateNode again.
type NodeHealth string

const (
	NodeHealthy NodeHealth = "Healthy"
	NodeFailed  NodeHealth = "Failed"
	NodeStopped NodeHealth = "Stopped"
)

// PodStatus is a pod's run state.
type PodStatus string

const (
	PodRunning PodStatus = "Running"
	PodFailed  PodStatus = "Failed"
)

// PodHealth mirrors PodStatus but tracks whether the pod is placeable.
type PodHealth string

const (
	PodHealthy   PodHealth = "Healthy"
	PodUnhealthy PodHealth = "Unhealthy"
)

// node is the internal, mutable record. Never handed out directly — callers
// only ever see a NodeView snapshot copied out under lock.
type node struct {
	id             string
	cpuCores       int
	availableCPU   int
	pods           map[string]int // podID -> insertionSeq, so draining/listing has a fixed order
	healthStatus   NodeHealth
	isRunning      bool
	lastHeartbeat  time.Time
	heartbeatCount int64
	insertionSeq   int
}

// orderedPodIDs returns pods' keys sorted by insertion order.
func orderedPodIDs(pods map[string]int) []string {
	ids := make([]string, 0, len(pods))
	for id := range pods {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return pods[ids[i]] < pods[ids[j]] })
	return ids
}

// pod is the internal, mutable record.
type pod struct {
	id           string
	cpuRequired  int
	nodeID       string
	status       PodStatus
	healthStatus PodHealth
	createdAt    time.Time
	lastUpdated  time.Time
	insertionSeq int
}

// NodeView is an immutable snapshot of a node, safe to hand to callers
// outside the lock.
type NodeView struct {
	ID             string     `json:"id"`
	CPUCores       int        `json:"cpu_cores"`
	AvailableCPU   int        `json:"available_cpu"`
	Pods           []string   `json:"pods"`
	HealthStatus   NodeHealth `json:"health_status"`
	LastHeartbeat  time.Time  `json:"last_heartbeat"`
	HeartbeatCount int64      `json:"heartbeat_count"`
	IsRunning      bool       `json:"is_running"`
}

// PodView is an immutable snapshot of a pod.
type PodView struct {
	ID           string    `json:"id"`
	CPURequired  int       `json:"cpu_required"`
	NodeID       string    `json:"node_id"`
	Status       PodStatus `json:"status"`
	HealthStatus PodHealth `json:"health_status"`
	CreatedAt    time.Time `json:"created_at"`
	LastUpdated  time.Time `json:"last_updated"`
}

func (n *node) view() NodeView {
	ids := orderedPodIDs(n.pods)
	return NodeView{
		ID:             n.id,
		CPUCores:       n.cpuCores,
		AvailableCPU:   n.availableCPU,
		Pods:           ids,
		HealthStatus:   n.healthStatus,
		LastHeartbeat:  n.lastHeartbeat,
		HeartbeatCount: n.heartbeatCount,
		IsRunning:      n.isRunning,
	}
}

func (p *pod) view() PodView {
	return PodView{
		ID:           p.id,
		CPURequired:  p.cpuRequired,
		NodeID:       p.nodeID,
		Status:       p.status,
		HealthStatus: p.healthStatus,
		CreatedAt:    p.createdAt,
		LastUpdated:  p.lastUpdated,
	}
}

// Candidate is the read-only view of a node the scheduler's placement
// predicate evaluates. It is produced under the store's lock and passed to
// a SelectFunc without the lock ever being released mid-selection.
type Candidate struct {
	NodeID       string
	HealthStatus NodeHealth
	IsRunning    bool
	AvailableCPU int
}

// SelectFunc picks a node id out of candidates, or reports ok=false if none
// satisfy the policy. Implementations live in package scheduler; passing
// one in as a function value lets ClusterState perform predicate+reserve
// as a single critical section without importing the scheduler package.
type SelectFunc func(candidates []Candidate, cpuRequired int) (nodeID string, ok bool)
