// Package clusterstore is the authoritative in-memory model of nodes and
// pods. It is pure data plus guarded mutators: it knows nothing about HTTP
// or container runtimes, and every public method that mutates state does
// so under a single exclusive lock — a two-lock design would either need a
// fixed node-before-pod order everywhere, or admit torn reads across the
// node/pod boundary that a placement decision depends on.
package clusterstore

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"kubesim/internal/clustererrors"
)

// Store holds the cluster's nodes and pods.
type Store struct {
	mu       sync.RWMutex
	nodes    map[string]*node
	pods     map[string]*pod
	nextSeq  int
	nodeSeq  []string // insertion order, for deterministic scheduling/iteration
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		nodes: make(map[string]*node),
		pods:  make(map[string]*pod),
	}
}

// CreateNode allocates a node record with the declared CPU capacity and
// returns its generated id. cpuCores must be positive.
func (s *Store) CreateNode(cpuCores int, now time.Time) (string, error) {
	if cpuCores <= 0 {
		return "", clustererrors.New(clustererrors.InvalidArgument, "cpuCores must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.nextSeq++
	s.nodes[id] = &node{
		id:            id,
		cpuCores:      cpuCores,
		availableCPU:  cpuCores,
		pods:          make(map[string]int),
		healthStatus:  NodeHealthy,
		isRunning:     true,
		lastHeartbeat: now,
		insertionSeq:  s.nextSeq,
	}
	s.nodeSeq = append(s.nodeSeq, id)
	return id, nil
}

// DeleteNode unconditionally removes the node record, whatever its current
// health state. Any pods still hosted on it are transitioned to
// Failed/Unhealthy and detached first.
func (s *Store) DeleteNode(nodeID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[nodeID]
	if !ok {
		return clustererrors.New(clustererrors.NotFound, "node not found: "+nodeID)
	}

	for _, podID := range orderedPodIDs(n.pods) {
		if p, ok := s.pods[podID]; ok {
			p.status = PodFailed
			p.healthStatus = PodUnhealthy
			p.lastUpdated = now
		}
	}
	n.pods = map[string]int{}

	delete(s.nodes, nodeID)
	s.removeFromSeq(nodeID)
	return nil
}

// StopNode marks the node administratively stopped, drains its pod set
// (zeroing accounting back to full capacity since the set becomes empty),
// and returns the drained pod ids in the order they were placed, so the
// caller can attempt to reschedule them onto other nodes in a reproducible
// order.
func (s *Store) StopNode(nodeID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[nodeID]
	if !ok {
		return nil, clustererrors.New(clustererrors.NotFound, "node not found: "+nodeID)
	}

	orphans := orderedPodIDs(n.pods)

	n.isRunning = false
	n.healthStatus = NodeStopped
	n.pods = map[string]int{}
	n.availableCPU = n.cpuCores

	return orphans, nil
}

// FailNode is the HealthMonitor's counterpart to StopNode: the node is
// unreachable or its container has crashed. It drains the pod set the same
// way StopNode does, but sets HealthStatus to Failed instead of Stopped.
func (s *Store) FailNode(nodeID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[nodeID]
	if !ok {
		return nil, clustererrors.New(clustererrors.NotFound, "node not found: "+nodeID)
	}

	orphans := orderedPodIDs(n.pods)

	n.healthStatus = NodeFailed
	n.pods = map[string]int{}
	n.availableCPU = n.cpuCores

	return orphans, nil
}

// PlacePod creates a new pod record of cpuRequired cores and, in the same
// critical section, selects a host via selectFn and reserves capacity on
// it. Keeping selection and reservation inside one lock acquisition is what
// prevents two concurrent LaunchPod calls from both reserving the same
// sliver of capacity on a node that only has room for one of them.
func (s *Store) PlacePod(cpuRequired int, now time.Time, selectFn SelectFunc) (podID, nodeID string, err error) {
	if cpuRequired <= 0 {
		return "", "", clustererrors.New(clustererrors.InvalidArgument, "cpuRequired must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	candidates := s.candidatesLocked("")
	target, ok := selectFn(candidates, cpuRequired)
	if !ok {
		return "", "", clustererrors.New(clustererrors.NoCapacity, "no healthy node has sufficient CPU available")
	}

	n := s.nodes[target]
	id := uuid.NewString()
	s.nextSeq++
	s.pods[id] = &pod{
		id:           id,
		cpuRequired:  cpuRequired,
		nodeID:       target,
		status:       PodRunning,
		healthStatus: PodHealthy,
		createdAt:    now,
		lastUpdated:  now,
		insertionSeq: s.nextSeq,
	}
	n.availableCPU -= cpuRequired
	n.pods[id] = s.nextSeq

	return id, target, nil
}

// RelocatePod is Reschedule's per-pod primitive: given a pod already
// orphaned by StopNode/FailNode (so it is not currently in any node's pod
// set), it tries to place it on a node other than excludeNodeID. On
// success the pod's nodeID and lastUpdated are rewritten and the target's
// capacity is reserved. On failure the pod is marked Failed/Unhealthy —
// that is a state transition, not an error, since an exhausted cluster is
// an expected operating condition rather than a caller mistake.
func (s *Store) RelocatePod(podID, excludeNodeID string, now time.Time, selectFn SelectFunc) (nodeID string, rescheduled bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pods[podID]
	if !ok {
		return "", false, clustererrors.New(clustererrors.NotFound, "pod not found: "+podID)
	}

	candidates := s.candidatesLocked(excludeNodeID)
	target, ok := selectFn(candidates, p.cpuRequired)
	if !ok {
		p.status = PodFailed
		p.healthStatus = PodUnhealthy
		p.lastUpdated = now
		return "", false, nil
	}

	n := s.nodes[target]
	n.availableCPU -= p.cpuRequired
	n.pods[podID] = p.insertionSeq
	p.nodeID = target
	p.lastUpdated = now

	return target, true, nil
}

// RemovePodFromNode reverses a successful PlacePod/RelocatePod: it restores
// the reserved capacity on nodeID and detaches podID from its pod set. It
// does not remove the pod record itself — callers that want the pod gone
// entirely call DeletePod afterward.
func (s *Store) RemovePodFromNode(podID, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[nodeID]
	if !ok {
		return clustererrors.New(clustererrors.NotFound, "node not found: "+nodeID)
	}
	p, ok := s.pods[podID]
	if !ok {
		return clustererrors.New(clustererrors.NotFound, "pod not found: "+podID)
	}

	if _, onNode := n.pods[podID]; onNode {
		delete(n.pods, podID)
		n.availableCPU += p.cpuRequired
	}
	return nil
}

// DeletePod removes the pod record unconditionally. A second delete of the
// same id returns NotFound without mutating state.
func (s *Store) DeletePod(podID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pods[podID]; !ok {
		return clustererrors.New(clustererrors.NotFound, "pod not found: "+podID)
	}
	delete(s.pods, podID)
	return nil
}

// RecordHeartbeat refreshes a node's liveness timestamp and heartbeat
// counter and overwrites its declared cpuCores with the worker-reported
// value. availableCpu accounting is deliberately NOT recomputed from the
// new cpuCores — the control plane's accounting stays authoritative and an
// operator who shrinks a worker tolerates transient oversubscription until
// the next reschedule. Returns the node's current pod set, in insertion
// order, so the worker can converge its local list.
func (s *Store) RecordHeartbeat(nodeID string, cpuCores int, now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[nodeID]
	if !ok {
		return nil, clustererrors.New(clustererrors.NotFound, "node not found: "+nodeID)
	}
	if !n.isRunning {
		return nil, clustererrors.ErrNodeStopped
	}

	n.lastHeartbeat = now
	n.heartbeatCount++
	if cpuCores > 0 {
		n.cpuCores = cpuCores
	}

	return orderedPodIDs(n.pods), nil
}

// GetNode returns a snapshot of the node, or ok=false if unknown.
func (s *Store) GetNode(nodeID string) (NodeView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[nodeID]
	if !ok {
		return NodeView{}, false
	}
	return n.view(), true
}

// ListNodes returns a snapshot of every node, keyed by id.
func (s *Store) ListNodes() map[string]NodeView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]NodeView, len(s.nodes))
	for id, n := range s.nodes {
		out[id] = n.view()
	}
	return out
}

// GetPod returns a snapshot of the pod, or ok=false if unknown.
func (s *Store) GetPod(podID string) (PodView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pods[podID]
	if !ok {
		return PodView{}, false
	}
	return p.view(), true
}

// ListPods returns a snapshot of every pod, in insertion order.
func (s *Store) ListPods() []PodView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]PodView, 0, len(s.pods))
	for _, p := range s.pods {
		out = append(out, p.view())
	}
	sortPodViewsByInsertion(out, s.pods)
	return out
}

// NodeIdsSnapshot returns node ids in insertion order, the order the
// scheduler's first-fit policy iterates candidates in so its choice is
// reproducible across runs.
func (s *Store) NodeIdsSnapshot() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.nodeSeq))
	copy(out, s.nodeSeq)
	return out
}

// NodesWithTimedOutHeartbeat returns the ids of running nodes whose
// lastHeartbeat is older than timeout as of now. Used by HealthMonitor to
// snapshot candidates under a short critical section.
func (s *Store) NodesWithTimedOutHeartbeat(now time.Time, timeout time.Duration) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, id := range s.nodeSeq {
		n, ok := s.nodes[id]
		if !ok || !n.isRunning {
			continue
		}
		if now.Sub(n.lastHeartbeat) > timeout {
			out = append(out, id)
		}
	}
	return out
}

// candidatesLocked builds the Candidate slice for the scheduler's
// predicate, in insertion order, excluding excludeNodeID. Caller must hold
// at least a read lock; it is only ever called from inside Lock() above.
func (s *Store) candidatesLocked(excludeNodeID string) []Candidate {
	candidates := make([]Candidate, 0, len(s.nodeSeq))
	for _, id := range s.nodeSeq {
		if id == excludeNodeID {
			continue
		}
		n, ok := s.nodes[id]
		if !ok {
			continue
		}
		candidates = append(candidates, Candidate{
			NodeID:       n.id,
			HealthStatus: n.healthStatus,
			IsRunning:    n.isRunning,
			AvailableCPU: n.availableCPU,
		})
	}
	return candidates
}

func (s *Store) removeFromSeq(nodeID string) {
	for i, id := range s.nodeSeq {
		if id == nodeID {
			s.nodeSeq = append(s.nodeSeq[:i], s.nodeSeq[i+1:]...)
			return
		}
	}
}

func sortPodViewsByInsertion(views []PodView, pods map[string]*pod) {
	// insertion sort is plenty at this scale (hundreds of pods); the
	// comparator is keyed by insertionSeq, a field not on PodView itself.
	seq := make(map[string]int, len(pods))
	for id, p := range pods {
		seq[id] = p.insertionSeq
	}
	for i := 1; i < len(views); i++ {
		j := i
		for j > 0 && seq[views[j-1].ID] > seq[views[j].ID] {
			views[j-1], views[j] = views[j], views[j-1]
			j--
		}
	}
}
