package scheduler

import (
	"k8s.io/klog/v2"

	"kubesim/internal/clock"
	"kubesim/internal/clusterstore"
	"kubesim/internal/metrics"
)

// Scheduler places pods onto nodes using a pluggable Policy, and
// reschedules pods orphaned by a node stop or failure.
type Scheduler struct {
	store  *clusterstore.Store
	policy Policy
	clk    clock.Clock
}

// New creates a Scheduler backed by store, using policy for node selection
// and clk as the time source for pod creation/update timestamps.
func New(store *clusterstore.Store, policy Policy, clk clock.Clock) *Scheduler {
	if policy == nil {
		policy = FirstFit{}
	}
	return &Scheduler{store: store, policy: policy, clk: clk}
}

// Place creates and places a new pod of cpuRequired cores, returning its
// id and the id of the node it landed on.
func (s *Scheduler) Place(cpuRequired int) (podID, nodeID string, err error) {
	return s.store.PlacePod(cpuRequired, s.clk.Now(), s.policy.SelectNode)
}

// Reschedule attempts to place each pod in podIDs (in order) onto a node
// other than sourceNodeID. Each pod is an independent atomic placement —
// the scheduler never preempts a running pod to make room for an orphan,
// and one pod's failure to place does not block the rest.
func (s *Scheduler) Reschedule(sourceNodeID string, podIDs []string) {
	for _, podID := range podIDs {
		nodeID, ok, err := s.store.RelocatePod(podID, sourceNodeID, s.clk.Now(), s.policy.SelectNode)
		if err != nil {
			klog.ErrorS(err, "reschedule: pod vanished before relocation", "pod", podID, "sourceNode", sourceNodeID)
			continue
		}
		if ok {
			metrics.RescheduleTotal.WithLabelValues("placed").Inc()
			klog.InfoS("pod rescheduled", "pod", podID, "sourceNode", sourceNodeID, "targetNode", nodeID)
		} else {
			metrics.RescheduleTotal.WithLabelValues("failed").Inc()
			klog.Warningf("pod %s could not be rescheduled off node %s, no eligible host", podID, sourceNodeID)
		}
	}
}
