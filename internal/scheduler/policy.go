// Package scheduler selects placement targets for pods and drives the
// reschedule policy triggered by node stop/failure events.
package scheduler

import "kubesim/internal/clusterstore"

// Policy picks a node out of a candidate list, or reports ok=false if none
// satisfy it. The interface exists so the node-ordering and predicate can
// be swapped (best-fit, worst-fit, random) without ClusterState ever
// knowing a policy exists — it only sees the resulting SelectFunc.
type Policy interface {
	SelectNode(candidates []clusterstore.Candidate, cpuRequired int) (nodeID string, ok bool)
}

// eligible reports whether a candidate can host cpuRequired more cores.
func eligible(c clusterstore.Candidate, cpuRequired int) bool {
	return c.HealthStatus == clusterstore.NodeHealthy && c.IsRunning && c.AvailableCPU >= cpuRequired
}

// FirstFit is the default policy: the first eligible node in insertion
// order wins, so placement is reproducible across runs given the same
// sequence of operations.
type FirstFit struct{}

func (FirstFit) SelectNode(candidates []clusterstore.Candidate, cpuRequired int) (string, bool) {
	for _, c := range candidates {
		if eligible(c, cpuRequired) {
			return c.NodeID, true
		}
	}
	return "", false
}

// BestFit selects the eligible node with the smallest sufficient
// AvailableCPU, minimizing fragmentation. Ties keep insertion order.
type BestFit struct{}

func (BestFit) SelectNode(candidates []clusterstore.Candidate, cpuRequired int) (string, bool) {
	found := false
	var bestID string
	var bestAvail int
	for _, c := range candidates {
		if !eligible(c, cpuRequired) {
			continue
		}
		if !found || c.AvailableCPU < bestAvail {
			bestID = c.NodeID
			bestAvail = c.AvailableCPU
			found = true
		}
	}
	return bestID, found
}

// WorstFit selects the eligible node with the largest AvailableCPU,
// spreading load across the fleet. Ties keep insertion order.
type WorstFit struct{}

func (WorstFit) SelectNode(candidates []clusterstore.Candidate, cpuRequired int) (string, bool) {
	found := false
	var bestID string
	var bestAvail int
	for _, c := range candidates {
		if !eligible(c, cpuRequired) {
			continue
		}
		if !found || c.AvailableCPU > bestAvail {
			bestID = c.NodeID
			bestAvail = c.AvailableCPU
			found = true
		}
	}
	return bestID, found
}
