package scheduler

import (
	"testing"
	"time"

	"kubesim/internal/clock"
	"kubesim/internal/clusterstore"
)

func TestFirstFit_PicksFirstInsertionOrderMatch(t *testing.T) {
	store := clusterstore.New()
	clk := clock.NewFake(time.Now())
	sched := New(store, FirstFit{}, clk)

	n1, _ := store.CreateNode(2, clk.Now())
	n2, _ := store.CreateNode(8, clk.Now())
	_ = n2

	_, nodeID, err := sched.Place(1)
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if nodeID != n1 {
		t.Errorf("expected first-fit to pick the first-inserted eligible node %s, got %s", n1, nodeID)
	}
}

func TestBestFit_PicksTightestEligibleNode(t *testing.T) {
	store := clusterstore.New()
	clk := clock.NewFake(time.Now())
	sched := New(store, BestFit{}, clk)

	_, _ = store.CreateNode(8, clk.Now())
	n2, _ := store.CreateNode(4, clk.Now())
	_, _ = store.CreateNode(16, clk.Now())

	_, nodeID, err := sched.Place(3)
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if nodeID != n2 {
		t.Errorf("expected best-fit to pick the 4-core node %s, got %s", n2, nodeID)
	}
}

func TestWorstFit_PicksRoomiestEligibleNode(t *testing.T) {
	store := clusterstore.New()
	clk := clock.NewFake(time.Now())
	sched := New(store, WorstFit{}, clk)

	_, _ = store.CreateNode(8, clk.Now())
	_, _ = store.CreateNode(4, clk.Now())
	n3, _ := store.CreateNode(16, clk.Now())

	_, nodeID, err := sched.Place(3)
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if nodeID != n3 {
		t.Errorf("expected worst-fit to pick the 16-core node %s, got %s", n3, nodeID)
	}
}

func TestPlace_NoCapacity(t *testing.T) {
	store := clusterstore.New()
	clk := clock.NewFake(time.Now())
	sched := New(store, FirstFit{}, clk)

	_, _ = store.CreateNode(2, clk.Now())

	if _, _, err := sched.Place(4); err == nil {
		t.Errorf("expected placement to fail when no node has enough capacity")
	}
}

func TestReschedule_SkipsSourceNodeAndHandlesPartialFailure(t *testing.T) {
	store := clusterstore.New()
	clk := clock.NewFake(time.Now())
	sched := New(store, FirstFit{}, clk)

	n1, _ := store.CreateNode(4, clk.Now())
	_, _ = store.CreateNode(1, clk.Now())

	bigPod, _, _ := sched.Place(3)
	smallPod, _, _ := sched.Place(1)

	orphans, err := store.StopNode(n1)
	if err != nil {
		t.Fatalf("StopNode: %v", err)
	}

	sched.Reschedule(n1, orphans)

	bigView, _ := store.GetPod(bigPod)
	if bigView.Status != clusterstore.PodFailed {
		t.Errorf("expected oversized orphan to fail rescheduling, got status %s", bigView.Status)
	}

	smallView, _ := store.GetPod(smallPod)
	if smallView.Status != clusterstore.PodRunning {
		t.Errorf("expected small orphan to reschedule successfully, got status %s", smallView.Status)
	}
	if smallView.NodeID == n1 {
		t.Errorf("rescheduled pod must not land back on the stopped source node")
	}
}

func TestReschedule_NoEligibleTargetLeavesBothFailed(t *testing.T) {
	store := clusterstore.New()
	clk := clock.NewFake(time.Now())
	sched := New(store, FirstFit{}, clk)

	n1, _ := store.CreateNode(4, clk.Now())

	podID, _, _ := sched.Place(2)

	orphans, _ := store.StopNode(n1)
	sched.Reschedule(n1, orphans)

	view, _ := store.GetPod(podID)
	if view.Status != clusterstore.PodFailed || view.HealthStatus != clusterstore.PodUnhealthy {
		t.Errorf("expected pod to be Failed/Unhealthy with no other node to take it, got %+v", view)
	}
}
