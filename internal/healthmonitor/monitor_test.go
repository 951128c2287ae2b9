package healthmonitor

import (
	"context"
	"testing"
	"time"

	"kubesim/internal/clock"
	"kubesim/internal/clusterstore"
	"kubesim/internal/runtime/fakeruntime"
	"kubesim/internal/scheduler"
)

func firstFitSelect(candidates []clusterstore.Candidate, cpuRequired int) (string, bool) {
	for _, c := range candidates {
		if c.HealthStatus == clusterstore.NodeHealthy && c.IsRunning && c.AvailableCPU >= cpuRequired {
			return c.NodeID, true
		}
	}
	return "", false
}

func TestTick_DeadContainerFailsNodeAndReschedules(t *testing.T) {
	store := clusterstore.New()
	rt := fakeruntime.New()
	clk := clock.NewFake(time.Now())
	sched := scheduler.New(store, scheduler.FirstFit{}, clk)
	mon := New(store, rt, sched, clk, time.Second, 15*time.Second)

	n1, _ := store.CreateNode(4, clk.Now())
	n2, _ := store.CreateNode(4, clk.Now())
	if err := rt.Launch(context.Background(), n2, 4, "worker:latest"); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	podID, _, err := store.PlacePod(2, clk.Now(), firstFitSelect)
	if err != nil {
		t.Fatalf("PlacePod: %v", err)
	}

	// n1 never had Launch called against the fake runtime, so Inspect
	// reports it as not running -- the "crashed container" case. n2's
	// container is live, so it stays Healthy and can take the orphan.
	clk.Advance(20 * time.Second)
	mon.tick(context.Background())

	n1View, _ := store.GetNode(n1)
	if n1View.HealthStatus != clusterstore.NodeFailed {
		t.Errorf("expected n1 to be marked Failed, got %s", n1View.HealthStatus)
	}

	podView, _ := store.GetPod(podID)
	if podView.NodeID != n2 {
		t.Errorf("expected orphaned pod to reschedule onto %s, got %s", n2, podView.NodeID)
	}
	if podView.Status != clusterstore.PodRunning {
		t.Errorf("expected rescheduled pod to be Running, got %s", podView.Status)
	}
}

func TestTick_LiveContainerStaysHealthyDespiteMissedHeartbeat(t *testing.T) {
	store := clusterstore.New()
	rt := fakeruntime.New()
	clk := clock.NewFake(time.Now())
	sched := scheduler.New(store, scheduler.FirstFit{}, clk)
	mon := New(store, rt, sched, clk, time.Second, 15*time.Second)

	n1, _ := store.CreateNode(4, clk.Now())
	if err := rt.Launch(context.Background(), n1, 4, "worker:latest"); err != nil {
		t.Fatalf("Launch: %v", err)
	}

	clk.Advance(20 * time.Second)
	mon.tick(context.Background())

	view, _ := store.GetNode(n1)
	if view.HealthStatus != clusterstore.NodeHealthy {
		t.Errorf("expected node with a live container to stay Healthy, got %s", view.HealthStatus)
	}
}

func TestTick_IgnoresNodesWithinTimeout(t *testing.T) {
	store := clusterstore.New()
	rt := fakeruntime.New()
	clk := clock.NewFake(time.Now())
	sched := scheduler.New(store, scheduler.FirstFit{}, clk)
	mon := New(store, rt, sched, clk, time.Second, 15*time.Second)

	n1, _ := store.CreateNode(4, clk.Now())

	clk.Advance(5 * time.Second)
	mon.tick(context.Background())

	view, _ := store.GetNode(n1)
	if view.HealthStatus != clusterstore.NodeHealthy {
		t.Errorf("expected node within heartbeat timeout to remain untouched, got %s", view.HealthStatus)
	}
}

func TestTick_InspectErrorTreatsNodeAsFailed(t *testing.T) {
	store := clusterstore.New()
	rt := fakeruntime.New()
	clk := clock.NewFake(time.Now())
	sched := scheduler.New(store, scheduler.FirstFit{}, clk)
	mon := New(store, rt, sched, clk, time.Second, 15*time.Second)

	n1, _ := store.CreateNode(4, clk.Now())
	rt.FailInspect[n1] = true

	clk.Advance(20 * time.Second)
	mon.tick(context.Background())

	view, _ := store.GetNode(n1)
	if view.HealthStatus != clusterstore.NodeFailed {
		t.Errorf("expected inspect error to result in node marked Failed, got %s", view.HealthStatus)
	}
}
