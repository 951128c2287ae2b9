// Package dockerruntime implements NodeRuntime by shelling out to the
// docker CLI via os/exec, so a worker "node" is a real container that can
// be launched, stopped, removed, and inspected like any other.
package dockerruntime

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"kubesim/internal/runtime"
)

// inspectTTL bounds how long a cached Inspect result is reused. It exists
// because the HealthMonitor and a concurrent handler can both want to
// Inspect the same node within the same tick; a real docker inspect call
// is comparatively expensive and the answer cannot have changed within a
// couple hundred milliseconds.
const inspectTTL = 500 * time.Millisecond

// Runtime shells out to the docker CLI for Launch/Stop/Remove/Inspect.
type Runtime struct {
	image        string
	inspectCache *cache.Cache
	log          *zap.SugaredLogger
}

// New creates a Runtime that launches containers from image (the worker
// image, analogous to the original's "kube-sim-node").
func New(image string, log *zap.SugaredLogger) *Runtime {
	if log == nil {
		z, _ := zap.NewProduction()
		log = z.Sugar()
	}
	return &Runtime{
		image:        image,
		inspectCache: cache.New(inspectTTL, 2*inspectTTL),
		log:          log,
	}
}

func (r *Runtime) Launch(ctx context.Context, nodeID string, cpuCores int, apiEndpoint string) error {
	args := []string{
		"run", "-d",
		"--name", nodeID,
		"-e", "NODE_ID=" + nodeID,
		"-e", "CPU_CORES=" + strconv.Itoa(cpuCores),
		"-e", "API_SERVER=" + apiEndpoint,
		"--network", "host",
		r.image,
	}
	r.log.Infow("launching worker container", "nodeID", nodeID, "cpuCores", cpuCores, "apiEndpoint", apiEndpoint)
	if out, err := exec.CommandContext(ctx, "docker", args...).CombinedOutput(); err != nil {
		return fmt.Errorf("docker run %s: %w (%s)", nodeID, err, strings.TrimSpace(string(out)))
	}
	r.inspectCache.Delete(nodeID)
	return nil
}

func (r *Runtime) Stop(ctx context.Context, nodeID string) error {
	r.log.Infow("stopping worker container", "nodeID", nodeID)
	if out, err := exec.CommandContext(ctx, "docker", "stop", nodeID).CombinedOutput(); err != nil {
		return fmt.Errorf("docker stop %s: %w (%s)", nodeID, err, strings.TrimSpace(string(out)))
	}
	r.inspectCache.Delete(nodeID)
	return nil
}

func (r *Runtime) Remove(ctx context.Context, nodeID string) error {
	r.log.Infow("removing worker container", "nodeID", nodeID)
	if out, err := exec.CommandContext(ctx, "docker", "rm", "-f", nodeID).CombinedOutput(); err != nil {
		return fmt.Errorf("docker rm %s: %w (%s)", nodeID, err, strings.TrimSpace(string(out)))
	}
	r.inspectCache.Delete(nodeID)
	return nil
}

func (r *Runtime) Inspect(ctx context.Context, nodeID string) (runtime.InspectResult, error) {
	if cached, ok := r.inspectCache.Get(nodeID); ok {
		return cached.(runtime.InspectResult), nil
	}

	out, err := exec.CommandContext(ctx, "docker", "inspect", "-f", "{{.State.Running}} {{.State.Status}}", nodeID).CombinedOutput()
	if err != nil {
		return runtime.InspectResult{}, fmt.Errorf("docker inspect %s: %w (%s)", nodeID, err, strings.TrimSpace(string(out)))
	}

	fields := strings.Fields(strings.TrimSpace(string(out)))
	if len(fields) != 2 {
		return runtime.InspectResult{}, fmt.Errorf("docker inspect %s: unexpected output %q", nodeID, string(out))
	}

	result := runtime.InspectResult{Running: fields[0] == "true", Status: fields[1]}
	r.inspectCache.Set(nodeID, result, cache.DefaultExpiration)
	return result, nil
}
