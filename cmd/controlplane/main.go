// Command controlplane is the control plane process entrypoint: flag/env
// parsing, client construction, HTTP server bootstrap, and a background
// HealthMonitor, with klog initialization up front and fatal exits on
// construction errors.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"kubesim/internal/api"
	"kubesim/internal/clock"
	"kubesim/internal/clusterstore"
	"kubesim/internal/config"
	"kubesim/internal/healthmonitor"
	"kubesim/internal/runtime"
	"kubesim/internal/runtime/dockerruntime"
	"kubesim/internal/runtime/fakeruntime"
	"kubesim/internal/scheduler"
)

func main() {
	fmt.Println("================================================================================")
	fmt.Println("  kube-sim control plane")
	fmt.Println("  Teaching-scale cluster orchestrator. Do not use in production.")
	fmt.Println("================================================================================")

	klog.InitFlags(nil)

	cfg := config.FromEnv()
	var apiEndpoint string

	pflag.StringVar(&cfg.ListenAddr, "listen-addr", cfg.ListenAddr, "HTTP listen address")
	pflag.DurationVar(&cfg.TickInterval, "tick-interval", cfg.TickInterval, "health monitor tick interval")
	pflag.DurationVar(&cfg.HeartbeatTimeout, "heartbeat-timeout", cfg.HeartbeatTimeout, "node heartbeat timeout")
	pflag.StringVar(&cfg.RuntimeKind, "runtime", cfg.RuntimeKind, "node runtime: docker or fake")
	pflag.StringVar(&cfg.DockerImage, "docker-image", cfg.DockerImage, "worker image for the docker runtime")
	pflag.StringVar(&cfg.Policy, "policy", cfg.Policy, "scheduler policy: first-fit, best-fit, worst-fit")
	pflag.StringVar(&apiEndpoint, "api-endpoint", "http://localhost:8080", "base URL advertised to launched workers")
	pflag.Parse()

	store := clusterstore.New()
	clk := clock.Real()

	var pol scheduler.Policy
	switch cfg.Policy {
	case "best-fit":
		pol = scheduler.BestFit{}
	case "worst-fit":
		pol = scheduler.WorstFit{}
	default:
		pol = scheduler.FirstFit{}
	}
	sched := scheduler.New(store, pol, clk)

	nodeRuntime, err := buildRuntime(cfg)
	if err != nil {
		klog.Fatalf("failed to build node runtime: %v", err)
	}

	server := api.New(store, sched, nodeRuntime, clk, apiEndpoint)
	monitor := healthmonitor.New(store, nodeRuntime, sched, clk, cfg.TickInterval, cfg.HeartbeatTimeout)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go monitor.Run(ctx)

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: server.Handler()}
	go func() {
		klog.InfoS("control plane listening", "addr", cfg.ListenAddr, "policy", cfg.Policy, "runtime", cfg.RuntimeKind)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			klog.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	klog.InfoS("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.TickInterval)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
}

func buildRuntime(cfg config.ControlPlaneConfig) (runtime.NodeRuntime, error) {
	switch cfg.RuntimeKind {
	case "docker":
		return dockerruntime.New(cfg.DockerImage, nil), nil
	case "fake":
		return fakeruntime.New(), nil
	default:
		return nil, fmt.Errorf("unknown runtime kind %q", cfg.RuntimeKind)
	}
}
