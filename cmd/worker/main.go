// Command worker is the reference worker process: it reads NODE_ID,
// API_SERVER, and CPU_CORES from the environment and heartbeats to the
// control plane on a fixed interval, retrying and eventually giving up
// after repeated failure cycles.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"k8s.io/klog/v2"

	"kubesim/internal/workerclient"
)

func main() {
	klog.InitFlags(nil)

	nodeID := os.Getenv("NODE_ID")
	apiServer := os.Getenv("API_SERVER")
	cpuCoresStr := os.Getenv("CPU_CORES")

	if nodeID == "" || apiServer == "" {
		klog.Fatal("NODE_ID and API_SERVER environment variables must be set")
	}

	cpuCores := 2
	if cpuCoresStr != "" {
		if v, err := strconv.Atoi(cpuCoresStr); err == nil {
			cpuCores = v
		}
	}

	client := workerclient.New(workerclient.Config{
		NodeID:    nodeID,
		APIServer: apiServer,
		CPUCores:  cpuCores,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	klog.InfoS("starting worker", "node", nodeID, "apiServer", apiServer, "cpuCores", cpuCores)
	if err := client.Run(ctx); err != nil && ctx.Err() == nil {
		klog.Fatalf("worker exiting: %v", err)
	}
}
