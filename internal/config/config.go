// Package config holds the control plane's runtime configuration, loaded
// from environment variables with flag overrides so the same binary can
// be tuned per-deployment without a rebuild.
package config

import (
	"os"
	"strconv"
	"time"

	"kubesim/internal/healthmonitor"
)

// ControlPlaneConfig holds every tunable the control plane process needs.
type ControlPlaneConfig struct {
	// ListenAddr is the HTTP server's bind address.
	ListenAddr string

	// TickInterval is how often the HealthMonitor scans nodes.
	TickInterval time.Duration

	// HeartbeatTimeout is how long a node may go silent before the
	// HealthMonitor investigates it.
	HeartbeatTimeout time.Duration

	// RuntimeKind selects the NodeRuntime implementation: "docker" or
	// "fake".
	RuntimeKind string

	// DockerImage is the worker image launched by the docker runtime.
	DockerImage string

	// Policy selects the scheduler placement policy: "first-fit"
	// (default), "best-fit", or "worst-fit".
	Policy string
}

// Default returns the out-of-the-box configuration used when no
// environment overrides are present.
func Default() ControlPlaneConfig {
	return ControlPlaneConfig{
		ListenAddr:       ":8080",
		TickInterval:     healthmonitor.DefaultTickInterval,
		HeartbeatTimeout: healthmonitor.DefaultHeartbeatTimeout,
		RuntimeKind:      "fake",
		DockerImage:      "kube-sim-node",
		Policy:           "first-fit",
	}
}

// FromEnv overlays environment variables onto Default().
func FromEnv() ControlPlaneConfig {
	cfg := Default()
	cfg.ListenAddr = getEnv("LISTEN_ADDR", cfg.ListenAddr)
	cfg.TickInterval = getEnvDuration("TICK_INTERVAL", cfg.TickInterval)
	cfg.HeartbeatTimeout = getEnvDuration("HEARTBEAT_TIMEOUT", cfg.HeartbeatTimeout)
	cfg.RuntimeKind = getEnv("RUNTIME_KIND", cfg.RuntimeKind)
	cfg.DockerImage = getEnv("DOCKER_IMAGE", cfg.DockerImage)
	cfg.Policy = getEnv("SCHEDULER_POLICY", cfg.Policy)
	return cfg
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := getEnv(key, "")
	if val == "" {
		return fallback
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
