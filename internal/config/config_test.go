package config

import (
	"os"
	"testing"
	"time"
)

func TestDefault_MatchesHealthMonitorDefaults(t *testing.T) {
	cfg := Default()
	if cfg.ListenAddr != ":8080" {
		t.Errorf("expected default listen addr :8080, got %s", cfg.ListenAddr)
	}
	if cfg.RuntimeKind != "fake" {
		t.Errorf("expected default runtime kind fake, got %s", cfg.RuntimeKind)
	}
	if cfg.Policy != "first-fit" {
		t.Errorf("expected default policy first-fit, got %s", cfg.Policy)
	}
	if cfg.TickInterval != 5*time.Second {
		t.Errorf("expected default tick interval 5s, got %s", cfg.TickInterval)
	}
	if cfg.HeartbeatTimeout != 15*time.Second {
		t.Errorf("expected default heartbeat timeout 15s, got %s", cfg.HeartbeatTimeout)
	}
}

func TestFromEnv_OverridesDefaults(t *testing.T) {
	os.Setenv("LISTEN_ADDR", ":9090")
	os.Setenv("RUNTIME_KIND", "docker")
	os.Setenv("HEARTBEAT_TIMEOUT", "30s")
	defer func() {
		os.Unsetenv("LISTEN_ADDR")
		os.Unsetenv("RUNTIME_KIND")
		os.Unsetenv("HEARTBEAT_TIMEOUT")
	}()

	cfg := FromEnv()
	if cfg.ListenAddr != ":9090" {
		t.Errorf("expected LISTEN_ADDR override, got %s", cfg.ListenAddr)
	}
	if cfg.RuntimeKind != "docker" {
		t.Errorf("expected RUNTIME_KIND override, got %s", cfg.RuntimeKind)
	}
	if cfg.HeartbeatTimeout != 30*time.Second {
		t.Errorf("expected HEARTBEAT_TIMEOUT override, got %s", cfg.HeartbeatTimeout)
	}
}

func TestFromEnv_AcceptsBareSecondsInteger(t *testing.T) {
	os.Setenv("TICK_INTERVAL", "10")
	defer os.Unsetenv("TICK_INTERVAL")

	cfg := FromEnv()
	if cfg.TickInterval != 10*time.Second {
		t.Errorf("expected bare integer TICK_INTERVAL parsed as seconds, got %s", cfg.TickInterval)
	}
}
