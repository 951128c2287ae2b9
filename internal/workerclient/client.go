// Package workerclient is the reference worker-side heartbeat loop: a
// client that periodically reports liveness and capacity to the control
// plane and retries on failure. It is runnable standalone (cmd/worker) or
// driven directly by tests against a stub HTTP server.
package workerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"golang.org/x/time/rate"
	"k8s.io/klog/v2"
)

// HeartbeatInterval is how often the worker sends a heartbeat.
const HeartbeatInterval = 5 * time.Second

// MaxAttemptsPerHeartbeat is how many attempts, in total, a single heartbeat
// gets before being counted as a failure cycle.
const MaxAttemptsPerHeartbeat = 3

// RetryBackoff is the fixed delay between heartbeat attempts.
const RetryBackoff = 1 * time.Second

// MaxConsecutiveFailureCycles is how many full heartbeat failure cycles in
// a row trigger worker shutdown.
const MaxConsecutiveFailureCycles = 3

// Config configures a worker client.
type Config struct {
	NodeID    string
	APIServer string
	CPUCores  int
}

// Client is the worker-side heartbeat loop. It holds the worker's local
// view of its pod set, which is overwritten by the control plane's
// authoritative response on every successful heartbeat.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter

	mu   sync.Mutex
	pods []string
}

// New creates a worker client for cfg.
func New(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		// Defensive cap alongside the fixed ticker: never send more than
		// one heartbeat attempt burst per second even if misconfigured.
		limiter: rate.NewLimiter(rate.Every(time.Second), MaxAttemptsPerHeartbeat),
	}
}

// Pods returns the worker's current locally-known pod set.
func (c *Client) Pods() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.pods))
	copy(out, c.pods)
	return out
}

// Run blocks, heartbeating every HeartbeatInterval until ctx is cancelled
// or MaxConsecutiveFailureCycles consecutive full-failure cycles occur.
func (c *Client) Run(ctx context.Context) error {
	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	consecutiveFailures := 0

	for {
		if err := c.heartbeatOnce(ctx); err != nil {
			consecutiveFailures++
			klog.ErrorS(err, "heartbeat cycle failed", "node", c.cfg.NodeID, "consecutiveFailures", consecutiveFailures)
			if consecutiveFailures >= MaxConsecutiveFailureCycles {
				return fmt.Errorf("too many consecutive heartbeat failures (%d), shutting down", consecutiveFailures)
			}
		} else {
			consecutiveFailures = 0
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type heartbeatRequest struct {
	NodeID   string   `json:"nodeId"`
	Status   string   `json:"status"`
	Pods     []string `json:"pods"`
	CPUCores int      `json:"cpuCores"`
}

type heartbeatResponse struct {
	Message string   `json:"message"`
	Pods    []string `json:"pods"`
}

// heartbeatOnce sends one heartbeat, making up to MaxAttemptsPerHeartbeat
// attempts with RetryBackoff between them.
func (c *Client) heartbeatOnce(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body := heartbeatRequest{
		NodeID:   c.cfg.NodeID,
		Status:   "Healthy",
		Pods:     c.Pods(),
		CPUCores: c.cfg.CPUCores,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal heartbeat: %w", err)
	}

	var resp heartbeatResponse
	err = retry.Do(
		func() error {
			return c.send(ctx, payload, &resp)
		},
		retry.Attempts(MaxAttemptsPerHeartbeat),
		retry.Delay(RetryBackoff),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("all heartbeat attempts failed for node %s: %w", c.cfg.NodeID, err)
	}

	c.mu.Lock()
	c.pods = resp.Pods
	c.mu.Unlock()

	klog.InfoS("heartbeat successful", "node", c.cfg.NodeID, "pods", resp.Pods)
	return nil
}

func (c *Client) send(ctx context.Context, payload []byte, out *heartbeatResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIServer+"/heartbeat", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("heartbeat rejected with status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
