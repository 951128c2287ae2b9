// Command kubesimctl is the operator CLI: a thin HTTP client against the
// control plane's wire contract, dispatching subcommands directly off
// os.Args[1] rather than pulling in a flag-parsing package for a handful
// of verbs.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
)

const defaultAPIBaseURL = "http://localhost:8080"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	baseURL := os.Getenv("KUBESIM_API")
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	app := &app{baseURL: baseURL, client: &http.Client{}}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "add-node":
		err = app.addNode(args)
	case "stop-node":
		err = app.stopNode(args)
	case "delete-node":
		err = app.deleteNode(args)
	case "launch-pod":
		err = app.launchPod(args)
	case "list-nodes":
		err = app.listNodes(args)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("kubesimctl: operate a kube-sim control plane")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  kubesimctl <command> [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  add-node <cpuCores>      Add a new node with the given CPU capacity")
	fmt.Println("  stop-node <nodeID>       Stop a node and reschedule its pods")
	fmt.Println("  delete-node <nodeID>     Delete a node unconditionally")
	fmt.Println("  launch-pod <cpuRequired> Launch a pod with the given CPU requirement")
	fmt.Println("  list-nodes               List all nodes with their health status")
}

type app struct {
	baseURL string
	client  *http.Client
}

type nodeView struct {
	ID             string   `json:"id"`
	CPUCores       int      `json:"cpu_cores"`
	AvailableCPU   int      `json:"available_cpu"`
	Pods           []string `json:"pods"`
	HealthStatus   string   `json:"health_status"`
	HeartbeatCount int64    `json:"heartbeat_count"`
	IsRunning      bool     `json:"is_running"`
}

func (a *app) addNode(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: add-node <cpuCores>")
	}
	cores, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid cpuCores %q: %w", args[0], err)
	}

	resp, err := a.postJSON("/nodes", map[string]int{"cpuCores": cores})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return a.printOrFail(resp, http.StatusCreated)
}

func (a *app) stopNode(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: stop-node <nodeID>")
	}
	resp, err := a.client.Post(a.baseURL+"/nodes/"+args[0]+"/stop", "application/json", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return a.printOrFail(resp, http.StatusOK)
}

func (a *app) deleteNode(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: delete-node <nodeID>")
	}
	req, err := http.NewRequest(http.MethodDelete, a.baseURL+"/nodes/"+args[0], nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return a.printOrFail(resp, http.StatusOK)
}

func (a *app) launchPod(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: launch-pod <cpuRequired>")
	}
	cpu, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid cpuRequired %q: %w", args[0], err)
	}

	resp, err := a.postJSON("/pods", map[string]int{"cpuRequired": cpu})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return a.printOrFail(resp, http.StatusCreated)
}

func (a *app) listNodes(_ []string) error {
	resp, err := a.client.Get(a.baseURL + "/nodes")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return a.failFromBody(resp)
	}

	var nodes map[string]nodeView
	if err := json.NewDecoder(resp.Body).Decode(&nodes); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		n := nodes[id]
		fmt.Printf("Node %s: CPU %d/%d, Status: %s, Pods: %v\n", id, n.AvailableCPU, n.CPUCores, n.HealthStatus, n.Pods)
	}
	return nil
}

func (a *app) postJSON(path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return a.client.Post(a.baseURL+path, "application/json", bytes.NewReader(payload))
}

func (a *app) printOrFail(resp *http.Response, wantStatus int) error {
	if resp.StatusCode != wantStatus {
		return a.failFromBody(resp)
	}
	var msg map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&msg); err == nil {
		fmt.Println(msg["message"])
	}
	return nil
}

func (a *app) failFromBody(resp *http.Response) error {
	var body map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return fmt.Errorf("status %d: %s", resp.StatusCode, body["error"])
}
