// Package api implements ControlPlaneAPI: thin HTTP handlers composing
// ClusterState, Scheduler, and NodeRuntime over a plain http.ServeMux,
// with every handler wrapped for request instrumentation and JSON
// request/response bodies.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"

	"kubesim/internal/clock"
	"kubesim/internal/clustererrors"
	"kubesim/internal/clusterstore"
	"kubesim/internal/metrics"
	"kubesim/internal/runtime"
	"kubesim/internal/scheduler"
)

// Server wires the control plane's HTTP surface to its core components.
type Server struct {
	store       *clusterstore.Store
	sched       *scheduler.Scheduler
	runtime     runtime.NodeRuntime
	clk         clock.Clock
	apiEndpoint string
	mux         *http.ServeMux
}

// New builds a Server. apiEndpoint is the base URL advertised to launched
// workers (e.g. "http://10.0.0.5:8080") so they know where to heartbeat.
func New(store *clusterstore.Store, sched *scheduler.Scheduler, nodeRuntime runtime.NodeRuntime, clk clock.Clock, apiEndpoint string) *Server {
	s := &Server{
		store:       store,
		sched:       sched,
		runtime:     nodeRuntime,
		clk:         clk,
		apiEndpoint: apiEndpoint,
		mux:         http.NewServeMux(),
	}
	s.routes()
	return s
}

// Handler returns the HTTP handler to pass to http.Server / httptest.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) routes() {
	s.mux.HandleFunc("/nodes", metrics.Instrument("nodes", s.handleNodesCollection))
	s.mux.HandleFunc("/nodes/", metrics.Instrument("node", s.handleNodesItem))
	s.mux.HandleFunc("/pods", metrics.Instrument("pods", s.handlePodsCollection))
	s.mux.HandleFunc("/pods/", metrics.Instrument("pod", s.handlePodsItem))
	s.mux.HandleFunc("/heartbeat", metrics.Instrument("heartbeat", s.handleHeartbeat))
	s.mux.Handle("/metrics", promhttp.Handler())
}

// --- wire payloads -----------------------------------------------------

type createNodeRequest struct {
	CPUCores int `json:"cpuCores"`
}

type launchPodRequest struct {
	CPURequired int `json:"cpuRequired"`
}

type heartbeatRequest struct {
	NodeID   string   `json:"nodeId"`
	CPUCores int      `json:"cpuCores"`
	Pods     []string `json:"pods"`
	Status   string   `json:"status"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type heartbeatResponse struct {
	Message string   `json:"message"`
	Pods    []string `json:"pods"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusForKind maps a clustererrors.Kind to its HTTP status.
func statusForKind(kind clustererrors.Kind) int {
	switch kind {
	case clustererrors.InvalidArgument, clustererrors.NoCapacity:
		return http.StatusBadRequest
	case clustererrors.NotFound:
		return http.StatusNotFound
	case clustererrors.Conflict:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeClusterError(w http.ResponseWriter, err error) {
	kind := clustererrors.KindOf(err)
	writeError(w, statusForKind(kind), err.Error())
}

// --- /nodes --------------------------------------------------------------

func (s *Server) handleNodesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.addNode(w, r)
	case http.MethodGet:
		s.listNodes(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleNodesItem dispatches /nodes/{id} and /nodes/{id}/stop.
func (s *Server) handleNodesItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/nodes/")
	rest = strings.Trim(rest, "/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && parts[0] != "" && r.Method == http.MethodDelete:
		s.deleteNode(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "stop" && r.Method == http.MethodPost:
		s.stopNode(w, r, parts[0])
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) addNode(w http.ResponseWriter, r *http.Request) {
	var req createNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	nodeID, err := s.store.CreateNode(req.CPUCores, s.clk.Now())
	if err != nil {
		s.writeClusterError(w, err)
		return
	}

	ctx := r.Context()
	if err := s.runtime.Launch(ctx, nodeID, req.CPUCores, s.apiEndpoint); err != nil {
		klog.ErrorS(err, "launch failed, rolling back node record", "node", nodeID)
		_ = s.store.DeleteNode(nodeID, s.clk.Now())
		writeError(w, http.StatusInternalServerError, "failed to launch node")
		return
	}

	result, err := s.runtime.Inspect(ctx, nodeID)
	if err != nil || !result.Running {
		klog.InfoS("post-launch verification failed, rolling back node record", "node", nodeID)
		_ = s.store.DeleteNode(nodeID, s.clk.Now())
		writeError(w, http.StatusInternalServerError, "node failed post-launch verification")
		return
	}

	metrics.NodesGauge.Inc()
	writeJSON(w, http.StatusCreated, messageResponse{
		Message: "Node " + nodeID + " added with " + strconv.Itoa(req.CPUCores) + " CPU cores",
	})
}

func (s *Server) listNodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListNodes())
}

func (s *Server) stopNode(w http.ResponseWriter, r *http.Request, nodeID string) {
	orphans, err := s.store.StopNode(nodeID)
	if err != nil {
		s.writeClusterError(w, err)
		return
	}

	if err := s.runtime.Stop(r.Context(), nodeID); err != nil {
		klog.ErrorS(err, "runtime stop failed; node stays marked Stopped", "node", nodeID)
		s.sched.Reschedule(nodeID, orphans)
		writeError(w, http.StatusInternalServerError, "failed to stop node runtime")
		return
	}

	s.sched.Reschedule(nodeID, orphans)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Node " + nodeID + " stopped"})
}

func (s *Server) deleteNode(w http.ResponseWriter, r *http.Request, nodeID string) {
	if err := s.store.DeleteNode(nodeID, s.clk.Now()); err != nil {
		s.writeClusterError(w, err)
		return
	}

	if err := s.runtime.Remove(r.Context(), nodeID); err != nil {
		klog.ErrorS(err, "runtime remove failed after node record dropped", "node", nodeID)
	}

	metrics.NodesGauge.Dec()
	writeJSON(w, http.StatusOK, messageResponse{Message: "Node " + nodeID + " deleted"})
}

// --- /pods --------------------------------------------------------------

func (s *Server) handlePodsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.launchPod(w, r)
	case http.MethodGet:
		s.listPods(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handlePodsItem(w http.ResponseWriter, r *http.Request) {
	podID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/pods/"), "/")
	if podID == "" || r.Method != http.MethodDelete {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.deletePod(w, r, podID)
}

func (s *Server) launchPod(w http.ResponseWriter, r *http.Request) {
	var req launchPodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	podID, nodeID, err := s.sched.Place(req.CPURequired)
	if err != nil {
		s.writeClusterError(w, err)
		return
	}

	metrics.PodsGauge.Inc()
	writeJSON(w, http.StatusCreated, messageResponse{
		Message: "Pod " + podID + " launched on node " + nodeID,
	})
}

func (s *Server) listPods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListPods())
}

func (s *Server) deletePod(w http.ResponseWriter, r *http.Request, podID string) {
	pod, ok := s.store.GetPod(podID)
	if !ok {
		writeError(w, http.StatusNotFound, "pod not found: "+podID)
		return
	}

	if pod.Status == clusterstore.PodRunning {
		if err := s.store.RemovePodFromNode(podID, pod.NodeID); err != nil {
			s.writeClusterError(w, err)
			return
		}
	}
	if err := s.store.DeletePod(podID); err != nil {
		s.writeClusterError(w, err)
		return
	}

	metrics.PodsGauge.Dec()
	writeJSON(w, http.StatusOK, messageResponse{Message: "Pod " + podID + " deleted"})
}

// --- /heartbeat -----------------------------------------------------------

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req heartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pods, err := s.store.RecordHeartbeat(req.NodeID, req.CPUCores, s.clk.Now())
	if err != nil {
		s.writeClusterError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, heartbeatResponse{Message: "Heartbeat received", Pods: pods})
}

