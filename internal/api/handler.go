package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/finops-tools/vm-consolidator/internal/allocator"
	"github.com/finops-tools/vm-consolidator/internal/solver"
	"github.com/finops-tools/vm-consolidator/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const defaultSolveTimeout = 30 * time.Second

// Handler wires planner and storage dependencies into HTTP handlers.
type Handler struct {
	planner allocator.Planner
	storage storage.Storage

	clock         func() time.Time
	solveTimeout  time.Duration
	defaultGrowth *float64

	mu             sync.RWMutex
	poolsUpdatedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithSolveTimeout bounds the time budget handed to the solver per request.
func WithSolveTimeout(timeout time.Duration) HandlerOption {
	return func(h *Handler) {
		if timeout > 0 {
			h.solveTimeout = timeout
		}
	}
}

// WithDefaultGrowth sets the growth headroom applied when a request does
// not carry its own growth percent. Nil means no adjustment.
func WithDefaultGrowth(percent *float64) HandlerOption {
	return func(h *Handler) {
		h.defaultGrowth = percent
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(planner allocator.Planner, store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		planner:      planner,
		storage:      store,
		solveTimeout: defaultSolveTimeout,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.poolsUpdatedAt = h.clock()
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetPools(w http.ResponseWriter, r *http.Request) {
	_ = r
	pools, err := h.storage.GetPools()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := poolsResponse{
		Pools:     poolPayloads(pools),
		UpdatedAt: h.currentPoolsUpdatedAt(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePutPools(w http.ResponseWriter, r *http.Request) {
	var req poolsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if len(req.Pools) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid pool catalog", "pools must contain at least one entry")
		return
	}

	if err := h.storage.SetPools(poolsFromPayload(req.Pools)); err != nil {
		if errors.Is(err, storage.ErrInvalidPools) {
			writeError(w, http.StatusBadRequest, "Invalid pool catalog", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	h.markPoolsUpdated()

	pools, err := h.storage.GetPools()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := poolsResponse{
		Pools:     poolPayloads(pools),
		UpdatedAt: h.currentPoolsUpdatedAt(),
		Message:   "Pool catalog updated successfully",
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleAllocate(w http.ResponseWriter, r *http.Request) {
	var req allocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if len(req.Workloads) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid request", "workloads must contain at least one entry")
		return
	}

	var pools []allocator.Pool
	if len(req.Pools) > 0 {
		pools = poolsFromPayload(req.Pools)
	} else {
		var err error
		pools, err = h.storage.GetPools()
		if err != nil {
			writeInternalError(w, err)
			return
		}
	}

	workloads := make([]allocator.Workload, 0, len(req.Workloads))
	for _, wl := range req.Workloads {
		workloads = append(workloads, allocator.Workload{Name: wl.Name, Size: wl.Size})
	}

	growth := req.GrowthPercent
	if growth == nil {
		growth = h.defaultGrowth
	}

	inst, err := allocator.NewInstance(pools, workloads, growth)
	if err != nil {
		switch {
		case errors.Is(err, allocator.ErrInvalidGrowth):
			writeError(w, http.StatusBadRequest, "Invalid growth percent", err.Error())
		case errors.Is(err, allocator.ErrEmptyInstance), errors.Is(err, allocator.ErrInvalidData):
			writeError(w, http.StatusBadRequest, "Invalid instance data", err.Error())
		default:
			writeInternalError(w, err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.solveTimeout)
	defer cancel()

	start := time.Now()
	report, err := h.planner.Plan(ctx, inst)
	elapsed := time.Since(start)

	if err != nil {
		writeInternalError(w, err)
		return
	}

	switch report.Status {
	case solver.StatusOptimal, solver.StatusFeasible:
		writeJSON(w, http.StatusOK, allocateResponseFromReport(report, elapsed))
	case solver.StatusInfeasible:
		suggestion := "Add pools, increase capacities, or reduce workload sizes and growth headroom"
		writeError(w, http.StatusUnprocessableEntity, "No feasible allocation", "status: "+report.Status.String(), suggestion)
	case solver.StatusTimeout:
		writeError(w, http.StatusGatewayTimeout, "Solver timed out", "no allocation found within the time budget")
	default:
		writeError(w, http.StatusInternalServerError, "Solver failed", "status: "+report.Status.String())
	}
}

func (h *Handler) currentPoolsUpdatedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.poolsUpdatedAt
}

func (h *Handler) markPoolsUpdated() {
	h.mu.Lock()
	h.poolsUpdatedAt = h.clock()
	h.mu.Unlock()
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type poolPayload struct {
	Name     string  `json:"name"`
	Capacity float64 `json:"capacity"`
	Cost     float64 `json:"cost"`
}

type poolsRequest struct {
	Pools []poolPayload `json:"pools"`
}

type poolsResponse struct {
	Pools     []poolPayload `json:"pools"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Message   string        `json:"message,omitempty"`
}

type workloadPayload struct {
	Name string  `json:"name"`
	Size float64 `json:"size"`
}

type allocateRequest struct {
	Workloads     []workloadPayload `json:"workloads"`
	GrowthPercent *float64          `json:"growthPercent"`
	Pools         []poolPayload     `json:"pools"`
}

type poolAllocationPayload struct {
	Name        string   `json:"name"`
	Capacity    float64  `json:"capacity"`
	Cost        float64  `json:"cost"`
	Load        float64  `json:"load"`
	Utilization float64  `json:"utilization"`
	Workloads   []string `json:"workloads"`
}

type allocateResponse struct {
	Status         string                  `json:"status"`
	BaselineCost   float64                 `json:"baselineCost"`
	SolutionCost   float64                 `json:"solutionCost"`
	Savings        float64                 `json:"savings"`
	SavingsPercent float64                 `json:"savingsPercent"`
	Pools          []poolAllocationPayload `json:"pools"`
	SolveTimeMs    int64                   `json:"solveTimeMs"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func poolPayloads(pools []allocator.Pool) []poolPayload {
	out := make([]poolPayload, 0, len(pools))
	for _, p := range pools {
		out = append(out, poolPayload{Name: p.Name, Capacity: p.Capacity, Cost: p.Cost})
	}
	return out
}

func poolsFromPayload(payloads []poolPayload) []allocator.Pool {
	out := make([]allocator.Pool, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, allocator.Pool{Name: p.Name, Capacity: p.Capacity, Cost: p.Cost})
	}
	return out
}

func allocateResponseFromReport(report allocator.Report, elapsed time.Duration) allocateResponse {
	resp := allocateResponse{
		Status:         report.Status.String(),
		BaselineCost:   report.BaselineCost,
		SolutionCost:   report.SolutionCost,
		Savings:        report.Savings,
		SavingsPercent: report.SavingsPercent,
		Pools:          make([]poolAllocationPayload, 0, len(report.Allocations)),
		SolveTimeMs:    elapsed.Milliseconds(),
	}
	for _, alloc := range report.Allocations {
		resp.Pools = append(resp.Pools, poolAllocationPayload{
			Name:        alloc.Name,
			Capacity:    alloc.Capacity,
			Cost:        alloc.Cost,
			Load:        alloc.Load,
			Utilization: alloc.Utilization,
			Workloads:   alloc.Workloads,
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
