package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/perpintel/engine/internal/absorption"
	"github.com/perpintel/engine/internal/candle"
	"github.com/perpintel/engine/internal/config"
	"github.com/perpintel/engine/internal/replay"
	"github.com/perpintel/engine/internal/state"
)

// PipelineRunner abstracts the pipeline's Run function so Handlers
// never imports package pipeline directly (avoids an import cycle
// with internal/replay's own PipelineFunc plumbing).
type PipelineRunner func(ctx context.Context, symbol string, tf candle.Timeframe, asOfMs int64) (state.MarketState, error)

// Handlers holds every dependency the §6.2 routes dispatch to.
type Handlers struct {
	Run             PipelineRunner
	ConfigStore     *config.Store
	AbsorptionStore absorption.Store
	ReplayStore     replay.Store
	Orchestrator    *replay.Orchestrator
	Batches         *replay.BatchRegistry
	Hub             *Hub
}

// NewHandlers wires Handlers from its dependencies.
func NewHandlers(run PipelineRunner, cfgStore *config.Store, absStore absorption.Store, replayStore replay.Store, orch *replay.Orchestrator, batches *replay.BatchRegistry, hub *Hub) *Handlers {
	return &Handlers{
		Run:             run,
		ConfigStore:     cfgStore,
		AbsorptionStore: absStore,
		ReplayStore:     replayStore,
		Orchestrator:    orch,
		Batches:         batches,
		Hub:             hub,
	}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"json_encoding_failed"}`, http.StatusInternalServerError)
	}
}

// ErrorResponse is the standardized error body every handler returns
// on failure.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"requestId"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	if id == "" {
		id = "unknown"
	}
	h.writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: id,
		Timestamp: time.Now().UTC(),
	})
}

// NotFound handles unmatched routes.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, http.StatusNotFound, "endpoint_not_found", "the requested endpoint does not exist")
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
