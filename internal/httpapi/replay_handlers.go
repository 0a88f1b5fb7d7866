package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/perpintel/engine/internal/candle"
	"github.com/perpintel/engine/internal/outcome"
	"github.com/perpintel/engine/internal/replay"
	"github.com/perpintel/engine/internal/state"
	"github.com/perpintel/engine/internal/xerr"
)

type replaySingleRequest struct {
	Symbol    string           `json:"symbol"`
	Timeframe candle.Timeframe `json:"timeframe"`
	AsOfMs    int64            `json:"asOfMs"`
}

// ReplaySingle handles POST /replay/single: one pipeline cycle pinned
// to a past as-of timestamp, bypassing the batch machinery entirely.
func (h *Handlers) ReplaySingle(w http.ResponseWriter, r *http.Request) {
	var req replaySingleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if req.Timeframe == "" {
		req.Timeframe = candle.TF1h
	}
	ms, err := h.Run(r.Context(), req.Symbol, req.Timeframe, req.AsOfMs)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "pipeline_error", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, ms)
}

type replayBatchRequest struct {
	Symbol             string            `json:"symbol"`
	Timeframe          candle.Timeframe  `json:"timeframe"`
	StartTime          int64             `json:"startTime"`
	EndTime            int64             `json:"endTime"`
	StepSize           candle.Timeframe  `json:"stepSize"`
	MaxSamples         int               `json:"maxSamples"`
	Horizons           []outcome.Horizon `json:"horizons"`
	SkipDuplicateCheck bool              `json:"skipDuplicateCheck"`
}

type replayBatchResponse struct {
	BatchID string `json:"batchId"`
	Status  string `json:"status"`
	Samples int    `json:"samples"`
}

// ReplayBatch handles POST /replay/batch: builds a batch per §4.8's
// protocol and starts it in the background, returning immediately
// with the batch id and pre-computed sample count; callers poll
// /replay/status/:id for progress.
func (h *Handlers) ReplayBatch(w http.ResponseWriter, r *http.Request) {
	var req replayBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	tf := req.Timeframe
	if tf == "" {
		tf = candle.TF1h
	}

	id := uuid.New().String()
	b, err := replay.NewBatch(id, replay.Request{
		Symbol:             req.Symbol,
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		StepSize:           req.StepSize,
		MaxSamples:         req.MaxSamples,
		Horizons:           req.Horizons,
		SkipDuplicateCheck: req.SkipDuplicateCheck,
	}, h.ConfigStore.Active().Version)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_batch", err.Error())
		return
	}
	h.Batches.Put(b)
	go h.runBatchAsync(b, req.Symbol, tf)

	h.writeJSON(w, http.StatusAccepted, replayBatchResponse{
		BatchID: b.ID,
		Status:  string(b.Status),
		Samples: len(b.Timestamps),
	})
}

// runBatchAsync drives one batch to completion or pause, detached from
// the triggering HTTP request's context (§5: batches outlive a single
// request; pause/resume operate on the same *Batch across calls).
func (h *Handlers) runBatchAsync(b *replay.Batch, symbol string, tf candle.Timeframe) {
	run := func(ctx context.Context, asOfMs int64) (state.MarketState, error) {
		return h.Run(ctx, symbol, tf, asOfMs)
	}
	orch := replay.NewOrchestrator(run, h.ReplayStore)
	_ = orch.RunBatch(context.Background(), b)
}

// ReplayStatus handles GET /replay/status/:id.
func (h *Handlers) ReplayStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	b, err := h.Batches.Get(id)
	if err != nil {
		h.writeError(w, r, http.StatusNotFound, "unknown_batch", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":        b.ID,
		"status":    b.Status,
		"nextIndex": b.NextIndex,
		"total":     len(b.Timestamps),
		"failures":  b.Failures,
	})
}

// ReplayResults handles GET /replay/results/:id.
func (h *Handlers) ReplayResults(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	results, err := h.resultsFor(r.Context(), id)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "results_error", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, results)
}

func (h *Handlers) resultsFor(ctx context.Context, batchID string) (interface{}, error) {
	rs, ok := h.ReplayStore.(replay.ResultsStore)
	if !ok {
		return nil, xerr.New(xerr.Fatal, "replay store does not support results listing")
	}
	return rs.Results(ctx, batchID)
}

// ReplayPause handles POST /replay/pause/:id.
func (h *Handlers) ReplayPause(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	b, err := h.Batches.Get(id)
	if err != nil {
		h.writeError(w, r, http.StatusNotFound, "unknown_batch", err.Error())
		return
	}
	b.Pause()
	h.writeJSON(w, http.StatusOK, map[string]string{"status": string(b.Status)})
}

// ReplayResume handles POST /replay/resume/:id.
func (h *Handlers) ReplayResume(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	b, err := h.Batches.Get(id)
	if err != nil {
		h.writeError(w, r, http.StatusNotFound, "unknown_batch", err.Error())
		return
	}
	b.Resume()
	tf := b.Request.StepSize
	if tf == "" {
		tf = candle.TF1h
	}
	go h.runBatchAsync(b, b.Request.Symbol, tf)
	h.writeJSON(w, http.StatusOK, map[string]string{"status": string(b.Status)})
}

// ReplayDeleteBatch handles DELETE /replay/batch/:id: drops the live
// handle from the registry. The durable replay_states rows persist —
// this only forgets the in-memory lifecycle handle.
func (h *Handlers) ReplayDeleteBatch(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	h.Batches.Delete(id)
	w.WriteHeader(http.StatusNoContent)
}

type replayLabelRequest struct {
	BatchID string `json:"batchId"`
}

// ReplayLabel handles POST /replay/label: returns every non-failed
// state from a batch so a caller (or the CLI) can run OutcomeLabeler
// against its own future-price source; labeling itself stays outside
// the HTTP layer per §6.1's data-provider boundary.
func (h *Handlers) ReplayLabel(w http.ResponseWriter, r *http.Request) {
	var req replayLabelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	results, err := h.resultsFor(r.Context(), req.BatchID)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "label_error", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"batchId": req.BatchID, "states": results})
}

// ReplayScoreboard handles GET /replay/scoreboard?batchId=...: builds
// the confidence-decile and per-regime attribution rollup (§4.8 via
// internal/replay.BuildScoreboard) over a completed batch's states.
func (h *Handlers) ReplayScoreboard(w http.ResponseWriter, r *http.Request) {
	batchID := r.URL.Query().Get("batchId")
	rs, ok := h.ReplayStore.(replay.ResultsStore)
	if !ok {
		h.writeError(w, r, http.StatusInternalServerError, "unsupported", "replay store does not support scoreboard queries")
		return
	}
	states, err := rs.Results(r.Context(), batchID)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "results_error", err.Error())
		return
	}
	samples := make([]replay.LabeledSample, 0, len(states))
	for _, s := range states {
		samples = append(samples, replay.LabeledSample{State: s})
	}
	h.writeJSON(w, http.StatusOK, replay.BuildScoreboard(samples))
}
