package httpapi

import (
	"net/http"
	"strings"

	"github.com/perpintel/engine/internal/candle"
)

// Analyze handles GET /analyze?symbol=...&timeframe=...&asOfMs=... (§6.2).
// It reads symbol (required), timeframe (default 1h) and asOfMs
// (default 0) and passes them to the runner closure; demo and refresh
// query parameters are not read. The handler stays a thin translation
// layer.
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.URL.Query().Get("symbol"))
	if symbol == "" {
		h.writeError(w, r, http.StatusBadRequest, "missing_symbol", "symbol query parameter is required")
		return
	}

	tf := candle.Timeframe(r.URL.Query().Get("timeframe"))
	if tf == "" {
		tf = candle.TF1h
	}
	if !tf.Valid() {
		h.writeError(w, r, http.StatusBadRequest, "invalid_timeframe", "unknown timeframe")
		return
	}

	asOfMs := int64(queryInt(r, "asOfMs", 0))

	ms, err := h.Run(r.Context(), symbol, tf, asOfMs)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "pipeline_error", err.Error())
		return
	}

	if h.Hub != nil {
		h.Hub.Broadcast(ms)
	}

	h.writeJSON(w, http.StatusOK, ms)
}
