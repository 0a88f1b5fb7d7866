package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/perpintel/engine/internal/config"
	"github.com/perpintel/engine/internal/xerr"
)

// GetConfig handles GET /config.
func (h *Handlers) GetConfig(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.ConfigStore.Active())
}

type configWriteRequest struct {
	BasedOnVersion int           `json:"basedOnVersion"`
	Config         config.Config `json:"config"`
	Reason         string        `json:"reason"`
}

// PutConfig handles PUT /config (optimistic concurrency write, §5/§6.2).
func (h *Handlers) PutConfig(w http.ResponseWriter, r *http.Request) {
	var req configWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	updated, err := h.ConfigStore.Update(req.BasedOnVersion, req.Config, req.Reason)
	if err != nil {
		h.writeConfigError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

// ValidateConfig handles POST /config/validate, checking a proposed
// config against both shape and bounded-delta rules without applying it.
func (h *Handlers) ValidateConfig(w http.ResponseWriter, r *http.Request) {
	var proposed config.Config
	if err := json.NewDecoder(r.Body).Decode(&proposed); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	if err := config.Validate(proposed); err != nil {
		h.writeConfigError(w, r, err)
		return
	}
	if err := config.ValidateDelta(h.ConfigStore.Active(), proposed); err != nil {
		h.writeConfigError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// ConfigHistory handles GET /config/history.
func (h *Handlers) ConfigHistory(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.ConfigStore.History())
}

type rollbackRequest struct {
	Version int `json:"version"`
}

// RollbackConfig handles POST /config/rollback.
func (h *Handlers) RollbackConfig(w http.ResponseWriter, r *http.Request) {
	var req rollbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	updated, err := h.ConfigStore.Rollback(req.Version)
	if err != nil {
		h.writeConfigError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

// ExportConfig handles GET /config/export.
func (h *Handlers) ExportConfig(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.ConfigStore.Export())
}

// ImportConfig handles POST /config/import, returning whether the
// payload differs from the active config without applying it (§8 law 7).
func (h *Handlers) ImportConfig(w http.ResponseWriter, r *http.Request) {
	var payload config.Config
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	proposed, changed, err := h.ConfigStore.Import(payload)
	if err != nil {
		h.writeConfigError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"config": proposed, "changed": changed})
}

func (h *Handlers) writeConfigError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest
	code := "validation_failure"
	if xerr.Is(err, xerr.VersionConflict) {
		status = http.StatusConflict
		code = "version_conflict"
	}
	h.writeError(w, r, status, code, err.Error())
}
