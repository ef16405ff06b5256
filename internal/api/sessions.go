package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/inventura/internal/model"
	"github.com/erazemk/inventura/internal/store"
)

// SessionsHandler handles inventory session endpoints.
type SessionsHandler struct {
	DB *sql.DB
}

type createSessionRequest struct {
	Description     string   `json:"description"`
	DeviceTypeCodes []string `json:"device_type_codes"`
}

type recordResultRequest struct {
	AssetID            int64  `json:"asset_id" validate:"required,gt=0"`
	Found              *bool  `json:"found" validate:"required"`
	ActualLocationType string `json:"actual_location_type" validate:"omitempty,oneof=employee warehouse"`
	ActualLocationID   *int64 `json:"actual_location_id" validate:"omitempty,gt=0"`
}

// List handles GET /api/inventory/sessions.
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := store.ListSessions(r.Context(), h.DB)
	if err != nil {
		writeStoreError(w, err, "list sessions")
		return
	}
	if sessions == nil {
		sessions = []model.InventorySession{}
	}
	jsonResponse(w, http.StatusOK, sessions)
}

// Create handles POST /api/inventory/sessions. An empty device type list
// audits every asset.
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := store.CreateSession(r.Context(), h.DB, req.Description, req.DeviceTypeCodes)
	if err != nil {
		writeStoreError(w, err, "create session")
		return
	}

	slog.Info("inventory session started", "user", username(r),
		"session_id", session.ID, "device_types", session.DeviceTypeCodes)
	jsonResponse(w, http.StatusCreated, session)
}

// Get handles GET /api/inventory/sessions/{id}.
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "session")
	if !ok {
		return
	}

	session, err := store.GetSession(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, err, "get session")
		return
	}
	if session == nil {
		jsonError(w, http.StatusNotFound, "session not found")
		return
	}
	jsonResponse(w, http.StatusOK, session)
}

// Complete handles POST /api/inventory/sessions/{id}/complete.
func (h *SessionsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "session")
	if !ok {
		return
	}

	session, err := store.CompleteSession(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, err, "complete session")
		return
	}

	slog.Info("inventory session completed", "user", username(r), "session_id", session.ID)
	jsonResponse(w, http.StatusOK, session)
}

// Delete handles DELETE /api/inventory/sessions/{id}.
func (h *SessionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "session")
	if !ok {
		return
	}

	if err := store.DeleteSession(r.Context(), h.DB, id); err != nil {
		writeStoreError(w, err, "delete session")
		return
	}

	slog.Info("inventory session deleted", "user", username(r), "session_id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "session deleted"})
}

// RecordResult handles POST /api/inventory/sessions/{id}/results.
func (h *SessionsHandler) RecordResult(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "session")
	if !ok {
		return
	}

	var req recordResultRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := store.RecordResult(r.Context(), h.DB, id, model.NewResult{
		AssetID:            req.AssetID,
		Found:              *req.Found,
		ActualLocationType: req.ActualLocationType,
		ActualLocationID:   req.ActualLocationID,
		ConfirmedBy:        userID(r),
	})
	if err != nil {
		writeStoreError(w, err, "record result")
		return
	}

	slog.Info("inventory result recorded", "user", username(r),
		"session_id", id, "asset_id", result.AssetID, "found", result.Found)
	jsonResponse(w, http.StatusCreated, result)
}

// Results handles GET /api/inventory/sessions/{id}/results.
func (h *SessionsHandler) Results(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "session")
	if !ok {
		return
	}

	results, err := store.CheckedItems(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, err, "list results")
		return
	}
	if results == nil {
		results = []model.InventoryResult{}
	}
	jsonResponse(w, http.StatusOK, results)
}

// Remaining handles GET /api/inventory/sessions/{id}/remaining.
func (h *SessionsHandler) Remaining(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "session")
	if !ok {
		return
	}

	assets, err := store.RemainingAssets(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, err, "list remaining assets")
		return
	}
	if assets == nil {
		assets = []model.Asset{}
	}
	jsonResponse(w, http.StatusOK, assets)
}

// Progress handles GET /api/inventory/sessions/{id}/progress.
func (h *SessionsHandler) Progress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "session")
	if !ok {
		return
	}

	progress, err := store.SessionProgress(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, err, "get progress")
		return
	}
	jsonResponse(w, http.StatusOK, progress)
}
