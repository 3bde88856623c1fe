// Package handler exposes issuance submission and the frozen compliance
// artifacts (snapshot and manifest) over HTTP.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mirroredkube/tokenops-sub001/internal/issuance"
	"github.com/mirroredkube/tokenops-sub001/internal/transport/http/shared"
)

// Handler serves issuance endpoints.
type Handler struct {
	svc    *issuance.Service
	logger *slog.Logger
}

// New wires the issuance handler.
func New(svc *issuance.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the issuance endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/issuances", h.submit)
	r.Get("/issuances/{id}", h.get)
	r.Get("/issuances/{id}/snapshot", h.snapshot)
	r.Get("/issuances/{id}/manifest", h.manifest)
	r.Get("/assets/{id}/issuances", h.listByAsset)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req issuance.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteBadRequest(w, r, "invalid JSON body")
		return
	}

	iss, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, iss)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteBadRequest(w, r, "invalid issuance id")
		return
	}

	iss, err := h.svc.Get(r.Context(), id)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, iss)
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteBadRequest(w, r, "invalid issuance id")
		return
	}

	rows, err := h.svc.GetSnapshot(r.Context(), id)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"issuanceId": id, "requirements": rows})
}

func (h *Handler) manifest(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteBadRequest(w, r, "invalid issuance id")
		return
	}

	record, err := h.svc.GetManifest(r.Context(), id)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) listByAsset(w http.ResponseWriter, r *http.Request) {
	assetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteBadRequest(w, r, "invalid asset id")
		return
	}

	out, err := h.svc.ListByAsset(r.Context(), assetID)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"issuances": out})
}
