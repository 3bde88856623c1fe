// Package handler exposes the requirement instance lifecycle over HTTP.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mirroredkube/tokenops-sub001/internal/directory"
	"github.com/mirroredkube/tokenops-sub001/internal/requirement"
	"github.com/mirroredkube/tokenops-sub001/internal/transport/http/shared"
	domainerrors "github.com/mirroredkube/tokenops-sub001/pkg/domain-errors"
	"github.com/mirroredkube/tokenops-sub001/pkg/requestcontext"
)

// Handler serves requirement instance endpoints.
type Handler struct {
	svc    *requirement.Service
	facts  *directory.FactBuilder
	logger *slog.Logger
}

// New wires the requirement handler.
func New(svc *requirement.Service, facts *directory.FactBuilder, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, facts: facts, logger: logger}
}

// Routes mounts the evaluation and listing endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/assets/{id}/requirements/evaluate", h.evaluate)
	r.Get("/assets/{id}/requirements", h.list)
}

// VerifyRoutes mounts the officer verification endpoints. The router places
// these behind authentication so a verifier identity is always present.
func (h *Handler) VerifyRoutes(r chi.Router) {
	r.Post("/requirements/{id}/satisfy", h.satisfy)
	r.Post("/requirements/{id}/exception", h.exception)
}

// evaluate builds facts from the directory and upserts live instances.
func (h *Handler) evaluate(w http.ResponseWriter, r *http.Request) {
	assetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteBadRequest(w, r, "invalid asset id")
		return
	}

	facts, err := h.facts.Build(r.Context(), assetID)
	if err != nil {
		shared.WriteError(w, r, h.logger,
			domainerrors.Wrap(domainerrors.CodeInternal, "build policy facts", err))
		return
	}

	result, err := h.svc.CreateInstances(r.Context(), assetID, facts)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	assetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteBadRequest(w, r, "invalid asset id")
		return
	}

	instances, err := h.svc.List(r.Context(), assetID)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"requirements": instances})
}

func (h *Handler) satisfy(w http.ResponseWriter, r *http.Request) {
	instanceID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteBadRequest(w, r, "invalid requirement instance id")
		return
	}

	inst, err := h.svc.MarkSatisfied(r.Context(), instanceID, requestcontext.VerifierID(r.Context()))
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, inst)
}

type exceptionRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) exception(w http.ResponseWriter, r *http.Request) {
	instanceID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteBadRequest(w, r, "invalid requirement instance id")
		return
	}

	var req exceptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteBadRequest(w, r, "invalid JSON body")
		return
	}

	inst, err := h.svc.MarkException(r.Context(), instanceID, requestcontext.VerifierID(r.Context()), req.Reason)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, inst)
}
