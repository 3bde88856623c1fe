// Package handler exposes the policy console: stateless evaluation, the
// regime catalog, and per-asset enforcement flags.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mirroredkube/tokenops-sub001/internal/directory"
	"github.com/mirroredkube/tokenops-sub001/internal/policy"
	"github.com/mirroredkube/tokenops-sub001/internal/policy/catalog"
	"github.com/mirroredkube/tokenops-sub001/internal/transport/http/shared"
	domainerrors "github.com/mirroredkube/tokenops-sub001/pkg/domain-errors"
)

// LiveEvaluator evaluates facts against an asset's live instance statuses.
type LiveEvaluator interface {
	Evaluate(ctx context.Context, assetID uuid.UUID, facts policy.Facts) (*policy.EvaluationResult, error)
}

// Handler serves policy endpoints.
type Handler struct {
	evaluator *policy.Evaluator
	catalog   catalog.Store
	facts     *directory.FactBuilder
	assets    directory.Store
	live      LiveEvaluator
	logger    *slog.Logger
}

// New wires the policy handler.
func New(evaluator *policy.Evaluator, cat catalog.Store, facts *directory.FactBuilder,
	assets directory.Store, live LiveEvaluator, logger *slog.Logger) *Handler {
	return &Handler{
		evaluator: evaluator,
		catalog:   cat,
		facts:     facts,
		assets:    assets,
		live:      live,
		logger:    logger,
	}
}

// Routes mounts the policy endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/policy/evaluate", h.evaluate)
	r.Get("/policy/regimes", h.listRegimes)
	r.Get("/policy/regimes/{id}", h.getRegime)
	r.Get("/policy/templates", h.listTemplates)
	r.Get("/assets/{id}/enforcement", h.enforcement)
}

// evaluate runs the kernel against caller-supplied facts without touching any
// stored instance. Used by the pre-creation "what would apply" preview.
func (h *Handler) evaluate(w http.ResponseWriter, r *http.Request) {
	var facts policy.Facts
	if err := json.NewDecoder(r.Body).Decode(&facts); err != nil {
		shared.WriteBadRequest(w, r, "invalid JSON body")
		return
	}

	result, err := h.evaluator.Evaluate(r.Context(), facts, nil)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) listRegimes(w http.ResponseWriter, r *http.Request) {
	regimes, err := h.catalog.ListRegimes(r.Context())
	if err != nil {
		shared.WriteError(w, r, h.logger,
			domainerrors.Wrap(domainerrors.CodeInternal, "list regimes", err))
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"regimes": regimes})
}

func (h *Handler) getRegime(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteBadRequest(w, r, "invalid regime id")
		return
	}
	regime, err := h.catalog.GetRegime(r.Context(), id)
	if err == catalog.ErrNotFound {
		shared.WriteError(w, r, h.logger, domainerrors.New(domainerrors.CodeNotFound, "regime not found"))
		return
	}
	if err != nil {
		shared.WriteError(w, r, h.logger,
			domainerrors.Wrap(domainerrors.CodeInternal, "load regime", err))
		return
	}
	shared.WriteJSON(w, http.StatusOK, regime)
}

func (h *Handler) listTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.catalog.ListActive(r.Context(), time.Now())
	if err != nil {
		shared.WriteError(w, r, h.logger,
			domainerrors.Wrap(domainerrors.CodeInternal, "list templates", err))
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

// enforcement returns the OR-reduced enforcement flags for an asset, both the
// full cross-ledger hint set and the projection onto the asset's own ledger.
func (h *Handler) enforcement(w http.ResponseWriter, r *http.Request) {
	assetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteBadRequest(w, r, "invalid asset id")
		return
	}

	asset, err := h.assets.GetAsset(r.Context(), assetID)
	if err == directory.ErrNotFound {
		shared.WriteError(w, r, h.logger, domainerrors.New(domainerrors.CodeNotFound, "asset not found"))
		return
	}
	if err != nil {
		shared.WriteError(w, r, h.logger,
			domainerrors.Wrap(domainerrors.CodeInternal, "load asset", err))
		return
	}

	facts, err := h.facts.Build(r.Context(), assetID)
	if err != nil {
		shared.WriteError(w, r, h.logger,
			domainerrors.Wrap(domainerrors.CodeInternal, "build policy facts", err))
		return
	}

	result, err := h.live.Evaluate(r.Context(), assetID, facts)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"assetId":       assetID,
		"ledger":        asset.Ledger,
		"hints":         result.Flags,
		"verifiedHints": policy.DeriveSatisfiedFlags(result.Decisions),
		"ledgerFlags":   policy.FlagsForLedger(result.Flags, asset.Ledger),
	})
}
