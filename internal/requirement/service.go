package requirement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mirroredkube/tokenops-sub001/internal/policy"
	policymetrics "github.com/mirroredkube/tokenops-sub001/internal/policy/metrics"
	"github.com/mirroredkube/tokenops-sub001/pkg/platform/audit"
	domainerrors "github.com/mirroredkube/tokenops-sub001/pkg/domain-errors"
	"github.com/mirroredkube/tokenops-sub001/pkg/requestcontext"
)

// Auditor is the slice of the audit publisher this service needs.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service manages live requirement instances: evaluation-driven upserts and
// officer-driven verification transitions.
type Service struct {
	evaluator *policy.Evaluator
	store     Store
	auditor   Auditor
	logger    *slog.Logger
	metrics   *policymetrics.Metrics
	clock     func() time.Time
}

// NewService wires the instance manager.
func NewService(evaluator *policy.Evaluator, store Store, auditor Auditor, logger *slog.Logger, metrics *policymetrics.Metrics) *Service {
	return &Service{
		evaluator: evaluator,
		store:     store,
		auditor:   auditor,
		logger:    logger,
		metrics:   metrics,
		clock:     time.Now,
	}
}

// Evaluate runs the kernel against the asset's current live statuses without
// persisting anything. Feeds the policy console and enforcement display.
func (s *Service) Evaluate(ctx context.Context, assetID uuid.UUID, facts policy.Facts) (*policy.EvaluationResult, error) {
	live, err := s.liveStatuses(ctx, assetID)
	if err != nil {
		return nil, err
	}
	return s.evaluator.Evaluate(ctx, facts, live)
}

// CreateInstances evaluates the facts and upserts one live instance per
// template. Idempotent: re-running with the same facts never duplicates rows
// and never downgrades a SATISFIED or EXCEPTION instance; only rationale and
// timestamps refresh. A template newly applicable upgrades an AVAILABLE
// instance to REQUIRED.
func (s *Service) CreateInstances(ctx context.Context, assetID uuid.UUID, facts policy.Facts) (*policy.EvaluationResult, error) {
	live, err := s.liveStatuses(ctx, assetID)
	if err != nil {
		return nil, err
	}

	result, err := s.evaluator.Evaluate(ctx, facts, live)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.ListByAsset(ctx, assetID)
	if err != nil {
		return nil, domainerrors.Wrap(domainerrors.CodeInternal, "list requirement instances", err)
	}
	byTemplate := make(map[uuid.UUID]*Instance, len(existing))
	for _, inst := range existing {
		byTemplate[inst.TemplateID] = inst
	}

	now := s.clock()
	for _, d := range result.Decisions {
		inst, exists := byTemplate[d.Template.ID]
		if !exists {
			if err := s.insertInstance(ctx, assetID, d, now); err != nil {
				return nil, err
			}
			continue
		}

		// AVAILABLE -> REQUIRED when the template became newly applicable;
		// everything else keeps its status, only the rationale refreshes.
		if d.Applicable && inst.Status == policy.StatusAvailable {
			err := s.store.Transition(ctx, inst.ID, policy.StatusAvailable, policy.StatusRequired,
				TransitionUpdate{Rationale: d.Rationale, At: now})
			if err != nil && !errors.Is(err, ErrConflict) {
				return nil, domainerrors.Wrap(domainerrors.CodeInternal, "upgrade requirement instance", err)
			}
			s.metrics.IncrementTransition(string(policy.StatusRequired))
			continue
		}
		if err := s.store.RefreshEvaluation(ctx, inst.ID, d.Rationale, now); err != nil && !errors.Is(err, ErrNotFound) {
			return nil, domainerrors.Wrap(domainerrors.CodeInternal, "refresh requirement instance", err)
		}
	}

	if err := s.auditor.Emit(ctx, audit.Event{
		Action:    audit.ActionInstancesEvaluated,
		AssetID:   assetID,
		ActorID:   actorID(ctx),
		RequestID: requestcontext.RequestID(ctx),
		Reason: fmt.Sprintf("evaluated=%d applicable=%d required=%d",
			result.Counters.Evaluated, result.Counters.Applicable, result.Counters.Required),
	}); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Service) insertInstance(ctx context.Context, assetID uuid.UUID, d policy.Decision, now time.Time) error {
	inst := &Instance{
		ID:           uuid.New(),
		AssetID:      assetID,
		TemplateID:   d.Template.ID,
		TemplateName: d.Template.Name,
		RegimeName:   d.Template.RegimeName,
		Status:       d.Status,
		Rationale:    d.Rationale,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := s.store.Insert(ctx, inst)
	if errors.Is(err, ErrConflict) {
		// Benign race: a concurrent evaluation created the row first.
		s.logger.DebugContext(ctx, "requirement instance already exists",
			"asset_id", assetID, "template_id", d.Template.ID)
		return nil
	}
	if err != nil {
		return domainerrors.Wrap(domainerrors.CodeInternal, "insert requirement instance", err)
	}
	s.metrics.IncrementTransition(string(d.Status))
	return nil
}

// List returns the asset's live requirement instances.
func (s *Service) List(ctx context.Context, assetID uuid.UUID) ([]*Instance, error) {
	instances, err := s.store.ListByAsset(ctx, assetID)
	if err != nil {
		return nil, domainerrors.Wrap(domainerrors.CodeInternal, "list requirement instances", err)
	}
	return instances, nil
}

// MarkSatisfied records an officer's verification. The instance must
// currently be REQUIRED: an AVAILABLE instance is not applicable, and an
// already-SATISFIED one cannot be re-verified without an explicit reversion
// (out of scope).
func (s *Service) MarkSatisfied(ctx context.Context, instanceID uuid.UUID, verifierID string) (*Instance, error) {
	return s.verify(ctx, instanceID, policy.StatusSatisfied, verifierID, "")
}

// MarkException records an officer-granted exception with its reason.
func (s *Service) MarkException(ctx context.Context, instanceID uuid.UUID, verifierID, reason string) (*Instance, error) {
	if reason == "" {
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "exception reason is required")
	}
	return s.verify(ctx, instanceID, policy.StatusException, verifierID, reason)
}

func (s *Service) verify(ctx context.Context, instanceID uuid.UUID, to policy.Status, verifierID, reason string) (*Instance, error) {
	if verifierID == "" {
		return nil, domainerrors.New(domainerrors.CodeUnauthorized, "verifier identity is required")
	}

	inst, err := s.store.Get(ctx, instanceID)
	if errors.Is(err, ErrNotFound) {
		return nil, domainerrors.New(domainerrors.CodeNotFound, "requirement instance not found")
	}
	if err != nil {
		return nil, domainerrors.Wrap(domainerrors.CodeInternal, "load requirement instance", err)
	}
	if inst.Status != policy.StatusRequired {
		return nil, domainerrors.New(domainerrors.CodeConflict,
			fmt.Sprintf("instance is %s, only REQUIRED instances can be verified", inst.Status))
	}

	now := s.clock()
	err = s.store.Transition(ctx, instanceID, policy.StatusRequired, to, TransitionUpdate{
		VerifierID:      verifierID,
		ExceptionReason: reason,
		At:              now,
	})
	if errors.Is(err, ErrConflict) {
		// Another officer transitioned it between our read and write.
		return nil, domainerrors.New(domainerrors.CodeConflict, "instance was transitioned concurrently, refetch and retry")
	}
	if err != nil {
		return nil, domainerrors.Wrap(domainerrors.CodeInternal, "transition requirement instance", err)
	}

	action := audit.ActionRequirementSatisfied
	if to == policy.StatusException {
		action = audit.ActionRequirementException
	}
	if err := s.auditor.Emit(ctx, audit.Event{
		Action:     action,
		AssetID:    inst.AssetID,
		InstanceID: instanceID,
		ActorID:    verifierID,
		Reason:     reason,
		RequestID:  requestcontext.RequestID(ctx),
	}); err != nil {
		return nil, err
	}

	s.metrics.IncrementTransition(string(to))
	return s.store.Get(ctx, instanceID)
}

func (s *Service) liveStatuses(ctx context.Context, assetID uuid.UUID) (map[uuid.UUID]policy.Status, error) {
	existing, err := s.store.ListByAsset(ctx, assetID)
	if err != nil {
		return nil, domainerrors.Wrap(domainerrors.CodeInternal, "list requirement instances", err)
	}
	live := make(map[uuid.UUID]policy.Status, len(existing))
	for _, inst := range existing {
		live[inst.TemplateID] = inst.Status
	}
	return live, nil
}

func actorID(ctx context.Context) string {
	if v := requestcontext.VerifierID(ctx); v != "" {
		return v
	}
	return "system"
}
