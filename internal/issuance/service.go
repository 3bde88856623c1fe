package issuance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mirroredkube/tokenops-sub001/internal/directory"
	"github.com/mirroredkube/tokenops-sub001/internal/ledger"
	"github.com/mirroredkube/tokenops-sub001/internal/manifest"
	"github.com/mirroredkube/tokenops-sub001/internal/platform/metrics"
	"github.com/mirroredkube/tokenops-sub001/internal/policy"
	"github.com/mirroredkube/tokenops-sub001/internal/snapshot"
	domainerrors "github.com/mirroredkube/tokenops-sub001/pkg/domain-errors"
	"github.com/mirroredkube/tokenops-sub001/pkg/platform/audit"
	"github.com/mirroredkube/tokenops-sub001/pkg/requestcontext"
)

// Auditor is the slice of the audit publisher this service needs.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Snapshotter freezes and reads per-issuance compliance snapshots.
type Snapshotter interface {
	CreateIssuanceSnapshot(ctx context.Context, assetID, issuanceID uuid.UUID) ([]*snapshot.Row, error)
	GetIssuanceSnapshot(ctx context.Context, issuanceID uuid.UUID) ([]*snapshot.Row, error)
}

// AssetSource is the slice of the directory this service reads.
type AssetSource interface {
	GetAsset(ctx context.Context, id uuid.UUID) (*directory.Asset, error)
}

// Service drives the issuance flow: freeze compliance state, build and anchor
// the manifest, submit to the ledger.
type Service struct {
	store     Store
	assets    AssetSource
	snapshots Snapshotter
	anchorer  ledger.Anchorer
	auditor   Auditor
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	clock     func() time.Time
	readiness *ledger.ReadinessChecker

	memoPrefix string
}

// Option configures the Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithReadiness enables the holder trustline check before submission.
func WithReadiness(checker *ledger.ReadinessChecker) Option {
	return func(s *Service) { s.readiness = checker }
}

// NewService wires the issuance service.
func NewService(store Store, assets AssetSource, snapshots Snapshotter, anchorer ledger.Anchorer,
	auditor Auditor, logger *slog.Logger, m *metrics.Metrics, memoPrefix string, opts ...Option) *Service {
	s := &Service{
		store:      store,
		assets:     assets,
		snapshots:  snapshots,
		anchorer:   anchorer,
		auditor:    auditor,
		logger:     logger,
		metrics:    m,
		tracer:     otel.Tracer("tokenops/issuance"),
		clock:      time.Now,
		memoPrefix: memoPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitRequest describes one issuance to submit.
type SubmitRequest struct {
	AssetID uuid.UUID `json:"assetId"`
	Holder  string    `json:"holder"`
	Amount  string    `json:"amount"`

	// Facts are caller-supplied issuance-level disclosures (purpose, ISIN,
	// transfer restrictions) recorded verbatim in the manifest.
	Facts map[string]any `json:"facts,omitempty"`
}

// Submit runs the issuance flow. Snapshotting the compliance state is a hard
// precondition; building and anchoring the manifest is best-effort: a manifest
// failure is recorded and the issuance proceeds unanchored, while snapshot and
// ledger submission failures mark the issuance FAILED.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Issuance, error) {
	ctx, span := s.tracer.Start(ctx, "issuance.Submit",
		trace.WithAttributes(attribute.String("asset_id", req.AssetID.String())))
	defer span.End()

	if req.Holder == "" {
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "holder address is required")
	}
	if req.Amount == "" {
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "amount is required")
	}

	asset, err := s.assets.GetAsset(ctx, req.AssetID)
	if errors.Is(err, directory.ErrNotFound) {
		return nil, domainerrors.New(domainerrors.CodeNotFound, "asset not found")
	}
	if err != nil {
		return nil, domainerrors.Wrap(domainerrors.CodeInternal, "load asset", err)
	}

	if s.readiness != nil {
		ready, err := s.readiness.HolderReady(ctx, asset.ID, asset.Ledger, asset.IssuerAddress, req.Holder)
		if err != nil {
			s.logger.WarnContext(ctx, "holder readiness check failed, proceeding",
				"asset_id", asset.ID, "error", err)
		} else if !ready {
			return nil, domainerrors.New(domainerrors.CodeConflict,
				"holder is not authorized to receive this asset on the ledger")
		}
	}

	now := s.clock()
	iss := &Issuance{
		ID:               uuid.New(),
		AssetID:          req.AssetID,
		Holder:           req.Holder,
		Amount:           req.Amount,
		Status:           StatusPending,
		ComplianceStatus: CompliancePending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.Insert(ctx, iss); err != nil {
		return nil, domainerrors.Wrap(domainerrors.CodeInternal, "insert issuance", err)
	}
	span.SetAttributes(attribute.String("issuance_id", iss.ID.String()))

	rows, err := s.snapshots.CreateIssuanceSnapshot(ctx, req.AssetID, iss.ID)
	if err != nil {
		s.fail(ctx, iss)
		return nil, err
	}
	if err := s.auditor.Emit(ctx, audit.Event{
		Action:     audit.ActionIssuanceSnapshotted,
		AssetID:    req.AssetID,
		IssuanceID: iss.ID,
		ActorID:    actorID(ctx),
		Reason:     fmt.Sprintf("requirements=%d", len(rows)),
		RequestID:  requestcontext.RequestID(ctx),
	}); err != nil {
		s.fail(ctx, iss)
		return nil, err
	}

	iss.ComplianceStatus = complianceStatus(rows)

	// Manifest construction is best-effort: regulated flows prefer an
	// unanchored issuance over a blocked one, and the failure is surfaced on
	// the record and in metrics.
	hash := s.buildManifest(ctx, iss, req.Facts, rows)

	if hash != "" {
		txID, explorerURL, err := s.anchorer.AnchorMemo(ctx, asset.Ledger, s.memoPrefix+hash)
		if err != nil {
			span.RecordError(err)
			s.fail(ctx, iss)
			return nil, domainerrors.Wrap(domainerrors.CodeInternal, "anchor compliance manifest", err)
		}
		iss.TxID = txID
		iss.ExplorerURL = explorerURL
		if s.metrics != nil {
			s.metrics.ManifestsAnchored.Inc()
		}
		if err := s.auditor.Emit(ctx, audit.Event{
			Action:     audit.ActionManifestAnchored,
			AssetID:    req.AssetID,
			IssuanceID: iss.ID,
			ActorID:    actorID(ctx),
			Reason:     "hash=" + hash,
			RequestID:  requestcontext.RequestID(ctx),
		}); err != nil {
			// The anchor already happened; losing this event is an audit gap
			// worth logging but not worth failing the issuance over.
			s.logger.ErrorContext(ctx, "manifest anchor audit emit failed",
				"issuance_id", iss.ID, "error", err)
		}
	}

	submittedAt := s.clock()
	iss.Status = StatusSubmitted
	iss.SubmittedAt = &submittedAt
	iss.UpdatedAt = submittedAt
	if err := s.store.Update(ctx, iss); err != nil {
		return nil, domainerrors.Wrap(domainerrors.CodeInternal, "update issuance", err)
	}
	if s.metrics != nil {
		s.metrics.IssuancesSubmitted.Inc()
	}

	s.logger.InfoContext(ctx, "issuance submitted",
		"issuance_id", iss.ID,
		"asset_id", req.AssetID,
		"ledger", asset.Ledger,
		"compliance_status", iss.ComplianceStatus,
		"manifest_hash", iss.ManifestHash,
	)
	return iss, nil
}

// buildManifest builds, hashes, and records the manifest on the issuance.
// Returns the hash, or "" when construction failed.
func (s *Service) buildManifest(ctx context.Context, iss *Issuance, facts map[string]any, rows []*snapshot.Row) string {
	m := manifest.Build(iss.ID, facts, rows)
	canonical, err := manifest.Canonical(m)
	if err == nil {
		var hash string
		hash, err = manifest.Hash(m)
		if err == nil {
			iss.ComplianceRef = canonical
			iss.ManifestHash = hash
			iss.ComplianceEvaluated = true
			return hash
		}
	}
	s.logger.ErrorContext(ctx, "manifest build failed, issuing without anchor",
		"issuance_id", iss.ID, "error", err)
	if s.metrics != nil {
		s.metrics.ManifestFailures.Inc()
	}
	iss.ComplianceEvaluated = false
	return ""
}

// fail moves the issuance to FAILED, best-effort.
func (s *Service) fail(ctx context.Context, iss *Issuance) {
	iss.Status = StatusFailed
	iss.UpdatedAt = s.clock()
	if err := s.store.Update(ctx, iss); err != nil {
		s.logger.ErrorContext(ctx, "mark issuance failed", "issuance_id", iss.ID, "error", err)
	}
}

// Get returns one issuance.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Issuance, error) {
	iss, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, domainerrors.New(domainerrors.CodeNotFound, "issuance not found")
	}
	if err != nil {
		return nil, domainerrors.Wrap(domainerrors.CodeInternal, "load issuance", err)
	}
	return iss, nil
}

// ListByAsset returns the asset's issuances in creation order.
func (s *Service) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*Issuance, error) {
	out, err := s.store.ListByAsset(ctx, assetID)
	if err != nil {
		return nil, domainerrors.Wrap(domainerrors.CodeInternal, "list issuances", err)
	}
	return out, nil
}

// GetSnapshot returns the frozen compliance set for an issuance.
func (s *Service) GetSnapshot(ctx context.Context, issuanceID uuid.UUID) ([]*snapshot.Row, error) {
	if _, err := s.Get(ctx, issuanceID); err != nil {
		return nil, err
	}
	return s.snapshots.GetIssuanceSnapshot(ctx, issuanceID)
}

// ManifestRecord is the stored manifest plus its anchored hash.
type ManifestRecord struct {
	Hash        string          `json:"hash"`
	Manifest    json.RawMessage `json:"manifest"`
	TxID        string          `json:"txId,omitempty"`
	ExplorerURL string          `json:"explorerUrl,omitempty"`
}

// GetManifest returns the canonical manifest recorded at submission.
func (s *Service) GetManifest(ctx context.Context, issuanceID uuid.UUID) (*ManifestRecord, error) {
	iss, err := s.Get(ctx, issuanceID)
	if err != nil {
		return nil, err
	}
	if len(iss.ComplianceRef) == 0 {
		return nil, domainerrors.New(domainerrors.CodeNotFound, "no manifest recorded for issuance")
	}
	return &ManifestRecord{
		Hash:        iss.ManifestHash,
		Manifest:    iss.ComplianceRef,
		TxID:        iss.TxID,
		ExplorerURL: iss.ExplorerURL,
	}, nil
}

// MarkValidated is called by the ledger watcher when the transaction confirms.
func (s *Service) MarkValidated(ctx context.Context, id uuid.UUID, txID string) error {
	err := s.store.UpdateStatus(ctx, id, StatusValidated, StatusUpdate{TxID: txID, At: s.clock()})
	if errors.Is(err, ErrNotFound) {
		return domainerrors.New(domainerrors.CodeNotFound, "issuance not found")
	}
	if err != nil {
		return domainerrors.Wrap(domainerrors.CodeInternal, "mark issuance validated", err)
	}
	return nil
}

func complianceStatus(rows []*snapshot.Row) ComplianceStatus {
	for _, r := range rows {
		if r.Status == policy.StatusRequired {
			return CompliancePending
		}
	}
	return ComplianceReady
}

func actorID(ctx context.Context) string {
	if v := requestcontext.VerifierID(ctx); v != "" {
		return v
	}
	return "system"
}
