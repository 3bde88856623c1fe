//go:build integration

package requirement_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/mirroredkube/tokenops-sub001/internal/policy"
	"github.com/mirroredkube/tokenops-sub001/internal/requirement"
	"github.com/mirroredkube/tokenops-sub001/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *requirement.PostgresStore

	assetID    uuid.UUID
	templateID uuid.UUID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = requirement.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx,
		"requirement_instances", "assets", "products", "organizations",
		"requirement_templates", "regimes")
	s.Require().NoError(err)

	// Instances have FKs to assets and templates; seed the minimum graph.
	orgID := uuid.New()
	productID := uuid.New()
	regimeID := uuid.New()
	s.assetID = uuid.New()
	s.templateID = uuid.New()

	db := s.postgres.DB
	_, err = db.ExecContext(ctx, `
		INSERT INTO organizations (id, name, country) VALUES ($1, 'Test Issuer', 'DE')`, orgID)
	s.Require().NoError(err)
	_, err = db.ExecContext(ctx, `
		INSERT INTO products (id, organization_id, name, asset_class, target_markets, distribution_type, investor_audience)
		VALUES ($1, $2, 'Test Product', 'ART', '["DE"]', 'offer', 'retail')`, productID, orgID)
	s.Require().NoError(err)
	_, err = db.ExecContext(ctx, `
		INSERT INTO assets (id, product_id, organization_id, code, ledger, issuer_address, is_casp_involved, transfer_type)
		VALUES ($1, $2, $3, 'TST', 'XRPL', 'rTestIssuer', true, 'CASP_TO_CASP')`,
		s.assetID, productID, orgID)
	s.Require().NoError(err)
	_, err = db.ExecContext(ctx, `
		INSERT INTO regimes (id, name, version, effective_from) VALUES ($1, 'MiCA', '1.0.0', now())`, regimeID)
	s.Require().NoError(err)
	_, err = db.ExecContext(ctx, `
		INSERT INTO requirement_templates
			(id, regime_id, regime_name, name, applicability_expr, version, effective_from)
		VALUES ($1, $2, 'MiCA', 'test-template', 'assetClass == "ART"', '1.0.0', now())`,
		s.templateID, regimeID)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newInstance(status policy.Status) *requirement.Instance {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &requirement.Instance{
		ID:           uuid.New(),
		AssetID:      s.assetID,
		TemplateID:   s.templateID,
		TemplateName: "test-template",
		RegimeName:   "MiCA",
		Status:       status,
		Rationale:    "applicable because assetClass matched",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *PostgresStoreSuite) TestInsertAndGet() {
	ctx := context.Background()
	inst := s.newInstance(policy.StatusRequired)
	s.Require().NoError(s.store.Insert(ctx, inst))

	got, err := s.store.Get(ctx, inst.ID)
	s.Require().NoError(err)
	s.Equal(inst.ID, got.ID)
	s.Equal(policy.StatusRequired, got.Status)
	s.Equal("test-template", got.TemplateName)
	s.Nil(got.VerifiedAt)
}

func (s *PostgresStoreSuite) TestInsertDuplicateTemplateConflicts() {
	ctx := context.Background()
	s.Require().NoError(s.store.Insert(ctx, s.newInstance(policy.StatusRequired)))

	err := s.store.Insert(ctx, s.newInstance(policy.StatusRequired))
	s.ErrorIs(err, requirement.ErrConflict)
}

func (s *PostgresStoreSuite) TestTransitionSetsVerification() {
	ctx := context.Background()
	inst := s.newInstance(policy.StatusRequired)
	s.Require().NoError(s.store.Insert(ctx, inst))

	err := s.store.Transition(ctx, inst.ID, policy.StatusRequired, policy.StatusSatisfied,
		requirement.TransitionUpdate{VerifierID: "officer-1", At: time.Now().UTC()})
	s.Require().NoError(err)

	got, err := s.store.Get(ctx, inst.ID)
	s.Require().NoError(err)
	s.Equal(policy.StatusSatisfied, got.Status)
	s.Equal("officer-1", got.VerifierID)
	s.NotNil(got.VerifiedAt)
}

func (s *PostgresStoreSuite) TestTransitionWrongFromStatusConflicts() {
	ctx := context.Background()
	inst := s.newInstance(policy.StatusAvailable)
	s.Require().NoError(s.store.Insert(ctx, inst))

	err := s.store.Transition(ctx, inst.ID, policy.StatusRequired, policy.StatusSatisfied,
		requirement.TransitionUpdate{VerifierID: "officer-1", At: time.Now().UTC()})
	s.ErrorIs(err, requirement.ErrConflict)
}

func (s *PostgresStoreSuite) TestTransitionMissingInstanceNotFound() {
	err := s.store.Transition(context.Background(), uuid.New(),
		policy.StatusRequired, policy.StatusSatisfied,
		requirement.TransitionUpdate{VerifierID: "officer-1", At: time.Now().UTC()})
	s.ErrorIs(err, requirement.ErrNotFound)
}

// TestConcurrentTransitionsSingleWinner verifies the compare-and-swap: many
// officers racing to verify the same instance produce exactly one SATISFIED
// transition.
func (s *PostgresStoreSuite) TestConcurrentTransitionsSingleWinner() {
	ctx := context.Background()
	inst := s.newInstance(policy.StatusRequired)
	s.Require().NoError(s.store.Insert(ctx, inst))

	const goroutines = 20
	var wg sync.WaitGroup
	var wins atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Transition(ctx, inst.ID, policy.StatusRequired, policy.StatusSatisfied,
				requirement.TransitionUpdate{VerifierID: "officer-race", At: time.Now().UTC()})
			if err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load(), "exactly one transition should win")
}

func (s *PostgresStoreSuite) TestRefreshEvaluationKeepsStatus() {
	ctx := context.Background()
	inst := s.newInstance(policy.StatusSatisfied)
	s.Require().NoError(s.store.Insert(ctx, inst))

	err := s.store.RefreshEvaluation(ctx, inst.ID, "still applicable", time.Now().UTC())
	s.Require().NoError(err)

	got, err := s.store.Get(ctx, inst.ID)
	s.Require().NoError(err)
	s.Equal(policy.StatusSatisfied, got.Status)
	s.Equal("still applicable", got.Rationale)
}
