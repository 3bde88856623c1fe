package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirroredkube/tokenops-sub001/internal/directory"
	"github.com/mirroredkube/tokenops-sub001/internal/platform/middleware"
	"github.com/mirroredkube/tokenops-sub001/internal/policy"
	"github.com/mirroredkube/tokenops-sub001/internal/policy/catalog"
	"github.com/mirroredkube/tokenops-sub001/internal/requirement"
	"github.com/mirroredkube/tokenops-sub001/internal/requirement/handler"
	"github.com/mirroredkube/tokenops-sub001/pkg/platform/audit"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*middleware.JWTClaims, error) {
	return &middleware.JWTClaims{VerifierID: "officer-" + token}, nil
}

type testEnv struct {
	router  chi.Router
	assetID uuid.UUID
	store   *requirement.InMemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cat := catalog.NewInMemoryStore()
	require.NoError(t, catalog.SeedMiCAV1(ctx, cat))

	dir := directory.NewInMemoryStore()
	orgID := uuid.New()
	productID := uuid.New()
	assetID := uuid.New()
	require.NoError(t, dir.PutOrganization(ctx, &directory.Organization{
		ID: orgID, Name: "Test Issuer", Country: "DE", CreatedAt: time.Now(),
	}))
	require.NoError(t, dir.PutProduct(ctx, &directory.Product{
		ID: productID, OrganizationID: orgID, Name: "Test Product",
		AssetClass: policy.AssetClassART, TargetMarkets: []string{"DE"},
		DistributionType: policy.DistributionOffer, InvestorAudience: policy.AudienceRetail,
		CreatedAt: time.Now(),
	}))
	require.NoError(t, dir.PutAsset(ctx, &directory.Asset{
		ID: assetID, ProductID: productID, OrganizationID: orgID,
		Code: "TST", Ledger: policy.LedgerXRPL, IssuerAddress: "rTestIssuer",
		IsCaspInvolved: true, TransferType: policy.TransferCaspToCasp,
		CreatedAt: time.Now(),
	}))

	store := requirement.NewInMemoryStore()
	svc := requirement.NewService(policy.NewEvaluator(cat), store,
		audit.NewPublisher(audit.NewInMemoryStore()), logger, nil)
	h := handler.New(svc, directory.NewFactBuilder(dir), logger)

	r := chi.NewRouter()
	h.Routes(r)
	r.Group(func(g chi.Router) {
		g.Use(middleware.RequireAuth(stubValidator{}, logger))
		h.VerifyRoutes(g)
	})

	return &testEnv{router: r, assetID: assetID, store: store}
}

func (e *testEnv) evaluate(t *testing.T) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/assets/"+e.assetID.String()+"/requirements/evaluate", nil)
	e.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestEvaluateEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/assets/"+env.assetID.String()+"/requirements/evaluate", nil)
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result policy.EvaluationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 6, result.Counters.Evaluated, "all seeded MiCA templates are evaluated")
	assert.Positive(t, result.Counters.Required)
	assert.True(t, result.Flags.XRPL.RequireAuth)
}

func TestEvaluateEndpointRejectsBadID(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/assets/not-a-uuid/requirements/evaluate", nil)
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.evaluate(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/assets/"+env.assetID.String()+"/requirements", nil)
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Requirements []*requirement.Instance `json:"requirements"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Requirements, 6)
}

func TestSatisfyEndpointRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	env.evaluate(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/requirements/"+uuid.NewString()+"/satisfy", nil)
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSatisfyEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.evaluate(t)

	instances, err := env.store.ListByAsset(context.Background(), env.assetID)
	require.NoError(t, err)
	var target *requirement.Instance
	for _, inst := range instances {
		if inst.Status == policy.StatusRequired {
			target = inst
			break
		}
	}
	require.NotNil(t, target)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/requirements/"+target.ID.String()+"/satisfy", nil)
	req.Header.Set("Authorization", "Bearer alice")
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var inst requirement.Instance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inst))
	assert.Equal(t, policy.StatusSatisfied, inst.Status)
	assert.Equal(t, "officer-alice", inst.VerifierID)
}

func TestExceptionEndpointRequiresReason(t *testing.T) {
	env := newTestEnv(t)
	env.evaluate(t)

	instances, err := env.store.ListByAsset(context.Background(), env.assetID)
	require.NoError(t, err)
	var target *requirement.Instance
	for _, inst := range instances {
		if inst.Status == policy.StatusRequired {
			target = inst
			break
		}
	}
	require.NotNil(t, target)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/requirements/"+target.ID.String()+"/exception",
		strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer alice")
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/requirements/"+target.ID.String()+"/exception",
		strings.NewReader(`{"reason":"transition period"}`))
	req.Header.Set("Authorization", "Bearer alice")
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var inst requirement.Instance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inst))
	assert.Equal(t, policy.StatusException, inst.Status)
	assert.Equal(t, "transition period", inst.ExceptionReason)
}
