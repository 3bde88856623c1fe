package snapshot_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirroredkube/tokenops-sub001/internal/policy"
	"github.com/mirroredkube/tokenops-sub001/internal/requirement"
	"github.com/mirroredkube/tokenops-sub001/internal/snapshot"
	domainerrors "github.com/mirroredkube/tokenops-sub001/pkg/domain-errors"
)

func seedInstances(t *testing.T, store *requirement.InMemoryStore, assetID uuid.UUID, statuses ...policy.Status) []*requirement.Instance {
	t.Helper()
	now := time.Now()
	out := make([]*requirement.Instance, 0, len(statuses))
	for i, status := range statuses {
		inst := &requirement.Instance{
			ID:           uuid.New(),
			AssetID:      assetID,
			TemplateID:   uuid.New(),
			TemplateName: string(rune('a' + i)),
			RegimeName:   "MiCA",
			Status:       status,
			Rationale:    "seeded",
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		require.NoError(t, store.Insert(context.Background(), inst))
		out = append(out, inst)
	}
	return out
}

func TestCreateIssuanceSnapshotCopiesInstances(t *testing.T) {
	instances := requirement.NewInMemoryStore()
	svc := snapshot.NewService(instances, snapshot.NewInMemoryStore())
	assetID := uuid.New()
	issuanceID := uuid.New()
	seeded := seedInstances(t, instances, assetID, policy.StatusRequired, policy.StatusSatisfied)

	rows, err := svc.CreateIssuanceSnapshot(context.Background(), assetID, issuanceID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byInstance := map[uuid.UUID]policy.Status{}
	for _, r := range rows {
		assert.Equal(t, issuanceID, r.IssuanceID)
		assert.Equal(t, assetID, r.AssetID)
		byInstance[r.InstanceID] = r.Status
	}
	assert.Equal(t, policy.StatusRequired, byInstance[seeded[0].ID])
	assert.Equal(t, policy.StatusSatisfied, byInstance[seeded[1].ID])
}

func TestCreateIssuanceSnapshotRequiresEvaluatedInstances(t *testing.T) {
	svc := snapshot.NewService(requirement.NewInMemoryStore(), snapshot.NewInMemoryStore())

	_, err := svc.CreateIssuanceSnapshot(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeSnapshotPrecondition, domainerrors.CodeOf(err))
}

func TestCreateIssuanceSnapshotOncePerIssuance(t *testing.T) {
	instances := requirement.NewInMemoryStore()
	svc := snapshot.NewService(instances, snapshot.NewInMemoryStore())
	assetID := uuid.New()
	issuanceID := uuid.New()
	seedInstances(t, instances, assetID, policy.StatusRequired)

	_, err := svc.CreateIssuanceSnapshot(context.Background(), assetID, issuanceID)
	require.NoError(t, err)

	_, err = svc.CreateIssuanceSnapshot(context.Background(), assetID, issuanceID)
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeConflict, domainerrors.CodeOf(err))
}

// The snapshot is the permanent legal record: later changes to the live
// instances must never show through.
func TestSnapshotImmuneToLaterTransitions(t *testing.T) {
	instances := requirement.NewInMemoryStore()
	svc := snapshot.NewService(instances, snapshot.NewInMemoryStore())
	assetID := uuid.New()
	issuanceID := uuid.New()
	seeded := seedInstances(t, instances, assetID, policy.StatusRequired)

	_, err := svc.CreateIssuanceSnapshot(context.Background(), assetID, issuanceID)
	require.NoError(t, err)

	err = instances.Transition(context.Background(), seeded[0].ID,
		policy.StatusRequired, policy.StatusSatisfied,
		requirement.TransitionUpdate{VerifierID: "officer-1", At: time.Now()})
	require.NoError(t, err)

	rows, err := svc.GetIssuanceSnapshot(context.Background(), issuanceID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, policy.StatusRequired, rows[0].Status,
		"frozen snapshot must keep the status at issuance time")
	assert.Empty(t, rows[0].VerifierID)
}

func TestGetIssuanceSnapshotNotFound(t *testing.T) {
	svc := snapshot.NewService(requirement.NewInMemoryStore(), snapshot.NewInMemoryStore())

	_, err := svc.GetIssuanceSnapshot(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))
}
