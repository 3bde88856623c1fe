package ledger

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirroredkube/tokenops-sub001/internal/policy"
)

func TestHolderReadyWithoutCache(t *testing.T) {
	reader := NewStaticTrustlineReader()
	reader.Deny("rBlocked")
	checker := NewReadinessChecker(reader, nil, time.Minute,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()
	assetID := uuid.New()

	ok, err := checker.HolderReady(ctx, assetID, policy.LedgerXRPL, "rIssuer", "rHolder")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = checker.HolderReady(ctx, assetID, policy.LedgerXRPL, "rIssuer", "rBlocked")
	require.NoError(t, err)
	assert.False(t, ok)

	// Invalidate with no cache is a no-op, not a panic.
	checker.Invalidate(ctx, assetID, "rHolder")
}

func TestMemoryAnchorerRecordsMemo(t *testing.T) {
	a := NewMemoryAnchorer()

	txID, explorerURL, err := a.AnchorMemo(context.Background(), policy.LedgerXRPL, "COMPLIANCE_HASH:abc")
	require.NoError(t, err)
	assert.NotEmpty(t, txID)
	assert.Contains(t, explorerURL, txID)

	memo, ok := a.Memo(txID)
	require.True(t, ok)
	assert.Equal(t, "COMPLIANCE_HASH:abc", memo)
}

func TestMemoryAnchorerFailNext(t *testing.T) {
	a := NewMemoryAnchorer()
	a.FailNext = true

	_, _, err := a.AnchorMemo(context.Background(), policy.LedgerXRPL, "memo")
	require.Error(t, err)

	// Only the next call fails.
	_, _, err = a.AnchorMemo(context.Background(), policy.LedgerXRPL, "memo")
	assert.NoError(t, err)
}
