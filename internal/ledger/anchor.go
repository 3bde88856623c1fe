// Package ledger abstracts the on-chain operations the compliance flow needs:
// anchoring a manifest hash into a transaction memo and reading trustline
// authorization state for issuance readiness.
package ledger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/mirroredkube/tokenops-sub001/internal/policy"
)

// Anchorer writes a memo transaction on the asset's ledger and returns the
// resulting transaction ID plus an explorer URL for display.
type Anchorer interface {
	AnchorMemo(ctx context.Context, ledger policy.Ledger, memo string) (txID, explorerURL string, err error)
}

// MemoryAnchorer records memos in process memory. It stands in for the real
// ledger adapters in development and tests.
type MemoryAnchorer struct {
	mu    sync.Mutex
	memos map[string]string // txID -> memo

	// FailNext forces the next AnchorMemo call to fail, for exercising the
	// submission error path in tests.
	FailNext bool
}

// NewMemoryAnchorer creates an empty in-memory anchorer.
func NewMemoryAnchorer() *MemoryAnchorer {
	return &MemoryAnchorer{memos: make(map[string]string)}
}

func (a *MemoryAnchorer) AnchorMemo(_ context.Context, ledger policy.Ledger, memo string) (string, string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.FailNext {
		a.FailNext = false
		return "", "", fmt.Errorf("anchor memo on %s: ledger unavailable", ledger)
	}
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate tx id: %w", err)
	}
	txID := hex.EncodeToString(buf)
	a.memos[txID] = memo
	return txID, fmt.Sprintf("https://explorer.local/%s/tx/%s", ledger, txID), nil
}

// Memo returns the memo recorded under txID, for assertions in tests.
func (a *MemoryAnchorer) Memo(txID string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.memos[txID]
	return m, ok
}
