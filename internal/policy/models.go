package policy

import (
	"time"

	"github.com/google/uuid"
)

// Regime is a named, versioned body of regulation (e.g. "MiCA"). Regimes are
// immutable once published: new versions are new rows, never edits.
type Regime struct {
	ID            uuid.UUID         `json:"id"`
	Name          string            `json:"name"`
	Version       string            `json:"version"` // semantic version, validated at load
	EffectiveFrom time.Time         `json:"effectiveFrom"`
	EffectiveTo   *time.Time        `json:"effectiveTo,omitempty"` // nil = still active
	Description   string            `json:"description,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// ActiveAt reports whether the regime's effective window covers t.
func (r *Regime) ActiveAt(t time.Time) bool {
	if t.Before(r.EffectiveFrom) {
		return false
	}
	return r.EffectiveTo == nil || t.Before(*r.EffectiveTo)
}

// RequirementTemplate is a versioned, reusable rule definition: when it
// applies and what enforcement it implies. Templates are versioned
// independently of their regime's own version bump.
type RequirementTemplate struct {
	ID          uuid.UUID `json:"id"`
	RegimeID    uuid.UUID `json:"regimeId"`
	RegimeName  string    `json:"regimeName"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`

	// ApplicabilityExpr is the raw expression text; Expr is its parsed form,
	// populated once at catalog load.
	ApplicabilityExpr string `json:"applicabilityExpr"`
	Expr              Expr   `json:"-"`

	// DataPoints lists the fact names the expression reads, for the "why"
	// rationale shown to compliance officers.
	DataPoints []string `json:"dataPoints,omitempty"`

	EnforcementHints EnforcementHints `json:"enforcementHints"`

	Version       string     `json:"version"`
	EffectiveFrom time.Time  `json:"effectiveFrom"`
	EffectiveTo   *time.Time `json:"effectiveTo,omitempty"`
}

// ActiveAt reports whether the template's effective window covers t.
func (t *RequirementTemplate) ActiveAt(at time.Time) bool {
	if at.Before(t.EffectiveFrom) {
		return false
	}
	return t.EffectiveTo == nil || at.Before(*t.EffectiveTo)
}

// XrplHints are XRPL-family ledger controls a requirement may demand.
type XrplHints struct {
	RequireAuth            bool `json:"requireAuth,omitempty"`
	TrustlineAuthorization bool `json:"trustlineAuthorization,omitempty"`
	Freeze                 bool `json:"freeze,omitempty"`
}

// EvmHints are EVM-family ledger controls a requirement may demand.
type EvmHints struct {
	Allowlist    bool `json:"allowlist,omitempty"`
	TransferGate bool `json:"transferGate,omitempty"`
	Pausable     bool `json:"pausable,omitempty"`
}

// HederaHints are Hedera-family ledger controls a requirement may demand.
type HederaHints struct {
	KYCKey    bool `json:"kycKey,omitempty"`
	FreezeKey bool `json:"freezeKey,omitempty"`
	PauseKey  bool `json:"pauseKey,omitempty"`
}

// EnforcementHints groups the ledger-family control demands of a template.
// Modeled as typed structs rather than a nested map so missing or misspelled
// controls are caught at compile time.
type EnforcementHints struct {
	XRPL   XrplHints   `json:"xrpl,omitempty"`
	EVM    EvmHints    `json:"evm,omitempty"`
	Hedera HederaHints `json:"hedera,omitempty"`
}

// Status is the verification state of a requirement for an asset.
type Status string

const (
	// StatusAvailable means the template exists but does not apply to this
	// asset configuration. Distinct from "not yet satisfied".
	StatusAvailable Status = "AVAILABLE"
	StatusRequired  Status = "REQUIRED"
	StatusSatisfied Status = "SATISFIED"
	StatusException Status = "EXCEPTION"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusRequired, StatusSatisfied, StatusException:
		return true
	}
	return false
}

// Decision is the evaluator's verdict for a single template.
type Decision struct {
	Template   *RequirementTemplate `json:"template"`
	Applicable bool                 `json:"applicable"`
	Status     Status               `json:"status"`
	Rationale  string               `json:"rationale"`
}

// Counters are derived aggregates over a decision set. They are recomputed on
// every evaluation and never stored independently of the instances they
// summarize. Invariant: Applicable == Required + Satisfied + Exceptions.
type Counters struct {
	Evaluated  int `json:"evaluated"`
	Applicable int `json:"applicable"`
	Required   int `json:"required"`
	Satisfied  int `json:"satisfied"`
	Exceptions int `json:"exceptions"`
}

// EvaluationResult is the full output of one kernel evaluation.
type EvaluationResult struct {
	Decisions []Decision       `json:"decisions"`
	Counters  Counters         `json:"counters"`
	Flags     EnforcementHints `json:"enforcementFlags"`
}
