package policy

// DeriveFlags OR-reduces enforcement hints across all applicable decisions.
//
// Flags reflect the regulatory demand existing, not whether it has been met:
// a template in REQUIRED contributes the same as one in SATISFIED. Ledger
// gating activates as soon as a requirement is applicable and is loosened in
// separate verification workflows.
//
// Flags are always derived fresh from decision state and never persisted, so
// they cannot go stale.
func DeriveFlags(decisions []Decision) EnforcementHints {
	var flags EnforcementHints
	for _, d := range decisions {
		if !d.Applicable {
			continue
		}
		flags = orHints(flags, d.Template.EnforcementHints)
	}
	return flags
}

// DeriveSatisfiedFlags OR-reduces hints over verified decisions only
// (SATISFIED or EXCEPTION). Surfaced on the policy console next to the
// applicable-based flags; not consumed by ledger adapters.
func DeriveSatisfiedFlags(decisions []Decision) EnforcementHints {
	var flags EnforcementHints
	for _, d := range decisions {
		if d.Status != StatusSatisfied && d.Status != StatusException {
			continue
		}
		flags = orHints(flags, d.Template.EnforcementHints)
	}
	return flags
}

func orHints(a, b EnforcementHints) EnforcementHints {
	return EnforcementHints{
		XRPL: XrplHints{
			RequireAuth:            a.XRPL.RequireAuth || b.XRPL.RequireAuth,
			TrustlineAuthorization: a.XRPL.TrustlineAuthorization || b.XRPL.TrustlineAuthorization,
			Freeze:                 a.XRPL.Freeze || b.XRPL.Freeze,
		},
		EVM: EvmHints{
			Allowlist:    a.EVM.Allowlist || b.EVM.Allowlist,
			TransferGate: a.EVM.TransferGate || b.EVM.TransferGate,
			Pausable:     a.EVM.Pausable || b.EVM.Pausable,
		},
		Hedera: HederaHints{
			KYCKey:    a.Hedera.KYCKey || b.Hedera.KYCKey,
			FreezeKey: a.Hedera.FreezeKey || b.Hedera.FreezeKey,
			PauseKey:  a.Hedera.PauseKey || b.Hedera.PauseKey,
		},
	}
}

// FlagsForLedger projects the merged hints onto the asset's ledger family,
// which is what the (out-of-scope) ledger adapters consume.
func FlagsForLedger(flags EnforcementHints, ledger Ledger) map[string]bool {
	switch ledger {
	case LedgerXRPL:
		return map[string]bool{
			"requireAuth":            flags.XRPL.RequireAuth,
			"trustlineAuthorization": flags.XRPL.TrustlineAuthorization,
			"freeze":                 flags.XRPL.Freeze,
		}
	case LedgerEthereum:
		return map[string]bool{
			"allowlist":    flags.EVM.Allowlist,
			"transferGate": flags.EVM.TransferGate,
			"pausable":     flags.EVM.Pausable,
		}
	case LedgerHedera:
		return map[string]bool{
			"kycKey":    flags.Hedera.KYCKey,
			"freezeKey": flags.Hedera.FreezeKey,
			"pauseKey":  flags.Hedera.PauseKey,
		}
	default:
		return map[string]bool{}
	}
}
