// Package manifest builds the deterministic compliance manifest anchored
// on-chain at issuance time. The hash must be reproducible byte-for-byte from
// the same logical contents, independent of map iteration order, which is why
// serialization goes through RFC 8785 (JCS) canonicalization before SHA-256.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"

	"github.com/mirroredkube/tokenops-sub001/internal/snapshot"
	domainerrors "github.com/mirroredkube/tokenops-sub001/pkg/domain-errors"
)

// SchemaVersion tags the manifest layout so future changes stay
// distinguishable in the audit trail.
const SchemaVersion = "1"

// Entry is one snapshot requirement in the manifest.
type Entry struct {
	TemplateID   string `json:"templateId"`
	TemplateName string `json:"templateName"`
	RegimeName   string `json:"regimeName"`
	Status       string `json:"status"`
}

// Manifest is the document whose hash is anchored on-chain.
type Manifest struct {
	SchemaVersion string         `json:"schemaVersion"`
	IssuanceID    string         `json:"issuanceId"`
	Facts         map[string]any `json:"facts,omitempty"`
	Requirements  []Entry        `json:"requirements"`
	Readiness     string         `json:"readiness"`
}

// Build composes a manifest from an issuance snapshot and caller-supplied
// issuance facts (purpose, ISIN, legal issuer, transfer restrictions, ...).
// Entries are ordered by template ID so array order is a function of content,
// not of store iteration.
func Build(issuanceID uuid.UUID, issuanceFacts map[string]any, rows []*snapshot.Row) *Manifest {
	entries := make([]Entry, 0, len(rows))
	required := 0
	for _, r := range rows {
		entries = append(entries, Entry{
			TemplateID:   r.TemplateID.String(),
			TemplateName: r.TemplateName,
			RegimeName:   r.RegimeName,
			Status:       string(r.Status),
		})
		if r.Status == "REQUIRED" {
			required++
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].TemplateID < entries[j].TemplateID })

	readiness := "READY"
	if required > 0 {
		readiness = "PENDING"
	}

	return &Manifest{
		SchemaVersion: SchemaVersion,
		IssuanceID:    issuanceID.String(),
		Facts:         issuanceFacts,
		Requirements:  entries,
		Readiness:     readiness,
	}
}

// Hash serializes the manifest with sorted object keys at every nesting level
// and returns the lowercase hex SHA-256 of the canonical UTF-8 bytes.
func Hash(m *Manifest) (string, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return "", domainerrors.Wrap(domainerrors.CodeManifestBuildFailed, "serialize manifest", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", domainerrors.Wrap(domainerrors.CodeManifestBuildFailed, "canonicalize manifest", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Canonical returns the canonical JSON bytes stored as the issuance's
// compliance reference, so what is persisted is exactly what was hashed.
func Canonical(m *Manifest) ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, domainerrors.Wrap(domainerrors.CodeManifestBuildFailed, "serialize manifest", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, domainerrors.Wrap(domainerrors.CodeManifestBuildFailed, "canonicalize manifest", err)
	}
	return canonical, nil
}

// Verify recomputes the hash of canonical manifest bytes and compares.
func Verify(canonical []byte, wantHash string) error {
	sum := sha256.Sum256(canonical)
	if got := hex.EncodeToString(sum[:]); got != wantHash {
		return fmt.Errorf("manifest hash mismatch: got %s want %s", got, wantHash)
	}
	return nil
}
