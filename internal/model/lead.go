package model

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// VerificationStatus is the outcome of email verification for a lead.
type VerificationStatus string

const (
	// VerificationUnverified means verification was skipped or not yet run.
	VerificationUnverified VerificationStatus = "unverified"
	// VerificationOK means the address passed verification.
	VerificationOK VerificationStatus = "ok"
	// VerificationInvalid means the address failed verification.
	VerificationInvalid VerificationStatus = "invalid"
	// VerificationRisky means verification was inconclusive (catch-all,
	// role-based, or the verifier kept failing transiently).
	VerificationRisky VerificationStatus = "risky"
)

// DraftDisabledSentinel is the user-visible value stored in DraftEmail when
// draft generation is off or failed for a lead. Downstream consumers match on
// it, so it is part of the contract and never left empty.
const DraftDisabledSentinel = "Email generation disabled"

// Lead is one discovered business record. Provider adapters create leads,
// the aggregator annotates provenance, and the enrichment pipeline mutates
// email fields in place. Once the owning job is terminal a lead is frozen.
type Lead struct {
	Name        string             `json:"name"`
	Address     string             `json:"address,omitempty"`
	Phone       string             `json:"phone,omitempty"`
	Website     string             `json:"website,omitempty"`
	Rating      float64            `json:"rating,omitempty"`
	Email       string             `json:"email,omitempty"`
	EmailStatus VerificationStatus `json:"email_status,omitempty"`
	DraftEmail  string             `json:"draft_email,omitempty"`

	// Provenance, set by the aggregator.
	Source         string `json:"source"`
	SearchKeyword  string `json:"search_keyword"`
	SearchLocation string `json:"search_location"`
	FullQuery      string `json:"full_query"`

	// ExternalID is the campaign platform's record id once synced.
	ExternalID string `json:"external_id,omitempty"`
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldIdentity(s string) string {
	out, _, err := transform.String(foldTransformer, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// IdentityKey returns the dedup identity for the lead: normalized
// name+address, falling back to the email when the address is absent.
// Normalization lower-cases, strips diacritics, and collapses whitespace so
// "Café Brazil " and "cafe brazil" collide.
func (l Lead) IdentityKey() string {
	name := foldIdentity(l.Name)
	addr := foldIdentity(l.Address)
	if addr != "" {
		return name + "|" + addr
	}
	if l.Email != "" {
		return name + "|" + foldIdentity(l.Email)
	}
	return name + "|"
}

// HasEmail reports whether the lead carries a usable email address.
// Providers sometimes emit the literal "NA" placeholder.
func (l Lead) HasEmail() bool {
	return l.Email != "" && l.Email != "NA"
}
