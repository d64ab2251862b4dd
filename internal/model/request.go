package model

import (
	"errors"

	"github.com/rotisserie/eris"
)

// ErrInvalidRequest marks validation failures in a submitted request.
var ErrInvalidRequest = errors.New("invalid request")

// GenerationRequest is the immutable input for one lead generation job.
// Validated once at submission; workers only ever read it.
type GenerationRequest struct {
	Query   string   `json:"query"`
	Queries []string `json:"queries,omitempty"`
	Limit   int      `json:"limit"`

	VerifyEmails       bool `json:"verify_emails"`
	GenerateEmails     bool `json:"generate_emails"`
	ExportVerifiedOnly bool `json:"export_verified_only"`
	AdvancedScraping   bool `json:"advanced_scraping"`

	// Providers restricts the run to the named adapters. Empty means all
	// configured adapters.
	Providers []string `json:"providers,omitempty"`

	CampaignSync bool   `json:"campaign_sync"`
	CampaignID   string `json:"campaign_id,omitempty"`
}

// DefaultLimit is applied when a request does not set a per-query limit.
const DefaultLimit = 25

// Validate checks invariants that must hold before a job is created.
func (r GenerationRequest) Validate() error {
	if r.Query == "" && len(r.Queries) == 0 {
		return eris.Wrap(ErrInvalidRequest, "query is required")
	}
	if r.Limit < 0 {
		return eris.Wrapf(ErrInvalidRequest, "limit must be non-negative, got %d", r.Limit)
	}
	if r.CampaignSync && r.CampaignID == "" {
		return eris.Wrap(ErrInvalidRequest, "campaign_id is required when campaign_sync is enabled")
	}
	return nil
}

// EffectiveLimit returns the per-query result cap.
func (r GenerationRequest) EffectiveLimit() int {
	if r.Limit == 0 {
		return DefaultLimit
	}
	return r.Limit
}

// SyncSummary reports the outcome of the two-step campaign hand-off.
// Created counts step-1 record creations; Assigned counts leads the step-2
// move response actually confirmed. The two are reported independently
// because a created record is not proof of campaign membership.
type SyncSummary struct {
	Attempted int    `json:"attempted"`
	Created   int    `json:"created"`
	Assigned  int    `json:"assigned"`
	MoveJobID string `json:"move_job_id,omitempty"`
	Partial   bool   `json:"partial"`
}
