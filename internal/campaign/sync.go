// Package campaign hands finished leads off to the external campaign
// platform. The hand-off is two independent steps: create each lead as a
// record, then move the created records into the target campaign. A created
// record is not an assigned record — the upstream API happily returns 200 on
// creation while the campaign move later stalls — so the two counts are
// tracked and reported separately, and assignment is only ever claimed from
// the move call's own response.
package campaign

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/pkg/instantly"
)

// Syncer pushes leads into a campaign.
type Syncer struct {
	client instantly.Client
	retry  resilience.Policy
}

// NewSyncer creates a campaign syncer.
func NewSyncer(client instantly.Client) *Syncer {
	return &Syncer{client: client, retry: resilience.DefaultPolicy()}
}

// Sync performs the two-step hand-off and mutates leads in place with the
// external record ids assigned in step 1. Individual failures are recorded
// and never abort the batch; the returned summary reports both steps
// independently.
func (s *Syncer) Sync(ctx context.Context, leads []model.Lead, campaignID string) *model.SyncSummary {
	log := zap.L().With(
		zap.String("component", "campaign"),
		zap.String("campaign_id", campaignID),
	)

	summary := &model.SyncSummary{}

	// Step 1: create records. Leads without an email can't exist upstream;
	// leads already carrying an external id were synced before and are
	// skipped, which is what makes re-running the hand-off idempotent.
	var createdIDs []string
	for i := range leads {
		if !leads[i].HasEmail() {
			continue
		}
		summary.Attempted++

		if leads[i].ExternalID != "" {
			createdIDs = append(createdIDs, leads[i].ExternalID)
			summary.Created++
			continue
		}

		created, err := resilience.DoVal(ctx, s.retry, "instantly.create_lead", func(ctx context.Context) (*instantly.CreatedLead, error) {
			return s.client.CreateLead(ctx, toRecord(leads[i]))
		})
		if err != nil {
			log.Warn("lead creation failed",
				zap.String("email", leads[i].Email),
				zap.Error(err),
			)
			summary.Partial = true
			continue
		}

		leads[i].ExternalID = created.ID
		createdIDs = append(createdIDs, created.ID)
		summary.Created++
	}

	// Step 2: move created records into the campaign. Attempted even when
	// some creations failed — the records that do exist still belong in the
	// campaign.
	if len(createdIDs) > 0 {
		moved, err := resilience.DoVal(ctx, s.retry, "instantly.move_leads", func(ctx context.Context) (*instantly.MoveResponse, error) {
			return s.client.MoveLeads(ctx, instantly.MoveRequest{
				LeadIDs:      createdIDs,
				ToCampaignID: campaignID,
			})
		})
		switch {
		case err != nil:
			log.Error("campaign move failed", zap.Error(err))
			summary.Partial = true
		case !moved.Accepted():
			// 200 with an unrecognized body is not proof of assignment.
			log.Error("campaign move returned unrecognized response")
			summary.Partial = true
		default:
			summary.Assigned = len(createdIDs)
			summary.MoveJobID = moved.ID
		}
	}

	if summary.Attempted > summary.Created {
		summary.Partial = true
	}

	log.Info("campaign sync complete",
		zap.Int("attempted", summary.Attempted),
		zap.Int("created", summary.Created),
		zap.Int("assigned", summary.Assigned),
		zap.Bool("partial", summary.Partial),
	)
	return summary
}

// Message renders the summary for the job's status message. It states what
// actually happened in each step; it never claims campaign membership that
// step 2 did not confirm.
func Message(s *model.SyncSummary) string {
	if s == nil {
		return ""
	}
	msg := fmt.Sprintf("created: %d, assigned to campaign: %d", s.Created, s.Assigned)
	if s.Partial {
		msg += " (partial)"
	}
	return msg
}

// toRecord converts a lead to the campaign platform's record shape. The
// business name maps onto company plus a best-effort contact name split.
func toRecord(l model.Lead) instantly.LeadRecord {
	first, last := splitName(l.Name)
	return instantly.LeadRecord{
		Email:       l.Email,
		FirstName:   first,
		LastName:    last,
		CompanyName: l.Name,
		Phone:       l.Phone,
		Website:     l.Website,
		CustomVars: map[string]string{
			"search_term":     l.SearchKeyword,
			"search_location": l.SearchLocation,
			"source":          l.Source,
		},
	}
}

func splitName(name string) (string, string) {
	first, last, found := strings.Cut(strings.TrimSpace(name), " ")
	if !found {
		return name, ""
	}
	return first, last
}
