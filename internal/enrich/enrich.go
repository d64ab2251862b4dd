// Package enrich runs the post-aggregation pipeline: optional website email
// scraping, email verification, and outreach draft generation. Every step is
// per-lead best-effort; enrichment failures never remove a lead from the
// result set and never fail the job.
package enrich

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/outreach"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/pkg/mailtester"
)

// Options selects which enrichment steps run.
type Options struct {
	VerifyEmails       bool
	GenerateEmails     bool
	AdvancedScraping   bool
	ExportVerifiedOnly bool
}

// Stats counts enrichment outcomes for the job snapshot.
type Stats struct {
	EmailsFound    int `json:"emails_found"`
	EmailsVerified int `json:"emails_verified"`
	ValidEmails    int `json:"valid_emails"`
	InvalidEmails  int `json:"invalid_emails"`
}

// Pipeline enriches aggregated leads.
type Pipeline struct {
	verifier    mailtester.Client
	generator   outreach.Generator
	scraper     *SiteScraper
	concurrency int
	retry       resilience.Policy
}

// New creates an enrichment pipeline. Any of verifier, generator, and
// scraper may be nil; the corresponding step then degrades (verification to
// risky, generation to the disabled sentinel, scraping to a no-op).
func New(verifier mailtester.Client, generator outreach.Generator, scraper *SiteScraper, concurrency int) *Pipeline {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Pipeline{
		verifier:    verifier,
		generator:   generator,
		scraper:     scraper,
		concurrency: concurrency,
		retry:       resilience.DefaultPolicy(),
	}
}

// Run mutates leads in place according to opts and returns the sequence to
// expose in job results (filtered when ExportVerifiedOnly is set) along with
// the stats. The input slice always keeps its full length for progress
// accounting; only the returned slice is filtered.
func (p *Pipeline) Run(ctx context.Context, leads []model.Lead, opts Options) ([]model.Lead, Stats, error) {
	log := zap.L().With(zap.String("component", "enrich"))
	var stats Stats

	if opts.AdvancedScraping && p.scraper != nil {
		p.scrapeEmails(ctx, leads, log)
	}

	for i := range leads {
		if leads[i].HasEmail() {
			leads[i].EmailStatus = model.VerificationUnverified
		}
	}

	if opts.VerifyEmails {
		p.verifyEmails(ctx, leads, &stats, log)
	}

	p.generateDrafts(ctx, leads, opts.GenerateEmails, log)

	for _, l := range leads {
		if l.HasEmail() {
			stats.EmailsFound++
		}
	}

	out := leads
	if opts.ExportVerifiedOnly {
		out = make([]model.Lead, 0, len(leads))
		for _, l := range leads {
			if l.EmailStatus == model.VerificationOK {
				out = append(out, l)
			}
		}
		log.Info("filtered to verified leads",
			zap.Int("kept", len(out)),
			zap.Int("total", len(leads)),
		)
	}

	return out, stats, ctx.Err()
}

func (p *Pipeline) scrapeEmails(ctx context.Context, leads []model.Lead, log *zap.Logger) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	var mu sync.Mutex
	for i := range leads {
		if leads[i].HasEmail() || leads[i].Website == "" {
			continue
		}
		g.Go(func() error {
			email, err := p.scraper.ScrapeEmail(gctx, leads[i].Website)
			if err != nil {
				log.Debug("site scrape failed",
					zap.String("website", leads[i].Website),
					zap.Error(err),
				)
				return nil
			}
			if email != "" {
				mu.Lock()
				leads[i].Email = email
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Pipeline) verifyEmails(ctx context.Context, leads []model.Lead, stats *Stats, log *zap.Logger) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	var mu sync.Mutex
	for i := range leads {
		if !leads[i].HasEmail() {
			continue
		}
		g.Go(func() error {
			status := p.verifyOne(gctx, leads[i].Email, log)

			mu.Lock()
			defer mu.Unlock()
			leads[i].EmailStatus = status
			stats.EmailsVerified++
			switch status {
			case model.VerificationOK:
				stats.ValidEmails++
			case model.VerificationInvalid:
				stats.InvalidEmails++
			}
			return nil
		})
	}
	_ = g.Wait()

	log.Info("email verification complete",
		zap.Int("verified", stats.EmailsVerified),
		zap.Int("valid", stats.ValidEmails),
		zap.Int("invalid", stats.InvalidEmails),
	)
}

// verifyOne runs a bounded-retry verification. A lead whose verification
// keeps failing transiently is marked risky rather than dropped.
func (p *Pipeline) verifyOne(ctx context.Context, email string, log *zap.Logger) model.VerificationStatus {
	if p.verifier == nil {
		return model.VerificationRisky
	}

	result, err := resilience.DoVal(ctx, p.retry, "mailtester.verify", func(ctx context.Context) (*mailtester.Result, error) {
		return p.verifier.Verify(ctx, email)
	})
	if err != nil {
		log.Warn("verification failed, marking risky",
			zap.String("email", email),
			zap.Error(err),
		)
		return model.VerificationRisky
	}

	switch result.Code {
	case mailtester.CodeValid:
		return model.VerificationOK
	case mailtester.CodeInvalid:
		return model.VerificationInvalid
	default:
		// catch-all, role-based, disposable, or anything unrecognized
		return model.VerificationRisky
	}
}

func (p *Pipeline) generateDrafts(ctx context.Context, leads []model.Lead, enabled bool, log *zap.Logger) {
	if !enabled || p.generator == nil {
		// The sentinel is a user-visible contract; it is set explicitly for
		// every lead, never left empty.
		for i := range leads {
			leads[i].DraftEmail = model.DraftDisabledSentinel
		}
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	var mu sync.Mutex
	for i := range leads {
		g.Go(func() error {
			draft, err := resilience.DoVal(gctx, p.retry, "outreach.draft", func(ctx context.Context) (string, error) {
				return p.generator.GenerateDraft(ctx, leads[i])
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn("draft generation failed, using sentinel",
					zap.String("lead", leads[i].Name),
					zap.Error(err),
				)
				leads[i].DraftEmail = model.DraftDisabledSentinel
			} else {
				leads[i].DraftEmail = draft
			}
			return nil
		})
	}
	_ = g.Wait()
}
