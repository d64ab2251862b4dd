package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/aggregate"
	"github.com/sells-group/leadgen-cli/internal/campaign"
	"github.com/sells-group/leadgen-cli/internal/enrich"
	"github.com/sells-group/leadgen-cli/internal/history"
	"github.com/sells-group/leadgen-cli/internal/job"
	"github.com/sells-group/leadgen-cli/internal/outreach"
	"github.com/sells-group/leadgen-cli/internal/provider"
	"github.com/sells-group/leadgen-cli/pkg/instantly"
	"github.com/sells-group/leadgen-cli/pkg/mailtester"
)

// jobEnv bundles everything a command needs to run jobs. Callers should
// defer env.Close().
type jobEnv struct {
	Orchestrator *job.Orchestrator
	Instantly    instantly.Client
	History      history.Store
}

// initEnv sets up providers, enrichment clients, the history store, and the
// orchestrator from the loaded config.
func initEnv(ctx context.Context) (*jobEnv, error) {
	registry := provider.FromConfig(cfg.Providers, cfg.RateLimit)

	var verifier mailtester.Client
	if cfg.MailTester.Key != "" {
		opts := []mailtester.Option{}
		if cfg.MailTester.TokenBaseURL != "" {
			opts = append(opts, mailtester.WithTokenBaseURL(cfg.MailTester.TokenBaseURL))
		}
		if cfg.MailTester.VerifyBaseURL != "" {
			opts = append(opts, mailtester.WithVerifyBaseURL(cfg.MailTester.VerifyBaseURL))
		}
		verifier = mailtester.NewClient(cfg.MailTester.Key, opts...)
	} else {
		zap.L().Debug("LEADGEN_MAILTESTER_KEY not set, email verification unavailable")
	}

	var generator outreach.Generator
	if cfg.Outreach.AnthropicKey != "" {
		generator = outreach.NewClaudeGenerator(cfg.Outreach)
	} else {
		zap.L().Debug("LEADGEN_OUTREACH_ANTHROPIC_KEY not set, draft generation unavailable")
	}

	userAgent := ""
	if len(cfg.RateLimit.UserAgents) > 0 {
		userAgent = cfg.RateLimit.UserAgents[0]
	}
	scraper := enrich.NewSiteScraper(userAgent)
	pipeline := enrich.New(verifier, generator, scraper, cfg.MailTester.MaxConcurrency)

	var (
		instantlyClient instantly.Client
		syncer          *campaign.Syncer
	)
	if cfg.Instantly.Key != "" {
		iopts := []instantly.Option{}
		if cfg.Instantly.BaseURL != "" {
			iopts = append(iopts, instantly.WithBaseURL(cfg.Instantly.BaseURL))
		}
		instantlyClient = instantly.NewClient(cfg.Instantly.Key, iopts...)
		syncer = campaign.NewSyncer(instantlyClient)
	} else {
		zap.L().Debug("LEADGEN_INSTANTLY_KEY not set, campaign sync unavailable")
	}

	store, err := history.Open(ctx, history.Config{
		Driver:      cfg.History.Driver,
		Path:        cfg.History.Path,
		DatabaseURL: cfg.History.DatabaseURL,
	})
	if err != nil {
		zap.L().Warn("history store unavailable, continuing without it", zap.Error(err))
		store = nil
	}

	retention := time.Duration(cfg.Jobs.RetentionHours) * time.Hour
	orch := job.NewOrchestrator(job.Options{
		Table:    job.NewTable(retention),
		Agg:      aggregate.New(registry),
		Pipeline: pipeline,
		Syncer:   syncer,
		History:  store,
		Workers:  cfg.Jobs.Workers,
		Queue:    cfg.Jobs.QueueSize,
	})
	orch.Start(ctx)

	return &jobEnv{
		Orchestrator: orch,
		Instantly:    instantlyClient,
		History:      store,
	}, nil
}

func (e *jobEnv) Close() {
	e.Orchestrator.Close()
	if e.History != nil {
		if err := e.History.Close(); err != nil {
			zap.L().Warn("failed to close history store", zap.Error(err))
		}
	}
}
