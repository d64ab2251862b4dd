package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/aggregate"
	"github.com/sells-group/leadgen-cli/internal/campaign"
	"github.com/sells-group/leadgen-cli/internal/enrich"
	"github.com/sells-group/leadgen-cli/internal/history"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/planner"
)

// ErrJobNotCompleted is returned by GetResultExport before the job reaches
// the completed state.
var ErrJobNotCompleted = errors.New("job: not completed")

// ErrQueueFull is returned when the submission queue has no capacity.
var ErrQueueFull = errors.New("job: queue full")

// Progress checkpoints. Values between aggregateStart and aggregateEnd are
// interpolated per completed provider batch.
const (
	progressPlanned        = 5
	progressAggregateStart = 10
	progressAggregateEnd   = 40
	progressAggregated     = 55
	progressEnriched       = 75
	progressSynced         = 90
)

// Orchestrator owns job scheduling: it validates and plans at submission,
// runs a fixed worker pool, and exposes the poll/cancel surface. Status
// reads never touch the network.
type Orchestrator struct {
	table    *Table
	agg      *aggregate.Aggregator
	pipeline *enrich.Pipeline
	syncer   *campaign.Syncer
	history  history.Store

	queue   chan *Job
	workers int

	wg      sync.WaitGroup
	baseCtx context.Context
	stop    context.CancelFunc
}

// Options wires an orchestrator. Syncer and History may be nil; the
// corresponding steps are skipped.
type Options struct {
	Table    *Table
	Agg      *aggregate.Aggregator
	Pipeline *enrich.Pipeline
	Syncer   *campaign.Syncer
	History  history.Store
	Workers  int
	Queue    int
}

// NewOrchestrator creates an orchestrator. Call Start before submitting.
func NewOrchestrator(opts Options) *Orchestrator {
	workers := opts.Workers
	if workers <= 0 {
		workers = 2
	}
	queueSize := opts.Queue
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Orchestrator{
		table:    opts.Table,
		agg:      opts.Agg,
		pipeline: opts.Pipeline,
		syncer:   opts.Syncer,
		history:  opts.History,
		queue:    make(chan *Job, queueSize),
		workers:  workers,
	}
}

// Start launches the worker pool and the retention sweeper.
func (o *Orchestrator) Start(ctx context.Context) {
	o.baseCtx, o.stop = context.WithCancel(ctx)

	for i := 0; i < o.workers; i++ {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for {
				select {
				case <-o.baseCtx.Done():
					return
				case j := <-o.queue:
					o.execute(j)
				}
			}
		}()
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-o.baseCtx.Done():
				return
			case now := <-ticker.C:
				if n := o.table.Sweep(now); n > 0 {
					zap.L().Info("evicted expired jobs", zap.Int("count", n))
				}
			}
		}
	}()
}

// Close stops accepting work and waits for in-flight jobs to finish their
// current step. Queued jobs that never started stay queued in memory and are
// lost with the process, which is the documented persistence contract.
func (o *Orchestrator) Close() {
	if o.stop != nil {
		o.stop()
	}
	o.wg.Wait()
}

// Submit validates the request, plans it, creates a queued job, and returns
// its identifier immediately. Planning happens here so an unresolvable
// location surfaces to the caller at submission time and no job is created.
func (o *Orchestrator) Submit(req model.GenerationRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if _, err := planner.Plan(req); err != nil {
		return "", err
	}

	// Register only once the queue accepts the job, so a rejected submission
	// never leaves a phantom errored job in the table.
	j := o.table.Prepare(req)
	select {
	case o.queue <- j:
		o.table.Add(j)
	default:
		return "", eris.Wrap(ErrQueueFull, "job: submit")
	}

	zap.L().Info("job submitted",
		zap.String("job_id", j.ID()),
		zap.String("query", req.Query),
		zap.Int("queries", len(req.Queries)),
	)
	return j.ID(), nil
}

// GetStatus returns a read-only snapshot of the job.
func (o *Orchestrator) GetStatus(id string) (Snapshot, error) {
	j, err := o.table.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return j.Snapshot(), nil
}

// GetResultExport returns the finished lead sequence. Available only once
// the job is completed.
func (o *Orchestrator) GetResultExport(id string) ([]model.Lead, error) {
	j, err := o.table.Get(id)
	if err != nil {
		return nil, err
	}
	snap := j.Snapshot()
	if snap.Status != StatusCompleted {
		return nil, eris.Wrapf(ErrJobNotCompleted, "job %s is %s", id, snap.Status)
	}
	return snap.Leads, nil
}

// List returns snapshots of all live jobs, newest first.
func (o *Orchestrator) List() []Snapshot {
	return o.table.List()
}

// Cancel requests cooperative cancellation of a running job.
func (o *Orchestrator) Cancel(id string) error {
	j, err := o.table.Get(id)
	if err != nil {
		return err
	}
	if !j.Cancel() {
		return eris.Errorf("job %s already terminal", id)
	}
	return nil
}

// execute drives one job to a terminal state. Whatever happens — including
// a panic in a provider adapter — the job ends terminal; it is never left
// in processing after the worker returns.
func (o *Orchestrator) execute(j *Job) {
	log := zap.L().With(
		zap.String("component", "job"),
		zap.String("job_id", j.ID()),
	)

	ctx, cancel := context.WithCancel(o.baseCtx)
	defer cancel()
	j.setCancel(cancel)

	defer func() {
		if r := recover(); r != nil {
			log.Error("job panicked", zap.Any("panic", r))
			j.fail(fmt.Sprintf("internal error: %v", r))
		}
	}()

	req := j.request
	j.setProgress(StatusProcessing, progressPlanned, "planning queries")

	queries, err := planner.Plan(req)
	if err != nil {
		// Validated at submission; only a logic regression lands here.
		j.fail(err.Error())
		return
	}

	// Aggregation.
	result, err := o.agg.Run(ctx, queries, req.Providers, req.EffectiveLimit(), func(done, total int) {
		span := progressAggregateEnd - progressAggregateStart
		j.setProgress(StatusProcessing, progressAggregateStart+done*span/total,
			fmt.Sprintf("fetched %d/%d provider batches", done, total))
	})
	if err != nil {
		if ctx.Err() != nil {
			j.fail("cancelled")
			return
		}
		j.fail(err.Error())
		return
	}

	j.setLeads(result.Leads, len(result.Leads))
	msg := fmt.Sprintf("aggregated %d leads", len(result.Leads))
	if n := len(result.Failures); n > 0 {
		msg += fmt.Sprintf(" (%d provider failures)", n)
	}
	j.setProgress(StatusProcessing, progressAggregated, msg)

	// Enrichment. Always runs so the draft sentinel contract holds even
	// when every enrichment flag is off.
	j.setProgress(StatusProcessing, progressAggregated, "enriching leads")
	final, stats, err := o.pipeline.Run(ctx, result.Leads, enrich.Options{
		VerifyEmails:       req.VerifyEmails,
		GenerateEmails:     req.GenerateEmails,
		AdvancedScraping:   req.AdvancedScraping,
		ExportVerifiedOnly: req.ExportVerifiedOnly,
	})
	if err != nil {
		j.fail("cancelled")
		return
	}
	j.setStats(stats)
	j.setLeads(final, len(final))
	j.setProgress(StatusProcessing, progressEnriched, "enrichment complete")

	// Campaign sync. Partial failure is reflected in the message; the job
	// still completes.
	completion := fmt.Sprintf("completed: %d leads found", len(final))
	if req.CampaignSync && o.syncer != nil {
		j.setProgress(StatusProcessing, progressEnriched, "syncing to campaign")
		summary := o.syncer.Sync(ctx, final, req.CampaignID)
		j.setSyncSummary(summary)
		j.setLeads(final, len(final)) // leads now carry external ids
		j.setProgress(StatusProcessing, progressSynced, campaign.Message(summary))
		completion += ", " + campaign.Message(summary)
	}

	if ctx.Err() != nil {
		j.fail("cancelled")
		return
	}

	o.recordHistory(req, len(final))
	j.complete(completion)
	log.Info("job completed", zap.Int("leads", len(final)))
}

func (o *Orchestrator) recordHistory(req model.GenerationRequest, leadCount int) {
	if o.history == nil {
		return
	}
	entry := history.Entry{
		Query:      req.Query,
		QueryCount: max(len(req.Queries), 1),
		LeadCount:  leadCount,
	}
	// History uses the background context: job cancellation should not
	// lose the record of the search having run.
	hctx, hcancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer hcancel()
	if err := o.history.Record(hctx, entry); err != nil {
		zap.L().Warn("failed to record search history", zap.Error(err))
	}
}
