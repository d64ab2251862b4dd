// Package job owns the lifecycle of generation jobs: the in-memory table
// polling clients read from, and the worker pool that drives each job from
// queued to a terminal state.
package job

import (
	"sync"
	"time"

	"github.com/sells-group/leadgen-cli/internal/enrich"
	"github.com/sells-group/leadgen-cli/internal/model"
)

// Status is the job lifecycle state.
type Status string

const (
	// StatusQueued is the state between submission and worker pickup.
	StatusQueued Status = "queued"
	// StatusProcessing covers aggregation, enrichment, and campaign sync.
	StatusProcessing Status = "processing"
	// StatusCompleted is terminal success.
	StatusCompleted Status = "completed"
	// StatusError is terminal failure.
	StatusError Status = "error"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Job is one tracked unit of work. Mutable fields are guarded by mu: the
// owning worker writes, pollers read snapshots, and neither ever observes a
// torn update.
type Job struct {
	mu sync.RWMutex

	id      string
	request model.GenerationRequest

	status   Status
	progress int
	message  string
	errText  string

	leads      []model.Lead
	totalLeads int
	stats      enrich.Stats
	sync       *model.SyncSummary

	createdAt   time.Time
	completedAt time.Time

	cancel func() // cancels the worker's context; nil until execution starts
}

// Snapshot is a read-only copy of a job's state for polling clients.
type Snapshot struct {
	ID          string             `json:"job_id"`
	Status      Status             `json:"status"`
	Progress    int                `json:"progress"`
	Message     string             `json:"message"`
	Error       string             `json:"error,omitempty"`
	Leads       []model.Lead       `json:"leads,omitempty"`
	TotalLeads  int                `json:"total_leads"`
	Stats       enrich.Stats       `json:"stats"`
	SyncSummary *model.SyncSummary `json:"campaign_sync,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
}

func newJob(id string, req model.GenerationRequest) *Job {
	return &Job{
		id:        id,
		request:   req,
		status:    StatusQueued,
		message:   "queued",
		createdAt: time.Now().UTC(),
	}
}

// ID returns the job identifier.
func (j *Job) ID() string { return j.id }

// Snapshot copies the job's current state. The lead slice is copied so the
// caller can never observe in-place mutation by the worker.
func (j *Job) Snapshot() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()

	snap := Snapshot{
		ID:         j.id,
		Status:     j.status,
		Progress:   j.progress,
		Message:    j.message,
		Error:      j.errText,
		TotalLeads: j.totalLeads,
		Stats:      j.stats,
		CreatedAt:  j.createdAt,
	}
	if len(j.leads) > 0 {
		snap.Leads = make([]model.Lead, len(j.leads))
		copy(snap.Leads, j.leads)
	}
	if j.sync != nil {
		s := *j.sync
		snap.SyncSummary = &s
	}
	if !j.completedAt.IsZero() {
		t := j.completedAt
		snap.CompletedAt = &t
	}
	return snap
}

// setProgress advances status, progress, and message. Progress is monotonic:
// a checkpoint can never move it backwards, so pollers always observe a
// non-decreasing sequence.
func (j *Job) setProgress(status Status, progress int, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return
	}
	j.status = status
	if progress > j.progress {
		j.progress = progress
	}
	if message != "" {
		j.message = message
	}
}

// setLeads publishes the worker's current view of the lead sequence. The
// worker keeps mutating its own slice through enrichment and campaign sync,
// so a copy is stored: pollers must never share a backing array with it.
func (j *Job) setLeads(leads []model.Lead, total int) {
	published := make([]model.Lead, len(leads))
	copy(published, leads)
	j.mu.Lock()
	defer j.mu.Unlock()
	j.leads = published
	j.totalLeads = total
}

func (j *Job) setStats(stats enrich.Stats) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stats = stats
}

func (j *Job) setSyncSummary(s *model.SyncSummary) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.sync = s
}

func (j *Job) complete(message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return
	}
	j.status = StatusCompleted
	j.progress = 100
	j.message = message
	j.completedAt = time.Now().UTC()
}

func (j *Job) fail(errText string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return
	}
	j.status = StatusError
	j.errText = errText
	j.message = "error: " + errText
	j.completedAt = time.Now().UTC()
}

func (j *Job) setCancel(cancel func()) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cancel = cancel
}

// Cancel requests cooperative cancellation. Returns false when the job is
// already terminal.
func (j *Job) Cancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return false
	}
	if j.cancel != nil {
		j.cancel()
	}
	return true
}
