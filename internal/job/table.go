package job

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// ErrJobNotFound is returned for unknown or expired job identifiers.
var ErrJobNotFound = errors.New("job: not found")

// Table is the owned, synchronized map of all live jobs. It is the only
// structure shared between workers and pollers; per-job state has its own
// lock.
type Table struct {
	mu        sync.Mutex
	jobs      map[string]*Job
	retention time.Duration
}

// NewTable creates a job table. Terminal jobs older than retention are
// evicted on sweep.
func NewTable(retention time.Duration) *Table {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &Table{
		jobs:      make(map[string]*Job),
		retention: retention,
	}
}

// Prepare builds a job with a generated identifier without registering it.
// Identifiers are UUIDs, so concurrent submissions never collide. The caller
// registers the job with Add once it has been accepted for execution; a job
// that never gets accepted is simply discarded and never becomes visible.
func (t *Table) Prepare(req model.GenerationRequest) *Job {
	return newJob(uuid.New().String(), req)
}

// Add registers a prepared job.
func (t *Table) Add(j *Job) {
	t.mu.Lock()
	t.jobs[j.id] = j
	t.mu.Unlock()
}

// Create builds a job and registers it immediately.
func (t *Table) Create(req model.GenerationRequest) *Job {
	j := t.Prepare(req)
	t.Add(j)
	return j
}

// Get returns the job for id.
func (t *Table) Get(id string) (*Job, error) {
	t.mu.Lock()
	j, ok := t.jobs[id]
	t.mu.Unlock()
	if !ok {
		return nil, ErrJobNotFound
	}
	return j, nil
}

// List returns snapshots of every live job, newest first.
func (t *Table) List() []Snapshot {
	t.mu.Lock()
	jobs := make([]*Job, 0, len(t.jobs))
	for _, j := range t.jobs {
		jobs = append(jobs, j)
	}
	t.mu.Unlock()

	snaps := make([]Snapshot, len(jobs))
	for i, j := range jobs {
		snaps[i] = j.Snapshot()
	}
	for i := 1; i < len(snaps); i++ {
		for k := i; k > 0 && snaps[k-1].CreatedAt.Before(snaps[k].CreatedAt); k-- {
			snaps[k-1], snaps[k] = snaps[k], snaps[k-1]
		}
	}
	return snaps
}

// Sweep evicts terminal jobs older than the retention window and returns
// the number removed.
func (t *Table) Sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, j := range t.jobs {
		snap := j.Snapshot()
		if snap.Status.Terminal() && snap.CompletedAt != nil && now.Sub(*snap.CompletedAt) > t.retention {
			delete(t.jobs, id)
			removed++
		}
	}
	return removed
}
