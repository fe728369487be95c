// Package job tracks in-flight generation and optimization jobs so they
// can be looked up, observed and cancelled by id.
package job

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status describes a job's lifecycle stage.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Job is one background unit of work. Cancelling a job cancels its
// context; work already handed to a provider is allowed to finish.
type Job struct {
	ID      string
	Kind    string
	Started time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	status Status
}

// Context returns the job's context, cancelled by Cancel.
func (j *Job) Context() context.Context { return j.ctx }

// Status returns the job's current lifecycle stage.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Finish records the job's terminal status. The first terminal status
// wins; a cancel that races completion stays cancelled.
func (j *Job) Finish(status Status) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status == StatusRunning {
		j.status = status
	}
}

// Cancel cancels the job's context and marks it cancelled unless it has
// already finished.
func (j *Job) Cancel() {
	j.Finish(StatusCancelled)
	j.cancel()
}

// Registry holds the live jobs, keyed by id.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

// Create registers a new running job of the given kind under a fresh id.
// Its context is derived from parent, with an independent cancel.
func (r *Registry) Create(parent context.Context, kind string) *Job {
	return r.CreateWithID(parent, uuid.NewString(), kind)
}

// CreateWithID registers a job under a caller-supplied id, cancelling and
// replacing any previous job with that id. Used when the id doubles as
// the progress subscription key.
func (r *Registry) CreateWithID(parent context.Context, id, kind string) *Job {
	ctx, cancel := context.WithCancel(parent)
	j := &Job{
		ID:      id,
		Kind:    kind,
		Started: time.Now(),
		ctx:     ctx,
		cancel:  cancel,
		status:  StatusRunning,
	}

	r.mu.Lock()
	if prev, ok := r.jobs[id]; ok {
		prev.Cancel()
	}
	r.jobs[id] = j
	r.mu.Unlock()
	return j
}

// Get returns the job with the given id, if it is still registered.
func (r *Registry) Get(id string) (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	return j, ok
}

// Cancel cancels the job with the given id. It reports whether the id
// was known.
func (r *Registry) Cancel(id string) bool {
	j, ok := r.Get(id)
	if !ok {
		return false
	}
	j.Cancel()
	return true
}

// Remove drops the job from the registry, releasing its cancel func.
// The job itself stays usable by anyone still holding it.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[id]; ok {
		delete(r.jobs, id)
		j.cancel()
	}
}
