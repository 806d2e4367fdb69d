package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/Jeanedlune/transkv/internal/codec"
	"github.com/Jeanedlune/transkv/internal/kvstore"
	"github.com/Jeanedlune/transkv/internal/metrics"
)

// Job states.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// jobKeyPrefix namespaces job records in the backing store.
const jobKeyPrefix = "job:"

// shutdownGrace bounds how long Shutdown waits for running handlers.
const shutdownGrace = time.Second

// ErrJobNotFound is returned for unknown job IDs.
var ErrJobNotFound = errors.New("job not found")

// Job represents a task to be executed
type Job struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Payload  []byte    `json:"payload"`
	Status   string    `json:"status"`
	Error    string    `json:"error,omitempty"`
	Created  time.Time `json:"created"`
	Updated  time.Time `json:"updated"`
	Attempts int       `json:"attempts"`
}

// Queue manages the job queue system
type Queue struct {
	mu        sync.RWMutex
	jobs      map[string]*Job
	tasks     chan *Job
	processor *JobProcessor
	store     kvstore.Store
	ctx       context.Context
	cancel    context.CancelFunc
	workers   sync.WaitGroup
	config    *QueueConfig
	logger    hclog.Logger
}

// QueueConfig holds configuration for the job queue
type QueueConfig struct {
	WorkerCount  int
	QueueSize    int
	MaxRetries   int
	RetryBackoff time.Duration
	Logger       hclog.Logger
}

// DefaultConfig returns default queue configuration
func DefaultConfig() *QueueConfig {
	return &QueueConfig{
		WorkerCount:  5,
		QueueSize:    100,
		MaxRetries:   3,
		RetryBackoff: time.Second * 5,
	}
}

// NewQueue creates a new job queue instance without persistence
func NewQueue() *Queue {
	return NewQueueWithConfig(DefaultConfig(), nil)
}

// NewQueueWithStore creates a job queue that persists jobs in store
func NewQueueWithStore(store kvstore.Store) *Queue {
	return NewQueueWithConfig(DefaultConfig(), store)
}

// NewQueueWithConfig creates a new job queue with custom configuration. A nil
// store disables persistence. The queue does not close the store.
func NewQueueWithConfig(config *QueueConfig, store kvstore.Store) *Queue {
	logger := config.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		jobs:      make(map[string]*Job),
		tasks:     make(chan *Job, config.QueueSize),
		processor: NewJobProcessor(),
		store:     store,
		ctx:       ctx,
		cancel:    cancel,
		config:    config,
		logger:    logger,
	}

	pending := q.recover()

	// Start worker pool
	q.startWorkers(config.WorkerCount)
	for _, job := range pending {
		q.enqueue(job)
	}
	return q
}

// RegisterHandler registers a new job handler
func (q *Queue) RegisterHandler(jobType string, handler JobHandler) {
	q.processor.RegisterHandler(jobType, handler)
}

// recover loads persisted jobs. Jobs interrupted mid-run go back to pending;
// the pending ones are returned for re-queueing.
func (q *Queue) recover() []*Job {
	if q.store == nil {
		return nil
	}
	ctx := context.Background()

	var ids []string
	for key, err := range q.store.Keys(ctx) {
		if err != nil {
			q.logger.Error("failed to list persisted jobs", "error", err)
			return nil
		}
		if k, ok := key.(string); ok && strings.HasPrefix(k, jobKeyPrefix) {
			ids = append(ids, k)
		}
	}

	var pending []*Job
	for _, key := range ids {
		raw, found, err := q.store.Load(ctx, key)
		if err != nil || !found {
			continue
		}
		data, err := codec.Bytes(raw)
		if err != nil {
			continue
		}
		var job Job
		if err := json.Unmarshal(data, &job); err != nil {
			q.logger.Warn("skipping corrupt job record", "key", key, "error", err)
			continue
		}
		if job.Status == StatusProcessing {
			job.Status = StatusPending
			job.Updated = time.Now()
			q.persist(&job)
		}
		q.jobs[job.ID] = &job
		if job.Status == StatusPending {
			pending = append(pending, &job)
		}
	}
	slices.SortFunc(pending, func(a, b *Job) int { return a.Created.Compare(b.Created) })
	if len(q.jobs) > 0 {
		q.logger.Info("recovered jobs", "total", len(q.jobs), "pending", len(pending))
	}
	return pending
}

// persist writes job to the store. Callers hold q.mu or own job exclusively.
func (q *Queue) persist(job *Job) {
	if q.store == nil {
		return
	}
	data, err := json.Marshal(job)
	if err != nil {
		q.logger.Error("failed to encode job", "id", job.ID, "error", err)
		return
	}
	if err := q.store.Store(context.Background(), jobKeyPrefix+job.ID, data); err != nil {
		q.logger.Error("failed to persist job", "id", job.ID, "error", err)
	}
}

// startWorkers initializes a pool of worker goroutines
func (q *Queue) startWorkers(count int) {
	metrics.WorkerCount.Add(float64(count))
	for i := 0; i < count; i++ {
		q.workers.Add(1)
		go q.worker()
	}
}

// worker processes jobs from the queue
func (q *Queue) worker() {
	defer q.workers.Done()
	defer metrics.WorkerCount.Dec()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.tasks:
			metrics.JobsInQueue.Dec()
			q.processJob(job)
		}
	}
}

func (q *Queue) enqueue(job *Job) {
	select {
	case q.tasks <- job:
		metrics.JobsInQueue.Inc()
	case <-q.ctx.Done():
	}
}

// processJob handles the processing of a single job
func (q *Queue) processJob(job *Job) {
	q.mu.Lock()
	if _, live := q.jobs[job.ID]; !live {
		// deleted while waiting
		q.mu.Unlock()
		return
	}
	job.Status = StatusProcessing
	job.Attempts++
	job.Updated = time.Now()
	q.persist(job)
	q.mu.Unlock()

	start := time.Now()
	err := q.processor.Process(q.ctx, job)
	metrics.JobProcessingDuration.WithLabelValues(job.Type).Observe(time.Since(start).Seconds())

	if q.ctx.Err() != nil {
		// Shut down mid-run: the stored record stays "processing" and the next
		// queue over the same store picks it up again.
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if err != nil {
		metrics.JobsProcessed.WithLabelValues(job.Type, StatusFailed).Inc()
		job.Status = StatusFailed
		job.Error = err.Error()
		if job.Attempts < q.config.MaxRetries {
			job.Status = StatusPending
			time.AfterFunc(q.config.RetryBackoff, func() {
				q.enqueue(job)
			})
		}
		q.logger.Warn("job failed", "id", job.ID, "type", job.Type, "attempt", job.Attempts, "error", err)
	} else {
		metrics.JobsProcessed.WithLabelValues(job.Type, StatusCompleted).Inc()
		job.Status = StatusCompleted
		job.Error = ""
	}
	job.Updated = time.Now()
	if _, live := q.jobs[job.ID]; live {
		q.persist(job)
	}
}

// AddJob adds a new job to the queue
func (q *Queue) AddJob(jobType string, payload []byte) string {
	job := &Job{
		ID:      generateID(),
		Type:    jobType,
		Payload: payload,
		Status:  StatusPending,
		Created: time.Now(),
		Updated: time.Now(),
	}

	q.mu.Lock()
	q.jobs[job.ID] = job
	q.persist(job)
	q.mu.Unlock()

	q.enqueue(job)
	return job.ID
}

// GetJob retrieves a job by ID
func (q *Queue) GetJob(id string) (*Job, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	job, exists := q.jobs[id]
	if !exists {
		return nil, false
	}
	// Return a copy to avoid exposing internal mutable state and prevent data races
	jobCopy := *job
	return &jobCopy, true
}

// ListJobs returns copies of every known job, oldest first
func (q *Queue) ListJobs() []*Job {
	q.mu.RLock()
	jobs := make([]*Job, 0, len(q.jobs))
	for _, job := range q.jobs {
		jobCopy := *job
		jobs = append(jobs, &jobCopy)
	}
	q.mu.RUnlock()

	slices.SortFunc(jobs, func(a, b *Job) int { return a.Created.Compare(b.Created) })
	return jobs
}

// DeleteJob forgets a job and removes its record. A job already running
// finishes but its outcome is not recorded.
func (q *Queue) DeleteJob(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.jobs[id]; !exists {
		return ErrJobNotFound
	}
	delete(q.jobs, id)
	if q.store != nil {
		if _, _, err := q.store.Delete(context.Background(), jobKeyPrefix+id); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown stops the workers. Handlers still running after a short grace
// period are abandoned; their jobs are retried by the next queue over the
// same store.
func (q *Queue) Shutdown() {
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownGrace):
		q.logger.Warn("job handlers still running at shutdown")
	}
}

// generateID creates a unique job ID using UUID
func generateID() string {
	return uuid.New().String()
}
