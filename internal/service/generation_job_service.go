package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/erp-timetable-api/internal/dto"
	appErrors "github.com/noah-isme/erp-timetable-api/pkg/errors"
	"github.com/noah-isme/erp-timetable-api/pkg/jobs"
)

const generationJobType = "timetable.generate_all"

type generationRunner interface {
	GenerateAll(ctx context.Context, req dto.GenerateAllRequest) (*dto.GenerationResult, error)
}

// GenerationJobConfig governs asynchronous generation.
type GenerationJobConfig struct {
	// TTL is how long finished jobs stay queryable.
	TTL        time.Duration
	BufferSize int
	// Timeout bounds a single run; zero means no limit.
	Timeout time.Duration
}

// GenerationJobService runs generate-all requests on a single background
// worker so that runs never overlap.
type GenerationJobService struct {
	runner    generationRunner
	queue     *jobs.Queue
	store     *jobStore
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGenerationJobService wires the queue. Call Start before Submit.
func NewGenerationJobService(runner generationRunner, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg GenerationJobConfig) *GenerationJobService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 16
	}
	svc := &GenerationJobService{
		runner:    runner,
		store:     newJobStore(cfg.TTL),
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
	svc.queue = jobs.NewQueue("timetable-generation", svc.handle, jobs.QueueConfig{
		Workers:    1,
		BufferSize: cfg.BufferSize,
		JobTimeout: cfg.Timeout,
		Logger:     logger,
		OnDone: func(jobs.Job, time.Duration, error) {
			svc.metrics.SetQueueDepth(svc.queue.Depth())
		},
	})
	return svc
}

// Start launches the worker.
func (s *GenerationJobService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop waits for the worker to exit. Jobs that never ran are marked failed so
// they expire like any finished job.
func (s *GenerationJobService) Stop() {
	s.queue.Stop()
	if dropped := s.store.FailUnfinished(time.Now().UTC(), "generation service stopped before the job ran"); len(dropped) > 0 {
		s.logger.Warn("generation jobs dropped on shutdown", zap.Strings("job_ids", dropped))
	}
	s.metrics.SetQueueDepth(0)
}

// Submit queues a generate-all run and returns the pending job.
func (s *GenerationJobService) Submit(ctx context.Context, req dto.GenerateAllRequest) (*dto.GenerationJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generate all payload")
	}
	job := dto.GenerationJob{
		ID:        uuid.NewString(),
		Status:    dto.JobStatusPending,
		ConfigIDs: req.ConfigIDs,
		CreatedAt: time.Now().UTC(),
	}
	s.store.Save(job)

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: generationJobType, Payload: req}); err != nil {
		s.store.Delete(job.ID)
		if errors.Is(err, jobs.ErrQueueFull) {
			return nil, appErrors.Wrap(err, "QUEUE_FULL", http.StatusTooManyRequests, "generation queue is full, retry later")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue generation job")
	}
	s.metrics.SetQueueDepth(s.queue.Depth())
	s.logger.Info("generation job queued", zap.String("job_id", job.ID), zap.Strings("config_ids", req.ConfigIDs))
	return &job, nil
}

// Get returns the current state of a job.
func (s *GenerationJobService) Get(id string) (*dto.GenerationJob, error) {
	job, ok := s.store.Get(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "generation job not found or expired")
	}
	return &job, nil
}

func (s *GenerationJobService) handle(ctx context.Context, j jobs.Job) error {
	s.metrics.SetQueueDepth(s.queue.Depth())
	req, ok := j.Payload.(dto.GenerateAllRequest)
	if !ok {
		return fmt.Errorf("unexpected payload %T for job %s", j.Payload, j.ID)
	}

	started := time.Now().UTC()
	s.store.Update(j.ID, func(job *dto.GenerationJob) {
		job.Status = dto.JobStatusRunning
		job.StartedAt = &started
	})

	result, err := s.runner.GenerateAll(ctx, req)
	finished := time.Now().UTC()
	s.store.Update(j.ID, func(job *dto.GenerationJob) {
		job.FinishedAt = &finished
		if err != nil {
			job.Status = dto.JobStatusFailed
			job.Error = appErrors.FromError(err).Message
			return
		}
		job.Status = dto.JobStatusSucceeded
		job.Result = result
	})
	return err
}

// jobStore keeps job state in memory. Finished jobs expire after ttl.
type jobStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]dto.GenerationJob
}

func newJobStore(ttl time.Duration) *jobStore {
	return &jobStore{
		ttl:   ttl,
		items: make(map[string]dto.GenerationJob),
	}
}

func (s *jobStore) Save(job dto.GenerationJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(time.Now())
	s.items[job.ID] = job
}

func (s *jobStore) Update(id string, mutate func(job *dto.GenerationJob)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.items[id]
	if !ok {
		return
	}
	mutate(&job)
	s.items[id] = job
}

func (s *jobStore) Get(id string) (dto.GenerationJob, bool) {
	s.mu.RLock()
	job, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return dto.GenerationJob{}, false
	}
	if s.expired(job, time.Now()) {
		s.Delete(id)
		return dto.GenerationJob{}, false
	}
	return job, true
}

// FailUnfinished closes every job without a finish time and returns their ids.
func (s *jobStore) FailUnfinished(now time.Time, reason string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0)
	for id, job := range s.items {
		if job.FinishedAt != nil {
			continue
		}
		finished := now
		job.Status = dto.JobStatusFailed
		job.Error = reason
		job.FinishedAt = &finished
		s.items[id] = job
		ids = append(ids, id)
	}
	return ids
}

func (s *jobStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

func (s *jobStore) expired(job dto.GenerationJob, now time.Time) bool {
	return job.FinishedAt != nil && now.Sub(*job.FinishedAt) > s.ttl
}

func (s *jobStore) sweepLocked(now time.Time) {
	for id, job := range s.items {
		if s.expired(job, now) {
			delete(s.items, id)
		}
	}
}
