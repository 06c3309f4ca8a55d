package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/erp-timetable-api/internal/dto"
	appErrors "github.com/noah-isme/erp-timetable-api/pkg/errors"
)

type runnerStub struct {
	mu     sync.Mutex
	calls  [][]string
	result *dto.GenerationResult
	err    error
}

func (r *runnerStub) GenerateAll(ctx context.Context, req dto.GenerateAllRequest) (*dto.GenerationResult, error) {
	r.mu.Lock()
	r.calls = append(r.calls, req.ConfigIDs)
	r.mu.Unlock()
	return r.result, r.err
}

func startJobService(t *testing.T, runner generationRunner) *GenerationJobService {
	t.Helper()
	svc := NewGenerationJobService(runner, NewMetricsService(), nil, nil, GenerationJobConfig{TTL: time.Minute})
	svc.Start(context.Background())
	t.Cleanup(svc.Stop)
	return svc
}

func waitForStatus(t *testing.T, svc *GenerationJobService, id, status string) *dto.GenerationJob {
	t.Helper()
	var job *dto.GenerationJob
	require.Eventually(t, func() bool {
		current, err := svc.Get(id)
		if err != nil {
			return false
		}
		job = current
		return current.Status == status
	}, 2*time.Second, 10*time.Millisecond)
	return job
}

func TestGenerationJobServiceRunsJob(t *testing.T) {
	runner := &runnerStub{result: &dto.GenerationResult{Seed: 7, Warnings: []string{}}}
	svc := startJobService(t, runner)

	job, err := svc.Submit(context.Background(), dto.GenerateAllRequest{ConfigIDs: []string{"cfg-1", "cfg-2"}})
	require.NoError(t, err)
	assert.Equal(t, dto.JobStatusPending, job.Status)

	done := waitForStatus(t, svc, job.ID, dto.JobStatusSucceeded)
	require.NotNil(t, done.Result)
	assert.Equal(t, int64(7), done.Result.Seed)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.FinishedAt)
	assert.Equal(t, [][]string{{"cfg-1", "cfg-2"}}, runner.calls)
}

func TestGenerationJobServiceRecordsFailure(t *testing.T) {
	runner := &runnerStub{err: appErrors.Wrap(errors.New("boom"), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store timetable")}
	svc := startJobService(t, runner)

	job, err := svc.Submit(context.Background(), dto.GenerateAllRequest{ConfigIDs: []string{"cfg-1"}})
	require.NoError(t, err)

	failed := waitForStatus(t, svc, job.ID, dto.JobStatusFailed)
	assert.Equal(t, "failed to store timetable", failed.Error)
	assert.Nil(t, failed.Result)
}

func TestGenerationJobServiceValidatesPayload(t *testing.T) {
	svc := startJobService(t, &runnerStub{})

	_, err := svc.Submit(context.Background(), dto.GenerateAllRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGenerationJobServiceUnknownJob(t *testing.T) {
	svc := startJobService(t, &runnerStub{})

	_, err := svc.Get("missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestJobStoreExpiresFinishedJobs(t *testing.T) {
	store := newJobStore(time.Minute)
	finished := time.Now().Add(-2 * time.Minute)
	store.Save(dto.GenerationJob{ID: "old", Status: dto.JobStatusSucceeded, FinishedAt: &finished})
	store.Save(dto.GenerationJob{ID: "pending", Status: dto.JobStatusPending, CreatedAt: time.Now().Add(-time.Hour)})

	_, ok := store.Get("old")
	assert.False(t, ok)
	_, ok = store.Get("pending")
	assert.True(t, ok)
}

type blockingRunner struct {
	started chan struct{}
}

func (r *blockingRunner) GenerateAll(ctx context.Context, req dto.GenerateAllRequest) (*dto.GenerationResult, error) {
	r.started <- struct{}{}
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestGenerationJobServiceStopFailsQueuedJobs(t *testing.T) {
	runner := &blockingRunner{started: make(chan struct{}, 1)}
	svc := NewGenerationJobService(runner, NewMetricsService(), nil, nil, GenerationJobConfig{TTL: time.Minute})
	svc.Start(context.Background())

	running, err := svc.Submit(context.Background(), dto.GenerateAllRequest{ConfigIDs: []string{"cfg-1"}})
	require.NoError(t, err)
	select {
	case <-runner.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first job did not start")
	}
	queued, err := svc.Submit(context.Background(), dto.GenerateAllRequest{ConfigIDs: []string{"cfg-2"}})
	require.NoError(t, err)

	svc.Stop()

	for _, id := range []string{running.ID, queued.ID} {
		job, err := svc.Get(id)
		require.NoError(t, err)
		assert.Equal(t, dto.JobStatusFailed, job.Status)
		assert.NotNil(t, job.FinishedAt)
	}
	job, _ := svc.Get(queued.ID)
	assert.Equal(t, "generation service stopped before the job ran", job.Error)
}

func TestJobStoreFailUnfinishedLetsJobsExpire(t *testing.T) {
	store := newJobStore(time.Minute)
	store.Save(dto.GenerationJob{ID: "pending", Status: dto.JobStatusPending})

	past := time.Now().Add(-2 * time.Minute)
	assert.Equal(t, []string{"pending"}, store.FailUnfinished(past, "stopped"))
	assert.Empty(t, store.FailUnfinished(past, "stopped"))

	_, ok := store.Get("pending")
	assert.False(t, ok)
}
