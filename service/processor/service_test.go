package processor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stewardlab/steward/model"
	"github.com/stewardlab/steward/service/action"
	"github.com/stewardlab/steward/service/action/sim"
	approvalmem "github.com/stewardlab/steward/service/approval/memory"
	"github.com/stewardlab/steward/service/control"
	"github.com/stewardlab/steward/service/dao"
	"github.com/stewardlab/steward/service/dao/store"
	"github.com/stewardlab/steward/service/executor"
	qmem "github.com/stewardlab/steward/service/messaging/memory"
	"github.com/stewardlab/steward/service/metrics"
	"github.com/stewardlab/steward/service/pipeline"
	"github.com/stewardlab/steward/service/trust"
)

func newTaskDAO() dao.Service[string, model.Task] {
	return store.NewMemoryStore[string, model.Task](
		func(t *model.Task) string { return t.ID },
		store.WithCloner[string, model.Task]((*model.Task).Clone))
}

func newProcessor(t *testing.T, taskDAO dao.Service[string, model.Task], exec executor.Service) (*Service, *qmem.Queue[model.Task]) {
	t.Helper()
	queue := qmem.NewQueue[model.Task](qmem.DefaultConfig())
	if exec == nil {
		registry := action.NewRegistry()
		sim.Register(registry)
		exec = executor.New(registry)
	}
	pipe := pipeline.New(taskDAO, trust.New(), control.New(taskDAO),
		approvalmem.New(taskDAO), exec, metrics.New())
	svc, err := New(taskDAO, queue, pipe,
		WithConfig(Config{WorkerCount: 3, RetryDelay: 5 * time.Millisecond}))
	assert.NoError(t, err)
	return svc, queue
}

func waitForStatus(t *testing.T, taskDAO dao.Service[string, model.Task], id string, want model.TaskState) *model.Task {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		task, err := taskDAO.Load(context.Background(), id)
		if err == nil && task.Status == want {
			return task
		}
		time.Sleep(5 * time.Millisecond)
	}
	task, _ := taskDAO.Load(context.Background(), id)
	t.Fatalf("task %s never reached %v, last state %v", id, want, task.Status)
	return nil
}

func TestProcessorCompletesQueuedTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	taskDAO := newTaskDAO()
	svc, queue := newProcessor(t, taskDAO, nil)
	assert.NoError(t, svc.Start(ctx))
	defer svc.Shutdown()

	for _, id := range []string{"t1", "t2", "t3"} {
		task := model.NewTask(id, "u1", model.ActionCalendarView, "agenda", nil)
		assert.NoError(t, taskDAO.Save(ctx, task))
		assert.NoError(t, queue.Publish(ctx, task))
	}
	for _, id := range []string{"t1", "t2", "t3"} {
		done := waitForStatus(t, taskDAO, id, model.TaskStateCompleted)
		assert.Equal(t, "completed", done.Result["status"])
	}
}

type flakyExecutor struct {
	failures int32
}

func (f *flakyExecutor) Execute(ctx context.Context, task *model.Task) (map[string]interface{}, error) {
	if atomic.AddInt32(&f.failures, -1) >= 0 {
		return nil, errors.New("transient failure")
	}
	return map[string]interface{}{"status": "completed"}, nil
}

func TestProcessorRetriesRecoverableFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	taskDAO := newTaskDAO()
	svc, queue := newProcessor(t, taskDAO, &flakyExecutor{failures: 2})
	assert.NoError(t, svc.Start(ctx))
	defer svc.Shutdown()

	task := model.NewTask("t-retry", "u1", model.ActionDataAnalysis, "crunch", nil)
	assert.NoError(t, taskDAO.Save(ctx, task))
	assert.NoError(t, queue.Publish(ctx, task))

	done := waitForStatus(t, taskDAO, "t-retry", model.TaskStateCompleted)
	assert.Equal(t, 2, done.RetryCount)
}

func TestProcessorExhaustsRetryBudget(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	taskDAO := newTaskDAO()
	svc, queue := newProcessor(t, taskDAO, &flakyExecutor{failures: 100})
	assert.NoError(t, svc.Start(ctx))
	defer svc.Shutdown()

	task := model.NewTask("t-fail", "u1", model.ActionDataAnalysis, "crunch", nil)
	task.MaxRetries = 2
	assert.NoError(t, taskDAO.Save(ctx, task))
	assert.NoError(t, queue.Publish(ctx, task))

	done := waitForStatus(t, taskDAO, "t-fail", model.TaskStateFailed)
	assert.Equal(t, 2, done.RetryCount)
	assert.Equal(t, "transient failure", done.Error)
}

func TestProcessorSkipsStalePayloads(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	taskDAO := newTaskDAO()
	svc, queue := newProcessor(t, taskDAO, nil)

	task := model.NewTask("t-stale", "u1", model.ActionCalendarView, "agenda", nil)
	assert.NoError(t, taskDAO.Save(ctx, task))
	assert.NoError(t, queue.Publish(ctx, task))

	// The task is cancelled after it was queued but before a worker saw it.
	cancelled, _ := taskDAO.Load(ctx, "t-stale")
	cancelled.Cancel("changed my mind")
	assert.NoError(t, taskDAO.Save(ctx, cancelled))

	assert.NoError(t, svc.Start(ctx))
	defer svc.Shutdown()

	time.Sleep(50 * time.Millisecond)
	reloaded, _ := taskDAO.Load(ctx, "t-stale")
	assert.EqualValues(t, model.TaskStateCancelled, reloaded.Status)
	assert.Nil(t, reloaded.StartedAt)
}
