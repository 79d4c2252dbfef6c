package metrics

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stewardlab/steward/internal/clock"
	"github.com/stewardlab/steward/model"
)

func TestIncrementDailyUpserts(t *testing.T) {
	ctx := context.Background()
	svc := New()

	err := svc.IncrementDaily(ctx, "u1", func(m *model.DailyMetrics) {
		m.TasksCompleted++
		m.TimeSavedMinutes += 5
	})
	assert.NoError(t, err)

	row, err := svc.Daily(ctx, "u1", clock.Today())
	assert.NoError(t, err)
	assert.Equal(t, 1, row.TasksCompleted)
	assert.InDelta(t, 5, row.TimeSavedMinutes, 1e-9)
}

func TestConcurrentIncrementsNeverLoseUpdates(t *testing.T) {
	ctx := context.Background()
	svc := New()

	const workers = 32
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_ = svc.IncrementDaily(ctx, "u1", func(m *model.DailyMetrics) {
				m.TasksCompleted++
			})
		}()
	}
	wg.Wait()

	row, err := svc.Daily(ctx, "u1", clock.Today())
	assert.NoError(t, err)
	assert.Equal(t, workers, row.TasksCompleted)
}

func TestRecordActivityAssignsIdentity(t *testing.T) {
	ctx := context.Background()
	svc := New()

	entry := &model.ActivityLog{Principal: "u1", TaskID: "t1", Kind: model.ActionEmailDraft, ExecutionStatus: "completed"}
	assert.NoError(t, svc.RecordActivity(ctx, entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())

	logs, err := svc.Activity(ctx, "u1")
	assert.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestHistoryFiltersPrincipalAndDate(t *testing.T) {
	ctx := context.Background()
	svc := New()

	assert.NoError(t, svc.IncrementDaily(ctx, "u1", func(m *model.DailyMetrics) { m.TasksCompleted++ }))
	assert.NoError(t, svc.IncrementDaily(ctx, "u2", func(m *model.DailyMetrics) { m.TasksCompleted++ }))

	rows, err := svc.History(ctx, "u1", "")
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, "u1", rows[0].Principal)

	rows, err = svc.History(ctx, "u1", clock.Today())
	assert.NoError(t, err)
	assert.Len(t, rows, 1)

	rows, err = svc.History(ctx, "u1", "1999-01-01")
	assert.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDailyUnknownDateIsZero(t *testing.T) {
	ctx := context.Background()
	svc := New()

	row, err := svc.Daily(ctx, "u1", "1999-01-01")
	assert.NoError(t, err)
	assert.Zero(t, row.TasksCompleted)
	assert.Zero(t, row.SuccessRate())
}
