package steward

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stewardlab/steward/model"
	"github.com/stewardlab/steward/service/approval"
	"github.com/stewardlab/steward/service/pipeline"
)

func newEngine(t *testing.T, ctx context.Context, options ...Option) *Runtime {
	t.Helper()
	engine := New(options...)
	runtime := engine.Runtime()
	assert.NoError(t, runtime.Start(ctx))
	t.Cleanup(func() { _ = runtime.Shutdown(context.Background()) })
	return runtime
}

func TestFullAutoTaskCompletes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runtime := newEngine(t, ctx)

	// calendar_view needs full_auto trust; the default configuration tops
	// out at approved, so grant it first.
	_, err := runtime.UpdateTrust(ctx, "alice", func(c *model.TrustConfiguration) {
		c.GlobalTrustLevel = model.TrustFullAuto
	})
	assert.NoError(t, err)

	task, err := runtime.SubmitTask(ctx, &SubmitRequest{
		Principal: "alice",
		Kind:      model.ActionCalendarView,
		Title:     "check today's agenda",
	})
	assert.NoError(t, err)
	assert.EqualValues(t, model.TaskStatePending, task.Status)

	done, err := runtime.WaitForTask(ctx, task.ID, 2*time.Second)
	assert.NoError(t, err)
	assert.EqualValues(t, model.TaskStateCompleted, done.Status)
	assert.Equal(t, "completed", done.Result["status"])

	logs, err := runtime.Activity(ctx, "alice")
	assert.NoError(t, err)
	assert.Len(t, logs, 1)
	assert.Equal(t, "auto", logs[0].ApprovalStatus)

	daily, err := runtime.Metrics(ctx, "alice", "")
	assert.NoError(t, err)
	assert.Equal(t, 1, daily.TasksCompleted)
	assert.Equal(t, 1, daily.AutoCompleted)
	assert.EqualValues(t, 1, daily.SuccessRate())
}

func TestFinancialTransactionRequiresApproval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runtime := newEngine(t, ctx)

	task, err := runtime.SubmitTask(ctx, &SubmitRequest{
		Principal: "alice",
		Kind:      model.ActionFinancialTransaction,
		Title:     "pay the electricity bill",
		Payload:   map[string]interface{}{"amount": 500.0, "recipient": "utility co"},
	})
	assert.NoError(t, err)
	assert.EqualValues(t, model.TaskStateAwaitingApproval, task.Status)
	assert.False(t, task.Reversible)
	assert.Equal(t, 2, task.Priority)

	pending, err := runtime.PendingApprovals(ctx, "alice")
	assert.NoError(t, err)
	assert.Len(t, pending, 1)
	request := pending[0]
	assert.Equal(t, task.ID, request.TaskID)
	assert.Equal(t, "This action is IRREVERSIBLE.", request.ConsequenceDescription)
	assert.NotNil(t, request.ExpiresAt)

	fetched, err := runtime.Approval(ctx, request.ID)
	assert.NoError(t, err)
	assert.Equal(t, task.ID, fetched.TaskID)

	decision, err := runtime.RespondToApproval(ctx, request.ID, true, "alice", "confirmed")
	assert.NoError(t, err)
	assert.True(t, decision.Approved)

	done, err := runtime.WaitForTask(ctx, task.ID, 2*time.Second)
	assert.NoError(t, err)
	assert.EqualValues(t, model.TaskStateCompleted, done.Status)
	assert.Equal(t, "alice", done.ApprovedBy)
	assert.Equal(t, "executed", done.Result["status"])

	// A contradictory duplicate response observes the original outcome.
	again, err := runtime.RespondToApproval(ctx, request.ID, false, "alice", "no wait")
	assert.ErrorIs(t, err, approval.ErrAlreadyResolved)
	assert.Equal(t, decision, again)

	daily, _ := runtime.Metrics(ctx, "alice", "")
	assert.Equal(t, 1, daily.ApprovalsRequested)
	assert.Equal(t, 1, daily.ApprovalsGranted)
	assert.Zero(t, daily.AutoCompleted)
}

func TestDeniedApprovalCancelsTask(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runtime := newEngine(t, ctx)

	task, err := runtime.SubmitTask(ctx, &SubmitRequest{
		Principal: "bob",
		Kind:      model.ActionExternalCommunication,
		Title:     "post the announcement",
		Payload:   map[string]interface{}{"recipient": "everyone@example.com"},
	})
	assert.NoError(t, err)
	assert.EqualValues(t, model.TaskStateAwaitingApproval, task.Status)
	assert.Equal(t, 3, task.Priority)

	pending, _ := runtime.PendingApprovals(ctx, "bob")
	assert.Len(t, pending, 1)

	decision, err := runtime.RespondToApproval(ctx, pending[0].ID, false, "bob", "not yet")
	assert.NoError(t, err)
	assert.False(t, decision.Approved)

	cancelled, err := runtime.Task(ctx, task.ID)
	assert.NoError(t, err)
	assert.EqualValues(t, model.TaskStateCancelled, cancelled.Status)
	assert.Equal(t, "not yet", cancelled.Error)

	daily, _ := runtime.Metrics(ctx, "bob", "")
	assert.Equal(t, 1, daily.ApprovalsDenied)
}

func TestEmergencyStopHaltsEverything(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runtime := newEngine(t, ctx)

	// Park three running tasks directly; the worker pool is busy elsewhere.
	s := runtime.service
	for _, id := range []string{"r1", "r2", "r3"} {
		task := model.NewTask(id, "carol", model.ActionDataAnalysis, "crunch", nil)
		task.Start()
		assert.NoError(t, s.taskDAO.Save(ctx, task))
	}

	affected, err := runtime.EmergencyStop(ctx, "carol")
	assert.NoError(t, err)
	assert.Equal(t, 3, affected)

	paused, err := runtime.TasksByStatus(ctx, "carol", model.TaskStatePaused)
	assert.NoError(t, err)
	assert.Len(t, paused, 3)

	_, err = runtime.SubmitTask(ctx, &SubmitRequest{
		Principal: "carol",
		Kind:      model.ActionReminderCreate,
		Title:     "ping me",
	})
	assert.ErrorIs(t, err, ErrSystemHalted)

	status, _ := runtime.Status(ctx, "carol")
	assert.EqualValues(t, model.EngineEmergencyStop, status.Status)
}

func TestPauseDefersExecutionUntilResume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runtime := newEngine(t, ctx)

	_, err := runtime.UpdateTrust(ctx, "dave", func(c *model.TrustConfiguration) {
		c.GlobalTrustLevel = model.TrustFullAuto
	})
	assert.NoError(t, err)

	_, err = runtime.Pause(ctx, "dave", "lunch")
	assert.NoError(t, err)

	// Intake still accepts while paused; execution is deferred.
	task, err := runtime.SubmitTask(ctx, &SubmitRequest{
		Principal: "dave",
		Kind:      model.ActionReminderCreate,
		Title:     "stretch",
	})
	assert.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	parked, _ := runtime.Task(ctx, task.ID)
	assert.EqualValues(t, model.TaskStatePending, parked.Status)
	assert.Nil(t, parked.StartedAt)

	_, err = runtime.Resume(ctx, "dave")
	assert.NoError(t, err)

	done, err := runtime.WaitForTask(ctx, task.ID, 2*time.Second)
	assert.NoError(t, err)
	assert.EqualValues(t, model.TaskStateCompleted, done.Status)
}

func TestTrustSeedUnlocksFullAuto(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runtime := newEngine(t, ctx)

	// email_draft needs pre_approved trust; the default configuration tops
	// out at approved, so it is gated.
	gated, err := runtime.SubmitTask(ctx, &SubmitRequest{
		Principal: "erin",
		Kind:      model.ActionEmailDraft,
		Title:     "draft the weekly update",
	})
	assert.NoError(t, err)
	assert.EqualValues(t, model.TaskStateAwaitingApproval, gated.Status)

	_, err = runtime.UpdateTrust(ctx, "erin", func(c *model.TrustConfiguration) {
		c.GlobalTrustLevel = model.TrustFullAuto
	})
	assert.NoError(t, err)

	auto, err := runtime.SubmitTask(ctx, &SubmitRequest{
		Principal: "erin",
		Kind:      model.ActionEmailDraft,
		Title:     "draft the weekly update",
	})
	assert.NoError(t, err)

	done, err := runtime.WaitForTask(ctx, auto.ID, 2*time.Second)
	assert.NoError(t, err)
	assert.EqualValues(t, model.TaskStateCompleted, done.Status)
	assert.Equal(t, "drafted", done.Result["status"])
}

func TestActivityPersistedToFileStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	baseURL := "mem://localhost/steward/e2e-activity"
	runtime := newEngine(t, ctx, WithActivityBaseURL(baseURL))

	_, err := runtime.UpdateTrust(ctx, "frank", func(c *model.TrustConfiguration) {
		c.GlobalTrustLevel = model.TrustFullAuto
	})
	assert.NoError(t, err)

	task, err := runtime.SubmitTask(ctx, &SubmitRequest{
		Principal: "frank",
		Kind:      model.ActionTaskOrganize,
		Title:     "tidy the backlog",
	})
	assert.NoError(t, err)
	_, err = runtime.WaitForTask(ctx, task.ID, 2*time.Second)
	assert.NoError(t, err)

	logs, err := runtime.Activity(ctx, "frank")
	assert.NoError(t, err)
	assert.Len(t, logs, 1)
	assert.Equal(t, task.ID, logs[0].TaskID)
}

func TestBlockedSubmissionValidation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runtime := newEngine(t, ctx)

	_, err := runtime.SubmitTask(ctx, &SubmitRequest{
		Principal: "gail",
		Kind:      "launch_rocket",
		Title:     "to the moon",
	})
	assert.ErrorIs(t, err, pipeline.ErrValidation)
}
