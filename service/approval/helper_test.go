package approval_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stewardlab/steward/model"
	approval "github.com/stewardlab/steward/service/approval"
	memApproval "github.com/stewardlab/steward/service/approval/memory"
	"github.com/stewardlab/steward/service/dao"
	"github.com/stewardlab/steward/service/dao/store"
)

func newTaskDAO() dao.Service[string, model.Task] {
	return store.NewMemoryStore[string, model.Task](
		func(t *model.Task) string { return t.ID },
		store.WithCloner[string, model.Task]((*model.Task).Clone))
}

func newAwaitingTask(ctx context.Context, t *testing.T, taskDAO dao.Service[string, model.Task], id string) *model.Task {
	task := model.NewTask(id, "u1", model.ActionEmailSend, "send mail",
		map[string]interface{}{"recipient": "bob@example.com"})
	task.AwaitApproval()
	assert.NoError(t, taskDAO.Save(ctx, task))
	return task
}

func TestDecideApproveTransitionsTask(t *testing.T) {
	ctx := context.Background()
	taskDAO := newTaskDAO()
	svc := memApproval.New(taskDAO)

	task := newAwaitingTask(ctx, t, taskDAO, "t1")
	request := approval.NewRequest("r1", task, "Send mail to bob", 0)
	assert.NoError(t, svc.RequestApproval(ctx, request))

	decision, err := svc.Decide(ctx, "r1", true, "u1", "looks good")
	assert.NoError(t, err)
	assert.True(t, decision.Approved)

	reloaded, _ := taskDAO.Load(ctx, "t1")
	assert.EqualValues(t, model.TaskStateApproved, reloaded.Status)
	assert.Equal(t, "u1", reloaded.ApprovedBy)
	assert.NotNil(t, reloaded.ApprovedAt)
}

func TestDecideDenyCancelsTask(t *testing.T) {
	ctx := context.Background()
	taskDAO := newTaskDAO()
	svc := memApproval.New(taskDAO)

	task := newAwaitingTask(ctx, t, taskDAO, "t2")
	assert.NoError(t, svc.RequestApproval(ctx, approval.NewRequest("r2", task, "Send mail", 0)))

	decision, err := svc.Decide(ctx, "r2", false, "u1", "not now")
	assert.NoError(t, err)
	assert.False(t, decision.Approved)

	reloaded, _ := taskDAO.Load(ctx, "t2")
	assert.EqualValues(t, model.TaskStateCancelled, reloaded.Status)
	assert.Equal(t, "not now", reloaded.Error)
}

func TestDecideIsIdempotent(t *testing.T) {
	ctx := context.Background()
	taskDAO := newTaskDAO()
	svc := memApproval.New(taskDAO)

	task := newAwaitingTask(ctx, t, taskDAO, "t3")
	assert.NoError(t, svc.RequestApproval(ctx, approval.NewRequest("r3", task, "Send mail", 0)))

	first, err := svc.Decide(ctx, "r3", false, "u1", "denied")
	assert.NoError(t, err)

	// A contradictory second response observes the first outcome.
	second, err := svc.Decide(ctx, "r3", true, "u1", "changed my mind")
	assert.ErrorIs(t, err, approval.ErrAlreadyResolved)
	assert.Equal(t, first, second)

	reloaded, _ := taskDAO.Load(ctx, "t3")
	assert.EqualValues(t, model.TaskStateCancelled, reloaded.Status)
}

func TestDecideUnknownRequest(t *testing.T) {
	svc := memApproval.New(newTaskDAO())
	_, err := svc.Decide(context.Background(), "nope", true, "u1", "")
	assert.ErrorIs(t, err, approval.ErrNotFound)
}

func TestExpireCancelsOverdueRequests(t *testing.T) {
	ctx := context.Background()
	taskDAO := newTaskDAO()
	svc := memApproval.New(taskDAO)

	task := newAwaitingTask(ctx, t, taskDAO, "t4")
	request := approval.NewRequest("r4", task, "Send mail", 0)
	past := time.Now().Add(-time.Minute)
	request.ExpiresAt = &past
	assert.NoError(t, svc.RequestApproval(ctx, request))

	fresh := newAwaitingTask(ctx, t, taskDAO, "t5")
	assert.NoError(t, svc.RequestApproval(ctx, approval.NewRequest("r5", fresh, "Send mail", 0)))

	expired, err := svc.Expire(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, expired)

	reloaded, _ := taskDAO.Load(ctx, "t4")
	assert.EqualValues(t, model.TaskStateCancelled, reloaded.Status)

	// A late response to the expired request is rejected.
	_, err = svc.Decide(ctx, "r4", true, "u1", "too late")
	assert.ErrorIs(t, err, approval.ErrAlreadyResolved)

	// The fresh request is still answerable.
	_, err = svc.Decide(ctx, "r5", true, "u1", "")
	assert.NoError(t, err)
}

func TestDecideRefusesOverdueRequest(t *testing.T) {
	ctx := context.Background()
	taskDAO := newTaskDAO()
	svc := memApproval.New(taskDAO)

	task := newAwaitingTask(ctx, t, taskDAO, "t9")
	request := approval.NewRequest("r9", task, "Send mail", 0)
	past := time.Now().Add(-48 * time.Hour)
	request.ExpiresAt = &past
	assert.NoError(t, svc.RequestApproval(ctx, request))

	// No sweep has run, yet the overdue request is terminal: an approval
	// past the deadline must never execute the task.
	decision, err := svc.Decide(ctx, "r9", true, "u1", "late yes")
	assert.ErrorIs(t, err, approval.ErrAlreadyResolved)
	assert.Nil(t, decision)

	reloaded, _ := taskDAO.Load(ctx, "t9")
	assert.EqualValues(t, model.TaskStateCancelled, reloaded.Status)

	expired, _ := svc.Pending(ctx, "r9")
	assert.EqualValues(t, approval.StatusExpired, expired.Status)
}

func TestListPendingFiltersPrincipalAndStatus(t *testing.T) {
	ctx := context.Background()
	taskDAO := newTaskDAO()
	svc := memApproval.New(taskDAO)

	t1 := newAwaitingTask(ctx, t, taskDAO, "t6")
	assert.NoError(t, svc.RequestApproval(ctx, approval.NewRequest("r6", t1, "one", 0)))

	other := model.NewTask("t7", "u2", model.ActionEmailSend, "other", nil)
	other.AwaitApproval()
	assert.NoError(t, taskDAO.Save(ctx, other))
	assert.NoError(t, svc.RequestApproval(ctx, approval.NewRequest("r7", other, "two", 0)))

	pending, err := svc.ListPending(ctx, "u1")
	assert.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.Equal(t, "r6", pending[0].ID)

	_, err = svc.Decide(ctx, "r6", true, "u1", "")
	assert.NoError(t, err)
	pending, _ = svc.ListPending(ctx, "u1")
	assert.Empty(t, pending)
}

func TestAutoApprove(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	taskDAO := newTaskDAO()
	svc := memApproval.New(taskDAO)
	task := newAwaitingTask(ctx, t, taskDAO, "t8")
	assert.NoError(t, svc.RequestApproval(ctx, approval.NewRequest("r8", task, "auto", 0)))

	stop := approval.AutoApprove(ctx, svc, "u1", 5*time.Millisecond)
	defer stop()

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		reloaded, _ := taskDAO.Load(ctx, "t8")
		if reloaded.Status == model.TaskStateApproved {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("task was not auto approved in time")
}
