package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskTransitions(t *testing.T) {
	task := NewTask("t1", "u1", ActionEmailDraft, "draft intro email", nil)
	assert.EqualValues(t, TaskStatePending, task.Status)
	assert.True(t, task.Status.Runnable())

	task.Start()
	assert.EqualValues(t, TaskStateRunning, task.Status)
	assert.NotNil(t, task.StartedAt)

	task.Complete(map[string]interface{}{"draft_id": "d1"})
	assert.EqualValues(t, TaskStateCompleted, task.Status)
	assert.NotNil(t, task.CompletedAt)
	assert.True(t, task.Status.Terminal())
	assert.Empty(t, task.Error)
}

func TestTaskRetryAndFail(t *testing.T) {
	task := NewTask("t2", "u1", ActionReminderCreate, "remind me", nil)
	task.Start()
	task.Retry(errors.New("transient"))

	assert.EqualValues(t, TaskStatePending, task.Status)
	assert.Equal(t, 1, task.RetryCount)
	assert.Equal(t, "transient", task.Error)

	task.Start()
	task.Fail(errors.New("gave up"))
	assert.EqualValues(t, TaskStateFailed, task.Status)
	assert.Equal(t, "gave up", task.Error)
	assert.NotNil(t, task.CompletedAt)
}

func TestTaskApprovalStamps(t *testing.T) {
	task := NewTask("t3", "u1", ActionFinancialTransaction, "pay invoice", nil)
	task.AwaitApproval()
	assert.EqualValues(t, TaskStateAwaitingApproval, task.Status)
	assert.Nil(t, task.ApprovedAt)

	task.Approve("owner")
	assert.EqualValues(t, TaskStateApproved, task.Status)
	assert.Equal(t, "owner", task.ApprovedBy)
	assert.NotNil(t, task.ApprovedAt)
	assert.True(t, task.Status.Runnable())
}

func TestTaskClone(t *testing.T) {
	task := NewTask("t4", "u1", ActionTaskOrganize, "tidy inbox", map[string]interface{}{"folder": "inbox"})
	clone := task.Clone()
	clone.Payload["folder"] = "archive"
	clone.Status = TaskStateRunning

	assert.Equal(t, "inbox", task.Payload["folder"])
	assert.EqualValues(t, TaskStatePending, task.Status)
}

func TestActionKindValid(t *testing.T) {
	for _, kind := range Kinds() {
		assert.True(t, kind.Valid(), string(kind))
	}
	assert.False(t, ActionKind("mind_reading").Valid())
}
