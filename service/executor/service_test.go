package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stewardlab/steward/model"
	"github.com/stewardlab/steward/service/action"
	"github.com/stewardlab/steward/service/action/sim"
)

func TestExecuteConvertsPayload(t *testing.T) {
	registry := action.NewRegistry()
	sim.Register(registry)
	svc := New(registry)

	task := model.NewTask("t-100", "u1", model.ActionFinancialTransaction, "pay invoice",
		map[string]interface{}{"amount": 42.5, "recipient": "acme corp"})
	result, err := svc.Execute(context.Background(), task)
	assert.NoError(t, err)
	assert.Equal(t, "executed", result["status"])
	assert.EqualValues(t, 42.5, result["amount"])
	assert.Equal(t, "acme corp", result["recipient"])
}

func TestExecuteUnknownKind(t *testing.T) {
	svc := New(action.NewRegistry())
	task := model.NewTask("t-101", "u1", model.ActionEmailDraft, "draft", nil)
	_, err := svc.Execute(context.Background(), task)
	assert.ErrorIs(t, err, ErrHandlerNotFound)
}

func TestListenerObservesCalls(t *testing.T) {
	registry := action.NewRegistry()
	sim.Register(registry)

	var seen *model.Task
	svc := New(registry, WithListener(func(task *model.Task, input interface{}, result map[string]interface{}, err error) {
		seen = task
		assert.NoError(t, err)
		assert.IsType(t, &action.ReminderInput{}, input)
	}))

	task := model.NewTask("t-102", "u1", model.ActionReminderCreate, "water plants",
		map[string]interface{}{"text": "water plants", "remindAt": "2026-09-01T08:00:00Z"})
	_, err := svc.Execute(context.Background(), task)
	assert.NoError(t, err)
	assert.Equal(t, task, seen)
}

func TestExecuteEmptyPayloadUsesZeroInput(t *testing.T) {
	registry := action.NewRegistry()
	sim.Register(registry)
	svc := New(registry)

	task := model.NewTask("t-103", "u1", model.ActionCalendarView, "agenda", nil)
	result, err := svc.Execute(context.Background(), task)
	assert.NoError(t, err)
	assert.Equal(t, "completed", result["status"])
}
