package model

import (
	"time"
)

// TaskState represents the current lifecycle state of a task. The state field
// persisted on the task is the single source of truth for what happens next –
// phases and the control plane transition it, nothing else does.
type TaskState string

const (
	TaskStatePending          TaskState = "pending"
	TaskStateAwaitingApproval TaskState = "awaiting_approval"
	TaskStateApproved         TaskState = "approved"
	TaskStateRunning          TaskState = "running"
	TaskStatePaused           TaskState = "paused"
	TaskStateCompleted        TaskState = "completed"
	TaskStateFailed           TaskState = "failed"
	TaskStateRolledBack       TaskState = "rolled_back"
	TaskStateCancelled        TaskState = "cancelled"
)

// Terminal reports whether no further pipeline phase may run for the state.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCancelled, TaskStateRolledBack:
		return true
	}
	return false
}

// Runnable reports whether the execute phase may pick the task up.
func (s TaskState) Runnable() bool {
	return s == TaskStatePending || s == TaskStateApproved
}

// Task submission sources.
const (
	SourceUserInput    = "user_input"
	SourceScheduled    = "scheduled"
	SourceEventTrigger = "event_trigger"
	SourceSystem       = "system"
)

// DefaultPriority is the neutral priority assigned when the caller does not
// choose one; it is the only value intake auto-classification may override.
const DefaultPriority = 5

// DefaultRollbackWindowSeconds is how long a completed reversible action
// remains eligible for rollback.
const DefaultRollbackWindowSeconds = 30

// DefaultMaxRetries bounds execute attempts per task.
const DefaultMaxRetries = 3

// Task is a unit of requested work flowing through the six-phase pipeline.
type Task struct {
	ID                    string                 `json:"id"`
	Principal             string                 `json:"principal"`
	Kind                  ActionKind             `json:"kind"`
	Title                 string                 `json:"title"`
	Description           string                 `json:"description,omitempty"`
	Payload               map[string]interface{} `json:"payload,omitempty"`
	Status                TaskState              `json:"status"`
	RequiredTrustLevel    TrustLevel             `json:"requiredTrustLevel"`
	Reversible            bool                   `json:"reversible"`
	RollbackWindowSeconds int                    `json:"rollbackWindowSeconds"`
	Priority              int                    `json:"priority"`
	Source                string                 `json:"source"`
	RetryCount            int                    `json:"retryCount"`
	MaxRetries            int                    `json:"maxRetries"`
	Result                map[string]interface{} `json:"result,omitempty"`
	Error                 string                 `json:"error,omitempty"`
	CreatedAt             time.Time              `json:"createdAt"`
	UpdatedAt             time.Time              `json:"updatedAt"`
	StartedAt             *time.Time             `json:"startedAt,omitempty"`
	CompletedAt           *time.Time             `json:"completedAt,omitempty"`
	ApprovedAt            *time.Time             `json:"approvedAt,omitempty"`
	ApprovedBy            string                 `json:"approvedBy,omitempty"`
}

// NewTask creates a pending task with neutral defaults; intake refines the
// classification fields afterwards.
func NewTask(id, principal string, kind ActionKind, title string, payload map[string]interface{}) *Task {
	now := time.Now()
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return &Task{
		ID:                    id,
		Principal:             principal,
		Kind:                  kind,
		Title:                 title,
		Payload:               payload,
		Status:                TaskStatePending,
		RequiredTrustLevel:    TrustApproved,
		Reversible:            true,
		RollbackWindowSeconds: DefaultRollbackWindowSeconds,
		Priority:              DefaultPriority,
		Source:                SourceUserInput,
		MaxRetries:            DefaultMaxRetries,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

func (t *Task) touch() { t.UpdatedAt = time.Now() }

// Start marks the task as running and stamps StartedAt.
func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
	t.Status = TaskStateRunning
	t.touch()
}

// Complete marks the task as completed with its execution result.
func (t *Task) Complete(result map[string]interface{}) {
	now := time.Now()
	t.CompletedAt = &now
	t.Result = result
	t.Error = ""
	t.Status = TaskStateCompleted
	t.touch()
}

// Fail terminally fails the task, recording the error.
func (t *Task) Fail(err error) {
	now := time.Now()
	t.CompletedAt = &now
	if err != nil {
		t.Error = err.Error()
	}
	t.Status = TaskStateFailed
	t.touch()
}

// Retry returns the task to pending after a recoverable execution failure,
// recording the error and consuming one retry.
func (t *Task) Retry(err error) {
	t.RetryCount++
	if err != nil {
		t.Error = err.Error()
	}
	t.Status = TaskStatePending
	t.touch()
}

// Pause suspends a running task; only the control plane uses this transition.
func (t *Task) Pause() {
	t.Status = TaskStatePaused
	t.touch()
}

// Approve records a positive human response and readies the task for
// execution.
func (t *Task) Approve(responder string) {
	now := time.Now()
	t.ApprovedAt = &now
	t.ApprovedBy = responder
	t.Status = TaskStateApproved
	t.touch()
}

// AwaitApproval parks the task until its approval request is resolved.
func (t *Task) AwaitApproval() {
	t.Status = TaskStateAwaitingApproval
	t.touch()
}

// Cancel terminally cancels the task with an optional reason.
func (t *Task) Cancel(reason string) {
	now := time.Now()
	t.CompletedAt = &now
	if reason != "" {
		t.Error = reason
	}
	t.Status = TaskStateCancelled
	t.touch()
}

// Clone creates a deep copy of the task so that the caller can mutate it
// without affecting the original instance.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	clone := *t
	if t.Payload != nil {
		clone.Payload = make(map[string]interface{}, len(t.Payload))
		for k, v := range t.Payload {
			clone.Payload[k] = v
		}
	}
	if t.Result != nil {
		clone.Result = make(map[string]interface{}, len(t.Result))
		for k, v := range t.Result {
			clone.Result[k] = v
		}
	}
	if t.StartedAt != nil {
		at := *t.StartedAt
		clone.StartedAt = &at
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		clone.CompletedAt = &at
	}
	if t.ApprovedAt != nil {
		at := *t.ApprovedAt
		clone.ApprovedAt = &at
	}
	return &clone
}
