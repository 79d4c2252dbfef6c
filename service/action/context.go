package action

import (
	"context"

	"github.com/stewardlab/steward/model"
)

type contextKey string

// TaskKey carries the task being executed through handler invocations.
const TaskKey contextKey = "task"

// WithTask attaches the task under execution to the context.
func WithTask(ctx context.Context, task *model.Task) context.Context {
	return context.WithValue(ctx, TaskKey, task)
}

// TaskFromContext returns the task under execution, or nil.
func TaskFromContext(ctx context.Context) *model.Task {
	if value := ctx.Value(TaskKey); value != nil {
		if task, ok := value.(*model.Task); ok {
			return task
		}
	}
	return nil
}
