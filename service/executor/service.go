// Package executor dispatches a task to the handler registered for its
// action kind. The free-form task payload is converted into the handler's
// declared input type before the call, and an optional listener observes
// every invocation.
package executor

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/viant/structology/conv"

	"github.com/stewardlab/steward/model"
	"github.com/stewardlab/steward/service/action"
)

// ErrHandlerNotFound signals a task whose kind has no registered handler.
var ErrHandlerNotFound = errors.New("handler not found")

// Listener is invoked after every handler call, regardless of outcome.
type Listener func(task *model.Task, input interface{}, result map[string]interface{}, err error)

// Service executes tasks.
type Service interface {
	Execute(ctx context.Context, task *model.Task) (map[string]interface{}, error)
}

type service struct {
	registry  *action.Registry
	converter *conv.Converter
	listener  Listener
}

// Option customises the executor instance.
type Option func(*service)

// WithListener overrides the listener invoked after every executed task.
func WithListener(l Listener) Option {
	return func(s *service) { s.listener = l }
}

// Execute converts the task payload into the handler's input type and
// invokes the handler.
func (s *service) Execute(ctx context.Context, task *model.Task) (map[string]interface{}, error) {
	if task == nil {
		return nil, fmt.Errorf("task was empty")
	}
	handler := s.registry.Lookup(task.Kind)
	if handler == nil {
		return nil, fmt.Errorf("%w: %v", ErrHandlerNotFound, task.Kind)
	}
	input, err := s.typedInput(handler.Signature().Input, task.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to convert input for %v: %w", task.Kind, err)
	}
	result, err := handler.Execute(action.WithTask(ctx, task), input)
	if s.listener != nil {
		s.listener(task, input, result, err)
	}
	return result, err
}

func (s *service) typedInput(inputType reflect.Type, payload map[string]interface{}) (interface{}, error) {
	if inputType == nil {
		return nil, nil
	}
	if inputType.Kind() == reflect.Ptr {
		inputType = inputType.Elem()
	}
	instance := reflect.New(inputType).Interface()
	if len(payload) == 0 {
		return instance, nil
	}
	if err := s.converter.Convert(payload, instance); err != nil {
		return nil, err
	}
	return instance, nil
}

// New creates an executor backed by the supplied handler registry.
func New(registry *action.Registry, opts ...Option) Service {
	options := conv.DefaultOptions()
	options.ClonePointerData = true
	options.IgnoreUnmapped = true
	options.AccessUnexported = true

	s := &service{
		registry:  registry,
		converter: conv.NewConverter(options),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}
