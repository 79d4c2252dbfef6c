// Package action defines the contract between the engine and the code that
// carries out a task's side effect. Each handler owns one action kind and
// declares a typed input; the executor converts the task payload into that
// type before invoking the handler.
package action

import (
	"context"
	"reflect"
	"sync"

	"github.com/viant/x"

	"github.com/stewardlab/steward/model"
)

// Signature describes a handler's typed input.
type Signature struct {
	Kind  model.ActionKind
	Input reflect.Type
}

// Handler carries out the side effect for one action kind.
type Handler interface {
	Kind() model.ActionKind
	Signature() Signature
	Execute(ctx context.Context, input interface{}) (map[string]interface{}, error)
}

// Registry holds the handlers known to an engine instance together with a
// type registry for their inputs.
type Registry struct {
	types    *x.Registry
	handlers map[model.ActionKind]Handler
	mux      sync.RWMutex
}

// NewRegistry creates a handler registry.
func NewRegistry(goTypes ...*x.Type) *Registry {
	ret := &Registry{
		types:    x.NewRegistry(),
		handlers: make(map[model.ActionKind]Handler),
	}
	for _, t := range goTypes {
		if t != nil {
			ret.types.Register(t)
		}
	}
	return ret
}

// Register adds a handler, replacing any previous handler for the same kind,
// and records its input type.
func (r *Registry) Register(handler Handler) {
	if handler == nil {
		return
	}
	r.mux.Lock()
	defer r.mux.Unlock()
	if input := handler.Signature().Input; input != nil {
		r.types.Register(x.NewType(input))
	}
	r.handlers[handler.Kind()] = handler
}

// Lookup returns the handler for a kind, or nil when none is registered.
func (r *Registry) Lookup(kind model.ActionKind) Handler {
	r.mux.RLock()
	defer r.mux.RUnlock()
	return r.handlers[kind]
}

// Kinds lists the kinds with a registered handler.
func (r *Registry) Kinds() []model.ActionKind {
	r.mux.RLock()
	defer r.mux.RUnlock()
	ret := make([]model.ActionKind, 0, len(r.handlers))
	for kind := range r.handlers {
		ret = append(ret, kind)
	}
	return ret
}

// Types exposes the input type registry.
func (r *Registry) Types() *x.Registry {
	return r.types
}
