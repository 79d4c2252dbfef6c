package dao

import (
	"context"
)

// Service is the persistence contract every entity store satisfies. The
// engine only relies on these four operations plus atomic single-record
// update semantics from the implementation.
type Service[K comparable, T any] interface {
	Save(ctx context.Context, t *T) error

	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}
