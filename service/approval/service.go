package approval

import (
	"context"
	"errors"

	"github.com/stewardlab/steward/service/messaging"
)

// ErrNotFound signals an unknown request id.
var ErrNotFound = errors.New("approval request not found")

// ErrAlreadyResolved signals a request that was already decided or expired.
// Decide returns the prior decision (when one exists) alongside it, so a
// duplicate response observes the original outcome rather than an error blob.
var ErrAlreadyResolved = errors.New("approval request already resolved")

// Service defines the approval service interface.
type Service interface {
	RequestApproval(ctx context.Context, r *Request) error
	Pending(ctx context.Context, id string) (*Request, error)
	ListPending(ctx context.Context, principal string) ([]*Request, error)
	Decide(ctx context.Context, id string, approved bool, respondedBy, reason string) (*Decision, error)
	Expire(ctx context.Context) (int, error)
	Queue() messaging.Queue[Event]
}
