package approval

import (
	"time"

	"github.com/stewardlab/steward/model"
)

// Request life cycle states.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusDenied   = "denied"
	StatusExpired  = "expired"
)

// DefaultTTL is how long a request stays answerable before it expires.
const DefaultTTL = 24 * time.Hour

// Event envelope published on the approval event queue.
type Event struct {
	Topic   string            // see topic constants below
	Data    interface{}       // *Request | *Decision
	Headers map[string]string `json:"headers,omitempty"`
}

// Standard event topics.
const (
	TopicRequestCreated  = "request.created"
	TopicRequestExpired  = "request.expired"
	TopicDecisionCreated = "decision.created"
)

// Request represents a pending ask for human sign-off on one task.
type Request struct {
	ID                     string                 `json:"id"`
	TaskID                 string                 `json:"taskId"`
	Principal              string                 `json:"principal"`
	Kind                   model.ActionKind       `json:"kind"`
	Summary                string                 `json:"summary"`
	Details                map[string]interface{} `json:"details,omitempty"`
	Reversible             bool                   `json:"reversible"`
	ConsequenceDescription string                 `json:"consequenceDescription"`
	Status                 string                 `json:"status"`
	Response               string                 `json:"response,omitempty"`
	CreatedAt              time.Time              `json:"createdAt"`
	ExpiresAt              *time.Time             `json:"expiresAt,omitempty"`
	RespondedAt            *time.Time             `json:"respondedAt,omitempty"`
}

// Decision represents the recorded outcome for one request. Its ID equals
// the request ID so the decision store doubles as the resolved set.
type Decision struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"taskId"`
	Approved    bool      `json:"approved"`
	RespondedBy string    `json:"respondedBy,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	DecidedAt   time.Time `json:"decidedAt"`
}

// NewRequest builds a pending request for a task. The consequence text
// spells out reversibility so the approver knows what denial protects.
func NewRequest(id string, task *model.Task, summary string, ttl time.Duration) *Request {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	consequence := "This action is reversible."
	if !task.Reversible {
		consequence = "This action is IRREVERSIBLE."
	}
	now := time.Now()
	expires := now.Add(ttl)
	return &Request{
		ID:                     id,
		TaskID:                 task.ID,
		Principal:              task.Principal,
		Kind:                   task.Kind,
		Summary:                summary,
		Details:                task.Payload,
		Reversible:             task.Reversible,
		ConsequenceDescription: consequence,
		Status:                 StatusPending,
		CreatedAt:              now,
		ExpiresAt:              &expires,
	}
}
