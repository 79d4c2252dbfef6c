package approval

import "context"

// BatchItem is one response in a batch decide call.
type BatchItem struct {
	ID          string `json:"id"`
	Approved    bool   `json:"approved"`
	RespondedBy string `json:"respondedBy,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// BatchOutcome is the per-item result of DecideBatch.
type BatchOutcome struct {
	ID       string    `json:"id"`
	Decision *Decision `json:"decision,omitempty"`
	Err      error     `json:"-"`
}

// DecideBatch resolves each item independently; one failing item never
// blocks the rest, and its error is reported in the matching outcome.
func DecideBatch(ctx context.Context, svc Service, items []BatchItem) []BatchOutcome {
	outcomes := make([]BatchOutcome, 0, len(items))
	for _, item := range items {
		decision, err := svc.Decide(ctx, item.ID, item.Approved, item.RespondedBy, item.Reason)
		outcomes = append(outcomes, BatchOutcome{ID: item.ID, Decision: decision, Err: err})
	}
	return outcomes
}
