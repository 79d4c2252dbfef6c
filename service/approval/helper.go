package approval

import (
	"context"
	"time"
)

// DecisionFunc decides what to do with a pending request.
// Return (true,  "") to approve
//
//	(false, "…") to deny with reason.
type DecisionFunc func(r *Request) (approved bool, reason string)

// AutoDecider starts a goroutine that polls ListPending for the principal
// and applies fn to every request. It returns stop() – call it (or cancel
// ctx) to exit. Pass an empty principal to cover every principal.
func AutoDecider(ctx context.Context,
	svc Service,
	principal string,
	fn DecisionFunc,
	interval time.Duration) (stop func()) {

	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				reqs, _ := svc.ListPending(ctx, principal)
				for _, r := range reqs {
					ok, reason := fn(r)
					_, _ = svc.Decide(ctx, r.ID, ok, "auto", reason)
				}
			}
		}
	}()
	return func() { close(done) }
}

// AutoApprove automatically approves all pending requests for the principal.
func AutoApprove(ctx context.Context,
	svc Service,
	principal string,
	interval time.Duration) func() {
	return AutoDecider(ctx, svc, principal,
		func(*Request) (bool, string) { return true, "" }, interval)
}

// AutoReject automatically denies all pending requests with the given reason.
func AutoReject(ctx context.Context,
	svc Service,
	principal string,
	reason string,
	interval time.Duration) func() {
	return AutoDecider(ctx, svc, principal,
		func(*Request) (bool, string) { return false, reason }, interval)
}

// AutoExpirer periodically expires overdue requests. It returns stop().
func AutoExpirer(ctx context.Context, svc Service, interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = time.Minute
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				_, _ = svc.Expire(ctx)
			}
		}
	}()
	return func() { close(done) }
}
