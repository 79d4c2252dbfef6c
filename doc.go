// Package steward is an embeddable approval-gated task engine. A task moves
// through six phases – intake, analyze, decide, execute, verify, report –
// and only crosses into execution when the principal's trust configuration
// allows it; everything riskier is parked behind an explicit approval
// request. A per-principal control plane supports pause, resume and
// emergency stop, and every terminal outcome lands in an append-only
// activity log plus daily metrics.
//
// Typical usage:
//
//	engine := steward.New()
//	runtime := engine.Runtime()
//	_ = runtime.Start(ctx)
//	task, err := runtime.SubmitTask(ctx, &steward.SubmitRequest{
//	    Principal: "alice",
//	    Kind:      model.ActionReminderCreate,
//	    Title:     "water the plants",
//	})
package steward
