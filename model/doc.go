// Package model defines the engine's domain entities: tasks and their
// lifecycle states, per-principal trust configuration, control-plane status
// and the audit/metrics records produced by the report phase.
package model
