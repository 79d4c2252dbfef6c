// Package policy implements the trust policy evaluator: it resolves the
// trust level an action kind requires, the level a principal effectively
// grants, and whether a concrete task may run autonomously or must be held
// for human approval. Guardrail checks annotate the decision with context
// (unknown contact, amount over the auto-approve ceiling) without blocking
// it on their own.
package policy
