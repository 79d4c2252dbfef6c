package policy

import (
	"fmt"
	"strings"
	"time"

	"github.com/stewardlab/steward/model"
)

// Risk levels attached to an analysis.
const (
	RiskLow  = "low"
	RiskHigh = "high"
)

// Guardrail check names.
const (
	CheckFinancialLimit      = "financial_limit"
	CheckContactVerification = "contact_verification"
	CheckQuietHours          = "quiet_hours"
)

// GuardrailCheck annotates an analysis with contextual risk information. A
// check that fails (Passed == false) blocks the task; advisory checks keep
// Passed true and carry their finding in Note.
type GuardrailCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Note   string `json:"note,omitempty"`
}

// Analysis is the analyze phase's verdict on one task. It is a pure function
// result – nothing in it is persisted beyond what the decide phase records on
// the task itself.
type Analysis struct {
	TaskID           string           `json:"taskId"`
	CanExecute       bool             `json:"canExecute"`
	RequiresApproval bool             `json:"requiresApproval"`
	BlockedReason    string           `json:"blockedReason,omitempty"`
	RiskLevel        string           `json:"riskLevel"`
	EstimatedMinutes float64          `json:"estimatedMinutes"`
	EffectiveLevel   model.TrustLevel `json:"effectiveLevel"`
	Checks           []GuardrailCheck `json:"checks,omitempty"`
}

// Evaluate analyzes a task against the principal's trust configuration at the
// given instant. Approval is required when the task's required level exceeds
// the effective level, when the kind is a hard stop, or when an enabled
// quiet-hours window contains now. Quiet hours only ever escalate the
// requirement, never relax it.
func Evaluate(task *model.Task, cfg *model.TrustConfiguration, now time.Time) *Analysis {
	analysis := &Analysis{
		TaskID:           task.ID,
		CanExecute:       true,
		RiskLevel:        RiskLow,
		EstimatedMinutes: TimeEstimate(task.Kind),
		EffectiveLevel:   cfg.EffectiveLevel(task.Kind),
	}

	passed, reason, checks := guardrails(task, cfg)
	analysis.Checks = checks
	if !passed {
		analysis.CanExecute = false
		analysis.BlockedReason = reason
		return analysis
	}

	if task.RequiredTrustLevel > analysis.EffectiveLevel {
		analysis.RequiresApproval = true
	}
	if HardStop(task.Kind) {
		analysis.RequiresApproval = true
		analysis.RiskLevel = RiskHigh
	}
	if cfg.QuietHours.Contains(now) {
		analysis.RequiresApproval = true
		analysis.Checks = append(analysis.Checks, GuardrailCheck{
			Name:   CheckQuietHours,
			Passed: true,
			Note:   "operating in quiet hours - elevated approval required",
		})
	}
	return analysis
}

// guardrails runs every contextual check. Checks are advisory: they annotate
// the analysis and feed the approval decision but never reject on their own,
// so passed stays true in the current rule set.
func guardrails(task *model.Task, cfg *model.TrustConfiguration) (passed bool, reason string, checks []GuardrailCheck) {
	if task.Kind == model.ActionFinancialTransaction {
		amount := payloadAmount(task.Payload)
		if amount > cfg.FinancialLimits.AutoApproveMax {
			checks = append(checks, GuardrailCheck{
				Name:   CheckFinancialLimit,
				Passed: true,
				Note:   fmt.Sprintf("amount $%v requires manual approval", amount),
			})
		}
	}

	if task.Kind == model.ActionEmailSend || task.Kind == model.ActionExternalCommunication {
		recipient, _ := task.Payload["recipient"].(string)
		note := "known contact"
		if !knownContact(recipient, cfg) {
			note = "new contact - approval required"
		}
		checks = append(checks, GuardrailCheck{
			Name:   CheckContactVerification,
			Passed: true,
			Note:   note,
		})
	}

	return true, "", checks
}

func knownContact(recipient string, cfg *model.TrustConfiguration) bool {
	if recipient == "" {
		return false
	}
	for _, contact := range cfg.PreApprovedContacts {
		if strings.EqualFold(contact, recipient) {
			return true
		}
	}
	if at := strings.LastIndex(recipient, "@"); at >= 0 {
		domain := recipient[at+1:]
		for _, known := range cfg.PreApprovedDomains {
			if strings.EqualFold(known, domain) {
				return true
			}
		}
	}
	return false
}

// payloadAmount coerces the payload "amount" entry; payloads are free-form so
// both JSON number decodings and native ints are accepted.
func payloadAmount(payload map[string]interface{}) float64 {
	switch value := payload["amount"].(type) {
	case float64:
		return value
	case float32:
		return float64(value)
	case int:
		return float64(value)
	case int64:
		return float64(value)
	}
	return 0
}
