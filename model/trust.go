package model

import (
	"fmt"
	"strings"
	"time"
)

// TrustLevel expresses how much autonomy a principal grants for a class of
// action. Levels are ordered – a higher value grants more autonomy.
type TrustLevel int

const (
	TrustInformational TrustLevel = iota
	TrustSuggested
	TrustApproved
	TrustPreApproved
	TrustFullAuto
)

var trustLevelNames = map[TrustLevel]string{
	TrustInformational: "informational",
	TrustSuggested:     "suggested",
	TrustApproved:      "approved",
	TrustPreApproved:   "pre_approved",
	TrustFullAuto:      "full_auto",
}

func (l TrustLevel) String() string {
	if name, ok := trustLevelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("trust(%d)", int(l))
}

// ParseTrustLevel converts a level name into its ordered value.
func ParseTrustLevel(name string) (TrustLevel, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for level, levelName := range trustLevelNames {
		if levelName == normalized {
			return level, nil
		}
	}
	return TrustApproved, fmt.Errorf("unknown trust level %q", name)
}

// FinancialLimits bounds financial actions performed without a human in the
// loop.
type FinancialLimits struct {
	AutoApproveMax float64 `json:"autoApproveMax" yaml:"autoApproveMax"`
	DailyLimit     float64 `json:"dailyLimit" yaml:"dailyLimit"`
	Require2FA     bool    `json:"require2fa" yaml:"require2fa"`
}

// QuietHours defines a wall-clock window during which the effective trust
// requirement is escalated. Start and End use the HH:MM 24h form.
type QuietHours struct {
	Enabled          bool       `json:"enabled" yaml:"enabled"`
	Start            string     `json:"start" yaml:"start"`
	End              string     `json:"end" yaml:"end"`
	TrustLevelDuring TrustLevel `json:"trustLevelDuring" yaml:"trustLevelDuring"`
}

// Contains reports whether the given instant falls inside the window.
// Comparison is lexical on the HH:MM form; a window whose start is after its
// end spans midnight.
func (q *QuietHours) Contains(now time.Time) bool {
	if q == nil || !q.Enabled {
		return false
	}
	current := now.UTC().Format("15:04")
	if q.Start < q.End {
		return q.Start <= current && current <= q.End
	}
	return current >= q.Start || current <= q.End
}

// EmergencyContact identifies a person empowered to intervene on the
// principal's behalf; contacts with CanKillSwitch set may trigger an
// emergency stop.
type EmergencyContact struct {
	Name          string `json:"name" yaml:"name"`
	Email         string `json:"email" yaml:"email"`
	Phone         string `json:"phone,omitempty" yaml:"phone,omitempty"`
	CanKillSwitch bool   `json:"canKillSwitch" yaml:"canKillSwitch"`
}

// TrustConfiguration is the per-principal policy document consulted by the
// analyze phase. Exactly one configuration exists per principal; it is
// created with defaults on first access.
type TrustConfiguration struct {
	ID                   string                    `json:"id" yaml:"id"`
	Principal            string                    `json:"principal" yaml:"principal"`
	GlobalTrustLevel     TrustLevel                `json:"globalTrustLevel" yaml:"globalTrustLevel"`
	ActionTrustOverrides map[ActionKind]TrustLevel `json:"actionTrustOverrides,omitempty" yaml:"actionTrustOverrides,omitempty"`
	PreApprovedContacts  []string                  `json:"preApprovedContacts,omitempty" yaml:"preApprovedContacts,omitempty"`
	PreApprovedDomains   []string                  `json:"preApprovedDomains,omitempty" yaml:"preApprovedDomains,omitempty"`
	FinancialLimits      FinancialLimits           `json:"financialLimits" yaml:"financialLimits"`
	QuietHours           QuietHours                `json:"quietHours" yaml:"quietHours"`
	EmergencyContacts    []EmergencyContact        `json:"emergencyContacts,omitempty" yaml:"emergencyContacts,omitempty"`
	CreatedAt            time.Time                 `json:"createdAt" yaml:"createdAt"`
	UpdatedAt            time.Time                 `json:"updatedAt" yaml:"updatedAt"`
}

// EffectiveLevel resolves the trust level the principal grants for the given
// action kind: the per-kind override when configured, the global level
// otherwise.
func (c *TrustConfiguration) EffectiveLevel(kind ActionKind) TrustLevel {
	if c == nil {
		return TrustApproved
	}
	if level, ok := c.ActionTrustOverrides[kind]; ok {
		return level
	}
	return c.GlobalTrustLevel
}
