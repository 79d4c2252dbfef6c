package model

import "time"

// EngineState is the per-principal control-plane state.
type EngineState string

const (
	EngineRunning       EngineState = "running"
	EnginePaused        EngineState = "paused"
	EngineStopped       EngineState = "stopped"
	EngineEmergencyStop EngineState = "emergency_stop"
)

// SystemStatus is the control-plane record for one principal, created with
// defaults on first access.
type SystemStatus struct {
	ID                  string      `json:"id"`
	Principal           string      `json:"principal"`
	Status              EngineState `json:"status"`
	PausedAt            *time.Time  `json:"pausedAt,omitempty"`
	PausedReason        string      `json:"pausedReason,omitempty"`
	TasksCompletedToday int         `json:"tasksCompletedToday"`
	TasksPending        int         `json:"tasksPending"`
	ApprovalsPending    int         `json:"approvalsPending"`
	TimeSavedMinutes    float64     `json:"timeSavedMinutes"`
	LastActivityAt      *time.Time  `json:"lastActivityAt,omitempty"`
	CreatedAt           time.Time   `json:"createdAt"`
	UpdatedAt           time.Time   `json:"updatedAt"`
}

// Halted reports whether intake must refuse new tasks.
func (s *SystemStatus) Halted() bool {
	if s == nil {
		return false
	}
	return s.Status == EngineStopped || s.Status == EngineEmergencyStop
}

// ActivityLog is the append-only audit record written by the report phase,
// one per completed or failed execution. Records are immutable once written.
type ActivityLog struct {
	ID                string                 `json:"id"`
	Principal         string                 `json:"principal"`
	TaskID            string                 `json:"taskId,omitempty"`
	Kind              ActionKind             `json:"kind"`
	Description       string                 `json:"description"`
	TrustLevelUsed    TrustLevel             `json:"trustLevelUsed"`
	ApprovalStatus    string                 `json:"approvalStatus,omitempty"`
	ExecutionStatus   string                 `json:"executionStatus"`
	Reversible        bool                   `json:"reversible"`
	RollbackExpiresAt *time.Time             `json:"rollbackExpiresAt,omitempty"`
	Details           map[string]interface{} `json:"details,omitempty"`
	CreatedAt         time.Time              `json:"createdAt"`
}

// DailyMetrics aggregates one principal's activity for one calendar day
// (Date uses the YYYY-MM-DD form). Counters are only ever incremented.
type DailyMetrics struct {
	ID                 string    `json:"id"`
	Principal          string    `json:"principal"`
	Date               string    `json:"date"`
	TasksCompleted     int       `json:"tasksCompleted"`
	TasksFailed        int       `json:"tasksFailed"`
	ApprovalsRequested int       `json:"approvalsRequested"`
	ApprovalsGranted   int       `json:"approvalsGranted"`
	ApprovalsDenied    int       `json:"approvalsDenied"`
	AutoCompleted      int       `json:"autoCompleted"`
	TimeSavedMinutes   float64   `json:"timeSavedMinutes"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// SuccessRate derives the completed/attempted ratio; it is a view over the
// counters, never stored.
func (m *DailyMetrics) SuccessRate() float64 {
	total := m.TasksCompleted + m.TasksFailed
	if total == 0 {
		return 0
	}
	return float64(m.TasksCompleted) / float64(total)
}
