package model

// ActionKind enumerates the closed set of actions the engine can carry out on
// behalf of a principal. The set is fixed on purpose – every dispatch table
// (trust requirement, priority, time estimate, handler) is exhaustive over it
// so that adding a kind forces each table to be revisited.
type ActionKind string

const (
	ActionEmailDraft            ActionKind = "email_draft"
	ActionEmailSend             ActionKind = "email_send"
	ActionCalendarView          ActionKind = "calendar_view"
	ActionCalendarSchedule      ActionKind = "calendar_schedule"
	ActionDocumentCreate        ActionKind = "document_create"
	ActionDocumentShare         ActionKind = "document_share"
	ActionFinancialView         ActionKind = "financial_view"
	ActionFinancialTransaction  ActionKind = "financial_transaction"
	ActionContactManage         ActionKind = "contact_manage"
	ActionExternalCommunication ActionKind = "external_communication"
	ActionDataAnalysis          ActionKind = "data_analysis"
	ActionReportGenerate        ActionKind = "report_generate"
	ActionReminderCreate        ActionKind = "reminder_create"
	ActionTaskOrganize          ActionKind = "task_organize"
)

// Kinds returns all action kinds in declaration order.
func Kinds() []ActionKind {
	return []ActionKind{
		ActionEmailDraft,
		ActionEmailSend,
		ActionCalendarView,
		ActionCalendarSchedule,
		ActionDocumentCreate,
		ActionDocumentShare,
		ActionFinancialView,
		ActionFinancialTransaction,
		ActionContactManage,
		ActionExternalCommunication,
		ActionDataAnalysis,
		ActionReportGenerate,
		ActionReminderCreate,
		ActionTaskOrganize,
	}
}

// Valid reports whether k belongs to the closed action-kind set.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionEmailDraft, ActionEmailSend, ActionCalendarView,
		ActionCalendarSchedule, ActionDocumentCreate, ActionDocumentShare,
		ActionFinancialView, ActionFinancialTransaction, ActionContactManage,
		ActionExternalCommunication, ActionDataAnalysis, ActionReportGenerate,
		ActionReminderCreate, ActionTaskOrganize:
		return true
	}
	return false
}
