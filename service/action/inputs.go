package action

// Typed inputs for the built-in action kinds. Task payloads are free-form
// maps; the executor converts them into these structs before dispatch, so
// handlers never touch raw payload keys.

// EmailInput covers email_draft and email_send.
type EmailInput struct {
	Recipient string `json:"recipient,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body,omitempty"`
}

// CalendarInput covers calendar_view and calendar_schedule.
type CalendarInput struct {
	Title           string   `json:"title,omitempty"`
	StartsAt        string   `json:"startsAt,omitempty"`
	DurationMinutes int      `json:"durationMinutes,omitempty"`
	Attendees       []string `json:"attendees,omitempty"`
	RangeDays       int      `json:"rangeDays,omitempty"`
}

// DocumentInput covers document_create and document_share.
type DocumentInput struct {
	Name      string   `json:"name,omitempty"`
	Content   string   `json:"content,omitempty"`
	Folder    string   `json:"folder,omitempty"`
	ShareWith []string `json:"shareWith,omitempty"`
}

// FinancialInput covers financial_view and financial_transaction.
type FinancialInput struct {
	Account   string  `json:"account,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
	Recipient string  `json:"recipient,omitempty"`
	Memo      string  `json:"memo,omitempty"`
}

// ContactInput covers contact_manage.
type ContactInput struct {
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Operation string `json:"operation,omitempty"`
}

// MessageInput covers external_communication.
type MessageInput struct {
	Channel   string `json:"channel,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Message   string `json:"message,omitempty"`
}

// AnalysisInput covers data_analysis and report_generate.
type AnalysisInput struct {
	Dataset string `json:"dataset,omitempty"`
	Query   string `json:"query,omitempty"`
	Topic   string `json:"topic,omitempty"`
	Format  string `json:"format,omitempty"`
}

// ReminderInput covers reminder_create.
type ReminderInput struct {
	Text     string `json:"text,omitempty"`
	RemindAt string `json:"remindAt,omitempty"`
}

// OrganizeInput covers task_organize.
type OrganizeInput struct {
	Scope string `json:"scope,omitempty"`
}
