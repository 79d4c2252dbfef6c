package policy

import "github.com/stewardlab/steward/model"

// hardStops always require explicit approval irrespective of the configured
// trust level.
var hardStops = map[model.ActionKind]bool{
	model.ActionFinancialTransaction:  true,
	model.ActionExternalCommunication: true,
}

// requiredLevels maps every action kind to the trust level a principal must
// grant before the kind runs autonomously. The table is exhaustive over the
// closed kind set; hard stops are pinned in RequiredLevel regardless of the
// values here.
var requiredLevels = map[model.ActionKind]model.TrustLevel{
	model.ActionEmailDraft:            model.TrustPreApproved,
	model.ActionEmailSend:             model.TrustApproved,
	model.ActionCalendarView:          model.TrustFullAuto,
	model.ActionCalendarSchedule:      model.TrustApproved,
	model.ActionDocumentCreate:        model.TrustPreApproved,
	model.ActionDocumentShare:         model.TrustApproved,
	model.ActionFinancialView:         model.TrustApproved,
	model.ActionFinancialTransaction:  model.TrustApproved,
	model.ActionContactManage:         model.TrustPreApproved,
	model.ActionExternalCommunication: model.TrustApproved,
	model.ActionDataAnalysis:          model.TrustFullAuto,
	model.ActionReportGenerate:        model.TrustPreApproved,
	model.ActionReminderCreate:        model.TrustFullAuto,
	model.ActionTaskOrganize:          model.TrustFullAuto,
}

// timeEstimates holds the minutes of human effort each action kind saves,
// credited to the time-saved counters on successful completion.
var timeEstimates = map[model.ActionKind]float64{
	model.ActionEmailDraft:            5,
	model.ActionEmailSend:             2,
	model.ActionCalendarView:          1,
	model.ActionCalendarSchedule:      10,
	model.ActionDocumentCreate:        15,
	model.ActionDocumentShare:         3,
	model.ActionFinancialView:         2,
	model.ActionFinancialTransaction:  5,
	model.ActionContactManage:         3,
	model.ActionExternalCommunication: 10,
	model.ActionDataAnalysis:          20,
	model.ActionReportGenerate:        30,
	model.ActionReminderCreate:        1,
	model.ActionTaskOrganize:          5,
}

// HardStop reports whether the kind always requires approval.
func HardStop(kind model.ActionKind) bool { return hardStops[kind] }

// RequiredLevel returns the trust level a task of the given kind requires.
func RequiredLevel(kind model.ActionKind) model.TrustLevel {
	if hardStops[kind] {
		return model.TrustApproved
	}
	if level, ok := requiredLevels[kind]; ok {
		return level
	}
	return model.TrustApproved
}

// Reversible reports whether the kind's effect can be rolled back; only the
// hard-stop kinds are irreversible.
func Reversible(kind model.ActionKind) bool { return !hardStops[kind] }

// TimeEstimate returns the saved-minutes estimate for the kind.
func TimeEstimate(kind model.ActionKind) float64 {
	if minutes, ok := timeEstimates[kind]; ok {
		return minutes
	}
	return 5
}

// ClassifyPriority derives a task priority from the action kind. Financial
// kinds rank highest, external communication next, routine chores lowest.
func ClassifyPriority(kind model.ActionKind) int {
	switch kind {
	case model.ActionFinancialTransaction, model.ActionFinancialView:
		return 2
	case model.ActionExternalCommunication:
		return 3
	case model.ActionReminderCreate, model.ActionTaskOrganize:
		return 7
	}
	return model.DefaultPriority
}
