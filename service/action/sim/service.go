// Package sim provides simulated handlers for every built-in action kind.
// They stand in for real integrations (mail, calendar, banking) and return
// the result shape those integrations would: a stable reference id plus a
// kind-specific status. document_create is the exception with a real side
// effect, persisting the document through the file storage abstraction.
package sim

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"github.com/stewardlab/steward/model"
	"github.com/stewardlab/steward/service/action"
)

// Option customises the simulated handler set.
type Option func(*config)

type config struct {
	documentBaseURL string
}

// WithDocumentBaseURL sets where document_create persists its output.
func WithDocumentBaseURL(baseURL string) Option {
	return func(c *config) { c.documentBaseURL = baseURL }
}

type handler struct {
	kind    model.ActionKind
	input   reflect.Type
	execute func(ctx context.Context, input interface{}) (map[string]interface{}, error)
}

func (h *handler) Kind() model.ActionKind { return h.kind }

func (h *handler) Signature() action.Signature {
	return action.Signature{Kind: h.kind, Input: h.input}
}

func (h *handler) Execute(ctx context.Context, input interface{}) (map[string]interface{}, error) {
	return h.execute(ctx, input)
}

// ref derives a short reference from the executing task's id.
func ref(ctx context.Context, prefix string) string {
	id := "00000000"
	if task := action.TaskFromContext(ctx); task != nil && task.ID != "" {
		id = task.ID
		if len(id) > 8 {
			id = id[:8]
		}
	}
	return prefix + "_" + id
}

// Register installs a simulated handler for every action kind.
func Register(registry *action.Registry, options ...Option) {
	cfg := &config{documentBaseURL: "mem://localhost/steward/documents"}
	for _, option := range options {
		option(cfg)
	}
	fs := afs.New()

	handlers := []*handler{
		{
			kind:  model.ActionEmailDraft,
			input: reflect.TypeOf(&action.EmailInput{}),
			execute: func(ctx context.Context, input interface{}) (map[string]interface{}, error) {
				in := input.(*action.EmailInput)
				return map[string]interface{}{
					"draft_id": ref(ctx, "draft"),
					"status":   "drafted",
					"subject":  in.Subject,
				}, nil
			},
		},
		{
			kind:  model.ActionEmailSend,
			input: reflect.TypeOf(&action.EmailInput{}),
			execute: func(ctx context.Context, input interface{}) (map[string]interface{}, error) {
				in := input.(*action.EmailInput)
				return map[string]interface{}{
					"message_id": ref(ctx, "msg"),
					"status":     "sent",
					"recipient":  in.Recipient,
				}, nil
			},
		},
		{
			kind:  model.ActionCalendarView,
			input: reflect.TypeOf(&action.CalendarInput{}),
			execute: func(ctx context.Context, input interface{}) (map[string]interface{}, error) {
				in := input.(*action.CalendarInput)
				days := in.RangeDays
				if days == 0 {
					days = 1
				}
				return map[string]interface{}{
					"status":    "completed",
					"rangeDays": days,
					"events":    []interface{}{},
				}, nil
			},
		},
		{
			kind:  model.ActionCalendarSchedule,
			input: reflect.TypeOf(&action.CalendarInput{}),
			execute: func(ctx context.Context, input interface{}) (map[string]interface{}, error) {
				in := input.(*action.CalendarInput)
				return map[string]interface{}{
					"event_id": ref(ctx, "evt"),
					"status":   "scheduled",
					"title":    in.Title,
				}, nil
			},
		},
		{
			kind:  model.ActionDocumentCreate,
			input: reflect.TypeOf(&action.DocumentInput{}),
			execute: func(ctx context.Context, input interface{}) (map[string]interface{}, error) {
				in := input.(*action.DocumentInput)
				name := in.Name
				if name == "" {
					name = ref(ctx, "doc") + ".txt"
				}
				location := url.Join(cfg.documentBaseURL, name)
				if in.Folder != "" {
					location = url.Join(cfg.documentBaseURL, in.Folder, name)
				}
				if err := fs.Upload(ctx, location, file.DefaultFileOsMode, strings.NewReader(in.Content)); err != nil {
					return nil, fmt.Errorf("failed to persist document %v: %w", name, err)
				}
				return map[string]interface{}{
					"document_id": ref(ctx, "doc"),
					"status":      "created",
					"location":    location,
				}, nil
			},
		},
		{
			kind:  model.ActionDocumentShare,
			input: reflect.TypeOf(&action.DocumentInput{}),
			execute: func(ctx context.Context, input interface{}) (map[string]interface{}, error) {
				in := input.(*action.DocumentInput)
				return map[string]interface{}{
					"share_id":  ref(ctx, "shr"),
					"status":    "shared",
					"shareWith": in.ShareWith,
				}, nil
			},
		},
		{
			kind:  model.ActionFinancialView,
			input: reflect.TypeOf(&action.FinancialInput{}),
			execute: func(ctx context.Context, input interface{}) (map[string]interface{}, error) {
				in := input.(*action.FinancialInput)
				return map[string]interface{}{
					"status":  "completed",
					"account": in.Account,
				}, nil
			},
		},
		{
			kind:  model.ActionFinancialTransaction,
			input: reflect.TypeOf(&action.FinancialInput{}),
			execute: func(ctx context.Context, input interface{}) (map[string]interface{}, error) {
				in := input.(*action.FinancialInput)
				return map[string]interface{}{
					"transaction_id": ref(ctx, "txn"),
					"status":         "executed",
					"amount":         in.Amount,
					"recipient":      in.Recipient,
				}, nil
			},
		},
		{
			kind:  model.ActionContactManage,
			input: reflect.TypeOf(&action.ContactInput{}),
			execute: func(ctx context.Context, input interface{}) (map[string]interface{}, error) {
				in := input.(*action.ContactInput)
				return map[string]interface{}{
					"contact_id": ref(ctx, "cnt"),
					"status":     "updated",
					"email":      in.Email,
				}, nil
			},
		},
		{
			kind:  model.ActionExternalCommunication,
			input: reflect.TypeOf(&action.MessageInput{}),
			execute: func(ctx context.Context, input interface{}) (map[string]interface{}, error) {
				in := input.(*action.MessageInput)
				return map[string]interface{}{
					"message_id": ref(ctx, "msg"),
					"status":     "sent",
					"channel":    in.Channel,
					"recipient":  in.Recipient,
				}, nil
			},
		},
		{
			kind:  model.ActionDataAnalysis,
			input: reflect.TypeOf(&action.AnalysisInput{}),
			execute: func(ctx context.Context, input interface{}) (map[string]interface{}, error) {
				in := input.(*action.AnalysisInput)
				return map[string]interface{}{
					"status":  "completed",
					"dataset": in.Dataset,
				}, nil
			},
		},
		{
			kind:  model.ActionReportGenerate,
			input: reflect.TypeOf(&action.AnalysisInput{}),
			execute: func(ctx context.Context, input interface{}) (map[string]interface{}, error) {
				in := input.(*action.AnalysisInput)
				return map[string]interface{}{
					"report_id": ref(ctx, "rpt"),
					"status":    "generated",
					"topic":     in.Topic,
				}, nil
			},
		},
		{
			kind:  model.ActionReminderCreate,
			input: reflect.TypeOf(&action.ReminderInput{}),
			execute: func(ctx context.Context, input interface{}) (map[string]interface{}, error) {
				in := input.(*action.ReminderInput)
				return map[string]interface{}{
					"reminder_id": ref(ctx, "rem"),
					"status":      "set",
					"remindAt":    in.RemindAt,
				}, nil
			},
		},
		{
			kind:  model.ActionTaskOrganize,
			input: reflect.TypeOf(&action.OrganizeInput{}),
			execute: func(ctx context.Context, input interface{}) (map[string]interface{}, error) {
				in := input.(*action.OrganizeInput)
				return map[string]interface{}{
					"status": "completed",
					"scope":  in.Scope,
				}, nil
			},
		},
	}
	for _, h := range handlers {
		registry.Register(h)
	}
}
