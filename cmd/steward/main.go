// Command steward runs an embedded task engine from the terminal: submit a
// task, answer its approval request and inspect the outcome, all against one
// in-process engine instance.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	steward "github.com/stewardlab/steward"
	"github.com/stewardlab/steward/model"
)

var (
	configURL string
	principal string
	verbose   bool
)

func main() {
	root := &cobra.Command{
		Use:   "steward",
		Short: "Approval-gated autonomous task engine",
	}
	root.PersistentFlags().StringVar(&configURL, "config", "", "engine config URL (yaml)")
	root.PersistentFlags().StringVarP(&principal, "principal", "p", "default", "acting principal")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "structured debug logging")

	root.AddCommand(submitCmd(), statusCmd(), pauseCmd(), resumeCmd(), stopCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRuntime(ctx context.Context) (*steward.Runtime, error) {
	options := []steward.Option{}
	if configURL != "" {
		cfg, err := steward.LoadConfig(ctx, configURL)
		if err != nil {
			return nil, err
		}
		options = append(options, steward.WithConfig(cfg))
	}
	if verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		options = append(options, steward.WithLogger(logger))
	}
	runtime := steward.New(options...).Runtime()
	if err := runtime.Start(ctx); err != nil {
		return nil, err
	}
	return runtime, nil
}

func submitCmd() *cobra.Command {
	var (
		kind        string
		title       string
		payloadJSON string
		autoApprove bool
		deny        bool
		timeout     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a task and wait for its outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			runtime, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer runtime.Shutdown(ctx)

			var payload map[string]interface{}
			if payloadJSON != "" {
				if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
					return fmt.Errorf("invalid payload: %w", err)
				}
			}
			task, err := runtime.SubmitTask(ctx, &steward.SubmitRequest{
				Principal: principal,
				Kind:      model.ActionKind(kind),
				Title:     title,
				Payload:   payload,
			})
			if err != nil {
				return err
			}

			if task.Status == model.TaskStateAwaitingApproval {
				pending, err := runtime.PendingApprovals(ctx, principal)
				if err != nil {
					return err
				}
				for _, request := range pending {
					if request.TaskID != task.ID {
						continue
					}
					fmt.Printf("approval required: %s (%s)\n", request.Summary, request.ConsequenceDescription)
					switch {
					case autoApprove:
						if _, err := runtime.RespondToApproval(ctx, request.ID, true, principal, "approved via cli"); err != nil {
							return err
						}
					case deny:
						if _, err := runtime.RespondToApproval(ctx, request.ID, false, principal, "denied via cli"); err != nil {
							return err
						}
					default:
						return printJSON(task)
					}
				}
			}

			done, err := runtime.WaitForTask(ctx, task.ID, timeout)
			if err != nil {
				return err
			}
			return printJSON(done)
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "action kind (e.g. reminder_create)")
	cmd.Flags().StringVarP(&title, "title", "t", "", "task title")
	cmd.Flags().StringVar(&payloadJSON, "payload", "", "task payload as JSON")
	cmd.Flags().BoolVar(&autoApprove, "approve", false, "answer the approval request positively")
	cmd.Flags().BoolVar(&deny, "deny", false, "answer the approval request negatively")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "how long to wait for the outcome")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the principal's engine status and today's metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runtime, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer runtime.Shutdown(ctx)

			status, err := runtime.Status(ctx, principal)
			if err != nil {
				return err
			}
			daily, err := runtime.Metrics(ctx, principal, "")
			if err != nil {
				return err
			}
			if err := printJSON(status); err != nil {
				return err
			}
			return printJSON(daily)
		},
	}
}

func pauseCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "pause",
		Short: "Pause execution for the principal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return controlAction(cmd.Context(), func(ctx context.Context, runtime *steward.Runtime) error {
				status, err := runtime.Pause(ctx, principal, reason)
				if err != nil {
					return err
				}
				return printJSON(status)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "paused via cli", "pause reason")
	return cmd
}

func resumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume execution for the principal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return controlAction(cmd.Context(), func(ctx context.Context, runtime *steward.Runtime) error {
				status, err := runtime.Resume(ctx, principal)
				if err != nil {
					return err
				}
				return printJSON(status)
			})
		},
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Emergency stop: pause running tasks and halt intake",
		RunE: func(cmd *cobra.Command, args []string) error {
			return controlAction(cmd.Context(), func(ctx context.Context, runtime *steward.Runtime) error {
				affected, err := runtime.EmergencyStop(ctx, principal)
				if err != nil {
					return err
				}
				fmt.Printf("emergency stop activated, %d running task(s) paused\n", affected)
				return nil
			})
		},
	}
}

func controlAction(ctx context.Context, fn func(context.Context, *steward.Runtime) error) error {
	runtime, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer runtime.Shutdown(ctx)
	return fn(ctx, runtime)
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
