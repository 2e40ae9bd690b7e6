package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"fluently/internal/api"
	"fluently/internal/client"
)

func newRecordingsCommand(ctx *commandContext) *cobra.Command {
	recordingsCmd := &cobra.Command{
		Use:   "recordings",
		Short: "Inspect and manage recordings",
	}

	recordingsCmd.AddCommand(newRecordingsListCommand(ctx))
	recordingsCmd.AddCommand(newRecordingsShowCommand(ctx))
	recordingsCmd.AddCommand(newRecordingsSubmitCommand(ctx))
	recordingsCmd.AddCommand(newRecordingsRetryCommand(ctx))
	recordingsCmd.AddCommand(newRecordingsDeleteCommand(ctx))

	return recordingsCmd
}

func newRecordingsListCommand(ctx *commandContext) *cobra.Command {
	var owner int64
	var offset, limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an owner's recordings, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if owner <= 0 {
				return fmt.Errorf("--owner is required")
			}
			return ctx.withClient(func(cl *client.Client) error {
				resp, err := cl.ListRecordings(cmd.Context(), owner, offset, limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if len(resp.Items) == 0 {
					fmt.Fprintln(out, "No recordings found")
					return nil
				}
				rows := make([][]string, 0, len(resp.Items))
				for _, item := range resp.Items {
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						item.Status,
						formatDuration(item.DurationSeconds),
						item.CreatedAt,
						item.StorageKey,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Status", "Duration", "Created", "File"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft},
				))
				fmt.Fprintf(out, "%d of %d recordings\n", len(resp.Items), resp.Total)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&owner, "owner", 0, "Owner id to list recordings for")
	cmd.Flags().IntVar(&offset, "offset", 0, "Pagination offset")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of recordings to return")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit recordings as JSON")
	return cmd
}

func newRecordingsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one recording and its analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordingID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(cl *client.Client) error {
				rec, err := cl.GetRecording(cmd.Context(), id)
				if err != nil {
					return err
				}

				var result *api.ResultView
				if rec.Status == "completed" {
					view, analysisErr := cl.GetAnalysis(cmd.Context(), id)
					if analysisErr != nil && !client.IsNotFound(analysisErr) {
						return analysisErr
					}
					if analysisErr == nil {
						result = &view
					}
				}

				if asJSON {
					return writeJSON(cmd, struct {
						Recording api.RecordingView `json:"recording"`
						Analysis  *api.ResultView   `json:"analysis,omitempty"`
					}{rec, result})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Recording %d (owner %d)\n", rec.ID, rec.OwnerID)
				fmt.Fprintf(out, "  Status:      %s\n", rec.Status)
				fmt.Fprintf(out, "  Duration:    %s\n", formatDuration(rec.DurationSeconds))
				fmt.Fprintf(out, "  Storage key: %s\n", rec.StorageKey)
				fmt.Fprintf(out, "  Created:     %s\n", rec.CreatedAt)
				if rec.Description != "" {
					fmt.Fprintf(out, "  Description: %s\n", rec.Description)
				}
				if rec.FailureKind != "" {
					fmt.Fprintf(out, "  Failure:     %s (%s)\n", rec.FailureKind, rec.FailureMessage)
				}
				if result != nil {
					fmt.Fprintln(out, "Analysis")
					fmt.Fprintf(out, "  Fluency score:    %.1f\n", result.FluencyScore)
					fmt.Fprintf(out, "  Disfluencies:     %d (%.2f/min)\n", result.TotalDisfluencies, result.DisfluencyRate)
					fmt.Fprintf(out, "  Speech rate:      %.2f segments/min\n", result.SpeechRate)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit recording as JSON")
	return cmd
}

func newRecordingsSubmitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <id>",
		Short: "Queue analysis for a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordingID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(cl *client.Client) error {
				submission, err := cl.Submit(cmd.Context(), id)
				if err != nil {
					return err
				}
				printSubmission(cmd, submission)
				return nil
			})
		},
	}
}

func newRecordingsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Reset a failed recording and queue it again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordingID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(cl *client.Client) error {
				submission, err := cl.Retry(cmd.Context(), id)
				if err != nil {
					return err
				}
				printSubmission(cmd, submission)
				return nil
			})
		},
	}
}

func newRecordingsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a recording, its result, and its stored audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordingID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(cl *client.Client) error {
				if err := cl.DeleteRecording(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted recording %d\n", id)
				return nil
			})
		},
	}
}

func printSubmission(cmd *cobra.Command, submission api.SubmissionView) {
	out := cmd.OutOrStdout()
	if submission.Enqueued {
		fmt.Fprintf(out, "Queued analysis for recording %d (correlation %s)\n", submission.RecordingID, submission.CorrelationID)
		return
	}
	fmt.Fprintf(out, "Analysis already queued for recording %d (correlation %s)\n", submission.RecordingID, submission.CorrelationID)
}

func parseRecordingID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid recording id %q", arg)
	}
	return id, nil
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	total := int(seconds + 0.5)
	minutes := total / 60
	rest := total % 60
	if minutes == 0 {
		return fmt.Sprintf("%ds", rest)
	}
	return fmt.Sprintf("%dm%02ds", minutes, rest)
}
