package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"fluently/internal/client"
)

func newProgressCommand(ctx *commandContext) *cobra.Command {
	var owner int64
	var startFlag, endFlag string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Summarize an owner's analysis results over a time window",
		RunE: func(cmd *cobra.Command, args []string) error {
			if owner <= 0 {
				return fmt.Errorf("--owner is required")
			}
			end := time.Now().UTC()
			start := end.AddDate(0, 0, -30)
			var err error
			if endFlag != "" {
				if end, err = parseWindowFlag(endFlag); err != nil {
					return fmt.Errorf("invalid --end: %w", err)
				}
			}
			if startFlag != "" {
				if start, err = parseWindowFlag(startFlag); err != nil {
					return fmt.Errorf("invalid --start: %w", err)
				}
			}
			if !end.After(start) {
				return fmt.Errorf("--end must be after --start")
			}
			return ctx.withClient(func(cl *client.Client) error {
				view, err := cl.Progress(cmd.Context(), owner, start, end)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, view)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Progress for owner %d (%s to %s)\n", view.OwnerID, view.WindowStart, view.WindowEnd)
				if view.SampleCount == 0 {
					fmt.Fprintln(out, "  No completed analyses in this window")
					return nil
				}
				fmt.Fprintf(out, "  Samples:              %d\n", view.SampleCount)
				fmt.Fprintf(out, "  Avg disfluency rate:  %.2f/min\n", view.AverageDisfluencyRate)
				fmt.Fprintf(out, "  Avg fluency score:    %.1f\n", view.AverageFluencyScore)
				fmt.Fprintf(out, "  Improvement:          %+.1f%%\n", view.ImprovementRate)
				if len(view.TypeDistribution) > 0 {
					fmt.Fprintln(out, "  Disfluency types:")
					types := make([]string, 0, len(view.TypeDistribution))
					for name := range view.TypeDistribution {
						types = append(types, name)
					}
					sort.Strings(types)
					rows := make([][]string, 0, len(types))
					for _, name := range types {
						rows = append(rows, []string{name, strconv.FormatFloat(view.TypeDistribution[name], 'f', 1, 64) + "%"})
					}
					fmt.Fprintln(out, renderTable(
						[]string{"Type", "Share"},
						rows,
						[]columnAlignment{alignLeft, alignRight},
					))
				}
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&owner, "owner", 0, "Owner id to report on")
	cmd.Flags().StringVar(&startFlag, "start", "", "Window start (RFC 3339 or YYYY-MM-DD, default 30 days ago)")
	cmd.Flags().StringVar(&endFlag, "end", "", "Window end (RFC 3339 or YYYY-MM-DD, default now)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the report as JSON")
	return cmd
}

func parseWindowFlag(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC 3339 timestamp or YYYY-MM-DD date")
	}
	return t.UTC(), nil
}
