package main

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vocalis/internal/queue"
)

type queueListResponse struct {
	Jobs []queueJobView `json:"jobs"`
}

type queueJobView struct {
	ID              int64     `json:"id"`
	ReportID        string    `json:"report_id"`
	Activity        string    `json:"activity"`
	Status          string    `json:"status"`
	ProgressStage   string    `json:"progress_stage"`
	ProgressPercent float64   `json:"progress_percent"`
	ProgressMessage string    `json:"progress_message"`
	ErrorMessage    string    `json:"error_message"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func newQueueCommand(ctx *commandContext) *cobra.Command {
	var statusFilters []string

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "List analysis jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			for _, raw := range statusFilters {
				status, ok := queue.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q (known: %s)", raw, knownStatuses())
				}
				query.Add("status", string(status))
			}

			client, err := newAPIClient(ctx)
			if err != nil {
				return err
			}

			path := "/api/queue"
			if encoded := query.Encode(); encoded != "" {
				path += "?" + encoded
			}
			var resp queueListResponse
			if err := client.getJSON(cmd.Context(), path, &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(resp.Jobs) == 0 {
				fmt.Fprintln(out, "Queue is empty")
				return nil
			}

			rows := make([][]string, 0, len(resp.Jobs))
			for _, job := range resp.Jobs {
				detail := job.ProgressMessage
				if job.ErrorMessage != "" {
					detail = job.ErrorMessage
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", job.ID),
					job.ReportID,
					job.Activity,
					job.Status,
					fmt.Sprintf("%.0f%%", job.ProgressPercent),
					detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Report", "Activity", "Status", "Progress", "Detail"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&statusFilters, "status", nil, "Filter by status (repeatable)")
	return cmd
}

func knownStatuses() string {
	statuses := queue.AllStatuses()
	names := make([]string, 0, len(statuses))
	for _, status := range statuses {
		names = append(names, string(status))
	}
	return strings.Join(names, ", ")
}
