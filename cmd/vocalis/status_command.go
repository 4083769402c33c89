package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vocalis/internal/daemon"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient(ctx)
			if err != nil {
				return err
			}

			var status daemon.Status
			if err := client.getJSON(cmd.Context(), "/api/status", &status); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			state := "stopped"
			if status.Running {
				state = "running"
			}
			fmt.Fprintf(out, "Daemon: %s\n", state)
			fmt.Fprintf(out, "Queue database: %s\n", status.QueueDBPath)
			fmt.Fprintf(out, "Jobs: %d total, %d pending, %d processing, %d completed, %d failed\n",
				status.Queue.Total, status.Queue.Pending, status.Queue.Processing,
				status.Queue.Completed, status.Queue.Failed)

			rows := make([][]string, 0, len(status.Stages))
			for _, check := range status.Stages {
				ready := "ready"
				if !check.Ready {
					ready = "unavailable"
				}
				rows = append(rows, []string{check.Name, ready, check.Detail})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Stage", "State", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
