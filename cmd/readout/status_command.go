package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue counters and recent failures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			payload, err := client.queueStatus(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Queue: %d total (%d pending, %d processing, %d completed, %d failed)\n",
				payload.Queue.Total, payload.Queue.Pending, payload.Queue.Processing,
				payload.Queue.Completed, payload.Queue.Failed)

			active := make([][]string, 0, len(payload.Tasks))
			for _, task := range payload.Tasks {
				if task.Status != "pending" && task.Status != "processing" {
					continue
				}
				active = append(active, []string{
					strconv.FormatInt(task.ID, 10),
					task.Mode,
					task.Status,
					task.Stage,
					strconv.Itoa(task.Progress) + "%",
					firstNonEmpty(task.Title, task.Origin),
				})
			}
			if len(active) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Mode", "Status", "Stage", "Progress", "Item"},
					active,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft}))
			}

			if len(payload.Errors) > 0 {
				fmt.Fprintf(out, "\nRecent errors:\n")
				for _, entry := range payload.Errors {
					fmt.Fprintf(out, "  %s  task %d  %s: %s\n",
						entry.Time.Local().Format("2006-01-02 15:04:05"),
						entry.TaskID, entry.Kind, entry.Message)
				}
			}
			return nil
		},
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
