package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and edit the task queue",
	}

	var statusFilter string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List queued tasks",
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

			tasks := payload.Tasks
			if statusFilter != "" {
				filtered := tasks[:0]
				for _, task := range tasks {
					if task.Status == statusFilter {
						filtered = append(filtered, task)
					}
				}
				tasks = filtered
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, tasks)
			}
			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "queue is empty")
				return nil
			}

			rows := make([][]string, 0, len(tasks))
			for _, task := range tasks {
				detail := firstNonEmpty(task.Title, task.Origin)
				if task.Status == "failed" {
					detail = task.ErrorKind + ": " + task.ErrorMessage
				}
				rows = append(rows, []string{
					strconv.FormatInt(task.ID, 10),
					task.Mode,
					task.Engine,
					task.Status,
					strconv.Itoa(task.Progress) + "%",
					detail,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Mode", "Engine", "Status", "Progress", "Detail"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft}))
			return nil
		},
	}
	listCmd.Flags().StringVar(&statusFilter, "status", "", "Only show tasks with this status")

	removeCmd := &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove pending tasks or cancel processing ones",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid task id %q", arg)
				}
				if err := client.removeTask(cmd.Context(), id); err != nil {
					return fmt.Errorf("remove task %d: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed task %d\n", id)
			}
			return nil
		},
	}

	queueCmd.AddCommand(listCmd)
	queueCmd.AddCommand(removeCmd)
	return queueCmd
}
