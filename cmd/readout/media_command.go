package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMediaCommand(ctx *commandContext) *cobra.Command {
	mediaCmd := &cobra.Command{
		Use:   "media",
		Short: "Browse and delete finished audio",
	}

	var contentType string
	var limit, offset int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List finished media items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			items, err := client.listMedia(cmd.Context(), contentType, limit, offset)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, items)
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no media yet")
				return nil
			}
			rows := make([][]string, 0, len(items))
			for _, item := range items {
				rows = append(rows, []string{
					item.ID,
					item.ContentType,
					item.DateAdded.Local().Format("2006-01-02"),
					item.Title,
					item.AudioFile,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Type", "Added", "Title", "Audio"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft}))
			return nil
		},
	}
	listCmd.Flags().StringVar(&contentType, "type", "", "Filter by type: article, text, or podcast")
	listCmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of items")
	listCmd.Flags().IntVar(&offset, "offset", 0, "Pagination offset")

	var deleteType string
	deleteCmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete media records and their files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if deleteType == "" {
				return fmt.Errorf("--type is required")
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			total := 0
			for _, id := range args {
				deleted, err := client.deleteMedia(cmd.Context(), deleteType, id)
				if err != nil {
					return fmt.Errorf("delete %s: %w", id, err)
				}
				total += deleted
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d item(s)\n", total)
			return nil
		},
	}
	deleteCmd.Flags().StringVar(&deleteType, "type", "", "Media type: article, text, or podcast")

	mediaCmd.AddCommand(listCmd)
	mediaCmd.AddCommand(deleteCmd)
	return mediaCmd
}
