package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSourcesCommand(ctx *commandContext) *cobra.Command {
	sourcesCmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage RSS feed sources",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List configured feed sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			payload, err := client.listSources(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, payload)
			}
			out := cmd.OutOrStdout()
			if len(payload.Sources) == 0 {
				fmt.Fprintln(out, "no sources configured")
			} else {
				rows := make([][]string, 0, len(payload.Sources))
				for _, src := range payload.Sources {
					rows = append(rows, []string{
						src.URL,
						src.Category,
						strings.Join(src.Keywords, ", "),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"URL", "Category", "Keywords"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft}))
			}
			if len(payload.GlobalKeywords) > 0 {
				fmt.Fprintf(out, "Global keywords: %s\n", strings.Join(payload.GlobalKeywords, ", "))
			}
			return nil
		},
	}

	var category string
	var keywords, globalKeywords []string
	addCmd := &cobra.Command{
		Use:   "add [feed-url]",
		Short: "Add or update a feed source",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawURL := ""
			if len(args) == 1 {
				rawURL = args[0]
			}
			if rawURL == "" && len(globalKeywords) == 0 {
				return fmt.Errorf("provide a feed url or --global keywords")
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			saved, err := client.addSource(cmd.Context(), rawURL, category, keywords, globalKeywords)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, saved)
			}
			for _, src := range saved {
				fmt.Fprintf(cmd.OutOrStdout(), "source %s saved\n", src.URL)
			}
			if len(globalKeywords) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "global keywords saved")
			}
			return nil
		},
	}
	addCmd.Flags().StringVar(&category, "category", "", "Source category label")
	addCmd.Flags().StringSliceVar(&keywords, "keyword", nil, "Keyword filter, repeatable; use '*' to accept everything")
	addCmd.Flags().StringSliceVar(&globalKeywords, "global", nil, "Global keyword applied to every source, repeatable")

	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Trigger an immediate feed scan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			if err := client.forceFetch(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "feed scan scheduled")
			return nil
		},
	}

	todayCmd := &cobra.Command{
		Use:   "today",
		Short: "List articles discovered by today's scans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			articles, err := client.todaysArticles(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, articles)
			}
			if len(articles) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no articles today")
				return nil
			}
			rows := make([][]string, 0, len(articles))
			for _, article := range articles {
				rows = append(rows, []string{
					article.Published.Local().Format("15:04"),
					article.Title,
					article.Category,
					article.Link,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Time", "Title", "Category", "Link"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft}))
			return nil
		},
	}

	sourcesCmd.AddCommand(listCmd)
	sourcesCmd.AddCommand(addCmd)
	sourcesCmd.AddCommand(fetchCmd)
	sourcesCmd.AddCommand(todayCmd)
	return sourcesCmd
}
