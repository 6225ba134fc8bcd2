package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Queue content for audio conversion",
	}

	var mode, engine string
	submitCmd.PersistentFlags().StringVar(&mode, "mode", "full", "Processing mode: full, summary, or podcast")
	submitCmd.PersistentFlags().StringVar(&engine, "engine", "", "Synthesis engine id (defaults to the daemon's)")

	urlCmd := &cobra.Command{
		Use:   "url <url>...",
		Short: "Queue one or more article URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			for _, rawURL := range args {
				task, err := client.submitURL(cmd.Context(), mode, rawURL, engine)
				if err != nil {
					return fmt.Errorf("submit %s: %w", rawURL, err)
				}
				if ctx.jsonOutput() {
					if err := writeJSON(cmd, task); err != nil {
						return err
					}
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "queued task %d (%s) for %s\n", task.ID, task.Mode, rawURL)
			}
			return nil
		},
	}

	textCmd := &cobra.Command{
		Use:   "text [text]",
		Short: "Queue raw text, from the argument or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var text string
			if len(args) == 1 {
				text = args[0]
			} else {
				raw, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(raw)
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("no text provided")
			}

			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			task, err := client.submitText(cmd.Context(), mode, text, engine)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, task)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued task %d (%s)\n", task.ID, task.Mode)
			return nil
		},
	}

	submitCmd.AddCommand(urlCmd)
	submitCmd.AddCommand(textCmd)
	return submitCmd
}
