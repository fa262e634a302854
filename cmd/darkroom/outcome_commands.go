package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"darkroom/internal/ipc"
)

func newOutcomesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "outcomes",
		Short: "Show recent conversion outcomes from the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RecentOutcomes()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Outcomes)
				}
				if len(resp.Outcomes) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No recent outcomes")
					return nil
				}
				table := renderTable(
					[]string{"Time", "File", "Result", "Reason"},
					buildOutcomeRows(resp.Outcomes, false),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit outcomes as JSON")
	return cmd
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the persistent conversion journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History(limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Outcomes)
				}
				if len(resp.Outcomes) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No journal entries")
					return nil
				}
				table := renderTable(
					[]string{"Time", "File", "Result", "Reason", "Run"},
					buildOutcomeRows(resp.Outcomes, true),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit history as JSON")
	return cmd
}

func newJournalCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "journal",
		Short: "Show outcome journal health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				health, err := client.JournalHealth()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Journal: %s\n", health.DBPath)
				fmt.Fprintf(out, "Exists: %s\n", yesNo(health.DatabaseExists))
				fmt.Fprintf(out, "Readable: %s\n", yesNo(health.DatabaseReadable))
				fmt.Fprintf(out, "Table present: %s\n", yesNo(health.TableExists))
				fmt.Fprintf(out, "Total outcomes: %d\n", health.TotalOutcomes)
				fmt.Fprintf(out, "Integrity: %s\n", integrityLabel(health))
				if health.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", health.Error)
				}
				return nil
			})
		},
	}
}

func integrityLabel(health *ipc.JournalHealthResponse) string {
	if health.IntegrityCheck {
		return "ok"
	}
	return "failed"
}
