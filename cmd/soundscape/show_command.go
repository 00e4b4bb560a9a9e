package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"soundscape/internal/ipc"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var withEvents bool

	cmd := &cobra.Command{
		Use:   "show <job>",
		Short: "Display one job's details and result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				jobID, err := resolveJobID(client, args[0])
				if err != nil {
					return err
				}
				resp, err := client.Describe(jobID)
				if err != nil {
					return fmt.Errorf("describe job: %w", err)
				}
				out := cmd.OutOrStdout()
				job := resp.Job

				if asJSON {
					encoded, err := json.MarshalIndent(job, "", "  ")
					if err != nil {
						return err
					}
					fmt.Fprintln(out, string(encoded))
					return nil
				}

				fmt.Fprintf(out, "Job:     %s\n", job.ID)
				fmt.Fprintf(out, "Status:  %s\n", job.Status)
				fmt.Fprintf(out, "Source:  %s\n", job.SourcePath)
				fmt.Fprintf(out, "Created: %s\n", job.CreatedAt.Local().Format("2006-01-02 15:04:05"))
				fmt.Fprintf(out, "Updated: %s\n", job.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
				fmt.Fprintf(out, "Events:  %d\n", job.EventCount)

				if job.Result != nil {
					totals := job.Result.Report.Totals()
					fmt.Fprintln(out)
					fmt.Fprintf(out, "Summary: %s\n", job.Result.Summary)
					fmt.Fprintf(out, "Planned: %d  succeeded: %d  fallback: %d  failed: %d\n",
						totals.Planned, totals.Succeeded, totals.Fallback, totals.Failed)

					rows := make([][]string, 0, len(job.Result.Tracks))
					for _, track := range job.Result.Tracks {
						rows = append(rows, []string{
							string(track.Type),
							track.Label,
							fmt.Sprintf("%.1fs", track.StartSec),
							fmt.Sprintf("%.1fs", track.RequestedDuration),
							fmt.Sprintf("%.2f", track.Volume),
							yesNo(track.Loop),
							track.FilePath,
						})
					}
					if len(rows) > 0 {
						fmt.Fprintln(out)
						fmt.Fprintln(out, renderTable(
							[]string{"Type", "Label", "Start", "Duration", "Volume", "Loop", "File"},
							rows,
							[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
						))
					}
				}

				if withEvents {
					events, err := client.Events(ipc.EventsRequest{JobID: job.ID})
					if err != nil {
						return fmt.Errorf("fetch events: %w", err)
					}
					fmt.Fprintln(out)
					for _, evt := range events.Events {
						fmt.Fprintln(out, formatEventLine(evt))
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the job as JSON")
	cmd.Flags().BoolVar(&withEvents, "events", false, "Include the full event history")
	return cmd
}
