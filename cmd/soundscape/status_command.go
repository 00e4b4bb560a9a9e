package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"soundscape/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and the job list",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return fmt.Errorf("fetch status: %w", err)
				}
				out := cmd.OutOrStdout()

				fmt.Fprintf(out, "Daemon running: %s (pid %d)\n", yesNo(resp.Running), resp.PID)
				if resp.ActiveJobID != "" {
					fmt.Fprintf(out, "Active job:     %s\n", resp.ActiveJobID)
				}
				fmt.Fprintf(out, "Socket:         %s\n", resp.SocketPath)
				fmt.Fprintf(out, "Snapshot DB:    %s (schema %s, %d jobs, readable: %s)\n",
					resp.Store.DBPath, resp.Store.SchemaVersion, resp.Store.TotalJobs, yesNo(resp.Store.DatabaseReadable))
				if resp.Store.Error != "" {
					fmt.Fprintf(out, "Store error:    %s\n", resp.Store.Error)
				}

				if len(resp.JobCounts) > 0 {
					statuses := make([]string, 0, len(resp.JobCounts))
					for status := range resp.JobCounts {
						statuses = append(statuses, status)
					}
					sort.Strings(statuses)
					fmt.Fprint(out, "Jobs:          ")
					for i, status := range statuses {
						if i > 0 {
							fmt.Fprint(out, ", ")
						}
						fmt.Fprintf(out, "%d %s", resp.JobCounts[status], status)
					}
					fmt.Fprintln(out)
				}

				if len(resp.Jobs) > 0 {
					fmt.Fprintln(out)
					fmt.Fprintln(out, renderTable(
						[]string{"ID", "Status", "Source", "Created", "Events"},
						jobRows(resp.Jobs),
						[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
					))
				}
				return nil
			})
		},
	}
	return cmd
}
