package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"soundscape/internal/ipc"
)

func newCancelCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel <job>",
		Short: "Cancel a running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				jobID, err := resolveJobID(client, args[0])
				if err != nil {
					return err
				}
				resp, err := client.Cancel(jobID)
				if err != nil {
					return fmt.Errorf("cancel job: %w", err)
				}
				if !resp.Cancelled {
					fmt.Fprintf(cmd.OutOrStdout(), "Job %s is not running; nothing to cancel\n", jobID)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cancellation requested for job %s\n", jobID)
				return nil
			})
		},
	}
	return cmd
}
