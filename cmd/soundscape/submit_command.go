package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"soundscape/internal/ipc"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "submit <video>",
		Short: "Submit a video for soundtrack generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := strings.TrimSpace(args[0])
			if source == "" {
				return errors.New("video path is required")
			}
			abs, err := filepath.Abs(source)
			if err != nil {
				return fmt.Errorf("resolve video path: %w", err)
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Submit(abs)
				if err != nil {
					return fmt.Errorf("submit job: %w", err)
				}
				if !resp.Accepted {
					if resp.ActiveJobID != "" {
						return fmt.Errorf("job %s is already running; cancel it or wait for it to finish", resp.ActiveJobID)
					}
					return fmt.Errorf("submission rejected: %s", resp.Message)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s submitted for %s\n", resp.Job.ID, abs)
				if watch {
					return followEvents(cmd, client, resp.Job.ID, "")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Follow progress with: soundscape watch %s\n", shortID(resp.Job.ID))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Follow the job's progress after submitting")
	return cmd
}
