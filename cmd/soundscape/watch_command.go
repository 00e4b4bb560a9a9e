package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"soundscape/internal/ipc"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var fromStart bool

	cmd := &cobra.Command{
		Use:   "watch <job>",
		Short: "Follow a job's progress events until it terminates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				jobID, err := resolveJobID(client, args[0])
				if err != nil {
					return err
				}

				after := ""
				if !fromStart {
					// Skip history: resume from the latest recorded index.
					describe, err := client.Describe(jobID)
					if err != nil {
						return fmt.Errorf("describe job: %w", err)
					}
					if describe.Job.EventCount > 0 {
						after = fmt.Sprintf("%d", describe.Job.EventCount-1)
					}
				}
				return followEvents(cmd, client, jobID, after)
			})
		},
	}

	cmd.Flags().BoolVar(&fromStart, "from-start", true, "Replay the full event history before following")
	return cmd
}

// followEvents drains and then follows a job's event stream. The after
// cursor carries across calls, so a dropped connection resumes exactly where
// it left off with no duplicated or missed events.
func followEvents(cmd *cobra.Command, client *ipc.Client, jobID, after string) error {
	out := cmd.OutOrStdout()
	for {
		resp, err := client.Events(ipc.EventsRequest{
			JobID:      jobID,
			AfterIndex: after,
			WaitMillis: 1000,
		})
		if err != nil {
			return fmt.Errorf("fetch events: %w", err)
		}
		for _, evt := range resp.Events {
			fmt.Fprintln(out, formatEventLine(evt))
			after = evt.Index
			if evt.Payload.IsTerminal() {
				return nil
			}
		}
		if cmd.Context() != nil && cmd.Context().Err() != nil {
			return cmd.Context().Err()
		}
	}
}

// resolveJobID accepts a full job id or a unique prefix.
func resolveJobID(client *ipc.Client, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", fmt.Errorf("job id is required")
	}
	status, err := client.Status()
	if err != nil {
		return "", fmt.Errorf("list jobs: %w", err)
	}
	var matches []string
	for _, job := range status.Jobs {
		if job.ID == arg {
			return job.ID, nil
		}
		if strings.HasPrefix(job.ID, arg) {
			matches = append(matches, job.ID)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", fmt.Errorf("no job matches %q", arg)
	default:
		return "", fmt.Errorf("job id %q is ambiguous (%d matches)", arg, len(matches))
	}
}
