package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/domainbrowser/searchjobs/internal/types"
)

// Status flag names
const (
	flagJobID    = "id"
	flagWait     = "wait"
	flagInterval = "interval"
	flagTimeout  = "timeout"
)

func getStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status of a job, with its hits once completed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobID, _ := cmd.Flags().GetString(flagJobID)
			wait, _ := cmd.Flags().GetBool(flagWait)
			interval, _ := cmd.Flags().GetDuration(flagInterval)
			timeout, _ := cmd.Flags().GetDuration(flagTimeout)

			if interval <= 0 {
				return fmt.Errorf("interval must be positive")
			}

			ctx := cmd.Context()
			deadline := time.Now().Add(timeout)
			for {
				resp, err := apiClient.GetJob(ctx, jobID)
				if err != nil {
					return fmt.Errorf("error getting job: %w", err)
				}
				if !wait || resp.Status.IsTerminal() {
					return printJSON(cmd.OutOrStdout(), resp)
				}
				if timeout > 0 && time.Now().After(deadline) {
					_ = printJSON(cmd.OutOrStdout(), resp)
					return fmt.Errorf("job %s still %s after %s", jobID, resp.Status, timeout)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "job %s is %s, polling again in %s\n", jobID, resp.Status, interval)

				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(interval):
				}
			}
		},
	}

	cmd.Flags().StringP(flagJobID, "i", "", "Job ID")
	cmd.Flags().BoolP(flagWait, "w", false, "Poll until the job has "+string(types.JobStatusCompleted)+" or "+string(types.JobStatusFailed))
	cmd.Flags().Duration(flagInterval, 5*time.Second, "Polling interval with --wait")
	cmd.Flags().Duration(flagTimeout, 0, "Give up waiting after this long, 0 waits forever")
	_ = cmd.MarkFlagRequired(flagJobID)
	return cmd
}
