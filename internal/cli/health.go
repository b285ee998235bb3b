package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const healthPollInterval = 250 * time.Millisecond

func newHealthCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Long: `Check server health.

With --wait, keep polling until the server reports ok or the wait elapses.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := pollHealth(cmd.Context(), wait)
			if err != nil {
				return err
			}
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "keep retrying for up to this long")
	return cmd
}

func pollHealth(ctx context.Context, wait time.Duration) (HealthResult, error) {
	deadline := time.Now().Add(wait)
	for {
		var result HealthResult
		err := client.Get(ctx, "/api/v1/health", "", &result)
		if err == nil {
			return result, nil
		}
		if !time.Now().Add(healthPollInterval).Before(deadline) {
			return HealthResult{}, err
		}

		select {
		case <-ctx.Done():
			return HealthResult{}, fmt.Errorf("waiting for server: %w", ctx.Err())
		case <-time.After(healthPollInterval):
		}
	}
}
