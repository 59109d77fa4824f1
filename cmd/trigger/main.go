package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"genstudio/internal/trigger"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		apiURL  string
		timeout time.Duration
	)
	root := &cobra.Command{
		Use:           "trigger",
		Short:         "Invoke generation endpoints on a running API",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&apiURL, "url", envOr("API_URL", "http://localhost:8080"), "API base URL")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 6*time.Minute, "request timeout")

	client := func() (*trigger.Client, error) { return trigger.NewClient(apiURL, timeout) }

	completions := &cobra.Command{
		Use:   "completions",
		Short: "Run one completion sweep over pending predictions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			resp, err := c.ProcessCompletions(cmd.Context())
			if err != nil {
				return err
			}
			return report(cmd, resp)
		},
	}

	var req trigger.ImageRequest
	image := &cobra.Command{
		Use:   "image",
		Short: "Generate one image for a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			resp, err := c.GenerateImage(cmd.Context(), req)
			if err != nil {
				return err
			}
			return report(cmd, resp)
		},
	}
	image.Flags().StringVar(&req.ProjectID, "project", "", "project id")
	image.Flags().StringVar(&req.JobID, "job", "", "existing job id to advance")
	image.Flags().BoolVar(&req.ManualGeneration, "manual", true, "mark the job as manually triggered")
	_ = image.MarkFlagRequired("project")

	root.AddCommand(completions, image)
	return root
}

func report(cmd *cobra.Command, resp *trigger.Response) error {
	fmt.Fprintf(cmd.OutOrStdout(), "HTTP %d\n%s\n", resp.StatusCode, resp.Raw)
	if !resp.OK() {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
