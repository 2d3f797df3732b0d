package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-clock/internal/service/client"
)

var (
	previewCmd = &cobra.Command{
		Use:   "preview <sound>",
		Short: "Play a sound without scheduling an alarm.",
		Long:  "Plays the sound in the preview slot. Starting another preview replaces the current one.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *client.Session) error {
				return s.Preview(ctx, args[0])
			})
		},
	}

	previewStopCmd = &cobra.Command{
		Use:   "preview-stop",
		Short: "Stop the sound preview.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(ctx context.Context, s *client.Session) error {
				return s.StopPreview(ctx)
			})
		},
	}

	soundsCmd = &cobra.Command{
		Use:   "sounds",
		Short: "List the sound catalogue.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(ctx context.Context, s *client.Session) error {
				return s.Sounds(ctx)
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(previewCmd, previewStopCmd, soundsCmd)
}
