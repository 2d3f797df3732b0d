package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-clock/internal/service/client"
)

var (
	// alarmDate is the calendar day of a new alarm, today when empty.
	alarmDate string

	addCmd = &cobra.Command{
		Use:   "add <id|-> <title> <hour> <minute> <second> <sound>",
		Short: "Schedule a one-shot alarm.",
		Long: `Schedules an alarm for the given time of day.

Pass "-" as the id to let the server generate one. The alarm is placed on
today's date unless --date is given; a time that has already passed is
rejected rather than moved to tomorrow. The sound is a catalogue name such as
"By The Seaside" or an absolute path to an audio file.`,
		Args: cobra.ExactArgs(6), //nolint:mnd // id, title, h, m, s, sound.
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := client.ParseAddArgs(args, alarmDate)
			if err != nil {
				return err
			}

			return withSession(cmd, func(ctx context.Context, s *client.Session) error {
				return s.Add(ctx, parsed)
			})
		},
	}

	stopCmd = &cobra.Command{
		Use:   "stop <id>",
		Short: "Silence a ringing alarm.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *client.Session) error {
				return s.Stop(ctx, args[0])
			})
		},
	}

	stopAllCmd = &cobra.Command{
		Use:   "stop-all",
		Short: "Silence every ringing alarm.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(ctx context.Context, s *client.Session) error {
				return s.StopAll(ctx)
			})
		},
	}

	cancelCmd = &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel an alarm before it rings.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *client.Session) error {
				return s.Cancel(ctx, args[0])
			})
		},
	}

	removeCmd = &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete an alarm, silencing it first.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *client.Session) error {
				return s.Remove(ctx, args[0])
			})
		},
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Print every stored alarm as JSON.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(ctx context.Context, s *client.Session) error {
				return s.List(ctx)
			})
		},
	}

	activeCmd = &cobra.Command{
		Use:   "active",
		Short: "Print the ids of ringing alarms.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(ctx context.Context, s *client.Session) error {
				return s.Active(ctx)
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	addCmd.Flags().StringVarP(&alarmDate, "date", "d", "", "calendar day of the alarm (YYYY-MM-DD), defaults to today")

	rootCmd.AddCommand(addCmd, stopCmd, stopAllCmd, cancelCmd, removeCmd, listCmd, activeCmd)
}
