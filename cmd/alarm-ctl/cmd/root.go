package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/service/client"
	"github.com/oshokin/alarm-clock/internal/version"
)

// defaultLogLevel keeps the helper quiet unless something goes wrong.
const defaultLogLevel = "warn"

var (
	// configPath to the configuration YAML file.
	configPath string
	// serverAddress overrides server address from config when specified.
	serverAddress string
	// logLevel is the minimum level of diagnostics written to stderr.
	logLevel string

	// rootCmd represents the base command for the alarm helper.
	rootCmd = &cobra.Command{
		Use:   "alarm-ctl",
		Short: "Create, stop and inspect one-shot alarms.",
		Long: `Talks to a running alarm-server over gRPC.

Every command is a single request, so alarms keep ringing and stay
scheduled after the helper exits. Results are printed to stdout and
diagnostics to stderr; a failed command exits with a non-zero status.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}

			l := logger.Logger().WithOptions(logger.WithLevel(level)).Named("alarm-ctl")
			cmd.SetContext(logger.ToContext(cmd.Context(), l))

			return nil
		},
	}
)

// Execute runs the alarm-ctl CLI and exits with non-zero status on error.
func Execute() {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		StringVarP(&serverAddress, "server", "s", "", "server address to override config (e.g., 127.0.0.1:50551)")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", defaultLogLevel, "minimum level of diagnostics (debug, info, warn, error)")
}

// withSession connects to the daemon, runs fn and closes the connection.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *client.Session) error) error {
	ctx := cmd.Context()

	session, err := client.Connect(ctx, &client.Options{
		ConfigPath:    configPath,
		ServerAddress: serverAddress,
		Out:           cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			logger.WarnKV(ctx, "Failed to close connection", "error", closeErr)
		}
	}()

	return fn(ctx, session)
}
