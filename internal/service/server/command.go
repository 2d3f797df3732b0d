package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"

	api "github.com/oshokin/alarm-clock/internal/api/grpc/alarm"
	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/version"
)

// Options controls the alarm-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// DataDir overrides the directory holding the alarm store.
	DataDir string
	// StoreBackend overrides the store backend ("file" or "sqlite").
	StoreBackend string
	// LogLevel overrides the log level from the settings file.
	LogLevel string
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// Run starts the alarm daemon and blocks until context is canceled or server stops.
// Stored alarms are restored before the first request is served.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarm-server")

	// Load configuration first to get server settings.
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if err = applyOverrides(settings, opts); err != nil {
		return err
	}

	// Validate has already accepted the level.
	level, _ := logger.ParseLogLevel(settings.LogLevel)
	logger.SetLevel(level)

	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	// Components outlive the request contexts but stop with the server.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	d, err := newDaemon(runCtx, settings)
	if err != nil {
		return fmt.Errorf("initialise daemon: %w", err)
	}

	defer func() {
		// ctx may be cancelled by now; shutdown writes must still go through.
		if shutdownErr := d.shutdown(context.WithoutCancel(ctx), cancel); shutdownErr != nil {
			logger.WarnKV(ctx, "Shutdown incomplete", "error", shutdownErr)
		}
	}()

	if err = d.restore(runCtx); err != nil {
		return fmt.Errorf("restore alarms: %w", err)
	}

	// Setup TCP listener for gRPC server.
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer()
	api.RegisterAlarmServiceServer(grpcServer, api.NewServer(d.controller))

	logger.InfoKV(ctx, "Alarm server listening",
		"listen_address", lis.Addr().String(),
		"version", version.Short(),
		"store_backend", settings.StoreBackend,
		"data_dir", settings.DataDir,
		"player", settings.Player,
		"sounds_dir", settings.SoundsDir)

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "GRPC server stopped")

	return nil
}

// applyOverrides applies command-line overrides and re-validates the result.
func applyOverrides(settings *config.Config, opts *Options) error {
	if opts.DataDir != "" {
		settings.DataDir = opts.DataDir
	}

	if opts.StoreBackend != "" {
		settings.StoreBackend = opts.StoreBackend
	}

	if opts.LogLevel != "" {
		settings.LogLevel = opts.LogLevel
	}

	if err := config.Validate(settings); err != nil {
		return fmt.Errorf("validate settings: %w", err)
	}

	return nil
}

// resolveListenAddress determines the listen address for the gRPC server.
// The daemon is per-user, so the configured address is bound as is,
// keeping a loopback host on loopback.
func resolveListenAddress(configAddr, override string) (string, error) {
	// Use override address if provided (e.g., ":9090", "127.0.0.1:0").
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	if _, _, err := net.SplitHostPort(configAddr); err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	return configAddr, nil
}
