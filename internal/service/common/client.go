//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	api "github.com/oshokin/alarm-clock/internal/api/grpc/alarm"
	"github.com/oshokin/alarm-clock/internal/config"
)

// Client wraps the AlarmService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the alarm daemon.
	conn *grpc.ClientConn
	// api is the AlarmService client stub.
	api api.AlarmServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errIDRequired is returned when an alarm id is missing.
	errIDRequired = errors.New("alarm id must be provided")
)

// Dial establishes a gRPC connection to the alarm daemon.
// The daemon listens on loopback, so the transport is not encrypted.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	// Use the non-context NewClient API recommended by grpc-go
	// (DialContext is deprecated as of grpc-go v1.60+).
	conn, err := grpc.NewClient(
		address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(api.CodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("dial alarm server: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         api.NewAlarmServiceClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// CreateAlarm asks the daemon for a new alarm.
func (c *Client) CreateAlarm(ctx context.Context, req *api.CreateAlarmRequest) (*api.Alarm, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.CreateAlarm(callCtx, req)
	if err != nil {
		return nil, fmt.Errorf("create alarm: %w", err)
	}

	return resp.Alarm, nil
}

// StopAlarm silences a ringing alarm and reports whether it was playing.
func (c *Client) StopAlarm(ctx context.Context, id string, actor *api.Actor) (bool, error) {
	if id == "" {
		return false, errIDRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.StopAlarm(callCtx, &api.AlarmRequest{ID: id, Actor: actor})
	if err != nil {
		return false, fmt.Errorf("stop alarm: %w", err)
	}

	return resp.Stopped, nil
}

// StopAllAlarms silences every ringing alarm and returns how many were playing.
func (c *Client) StopAllAlarms(ctx context.Context, actor *api.Actor) (int, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.StopAllAlarms(callCtx, &api.StopAllAlarmsRequest{Actor: actor})
	if err != nil {
		return 0, fmt.Errorf("stop all alarms: %w", err)
	}

	return resp.Stopped, nil
}

// CancelAlarm disarms an alarm that has not fired yet.
func (c *Client) CancelAlarm(ctx context.Context, id string, actor *api.Actor) (bool, error) {
	if id == "" {
		return false, errIDRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.CancelAlarm(callCtx, &api.AlarmRequest{ID: id, Actor: actor})
	if err != nil {
		return false, fmt.Errorf("cancel alarm: %w", err)
	}

	return resp.Cancelled, nil
}

// RemoveAlarm deletes an alarm.
func (c *Client) RemoveAlarm(ctx context.Context, id string, actor *api.Actor) (bool, error) {
	if id == "" {
		return false, errIDRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.RemoveAlarm(callCtx, &api.AlarmRequest{ID: id, Actor: actor})
	if err != nil {
		return false, fmt.Errorf("remove alarm: %w", err)
	}

	return resp.Removed, nil
}

// ListAlarms returns stored alarms in creation order.
func (c *Client) ListAlarms(ctx context.Context) ([]*api.Alarm, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.ListAlarms(callCtx, &api.ListAlarmsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list alarms: %w", err)
	}

	return resp.Alarms, nil
}

// ListActive returns the ids of alarms whose sound is playing.
func (c *Client) ListActive(ctx context.Context) ([]string, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.ListActive(callCtx, &api.ListActiveRequest{})
	if err != nil {
		return nil, fmt.Errorf("list active alarms: %w", err)
	}

	return resp.IDs, nil
}

// PreviewSound plays a sound in the preview slot.
func (c *Client) PreviewSound(ctx context.Context, sound string) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if _, err := c.api.PreviewSound(callCtx, &api.PreviewSoundRequest{Sound: sound}); err != nil {
		return fmt.Errorf("preview sound: %w", err)
	}

	return nil
}

// StopPreview stops the preview and reports whether one was playing.
func (c *Client) StopPreview(ctx context.Context) (bool, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.StopPreview(callCtx, &api.StopPreviewRequest{})
	if err != nil {
		return false, fmt.Errorf("stop preview: %w", err)
	}

	return resp.Stopped, nil
}

// ListSounds returns the sound catalogue.
func (c *Client) ListSounds(ctx context.Context) ([]*api.Sound, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.ListSounds(callCtx, &api.ListSoundsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list sounds: %w", err)
	}

	return resp.Sounds, nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
