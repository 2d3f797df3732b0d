package alarm

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/service/lifecycle"
	"github.com/oshokin/alarm-clock/internal/service/playback"
)

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	Create(ctx context.Context, req lifecycle.CreateRequest) (*domain.Record, error)
	StopOne(ctx context.Context, id string) (bool, error)
	StopAll(ctx context.Context) (int, error)
	Cancel(ctx context.Context, id string) (bool, error)
	Remove(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]*domain.Record, error)
	ListActive() []string
	Preview(ctx context.Context, ref string) error
	StopPreview() bool
	Sounds() []playback.Sound
}

// Server implements the AlarmService gRPC API.
type Server struct {
	// service provides the business logic for alarm operations.
	service Service
}

var _ AlarmServiceServer = (*Server)(nil)

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// CreateAlarm validates the request and creates a one-shot alarm.
func (s *Server) CreateAlarm(ctx context.Context, req *CreateAlarmRequest) (*CreateAlarmResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	if req.FireAt.IsZero() {
		return nil, status.Error(codes.InvalidArgument, "fire time is required")
	}

	record, err := s.service.Create(ctx, lifecycle.CreateRequest{
		ID:       req.ID,
		Title:    req.Title,
		At:       req.FireAt,
		SoundRef: req.Sound,
		Actor:    toDomainActor(req.Actor),
	})
	if err != nil {
		return nil, toStatus(ctx, "create alarm", err)
	}

	return &CreateAlarmResponse{Alarm: toWireAlarm(record)}, nil
}

// StopAlarm silences a ringing alarm.
func (s *Server) StopAlarm(ctx context.Context, req *AlarmRequest) (*StopAlarmResponse, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}

	stopped, err := s.service.StopOne(ctx, id)
	if err != nil {
		return nil, toStatus(ctx, "stop alarm", err)
	}

	logger.InfoKV(ctx, "Stop requested", "alarm_id", id, "stopped", stopped, "actor", actorString(req.Actor))

	return &StopAlarmResponse{Stopped: stopped}, nil
}

// StopAllAlarms silences every ringing alarm.
func (s *Server) StopAllAlarms(ctx context.Context, req *StopAllAlarmsRequest) (*StopAllAlarmsResponse, error) {
	stopped, err := s.service.StopAll(ctx)
	if err != nil {
		return nil, toStatus(ctx, "stop all alarms", err)
	}

	var actor *Actor
	if req != nil {
		actor = req.Actor
	}

	logger.InfoKV(ctx, "Stop all requested", "stopped", stopped, "actor", actorString(actor))

	return &StopAllAlarmsResponse{Stopped: stopped}, nil
}

// CancelAlarm disarms an alarm that has not fired yet.
func (s *Server) CancelAlarm(ctx context.Context, req *AlarmRequest) (*CancelAlarmResponse, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}

	cancelled, err := s.service.Cancel(ctx, id)
	if err != nil {
		return nil, toStatus(ctx, "cancel alarm", err)
	}

	return &CancelAlarmResponse{Cancelled: cancelled}, nil
}

// RemoveAlarm deletes an alarm, stopping it first.
func (s *Server) RemoveAlarm(ctx context.Context, req *AlarmRequest) (*RemoveAlarmResponse, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}

	removed, err := s.service.Remove(ctx, id)
	if err != nil {
		return nil, toStatus(ctx, "remove alarm", err)
	}

	return &RemoveAlarmResponse{Removed: removed}, nil
}

// ListAlarms returns the stored alarms in creation order.
func (s *Server) ListAlarms(ctx context.Context, _ *ListAlarmsRequest) (*ListAlarmsResponse, error) {
	records, err := s.service.List(ctx)
	if err != nil {
		return nil, toStatus(ctx, "list alarms", err)
	}

	response := &ListAlarmsResponse{Alarms: make([]*Alarm, 0, len(records))}
	for _, record := range records {
		response.Alarms = append(response.Alarms, toWireAlarm(record))
	}

	return response, nil
}

// ListActive returns the ids of alarms whose sound is playing.
func (s *Server) ListActive(context.Context, *ListActiveRequest) (*ListActiveResponse, error) {
	return &ListActiveResponse{IDs: s.service.ListActive()}, nil
}

// PreviewSound plays a sound in the preview slot.
func (s *Server) PreviewSound(ctx context.Context, req *PreviewSoundRequest) (*PreviewSoundResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	if err := s.service.Preview(ctx, req.Sound); err != nil {
		return nil, toStatus(ctx, "preview sound", err)
	}

	return &PreviewSoundResponse{}, nil
}

// StopPreview stops the preview.
func (s *Server) StopPreview(context.Context, *StopPreviewRequest) (*StopPreviewResponse, error) {
	return &StopPreviewResponse{Stopped: s.service.StopPreview()}, nil
}

// ListSounds returns the sound catalogue.
func (s *Server) ListSounds(context.Context, *ListSoundsRequest) (*ListSoundsResponse, error) {
	sounds := s.service.Sounds()

	response := &ListSoundsResponse{Sounds: make([]*Sound, 0, len(sounds))}
	for _, sound := range sounds {
		response.Sounds = append(response.Sounds, &Sound{Name: sound.Name, File: sound.File})
	}

	return response, nil
}

// requireID extracts a non-empty alarm id from the request.
func requireID(req *AlarmRequest) (string, error) {
	if req == nil {
		return "", status.Error(codes.InvalidArgument, "request is required")
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		return "", status.Error(codes.InvalidArgument, "alarm id is required")
	}

	return id, nil
}

// toStatus maps domain errors to gRPC codes. Unexpected errors are logged and hidden.
func toStatus(ctx context.Context, operation string, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidTime), errors.Is(err, domain.ErrUnknownSound):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrDuplicateID):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrSpawnFailure):
		return status.Error(codes.Unavailable, err.Error())
	default:
		logger.ErrorKV(ctx, "Request failed", "operation", operation, "error", err)

		return status.Error(codes.Internal, "unable to "+operation)
	}
}

// toDomainActor converts a wire Actor to a domain Actor.
func toDomainActor(actor *Actor) *domain.Actor {
	if actor == nil {
		return nil
	}

	return &domain.Actor{
		Hostname: actor.Hostname,
		Username: actor.Username,
	}
}

// actorString renders a wire actor for logs.
func actorString(actor *Actor) string {
	return toDomainActor(actor).String()
}

// toWireAlarm converts a domain record to its wire form.
func toWireAlarm(record *domain.Record) *Alarm {
	if record == nil {
		return nil
	}

	var actor *Actor
	if record.CreatedBy != nil {
		actor = &Actor{
			Hostname: record.CreatedBy.Hostname,
			Username: record.CreatedBy.Username,
		}
	}

	return &Alarm{
		ID:                record.ID,
		Title:             record.Title,
		Time:              record.Time,
		FireAt:            record.FireAt,
		TriggerExpression: record.TriggerExpression,
		Sound:             record.SoundRef,
		State:             string(record.State),
		CreatedAt:         record.CreatedAt,
		UpdatedAt:         record.UpdatedAt,
		CreatedBy:         actor,
		PlayerPID:         record.PlayerPID,
		Failure:           record.Failure,
	}
}
