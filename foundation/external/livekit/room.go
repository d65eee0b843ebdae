package livekit

import (
	"context"
	"fmt"
	"sync"

	lksdk "github.com/livekit/server-sdk-go/v2"
	"go.uber.org/zap"
)

// Callbacks receive the room events the call lifecycle reacts to.
type Callbacks struct {
	OnParticipantLeft func(identity string)
	OnDisconnected    func(reason string)
}

// Room is the agent's session in one LiveKit room.
type Room struct {
	service  *Service
	name     string
	identity string
	room     *lksdk.Room
	logger   *zap.SugaredLogger

	joined     chan struct{}
	joinedOnce sync.Once
}

// Join connects the agent to name as identity.
func Join(svc *Service, name, identity string, cb Callbacks, logger *zap.SugaredLogger) (*Room, error) {
	r := Room{
		service:  svc,
		name:     name,
		identity: identity,
		logger:   logger,
		joined:   make(chan struct{}),
	}

	callback := &lksdk.RoomCallback{
		OnParticipantConnected: func(p *lksdk.RemoteParticipant) {
			r.logger.Infow("livekit: participant connected", "identity", p.Identity())
			r.markJoined()
		},
		OnParticipantDisconnected: func(p *lksdk.RemoteParticipant) {
			r.logger.Infow("livekit: participant disconnected", "identity", p.Identity())
			if cb.OnParticipantLeft != nil {
				cb.OnParticipantLeft(p.Identity())
			}
		},
		OnDisconnected: func() {
			r.logger.Infow("livekit: room disconnected")
			if cb.OnDisconnected != nil {
				cb.OnDisconnected("room disconnected")
			}
		},
	}

	info := lksdk.ConnectInfo{
		APIKey:              svc.config.APIKey,
		APISecret:           svc.config.APISecret,
		RoomName:            name,
		ParticipantIdentity: identity,
		ParticipantName:     identity,
	}

	room, err := lksdk.ConnectToRoom(svc.config.URL, info, callback)
	if err != nil {
		return nil, fmt.Errorf("livekit: join %s: %w", name, err)
	}
	r.room = room

	if len(room.GetRemoteParticipants()) > 0 {
		r.markJoined()
	}

	return &r, nil
}

func (r *Room) Name() string {
	return r.name
}

// WaitForParticipant blocks until a remote participant is in the room.
func (r *Room) WaitForParticipant(ctx context.Context) error {
	select {
	case <-r.joined:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Room) HumanParticipants(ctx context.Context) (int, error) {
	return r.service.HumanParticipants(ctx, r.name, r.identity)
}

// Delete removes the room for every participant and leaves it.
func (r *Room) Delete(ctx context.Context) error {
	defer r.room.Disconnect()
	return r.service.DeleteRoom(ctx, r.name)
}

func (r *Room) markJoined() {
	r.joinedOnce.Do(func() {
		close(r.joined)
	})
}
