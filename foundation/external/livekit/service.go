// Package livekit adapts LiveKit rooms to the call lifecycle: room creation
// and deletion, participant census, join tokens and the agent's own session.
package livekit

import (
	"context"
	"fmt"
	"time"

	"github.com/livekit/protocol/auth"
	protocol "github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
)

const (
	apiTimeout = 10
)

type Config struct {
	URL       string
	APIKey    string
	APISecret string
}

type Service struct {
	config Config
	rooms  *lksdk.RoomServiceClient
}

func NewService(cfg Config) *Service {
	return &Service{
		config: cfg,
		rooms:  lksdk.NewRoomServiceClient(cfg.URL, cfg.APIKey, cfg.APISecret),
	}
}

func (s *Service) URL() string {
	return s.config.URL
}

// CreateRoom creates name ahead of the first join. emptyTimeout bounds how
// long the room survives without participants.
func (s *Service) CreateRoom(ctx context.Context, name string, emptyTimeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, apiTimeout*time.Second)
	defer cancel()

	_, err := s.rooms.CreateRoom(ctx, &protocol.CreateRoomRequest{
		Name:         name,
		EmptyTimeout: uint32(emptyTimeout.Seconds()),
	})
	if err != nil {
		return fmt.Errorf("livekit: create room %s: %w", name, err)
	}
	return nil
}

func (s *Service) DeleteRoom(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, apiTimeout*time.Second)
	defer cancel()

	if _, err := s.rooms.DeleteRoom(ctx, &protocol.DeleteRoomRequest{Room: name}); err != nil {
		return fmt.Errorf("livekit: delete room %s: %w", name, err)
	}
	return nil
}

// HumanParticipants counts the participants of room that are neither self nor
// another agent.
func (s *Service) HumanParticipants(ctx context.Context, room string, self string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, apiTimeout*time.Second)
	defer cancel()

	res, err := s.rooms.ListParticipants(ctx, &protocol.ListParticipantsRequest{Room: room})
	if err != nil {
		return 0, fmt.Errorf("livekit: list participants %s: %w", room, err)
	}
	return CountHumans(res.GetParticipants(), self), nil
}

// Token returns a join token for identity in room.
func (s *Service) Token(room, identity, name string, validFor time.Duration) (string, error) {
	at := auth.NewAccessToken(s.config.APIKey, s.config.APISecret)
	at.AddGrant(&auth.VideoGrant{
		RoomJoin: true,
		Room:     room,
	}).
		SetIdentity(identity).
		SetName(name).
		SetValidFor(validFor)

	jwt, err := at.ToJWT()
	if err != nil {
		return "", fmt.Errorf("livekit: token: %w", err)
	}
	return jwt, nil
}

func CountHumans(participants []*protocol.ParticipantInfo, self string) int {
	var n int
	for _, p := range participants {
		if p.GetIdentity() == self || p.GetKind() == protocol.ParticipantInfo_AGENT {
			continue
		}
		n++
	}
	return n
}
