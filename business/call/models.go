package call

import (
	"context"

	"github.com/superfeelapi/goVoiceAgent/foundation/config"
	"github.com/superfeelapi/goVoiceAgent/foundation/pubsub"
	"go.uber.org/zap"
)

// Topics the controller listens on.
const (
	ToolExecutedTopic    = "tool-executed"
	ParticipantLeftTopic = "participant-left"
	DisconnectedTopic    = "disconnected"
)

// ParticipantLeft is published when a remote participant leaves the room.
type ParticipantLeft struct {
	Identity string
}

// Disconnected is published when the media session is lost.
type Disconnected struct {
	Reason string
}

type Reason string

const (
	ReasonCompleted    Reason = "completed"
	ReasonDisconnected Reason = "disconnected"
	ReasonRoomEmpty    Reason = "room-empty"
	ReasonWatchdog     Reason = "watchdog"
	ReasonShutdown     Reason = "shutdown"
	ReasonFatal        Reason = "fatal"
)

// Room is the media room the call runs in.
type Room interface {
	Name() string
	WaitForParticipant(ctx context.Context) error
	HumanParticipants(ctx context.Context) (int, error)
	Delete(ctx context.Context) error
}

// Conversation is the scripted dialogue running over the room.
type Conversation interface {
	Greet(ctx context.Context, instruction string) error
	Run(ctx context.Context) error
}

// Ledger is flushed once when the call ends.
type Ledger interface {
	Flush() (bool, error)
}

type Settings struct {
	Flow         config.Flow
	Opening      string
	Room         Room
	Conversation Conversation
	Ledger       Ledger
	Broker       *pubsub.Broker
	Logger       *zap.SugaredLogger
}
