package agent

import (
	"context"

	"github.com/sashabaranov/go-openai"
	"github.com/superfeelapi/goVoiceAgent/business/tools"
	"go.uber.org/zap"
)

const (
	DefaultModel       = openai.GPT4oMini
	DefaultTemperature = 0.3
	DefaultToolRounds  = 8
)

// Completer is the chat-completion endpoint. *openai.Client satisfies it.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Transport carries final transcripts in and the agent's speech out.
type Transport interface {
	Say(ctx context.Context, text string, allowInterruptions bool) error
	Listen(ctx context.Context, fn func(text string) error) error
}

type Publisher interface {
	Publish(topic string, data any) error
}

type Settings struct {
	Config
	Completer Completer
	Transport Transport
	Tools     *tools.Registry
	Publisher Publisher
	Logger    *zap.SugaredLogger
}

type Config struct {
	Model        string
	Temperature  float32
	ToolRounds   int
	Instructions string

	// ToolTopic receives a tools.Executed after every tool invocation.
	ToolTopic string
}
