// Package agent drives one conversation: it feeds final transcripts to the
// language model, runs the tool calls it asks for and speaks its replies.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/superfeelapi/goVoiceAgent/business/tools"
	"go.uber.org/zap"
)

const (
	apiTimeout = 30
)

type Driver struct {
	config    Config
	completer Completer
	transport Transport
	registry  *tools.Registry
	publisher Publisher
	logger    *zap.SugaredLogger
	tools     []openai.Tool

	mu        sync.Mutex
	history   []openai.ChatCompletionMessage
	completed bool
}

func New(s Settings) *Driver {
	cfg := s.Config
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.ToolRounds <= 0 {
		cfg.ToolRounds = DefaultToolRounds
	}

	d := Driver{
		config:    cfg,
		completer: s.Completer,
		transport: s.Transport,
		registry:  s.Tools,
		publisher: s.Publisher,
		logger:    s.Logger,
	}

	if s.Tools != nil {
		for _, t := range s.Tools.List() {
			d.tools = append(d.tools, openai.Tool{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
	}

	if cfg.Instructions != "" {
		d.history = append(d.history, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: cfg.Instructions,
		})
	}

	return &d
}

// Greet speaks the opening line. The instruction is followed verbatim and the
// caller cannot interrupt it.
func (d *Driver) Greet(ctx context.Context, instruction string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.logger.Infow("agent: greet", "instruction", instruction)

	d.history = append(d.history, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: instruction,
	})
	return d.turn(ctx, false)
}

// Run answers every final transcript until ctx is done. Any model or
// transport failure ends the conversation.
func (d *Driver) Run(ctx context.Context) error {
	d.logger.Infow("agent: run: G started")
	defer d.logger.Infow("agent: run: G completed")

	return d.transport.Listen(ctx, func(text string) error {
		return d.Respond(ctx, text)
	})
}

// Respond handles one user utterance.
func (d *Driver) Respond(ctx context.Context, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.completed {
		d.logger.Infow("agent: respond: conversation completed, transcript ignored", "transcription", text)
		return nil
	}

	d.history = append(d.history, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	})
	return d.turn(ctx, true)
}

// Completed reports whether a tool invocation declared the call complete.
func (d *Driver) Completed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.completed
}

// turn asks the model for a reply and executes tool calls until the model
// answers in plain text, completes the call or runs out of tool rounds.
func (d *Driver) turn(ctx context.Context, allowInterruptions bool) error {
	for round := 0; ; round++ {
		msg, err := d.complete(ctx)
		if err != nil {
			return err
		}
		d.history = append(d.history, msg)

		if content := strings.TrimSpace(msg.Content); content != "" {
			if err := d.transport.Say(ctx, content, allowInterruptions); err != nil {
				return fmt.Errorf("agent: say: %w", err)
			}
		}

		if len(msg.ToolCalls) == 0 {
			return nil
		}

		for _, call := range msg.ToolCalls {
			ex := d.registry.Execute(ctx, call.Function.Name, call.Function.Arguments)
			d.publish(ex)

			d.history = append(d.history, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    ex.Output,
				Name:       call.Function.Name,
				ToolCallID: call.ID,
			})

			if ex.Completion() {
				d.completed = true
			}
		}

		if d.completed {
			d.logger.Infow("agent: turn: conversation completed")
			return nil
		}

		if round+1 >= d.config.ToolRounds {
			d.logger.Warnw("agent: turn: tool round limit reached", "rounds", d.config.ToolRounds)
			return nil
		}
	}
}

func (d *Driver) complete(ctx context.Context) (openai.ChatCompletionMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, apiTimeout*time.Second)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       d.config.Model,
		Messages:    d.history,
		Temperature: d.config.Temperature,
		Tools:       d.tools,
	}

	resp, err := d.completer.CreateChatCompletion(ctx, req)
	if err != nil {
		return openai.ChatCompletionMessage{}, fmt.Errorf("agent: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return openai.ChatCompletionMessage{}, errors.New("agent: completion: no choices returned")
	}

	return resp.Choices[0].Message, nil
}

func (d *Driver) publish(ex tools.Executed) {
	if d.publisher == nil || d.config.ToolTopic == "" {
		return
	}
	if err := d.publisher.Publish(d.config.ToolTopic, ex); err != nil {
		d.logger.Warnw("agent: publish: tool executed event dropped", "tool", ex.Name, "ERROR", err)
	}
}
