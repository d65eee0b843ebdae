// Package gateway talks to the speech gateway that turns the caller's audio
// into transcripts and the agent's replies into speech.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	apiTimeout = 5
)

type Config struct {
	Scheme string
	Host   string
	Path   string
	ApiKey string
}

type Gateway struct {
	conn   *websocket.Conn
	room   string
	logger *zap.SugaredLogger

	writeMu sync.Mutex
}

// Dial opens the gateway socket for room and announces the room on it.
func Dial(ctx context.Context, cfg Config, room string, logger *zap.SugaredLogger) (*Gateway, error) {
	ctx, cancel := context.WithTimeout(ctx, apiTimeout*time.Second)
	defer cancel()

	u := url.URL{Scheme: cfg.Scheme, Host: cfg.Host, Path: cfg.Path}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), http.Header{"api-key": []string{cfg.ApiKey}})
	if err != nil {
		return nil, fmt.Errorf("gateway: dial %s: %w", u.String(), err)
	}

	g := Gateway{
		conn:   conn,
		room:   room,
		logger: logger,
	}

	if err := g.write(Message{Type: HelloMessage, Room: room}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("gateway: hello: %w", err)
	}

	return &g, nil
}

// Say asks the gateway to speak text into the room.
func (g *Gateway) Say(ctx context.Context, text string, allowInterruptions bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.logger.Infow("gateway: say", "text", text, "allowInterruptions", allowInterruptions)
	return g.write(Message{Type: SayMessage, Room: g.room, Text: text, AllowInterruptions: allowInterruptions})
}

// Listen hands every final transcript to fn until ctx is done, the socket
// fails or fn returns an error. A cancelled ctx is not an error.
func (g *Gateway) Listen(ctx context.Context, fn func(text string) error) error {
	g.logger.Infow("gateway: listen: G started")
	defer g.logger.Infow("gateway: listen: G completed")

	stop := context.AfterFunc(ctx, func() {
		g.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		var msg Message
		if err := g.conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return errors.New("gateway: listen: closed by peer")
			}
			return fmt.Errorf("gateway: listen: conn.ReadJSON: %w", err)
		}

		if msg.Type != TranscriptMessage {
			continue
		}

		text := strings.TrimSpace(msg.Text)
		if !msg.IsFinal || text == "" {
			continue
		}

		g.logger.Infow("gateway: listen", "transcription", text, "isFinal", msg.IsFinal)
		if err := fn(text); err != nil {
			return err
		}
	}
}

func (g *Gateway) Close() error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	{
		deadline := time.Now().Add(apiTimeout * time.Second)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := g.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			g.logger.Infow("gateway: close: write close message", "ERROR", err)
		}
	}
	return g.conn.Close()
}

func (g *Gateway) write(msg Message) error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	{
		g.conn.SetWriteDeadline(time.Now().Add(apiTimeout * time.Second))
		if err := g.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("conn.WriteJSON: %w", err)
		}
	}
	return nil
}
