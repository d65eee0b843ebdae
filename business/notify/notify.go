// Package notify delivers one-time codes and order confirmations by mail.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/superfeelapi/goVoiceAgent/business/ledger"
	"github.com/superfeelapi/goVoiceAgent/foundation/external/mailer"
	"github.com/superfeelapi/goVoiceAgent/foundation/state"
	"go.uber.org/zap"
)

var ErrDisabled = errors.New("mail delivery disabled after an earlier failure")

type Sender interface {
	Configured() bool
	Send(ctx context.Context, to, subject, body string) error
}

// Mail stops trying once a send has failed, so the rest of the call falls
// back to the operational log right away.
type Mail struct {
	sender  Sender
	company string
	state   *state.State
	logger  *zap.SugaredLogger
}

func New(sender Sender, company string, st *state.State, logger *zap.SugaredLogger) *Mail {
	return &Mail{
		sender:  sender,
		company: company,
		state:   st,
		logger:  logger,
	}
}

func (m *Mail) DeliverCode(ctx context.Context, address, code string, ttl time.Duration) error {
	subject, body := mailer.OtpMessage(m.company, code, ttl)
	return m.send(ctx, address, subject, body)
}

func (m *Mail) SendOrderConfirmation(ctx context.Context, o ledger.Order) error {
	subject, body := mailer.OrderMessage(m.company, o.CustomerName, o.Product, o.OrderID, o.TrackingID)
	return m.send(ctx, o.Email, subject, body)
}

func (m *Mail) send(ctx context.Context, to, subject, body string) error {
	if !m.sender.Configured() {
		return mailer.ErrNotConfigured
	}
	if !m.state.Get(state.Mailer) {
		return ErrDisabled
	}

	if err := m.sender.Send(ctx, to, subject, body); err != nil {
		m.state.Set(state.Mailer, false)
		m.logger.Errorw("notify: send", "to", to, "ERROR", err)
		return fmt.Errorf("notify: send: %w", err)
	}

	m.logger.Infow("notify: sent", "to", to, "subject", subject)
	return nil
}
