package notify_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/superfeelapi/goVoiceAgent/business/ledger"
	"github.com/superfeelapi/goVoiceAgent/business/notify"
	"github.com/superfeelapi/goVoiceAgent/business/otp"
	"github.com/superfeelapi/goVoiceAgent/foundation/external/mailer"
	"github.com/superfeelapi/goVoiceAgent/foundation/state"
	"go.uber.org/zap"
)

type mail struct {
	to, subject, body string
}

type fakeSender struct {
	configured bool
	err        error
	sent       []mail
}

func (s *fakeSender) Configured() bool { return s.configured }

func (s *fakeSender) Send(_ context.Context, to, subject, body string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, mail{to, subject, body})
	return nil
}

func TestDeliverCode(t *testing.T) {
	sender := &fakeSender{configured: true}
	m := notify.New(sender, "Zenitheon", state.NewState(), zap.NewNop().Sugar())

	if err := m.DeliverCode(context.Background(), "ana@example.com", "482913", 10*time.Minute); err != nil {
		t.Fatal(err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d mails", len(sender.sent))
	}
	got := sender.sent[0]
	if got.to != "ana@example.com" || !strings.Contains(got.subject, "Zenitheon") || !strings.Contains(got.body, "482913") {
		t.Fatalf("mail %+v", got)
	}
}

func TestDeliverCodeStatesIssuerTTL(t *testing.T) {
	sender := &fakeSender{configured: true}
	log := zap.NewNop().Sugar()
	m := notify.New(sender, "Zenitheon", state.NewState(), log)

	issuer := otp.New(log, otp.WithTTL(5*time.Minute), otp.WithDeliverer(m))
	if _, delivered, err := issuer.Issue(context.Background(), "ana@example.com"); err != nil || !delivered {
		t.Fatalf("delivered=%v err=%v", delivered, err)
	}

	if len(sender.sent) != 1 || !strings.Contains(sender.sent[0].body, "valid for 5 minutes") {
		t.Fatalf("sent %+v", sender.sent)
	}
}

func TestNotConfigured(t *testing.T) {
	m := notify.New(&fakeSender{}, "Zenitheon", state.NewState(), zap.NewNop().Sugar())

	err := m.DeliverCode(context.Background(), "ana@example.com", "482913", 10*time.Minute)
	if !errors.Is(err, mailer.ErrNotConfigured) {
		t.Fatalf("err = %v", err)
	}
}

func TestFailureDisablesMail(t *testing.T) {
	sender := &fakeSender{configured: true, err: errors.New("535 authentication failed")}
	st := state.NewState()
	m := notify.New(sender, "Zenitheon", st, zap.NewNop().Sugar())
	ctx := context.Background()

	if err := m.DeliverCode(ctx, "ana@example.com", "482913", 10*time.Minute); err == nil {
		t.Fatal("expected failure")
	}
	if st.Get(state.Mailer) {
		t.Fatal("mailer still enabled")
	}

	sender.err = nil
	order := ledger.Order{CustomerName: "Ana", Product: "Linen Shirt", Email: "ana@example.com", OrderID: "ORD-1", TrackingID: "TRK-1"}
	if err := m.SendOrderConfirmation(ctx, order); !errors.Is(err, notify.ErrDisabled) {
		t.Fatalf("err = %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatal("no mail may be sent once disabled")
	}
}

// A failed delivery leaves the issued code valid.
func TestIssuerFallback(t *testing.T) {
	sender := &fakeSender{configured: true, err: errors.New("connection refused")}
	log := zap.NewNop().Sugar()
	issuer := otp.New(log, otp.WithDeliverer(notify.New(sender, "Zenitheon", state.NewState(), log)))

	code, delivered, err := issuer.Issue(context.Background(), "ana@example.com")
	if err != nil || delivered {
		t.Fatalf("delivered %v err %v", delivered, err)
	}
	if err := issuer.Verify("ana@example.com", code); err != nil {
		t.Fatalf("verify: %v", err)
	}
}
