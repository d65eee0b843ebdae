package otp_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/superfeelapi/goVoiceAgent/business/otp"
	"go.uber.org/zap"
)

type fakeDeliverer struct {
	mu   sync.Mutex
	sent map[string]string
	err  error
}

func (d *fakeDeliverer) DeliverCode(_ context.Context, address, code string, _ time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	if d.sent == nil {
		d.sent = make(map[string]string)
	}
	d.sent[address] = code
	return nil
}

// fixedRandom yields n as the next big-endian draw.
func fixedRandom(n ...uint32) *bytes.Reader {
	b := make([]byte, 0, 4*len(n))
	for _, v := range n {
		b = binary.BigEndian.AppendUint32(b, v)
	}
	return bytes.NewReader(b)
}

func newIssuer(opts ...otp.Option) *otp.Issuer {
	return otp.New(zap.NewNop().Sugar(), opts...)
}

func TestIssue(t *testing.T) {
	t.Run("six digits and normalized key", func(t *testing.T) {
		t.Parallel()
		d := &fakeDeliverer{}
		i := newIssuer(otp.WithDeliverer(d))

		code, delivered, err := i.Issue(context.Background(), "  A@B.com ")
		if err != nil {
			t.Fatal(err)
		}
		if !delivered {
			t.Fatal("expected delivery")
		}
		if len(code) != 6 || strings.Trim(code, "0123456789") != "" {
			t.Fatalf("code = %q, want 6 digits", code)
		}
		if d.sent["a@b.com"] != code {
			t.Fatalf("delivered = %v", d.sent)
		}
		if got, ok := i.Pending("a@b.com"); !ok || got != code {
			t.Fatalf("pending = %q, %v", got, ok)
		}
	})

	t.Run("leading zeros kept", func(t *testing.T) {
		t.Parallel()
		i := newIssuer(otp.WithRandom(fixedRandom(42)))
		code, _, err := i.Issue(context.Background(), "a@b.com")
		if err != nil {
			t.Fatal(err)
		}
		if code != "000042" {
			t.Fatalf("code = %q, want 000042", code)
		}
	})

	t.Run("delivery failure keeps code", func(t *testing.T) {
		t.Parallel()
		i := newIssuer(otp.WithDeliverer(&fakeDeliverer{err: errors.New("smtp down")}))
		code, delivered, err := i.Issue(context.Background(), "a@b.com")
		if err != nil {
			t.Fatal(err)
		}
		if delivered {
			t.Fatal("delivery should report false")
		}
		if err := i.Verify("a@b.com", code); err != nil {
			t.Fatalf("code should still verify: %v", err)
		}
	})

	t.Run("empty address", func(t *testing.T) {
		t.Parallel()
		if _, _, err := newIssuer().Issue(context.Background(), "  "); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestVerifyScenario(t *testing.T) {
	i := newIssuer(otp.WithRandom(fixedRandom(482913)))

	code, _, err := i.Issue(context.Background(), "a@b.com")
	if err != nil {
		t.Fatal(err)
	}
	if code != "482913" {
		t.Fatalf("code = %q, want 482913", code)
	}

	if err := i.Verify("a@b.com", "000000"); !errors.Is(err, otp.ErrMismatch) {
		t.Fatalf("wrong code err = %v, want ErrMismatch", err)
	}
	if got, _ := i.Pending("a@b.com"); got != "482913" {
		t.Fatalf("mismatch mutated state: %q", got)
	}

	if err := i.Verify("A@B.COM", "482913"); err != nil {
		t.Fatalf("correct code err = %v", err)
	}
	if _, ok := i.Pending("a@b.com"); ok {
		t.Fatal("code should be consumed")
	}

	if err := i.Verify("a@b.com", "482913"); !errors.Is(err, otp.ErrNotFound) {
		t.Fatalf("replay err = %v, want ErrNotFound", err)
	}
}

func TestReissueInvalidatesPrevious(t *testing.T) {
	i := newIssuer(otp.WithRandom(fixedRandom(111111, 222222)))

	first, _, err := i.Issue(context.Background(), "a@b.com")
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := i.Issue(context.Background(), "a@b.com")
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatalf("codes should differ: %s", first)
	}

	if err := i.Verify("a@b.com", first); !errors.Is(err, otp.ErrMismatch) {
		t.Fatalf("first code err = %v, want ErrMismatch", err)
	}
	if err := i.Verify("a@b.com", second); err != nil {
		t.Fatalf("second code err = %v", err)
	}
}

func TestRejectionSampling(t *testing.T) {
	// 4294967295 is above the sampling limit and must be redrawn.
	i := newIssuer(otp.WithRandom(fixedRandom(4294967295, 7)))
	code, _, err := i.Issue(context.Background(), "a@b.com")
	if err != nil {
		t.Fatal(err)
	}
	if code != "000007" {
		t.Fatalf("code = %q, want 000007", code)
	}
}

func TestVerifyUnknownAddress(t *testing.T) {
	if err := newIssuer().Verify("nobody@b.com", "123456"); !errors.Is(err, otp.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	t.Run("expired code is removed", func(t *testing.T) {
		i := newIssuer(otp.WithClock(clock), otp.WithTTL(10*time.Minute))
		code, _, _ := i.Issue(context.Background(), "a@b.com")

		now = now.Add(11 * time.Minute)
		if err := i.Verify("a@b.com", code); !errors.Is(err, otp.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
		if _, ok := i.Pending("a@b.com"); ok {
			t.Fatal("expired code should be deleted")
		}
	})

	t.Run("zero ttl never expires", func(t *testing.T) {
		i := newIssuer(otp.WithClock(clock), otp.WithTTL(0))
		code, _, _ := i.Issue(context.Background(), "a@b.com")

		now = now.Add(24 * time.Hour)
		if err := i.Verify("a@b.com", code); err != nil {
			t.Fatalf("err = %v, want nil", err)
		}
	})
}

func TestConcurrentAddresses(t *testing.T) {
	i := newIssuer()

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for n := 0; n < 100; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			addr := fmt.Sprintf("user%d@b.com", n)
			code, _, err := i.Issue(context.Background(), addr)
			if err != nil {
				errs <- err
				return
			}
			if err := i.Verify(addr, code); err != nil {
				errs <- fmt.Errorf("%s: %w", addr, err)
			}
		}(n)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
