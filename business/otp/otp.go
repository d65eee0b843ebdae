// Package otp issues and verifies single-use numeric codes bound to a
// recipient address.
package otp

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNotFound = errors.New("no code on record")
	ErrMismatch = errors.New("code does not match")
)

// DefaultTTL is how long a code stays valid unless WithTTL says otherwise.
const DefaultTTL = 10 * time.Minute

const codeSpace = 1_000_000

// sampleLimit is the largest multiple of codeSpace that fits in a uint32.
// Draws at or above it are rejected to keep the distribution uniform.
const sampleLimit = (1 << 32 / codeSpace) * codeSpace

// Deliverer sends an issued code to its recipient.
type Deliverer interface {
	DeliverCode(ctx context.Context, address, code string, ttl time.Duration) error
}

type entry struct {
	code     string
	issuedAt time.Time
}

// Issuer is safe for concurrent use by calls addressing different recipients.
type Issuer struct {
	mu    sync.Mutex
	codes map[string]entry

	ttl       time.Duration
	deliverer Deliverer
	logger    *zap.SugaredLogger
	random    io.Reader
	now       func() time.Time
}

type Option func(*Issuer)

// WithTTL sets how long an issued code stays valid. Zero disables expiry, so a
// code only dies by being verified or overwritten.
func WithTTL(ttl time.Duration) Option {
	return func(i *Issuer) { i.ttl = ttl }
}

func WithDeliverer(d Deliverer) Option {
	return func(i *Issuer) { i.deliverer = d }
}

func WithRandom(r io.Reader) Option {
	return func(i *Issuer) { i.random = r }
}

func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

func New(logger *zap.SugaredLogger, opts ...Option) *Issuer {
	i := &Issuer{
		codes:  make(map[string]entry),
		ttl:    DefaultTTL,
		logger: logger,
		random: rand.Reader,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Normalize case-folds and trims an address so lookups are case-insensitive.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Issue generates a fresh 6-digit code for address, replacing any code still
// on record, and hands it to the deliverer. A delivery failure does not
// invalidate the code: it is written to the operational log instead and
// delivered reports false.
func (i *Issuer) Issue(ctx context.Context, address string) (code string, delivered bool, err error) {
	key := Normalize(address)
	if key == "" {
		return "", false, errors.New("address is required")
	}

	code, err = randomCode(i.random)
	if err != nil {
		return "", false, fmt.Errorf("otp: generate: %w", err)
	}

	i.mu.Lock()
	i.codes[key] = entry{code: code, issuedAt: i.now()}
	i.mu.Unlock()

	i.logger.Infow("otp: issue: code stored", "address", key)

	if i.deliverer == nil {
		i.logger.Warnw("otp: issue: delivery skipped", "address", key, "code", code)
		return code, false, nil
	}

	if err := i.deliverer.DeliverCode(ctx, key, code, i.ttl); err != nil {
		i.logger.Warnw("otp: issue: delivery skipped", "address", key, "code", code, "ERROR", err)
		return code, false, nil
	}

	return code, true, nil
}

// Verify consumes the code on record for address when it equals code.
func (i *Issuer) Verify(address, code string) error {
	key := Normalize(address)
	code = strings.TrimSpace(code)

	i.mu.Lock()
	defer i.mu.Unlock()

	e, ok := i.codes[key]
	if !ok {
		return ErrNotFound
	}

	if i.ttl > 0 && i.now().Sub(e.issuedAt) > i.ttl {
		delete(i.codes, key)
		i.logger.Infow("otp: verify: code expired", "address", key)
		return ErrNotFound
	}

	if e.code != code {
		return ErrMismatch
	}

	delete(i.codes, key)
	i.logger.Infow("otp: verify: code consumed", "address", key)
	return nil
}

// Pending reports the code currently on record for address.
func (i *Issuer) Pending(address string) (string, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	e, ok := i.codes[Normalize(address)]
	return e.code, ok
}

func randomCode(r io.Reader) (string, error) {
	var b [4]byte
	for {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return "", err
		}
		if v := binary.BigEndian.Uint32(b[:]); v < sampleLimit {
			return fmt.Sprintf("%06d", v%codeSpace), nil
		}
	}
}
