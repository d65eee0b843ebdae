// Package ledger accumulates the facts captured during one call and renders
// the record written when the call ends.
package ledger

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const hungUpSummary = "Call hung up by user"

var ErrCompleted = errors.New("session already completed")

// Sink receives one row per recorded session or order.
type Sink interface {
	Append(row []string) error
}

// Snapshot is a copy of the ledger state.
type Snapshot struct {
	StartedAt time.Time
	Facts     map[Field]string
	Completed bool
	Summary   string
}

func (s Snapshot) Timestamp() string {
	return s.StartedAt.UTC().Format(time.RFC3339)
}

// Order is the record written once a checkout succeeds.
type Order struct {
	Timestamp    time.Time
	CustomerName string
	Product      string
	Email        string
	OrderID      string
	TrackingID   string
	Summary      string
}

func (o Order) Row() []string {
	return []string{o.Timestamp.UTC().Format(time.RFC3339), o.CustomerName, o.Product, o.Email, o.OrderID, o.TrackingID, o.Summary}
}

// Ledger is owned by a single call. Its methods are safe for concurrent use.
type Ledger struct {
	mu        sync.Mutex
	variant   Variant
	sink      Sink
	logger    *zap.SugaredLogger
	facts     map[Field]string
	defaults  map[Field]string
	completed bool
	startedAt time.Time
	verified  string
	order     *Order
	flushed   bool
}

type Option func(*Ledger)

// WithDefault supplies a value used in the rendered row when the field was
// never captured during the call.
func WithDefault(f Field, value string) Option {
	return func(l *Ledger) {
		if v := strings.TrimSpace(value); v != "" {
			l.defaults[f] = v
		}
	}
}

func WithStart(t time.Time) Option {
	return func(l *Ledger) { l.startedAt = t }
}

func New(v Variant, sink Sink, logger *zap.SugaredLogger, opts ...Option) *Ledger {
	l := &Ledger{
		variant:   v,
		sink:      sink,
		logger:    logger,
		facts:     make(map[Field]string),
		defaults:  make(map[Field]string),
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Update records value under f. Blank values, fields outside the variant,
// values outside a constrained set, and any write after completion or flush
// are dropped silently and reported as false. Writing Summary marks the
// session completed for good.
func (l *Ledger) Update(f Field, value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.completed || l.flushed || !l.variant.accepts(f) || !l.variant.allowed(f, value) {
		return false
	}

	l.facts[f] = value
	if f == Summary {
		l.completed = true
		l.logger.Infow("ledger: update: summary provided, call marked as completed", "summary", value)
		return true
	}

	l.logger.Infow("ledger: update", "field", string(f), "value", value)
	return true
}

func (l *Ledger) Get(f Field) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.facts[f]
	return v, ok
}

// Complete sets the completion flag without summary text. The rendered
// summary then falls back to a generated one.
func (l *Ledger) Complete() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.completed {
		l.completed = true
		l.logger.Infow("ledger: complete: marked as completed without summary")
	}
}

func (l *Ledger) Completed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.completed
}

func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot()
}

func (l *Ledger) snapshot() Snapshot {
	facts := make(map[Field]string, len(l.facts)+len(l.defaults))
	for k, v := range l.defaults {
		facts[k] = v
	}
	for k, v := range l.facts {
		facts[k] = v
	}
	return Snapshot{
		StartedAt: l.startedAt,
		Facts:     facts,
		Completed: l.completed,
		Summary:   l.summary(),
	}
}

// RenderSummary returns the text recorded as the call summary.
func (l *Ledger) RenderSummary() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.summary()
}

func (l *Ledger) summary() string {
	if s := l.facts[Summary]; s != "" {
		return s
	}
	if l.completed {
		s := "Call completed by AI"
		if r := l.facts[l.variant.Reason]; r != "" {
			s += fmt.Sprintf(" - %s: %s", l.variant.ReasonLabel, r)
		}
		return s
	}
	return hungUpSummary
}

// MarkVerified records that address passed one-time code verification.
func (l *Ledger) MarkVerified(address string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verified = strings.ToLower(strings.TrimSpace(address))
}

func (l *Ledger) Verified(address string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.verified != "" && l.verified == strings.ToLower(strings.TrimSpace(address))
}

// RecordOrder writes o to the sink and remembers it, so the end-of-call flush
// does not record the same checkout twice.
func (l *Ledger) RecordOrder(o Order) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.completed || l.flushed {
		return ErrCompleted
	}
	if l.order != nil {
		return fmt.Errorf("order %s already recorded", l.order.OrderID)
	}

	if err := l.sink.Append(o.Row()); err != nil {
		return fmt.Errorf("ledger: record order: %w", err)
	}

	l.order = &o
	l.logger.Infow("ledger: order recorded", "orderID", o.OrderID, "trackingID", o.TrackingID)
	return nil
}

func (l *Ledger) Order() (Order, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.order == nil {
		return Order{}, false
	}
	return *l.order, true
}

// Flush writes the session row when the anchor fact was captured. It reports
// whether a row was written and only ever writes once.
func (l *Ledger) Flush() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.flushed {
		return false, nil
	}
	l.flushed = true

	if l.order != nil {
		l.logger.Infow("ledger: flush: order already recorded", "orderID", l.order.OrderID)
		return false, nil
	}

	if l.facts[l.variant.Anchor] == "" {
		l.logger.Infow("ledger: flush: no significant data to save")
		return false, nil
	}

	snap := l.snapshot()
	if err := l.sink.Append(l.variant.row(snap)); err != nil {
		return false, fmt.Errorf("ledger: flush: %w", err)
	}

	l.logger.Infow("ledger: flush: session data saved", "facts", snap.Facts, "summary", snap.Summary)
	return true, nil
}
