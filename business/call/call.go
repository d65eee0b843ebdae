// Package call owns the lifecycle of one call: it starts the scripted
// conversation, races the termination triggers and tears the call down
// exactly once.
package call

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/superfeelapi/goVoiceAgent/business/tools"
	"github.com/superfeelapi/goVoiceAgent/foundation/config"
	"github.com/superfeelapi/goVoiceAgent/foundation/pubsub"
	"go.uber.org/zap"
)

const (
	subscriberCapacity = 16
	teardownTimeout    = 10 * time.Second
)

type Controller struct {
	flow         config.Flow
	opening      string
	room         Room
	conversation Conversation
	ledger       Ledger
	broker       *pubsub.Broker
	logger       *zap.SugaredLogger

	state     atomic.Int32
	finalized atomic.Bool
	reason    Reason

	mu         sync.Mutex
	cancelConv context.CancelFunc

	wg     sync.WaitGroup
	shut   chan struct{}
	closed chan struct{}
}

func New(s Settings) *Controller {
	return &Controller{
		flow:         s.Flow,
		opening:      s.Opening,
		room:         s.Room,
		conversation: s.Conversation,
		ledger:       s.Ledger,
		broker:       s.Broker,
		logger:       s.Logger,
		shut:         make(chan struct{}),
		closed:       make(chan struct{}),
	}
}

func (c *Controller) State() State {
	return State(c.state.Load())
}

// Closed is closed once the teardown has finished.
func (c *Controller) Closed() <-chan struct{} {
	return c.closed
}

// Run drives the call until it is closed and reports what ended it. The error
// is only set when the call ended on the fatal path.
func (c *Controller) Run(ctx context.Context) (Reason, error) {
	c.logger.Infow("call: run: started", "room", c.room.Name(), "flow", c.flow.Name)
	defer c.logger.Infow("call: run: completed", "room", c.room.Name())

	toolSub := c.subscribe(ToolExecutedTopic)
	defer c.unsubscribe(ToolExecutedTopic, toolSub)
	leftSub := c.subscribe(ParticipantLeftTopic)
	defer c.unsubscribe(ParticipantLeftTopic, leftSub)
	lostSub := c.subscribe(DisconnectedTopic)
	defer c.unsubscribe(DisconnectedTopic, lostSub)

	convCtx, cancelConv := context.WithCancel(ctx)
	defer cancelConv()

	c.mu.Lock()
	c.cancelConv = cancelConv
	c.mu.Unlock()
	if c.finalized.Load() {
		cancelConv()
	}

	fatal := make(chan error, 1)

	var watchdog <-chan time.Time
	if c.flow.Watchdog > 0 {
		t := time.NewTimer(c.flow.Watchdog)
		defer t.Stop()
		watchdog = t.C
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.converse(convCtx, fatal)
	}()

	var fatalErr error
	done := ctx.Done()

	for {
		select {
		case <-c.closed:
			cancelConv()
			close(c.shut)
			c.wg.Wait()
			return c.reason, fatalErr

		case <-done:
			done = nil
			c.logger.Infow("call: run: received shut signal")
			c.trigger(ReasonShutdown)

		case err := <-fatal:
			fatalErr = err
			c.logger.Errorw("call: run: fatal", "ERROR", err)
			c.trigger(ReasonFatal)

		case <-watchdog:
			c.logger.Warnw("call: run: watchdog expired", "after", c.flow.Watchdog)
			c.trigger(ReasonWatchdog)

		case data := <-toolSub.GetChannel():
			ex, ok := data.(tools.Executed)
			if !ok || !ex.Completion() {
				continue
			}
			c.logger.Infow("call: run: completion declared", "tool", ex.Name)
			c.trigger(ReasonCompleted)

		case data := <-leftSub.GetChannel():
			left, _ := data.(ParticipantLeft)
			c.logger.Infow("call: run: participant left", "identity", left.Identity)
			c.debounce()

		case data := <-lostSub.GetChannel():
			lost, _ := data.(Disconnected)
			c.logger.Infow("call: run: disconnected", "reason", lost.Reason)
			c.trigger(ReasonDisconnected)
		}
	}
}

// Finalize ends the call for reason. Only the first caller flushes the ledger
// and deletes the room; every later call is a no-op. It reports whether this
// call performed the teardown.
func (c *Controller) Finalize(reason Reason) bool {
	if !c.finalized.CompareAndSwap(false, true) {
		c.logger.Infow("call: finalize: already finalized", "reason", reason)
		return false
	}

	c.reason = reason
	c.state.Store(int32(Finalizing))
	c.stopConversation()

	c.logger.Infow("call: finalize: started", "reason", reason)
	defer c.logger.Infow("call: finalize: completed", "reason", reason)

	wrote, err := c.ledger.Flush()
	switch {
	case err != nil:
		c.logger.Errorw("call: finalize: flush", "ERROR", err)
	case wrote:
		c.logger.Infow("call: finalize: ledger flushed")
	}

	if reason == ReasonCompleted && c.flow.TeardownDelay > 0 {
		t := time.NewTimer(c.flow.TeardownDelay)
		<-t.C
	}

	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()

	if err := c.room.Delete(ctx); err != nil {
		c.logger.Errorw("call: finalize: room delete", "room", c.room.Name(), "ERROR", err)
	}

	c.state.Store(int32(Closed))
	close(c.closed)

	return true
}

// =====================================================================================================================

// stopConversation cancels the conversation so no tool runs once the call is
// finalizing.
func (c *Controller) stopConversation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelConv != nil {
		c.cancelConv()
	}
}

func (c *Controller) converse(ctx context.Context, fatal chan<- error) {
	c.logger.Infow("call: converse: G started")
	defer c.logger.Infow("call: converse: G completed")

	report := func(err error) {
		if ctx.Err() != nil {
			return
		}
		select {
		case fatal <- err:
		default:
		}
	}

	if err := c.room.WaitForParticipant(ctx); err != nil {
		report(err)
		return
	}

	if !c.state.CompareAndSwap(int32(Connecting), int32(Active)) {
		return
	}
	c.logger.Infow("call: converse: participant joined, call active")

	if err := c.conversation.Greet(ctx, c.opening); err != nil {
		report(err)
		return
	}

	if err := c.conversation.Run(ctx); err != nil {
		report(err)
	}
}

// trigger runs Finalize in its own goroutine so the control loop keeps
// draining events during a delayed teardown.
func (c *Controller) trigger(reason Reason) {
	if c.finalized.Load() {
		c.logger.Infow("call: trigger: already finalized", "reason", reason)
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.Finalize(reason)
	}()
}

// debounce waits out the departure grace period and then counts the humans
// left in the room, so a quick rejoin does not end the call.
func (c *Controller) debounce() {
	if c.finalized.Load() {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		t := time.NewTimer(c.flow.DepartureGrace)
		defer t.Stop()

		select {
		case <-c.shut:
			return
		case <-t.C:
		}

		if c.finalized.Load() {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
		defer cancel()

		n, err := c.room.HumanParticipants(ctx)
		if err != nil {
			c.logger.Errorw("call: debounce: participant census", "ERROR", err)
			return
		}
		if n > 0 {
			c.logger.Infow("call: debounce: participants remain", "count", n)
			return
		}

		c.Finalize(ReasonRoomEmpty)
	}()
}

func (c *Controller) subscribe(topic string) *pubsub.Subscriber {
	s := pubsub.NewSubscriber(subscriberCapacity)
	c.broker.Subscribe(topic, s)
	return s
}

func (c *Controller) unsubscribe(topic string, s *pubsub.Subscriber) {
	if err := c.broker.UnSubscribe(topic, s); err != nil {
		c.logger.Errorw("call: unsubscribe", "topic", topic, "ERROR", err)
	}
}
