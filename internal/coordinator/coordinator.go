package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/firelink/firebridge/internal/channel"
	"github.com/firelink/firebridge/internal/logging"
	"go.uber.org/zap"
)

// Dialer opens a transport to the peer with the given handlers installed.
// The coordinator calls it lazily on the first send and again after a
// disconnect.
type Dialer func(handlers channel.Handlers) (channel.Transport, error)

// Result is a successful peer response plus optional telemetry. DurationMS is
// always populated: client-side elapsed time fills in when the peer omits it.
type Result struct {
	Value           interface{} `json:"result"`
	DurationMS      int64       `json:"duration_ms"`
	PromptSize      int64       `json:"prompt_size,omitempty"`
	PromptPreview   string      `json:"prompt_preview,omitempty"`
	ResponseSize    int64       `json:"response_size,omitempty"`
	ResponsePreview string      `json:"response_preview,omitempty"`
}

type outcome struct {
	result *Result
	err    error
}

// pendingRequest tracks one in-flight request. The done channel is written
// exactly once, by whoever removes the entry from the pending map.
type pendingRequest struct {
	id        uint64
	createdAt time.Time
	done      chan outcome
	timer     *time.Timer
}

// Coordinator multiplexes request/response pairs over one peer channel.
// Request ids are monotonic and never reused, so a stale response from an
// earlier connection can never settle a newer caller. Map-entry presence is
// the single source of truth for "has this request settled": response,
// timeout, cancellation and disconnect all remove the entry under the mutex
// before settling the caller.
type Coordinator struct {
	dial    Dialer
	timeout time.Duration
	log     *logging.Logger
	metrics *Metrics

	mu        sync.Mutex
	transport channel.Transport
	gen       uint64 // connection generation, guards stale disconnects
	pending   map[uint64]*pendingRequest
	activeID  uint64 // most recently issued unsettled id, 0 = none
	nextID    uint64
}

// New creates a coordinator. Metrics may be nil.
func New(dial Dialer, timeout time.Duration, log *logging.Logger, metrics *Metrics) *Coordinator {
	if log == nil {
		log = logging.NewNop()
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Coordinator{
		dial:    dial,
		timeout: timeout,
		log:     log,
		metrics: metrics,
		pending: make(map[uint64]*pendingRequest),
	}
}

// Connect idempotently ensures a live channel exists.
func (c *Coordinator) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *Coordinator) connectLocked() error {
	if c.transport != nil {
		return nil
	}

	c.gen++
	gen := c.gen
	transport, err := c.dial(channel.Handlers{
		OnMessage:    c.handleMessage,
		OnDisconnect: func() { c.handleDisconnect(gen) },
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	c.transport = transport
	c.log.Info("peer channel opened")
	return nil
}

// Send issues one request to the peer and waits for its response. The action
// and params are written as a single frame with a fresh requestId attached
// last, so callers cannot spoof the id. Exactly one of (result, error) comes
// back, regardless of how the request settles.
func (c *Coordinator) Send(ctx context.Context, action string, params map[string]interface{}) (*Result, error) {
	c.mu.Lock()
	if err := c.connectLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	transport := c.transport

	c.nextID++
	id := c.nextID

	p := &pendingRequest{
		id:        id,
		createdAt: time.Now(),
		done:      make(chan outcome, 1),
	}
	p.timer = time.AfterFunc(c.timeout, func() { c.expire(id) })
	c.pending[id] = p
	c.activeID = id
	c.mu.Unlock()

	c.metrics.requestStarted(action)

	payload := make(channel.Message, len(params)+2)
	for k, v := range params {
		payload[k] = v
	}
	payload["action"] = action
	payload["requestId"] = id

	if err := transport.Send(payload); err != nil {
		// Synchronous write failure: settle immediately, no timeout wait.
		c.settle(id, nil, fmt.Errorf("channel write failed: %w", err))
	}

	select {
	case out := <-p.done:
		return c.finish(action, p, out)
	case <-ctx.Done():
		c.settle(id, nil, ctx.Err())
		out := <-p.done
		return c.finish(action, p, out)
	}
}

func (c *Coordinator) finish(action string, p *pendingRequest, out outcome) (*Result, error) {
	c.metrics.requestFinished(action, time.Since(p.createdAt), out.err)
	return out.result, out.err
}

// CancelActive cancels the most recently issued unsettled request. The local
// caller is settled with ErrCancelled before the peer hears anything; the
// cancellation notice to the peer is fire-and-forget.
func (c *Coordinator) CancelActive() bool {
	c.mu.Lock()
	id := c.activeID
	if id == 0 {
		c.mu.Unlock()
		return false
	}
	p := c.pending[id]
	delete(c.pending, id)
	c.activeID = 0
	transport := c.transport
	c.mu.Unlock()

	if p != nil {
		p.timer.Stop()
		p.done <- outcome{err: ErrCancelled}
	}
	c.metrics.cancelled()
	c.log.Info("cancelled active request", zap.Uint64("request_id", id))

	if transport != nil {
		go func() {
			notice := channel.Message{
				"action":          "cancel",
				"targetRequestId": id,
			}
			if err := transport.Send(notice); err != nil {
				c.log.Warn("cancel notice not delivered",
					zap.Uint64("request_id", id), zap.Error(err))
			}
		}()
	}
	return true
}

// Close tears down the channel. In-flight requests settle through the
// disconnect path.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	transport := c.transport
	c.mu.Unlock()
	if transport == nil {
		return nil
	}
	return transport.Close()
}

// settle removes the pending entry for id, clearing the active marker if it
// still points there, and delivers the outcome. Returns false if the entry
// had already settled.
func (c *Coordinator) settle(id uint64, result *Result, err error) bool {
	c.mu.Lock()
	p, ok := c.pending[id]
	if !ok {
		c.mu.Unlock()
		return false
	}
	delete(c.pending, id)
	if c.activeID == id {
		c.activeID = 0
	}
	c.mu.Unlock()

	p.timer.Stop()
	p.done <- outcome{result: result, err: err}
	return true
}

func (c *Coordinator) expire(id uint64) {
	if c.settle(id, nil, ErrTimeout) {
		c.metrics.timedOut()
		c.log.Warn("request timed out", zap.Uint64("request_id", id))
	}
}

// handleMessage runs on the transport's reader goroutine. Responses for
// unknown ids are ignored: they are duplicates, stale frames from before a
// timeout or cancellation, or malformed.
func (c *Coordinator) handleMessage(msg channel.Message) {
	id, ok := requestID(msg)
	if !ok {
		c.log.Debug("ignoring frame without requestId")
		return
	}

	c.mu.Lock()
	p, live := c.pending[id]
	if !live {
		c.mu.Unlock()
		c.log.Debug("ignoring response for settled request", zap.Uint64("request_id", id))
		return
	}
	delete(c.pending, id)
	if c.activeID == id {
		c.activeID = 0
	}
	c.mu.Unlock()

	p.timer.Stop()

	if success, _ := msg["success"].(bool); !success {
		message, _ := msg["error"].(string)
		if message == "" {
			message = "request failed"
		}
		p.done <- outcome{err: &PeerError{Message: message}}
		return
	}

	result := &Result{Value: msg["result"]}
	result.DurationMS = intField(msg, "duration_ms")
	if result.DurationMS == 0 {
		result.DurationMS = time.Since(p.createdAt).Milliseconds()
	}
	result.PromptSize = intField(msg, "prompt_size")
	result.ResponseSize = intField(msg, "response_size")
	result.PromptPreview, _ = msg["prompt_preview"].(string)
	result.ResponsePreview, _ = msg["response_preview"].(string)

	p.done <- outcome{result: result}
}

// handleDisconnect drains every pending request exactly once per disconnect.
// The generation check discards teardown events from a connection that has
// already been replaced.
func (c *Coordinator) handleDisconnect(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.transport == nil {
		c.mu.Unlock()
		return
	}
	c.transport = nil
	c.activeID = 0
	drained := c.pending
	c.pending = make(map[uint64]*pendingRequest)
	c.mu.Unlock()

	for _, p := range drained {
		p.timer.Stop()
		p.done <- outcome{err: ErrDisconnected}
	}
	c.metrics.disconnected(len(drained))
	c.log.Warn("peer channel closed", zap.Int("drained", len(drained)))
}

// Pending reports the number of in-flight requests.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func requestID(msg channel.Message) (uint64, bool) {
	switch v := msg["requestId"].(type) {
	case float64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case uint64:
		return v, true
	default:
		return 0, false
	}
}

func intField(msg channel.Message, key string) int64 {
	switch v := msg[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}
