package channel

import (
	"io"
	"sync"

	"github.com/firelink/firebridge/internal/logging"
	"go.uber.org/zap"
)

// Transport is a bidirectional message channel to one external peer.
// Inbound frames are delivered in order; the disconnect handler fires exactly
// once when the stream ends, whether by peer exit or local Close.
type Transport interface {
	Send(msg Message) error
	Close() error
}

// Handlers receive transport events. OnMessage runs on the reader goroutine,
// so inbound delivery stays ordered.
type Handlers struct {
	OnMessage    func(msg Message)
	OnDisconnect func()
}

// StreamTransport frames messages over a byte stream pair, typically the
// stdin/stdout pipes of a spawned peer process.
type StreamTransport struct {
	r        io.Reader
	w        io.Writer
	closers  []io.Closer
	handlers Handlers
	maxFrame int
	log      *logging.Logger

	writeMu    sync.Mutex
	disconnect sync.Once
	closeOnce  sync.Once
	closeErr   error
}

// NewStream creates a transport over the given reader/writer. Any closers are
// closed when the transport shuts down.
func NewStream(r io.Reader, w io.Writer, handlers Handlers, maxFrame int, log *logging.Logger, closers ...io.Closer) *StreamTransport {
	if log == nil {
		log = logging.NewNop()
	}
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrameSize
	}
	return &StreamTransport{
		r:        r,
		w:        w,
		closers:  closers,
		handlers: handlers,
		maxFrame: maxFrame,
		log:      log,
	}
}

// Start launches the reader loop. Call once.
func (t *StreamTransport) Start() {
	go t.readLoop()
}

func (t *StreamTransport) readLoop() {
	for {
		msg, err := ReadFrame(t.r, t.maxFrame)
		if err != nil {
			if err != io.EOF {
				t.log.Warn("channel read failed", zap.Error(err))
			}
			t.fireDisconnect()
			return
		}
		if t.handlers.OnMessage != nil {
			t.handlers.OnMessage(msg)
		}
	}
}

func (t *StreamTransport) fireDisconnect() {
	t.disconnect.Do(func() {
		if t.handlers.OnDisconnect != nil {
			t.handlers.OnDisconnect()
		}
	})
}

// Send writes one frame. Writes are serialized so concurrent senders cannot
// interleave frame bytes.
func (t *StreamTransport) Send(msg Message) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return WriteFrame(t.w, msg, t.maxFrame)
}

// Close tears down the underlying streams. The reader loop observes the
// closed stream and fires the disconnect handler.
func (t *StreamTransport) Close() error {
	t.closeOnce.Do(func() {
		for _, c := range t.closers {
			if err := c.Close(); err != nil && t.closeErr == nil {
				t.closeErr = err
			}
		}
	})
	return t.closeErr
}
