package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/firelink/firebridge/internal/assist"
	"github.com/firelink/firebridge/internal/coordinator"
	"github.com/firelink/firebridge/internal/dom"
	"github.com/firelink/firebridge/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the bridge binds to loopback; origin checks stay off
	},
}

// Handler serves the browser UI over WebSocket.
type Handler struct {
	assistant   *assist.Service
	engine      *dom.Engine
	highlighter *dom.Highlighter
	log         *logging.Logger
}

// NewHandler creates a WebSocket handler.
func NewHandler(assistant *assist.Service, engine *dom.Engine, highlighter *dom.Highlighter, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.NewNop()
	}
	return &Handler{
		assistant:   assistant,
		engine:      engine,
		highlighter: highlighter,
		log:         log,
	}
}

// client wraps one connection with serialized writes, since assistant
// replies arrive from per-request goroutines.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(data interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(data)
}

// HandleConnection upgrades the request and serves messages until the
// connection drops.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	cl := &client{conn: conn}
	connID := uuid.New().String()
	log := &logging.Logger{Logger: h.log.With(zap.String("conn_id", connID))}
	log.Info("ui connected")

	cl.send(gin.H{
		"type":    "system",
		"message": "connected to firebridge",
	})

	ctx := c.Request.Context()
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			log.Info("ui disconnected", zap.Error(err))
			return
		}
		h.dispatch(ctx, cl, msg, log)
	}
}

func (h *Handler) dispatch(ctx context.Context, cl *client, msg Message, log *logging.Logger) {
	switch msg.Type {
	case TypeSummarize, TypeAsk, TypeExplain, TypeAnalyzeNetwork, TypeSuggestEdits:
		// Assistant round-trips run off the read loop so a cancel frame can
		// arrive while one is in flight.
		go h.handleAssistant(ctx, cl, msg, log)

	case TypeCancel:
		cancelled := h.assistant.Cancel()
		cl.send(gin.H{"type": "cancel_result", "id": msg.ID, "cancelled": cancelled})

	case TypeApplyEdits:
		results := h.engine.Apply(msg.Ops)
		cl.send(gin.H{"type": "edit_results", "id": msg.ID, "summary": summarize(results)})

	case TypeUndo:
		results, err := h.engine.UndoLast()
		if err != nil {
			h.sendError(cl, msg.ID, err)
			return
		}
		cl.send(gin.H{"type": "undo_results", "id": msg.ID, "summary": summarize(results)})

	case TypeHighlight:
		shown := h.highlighter.Highlight(msg.Selector)
		cl.send(gin.H{"type": "highlight_result", "id": msg.ID, "shown": shown})

	case TypeClearHighlight:
		h.highlighter.Clear()
		cl.send(gin.H{"type": "highlight_result", "id": msg.ID, "shown": false})

	case TypeLoadDocument:
		if err := h.engine.Load(msg.HTML); err != nil {
			h.sendError(cl, msg.ID, err)
			return
		}
		cl.send(gin.H{"type": "document_loaded", "id": msg.ID})

	case TypePing:
		cl.send(gin.H{"type": "pong", "id": msg.ID})

	default:
		cl.send(gin.H{"type": "error", "id": msg.ID, "code": "unknown_type",
			"message": "unknown message type"})
	}
}

func (h *Handler) handleAssistant(ctx context.Context, cl *client, msg Message, log *logging.Logger) {
	started := time.Now()

	var (
		result *coordinator.Result
		ops    []dom.Op
		err    error
	)
	switch msg.Type {
	case TypeSummarize:
		result, err = h.assistant.Summarize(ctx, msg.URL)
	case TypeAsk:
		result, err = h.assistant.Ask(ctx, msg.URL, msg.Question)
	case TypeExplain:
		result, err = h.assistant.Explain(ctx, msg.Selection)
	case TypeAnalyzeNetwork:
		result, err = h.assistant.AnalyzeNetwork(ctx, msg.NetworkData)
	case TypeSuggestEdits:
		ops, result, err = h.assistant.SuggestEdits(ctx, msg.URL, msg.Request)
	}

	if err != nil {
		h.sendError(cl, msg.ID, err)
		return
	}

	reply := gin.H{
		"type":   "result",
		"id":     msg.ID,
		"action": msg.Type,
		"result": result,
	}
	if msg.Type == TypeSuggestEdits {
		reply["ops"] = ops
	}
	cl.send(reply)

	log.Debug("assistant action served",
		zap.String("action", msg.Type),
		zap.Duration("elapsed", time.Since(started)))
}

func (h *Handler) sendError(cl *client, id string, err error) {
	cl.send(gin.H{
		"type":    "error",
		"id":      id,
		"code":    errorCode(err),
		"message": err.Error(),
	})
}

// errorCode maps the error taxonomy onto stable strings the UI switches on.
func errorCode(err error) string {
	switch {
	case errors.Is(err, coordinator.ErrTimeout):
		return "timeout"
	case errors.Is(err, coordinator.ErrDisconnected):
		return "disconnected"
	case errors.Is(err, coordinator.ErrCancelled):
		return "cancelled"
	case errors.Is(err, coordinator.ErrConnection):
		return "connection"
	case coordinator.IsPeerError(err):
		return "peer_error"
	case errors.Is(err, dom.ErrNothingToUndo):
		return "nothing_to_undo"
	case errors.Is(err, dom.ErrTargetNotFound):
		return "target_not_found"
	default:
		return "internal"
	}
}
